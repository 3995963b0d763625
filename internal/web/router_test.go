// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package web

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/inkwell/inkwell/internal/web/mocks"
	"github.com/inkwell/inkwell/pkg/errutil"
)

func TestNewRouter_RequiresDependencies(t *testing.T) {
	gate, err := NewGate(newTokens(t, "secret", time.Now()), nil)
	require.NoError(t, err)

	_, err = NewRouter(RouterOptions{Gate: gate})
	errutil.AssertErrorCode(t, err, "HTTP_INVALID_CONFIG")

	_, err = NewRouter(RouterOptions{Service: mocks.NewMockCredentialService(t)})
	errutil.AssertErrorCode(t, err, "HTTP_INVALID_CONFIG")
}

func TestRouter_CORSPreflight(t *testing.T) {
	gate, err := NewGate(newTokens(t, "secret", time.Now()), defaultPublic)
	require.NoError(t, err)
	h, err := NewRouter(RouterOptions{
		Service:     mocks.NewMockCredentialService(t),
		Gate:        gate,
		CORSOrigins: []string{" http://localhost:5173/ ", ""},
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodOptions, "/api/user", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPut)
	req.Header.Set("Access-Control-Request-Headers", "Authorization, Content-Type")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), http.MethodPut)
}

func TestRouter_CORSRejectsUnknownOrigin(t *testing.T) {
	gate, err := NewGate(newTokens(t, "secret", time.Now()), defaultPublic)
	require.NoError(t, err)
	h, err := NewRouter(RouterOptions{
		Service:     mocks.NewMockCredentialService(t),
		Gate:        gate,
		CORSOrigins: []string{"http://localhost:5173"},
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://evil.example.com")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouter_NoOriginsDisablesCORS(t *testing.T) {
	gate, err := NewGate(newTokens(t, "secret", time.Now()), defaultPublic)
	require.NoError(t, err)
	h, err := NewRouter(RouterOptions{
		Service:     mocks.NewMockCredentialService(t),
		Gate:        gate,
		CORSOrigins: []string{" ", ""},
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRouter_ObservesRequests(t *testing.T) {
	var obs observerLog
	gate, err := NewGate(newTokens(t, "secret", time.Now()), defaultPublic)
	require.NoError(t, err)
	svc := mocks.NewMockCredentialService(t)
	svc.On("Login", mock.Anything, mock.Anything).Return(sampleProfile(), nil)

	h, err := NewRouter(RouterOptions{Service: svc, Gate: gate, Observer: &obs})
	require.NoError(t, err)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/users/login", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/user", nil))

	assert.Equal(t, observerLog{
		{http.MethodPost, "/api/users/login", http.StatusOK},
		{http.MethodGet, "/api/*", http.StatusUnauthorized},
	}, obs, "gate rejections happen before the subrouter resolves the full pattern")
}

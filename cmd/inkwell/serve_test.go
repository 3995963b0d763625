// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkwell/inkwell/internal/observability"
	"github.com/inkwell/inkwell/pkg/errutil"
)

type fakeObservability struct {
	metrics *observability.Metrics
	ready   observability.ReadinessChecker
	started bool
	stopped bool
}

func (f *fakeObservability) Start() (<-chan error, error) {
	f.started = true
	return make(chan error), nil
}

func (f *fakeObservability) Stop(context.Context) error {
	f.stopped = true
	return nil
}

func (f *fakeObservability) Addr() string                     { return "fake" }
func (f *fakeObservability) Metrics() *observability.Metrics { return f.metrics }

func serveEnv(t *testing.T) {
	t.Helper()
	isolateConfig(t)
	t.Setenv("INKWELL_AUTH_SECRET", "test-secret")
	t.Setenv("INKWELL_DATABASE_URL", "postgres://localhost/inkwell")
	t.Setenv("INKWELL_METRICS_ADDR", "127.0.0.1:0")
	t.Setenv("INKWELL_LOG_LEVEL", "error")
	t.Cleanup(func() { slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil))) })
}

type cobraCmdWithOutput struct {
	*cobra.Command
	out *bytes.Buffer
}

func newServeTestCmd(t *testing.T, args ...string) *cobraCmdWithOutput {
	t.Helper()
	cmd := NewServeCmd()
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	require.NoError(t, cmd.Flags().Parse(args))
	return &cobraCmdWithOutput{Command: cmd, out: out}
}

func TestServe_EndToEnd(t *testing.T) {
	serveEnv(t)

	db, err := pgxmock.NewPool()
	require.NoError(t, err)
	db.ExpectPing()
	db.ExpectClose()

	obs := &fakeObservability{metrics: observability.NewMetrics(prometheus.NewRegistry())}
	listening := make(chan net.Addr, 1)
	deps := &ServeDeps{
		DatabaseFactory: func(_ context.Context, url string, _ *slog.Logger) (Database, error) {
			assert.Equal(t, "postgres://localhost/inkwell", url)
			return db, nil
		},
		ObservabilityServerFactory: func(_ string, ready observability.ReadinessChecker, _ *slog.Logger) ObservabilityServer {
			obs.ready = ready
			return obs
		},
		ListenerFactory: func(network, _ string) (net.Listener, error) {
			l, err := net.Listen(network, "127.0.0.1:0")
			if err == nil {
				listening <- l.Addr()
			}
			return l, err
		},
	}

	cmd := newServeTestCmd(t, "--addr", "127.0.0.1:0")
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- runServeWithDeps(ctx, cmd.Command, deps) }()

	var addr net.Addr
	select {
	case addr = <-listening:
	case err := <-done:
		cancel()
		t.Fatalf("serve exited early: %v", err)
	case <-time.After(10 * time.Second):
		cancel()
		t.Fatal("serve did not start listening")
	}

	base := "http://" + addr.String()
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(base + "/")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = client.Get(base + "/api/user")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	assert.NoError(t, obs.ready(context.Background()), "database answers the readiness ping")

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("serve did not shut down")
	}

	assert.True(t, obs.started)
	assert.True(t, obs.stopped)
	assert.Equal(t, 1.0, testutil.ToFloat64(obs.metrics.GateDecisions.WithLabelValues("required", "missing")))
	assert.Equal(t, 1.0, testutil.ToFloat64(obs.metrics.GateDecisions.WithLabelValues("optional", "anonymous")))
	assert.Equal(t, 1.0, testutil.ToFloat64(obs.metrics.HTTPRequests.WithLabelValues("GET", "/", "200")))
	assert.Contains(t, cmd.out.String(), "Inkwell started")
	assert.NoError(t, db.ExpectationsWereMet())
}

func TestServe_RequiresSecret(t *testing.T) {
	serveEnv(t)
	t.Setenv("INKWELL_AUTH_SECRET", "")

	cmd := newServeTestCmd(t)
	err := runServeWithDeps(context.Background(), cmd.Command, &ServeDeps{
		DatabaseFactory: func(context.Context, string, *slog.Logger) (Database, error) {
			t.Fatal("database must not be opened without a secret")
			return nil, nil
		},
	})

	errutil.AssertErrorCode(t, err, "CONFIG_SECRET_MISSING")
}

func TestServe_RequiresDatabaseURL(t *testing.T) {
	serveEnv(t)
	t.Setenv("INKWELL_DATABASE_URL", "")

	err := runServeWithDeps(context.Background(), newServeTestCmd(t).Command, nil)

	errutil.AssertErrorCode(t, err, "CONFIG_DATABASE_MISSING")
}

func TestServe_DatabaseFailure(t *testing.T) {
	serveEnv(t)

	err := runServeWithDeps(context.Background(), newServeTestCmd(t).Command, &ServeDeps{
		DatabaseFactory: func(context.Context, string, *slog.Logger) (Database, error) {
			return nil, errors.New("connection refused")
		},
	})

	errutil.AssertErrorCode(t, err, "DB_CONNECT_FAILED")
}

func TestServe_ListenFailureStopsObservability(t *testing.T) {
	serveEnv(t)

	db, err := pgxmock.NewPool()
	require.NoError(t, err)
	db.ExpectClose()
	obs := &fakeObservability{metrics: observability.NewMetrics(prometheus.NewRegistry())}

	err = runServeWithDeps(context.Background(), newServeTestCmd(t).Command, &ServeDeps{
		DatabaseFactory: func(context.Context, string, *slog.Logger) (Database, error) { return db, nil },
		ObservabilityServerFactory: func(string, observability.ReadinessChecker, *slog.Logger) ObservabilityServer {
			return obs
		},
		ListenerFactory: func(string, string) (net.Listener, error) {
			return nil, errors.New("address already in use")
		},
	})

	errutil.AssertErrorCode(t, err, "HTTP_LISTEN_FAILED")
	assert.True(t, obs.stopped)
}

func TestServe_Flags(t *testing.T) {
	cmd := NewServeCmd()
	for _, name := range []string{"addr", "metrics-addr", "database-url", "log-format", "log-level"} {
		assert.NotNil(t, cmd.Flags().Lookup(name), "missing --%s", name)
	}
}

func TestDatabaseReady_ReportsPingFailure(t *testing.T) {
	db, err := pgxmock.NewPool()
	require.NoError(t, err)
	db.ExpectPing().WillReturnError(errors.New("connection reset"))

	err = databaseReady(db)(context.Background())

	errutil.AssertErrorCode(t, err, "DB_PING_FAILED")
	assert.Contains(t, err.Error(), "connection reset")
	require.NoError(t, db.ExpectationsWereMet())
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package auth_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/inkwell/inkwell/internal/auth"
)

func TestConflictError_MatchesSentinel(t *testing.T) {
	err := fmt.Errorf("insert: %w", &auth.ConflictError{Field: "email"})
	assert.ErrorIs(t, err, auth.ErrConflict)
	assert.NotErrorIs(t, err, auth.ErrNotFound)

	var conflict *auth.ConflictError
	assert.True(t, errors.As(err, &conflict))
	assert.Equal(t, "email", conflict.Field)
}

func TestError_Message(t *testing.T) {
	err := &auth.Error{
		Kind: auth.KindValidation,
		Fields: auth.FieldErrors{
			"username": {auth.MsgBlank},
			"email":    {auth.MsgBlank, auth.MsgInvalid},
		},
	}
	assert.Equal(t, "VALIDATION_FAILED: email can't be blank, is invalid; username can't be blank", err.Error())
	assert.Equal(t, "VALIDATION_FAILED", err.ErrorKind())
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, auth.KindNotFound, auth.KindOf(fmt.Errorf("wrap: %w", &auth.Error{Kind: auth.KindNotFound})))
	assert.Equal(t, auth.KindUnexpected, auth.KindOf(errors.New("plain")))
	assert.True(t, auth.IsKind(&auth.Error{Kind: auth.KindConflict}, auth.KindConflict))
	assert.False(t, auth.IsKind(&auth.Error{Kind: auth.KindConflict}, auth.KindNotFound))
}

func TestFieldErrors_Add(t *testing.T) {
	f := auth.FieldErrors{}
	f.Add("email", auth.MsgBlank)
	f.Add("email", auth.MsgTaken)
	assert.Equal(t, []string{auth.MsgBlank, auth.MsgTaken}, f["email"])
}

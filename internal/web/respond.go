// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package web

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/samber/oops"

	"github.com/inkwell/inkwell/internal/auth"
	"github.com/inkwell/inkwell/pkg/errutil"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// StatusFor maps a failure kind to its HTTP status.
func StatusFor(kind auth.Kind) int {
	switch kind {
	case auth.KindValidation, auth.KindConflict:
		return http.StatusUnprocessableEntity
	case auth.KindInvalidCredentials:
		return http.StatusForbidden
	case auth.KindNotFound:
		return http.StatusNotFound
	case auth.KindTokenInvalid:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

type errorBody struct {
	Errors auth.FieldErrors `json:"errors"`
}

type userEnvelope[T any] struct {
	User T `json:"user"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError renders err as {"errors": {...}}. Errors that are not
// *auth.Error are logged and rendered as an opaque failure.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var svcErr *auth.Error
	if !errors.As(err, &svcErr) {
		errutil.LogErrorContext(r.Context(), logger, "request failed", err)
		svcErr = &auth.Error{
			Kind:   auth.KindUnexpected,
			Fields: auth.FieldErrors{"server": {auth.MsgUnexpected}},
		}
	}
	if svcErr.Kind == auth.KindTokenInvalid {
		w.Header().Set("WWW-Authenticate", `Token realm="inkwell"`)
	}
	writeJSON(w, StatusFor(svcErr.Kind), errorBody{Errors: svcErr.Fields})
}

// decodeUser reads a {"user": {...}} request body. A missing or empty
// body decodes to the zero value so the service reports blank fields.
func decodeUser[T any](r *http.Request) (T, error) {
	var env userEnvelope[T]
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	if err := dec.Decode(&env); err != nil && !errors.Is(err, io.EOF) {
		return env.User, &auth.Error{
			Kind:   auth.KindValidation,
			Fields: auth.FieldErrors{"body": {auth.MsgInvalid}},
			Err:    oops.Code("HTTP_BODY_INVALID").Wrap(err),
		}
	}
	return env.User, nil
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

// Package errutil holds shared helpers for logging and asserting on
// structured errors.
package errutil

import (
	"context"
	"errors"
	"log/slog"

	"github.com/samber/oops"
)

// kinded is implemented by errors that carry a failure kind, such as
// *auth.Error.
type kinded interface {
	ErrorKind() string
}

// LogError logs err with structured context.
// For oops errors it adds the code and context map; for kinded errors it
// adds the kind. Anything else is logged as its error string.
func LogError(logger *slog.Logger, msg string, err error) {
	LogErrorContext(context.Background(), logger, msg, err)
}

// LogErrorContext is LogError with a context, so handlers that read
// request-scoped values (trace and subject) can see them.
func LogErrorContext(ctx context.Context, logger *slog.Logger, msg string, err error) {
	logger.ErrorContext(ctx, msg, Attrs(err)...)
}

// Attrs returns the structured attributes LogError emits for err.
func Attrs(err error) []any {
	attrs := []any{"error", errorString(err)}

	var k kinded
	if errors.As(err, &k) {
		attrs = append(attrs, "kind", k.ErrorKind())
	}
	if oopsErr, ok := oops.AsOops(err); ok {
		if code := oopsErr.Code(); code != nil {
			attrs = append(attrs, "code", code)
		}
		if c := oopsErr.Context(); len(c) > 0 {
			attrs = append(attrs, "context", c)
		}
	}
	return attrs
}

func errorString(err error) string {
	if err == nil {
		return "<nil>"
	}
	return err.Error()
}

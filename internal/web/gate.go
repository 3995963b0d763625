// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package web

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gobwas/glob"
	"github.com/samber/oops"

	"github.com/inkwell/inkwell/internal/auth"
)

// Gate modes, used as metric labels.
const (
	ModeRequired = "required"
	ModeOptional = "optional"
)

// Gate decision results, used as metric labels.
const (
	DecisionPublic        = "public"
	DecisionAuthenticated = "authenticated"
	DecisionAnonymous     = "anonymous"
	DecisionMissing       = "missing"
)

// DecisionRecorder receives one call per gate decision. Rejections of a
// presented token use the token rejection reason as result.
type DecisionRecorder interface {
	RecordGateDecision(mode, result string)
}

// Gate authenticates requests from the Authorization header.
type Gate struct {
	verifier auth.TokenVerifier
	public   []glob.Glob
	logger   *slog.Logger
	recorder DecisionRecorder
}

// GateOption configures a Gate.
type GateOption func(*Gate)

// WithGateLogger sets the logger used for rejected tokens.
func WithGateLogger(logger *slog.Logger) GateOption {
	return func(g *Gate) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithDecisionRecorder sets the decision recorder.
func WithDecisionRecorder(r DecisionRecorder) GateOption {
	return func(g *Gate) {
		g.recorder = r
	}
}

// NewGate creates a Gate. publicPaths are glob patterns, with '/' as
// separator, that the Required policy lets through untouched.
func NewGate(verifier auth.TokenVerifier, publicPaths []string, opts ...GateOption) (*Gate, error) {
	if verifier == nil {
		return nil, oops.Code("GATE_INVALID_CONFIG").Errorf("token verifier is required")
	}

	g := &Gate{verifier: verifier, logger: slog.Default()}
	for _, p := range publicPaths {
		compiled, err := glob.Compile(p, '/')
		if err != nil {
			return nil, oops.Code("GATE_INVALID_PATTERN").With("pattern", p).Wrap(err)
		}
		g.public = append(g.public, compiled)
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// IsPublic reports whether path matches the allow-list.
func (g *Gate) IsPublic(path string) bool {
	for _, p := range g.public {
		if p.Match(path) {
			return true
		}
	}
	return false
}

// Required rejects requests without a valid token, except on allow-listed
// paths, which bypass the gate entirely.
func (g *Gate) Required(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if g.IsPublic(r.URL.Path) {
			g.record(ModeRequired, DecisionPublic)
			next.ServeHTTP(w, r)
			return
		}

		token, ok := ExtractToken(r.Header.Get("Authorization"))
		if !ok {
			g.record(ModeRequired, DecisionMissing)
			writeError(w, r, g.logger, unauthenticated())
			return
		}
		g.authenticate(ModeRequired, token, w, r, next)
	})
}

// Optional lets requests without a token through anonymously. A token that
// is present but invalid is still rejected.
func (g *Gate) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := ExtractToken(r.Header.Get("Authorization"))
		if !ok {
			g.record(ModeOptional, DecisionAnonymous)
			next.ServeHTTP(w, r)
			return
		}
		g.authenticate(ModeOptional, token, w, r, next)
	})
}

func (g *Gate) authenticate(mode, token string, w http.ResponseWriter, r *http.Request, next http.Handler) {
	id, err := g.verifier.Verify(token)
	if err != nil {
		reason := string(auth.TokenMalformed)
		var tokenErr *auth.TokenError
		if errors.As(err, &tokenErr) {
			reason = string(tokenErr.Reason)
		}
		g.record(mode, reason)
		g.logger.InfoContext(r.Context(), "token rejected",
			"mode", mode, "reason", reason, "path", r.URL.Path)
		writeError(w, r, g.logger, unauthenticated())
		return
	}

	g.record(mode, DecisionAuthenticated)
	next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
}

func (g *Gate) record(mode, result string) {
	if g.recorder != nil {
		g.recorder.RecordGateDecision(mode, result)
	}
}

// ExtractToken returns the token from an Authorization header of the form
// "Token <jwt>" or "Bearer <jwt>". The scheme is case-sensitive. Any other
// scheme or an empty value yields no token.
func ExtractToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || token == "" {
		return "", false
	}
	if scheme != "Token" && scheme != "Bearer" {
		return "", false
	}
	return token, true
}

func unauthenticated() *auth.Error {
	return &auth.Error{
		Kind:   auth.KindTokenInvalid,
		Fields: auth.FieldErrors{"token": {auth.MsgTokenInvalid}},
	}
}

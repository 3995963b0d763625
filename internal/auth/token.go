// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// TokenLifetime is the fixed validity window of an issued token.
const TokenLifetime = 60 * 24 * time.Hour

// ErrMissingSecret is returned by NewTokenService when no secret is configured.
var ErrMissingSecret = oops.Code("AUTH_SECRET_MISSING").Errorf("token signing secret is required")

// TokenReason says why a token was rejected.
type TokenReason string

// Token rejection reasons.
const (
	TokenMalformed        TokenReason = "malformed"
	TokenSignatureInvalid TokenReason = "signature_invalid"
	TokenExpired          TokenReason = "expired"
)

// TokenError is returned by TokenService.Verify.
type TokenError struct {
	Reason TokenReason
	Err    error
}

func (e *TokenError) Error() string {
	if e.Err == nil {
		return "token " + string(e.Reason)
	}
	return "token " + string(e.Reason) + ": " + e.Err.Error()
}

func (e *TokenError) Unwrap() error {
	return e.Err
}

// Claims are the signed token contents: sub, email, username, iat, exp.
type Claims struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// TokenService issues and verifies HS256 session tokens.
// The secret is copied at construction and never changes afterwards.
type TokenService struct {
	secret []byte
	now    func() time.Time
}

// TokenOption configures a TokenService.
type TokenOption func(*TokenService)

// WithClock overrides the wall clock used for iat, exp and verification.
func WithClock(now func() time.Time) TokenOption {
	return func(s *TokenService) {
		s.now = now
	}
}

// NewTokenService creates a TokenService signing with secret.
func NewTokenService(secret []byte, opts ...TokenOption) (*TokenService, error) {
	if len(secret) == 0 {
		return nil, ErrMissingSecret
	}
	s := &TokenService{
		secret: append([]byte(nil), secret...),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Issue signs a token for id with iat = now and exp = now + TokenLifetime,
// both in whole seconds.
func (s *TokenService) Issue(id Identity) (string, error) {
	now := time.Unix(s.now().Unix(), 0)

	claims := Claims{
		Email:    id.Email,
		Username: id.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   id.Subject.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(TokenLifetime)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", oops.Code("TOKEN_SIGN_FAILED").
			With("subject", id.Subject.String()).
			Wrap(err)
	}
	return signed, nil
}

// Verify checks the signature and expiry of token and returns its identity.
// A token is accepted only while exp is strictly after now; there is no
// leeway. Failures are always *TokenError.
func (s *TokenService) Verify(token string) (Identity, error) {
	claims := &Claims{}
	now := s.now()

	parsed, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(func() time.Time { return now }),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return Identity{}, classifyTokenError(err)
	}
	if !parsed.Valid {
		return Identity{}, &TokenError{Reason: TokenMalformed}
	}

	subject, err := ulid.Parse(claims.Subject)
	if err != nil {
		return Identity{}, &TokenError{Reason: TokenMalformed, Err: err}
	}

	return Identity{
		Subject:  subject,
		Email:    claims.Email,
		Username: claims.Username,
	}, nil
}

func classifyTokenError(err error) *TokenError {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return &TokenError{Reason: TokenExpired, Err: err}
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return &TokenError{Reason: TokenSignatureInvalid, Err: err}
	default:
		return &TokenError{Reason: TokenMalformed, Err: err}
	}
}

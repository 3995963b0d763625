// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"strings"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"

	"github.com/inkwell/inkwell/pkg/errutil"
)

// MinPasswordLength is the minimum length of a new password, in characters.
const MinPasswordLength = 8

const tracerName = "github.com/inkwell/inkwell/internal/auth"

// TokenIssuer mints session tokens.
type TokenIssuer interface {
	Issue(id Identity) (string, error)
}

// TokenVerifier checks session tokens. Errors are *TokenError.
type TokenVerifier interface {
	Verify(token string) (Identity, error)
}

// OutcomeRecorder receives one call per finished Service operation.
// outcome is "ok" or the lowercase failure kind.
type OutcomeRecorder interface {
	RecordAuthOutcome(operation, outcome string)
}

// RegisterInput is the registration payload.
type RegisterInput struct {
	Email    string  `json:"email"`
	Username string  `json:"username"`
	Password string  `json:"password"`
	Bio      *string `json:"bio,omitempty"`
	Image    *string `json:"image,omitempty"`
}

// LoginInput is the login payload.
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ProfileInput carries optional profile changes.
type ProfileInput struct {
	Username *string `json:"username,omitempty"`
	Bio      *string `json:"bio,omitempty"`
}

// PasswordInput is the password change payload.
type PasswordInput struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// Service handles registration, login and account mutation.
type Service struct {
	users     UserRepository
	hasher    PasswordHasher
	tokens    TokenIssuer
	logger    *slog.Logger
	recorder  OutcomeRecorder
	work      *semaphore.Weighted
	tracer    trace.Tracer
	dummyHash string
}

// ServiceOption configures a Service.
type ServiceOption func(*Service) error

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) error {
		if logger == nil {
			return oops.Code("AUTH_INVALID_CONFIG").Errorf("logger is required")
		}
		s.logger = logger
		return nil
	}
}

// WithRecorder sets the operation outcome recorder.
func WithRecorder(r OutcomeRecorder) ServiceOption {
	return func(s *Service) error {
		s.recorder = r
		return nil
	}
}

// WithHashConcurrency bounds how many hash or verify calls run at once.
func WithHashConcurrency(n int) ServiceOption {
	return func(s *Service) error {
		if n < 1 {
			return oops.Code("AUTH_INVALID_CONFIG").
				With("hash_concurrency", n).
				Errorf("hash concurrency must be positive")
		}
		s.work = semaphore.NewWeighted(int64(n))
		return nil
	}
}

// NewService creates a Service.
func NewService(users UserRepository, hasher PasswordHasher, tokens TokenIssuer, opts ...ServiceOption) (*Service, error) {
	if users == nil {
		return nil, oops.Code("AUTH_INVALID_CONFIG").Errorf("users repository is required")
	}
	if hasher == nil {
		return nil, oops.Code("AUTH_INVALID_CONFIG").Errorf("password hasher is required")
	}
	if tokens == nil {
		return nil, oops.Code("AUTH_INVALID_CONFIG").Errorf("token issuer is required")
	}

	s := &Service{
		users:  users,
		hasher: hasher,
		tokens: tokens,
		logger: slog.Default(),
		work:   semaphore.NewWeighted(int64(runtime.GOMAXPROCS(0))),
		tracer: otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	// Unknown emails are verified against this hash so that login takes
	// the same time whether or not the account exists.
	dummy, err := hasher.Hash("inkwell-timing-equalizer")
	if err != nil {
		return nil, oops.Code("AUTH_INVALID_CONFIG").
			With("operation", "hash dummy password").
			Wrap(err)
	}
	s.dummyHash = dummy

	return s, nil
}

// Register creates an account and returns its profile with a fresh token.
func (s *Service) Register(ctx context.Context, in RegisterInput) (_ *Profile, err error) {
	ctx, span := s.start(ctx, "register")
	defer func() { s.finish(span, "register", err) }()

	email := strings.TrimSpace(in.Email)
	username := strings.TrimSpace(in.Username)
	password := strings.TrimSpace(in.Password)

	fields := FieldErrors{}
	if email == "" {
		fields.Add("email", MsgBlank)
	}
	if username == "" {
		fields.Add("username", MsgBlank)
	}
	if password == "" {
		fields.Add("password", MsgBlank)
	}
	if len(fields) > 0 {
		return nil, newError(KindValidation, fields)
	}

	if err := s.checkUniqueness(ctx, email, username); err != nil {
		return nil, err
	}

	hash, err := s.hash(ctx, password)
	if err != nil {
		return nil, err
	}

	user, err := NewUser(email, username, hash)
	if err != nil {
		return nil, s.unexpected(ctx, "build user", err)
	}
	user.Bio = nonBlank(in.Bio)
	user.Image = nonBlank(in.Image)

	if err := s.users.Create(ctx, user); err != nil {
		return nil, s.storeError(ctx, "create user", err)
	}

	s.logger.InfoContext(ctx, "user registered", "user_id", user.ID.String())
	return s.profile(ctx, user)
}

// checkUniqueness looks up email and username independently and reports
// every collision in one Conflict.
func (s *Service) checkUniqueness(ctx context.Context, email, username string) error {
	fields := FieldErrors{}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		fields.Add("email", MsgTaken)
	} else if !errors.Is(err, ErrNotFound) {
		return s.unexpected(ctx, "check email uniqueness", err)
	}

	if _, err := s.users.GetByUsername(ctx, username); err == nil {
		fields.Add("username", MsgTaken)
	} else if !errors.Is(err, ErrNotFound) {
		return s.unexpected(ctx, "check username uniqueness", err)
	}

	if len(fields) > 0 {
		return newError(KindConflict, fields)
	}
	return nil
}

// Login verifies credentials and returns the profile with a fresh token.
// An unknown email and a wrong password produce the same error.
func (s *Service) Login(ctx context.Context, in LoginInput) (_ *Profile, err error) {
	ctx, span := s.start(ctx, "login")
	defer func() { s.finish(span, "login", err) }()

	email := strings.TrimSpace(in.Email)
	password := strings.TrimSpace(in.Password)

	fields := FieldErrors{}
	if email == "" {
		fields.Add("email", MsgBlank)
	}
	if password == "" {
		fields.Add("password", MsgBlank)
	}
	if len(fields) > 0 {
		return nil, newError(KindValidation, fields)
	}

	user, lookupErr := s.users.GetByEmail(ctx, email)
	targetHash := s.dummyHash
	if lookupErr == nil {
		targetHash = user.PasswordHash
	} else if !errors.Is(lookupErr, ErrNotFound) {
		return nil, s.unexpected(ctx, "get user by email", lookupErr)
	}

	// Always verify so the response time does not reveal whether the
	// email exists.
	match, err := s.verify(ctx, password, targetHash)
	if err != nil {
		return nil, s.unexpected(ctx, "verify password", err)
	}
	if lookupErr != nil || !match {
		return nil, fieldError(KindInvalidCredentials, "email or password", MsgInvalid)
	}

	if s.hasher.NeedsUpgrade(user.PasswordHash) {
		s.upgradeHash(ctx, user, password)
	}

	return s.profile(ctx, user)
}

// upgradeHash rehashes with the configured algorithm. Failures are logged
// and never fail the login.
func (s *Service) upgradeHash(ctx context.Context, user *User, password string) {
	hash, err := s.hash(ctx, password)
	if err != nil {
		s.logger.WarnContext(ctx, "password rehash failed", "user_id", user.ID.String(), "error", err)
		return
	}
	if _, err := s.users.Update(ctx, user.ID, UserUpdate{PasswordHash: &hash}); err != nil {
		s.logger.WarnContext(ctx, "password rehash not persisted", "user_id", user.ID.String(), "error", err)
		return
	}
	user.PasswordHash = hash
}

// Current returns the profile of subject with a fresh token.
func (s *Service) Current(ctx context.Context, subject ulid.ULID) (_ *Profile, err error) {
	ctx, span := s.start(ctx, "current")
	defer func() { s.finish(span, "current", err) }()

	user, err := s.users.GetByID(ctx, subject)
	if err != nil {
		return nil, s.storeError(ctx, "get user by id", err)
	}
	return s.profile(ctx, user)
}

// UpdateProfile applies the provided non-blank username and bio.
func (s *Service) UpdateProfile(ctx context.Context, subject ulid.ULID, in ProfileInput) (_ *Profile, err error) {
	ctx, span := s.start(ctx, "update_profile")
	defer func() { s.finish(span, "update_profile", err) }()

	upd := UserUpdate{
		Username: nonBlank(in.Username),
		Bio:      nonBlank(in.Bio),
	}

	var user *User
	if upd.IsEmpty() {
		user, err = s.users.GetByID(ctx, subject)
	} else {
		user, err = s.users.Update(ctx, subject, upd)
	}
	if err != nil {
		return nil, s.storeError(ctx, "update profile", err)
	}
	return s.profile(ctx, user)
}

// UpdatePassword replaces the password after checking the current one.
// Nothing is written unless every check passes.
func (s *Service) UpdatePassword(ctx context.Context, subject ulid.ULID, in PasswordInput) (_ *Profile, err error) {
	ctx, span := s.start(ctx, "update_password")
	defer func() { s.finish(span, "update_password", err) }()

	current := strings.TrimSpace(in.CurrentPassword)
	next := strings.TrimSpace(in.NewPassword)

	fields := FieldErrors{}
	if current == "" {
		fields.Add("currentPassword", MsgBlank)
	}
	if next == "" {
		fields.Add("newPassword", MsgBlank)
	} else if utf8.RuneCountInString(next) < MinPasswordLength {
		fields.Add("newPassword", "is too short (minimum is 8 characters)")
	}
	if len(fields) > 0 {
		return nil, newError(KindValidation, fields)
	}

	user, err := s.users.GetByID(ctx, subject)
	if err != nil {
		return nil, s.storeError(ctx, "get user by id", err)
	}

	match, err := s.verify(ctx, current, user.PasswordHash)
	if err != nil {
		return nil, s.unexpected(ctx, "verify password", err)
	}
	if !match {
		return nil, fieldError(KindInvalidCredentials, "current password", MsgInvalid)
	}

	hash, err := s.hash(ctx, next)
	if err != nil {
		return nil, err
	}

	user, err = s.users.Update(ctx, subject, UserUpdate{PasswordHash: &hash})
	if err != nil {
		return nil, s.storeError(ctx, "update password", err)
	}

	s.logger.InfoContext(ctx, "password changed", "user_id", subject.String())
	return s.profile(ctx, user)
}

// UpdateImage sets the profile image URL.
func (s *Service) UpdateImage(ctx context.Context, subject ulid.ULID, image string) (_ *Profile, err error) {
	ctx, span := s.start(ctx, "update_image")
	defer func() { s.finish(span, "update_image", err) }()

	image = strings.TrimSpace(image)
	if image == "" {
		return nil, fieldError(KindValidation, "image", MsgBlank)
	}

	user, err := s.users.Update(ctx, subject, UserUpdate{Image: &image})
	if err != nil {
		return nil, s.storeError(ctx, "update image", err)
	}
	return s.profile(ctx, user)
}

// DeleteImage clears the profile image.
func (s *Service) DeleteImage(ctx context.Context, subject ulid.ULID) (_ *Profile, err error) {
	ctx, span := s.start(ctx, "delete_image")
	defer func() { s.finish(span, "delete_image", err) }()

	user, err := s.users.Update(ctx, subject, UserUpdate{ClearImage: true})
	if err != nil {
		return nil, s.storeError(ctx, "delete image", err)
	}
	return s.profile(ctx, user)
}

// DeleteAccount removes the account permanently.
func (s *Service) DeleteAccount(ctx context.Context, subject ulid.ULID) (err error) {
	ctx, span := s.start(ctx, "delete_account")
	defer func() { s.finish(span, "delete_account", err) }()

	if _, err := s.users.GetByID(ctx, subject); err != nil {
		return s.storeError(ctx, "get user by id", err)
	}
	if err := s.users.Delete(ctx, subject); err != nil {
		return s.storeError(ctx, "delete user", err)
	}

	s.logger.InfoContext(ctx, "account deleted", "user_id", subject.String())
	return nil
}

// --- helpers below ---

func (s *Service) profile(ctx context.Context, user *User) (*Profile, error) {
	token, err := s.tokens.Issue(user.Identity())
	if err != nil {
		return nil, s.unexpected(ctx, "issue token", err)
	}
	return &Profile{
		Email:    user.Email,
		Username: user.Username,
		Bio:      user.Bio,
		Image:    user.Image,
		Token:    token,
	}, nil
}

func (s *Service) hash(ctx context.Context, password string) (string, error) {
	if err := s.work.Acquire(ctx, 1); err != nil {
		return "", s.unexpected(ctx, "wait for hash slot", err)
	}
	defer s.work.Release(1)

	hash, err := s.hasher.Hash(password)
	if errors.Is(err, ErrPasswordTooLong) {
		return "", fieldError(KindValidation, "password", "is too long (maximum is 72 bytes)")
	}
	if err != nil {
		return "", s.unexpected(ctx, "hash password", err)
	}
	return hash, nil
}

func (s *Service) verify(ctx context.Context, password, hash string) (bool, error) {
	if err := s.work.Acquire(ctx, 1); err != nil {
		return false, err //nolint:wrapcheck // callers wrap as unexpected
	}
	defer s.work.Release(1)
	return s.hasher.Verify(password, hash), nil
}

// storeError maps repository failures onto service kinds.
func (s *Service) storeError(ctx context.Context, operation string, err error) error {
	var conflict *ConflictError
	switch {
	case errors.As(err, &conflict):
		return fieldError(KindConflict, conflict.Field, MsgTaken)
	case errors.Is(err, ErrConflict):
		return fieldError(KindConflict, "user", MsgTaken)
	case errors.Is(err, ErrNotFound):
		return fieldError(KindNotFound, "user", MsgNotFound)
	default:
		return s.unexpected(ctx, operation, err)
	}
}

func (s *Service) unexpected(ctx context.Context, operation string, err error) error {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr
	}
	wrapped := oops.Code("AUTH_UNEXPECTED").With("operation", operation).Wrap(err)
	errutil.LogErrorContext(ctx, s.logger, "credential operation failed", wrapped)
	return unexpected(wrapped)
}

func (s *Service) start(ctx context.Context, operation string) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, "auth."+operation,
		trace.WithAttributes(attribute.String("auth.operation", operation)))
}

func (s *Service) finish(span trace.Span, operation string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = strings.ToLower(string(KindOf(err)))
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
	}
	span.End()
	if s.recorder != nil {
		s.recorder.RecordAuthOutcome(operation, outcome)
	}
}

func nonBlank(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	if t == "" {
		return nil
	}
	return &t
}

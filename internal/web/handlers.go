// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

package web

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/oklog/ulid/v2"

	"github.com/inkwell/inkwell/internal/auth"
)

// CredentialService is the account API the handlers call.
type CredentialService interface {
	Register(ctx context.Context, in auth.RegisterInput) (*auth.Profile, error)
	Login(ctx context.Context, in auth.LoginInput) (*auth.Profile, error)
	Current(ctx context.Context, subject ulid.ULID) (*auth.Profile, error)
	UpdateProfile(ctx context.Context, subject ulid.ULID, in auth.ProfileInput) (*auth.Profile, error)
	UpdatePassword(ctx context.Context, subject ulid.ULID, in auth.PasswordInput) (*auth.Profile, error)
	UpdateImage(ctx context.Context, subject ulid.ULID, image string) (*auth.Profile, error)
	DeleteImage(ctx context.Context, subject ulid.ULID) (*auth.Profile, error)
	DeleteAccount(ctx context.Context, subject ulid.ULID) error
}

// Handlers adapts CredentialService to HTTP.
type Handlers struct {
	svc    CredentialService
	logger *slog.Logger
}

// NewHandlers creates the account handlers.
func NewHandlers(svc CredentialService, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{svc: svc, logger: logger}
}

type imageInput struct {
	Image string `json:"image"`
}

type statusResponse struct {
	Status string `json:"status"`
	User   string `json:"user,omitempty"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// Root reports that the API is up, and who is calling when a token was
// presented.
func (h *Handlers) Root(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{Status: "API is running on /api"}
	if id, ok := auth.IdentityFromContext(r.Context()); ok {
		resp.User = id.Username
	}
	writeJSON(w, http.StatusOK, resp)
}

// Register handles POST /api/users.
func (h *Handlers) Register(w http.ResponseWriter, r *http.Request) {
	in, err := decodeUser[auth.RegisterInput](r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK)(h.svc.Register(r.Context(), in))
}

// Login handles POST /api/users/login.
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	in, err := decodeUser[auth.LoginInput](r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK)(h.svc.Login(r.Context(), in))
}

// Current handles GET /api/user.
func (h *Handlers) Current(w http.ResponseWriter, r *http.Request) {
	subject, ok := h.subject(w, r)
	if !ok {
		return
	}
	h.respond(w, r, http.StatusOK)(h.svc.Current(r.Context(), subject))
}

// UpdateProfile handles PUT /api/user.
func (h *Handlers) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	subject, ok := h.subject(w, r)
	if !ok {
		return
	}
	in, err := decodeUser[auth.ProfileInput](r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK)(h.svc.UpdateProfile(r.Context(), subject, in))
}

// UpdatePassword handles PUT /api/user/password.
func (h *Handlers) UpdatePassword(w http.ResponseWriter, r *http.Request) {
	subject, ok := h.subject(w, r)
	if !ok {
		return
	}
	in, err := decodeUser[auth.PasswordInput](r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK)(h.svc.UpdatePassword(r.Context(), subject, in))
}

// UpdateImage handles PUT /api/user/image.
func (h *Handlers) UpdateImage(w http.ResponseWriter, r *http.Request) {
	subject, ok := h.subject(w, r)
	if !ok {
		return
	}
	in, err := decodeUser[imageInput](r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK)(h.svc.UpdateImage(r.Context(), subject, in.Image))
}

// DeleteImage handles DELETE /api/user/image.
func (h *Handlers) DeleteImage(w http.ResponseWriter, r *http.Request) {
	subject, ok := h.subject(w, r)
	if !ok {
		return
	}
	h.respond(w, r, http.StatusOK)(h.svc.DeleteImage(r.Context(), subject))
}

// DeleteAccount handles DELETE /api/user.
func (h *Handlers) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	subject, ok := h.subject(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteAccount(r.Context(), subject); err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse{Message: "User successfully deleted"})
}

// subject reads the identity the gate attached. Handlers behind the
// Required gate always have one; a missing identity is rendered as 401.
func (h *Handlers) subject(w http.ResponseWriter, r *http.Request) (ulid.ULID, bool) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		h.fail(w, r, unauthenticated())
		return ulid.ULID{}, false
	}
	return id.Subject, true
}

func (h *Handlers) respond(w http.ResponseWriter, r *http.Request, status int) func(*auth.Profile, error) {
	return func(p *auth.Profile, err error) {
		if err != nil {
			h.fail(w, r, err)
			return
		}
		writeJSON(w, status, userEnvelope[*auth.Profile]{User: p})
	}
}

func (h *Handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	writeError(w, r, h.logger, err)
}

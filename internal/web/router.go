// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

// Package web exposes the credential service over HTTP and hosts the
// authentication gate.
package web

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/samber/oops"
)

// RouterOptions configures NewRouter.
type RouterOptions struct {
	Service     CredentialService
	Gate        *Gate
	CORSOrigins []string
	Observer    RequestObserver
	Logger      *slog.Logger
}

// NewRouter builds the API handler.
//
//	GET    /                   optional gate
//	POST   /api/users          public
//	POST   /api/users/login    public
//	GET    /api/user           required gate
//	PUT    /api/user           required gate
//	DELETE /api/user           required gate
//	PUT    /api/user/password  required gate
//	PUT    /api/user/image     required gate
//	DELETE /api/user/image     required gate
func NewRouter(opts RouterOptions) (http.Handler, error) {
	if opts.Service == nil {
		return nil, oops.Code("HTTP_INVALID_CONFIG").Errorf("credential service is required")
	}
	if opts.Gate == nil {
		return nil, oops.Code("HTTP_INVALID_CONFIG").Errorf("gate is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	h := NewHandlers(opts.Service, logger)
	r := chi.NewRouter()

	r.Use(RequestID)
	r.Use(Instrument(logger, opts.Observer))
	r.Use(middleware.Recoverer)
	// go-chi/cors treats an empty origin list as allow-all.
	if origins := cleanOrigins(opts.CORSOrigins); len(origins) > 0 {
		r.Use(cors.Handler(corsOptions(origins)))
	}

	r.With(opts.Gate.Optional).Get("/", h.Root)

	r.Route("/api", func(r chi.Router) {
		r.Use(opts.Gate.Required)

		r.Post("/users", h.Register)
		r.Post("/users/login", h.Login)

		r.Get("/user", h.Current)
		r.Put("/user", h.UpdateProfile)
		r.Delete("/user", h.DeleteAccount)
		r.Put("/user/password", h.UpdatePassword)
		r.Put("/user/image", h.UpdateImage)
		r.Delete("/user/image", h.DeleteImage)
	})

	return r, nil
}

func cleanOrigins(origins []string) []string {
	cleaned := make([]string, 0, len(origins))
	for _, o := range origins {
		if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" {
			cleaned = append(cleaned, o)
		}
	}
	return cleaned
}

func corsOptions(origins []string) cors.Options {
	return cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Requested-With", RequestIDHeader},
		ExposedHeaders:   []string{"Content-Range", "X-Content-Range", RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}
}

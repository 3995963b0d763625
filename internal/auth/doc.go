// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

// Package auth provides the credential and identity core of Inkwell.
//
// # Domain Types
//
// A User is created with NewUser, which validates the email, username and
// password hash. Repository implementations receive pre-validated users.
// The password hash never leaves this package in a client-visible form;
// clients only ever see a Profile.
//
// # Tokens
//
// TokenService issues HS256 tokens with a fixed 60 day lifetime and
// verifies them against the same secret. Verification failures are always
// a *TokenError with a Reason.
//
// # Services
//
// Service coordinates registration, login and account mutation. Every
// failure it returns is an *Error tagged with a Kind, which the HTTP layer
// maps onto a status code.
package auth

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Inkwell Contributors

// Package mocks provides testify mocks for the web interfaces.
package mocks

import (
	context "context"

	auth "github.com/inkwell/inkwell/internal/auth"
	mock "github.com/stretchr/testify/mock"

	ulid "github.com/oklog/ulid/v2"
)

// MockCredentialService is a mock type for the CredentialService type
type MockCredentialService struct {
	mock.Mock
}

func profileResult(ret mock.Arguments, method string) (*auth.Profile, error) {
	if len(ret) == 0 {
		panic("no return value specified for " + method)
	}
	var r0 *auth.Profile
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*auth.Profile)
	}
	return r0, ret.Error(1)
}

// Register provides a mock function with given fields: ctx, in
func (_m *MockCredentialService) Register(ctx context.Context, in auth.RegisterInput) (*auth.Profile, error) {
	return profileResult(_m.Called(ctx, in), "Register")
}

// Login provides a mock function with given fields: ctx, in
func (_m *MockCredentialService) Login(ctx context.Context, in auth.LoginInput) (*auth.Profile, error) {
	return profileResult(_m.Called(ctx, in), "Login")
}

// Current provides a mock function with given fields: ctx, subject
func (_m *MockCredentialService) Current(ctx context.Context, subject ulid.ULID) (*auth.Profile, error) {
	return profileResult(_m.Called(ctx, subject), "Current")
}

// UpdateProfile provides a mock function with given fields: ctx, subject, in
func (_m *MockCredentialService) UpdateProfile(ctx context.Context, subject ulid.ULID, in auth.ProfileInput) (*auth.Profile, error) {
	return profileResult(_m.Called(ctx, subject, in), "UpdateProfile")
}

// UpdatePassword provides a mock function with given fields: ctx, subject, in
func (_m *MockCredentialService) UpdatePassword(ctx context.Context, subject ulid.ULID, in auth.PasswordInput) (*auth.Profile, error) {
	return profileResult(_m.Called(ctx, subject, in), "UpdatePassword")
}

// UpdateImage provides a mock function with given fields: ctx, subject, image
func (_m *MockCredentialService) UpdateImage(ctx context.Context, subject ulid.ULID, image string) (*auth.Profile, error) {
	return profileResult(_m.Called(ctx, subject, image), "UpdateImage")
}

// DeleteImage provides a mock function with given fields: ctx, subject
func (_m *MockCredentialService) DeleteImage(ctx context.Context, subject ulid.ULID) (*auth.Profile, error) {
	return profileResult(_m.Called(ctx, subject), "DeleteImage")
}

// DeleteAccount provides a mock function with given fields: ctx, subject
func (_m *MockCredentialService) DeleteAccount(ctx context.Context, subject ulid.ULID) error {
	ret := _m.Called(ctx, subject)

	if len(ret) == 0 {
		panic("no return value specified for DeleteAccount")
	}

	return ret.Error(0)
}

// NewMockCredentialService creates a new instance of MockCredentialService. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
// The first argument is typically a *testing.T value.
func NewMockCredentialService(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockCredentialService {
	m := &MockCredentialService{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Riddlegate Contributors

// Package mocks provides testify mocks for the auth package interfaces.
package mocks

import (
	"context"
	"time"

	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/mock"

	"github.com/riddlegate/riddlegate/internal/access"
	"github.com/riddlegate/riddlegate/internal/auth"
)

// UserRepository is a mock implementation of auth.UserRepository.
type UserRepository struct {
	mock.Mock
}

var _ auth.UserRepository = (*UserRepository)(nil)

// NewUserRepository creates a new UserRepository mock that asserts its
// expectations when the test finishes.
func NewUserRepository(t interface {
	mock.TestingT
	Cleanup(func())
}) *UserRepository {
	m := &UserRepository{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *UserRepository) Create(ctx context.Context, user *auth.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *UserRepository) GetByUsername(ctx context.Context, username string) (*auth.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.User), args.Error(1)
}

func (m *UserRepository) GetForActivation(ctx context.Context, username, pin string) (*auth.User, error) {
	args := m.Called(ctx, username, pin)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.User), args.Error(1)
}

func (m *UserRepository) Activate(ctx context.Context, user *auth.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *UserRepository) SetAwaitingSecondFactor(ctx context.Context, id ulid.ULID, awaiting bool) error {
	args := m.Called(ctx, id, awaiting)
	return args.Error(0)
}

func (m *UserRepository) RecordLogin(ctx context.Context, id ulid.ULID, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

func (m *UserRepository) PutChallenge(ctx context.Context, id ulid.ULID, challenge *auth.Challenge) error {
	args := m.Called(ctx, id, challenge)
	return args.Error(0)
}

func (m *UserRepository) TakeChallenge(ctx context.Context, id ulid.ULID, kind auth.ChallengeKind) (*auth.Challenge, error) {
	args := m.Called(ctx, id, kind)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.Challenge), args.Error(1)
}

func (m *UserRepository) SaveHardwareCredentials(ctx context.Context, id ulid.ULID, creds []webauthn.Credential) error {
	args := m.Called(ctx, id, creds)
	return args.Error(0)
}

func (m *UserRepository) EnableSecondFactor(ctx context.Context, id ulid.ULID, kind auth.SecondFactor) error {
	args := m.Called(ctx, id, kind)
	return args.Error(0)
}

func (m *UserRepository) UpdateProgress(ctx context.Context, id ulid.ULID, progress auth.Progress) error {
	args := m.Called(ctx, id, progress)
	return args.Error(0)
}

func (m *UserRepository) UpdateRole(ctx context.Context, id ulid.ULID, role access.Role) error {
	args := m.Called(ctx, id, role)
	return args.Error(0)
}

func (m *UserRepository) RewriteScore(ctx context.Context, id ulid.ULID, score uint32) error {
	args := m.Called(ctx, id, score)
	return args.Error(0)
}

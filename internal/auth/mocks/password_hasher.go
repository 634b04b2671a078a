// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Riddlegate Contributors

package mocks

import (
	"github.com/stretchr/testify/mock"

	"github.com/riddlegate/riddlegate/internal/auth"
)

// PasswordHasher is a mock implementation of auth.PasswordHasher.
type PasswordHasher struct {
	mock.Mock
}

var _ auth.PasswordHasher = (*PasswordHasher)(nil)

// NewPasswordHasher creates a new PasswordHasher mock that asserts its
// expectations when the test finishes.
func NewPasswordHasher(t interface {
	mock.TestingT
	Cleanup(func())
}) *PasswordHasher {
	m := &PasswordHasher{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *PasswordHasher) Hash(password string) (string, error) {
	args := m.Called(password)
	return args.String(0), args.Error(1)
}

func (m *PasswordHasher) Verify(password, hash string) (bool, error) {
	args := m.Called(password, hash)
	return args.Bool(0), args.Error(1)
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Riddlegate Contributors

// Package mocks provides testify mocks for the game package interfaces.
package mocks

import (
	"context"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/mock"

	"github.com/riddlegate/riddlegate/internal/auth"
	"github.com/riddlegate/riddlegate/internal/game"
)

type testingT interface {
	mock.TestingT
	Cleanup(func())
}

// UserStore is a mock implementation of game.UserStore.
type UserStore struct {
	mock.Mock
}

var _ game.UserStore = (*UserStore)(nil)

// NewUserStore creates a new UserStore mock that asserts its expectations
// when the test finishes.
func NewUserStore(t testingT) *UserStore {
	m := &UserStore{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *UserStore) GetByUsername(ctx context.Context, username string) (*auth.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.User), args.Error(1)
}

func (m *UserStore) UpdateProgress(ctx context.Context, id ulid.ULID, progress auth.Progress) error {
	args := m.Called(ctx, id, progress)
	return args.Error(0)
}

// RoomRepository is a mock implementation of game.RoomRepository.
type RoomRepository struct {
	mock.Mock
}

var _ game.RoomRepository = (*RoomRepository)(nil)

// NewRoomRepository creates a new RoomRepository mock that asserts its
// expectations when the test finishes.
func NewRoomRepository(t testingT) *RoomRepository {
	m := &RoomRepository{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *RoomRepository) GetRoom(ctx context.Context, id ulid.ULID) (*game.Room, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*game.Room), args.Error(1)
}

func (m *RoomRepository) EntryRoom(ctx context.Context) (ulid.ULID, error) {
	args := m.Called(ctx)
	return args.Get(0).(ulid.ULID), args.Error(1)
}

func (m *RoomRepository) RoomBehind(ctx context.Context, direction string, riddleID ulid.ULID) (*game.Room, error) {
	args := m.Called(ctx, direction, riddleID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*game.Room), args.Error(1)
}

// RiddleRepository is a mock implementation of game.RiddleRepository.
type RiddleRepository struct {
	mock.Mock
}

var _ game.RiddleRepository = (*RiddleRepository)(nil)

// NewRiddleRepository creates a new RiddleRepository mock that asserts its
// expectations when the test finishes.
func NewRiddleRepository(t testingT) *RiddleRepository {
	m := &RiddleRepository{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *RiddleRepository) GetRiddle(ctx context.Context, id ulid.ULID) (*game.Riddle, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*game.Riddle), args.Error(1)
}

func (m *RiddleRepository) GetRiddleByLevel(ctx context.Context, level uint32) (*game.Riddle, error) {
	args := m.Called(ctx, level)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*game.Riddle), args.Error(1)
}

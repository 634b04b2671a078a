// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Riddlegate Contributors

package postgres_test

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riddlegate/riddlegate/internal/game"
	"github.com/riddlegate/riddlegate/internal/game/postgres"
)

func newMockPool(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func TestRoomRepository_GetRoom(t *testing.T) {
	ctx := context.Background()

	roomID := ulid.Make()
	riddle7 := ulid.Make()
	riddle9 := ulid.Make()

	t.Run("returns the room with doorways in position order", func(t *testing.T) {
		mock := newMockPool(t)
		repo := postgres.NewRoomRepository(mock)

		mock.ExpectQuery(`SELECT id, idx, x, y, entry, exit\s+FROM rooms`).
			WithArgs(roomID.String()).
			WillReturnRows(mock.NewRows([]string{"id", "idx", "x", "y", "entry", "exit"}).
				AddRow(roomID.String(), uint32(1), nil, nil, true, false))
		mock.ExpectQuery(`SELECT direction, riddle_id\s+FROM doorways`).
			WithArgs(roomID.String()).
			WillReturnRows(mock.NewRows([]string{"direction", "riddle_id"}).
				AddRow("north", riddle7.String()).
				AddRow("east", riddle9.String()))

		room, err := repo.GetRoom(ctx, roomID)
		require.NoError(t, err)
		assert.Equal(t, roomID, room.ID)
		assert.True(t, room.Entry)
		require.Len(t, room.Doorways, 2)
		assert.Equal(t, game.Doorway{Direction: "north", RiddleID: riddle7}, room.Doorways[0])
		assert.Equal(t, game.Doorway{Direction: "east", RiddleID: riddle9}, room.Doorways[1])
	})

	t.Run("maps missing rooms to ErrRoomNotFound", func(t *testing.T) {
		mock := newMockPool(t)
		repo := postgres.NewRoomRepository(mock)

		mock.ExpectQuery(`SELECT id, idx, x, y, entry, exit\s+FROM rooms`).
			WithArgs(roomID.String()).
			WillReturnError(pgx.ErrNoRows)

		_, err := repo.GetRoom(ctx, roomID)
		assert.ErrorIs(t, err, game.ErrRoomNotFound)
	})
}

func TestRoomRepository_EntryRoom(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the entry room id", func(t *testing.T) {
		mock := newMockPool(t)
		repo := postgres.NewRoomRepository(mock)

		entry := ulid.Make()
		mock.ExpectQuery(`SELECT id FROM rooms WHERE entry`).
			WillReturnRows(mock.NewRows([]string{"id"}).AddRow(entry.String()))

		got, err := repo.EntryRoom(ctx)
		require.NoError(t, err)
		assert.Equal(t, entry, got)
	})

	t.Run("no entry room is a data fault", func(t *testing.T) {
		mock := newMockPool(t)
		repo := postgres.NewRoomRepository(mock)

		mock.ExpectQuery(`SELECT id FROM rooms WHERE entry`).
			WillReturnError(pgx.ErrNoRows)

		_, err := repo.EntryRoom(ctx)
		assert.ErrorIs(t, err, game.ErrRoomNotFound)
	})
}

func TestRoomRepository_RoomBehind(t *testing.T) {
	ctx := context.Background()

	riddle7 := ulid.Make()
	behindID := ulid.Make()

	t.Run("finds the far side of a doorway", func(t *testing.T) {
		mock := newMockPool(t)
		repo := postgres.NewRoomRepository(mock)

		mock.ExpectQuery(`SELECT r.id, r.idx, r.x, r.y, r.entry, r.exit\s+FROM rooms r`).
			WithArgs("south", riddle7.String()).
			WillReturnRows(mock.NewRows([]string{"id", "idx", "x", "y", "entry", "exit"}).
				AddRow(behindID.String(), uint32(2), nil, nil, false, false))
		mock.ExpectQuery(`SELECT direction, riddle_id\s+FROM doorways`).
			WithArgs(behindID.String()).
			WillReturnRows(mock.NewRows([]string{"direction", "riddle_id"}).
				AddRow("south", riddle7.String()))

		room, err := repo.RoomBehind(ctx, "south", riddle7)
		require.NoError(t, err)
		assert.Equal(t, behindID, room.ID)
	})

	t.Run("maps a missing far side to ErrRoomBehindNotFound", func(t *testing.T) {
		mock := newMockPool(t)
		repo := postgres.NewRoomRepository(mock)

		mock.ExpectQuery(`SELECT r.id, r.idx, r.x, r.y, r.entry, r.exit\s+FROM rooms r`).
			WithArgs("south", riddle7.String()).
			WillReturnError(pgx.ErrNoRows)

		_, err := repo.RoomBehind(ctx, "south", riddle7)
		assert.ErrorIs(t, err, game.ErrRoomBehindNotFound)
	})
}

func TestRiddleRepository_GetRiddle(t *testing.T) {
	ctx := context.Background()
	riddleID := ulid.Make()

	t.Run("returns the stored riddle", func(t *testing.T) {
		mock := newMockPool(t)
		repo := postgres.NewRiddleRepository(mock)

		mock.ExpectQuery(`SELECT id, difficulty, level, solution, ignore_case, task, debriefing, credits, files\s+FROM riddles\s+WHERE id`).
			WithArgs(riddleID.String()).
			WillReturnRows(mock.NewRows([]string{
				"id", "difficulty", "level", "solution", "ignore_case",
				"task", "debriefing", "credits", "files",
			}).AddRow(
				riddleID.String(), uint32(50), uint32(1), "thread", true,
				"find the way out", "you found it", "daedalus", []string{"map.png"},
			))

		riddle, err := repo.GetRiddle(ctx, riddleID)
		require.NoError(t, err)
		assert.Equal(t, riddleID, riddle.ID)
		assert.Equal(t, uint32(50), riddle.Difficulty)
		assert.True(t, riddle.IgnoreCase)
		assert.Equal(t, []string{"map.png"}, riddle.Files)
	})

	t.Run("maps missing riddles to ErrRiddleNotFound", func(t *testing.T) {
		mock := newMockPool(t)
		repo := postgres.NewRiddleRepository(mock)

		mock.ExpectQuery(`SELECT id, difficulty, level, solution, ignore_case, task, debriefing, credits, files\s+FROM riddles\s+WHERE id`).
			WithArgs(riddleID.String()).
			WillReturnError(pgx.ErrNoRows)

		_, err := repo.GetRiddle(ctx, riddleID)
		assert.ErrorIs(t, err, game.ErrRiddleNotFound)
	})
}

func TestRiddleRepository_GetRiddleByLevel(t *testing.T) {
	ctx := context.Background()

	mock := newMockPool(t)
	repo := postgres.NewRiddleRepository(mock)

	mock.ExpectQuery(`FROM riddles\s+WHERE level`).
		WithArgs(uint32(3)).
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetRiddleByLevel(ctx, 3)
	assert.ErrorIs(t, err, game.ErrRiddleNotFound)
}

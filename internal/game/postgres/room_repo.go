// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Riddlegate Contributors

// Package postgres implements game repositories using PostgreSQL.
package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/riddlegate/riddlegate/internal/game"
)

// pool is the subset of pgxpool.Pool the repositories need. pgxmock
// satisfies it, so unit tests run without a database.
type pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// RoomRepository implements game.RoomRepository using PostgreSQL.
// Doorways live in their own table ordered by position, preserving the
// list order the tie-break rule depends on.
type RoomRepository struct {
	pool pool
}

// NewRoomRepository creates a new RoomRepository.
func NewRoomRepository(pool pool) *RoomRepository {
	return &RoomRepository{pool: pool}
}

// GetRoom retrieves a room and its doorways by id.
func (r *RoomRepository) GetRoom(ctx context.Context, id ulid.ULID) (*game.Room, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, idx, x, y, entry, exit
		FROM rooms
		WHERE id = $1
	`, id.String())

	room, err := r.scanRoom(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("ROOM_NOT_FOUND").
			With("id", id.String()).
			Wrap(game.ErrRoomNotFound)
	}
	if err != nil {
		return nil, oops.Code("ROOM_GET_FAILED").
			With("operation", "get room").
			With("id", id.String()).
			Wrap(err)
	}

	if err := r.loadDoorways(ctx, room); err != nil {
		return nil, err
	}
	return room, nil
}

// EntryRoom retrieves the id of the single room flagged as entry.
func (r *RoomRepository) EntryRoom(ctx context.Context) (ulid.ULID, error) {
	var idStr string
	err := r.pool.QueryRow(ctx, `
		SELECT id FROM rooms WHERE entry LIMIT 1
	`).Scan(&idStr)
	if errors.Is(err, pgx.ErrNoRows) {
		return ulid.ULID{}, oops.Code("ROOM_NOT_FOUND").
			With("operation", "get entry room").
			Wrap(game.ErrRoomNotFound)
	}
	if err != nil {
		return ulid.ULID{}, oops.Code("ROOM_GET_FAILED").
			With("operation", "get entry room").
			Wrap(err)
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return ulid.ULID{}, oops.Code("ROOM_INVALID_ID").
			With("id", idStr).
			Wrap(err)
	}
	return id, nil
}

// RoomBehind retrieves the room carrying a doorway with the given
// direction label and riddle id.
func (r *RoomRepository) RoomBehind(ctx context.Context, direction string, riddleID ulid.ULID) (*game.Room, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT r.id, r.idx, r.x, r.y, r.entry, r.exit
		FROM rooms r
		JOIN doorways d ON d.room_id = r.id
		WHERE d.direction = $1 AND d.riddle_id = $2
		LIMIT 1
	`, direction, riddleID.String())

	room, err := r.scanRoom(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("ROOM_BEHIND_NOT_FOUND").
			With("direction", direction).
			With("riddle_id", riddleID.String()).
			Wrap(game.ErrRoomBehindNotFound)
	}
	if err != nil {
		return nil, oops.Code("ROOM_GET_FAILED").
			With("operation", "get room behind").
			With("direction", direction).
			With("riddle_id", riddleID.String()).
			Wrap(err)
	}

	if err := r.loadDoorways(ctx, room); err != nil {
		return nil, err
	}
	return room, nil
}

// loadDoorways fills the room's doorway list in position order.
func (r *RoomRepository) loadDoorways(ctx context.Context, room *game.Room) error {
	rows, err := r.pool.Query(ctx, `
		SELECT direction, riddle_id
		FROM doorways
		WHERE room_id = $1
		ORDER BY position
	`, room.ID.String())
	if err != nil {
		return oops.Code("ROOM_GET_FAILED").
			With("operation", "load doorways").
			With("id", room.ID.String()).
			Wrap(err)
	}
	defer rows.Close()

	for rows.Next() {
		var direction, riddleStr string
		if err := rows.Scan(&direction, &riddleStr); err != nil {
			return oops.Code("ROOM_SCAN_FAILED").
				With("operation", "scan doorway").
				Wrap(err)
		}
		riddleID, err := ulid.Parse(riddleStr)
		if err != nil {
			return oops.Code("ROOM_INVALID_RIDDLE_ID").
				With("riddle_id", riddleStr).
				Wrap(err)
		}
		room.Doorways = append(room.Doorways, game.Doorway{
			Direction: direction,
			RiddleID:  riddleID,
		})
	}
	if err := rows.Err(); err != nil {
		return oops.Code("ROOM_GET_FAILED").
			With("operation", "iterate doorways").
			Wrap(err)
	}
	return nil
}

// scanRoom scans a single row into a Room without its doorways.
// Callers are responsible for handling pgx.ErrNoRows.
func (r *RoomRepository) scanRoom(row pgx.Row) (*game.Room, error) {
	var (
		idStr string
		idx   uint32
		x, y  *int32
		entry bool
		exit  bool
	)

	err := row.Scan(&idStr, &idx, &x, &y, &entry, &exit)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err //nolint:wrapcheck // Callers wrap with context-specific info
		}
		return nil, oops.Code("ROOM_SCAN_FAILED").
			With("operation", "scan room").
			Wrap(err)
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("ROOM_INVALID_ID").
			With("id", idStr).
			Wrap(err)
	}

	return &game.Room{
		ID:    id,
		Index: idx,
		X:     x,
		Y:     y,
		Entry: entry,
		Exit:  exit,
	}, nil
}

// Compile-time interface check.
var _ game.RoomRepository = (*RoomRepository)(nil)

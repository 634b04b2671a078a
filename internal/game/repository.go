// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Riddlegate Contributors

package game

import (
	"context"

	"github.com/oklog/ulid/v2"
)

// RoomRepository manages room persistence.
type RoomRepository interface {
	// GetRoom retrieves a room by id. Returns ErrRoomNotFound when the id
	// resolves to nothing.
	GetRoom(ctx context.Context, id ulid.ULID) (*Room, error)

	// EntryRoom retrieves the single room flagged as the game's entry
	// point.
	EntryRoom(ctx context.Context) (ulid.ULID, error)

	// RoomBehind retrieves the room carrying a doorway with the given
	// direction label and riddle id, the far side of a solved doorway.
	// Returns ErrRoomBehindNotFound when no room matches.
	RoomBehind(ctx context.Context, direction string, riddleID ulid.ULID) (*Room, error)
}

// RiddleRepository manages riddle persistence.
type RiddleRepository interface {
	// GetRiddle retrieves a riddle by id. Returns ErrRiddleNotFound when
	// the id resolves to nothing.
	GetRiddle(ctx context.Context, id ulid.ULID) (*Riddle, error)

	// GetRiddleByLevel retrieves the riddle that gates the given level.
	GetRiddleByLevel(ctx context.Context, level uint32) (*Riddle, error)
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Riddlegate Contributors

package game

import "errors"

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

var (
	// ErrUserNotInAnyRoom indicates a user record without a current room.
	// Activation always assigns the entry room, so this marks corrupt
	// state rather than a user mistake.
	ErrUserNotInAnyRoom = errors.New("user is not in any room")
	// ErrRoomNotFound indicates the user's current room id resolves to
	// nothing.
	ErrRoomNotFound = errors.New("room not found")
	// ErrDoorwayNotAccessible indicates the requested riddle does not gate
	// any doorway of the user's current room. Deliberately the same shape
	// whether or not the riddle exists elsewhere in the graph.
	ErrDoorwayNotAccessible = errors.New("doorway not accessible")
	// ErrRiddleNotFound indicates a doorway references a missing riddle.
	ErrRiddleNotFound = errors.New("riddle not found")
	// ErrRiddleNotSolved indicates a submitted solution did not match.
	ErrRiddleNotSolved = errors.New("riddle not solved")
	// ErrRoomBehindNotFound indicates no room carries the opposite
	// direction label for the solved riddle. Data-integrity fault.
	ErrRoomBehindNotFound = errors.New("room behind doorway not found")
)

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Riddlegate Contributors

// Package game models the room/riddle graph and drives progression:
// which riddle is reachable from where, and what opens up once one is
// solved.
package game

import (
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Doorway is a directed edge out of a room: a direction label gated by a
// riddle.
type Doorway struct {
	Direction string
	RiddleID  ulid.ULID
}

// Room is a node in the access graph.
type Room struct {
	ID       ulid.ULID
	Index    uint32
	X        *int32
	Y        *int32
	Doorways []Doorway
	Entry    bool
	Exit     bool
}

// DoorwayTo returns the first doorway gated by the given riddle, in list
// order. Duplicate doorways to one riddle are a data fault; first match
// wins rather than crashing.
func (r *Room) DoorwayTo(riddleID ulid.ULID) (Doorway, bool) {
	for _, d := range r.Doorways {
		if d.RiddleID == riddleID {
			return d, true
		}
	}
	return Doorway{}, false
}

// oppositeDirections pairs each direction label with the label the room
// behind must carry on its side of the same riddle.
var oppositeDirections = map[string]string{
	"north":     "south",
	"south":     "north",
	"east":      "west",
	"west":      "east",
	"northeast": "southwest",
	"southwest": "northeast",
	"northwest": "southeast",
	"southeast": "northwest",
	"up":        "down",
	"down":      "up",
	"in":        "out",
	"out":       "in",
}

// OppositeDirection returns the label the far side of a doorway carries.
// An unknown label means the graph cannot name the room behind it.
func OppositeDirection(direction string) (string, error) {
	opposite, ok := oppositeDirections[direction]
	if !ok {
		return "", oops.Code("GAME_UNKNOWN_DIRECTION").
			With("direction", direction).
			Wrap(ErrRoomBehindNotFound)
	}
	return opposite, nil
}

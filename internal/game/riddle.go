// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Riddlegate Contributors

package game

import (
	"strings"

	"github.com/oklog/ulid/v2"
)

// Riddle is a puzzle node. Riddles are referenced by doorways and never
// owned by a single room; two rooms share the riddle that gates the
// doorway between them.
type Riddle struct {
	ID         ulid.ULID
	Difficulty uint32
	Level      uint32
	Solution   string
	IgnoreCase bool
	Task       string
	Debriefing string
	Credits    string
	Files      []string
}

// CheckSolution compares a submitted solution against the canonical one,
// honoring the riddle's case sensitivity.
func (r *Riddle) CheckSolution(submitted string) bool {
	if r.IgnoreCase {
		return strings.EqualFold(submitted, r.Solution)
	}
	return submitted == r.Solution
}

// Award is the score granted for solving this riddle.
func (r *Riddle) Award() uint32 {
	return r.Difficulty
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Riddlegate Contributors

// Package access provides authorization primitives for Riddlegate.
//
// Roles form a total order (user < moderator < admin). All authorization
// decisions compare ranks through this package rather than comparing the
// raw strings, so the ordering lives in exactly one place.
package access

import (
	"errors"

	"github.com/samber/oops"
)

// Role identifies a user's privilege tier.
type Role string

// Roles, in ascending rank order.
const (
	RoleUser      Role = "user"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

// ErrInvalidRole indicates an unrecognized role value.
var ErrInvalidRole = errors.New("invalid role")

// roleRanks maps each role to its position in the total order.
var roleRanks = map[Role]int{
	RoleUser:      0,
	RoleModerator: 1,
	RoleAdmin:     2,
}

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// Validate checks that the role is a recognized value.
func (r Role) Validate() error {
	if _, ok := roleRanks[r]; !ok {
		return ErrInvalidRole
	}
	return nil
}

// Rank returns the role's position in the total order.
// Unknown roles rank below every valid role (fail-closed).
func (r Role) Rank() int {
	rank, ok := roleRanks[r]
	if !ok {
		return -1
	}
	return rank
}

// Outranks returns true if r is strictly higher-ranked than other.
func (r Role) Outranks(other Role) bool {
	return r.Rank() > other.Rank()
}

// AtLeast returns true if r ranks at or above other.
func (r Role) AtLeast(other Role) bool {
	return r.Rank() >= other.Rank()
}

// ParseRole converts a stored string to a Role.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if err := r.Validate(); err != nil {
		return "", oops.Code("ACCESS_INVALID_ROLE").With("role", s).Wrap(err)
	}
	return r, nil
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Riddlegate Contributors

package access

import "errors"

// Role-change rule violations.
var (
	// ErrInsufficientRank indicates the actor does not outrank the target role.
	ErrInsufficientRank = errors.New("insufficient rank for role change")
	// ErrOwnRoleChange indicates an actor attempted to change their own role.
	ErrOwnRoleChange = errors.New("cannot change own role")
	// ErrRoleNotRaised indicates a change to a same-or-lower-ranked role.
	ErrRoleNotRaised = errors.New("cannot change to same or lower-ranked role")
)

// CheckRoleChange validates a role change according to the promotion rules:
//
//   - only admins may change roles,
//   - an actor may never change their own role,
//   - the new role must strictly outrank the target's current role
//     (downgrades require out-of-band intervention).
//
// actorID and targetID are compared to catch self-promotion attempts even
// when the actor is an admin.
func CheckRoleChange(actorRole Role, actorID, targetID string, current, next Role) error {
	if err := next.Validate(); err != nil {
		return err
	}
	if !actorRole.AtLeast(RoleAdmin) {
		return ErrInsufficientRank
	}
	if actorID == targetID {
		return ErrOwnRoleChange
	}
	if !next.Outranks(current) {
		return ErrRoleNotRaised
	}
	return nil
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Riddlegate Contributors

package access_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riddlegate/riddlegate/internal/access"
)

func TestRole_Ordering(t *testing.T) {
	assert.True(t, access.RoleAdmin.Outranks(access.RoleModerator))
	assert.True(t, access.RoleModerator.Outranks(access.RoleUser))
	assert.True(t, access.RoleAdmin.Outranks(access.RoleUser))
	assert.False(t, access.RoleUser.Outranks(access.RoleUser))
	assert.False(t, access.RoleUser.Outranks(access.RoleAdmin))
}

func TestRole_AtLeast(t *testing.T) {
	assert.True(t, access.RoleAdmin.AtLeast(access.RoleAdmin))
	assert.True(t, access.RoleAdmin.AtLeast(access.RoleUser))
	assert.False(t, access.RoleModerator.AtLeast(access.RoleAdmin))
}

func TestRole_UnknownRanksBelowAll(t *testing.T) {
	bogus := access.Role("superuser")
	assert.Equal(t, -1, bogus.Rank())
	assert.False(t, bogus.AtLeast(access.RoleUser))
	assert.True(t, access.RoleUser.Outranks(bogus))
}

func TestParseRole(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    access.Role
		wantErr bool
	}{
		{name: "user", input: "user", want: access.RoleUser},
		{name: "moderator", input: "moderator", want: access.RoleModerator},
		{name: "admin", input: "admin", want: access.RoleAdmin},
		{name: "unknown", input: "root", wantErr: true},
		{name: "empty", input: "", wantErr: true},
		{name: "case sensitive", input: "Admin", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := access.ParseRole(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, access.ErrInvalidRole)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCheckRoleChange(t *testing.T) {
	tests := []struct {
		name      string
		actorRole access.Role
		actorID   string
		targetID  string
		current   access.Role
		next      access.Role
		wantErr   error
	}{
		{
			name:      "admin promotes user to moderator",
			actorRole: access.RoleAdmin,
			actorID:   "a", targetID: "b",
			current: access.RoleUser, next: access.RoleModerator,
		},
		{
			name:      "admin promotes moderator to admin",
			actorRole: access.RoleAdmin,
			actorID:   "a", targetID: "b",
			current: access.RoleModerator, next: access.RoleAdmin,
		},
		{
			name:      "moderator may not change roles",
			actorRole: access.RoleModerator,
			actorID:   "a", targetID: "b",
			current: access.RoleUser, next: access.RoleModerator,
			wantErr: access.ErrInsufficientRank,
		},
		{
			name:      "self-promotion rejected",
			actorRole: access.RoleAdmin,
			actorID:   "a", targetID: "a",
			current: access.RoleModerator, next: access.RoleAdmin,
			wantErr: access.ErrOwnRoleChange,
		},
		{
			name:      "same role rejected",
			actorRole: access.RoleAdmin,
			actorID:   "a", targetID: "b",
			current: access.RoleModerator, next: access.RoleModerator,
			wantErr: access.ErrRoleNotRaised,
		},
		{
			name:      "downgrade rejected",
			actorRole: access.RoleAdmin,
			actorID:   "a", targetID: "b",
			current: access.RoleAdmin, next: access.RoleUser,
			wantErr: access.ErrRoleNotRaised,
		},
		{
			name:      "unknown target role rejected",
			actorRole: access.RoleAdmin,
			actorID:   "a", targetID: "b",
			current: access.RoleUser, next: access.Role("owner"),
			wantErr: access.ErrInvalidRole,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := access.CheckRoleChange(tt.actorRole, tt.actorID, tt.targetID, tt.current, tt.next)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

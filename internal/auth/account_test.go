// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Riddlegate Contributors

package auth_test

import (
	"context"
	"regexp"
	"strings"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/riddlegate/riddlegate/internal/access"
	"github.com/riddlegate/riddlegate/internal/auth"
	"github.com/riddlegate/riddlegate/internal/auth/mocks"
)

// fixedEntryRoom resolves every activation to the same room.
type fixedEntryRoom struct {
	id ulid.ULID
}

func (f fixedEntryRoom) EntryRoom(context.Context) (ulid.ULID, error) {
	return f.id, nil
}

func newAccountService(t *testing.T, users auth.UserRepository, hasher auth.PasswordHasher, entry auth.EntryRoomFinder) *auth.AccountService {
	t.Helper()
	svc, err := auth.NewAccountService(auth.AccountConfig{
		Users:        users,
		Hasher:       hasher,
		OneTimeCodes: auth.NewOneTimeCodeVerifier("Riddlegate"),
		EntryRooms:   entry,
	})
	require.NoError(t, err)
	return svc
}

func TestRegister(t *testing.T) {
	ctx := context.Background()
	entry := fixedEntryRoom{id: ulid.Make()}

	t.Run("creates a non-activated user with a six-digit pin", func(t *testing.T) {
		users := mocks.NewUserRepository(t)
		hasher := mocks.NewPasswordHasher(t)
		svc := newAccountService(t, users, hasher, entry)

		hasher.On("Hash", "password123").Return("$argon2id$v=19$m=65536,t=1,p=4$salt$hash", nil)
		users.On("Create", ctx, mock.MatchedBy(func(u *auth.User) bool {
			return u.Username == "alice" &&
				u.Email == "alice@example.com" &&
				u.Role == access.RoleUser &&
				!u.Activated &&
				u.PIN != nil
		})).Return(nil)

		user, pin, err := svc.Register(ctx, "alice", "alice@example.com", "password123", []auth.SecondFactor{auth.FactorOneTimeCode})
		require.NoError(t, err)
		assert.Regexp(t, regexp.MustCompile(`^\d{6}$`), pin)
		assert.Equal(t, []auth.SecondFactor{auth.FactorOneTimeCode}, user.SecondFactors)
		assert.NotEqual(t, ulid.ULID{}, user.ID)
	})

	t.Run("validation failures", func(t *testing.T) {
		tests := []struct {
			name     string
			username string
			email    string
			password string
			factors  []auth.SecondFactor
			wantErr  error
		}{
			{"username too short", "ab", "a@example.com", "password123", nil, auth.ErrInvalidUsername},
			{"username starts with digit", "1alice", "a@example.com", "password123", nil, auth.ErrInvalidUsername},
			{"bad email", "alice", "not-an-email", "password123", nil, auth.ErrInvalidEmail},
			{"short password", "alice", "a@example.com", "short", nil, auth.ErrPasswordTooShort},
			{"unknown factor", "alice", "a@example.com", "password123", []auth.SecondFactor{"sms"}, auth.ErrInvalidSecondFactor},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				users := mocks.NewUserRepository(t)
				hasher := mocks.NewPasswordHasher(t)
				svc := newAccountService(t, users, hasher, entry)

				_, _, err := svc.Register(ctx, tt.username, tt.email, tt.password, tt.factors)
				assert.ErrorIs(t, err, tt.wantErr)
				users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
			})
		}
	})

	t.Run("duplicate username surfaces ErrUserExists", func(t *testing.T) {
		users := mocks.NewUserRepository(t)
		hasher := mocks.NewPasswordHasher(t)
		svc := newAccountService(t, users, hasher, entry)

		hasher.On("Hash", "password123").Return("hash", nil)
		users.On("Create", ctx, mock.Anything).Return(auth.ErrUserExists)

		_, _, err := svc.Register(ctx, "alice", "alice@example.com", "password123", nil)
		assert.ErrorIs(t, err, auth.ErrUserExists)
	})
}

func TestActivate(t *testing.T) {
	ctx := context.Background()
	entryID := ulid.Make()
	entry := fixedEntryRoom{id: entryID}

	t.Run("commits activation material in one update", func(t *testing.T) {
		users := mocks.NewUserRepository(t)
		hasher := mocks.NewPasswordHasher(t)
		svc := newAccountService(t, users, hasher, entry)

		pin := "123456"
		user := &auth.User{
			ID:            ulid.Make(),
			Username:      "alice",
			PIN:           &pin,
			SecondFactors: []auth.SecondFactor{auth.FactorOneTimeCode},
		}

		users.On("GetForActivation", ctx, "alice", "123456").Return(user, nil)
		users.On("Activate", ctx, mock.MatchedBy(func(u *auth.User) bool {
			return u.Activated &&
				u.PIN == nil &&
				u.Registered != nil &&
				u.InRoom != nil && *u.InRoom == entryID &&
				len(u.RoomsEntered) == 1 && u.RoomsEntered[0] == entryID &&
				len(u.RecoveryKeys) == 10 &&
				len(u.TOTPSecret) == 32
		})).Return(nil)

		result, err := svc.Activate(ctx, "alice", "123456")
		require.NoError(t, err)
		assert.Len(t, result.RecoveryKeys, 10)
		assert.True(t, strings.HasPrefix(result.ProvisioningURI, "otpauth://totp/"))
	})

	t.Run("no provisioning uri without the one-time-code factor", func(t *testing.T) {
		users := mocks.NewUserRepository(t)
		hasher := mocks.NewPasswordHasher(t)
		svc := newAccountService(t, users, hasher, entry)

		pin := "123456"
		user := &auth.User{ID: ulid.Make(), Username: "bob", PIN: &pin}

		users.On("GetForActivation", ctx, "bob", "123456").Return(user, nil)
		users.On("Activate", ctx, mock.MatchedBy(func(u *auth.User) bool {
			return u.Activated && len(u.TOTPSecret) == 0
		})).Return(nil)

		result, err := svc.Activate(ctx, "bob", "123456")
		require.NoError(t, err)
		assert.Empty(t, result.ProvisioningURI)
	})

	t.Run("wrong pin is indistinguishable from unknown user", func(t *testing.T) {
		users := mocks.NewUserRepository(t)
		hasher := mocks.NewPasswordHasher(t)
		svc := newAccountService(t, users, hasher, entry)

		users.On("GetForActivation", ctx, "alice", "999999").Return(nil, auth.ErrNotFound)

		_, err := svc.Activate(ctx, "alice", "999999")
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})
}

func TestChangeRole(t *testing.T) {
	ctx := context.Background()
	entry := fixedEntryRoom{id: ulid.Make()}

	admin := &auth.SessionInfo{UserID: ulid.Make(), Role: access.RoleAdmin}
	target := &auth.User{ID: ulid.Make(), Username: "bob", Role: access.RoleUser}

	t.Run("admin raises another user's role", func(t *testing.T) {
		users := mocks.NewUserRepository(t)
		hasher := mocks.NewPasswordHasher(t)
		svc := newAccountService(t, users, hasher, entry)

		users.On("GetByUsername", ctx, "bob").Return(target, nil)
		users.On("UpdateRole", ctx, target.ID, access.RoleModerator).Return(nil)

		err := svc.ChangeRole(ctx, admin, "bob", access.RoleModerator)
		assert.NoError(t, err)
	})

	t.Run("non-admin is rejected", func(t *testing.T) {
		users := mocks.NewUserRepository(t)
		hasher := mocks.NewPasswordHasher(t)
		svc := newAccountService(t, users, hasher, entry)

		moderator := &auth.SessionInfo{UserID: ulid.Make(), Role: access.RoleModerator}
		users.On("GetByUsername", ctx, "bob").Return(target, nil)

		err := svc.ChangeRole(ctx, moderator, "bob", access.RoleModerator)
		assert.ErrorIs(t, err, access.ErrInsufficientRank)
		users.AssertNotCalled(t, "UpdateRole", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("admin cannot change their own role", func(t *testing.T) {
		users := mocks.NewUserRepository(t)
		hasher := mocks.NewPasswordHasher(t)
		svc := newAccountService(t, users, hasher, entry)

		self := &auth.User{ID: admin.UserID, Username: "admin", Role: access.RoleAdmin}
		users.On("GetByUsername", ctx, "admin").Return(self, nil)

		err := svc.ChangeRole(ctx, admin, "admin", access.RoleModerator)
		assert.ErrorIs(t, err, access.ErrOwnRoleChange)
	})

	t.Run("role must be strictly raised", func(t *testing.T) {
		users := mocks.NewUserRepository(t)
		hasher := mocks.NewPasswordHasher(t)
		svc := newAccountService(t, users, hasher, entry)

		mod := &auth.User{ID: ulid.Make(), Username: "mod", Role: access.RoleModerator}
		users.On("GetByUsername", ctx, "mod").Return(mod, nil)

		err := svc.ChangeRole(ctx, admin, "mod", access.RoleModerator)
		assert.ErrorIs(t, err, access.ErrRoleNotRaised)
	})
}

func TestRewriteScore(t *testing.T) {
	ctx := context.Background()
	entry := fixedEntryRoom{id: ulid.Make()}

	t.Run("admin overwrites a score downward", func(t *testing.T) {
		users := mocks.NewUserRepository(t)
		hasher := mocks.NewPasswordHasher(t)
		svc := newAccountService(t, users, hasher, entry)

		admin := &auth.SessionInfo{UserID: ulid.Make(), Role: access.RoleAdmin}
		target := &auth.User{ID: ulid.Make(), Username: "bob", Score: 900}

		users.On("GetByUsername", ctx, "bob").Return(target, nil)
		users.On("RewriteScore", ctx, target.ID, uint32(100)).Return(nil)

		err := svc.RewriteScore(ctx, admin, "bob", 100)
		assert.NoError(t, err)
	})

	t.Run("non-admin is rejected before any lookup", func(t *testing.T) {
		users := mocks.NewUserRepository(t)
		hasher := mocks.NewPasswordHasher(t)
		svc := newAccountService(t, users, hasher, entry)

		user := &auth.SessionInfo{UserID: ulid.Make(), Role: access.RoleUser}

		err := svc.RewriteScore(ctx, user, "bob", 100)
		assert.ErrorIs(t, err, access.ErrInsufficientRank)
		users.AssertNotCalled(t, "GetByUsername", mock.Anything, mock.Anything)
	})
}

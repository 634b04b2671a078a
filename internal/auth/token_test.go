// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Riddlegate Contributors

package auth_test

import (
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/riddlegate/riddlegate/internal/access"
	"github.com/riddlegate/riddlegate/internal/auth"
	"github.com/riddlegate/riddlegate/pkg/errutil"
)

func newTestIssuer(t *testing.T, ttl time.Duration) *auth.TokenIssuer {
	t.Helper()
	issuer, err := auth.NewTokenIssuer([]byte("test-signing-secret"), "riddlegate-test", ttl)
	require.NoError(t, err)
	return issuer
}

func TestNewTokenIssuer_RequiresSecret(t *testing.T) {
	issuer, err := auth.NewTokenIssuer(nil, "riddlegate-test", time.Hour)
	require.Error(t, err)
	assert.Nil(t, issuer)
	errutil.AssertErrorCode(t, err, "AUTH_TOKEN_NO_SECRET")
}

func TestTokenIssueAndValidate(t *testing.T) {
	issuer := newTestIssuer(t, time.Hour)

	user := &auth.User{
		ID:       ulid.Make(),
		Username: "alice",
		Role:     access.RoleModerator,
	}

	session, err := issuer.Issue(user)
	require.NoError(t, err)
	assert.NotEmpty(t, session.Token)
	assert.Equal(t, user.ID, session.UserID)
	assert.Equal(t, access.RoleModerator, session.Role)
	assert.WithinDuration(t, time.Now().Add(time.Hour), session.ExpiresAt, 5*time.Second)

	id, role, err := issuer.Validate(session.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, id)
	assert.Equal(t, access.RoleModerator, role)
}

func TestTokenValidate_Rejections(t *testing.T) {
	issuer := newTestIssuer(t, time.Hour)
	user := &auth.User{ID: ulid.Make(), Username: "alice", Role: access.RoleUser}

	t.Run("expired token", func(t *testing.T) {
		shortLived := newTestIssuer(t, time.Nanosecond)
		session, err := shortLived.Issue(user)
		require.NoError(t, err)

		time.Sleep(10 * time.Millisecond)
		_, _, err = shortLived.Validate(session.Token)
		assert.ErrorIs(t, err, auth.ErrTokenExpired)
	})

	t.Run("garbage token", func(t *testing.T) {
		_, _, err := issuer.Validate("not.a.token")
		assert.ErrorIs(t, err, auth.ErrTokenInvalid)
	})

	t.Run("token signed with a different secret", func(t *testing.T) {
		other, err := auth.NewTokenIssuer([]byte("other-secret"), "riddlegate-test", time.Hour)
		require.NoError(t, err)
		session, err := other.Issue(user)
		require.NoError(t, err)

		_, _, err = issuer.Validate(session.Token)
		assert.ErrorIs(t, err, auth.ErrTokenInvalid)
	})

	t.Run("token from a different issuer", func(t *testing.T) {
		other, err := auth.NewTokenIssuer([]byte("test-signing-secret"), "someone-else", time.Hour)
		require.NoError(t, err)
		session, err := other.Issue(user)
		require.NoError(t, err)

		_, _, err = issuer.Validate(session.Token)
		assert.ErrorIs(t, err, auth.ErrTokenInvalid)
	})
}

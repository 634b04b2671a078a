// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Riddlegate Contributors

package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/riddlegate/riddlegate/internal/auth"
	"github.com/riddlegate/riddlegate/internal/auth/mocks"
	"github.com/riddlegate/riddlegate/pkg/errutil"
)

func TestChallengeLedger_Issue(t *testing.T) {
	ctx := context.Background()
	userID := ulid.Make()

	t.Run("stores the challenge with kind and state", func(t *testing.T) {
		users := mocks.NewUserRepository(t)
		ledger := auth.NewChallengeLedger(users)

		users.On("PutChallenge", ctx, userID, mock.MatchedBy(func(c *auth.Challenge) bool {
			return c.Kind == auth.ChallengeAuthentication &&
				string(c.State) == "ceremony-state" &&
				!c.Created.IsZero()
		})).Return(nil)

		err := ledger.Issue(ctx, userID, auth.ChallengeAuthentication, []byte("ceremony-state"))
		assert.NoError(t, err)
	})

	t.Run("wraps store failures", func(t *testing.T) {
		users := mocks.NewUserRepository(t)
		ledger := auth.NewChallengeLedger(users)

		users.On("PutChallenge", ctx, userID, mock.Anything).Return(auth.ErrConflict)

		err := ledger.Issue(ctx, userID, auth.ChallengeRegistration, []byte("state"))
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrConflict)
		errutil.AssertErrorCode(t, err, "AUTH_CHALLENGE_ISSUE_FAILED")
	})
}

func TestChallengeLedger_Consume(t *testing.T) {
	ctx := context.Background()
	userID := ulid.Make()

	t.Run("returns the stored state and clears the slot", func(t *testing.T) {
		users := mocks.NewUserRepository(t)
		ledger := auth.NewChallengeLedger(users)

		users.On("TakeChallenge", ctx, userID, auth.ChallengeAuthentication).Return(&auth.Challenge{
			Kind:    auth.ChallengeAuthentication,
			State:   []byte("ceremony-state"),
			Created: time.Now(),
		}, nil).Once()

		state, err := ledger.Consume(ctx, userID, auth.ChallengeAuthentication)
		require.NoError(t, err)
		assert.Equal(t, []byte("ceremony-state"), state)
	})

	t.Run("reports a missing challenge", func(t *testing.T) {
		users := mocks.NewUserRepository(t)
		ledger := auth.NewChallengeLedger(users)

		users.On("TakeChallenge", ctx, userID, auth.ChallengeRegistration).
			Return(nil, auth.ErrChallengeNotFound)

		state, err := ledger.Consume(ctx, userID, auth.ChallengeRegistration)
		assert.Nil(t, state)
		assert.ErrorIs(t, err, auth.ErrChallengeNotFound)
	})
}

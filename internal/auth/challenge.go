// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Riddlegate Contributors

package auth

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// ChallengeLedger owns the single in-flight hardware-key challenge per
// user. Issuing overwrites any prior live challenge; consuming fetches and
// clears it in one guarded update, so a response can be verified against a
// given challenge exactly once. A replayed response, accepted or rejected
// before, finds the slot empty and fails with ErrChallengeNotFound.
type ChallengeLedger struct {
	users UserRepository
}

// NewChallengeLedger creates a ledger over the user store.
func NewChallengeLedger(users UserRepository) *ChallengeLedger {
	return &ChallengeLedger{users: users}
}

// Issue stores a fresh challenge of the given kind for the user,
// replacing whatever challenge was live before.
func (l *ChallengeLedger) Issue(ctx context.Context, userID ulid.ULID, kind ChallengeKind, state []byte) error {
	challenge := &Challenge{
		Kind:    kind,
		State:   state,
		Created: time.Now(),
	}
	if err := l.users.PutChallenge(ctx, userID, challenge); err != nil {
		return oops.Code("AUTH_CHALLENGE_ISSUE_FAILED").
			With("user_id", userID.String()).
			With("kind", string(kind)).
			Wrap(err)
	}
	return nil
}

// Consume atomically fetches and clears the stored challenge. Returns
// ErrChallengeNotFound when no challenge of the given kind is live.
func (l *ChallengeLedger) Consume(ctx context.Context, userID ulid.ULID, kind ChallengeKind) ([]byte, error) {
	challenge, err := l.users.TakeChallenge(ctx, userID, kind)
	if err != nil {
		return nil, err
	}
	return challenge.State, nil
}

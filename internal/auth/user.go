// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Riddlegate Contributors

package auth

import (
	"context"
	"net/mail"
	"regexp"
	"time"

	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/riddlegate/riddlegate/internal/access"
)

// Username validation constraints.
const (
	MinUsernameLength = 3
	MaxUsernameLength = 30
	MinPasswordLength = 8
)

// usernameRegex matches usernames that:
// - Start with a letter (a-z, A-Z)
// - Contain only letters, numbers, and underscores
var usernameRegex = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_]*$`)

// SecondFactor identifies an enabled second-factor kind.
type SecondFactor string

// Second-factor kinds.
const (
	FactorOneTimeCode SecondFactor = "otc"
	FactorHardwareKey SecondFactor = "hwk"
)

// String returns the string representation of the factor kind.
func (f SecondFactor) String() string {
	return string(f)
}

// Validate checks that the factor kind is a recognized value.
func (f SecondFactor) Validate() error {
	switch f {
	case FactorOneTimeCode, FactorHardwareKey:
		return nil
	default:
		return oops.Code("AUTH_INVALID_FACTOR").With("factor", string(f)).Wrap(ErrInvalidSecondFactor)
	}
}

// ChallengeKind distinguishes the two hardware-key ceremonies.
type ChallengeKind string

// Challenge kinds.
const (
	ChallengeRegistration   ChallengeKind = "registration"
	ChallengeAuthentication ChallengeKind = "authentication"
)

// Challenge is the single in-flight hardware-key challenge for a user.
// State is the opaque, JSON-encoded ceremony state; it is written when a
// challenge is issued and cleared exactly once when the matching response
// is verified.
type Challenge struct {
	Kind    ChallengeKind
	State   []byte
	Created time.Time
}

// User is the account and progression record.
// InRoom is nil iff Activated is false; a non-activated user never gets
// past the password step.
type User struct {
	ID           ulid.ULID
	Username     string
	Email        string
	Role         access.Role
	PasswordHash string
	PIN          *string // present only before activation
	Activated    bool
	Created      time.Time
	Registered   *time.Time
	LastLogin    *time.Time

	SecondFactors        []SecondFactor
	TOTPSecret           []byte // present only when FactorOneTimeCode is enabled
	RecoveryKeys         []string
	HardwareCredentials  []webauthn.Credential
	AwaitingSecondFactor bool

	InRoom       *ulid.ULID
	RoomsEntered []ulid.ULID
	Solved       []ulid.ULID
	Level        uint32
	Score        uint32
}

// HasFactor returns true if the given second-factor kind is enabled.
func (u *User) HasFactor(kind SecondFactor) bool {
	for _, f := range u.SecondFactors {
		if f == kind {
			return true
		}
	}
	return false
}

// HasSolved returns true if the riddle is already in the solved set.
func (u *User) HasSolved(riddleID ulid.ULID) bool {
	for _, id := range u.Solved {
		if id == riddleID {
			return true
		}
	}
	return false
}

// ValidateUsername validates a username against account rules.
func ValidateUsername(username string) error {
	if len(username) < MinUsernameLength {
		return oops.Code("AUTH_INVALID_USERNAME").
			With("min", MinUsernameLength).
			Wrap(ErrInvalidUsername)
	}
	if len(username) > MaxUsernameLength {
		return oops.Code("AUTH_INVALID_USERNAME").
			With("max", MaxUsernameLength).
			Wrap(ErrInvalidUsername)
	}
	if !usernameRegex.MatchString(username) {
		return oops.Code("AUTH_INVALID_USERNAME").Wrap(ErrInvalidUsername)
	}
	return nil
}

// ValidateEmail validates the syntactic form of an email address.
func ValidateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return oops.Code("AUTH_INVALID_EMAIL").Wrap(ErrInvalidEmail)
	}
	return nil
}

// ValidatePassword enforces the minimum password length.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLength {
		return oops.Code("AUTH_PASSWORD_TOO_SHORT").
			With("min", MinPasswordLength).
			Wrap(ErrPasswordTooShort)
	}
	return nil
}

// Progress is the progression delta committed when a riddle is solved.
// The whole struct is written in one guarded update so concurrent solves
// cannot interleave.
type Progress struct {
	Solved       []ulid.ULID
	Level        uint32
	Score        uint32
	InRoom       ulid.ULID
	RoomsEntered []ulid.ULID
}

// UserRepository manages user persistence.
//
// Every mutation carries a guard predicate (activation state, live
// challenge) and reports ErrConflict when the guard no longer holds, so
// concurrent requests against the same record cannot commit against a
// stale precondition.
type UserRepository interface {
	// Create stores a new, non-activated user.
	// Returns ErrUserExists on a duplicate username or email.
	Create(ctx context.Context, user *User) error

	// GetByUsername retrieves a user by username (case-sensitive).
	GetByUsername(ctx context.Context, username string) (*User, error)

	// GetForActivation retrieves the non-activated user matching
	// username and pin. Returns ErrNotFound when no such record exists.
	GetForActivation(ctx context.Context, username, pin string) (*User, error)

	// Activate commits the activation fields (activated, registered,
	// in_room, rooms_entered, totp secret, recovery keys) and clears the
	// pin, guarded on the record still being non-activated.
	Activate(ctx context.Context, user *User) error

	// SetAwaitingSecondFactor flips the awaiting flag, guarded on
	// activation.
	SetAwaitingSecondFactor(ctx context.Context, id ulid.ULID, awaiting bool) error

	// RecordLogin stamps last_login and clears the awaiting flag,
	// guarded on activation.
	RecordLogin(ctx context.Context, id ulid.ULID, at time.Time) error

	// PutChallenge stores the single in-flight challenge, overwriting
	// any prior one, guarded on activation.
	PutChallenge(ctx context.Context, id ulid.ULID, challenge *Challenge) error

	// TakeChallenge atomically fetches and clears the stored challenge.
	// Returns ErrChallengeNotFound when no challenge of the given kind
	// is live. A second Take for the same challenge must fail.
	TakeChallenge(ctx context.Context, id ulid.ULID, kind ChallengeKind) (*Challenge, error)

	// SaveHardwareCredentials replaces the registered hardware
	// credential set (used for both enrollment and sign-count updates).
	SaveHardwareCredentials(ctx context.Context, id ulid.ULID, creds []webauthn.Credential) error

	// EnableSecondFactor adds the factor kind to the enabled set.
	// Adding an already-enabled kind is a no-op.
	EnableSecondFactor(ctx context.Context, id ulid.ULID, kind SecondFactor) error

	// UpdateProgress commits a progression delta, guarded on activation.
	UpdateProgress(ctx context.Context, id ulid.ULID, progress Progress) error

	// UpdateRole changes the stored role.
	UpdateRole(ctx context.Context, id ulid.ULID, role access.Role) error

	// RewriteScore overwrites the score; the only permitted
	// non-monotonic score transition.
	RewriteScore(ctx context.Context, id ulid.ULID, score uint32) error
}

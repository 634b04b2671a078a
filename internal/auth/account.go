// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Riddlegate Contributors

package auth

import (
	"context"
	"crypto/rand"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/riddlegate/riddlegate/internal/access"
)

// pinDigits is the length of the out-of-band activation pin.
const pinDigits = 6

// EntryRoomFinder resolves the room assigned to a freshly activated user.
// It mirrors internal/game.RoomRepository to avoid coupling the packages.
type EntryRoomFinder interface {
	EntryRoom(ctx context.Context) (ulid.ULID, error)
}

// ActivationResult carries the one-time material produced at activation.
// Recovery keys and the provisioning URI are shown to the user exactly
// once; only the keys and the shared secret are persisted.
type ActivationResult struct {
	User            *User
	RecoveryKeys    []string
	ProvisioningURI string
}

// AccountConfig holds dependencies for AccountService.
type AccountConfig struct {
	Users        UserRepository
	Hasher       PasswordHasher
	OneTimeCodes *OneTimeCodeVerifier
	EntryRooms   EntryRoomFinder
	Logger       *slog.Logger
}

// AccountService owns the account lifecycle outside of login: registration,
// pin activation, role changes, and administrative score rewrites.
type AccountService struct {
	users  UserRepository
	hasher PasswordHasher
	otc    *OneTimeCodeVerifier
	rooms  EntryRoomFinder
	logger *slog.Logger
}

// NewAccountService creates a new AccountService.
func NewAccountService(cfg AccountConfig) (*AccountService, error) {
	if cfg.Users == nil {
		return nil, oops.Errorf("user repository is required")
	}
	if cfg.Hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	if cfg.OneTimeCodes == nil {
		return nil, oops.Errorf("one-time-code verifier is required")
	}
	if cfg.EntryRooms == nil {
		return nil, oops.Errorf("entry room finder is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &AccountService{
		users:  cfg.Users,
		hasher: cfg.Hasher,
		otc:    cfg.OneTimeCodes,
		rooms:  cfg.EntryRooms,
		logger: cfg.Logger,
	}, nil
}

// Register creates a non-activated account and returns the activation pin.
// The pin is delivered out of band and never stored in the clear response
// path again; until it is redeemed the account cannot log in.
func (s *AccountService) Register(ctx context.Context, username, email, password string, factors []SecondFactor) (*User, string, error) {
	if err := ValidateUsername(username); err != nil {
		return nil, "", err
	}
	if err := ValidateEmail(email); err != nil {
		return nil, "", err
	}
	if err := ValidatePassword(password); err != nil {
		return nil, "", err
	}
	for _, f := range factors {
		if err := f.Validate(); err != nil {
			return nil, "", err
		}
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, "", err
	}
	pin, err := generatePIN()
	if err != nil {
		return nil, "", err
	}

	user := &User{
		ID:            ulid.Make(),
		Username:      username,
		Email:         email,
		Role:          access.RoleUser,
		PasswordHash:  hash,
		PIN:           &pin,
		Created:       time.Now(),
		SecondFactors: factors,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, "", oops.Code("AUTH_REGISTER_FAILED").With("username", username).Wrap(err)
	}

	s.logger.Info("user registered", "username", username, "factors", len(factors))
	return user, pin, nil
}

// Activate redeems a pin, making the account loginable. In one guarded
// commit the user is placed in the entry room, assigned recovery keys and
// (when the one-time-code factor is enabled) a shared secret, and the pin
// is cleared. An unknown username, wrong pin, or already-activated account
// are indistinguishable: all return ErrNotFound.
func (s *AccountService) Activate(ctx context.Context, username, pin string) (*ActivationResult, error) {
	user, err := s.users.GetForActivation(ctx, username, pin)
	if err != nil {
		return nil, oops.Code("AUTH_ACTIVATION_REJECTED").Wrap(err)
	}

	entry, err := s.rooms.EntryRoom(ctx)
	if err != nil {
		return nil, oops.Code("AUTH_ACTIVATION_FAILED").With("operation", "resolve entry room").Wrap(err)
	}
	keys, err := GenerateRecoveryKeys()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	user.Activated = true
	user.Registered = &now
	user.PIN = nil
	user.InRoom = &entry
	user.RoomsEntered = []ulid.ULID{entry}
	user.RecoveryKeys = keys

	var uri string
	if user.HasFactor(FactorOneTimeCode) {
		secret, err := s.otc.ProvisionSecret()
		if err != nil {
			return nil, err
		}
		user.TOTPSecret = secret
		uri = s.otc.ProvisionURI(secret, username)
	}

	if err := s.users.Activate(ctx, user); err != nil {
		return nil, oops.Code("AUTH_ACTIVATION_FAILED").With("username", username).Wrap(err)
	}

	s.logger.Info("user activated", "username", username, "entry_room", entry.String())
	return &ActivationResult{User: user, RecoveryKeys: keys, ProvisioningURI: uri}, nil
}

// ChangeRole lets an admin raise another user's role. The rules live in
// internal/access: only admins act, never on themselves, and only upward.
func (s *AccountService) ChangeRole(ctx context.Context, actor *SessionInfo, targetUsername string, next access.Role) error {
	target, err := s.users.GetByUsername(ctx, targetUsername)
	if err != nil {
		return oops.Code("AUTH_USER_NOT_FOUND").Wrap(err)
	}

	if err := access.CheckRoleChange(actor.Role, actor.UserID.String(), target.ID.String(), target.Role, next); err != nil {
		return err
	}
	if err := s.users.UpdateRole(ctx, target.ID, next); err != nil {
		return oops.Code("AUTH_ROLE_CHANGE_FAILED").With("username", targetUsername).Wrap(err)
	}

	s.logger.Info("role changed",
		"username", targetUsername,
		"from", target.Role.String(),
		"to", next.String())
	return nil
}

// RewriteScore overwrites a user's score. Admin only; this is the one
// operation allowed to move a score downward.
func (s *AccountService) RewriteScore(ctx context.Context, actor *SessionInfo, targetUsername string, score uint32) error {
	if !actor.Role.AtLeast(access.RoleAdmin) {
		return oops.Code("ACCESS_DENIED").Wrap(access.ErrInsufficientRank)
	}

	target, err := s.users.GetByUsername(ctx, targetUsername)
	if err != nil {
		return oops.Code("AUTH_USER_NOT_FOUND").Wrap(err)
	}
	if err := s.users.RewriteScore(ctx, target.ID, score); err != nil {
		return oops.Code("AUTH_SCORE_REWRITE_FAILED").With("username", targetUsername).Wrap(err)
	}

	s.logger.Info("score rewritten",
		"username", targetUsername,
		"from", target.Score,
		"to", score)
	return nil
}

// generatePIN draws a uniform six-digit pin, leading zeros included.
func generatePIN() (string, error) {
	bound := big.NewInt(1)
	for range pinDigits {
		bound.Mul(bound, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, bound)
	if err != nil {
		return "", oops.Code("AUTH_PIN_FAILED").Wrap(err)
	}
	return fmt.Sprintf("%0*d", pinDigits, n), nil
}

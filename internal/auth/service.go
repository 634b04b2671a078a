// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Riddlegate Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/go-webauthn/webauthn/protocol"
	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/samber/oops"
)

// MetricsRecorder receives authentication outcome counts.
// Implementations must be safe for concurrent use.
type MetricsRecorder interface {
	LoginAttempt(outcome string)
	SecondFactorCompletion(kind, outcome string)
	ChallengeIssued(kind string)
}

// noopMetrics is the default recorder when none is configured.
type noopMetrics struct{}

func (noopMetrics) LoginAttempt(string)               {}
func (noopMetrics) SecondFactorCompletion(_, _ string) {}
func (noopMetrics) ChallengeIssued(string)            {}

// LoginResult is the outcome of the password step. Either the login is
// complete and Session is set, or a second factor is still owed and
// RequiredFactors lists the acceptable kinds (OR semantics: completing any
// one of them authenticates the session).
type LoginResult struct {
	Authenticated   bool
	Session         *Session
	RequiredFactors []SecondFactor
}

// ServiceConfig holds dependencies for Service.
type ServiceConfig struct {
	Users        UserRepository
	Hasher       PasswordHasher
	OneTimeCodes *OneTimeCodeVerifier
	HardwareKeys *HardwareKeys
	Tokens       *TokenIssuer
	Logger       *slog.Logger
	Metrics      MetricsRecorder
}

// Service drives the multi-step login state machine: password check,
// second-factor requirement, challenge/response ceremonies, and session
// issuance. It holds no durable state; every request is resolved against
// the user store.
type Service struct {
	users    UserRepository
	hasher   PasswordHasher
	otc      *OneTimeCodeVerifier
	hardware *HardwareKeys
	tokens   *TokenIssuer
	ledger   *ChallengeLedger
	logger   *slog.Logger
	metrics  MetricsRecorder
}

// NewService creates a new Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Users == nil {
		return nil, oops.Errorf("user repository is required")
	}
	if cfg.Hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	if cfg.OneTimeCodes == nil {
		return nil, oops.Errorf("one-time-code verifier is required")
	}
	if cfg.HardwareKeys == nil {
		return nil, oops.Errorf("hardware key engine is required")
	}
	if cfg.Tokens == nil {
		return nil, oops.Errorf("token issuer is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = noopMetrics{}
	}
	return &Service{
		users:    cfg.Users,
		hasher:   cfg.Hasher,
		otc:      cfg.OneTimeCodes,
		hardware: cfg.HardwareKeys,
		tokens:   cfg.Tokens,
		ledger:   NewChallengeLedger(cfg.Users),
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
	}, nil
}

// BeginLogin runs the password step. Password verification always runs,
// against a dummy hash when the user is unknown, to keep response time
// independent of username existence; the presentation layer collapses
// ErrUserNotFound and ErrWrongCredentials into one response.
//
// The activation check comes after the password check: a caller holding
// the wrong password learns nothing about whether the account has been
// activated.
//
// A user with no second factors is authenticated immediately; otherwise
// the awaiting flag is set and the acceptable factor kinds are returned.
func (s *Service) BeginLogin(ctx context.Context, username, password string) (*LoginResult, error) {
	user, lookupErr := s.users.GetByUsername(ctx, username)

	targetHash := dummyPasswordHash
	if lookupErr == nil {
		targetHash = user.PasswordHash
	} else if !errors.Is(lookupErr, ErrNotFound) {
		return nil, oops.Code("AUTH_LOGIN_FAILED").With("operation", "get user").Wrap(lookupErr)
	}

	valid, verifyErr := s.hasher.Verify(password, targetHash)

	if lookupErr != nil {
		s.metrics.LoginAttempt("unknown_user")
		return nil, oops.Code("AUTH_USER_NOT_FOUND").Wrap(ErrNotFound)
	}
	if verifyErr != nil {
		return nil, oops.Code("AUTH_LOGIN_FAILED").With("operation", "verify password").Wrap(verifyErr)
	}
	if !valid {
		s.metrics.LoginAttempt("wrong_password")
		return nil, oops.Code("AUTH_WRONG_CREDENTIALS").Wrap(ErrWrongCredentials)
	}
	if !user.Activated {
		s.metrics.LoginAttempt("not_activated")
		return nil, oops.Code("AUTH_NOT_ACTIVATED").Wrap(ErrNotActivated)
	}

	if len(user.SecondFactors) == 0 {
		session, err := s.finishLogin(ctx, user)
		if err != nil {
			return nil, err
		}
		s.metrics.LoginAttempt("authenticated")
		return &LoginResult{Authenticated: true, Session: session}, nil
	}

	if err := s.users.SetAwaitingSecondFactor(ctx, user.ID, true); err != nil {
		return nil, oops.Code("AUTH_LOGIN_FAILED").With("operation", "set awaiting flag").Wrap(err)
	}

	s.metrics.LoginAttempt("awaiting_second_factor")
	return &LoginResult{RequiredFactors: user.SecondFactors}, nil
}

// CompleteWithOneTimeCode finishes a pending login with a time-based
// one-time code. Valid only while a second factor is owed and the
// one-time-code factor is enabled. A wrong code leaves the pending state
// untouched.
func (s *Service) CompleteWithOneTimeCode(ctx context.Context, username, code string) (*Session, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, oops.Code("AUTH_USER_NOT_FOUND").Wrap(err)
	}
	if !user.AwaitingSecondFactor || !user.HasFactor(FactorOneTimeCode) {
		s.metrics.SecondFactorCompletion("otc", "not_pending")
		return nil, oops.Code("AUTH_SECOND_FACTOR_MISSING").Wrap(ErrSecondFactorMissing)
	}

	if err := s.otc.Verify(user.TOTPSecret, code, time.Now()); err != nil {
		s.metrics.SecondFactorCompletion("otc", "rejected")
		return nil, oops.Code("AUTH_WRONG_CREDENTIALS").Wrap(ErrWrongCredentials)
	}

	session, err := s.finishLogin(ctx, user)
	if err != nil {
		return nil, err
	}
	s.metrics.SecondFactorCompletion("otc", "accepted")
	return session, nil
}

// LoginWithHardwareKeyBegin issues an authentication challenge for a
// pending login. The challenge replaces any prior live authentication
// challenge for the user.
func (s *Service) LoginWithHardwareKeyBegin(ctx context.Context, username string) (*protocol.CredentialAssertion, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, oops.Code("AUTH_USER_NOT_FOUND").Wrap(err)
	}
	if !user.AwaitingSecondFactor || !user.HasFactor(FactorHardwareKey) {
		return nil, oops.Code("AUTH_SECOND_FACTOR_MISSING").Wrap(ErrSecondFactorMissing)
	}

	assertion, state, err := s.hardware.BeginLogin(user)
	if err != nil {
		return nil, err
	}
	if err := s.ledger.Issue(ctx, user.ID, ChallengeAuthentication, state); err != nil {
		return nil, err
	}

	s.metrics.ChallengeIssued("authentication")
	return assertion, nil
}

// CompleteWithHardwareKey finishes a pending login with a hardware-key
// assertion. The stored challenge is consumed before verification, so the
// response is checked against it exactly once; replays fail with
// ErrChallengeNotFound. The signature counter must advance past the
// stored one, otherwise the authenticator is treated as cloned.
func (s *Service) CompleteWithHardwareKey(ctx context.Context, username string, response *protocol.ParsedCredentialAssertionData) (*Session, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, oops.Code("AUTH_USER_NOT_FOUND").Wrap(err)
	}
	if !user.AwaitingSecondFactor {
		s.metrics.SecondFactorCompletion("hwk", "not_pending")
		return nil, oops.Code("AUTH_CHALLENGE_NOT_FOUND").Wrap(ErrChallengeNotFound)
	}

	state, err := s.ledger.Consume(ctx, user.ID, ChallengeAuthentication)
	if err != nil {
		s.metrics.SecondFactorCompletion("hwk", "no_challenge")
		return nil, err
	}

	cred, err := s.hardware.FinishLogin(user, state, response)
	if err != nil {
		s.metrics.SecondFactorCompletion("hwk", "rejected")
		return nil, err
	}

	if err := s.users.SaveHardwareCredentials(ctx, user.ID, replaceCredential(user.HardwareCredentials, cred)); err != nil {
		return nil, oops.Code("AUTH_LOGIN_FAILED").With("operation", "persist sign count").Wrap(err)
	}

	session, err := s.finishLogin(ctx, user)
	if err != nil {
		return nil, err
	}
	s.metrics.SecondFactorCompletion("hwk", "accepted")
	return session, nil
}

// RegisterHardwareKeyBegin issues an enrollment challenge for an
// activated user. Already-registered credentials are excluded from the
// challenge so an authenticator cannot be enrolled twice.
func (s *Service) RegisterHardwareKeyBegin(ctx context.Context, username string) (*protocol.CredentialCreation, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, oops.Code("AUTH_USER_NOT_FOUND").Wrap(err)
	}
	if !user.Activated {
		return nil, oops.Code("AUTH_NOT_ACTIVATED").Wrap(ErrNotActivated)
	}

	creation, state, err := s.hardware.BeginRegistration(user)
	if err != nil {
		return nil, err
	}
	if err := s.ledger.Issue(ctx, user.ID, ChallengeRegistration, state); err != nil {
		return nil, err
	}

	s.metrics.ChallengeIssued("registration")
	return creation, nil
}

// RegisterHardwareKeyFinish verifies the attestation response, appends
// the new credential, and enables the hardware-key factor. The
// registration challenge is consumed whether or not verification
// succeeds.
func (s *Service) RegisterHardwareKeyFinish(ctx context.Context, username string, response *protocol.ParsedCredentialCreationData) error {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return oops.Code("AUTH_USER_NOT_FOUND").Wrap(err)
	}

	state, err := s.ledger.Consume(ctx, user.ID, ChallengeRegistration)
	if err != nil {
		return err
	}

	cred, err := s.hardware.FinishRegistration(user, state, response)
	if err != nil {
		return err
	}

	creds := append(user.HardwareCredentials, *cred)
	if err := s.users.SaveHardwareCredentials(ctx, user.ID, creds); err != nil {
		return oops.Code("AUTH_HWK_PERSIST_FAILED").Wrap(err)
	}
	if !user.HasFactor(FactorHardwareKey) {
		if err := s.users.EnableSecondFactor(ctx, user.ID, FactorHardwareKey); err != nil {
			return oops.Code("AUTH_HWK_PERSIST_FAILED").With("operation", "enable factor").Wrap(err)
		}
	}

	s.logger.Info("hardware key registered",
		"username", user.Username,
		"credentials", len(creds))
	return nil
}

// ValidateSession validates a bearer token and returns its user id and
// role.
func (s *Service) ValidateSession(token string) (*SessionInfo, error) {
	id, role, err := s.tokens.Validate(token)
	if err != nil {
		return nil, err
	}
	return &SessionInfo{UserID: id, Role: role}, nil
}

// finishLogin stamps last_login, clears the awaiting flag, and mints the
// session token.
func (s *Service) finishLogin(ctx context.Context, user *User) (*Session, error) {
	if err := s.users.RecordLogin(ctx, user.ID, time.Now()); err != nil {
		return nil, oops.Code("AUTH_LOGIN_FAILED").With("operation", "record login").Wrap(err)
	}
	session, err := s.tokens.Issue(user)
	if err != nil {
		return nil, err
	}
	s.logger.Info("login completed", "username", user.Username)
	return session, nil
}

// replaceCredential swaps the credential matching cred.ID, leaving the
// rest untouched.
func replaceCredential(creds []webauthn.Credential, cred *webauthn.Credential) []webauthn.Credential {
	out := make([]webauthn.Credential, len(creds))
	copy(out, creds)
	for i := range out {
		if string(out[i].ID) == string(cred.ID) {
			out[i] = *cred
			break
		}
	}
	return out
}

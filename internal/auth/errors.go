// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Riddlegate Contributors

package auth

import "errors"

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a guarded update finds its precondition no
// longer holds (concurrent modification, activation state change). Safe to
// retry after re-reading.
var ErrConflict = errors.New("concurrent update conflict")

// Validation-class errors.
var (
	ErrInvalidUsername     = errors.New("username is not valid")
	ErrInvalidEmail        = errors.New("email address is not valid")
	ErrPasswordTooShort    = errors.New("password too short")
	ErrUserExists          = errors.New("username or email not available")
	ErrInvalidSecondFactor = errors.New("unknown second factor")
)

// Authentication flow errors.
var (
	// ErrWrongCredentials covers both a bad password and a bad one-time
	// code; callers must not reveal which.
	ErrWrongCredentials = errors.New("wrong credentials")
	// ErrNotActivated indicates the account has not completed pin
	// activation.
	ErrNotActivated = errors.New("user not activated")
	// ErrSecondFactorMissing indicates a completion call arrived while no
	// second factor was pending, or for a factor kind that is not enabled.
	ErrSecondFactorMissing = errors.New("second factor not pending or not enabled")
	// ErrChallengeNotFound indicates no live hardware-key challenge of the
	// expected kind; replays after consumption land here.
	ErrChallengeNotFound = errors.New("challenge not found")
	// ErrAuthenticationFailure indicates a hardware-key response that
	// failed signature or sign-count verification.
	ErrAuthenticationFailure = errors.New("hardware key authentication failure")
	// ErrVerificationFailed is the single opaque one-time-code failure;
	// wrong code and expired window are indistinguishable by design.
	ErrVerificationFailed = errors.New("verification failed")
)

// Session token errors.
var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("token invalid")
)

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Riddlegate Contributors

package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/riddlegate/riddlegate/internal/access"
)

// DefaultTokenTTL is the session token lifetime when none is configured.
const DefaultTokenTTL = 24 * time.Hour

// Session is the bearer credential handed to the routing layer after a
// fully completed login.
type Session struct {
	Token     string
	UserID    ulid.ULID
	Role      access.Role
	ExpiresAt time.Time
}

// SessionInfo is the identity a validated token resolves to.
type SessionInfo struct {
	UserID ulid.ULID
	Role   access.Role
}

// sessionClaims is the JWT payload: subject carries the user ULID, role
// the privilege tier.
type sessionClaims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// TokenIssuer mints and validates the signed, time-bounded session token.
type TokenIssuer struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

// NewTokenIssuer creates a TokenIssuer signing with HS256.
// A zero ttl falls back to DefaultTokenTTL.
func NewTokenIssuer(secret []byte, issuer string, ttl time.Duration) (*TokenIssuer, error) {
	if len(secret) == 0 {
		return nil, oops.Code("AUTH_TOKEN_NO_SECRET").Errorf("token signing secret is required")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenIssuer{secret: secret, issuer: issuer, ttl: ttl}, nil
}

// Issue mints a session token for the user.
func (t *TokenIssuer) Issue(user *User) (*Session, error) {
	now := time.Now()
	expires := now.Add(t.ttl)

	claims := sessionClaims{
		Role: user.Role.String(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			Issuer:    t.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return nil, oops.Code("AUTH_TOKEN_SIGN_FAILED").Wrap(err)
	}

	return &Session{
		Token:     signed,
		UserID:    user.ID,
		Role:      user.Role,
		ExpiresAt: expires,
	}, nil
}

// Validate parses and verifies a session token, returning the user id and
// role it carries. Expiry is reported as ErrTokenExpired, every other
// verification failure as ErrTokenInvalid; callers surface both as
// unauthorized.
func (t *TokenIssuer) Validate(token string) (ulid.ULID, access.Role, error) {
	var claims sessionClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return t.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(t.issuer))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ulid.ULID{}, "", oops.Code("AUTH_TOKEN_EXPIRED").Wrap(ErrTokenExpired)
		}
		return ulid.ULID{}, "", oops.Code("AUTH_TOKEN_INVALID").Wrap(ErrTokenInvalid)
	}

	id, err := ulid.Parse(claims.Subject)
	if err != nil {
		return ulid.ULID{}, "", oops.Code("AUTH_TOKEN_INVALID").With("subject", claims.Subject).Wrap(ErrTokenInvalid)
	}
	role, err := access.ParseRole(claims.Role)
	if err != nil {
		return ulid.ULID{}, "", oops.Code("AUTH_TOKEN_INVALID").With("role", claims.Role).Wrap(ErrTokenInvalid)
	}

	return id, role, nil
}

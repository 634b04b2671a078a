// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Riddlegate Contributors

// Package postgres implements auth repositories using PostgreSQL.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-webauthn/webauthn/webauthn"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/riddlegate/riddlegate/internal/access"
	"github.com/riddlegate/riddlegate/internal/auth"
)

// pool is the subset of pgxpool.Pool the repository needs. pgxmock
// satisfies it, so unit tests run without a database.
type pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const userColumns = `id, username, email, role, password_hash, pin, activated,
	       created_at, registered_at, last_login,
	       second_factors, totp_secret, recovery_keys, hardware_credentials,
	       awaiting_second_factor, in_room, rooms_entered, solved, level, score`

// UserRepository implements auth.UserRepository using PostgreSQL.
//
// The challenge slot lives in three nullable columns on the users row
// (challenge_kind, challenge_state, challenge_created); TakeChallenge
// clears them in the same statement that reads them, which is what makes
// a challenge single-use under concurrent responses.
type UserRepository struct {
	pool pool
}

// NewUserRepository creates a new UserRepository.
func NewUserRepository(pool pool) *UserRepository {
	return &UserRepository{pool: pool}
}

// Create stores a new, non-activated user.
func (r *UserRepository) Create(ctx context.Context, user *auth.User) error {
	credsJSON, err := json.Marshal(user.HardwareCredentials)
	if err != nil {
		return oops.Code("USER_CREATE_FAILED").
			With("operation", "marshal hardware credentials").
			Wrap(err)
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO users (
			id, username, email, role, password_hash, pin, activated,
			created_at, second_factors, hardware_credentials
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		user.ID.String(),
		user.Username,
		user.Email,
		user.Role.String(),
		user.PasswordHash,
		user.PIN,
		user.Activated,
		user.Created,
		factorStrings(user.SecondFactors),
		credsJSON,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return oops.Code("USER_EXISTS").
				With("username", user.Username).
				Wrap(auth.ErrUserExists)
		}
		return oops.Code("USER_CREATE_FAILED").
			With("operation", "insert user").
			With("username", user.Username).
			Wrap(err)
	}
	return nil
}

// GetByUsername retrieves a user by username.
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*auth.User, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE username = $1
	`, username)

	user, err := r.scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").
			With("username", username).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_GET_FAILED").
			With("operation", "get user by username").
			With("username", username).
			Wrap(err)
	}
	return user, nil
}

// GetForActivation retrieves the non-activated user matching username and
// pin. A wrong pin and an unknown username both land on ErrNotFound.
func (r *UserRepository) GetForActivation(ctx context.Context, username, pin string) (*auth.User, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE username = $1 AND pin = $2 AND NOT activated
	`, username, pin)

	user, err := r.scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").
			With("username", username).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_GET_FAILED").
			With("operation", "get user for activation").
			With("username", username).
			Wrap(err)
	}
	return user, nil
}

// Activate commits the activation material and clears the pin, guarded on
// the record still being non-activated.
func (r *UserRepository) Activate(ctx context.Context, user *auth.User) error {
	var inRoom *string
	if user.InRoom != nil {
		s := user.InRoom.String()
		inRoom = &s
	}

	result, err := r.pool.Exec(ctx, `
		UPDATE users SET
			activated = TRUE,
			pin = NULL,
			registered_at = $2,
			in_room = $3,
			rooms_entered = $4,
			totp_secret = $5,
			recovery_keys = $6
		WHERE id = $1 AND NOT activated
	`,
		user.ID.String(),
		user.Registered,
		inRoom,
		ulidStrings(user.RoomsEntered),
		user.TOTPSecret,
		user.RecoveryKeys,
	)
	if err != nil {
		return oops.Code("USER_ACTIVATE_FAILED").
			With("operation", "activate user").
			With("id", user.ID.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("USER_CONFLICT").
			With("id", user.ID.String()).
			Wrap(auth.ErrConflict)
	}
	return nil
}

// SetAwaitingSecondFactor flips the awaiting flag, guarded on activation.
func (r *UserRepository) SetAwaitingSecondFactor(ctx context.Context, id ulid.ULID, awaiting bool) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE users SET awaiting_second_factor = $2
		WHERE id = $1 AND activated
	`, id.String(), awaiting)
	if err != nil {
		return oops.Code("USER_UPDATE_FAILED").
			With("operation", "set awaiting flag").
			With("id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("USER_CONFLICT").
			With("id", id.String()).
			Wrap(auth.ErrConflict)
	}
	return nil
}

// RecordLogin stamps last_login and clears the awaiting flag.
func (r *UserRepository) RecordLogin(ctx context.Context, id ulid.ULID, at time.Time) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE users SET last_login = $2, awaiting_second_factor = FALSE
		WHERE id = $1 AND activated
	`, id.String(), at)
	if err != nil {
		return oops.Code("USER_UPDATE_FAILED").
			With("operation", "record login").
			With("id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("USER_CONFLICT").
			With("id", id.String()).
			Wrap(auth.ErrConflict)
	}
	return nil
}

// PutChallenge stores the single in-flight challenge, replacing any prior
// one.
func (r *UserRepository) PutChallenge(ctx context.Context, id ulid.ULID, challenge *auth.Challenge) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE users SET
			challenge_kind = $2,
			challenge_state = $3,
			challenge_created = $4
		WHERE id = $1 AND activated
	`, id.String(), string(challenge.Kind), challenge.State, challenge.Created)
	if err != nil {
		return oops.Code("USER_UPDATE_FAILED").
			With("operation", "put challenge").
			With("id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("USER_CONFLICT").
			With("id", id.String()).
			Wrap(auth.ErrConflict)
	}
	return nil
}

// TakeChallenge atomically fetches and clears the stored challenge. The
// locking subselect serializes concurrent takers; only the first sees a
// non-null slot.
func (r *UserRepository) TakeChallenge(ctx context.Context, id ulid.ULID, kind auth.ChallengeKind) (*auth.Challenge, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE users u SET
			challenge_kind = NULL,
			challenge_state = NULL,
			challenge_created = NULL
		FROM (
			SELECT id, challenge_kind, challenge_state, challenge_created
			FROM users
			WHERE id = $1 AND challenge_kind = $2
			FOR UPDATE
		) taken
		WHERE u.id = taken.id
		RETURNING taken.challenge_kind, taken.challenge_state, taken.challenge_created
	`, id.String(), string(kind))

	var (
		kindStr string
		state   []byte
		created time.Time
	)
	err := row.Scan(&kindStr, &state, &created)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("CHALLENGE_NOT_FOUND").
			With("id", id.String()).
			With("kind", string(kind)).
			Wrap(auth.ErrChallengeNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_UPDATE_FAILED").
			With("operation", "take challenge").
			With("id", id.String()).
			Wrap(err)
	}

	return &auth.Challenge{
		Kind:    auth.ChallengeKind(kindStr),
		State:   state,
		Created: created,
	}, nil
}

// SaveHardwareCredentials replaces the registered credential set.
func (r *UserRepository) SaveHardwareCredentials(ctx context.Context, id ulid.ULID, creds []webauthn.Credential) error {
	credsJSON, err := json.Marshal(creds)
	if err != nil {
		return oops.Code("USER_UPDATE_FAILED").
			With("operation", "marshal hardware credentials").
			Wrap(err)
	}

	result, err := r.pool.Exec(ctx, `
		UPDATE users SET hardware_credentials = $2
		WHERE id = $1
	`, id.String(), credsJSON)
	if err != nil {
		return oops.Code("USER_UPDATE_FAILED").
			With("operation", "save hardware credentials").
			With("id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("USER_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// EnableSecondFactor adds the factor kind to the enabled set; adding an
// already-enabled kind leaves the set unchanged.
func (r *UserRepository) EnableSecondFactor(ctx context.Context, id ulid.ULID, kind auth.SecondFactor) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE users SET second_factors = CASE
			WHEN $2 = ANY(second_factors) THEN second_factors
			ELSE array_append(second_factors, $2)
		END
		WHERE id = $1
	`, id.String(), string(kind))
	if err != nil {
		return oops.Code("USER_UPDATE_FAILED").
			With("operation", "enable second factor").
			With("id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("USER_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// UpdateProgress commits a progression delta, guarded on activation.
func (r *UserRepository) UpdateProgress(ctx context.Context, id ulid.ULID, progress auth.Progress) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE users SET
			solved = $2,
			level = $3,
			score = $4,
			in_room = $5,
			rooms_entered = $6
		WHERE id = $1 AND activated
	`,
		id.String(),
		ulidStrings(progress.Solved),
		progress.Level,
		progress.Score,
		progress.InRoom.String(),
		ulidStrings(progress.RoomsEntered),
	)
	if err != nil {
		return oops.Code("USER_UPDATE_FAILED").
			With("operation", "update progress").
			With("id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("USER_CONFLICT").
			With("id", id.String()).
			Wrap(auth.ErrConflict)
	}
	return nil
}

// UpdateRole changes the stored role.
func (r *UserRepository) UpdateRole(ctx context.Context, id ulid.ULID, role access.Role) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE users SET role = $2
		WHERE id = $1
	`, id.String(), role.String())
	if err != nil {
		return oops.Code("USER_UPDATE_FAILED").
			With("operation", "update role").
			With("id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("USER_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// RewriteScore overwrites the score.
func (r *UserRepository) RewriteScore(ctx context.Context, id ulid.ULID, score uint32) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE users SET score = $2
		WHERE id = $1
	`, id.String(), score)
	if err != nil {
		return oops.Code("USER_UPDATE_FAILED").
			With("operation", "rewrite score").
			With("id", id.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("USER_NOT_FOUND").
			With("id", id.String()).
			Wrap(auth.ErrNotFound)
	}
	return nil
}

// scanUser scans a single row into a User.
// Callers are responsible for handling pgx.ErrNoRows.
func (r *UserRepository) scanUser(row pgx.Row) (*auth.User, error) {
	var (
		idStr        string
		username     string
		email        string
		roleStr      string
		passwordHash string
		pin          *string
		activated    bool
		createdAt    time.Time
		registeredAt *time.Time
		lastLogin    *time.Time
		factors      []string
		totpSecret   []byte
		recoveryKeys []string
		credsJSON    []byte
		awaiting     bool
		inRoomStr    *string
		roomsEntered []string
		solved       []string
		level        uint32
		score        uint32
	)

	err := row.Scan(
		&idStr,
		&username,
		&email,
		&roleStr,
		&passwordHash,
		&pin,
		&activated,
		&createdAt,
		&registeredAt,
		&lastLogin,
		&factors,
		&totpSecret,
		&recoveryKeys,
		&credsJSON,
		&awaiting,
		&inRoomStr,
		&roomsEntered,
		&solved,
		&level,
		&score,
	)
	if err != nil {
		// Propagate pgx.ErrNoRows unchanged for callers to handle with context.
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err //nolint:wrapcheck // Callers wrap with context-specific info
		}
		return nil, oops.Code("USER_SCAN_FAILED").
			With("operation", "scan user").
			Wrap(err)
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("USER_INVALID_ID").
			With("operation", "parse user id").
			With("id", idStr).
			Wrap(err)
	}
	role, err := access.ParseRole(roleStr)
	if err != nil {
		return nil, oops.Code("USER_INVALID_ROLE").
			With("id", idStr).
			Wrap(err)
	}

	var inRoom *ulid.ULID
	if inRoomStr != nil {
		parsed, err := ulid.Parse(*inRoomStr)
		if err != nil {
			return nil, oops.Code("USER_INVALID_ROOM_ID").
				With("operation", "parse in_room id").
				With("in_room", *inRoomStr).
				Wrap(err)
		}
		inRoom = &parsed
	}

	entered, err := parseULIDs(roomsEntered)
	if err != nil {
		return nil, oops.Code("USER_INVALID_ROOM_ID").
			With("operation", "parse rooms_entered").
			Wrap(err)
	}
	solvedIDs, err := parseULIDs(solved)
	if err != nil {
		return nil, oops.Code("USER_INVALID_RIDDLE_ID").
			With("operation", "parse solved").
			Wrap(err)
	}

	var creds []webauthn.Credential
	if len(credsJSON) > 0 {
		if err := json.Unmarshal(credsJSON, &creds); err != nil {
			return nil, oops.Code("USER_INVALID_CREDENTIALS").
				With("operation", "unmarshal hardware credentials").
				Wrap(err)
		}
	}

	secondFactors := make([]auth.SecondFactor, 0, len(factors))
	for _, f := range factors {
		secondFactors = append(secondFactors, auth.SecondFactor(f))
	}

	return &auth.User{
		ID:                   id,
		Username:             username,
		Email:                email,
		Role:                 role,
		PasswordHash:         passwordHash,
		PIN:                  pin,
		Activated:            activated,
		Created:              createdAt,
		Registered:           registeredAt,
		LastLogin:            lastLogin,
		SecondFactors:        secondFactors,
		TOTPSecret:           totpSecret,
		RecoveryKeys:         recoveryKeys,
		HardwareCredentials:  creds,
		AwaitingSecondFactor: awaiting,
		InRoom:               inRoom,
		RoomsEntered:         entered,
		Solved:               solvedIDs,
		Level:                level,
		Score:                score,
	}, nil
}

func factorStrings(factors []auth.SecondFactor) []string {
	out := make([]string, 0, len(factors))
	for _, f := range factors {
		out = append(out, string(f))
	}
	return out
}

func ulidStrings(ids []ulid.ULID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, id.String())
	}
	return out
}

func parseULIDs(strs []string) ([]ulid.ULID, error) {
	out := make([]ulid.ULID, 0, len(strs))
	for _, s := range strs {
		id, err := ulid.Parse(s)
		if err != nil {
			return nil, err //nolint:wrapcheck // Callers wrap with context-specific info
		}
		out = append(out, id)
	}
	return out, nil
}

// Compile-time interface check.
var _ auth.UserRepository = (*UserRepository)(nil)

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Riddlegate Contributors

package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/riddlegate/riddlegate/internal/game"
)

const riddleColumns = `id, difficulty, level, solution, ignore_case, task, debriefing, credits, files`

// RiddleRepository implements game.RiddleRepository using PostgreSQL.
type RiddleRepository struct {
	pool pool
}

// NewRiddleRepository creates a new RiddleRepository.
func NewRiddleRepository(pool pool) *RiddleRepository {
	return &RiddleRepository{pool: pool}
}

// GetRiddle retrieves a riddle by id.
func (r *RiddleRepository) GetRiddle(ctx context.Context, id ulid.ULID) (*game.Riddle, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+riddleColumns+`
		FROM riddles
		WHERE id = $1
	`, id.String())

	riddle, err := r.scanRiddle(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("RIDDLE_NOT_FOUND").
			With("id", id.String()).
			Wrap(game.ErrRiddleNotFound)
	}
	if err != nil {
		return nil, oops.Code("RIDDLE_GET_FAILED").
			With("operation", "get riddle").
			With("id", id.String()).
			Wrap(err)
	}
	return riddle, nil
}

// GetRiddleByLevel retrieves the riddle that gates the given level.
func (r *RiddleRepository) GetRiddleByLevel(ctx context.Context, level uint32) (*game.Riddle, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+riddleColumns+`
		FROM riddles
		WHERE level = $1
	`, level)

	riddle, err := r.scanRiddle(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("RIDDLE_NOT_FOUND").
			With("level", level).
			Wrap(game.ErrRiddleNotFound)
	}
	if err != nil {
		return nil, oops.Code("RIDDLE_GET_FAILED").
			With("operation", "get riddle by level").
			With("level", level).
			Wrap(err)
	}
	return riddle, nil
}

// scanRiddle scans a single row into a Riddle.
// Callers are responsible for handling pgx.ErrNoRows.
func (r *RiddleRepository) scanRiddle(row pgx.Row) (*game.Riddle, error) {
	var (
		idStr      string
		difficulty uint32
		level      uint32
		solution   string
		ignoreCase bool
		task       string
		debriefing string
		credits    string
		files      []string
	)

	err := row.Scan(&idStr, &difficulty, &level, &solution, &ignoreCase, &task, &debriefing, &credits, &files)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err //nolint:wrapcheck // Callers wrap with context-specific info
		}
		return nil, oops.Code("RIDDLE_SCAN_FAILED").
			With("operation", "scan riddle").
			Wrap(err)
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("RIDDLE_INVALID_ID").
			With("id", idStr).
			Wrap(err)
	}

	return &game.Riddle{
		ID:         id,
		Difficulty: difficulty,
		Level:      level,
		Solution:   solution,
		IgnoreCase: ignoreCase,
		Task:       task,
		Debriefing: debriefing,
		Credits:    credits,
		Files:      files,
	}, nil
}

// Compile-time interface check.
var _ game.RiddleRepository = (*RiddleRepository)(nil)

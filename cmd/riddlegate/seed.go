// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Riddlegate Contributors

package main

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/riddlegate/riddlegate/internal/config"
	"github.com/riddlegate/riddlegate/internal/store"
)

// Default timeout for seed command.
const defaultSeedTimeout = 30 * time.Second

// Well-known ids keep the seed idempotent: duplicate runs fail with a
// unique violation instead of creating a second starter graph.
const (
	seedEntryRoomID  = "01HZN3XS000000000000000001"
	seedBehindRoomID = "01HZN3XS000000000000000002"
	seedRiddleID     = "01HZN3XS0000000000000000RD"
)

// seedConfig holds configuration for the seed command.
type seedConfig struct {
	timeout time.Duration
}

// NewSeedCmd creates the seed subcommand.
func NewSeedCmd() *cobra.Command {
	cfg := &seedConfig{}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed the game with a starter room pair and gate riddle",
		Long: `Creates the initial game graph: an entry room, a room behind it, and
the riddle gating the doorway between them. This command is idempotent -
it will not create duplicates if run multiple times.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd, args, cfg)
		},
	}

	cmd.Flags().String("database.url", "", "PostgreSQL connection URL")
	cmd.Flags().DurationVar(&cfg.timeout, "timeout", defaultSeedTimeout, "timeout for database operations (e.g., 30s, 1m)")

	return cmd
}

func runSeed(cmd *cobra.Command, _ []string, seedCfg *seedConfig) error {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return err
	}
	if cfg.Database.URL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("database.url is required")
	}

	// Add timeout to prevent indefinite hangs
	// Use cmd.Context() to respect SIGINT/SIGTERM signals
	ctx, cancel := context.WithTimeout(cmd.Context(), seedCfg.timeout)
	defer cancel()

	cmd.Println("Connecting to database...")
	pool, err := store.Connect(ctx, cfg.Database.URL, slog.Default())
	if err != nil {
		return err
	}
	defer pool.Close()

	cmd.Println("Running migrations...")
	if err := migrateUp(cfg.Database.URL); err != nil {
		return err
	}

	// Validate the well-known ids up front; a typo here must not reach
	// the database.
	for _, raw := range []string{seedEntryRoomID, seedBehindRoomID, seedRiddleID} {
		if _, parseErr := ulid.Parse(raw); parseErr != nil {
			return oops.Code("SEED_FAILED").With("id", raw).Wrap(parseErr)
		}
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return oops.Code("SEED_FAILED").With("operation", "begin transaction").Wrap(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO rooms (id, idx, x, y, entry, exit)
		VALUES ($1, 0, 0, 0, TRUE, FALSE), ($2, 1, 0, 1, FALSE, TRUE)
	`, seedEntryRoomID, seedBehindRoomID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			cmd.Println("Starter rooms already exist, skipping seed")
			slog.Info("game already seeded", "entry_room", seedEntryRoomID)
			return nil
		}
		return oops.Code("SEED_FAILED").With("operation", "create starter rooms").Wrap(err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO riddles (id, difficulty, level, solution, ignore_case, task, debriefing, credits)
		VALUES ($1, 10, 0, $2, TRUE, $3, $4, 'Riddlegate')
	`, seedRiddleID,
		"echo",
		"I speak without a mouth and hear without ears. I have no body, but I come alive with wind. What am I?",
		"The gate swings open. Sound carried you through where no body could pass.")
	if err != nil {
		return oops.Code("SEED_FAILED").With("operation", "create gate riddle").Wrap(err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO doorways (room_id, position, direction, riddle_id)
		VALUES ($1, 0, 'north', $3), ($2, 0, 'south', $3)
	`, seedEntryRoomID, seedBehindRoomID, seedRiddleID)
	if err != nil {
		return oops.Code("SEED_FAILED").With("operation", "create doorways").Wrap(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return oops.Code("SEED_FAILED").With("operation", "commit").Wrap(err)
	}

	cmd.Println("Created starter rooms and gate riddle")
	slog.Info("seeded starter graph",
		"entry_room", seedEntryRoomID,
		"room_behind", seedBehindRoomID,
		"riddle", seedRiddleID)

	cmd.Println("Game seeding complete!")
	return nil
}

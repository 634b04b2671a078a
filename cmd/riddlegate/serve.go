// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Riddlegate Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/riddlegate/riddlegate/internal/auth"
	authpg "github.com/riddlegate/riddlegate/internal/auth/postgres"
	"github.com/riddlegate/riddlegate/internal/config"
	"github.com/riddlegate/riddlegate/internal/game"
	gamepg "github.com/riddlegate/riddlegate/internal/game/postgres"
	"github.com/riddlegate/riddlegate/internal/logging"
	"github.com/riddlegate/riddlegate/internal/observability"
	"github.com/riddlegate/riddlegate/internal/store"
)

const shutdownTimeout = 5 * time.Second

// application bundles the wired service layer. Transport handlers attach
// to these services; their wire schema lives outside this repository.
type application struct {
	logins   *auth.Service
	accounts *auth.AccountService
	graph    *game.Service
}

// wired reports whether every service the transport layer depends on has
// been constructed. It feeds the readiness probe.
func (a *application) wired() bool {
	return a != nil && a.logins != nil && a.accounts != nil && a.graph != nil
}

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the Riddlegate server",
		Long: `Start the server process: connects to PostgreSQL, applies pending
migrations, wires the authentication and game services, and serves
metrics and health probes.`,
		RunE: runServe,
	}

	// Flags map directly to config keys and override the config file.
	cmd.Flags().String("database.url", "", "PostgreSQL connection URL")
	cmd.Flags().String("observability.addr", "127.0.0.1:9100", "metrics/health HTTP address")
	cmd.Flags().String("logging.format", "json", "log format (json or text)")
	cmd.Flags().String("logging.level", "info", "log level (debug, info, warn, error)")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logging.SetDefault("riddlegate", version, cfg.Logging.Format, logging.ParseLevel(cfg.Logging.Level))

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	slog.Info("starting riddlegate server")

	pool, err := store.Connect(ctx, cfg.Database.URL, slog.Default())
	if err != nil {
		return err
	}
	defer pool.Close()

	slog.Info("connected to database")

	if err := migrateUp(cfg.Database.URL); err != nil {
		return err
	}

	slog.Info("database schema up to date")

	// Not ready until the service layer is wired and the database answers.
	var app *application
	obsServer := observability.NewServer(cfg.Observability.Addr, func() bool {
		if !app.wired() {
			return false
		}
		pingCtx, pingCancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer pingCancel()
		return pool.Ping(pingCtx) == nil
	})

	app, err = buildApplication(cfg, pool, obsServer.Metrics())
	if err != nil {
		return err
	}

	obsErrChan, err := obsServer.Start()
	if err != nil {
		return oops.Code("SERVE_FAILED").With("operation", "start observability server").Wrap(err)
	}
	// Monitor observability server errors - cancel context on error
	go monitorServerErrors(ctx, cancel, obsErrChan, "observability")

	cmd.Println("Riddlegate server started")
	slog.Info("riddlegate server ready", "metrics_addr", obsServer.Addr())

	// Handle signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	// Wait for shutdown signal or server failure
	select {
	case sig := <-sigChan:
		slog.Info("received shutdown signal", "signal", sig)
	case <-ctx.Done():
		slog.Info("context cancelled, shutting down")
	}

	slog.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := obsServer.Stop(shutdownCtx); err != nil {
		slog.Warn("error stopping observability server", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}

// migrateUp applies all pending migrations.
func migrateUp(databaseURL string) error {
	migrator, err := store.NewMigrator(databaseURL)
	if err != nil {
		return err
	}
	if err := migrator.Up(); err != nil {
		_ = migrator.Close()
		return err
	}
	return migrator.Close()
}

// buildApplication wires repositories and services onto the pool.
func buildApplication(cfg *config.Config, pool *pgxpool.Pool, metrics *observability.Metrics) (*application, error) {
	users := authpg.NewUserRepository(pool)
	rooms := gamepg.NewRoomRepository(pool)
	riddles := gamepg.NewRiddleRepository(pool)

	hasher := auth.NewArgon2idHasher()
	oneTimeCodes := auth.NewOneTimeCodeVerifier(cfg.TOTP.Issuer)

	hardwareKeys, err := auth.NewHardwareKeys(auth.HardwareKeyConfig{
		RPDisplayName: cfg.WebAuthn.RPDisplayName,
		RPID:          cfg.WebAuthn.RPID,
		RPOrigins:     cfg.WebAuthn.RPOrigins,
	})
	if err != nil {
		return nil, err
	}

	tokens, err := auth.NewTokenIssuer([]byte(cfg.Token.Secret), cfg.Token.Issuer, cfg.Token.TTL)
	if err != nil {
		return nil, err
	}

	logins, err := auth.NewService(auth.ServiceConfig{
		Users:        users,
		Hasher:       hasher,
		OneTimeCodes: oneTimeCodes,
		HardwareKeys: hardwareKeys,
		Tokens:       tokens,
		Metrics:      metrics,
	})
	if err != nil {
		return nil, err
	}

	accounts, err := auth.NewAccountService(auth.AccountConfig{
		Users:        users,
		Hasher:       hasher,
		OneTimeCodes: oneTimeCodes,
		EntryRooms:   rooms,
	})
	if err != nil {
		return nil, err
	}

	graph, err := game.NewService(game.ServiceConfig{
		Users:   users,
		Rooms:   rooms,
		Riddles: riddles,
		Metrics: metrics,
	})
	if err != nil {
		return nil, err
	}

	return &application{
		logins:   logins,
		accounts: accounts,
		graph:    graph,
	}, nil
}

// monitorServerErrors monitors a server's error channel and cancels the context on error.
// It exits when either an error is received, the channel is closed, or the context is cancelled.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			// Channel closed, server stopped gracefully
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
		// Context cancelled, exit monitoring
	}
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Riddlegate Contributors

package game

import (
	"context"
	"log/slog"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/riddlegate/riddlegate/internal/auth"
)

// UserStore is the slice of the user repository the graph needs. It
// mirrors internal/auth.UserRepository so the packages stay decoupled.
type UserStore interface {
	GetByUsername(ctx context.Context, username string) (*auth.User, error)
	UpdateProgress(ctx context.Context, id ulid.ULID, progress auth.Progress) error
}

// MetricsRecorder receives access-control outcome counts.
type MetricsRecorder interface {
	RiddleAccess(outcome string)
	RiddleSolved()
}

type noopMetrics struct{}

func (noopMetrics) RiddleAccess(string) {}
func (noopMetrics) RiddleSolved()       {}

// ServiceConfig holds dependencies for Service.
type ServiceConfig struct {
	Users   UserStore
	Rooms   RoomRepository
	Riddles RiddleRepository
	Logger  *slog.Logger
	Metrics MetricsRecorder
}

// Service answers reachability queries over the room graph and advances
// users through it. It holds no state of its own; every request is
// resolved against the stores.
type Service struct {
	users   UserStore
	rooms   RoomRepository
	riddles RiddleRepository
	logger  *slog.Logger
	metrics MetricsRecorder
}

// NewService creates a new Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Users == nil {
		return nil, oops.Errorf("user store is required")
	}
	if cfg.Rooms == nil {
		return nil, oops.Errorf("room repository is required")
	}
	if cfg.Riddles == nil {
		return nil, oops.Errorf("riddle repository is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = noopMetrics{}
	}
	return &Service{
		users:   cfg.Users,
		rooms:   cfg.Rooms,
		riddles: cfg.Riddles,
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
	}, nil
}

// AccessibleRiddle returns the riddle iff it gates a doorway of the
// user's current room. A riddle that exists elsewhere in the graph but
// not here is denied with the same error as one that does not exist at
// all, so a prober cannot map the graph by id guessing.
func (s *Service) AccessibleRiddle(ctx context.Context, username string, riddleID ulid.ULID) (*Riddle, error) {
	_, _, riddle, err := s.resolveDoorway(ctx, username, riddleID)
	if err != nil {
		s.metrics.RiddleAccess("denied")
		return nil, err
	}
	s.metrics.RiddleAccess("granted")
	return riddle, nil
}

// AdvanceOnSolve checks a submitted solution and, on a match, moves the
// user through the doorway. The solved set is idempotent: re-solving an
// already-solved riddle moves the user again but never duplicates the id
// or double-awards score. The whole progression delta commits in one
// guarded update.
func (s *Service) AdvanceOnSolve(ctx context.Context, username string, riddleID ulid.ULID, solution string) (*Room, error) {
	user, doorway, riddle, err := s.resolveDoorway(ctx, username, riddleID)
	if err != nil {
		return nil, err
	}

	if !riddle.CheckSolution(solution) {
		return nil, oops.Code("GAME_RIDDLE_NOT_SOLVED").
			With("riddle_id", riddleID.String()).
			Wrap(ErrRiddleNotSolved)
	}

	opposite, err := OppositeDirection(doorway.Direction)
	if err != nil {
		return nil, err
	}
	behind, err := s.rooms.RoomBehind(ctx, opposite, riddleID)
	if err != nil {
		return nil, err
	}

	progress := auth.Progress{
		Solved:       user.Solved,
		Level:        user.Level,
		Score:        user.Score,
		InRoom:       behind.ID,
		RoomsEntered: append(user.RoomsEntered, behind.ID),
	}
	if !user.HasSolved(riddleID) {
		progress.Solved = append(progress.Solved, riddleID)
		progress.Level = user.Level + 1
		progress.Score = user.Score + riddle.Award()
	}

	if err := s.users.UpdateProgress(ctx, user.ID, progress); err != nil {
		return nil, oops.Code("GAME_ADVANCE_FAILED").
			With("username", username).
			With("riddle_id", riddleID.String()).
			Wrap(err)
	}

	s.metrics.RiddleSolved()
	s.logger.Info("riddle solved",
		"username", username,
		"riddle_id", riddleID.String(),
		"room_id", behind.ID.String())
	return behind, nil
}

// CurrentRiddle returns the riddle gating the user's current level, the
// next puzzle on the user's path. Reachability is not checked here; the
// riddle still has to be fetched through AccessibleRiddle to be played.
func (s *Service) CurrentRiddle(ctx context.Context, username string) (*Riddle, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, oops.Code("GAME_USER_NOT_FOUND").Wrap(err)
	}

	riddle, err := s.riddles.GetRiddleByLevel(ctx, user.Level)
	if err != nil {
		return nil, oops.Code("GAME_RIDDLE_LOOKUP_FAILED").
			With("level", user.Level).
			Wrap(err)
	}
	return riddle, nil
}

// SolvedRiddle returns a riddle the user has already solved, for
// revisiting its debriefing. Unsolved riddles are denied regardless of
// reachability.
func (s *Service) SolvedRiddle(ctx context.Context, username string, riddleID ulid.ULID) (*Riddle, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, oops.Code("GAME_USER_NOT_FOUND").Wrap(err)
	}
	if !user.HasSolved(riddleID) {
		return nil, oops.Code("GAME_RIDDLE_NOT_SOLVED").
			With("riddle_id", riddleID.String()).
			Wrap(ErrRiddleNotSolved)
	}

	riddle, err := s.riddles.GetRiddle(ctx, riddleID)
	if err != nil {
		return nil, oops.Code("GAME_RIDDLE_LOOKUP_FAILED").
			With("riddle_id", riddleID.String()).
			Wrap(err)
	}
	return riddle, nil
}

// resolveDoorway runs the shared accessibility checks: user exists, user
// is in a room, the room exists, and the riddle gates one of its
// doorways.
func (s *Service) resolveDoorway(ctx context.Context, username string, riddleID ulid.ULID) (*auth.User, Doorway, *Riddle, error) {
	user, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, Doorway{}, nil, oops.Code("GAME_USER_NOT_FOUND").Wrap(err)
	}
	if user.InRoom == nil {
		return nil, Doorway{}, nil, oops.Code("GAME_USER_NOT_IN_ROOM").
			With("username", username).
			Wrap(ErrUserNotInAnyRoom)
	}

	room, err := s.rooms.GetRoom(ctx, *user.InRoom)
	if err != nil {
		return nil, Doorway{}, nil, oops.Code("GAME_ROOM_LOOKUP_FAILED").
			With("room_id", user.InRoom.String()).
			Wrap(err)
	}

	doorway, ok := room.DoorwayTo(riddleID)
	if !ok {
		return nil, Doorway{}, nil, oops.Code("GAME_DOORWAY_NOT_ACCESSIBLE").
			With("room_id", room.ID.String()).
			Wrap(ErrDoorwayNotAccessible)
	}

	riddle, err := s.riddles.GetRiddle(ctx, riddleID)
	if err != nil {
		return nil, Doorway{}, nil, oops.Code("GAME_RIDDLE_LOOKUP_FAILED").
			With("riddle_id", riddleID.String()).
			Wrap(err)
	}
	return user, doorway, riddle, nil
}

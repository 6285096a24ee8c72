// Package session coordinates tutoring sessions: it owns session
// lifecycle, serializes concurrent submissions per session, checkpoints
// pipeline progress to the store, and formats API snapshots.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ashureev/simtutor/internal/domain"
	"github.com/ashureev/simtutor/internal/simulation"
	"github.com/ashureev/simtutor/internal/store"
	"github.com/ashureev/simtutor/internal/teaching"
)

var (
	// ErrUnknownSimulation is returned when a session references a
	// simulation id not present in the catalog.
	ErrUnknownSimulation = errors.New("unknown simulation")

	// ErrSessionNotFound is returned when no session exists for the id.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionBusy is returned when another submission for the same
	// session is still in flight. Interleaved mutations have no merge
	// semantics, so the later caller is rejected rather than queued.
	ErrSessionBusy = errors.New("session busy")
)

// Service runs the teaching pipeline against persisted session state.
type Service struct {
	repo     store.Repository
	pipeline *teaching.Pipeline
	catalog  *simulation.Catalog
	baseURL  string

	// One mutex per session id, created on demand. Entries are tiny
	// and live for the process lifetime.
	locks sync.Map
}

// NewService creates the session service. baseURL is the root the
// simulation HTML pages are served from.
func NewService(repo store.Repository, pipeline *teaching.Pipeline, catalog *simulation.Catalog, baseURL string) *Service {
	return &Service{
		repo:     repo,
		pipeline: pipeline,
		catalog:  catalog,
		baseURL:  baseURL,
	}
}

func (s *Service) lockFor(sessionID string) *sync.Mutex {
	mu, _ := s.locks.LoadOrStore(sessionID, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// Start creates a session for the simulation, runs the pipeline to the
// first teacher message, and returns the formatted snapshot.
func (s *Service) Start(ctx context.Context, simulationID, studentID string) (*Snapshot, error) {
	sim, ok := s.catalog.Get(simulationID)
	if !ok {
		return nil, fmt.Errorf("%w: %s (available: %v)", ErrUnknownSimulation, simulationID, s.catalog.IDs())
	}

	sessionID := uuid.NewString()
	state := domain.NewTeachingState(sessionID, simulationID, studentID, sim.Description, sim.InitialParams)

	mu := s.lockFor(sessionID)
	mu.Lock()
	defer mu.Unlock()

	if err := s.pipeline.Advance(ctx, state, sim, s.checkpoint); err != nil {
		return nil, fmt.Errorf("start session %s: %w", sessionID, err)
	}

	slog.Info("session started",
		"session_id", sessionID, "simulation_id", simulationID, "concepts", len(state.Concepts))
	return s.snapshot(state, sim), nil
}

// Respond applies the student's input to a suspended session and runs
// the pipeline until it suspends again or completes.
func (s *Service) Respond(ctx context.Context, sessionID, input string) (*Snapshot, error) {
	mu := s.lockFor(sessionID)
	if !mu.TryLock() {
		return nil, fmt.Errorf("%w: %s", ErrSessionBusy, sessionID)
	}
	defer mu.Unlock()

	state, err := s.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", sessionID, err)
	}
	if state == nil {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}

	sim, ok := s.catalog.Get(state.SimulationID)
	if !ok {
		return nil, fmt.Errorf("%w: session %s references %s", ErrUnknownSimulation, sessionID, state.SimulationID)
	}

	if state.SessionComplete {
		// Completed sessions are read-only; return the final snapshot.
		return s.snapshot(state, sim), nil
	}

	if err := s.pipeline.Resume(ctx, state, sim, input, s.checkpoint); err != nil {
		return nil, fmt.Errorf("resume session %s: %w", sessionID, err)
	}
	return s.snapshot(state, sim), nil
}

// Get returns the current snapshot without mutating the session.
func (s *Service) Get(ctx context.Context, sessionID string) (*Snapshot, error) {
	state, err := s.repo.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", sessionID, err)
	}
	if state == nil {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}

	sim, ok := s.catalog.Get(state.SimulationID)
	if !ok {
		return nil, fmt.Errorf("%w: session %s references %s", ErrUnknownSimulation, sessionID, state.SimulationID)
	}
	return s.snapshot(state, sim), nil
}

func (s *Service) checkpoint(ctx context.Context, state *domain.TeachingState) error {
	return s.repo.SaveSession(ctx, state)
}

// StartCleanupWorker purges expired session checkpoints until ctx is
// cancelled. It returns immediately; the worker runs in the background.
func (s *Service) StartCleanupWorker(ctx context.Context, interval, ttl time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				deleted, err := s.repo.CleanupExpiredSessions(ctx, ttl)
				if err != nil {
					slog.Error("session cleanup failed", "error", err)
					continue
				}
				if deleted > 0 {
					slog.Info("expired sessions purged", "count", deleted, "ttl", ttl)
				}
			}
		}
	}()
}

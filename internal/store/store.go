// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"github.com/ashureev/simtutor/internal/domain"
)

// Repository defines the interface for persisting tutoring session state.
type Repository interface {
	// GetSession retrieves a session's checkpointed state. A missing
	// session returns (nil, nil).
	GetSession(ctx context.Context, sessionID string) (*domain.TeachingState, error)

	// SaveSession creates or replaces the full checkpointed state.
	SaveSession(ctx context.Context, state *domain.TeachingState) error

	// DeleteSession removes a session.
	DeleteSession(ctx context.Context, sessionID string) error

	// CleanupExpiredSessions removes sessions not updated within the TTL.
	CleanupExpiredSessions(ctx context.Context, ttl time.Duration) (int64, error)

	// Ping verifies database connectivity and returns an error if the database is unreachable.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}

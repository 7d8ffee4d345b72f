// Package store provides persistence for completed verifications.
package store

import (
	"context"

	"github.com/ashureev/gatekeeper/internal/domain"
)

// Repository records completed verifications. In-flight sessions are never
// persisted.
type Repository interface {
	// RecordVerification stores a completed verification and sets its ID.
	RecordVerification(ctx context.Context, v *domain.Verification) error

	// ListVerifications returns the most recent verifications, newest first.
	ListVerifications(ctx context.Context, limit int) ([]*domain.Verification, error)

	// CountVerifications returns the number of recorded verifications for a user.
	CountVerifications(ctx context.Context, userID string) (int, error)

	// Ping verifies database connectivity and returns an error if the database is unreachable.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}

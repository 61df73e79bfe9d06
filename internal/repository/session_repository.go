package repository

import (
	"context"
	"errors"
	"time"
)

// ErrInvalidTTL is returned when a refresh record would be stored without expiry
var ErrInvalidTTL = errors.New("session ttl must be positive")

// SessionStore holds the current refresh token per user and the revoked
// access-token ids. Infrastructure failures are returned as errors and never
// folded into a "not found" or "not revoked" outcome.
type SessionStore interface {
	// PutRefresh replaces the stored refresh token for username
	PutRefresh(ctx context.Context, username, token string, ttl time.Duration) error
	// GetRefresh returns the stored refresh token; found is false when absent
	GetRefresh(ctx context.Context, username string) (token string, found bool, err error)
	// DeleteRefresh removes the refresh record; absent is not an error
	DeleteRefresh(ctx context.Context, username string) error
	// RotateRefresh stores next only if the current record equals expected.
	// Returns false without writing when it does not.
	RotateRefresh(ctx context.Context, username, expected, next string, ttl time.Duration) (bool, error)
	// PutRevocation marks tokenID revoked for ttl; ttl <= 0 is a no-op
	PutRevocation(ctx context.Context, tokenID string, ttl time.Duration) error
	// IsRevoked reports whether tokenID has a live revocation record
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

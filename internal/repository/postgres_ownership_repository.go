package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/prohmpiriya/tenant-auth/internal/domain"
)

// ErrUnknownResourceType is returned for a resource type with no owner column
var ErrUnknownResourceType = errors.New("unknown resource type")

// owner lookup per resource type; only types listed here have an owner
var ownerQueries = map[string]string{
	domain.ResourceBoard: `SELECT author_id FROM boards WHERE id = $1`,
}

// PostgresOwnershipRepository resolves the owner principal id of a resource
type PostgresOwnershipRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresOwnershipRepository creates a new PostgresOwnershipRepository
func NewPostgresOwnershipRepository(pool *pgxpool.Pool) *PostgresOwnershipRepository {
	return &PostgresOwnershipRepository{pool: pool}
}

// FindOwnerID returns the owner id; found is false when the resource does not exist
func (r *PostgresOwnershipRepository) FindOwnerID(ctx context.Context, resourceType string, resourceID int64) (int64, bool, error) {
	query, ok := ownerQueries[resourceType]
	if !ok {
		return 0, false, fmt.Errorf("%w: %s", ErrUnknownResourceType, resourceType)
	}

	var ownerID int64
	if err := r.pool.QueryRow(ctx, query, resourceID).Scan(&ownerID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("failed to find %s owner: %w", resourceType, err)
	}
	return ownerID, true, nil
}

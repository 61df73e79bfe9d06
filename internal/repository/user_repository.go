package repository

import (
	"context"
	"errors"

	"github.com/prohmpiriya/tenant-auth/internal/domain"
)

// ErrDuplicate is returned when a unique constraint rejects a write
var ErrDuplicate = errors.New("record already exists")

// UserRepository defines the interface for user data access.
// Lookups return (nil, nil) when the user does not exist.
type UserRepository interface {
	// Create inserts user and sets its ID and timestamps
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	// FindByUsername is the principal lookup used by login, refresh and the auth gate
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	// Update writes email, password hash and role; false when no row matched
	Update(ctx context.Context, user *domain.User) (bool, error)
	// Delete returns false when no row matched
	Delete(ctx context.Context, id int64) (bool, error)
	List(ctx context.Context, limit, offset int) ([]*domain.User, error)
}

// BoardRepository defines the interface for board data access
type BoardRepository interface {
	Create(ctx context.Context, board *domain.Board) error
	GetByID(ctx context.Context, id int64) (*domain.Board, error)
	Update(ctx context.Context, board *domain.Board) (bool, error)
	Delete(ctx context.Context, id int64) (bool, error)
	// List returns one page of boards whose title or content contains keyword
	// (case-insensitive, empty matches all), newest first, with the total match count.
	List(ctx context.Context, keyword string, limit, offset int) ([]*domain.Board, int, error)
}

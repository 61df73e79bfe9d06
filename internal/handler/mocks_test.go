package handler

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/prohmpiriya/tenant-auth/internal/domain"
	"github.com/prohmpiriya/tenant-auth/internal/repository"
)

// memUserRepository is an in-memory UserRepository
type memUserRepository struct {
	mu     sync.Mutex
	users  map[int64]*domain.User
	nextID int64
}

func newMemUserRepository() *memUserRepository {
	return &memUserRepository{users: make(map[int64]*domain.User), nextID: 1}
}

func (r *memUserRepository) Create(ctx context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == user.Username || u.Email == user.Email {
			return repository.ErrDuplicate
		}
	}
	user.ID = r.nextID
	r.nextID++
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	copied := *user
	r.users[user.ID] = &copied
	return nil
}

func (r *memUserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, nil
}

func (r *memUserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == username {
			copied := *u
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *memUserRepository) Update(ctx context.Context, user *domain.User) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return false, nil
	}
	copied := *user
	r.users[user.ID] = &copied
	return true, nil
}

func (r *memUserRepository) Delete(ctx context.Context, id int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return false, nil
	}
	delete(r.users, id)
	return true, nil
}

func (r *memUserRepository) List(ctx context.Context, limit, offset int) ([]*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// memBoardRepository is an in-memory BoardRepository that also answers ownership lookups
type memBoardRepository struct {
	mu     sync.Mutex
	boards map[int64]*domain.Board
	nextID int64
}

func newMemBoardRepository() *memBoardRepository {
	return &memBoardRepository{boards: make(map[int64]*domain.Board), nextID: 1}
}

func (r *memBoardRepository) Create(ctx context.Context, board *domain.Board) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	board.ID = r.nextID
	r.nextID++
	board.CreatedAt = time.Now()
	board.UpdatedAt = board.CreatedAt
	copied := *board
	r.boards[board.ID] = &copied
	return nil
}

func (r *memBoardRepository) GetByID(ctx context.Context, id int64) (*domain.Board, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.boards[id]; ok {
		copied := *b
		return &copied, nil
	}
	return nil, nil
}

func (r *memBoardRepository) Update(ctx context.Context, board *domain.Board) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.boards[board.ID]
	if !ok {
		return false, nil
	}
	existing.Title = board.Title
	existing.Content = board.Content
	existing.UpdatedAt = time.Now()
	board.AuthorID = existing.AuthorID
	board.CreatedAt = existing.CreatedAt
	board.UpdatedAt = existing.UpdatedAt
	return true, nil
}

func (r *memBoardRepository) Delete(ctx context.Context, id int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.boards[id]; !ok {
		return false, nil
	}
	delete(r.boards, id)
	return true, nil
}

func (r *memBoardRepository) List(ctx context.Context, keyword string, limit, offset int) ([]*domain.Board, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	keyword = strings.ToLower(keyword)
	matched := make([]*domain.Board, 0, len(r.boards))
	for _, b := range r.boards {
		if strings.Contains(strings.ToLower(b.Title), keyword) || strings.Contains(strings.ToLower(b.Content), keyword) {
			matched = append(matched, b)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })

	total := len(matched)
	if offset >= total {
		return nil, total, nil
	}
	return matched[offset:min(offset+limit, total)], total, nil
}

func (r *memBoardRepository) FindOwnerID(ctx context.Context, resourceType string, id int64) (int64, bool, error) {
	if resourceType != domain.ResourceBoard {
		return 0, false, repository.ErrUnknownResourceType
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.boards[id]
	if !ok {
		return 0, false, nil
	}
	return b.AuthorID, true, nil
}

type fakeChecker struct{ err error }

func (f fakeChecker) HealthCheck(ctx context.Context) error { return f.err }

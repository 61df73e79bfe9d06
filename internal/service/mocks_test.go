package service

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/prohmpiriya/tenant-auth/internal/domain"
	"github.com/prohmpiriya/tenant-auth/internal/events"
	"github.com/prohmpiriya/tenant-auth/internal/repository"
	pkgredis "github.com/prohmpiriya/tenant-auth/pkg/redis"
)

// mockUserRepository is an in-memory UserRepository
type mockUserRepository struct {
	mu        sync.Mutex
	users     map[int64]*domain.User
	nextID    int64
	findError error
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{users: make(map[int64]*domain.User), nextID: 1}
}

func (r *mockUserRepository) add(t *testing.T, username, password string, role domain.Role) *domain.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	user := &domain.User{Username: username, Email: username + "@example.com", PasswordHash: string(hash), Role: role}
	require.NoError(t, r.Create(context.Background(), user))
	return user
}

func (r *mockUserRepository) Create(ctx context.Context, user *domain.User) error {
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

func (r *mockUserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if u, ok := r.users[id]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, nil
}

func (r *mockUserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findError != nil {
		return nil, r.findError
	}
	for _, u := range r.users {
		if u.Username == username {
			copied := *u
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *mockUserRepository) Update(ctx context.Context, user *domain.User) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return false, nil
	}
	copied := *user
	r.users[user.ID] = &copied
	return true, nil
}

func (r *mockUserRepository) Delete(ctx context.Context, id int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return false, nil
	}
	delete(r.users, id)
	return true, nil
}

func (r *mockUserRepository) List(ctx context.Context, limit, offset int) ([]*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.User
	for id := int64(1); id < r.nextID; id++ {
		if u, ok := r.users[id]; ok {
			out = append(out, u)
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// mockBoardRepository is an in-memory BoardRepository
type mockBoardRepository struct {
	boards      map[int64]*domain.Board
	nextID      int64
	lastKeyword string
}

func newMockBoardRepository() *mockBoardRepository {
	return &mockBoardRepository{boards: make(map[int64]*domain.Board), nextID: 1}
}

func (r *mockBoardRepository) Create(ctx context.Context, board *domain.Board) error {
	board.ID = r.nextID
	r.nextID++
	board.CreatedAt = time.Now()
	board.UpdatedAt = board.CreatedAt
	copied := *board
	r.boards[board.ID] = &copied
	return nil
}

func (r *mockBoardRepository) GetByID(ctx context.Context, id int64) (*domain.Board, error) {
	return r.boards[id], nil
}

func (r *mockBoardRepository) Update(ctx context.Context, board *domain.Board) (bool, error) {
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

func (r *mockBoardRepository) Delete(ctx context.Context, id int64) (bool, error) {
	if _, ok := r.boards[id]; !ok {
		return false, nil
	}
	delete(r.boards, id)
	return true, nil
}

func (r *mockBoardRepository) List(ctx context.Context, keyword string, limit, offset int) ([]*domain.Board, int, error) {
	r.lastKeyword = keyword
	var matched []*domain.Board
	for _, b := range r.boards {
		if strings.Contains(b.Title, keyword) || strings.Contains(b.Content, keyword) {
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

// recordingPublisher keeps published events in memory
type recordingPublisher struct {
	mu     sync.Mutex
	events []*events.SessionEvent
}

func (p *recordingPublisher) Publish(ctx context.Context, event *events.SessionEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Close() {}

func (p *recordingPublisher) types() []events.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.EventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

// newSessionStore returns a Redis session store backed by miniredis
func newSessionStore(t *testing.T) (*repository.RedisSessionRepository, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)

	cfg := pkgredis.DefaultConfig()
	cfg.Host = mr.Host()
	cfg.Port = port
	cfg.MaxRetries = 0

	client, err := pkgredis.NewClient(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	return repository.NewRedisSessionRepository(client), mr
}

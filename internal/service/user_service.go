package service

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/crypto/bcrypt"

	"github.com/prohmpiriya/tenant-auth/internal/domain"
	"github.com/prohmpiriya/tenant-auth/internal/dto"
	"github.com/prohmpiriya/tenant-auth/internal/repository"
	"github.com/prohmpiriya/tenant-auth/pkg/telemetry"
)

var (
	ErrUserAlreadyExists = errors.New("user already exists")
	ErrUserNotFound      = errors.New("user not found")
)

// UserService manages user records
type UserService interface {
	// Register creates a ROLE_USER account
	Register(ctx context.Context, req *dto.RegisterRequest) (*domain.User, error)
	// Create is the admin variant that may set the role
	Create(ctx context.Context, req *dto.CreateUserRequest) (*domain.User, error)
	Get(ctx context.Context, id int64) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	// Update applies req; a role change is honoured only when actor is an admin
	Update(ctx context.Context, id int64, req *dto.UpdateUserRequest, actor *domain.Principal) (*domain.User, error)
	// Delete removes the user and ends its refresh session
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, limit, offset int) ([]*domain.User, error)
}

type userService struct {
	users      repository.UserRepository
	sessions   repository.SessionStore
	bcryptCost int
}

// NewUserService creates a new UserService
func NewUserService(users repository.UserRepository, sessions repository.SessionStore, bcryptCost int) UserService {
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &userService{users: users, sessions: sessions, bcryptCost: bcryptCost}
}

func (s *userService) Register(ctx context.Context, req *dto.RegisterRequest) (*domain.User, error) {
	return s.create(ctx, req, domain.RoleUser)
}

func (s *userService) Create(ctx context.Context, req *dto.CreateUserRequest) (*domain.User, error) {
	role := req.Role
	if role == "" {
		role = domain.RoleUser
	}
	return s.create(ctx, &req.RegisterRequest, role)
}

func (s *userService) create(ctx context.Context, req *dto.RegisterRequest, role domain.Role) (*domain.User, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.user.create")
	defer span.End()

	span.SetAttributes(attribute.String("username", req.Username), attribute.String("role", string(role)))

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &domain.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
		Role:         role,
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrUserAlreadyExists
		}
		telemetry.RecordError(span, err)
		return nil, err
	}
	return user, nil
}

func (s *userService) Get(ctx context.Context, id int64) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (s *userService) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (s *userService) Update(ctx context.Context, id int64, req *dto.UpdateUserRequest, actor *domain.Principal) (*domain.User, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.user.update")
	defer span.End()

	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Email != "" {
		user.Email = req.Email
	}
	if req.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.bcryptCost)
		if err != nil {
			telemetry.RecordError(span, err)
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
		user.PasswordHash = string(hash)
	}
	if req.Role != "" && actor.IsAdmin() {
		user.Role = req.Role
	}

	ok, err := s.users.Update(ctx, user)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrUserAlreadyExists
		}
		telemetry.RecordError(span, err)
		return nil, err
	}
	if !ok {
		return nil, ErrUserNotFound
	}

	// A new password ends the stored session; the old refresh token must not outlive it
	if req.Password != "" {
		if err := s.sessions.DeleteRefresh(ctx, user.Username); err != nil {
			telemetry.RecordError(span, err)
			return nil, err
		}
	}
	return user, nil
}

func (s *userService) Delete(ctx context.Context, id int64) error {
	ctx, span := telemetry.StartSpan(ctx, "service.user.delete")
	defer span.End()

	user, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	ok, err := s.users.Delete(ctx, id)
	if err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	if !ok {
		return ErrUserNotFound
	}

	// Outstanding access tokens lapse on their own; the gate finds no principal for them
	if err := s.sessions.DeleteRefresh(ctx, user.Username); err != nil {
		telemetry.RecordError(span, err)
		return err
	}
	return nil
}

func (s *userService) List(ctx context.Context, limit, offset int) ([]*domain.User, error) {
	return s.users.List(ctx, limit, offset)
}

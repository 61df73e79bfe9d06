package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/prohmpiriya/tenant-auth/internal/dto"
	"github.com/prohmpiriya/tenant-auth/internal/events"
	"github.com/prohmpiriya/tenant-auth/internal/repository"
	"github.com/prohmpiriya/tenant-auth/internal/token"
	"github.com/prohmpiriya/tenant-auth/pkg/logger"
	"github.com/prohmpiriya/tenant-auth/pkg/telemetry"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidToken       = errors.New("invalid token")
)

// TokenServiceConfig holds token lifetimes
type TokenServiceConfig struct {
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

// TokenService issues, rotates and revokes session tokens
type TokenService interface {
	// Login verifies credentials and issues an access/refresh pair
	Login(ctx context.Context, username, password string) (*dto.TokenResponse, error)
	// Refresh exchanges the current refresh token for a new pair
	Refresh(ctx context.Context, refreshToken string) (*dto.TokenResponse, error)
	// Logout revokes the access token and ends the user's refresh session
	Logout(ctx context.Context, accessToken string) error
}

type tokenService struct {
	codec      *token.Codec
	sessions   repository.SessionStore
	verifier   *CredentialVerifier
	principals PrincipalStore
	events     events.Publisher
	config     *TokenServiceConfig
	logger     *logger.Logger
}

// NewTokenService creates a new TokenService
func NewTokenService(
	codec *token.Codec,
	sessions repository.SessionStore,
	verifier *CredentialVerifier,
	principals PrincipalStore,
	publisher events.Publisher,
	config *TokenServiceConfig,
	log *logger.Logger,
) TokenService {
	if config.AccessTokenTTL == 0 {
		config.AccessTokenTTL = 30 * time.Minute
	}
	if config.RefreshTokenTTL == 0 {
		config.RefreshTokenTTL = 7 * 24 * time.Hour
	}
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &tokenService{
		codec:      codec,
		sessions:   sessions,
		verifier:   verifier,
		principals: principals,
		events:     publisher,
		config:     config,
		logger:     log.Named("token-service"),
	}
}

func (s *tokenService) Login(ctx context.Context, username, password string) (*dto.TokenResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.token.login")
	defer span.End()

	span.SetAttributes(attribute.String("username", username))

	user, err := s.verifier.Verify(ctx, username, password)
	if err != nil {
		if !errors.Is(err, ErrInvalidCredentials) {
			telemetry.RecordError(span, err)
		}
		return nil, err
	}

	pair, err := s.issuePair(user.Username, string(user.Role))
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if err := s.sessions.PutRefresh(ctx, user.Username, pair.RefreshToken, s.config.RefreshTokenTTL); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.publish(ctx, events.EventLogin, user.Username, pair.AccessToken)
	return pair, nil
}

func (s *tokenService) Refresh(ctx context.Context, refreshToken string) (*dto.TokenResponse, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.token.refresh")
	defer span.End()

	if refreshToken == "" {
		return nil, ErrInvalidToken
	}

	claims, err := s.codec.Verify(refreshToken)
	if err != nil {
		return nil, ErrInvalidToken
	}
	// Refresh tokens never carry a role; an access token is not accepted here
	if claims.HasRole() {
		return nil, ErrInvalidToken
	}

	span.SetAttributes(attribute.String("username", claims.Subject))

	// Role comes from the principal store, never from the presented token
	user, err := s.principals.FindByUsername(ctx, claims.Subject)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, fmt.Errorf("failed to look up principal: %w", err)
	}
	if user == nil {
		return nil, ErrInvalidToken
	}

	pair, err := s.issuePair(user.Username, string(user.Role))
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	rotated, err := s.sessions.RotateRefresh(ctx, user.Username, refreshToken, pair.RefreshToken, s.config.RefreshTokenTTL)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if !rotated {
		// superseded, logged out or lost a concurrent refresh
		return nil, ErrInvalidToken
	}

	s.publish(ctx, events.EventRefresh, user.Username, pair.AccessToken)
	return pair, nil
}

func (s *tokenService) Logout(ctx context.Context, accessToken string) error {
	ctx, span := telemetry.StartSpan(ctx, "service.token.logout")
	defer span.End()

	if accessToken == "" {
		return nil
	}

	// Decode, not Verify: an expired token still ends its session
	claims, err := s.codec.Decode(accessToken)
	if err != nil || claims.Issuer != s.codec.Issuer() {
		s.logger.Debug("Ignoring logout with undecodable token", zap.Error(err))
		return nil
	}

	span.SetAttributes(attribute.String("username", claims.Subject))

	if claims.ID != "" {
		if err := s.sessions.PutRevocation(ctx, claims.ID, claims.Remaining(s.codec.Now())); err != nil {
			telemetry.RecordError(span, err)
			return err
		}
	}

	if err := s.sessions.DeleteRefresh(ctx, claims.Subject); err != nil {
		telemetry.RecordError(span, err)
		return err
	}

	s.publishEvent(ctx, &events.SessionEvent{Type: events.EventLogout, Username: claims.Subject, TokenID: claims.ID})
	return nil
}

func (s *tokenService) issuePair(username, role string) (*dto.TokenResponse, error) {
	access, err := s.codec.Issue(username, map[string]string{token.ClaimRole: role}, s.config.AccessTokenTTL)
	if err != nil {
		return nil, err
	}
	refresh, err := s.codec.Issue(username, nil, s.config.RefreshTokenTTL)
	if err != nil {
		return nil, err
	}

	return &dto.TokenResponse{
		TokenType:    dto.TokenTypeBearer,
		AccessToken:  access,
		ExpiresIn:    s.config.AccessTokenTTL.Milliseconds(),
		RefreshToken: refresh,
	}, nil
}

func (s *tokenService) publish(ctx context.Context, typ events.EventType, username, accessToken string) {
	event := &events.SessionEvent{Type: typ, Username: username}
	if claims, err := s.codec.Decode(accessToken); err == nil {
		event.TokenID = claims.ID
	}
	s.publishEvent(ctx, event)
}

func (s *tokenService) publishEvent(ctx context.Context, event *events.SessionEvent) {
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Warn("Failed to publish session event",
			zap.String("type", string(event.Type)),
			zap.String("username", event.Username),
			zap.Error(err),
		)
	}
}

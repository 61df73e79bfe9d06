package repository

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	pkgredis "github.com/prohmpiriya/tenant-auth/pkg/redis"
	"github.com/prohmpiriya/tenant-auth/pkg/telemetry"
)

//go:embed scripts/rotate_refresh.lua
var rotateRefreshScript string

const scriptRotateRefresh = "rotate_refresh"

const (
	refreshKeyPrefix   = "refresh:"
	blacklistKeyPrefix = "blacklist:"
	revokedMarker      = "true"
)

// RefreshKey is the Redis key of username's refresh record
func RefreshKey(username string) string {
	return refreshKeyPrefix + username
}

// BlacklistKey is the Redis key of a revoked token id
func BlacklistKey(tokenID string) string {
	return blacklistKeyPrefix + tokenID
}

// RedisSessionRepository implements SessionStore using Redis
type RedisSessionRepository struct {
	client *pkgredis.Client
}

// NewRedisSessionRepository creates a new RedisSessionRepository
func NewRedisSessionRepository(client *pkgredis.Client) *RedisSessionRepository {
	return &RedisSessionRepository{client: client}
}

// LoadScripts preloads the Lua scripts so the first rotation does not pay for SCRIPT LOAD
func (r *RedisSessionRepository) LoadScripts(ctx context.Context) error {
	if _, err := r.client.LoadScript(ctx, scriptRotateRefresh, rotateRefreshScript); err != nil {
		return fmt.Errorf("failed to load script %s: %w", scriptRotateRefresh, err)
	}
	return nil
}

func (r *RedisSessionRepository) PutRefresh(ctx context.Context, username, token string, ttl time.Duration) error {
	if ttl <= 0 {
		return ErrInvalidTTL
	}
	if err := r.client.Set(ctx, RefreshKey(username), token, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store refresh token: %w", err)
	}
	return nil
}

func (r *RedisSessionRepository) GetRefresh(ctx context.Context, username string) (string, bool, error) {
	token, err := r.client.Get(ctx, RefreshKey(username)).Result()
	if err != nil {
		if errors.Is(err, pkgredis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to get refresh token: %w", err)
	}
	return token, true, nil
}

func (r *RedisSessionRepository) DeleteRefresh(ctx context.Context, username string) error {
	if err := r.client.Del(ctx, RefreshKey(username)).Err(); err != nil {
		return fmt.Errorf("failed to delete refresh token: %w", err)
	}
	return nil
}

// RotateRefresh runs the compare-and-swap as a single Lua script so two
// concurrent refreshes with the same token cannot both succeed
func (r *RedisSessionRepository) RotateRefresh(ctx context.Context, username, expected, next string, ttl time.Duration) (bool, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.redis.session.rotate_refresh")
	defer span.End()

	if ttl <= 0 {
		return false, ErrInvalidTTL
	}

	keys := []string{RefreshKey(username)}
	args := []interface{}{
		expected,           // ARGV[1]
		next,               // ARGV[2]
		ttl.Milliseconds(), // ARGV[3]
	}

	rotated, err := r.client.EvalWithFallback(ctx, scriptRotateRefresh, rotateRefreshScript, keys, args...).Int64()
	if err != nil {
		telemetry.RecordError(span, err)
		return false, fmt.Errorf("failed to execute rotate_refresh script: %w", err)
	}

	span.SetAttributes(attribute.Bool("rotated", rotated == 1))
	return rotated == 1, nil
}

func (r *RedisSessionRepository) PutRevocation(ctx context.Context, tokenID string, ttl time.Duration) error {
	// Already expired; nothing left to revoke
	if ttl <= 0 {
		return nil
	}
	if err := r.client.Set(ctx, BlacklistKey(tokenID), revokedMarker, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store revocation: %w", err)
	}
	return nil
}

func (r *RedisSessionRepository) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := r.client.Exists(ctx, BlacklistKey(tokenID)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check revocation: %w", err)
	}
	return n > 0, nil
}

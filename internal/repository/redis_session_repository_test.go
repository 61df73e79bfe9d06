package repository

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgredis "github.com/prohmpiriya/tenant-auth/pkg/redis"
)

func newTestSessionRepo(t *testing.T) (*RedisSessionRepository, *miniredis.Miniredis) {
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

	return NewRedisSessionRepository(client), mr
}

func TestRedisSessionRepository_Refresh(t *testing.T) {
	repo, mr := newTestSessionRepo(t)
	ctx := context.Background()

	_, found, err := repo.GetRefresh(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, repo.PutRefresh(ctx, "alice", "r1", time.Hour))
	assert.Equal(t, time.Hour, mr.TTL("refresh:alice"))

	tok, found, err := repo.GetRefresh(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "r1", tok)

	// Overwrite replaces the single record
	require.NoError(t, repo.PutRefresh(ctx, "alice", "r2", time.Hour))
	tok, _, err = repo.GetRefresh(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, "r2", tok)

	require.NoError(t, repo.DeleteRefresh(ctx, "alice"))
	require.NoError(t, repo.DeleteRefresh(ctx, "alice"))
	_, found, err = repo.GetRefresh(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRedisSessionRepository_RefreshExpires(t *testing.T) {
	repo, mr := newTestSessionRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.PutRefresh(ctx, "alice", "r1", time.Minute))
	mr.FastForward(time.Minute)

	_, found, err := repo.GetRefresh(ctx, "alice")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRedisSessionRepository_PutRefresh_InvalidTTL(t *testing.T) {
	repo, mr := newTestSessionRepo(t)

	err := repo.PutRefresh(context.Background(), "alice", "r1", 0)
	assert.ErrorIs(t, err, ErrInvalidTTL)
	assert.False(t, mr.Exists("refresh:alice"))
}

func TestRedisSessionRepository_Revocation(t *testing.T) {
	repo, mr := newTestSessionRepo(t)
	ctx := context.Background()

	revoked, err := repo.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)

	require.NoError(t, repo.PutRevocation(ctx, "jti-1", 10*time.Minute))

	val, err := mr.Get("blacklist:jti-1")
	require.NoError(t, err)
	assert.Equal(t, "true", val)
	assert.Equal(t, 10*time.Minute, mr.TTL("blacklist:jti-1"))

	revoked, err = repo.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, revoked)

	// The record never outlives the token it revokes
	mr.FastForward(10 * time.Minute)
	revoked, err = repo.IsRevoked(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, revoked)
}

func TestRedisSessionRepository_PutRevocation_NonPositiveTTL(t *testing.T) {
	repo, mr := newTestSessionRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.PutRevocation(ctx, "jti-expired", 0))
	require.NoError(t, repo.PutRevocation(ctx, "jti-expired", -time.Second))
	assert.False(t, mr.Exists("blacklist:jti-expired"))
}

func TestRedisSessionRepository_RotateRefresh(t *testing.T) {
	repo, mr := newTestSessionRepo(t)
	ctx := context.Background()

	t.Run("absent record", func(t *testing.T) {
		ok, err := repo.RotateRefresh(ctx, "bob", "r1", "r2", time.Hour)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.False(t, mr.Exists("refresh:bob"))
	})

	t.Run("stale token", func(t *testing.T) {
		require.NoError(t, repo.PutRefresh(ctx, "alice", "current", time.Hour))

		ok, err := repo.RotateRefresh(ctx, "alice", "superseded", "next", time.Hour)
		require.NoError(t, err)
		assert.False(t, ok)

		tok, _, err := repo.GetRefresh(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, "current", tok)
	})

	t.Run("matching token", func(t *testing.T) {
		require.NoError(t, repo.PutRefresh(ctx, "alice", "current", time.Minute))

		ok, err := repo.RotateRefresh(ctx, "alice", "current", "next", 2*time.Hour)
		require.NoError(t, err)
		assert.True(t, ok)

		tok, _, err := repo.GetRefresh(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, "next", tok)
		assert.Equal(t, 2*time.Hour, mr.TTL("refresh:alice"))
	})

	t.Run("invalid ttl", func(t *testing.T) {
		_, err := repo.RotateRefresh(ctx, "alice", "next", "again", 0)
		assert.ErrorIs(t, err, ErrInvalidTTL)
	})
}

func TestRedisSessionRepository_RotateRefresh_Concurrent(t *testing.T) {
	repo, _ := newTestSessionRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.PutRefresh(ctx, "alice", "r0", time.Hour))

	const workers = 16
	var wins int32
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ok, err := repo.RotateRefresh(ctx, "alice", "r0", fmt.Sprintf("r1-%d", i), time.Hour)
			if assert.NoError(t, err) && ok {
				atomic.AddInt32(&wins, 1)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins)
}

func TestRedisSessionRepository_InfrastructureError(t *testing.T) {
	repo, mr := newTestSessionRepo(t)
	ctx := context.Background()

	mr.SetError("READONLY You can't write against a read only replica")

	_, _, err := repo.GetRefresh(ctx, "alice")
	assert.Error(t, err)

	_, err = repo.IsRevoked(ctx, "jti-1")
	assert.Error(t, err)

	assert.Error(t, repo.PutRefresh(ctx, "alice", "r1", time.Hour))
	assert.Error(t, repo.PutRevocation(ctx, "jti-1", time.Minute))
}

func TestRedisSessionRepository_LoadScripts(t *testing.T) {
	repo, _ := newTestSessionRepo(t)
	require.NoError(t, repo.LoadScripts(context.Background()))

	sha, ok := repo.client.GetScriptSHA(scriptRotateRefresh)
	require.True(t, ok)
	assert.NotEmpty(t, sha)
}

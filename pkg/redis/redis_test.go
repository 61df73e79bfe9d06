package redis

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newMiniredisClient starts an in-process Redis and connects a Client to it
func newMiniredisClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)

	cfg := DefaultConfig()
	cfg.Host = mr.Host()
	cfg.Port = port
	cfg.MaxRetries = 0

	client, err := NewClient(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	return client, mr
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "localhost", cfg.Host)
	assert.Equal(t, 6379, cfg.Port)
	assert.Equal(t, 100, cfg.PoolSize)
	assert.Equal(t, 3, cfg.MaxRetries)
}

func TestConfig_Addr(t *testing.T) {
	cfg := &Config{Host: "redis.example.com", Port: 6380}
	assert.Equal(t, "redis.example.com:6380", cfg.Addr())
}

func TestNewClient_Unreachable(t *testing.T) {
	cfg := &Config{
		Host:          "127.0.0.1",
		Port:          1,
		MaxRetries:    1,
		RetryInterval: 10 * time.Millisecond,
		DialTimeout:   100 * time.Millisecond,
	}

	_, err := NewClient(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 2 attempts")
}

func TestComputeSHA1(t *testing.T) {
	sha := computeSHA1("return 1")

	assert.Len(t, sha, 40)
	assert.Equal(t, sha, computeSHA1("return 1"))
	assert.NotEqual(t, sha, computeSHA1("return 2"))
}

func TestIsNoScriptError(t *testing.T) {
	tests := []struct {
		err      error
		expected bool
	}{
		{nil, false},
		{fmt.Errorf("some error"), false},
		{fmt.Errorf("NOSCRIPT No matching script. Please use EVAL."), true},
		{fmt.Errorf("NOSCRIPT some other message"), true},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, isNoScriptError(tt.err), "isNoScriptError(%v)", tt.err)
	}
}

func TestClient_BasicOperations(t *testing.T) {
	client, mr := newMiniredisClient(t)
	ctx := context.Background()

	require.NoError(t, client.Set(ctx, "refresh:alice", "tok", time.Minute).Err())

	val, err := client.Get(ctx, "refresh:alice").Result()
	require.NoError(t, err)
	assert.Equal(t, "tok", val)

	n, err := client.Exists(ctx, "refresh:alice").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	ttl, err := client.TTL(ctx, "refresh:alice").Result()
	require.NoError(t, err)
	assert.Equal(t, time.Minute, ttl)

	mr.FastForward(time.Minute)
	_, err = client.Get(ctx, "refresh:alice").Result()
	assert.ErrorIs(t, err, Nil)
}

func TestClient_HealthCheck(t *testing.T) {
	client, mr := newMiniredisClient(t)

	assert.NoError(t, client.HealthCheck(context.Background()))

	mr.SetError("LOADING")
	assert.Error(t, client.HealthCheck(context.Background()))
}

func TestClient_EvalWithFallback(t *testing.T) {
	client, mr := newMiniredisClient(t)
	ctx := context.Background()

	script := `return tonumber(ARGV[1]) * 2`

	result, err := client.EvalWithFallback(ctx, "double", script, nil, 7).Int()
	require.NoError(t, err)
	assert.Equal(t, 14, result)

	sha, ok := client.GetScriptSHA("double")
	require.True(t, ok)
	assert.Equal(t, computeSHA1(script), sha)

	// Server forgets the script; the client reloads it transparently
	mr.FlushAll()
	require.NoError(t, client.Client().ScriptFlush(ctx).Err())

	result, err = client.EvalWithFallback(ctx, "double", script, nil, 10).Int()
	require.NoError(t, err)
	assert.Equal(t, 20, result)
}

// Integration tests - require Redis to be running

func TestNewClient_Integration(t *testing.T) {
	if os.Getenv("INTEGRATION_TEST") != "true" {
		t.Skip("Skipping integration test. Set INTEGRATION_TEST=true to run")
	}

	cfg := DefaultConfig()
	if host := os.Getenv("TEST_REDIS_HOST"); host != "" {
		cfg.Host = host
	}
	cfg.Password = os.Getenv("TEST_REDIS_PASSWORD")

	client, err := NewClient(context.Background(), cfg)
	require.NoError(t, err)
	defer client.Close()

	assert.NoError(t, client.HealthCheck(context.Background()))
}

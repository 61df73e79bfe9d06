package database

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prohmpiriya/tenant-auth/pkg/retry"
)

func TestDefaultPostgresConfig(t *testing.T) {
	cfg := DefaultPostgresConfig()

	assert.Equal(t, "localhost", cfg.Host)
	assert.Equal(t, 5432, cfg.Port)
	assert.Equal(t, "tenant_auth", cfg.Database)
	assert.Empty(t, cfg.Password)
}

func TestPostgresConfig_DSN(t *testing.T) {
	cfg := &PostgresConfig{
		Host:     "db",
		Port:     5433,
		User:     "auth",
		Password: "secret",
		Database: "tenant_auth",
		SSLMode:  "require",
	}

	assert.Equal(t, "host=db port=5433 user=auth password=secret dbname=tenant_auth sslmode=require", cfg.DSN())
}

func TestNewPostgres_Unreachable(t *testing.T) {
	cfg := DefaultPostgresConfig()
	cfg.Port = 1
	cfg.ConnectTimeout = 200 * time.Millisecond
	cfg.Retry = &retry.Config{MaxRetries: 1, InitialInterval: time.Millisecond}

	_, err := NewPostgres(context.Background(), cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, retry.ErrMaxRetriesExceeded)
}

func TestNewPostgres_Integration(t *testing.T) {
	if os.Getenv("INTEGRATION_TEST") != "true" {
		t.Skip("Skipping integration test. Set INTEGRATION_TEST=true to run")
	}

	cfg := DefaultPostgresConfig()
	if host := os.Getenv("TEST_DB_HOST"); host != "" {
		cfg.Host = host
	}
	if port, err := strconv.Atoi(os.Getenv("TEST_DB_PORT")); err == nil {
		cfg.Port = port
	}
	cfg.Password = os.Getenv("TEST_DB_PASSWORD")
	cfg.EnableTracing = true

	db, err := NewPostgres(context.Background(), cfg)
	require.NoError(t, err)
	defer db.Close()

	assert.NoError(t, db.HealthCheck(context.Background()))
}

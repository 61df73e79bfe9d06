package di

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/prohmpiriya/tenant-auth/internal/events"
	"github.com/prohmpiriya/tenant-auth/internal/handler"
	"github.com/prohmpiriya/tenant-auth/internal/middleware"
	"github.com/prohmpiriya/tenant-auth/internal/permission"
	"github.com/prohmpiriya/tenant-auth/internal/repository"
	"github.com/prohmpiriya/tenant-auth/internal/service"
	"github.com/prohmpiriya/tenant-auth/internal/token"
	"github.com/prohmpiriya/tenant-auth/pkg/config"
	"github.com/prohmpiriya/tenant-auth/pkg/database"
	"github.com/prohmpiriya/tenant-auth/pkg/logger"
	pkgredis "github.com/prohmpiriya/tenant-auth/pkg/redis"
)

// Container holds all dependencies for the service
type Container struct {
	// Infrastructure
	DB        *database.PostgresDB
	Redis     *pkgredis.Client
	Publisher events.Publisher

	// Repositories
	UserRepo      repository.UserRepository
	BoardRepo     repository.BoardRepository
	OwnershipRepo permission.OwnershipStore
	SessionRepo   repository.SessionStore

	// Core
	Codec        *token.Codec
	Evaluator    *permission.Evaluator
	TokenService service.TokenService
	UserService  service.UserService
	BoardService service.BoardService

	// Handlers
	HealthHandler *handler.HealthHandler
	AuthHandler   *handler.AuthHandler
	UserHandler   *handler.UserHandler
	BoardHandler  *handler.BoardHandler

	routerConfig handler.RouterConfig
}

// ContainerConfig contains configuration for building the container
type ContainerConfig struct {
	Config *config.Config
	Logger *logger.Logger

	// DB is optional; it only feeds the readiness check
	DB        *database.PostgresDB
	Redis     *pkgredis.Client
	Publisher events.Publisher

	UserRepo      repository.UserRepository
	BoardRepo     repository.BoardRepository
	OwnershipRepo permission.OwnershipStore
	SessionRepo   repository.SessionStore
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *ContainerConfig) (*Container, error) {
	if cfg.Config == nil {
		return nil, errors.New("config is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNop()
	}
	if cfg.Publisher == nil {
		cfg.Publisher = events.NopPublisher{}
	}
	appCfg := cfg.Config

	c := &Container{
		DB:            cfg.DB,
		Redis:         cfg.Redis,
		Publisher:     cfg.Publisher,
		UserRepo:      cfg.UserRepo,
		BoardRepo:     cfg.BoardRepo,
		OwnershipRepo: cfg.OwnershipRepo,
		SessionRepo:   cfg.SessionRepo,
	}

	codec, err := token.NewCodec(appCfg.JWT.Secret, appCfg.JWT.Issuer)
	if err != nil {
		return nil, err
	}
	c.Codec = codec

	verifier, err := service.NewCredentialVerifier(c.UserRepo, appCfg.Auth.BcryptCost)
	if err != nil {
		return nil, err
	}

	// Initialize services
	c.TokenService = service.NewTokenService(codec, c.SessionRepo, verifier, c.UserRepo, c.Publisher,
		&service.TokenServiceConfig{
			AccessTokenTTL:  appCfg.JWT.AccessTokenTTL,
			RefreshTokenTTL: appCfg.JWT.RefreshTokenTTL,
		}, cfg.Logger)
	c.UserService = service.NewUserService(c.UserRepo, c.SessionRepo, appCfg.Auth.BcryptCost)
	c.BoardService = service.NewBoardService(c.BoardRepo)
	c.Evaluator = permission.NewEvaluator(c.OwnershipRepo, cfg.Logger)

	// Initialize handlers
	checks := map[string]handler.HealthChecker{}
	if c.DB != nil {
		checks["postgres"] = c.DB
	}
	if c.Redis != nil {
		checks["redis"] = c.Redis
	}
	c.HealthHandler = handler.NewHealthHandler(appCfg.App.Name, checks)
	c.AuthHandler = handler.NewAuthHandler(c.TokenService)
	c.UserHandler = handler.NewUserHandler(c.UserService)
	c.BoardHandler = handler.NewBoardHandler(c.BoardService)

	c.routerConfig = handler.RouterConfig{
		Gate: middleware.Authenticate(codec, c.SessionRepo, c.UserRepo,
			middleware.GateConfig{StoreTimeout: appCfg.Auth.StoreTimeout}, cfg.Logger),
		Decider: c.Evaluator,
		Logger:  cfg.Logger,
	}
	if appCfg.RateLimit.Enabled && c.Redis != nil {
		limiter := middleware.NewRedisRateLimiter(c.Redis, middleware.RateLimitConfig{
			RequestsPerSecond: appCfg.RateLimit.RequestsPerSecond,
			BurstSize:         appCfg.RateLimit.BurstSize,
		})
		c.routerConfig.CredentialLimiter = middleware.RateLimiter(limiter, cfg.Logger)
	}
	if appCfg.OTel.Enabled {
		c.routerConfig.TracingService = appCfg.OTel.ServiceName
	}

	return c, nil
}

// Router builds the HTTP engine
func (c *Container) Router() *gin.Engine {
	return handler.NewRouter(&handler.Handlers{
		Auth:   c.AuthHandler,
		User:   c.UserHandler,
		Board:  c.BoardHandler,
		Health: c.HealthHandler,
	}, c.routerConfig)
}

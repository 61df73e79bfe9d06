package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/prohmpiriya/tenant-auth/internal/domain"
	"github.com/prohmpiriya/tenant-auth/internal/middleware"
	"github.com/prohmpiriya/tenant-auth/pkg/logger"
	"github.com/prohmpiriya/tenant-auth/pkg/telemetry"
)

// Handlers groups the HTTP handlers mounted by NewRouter
type Handlers struct {
	Auth   *AuthHandler
	User   *UserHandler
	Board  *BoardHandler
	Health *HealthHandler
}

// RouterConfig carries the middleware NewRouter installs
type RouterConfig struct {
	// Gate establishes the request principal; see middleware.Authenticate
	Gate gin.HandlerFunc
	// Decider answers resource-level permission checks
	Decider middleware.Decider
	// CredentialLimiter, when set, guards login, refresh and register
	CredentialLimiter gin.HandlerFunc
	Logger            *logger.Logger
	// TracingService enables the OpenTelemetry middleware when non-empty
	TracingService string
}

// NewRouter builds the engine with the per-route authorization policy:
//
//	POST   /api/users/login|refresh|register   public
//	POST   /api/users/logout                   authenticated
//	GET    /api/users/me                       authenticated
//	POST   /api/users, GET /api/users          admin
//	GET|PUT|DELETE /api/users/:id              admin or self (User, :id)
//	GET    /api/boards, /api/boards/:id        public
//	POST   /api/boards                         authenticated
//	PUT|DELETE /api/boards/:id                 admin or owner (Board, :id)
func NewRouter(h *Handlers, cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	if cfg.TracingService != "" {
		router.Use(telemetry.TracingMiddleware(cfg.TracingService))
	}
	router.Use(middleware.RequestID())
	if cfg.Logger != nil {
		router.Use(middleware.Logger(cfg.Logger))
	}

	router.GET("/health", h.Health.Health)
	router.GET("/ready", h.Health.Ready)

	api := router.Group("/api")
	api.Use(cfg.Gate)

	authenticated := middleware.RequireAuthenticated()
	adminOnly := middleware.RequireRole(domain.RoleAdmin)
	userSelf := middleware.RequirePermission(cfg.Decider, domain.ResourceUser, "id")
	boardOwner := middleware.RequirePermission(cfg.Decider, domain.ResourceBoard, "id")

	credentials := []gin.HandlerFunc{}
	if cfg.CredentialLimiter != nil {
		credentials = append(credentials, cfg.CredentialLimiter)
	}

	users := api.Group("/users")
	{
		users.POST("/login", append(credentials, h.Auth.Login)...)
		users.POST("/refresh", append(credentials, h.Auth.Refresh)...)
		users.POST("/register", append(credentials, h.User.Register)...)
		users.POST("/logout", authenticated, h.Auth.Logout)
		users.GET("/me", authenticated, h.User.Me)

		users.POST("", adminOnly, h.User.Create)
		users.GET("", adminOnly, h.User.List)
		users.GET("/:id", userSelf, h.User.Get)
		users.PUT("/:id", userSelf, h.User.Update)
		users.DELETE("/:id", userSelf, h.User.Delete)
	}

	boards := api.Group("/boards")
	{
		boards.GET("", h.Board.List)
		boards.GET("/:id", h.Board.Get)
		boards.POST("", authenticated, h.Board.Create)
		boards.PUT("/:id", boardOwner, h.Board.Update)
		boards.DELETE("/:id", boardOwner, h.Board.Delete)
	}

	return router
}

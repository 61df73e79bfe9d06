package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/prohmpiriya/tenant-auth/internal/dto"
	"github.com/prohmpiriya/tenant-auth/internal/middleware"
	"github.com/prohmpiriya/tenant-auth/internal/service"
	"github.com/prohmpiriya/tenant-auth/pkg/response"
)

// AuthHandler handles login, refresh and logout
type AuthHandler struct {
	tokenService service.TokenService
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(tokenService service.TokenService) *AuthHandler {
	return &AuthHandler{tokenService: tokenService}
}

// Login handles user login
// POST /api/users/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Username and password are required")
		return
	}

	result, err := h.tokenService.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			response.Unauthorized(c, "Invalid username or password")
			return
		}
		_ = c.Error(err)
		response.InternalError(c)
		return
	}

	response.Success(c, result)
}

// Refresh exchanges a refresh token for a new pair. The bearer header wins
// over the refreshToken body field.
// POST /api/users/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	refreshToken := middleware.BearerToken(c)
	if refreshToken == "" {
		var req dto.RefreshRequest
		if err := c.ShouldBindJSON(&req); err == nil {
			refreshToken = req.RefreshToken
		}
	}
	if refreshToken == "" {
		response.BadRequest(c, "Refresh token is required")
		return
	}

	result, err := h.tokenService.Refresh(c.Request.Context(), refreshToken)
	if err != nil {
		if errors.Is(err, service.ErrInvalidToken) {
			response.Unauthorized(c, "Invalid or expired refresh token")
			return
		}
		_ = c.Error(err)
		response.InternalError(c)
		return
	}

	response.Success(c, result)
}

// Logout revokes the presented access token and ends the refresh session
// POST /api/users/logout
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.tokenService.Logout(c.Request.Context(), middleware.BearerToken(c)); err != nil {
		_ = c.Error(err)
		response.InternalError(c)
		return
	}

	response.Success(c, gin.H{"message": "Logged out successfully"})
}

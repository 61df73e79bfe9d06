package middleware

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/prohmpiriya/tenant-auth/internal/domain"
	"github.com/prohmpiriya/tenant-auth/pkg/response"
)

// Decider is the permission check used by RequirePermission
type Decider interface {
	Decide(ctx context.Context, principal *domain.Principal, resourceType string, resourceID int64) bool
}

// RequireAuthenticated rejects requests without a principal with 401
func RequireAuthenticated() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := CurrentPrincipal(c); !ok {
			response.AbortUnauthorized(c)
			return
		}
		c.Next()
	}
}

// RequireRole allows only principals holding one of roles
func RequireRole(roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := CurrentPrincipal(c)
		if !ok {
			response.AbortUnauthorized(c)
			return
		}
		for _, r := range roles {
			if p.Role == r {
				c.Next()
				return
			}
		}
		response.AbortForbidden(c)
	}
}

// RequirePermission asks decider whether the principal may act on the
// resourceType identified by the path parameter param
func RequirePermission(decider Decider, resourceType, param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := CurrentPrincipal(c)
		if !ok {
			response.AbortUnauthorized(c)
			return
		}

		id, err := strconv.ParseInt(c.Param(param), 10, 64)
		if err != nil {
			response.AbortError(c, http.StatusBadRequest, response.CodeBadRequest, "Invalid "+param)
			return
		}

		if !decider.Decide(c.Request.Context(), p, resourceType, id) {
			response.AbortForbidden(c)
			return
		}
		c.Next()
	}
}

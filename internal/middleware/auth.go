package middleware

import (
	"context"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/prohmpiriya/tenant-auth/internal/domain"
	"github.com/prohmpiriya/tenant-auth/internal/token"
	"github.com/prohmpiriya/tenant-auth/pkg/logger"
)

const (
	authorizationHeader = "Authorization"
	bearerScheme        = "Bearer"

	defaultStoreTimeout = 200 * time.Millisecond
)

// RevocationChecker reports whether an access token id has been revoked
type RevocationChecker interface {
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

// PrincipalResolver maps the token subject to the stored user; (nil, nil) when absent
type PrincipalResolver interface {
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
}

// GateConfig configures Authenticate
type GateConfig struct {
	// StoreTimeout bounds the revocation and principal lookups together
	StoreTimeout time.Duration
}

// BearerToken returns the token from "Authorization: Bearer <token>", or ""
func BearerToken(c *gin.Context) string {
	header := c.GetHeader(authorizationHeader)
	scheme, tok, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, bearerScheme) {
		return ""
	}
	return strings.TrimSpace(tok)
}

// Authenticate establishes the request principal from a bearer access token.
// It never rejects a request: any failure leaves the request unauthenticated
// and the route guards decide between 401 and 403.
func Authenticate(codec *token.Codec, revocations RevocationChecker, principals PrincipalResolver, cfg GateConfig, log *logger.Logger) gin.HandlerFunc {
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = defaultStoreTimeout
	}
	if log == nil {
		log = logger.NewNop()
	}
	log = log.Named("auth-gate")

	return func(c *gin.Context) {
		raw := BearerToken(c)
		if raw == "" {
			c.Next()
			return
		}

		if principal := authenticate(c.Request.Context(), raw, codec, revocations, principals, cfg, log); principal != nil {
			c.Request = c.Request.WithContext(domain.WithPrincipal(c.Request.Context(), principal))
		}
		c.Next()
	}
}

func authenticate(ctx context.Context, raw string, codec *token.Codec, revocations RevocationChecker, principals PrincipalResolver, cfg GateConfig, log *logger.Logger) *domain.Principal {
	claims, err := codec.Verify(raw)
	if err != nil {
		log.Debug("Rejected bearer token", zap.Error(err))
		return nil
	}
	// Refresh tokens carry no role and never authenticate a request
	if !claims.HasRole() || !claims.Role.Valid() {
		log.Debug("Rejected bearer token without role claim")
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.StoreTimeout)
	defer cancel()

	revoked, err := revocations.IsRevoked(ctx, claims.ID)
	if err != nil {
		log.Warn("Revocation lookup failed, treating request as unauthenticated", zap.Error(err))
		return nil
	}
	if revoked {
		return nil
	}

	user, err := principals.FindByUsername(ctx, claims.Subject)
	if err != nil {
		log.Warn("Principal lookup failed, treating request as unauthenticated", zap.Error(err))
		return nil
	}
	if user == nil {
		return nil
	}
	// A role change since issue invalidates outstanding access tokens
	if user.Role != claims.Role {
		log.Debug("Rejected bearer token with stale role claim",
			zap.String("username", claims.Subject),
			zap.String("token_role", string(claims.Role)),
			zap.String("current_role", string(user.Role)))
		return nil
	}

	return &domain.Principal{ID: user.ID, Username: user.Username, Role: user.Role}
}

// CurrentPrincipal returns the principal established by Authenticate
func CurrentPrincipal(c *gin.Context) (*domain.Principal, bool) {
	return domain.PrincipalFrom(c.Request.Context())
}

// Package permission decides whether an authenticated principal may act on a
// specific resource.
package permission

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/prohmpiriya/tenant-auth/internal/domain"
	"github.com/prohmpiriya/tenant-auth/pkg/logger"
	"github.com/prohmpiriya/tenant-auth/pkg/telemetry"
)

// OwnershipStore resolves the owner principal id of a resource.
// found is false when the resource does not exist.
type OwnershipStore interface {
	FindOwnerID(ctx context.Context, resourceType string, resourceID int64) (ownerID int64, found bool, err error)
}

// Evaluator is a pure allow/deny decision with one read: the ownership lookup
type Evaluator struct {
	owners OwnershipStore
	logger *logger.Logger
}

// NewEvaluator creates a new Evaluator
func NewEvaluator(owners OwnershipStore, log *logger.Logger) *Evaluator {
	if log == nil {
		log = logger.NewNop()
	}
	return &Evaluator{owners: owners, logger: log.Named("permission")}
}

// Decide reports whether principal may act on the resource. Admins are
// always allowed. Users may act on their own User record and on Boards
// they own. Everything else is denied, including lookup failures.
func (e *Evaluator) Decide(ctx context.Context, principal *domain.Principal, resourceType string, resourceID int64) bool {
	if principal == nil {
		return false
	}
	if principal.IsAdmin() {
		return true
	}

	switch resourceType {
	case domain.ResourceUser:
		return resourceID == principal.ID
	case domain.ResourceBoard:
		return e.owns(ctx, principal, resourceType, resourceID)
	default:
		return false
	}
}

func (e *Evaluator) owns(ctx context.Context, principal *domain.Principal, resourceType string, resourceID int64) bool {
	ctx, span := telemetry.StartSpan(ctx, "permission.ownership_lookup")
	defer span.End()

	span.SetAttributes(
		attribute.String("resource_type", resourceType),
		attribute.Int64("resource_id", resourceID),
	)

	ownerID, found, err := e.owners.FindOwnerID(ctx, resourceType, resourceID)
	if err != nil {
		telemetry.RecordError(span, err)
		e.logger.Error("Ownership lookup failed",
			zap.String("resource_type", resourceType),
			zap.Int64("resource_id", resourceID),
			zap.Error(err),
		)
		return false
	}
	return found && ownerID == principal.ID
}

package internal

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

var TenantIDContextKey contextKey = "tenant-id"

// GetTenantIDFromContext returns the tenant resolved by the tenant middleware.
// Handlers read it once and hand it on explicitly.
func GetTenantIDFromContext(ctx context.Context) (uuid.UUID, error) {
	tenantID, ok := ctx.Value(TenantIDContextKey).(uuid.UUID)
	if !ok || tenantID == uuid.Nil {
		return uuid.Nil, ErrNoTenantInContext
	}
	return tenantID, nil
}

package internal

import (
	"context"

	logutil "github.com/NYCU-SDC/summer/pkg/log"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// WithContext parses the context and adds the tenant ID to the logger if available
func WithContext(ctx context.Context, logger *zap.Logger) *zap.Logger {
	logger = logutil.WithContext(ctx, logger)
	if ctx == nil {
		return logger
	}

	tenantID, ok := ctx.Value(TenantIDContextKey).(uuid.UUID)
	if ok && tenantID != uuid.Nil {
		logger = logger.With(zap.String("tenant_id", tenantID.String()))
	}

	return logger
}

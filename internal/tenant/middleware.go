package tenant

import (
	"context"
	"net/http"
	"strings"

	"NYCU-SDC/playbook-builder-backend/internal"

	logutil "github.com/NYCU-SDC/summer/pkg/log"
	"github.com/NYCU-SDC/summer/pkg/problem"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type reader interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

type Middleware struct {
	tracer        trace.Tracer
	logger        *zap.Logger
	problemWriter *problem.HttpWriter

	reader reader
}

func NewMiddleware(
	logger *zap.Logger,
	problemWriter *problem.HttpWriter,
	reader reader,
) *Middleware {
	return &Middleware{
		tracer:        otel.Tracer("tenant/middleware"),
		logger:        logger,
		problemWriter: problemWriter,
		reader:        reader,
	}
}

// Middleware resolves the tenant of the request from the X-Tenant-ID header,
// falling back to the tenant_id cookie the dashboard sets, and stores it in
// the request context.
func (m *Middleware) Middleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		traceCtx, span := m.tracer.Start(r.Context(), "TenantMiddleware")
		defer span.End()
		logger := logutil.WithContext(traceCtx, m.logger)

		raw := FromRequest(r)
		if raw == "" {
			span.RecordError(internal.ErrMissingTenantField)
			m.problemWriter.WriteError(traceCtx, w, internal.ErrMissingTenantField, logger)
			return
		}

		tenantID, err := uuid.Parse(raw)
		if err != nil {
			logger.Debug("malformed tenant id", zap.String("tenant_id", raw), zap.Error(err))
			span.RecordError(err)
			m.problemWriter.WriteError(traceCtx, w, internal.ErrInvalidTenantID, logger)
			return
		}

		exists, err := m.reader.Exists(traceCtx, tenantID)
		if err != nil {
			span.RecordError(err)
			m.problemWriter.WriteError(traceCtx, w, err, logger)
			return
		}
		if !exists {
			span.RecordError(internal.ErrTenantNotFound)
			m.problemWriter.WriteError(traceCtx, w, internal.ErrTenantNotFound, logger)
			return
		}

		ctx := context.WithValue(traceCtx, internal.TenantIDContextKey, tenantID)

		next(w, r.WithContext(ctx))
	}
}

// FromRequest returns the raw tenant id carried by r, or an empty string.
func FromRequest(r *http.Request) string {
	if value := strings.TrimSpace(r.Header.Get(HeaderName)); value != "" {
		return value
	}
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(cookie.Value)
}

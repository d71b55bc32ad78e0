package main

import (
	"net/http"

	"NYCU-SDC/playbook-builder-backend/internal/builder"
	"NYCU-SDC/playbook-builder-backend/internal/playbook"
	"NYCU-SDC/playbook-builder-backend/internal/tenant"
	"NYCU-SDC/playbook-builder-backend/internal/trace"

	"github.com/NYCU-SDC/summer/pkg/middleware"
	"go.uber.org/zap"
)

type routeHandlers struct {
	tenant   *tenant.Handler
	playbook *playbook.Handler
	builder  *builder.Handler
}

func registerRoutes(mux *http.ServeMux, logger *zap.Logger, h routeHandlers, traceMiddleware *trace.Middleware, tenantMiddleware *tenant.Middleware) {
	// Basic Middleware (Recovery, Tracing and Access Log)
	basic := middleware.NewSet(traceMiddleware.Recover)
	basic = basic.Append(traceMiddleware.Trace)
	basic = basic.Append(traceMiddleware.AccessLog)

	// Tenant Middleware
	tenantScoped := middleware.NewSet(traceMiddleware.Recover)
	tenantScoped = tenantScoped.Append(traceMiddleware.Trace)
	tenantScoped = tenantScoped.Append(traceMiddleware.AccessLog)
	tenantScoped = tenantScoped.Append(tenantMiddleware.Middleware)

	// Health check route
	mux.HandleFunc("GET /api/healthz", basic.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			logger.Error("Failed to write response", zap.Error(err))
		}
	}))

	// Tenant routes
	mux.HandleFunc("POST /api/tenants", basic.HandlerFunc(h.tenant.CreateHandler))
	mux.HandleFunc("GET /api/tenants/current", tenantScoped.HandlerFunc(h.tenant.CurrentHandler))

	// Playbook routes
	mux.HandleFunc("GET /api/playbooks", tenantScoped.HandlerFunc(h.playbook.ListHandler))
	mux.HandleFunc("POST /api/playbooks", tenantScoped.HandlerFunc(h.playbook.CreateHandler))
	mux.HandleFunc("GET /api/playbooks/schedule/preview", basic.HandlerFunc(h.playbook.SchedulePreviewHandler))
	mux.HandleFunc("GET /api/playbooks/{id}", tenantScoped.HandlerFunc(h.playbook.GetHandler))
	mux.HandleFunc("PUT /api/playbooks/{id}", tenantScoped.HandlerFunc(h.playbook.UpdateHandler))
	mux.HandleFunc("POST /api/playbooks/{id}/test-runs", tenantScoped.HandlerFunc(h.playbook.CreateTestRunHandler))
	mux.HandleFunc("GET /api/playbooks/{id}/test-runs", tenantScoped.HandlerFunc(h.playbook.ListTestRunsHandler))

	// Builder session routes
	session := "/api/builder/sessions/{sessionId}"
	mux.HandleFunc("POST /api/builder/sessions", tenantScoped.HandlerFunc(h.builder.OpenHandler))
	mux.HandleFunc("GET "+session, tenantScoped.HandlerFunc(h.builder.GetHandler))
	mux.HandleFunc("DELETE "+session, tenantScoped.HandlerFunc(h.builder.CloseHandler))
	mux.HandleFunc("POST "+session+"/nodes", tenantScoped.HandlerFunc(h.builder.AddNodeHandler))
	mux.HandleFunc("PUT "+session+"/nodes/{nodeId}/config", tenantScoped.HandlerFunc(h.builder.UpdateNodeConfigHandler))
	mux.HandleFunc("PUT "+session+"/nodes/{nodeId}/position", tenantScoped.HandlerFunc(h.builder.MoveNodeHandler))
	mux.HandleFunc("DELETE "+session+"/nodes/{nodeId}", tenantScoped.HandlerFunc(h.builder.RemoveNodeHandler))
	mux.HandleFunc("POST "+session+"/edges", tenantScoped.HandlerFunc(h.builder.ConnectHandler))
	mux.HandleFunc("PUT "+session+"/selection", tenantScoped.HandlerFunc(h.builder.SelectHandler))
	mux.HandleFunc("PUT "+session+"/metadata", tenantScoped.HandlerFunc(h.builder.UpdateMetadataHandler))
	mux.HandleFunc("POST "+session+"/save", tenantScoped.HandlerFunc(h.builder.SaveHandler))
	mux.HandleFunc("POST "+session+"/test", tenantScoped.HandlerFunc(h.builder.TestHandler))
	mux.HandleFunc("POST "+session+"/keys", tenantScoped.HandlerFunc(h.builder.KeyHandler))
}

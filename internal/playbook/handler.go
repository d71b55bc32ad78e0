package playbook

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"NYCU-SDC/playbook-builder-backend/internal"
	"NYCU-SDC/playbook-builder-backend/internal/playbook/schedule"

	handlerutil "github.com/NYCU-SDC/summer/pkg/handler"
	pagutil "github.com/NYCU-SDC/summer/pkg/pagination"
	"github.com/NYCU-SDC/summer/pkg/problem"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	defaultPreviewRuns = 5
	maxPreviewRuns     = 20
)

//go:generate mockery --name Store
type Store interface {
	Create(ctx context.Context, payload Payload) (Playbook, error)
	Update(ctx context.Context, id uuid.UUID, payload Payload) (Playbook, error)
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (Playbook, error)
	List(ctx context.Context, tenantID uuid.UUID) ([]Playbook, error)
	RunTest(ctx context.Context, tenantID, id uuid.UUID) (TestRun, error)
	ListTestRuns(ctx context.Context, tenantID, id uuid.UUID) ([]TestRun, error)
}

type SchedulePreviewResponse struct {
	Cron     string   `json:"cron"`
	NextRuns []string `json:"next_runs"`
}

type Handler struct {
	logger *zap.Logger
	tracer trace.Tracer

	validator     *validator.Validate
	problemWriter *problem.HttpWriter

	store Store
	now   func() time.Time
}

func NewHandler(
	logger *zap.Logger,
	validator *validator.Validate,
	problemWriter *problem.HttpWriter,
	store Store,
) *Handler {
	return &Handler{
		logger:        logger,
		tracer:        otel.Tracer("playbook/handler"),
		validator:     validator,
		problemWriter: problemWriter,
		store:         store,
		now:           time.Now,
	}
}

func (h *Handler) ListHandler(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "ListHandler")
	defer span.End()
	logger := internal.WithContext(traceCtx, h.logger)

	factory := pagutil.NewFactory[Response](200, []string{"CreatedAt"})
	request, err := factory.GetRequest(r)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	tenantID, err := internal.GetTenantIDFromContext(traceCtx)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	items, err := h.store.List(traceCtx, tenantID)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	page := pageOf(items, request.Page, request.Size)
	responses := make([]Response, len(page))
	for i, item := range page {
		responses[i] = ToResponse(item)
	}

	response := factory.NewResponse(responses, len(items), request.Page, request.Size)

	handlerutil.WriteJSONResponse(w, http.StatusOK, response)
}

// pageOf returns the zero-based page of items holding size entries.
func pageOf[T any](items []T, page, size int) []T {
	start := page * size
	if start >= len(items) {
		return []T{}
	}
	end := min(start+size, len(items))
	return items[start:end]
}

func (h *Handler) CreateHandler(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "CreateHandler")
	defer span.End()
	logger := internal.WithContext(traceCtx, h.logger)

	var req Payload
	if err := handlerutil.ParseAndValidateRequestBody(traceCtx, h.validator, r, &req); err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	tenantID, err := internal.GetTenantIDFromContext(traceCtx)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}
	req.TenantID = tenantID

	created, err := h.store.Create(traceCtx, req)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	handlerutil.WriteJSONResponse(w, http.StatusCreated, ToResponse(created))
}

func (h *Handler) GetHandler(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "GetHandler")
	defer span.End()
	logger := internal.WithContext(traceCtx, h.logger)

	id, err := handlerutil.ParseUUID(r.PathValue("id"))
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	tenantID, err := internal.GetTenantIDFromContext(traceCtx)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	p, err := h.store.GetByID(traceCtx, tenantID, id)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	handlerutil.WriteJSONResponse(w, http.StatusOK, ToResponse(p))
}

func (h *Handler) UpdateHandler(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "UpdateHandler")
	defer span.End()
	logger := internal.WithContext(traceCtx, h.logger)

	id, err := handlerutil.ParseUUID(r.PathValue("id"))
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	var req Payload
	if err := handlerutil.ParseAndValidateRequestBody(traceCtx, h.validator, r, &req); err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	tenantID, err := internal.GetTenantIDFromContext(traceCtx)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}
	req.TenantID = tenantID

	updated, err := h.store.Update(traceCtx, id, req)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	handlerutil.WriteJSONResponse(w, http.StatusOK, ToResponse(updated))
}

func (h *Handler) CreateTestRunHandler(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "CreateTestRunHandler")
	defer span.End()
	logger := internal.WithContext(traceCtx, h.logger)

	id, err := handlerutil.ParseUUID(r.PathValue("id"))
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	tenantID, err := internal.GetTenantIDFromContext(traceCtx)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	run, err := h.store.RunTest(traceCtx, tenantID, id)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	handlerutil.WriteJSONResponse(w, http.StatusAccepted, ToTestRunResponse(run))
}

func (h *Handler) ListTestRunsHandler(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "ListTestRunsHandler")
	defer span.End()
	logger := internal.WithContext(traceCtx, h.logger)

	id, err := handlerutil.ParseUUID(r.PathValue("id"))
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	tenantID, err := internal.GetTenantIDFromContext(traceCtx)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	runs, err := h.store.ListTestRuns(traceCtx, tenantID, id)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	responses := make([]TestRunResponse, len(runs))
	for i, run := range runs {
		responses[i] = ToTestRunResponse(run)
	}

	handlerutil.WriteJSONResponse(w, http.StatusOK, responses)
}

// SchedulePreviewHandler derives the cron expression for a schedule
// selection and lists its next activations. An explicit "cron" query value
// takes precedence over frequency and time.
func (h *Handler) SchedulePreviewHandler(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "SchedulePreviewHandler")
	defer span.End()
	logger := internal.WithContext(traceCtx, h.logger)

	query := r.URL.Query()

	expr := query.Get("cron")
	if expr == "" {
		expr = schedule.ToCron(schedule.Frequency(query.Get("frequency")), query.Get("time"))
	}

	count := defaultPreviewRuns
	if raw := query.Get("count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxPreviewRuns {
			h.problemWriter.WriteError(traceCtx, w, internal.ErrValidationFailed, logger)
			return
		}
		count = n
	}

	runs, err := schedule.Upcoming(expr, h.now().UTC(), count)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	nextRuns := make([]string, len(runs))
	for i, run := range runs {
		nextRuns[i] = run.Format(time.RFC3339)
	}

	handlerutil.WriteJSONResponse(w, http.StatusOK, SchedulePreviewResponse{
		Cron:     expr,
		NextRuns: nextRuns,
	})
}

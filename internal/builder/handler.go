package builder

import (
	"net/http"

	"NYCU-SDC/playbook-builder-backend/internal"
	"NYCU-SDC/playbook-builder-backend/internal/playbook/workflow"
	"NYCU-SDC/playbook-builder-backend/internal/playbook/workflow/node"

	handlerutil "github.com/NYCU-SDC/summer/pkg/handler"
	"github.com/NYCU-SDC/summer/pkg/problem"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type OpenSessionRequest struct {
	PlaybookID string `json:"playbookId" validate:"omitempty,uuid"`
}

type AddNodeRequest struct {
	Type     string        `json:"type" validate:"required,nodetype"`
	Position node.Position `json:"position"`
}

type UpdateConfigRequest struct {
	Config map[string]any `json:"config" validate:"required"`
}

type MoveNodeRequest struct {
	Position node.Position `json:"position"`
}

type ConnectRequest struct {
	Source string `json:"source" validate:"required"`
	Target string `json:"target" validate:"required"`
}

type SelectRequest struct {
	NodeID string `json:"node_id"`
}

type SaveRequest struct {
	Enable bool `json:"enable"`
}

type SessionResponse struct {
	SessionID string `json:"session_id"`
	Snapshot
}

type NodeResponse struct {
	Node     workflow.CompiledNode `json:"node"`
	Snapshot Snapshot              `json:"session"`
}

type EdgeResponse struct {
	Edge     workflow.Edge `json:"edge"`
	Snapshot Snapshot      `json:"session"`
}

type SaveResponse struct {
	SaveResult
	Snapshot Snapshot `json:"session"`
}

type TestResponse struct {
	TestResult
	Snapshot Snapshot `json:"session"`
}

type KeyResponse struct {
	KeyResult
	Snapshot Snapshot `json:"session"`
}

type Handler struct {
	logger *zap.Logger
	tracer trace.Tracer

	validator     *validator.Validate
	problemWriter *problem.HttpWriter

	sessions *Sessions
}

func NewHandler(
	logger *zap.Logger,
	validator *validator.Validate,
	problemWriter *problem.HttpWriter,
	sessions *Sessions,
) *Handler {
	return &Handler{
		logger:        logger,
		tracer:        otel.Tracer("builder/handler"),
		validator:     validator,
		problemWriter: problemWriter,
		sessions:      sessions,
	}
}

// OpenHandler starts a session, loading an existing playbook when the body
// names one. A session whose load fails is closed again.
func (h *Handler) OpenHandler(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "OpenHandler")
	defer span.End()
	logger := internal.WithContext(traceCtx, h.logger)

	var req OpenSessionRequest
	if r.ContentLength != 0 {
		if err := handlerutil.ParseAndValidateRequestBody(traceCtx, h.validator, r, &req); err != nil {
			h.problemWriter.WriteError(traceCtx, w, err, logger)
			return
		}
	}

	tenantID, err := internal.GetTenantIDFromContext(traceCtx)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	sessionID, controller := h.sessions.Open(tenantID)

	if req.PlaybookID != "" {
		playbookID, err := handlerutil.ParseUUID(req.PlaybookID)
		if err != nil {
			_ = h.sessions.Close(tenantID, sessionID)
			h.problemWriter.WriteError(traceCtx, w, err, logger)
			return
		}

		if err := controller.Load(traceCtx, playbookID); err != nil {
			_ = h.sessions.Close(tenantID, sessionID)
			span.RecordError(err)
			h.problemWriter.WriteError(traceCtx, w, err, logger)
			return
		}
	}

	handlerutil.WriteJSONResponse(w, http.StatusCreated, SessionResponse{
		SessionID: sessionID.String(),
		Snapshot:  controller.Snapshot(),
	})
}

func (h *Handler) GetHandler(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "GetHandler")
	defer span.End()
	logger := internal.WithContext(traceCtx, h.logger)

	sessionID, controller, err := h.session(r)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	handlerutil.WriteJSONResponse(w, http.StatusOK, SessionResponse{
		SessionID: sessionID.String(),
		Snapshot:  controller.Snapshot(),
	})
}

func (h *Handler) CloseHandler(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "CloseHandler")
	defer span.End()
	logger := internal.WithContext(traceCtx, h.logger)

	tenantID, err := internal.GetTenantIDFromContext(traceCtx)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	sessionID, err := handlerutil.ParseUUID(r.PathValue("sessionId"))
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	if err := h.sessions.Close(tenantID, sessionID); err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	handlerutil.WriteJSONResponse(w, http.StatusNoContent, nil)
}

func (h *Handler) AddNodeHandler(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "AddNodeHandler")
	defer span.End()
	logger := internal.WithContext(traceCtx, h.logger)

	_, controller, err := h.session(r)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	var req AddNodeRequest
	if err := handlerutil.ParseAndValidateRequestBody(traceCtx, h.validator, r, &req); err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	added, err := controller.AddNode(node.Type(req.Type), req.Position)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	handlerutil.WriteJSONResponse(w, http.StatusCreated, NodeResponse{
		Node:     workflow.CompileNode(added),
		Snapshot: controller.Snapshot(),
	})
}

func (h *Handler) UpdateNodeConfigHandler(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "UpdateNodeConfigHandler")
	defer span.End()
	logger := internal.WithContext(traceCtx, h.logger)

	_, controller, err := h.session(r)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	var req UpdateConfigRequest
	if err := handlerutil.ParseAndValidateRequestBody(traceCtx, h.validator, r, &req); err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	if err := controller.UpdateNodeConfigRaw(r.PathValue("nodeId"), req.Config); err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	handlerutil.WriteJSONResponse(w, http.StatusOK, controller.Snapshot())
}

func (h *Handler) MoveNodeHandler(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "MoveNodeHandler")
	defer span.End()
	logger := internal.WithContext(traceCtx, h.logger)

	_, controller, err := h.session(r)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	var req MoveNodeRequest
	if err := handlerutil.ParseAndValidateRequestBody(traceCtx, h.validator, r, &req); err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	if err := controller.MoveNode(r.PathValue("nodeId"), req.Position); err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	handlerutil.WriteJSONResponse(w, http.StatusOK, controller.Snapshot())
}

func (h *Handler) RemoveNodeHandler(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "RemoveNodeHandler")
	defer span.End()
	logger := internal.WithContext(traceCtx, h.logger)

	_, controller, err := h.session(r)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	if err := controller.RemoveNode(r.PathValue("nodeId")); err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	handlerutil.WriteJSONResponse(w, http.StatusOK, controller.Snapshot())
}

func (h *Handler) ConnectHandler(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "ConnectHandler")
	defer span.End()
	logger := internal.WithContext(traceCtx, h.logger)

	_, controller, err := h.session(r)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	var req ConnectRequest
	if err := handlerutil.ParseAndValidateRequestBody(traceCtx, h.validator, r, &req); err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	edge, err := controller.Connect(req.Source, req.Target)
	if err != nil {
		logger.Debug("connection refused", zap.String("source", req.Source), zap.String("target", req.Target), zap.Error(err))
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	handlerutil.WriteJSONResponse(w, http.StatusCreated, EdgeResponse{
		Edge:     edge,
		Snapshot: controller.Snapshot(),
	})
}

func (h *Handler) SelectHandler(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "SelectHandler")
	defer span.End()
	logger := internal.WithContext(traceCtx, h.logger)

	_, controller, err := h.session(r)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	var req SelectRequest
	if err := handlerutil.ParseAndValidateRequestBody(traceCtx, h.validator, r, &req); err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	if err := controller.Select(req.NodeID); err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	handlerutil.WriteJSONResponse(w, http.StatusOK, controller.Snapshot())
}

func (h *Handler) UpdateMetadataHandler(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "UpdateMetadataHandler")
	defer span.End()
	logger := internal.WithContext(traceCtx, h.logger)

	_, controller, err := h.session(r)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	var req MetadataUpdate
	if err := handlerutil.ParseAndValidateRequestBody(traceCtx, h.validator, r, &req); err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	if err := controller.UpdateMetadata(req); err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	handlerutil.WriteJSONResponse(w, http.StatusOK, controller.Snapshot())
}

func (h *Handler) SaveHandler(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "SaveHandler")
	defer span.End()
	logger := internal.WithContext(traceCtx, h.logger)

	_, controller, err := h.session(r)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	var req SaveRequest
	if r.ContentLength != 0 {
		if err := handlerutil.ParseAndValidateRequestBody(traceCtx, h.validator, r, &req); err != nil {
			h.problemWriter.WriteError(traceCtx, w, err, logger)
			return
		}
	}

	var result SaveResult
	if req.Enable {
		result, err = controller.SaveAndEnable(traceCtx)
	} else {
		result, err = controller.SaveDraft(traceCtx)
	}
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	handlerutil.WriteJSONResponse(w, http.StatusOK, SaveResponse{
		SaveResult: result,
		Snapshot:   controller.Snapshot(),
	})
}

func (h *Handler) TestHandler(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "TestHandler")
	defer span.End()
	logger := internal.WithContext(traceCtx, h.logger)

	_, controller, err := h.session(r)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	result, err := controller.Test(traceCtx)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	handlerutil.WriteJSONResponse(w, http.StatusAccepted, TestResponse{
		TestResult: result,
		Snapshot:   controller.Snapshot(),
	})
}

func (h *Handler) KeyHandler(w http.ResponseWriter, r *http.Request) {
	traceCtx, span := h.tracer.Start(r.Context(), "KeyHandler")
	defer span.End()
	logger := internal.WithContext(traceCtx, h.logger)

	_, controller, err := h.session(r)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	var req KeyEvent
	if err := handlerutil.ParseAndValidateRequestBody(traceCtx, h.validator, r, &req); err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	result, err := controller.HandleKey(traceCtx, req)
	if err != nil {
		h.problemWriter.WriteError(traceCtx, w, err, logger)
		return
	}

	handlerutil.WriteJSONResponse(w, http.StatusOK, KeyResponse{
		KeyResult: result,
		Snapshot:  controller.Snapshot(),
	})
}

func (h *Handler) session(r *http.Request) (uuid.UUID, *Controller, error) {
	tenantID, err := internal.GetTenantIDFromContext(r.Context())
	if err != nil {
		return uuid.Nil, nil, err
	}

	sessionID, err := handlerutil.ParseUUID(r.PathValue("sessionId"))
	if err != nil {
		return uuid.Nil, nil, err
	}

	controller, err := h.sessions.Get(tenantID, sessionID)
	if err != nil {
		return uuid.Nil, nil, err
	}

	return sessionID, controller, nil
}

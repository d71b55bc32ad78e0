package builder_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"NYCU-SDC/playbook-builder-backend/internal"
	"NYCU-SDC/playbook-builder-backend/internal/builder"
	"NYCU-SDC/playbook-builder-backend/internal/playbook"
	"NYCU-SDC/playbook-builder-backend/internal/playbook/workflow"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestMux(store builder.Store) *http.ServeMux {
	logger := zap.NewNop()
	sessions := builder.NewSessions(logger, builder.NewStoreFactory(logger, store, builder.WithGraphOptions(workflow.WithIDFunc(sequentialIDs()))))
	h := builder.NewHandler(logger, internal.NewValidator(), internal.NewProblemWriter(), sessions)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /sessions", h.OpenHandler)
	mux.HandleFunc("GET /sessions/{sessionId}", h.GetHandler)
	mux.HandleFunc("DELETE /sessions/{sessionId}", h.CloseHandler)
	mux.HandleFunc("POST /sessions/{sessionId}/nodes", h.AddNodeHandler)
	mux.HandleFunc("DELETE /sessions/{sessionId}/nodes/{nodeId}", h.RemoveNodeHandler)
	mux.HandleFunc("POST /sessions/{sessionId}/edges", h.ConnectHandler)
	mux.HandleFunc("PUT /sessions/{sessionId}/selection", h.SelectHandler)
	mux.HandleFunc("POST /sessions/{sessionId}/save", h.SaveHandler)
	mux.HandleFunc("POST /sessions/{sessionId}/keys", h.KeyHandler)
	return mux
}

// call sends a request as tenantID and decodes a JSON object response
func call(t *testing.T, mux http.Handler, tenantID uuid.UUID, method, path string, body any) (int, map[string]any) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req = req.WithContext(context.WithValue(req.Context(), internal.TenantIDContextKey, tenantID))

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	var decoded map[string]any
	if rec.Body.Len() > 0 {
		_ = json.Unmarshal(rec.Body.Bytes(), &decoded)
	}
	return rec.Code, decoded
}

func TestHandler_EditAndSave(t *testing.T) {
	t.Parallel()

	tenantID := uuid.New()
	playbookID := uuid.New()

	store := &mockStore{}
	store.On("Create", mock.Anything, mock.MatchedBy(func(p playbook.Payload) bool {
		return p.TenantID == tenantID && p.Enabled && len(p.Workflow.Edges) == 1
	})).Return(playbook.Playbook{ID: playbookID, TenantID: tenantID, Enabled: true}, nil).Once()

	mux := newTestMux(store)

	code, opened := call(t, mux, tenantID, http.MethodPost, "/sessions", nil)
	require.Equal(t, http.StatusCreated, code)
	require.Equal(t, string(builder.StateEditing), opened["state"])
	sessionPath := "/sessions/" + opened["session_id"].(string)

	code, added := call(t, mux, tenantID, http.MethodPost, sessionPath+"/nodes", map[string]any{"type": "trigger", "position": map[string]any{"x": 10, "y": 20}})
	require.Equal(t, http.StatusCreated, code)
	triggerNode := added["node"].(map[string]any)
	require.Equal(t, "n1", triggerNode["id"])
	require.Equal(t, "violation", triggerNode["config"].(map[string]any)["triggerType"])

	code, _ = call(t, mux, tenantID, http.MethodPost, sessionPath+"/nodes", map[string]any{"type": "action"})
	require.Equal(t, http.StatusCreated, code)

	code, _ = call(t, mux, tenantID, http.MethodPost, sessionPath+"/edges", map[string]any{"source": "n2", "target": "n1"})
	require.Equal(t, http.StatusBadRequest, code, "actions cannot start a connection")

	code, connected := call(t, mux, tenantID, http.MethodPost, sessionPath+"/edges", map[string]any{"source": "n1", "target": "n2"})
	require.Equal(t, http.StatusCreated, code)
	require.Equal(t, "edge-n1-n2", connected["edge"].(map[string]any)["id"])

	code, saved := call(t, mux, tenantID, http.MethodPost, sessionPath+"/save", map[string]any{"enable": true})
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, playbookID.String(), saved["playbook_id"])
	require.Equal(t, true, saved["enabled"])
	require.Equal(t, string(builder.StateSaved), saved["session"].(map[string]any)["state"])

	store.AssertExpectations(t)
}

func TestHandler_DeleteKey(t *testing.T) {
	t.Parallel()

	tenantID := uuid.New()
	mux := newTestMux(&mockStore{})

	_, opened := call(t, mux, tenantID, http.MethodPost, "/sessions", nil)
	sessionPath := "/sessions/" + opened["session_id"].(string)

	code, _ := call(t, mux, tenantID, http.MethodPost, sessionPath+"/nodes", map[string]any{"type": "condition"})
	require.Equal(t, http.StatusCreated, code)

	code, pressed := call(t, mux, tenantID, http.MethodPost, sessionPath+"/keys", map[string]any{"key": "Delete"})
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, string(builder.KeyActionNone), pressed["action"], "nothing selected")

	code, _ = call(t, mux, tenantID, http.MethodPut, sessionPath+"/selection", map[string]any{"node_id": "n1"})
	require.Equal(t, http.StatusOK, code)

	code, pressed = call(t, mux, tenantID, http.MethodPost, sessionPath+"/keys", map[string]any{"key": "Backspace"})
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, string(builder.KeyActionDeleteNode), pressed["action"])
	require.Empty(t, pressed["session"].(map[string]any)["workflow"].(map[string]any)["nodes"])
}

func TestHandler_SessionScope(t *testing.T) {
	t.Parallel()

	owner := uuid.New()
	other := uuid.New()
	mux := newTestMux(&mockStore{})

	_, opened := call(t, mux, owner, http.MethodPost, "/sessions", nil)
	sessionPath := "/sessions/" + opened["session_id"].(string)

	code, _ := call(t, mux, other, http.MethodGet, sessionPath, nil)
	require.Equal(t, http.StatusNotFound, code)

	code, _ = call(t, mux, other, http.MethodDelete, sessionPath, nil)
	require.Equal(t, http.StatusNotFound, code)

	code, _ = call(t, mux, owner, http.MethodDelete, sessionPath, nil)
	require.Equal(t, http.StatusNoContent, code)

	code, _ = call(t, mux, owner, http.MethodGet, sessionPath, nil)
	require.Equal(t, http.StatusNotFound, code)

	code, _ = call(t, mux, owner, http.MethodDelete, sessionPath+"/nodes/n1", nil)
	require.Equal(t, http.StatusNotFound, code)
}

func TestHandler_OpenWithMissingPlaybook(t *testing.T) {
	t.Parallel()

	tenantID := uuid.New()
	playbookID := uuid.New()

	store := &mockStore{}
	store.On("GetByID", mock.Anything, tenantID, playbookID).Return(playbook.Playbook{}, internal.ErrPlaybookNotFound).Once()

	mux := newTestMux(store)

	code, _ := call(t, mux, tenantID, http.MethodPost, "/sessions", map[string]any{"playbookId": playbookID.String()})
	require.Equal(t, http.StatusNotFound, code)

	store.AssertExpectations(t)
}

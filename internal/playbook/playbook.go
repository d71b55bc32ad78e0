package playbook

import (
	"encoding/json"
	"time"

	"NYCU-SDC/playbook-builder-backend/internal/playbook/workflow"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const (
	DefaultName     = "Untitled Playbook"
	DefaultCategory = "enforcement"
)

type TestRunStatus string

const (
	TestRunStatusQueued TestRunStatus = "queued"
)

type Playbook struct {
	ID               uuid.UUID
	TenantID         uuid.UUID
	Name             string
	Description      string
	Category         string
	Enabled          bool
	TriggerType      string
	TriggerConfig    []byte
	Workflow         []byte
	LinkedControlIds []string
	ScheduleCron     pgtype.Text
	CreatedAt        pgtype.Timestamptz
	UpdatedAt        pgtype.Timestamptz
}

type TestRun struct {
	ID         uuid.UUID
	PlaybookID uuid.UUID
	TenantID   uuid.UUID
	Status     TestRunStatus
	Workflow   []byte
	CreatedAt  pgtype.Timestamptz
}

// Payload is the body of a create or update call. The builder assembles it
// from the compiled graph; REST clients send the same shape.
type Payload struct {
	TenantID         uuid.UUID         `json:"tenant_id"`
	Name             string            `json:"name" validate:"required,max=255"`
	Description      string            `json:"description"`
	Category         string            `json:"category" validate:"max=64"`
	TriggerType      string            `json:"trigger_type" validate:"max=64"`
	TriggerConfig    map[string]any    `json:"trigger_config"`
	Workflow         workflow.Document `json:"workflow"`
	Enabled          bool              `json:"enabled"`
	LinkedControlIDs []string          `json:"linked_control_ids"`
	ScheduleCron     *string           `json:"schedule_cron,omitempty"`
}

type Response struct {
	ID               string          `json:"playbook_id"`
	TenantID         string          `json:"tenant_id"`
	Name             string          `json:"name"`
	Description      string          `json:"description"`
	Category         string          `json:"category"`
	Enabled          bool            `json:"enabled"`
	TriggerType      string          `json:"trigger_type"`
	TriggerConfig    json.RawMessage `json:"trigger_config"`
	Workflow         json.RawMessage `json:"workflow"`
	LinkedControlIDs []string        `json:"linked_control_ids"`
	ScheduleCron     *string         `json:"schedule_cron"`
	CreatedAt        string          `json:"created_at"`
	UpdatedAt        string          `json:"updated_at"`
}

func ToResponse(p Playbook) Response {
	var scheduleCron *string
	if p.ScheduleCron.Valid {
		scheduleCron = &p.ScheduleCron.String
	}

	linked := p.LinkedControlIds
	if linked == nil {
		linked = []string{}
	}

	return Response{
		ID:               p.ID.String(),
		TenantID:         p.TenantID.String(),
		Name:             p.Name,
		Description:      p.Description,
		Category:         p.Category,
		Enabled:          p.Enabled,
		TriggerType:      p.TriggerType,
		TriggerConfig:    rawOrDefault(p.TriggerConfig, "{}"),
		Workflow:         rawOrDefault(p.Workflow, `{"nodes":[],"edges":[]}`),
		LinkedControlIDs: linked,
		ScheduleCron:     scheduleCron,
		CreatedAt:        p.CreatedAt.Time.Format(time.RFC3339),
		UpdatedAt:        p.UpdatedAt.Time.Format(time.RFC3339),
	}
}

type TestRunResponse struct {
	ID         string `json:"test_run_id"`
	PlaybookID string `json:"playbook_id"`
	Status     string `json:"status"`
	CreatedAt  string `json:"created_at"`
}

func ToTestRunResponse(run TestRun) TestRunResponse {
	return TestRunResponse{
		ID:         run.ID.String(),
		PlaybookID: run.PlaybookID.String(),
		Status:     string(run.Status),
		CreatedAt:  run.CreatedAt.Time.Format(time.RFC3339),
	}
}

func rawOrDefault(data []byte, fallback string) json.RawMessage {
	if len(data) == 0 {
		return json.RawMessage(fallback)
	}
	return data
}

package builder

import (
	"NYCU-SDC/playbook-builder-backend/internal/playbook"
	"NYCU-SDC/playbook-builder-backend/internal/playbook/schedule"
	"NYCU-SDC/playbook-builder-backend/internal/playbook/workflow"
)

// State is the lifecycle position of an editing session
type State string

const (
	StateLoading    State = "loading"
	StateEditing    State = "editing"
	StateValidating State = "validating"
	StateSaving     State = "saving"
	StateSaved      State = "saved"
	StateTesting    State = "testing"
	StateLoadFailed State = "load_failed"
)

// editable reports whether graph and metadata edits are accepted in s.
// Edits stay open while a save or test is in flight.
func (s State) editable() bool {
	switch s {
	case StateEditing, StateSaved, StateValidating, StateSaving, StateTesting:
		return true
	}
	return false
}

// settled reports whether a save or test may start from s.
func (s State) settled() bool {
	return s == StateEditing || s == StateSaved
}

// Metadata is the playbook level form next to the canvas
type Metadata struct {
	Name             string        `json:"name"`
	Description      string        `json:"description"`
	Category         string        `json:"category"`
	Enabled          bool          `json:"enabled"`
	LinkedControlIDs []string      `json:"linked_control_ids"`
	Schedule         schedule.Spec `json:"schedule"`
}

func defaultMetadata() Metadata {
	return Metadata{
		Name:             playbook.DefaultName,
		Category:         playbook.DefaultCategory,
		Enabled:          false,
		LinkedControlIDs: []string{},
		Schedule:         schedule.Spec{Mode: schedule.ModeManual},
	}
}

func metadataFromPlaybook(p playbook.Playbook) Metadata {
	m := Metadata{
		Name:             p.Name,
		Description:      p.Description,
		Category:         p.Category,
		Enabled:          p.Enabled,
		LinkedControlIDs: append([]string{}, p.LinkedControlIds...),
		Schedule:         schedule.FromCron(p.ScheduleCron.String),
	}
	if m.Category == "" {
		m.Category = playbook.DefaultCategory
	}
	return m
}

// MetadataUpdate is a partial edit of Metadata. Enabled is absent on
// purpose: only save-and-enable may change it.
type MetadataUpdate struct {
	Name             *string        `json:"name" validate:"omitempty,max=255"`
	Description      *string        `json:"description"`
	Category         *string        `json:"category" validate:"omitempty,max=64"`
	LinkedControlIDs *[]string      `json:"linked_control_ids"`
	Schedule         *schedule.Spec `json:"schedule"`
}

// Snapshot is a consistent read of a session at one point in time
type Snapshot struct {
	State       State             `json:"state"`
	PlaybookID  string            `json:"playbook_id,omitempty"`
	Metadata    Metadata          `json:"metadata"`
	Workflow    workflow.Document `json:"workflow"`
	SelectedID  string            `json:"selected_node_id,omitempty"`
	Busy        bool              `json:"busy"`
	Dirty       bool              `json:"dirty"`
	Warnings    []string          `json:"warnings"`
	Message     string            `json:"message,omitempty"`
	LastError   string            `json:"last_error,omitempty"`
	LastTestRun *TestRunSummary   `json:"last_test_run,omitempty"`
}

type TestRunSummary struct {
	ID     string `json:"test_run_id"`
	Status string `json:"status"`
}

// SaveResult is what a successful save reports back to the editor
type SaveResult struct {
	PlaybookID string   `json:"playbook_id"`
	Enabled    bool     `json:"enabled"`
	Warnings   []string `json:"warnings"`
	Message    string   `json:"message,omitempty"`
}

// TestResult reports a queued test run. Dirty is set when the session held
// edits newer than the stored document the run uses.
type TestResult struct {
	SaveResult
	Dirty   bool           `json:"dirty"`
	TestRun TestRunSummary `json:"test_run"`
}

package playbookbuilder

import (
	"context"
	"encoding/json"
	"testing"

	"NYCU-SDC/playbook-builder-backend/internal/playbook"
	"NYCU-SDC/playbook-builder-backend/internal/playbook/workflow"
	"NYCU-SDC/playbook-builder-backend/internal/playbook/workflow/node"
	"NYCU-SDC/playbook-builder-backend/test/testdata"
	"NYCU-SDC/playbook-builder-backend/test/testdata/dbbuilder"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/require"
)

type Builder struct {
	t  *testing.T
	db dbbuilder.DBTX
}

func New(t *testing.T, db dbbuilder.DBTX) *Builder {
	return &Builder{t: t, db: db}
}

func (b Builder) Queries() *playbook.Queries {
	return playbook.New(b.db)
}

// Create inserts a playbook row directly, bypassing the service checks so
// tests can seed documents the service would normalize or refuse.
func (b Builder) Create(tenantID uuid.UUID, opts ...Option) playbook.Playbook {
	p := &FactoryParams{
		ID:               uuid.New(),
		Name:             testdata.RandomPlaybookName(),
		Description:      testdata.RandomDescription(),
		Category:         playbook.DefaultCategory,
		Workflow:         b.TriggerToActionWorkflow(),
		TriggerType:      node.DefaultTriggerType,
		TriggerConfig:    []byte(`{"severity": ["critical"]}`),
		LinkedControlIDs: testdata.RandomControlIDs(2),
	}
	for _, opt := range opts {
		opt(p)
	}

	created, err := b.Queries().Create(context.Background(), playbook.CreateParams{
		ID:               p.ID,
		TenantID:         tenantID,
		Name:             p.Name,
		Description:      p.Description,
		Category:         p.Category,
		Enabled:          p.Enabled,
		TriggerType:      p.TriggerType,
		TriggerConfig:    p.TriggerConfig,
		Workflow:         p.Workflow,
		LinkedControlIds: p.LinkedControlIDs,
		ScheduleCron:     pgtype.Text{String: p.ScheduleCron, Valid: p.ScheduleCron != ""},
	})
	require.NoError(b.t, err)

	return created
}

// TriggerToActionWorkflow returns the stored form of a trigger wired to an action.
func (b Builder) TriggerToActionWorkflow() []byte {
	doc := workflow.Compile(
		[]node.Node{
			{ID: "trigger-1", Type: node.TypeTrigger, Config: node.DefaultConfig(node.TypeTrigger)},
			{ID: "action-1", Type: node.TypeAction, Position: node.Position{X: 240}, Config: node.DefaultConfig(node.TypeAction)},
		},
		[]workflow.Edge{{ID: workflow.EdgeID("trigger-1", "action-1"), Source: "trigger-1", Target: "action-1"}},
	)

	data, err := json.Marshal(doc)
	require.NoError(b.t, err)
	return data
}

// LegacyWorkflow returns a document written by an older editor, with aliased
// config keys and an edge pointing at a node that no longer exists.
func (b Builder) LegacyWorkflow() []byte {
	return []byte(`{
		"nodes": [
			{"id": "t", "type": "trigger", "position": {"x": 0, "y": 0}, "config": {"type": "drift", "severity": ["high", "critical"]}},
			{"id": "a", "type": "action", "position": {"x": 240, "y": 0}, "config": {"adapter": "crowdstrike", "action_type": "contain_host", "params": {"device": "{{signal.asset_id}}"}}}
		],
		"edges": [
			{"id": "edge-t-a", "source": "t", "target": "a"},
			{"id": "edge-t-gone", "source": "t", "target": "gone"}
		]
	}`)
}

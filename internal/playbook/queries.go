package playbook

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx pgx.Tx) *Queries {
	return &Queries{db: tx}
}

const playbookColumns = `id, tenant_id, name, description, category, enabled, trigger_type, trigger_config, workflow, linked_control_ids, schedule_cron, created_at, updated_at`

func scanPlaybook(row pgx.Row) (Playbook, error) {
	var p Playbook
	err := row.Scan(
		&p.ID,
		&p.TenantID,
		&p.Name,
		&p.Description,
		&p.Category,
		&p.Enabled,
		&p.TriggerType,
		&p.TriggerConfig,
		&p.Workflow,
		&p.LinkedControlIds,
		&p.ScheduleCron,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	return p, err
}

const create = `
INSERT INTO playbooks (id, tenant_id, name, description, category, enabled, trigger_type, trigger_config, workflow, linked_control_ids, schedule_cron)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
RETURNING ` + playbookColumns

type CreateParams struct {
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
}

func (q *Queries) Create(ctx context.Context, arg CreateParams) (Playbook, error) {
	row := q.db.QueryRow(ctx, create,
		arg.ID,
		arg.TenantID,
		arg.Name,
		arg.Description,
		arg.Category,
		arg.Enabled,
		arg.TriggerType,
		arg.TriggerConfig,
		arg.Workflow,
		arg.LinkedControlIds,
		arg.ScheduleCron,
	)
	return scanPlaybook(row)
}

const update = `
UPDATE playbooks
SET name = $3, description = $4, category = $5, enabled = $6, trigger_type = $7, trigger_config = $8,
    workflow = $9, linked_control_ids = $10, schedule_cron = $11, updated_at = now()
WHERE id = $1 AND tenant_id = $2
RETURNING ` + playbookColumns

type UpdateParams struct {
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
}

func (q *Queries) Update(ctx context.Context, arg UpdateParams) (Playbook, error) {
	row := q.db.QueryRow(ctx, update,
		arg.ID,
		arg.TenantID,
		arg.Name,
		arg.Description,
		arg.Category,
		arg.Enabled,
		arg.TriggerType,
		arg.TriggerConfig,
		arg.Workflow,
		arg.LinkedControlIds,
		arg.ScheduleCron,
	)
	return scanPlaybook(row)
}

const getByID = `SELECT ` + playbookColumns + ` FROM playbooks WHERE id = $1 AND tenant_id = $2`

type GetByIDParams struct {
	ID       uuid.UUID
	TenantID uuid.UUID
}

func (q *Queries) GetByID(ctx context.Context, arg GetByIDParams) (Playbook, error) {
	return scanPlaybook(q.db.QueryRow(ctx, getByID, arg.ID, arg.TenantID))
}

const listByTenant = `SELECT ` + playbookColumns + ` FROM playbooks WHERE tenant_id = $1 ORDER BY created_at DESC, id`

func (q *Queries) ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]Playbook, error) {
	rows, err := q.db.Query(ctx, listByTenant, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []Playbook{}
	for rows.Next() {
		p, err := scanPlaybook(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createTestRun = `
INSERT INTO playbook_test_runs (id, playbook_id, tenant_id, status, workflow)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, playbook_id, tenant_id, status, workflow, created_at`

type CreateTestRunParams struct {
	ID         uuid.UUID
	PlaybookID uuid.UUID
	TenantID   uuid.UUID
	Status     TestRunStatus
	Workflow   []byte
}

func (q *Queries) CreateTestRun(ctx context.Context, arg CreateTestRunParams) (TestRun, error) {
	row := q.db.QueryRow(ctx, createTestRun,
		arg.ID,
		arg.PlaybookID,
		arg.TenantID,
		arg.Status,
		arg.Workflow,
	)
	var run TestRun
	err := row.Scan(
		&run.ID,
		&run.PlaybookID,
		&run.TenantID,
		&run.Status,
		&run.Workflow,
		&run.CreatedAt,
	)
	return run, err
}

const listTestRuns = `SELECT id, playbook_id, tenant_id, status, workflow, created_at FROM playbook_test_runs WHERE playbook_id = $1 AND tenant_id = $2 ORDER BY created_at DESC, id`

type ListTestRunsParams struct {
	PlaybookID uuid.UUID
	TenantID   uuid.UUID
}

func (q *Queries) ListTestRuns(ctx context.Context, arg ListTestRunsParams) ([]TestRun, error) {
	rows, err := q.db.Query(ctx, listTestRuns, arg.PlaybookID, arg.TenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []TestRun{}
	for rows.Next() {
		var run TestRun
		if err := rows.Scan(
			&run.ID,
			&run.PlaybookID,
			&run.TenantID,
			&run.Status,
			&run.Workflow,
			&run.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, run)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

package playbook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"NYCU-SDC/playbook-builder-backend/internal"
	"NYCU-SDC/playbook-builder-backend/internal/playbook/schedule"
	"NYCU-SDC/playbook-builder-backend/internal/playbook/workflow"

	databaseutil "github.com/NYCU-SDC/summer/pkg/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type Querier interface {
	Create(ctx context.Context, arg CreateParams) (Playbook, error)
	Update(ctx context.Context, arg UpdateParams) (Playbook, error)
	GetByID(ctx context.Context, arg GetByIDParams) (Playbook, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID) ([]Playbook, error)
	CreateTestRun(ctx context.Context, arg CreateTestRunParams) (TestRun, error)
	ListTestRuns(ctx context.Context, arg ListTestRunsParams) ([]TestRun, error)
}

type Service struct {
	logger  *zap.Logger
	queries Querier
	tracer  trace.Tracer
}

func NewService(logger *zap.Logger, db DBTX) *Service {
	return &Service{
		logger:  logger,
		queries: New(db),
		tracer:  otel.Tracer("playbook/service"),
	}
}

// record is the storage form of a payload after the server side checks
type record struct {
	name             string
	description      string
	category         string
	enabled          bool
	triggerType      string
	triggerConfig    []byte
	workflow         []byte
	linkedControlIDs []string
	scheduleCron     pgtype.Text
}

// prepare validates a payload and derives the stored row from it. The
// trigger fields are recomputed from the workflow document so they always
// describe its first trigger node.
func (s *Service) prepare(payload Payload, logger *zap.Logger) (record, error) {
	doc := payload.Workflow
	if doc.Nodes == nil {
		doc.Nodes = []workflow.CompiledNode{}
	}
	if doc.Edges == nil {
		doc.Edges = []workflow.CompiledEdge{}
	}

	workflowJSON, err := json.Marshal(doc)
	if err != nil {
		return record{}, fmt.Errorf("%w: %w", internal.ErrInvalidWorkflow, err)
	}

	err = workflow.ValidateDocument(workflowJSON)
	if err != nil {
		return record{}, fmt.Errorf("%w: %w", internal.ErrInvalidWorkflow, err)
	}

	nodes, _, err := workflow.ParseDocument(workflowJSON)
	if err != nil {
		return record{}, fmt.Errorf("%w: %w", internal.ErrInvalidWorkflow, err)
	}

	triggerType, triggerConfig := workflow.ProjectTrigger(nodes)
	if payload.TriggerType != "" && payload.TriggerType != triggerType {
		logger.Debug("trigger type in payload does not match workflow, using workflow",
			zap.String("payload_trigger_type", payload.TriggerType),
			zap.String("workflow_trigger_type", triggerType))
	}

	triggerConfigJSON, err := json.Marshal(triggerConfig)
	if err != nil {
		return record{}, fmt.Errorf("%w: %w", internal.ErrInvalidWorkflow, err)
	}

	var scheduleCron pgtype.Text
	if payload.ScheduleCron != nil && strings.TrimSpace(*payload.ScheduleCron) != "" {
		expr := strings.TrimSpace(*payload.ScheduleCron)
		if err := schedule.Validate(expr); err != nil {
			return record{}, fmt.Errorf("%w: %w", internal.ErrInvalidSchedule, err)
		}
		scheduleCron = pgtype.Text{String: expr, Valid: true}
	}

	category := payload.Category
	if category == "" {
		category = DefaultCategory
	}

	linked := payload.LinkedControlIDs
	if linked == nil {
		linked = []string{}
	}

	return record{
		name:             payload.Name,
		description:      payload.Description,
		category:         category,
		enabled:          payload.Enabled,
		triggerType:      triggerType,
		triggerConfig:    triggerConfigJSON,
		workflow:         workflowJSON,
		linkedControlIDs: linked,
		scheduleCron:     scheduleCron,
	}, nil
}

func (s *Service) Create(ctx context.Context, payload Payload) (Playbook, error) {
	traceCtx, span := s.tracer.Start(ctx, "Create")
	defer span.End()
	logger := internal.WithContext(traceCtx, s.logger)

	rec, err := s.prepare(payload, logger)
	if err != nil {
		span.RecordError(err)
		return Playbook{}, err
	}

	created, err := s.queries.Create(traceCtx, CreateParams{
		ID:               uuid.New(),
		TenantID:         payload.TenantID,
		Name:             rec.name,
		Description:      rec.description,
		Category:         rec.category,
		Enabled:          rec.enabled,
		TriggerType:      rec.triggerType,
		TriggerConfig:    rec.triggerConfig,
		Workflow:         rec.workflow,
		LinkedControlIds: rec.linkedControlIDs,
		ScheduleCron:     rec.scheduleCron,
	})
	if err != nil {
		err = databaseutil.WrapDBErrorWithKeyValue(err, "playbooks", "tenant_id", payload.TenantID.String(), logger, "create playbook")
		span.RecordError(err)
		return Playbook{}, err
	}

	logger.Info("playbook created", zap.String("playbook_id", created.ID.String()), zap.Bool("enabled", created.Enabled))

	return created, nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, payload Payload) (Playbook, error) {
	traceCtx, span := s.tracer.Start(ctx, "Update")
	defer span.End()
	logger := internal.WithContext(traceCtx, s.logger)

	rec, err := s.prepare(payload, logger)
	if err != nil {
		span.RecordError(err)
		return Playbook{}, err
	}

	updated, err := s.queries.Update(traceCtx, UpdateParams{
		ID:               id,
		TenantID:         payload.TenantID,
		Name:             rec.name,
		Description:      rec.description,
		Category:         rec.category,
		Enabled:          rec.enabled,
		TriggerType:      rec.triggerType,
		TriggerConfig:    rec.triggerConfig,
		Workflow:         rec.workflow,
		LinkedControlIds: rec.linkedControlIDs,
		ScheduleCron:     rec.scheduleCron,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.RecordError(internal.ErrPlaybookNotFound)
			return Playbook{}, internal.ErrPlaybookNotFound
		}
		err = databaseutil.WrapDBErrorWithKeyValue(err, "playbooks", "id", id.String(), logger, "update playbook")
		span.RecordError(err)
		return Playbook{}, err
	}

	logger.Info("playbook updated", zap.String("playbook_id", updated.ID.String()), zap.Bool("enabled", updated.Enabled))

	return updated, nil
}

func (s *Service) GetByID(ctx context.Context, tenantID, id uuid.UUID) (Playbook, error) {
	traceCtx, span := s.tracer.Start(ctx, "GetByID")
	defer span.End()
	logger := internal.WithContext(traceCtx, s.logger)

	p, err := s.queries.GetByID(traceCtx, GetByIDParams{ID: id, TenantID: tenantID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.RecordError(internal.ErrPlaybookNotFound)
			return Playbook{}, internal.ErrPlaybookNotFound
		}
		err = databaseutil.WrapDBErrorWithKeyValue(err, "playbooks", "id", id.String(), logger, "get playbook by id")
		span.RecordError(err)
		return Playbook{}, err
	}

	return p, nil
}

func (s *Service) List(ctx context.Context, tenantID uuid.UUID) ([]Playbook, error) {
	traceCtx, span := s.tracer.Start(ctx, "List")
	defer span.End()
	logger := internal.WithContext(traceCtx, s.logger)

	items, err := s.queries.ListByTenant(traceCtx, tenantID)
	if err != nil {
		err = databaseutil.WrapDBError(err, logger, "list playbooks by tenant")
		span.RecordError(err)
		return []Playbook{}, err
	}

	return items, nil
}

// RunTest records a test run against the stored workflow of a playbook.
// Execution itself happens outside this service.
func (s *Service) RunTest(ctx context.Context, tenantID, id uuid.UUID) (TestRun, error) {
	traceCtx, span := s.tracer.Start(ctx, "RunTest")
	defer span.End()
	logger := internal.WithContext(traceCtx, s.logger)

	p, err := s.GetByID(traceCtx, tenantID, id)
	if err != nil {
		span.RecordError(err)
		return TestRun{}, err
	}

	err = workflow.ValidateDocument(p.Workflow)
	if err != nil {
		err = fmt.Errorf("%w: %w", internal.ErrInvalidWorkflow, err)
		span.RecordError(err)
		return TestRun{}, err
	}

	run, err := s.queries.CreateTestRun(traceCtx, CreateTestRunParams{
		ID:         uuid.New(),
		PlaybookID: p.ID,
		TenantID:   tenantID,
		Status:     TestRunStatusQueued,
		Workflow:   p.Workflow,
	})
	if err != nil {
		err = databaseutil.WrapDBErrorWithKeyValue(err, "playbook_test_runs", "playbook_id", id.String(), logger, "create playbook test run")
		span.RecordError(err)
		return TestRun{}, err
	}

	logger.Info("playbook test run queued", zap.String("playbook_id", p.ID.String()), zap.String("test_run_id", run.ID.String()))

	return run, nil
}

func (s *Service) ListTestRuns(ctx context.Context, tenantID, id uuid.UUID) ([]TestRun, error) {
	traceCtx, span := s.tracer.Start(ctx, "ListTestRuns")
	defer span.End()
	logger := internal.WithContext(traceCtx, s.logger)

	runs, err := s.queries.ListTestRuns(traceCtx, ListTestRunsParams{PlaybookID: id, TenantID: tenantID})
	if err != nil {
		err = databaseutil.WrapDBErrorWithKeyValue(err, "playbook_test_runs", "playbook_id", id.String(), logger, "list playbook test runs")
		span.RecordError(err)
		return []TestRun{}, err
	}

	return runs, nil
}

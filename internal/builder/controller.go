package builder

import (
	"context"
	"fmt"
	"sync"
	"time"

	"NYCU-SDC/playbook-builder-backend/internal"
	"NYCU-SDC/playbook-builder-backend/internal/playbook"
	"NYCU-SDC/playbook-builder-backend/internal/playbook/schedule"
	"NYCU-SDC/playbook-builder-backend/internal/playbook/workflow"
	"NYCU-SDC/playbook-builder-backend/internal/playbook/workflow/node"

	logutil "github.com/NYCU-SDC/summer/pkg/log"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const DefaultTestTimeout = 30 * time.Second

// Store is the persistence collaborator of a session
//
//go:generate mockery --name Store
type Store interface {
	Create(ctx context.Context, payload playbook.Payload) (playbook.Playbook, error)
	Update(ctx context.Context, id uuid.UUID, payload playbook.Payload) (playbook.Playbook, error)
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (playbook.Playbook, error)
	RunTest(ctx context.Context, tenantID, id uuid.UUID) (playbook.TestRun, error)
}

type Option func(*Controller)

func WithTestTimeout(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.testTimeout = d
		}
	}
}

func WithGraphOptions(opts ...workflow.Option) Option {
	return func(c *Controller) {
		c.graphOpts = append(c.graphOpts, opts...)
	}
}

// Controller owns one editing session: the graph, the playbook metadata and
// the lifecycle state. All methods are safe for concurrent use. Persistence
// calls run outside the lock behind the busy flag, so at most one save or
// test is in flight per session.
type Controller struct {
	logger *zap.Logger
	tracer trace.Tracer
	store  Store

	tenantID    uuid.UUID
	testTimeout time.Duration
	graphOpts   []workflow.Option

	mu         sync.Mutex
	graph      *workflow.Graph
	state      State
	playbookID uuid.UUID
	meta       Metadata
	selected   string
	busy       bool
	closed     bool

	// revision counts edits; savedRevision is the revision of the last
	// successful save.
	revision      uint64
	savedRevision uint64
	loadSeq       uint64

	warnings    []string
	lastError   string
	lastTestRun *TestRunSummary
}

// NewController starts a blank session for tenantID in the editing state.
func NewController(logger *zap.Logger, store Store, tenantID uuid.UUID, opts ...Option) *Controller {
	c := &Controller{
		logger:      logger,
		tracer:      otel.Tracer("builder/controller"),
		store:       store,
		tenantID:    tenantID,
		testTimeout: DefaultTestTimeout,
		state:       StateEditing,
		meta:        defaultMetadata(),
		warnings:    []string{},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.graph = workflow.NewGraph(c.graphOpts...)
	return c
}

func (c *Controller) TenantID() uuid.UUID {
	return c.tenantID
}

// Load fetches a stored playbook and seeds the session from it. The graph is
// replaced only when the whole document loads; otherwise the session ends in
// load_failed. A result that arrives after a newer Load started, or after
// Close, is discarded with ErrStaleLoad.
func (c *Controller) Load(ctx context.Context, playbookID uuid.UUID) error {
	traceCtx, span := c.tracer.Start(ctx, "Load")
	defer span.End()
	logger := c.contextLogger(traceCtx)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return fmt.Errorf("%w: session is closed", internal.ErrInvalidTransition)
	}
	if c.busy {
		c.mu.Unlock()
		return internal.ErrBuilderBusy
	}
	c.loadSeq++
	seq := c.loadSeq
	c.state = StateLoading
	c.mu.Unlock()

	p, fetchErr := c.store.GetByID(traceCtx, c.tenantID, playbookID)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || seq != c.loadSeq {
		logger.Debug("discarding stale playbook load", zap.String("playbook_id", playbookID.String()))
		return internal.ErrStaleLoad
	}

	if fetchErr != nil {
		return c.failLoad(fetchErr, span, logger)
	}

	nodes, edges, err := workflow.ParseDocument(p.Workflow)
	if err != nil {
		return c.failLoad(err, span, logger)
	}

	graph := workflow.NewGraph(c.graphOpts...)
	dropped, err := graph.Seed(nodes, edges)
	if err != nil {
		return c.failLoad(err, span, logger)
	}
	for _, e := range dropped {
		logger.Warn("dropped edge with missing endpoint", zap.String("edge_id", e.ID), zap.String("source", e.Source), zap.String("target", e.Target))
	}

	c.graph = graph
	c.playbookID = p.ID
	c.meta = metadataFromPlaybook(p)
	c.selected = ""
	c.revision = 0
	c.savedRevision = 0
	c.warnings = []string{}
	c.lastError = ""
	c.lastTestRun = nil
	c.state = StateEditing

	logger.Info("playbook loaded into builder", zap.String("playbook_id", p.ID.String()), zap.Int("nodes", len(nodes)), zap.Int("edges", len(edges)-len(dropped)))

	return nil
}

func (c *Controller) failLoad(err error, span trace.Span, logger *zap.Logger) error {
	c.state = StateLoadFailed
	c.lastError = err.Error()
	err = fmt.Errorf("%w: %w", internal.ErrLoadFailed, err)
	span.RecordError(err)
	logger.Warn("failed to load playbook into builder", zap.Error(err))
	return err
}

func (c *Controller) AddNode(t node.Type, position node.Position) (node.Node, error) {
	var added node.Node
	err := c.mutate(func(g *workflow.Graph) error {
		var err error
		added, err = g.AddNode(t, position)
		return err
	})
	return added, err
}

func (c *Controller) UpdateNodeConfig(nodeID string, config node.Config) error {
	return c.mutate(func(g *workflow.Graph) error {
		return g.UpdateNodeConfig(nodeID, config)
	})
}

// UpdateNodeConfigRaw decodes raw against the node's own type and replaces
// its config.
func (c *Controller) UpdateNodeConfigRaw(nodeID string, raw map[string]any) error {
	return c.mutate(func(g *workflow.Graph) error {
		n, ok := g.Node(nodeID)
		if !ok {
			return fmt.Errorf("%w: %s", workflow.ErrNodeNotFound, nodeID)
		}
		config, err := node.Decode(n.Type, raw)
		if err != nil {
			return err
		}
		return g.UpdateNodeConfig(nodeID, config)
	})
}

func (c *Controller) MoveNode(nodeID string, position node.Position) error {
	return c.mutate(func(g *workflow.Graph) error {
		return g.MoveNode(nodeID, position)
	})
}

func (c *Controller) RemoveNode(nodeID string) error {
	return c.mutate(func(g *workflow.Graph) error {
		if err := g.RemoveNode(nodeID); err != nil {
			return err
		}
		if c.selected == nodeID {
			c.selected = ""
		}
		return nil
	})
}

// Connect draws an edge between two nodes. A refused connection leaves the
// graph unchanged and returns a *workflow.ConnectionError.
func (c *Controller) Connect(sourceID, targetID string) (workflow.Edge, error) {
	var edge workflow.Edge
	err := c.mutate(func(g *workflow.Graph) error {
		var err error
		edge, err = g.Connect(sourceID, targetID)
		return err
	})
	return edge, err
}

// Select marks nodeID as the target of keyboard actions. An empty id clears
// the selection.
func (c *Controller) Select(nodeID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || !c.state.editable() {
		return fmt.Errorf("%w: cannot select in state %s", internal.ErrInvalidTransition, c.state)
	}
	if nodeID != "" {
		if _, ok := c.graph.Node(nodeID); !ok {
			return fmt.Errorf("%w: %s", workflow.ErrNodeNotFound, nodeID)
		}
	}

	c.selected = nodeID
	return nil
}

func (c *Controller) UpdateMetadata(update MetadataUpdate) error {
	if update.Schedule != nil {
		spec := *update.Schedule
		mode, err := schedule.ParseMode(string(spec.Mode))
		if err != nil {
			return err
		}
		spec.Mode = mode
		update.Schedule = &spec
		if expr, ok := spec.Cron(); ok {
			if err := schedule.Validate(expr); err != nil {
				return fmt.Errorf("%w: %w", internal.ErrInvalidSchedule, err)
			}
		}
	}

	return c.mutate(func(_ *workflow.Graph) error {
		if update.Name != nil {
			c.meta.Name = *update.Name
		}
		if update.Description != nil {
			c.meta.Description = *update.Description
		}
		if update.Category != nil {
			c.meta.Category = *update.Category
		}
		if update.LinkedControlIDs != nil {
			c.meta.LinkedControlIDs = append([]string{}, (*update.LinkedControlIDs)...)
		}
		if update.Schedule != nil {
			c.meta.Schedule = *update.Schedule
		}
		return nil
	})
}

// mutate applies one edit under the lock. A failed edit leaves the session
// untouched; a successful one moves a saved session back to editing.
func (c *Controller) mutate(fn func(g *workflow.Graph) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed || !c.state.editable() {
		return fmt.Errorf("%w: cannot edit in state %s", internal.ErrInvalidTransition, c.state)
	}

	if err := fn(c.graph); err != nil {
		return err
	}

	c.revision++
	if c.state == StateSaved {
		c.state = StateEditing
	}
	return nil
}

func (c *Controller) SaveDraft(ctx context.Context) (SaveResult, error) {
	return c.save(ctx, false)
}

func (c *Controller) SaveAndEnable(ctx context.Context) (SaveResult, error) {
	return c.save(ctx, true)
}

func (c *Controller) save(ctx context.Context, enable bool) (SaveResult, error) {
	traceCtx, span := c.tracer.Start(ctx, "Save")
	defer span.End()
	logger := c.contextLogger(traceCtx)

	c.mu.Lock()
	payload, report, err := c.beginSave(enable)
	if err != nil {
		c.mu.Unlock()
		span.RecordError(err)
		return SaveResult{Warnings: report.Warnings, Message: report.Message()}, err
	}
	id := c.playbookID
	rev := c.revision
	c.mu.Unlock()

	saved, err := c.persist(traceCtx, id, payload)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.busy = false

	if err != nil {
		c.state = StateEditing
		c.lastError = err.Error()
		span.RecordError(err)
		logger.Warn("failed to save playbook", zap.Error(err))
		return SaveResult{Warnings: report.Warnings, Message: report.Message()}, err
	}

	c.commitSave(saved, enable, rev)

	logger.Info("playbook saved from builder", zap.String("playbook_id", c.playbookID.String()), zap.Bool("enabled", c.meta.Enabled), zap.Int("warnings", len(report.Warnings)))

	return SaveResult{
		PlaybookID: c.playbookID.String(),
		Enabled:    c.meta.Enabled,
		Warnings:   report.Warnings,
		Message:    report.Message(),
	}, nil
}

// beginSave runs the save gate and, when it passes, marks the session busy
// in the saving state. The caller holds the lock.
func (c *Controller) beginSave(enable bool) (playbook.Payload, workflow.Report, error) {
	if c.closed {
		return playbook.Payload{}, workflow.Report{}, fmt.Errorf("%w: session is closed", internal.ErrInvalidTransition)
	}
	if c.busy {
		return playbook.Payload{}, workflow.Report{}, internal.ErrBuilderBusy
	}
	if !c.state.settled() {
		return playbook.Payload{}, workflow.Report{}, fmt.Errorf("%w: cannot save in state %s", internal.ErrInvalidTransition, c.state)
	}

	c.state = StateValidating
	nodes := c.graph.Nodes()
	edges := c.graph.Edges()

	report := workflow.Validate(nodes, edges)
	c.warnings = append([]string{}, report.Warnings...)
	if !report.OK() {
		c.state = StateEditing
		c.lastError = report.ErrorMessage()
		return playbook.Payload{}, report, report.Err
	}

	c.lastError = ""
	c.state = StateSaving
	c.busy = true

	return c.payload(nodes, edges, enable), report, nil
}

func (c *Controller) payload(nodes []node.Node, edges []workflow.Edge, enable bool) playbook.Payload {
	triggerType, triggerConfig := workflow.ProjectTrigger(nodes)

	var scheduleCron *string
	if expr, ok := c.meta.Schedule.Cron(); ok {
		scheduleCron = &expr
	}

	return playbook.Payload{
		TenantID:         c.tenantID,
		Name:             c.meta.Name,
		Description:      c.meta.Description,
		Category:         c.meta.Category,
		TriggerType:      triggerType,
		TriggerConfig:    triggerConfig,
		Workflow:         workflow.Compile(nodes, edges),
		Enabled:          c.meta.Enabled || enable,
		LinkedControlIDs: append([]string{}, c.meta.LinkedControlIDs...),
		ScheduleCron:     scheduleCron,
	}
}

func (c *Controller) persist(ctx context.Context, id uuid.UUID, payload playbook.Payload) (playbook.Playbook, error) {
	if id == uuid.Nil {
		return c.store.Create(ctx, payload)
	}
	return c.store.Update(ctx, id, payload)
}

// commitSave adopts the result of a successful save. Edits made while the
// call was in flight keep the session in editing. The caller holds the lock.
func (c *Controller) commitSave(saved playbook.Playbook, enable bool, rev uint64) {
	if c.playbookID == uuid.Nil {
		c.playbookID = saved.ID
	}
	if enable {
		c.meta.Enabled = true
	}
	c.savedRevision = rev

	if c.revision != rev {
		c.state = StateEditing
	} else {
		c.state = StateSaved
	}
}

// WarningUnsavedChanges is added to a test result whose run uses a stored
// document older than the session graph.
const WarningUnsavedChanges = "Unsaved changes are not part of this test run; save to include them."

// Test queues a test run of the stored playbook. An unsaved session is saved
// as a draft first. The session returns to the state it was in before the
// test; the graph is never changed by a test.
func (c *Controller) Test(ctx context.Context) (TestResult, error) {
	traceCtx, span := c.tracer.Start(ctx, "Test")
	defer span.End()
	logger := c.contextLogger(traceCtx)

	c.mu.Lock()
	prior := c.state
	payload, report, err := c.beginSave(false)
	if err != nil {
		c.mu.Unlock()
		span.RecordError(err)
		return TestResult{SaveResult: SaveResult{Warnings: report.Warnings, Message: report.Message()}}, err
	}
	id := c.playbookID
	rev := c.revision
	needsSave := id == uuid.Nil
	dirty := !needsSave && c.revision != c.savedRevision
	if !needsSave {
		c.state = StateTesting
	}
	c.mu.Unlock()

	if needsSave {
		saved, err := c.store.Create(traceCtx, payload)

		c.mu.Lock()
		if err != nil {
			c.busy = false
			c.state = StateEditing
			c.lastError = err.Error()
			c.mu.Unlock()
			span.RecordError(err)
			logger.Warn("failed to save playbook before test", zap.Error(err))
			return TestResult{SaveResult: SaveResult{Warnings: report.Warnings, Message: report.Message()}}, err
		}
		c.commitSave(saved, false, rev)
		prior = c.state
		id = c.playbookID
		c.state = StateTesting
		c.mu.Unlock()
	}

	testCtx, cancel := context.WithTimeout(traceCtx, c.testTimeout)
	defer cancel()

	run, err := c.store.RunTest(testCtx, c.tenantID, id)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.busy = false

	settle := prior
	if c.revision != rev {
		settle = StateEditing
	}
	c.state = settle

	if dirty {
		report.Warnings = append(append([]string{}, report.Warnings...), WarningUnsavedChanges)
	}

	result := TestResult{
		SaveResult: SaveResult{
			PlaybookID: id.String(),
			Enabled:    c.meta.Enabled,
			Warnings:   report.Warnings,
			Message:    report.Message(),
		},
		Dirty: dirty,
	}

	if err != nil {
		c.lastError = err.Error()
		span.RecordError(err)
		logger.Warn("playbook test run failed", zap.String("playbook_id", id.String()), zap.Error(err))
		return result, err
	}

	summary := TestRunSummary{ID: run.ID.String(), Status: string(run.Status)}
	c.lastTestRun = &summary
	result.TestRun = summary

	logger.Info("playbook test run started from builder", zap.String("playbook_id", id.String()), zap.String("test_run_id", summary.ID))

	return result, nil
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snapshot := Snapshot{
		State:      c.state,
		Metadata:   c.meta,
		Workflow:   workflow.Compile(c.graph.Nodes(), c.graph.Edges()),
		SelectedID: c.selected,
		Busy:       c.busy,
		Dirty:      c.revision != c.savedRevision,
		Warnings:   append([]string{}, c.warnings...),
		Message:    workflow.Report{Warnings: c.warnings}.Message(),
		LastError:  c.lastError,
	}
	snapshot.Metadata.LinkedControlIDs = append([]string{}, c.meta.LinkedControlIDs...)
	if c.playbookID != uuid.Nil {
		snapshot.PlaybookID = c.playbookID.String()
	}
	if c.lastTestRun != nil {
		run := *c.lastTestRun
		snapshot.LastTestRun = &run
	}

	return snapshot
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Close ends the session. In-flight loads are discarded when they resolve.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.loadSeq++
}

func (c *Controller) contextLogger(ctx context.Context) *zap.Logger {
	return logutil.WithContext(ctx, c.logger).With(zap.String("tenant_id", c.tenantID.String()))
}

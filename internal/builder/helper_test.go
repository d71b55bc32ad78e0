package builder_test

import (
	"context"
	"fmt"
	"testing"

	"NYCU-SDC/playbook-builder-backend/internal/builder"
	"NYCU-SDC/playbook-builder-backend/internal/playbook"
	"NYCU-SDC/playbook-builder-backend/internal/playbook/workflow"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

// mockStore is a mock implementation of builder.Store
type mockStore struct {
	mock.Mock
}

func (m *mockStore) Create(ctx context.Context, payload playbook.Payload) (playbook.Playbook, error) {
	args := m.Called(ctx, payload)
	return args.Get(0).(playbook.Playbook), args.Error(1)
}

func (m *mockStore) Update(ctx context.Context, id uuid.UUID, payload playbook.Payload) (playbook.Playbook, error) {
	args := m.Called(ctx, id, payload)
	return args.Get(0).(playbook.Playbook), args.Error(1)
}

func (m *mockStore) GetByID(ctx context.Context, tenantID, id uuid.UUID) (playbook.Playbook, error) {
	args := m.Called(ctx, tenantID, id)
	return args.Get(0).(playbook.Playbook), args.Error(1)
}

func (m *mockStore) RunTest(ctx context.Context, tenantID, id uuid.UUID) (playbook.TestRun, error) {
	args := m.Called(ctx, tenantID, id)
	return args.Get(0).(playbook.TestRun), args.Error(1)
}

// sequentialIDs returns an id generator yielding n1, n2, ...
func sequentialIDs() func() string {
	next := 0
	return func() string {
		next++
		return fmt.Sprintf("n%d", next)
	}
}

// newTestController creates a controller over store with predictable node ids
func newTestController(t *testing.T, store builder.Store, tenantID uuid.UUID) *builder.Controller {
	t.Helper()
	return builder.NewController(zap.NewNop(), store, tenantID, builder.WithGraphOptions(workflow.WithIDFunc(sequentialIDs())))
}

// capturePayload records the payload of every matching store call
func capturePayload(index int, into *[]playbook.Payload) func(args mock.Arguments) {
	return func(args mock.Arguments) {
		*into = append(*into, args.Get(index).(playbook.Payload))
	}
}

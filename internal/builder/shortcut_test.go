package builder_test

import (
	"context"
	"testing"

	"NYCU-SDC/playbook-builder-backend/internal/builder"
	"NYCU-SDC/playbook-builder-backend/internal/playbook"
	"NYCU-SDC/playbook-builder-backend/internal/playbook/workflow/node"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestShortcut(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name     string
		event    builder.KeyEvent
		expected builder.KeyAction
	}{
		{name: "delete", event: builder.KeyEvent{Key: "Delete"}, expected: builder.KeyActionDeleteNode},
		{name: "backspace", event: builder.KeyEvent{Key: "Backspace"}, expected: builder.KeyActionDeleteNode},
		{name: "ctrl s", event: builder.KeyEvent{Key: "s", Ctrl: true}, expected: builder.KeyActionSave},
		{name: "cmd shift S", event: builder.KeyEvent{Key: "S", Meta: true, Shift: true}, expected: builder.KeyActionSave},
		{name: "plain s", event: builder.KeyEvent{Key: "s"}, expected: builder.KeyActionNone},
		{name: "ctrl z", event: builder.KeyEvent{Key: "z", Ctrl: true}, expected: builder.KeyActionNone},
		{name: "escape", event: builder.KeyEvent{Key: "Escape"}, expected: builder.KeyActionNone},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tc.expected, builder.Shortcut(tc.event))
		})
	}
}

func TestController_HandleKey(t *testing.T) {
	t.Parallel()

	t.Run("delete without selection is ignored", func(t *testing.T) {
		t.Parallel()

		c := newTestController(t, &mockStore{}, uuid.New())
		_, err := c.AddNode(node.TypeTrigger, node.Position{})
		require.NoError(t, err)

		result, err := c.HandleKey(context.Background(), builder.KeyEvent{Key: "Delete"})
		require.NoError(t, err)
		require.Equal(t, builder.KeyActionNone, result.Action)
		require.Len(t, c.Snapshot().Workflow.Nodes, 1)
	})

	t.Run("backspace removes the selected node and its edges", func(t *testing.T) {
		t.Parallel()

		c := newTestController(t, &mockStore{}, uuid.New())
		trigger, err := c.AddNode(node.TypeTrigger, node.Position{})
		require.NoError(t, err)
		action, err := c.AddNode(node.TypeAction, node.Position{X: 200})
		require.NoError(t, err)
		_, err = c.Connect(trigger.ID, action.ID)
		require.NoError(t, err)
		require.NoError(t, c.Select(action.ID))

		result, err := c.HandleKey(context.Background(), builder.KeyEvent{Key: "Backspace"})
		require.NoError(t, err)
		require.Equal(t, builder.KeyActionDeleteNode, result.Action)
		require.Equal(t, action.ID, result.NodeID)

		snapshot := c.Snapshot()
		require.Len(t, snapshot.Workflow.Nodes, 1)
		require.Empty(t, snapshot.Workflow.Edges)
		require.Empty(t, snapshot.SelectedID)
	})

	t.Run("ctrl s saves and enables", func(t *testing.T) {
		t.Parallel()

		playbookID := uuid.New()
		store := &mockStore{}
		store.On("Create", mock.Anything, mock.MatchedBy(func(p playbook.Payload) bool { return p.Enabled })).
			Return(playbook.Playbook{ID: playbookID, Enabled: true}, nil).
			Once()

		c := newTestController(t, store, uuid.New())
		_, err := c.AddNode(node.TypeTrigger, node.Position{})
		require.NoError(t, err)

		result, err := c.HandleKey(context.Background(), builder.KeyEvent{Key: "s", Ctrl: true})
		require.NoError(t, err)
		require.Equal(t, builder.KeyActionSave, result.Action)
		require.NotNil(t, result.Save)
		require.True(t, result.Save.Enabled)
		require.Equal(t, playbookID.String(), result.Save.PlaybookID)
		require.Equal(t, builder.StateSaved, c.State())
		store.AssertExpectations(t)
	})

	t.Run("unmapped key changes nothing", func(t *testing.T) {
		t.Parallel()

		store := &mockStore{}
		c := newTestController(t, store, uuid.New())
		_, err := c.AddNode(node.TypeTrigger, node.Position{})
		require.NoError(t, err)
		before := c.Snapshot()

		result, err := c.HandleKey(context.Background(), builder.KeyEvent{Key: "a"})
		require.NoError(t, err)
		require.Equal(t, builder.KeyActionNone, result.Action)
		require.Equal(t, before, c.Snapshot())
		store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

package workflow_test

import (
	"testing"

	"NYCU-SDC/playbook-builder-backend/internal/playbook/workflow"
	"NYCU-SDC/playbook-builder-backend/internal/playbook/workflow/node"

	"github.com/stretchr/testify/require"
)

func TestParseDocument_NormalizesLegacyConfig(t *testing.T) {
	t.Parallel()

	data := []byte(`{
		"nodes": [
			{"id": "t", "type": "trigger", "position": {"x": 0, "y": 0},
			 "config": {"type": "violation", "severity": ["high", "critical"]}},
			{"id": "a", "type": "action", "position": {"x": 300, "y": 0},
			 "config": {"action_type": "isolate_host", "params": {"host": "{{signal.asset_id}}"}}},
			{"id": "c", "type": "condition", "position": {"x": 150, "y": 0}}
		],
		"edges": [{"id": "e1", "source": "t", "target": "a"}]
	}`)

	nodes, edges, err := workflow.ParseDocument(data)
	require.NoError(t, err)

	require.Equal(t, []node.Node{
		{
			ID:   "t",
			Type: node.TypeTrigger,
			Config: node.TriggerConfig{
				TriggerType: "violation",
				Conditions:  map[string]any{"severity": []any{"high", "critical"}},
			},
		},
		{
			ID:       "a",
			Type:     node.TypeAction,
			Position: node.Position{X: 300},
			Config: node.ActionConfig{
				Vendor:     "wazuh",
				ActionType: "isolate_host",
				Parameters: map[string]any{"host": "{{signal.asset_id}}"},
			},
		},
		{
			ID:       "c",
			Type:     node.TypeCondition,
			Position: node.Position{X: 150},
			Config:   node.ConditionConfig{},
		},
	}, nodes)
	require.Equal(t, []workflow.Edge{{ID: "e1", Source: "t", Target: "a"}}, edges)
}

func TestParseDocument_Empty(t *testing.T) {
	t.Parallel()

	for _, data := range [][]byte{nil, []byte(""), []byte("null"), []byte(" \n")} {
		nodes, edges, err := workflow.ParseDocument(data)
		require.NoError(t, err)
		require.Empty(t, nodes)
		require.Empty(t, edges)
	}
}

func TestParseDocument_Errors(t *testing.T) {
	t.Parallel()

	type testCase struct {
		name      string
		data      string
		expectErr error
	}

	testCases := []testCase{
		{
			name:      "malformed JSON",
			data:      `{"nodes": [`,
			expectErr: workflow.ErrInvalidDocument,
		},
		{
			name:      "unknown node type",
			data:      `{"nodes": [{"id": "x", "type": "delay", "config": {}}], "edges": []}`,
			expectErr: workflow.ErrUnknownNodeType,
		},
		{
			name:      "duplicate node id",
			data:      `{"nodes": [{"id": "x", "type": "trigger"}, {"id": "x", "type": "action"}], "edges": []}`,
			expectErr: workflow.ErrDuplicateNodeID,
		},
		{
			name:      "missing node id",
			data:      `{"nodes": [{"type": "trigger"}], "edges": []}`,
			expectErr: workflow.ErrInvalidDocument,
		},
		{
			name:      "config with wrong field type",
			data:      `{"nodes": [{"id": "x", "type": "action", "config": {"vendor": 5}}], "edges": []}`,
			expectErr: node.ErrInvalidConfig,
		},
		{
			name:      "config that is not an object",
			data:      `{"nodes": [{"id": "x", "type": "trigger", "config": "violation"}], "edges": []}`,
			expectErr: node.ErrInvalidConfig,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, _, err := workflow.ParseDocument([]byte(tc.data))
			require.ErrorIs(t, err, tc.expectErr)
		})
	}
}

func TestValidateDocument(t *testing.T) {
	t.Parallel()

	type testCase struct {
		name        string
		data        string
		expectErr   bool
		errContains []string
	}

	testCases := []testCase{
		{
			name: "valid document",
			data: `{"nodes": [
				{"id": "t", "type": "trigger", "position": {"x": 0, "y": 0}, "config": {}},
				{"id": "a", "type": "action", "position": {"x": 1, "y": 1}, "config": {}}
			], "edges": [{"id": "edge-t-a", "source": "t", "target": "a"}]}`,
		},
		{
			name: "edges violating connection rules are accepted",
			data: `{"nodes": [
				{"id": "t", "type": "trigger", "config": {}},
				{"id": "a", "type": "action", "config": {}}
			], "edges": [{"id": "edge-a-t", "source": "a", "target": "t"}]}`,
		},
		{
			name:      "empty document is structurally valid",
			data:      `{"nodes": [], "edges": []}`,
			expectErr: false,
		},
		{
			name:        "not JSON",
			data:        `nodes`,
			expectErr:   true,
			errContains: []string{"invalid JSON format"},
		},
		{
			name:        "array instead of object",
			data:        `[]`,
			expectErr:   true,
			errContains: []string{"invalid JSON format"},
		},
		{
			name:        "missing arrays",
			data:        `{}`,
			expectErr:   true,
			errContains: []string{"field 'nodes' must be an array", "field 'edges' must be an array"},
		},
		{
			name: "collects every problem",
			data: `{"nodes": [
				{"id": "t", "type": "trigger", "config": {}},
				{"id": "t", "type": "action", "config": {}},
				{"id": "x", "type": "delay", "config": []},
				{"type": "action", "config": {}}
			], "edges": [
				{"id": "e", "source": "t", "target": "ghost"},
				{"id": "e", "source": "t", "target": "x"},
				{"target": "x"}
			]}`,
			expectErr: true,
			errContains: []string{
				"duplicate node id 't' at index 1",
				"unknown node type",
				"node at index 2: config must be an object",
				"node at index 3 missing required field 'id'",
				"edge at index 0 references unknown target node 'ghost'",
				"duplicate edge id 'e' at index 1",
				"edge at index 2 missing required field 'id'",
				"edge at index 2 missing required field 'source'",
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			err := workflow.ValidateDocument([]byte(tc.data))
			if !tc.expectErr {
				require.NoError(t, err)
				return
			}

			require.ErrorIs(t, err, workflow.ErrInvalidDocument)
			for _, msg := range tc.errContains {
				require.Contains(t, err.Error(), msg)
			}
		})
	}
}

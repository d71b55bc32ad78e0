package workflow_test

import (
	"errors"
	"testing"

	"NYCU-SDC/playbook-builder-backend/internal/playbook/workflow"
	"NYCU-SDC/playbook-builder-backend/internal/playbook/workflow/node"

	"github.com/stretchr/testify/require"
)

func TestCheckConnection(t *testing.T) {
	t.Parallel()

	type testCase struct {
		source node.Type
		target node.Type
		reason string
	}

	// every ordered pair of node types
	testCases := []testCase{
		{source: node.TypeTrigger, target: node.TypeTrigger, reason: workflow.ReasonTriggerTarget},
		{source: node.TypeTrigger, target: node.TypeCondition},
		{source: node.TypeTrigger, target: node.TypeAction},
		{source: node.TypeCondition, target: node.TypeTrigger, reason: workflow.ReasonTriggerTarget},
		{source: node.TypeCondition, target: node.TypeCondition},
		{source: node.TypeCondition, target: node.TypeAction},
		{source: node.TypeAction, target: node.TypeTrigger, reason: workflow.ReasonActionSource},
		{source: node.TypeAction, target: node.TypeCondition, reason: workflow.ReasonActionSource},
		{source: node.TypeAction, target: node.TypeAction, reason: workflow.ReasonActionSource},
	}

	for _, tc := range testCases {
		t.Run(string(tc.source)+"->"+string(tc.target), func(t *testing.T) {
			t.Parallel()

			err := workflow.CheckConnection(tc.source, tc.target)
			if tc.reason == "" {
				require.NoError(t, err)
				return
			}

			require.ErrorIs(t, err, workflow.ErrIllegalConnection)

			var connErr *workflow.ConnectionError
			require.True(t, errors.As(err, &connErr))
			require.Equal(t, tc.reason, connErr.Reason)
		})
	}
}

func TestCheckConnection_ActionRuleWinsOverTriggerRule(t *testing.T) {
	t.Parallel()

	err := workflow.CheckConnection(node.TypeAction, node.TypeTrigger)

	var connErr *workflow.ConnectionError
	require.True(t, errors.As(err, &connErr))
	require.Equal(t, "Actions cannot be a source node.", connErr.Reason)
}

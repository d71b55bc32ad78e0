package workflow

import (
	"errors"
	"strings"

	"NYCU-SDC/playbook-builder-backend/internal/playbook/workflow/node"
)

var ErrEmptyWorkflow = errors.New("workflow has no nodes")

const (
	MessageEmptyWorkflow = "Add at least one node to the canvas."

	WarningNoTrigger     = "No Trigger node found; defaulting to a violation trigger."
	WarningNoAction      = "No Action nodes yet; enforcement actions will not run."
	WarningNoConnections = "No connections between nodes; sequence will be undefined."
)

// Report is the outcome of validating the graph before save or test.
// Err blocks the operation, warnings never do.
type Report struct {
	Err      error
	Warnings []string
}

func (r Report) OK() bool {
	return r.Err == nil
}

// ErrorMessage is the user facing text of the blocking error, if any.
func (r Report) ErrorMessage() string {
	if errors.Is(r.Err, ErrEmptyWorkflow) {
		return MessageEmptyWorkflow
	}
	if r.Err != nil {
		return r.Err.Error()
	}
	return ""
}

// Message joins the warnings into the single line shown to the user.
func (r Report) Message() string {
	return strings.Join(r.Warnings, " ")
}

// Validate runs the save gate over the graph contents. Connection rules are
// not rechecked here.
func Validate(nodes []node.Node, edges []Edge) Report {
	if len(nodes) == 0 {
		return Report{Err: ErrEmptyWorkflow}
	}

	var hasTrigger, hasAction bool
	for _, n := range nodes {
		switch n.Type {
		case node.TypeTrigger:
			hasTrigger = true
		case node.TypeAction:
			hasAction = true
		}
	}

	warnings := []string{}
	if !hasTrigger {
		warnings = append(warnings, WarningNoTrigger)
	}
	if !hasAction {
		warnings = append(warnings, WarningNoAction)
	}
	if len(edges) == 0 {
		warnings = append(warnings, WarningNoConnections)
	}

	return Report{Warnings: warnings}
}

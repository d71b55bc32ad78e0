package workflow

import (
	"errors"

	"NYCU-SDC/playbook-builder-backend/internal/playbook/workflow/node"
)

var ErrIllegalConnection = errors.New("illegal connection")

const (
	ReasonActionSource  = "Actions cannot be a source node."
	ReasonTriggerTarget = "Triggers cannot have incoming edges."
)

// ConnectionError carries the user facing reason a connection was refused.
type ConnectionError struct {
	Reason string
}

func (e *ConnectionError) Error() string {
	return "illegal connection: " + e.Reason
}

func (e *ConnectionError) Is(target error) bool {
	return target == ErrIllegalConnection
}

// CheckConnection decides whether an edge from a source of type source to a
// target of type target may be drawn interactively. The first matching rule
// wins.
func CheckConnection(source, target node.Type) error {
	if source == node.TypeAction {
		return &ConnectionError{Reason: ReasonActionSource}
	}
	if target == node.TypeTrigger {
		return &ConnectionError{Reason: ReasonTriggerTarget}
	}
	return nil
}

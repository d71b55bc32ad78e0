package node

import (
	"errors"
	"fmt"
)

var ErrUnknownType = errors.New("unknown node type")

// Type is the closed set of node kinds a playbook workflow can contain
type Type string

const (
	TypeTrigger   Type = "trigger"
	TypeCondition Type = "condition"
	TypeAction    Type = "action"
)

// Types lists every supported node type in canvas palette order
var Types = []Type{TypeTrigger, TypeCondition, TypeAction}

func (t Type) Valid() bool {
	switch t {
	case TypeTrigger, TypeCondition, TypeAction:
		return true
	}
	return false
}

func ParseType(value string) (Type, error) {
	t := Type(value)
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownType, value)
	}
	return t, nil
}

// Position is the canvas coordinate of a node. The canvas owns it, the
// workflow document only carries it along.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Node is a typed vertex of the workflow graph. Config is never nil for a
// node created through the graph store.
type Node struct {
	ID       string
	Type     Type
	Position Position
	Config   Config
}

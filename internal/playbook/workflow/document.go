package workflow

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"NYCU-SDC/playbook-builder-backend/internal/playbook/workflow/node"
)

var ErrInvalidDocument = errors.New("invalid workflow document")

type storedNode struct {
	ID       string          `json:"id"`
	Type     string          `json:"type"`
	Position node.Position   `json:"position"`
	Config   json.RawMessage `json:"config"`
}

type storedDocument struct {
	Nodes []storedNode `json:"nodes"`
	Edges []Edge       `json:"edges"`
}

// ParseDocument turns a stored workflow document back into graph contents.
// Every node config goes through Normalize before it is decoded, so legacy
// documents load with canonical configs. An empty or null document yields an
// empty workflow.
func ParseDocument(data []byte) ([]node.Node, []Edge, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []node.Node{}, []Edge{}, nil
	}

	var doc storedDocument
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}

	seen := make(map[string]bool, len(doc.Nodes))
	nodes := make([]node.Node, 0, len(doc.Nodes))
	for i, stored := range doc.Nodes {
		if stored.ID == "" {
			return nil, nil, fmt.Errorf("%w: node at index %d missing required field 'id'", ErrInvalidDocument, i)
		}
		if seen[stored.ID] {
			return nil, nil, fmt.Errorf("%w: %s", ErrDuplicateNodeID, stored.ID)
		}
		seen[stored.ID] = true

		t, err := node.ParseType(stored.Type)
		if err != nil {
			return nil, nil, fmt.Errorf("node %s: %w", stored.ID, err)
		}

		var raw any
		if len(stored.Config) > 0 {
			if err := json.Unmarshal(stored.Config, &raw); err != nil {
				return nil, nil, fmt.Errorf("%w: node %s config: %w", ErrInvalidDocument, stored.ID, err)
			}
		}

		config, err := node.Decode(t, node.Normalize(t, raw))
		if err != nil {
			return nil, nil, fmt.Errorf("node %s: %w", stored.ID, err)
		}

		nodes = append(nodes, node.Node{
			ID:       stored.ID,
			Type:     t,
			Position: stored.Position,
			Config:   config,
		})
	}

	edges := doc.Edges
	if edges == nil {
		edges = []Edge{}
	}

	return nodes, edges, nil
}

// ValidateDocument checks a workflow document before it is persisted.
// It checks:
// - Valid JSON object with nodes and edges arrays
// - Every node has a unique non-empty id and a known type
// - Every node config is an object
// - Every edge has a unique id and endpoints that exist
// Connection rules are not checked; stored documents may carry edges the
// interactive builder would refuse. Returns all problems found.
func ValidateDocument(data []byte) error {
	var validationErrors []error

	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("%w: invalid JSON format: %w", ErrInvalidDocument, err)
	}
	if doc == nil {
		return fmt.Errorf("%w: document must be an object", ErrInvalidDocument)
	}

	rawNodes, ok := doc["nodes"].([]any)
	if !ok {
		validationErrors = append(validationErrors, fmt.Errorf("field 'nodes' must be an array"))
	}
	rawEdges, ok := doc["edges"].([]any)
	if !ok {
		validationErrors = append(validationErrors, fmt.Errorf("field 'edges' must be an array"))
	}

	nodeIDs, nodeErrors := validateNodes(rawNodes)
	validationErrors = append(validationErrors, nodeErrors...)
	validationErrors = append(validationErrors, validateEdges(rawEdges, nodeIDs)...)

	if len(validationErrors) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, errors.Join(validationErrors...))
	}

	return nil
}

func validateNodes(nodes []any) (map[string]bool, []error) {
	nodeIDs := make(map[string]bool, len(nodes))
	var validationErrors []error

	for i, item := range nodes {
		n, ok := item.(map[string]any)
		if !ok {
			validationErrors = append(validationErrors, fmt.Errorf("node at index %d must be an object", i))
			continue
		}

		id, ok := n["id"].(string)
		if !ok || id == "" {
			validationErrors = append(validationErrors, fmt.Errorf("node at index %d missing required field 'id'", i))
			continue
		}
		if nodeIDs[id] {
			validationErrors = append(validationErrors, fmt.Errorf("duplicate node id '%s' at index %d", id, i))
			continue
		}
		nodeIDs[id] = true

		nodeType, _ := n["type"].(string)
		if _, err := node.ParseType(nodeType); err != nil {
			validationErrors = append(validationErrors, fmt.Errorf("node at index %d: %w", i, err))
		}

		if _, ok := n["config"].(map[string]any); !ok {
			validationErrors = append(validationErrors, fmt.Errorf("node at index %d: config must be an object", i))
		}

		if position, exists := n["position"]; exists {
			if _, ok := position.(map[string]any); !ok {
				validationErrors = append(validationErrors, fmt.Errorf("node at index %d: position must be an object", i))
			}
		}
	}

	return nodeIDs, validationErrors
}

func validateEdges(edges []any, nodeIDs map[string]bool) []error {
	edgeIDs := make(map[string]bool, len(edges))
	var validationErrors []error

	for i, item := range edges {
		e, ok := item.(map[string]any)
		if !ok {
			validationErrors = append(validationErrors, fmt.Errorf("edge at index %d must be an object", i))
			continue
		}

		id, ok := e["id"].(string)
		if !ok || id == "" {
			validationErrors = append(validationErrors, fmt.Errorf("edge at index %d missing required field 'id'", i))
		} else if edgeIDs[id] {
			validationErrors = append(validationErrors, fmt.Errorf("duplicate edge id '%s' at index %d", id, i))
		} else {
			edgeIDs[id] = true
		}

		for _, field := range []string{"source", "target"} {
			endpoint, ok := e[field].(string)
			if !ok || endpoint == "" {
				validationErrors = append(validationErrors, fmt.Errorf("edge at index %d missing required field '%s'", i, field))
				continue
			}
			if !nodeIDs[endpoint] {
				validationErrors = append(validationErrors, fmt.Errorf("edge at index %d references unknown %s node '%s'", i, field, endpoint))
			}
		}
	}

	return validationErrors
}

package workflow

import (
	"NYCU-SDC/playbook-builder-backend/internal/playbook/workflow/node"
)

// Document is the persisted, canvas independent form of a workflow
type Document struct {
	Nodes []CompiledNode `json:"nodes"`
	Edges []CompiledEdge `json:"edges"`
}

type CompiledNode struct {
	ID       string         `json:"id"`
	Type     node.Type      `json:"type"`
	Position node.Position  `json:"position"`
	Config   map[string]any `json:"config"`
}

type CompiledEdge struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
}

// Compile projects the graph contents into a workflow document. Order follows
// the input slices; nodes and edges are never reordered or deduplicated.
func Compile(nodes []node.Node, edges []Edge) Document {
	doc := Document{
		Nodes: make([]CompiledNode, 0, len(nodes)),
		Edges: make([]CompiledEdge, 0, len(edges)),
	}

	for _, n := range nodes {
		doc.Nodes = append(doc.Nodes, CompileNode(n))
	}

	for _, e := range edges {
		doc.Edges = append(doc.Edges, CompiledEdge{
			ID:     e.ID,
			Source: e.Source,
			Target: e.Target,
		})
	}

	return doc
}

func CompileNode(n node.Node) CompiledNode {
	config := map[string]any{}
	if n.Config != nil {
		config = n.Config.Map()
	}
	return CompiledNode{
		ID:       n.ID,
		Type:     n.Type,
		Position: n.Position,
		Config:   config,
	}
}

// ProjectTrigger derives the playbook level trigger fields from the first
// trigger node. Without a trigger node the playbook falls back to a
// violation trigger with no conditions.
func ProjectTrigger(nodes []node.Node) (string, map[string]any) {
	for _, n := range nodes {
		if n.Type != node.TypeTrigger {
			continue
		}

		triggerType := node.DefaultTriggerType
		conditions := map[string]any{}
		if config, ok := n.Config.(node.TriggerConfig); ok {
			if config.TriggerType != "" {
				triggerType = config.TriggerType
			}
			if config.Conditions != nil {
				conditions = config.Map()["conditions"].(map[string]any)
			}
		}
		return triggerType, conditions
	}

	return node.DefaultTriggerType, map[string]any{}
}

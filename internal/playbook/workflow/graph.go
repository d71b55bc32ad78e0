package workflow

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"NYCU-SDC/playbook-builder-backend/internal/playbook/workflow/node"

	"github.com/google/uuid"
)

var (
	ErrNodeNotFound       = errors.New("node not found")
	ErrConfigTypeMismatch = errors.New("config does not match node type")
	ErrDuplicateNodeID    = errors.New("duplicate node id")
	ErrUnknownNodeType    = node.ErrUnknownType
)

// Edge is a directed connection between two nodes of the same graph
type Edge struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
}

// EdgeID derives the stable id of the edge between source and target. Ids
// without a dash keep the short edge-<source>-<target> form; otherwise the
// source length is prefixed so distinct pairs never share an id.
func EdgeID(source, target string) string {
	if !strings.Contains(source, "-") && !strings.Contains(target, "-") {
		return "edge-" + source + "-" + target
	}
	return "edge-" + strconv.Itoa(len(source)) + "-" + source + "-" + target
}

type Option func(*Graph)

// WithIDFunc overrides how fresh node ids are generated.
func WithIDFunc(newID func() string) Option {
	return func(g *Graph) {
		g.newID = newID
	}
}

// Graph is the in-memory node/edge store of one editing session. It keeps
// insertion order for both nodes and edges. Graph is not safe for concurrent
// use; its owner serializes access.
type Graph struct {
	newID func() string

	nodes []node.Node
	index map[string]int
	edges []Edge
}

func NewGraph(opts ...Option) *Graph {
	g := &Graph{
		newID: uuid.NewString,
		index: make(map[string]int),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// AddNode creates a node of type t at position with the default config for t.
func (g *Graph) AddNode(t node.Type, position node.Position) (node.Node, error) {
	if !t.Valid() {
		return node.Node{}, fmt.Errorf("%w: %q", ErrUnknownNodeType, t)
	}

	n := node.Node{
		ID:       g.newID(),
		Type:     t,
		Position: position,
		Config:   node.DefaultConfig(t),
	}
	g.index[n.ID] = len(g.nodes)
	g.nodes = append(g.nodes, n)

	return cloneNode(n), nil
}

// UpdateNodeConfig replaces the whole config of a node. The config variant
// must belong to the node's type.
func (g *Graph) UpdateNodeConfig(nodeID string, config node.Config) error {
	i, ok := g.index[nodeID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, nodeID)
	}
	if config == nil {
		return fmt.Errorf("%w: config of node %s is nil", node.ErrInvalidConfig, nodeID)
	}
	if config.NodeType() != g.nodes[i].Type {
		return fmt.Errorf("%w: node %s is a %s, got %s config", ErrConfigTypeMismatch, nodeID, g.nodes[i].Type, config.NodeType())
	}

	g.nodes[i].Config = node.Clone(config)
	return nil
}

func (g *Graph) MoveNode(nodeID string, position node.Position) error {
	i, ok := g.index[nodeID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, nodeID)
	}

	g.nodes[i].Position = position
	return nil
}

// RemoveNode deletes a node together with every edge touching it.
func (g *Graph) RemoveNode(nodeID string) error {
	i, ok := g.index[nodeID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, nodeID)
	}

	g.nodes = append(g.nodes[:i], g.nodes[i+1:]...)
	delete(g.index, nodeID)
	for j := i; j < len(g.nodes); j++ {
		g.index[g.nodes[j].ID] = j
	}

	kept := g.edges[:0]
	for _, e := range g.edges {
		if e.Source != nodeID && e.Target != nodeID {
			kept = append(kept, e)
		}
	}
	g.edges = kept

	return nil
}

// Connect adds the edge source -> target when the connection rules allow it.
// Connecting the same pair twice replaces the existing edge.
func (g *Graph) Connect(sourceID, targetID string) (Edge, error) {
	source, ok := g.lookup(sourceID)
	if !ok {
		return Edge{}, fmt.Errorf("%w: %s", ErrNodeNotFound, sourceID)
	}
	target, ok := g.lookup(targetID)
	if !ok {
		return Edge{}, fmt.Errorf("%w: %s", ErrNodeNotFound, targetID)
	}

	if err := CheckConnection(source.Type, target.Type); err != nil {
		return Edge{}, err
	}

	edge := Edge{
		ID:     EdgeID(sourceID, targetID),
		Source: sourceID,
		Target: targetID,
	}
	g.upsertEdge(edge)

	return edge, nil
}

// Seed replaces the graph contents with a loaded workflow. Connection rules
// are not checked; edges with a missing endpoint cannot be represented and
// are returned as dropped. On error the graph is left untouched.
func (g *Graph) Seed(nodes []node.Node, edges []Edge) ([]Edge, error) {
	seeded := make([]node.Node, 0, len(nodes))
	index := make(map[string]int, len(nodes))

	for _, n := range nodes {
		if !n.Type.Valid() {
			return nil, fmt.Errorf("%w: node %s has type %q", ErrUnknownNodeType, n.ID, n.Type)
		}
		if _, exists := index[n.ID]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateNodeID, n.ID)
		}

		config := n.Config
		if config == nil {
			var err error
			config, err = node.Decode(n.Type, nil)
			if err != nil {
				return nil, err
			}
		} else if config.NodeType() != n.Type {
			return nil, fmt.Errorf("%w: node %s is a %s, got %s config", ErrConfigTypeMismatch, n.ID, n.Type, config.NodeType())
		}

		index[n.ID] = len(seeded)
		seeded = append(seeded, node.Node{
			ID:       n.ID,
			Type:     n.Type,
			Position: n.Position,
			Config:   node.Clone(config),
		})
	}

	g.nodes = seeded
	g.index = index
	g.edges = nil

	var dropped []Edge
	for _, e := range edges {
		_, hasSource := index[e.Source]
		_, hasTarget := index[e.Target]
		if !hasSource || !hasTarget {
			dropped = append(dropped, e)
			continue
		}
		if e.ID == "" {
			e.ID = EdgeID(e.Source, e.Target)
		}
		g.upsertEdge(e)
	}

	return dropped, nil
}

// Node returns a copy of the node with the given id.
func (g *Graph) Node(nodeID string) (node.Node, bool) {
	n, ok := g.lookup(nodeID)
	if !ok {
		return node.Node{}, false
	}
	return cloneNode(n), true
}

// Nodes returns a copy of all nodes in insertion order.
func (g *Graph) Nodes() []node.Node {
	nodes := make([]node.Node, len(g.nodes))
	for i, n := range g.nodes {
		nodes[i] = cloneNode(n)
	}
	return nodes
}

// Edges returns a copy of all edges in insertion order.
func (g *Graph) Edges() []Edge {
	edges := make([]Edge, len(g.edges))
	copy(edges, g.edges)
	return edges
}

func (g *Graph) lookup(nodeID string) (node.Node, bool) {
	i, ok := g.index[nodeID]
	if !ok {
		return node.Node{}, false
	}
	return g.nodes[i], true
}

// upsertEdge keeps one edge per (source, target) pair.
func (g *Graph) upsertEdge(edge Edge) {
	for i := range g.edges {
		if g.edges[i].Source == edge.Source && g.edges[i].Target == edge.Target {
			g.edges[i] = edge
			g.settleEdgeID(i)
			return
		}
	}
	g.edges = append(g.edges, edge)
	g.settleEdgeID(len(g.edges) - 1)
}

// settleEdgeID resolves an id clash between edge i and another pair by moving
// whichever of the two carries a stored id onto its derived id.
func (g *Graph) settleEdgeID(i int) {
	for j := range g.edges {
		if j == i || g.edges[j].ID != g.edges[i].ID {
			continue
		}
		k := j
		if !hasDerivedID(g.edges[i]) {
			k = i
		}
		g.edges[k].ID = EdgeID(g.edges[k].Source, g.edges[k].Target)
		g.settleEdgeID(k)
		return
	}
}

func hasDerivedID(e Edge) bool {
	return e.ID == EdgeID(e.Source, e.Target)
}

func cloneNode(n node.Node) node.Node {
	n.Config = node.Clone(n.Config)
	return n
}

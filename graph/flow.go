package graph

import "time"

// Node is a single step in a Flow: an instance of a module's node type,
// addressed by the pair (ModuleID, NodeTypeID) that the Executor Resolver
// uses to look up its Constructor.
type Node struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	ModuleID   string    `json:"moduleId"`
	NodeTypeID string    `json:"nodeTypeId"`
	Config     Map       `json:"config,omitempty"`
	CreatedAt  time.Time `json:"createdAt,omitempty"`
}

// Connection is a directed edge from one node's output to another node's
// input. Unlike the teacher's Edge[S], a Connection carries no predicate:
// conditional routing is a property of a node's output (_route_targets),
// not of the edge itself, per spec.md §4.E.4.
type Connection struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Bridge links two nodes into an undirected equivalence class: when either
// member of a bridged pair runs, its output is shared with its peer and
// the peer's own downstream children are added to the firing set, exactly
// as original_source's `_build_bridge_groups`/run loop does.
type Bridge struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Flow is a complete, runnable graph definition: nodes, the connections
// between them, and bridges pairing equivalent nodes together.
type Flow struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Nodes       []Node       `json:"nodes"`
	Connections []Connection `json:"connections"`
	Bridges     []Bridge     `json:"bridges,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// nodeByID indexes a Flow's nodes for O(1) lookup, mirroring the Python
// FlowRunner's `self.nodes = {node['id']: node for node in flow['nodes']}`.
func (f *Flow) nodeByID() map[string]Node {
	out := make(map[string]Node, len(f.Nodes))
	for _, n := range f.Nodes {
		out[n.ID] = n
	}
	return out
}

// incomingTo returns the connections whose target is nodeID.
func (f *Flow) incomingTo(nodeID string) []Connection {
	var out []Connection
	for _, c := range f.Connections {
		if c.To == nodeID {
			out = append(out, c)
		}
	}
	return out
}

// outgoingFrom returns the ids of nodes directly downstream of nodeID.
func (f *Flow) outgoingFrom(nodeID string) []string {
	var out []string
	for _, c := range f.Connections {
		if c.From == nodeID {
			out = append(out, c.To)
		}
	}
	return out
}

package workflow

import "slices"

// Graph is the set of nodes and the edges between them.
type Graph struct {
	Nodes []Node
	Edges []Edge
}

// Node returns the node with the given name.
func (g Graph) Node(name string) (Node, bool) {
	for _, n := range g.Nodes {
		if n.Name == name {
			return n, true
		}
	}
	return Node{}, false
}

// Validate checks every node, then every edge, then that each node is
// connected, then that the graph terminates at END.
func (g Graph) Validate() error {
	for _, n := range g.Nodes {
		if err := n.Validate(g.Nodes); err != nil {
			return err
		}
	}
	for _, e := range g.Edges {
		if err := e.Validate(g.Nodes); err != nil {
			return err
		}
	}

	connected := make(map[string]bool, len(g.Nodes))
	for _, e := range g.Edges {
		connected[e.Origin] = true
		connected[e.Destination] = true
	}
	for _, n := range g.Nodes {
		if n.IsEntryPoint {
			connected[n.Name] = true
		}
	}
	for _, n := range g.Nodes {
		if !connected[n.Name] {
			return NewValidationError(KindDisconnectedNode, n.Name, "node '%s' is not connected in the graph", n.Name)
		}
	}

	if !slices.ContainsFunc(g.Edges, Edge.IsTerminal) {
		return NewValidationError(KindMissingEnd, "", "workflow must terminate with an edge to END")
	}
	return nil
}

// FinalNodes returns, in node order, the names of nodes that are never the
// origin of an edge.
func (g Graph) FinalNodes() []string {
	origins := make(map[string]bool, len(g.Edges))
	for _, e := range g.Edges {
		origins[e.Origin] = true
	}
	var out []string
	for _, n := range g.Nodes {
		if !origins[n.Name] {
			out = append(out, n.Name)
		}
	}
	return out
}

// EntryPoints returns the names of nodes marked as entry points.
func (g Graph) EntryPoints() []string {
	var out []string
	for _, n := range g.Nodes {
		if n.IsEntryPoint {
			out = append(out, n.Name)
		}
	}
	return out
}

func (g Graph) clone() Graph {
	nodes := make([]Node, len(g.Nodes))
	for i, n := range g.Nodes {
		nodes[i] = n.Clone()
	}
	return Graph{Nodes: nodes, Edges: slices.Clone(g.Edges)}
}

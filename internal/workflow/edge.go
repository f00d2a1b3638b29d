package workflow

// End is the reserved destination that marks workflow termination.
const End = "END"

// Edge is a directed connection from one node to another node or to End.
type Edge struct {
	Origin      string
	Destination string
}

// To returns the edge origin -> destination.
func To(origin, destination string) Edge {
	return Edge{Origin: origin, Destination: destination}
}

// IsTerminal reports whether the edge ends the workflow.
func (e Edge) IsTerminal() bool { return e.Destination == End }

func (e Edge) String() string { return e.Origin + " -> " + e.Destination }

// Validate checks that both ends of e reference nodes in allNodes, with End
// accepted as a destination.
func (e Edge) Validate(allNodes []Node) error {
	if e.Origin == "" {
		return NewValidationError(KindDanglingEdge, "", "edge origin is required (destination %q)", e.Destination)
	}
	if !hasNode(allNodes, e.Origin) {
		return NewValidationError(KindDanglingEdge, e.Origin,
			"edge origin %q does not reference an existing node", e.Origin)
	}
	if e.Destination == End {
		return nil
	}
	if e.Destination == "" {
		return NewValidationError(KindDanglingEdge, e.Origin, "edge from %q has no destination", e.Origin)
	}
	if !hasNode(allNodes, e.Destination) {
		return NewValidationError(KindDanglingEdge, e.Destination,
			"edge destination %q is neither END nor an existing node", e.Destination)
	}
	return nil
}

func hasNode(nodes []Node, name string) bool {
	for _, n := range nodes {
		if n.Name == name {
			return true
		}
	}
	return false
}

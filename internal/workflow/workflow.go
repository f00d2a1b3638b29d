package workflow

import "fmt"

// Workflow is the aggregate submitted to the backend: attached documents,
// the graph and an optional result format.
type Workflow struct {
	Documents    []AttachedDocument
	Graph        Graph
	ResultFormat *ResultFormat
}

// New assembles a workflow from its parts. The parts are copied, so later
// changes to the caller's slices do not reach the workflow.
func New(documents []AttachedDocument, graph Graph, resultFormat *ResultFormat) *Workflow {
	w := &Workflow{Graph: graph.clone()}
	w.Documents = make([]AttachedDocument, len(documents))
	for i, d := range documents {
		w.Documents[i] = d.WithKey(d.Key)
	}
	if resultFormat != nil {
		rf := resultFormat.clone()
		w.ResultFormat = &rf
	}
	return w
}

// Document returns the attached document with the given key.
func (w *Workflow) Document(key string) (AttachedDocument, bool) {
	for _, d := range w.Documents {
		if d.Key == key {
			return d, true
		}
	}
	return AttachedDocument{}, false
}

// Validate checks the graph, then the documents, then that every document
// key and source node referenced by an input exists, then the result format.
// It does not modify w.
func (w *Workflow) Validate() error {
	if err := w.Graph.Validate(); err != nil {
		return err
	}

	keys := make(map[string]bool, len(w.Documents))
	for _, d := range w.Documents {
		if err := d.validate(); err != nil {
			return err
		}
		if keys[d.Key] {
			return NewValidationError(KindDuplicateDocument, d.Key, "attached document %q is declared twice", d.Key)
		}
		keys[d.Key] = true
	}

	for _, n := range w.Graph.Nodes {
		for _, in := range n.Inputs {
			if in.Origin == OriginAttachedDocument && !keys[in.DocumentKey] {
				return NewValidationError(KindMissingDocument, in.DocumentKey,
					"node %q references attached document %q which does not exist", n.Name, in.DocumentKey)
			}
		}
	}

	for _, n := range w.Graph.Nodes {
		for _, in := range n.Inputs {
			if in.Origin != OriginPreviousNode {
				continue
			}
			if _, ok := w.Graph.Node(in.SourceNode); !ok {
				return NewValidationError(KindUnknownSourceNode, in.SourceNode,
					"node %q reads the result of node %q which does not exist", n.Name, in.SourceNode)
			}
		}
	}

	if w.ResultFormat != nil {
		if err := w.ResultFormat.validate(w.Graph.Nodes); err != nil {
			return err
		}
	}
	return nil
}

// Warnings returns non-fatal findings: bindings never referenced in their
// prompt, and entry points that also wait on an incoming edge.
func (w *Workflow) Warnings() []Warning {
	var out []Warning
	for _, n := range w.Graph.Nodes {
		out = append(out, n.Warnings()...)
	}
	incoming := make(map[string]bool)
	for _, e := range w.Graph.Edges {
		incoming[e.Destination] = true
	}
	for _, n := range w.Graph.Nodes {
		if n.IsEntryPoint && incoming[n.Name] {
			out = append(out, Warning{
				Subject: n.Name,
				Msg:     fmt.Sprintf("node %q is an entry point but also has incoming edges", n.Name),
			})
		}
	}
	return out
}

// Clone returns a deep copy of w.
func (w *Workflow) Clone() *Workflow {
	return New(w.Documents, w.Graph, w.ResultFormat)
}

// Summary is a one-line description used in logs.
func (w *Workflow) Summary() string {
	return fmt.Sprintf("%d nodes, %d edges, %d documents, entry points %v",
		len(w.Graph.Nodes), len(w.Graph.Edges), len(w.Documents), w.Graph.EntryPoints())
}

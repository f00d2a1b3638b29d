// Package builder assembles a workflow step by step.
//
// A WorkflowBuilder is either idle or has one node open. Node setters are
// only legal while a node is open; calling them otherwise is a bug in the
// caller and panics with *workflow.UsageError. The open node is held as a
// value and replaced on every setter, so nothing captured earlier changes.
//
//	wf, err := builder.New().
//		AddNode("Resumo").MarkEntryPoint().
//		SetPrompt("Resuma {texto}").
//		AddInput(workflow.FromUpload("texto", workflow.FileCountOne)).
//		EndNode().
//		BuildValidated()
//
// A WorkflowBuilder is not safe for concurrent use.
package builder

import (
	"fmt"
	"slices"
	"sort"

	"dario.cat/mergo"

	"github.com/pocketomega/omega-workflow/internal/workflow"
)

// Agent bundles the LLM settings of a node. Zero fields are left unchanged.
type Agent struct {
	Model       string
	Temperature *float64
	Tools       []string
}

// WorkflowBuilder accumulates documents, nodes, edges and output templates.
type WorkflowBuilder struct {
	documents   []workflow.AttachedDocument
	nodes       []workflow.Node
	edges       []workflow.Edge
	entryPoints []string

	templates     map[string]OutputTemplate
	templateOrder []string
	individual    []string

	current *workflow.Node
}

func New() *WorkflowBuilder {
	return &WorkflowBuilder{templates: make(map[string]OutputTemplate)}
}

// NodeOpen reports whether a node is under construction.
func (b *WorkflowBuilder) NodeOpen() bool { return b.current != nil }

func (b *WorkflowBuilder) usage(op, format string, args ...any) {
	panic(&workflow.UsageError{Op: op, Msg: fmt.Sprintf(format, args...)})
}

// update replaces the open node with f applied to it.
func (b *WorkflowBuilder) update(op string, f func(workflow.Node) workflow.Node) *WorkflowBuilder {
	if b.current == nil {
		b.usage(op, "no open node, call AddNode first")
	}
	next := f(*b.current)
	b.current = &next
	return b
}

// AddNode opens a new node. Its output is named after it, in markdown.
func (b *WorkflowBuilder) AddNode(name string) *WorkflowBuilder {
	if b.current != nil {
		b.usage("AddNode", "node %q is still open, call EndNode before adding %q", b.current.Name, name)
	}
	n := workflow.NewNode(name)
	b.current = &n
	return b
}

func (b *WorkflowBuilder) SetAgent(a Agent) *WorkflowBuilder {
	return b.update("SetAgent", func(n workflow.Node) workflow.Node {
		if a.Model != "" {
			n = n.WithModel(a.Model)
		}
		if a.Temperature != nil {
			n = n.WithTemperature(*a.Temperature)
		}
		if a.Tools != nil {
			n = n.WithTools(a.Tools...)
		}
		return n
	})
}

func (b *WorkflowBuilder) SetModel(model string) *WorkflowBuilder {
	return b.update("SetModel", func(n workflow.Node) workflow.Node { return n.WithModel(model) })
}

func (b *WorkflowBuilder) SetTemperature(t float64) *WorkflowBuilder {
	return b.update("SetTemperature", func(n workflow.Node) workflow.Node { return n.WithTemperature(t) })
}

func (b *WorkflowBuilder) SetPrompt(prompt string) *WorkflowBuilder {
	return b.update("SetPrompt", func(n workflow.Node) workflow.Node { return n.WithPrompt(prompt) })
}

// SetOutputKey renames the open node's output, keeping its format.
func (b *WorkflowBuilder) SetOutputKey(name string) *WorkflowBuilder {
	return b.update("SetOutputKey", func(n workflow.Node) workflow.Node { return n.WithOutput(name, n.Output.Format) })
}

func (b *WorkflowBuilder) SetOutputFormat(format workflow.OutputFormat) *WorkflowBuilder {
	return b.update("SetOutputFormat", func(n workflow.Node) workflow.Node { return n.WithOutput(n.Output.Name, format) })
}

func (b *WorkflowBuilder) SetTools(tools ...string) *WorkflowBuilder {
	return b.update("SetTools", func(n workflow.Node) workflow.Node { return n.WithTools(tools...) })
}

func (b *WorkflowBuilder) SetInteraction(p workflow.InteractionPolicy) *WorkflowBuilder {
	return b.update("SetInteraction", func(n workflow.Node) workflow.Node { return n.WithInteraction(p) })
}

func (b *WorkflowBuilder) MarkEntryPoint() *WorkflowBuilder {
	return b.update("MarkEntryPoint", func(n workflow.Node) workflow.Node { return n.WithEntryPoint(true) })
}

func (b *WorkflowBuilder) AddInput(in workflow.Input) *WorkflowBuilder {
	return b.update("AddInput", func(n workflow.Node) workflow.Node { return n.WithInput(in) })
}

// EndNode closes the open node and appends it to the graph.
func (b *WorkflowBuilder) EndNode() *WorkflowBuilder {
	if b.current == nil {
		b.usage("EndNode", "no open node to end")
	}
	b.nodes = append(b.nodes, b.current.Clone())
	b.current = nil
	return b
}

// AddEdge appends origin -> destination. It is legal in either state and
// is not checked until validation.
func (b *WorkflowBuilder) AddEdge(origin, destination string) *WorkflowBuilder {
	b.edges = append(b.edges, workflow.To(origin, destination))
	return b
}

// SetEntryPoints replaces the list of entry point names. At build time
// these nodes are marked as entry points in addition to any marked with
// MarkEntryPoint.
func (b *WorkflowBuilder) SetEntryPoints(names ...string) *WorkflowBuilder {
	b.entryPoints = slices.Clone(names)
	return b
}

// SetDocuments replaces the attached documents. Each document takes its
// map key as Key; documents are kept sorted by key.
func (b *WorkflowBuilder) SetDocuments(docs map[string]workflow.AttachedDocument) *WorkflowBuilder {
	keys := make([]string, 0, len(docs))
	for k := range docs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	b.documents = make([]workflow.AttachedDocument, 0, len(keys))
	for _, k := range keys {
		b.documents = append(b.documents, docs[k].WithKey(k))
	}
	return b
}

// OutputTemplate configures one combined deliverable. The placeholders of
// Template are the outputs it combines.
type OutputTemplate struct {
	Template      string
	KeepOriginals bool
}

// SetOutputTemplate declares a combined deliverable named key. Setting the
// same key again replaces its template but keeps its position and options.
func (b *WorkflowBuilder) SetOutputTemplate(key, template string) *WorkflowBuilder {
	return b.MergeOutputTemplate(key, OutputTemplate{Template: template})
}

// KeepOriginals marks the outputs combined under key to be delivered on
// their own as well.
func (b *WorkflowBuilder) KeepOriginals(key string) *WorkflowBuilder {
	return b.MergeOutputTemplate(key, OutputTemplate{KeepOriginals: true})
}

// MergeOutputTemplate overlays the non-zero fields of t onto the template
// registered under key, creating it on first use. A set KeepOriginals stays
// set.
func (b *WorkflowBuilder) MergeOutputTemplate(key string, t OutputTemplate) *WorkflowBuilder {
	cur, ok := b.templates[key]
	if !ok {
		b.templateOrder = append(b.templateOrder, key)
	}
	if err := mergo.Merge(&cur, t, mergo.WithOverride); err != nil {
		b.usage("MergeOutputTemplate", "merge template %q: %v", key, err)
	}
	b.templates[key] = cur
	return b
}

// SetIndividualOutputs replaces the outputs delivered as they are.
func (b *WorkflowBuilder) SetIndividualOutputs(names ...string) *WorkflowBuilder {
	b.individual = slices.Clone(names)
	return b
}

// Build assembles the workflow without validating it. Every node that is
// never the origin of an edge gets an edge to END unless it already has
// one. Build can be called repeatedly; the builder is not changed.
func (b *WorkflowBuilder) Build() *workflow.Workflow {
	if b.current != nil {
		b.usage("Build", "there is an unclosed node — call EndNode() before building")
	}

	nodes := make([]workflow.Node, len(b.nodes))
	for i, n := range b.nodes {
		if !n.IsEntryPoint && slices.Contains(b.entryPoints, n.Name) {
			n = n.WithEntryPoint(true)
		}
		nodes[i] = n
	}

	edges := slices.Clone(b.edges)
	graph := workflow.Graph{Nodes: nodes, Edges: edges}
	for _, name := range graph.FinalNodes() {
		end := workflow.To(name, workflow.End)
		if !slices.Contains(edges, end) {
			edges = append(edges, end)
		}
	}
	graph.Edges = edges

	return workflow.New(b.documents, graph, b.resultFormat())
}

func (b *WorkflowBuilder) resultFormat() *workflow.ResultFormat {
	if len(b.templateOrder) == 0 && len(b.individual) == 0 {
		return nil
	}
	rf := &workflow.ResultFormat{IndividualOutputs: slices.Clone(b.individual)}
	for _, key := range b.templateOrder {
		rf.Combinations = append(rf.Combinations, workflow.Combination{
			OutputName:    key,
			Sources:       workflow.PromptVariables(b.templates[key].Template),
			KeepOriginals: b.templates[key].KeepOriginals,
		})
	}
	return rf
}

// BuildValidated builds the workflow, checks that every name given to
// SetEntryPoints is a node, and validates the result.
func (b *WorkflowBuilder) BuildValidated() (*workflow.Workflow, error) {
	w := b.Build()
	for _, name := range b.entryPoints {
		if _, ok := w.Graph.Node(name); !ok {
			return nil, workflow.NewValidationError(workflow.KindUnknownEntryPoint, name,
				"entry point %q does not reference an existing node", name)
		}
	}
	if err := w.Validate(); err != nil {
		return nil, err
	}
	return w, nil
}

// ToJSONString validates and then serializes. Use Build().ToJSONString()
// to serialize an unvalidated workflow.
func (b *WorkflowBuilder) ToJSONString() (string, error) {
	w, err := b.BuildValidated()
	if err != nil {
		return "", err
	}
	return w.ToJSONString()
}

package workflow

import (
	"fmt"
	"math"
	"slices"
)

// Output names what a node produces and in which format.
type Output struct {
	Name   string
	Format OutputFormat
}

// InteractionPolicy lets the backend pause a node and converse with the user
// before its output is final.
type InteractionPolicy struct {
	AllowUserFinish         bool
	AICanConclude           bool
	RequireExplicitApproval bool
	MaxInteractions         int
	OutputMode              OutputMode
}

// Node is one unit of work in the graph. Its Name is the graph identity.
//
// Node is a value: the With* methods return modified copies with their own
// slices, so a snapshot taken mid-construction never changes underneath.
type Node struct {
	Name         string
	Prompt       string
	IsEntryPoint bool
	Output       Output
	Inputs       []Input
	Model        string
	Temperature  *float64
	Tools        []string
	Interaction  *InteractionPolicy
}

// NewNode returns a node whose output is named after the node, in markdown.
func NewNode(name string) Node {
	return Node{Name: name, Output: Output{Name: name, Format: FormatMarkdown}}
}

// Clone returns a deep copy of n.
func (n Node) Clone() Node {
	n.Inputs = slices.Clone(n.Inputs)
	n.Tools = slices.Clone(n.Tools)
	if n.Temperature != nil {
		t := *n.Temperature
		n.Temperature = &t
	}
	if n.Interaction != nil {
		p := *n.Interaction
		n.Interaction = &p
	}
	return n
}

func (n Node) WithPrompt(prompt string) Node {
	c := n.Clone()
	c.Prompt = prompt
	return c
}

func (n Node) WithEntryPoint(entry bool) Node {
	c := n.Clone()
	c.IsEntryPoint = entry
	return c
}

func (n Node) WithOutput(name string, format OutputFormat) Node {
	c := n.Clone()
	c.Output = Output{Name: name, Format: format}
	return c
}

func (n Node) WithInput(in Input) Node {
	c := n.Clone()
	c.Inputs = append(c.Inputs, in)
	return c
}

func (n Node) WithModel(model string) Node {
	c := n.Clone()
	c.Model = model
	return c
}

func (n Node) WithTemperature(t float64) Node {
	c := n.Clone()
	c.Temperature = &t
	return c
}

func (n Node) WithTools(tools ...string) Node {
	c := n.Clone()
	c.Tools = slices.Clone(tools)
	return c
}

func (n Node) WithInteraction(p InteractionPolicy) Node {
	c := n.Clone()
	c.Interaction = &p
	return c
}

// Validate checks the node on its own and against allNodes, which should be
// the full node list of the graph (uniqueness needs it). A nil allNodes skips
// the uniqueness check.
func (n Node) Validate(allNodes []Node) error {
	if n.Name == "" {
		return NewValidationError(KindMissingName, "", "node name is required")
	}
	if n.Name == End {
		return NewValidationError(KindReservedName, n.Name, "node name %q is reserved for the terminal marker", End)
	}
	count := 0
	for _, other := range allNodes {
		if other.Name == n.Name {
			count++
		}
	}
	if count > 1 {
		return NewValidationError(KindDuplicateName, n.Name, "node with name %q already exists", n.Name)
	}

	parallel := 0
	for _, in := range n.Inputs {
		if in.RunInParallel {
			parallel++
		}
	}
	if parallel > 1 {
		return NewValidationError(KindParallelInputs, n.Name,
			"node %q: at most one input with executar_em_paralelo (parallel execution) is allowed, found %d",
			n.Name, parallel)
	}

	if err := n.checkPromptVariables(); err != nil {
		return err
	}

	for _, in := range n.Inputs {
		if err := in.validate(n.Name); err != nil {
			return err
		}
	}

	if n.Output.Name == "" {
		return NewValidationError(KindInvalidOutput, n.Name, "node %q: output name is required", n.Name)
	}
	if !n.Output.Format.Valid() {
		return NewValidationError(KindInvalidOutput, n.Name,
			"node %q: output format %q must be markdown or json", n.Name, n.Output.Format)
	}

	if n.Temperature != nil && (math.IsNaN(*n.Temperature) || *n.Temperature < 0 || *n.Temperature > 1) {
		return NewValidationError(KindInvalidConfig, n.Name,
			"node %q: temperature must be between 0 and 1, got %g", n.Name, *n.Temperature)
	}
	for _, tool := range n.Tools {
		if tool == "" {
			return NewValidationError(KindInvalidConfig, n.Name, "node %q: empty tool identifier", n.Name)
		}
	}
	if p := n.Interaction; p != nil {
		if p.MaxInteractions < 1 {
			return NewValidationError(KindInvalidConfig, n.Name,
				"node %q: maximo_de_interacoes must be at least 1, got %d", n.Name, p.MaxInteractions)
		}
		if !p.OutputMode.Valid() {
			return NewValidationError(KindInvalidConfig, n.Name,
				"node %q: invalid modo_de_saida %q", n.Name, p.OutputMode)
		}
	}
	return nil
}

// checkPromptVariables enforces that every {variable} in the prompt is bound
// by exactly one input.
func (n Node) checkPromptVariables() error {
	bound := make(map[string]int, len(n.Inputs))
	for _, in := range n.Inputs {
		bound[in.Variable]++
	}
	for _, v := range PromptVariables(n.Prompt) {
		switch bound[v] {
		case 0:
			return NewValidationError(KindPromptVariable, n.Name,
				"node %q: prompt variable {%s} has no input binding", n.Name, v)
		case 1:
		default:
			return NewValidationError(KindPromptVariable, n.Name,
				"node %q: prompt variable {%s} is bound by %d inputs", n.Name, v, bound[v])
		}
	}
	return nil
}

// Warnings reports bindings whose variable never appears in the prompt.
// They are carried to the backend but have no effect.
func (n Node) Warnings() []Warning {
	used := make(map[string]bool)
	for _, v := range PromptVariables(n.Prompt) {
		used[v] = true
	}
	var out []Warning
	for _, in := range n.Inputs {
		if in.Variable != "" && !used[in.Variable] {
			out = append(out, Warning{
				Subject: n.Name,
				Msg:     fmt.Sprintf("node %q: input %q is not referenced in the prompt", n.Name, in.Variable),
			})
		}
	}
	return out
}

// Warning is a non-fatal finding surfaced next to validation.
type Warning struct {
	Subject string
	Msg     string
}

func (w Warning) String() string { return w.Msg }

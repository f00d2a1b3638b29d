// Package definition reads workflows written by hand in YAML and turns them
// into validated workflows through the builder.
package definition

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/pocketomega/omega-workflow/internal/builder"
	"github.com/pocketomega/omega-workflow/internal/workflow"
)

// DocumentDef is an attached document. Exactly one of UUID or UUIDs is set.
type DocumentDef struct {
	Description string   `yaml:"description"`
	UUID        string   `yaml:"uuid"`
	UUIDs       []string `yaml:"uuids"`
}

// InputDef binds a prompt variable. Exactly one of Document, Node or Upload
// selects the origin.
type InputDef struct {
	Variable string `yaml:"variable"`
	Document string `yaml:"document"`
	Node     string `yaml:"node"`
	Upload   string `yaml:"upload"` // "zero" | "um" | "varios"
	Parallel bool   `yaml:"parallel"`
}

type OutputDef struct {
	Name   string `yaml:"name"`
	Format string `yaml:"format"` // "markdown" | "json"
}

type InteractionDef struct {
	AllowUserFinish         bool   `yaml:"allow_user_finish"`
	AICanConclude           bool   `yaml:"ai_can_conclude"`
	RequireExplicitApproval bool   `yaml:"require_explicit_approval"`
	MaxInteractions         int    `yaml:"max_interactions"`
	OutputMode              string `yaml:"output_mode"`
}

type NodeDef struct {
	Name        string          `yaml:"name"`
	EntryPoint  bool            `yaml:"entry_point"`
	Prompt      string          `yaml:"prompt"`
	PromptFile  string          `yaml:"prompt_file"`
	Model       string          `yaml:"model"`
	Temperature *float64        `yaml:"temperature"`
	Tools       []string        `yaml:"tools"`
	Output      OutputDef       `yaml:"output"`
	Inputs      []InputDef      `yaml:"inputs"`
	Interaction *InteractionDef `yaml:"interaction"`
}

type EdgeDef struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// TemplateDef is a combined deliverable; its placeholders name the outputs
// it combines.
type TemplateDef struct {
	Name          string `yaml:"name"`
	Template      string `yaml:"template"`
	KeepOriginals bool   `yaml:"keep_originals"`
}

// Definition is the parsed content of a workflow YAML file.
type Definition struct {
	Name              string                 `yaml:"name"`
	Description       string                 `yaml:"description"`
	Documents         map[string]DocumentDef `yaml:"documents"`
	EntryPoints       []string               `yaml:"entry_points"`
	Nodes             []NodeDef              `yaml:"nodes"`
	Edges             []EdgeDef              `yaml:"edges"`
	OutputTemplates   []TemplateDef          `yaml:"output_templates"`
	IndividualOutputs []string               `yaml:"individual_outputs"`
}

// Parse decodes a definition. Unknown keys are rejected so typos surface
// instead of silently dropping a setting.
func Parse(data []byte) (*Definition, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var def Definition
	if err := dec.Decode(&def); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("definition: empty document")
		}
		return nil, fmt.Errorf("definition: parse: %w", err)
	}
	return &def, nil
}

// Load reads and parses the file at path. A node's prompt_file is read
// relative to the directory holding path and replaces its prompt.
func Load(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("definition: read %q: %w", path, err)
	}
	def, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("definition: load %q: %w", path, err)
	}

	dir := filepath.Dir(path)
	for i := range def.Nodes {
		n := &def.Nodes[i]
		if n.PromptFile == "" {
			continue
		}
		if n.Prompt != "" {
			return nil, fmt.Errorf("definition: node %q: prompt and prompt_file are mutually exclusive", n.Name)
		}
		promptPath := n.PromptFile
		if !filepath.IsAbs(promptPath) {
			promptPath = filepath.Join(dir, promptPath)
		}
		raw, err := os.ReadFile(promptPath)
		if err != nil {
			return nil, fmt.Errorf("definition: node %q: read prompt %q: %w", n.Name, promptPath, err)
		}
		n.Prompt = strings.TrimRight(string(raw), "\r\n")
	}
	return def, nil
}

// Builder drives a WorkflowBuilder through the definition. Shape errors in
// the YAML (an input with no origin, a document with both id forms) are
// reported here; graph invariants are left to validation.
func (d *Definition) Builder() (*builder.WorkflowBuilder, error) {
	b := builder.New()

	if len(d.Documents) > 0 {
		docs := make(map[string]workflow.AttachedDocument, len(d.Documents))
		for key, dd := range d.Documents {
			doc, err := dd.document(key)
			if err != nil {
				return nil, err
			}
			docs[key] = doc
		}
		b.SetDocuments(docs)
	}

	for _, nd := range d.Nodes {
		inputs := make([]workflow.Input, 0, len(nd.Inputs))
		for _, id := range nd.Inputs {
			in, err := id.input(nd.Name)
			if err != nil {
				return nil, err
			}
			inputs = append(inputs, in)
		}

		b.AddNode(nd.Name).SetPrompt(nd.Prompt)
		if nd.EntryPoint {
			b.MarkEntryPoint()
		}
		b.SetAgent(builder.Agent{Model: nd.Model, Temperature: nd.Temperature, Tools: nd.Tools})
		if nd.Output.Name != "" {
			b.SetOutputKey(nd.Output.Name)
		}
		if nd.Output.Format != "" {
			b.SetOutputFormat(workflow.OutputFormat(nd.Output.Format))
		}
		for _, in := range inputs {
			b.AddInput(in)
		}
		if p := nd.Interaction; p != nil {
			b.SetInteraction(workflow.InteractionPolicy{
				AllowUserFinish:         p.AllowUserFinish,
				AICanConclude:           p.AICanConclude,
				RequireExplicitApproval: p.RequireExplicitApproval,
				MaxInteractions:         p.MaxInteractions,
				OutputMode:              workflow.OutputMode(p.OutputMode),
			})
		}
		b.EndNode()
	}

	for _, e := range d.Edges {
		b.AddEdge(e.From, e.To)
	}
	if len(d.EntryPoints) > 0 {
		b.SetEntryPoints(d.EntryPoints...)
	}
	for _, t := range d.OutputTemplates {
		if t.Name == "" {
			return nil, fmt.Errorf("definition: output template without name")
		}
		b.MergeOutputTemplate(t.Name, builder.OutputTemplate{Template: t.Template, KeepOriginals: t.KeepOriginals})
	}
	if len(d.IndividualOutputs) > 0 {
		b.SetIndividualOutputs(d.IndividualOutputs...)
	}
	return b, nil
}

// Build returns the validated workflow described by d.
func (d *Definition) Build() (*workflow.Workflow, error) {
	b, err := d.Builder()
	if err != nil {
		return nil, err
	}
	return b.BuildValidated()
}

func (dd DocumentDef) document(key string) (workflow.AttachedDocument, error) {
	switch {
	case dd.UUID != "" && len(dd.UUIDs) > 0:
		return workflow.AttachedDocument{}, fmt.Errorf("definition: document %q: uuid and uuids are mutually exclusive", key)
	case dd.UUID != "":
		return workflow.NewDocument(key, dd.Description, dd.UUID)
	case len(dd.UUIDs) > 0:
		return workflow.NewDocumentList(key, dd.Description, dd.UUIDs)
	default:
		return workflow.AttachedDocument{}, fmt.Errorf("definition: document %q: one of uuid or uuids is required", key)
	}
}

func (id InputDef) input(node string) (workflow.Input, error) {
	var (
		in    workflow.Input
		count int
	)
	if id.Document != "" {
		in = workflow.FromDocument(id.Variable, id.Document)
		count++
	}
	if id.Node != "" {
		in = workflow.FromNode(id.Variable, id.Node)
		count++
	}
	if id.Upload != "" {
		in = workflow.FromUpload(id.Variable, workflow.FileCountMode(id.Upload))
		count++
	}
	if count != 1 {
		return workflow.Input{}, fmt.Errorf("definition: node %q input %q: exactly one of document, node or upload is required, got %d",
			node, id.Variable, count)
	}
	if id.Parallel {
		in = in.Parallel()
	}
	return in, nil
}

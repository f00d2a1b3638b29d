package workflow

import (
	"fmt"
	"slices"

	"github.com/pocketomega/omega-workflow/internal/xjson"
)

// Payload is the wire document consumed by the execution backend. Field
// order matches the backend schema; combinacoes and saidas_individuais sit
// at the root rather than under a result-format key.
type Payload struct {
	Documents         []DocumentPayload    `json:"documentos_anexados"`
	Graph             GraphPayload         `json:"grafo"`
	Combinations      []CombinationPayload `json:"combinacoes,omitempty"`
	IndividualOutputs []string             `json:"saidas_individuais,omitempty"`
}

type DocumentPayload struct {
	Key         string   `json:"chave"`
	Description string   `json:"descricao"`
	SingleID    string   `json:"uuid_unico,omitempty"`
	IDList      []string `json:"uuids_lista,omitempty"`
}

type GraphPayload struct {
	Nodes []NodePayload `json:"nos"`
	Edges []EdgePayload `json:"arestas"`
}

type NodePayload struct {
	Name        string              `json:"nome"`
	EntryPoint  bool                `json:"entrada_grafo"`
	Prompt      string              `json:"prompt"`
	Model       string              `json:"modelo_llm,omitempty"`
	Temperature *float64            `json:"temperatura,omitempty"`
	Tools       []string            `json:"ferramentas,omitempty"`
	Inputs      []InputPayload      `json:"entradas"`
	Output      OutputPayload       `json:"saida"`
	Interaction *InteractionPayload `json:"interacao_com_usuario,omitempty"`
}

type InputPayload struct {
	Variable      string        `json:"variavel_prompt"`
	Origin        Origin        `json:"origem"`
	DocumentKey   string        `json:"chave_documento_origem,omitempty"`
	SourceNode    string        `json:"nome_no_origem,omitempty"`
	RunInParallel bool          `json:"executar_em_paralelo,omitempty"`
	FileCount     FileCountMode `json:"quantidade_arquivos,omitempty"`
}

type OutputPayload struct {
	Name   string       `json:"nome"`
	Format OutputFormat `json:"formato"`
}

type InteractionPayload struct {
	AllowUserFinish         bool       `json:"permitir_usuario_finalizar"`
	AICanConclude           bool       `json:"ia_pode_concluir"`
	RequireExplicitApproval bool       `json:"requer_aprovacao_explicita"`
	MaxInteractions         int        `json:"maximo_de_interacoes"`
	OutputMode              OutputMode `json:"modo_de_saida"`
}

type EdgePayload struct {
	Origin      string `json:"origem"`
	Destination string `json:"destino"`
}

type CombinationPayload struct {
	OutputName    string   `json:"nome_da_saida"`
	Sources       []string `json:"combinar_resultados"`
	KeepOriginals bool     `json:"manter_originais"`
}

// Serialize converts w to its wire form. It does not validate.
func (w *Workflow) Serialize() Payload {
	p := Payload{
		Documents: make([]DocumentPayload, 0, len(w.Documents)),
		Graph: GraphPayload{
			Nodes: make([]NodePayload, 0, len(w.Graph.Nodes)),
			Edges: make([]EdgePayload, 0, len(w.Graph.Edges)),
		},
	}
	for _, d := range w.Documents {
		dp := DocumentPayload{Key: d.Key, Description: d.Description}
		if id, ok := d.SingleID(); ok {
			dp.SingleID = id
		} else if ids, ok := d.IDList(); ok && len(ids) > 0 {
			dp.IDList = ids
		}
		p.Documents = append(p.Documents, dp)
	}
	for _, n := range w.Graph.Nodes {
		p.Graph.Nodes = append(p.Graph.Nodes, serializeNode(n))
	}
	for _, e := range w.Graph.Edges {
		p.Graph.Edges = append(p.Graph.Edges, EdgePayload{Origin: e.Origin, Destination: e.Destination})
	}
	if rf := w.ResultFormat; rf != nil {
		for _, c := range rf.Combinations {
			sources := slices.Clone(c.Sources)
			if sources == nil {
				sources = []string{}
			}
			p.Combinations = append(p.Combinations, CombinationPayload{
				OutputName:    c.OutputName,
				Sources:       sources,
				KeepOriginals: c.KeepOriginals,
			})
		}
		if len(rf.IndividualOutputs) > 0 {
			p.IndividualOutputs = slices.Clone(rf.IndividualOutputs)
		}
	}
	return p
}

func serializeNode(n Node) NodePayload {
	np := NodePayload{
		Name:       n.Name,
		EntryPoint: n.IsEntryPoint,
		Prompt:     n.Prompt,
		Model:      n.Model,
		Inputs:     make([]InputPayload, 0, len(n.Inputs)),
		Output:     OutputPayload{Name: n.Output.Name, Format: n.Output.Format},
	}
	if n.Temperature != nil {
		t := *n.Temperature
		np.Temperature = &t
	}
	if len(n.Tools) > 0 {
		np.Tools = slices.Clone(n.Tools)
	}
	for _, in := range n.Inputs {
		ip := InputPayload{
			Variable:      in.Variable,
			Origin:        in.Origin,
			RunInParallel: in.RunInParallel,
		}
		switch in.Origin {
		case OriginAttachedDocument:
			ip.DocumentKey = in.DocumentKey
		case OriginPreviousNode:
			ip.SourceNode = in.SourceNode
		case OriginUpload:
			ip.FileCount = in.FileCount
		}
		np.Inputs = append(np.Inputs, ip)
	}
	if p := n.Interaction; p != nil {
		np.Interaction = &InteractionPayload{
			AllowUserFinish:         p.AllowUserFinish,
			AICanConclude:           p.AICanConclude,
			RequireExplicitApproval: p.RequireExplicitApproval,
			MaxInteractions:         p.MaxInteractions,
			OutputMode:              p.OutputMode,
		}
	}
	return np
}

// ToJSON encodes the wire payload. It does not validate; see
// builder.WorkflowBuilder.ToJSONString for the validating path.
func (w *Workflow) ToJSON() ([]byte, error) {
	data, err := xjson.Marshal(w.Serialize())
	if err != nil {
		return nil, fmt.Errorf("workflow: encode payload: %w", err)
	}
	return data, nil
}

// ToJSONString is ToJSON as a string.
func (w *Workflow) ToJSONString() (string, error) {
	data, err := w.ToJSON()
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ToJSONIndent encodes the wire payload for human reading.
func (w *Workflow) ToJSONIndent() ([]byte, error) {
	data, err := xjson.MarshalIndent(w.Serialize(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("workflow: encode payload: %w", err)
	}
	return data, nil
}

// ParseJSON decodes a payload previously produced by ToJSON. Unknown fields
// are rejected. The result is not validated.
func ParseJSON(data []byte) (*Workflow, error) {
	var p Payload
	if err := xjson.UnmarshalStrict(data, &p); err != nil {
		return nil, &DecodeError{Msg: "malformed payload", Err: err}
	}
	return FromPayload(p)
}

// FromPayload rebuilds a workflow from its wire form. Enum values and
// document id forms are checked here since they cannot be represented
// otherwise; graph invariants are left to Validate.
func FromPayload(p Payload) (*Workflow, error) {
	w := &Workflow{
		Documents: make([]AttachedDocument, 0, len(p.Documents)),
		Graph: Graph{
			Nodes: make([]Node, 0, len(p.Graph.Nodes)),
			Edges: make([]Edge, 0, len(p.Graph.Edges)),
		},
	}
	for i, dp := range p.Documents {
		field := fmt.Sprintf("documentos_anexados[%d]", i)
		var (
			d   AttachedDocument
			err error
		)
		switch {
		case dp.SingleID != "" && len(dp.IDList) > 0:
			return nil, &DecodeError{Field: field, Msg: "uuid_unico and uuids_lista are mutually exclusive"}
		case dp.SingleID != "":
			d, err = NewDocument(dp.Key, dp.Description, dp.SingleID)
		case len(dp.IDList) > 0:
			d, err = NewDocumentList(dp.Key, dp.Description, dp.IDList)
		default:
			return nil, &DecodeError{Field: field, Msg: "one of uuid_unico or uuids_lista is required"}
		}
		if err != nil {
			return nil, &DecodeError{Field: field, Msg: "invalid document", Err: err}
		}
		w.Documents = append(w.Documents, d)
	}
	for i, np := range p.Graph.Nodes {
		n, err := decodeNode(np, fmt.Sprintf("grafo.nos[%d]", i))
		if err != nil {
			return nil, err
		}
		w.Graph.Nodes = append(w.Graph.Nodes, n)
	}
	for _, ep := range p.Graph.Edges {
		w.Graph.Edges = append(w.Graph.Edges, Edge{Origin: ep.Origin, Destination: ep.Destination})
	}
	if len(p.Combinations) > 0 || len(p.IndividualOutputs) > 0 {
		rf := &ResultFormat{IndividualOutputs: slices.Clone(p.IndividualOutputs)}
		for _, cp := range p.Combinations {
			rf.Combinations = append(rf.Combinations, Combination{
				OutputName:    cp.OutputName,
				Sources:       slices.Clone(cp.Sources),
				KeepOriginals: cp.KeepOriginals,
			})
		}
		w.ResultFormat = rf
	}
	return w, nil
}

func decodeNode(np NodePayload, field string) (Node, error) {
	n := Node{
		Name:         np.Name,
		Prompt:       np.Prompt,
		IsEntryPoint: np.EntryPoint,
		Model:        np.Model,
		Tools:        slices.Clone(np.Tools),
		Output:       Output{Name: np.Output.Name, Format: np.Output.Format},
	}
	if !n.Output.Format.Valid() {
		return Node{}, &DecodeError{Field: field + ".saida.formato", Msg: fmt.Sprintf("unknown format %q", np.Output.Format)}
	}
	if np.Temperature != nil {
		t := *np.Temperature
		n.Temperature = &t
	}
	for j, ip := range np.Inputs {
		if !ip.Origin.Valid() {
			return Node{}, &DecodeError{
				Field: fmt.Sprintf("%s.entradas[%d].origem", field, j),
				Msg:   fmt.Sprintf("unknown origin %q", ip.Origin),
			}
		}
		if ip.FileCount != "" && !ip.FileCount.Valid() {
			return Node{}, &DecodeError{
				Field: fmt.Sprintf("%s.entradas[%d].quantidade_arquivos", field, j),
				Msg:   fmt.Sprintf("unknown file count %q", ip.FileCount),
			}
		}
		n.Inputs = append(n.Inputs, Input{
			Variable:      ip.Variable,
			Origin:        ip.Origin,
			DocumentKey:   ip.DocumentKey,
			SourceNode:    ip.SourceNode,
			FileCount:     ip.FileCount,
			RunInParallel: ip.RunInParallel,
		})
	}
	if ip := np.Interaction; ip != nil {
		if !ip.OutputMode.Valid() {
			return Node{}, &DecodeError{
				Field: field + ".interacao_com_usuario.modo_de_saida",
				Msg:   fmt.Sprintf("unknown output mode %q", ip.OutputMode),
			}
		}
		n.Interaction = &InteractionPolicy{
			AllowUserFinish:         ip.AllowUserFinish,
			AICanConclude:           ip.AICanConclude,
			RequireExplicitApproval: ip.RequireExplicitApproval,
			MaxInteractions:         ip.MaxInteractions,
			OutputMode:              ip.OutputMode,
		}
	}
	return n, nil
}

package workflow

import "slices"

// Combination declares a new deliverable built from named node outputs.
type Combination struct {
	OutputName    string
	Sources       []string
	KeepOriginals bool
}

// ResultFormat says how node outputs become the final deliverables.
type ResultFormat struct {
	Combinations      []Combination
	IndividualOutputs []string
}

func (r ResultFormat) clone() ResultFormat {
	out := ResultFormat{IndividualOutputs: slices.Clone(r.IndividualOutputs)}
	if r.Combinations != nil {
		out.Combinations = make([]Combination, len(r.Combinations))
		for i, c := range r.Combinations {
			c.Sources = slices.Clone(c.Sources)
			out.Combinations[i] = c
		}
	}
	return out
}

// IsEmpty reports whether r declares nothing.
func (r ResultFormat) IsEmpty() bool {
	return len(r.Combinations) == 0 && len(r.IndividualOutputs) == 0
}

// validate checks that every referenced name is a node output or the output
// of an earlier combination.
func (r ResultFormat) validate(nodes []Node) error {
	known := make(map[string]bool, len(nodes)+len(r.Combinations))
	for _, n := range nodes {
		known[n.Output.Name] = true
	}
	for _, c := range r.Combinations {
		if c.OutputName == "" {
			return NewValidationError(KindInvalidResultFormat, "", "combination nome_da_saida is required")
		}
		if len(c.Sources) == 0 {
			return NewValidationError(KindInvalidResultFormat, c.OutputName,
				"combination %q has nothing to combine", c.OutputName)
		}
		for _, src := range c.Sources {
			if !known[src] {
				return NewValidationError(KindInvalidResultFormat, c.OutputName,
					"combination %q references unknown output %q", c.OutputName, src)
			}
		}
		known[c.OutputName] = true
	}
	for _, name := range r.IndividualOutputs {
		if !known[name] {
			return NewValidationError(KindInvalidResultFormat, name,
				"individual output %q is not produced by any node or combination", name)
		}
	}
	return nil
}

package workflow

// Input binds one prompt variable to a value source. Only the field that
// matches Origin is meaningful: DocumentKey for attached documents,
// SourceNode for previous node results, FileCount for uploads.
type Input struct {
	Variable      string
	Origin        Origin
	DocumentKey   string
	SourceNode    string
	FileCount     FileCountMode
	RunInParallel bool
}

// FromDocument binds variable to the attached document with the given key.
func FromDocument(variable, documentKey string) Input {
	return Input{Variable: variable, Origin: OriginAttachedDocument, DocumentKey: documentKey}
}

// FromNode binds variable to the output of the named node.
func FromNode(variable, sourceNode string) Input {
	return Input{Variable: variable, Origin: OriginPreviousNode, SourceNode: sourceNode}
}

// FromUpload binds variable to files the user uploads while the workflow runs.
func FromUpload(variable string, count FileCountMode) Input {
	return Input{Variable: variable, Origin: OriginUpload, FileCount: count}
}

// Parallel returns a copy of in flagged to fan out one execution per item.
func (in Input) Parallel() Input {
	in.RunInParallel = true
	return in
}

func (in Input) validate(node string) error {
	if in.Variable == "" {
		return NewValidationError(KindInvalidInput, node, "node %q: input binding without variavel_prompt", node)
	}
	switch in.Origin {
	case OriginAttachedDocument:
		if in.DocumentKey == "" {
			return NewValidationError(KindInvalidInput, node,
				"node %q: input %q requires chave_documento_origem", node, in.Variable)
		}
	case OriginPreviousNode:
		if in.SourceNode == "" {
			return NewValidationError(KindInvalidInput, node,
				"node %q: input %q requires nome_no_origem", node, in.Variable)
		}
		if in.SourceNode == node {
			return NewValidationError(KindInvalidInput, node,
				"node %q: input %q cannot read the node's own result", node, in.Variable)
		}
	case OriginUpload:
		if !in.FileCount.Valid() {
			return NewValidationError(KindInvalidInput, node,
				"node %q: input %q has invalid quantidade_arquivos %q", node, in.Variable, in.FileCount)
		}
	default:
		return NewValidationError(KindInvalidInput, node,
			"node %q: input %q has unknown origin %q", node, in.Variable, in.Origin)
	}
	return nil
}

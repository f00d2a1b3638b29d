package workflow

// Origin says where an input binding takes its value from.
type Origin string

const (
	OriginAttachedDocument Origin = "documento_anexado"
	OriginPreviousNode     Origin = "resultado_no_anterior"
	OriginUpload           Origin = "documento_upload_execucao"
)

func (o Origin) Valid() bool {
	switch o {
	case OriginAttachedDocument, OriginPreviousNode, OriginUpload:
		return true
	}
	return false
}

// OutputFormat is the format a node declares for its output.
type OutputFormat string

const (
	FormatMarkdown OutputFormat = "markdown"
	FormatJSON     OutputFormat = "json"
)

func (f OutputFormat) Valid() bool {
	switch f {
	case FormatMarkdown, FormatJSON:
		return true
	}
	return false
}

// FileCountMode is how many files the user may upload for an
// upload-during-execution input.
type FileCountMode string

const (
	FileCountZero FileCountMode = "zero"
	FileCountOne  FileCountMode = "um"
	FileCountMany FileCountMode = "varios"
)

func (m FileCountMode) Valid() bool {
	switch m {
	case FileCountZero, FileCountOne, FileCountMany:
		return true
	}
	return false
}

// OutputMode selects what an interactive node hands downstream once the
// conversation with the user ends.
type OutputMode string

const (
	OutputLastMessage OutputMode = "ultima_mensagem"
	OutputFullHistory OutputMode = "historico_completo"
	OutputBoth        OutputMode = "ambos"
)

func (m OutputMode) Valid() bool {
	switch m {
	case OutputLastMessage, OutputFullHistory, OutputBoth:
		return true
	}
	return false
}

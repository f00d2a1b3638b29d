package workflow

import (
	"errors"
	"fmt"
)

// Sentinel errors for programmatic checks via errors.Is.
var (
	// ErrValidation marks a violated graph invariant. The caller can show the
	// message and let the user fix the input.
	ErrValidation = errors.New("validation error")

	// ErrUsage marks a builder called out of protocol. It signals a bug in
	// the calling code and is raised with panic.
	ErrUsage = errors.New("usage error")

	// ErrDecode marks a payload that cannot be turned back into a Workflow.
	ErrDecode = errors.New("decode error")
)

// ErrorKind names the invariant a ValidationError reports.
type ErrorKind string

const (
	KindMissingName         ErrorKind = "missing_name"
	KindDuplicateName       ErrorKind = "duplicate_name"
	KindReservedName        ErrorKind = "reserved_name"
	KindParallelInputs      ErrorKind = "parallel_inputs"
	KindPromptVariable      ErrorKind = "prompt_variable"
	KindInvalidInput        ErrorKind = "invalid_input"
	KindInvalidOutput       ErrorKind = "invalid_output"
	KindInvalidConfig       ErrorKind = "invalid_config"
	KindDanglingEdge        ErrorKind = "dangling_edge"
	KindDisconnectedNode    ErrorKind = "disconnected_node"
	KindMissingEnd          ErrorKind = "missing_end"
	KindInvalidDocument     ErrorKind = "invalid_document"
	KindDuplicateDocument   ErrorKind = "duplicate_document"
	KindMissingDocument     ErrorKind = "missing_document"
	KindUnknownSourceNode   ErrorKind = "unknown_source_node"
	KindInvalidResultFormat ErrorKind = "invalid_result_format"
	KindUnknownEntryPoint   ErrorKind = "unknown_entry_point"
	KindUnknownTool         ErrorKind = "unknown_tool"
)

// ValidationError reports a violated invariant. Subject is the node name,
// document key or output name the message is about.
type ValidationError struct {
	Kind    ErrorKind
	Subject string
	Msg     string
}

func (e *ValidationError) Error() string {
	if e == nil {
		return ""
	}
	if e.Msg == "" {
		return ErrValidation.Error()
	}
	return fmt.Sprintf("%s: %s", ErrValidation.Error(), e.Msg)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NewValidationError builds a ValidationError with a formatted message.
func NewValidationError(kind ErrorKind, subject, format string, args ...any) *ValidationError {
	return &ValidationError{Kind: kind, Subject: subject, Msg: fmt.Sprintf(format, args...)}
}

// UsageError is the panic value raised by the builder when it is driven out
// of protocol, e.g. SetPrompt with no open node.
type UsageError struct {
	Op  string
	Msg string
}

func (e *UsageError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s: %s", ErrUsage.Error(), e.Op, e.Msg)
}

func (e *UsageError) Unwrap() error { return ErrUsage }

// DecodeError reports a payload that is well-formed JSON but does not
// describe a workflow (unknown enum value, document with two id forms, ...).
type DecodeError struct {
	Field string
	Msg   string
	Err   error
}

func (e *DecodeError) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Msg
	if e.Field != "" {
		msg = e.Field + ": " + msg
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", ErrDecode.Error(), msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", ErrDecode.Error(), msg)
}

func (e *DecodeError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrDecode, e.Err}
	}
	return []error{ErrDecode}
}

// KindOf returns the kind of the first ValidationError in err's chain, or ""
// when err carries none.
func KindOf(err error) ErrorKind {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Kind
	}
	return ""
}

// Package llm knows which models a node may name and what those models can
// do. Nothing here calls a model; the backend does that.
package llm

import (
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/pocketomega/omega-workflow/internal/workflow"
)

// DefaultModel is used by the backend when a node names none.
const DefaultModel = openai.GPT4o

// KnownModels lists the model ids offered when authoring a workflow.
var KnownModels = []string{
	openai.GPT4o,
	openai.GPT4oMini,
	openai.GPT4Turbo,
	openai.GPT3Dot5Turbo,
	openai.O1Mini,
	openai.O3Mini,
	"deepseek-chat",
	"deepseek-reasoner",
	"gemini-2.5-pro",
	"claude-sonnet-4-5",
}

// baseName lowercases a model id and strips provider prefixes such as
// "Pro/deepseek-ai/".
func baseName(model string) string {
	lower := strings.ToLower(model)
	parts := strings.Split(lower, "/")
	return parts[len(parts)-1]
}

// IsKnownModel reports whether model is in KnownModels or has a known
// context window.
func IsKnownModel(model string) bool {
	base := baseName(model)
	for _, m := range KnownModels {
		if base == m {
			return true
		}
	}
	return ContextWindow(model) > 0
}

// ContextWindow returns the approximate context window in tokens, or 0 for
// an unrecognised model. Prefixes run from most to least specific.
func ContextWindow(model string) int {
	base := baseName(model)
	knownWindows := []struct {
		prefix string
		tokens int
	}{
		{"gpt-4o", 128_000},
		{"gpt-4-turbo", 128_000},
		{"gpt-4.1", 1_000_000},
		{"gpt-4", 8_192},
		{"gpt-3.5-turbo", 16_385},
		{"o1-mini", 128_000},
		{"o1-preview", 128_000},
		{"o1", 200_000},
		{"o3-mini", 200_000},
		{"o3", 200_000},
		{"o4-mini", 200_000},
		{"claude-3-5", 200_000},
		{"claude-3-7", 200_000},
		{"claude-sonnet", 200_000},
		{"claude-opus", 200_000},
		{"deepseek-v2", 128_000},
		{"deepseek", 64_000},
		{"gemini-2.5", 1_000_000},
		{"gemini-2.0", 1_000_000},
		{"gemini-1.5-pro", 2_000_000},
		{"qwen2.5", 128_000},
		{"qwen3", 32_000},
	}
	for _, kw := range knownWindows {
		if strings.HasPrefix(base, kw.prefix) {
			return kw.tokens
		}
	}
	return 0
}

// IsReasoningModel reports whether model reasons natively. Those models
// ignore temperature.
func IsReasoningModel(model string) bool {
	base := baseName(model)
	for _, known := range []string{
		"deepseek-reasoner", "deepseek-r1",
		"o1", "o3", "o4-mini",
		"claude-sonnet-4-5", "claude-3-7-sonnet",
		"qwq", "gemini-2.5",
	} {
		if strings.HasPrefix(base, known) {
			return true
		}
	}
	for _, kw := range []string{"-r1", "reasoner", "thinking"} {
		if strings.Contains(base, kw) {
			return true
		}
	}
	return false
}

// SupportsTools reports whether model accepts function calling. Most do;
// only the early o1 releases are excluded.
func SupportsTools(model string) bool {
	switch baseName(model) {
	case "o1-mini", "o1-preview":
		return false
	}
	return true
}

// CheckModels reports model problems in w that the backend would tolerate
// but the author probably did not intend: unknown model ids, temperature on
// reasoning models, and tools on models without function calling. Nodes
// without a model are checked against defaultModel.
func CheckModels(w *workflow.Workflow, defaultModel string) []workflow.Warning {
	var out []workflow.Warning
	for _, n := range w.Graph.Nodes {
		model := n.Model
		if model == "" {
			model = defaultModel
		}
		if model == "" {
			continue
		}
		if n.Model != "" && !IsKnownModel(n.Model) {
			out = append(out, workflow.Warning{
				Subject: n.Name,
				Msg:     fmt.Sprintf("node %q: unknown model %q", n.Name, n.Model),
			})
		}
		if n.Temperature != nil && IsReasoningModel(model) {
			out = append(out, workflow.Warning{
				Subject: n.Name,
				Msg:     fmt.Sprintf("node %q: model %q ignores temperature", n.Name, model),
			})
		}
		if len(n.Tools) > 0 && !SupportsTools(model) {
			out = append(out, workflow.Warning{
				Subject: n.Name,
				Msg:     fmt.Sprintf("node %q: model %q does not support tools", n.Name, model),
			})
		}
	}
	return out
}

package workflow

import "regexp"

// placeholderRe matches {identifier}. Braces around anything that is not an
// identifier (JSON examples inside a prompt, "{ }") are left alone.
var placeholderRe = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// PromptVariables returns the distinct placeholders referenced by prompt in
// order of first appearance.
func PromptVariables(prompt string) []string {
	matches := placeholderRe.FindAllStringSubmatch(prompt, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(matches))
	vars := make([]string, 0, len(matches))
	for _, m := range matches {
		if seen[m[1]] {
			continue
		}
		seen[m[1]] = true
		vars = append(vars, m[1])
	}
	return vars
}

// Package experts holds the fixed set of expert instruction templates and
// composes the user prompt sent alongside them.
package experts

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Mode values accepted by Compose
const (
	ModeAdvisory       = "advisory"
	ModeImplementation = "implementation"
)

// ErrUnknownExpert is returned for a name outside the fixed expert set
var ErrUnknownExpert = errors.New("unknown expert")

// Expert is a named system prompt
type Expert struct {
	Name   string
	Prompt string
}

// Title renders the name for display, e.g. "code_reviewer" -> "Code Reviewer"
func (e Expert) Title() string {
	words := strings.Split(e.Name, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + strings.ToLower(w[1:])
	}
	return strings.Join(words, " ")
}

var all = []Expert{
	{Name: "architect", Prompt: architectPrompt},
	{Name: "code_reviewer", Prompt: codeReviewerPrompt},
	{Name: "security_analyst", Prompt: securityAnalystPrompt},
	{Name: "plan_reviewer", Prompt: planReviewerPrompt},
	{Name: "scope_analyst", Prompt: scopeAnalystPrompt},
}

// All returns the experts in their declared order
func All() []Expert {
	out := make([]Expert, len(all))
	copy(out, all)
	return out
}

// Names returns the expert names in their declared order
func Names() []string {
	names := make([]string, len(all))
	for i, e := range all {
		names[i] = e.Name
	}
	return names
}

// Lookup finds an expert by name
func Lookup(name string) (Expert, error) {
	for _, e := range all {
		if e.Name == name {
			return e, nil
		}
	}
	return Expert{}, fmt.Errorf("%w: %s. Available: %s", ErrUnknownExpert, name, strings.Join(Names(), ", "))
}

// Prompt is a composed (system, user) pair ready for a provider
type Prompt struct {
	System string
	User   string
}

// Compose builds the prompts for one expert invocation. The expert template
// becomes the system prompt; the task sections become the user prompt.
func Compose(expert, task, mode, context string, files []string) (Prompt, error) {
	e, err := Lookup(expert)
	if err != nil {
		return Prompt{}, err
	}

	if context == "" {
		context = "No additional context provided."
	}

	fileSection := "No specific files provided."
	if len(files) > 0 {
		rendered, err := renderFiles(files)
		if err != nil {
			return Prompt{}, err
		}
		fileSection = rendered
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## TASK\n%s\n\n", task)
	fmt.Fprintf(&b, "## MODE\n%s\n\n", strings.ToUpper(mode))
	fmt.Fprintf(&b, "## CONTEXT\n%s\n\n", context)
	fmt.Fprintf(&b, "## FILES\n%s\n\n", fileSection)
	b.WriteString("---\n\n")
	fmt.Fprintf(&b, "Now respond as the %s expert following the response format specified above.\n", e.Name)

	return Prompt{System: e.Prompt, User: b.String()}, nil
}

// renderFiles prints the list as a JSON array indented by two spaces
func renderFiles(files []string) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(files); err != nil {
		return "", fmt.Errorf("failed to render files: %w", err)
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

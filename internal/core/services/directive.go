package services

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/chimeralabs/chimera/internal/core/domain"
)

var (
	reFencedBlock = regexp.MustCompile("(?s)```(?:json)?\\s*(.*?)\\s*```")
	reInlineCall  = regexp.MustCompile(`(?s)TOOL_CALL:\s*([A-Za-z_][A-Za-z0-9_-]*)\s*\((.*)\)`)
)

// DetectDirective scans a model reply for a tool-call directive. Two
// syntaxes are recognized: a raw or fenced JSON object
// {"tool": name, "parameters": {...}} and the inline form
// TOOL_CALL: name(args). A JSON reply counts only when it is an object with
// a string tool name and object-typed parameters; arrays, partial matches
// and anything else are a final answer, not a directive.
func DetectDirective(text string) (domain.ToolCallDirective, bool) {
	trimmed := strings.TrimSpace(text)

	if d, ok := directiveFromJSON(trimmed); ok {
		return d, true
	}
	if m := reFencedBlock.FindStringSubmatch(trimmed); m != nil {
		if d, ok := directiveFromJSON(strings.TrimSpace(m[1])); ok {
			return d, true
		}
	}
	if m := reInlineCall.FindStringSubmatch(trimmed); m != nil {
		return domain.ToolCallDirective{
			ToolName:     m[1],
			RawArguments: strings.TrimSpace(m[2]),
		}, true
	}
	return domain.ToolCallDirective{}, false
}

func directiveFromJSON(text string) (domain.ToolCallDirective, bool) {
	if !strings.HasPrefix(text, "{") {
		return domain.ToolCallDirective{}, false
	}
	var payload map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		return domain.ToolCallDirective{}, false
	}

	var name string
	if raw, ok := payload["tool"]; ok {
		if err := json.Unmarshal(raw, &name); err != nil || name == "" {
			return domain.ToolCallDirective{}, false
		}
	} else {
		return domain.ToolCallDirective{}, false
	}

	raw, ok := payload["parameters"]
	if !ok {
		return domain.ToolCallDirective{}, false
	}
	args := domain.ParsedArguments{}
	if err := json.Unmarshal(raw, &args); err != nil {
		return domain.ToolCallDirective{}, false
	}

	return domain.ToolCallDirective{ToolName: name, Arguments: args}, true
}

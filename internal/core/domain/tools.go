package domain

// ToolCallDirective is a tool request scanned out of raw model output.
// Consumed immediately by the reasoning loop, never persisted.
type ToolCallDirective struct {
	ToolName     string
	RawArguments string
	// Arguments is set when the directive arrived already structured
	// (the JSON object form); nil for the inline call form.
	Arguments ParsedArguments
}

// ParsedArguments is the structured key/value object recovered from a
// directive's argument text. Values are JSON-serializable: string, float64,
// bool, []interface{}, or nested map[string]interface{}.
type ParsedArguments map[string]interface{}

// Clone returns a shallow copy so repair never mutates the parser's output.
func (p ParsedArguments) Clone() ParsedArguments {
	if p == nil {
		return nil
	}
	out := make(ParsedArguments, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// ValidationResult reports argument validation. IsValid is false iff Errors
// is non-empty.
type ValidationResult struct {
	IsValid bool     `json:"is_valid"`
	Errors  []string `json:"errors,omitempty"`
}

// ToolContent is one content block of a tool-execution result.
type ToolContent struct {
	Type string `json:"type"` // always "text"
	Text string `json:"text"`
}

// ToolError describes a transport or remote failure. It is never set for
// "no results"; an empty Content slice expresses that.
type ToolError struct {
	Message string `json:"message"`
}

// ToolExecutionResult is the uniform shape every tool call resolves to.
// Content is always non-nil (possibly empty); Error is set only on
// transport/remote failure.
type ToolExecutionResult struct {
	Content []ToolContent `json:"content"`
	Error   *ToolError    `json:"error,omitempty"`
}

// Text concatenates the text blocks of the result.
func (r ToolExecutionResult) Text() string {
	switch len(r.Content) {
	case 0:
		return ""
	case 1:
		return r.Content[0].Text
	}
	out := ""
	for i, c := range r.Content {
		if i > 0 {
			out += "\n"
		}
		out += c.Text
	}
	return out
}

// Failed reports whether the execution hit a transport or remote failure.
func (r ToolExecutionResult) Failed() bool {
	return r.Error != nil
}

// TextResult wraps a plain string into the uniform result shape.
func TextResult(text string) ToolExecutionResult {
	return ToolExecutionResult{Content: []ToolContent{{Type: "text", Text: text}}}
}

// ErrorResult builds a failed result with empty content.
func ErrorResult(message string) ToolExecutionResult {
	return ToolExecutionResult{Content: []ToolContent{}, Error: &ToolError{Message: message}}
}

// ToolDescriptor is a tool advertised by the tool-execution service.
type ToolDescriptor struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema,omitempty"`
}

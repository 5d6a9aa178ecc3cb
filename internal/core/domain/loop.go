package domain

// ConversationTurn is one in-memory exchange turn inside a live chat
// session. Distinct from Message, which is the persisted record.
type ConversationTurn struct {
	Role MessageRole `json:"role"`
	Text string      `json:"text"`
}

// LoopStep records one iteration of the reasoning loop for observability
// and message history.
type LoopStep struct {
	ToolName     string           `json:"tool_name,omitempty"`
	RawArguments string           `json:"raw_arguments,omitempty"`
	Arguments    ParsedArguments  `json:"arguments,omitempty"`
	Observation  string           `json:"observation,omitempty"`
	IsFinal      bool             `json:"is_final"`
	FinalAnswer  string           `json:"final_answer,omitempty"`
	Fallback     FallbackDecision `json:"fallback,omitempty"`
}

// AgentResponse wraps the loop's terminal output.
type AgentResponse struct {
	Response string           `json:"response"`
	Steps    []LoopStep       `json:"steps,omitempty"`
	Video    *VideoSearchData `json:"video,omitempty"`
	// PersonaUpdated is set when the model rewrote its own persona via the
	// update_persona directive; Response then carries a system notice.
	PersonaUpdated string `json:"persona_updated,omitempty"`
}

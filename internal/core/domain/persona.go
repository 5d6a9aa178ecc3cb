package domain

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"
)

// PersonaID uniquely identifies a persona
type PersonaID string

// Persona defines an assistant personality. The active persona's system prompt
// heads every chat session; changing it tears the session down.
type Persona struct {
	ID           PersonaID `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	SystemPrompt string    `json:"system_prompt"`
	IsBuiltin    bool      `json:"is_builtin"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

var (
	ErrPersonaNotFound = errors.New("persona not found")
)

// NewPersonaID generates a compact random persona ID (pers-<12 hex>)
func NewPersonaID() PersonaID {
	b := make([]byte, 6)
	_, _ = rand.Read(b)
	return PersonaID("pers-" + hex.EncodeToString(b))
}

// DefaultPersonaPrompt is used when a request names no persona at all.
const DefaultPersonaPrompt = "You are a helpful AI assistant."

// BuiltinPersonas returns the default set of personas seeded on first run
func BuiltinPersonas() []Persona {
	now := time.Now()
	return []Persona{
		{
			ID:          "pers-jarvis",
			Name:        "Jarvis",
			Description: "General-purpose assistant. Formal but friendly, tool-forward.",
			SystemPrompt: `You are Jarvis, a highly intelligent and versatile AI assistant.
Your purpose is to help users with a wide range of tasks, from answering complex
questions to generating content and using tools to interact with the digital world.
You should be helpful, knowledgeable, and have a slightly formal, but friendly, tone.`,
			IsBuiltin: true,
			CreatedAt: now,
			UpdatedAt: now,
		},
		{
			ID:          "pers-researcher",
			Name:        "Researcher",
			Description: "Deep analysis and structured reasoning. Cites sources, explores nuance.",
			SystemPrompt: `You are a thorough, analytical research assistant.
Break complex topics into structured sections, cite sources explicitly,
and use tools to gather data before synthesizing an answer.`,
			IsBuiltin: true,
			CreatedAt: now,
			UpdatedAt: now,
		},
		{
			ID:          "pers-concise",
			Name:        "Concise",
			Description: "Short, direct answers. No preamble.",
			SystemPrompt: `You are a terse assistant. Answer in as few words as accuracy allows.
Use tools only when the task genuinely requires them.`,
			IsBuiltin: true,
			CreatedAt: now,
			UpdatedAt: now,
		},
	}
}

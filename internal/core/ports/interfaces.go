package ports

import (
	"context"

	"github.com/chimeralabs/chimera/internal/core/domain"
)

// LLMProvider abstracts the language-model service. The exchange is opaque:
// ordered history in, plain text out.
type LLMProvider interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

// ToolService abstracts the external tool-execution service. CallTool absorbs
// transport failures into the result's Error field; the returned error is
// reserved for request construction problems and context cancellation.
// The dispatcher performs no retries; retry policy belongs to the caller.
type ToolService interface {
	ListTools(ctx context.Context) ([]domain.ToolDescriptor, error)
	CallTool(ctx context.Context, name string, args domain.ParsedArguments) (domain.ToolExecutionResult, error)
}

// SearchBackend is the narrow interface the core sees for video search.
// How results are obtained (browser automation, official API, stub) is an
// adapter concern.
type SearchBackend interface {
	Search(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.SearchResult, error)
}

// WebSearcher is the escalation backend: a general web search scoped to known
// video-hosting domains, reduced to structured channel/link signals.
type WebSearcher interface {
	SearchStructured(ctx context.Context, query string) (domain.WebSearchContent, error)
}

// Repository abstracts persistent storage (DuckDB).
type Repository interface {
	// Conversations
	CreateConversation(ctx context.Context, conv domain.Conversation) error
	GetConversation(ctx context.Context, id domain.ConversationID) (domain.Conversation, error)
	ListConversations(ctx context.Context) ([]domain.Conversation, error)
	UpdateConversationTitle(ctx context.Context, id domain.ConversationID, title string) error
	DeleteConversation(ctx context.Context, id domain.ConversationID) error

	// Messages
	AddMessage(ctx context.Context, msg domain.Message) error
	ListMessages(ctx context.Context, convID domain.ConversationID, limit int) ([]domain.Message, error)

	// Personas
	CreatePersona(ctx context.Context, p domain.Persona) error
	GetPersona(ctx context.Context, id domain.PersonaID) (domain.Persona, error)
	ListPersonas(ctx context.Context) ([]domain.Persona, error)
	UpdatePersona(ctx context.Context, p domain.Persona) error
	DeletePersona(ctx context.Context, id domain.PersonaID) error

	// Notes
	SaveNote(ctx context.Context, n domain.Note) error
	ListNotes(ctx context.Context) ([]domain.Note, error)

	// Settings
	GetSetting(ctx context.Context, key string) (string, error)
	SaveSetting(ctx context.Context, key string, value string) error

	// Traces
	SaveTrace(ctx context.Context, trace *domain.Trace) error
	ListTraces(ctx context.Context, limit int) ([]domain.TraceSummary, error)
	GetTrace(ctx context.Context, id domain.TraceID) (*domain.Trace, error)
}

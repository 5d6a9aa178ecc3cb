package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/chimeralabs/chimera/internal/core/domain"
	"github.com/chimeralabs/chimera/internal/core/ports"
)

// ErrToolExecution marks an unrecoverable tool failure that terminated the
// reasoning loop.
var ErrToolExecution = errors.New("tool execution failed")

// apologyMessage is emitted when the loop exhausts its turn budget without
// the model ever producing a final answer.
const apologyMessage = "Sorry, I got stuck in a reasoning loop. Could you rephrase?"

// LoopConfig bounds one reasoning loop run.
type LoopConfig struct {
	MaxTurns        int
	CallTimeout     time.Duration
	SlowCallTimeout time.Duration
}

// DefaultLoopConfig mirrors the shipped bounds.
func DefaultLoopConfig() LoopConfig {
	return LoopConfig{
		MaxTurns:        10,
		CallTimeout:     15 * time.Second,
		SlowCallTimeout: 90 * time.Second,
	}
}

// personaReader is the minimal interface needed to fetch personas.
type personaReader interface {
	GetPersona(ctx context.Context, id domain.PersonaID) (domain.Persona, error)
}

// ReasoningService drives the multi-turn tool-use loop: it sends the prompt
// to the model, detects tool-call directives in the reply, runs them through
// parsing, validation and dispatch, folds results back into the next prompt,
// and terminates on a final answer or the turn bound.
type ReasoningService struct {
	logger    *slog.Logger
	llm       ports.LLMProvider
	toolsvc   ports.ToolService
	toolCtx   *ToolContext
	table     *ToolTable
	parser    *ArgumentParser
	validator *ArgumentValidator
	fallback  *FallbackEngine
	sessions  *SessionStore
	convs     *ConversationStore
	personas  personaReader
	tracer    *TraceCollector
	events    *EventBus
	cfg       LoopConfig
}

func NewReasoningService(
	logger *slog.Logger,
	llm ports.LLMProvider,
	toolsvc ports.ToolService,
	toolCtx *ToolContext,
	table *ToolTable,
	parser *ArgumentParser,
	validator *ArgumentValidator,
	fallback *FallbackEngine,
	sessions *SessionStore,
	convs *ConversationStore,
	personas personaReader,
	tracer *TraceCollector,
	events *EventBus,
	cfg LoopConfig,
) *ReasoningService {
	if cfg.MaxTurns <= 0 {
		cfg = DefaultLoopConfig()
	}
	return &ReasoningService{
		logger:    logger,
		llm:       llm,
		toolsvc:   toolsvc,
		toolCtx:   toolCtx,
		table:     table,
		parser:    parser,
		validator: validator,
		fallback:  fallback,
		sessions:  sessions,
		convs:     convs,
		personas:  personas,
		tracer:    tracer,
		events:    events,
		cfg:       cfg,
	}
}

// Chat runs one user request through the reasoning loop. If convID is empty
// a new conversation is created. The loop makes at most MaxTurns model calls
// and at most MaxTurns tool calls, so it always terminates.
func (s *ReasoningService) Chat(ctx context.Context, convID domain.ConversationID, message string, personaID *domain.PersonaID) (*domain.AgentResponse, domain.ConversationID, error) {
	s.logger.Info("starting reasoning loop", "message", message, "conversation_id", string(convID))

	traceName := "chat: " + message
	if len(traceName) > 80 {
		traceName = traceName[:80] + "..."
	}
	ctx, traceID, _ := s.tracer.StartTrace(ctx, traceName, map[string]string{
		"conversation_id": string(convID),
	})

	personaPrompt := s.resolvePersonaPrompt(ctx, personaID)

	tools, err := s.toolCtx.Tools(ctx)
	if err != nil {
		s.tracer.EndTrace(traceID, domain.SpanStatusError, err.Error())
		return nil, convID, fmt.Errorf("tool context: %w", err)
	}

	if convID == "" {
		title := message
		if len(title) > 50 {
			title = title[:50] + "..."
		}
		conv, err := s.convs.CreateConversation(ctx, title, personaID)
		if err != nil {
			s.tracer.EndTrace(traceID, domain.SpanStatusError, err.Error())
			return nil, "", fmt.Errorf("create conversation: %w", err)
		}
		convID = conv.ID
		s.logger.Info("auto-created conversation", "conversation_id", string(convID))
	}
	s.tracer.SetTraceConversation(traceID, string(convID), personaIDString(personaID))

	if err := s.convs.AddMessage(ctx, domain.Message{
		ID:             domain.NewMessageID(),
		ConversationID: convID,
		Role:           domain.RoleUser,
		Content:        message,
		CreatedAt:      time.Now(),
	}); err != nil {
		s.logger.Error("failed to persist user message", "error", err)
	}

	sess, fresh := s.sessions.Acquire(convID, personaPrompt)
	if fresh {
		s.logger.Info("chat session initialized",
			"conversation_id", string(convID),
			"persona_prompt", truncate(personaPrompt, 50))
	}
	systemPrompt := personaPrompt + "\n\n" + RenderToolPrompt(tools)

	var steps []domain.LoopStep
	currentPrompt := message

	for turn := 1; turn <= s.cfg.MaxTurns; turn++ {
		s.logger.Info("reasoning turn", "turn", turn)
		s.publish(convID, EventTypeTurn, fmt.Sprintf(`{"turn":%d}`, turn))

		prompt := composePrompt(systemPrompt, sess.History, currentPrompt)
		_, llmSpanID := s.tracer.StartSpan(ctx, fmt.Sprintf("llm.generate (turn %d)", turn), domain.SpanKindLLM, nil)
		s.tracer.SetSpanInput(llmSpanID, tail(prompt, 500))

		text, err := s.llm.GenerateText(ctx, prompt)
		if err != nil {
			s.tracer.EndSpan(llmSpanID, domain.SpanStatusError, "", err.Error())
			s.tracer.EndTrace(traceID, domain.SpanStatusError, err.Error())
			s.sessions.Destroy(convID)
			return nil, convID, fmt.Errorf("llm generate: %w", err)
		}
		text = strings.TrimSpace(text)
		s.tracer.EndSpan(llmSpanID, domain.SpanStatusOK, truncate(text, 500), "")

		sess.Append(domain.RoleUser, currentPrompt)
		sess.Append(domain.RoleAssistant, text)

		directive, isDirective := DetectDirective(text)
		if !isDirective {
			steps = append(steps, domain.LoopStep{IsFinal: true, FinalAnswer: text})
			resp := &domain.AgentResponse{Response: text, Steps: steps}
			s.finish(ctx, convID, traceID, resp)
			return resp, convID, nil
		}

		args := directive.Arguments
		if args == nil {
			args = s.parser.Parse(directive.ToolName, directive.RawArguments)
		}

		if directive.ToolName == "update_persona" {
			if newPrompt, _ := args["new_prompt"].(string); newPrompt != "" {
				s.sessions.Acquire(convID, newPrompt)
				resp := &domain.AgentResponse{
					Response:       "System: Persona has been updated for this session.",
					Steps:          steps,
					PersonaUpdated: newPrompt,
				}
				s.finish(ctx, convID, traceID, resp)
				return resp, convID, nil
			}
		}

		desc := s.toolCtx.Describe(directive.ToolName)
		if desc == nil {
			desc = &domain.ToolDescriptor{Name: directive.ToolName}
		}
		if vr := s.validator.Validate(desc, args); !vr.IsValid {
			s.logger.Debug("repairing tool arguments",
				"tool", directive.ToolName, "errors", vr.Errors)
			args = s.validator.Repair(desc, args)
		}

		step := domain.LoopStep{
			ToolName:     directive.ToolName,
			RawArguments: directive.RawArguments,
			Arguments:    args,
		}
		argsJSON, _ := json.Marshal(args)
		s.publish(convID, EventTypeToolCall,
			fmt.Sprintf(`{"tool":%q,"arguments":%s}`, directive.ToolName, argsJSON))

		// Search-classified tools route through the fallback pipeline and
		// terminate the loop with a composite payload.
		if s.table.IsSearchTool(directive.ToolName) {
			resp := s.runVideoSearch(ctx, convID, args, &step)
			steps = append(steps, step)
			resp.Steps = steps
			s.finish(ctx, convID, traceID, resp)
			return resp, convID, nil
		}

		observation, err := s.dispatch(ctx, directive.ToolName, args)
		if err != nil {
			step.Observation = err.Error()
			steps = append(steps, step)
			s.tracer.EndTrace(traceID, domain.SpanStatusError, err.Error())
			s.sessions.Destroy(convID)
			return nil, convID, err
		}
		step.Observation = observation
		steps = append(steps, step)

		currentPrompt = fmt.Sprintf(
			"Tool Result:\n%s\n\nBased on this result, provide a helpful response to the user's original request: %q",
			observation, message)
	}

	// Turn budget spent without a final answer.
	resp := &domain.AgentResponse{Response: apologyMessage, Steps: steps}
	s.finish(ctx, convID, traceID, resp)
	return resp, convID, nil
}

// dispatch runs one tool call, retrying once when the tool is idempotent.
// Write-type tools are never retried.
func (s *ReasoningService) dispatch(ctx context.Context, name string, args domain.ParsedArguments) (string, error) {
	observation, err := s.callTool(ctx, name, args)
	if err != nil && ctx.Err() == nil && s.table.IsIdempotent(name) {
		s.logger.Warn("retrying idempotent tool call", "tool", name, "error", err)
		observation, err = s.callTool(ctx, name, args)
	}
	return observation, err
}

// callTool runs a single attempt with the timeout the tool's speed class
// warrants.
func (s *ReasoningService) callTool(ctx context.Context, name string, args domain.ParsedArguments) (string, error) {
	timeout := s.cfg.CallTimeout
	if s.table.IsSlowTool(name) {
		timeout = s.cfg.SlowCallTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	spanCtx, spanID := s.tracer.StartSpan(ctx, "tool."+name, domain.SpanKindTool, map[string]string{"tool": name})
	_ = spanCtx

	result, err := s.toolsvc.CallTool(callCtx, name, args)
	if err != nil {
		s.tracer.EndSpan(spanID, domain.SpanStatusError, "", err.Error())
		return "", fmt.Errorf("%w: %s: %v", ErrToolExecution, name, err)
	}
	if result.Failed() {
		s.tracer.EndSpan(spanID, domain.SpanStatusError, "", result.Error.Message)
		return "", fmt.Errorf("%w: %s: %s", ErrToolExecution, name, result.Error.Message)
	}
	observation := result.Text()
	s.tracer.EndSpan(spanID, domain.SpanStatusOK, truncate(observation, 500), "")
	return observation, nil
}

// runVideoSearch routes a video_search directive through the fallback engine
// and wraps the composite result as the loop's terminal response.
func (s *ReasoningService) runVideoSearch(ctx context.Context, convID domain.ConversationID, args domain.ParsedArguments, step *domain.LoopStep) *domain.AgentResponse {
	query, _ := args["query"].(string)
	opts := searchOptionsFrom(args)

	fbCtx, spanID := s.tracer.StartSpan(ctx, "fallback.video_search", domain.SpanKindFallback, map[string]string{"query": query})
	composite, decision := s.fallback.Run(fbCtx, query, opts)
	s.tracer.EndSpan(spanID, domain.SpanStatusOK, string(decision), "")

	step.Fallback = decision
	s.publish(convID, EventTypeFallback, fmt.Sprintf(`{"decision":%q}`, decision))

	payload, err := json.Marshal(composite)
	if err != nil {
		s.logger.Error("failed to encode composite result", "error", err)
		payload = []byte(`{}`)
	}
	step.Observation = string(payload)

	return &domain.AgentResponse{
		Response: string(payload),
		Video:    &composite.Data,
	}
}

// finish persists the assistant message and closes out the trace.
func (s *ReasoningService) finish(ctx context.Context, convID domain.ConversationID, traceID domain.TraceID, resp *domain.AgentResponse) {
	if err := s.convs.AddMessage(ctx, domain.Message{
		ID:             domain.NewMessageID(),
		ConversationID: convID,
		Role:           domain.RoleAssistant,
		Content:        resp.Response,
		Steps:          resp.Steps,
		CreatedAt:      time.Now(),
	}); err != nil {
		s.logger.Error("failed to persist assistant message", "error", err)
	}
	s.publish(convID, EventTypeDone, `{"done":true}`)
	s.tracer.EndTrace(traceID, domain.SpanStatusOK, "")
}

func (s *ReasoningService) resolvePersonaPrompt(ctx context.Context, personaID *domain.PersonaID) string {
	if personaID == nil {
		return domain.DefaultPersonaPrompt
	}
	p, err := s.personas.GetPersona(ctx, *personaID)
	if err != nil {
		s.logger.Warn("persona not found, using default",
			"persona_id", string(*personaID), "error", err)
		return domain.DefaultPersonaPrompt
	}
	return p.SystemPrompt
}

func (s *ReasoningService) publish(convID domain.ConversationID, typ EventType, data string) {
	if s.events == nil {
		return
	}
	s.events.Publish(Event{
		ConversationID: convID,
		Type:           typ,
		Data:           data,
		Timestamp:      time.Now().UnixMilli(),
	})
}

func composePrompt(system string, history []domain.ConversationTurn, current string) string {
	var sb strings.Builder
	sb.WriteString(system)
	if len(history) > 0 {
		sb.WriteString("\n\nPrevious conversation:\n")
		for _, turn := range history {
			switch turn.Role {
			case domain.RoleUser:
				sb.WriteString("User: ")
			case domain.RoleAssistant:
				sb.WriteString("Assistant: ")
			default:
				sb.WriteString("System: ")
			}
			sb.WriteString(turn.Text)
			sb.WriteByte('\n')
		}
	}
	sb.WriteString("\n\nUser: ")
	sb.WriteString(current)
	sb.WriteString("\nAssistant:")
	return sb.String()
}

func searchOptionsFrom(args domain.ParsedArguments) domain.SearchOptions {
	opts := domain.SearchOptions{}
	if v, ok := args["maxResults"].(float64); ok && v > 0 {
		opts.MaxResults = int(v)
	}
	if v, ok := args["duration"].(string); ok {
		opts.Duration = v
	}
	if v, ok := args["sortBy"].(string); ok {
		opts.SortBy = v
	}
	return opts
}

func personaIDString(id *domain.PersonaID) string {
	if id == nil {
		return ""
	}
	return string(*id)
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}

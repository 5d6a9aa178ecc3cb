package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/chimeralabs/chimera/internal/core/domain"
	"github.com/chimeralabs/chimera/internal/core/ports"
)

// ErrToolContextTimeout is returned to waiters that gave up on an in-flight
// tool discovery before it finished. Distinct from the discovery failing.
var ErrToolContextTimeout = errors.New("timed out waiting for tool discovery")

const (
	toolLoadAttempts    = 3
	toolLoadBaseBackoff = 200 * time.Millisecond
	toolLoadMaxBackoff  = 2 * time.Second
	defaultWaitTimeout  = 10 * time.Second
)

// ToolContext is the process-wide cache of the tool-execution service's
// capability descriptions. The first caller triggers discovery; concurrent
// callers wait on that single in-flight load instead of duplicating it.
type ToolContext struct {
	logger      *slog.Logger
	svc         ports.ToolService
	waitTimeout time.Duration

	group singleflight.Group

	mu     sync.RWMutex
	tools  []domain.ToolDescriptor
	byName map[string]domain.ToolDescriptor
	loaded bool
}

func NewToolContext(logger *slog.Logger, svc ports.ToolService) *ToolContext {
	return &ToolContext{
		logger:      logger,
		svc:         svc,
		waitTimeout: defaultWaitTimeout,
		byName:      make(map[string]domain.ToolDescriptor),
	}
}

// Tools returns the cached tool descriptors, loading them on first use.
// Waiters are bounded: if discovery is still in flight after the wait
// timeout or the caller's context ends, they fail without cancelling the
// load itself.
func (tc *ToolContext) Tools(ctx context.Context) ([]domain.ToolDescriptor, error) {
	tc.mu.RLock()
	if tc.loaded {
		tools := tc.tools
		tc.mu.RUnlock()
		return tools, nil
	}
	tc.mu.RUnlock()

	ch := tc.group.DoChan("load", func() (interface{}, error) {
		return tc.load()
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]domain.ToolDescriptor), nil
	case <-time.After(tc.waitTimeout):
		return nil, ErrToolContextTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Describe looks up one cached descriptor by name. Returns nil when the
// cache is cold or the tool is unknown.
func (tc *ToolContext) Describe(name string) *domain.ToolDescriptor {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	if desc, ok := tc.byName[name]; ok {
		return &desc
	}
	return nil
}

// Invalidate drops the cache so the next caller re-runs discovery.
func (tc *ToolContext) Invalidate() {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.loaded = false
	tc.tools = nil
	tc.byName = make(map[string]domain.ToolDescriptor)
}

// load runs discovery with capped exponential backoff. Discovery is a pure
// read so retrying it is always safe.
func (tc *ToolContext) load() ([]domain.ToolDescriptor, error) {
	backoff := toolLoadBaseBackoff
	var lastErr error
	for attempt := 1; attempt <= toolLoadAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), tc.waitTimeout)
		tools, err := tc.svc.ListTools(ctx)
		cancel()
		if err == nil {
			tc.mu.Lock()
			tc.tools = tools
			tc.byName = make(map[string]domain.ToolDescriptor, len(tools))
			for _, t := range tools {
				tc.byName[t.Name] = t
			}
			tc.loaded = true
			tc.mu.Unlock()
			tc.logger.Info("tool discovery complete", "tools", len(tools))
			return tools, nil
		}
		lastErr = err
		tc.logger.Warn("tool discovery attempt failed",
			"attempt", attempt, "error", err)
		if attempt < toolLoadAttempts {
			time.Sleep(backoff)
			backoff *= 2
			if backoff > toolLoadMaxBackoff {
				backoff = toolLoadMaxBackoff
			}
		}
	}
	return nil, fmt.Errorf("tool discovery failed after %d attempts: %w", toolLoadAttempts, lastErr)
}

// RenderToolPrompt formats the tool catalog for the model's system prompt,
// including the directive syntax the reasoning loop recognizes.
func RenderToolPrompt(tools []domain.ToolDescriptor) string {
	var b strings.Builder
	b.WriteString("You have access to the following tools:\n\n")
	for _, t := range tools {
		fmt.Fprintf(&b, "- %s: %s\n", t.Name, t.Description)
		if len(t.InputSchema) > 0 {
			if schema, err := json.Marshal(t.InputSchema); err == nil {
				fmt.Fprintf(&b, "  input schema: %s\n", schema)
			}
		}
	}
	b.WriteString("\nTo use a tool, reply with exactly one line of the form:\n")
	b.WriteString("TOOL_CALL: tool_name(key: \"value\", ...)\n")
	b.WriteString("or a JSON object {\"tool\": \"tool_name\", \"parameters\": {...}}.\n")
	b.WriteString("If no tool is needed, answer the user directly.\n")
	return b.String()
}

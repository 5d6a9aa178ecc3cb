package services

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chimeralabs/chimera/internal/core/domain"
)

type stubToolService struct {
	tools    []domain.ToolDescriptor
	err      error
	delay    time.Duration
	listCall atomic.Int32
}

func (s *stubToolService) ListTools(ctx context.Context) ([]domain.ToolDescriptor, error) {
	s.listCall.Add(1)
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.tools, nil
}

func (s *stubToolService) CallTool(context.Context, string, domain.ParsedArguments) (domain.ToolExecutionResult, error) {
	return domain.ToolExecutionResult{}, nil
}

func newTestToolContext(svc *stubToolService) *ToolContext {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	return NewToolContext(logger, svc)
}

func TestToolContext_LoadsOnce(t *testing.T) {
	svc := &stubToolService{tools: []domain.ToolDescriptor{{Name: "calculator"}}}
	tc := newTestToolContext(svc)

	tools, err := tc.Tools(context.Background())
	require.NoError(t, err)
	assert.Len(t, tools, 1)

	_, err = tc.Tools(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), svc.listCall.Load())
}

func TestToolContext_ConcurrentCallersShareOneLoad(t *testing.T) {
	svc := &stubToolService{
		tools: []domain.ToolDescriptor{{Name: "calculator"}},
		delay: 50 * time.Millisecond,
	}
	tc := newTestToolContext(svc)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tools, err := tc.Tools(context.Background())
			assert.NoError(t, err)
			assert.Len(t, tools, 1)
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), svc.listCall.Load())
}

func TestToolContext_WaiterTimeoutIsDistinctFromLoadFailure(t *testing.T) {
	svc := &stubToolService{
		tools: []domain.ToolDescriptor{{Name: "calculator"}},
		delay: 200 * time.Millisecond,
	}
	tc := newTestToolContext(svc)
	tc.waitTimeout = 20 * time.Millisecond

	_, err := tc.Tools(context.Background())
	assert.ErrorIs(t, err, ErrToolContextTimeout)
}

func TestToolContext_LoadFailurePropagates(t *testing.T) {
	svc := &stubToolService{err: errors.New("connection refused")}
	tc := newTestToolContext(svc)

	_, err := tc.Tools(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrToolContextTimeout)
	assert.Contains(t, err.Error(), "connection refused")
	// All retry attempts were spent.
	assert.Equal(t, int32(toolLoadAttempts), svc.listCall.Load())
}

func TestToolContext_Describe(t *testing.T) {
	svc := &stubToolService{tools: []domain.ToolDescriptor{
		{Name: "calculator", Description: "evaluates expressions"},
	}}
	tc := newTestToolContext(svc)

	_, err := tc.Tools(context.Background())
	require.NoError(t, err)

	desc := tc.Describe("calculator")
	require.NotNil(t, desc)
	assert.Equal(t, "evaluates expressions", desc.Description)
	assert.Nil(t, tc.Describe("unknown"))
}

func TestToolContext_InvalidateForcesReload(t *testing.T) {
	svc := &stubToolService{tools: []domain.ToolDescriptor{{Name: "calculator"}}}
	tc := newTestToolContext(svc)

	_, err := tc.Tools(context.Background())
	require.NoError(t, err)
	tc.Invalidate()
	_, err = tc.Tools(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), svc.listCall.Load())
}

func TestRenderToolPrompt(t *testing.T) {
	prompt := RenderToolPrompt([]domain.ToolDescriptor{
		{Name: "calculator", Description: "evaluates expressions"},
	})
	assert.Contains(t, prompt, "calculator")
	assert.Contains(t, prompt, "TOOL_CALL:")
}

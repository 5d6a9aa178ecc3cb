package toolsvc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/chimeralabs/chimera/internal/core/domain"
)

// Client talks to the external tool-execution service over HTTP. Transport
// and remote failures of CallTool are absorbed into the result's Error field
// so the reasoning loop sees one uniform shape; the hard error return is
// reserved for context cancellation and request construction.
type Client struct {
	baseURL string
	logger  *slog.Logger
	client  *http.Client
}

func NewClient(logger *slog.Logger, baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		logger:  logger,
		client:  &http.Client{Timeout: timeout},
	}
}

type listToolsResponse struct {
	Tools []domain.ToolDescriptor `json:"tools"`
}

// ListTools fetches the service's tool catalog.
func (c *Client) ListTools(ctx context.Context) ([]domain.ToolDescriptor, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/tools", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tool service connection failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tool service returned status: %d", resp.StatusCode)
	}

	var payload listToolsResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode tool list: %w", err)
	}
	return payload.Tools, nil
}

type callToolRequest struct {
	Name      string                 `json:"name"`
	Arguments domain.ParsedArguments `json:"arguments"`
	RequestID string                 `json:"request_id,omitempty"`
}

// CallTool executes one tool. One network round trip, no retries: whether a
// retry is semantically safe is the caller's call.
func (c *Client) CallTool(ctx context.Context, name string, args domain.ParsedArguments) (domain.ToolExecutionResult, error) {
	requestID := uuid.New().String()
	body, err := json.Marshal(callToolRequest{Name: name, Arguments: args, RequestID: requestID})
	if err != nil {
		return domain.ToolExecutionResult{}, fmt.Errorf("encode call request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/call-tool", bytes.NewReader(body))
	if err != nil {
		return domain.ToolExecutionResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return domain.ToolExecutionResult{}, ctx.Err()
		}
		c.logger.Warn("tool call transport failure",
			"tool", name, "request_id", requestID, "error", err)
		return domain.ErrorResult(fmt.Sprintf("tool service unreachable: %v", err)), nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("tool call rejected",
			"tool", name, "request_id", requestID, "status", resp.StatusCode)
		return domain.ErrorResult(fmt.Sprintf("tool service returned status %d", resp.StatusCode)), nil
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.ErrorResult(fmt.Sprintf("read tool response: %v", err)), nil
	}

	var result domain.ToolExecutionResult
	if err := json.Unmarshal(raw, &result); err != nil {
		c.logger.Warn("malformed tool response",
			"tool", name, "request_id", requestID, "error", err)
		return domain.ErrorResult("tool service returned a malformed response"), nil
	}
	if result.Content == nil {
		result.Content = []domain.ToolContent{}
	}
	return result, nil
}

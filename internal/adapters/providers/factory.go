package providers

import (
	"fmt"
	"os"
	"strings"

	"github.com/chimeralabs/chimera/internal/adapters/llm"
	"github.com/chimeralabs/chimera/internal/core/domain"
	"github.com/chimeralabs/chimera/internal/core/ports"
)

// Build creates the LLM provider from app configuration.
// It hides local/remote/gemini provider selection from callers.
func Build(config *domain.AppConfig) (ports.LLMProvider, error) {
	if config == nil {
		config = domain.DefaultConfig()
	}
	return buildLLMProvider(config)
}

func buildLLMProvider(config *domain.AppConfig) (ports.LLMProvider, error) {
	cfg := config.Providers.LLM
	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	switch mode {
	case "", "local":
		baseURL := strings.TrimSpace(os.Getenv("OLLAMA_HOST"))
		if baseURL == "" {
			baseURL = strings.TrimSpace(cfg.LocalURL)
		}
		baseURL = normalizeOllamaBaseURL(baseURL)
		return llm.NewOllamaProvider(baseURL, strings.TrimSpace(cfg.DefaultModel)), nil
	case "gemini":
		apiKey := strings.TrimSpace(cfg.APIKey)
		if apiKey == "" {
			apiKey = strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))
		}
		if apiKey == "" {
			return nil, fmt.Errorf("llm api_key is required when mode=gemini")
		}
		return llm.NewGeminiProvider(
			strings.TrimSpace(cfg.RemoteURL),
			apiKey,
			strings.TrimSpace(cfg.DefaultModel),
		), nil
	case "remote":
		if strings.TrimSpace(cfg.RemoteURL) == "" {
			return nil, fmt.Errorf("llm remote_url is required when mode=remote")
		}
		return llm.NewOpenAIProvider(
			strings.TrimSpace(cfg.RemoteURL),
			strings.TrimSpace(cfg.APIKey),
			strings.TrimSpace(cfg.DefaultModel),
		), nil
	default:
		return nil, fmt.Errorf("unsupported llm provider mode: %s", cfg.Mode)
	}
}

func normalizeOllamaBaseURL(baseURL string) string {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if strings.HasSuffix(trimmed, "/v1") {
		return strings.TrimSuffix(trimmed, "/v1")
	}
	return trimmed
}

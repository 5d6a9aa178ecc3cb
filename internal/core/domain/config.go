package domain

import "errors"

// ErrSettingNotFound is returned when a settings key has never been saved.
var ErrSettingNotFound = errors.New("setting not found")

// ProviderConfig holds configuration for all AI providers
type ProviderConfig struct {
	LLM LLMProviderConfig `json:"llm"`
}

// LLMProviderConfig configures the LLM provider
type LLMProviderConfig struct {
	Mode         string `json:"mode"`          // "gemini", "local" or "remote"
	LocalURL     string `json:"local_url"`     // "http://localhost:11434"
	RemoteURL    string `json:"remote_url"`    // "https://api.openai.com/v1"
	APIKey       string `json:"api_key"`       // Encrypted in storage
	DefaultModel string `json:"default_model"` // "gemini-1.5-flash" or "gpt-4"
}

// ToolServiceConfig configures the external tool-execution service.
type ToolServiceConfig struct {
	BaseURL string `json:"base_url"` // "http://localhost:8080"
	// CallTimeoutSeconds bounds one tool dispatch round trip.
	CallTimeoutSeconds int `json:"call_timeout_seconds"`
	// SlowCallTimeoutSeconds applies to tools known to be slow
	// (browser-automation-backed search).
	SlowCallTimeoutSeconds int `json:"slow_call_timeout_seconds"`
}

// BrowserConfig configures the browser-automation search backend.
type BrowserConfig struct {
	Mode        string `json:"mode"`         // "launch", "remote" or "docker"
	DebuggerURL string `json:"debugger_url"` // for mode=remote
	Headless    bool   `json:"headless"`
	// Image is the container image used when mode=docker.
	Image string `json:"image"`
}

// AppConfig is the main application configuration
type AppConfig struct {
	Providers   ProviderConfig    `json:"providers"`
	ToolService ToolServiceConfig `json:"tool_service"`
	Browser     BrowserConfig     `json:"browser"`
	Fallback    FallbackConfig    `json:"fallback"`
}

// DefaultConfig returns safe defaults
func DefaultConfig() *AppConfig {
	return &AppConfig{
		Providers: ProviderConfig{
			LLM: LLMProviderConfig{
				Mode:         "local",
				LocalURL:     "http://localhost:11434",
				DefaultModel: "gemma3:12b",
			},
		},
		ToolService: ToolServiceConfig{
			BaseURL:                "http://localhost:8080",
			CallTimeoutSeconds:     15,
			SlowCallTimeoutSeconds: 90,
		},
		Browser: BrowserConfig{
			Mode:     "launch",
			Headless: true,
			Image:    "chromedp/headless-shell:latest",
		},
		Fallback: DefaultFallbackConfig(),
	}
}

package config

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/chimeralabs/chimera/internal/core/domain"
)

const configSettingKey = "app_config"

// SettingsRepository is the minimal DB interface for settings persistence.
type SettingsRepository interface {
	GetSetting(ctx context.Context, key string) (string, error)
	SaveSetting(ctx context.Context, key string, value string) error
}

// OnChangeFunc is called when settings are updated.
type OnChangeFunc func(cfg *domain.AppConfig)

// SettingsStore manages persistent settings with encrypted secrets.
// Secrets are encrypted at rest and masked on read.
type SettingsStore struct {
	mu       sync.RWMutex
	logger   *slog.Logger
	secret   *SecretKey
	repo     SettingsRepository
	config   *domain.AppConfig
	onChange []OnChangeFunc
}

// NewSettingsStore creates a store that loads settings from the DB,
// falling back to defaults on first run.
func NewSettingsStore(logger *slog.Logger, repo SettingsRepository, secret *SecretKey) (*SettingsStore, error) {
	store := &SettingsStore{
		logger: logger,
		secret: secret,
		repo:   repo,
	}

	ctx := context.Background()
	cfg, err := store.loadFromDB(ctx)
	if err != nil {
		logger.Warn("no saved settings found, using defaults", "error", err)
		cfg = domain.DefaultConfig()
		if err := store.saveToDB(ctx, cfg); err != nil {
			return nil, fmt.Errorf("failed to save default config: %w", err)
		}
	}

	store.config = cfg
	return store, nil
}

// OnChange registers a callback for when settings are updated.
// Used by lifecycle to hot-reload providers.
func (s *SettingsStore) OnChange(fn OnChangeFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = append(s.onChange, fn)
}

// GetConfig returns the current config with decrypted secrets.
func (s *SettingsStore) GetConfig() *domain.AppConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cp := *s.config
	return &cp
}

// GetMaskedConfig returns config safe for API response (secrets masked).
func (s *SettingsStore) GetMaskedConfig() *domain.AppConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cp := *s.config
	cp.Providers.LLM.APIKey = MaskSecret(s.config.Providers.LLM.APIKey)
	return &cp
}

// UpdateConfig validates, encrypts secrets, persists, and triggers onChange
// callbacks. If the incoming API key is empty or masked, the stored key is
// kept.
func (s *SettingsStore) UpdateConfig(ctx context.Context, update *domain.AppConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if update.Providers.LLM.APIKey == "" || isMasked(update.Providers.LLM.APIKey) {
		update.Providers.LLM.APIKey = s.config.Providers.LLM.APIKey
	}

	if update.Providers.LLM.Mode == "remote" {
		if update.Providers.LLM.RemoteURL == "" {
			return fmt.Errorf("LLM remote_url is required when mode=remote")
		}
		if update.Providers.LLM.APIKey == "" {
			return fmt.Errorf("LLM api_key is required when mode=remote")
		}
	}
	if update.Providers.LLM.Mode == "gemini" && update.Providers.LLM.APIKey == "" {
		return fmt.Errorf("LLM api_key is required when mode=gemini")
	}

	if update.Providers.LLM.Mode == "" {
		update.Providers.LLM.Mode = "local"
	}
	if update.ToolService.BaseURL == "" {
		update.ToolService = s.config.ToolService
	}
	if update.Browser.Mode == "" {
		update.Browser = s.config.Browser
	}
	if update.Fallback.RelevanceThreshold == 0 {
		update.Fallback = s.config.Fallback
	}

	if err := s.saveToDB(ctx, update); err != nil {
		return err
	}

	s.config = update
	s.logger.Info("settings updated",
		"llm_mode", update.Providers.LLM.Mode,
		"browser_mode", update.Browser.Mode,
	)

	for _, fn := range s.onChange {
		fn(update)
	}

	return nil
}

func (s *SettingsStore) loadFromDB(ctx context.Context) (*domain.AppConfig, error) {
	raw, err := s.repo.GetSetting(ctx, configSettingKey)
	if err != nil {
		return nil, err
	}

	var stored storedConfig
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	cfg := &domain.AppConfig{
		Providers: domain.ProviderConfig{
			LLM: domain.LLMProviderConfig{
				Mode:         stored.LLM.Mode,
				LocalURL:     stored.LLM.LocalURL,
				RemoteURL:    stored.LLM.RemoteURL,
				DefaultModel: stored.LLM.DefaultModel,
			},
		},
		ToolService: stored.ToolService,
		Browser:     stored.Browser,
		Fallback:    stored.Fallback,
	}

	if stored.LLM.EncryptedAPIKey != "" {
		key, err := s.secret.Decrypt(stored.LLM.EncryptedAPIKey)
		if err != nil {
			s.logger.Warn("failed to decrypt LLM API key", "error", err)
		} else {
			cfg.Providers.LLM.APIKey = key
		}
	}

	return cfg, nil
}

func (s *SettingsStore) saveToDB(ctx context.Context, cfg *domain.AppConfig) error {
	stored := storedConfig{
		LLM: storedLLMConfig{
			Mode:         cfg.Providers.LLM.Mode,
			LocalURL:     cfg.Providers.LLM.LocalURL,
			RemoteURL:    cfg.Providers.LLM.RemoteURL,
			DefaultModel: cfg.Providers.LLM.DefaultModel,
		},
		ToolService: cfg.ToolService,
		Browser:     cfg.Browser,
		Fallback:    cfg.Fallback,
	}

	if cfg.Providers.LLM.APIKey != "" {
		enc, err := s.secret.Encrypt(cfg.Providers.LLM.APIKey)
		if err != nil {
			return fmt.Errorf("encrypt LLM API key: %w", err)
		}
		stored.LLM.EncryptedAPIKey = enc
	}

	raw, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	return s.repo.SaveSetting(ctx, configSettingKey, string(raw))
}

// storedConfig is the DB representation with encrypted fields
type storedConfig struct {
	LLM         storedLLMConfig          `json:"llm"`
	ToolService domain.ToolServiceConfig `json:"tool_service"`
	Browser     domain.BrowserConfig     `json:"browser"`
	Fallback    domain.FallbackConfig    `json:"fallback"`
}

type storedLLMConfig struct {
	Mode            string `json:"mode"`
	LocalURL        string `json:"local_url"`
	RemoteURL       string `json:"remote_url"`
	EncryptedAPIKey string `json:"encrypted_api_key,omitempty"`
	DefaultModel    string `json:"default_model"`
}

func isMasked(s string) bool {
	return len(s) >= 4 && s[:4] == "****"
}

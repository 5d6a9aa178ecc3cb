// Package browser implements the video search backend with browser
// automation. A shared Chromium instance is launched (or attached to)
// lazily and reused across searches.
package browser

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"

	"github.com/chimeralabs/chimera/internal/core/domain"
)

// ControlURLResolver produces a DevTools control URL for mode=docker,
// where the browser runs in a provisioned container.
type ControlURLResolver func(ctx context.Context) (string, error)

// Manager owns the browser connection lifecycle.
type Manager struct {
	cfg     domain.BrowserConfig
	logger  *slog.Logger
	resolve ControlURLResolver

	mu       sync.Mutex
	browser  *rod.Browser
	launched *launcher.Launcher
}

func NewManager(cfg domain.BrowserConfig, logger *slog.Logger, resolve ControlURLResolver) *Manager {
	return &Manager{
		cfg:     cfg,
		logger:  logger,
		resolve: resolve,
	}
}

// Browser returns a connected browser, reusing the previous connection
// when it is still alive.
func (m *Manager) Browser(ctx context.Context) (*rod.Browser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.browser != nil {
		if _, err := m.browser.Version(); err == nil {
			return m.browser, nil
		}
		m.logger.Warn("stale browser connection, reconnecting")
		_ = m.browser.Close()
		m.browser = nil
	}

	controlURL, err := m.controlURLLocked(ctx)
	if err != nil {
		return nil, err
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect to browser: %w", err)
	}

	m.browser = browser
	return browser, nil
}

func (m *Manager) controlURLLocked(ctx context.Context) (string, error) {
	mode := strings.ToLower(strings.TrimSpace(m.cfg.Mode))
	switch mode {
	case "", "launch":
		l := launcher.New().Headless(m.cfg.Headless)
		url, err := l.Launch()
		if err != nil {
			return "", fmt.Errorf("launch browser: %w", err)
		}
		m.launched = l
		return url, nil
	case "remote":
		if strings.TrimSpace(m.cfg.DebuggerURL) == "" {
			return "", fmt.Errorf("browser debugger_url is required when mode=remote")
		}
		return m.cfg.DebuggerURL, nil
	case "docker":
		if m.resolve == nil {
			return "", fmt.Errorf("browser mode=docker requires a container provisioner")
		}
		return m.resolve(ctx)
	default:
		return "", fmt.Errorf("unsupported browser mode: %s", m.cfg.Mode)
	}
}

// Close tears down the connection and any process we launched.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var err error
	if m.browser != nil {
		err = m.browser.Close()
		m.browser = nil
	}
	if m.launched != nil {
		m.launched.Cleanup()
		m.launched = nil
	}
	return err
}

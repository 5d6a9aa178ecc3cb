package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/cors"
	"golang.org/x/sync/errgroup"

	"github.com/chimeralabs/chimera/internal/adapters/browser"
	"github.com/chimeralabs/chimera/internal/adapters/docker"
	"github.com/chimeralabs/chimera/internal/adapters/duckdb"
	"github.com/chimeralabs/chimera/internal/adapters/htmlsearch"
	"github.com/chimeralabs/chimera/internal/adapters/providers"
	"github.com/chimeralabs/chimera/internal/adapters/toolsvc"
	"github.com/chimeralabs/chimera/internal/adapters/websearch"
	appconfig "github.com/chimeralabs/chimera/internal/config"
	"github.com/chimeralabs/chimera/internal/core/domain"
	"github.com/chimeralabs/chimera/internal/core/services"
	"github.com/chimeralabs/chimera/pkg/kernel"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger.Info("starting chimera kernel")

	if err := run(logger); err != nil {
		logger.Error("kernel startup failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		logger.Info("shutting down")
		cancel()
	}()

	dbPath := os.Getenv("CHIMERA_DB_PATH")
	if dbPath == "" {
		dbPath = "chimera.db"
	}

	repo, err := duckdb.NewRepository(dbPath)
	if err != nil {
		return fmt.Errorf("failed to init repository: %w", err)
	}
	defer repo.Close()

	secretKey, err := appconfig.NewSecretKey()
	if err != nil {
		return fmt.Errorf("failed to init secret key: %w", err)
	}

	settingsStore, err := appconfig.NewSettingsStore(logger, repo, secretKey)
	if err != nil {
		return fmt.Errorf("failed to init settings store: %w", err)
	}

	config := settingsStore.GetConfig()

	llmProvider, err := providers.Build(config)
	if err != nil {
		return fmt.Errorf("failed to build llm provider from config: %w", err)
	}

	// Browser search backend. In docker mode a headless container is
	// provisioned lazily on first search.
	var resolve browser.ControlURLResolver
	if strings.EqualFold(config.Browser.Mode, "docker") {
		provisioner, err := docker.NewProvisioner(config.Browser.Image, logger)
		if err != nil {
			return fmt.Errorf("failed to init docker provisioner: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := provisioner.Shutdown(shutdownCtx); err != nil {
				logger.Warn("browser container cleanup failed", "error", err)
			}
		}()
		resolve = provisioner.ControlURL
	}
	browserMgr := browser.NewManager(config.Browser, logger, resolve)
	defer browserMgr.Close()
	videoSearch := browser.NewSearcher(browserMgr, logger, htmlsearch.NewSearcher(logger))

	webSearch := websearch.NewSearcher(llmProvider, logger, config.Fallback.MaxAdditionalLinks)

	toolClient := toolsvc.NewClient(logger, config.ToolService.BaseURL,
		time.Duration(config.ToolService.SlowCallTimeoutSeconds)*time.Second)

	// Core services
	eventBus := services.NewEventBus(logger)
	tracer := services.NewTraceCollector(logger, eventBus, repo)
	convStore := services.NewConversationStore(repo, 64)
	sessions := services.NewSessionStore()

	table := services.NewToolTable()
	parser := services.NewArgumentParser(logger, table)
	validator := services.NewArgumentValidator(logger, table)
	toolCtx := services.NewToolContext(logger, toolClient)

	fallbackEngine := services.NewFallbackEngine(
		logger,
		config.Fallback,
		services.NewIntentClassifier(),
		services.NewRelevanceScorer(),
		videoSearch,
		webSearch,
	)

	loopCfg := services.DefaultLoopConfig()
	if config.ToolService.CallTimeoutSeconds > 0 {
		loopCfg.CallTimeout = time.Duration(config.ToolService.CallTimeoutSeconds) * time.Second
	}
	if config.ToolService.SlowCallTimeoutSeconds > 0 {
		loopCfg.SlowCallTimeout = time.Duration(config.ToolService.SlowCallTimeoutSeconds) * time.Second
	}

	agent := services.NewReasoningService(
		logger,
		llmProvider,
		toolClient,
		toolCtx,
		table,
		parser,
		validator,
		fallbackEngine,
		sessions,
		convStore,
		repo,
		tracer,
		eventBus,
		loopCfg,
	)

	// Provider changes take effect on restart; the tool catalog is
	// refetched on the next request after a settings change.
	settingsStore.OnChange(func(cfg *domain.AppConfig) {
		logger.Info("settings changed", "llm_mode", cfg.Providers.LLM.Mode)
		toolCtx.Invalidate()
	})

	apiServer := kernel.NewServer(logger, agent, eventBus, settingsStore, convStore, tracer, toolCtx, repo)

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:5174"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	})

	httpServer := &http.Server{
		Addr:    ":8090",
		Handler: c.Handler(apiServer.Handler()),
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting api server", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("api server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// Metaforge server: syncs tournament coverage into the normalized store
// and serves the analytics API over it.
package main

import (
	"context"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/metaforge/metaforge/pkg/agent"
	"github.com/metaforge/metaforge/pkg/analytics"
	"github.com/metaforge/metaforge/pkg/api"
	"github.com/metaforge/metaforge/pkg/config"
	"github.com/metaforge/metaforge/pkg/epoch"
	"github.com/metaforge/metaforge/pkg/fetch"
	"github.com/metaforge/metaforge/pkg/llm"
	"github.com/metaforge/metaforge/pkg/platform"
	"github.com/metaforge/metaforge/pkg/storage"
	"github.com/metaforge/metaforge/pkg/syncer"
	"github.com/metaforge/metaforge/pkg/version"
)

func main() {
	configPath := flag.String("config", "./config.toml", "Path to the TOML configuration file")
	flag.Parse()

	slog.Info("Starting metaforge", "version", version.Full())

	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file, continuing with existing environment")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	slog.SetLogLoggerLevel(cfg.SlogLevel())

	store, err := storage.New(cfg.DataDir)
	if err != nil {
		slog.Error("Failed to open data directory", "dir", cfg.DataDir, "error", err)
		os.Exit(1)
	}

	significant, err := store.ReadSignificantEvents()
	if err != nil {
		slog.Error("Failed to read significant events", "error", err)
		os.Exit(1)
	}
	mapper, err := epoch.Build(significant)
	if err != nil {
		slog.Error("Failed to build epoch timeline", "error", err)
		os.Exit(1)
	}
	holder := epoch.NewHolder(mapper)
	slog.Info("Epoch timeline loaded", "epochs", mapper.Len())

	backend, err := newBackend(cfg.AI)
	if err != nil {
		slog.Error("Failed to initialize LLM backend", "error", err)
		os.Exit(1)
	}
	slog.Info("LLM backend ready", "backend", backend.Name())

	fetcher := fetch.New(store.RawDir(), cfg.Fetch)
	client := platform.New(cfg.Sources.PlatformURL, cfg.Sources.MirrorURL, fetcher,
		&http.Client{Timeout: cfg.Fetch.RequestTimeout()})
	if cfg.Sources.PlatformURL == "" {
		slog.Warn("sources.platform_url is empty, result syncing will fail until configured")
	}

	policy := agent.PolicyFromConfig(cfg.AI)
	engine := analytics.New(store, holder, cfg.Analytics)
	orch := syncer.New(syncer.Options{
		Store:      store,
		Platform:   client,
		Fetcher:    fetcher,
		Balance:    agent.NewBalanceWatcher(backend, policy),
		Normalizer: agent.NewListNormalizer(backend, policy),
		Epochs:     holder,
		BalanceURL: cfg.Sources.BalanceURL,
	})
	orch.OnProgress(func(p syncer.Progress) {
		// A finished run changed the store; the next query recomputes.
		switch p.Status {
		case syncer.StatusCompleted, syncer.StatusFailed, syncer.StatusCancelled:
			engine.Invalidate()
		}
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := api.New(cfg.Server, store, engine, orch, holder, backend)
	if err := server.Run(ctx); err != nil {
		slog.Error("HTTP server error", "error", err)
	}

	orch.Cancel()
	orch.Wait()
	slog.Info("Shutdown complete")
}

// newBackend selects the configured LLM backend.
func newBackend(cfg config.AIConfig) (llm.Backend, error) {
	if cfg.Backend == "openai-compat" {
		return llm.NewOpenAICompatBackend(cfg.BaseURL, cfg.Model, cfg.Timeout()), nil
	}
	return llm.NewAnthropicBackend(cfg.Model)
}

// Command neuro is the process entrypoint: it loads configuration, wires
// the fast/heavy model providers, the agent state store, the tool
// registry, the dual-model orchestrator, RAPTOR (if enabled), the
// planning engine, and the router, then drives a simple REPL against
// them. This is the "external CLI collaborator" SPEC_FULL.md's
// components assume but deliberately don't implement themselves.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"neuro/internal/agentstate"
	"neuro/internal/config"
	"neuro/internal/llmprovider"
	"neuro/internal/logging"
	"neuro/internal/metrics"
	"neuro/internal/orchestrator"
	"neuro/internal/planner"
	"neuro/internal/progress"
	"neuro/internal/raptor"
	"neuro/internal/router"
	"neuro/internal/toolregistry"

	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logging.Configure(logLevel(cfg.Logging.Level), cfg.Logging.Format, os.Stderr)
	log := logging.NewComponentLogger("main")

	workingDir, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to resolve working directory: %v\n", err)
		os.Exit(1)
	}

	app, err := buildApp(cfg, workingDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	var shutdownOnce sync.Once
	shutdown := func() {
		shutdownOnce.Do(func() {
			cancel()
			app.shutdown()
		})
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(quit)
	go func() {
		<-quit
		log.Info("shutting down")
		shutdown()
		os.Exit(130)
	}()
	defer shutdown()

	if app.raptorEngine != nil {
		if err := app.raptorEngine.InitializeRaptor(ctx); err != nil {
			log.Warn("raptor initialization failed: %v", err)
		}
	}

	runREPL(ctx, app.router)
}

// app bundles everything wired together for one process lifetime.
type app struct {
	router       *router.Router
	orch         *orchestrator.Orchestrator
	raptorEngine *raptor.Engine
}

func (a *app) shutdown() {
	a.orch.CancelAllTasks()
	a.orch.Shutdown()
}

func buildApp(cfg *config.Config, workingDir string) (*app, error) {
	providers := llmprovider.NewPairFromConfig(cfg.LLM)
	m := metrics.New(prometheus.NewRegistry())

	state := agentstate.New(0)
	registry := toolregistry.New()
	registerLeafTools(registry, workingDir)

	degraded := toolregistry.WithDegradation(registry, toolregistry.DefaultDegradationConfig())
	measured := toolregistry.WithMetrics(degraded, m)

	bus := progress.NewBus(0)

	orch := orchestrator.New(orchestrator.FromAppConfig(cfg.Orchestra), providers.Fast, providers.Heavy, measured, state).WithMetrics(m)

	raptorEngine, err := buildRaptorEngine(cfg, workingDir, providers.Heavy, bus)
	if err != nil {
		return nil, fmt.Errorf("build raptor engine: %w", err)
	}

	planEngine := planner.New(orch, orch, bus, workingDir, cfg.Planner)

	classifier := router.NewClassifier(providers.Fast, router.ClassifierConfig{
		CacheCapacity:    cfg.Classify.CacheSize,
		SimilarityThresh: cfg.Classify.SimilarityThresh,
		MinConfidence:    cfg.Classify.ConfidenceFloor,
	})

	r := router.New(classifier, nil, orch, measured, raptorEngine, planEngine, bus, workingDir)

	return &app{router: r, orch: orch, raptorEngine: raptorEngine}, nil
}

func buildRaptorEngine(cfg *config.Config, workingDir string, heavy llmprovider.Client, bus *progress.Bus) (*raptor.Engine, error) {
	if !cfg.RAPTOR.Enabled {
		return nil, nil
	}

	store, err := raptor.NewStore(cfg.RAPTOR.Collection)
	if err != nil {
		return nil, fmt.Errorf("open raptor store: %w", err)
	}

	persistPath := filepath.Join(expandHome(cfg.RAPTOR.PersistDir), cfg.RAPTOR.Collection+".json")
	if err := store.LoadFromDisk(persistPath); err == nil {
		_ = store.RehydrateVectors(context.Background())
	}

	embedder := raptor.NewCachedEmbedder(
		raptor.NewOllamaEmbedder(cfg.LLM.EmbeddingModel, cfg.LLM.FastBaseURL),
		cfg.RAPTOR.EmbeddingCacheCap,
	)
	summarizer := raptor.NewHeavyModelSummarizer(heavy)

	engineCfg := raptor.EngineConfig{
		ChunkMaxChars:   cfg.RAPTOR.ChunkMaxChars,
		ChunkOverlap:    cfg.RAPTOR.ChunkOverlap,
		MaxClusterSize:  cfg.RAPTOR.MaxClusterSize,
		MaxTreeDepth:    cfg.RAPTOR.MaxTreeDepth,
		MinSimilarity:   cfg.RAPTOR.MinSimilarity,
		QuickIndexFiles: cfg.RAPTOR.QuickIndexFiles,
	}

	return raptor.NewEngine(workingDir, engineCfg, embedder, summarizer, store, bus), nil
}

func expandHome(path string) string {
	if len(path) >= 2 && path[:2] == "~/" {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}

func logLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

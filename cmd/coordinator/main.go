// Coordinator service entry point.
//
// Usage:
//
//	coordinator serve                       # start the service
//	coordinator serve --config config.yaml  # with a config file
//	coordinator version                     # print version info
//	coordinator health                      # probe a running instance
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/Arashek/ADE-stable-1.0-sub011/agent"
	"github.com/Arashek/ADE-stable-1.0-sub011/api/handlers"
	"github.com/Arashek/ADE-stable-1.0-sub011/config"
	"github.com/Arashek/ADE-stable-1.0-sub011/coordination"
	"github.com/Arashek/ADE-stable-1.0-sub011/internal/metrics"
	"github.com/Arashek/ADE-stable-1.0-sub011/internal/server"
	"github.com/Arashek/ADE-stable-1.0-sub011/internal/telemetry"
	"github.com/Arashek/ADE-stable-1.0-sub011/persistence"
	"github.com/Arashek/ADE-stable-1.0-sub011/task"
)

// Injected at build time.
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		runServe(os.Args[2:])
	case "version":
		printVersion()
	case "health":
		runHealthCheck(os.Args[2:])
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func runServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	fs.Parse(args)

	loader := config.NewLoader()
	if *configPath != "" {
		loader = loader.WithConfigPath(*configPath)
	}
	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := cfg.BuildLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting coordinator",
		zap.String("version", Version),
		zap.String("commit", GitCommit),
	)

	providers, err := telemetry.Init(cfg.Telemetry, logger)
	if err != nil {
		logger.Fatal("init telemetry", zap.Error(err))
	}

	store, err := persistence.Open(cfg.Store, logger)
	if err != nil {
		logger.Fatal("open task store", zap.Error(err))
	}

	collector := metrics.NewCollector(cfg.MetricsNamespace, logger)

	registry := agent.NewRegistry(cfg.Registry, logger)
	for _, ac := range cfg.Agents {
		err := registry.Register(&agent.Agent{
			ID:           ac.ID,
			Type:         ac.Type,
			Capabilities: ac.Capabilities,
			Priority:     ac.Priority,
			Weight:       ac.Weight,
			Evaluator:    agent.NewRemoteEvaluator(ac.ID, ac.Endpoint, cfg.Coordination.RoundTimeout, logger),
		})
		if err != nil {
			logger.Fatal("register agent", zap.String("agent_id", ac.ID), zap.Error(err))
		}
	}

	coordinator := coordination.New(registry, cfg.Coordination, collector, logger)
	manager := task.NewManager(store, coordinator, cfg.Manager, collector, logger)

	router := handlers.NewRouter(handlers.RouterDeps{
		Manager:  manager,
		Registry: registry,
		Store:    store,
		Metrics:  collector,
		Logger:   logger,
	})

	srv := server.NewManager(router, cfg.Server, logger)
	if err := srv.Start(); err != nil {
		logger.Fatal("start http server", zap.Error(err))
	}

	srv.WaitForShutdown()

	manager.Close()
	if err := store.Close(); err != nil {
		logger.Error("close task store", zap.Error(err))
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := providers.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown telemetry", zap.Error(err))
	}
	logger.Info("coordinator stopped")
}

func runHealthCheck(args []string) {
	fs := flag.NewFlagSet("health", flag.ExitOnError)
	addr := fs.String("addr", "http://localhost:8080", "coordinator base URL")
	fs.Parse(args)

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(*addr + "/readyz")
	if err != nil {
		fmt.Fprintf(os.Stderr, "health check failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(os.Stderr, "unhealthy: status %d\n", resp.StatusCode)
		os.Exit(1)
	}
	fmt.Println("ok")
}

func printVersion() {
	fmt.Printf("coordinator %s (commit %s, built %s)\n", Version, GitCommit, BuildTime)
}

func printUsage() {
	fmt.Println(`coordinator - multi-agent task coordination service

Commands:
  serve     Start the HTTP service
  version   Print version information
  health    Probe a running instance
  help      Show this help`)
}

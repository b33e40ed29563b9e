// Roadmapd is an AI-assisted project roadmap daemon.
//
// This binary starts the roadmapd HTTP server with full service
// initialization, including the project store, LLM-backed roadmap
// generation, and NATS-backed progress event streaming.
//
// Configuration is loaded from an optional YAML file overridden by
// ROADMAPD_* environment variables. See internal/config for details.
//
// Usage:
//
//	# Start server with defaults
//	roadmapd
//
//	# Configure via environment
//	ROADMAPD_SERVER_PORT=9090 ROADMAPD_STORE_PATH=/var/lib/roadmapd.db roadmapd
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/roadmapd/internal/config"
	"github.com/fyrsmithlabs/roadmapd/internal/detector"
	"github.com/fyrsmithlabs/roadmapd/internal/events"
	"github.com/fyrsmithlabs/roadmapd/internal/generator"
	"github.com/fyrsmithlabs/roadmapd/internal/httpapi"
	"github.com/fyrsmithlabs/roadmapd/internal/logging"
	"github.com/fyrsmithlabs/roadmapd/internal/progress"
	"github.com/fyrsmithlabs/roadmapd/internal/store"
	"github.com/fyrsmithlabs/roadmapd/internal/telemetry"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to config file (default ~/.config/roadmapd/config.yaml)")
	flag.Parse()
	args := flag.Args()

	if len(args) > 0 {
		switch args[0] {
		case "version":
			printVersion()
			os.Exit(0)
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
			fmt.Fprintf(os.Stderr, "\nUsage:\n")
			fmt.Fprintf(os.Stderr, "  roadmapd           Start the roadmapd daemon\n")
			fmt.Fprintf(os.Stderr, "  roadmapd version   Show version information\n")
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Printf("Received signal %v, shutting down gracefully...", sig)
		cancel()
	}()

	if err := run(ctx, *configPath); err != nil {
		log.Fatalf("Server error: %v", err)
	}

	log.Println("Server shutdown complete")
}

func printVersion() {
	fmt.Printf("roadmapd by Fyrsmith Labs\n")
	fmt.Printf("Version:    %s\n", version)
	fmt.Printf("Commit:     %s\n", gitCommit)
	fmt.Printf("Build Date: %s\n", buildDate)
}

// run starts the roadmapd server and blocks until the context is cancelled.
//
// Initialization order:
//  1. Load and validate configuration
//  2. Initialize logger and telemetry
//  3. Open the project store (SQLite or in-memory)
//  4. Connect to NATS when eventing is enabled
//  5. Create roadmap generator, completion detector, progress service
//  6. Wire and start the HTTP server
//  7. Graceful shutdown on context cancellation
func run(ctx context.Context, configPath string) error {
	cfg, err := config.LoadWithFile(configPath)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	logger.Info("Starting roadmapd",
		zap.String("version", version),
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
		zap.Duration("shutdown_timeout", cfg.Server.ShutdownTimeout.Duration()))

	tel, err := telemetry.New(ctx, cfg.Observability)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration())
		defer shutdownCancel()
		if err := tel.Shutdown(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown failed", zap.Error(err))
		}
	}()

	projects, err := openStore(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to open project store: %w", err)
	}
	defer func() {
		_ = projects.Close()
	}()

	var publisher events.Publisher = events.Noop{}
	var sseConn *events.NATSPublisher
	if cfg.Events.Enabled {
		natsURL := cfg.Events.NATSURL
		if cfg.Events.Embedded {
			embedded, err := events.StartEmbeddedServer()
			if err != nil {
				return fmt.Errorf("failed to start embedded NATS server: %w", err)
			}
			defer embedded.Shutdown()
			natsURL = embedded.ClientURL()
			logger.Info("Embedded NATS server started", zap.String("url", natsURL))
		}
		np, err := events.Connect(natsURL, logger)
		if err != nil {
			return fmt.Errorf("failed to connect to NATS at %s: %w", natsURL, err)
		}
		defer np.Close()
		publisher = np
		sseConn = np
		logger.Info("Connected to NATS", zap.String("url", natsURL))
	} else {
		logger.Info("Event publishing disabled")
	}

	gen, err := generator.NewService(generator.Config{
		BaseURL: cfg.LLM.BaseURL,
		Model:   cfg.LLM.Model,
		APIKey:  cfg.LLM.APIKey.Value(),
		Timeout: cfg.LLM.Timeout.Duration(),
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize generator: %w", err)
	}

	det := detector.New(detector.Config{OverlapThreshold: cfg.Detector.OverlapThreshold})

	progressSvc, err := progress.NewService(projects, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize progress service: %w", err)
	}

	srv, err := newServer(progressSvc, projects, gen, det, publisher, sseConn, logger, cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize http server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration())
	defer shutdownCancel()
	return srv.Shutdown(shutdownCtx)
}

// newServer wires the HTTP server. Split out so the nil sseConn case keeps
// its typed-nil pointer from leaking into the interface parameter.
func newServer(
	progressSvc progress.Service,
	projects store.ProjectStore,
	gen *generator.Service,
	det *detector.Detector,
	publisher events.Publisher,
	sseConn *events.NATSPublisher,
	logger *zap.Logger,
	cfg *config.Config,
) (*httpapi.Server, error) {
	serverCfg := &httpapi.Config{Host: cfg.Server.Host, Port: cfg.Server.Port}
	if sseConn == nil {
		return httpapi.NewServer(progressSvc, projects, gen, det, publisher, nil, logger, serverCfg)
	}
	return httpapi.NewServer(progressSvc, projects, gen, det, publisher, sseConn.Conn(), logger, serverCfg)
}

// openStore opens the configured project store. An empty path selects the
// in-memory store.
func openStore(cfg *config.Config, logger *zap.Logger) (store.ProjectStore, error) {
	if cfg.Store.Path == "" {
		logger.Warn("using in-memory project store; data will not survive restarts")
		return store.NewMemory(), nil
	}
	s, err := store.OpenSQLite(cfg.Store.Path)
	if err != nil {
		return nil, err
	}
	logger.Info("Opened project store", zap.String("path", cfg.Store.Path))
	return s, nil
}

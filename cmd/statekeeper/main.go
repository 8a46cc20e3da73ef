package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/acqdte/tradestate/internal/config"
	"github.com/acqdte/tradestate/internal/connection"
	"github.com/acqdte/tradestate/internal/heartbeat"
	"github.com/acqdte/tradestate/internal/store"
	"github.com/acqdte/tradestate/internal/version"
)

func main() {
	configPath := flag.String("config", "", "path to config file (optional; environment is used when empty)")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	// Load configuration before wiring the log sink so the sink honors
	// the configured level.
	var (
		cfg *config.Settings
		err error
	)
	if *configPath != "" {
		cfg, err = config.Load(*configPath)
	} else {
		cfg, err = config.FromEnv()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// Set up structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	logger.Info("starting statekeeper",
		"version", version.Version,
		"commit", version.Commit,
		"backend", cfg.StateBackend,
		"mode", cfg.TradingMode,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Connect to the document store
	dial, err := connection.DialerFor(cfg)
	if err != nil {
		logger.Error("failed to configure store backend", "error", err)
		os.Exit(1)
	}
	manager := connection.NewManager(dial, connection.WithLogger(logger))
	defer manager.Close()

	dialCtx, dialCancel := context.WithTimeout(ctx, 30*time.Second)
	if _, err := manager.Acquire(dialCtx); err != nil {
		dialCancel()
		logger.Error("failed to connect to document store", "error", err)
		os.Exit(1)
	}
	dialCancel()

	gateway := store.NewGateway(manager, store.WithLogger(logger))

	// Start the heartbeat loop
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	recorderCfg := heartbeat.Config{
		ProcessID: fmt.Sprintf("%s-%d", hostname, os.Getpid()),
		Interval:  cfg.HeartbeatPeriod(),
		Timeout:   10 * time.Second,
	}
	recorder := heartbeat.New(recorderCfg, gateway, logger)
	if err := recorder.Start(ctx); err != nil {
		logger.Error("failed to start heartbeat recorder", "error", err)
		os.Exit(1)
	}

	logger.Info("statekeeper running",
		"process_id", recorderCfg.ProcessID,
		"heartbeat_interval", recorderCfg.Interval,
	)

	// Wait for shutdown
	<-ctx.Done()

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := recorder.Stop(shutdownCtx); err != nil {
		logger.Warn("heartbeat recorder shutdown timed out", "error", err)
	}

	logger.Info("statekeeper stopped")
}

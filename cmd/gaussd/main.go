// Package main implements gaussd, the standalone binary for the data
// pipeline engine: load a TOML pipeline configuration, resolve plugins
// and topics, start every processor under the Pipeline Supervisor, and
// run until signaled.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	gconfig "github.com/gauss-project/gauss/config"
	"github.com/gauss-project/gauss/metric"
	"github.com/gauss-project/gauss/obs"
	"github.com/gauss-project/gauss/registry"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "gaussd"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(); err != nil {
		slog.Error("gaussd failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cliCfg, shouldExit, err := initializeCLI()
	if shouldExit || err != nil {
		return err
	}

	logger := obs.NewLogger(obs.Config{Level: cliCfg.LogLevel, Format: cliCfg.LogFormat}, Version)
	slog.SetDefault(logger)

	logger.Info("starting gaussd", "version", Version, "build_time", BuildTime, "config_path", cliCfg.ConfigPath)

	cfg, err := gconfig.LoadFile(cliCfg.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if cliCfg.Validate {
		logger.Info("configuration is valid")
		return nil
	}

	reg := registry.New()
	pipeline, err := buildPipeline(cfg, reg)
	if err != nil {
		return fmt.Errorf("build pipeline: %w", err)
	}

	if cliCfg.MetricsPort != 0 {
		metricsRegistry := metric.NewMetricsRegistry()
		metricsServer := metric.NewServer(cliCfg.MetricsPort, "/metrics", metricsRegistry)
		go func() {
			if err := metricsServer.Start(); err != nil {
				logger.Warn("metrics server stopped", "error", err)
			}
		}()
		defer func() { _ = metricsServer.Stop() }()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := pipeline.Start(ctx); err != nil {
		return fmt.Errorf("start pipeline: %w", err)
	}
	logger.Info("pipeline running")

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	go watchReconfigure(ctx, hup, pipeline, cliCfg.ConfigPath, logger)

	<-ctx.Done()
	logger.Info("shutdown signal received, draining", "timeout", cliCfg.ShutdownTimeout)

	done := make(chan struct{})
	go func() {
		pipeline.Stop()
		close(done)
	}()

	select {
	case <-done:
		logger.Info("pipeline stopped cleanly")
	case <-time.After(cliCfg.ShutdownTimeout):
		logger.Warn("shutdown timeout exceeded, exiting anyway")
	}

	return nil
}

func initializeCLI() (*CLIConfig, bool, error) {
	cliCfg := parseFlags()
	if err := validateFlags(cliCfg); err != nil {
		return nil, false, fmt.Errorf("invalid flags: %w", err)
	}

	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil, true, nil
	}
	if cliCfg.ShowHelp {
		printDetailedHelp()
		return nil, true, nil
	}

	return cliCfg, false, nil
}

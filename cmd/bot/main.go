package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"breakout-trading-bot/internal/broker/brokerobs"
	"breakout-trading-bot/internal/logger"
	"breakout-trading-bot/internal/trace"
)

func main() {
	if err := initializeSystem(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(); err != nil {
		logger.ErrorWithErr(context.Background(), "Bot exited with error", err)
		logger.Sync()
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := trace.Shutdown(shutdownCtx); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to shutdown tracer: %v\n", err)
		}
	}()

	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	gw, brk := initializeBroker(ctx, cfg)

	j, err := initializeJournal(ctx, cfg)
	if err != nil {
		return err
	}
	defer j.Close()

	hub := newHubRunner(ctx)
	eng := initializeEngine(cfg, brk, j, hub)

	sched, err := initializeScheduler(ctx, cfg)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to start scheduler", err)
		return err
	}

	if err := brokerobs.Start(ctx, gw, cfg.Universe); err != nil {
		logger.Warn(ctx, "Price stream unavailable, falling back to REST quotes", "error", err)
	}

	if cfg.Monitor.AutoStart {
		eng.StartMonitoring(ctx)
	}

	logger.Info(ctx, "Bot started",
		"mode", gw.Mode(),
		"addr", cfg.Server.Addr,
		"universe", cfg.Universe,
		"monitor_interval", cfg.MonitorInterval().String(),
	)

	srvErr := newServer(cfg, eng, gw, brk, j, hub).Run(ctx)

	// Graceful shutdown runs on a context that outlives the signal.
	shutdownCtx := context.WithoutCancel(ctx)
	logger.Info(shutdownCtx, "Shutting down")
	eng.StopMonitoring(shutdownCtx)
	brokerobs.Stop(shutdownCtx, gw)
	sched.Stop()
	if p, err := sched.RunEODNow(); err != nil {
		logger.Warn(shutdownCtx, "Final EOD summary failed", "error", err)
	} else if p != "" {
		logger.Info(shutdownCtx, "EOD CSV written", "path", p)
	}

	return srvErr
}

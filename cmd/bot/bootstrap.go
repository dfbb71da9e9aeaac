package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"breakout-trading-bot/internal/api"
	"breakout-trading-bot/internal/broker/brokerobs"
	"breakout-trading-bot/internal/broker/zerodha"
	"breakout-trading-bot/internal/engine"
	"breakout-trading-bot/internal/engine/engineobs"
	"breakout-trading-bot/internal/eod"
	"breakout-trading-bot/internal/eod/eodobs"
	"breakout-trading-bot/internal/events"
	"breakout-trading-bot/internal/interfaces"
	"breakout-trading-bot/internal/journal"
	"breakout-trading-bot/internal/logger"
	"breakout-trading-bot/internal/scheduler"
	"breakout-trading-bot/internal/store"
	"breakout-trading-bot/internal/trace"

	"github.com/joho/godotenv"
)

// initializeSystem initializes logger, tracer, and EOD summarizer
func initializeSystem() error {
	_ = godotenv.Load()

	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if err := trace.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize tracer: %v\n", err)
	}

	initializeEOD()
	return nil
}

func configPath() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return "config.yaml"
}

// loadConfig loads and returns the configuration
func loadConfig(ctx context.Context) (*store.Config, error) {
	path := configPath()
	cfg, err := store.LoadConfig(path)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to load config", err, "path", path)
		return nil, err
	}
	return cfg, nil
}

// initializeBroker returns the raw gateway, for its account and streaming
// views, and the observable wrapper the engine trades through.
func initializeBroker(ctx context.Context, cfg *store.Config) (*zerodha.Zerodha, interfaces.Broker) {
	gw := zerodha.NewFromConfig(cfg)

	if gw.Mode() == zerodha.ModeDryRun {
		logger.Warn(ctx, "Running in DRY_RUN mode - orders will be simulated")
	} else {
		logger.Warn(ctx, "Running in LIVE mode - orders go to the exchange")
	}
	return gw, brokerobs.Wrap(gw)
}

func initializeJournal(ctx context.Context, cfg *store.Config) (*journal.Journal, error) {
	j, err := journal.Open(cfg.Journal.Path)
	if err != nil {
		logger.ErrorWithErr(ctx, "Failed to open trade journal", err, "path", cfg.Journal.Path)
		return nil, err
	}
	logger.Info(ctx, "Trade journal ready", "path", cfg.Journal.Path)
	return j, nil
}

// newHubRunner starts the websocket event hub for the life of ctx.
func newHubRunner(ctx context.Context) *events.Hub {
	hub := events.NewHub()
	go hub.Run(ctx)
	return hub
}

// initializeEngine initializes and returns the trading engine with observability
func initializeEngine(cfg *store.Config, brk interfaces.Broker, j interfaces.TradeJournal, hub *events.Hub) interfaces.Engine {
	eng := engine.New(cfg, brk, engine.WithJournal(j), engine.WithEvents(hub))
	return engineobs.Wrap(eng)
}

// initializeEOD wraps the default EOD summarizer with observability
func initializeEOD() {
	eod.SetDefaultSummarizer(eodobs.Wrap(eod.NewSummarizer()))
}

func initializeScheduler(ctx context.Context, cfg *store.Config) (*scheduler.Scheduler, error) {
	s, err := scheduler.NewScheduler(ctx, cfg, eodobs.Wrap(eod.NewSummarizer()))
	if err != nil {
		return nil, err
	}
	if err := s.RegisterAll(); err != nil {
		return nil, err
	}
	s.Start()
	return s, nil
}

func newServer(cfg *store.Config, eng interfaces.Engine, gw *zerodha.Zerodha, brk interfaces.Broker, j interfaces.TradeJournal, hub *events.Hub) *api.Server {
	return api.NewServer(cfg.Server.Addr, api.Deps{
		Engine:  eng,
		Quotes:  brk,
		Account: gw,
		Session: gw,
		Journal: j,
		Events:  http.HandlerFunc(hub.ServeWS),
		Mode:    gw.Mode(),
	})
}

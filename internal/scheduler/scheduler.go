package scheduler

import (
	"context"
	"fmt"
	"time"

	"breakout-trading-bot/internal/interfaces"
	"breakout-trading-bot/internal/logger"
	"breakout-trading-bot/internal/store"
	"breakout-trading-bot/internal/tradelog"

	"github.com/robfig/cron/v3"
)

// Scheduler runs the end-of-day summary and trade-log retention jobs.
type Scheduler struct {
	Cron          *cron.Cron
	Summarizer    interfaces.EodSummarizer
	RetentionDays int

	eodSpec      string
	compressSpec string
	ctx          context.Context
}

// NewScheduler builds a seconds-resolution cron in the configured timezone.
func NewScheduler(ctx context.Context, cfg *store.Config, summarizer interfaces.EodSummarizer) (*Scheduler, error) {
	loc, err := time.LoadLocation(cfg.Schedule.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", cfg.Schedule.Timezone, err)
	}

	return &Scheduler{
		Cron:          cron.New(cron.WithSeconds(), cron.WithLocation(loc)),
		Summarizer:    summarizer,
		RetentionDays: cfg.Schedule.RetentionDays,
		eodSpec:       cfg.Schedule.EODCron,
		compressSpec:  cfg.Schedule.CompressCron,
		ctx:           ctx,
	}, nil
}

// RegisterAll registers the EOD summary and log compression tasks.
func (s *Scheduler) RegisterAll() error {
	if _, err := s.Cron.AddFunc(s.eodSpec, s.eodTask); err != nil {
		return fmt.Errorf("register eod task: %w", err)
	}
	if s.compressSpec != "" {
		if _, err := s.Cron.AddFunc(s.compressSpec, s.compressTask); err != nil {
			return fmt.Errorf("register compress task: %w", err)
		}
	}
	return nil
}

func (s *Scheduler) Start() {
	s.Cron.Start()
	logger.Info(s.ctx, "Scheduler started", "jobs", len(s.Cron.Entries()))
}

// Stop stops the cron and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	logger.Info(s.ctx, "Scheduler stopped")
}

// RunEODNow writes today's summary immediately (used on shutdown).
func (s *Scheduler) RunEODNow() (string, error) {
	return s.Summarizer.SummarizeToday()
}

func (s *Scheduler) eodTask() {
	op := logger.StartOperation(s.ctx, "eod_summary")
	path, err := s.Summarizer.SummarizeToday()
	if err != nil {
		op.EndWithError(err)
		return
	}
	op.End("csv_path", path)
}

func (s *Scheduler) compressTask() {
	op := logger.StartOperation(s.ctx, "compress_trade_logs", "retention_days", s.RetentionDays)
	if err := tradelog.CompressOlder(s.RetentionDays); err != nil {
		op.EndWithError(err)
		return
	}
	op.End()
}

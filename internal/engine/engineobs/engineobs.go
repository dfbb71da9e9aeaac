package engineobs

import (
	"context"
	"time"

	"breakout-trading-bot/internal/interfaces"
	"breakout-trading-bot/internal/logger"
	"breakout-trading-bot/internal/trace"
	"breakout-trading-bot/internal/types"
)

type observableEngine struct {
	engine interfaces.Engine
}

var _ interfaces.Engine = (*observableEngine)(nil)

func Wrap(eng interfaces.Engine) interfaces.Engine {
	return &observableEngine{
		engine: eng,
	}
}

func (oe *observableEngine) SubmitPriceBar(ctx context.Context, bar types.PriceBar, qty int) (*types.BarResult, error) {
	ctx, span := trace.StartSpan(ctx, "engine.SubmitPriceBar")
	defer span.End()

	start := time.Now()

	logger.DebugSkip(ctx, 1, "Ingesting price bar",
		"symbol", bar.Symbol,
		"high", bar.High,
		"low", bar.Low,
		"close", bar.Close,
	)

	result, err := oe.engine.SubmitPriceBar(ctx, bar, qty)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Price bar rejected", err,
			"symbol", bar.Symbol,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return nil, err
	}

	fields := []any{
		"symbol", result.Symbol,
		"state", result.State,
		"levels_updated", result.LevelsUpdated,
		"history", result.HistoryLength,
		"duration_ms", time.Since(start).Milliseconds(),
	}
	if result.Signal != "" {
		fields = append(fields, "signal", result.Signal)
	}
	if result.OrderError != "" {
		logger.WarnSkip(ctx, 1, "Breakout entry order failed", append(fields, "order_error", result.OrderError)...)
		return result, nil
	}
	logger.DebugSkip(ctx, 1, "Price bar processed", fields...)

	return result, nil
}

func (oe *observableEngine) SubmitManualAction(ctx context.Context, action types.ManualAction) (*types.Trade, error) {
	ctx, span := trace.StartSpan(ctx, "engine.SubmitManualAction")
	defer span.End()

	start := time.Now()

	logger.InfoSkip(ctx, 1, "Manual action received",
		"symbol", action.Symbol,
		"action", action.Action,
		"qty", action.Quantity,
	)

	trade, err := oe.engine.SubmitManualAction(ctx, action)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Manual action failed", err,
			"symbol", action.Symbol,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return nil, err
	}

	logger.InfoSkip(ctx, 1, "Manual action executed",
		"symbol", trade.Symbol,
		"trade_id", trade.ID,
		"entry", trade.EntryPrice,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return trade, nil
}

func (oe *observableEngine) Status(ctx context.Context, symbol string) (types.StrategyStatus, error) {
	ctx, span := trace.StartSpan(ctx, "engine.Status")
	defer span.End()
	return oe.engine.Status(ctx, symbol)
}

func (oe *observableEngine) Statuses(ctx context.Context) []types.StrategyStatus {
	ctx, span := trace.StartSpan(ctx, "engine.Statuses")
	defer span.End()
	return oe.engine.Statuses(ctx)
}

func (oe *observableEngine) Reset(ctx context.Context, symbol string) error {
	ctx, span := trace.StartSpan(ctx, "engine.Reset")
	defer span.End()

	if err := oe.engine.Reset(ctx, symbol); err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Strategy reset failed", err, "symbol", symbol)
		return err
	}
	logger.InfoSkip(ctx, 1, "Strategy reset", "symbol", symbol)
	return nil
}

func (oe *observableEngine) ForceExit(ctx context.Context, symbol string) (*types.TradeSummary, error) {
	ctx, span := trace.StartSpan(ctx, "engine.ForceExit")
	defer span.End()

	start := time.Now()
	summary, err := oe.engine.ForceExit(ctx, symbol)
	if err != nil {
		logger.ErrorWithErrSkip(ctx, 1, "Forced exit failed", err,
			"symbol", symbol,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return nil, err
	}

	logger.InfoSkip(ctx, 1, "Forced exit completed",
		"symbol", symbol,
		"trade_id", summary.TradeID,
		"exit", summary.ExitPrice,
		"pnl", summary.PnL,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return summary, nil
}

func (oe *observableEngine) StartMonitoring(ctx context.Context) bool {
	started := oe.engine.StartMonitoring(ctx)
	logger.InfoSkip(ctx, 1, "Start monitoring requested", "started", started)
	return started
}

func (oe *observableEngine) StopMonitoring(ctx context.Context) bool {
	stopped := oe.engine.StopMonitoring(ctx)
	logger.InfoSkip(ctx, 1, "Stop monitoring requested", "stopped", stopped)
	return stopped
}

func (oe *observableEngine) MonitoringStatus() types.MonitorStatus {
	return oe.engine.MonitoringStatus()
}

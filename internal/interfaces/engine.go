package interfaces

import (
	"context"

	"breakout-trading-bot/internal/types"
)

type Engine interface {
	SubmitPriceBar(ctx context.Context, bar types.PriceBar, qty int) (*types.BarResult, error)
	SubmitManualAction(ctx context.Context, action types.ManualAction) (*types.Trade, error)
	Status(ctx context.Context, symbol string) (types.StrategyStatus, error)
	Statuses(ctx context.Context) []types.StrategyStatus
	Reset(ctx context.Context, symbol string) error
	ForceExit(ctx context.Context, symbol string) (*types.TradeSummary, error)
	StartMonitoring(ctx context.Context) bool
	StopMonitoring(ctx context.Context) bool
	MonitoringStatus() types.MonitorStatus
}

// TradeJournal records closed trades for reporting.
type TradeJournal interface {
	Record(ctx context.Context, s types.TradeSummary) error
	Recent(ctx context.Context, limit int) ([]types.TradeSummary, error)
}

// EventSink receives strategy lifecycle events.
type EventSink interface {
	Publish(eventType, symbol string, data any)
}

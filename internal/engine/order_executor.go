package engine

import (
	"context"
	"fmt"
	"time"

	"breakout-trading-bot/internal/interfaces"
	"breakout-trading-bot/internal/logger"
	"breakout-trading-bot/internal/metrics"
	"breakout-trading-bot/internal/tradelog"
	"breakout-trading-bot/internal/types"
)

// orderExecutor runs gateway calls under a deadline and logs fills.
type orderExecutor struct {
	broker  interfaces.Broker
	timeout time.Duration
}

// newOrderExecutor creates a new order executor.
func newOrderExecutor(broker interfaces.Broker, timeout time.Duration) *orderExecutor {
	return &orderExecutor{
		broker:  broker,
		timeout: timeout,
	}
}

// ltp fetches the last traded price. A non-positive price counts as a failure.
func (oe *orderExecutor) ltp(ctx context.Context, symbol string) (float64, error) {
	ctx, cancel := context.WithTimeout(ctx, oe.timeout)
	defer cancel()

	start := time.Now()
	price, err := oe.broker.LTP(ctx, symbol)
	if err == nil && price <= 0 {
		err = fmt.Errorf("invalid price %v", price)
	}
	metrics.ObserveGateway("ltp", start, err)
	if err != nil {
		return 0, types.NewGatewayError("ltp", symbol, err)
	}
	return price, nil
}

// placeEntry sends the opening order for a new trade.
//
// Parameters:
//   - symbol: Trading symbol
//   - dir: Trade direction (LONG buys, SHORT sells)
//   - qty: Order quantity
//   - source: What triggered the entry, used as the order tag
//
// Returns the broker response, or a *types.GatewayError.
func (oe *orderExecutor) placeEntry(ctx context.Context, symbol string, dir types.Direction, qty int, source types.EntrySource) (types.OrderResp, error) {
	ctx, cancel := context.WithTimeout(ctx, oe.timeout)
	defer cancel()

	start := time.Now()
	resp, err := oe.broker.PlaceOrder(ctx, types.OrderReq{
		Symbol:    symbol,
		Direction: dir,
		Qty:       qty,
		Tag:       string(source),
	})
	metrics.ObserveGateway("place", start, err)
	if err != nil {
		return types.OrderResp{}, types.NewGatewayError("place", symbol, err)
	}
	return resp, nil
}

// placeExit sends the closing order of an open trade.
func (oe *orderExecutor) placeExit(ctx context.Context, t *types.Trade, reason types.ExitReason) (types.OrderResp, error) {
	ctx, cancel := context.WithTimeout(ctx, oe.timeout)
	defer cancel()

	start := time.Now()
	resp, err := oe.broker.CloseOrder(ctx, types.OrderReq{
		Symbol:    t.Symbol,
		Direction: t.Direction,
		Qty:       t.Quantity,
		Tag:       string(reason),
	})
	metrics.ObserveGateway("close", start, err)
	if err != nil {
		return types.OrderResp{}, types.NewGatewayError("close", t.Symbol, err)
	}
	return resp, nil
}

// logEntry records an opened trade in the log and the daily trade file.
func (oe *orderExecutor) logEntry(ctx context.Context, t *types.Trade) {
	logger.Trade(ctx, t.Symbol, t.Direction.EntrySide(), t.Quantity, t.EntryPrice, t.OrderID,
		"event", tradelog.EventEntry,
		"direction", t.Direction,
		"source", t.Source,
		"target", t.TargetPrice,
		"stop", t.StopPrice,
	)
	if err := tradelog.Append(tradelog.Entry{
		Event:     tradelog.EventEntry,
		TradeID:   t.ID,
		Symbol:    t.Symbol,
		Direction: string(t.Direction),
		Side:      t.Direction.EntrySide(),
		Qty:       t.Quantity,
		Price:     t.EntryPrice,
		OrderID:   t.OrderID,
		Reason:    string(t.Source),
		Target:    t.TargetPrice,
		Stop:      t.StopPrice,
	}); err != nil {
		logger.Warn(ctx, "Failed to append trade log", "symbol", t.Symbol, "error", err)
	}
}

// logExit records a closed trade in the log and the daily trade file.
func (oe *orderExecutor) logExit(ctx context.Context, s *types.TradeSummary) {
	logger.Trade(ctx, s.Symbol, s.Direction.ExitSide(), s.Quantity, s.ExitPrice, s.ExitOrder,
		"event", tradelog.EventExit,
		"direction", s.Direction,
		"reason", s.Reason,
		"entry_price", s.EntryPrice,
		"pnl", s.PnL,
		"pnl_percent", s.PnLPercent,
	)
	if err := tradelog.Append(tradelog.Entry{
		Event:     tradelog.EventExit,
		TradeID:   s.TradeID,
		Symbol:    s.Symbol,
		Direction: string(s.Direction),
		Side:      s.Direction.ExitSide(),
		Qty:       s.Quantity,
		Price:     s.ExitPrice,
		OrderID:   s.ExitOrder,
		Reason:    string(s.Reason),
		PnL:       s.PnL,
	}); err != nil {
		logger.Warn(ctx, "Failed to append trade log", "symbol", s.Symbol, "error", err)
	}
}

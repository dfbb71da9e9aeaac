package engine

import (
	"context"
	"fmt"
	"time"

	"breakout-trading-bot/internal/interfaces"
	"breakout-trading-bot/internal/logger"
	"breakout-trading-bot/internal/metrics"
	"breakout-trading-bot/internal/store"
	"breakout-trading-bot/internal/types"
)

// Event types published to the event sink.
const (
	EventLevelUpdated   = "level_updated"
	EventTradeOpened    = "trade_opened"
	EventEntryFailed    = "entry_failed"
	EventTradeClosed    = "trade_closed"
	EventExitFailed     = "exit_failed"
	EventStrategyReset  = "strategy_reset"
	EventMonitorStarted = "monitor_started"
	EventMonitorStopped = "monitor_stopped"
)

type Engine struct {
	cfg         *store.Config
	brk         interfaces.Broker
	exec        *orderExecutor
	registry    *registry
	monitor     *exitMonitor
	journal     interfaces.TradeJournal
	events      interfaces.EventSink
	maxParallel int
	now         func() time.Time
}

var _ interfaces.Engine = (*Engine)(nil)

type noopSink struct{}

func (noopSink) Publish(string, string, any) {}

func newEngine(cfg *store.Config, brk interfaces.Broker, opts ...Option) *Engine {
	e := &Engine{
		cfg:         cfg,
		brk:         brk,
		exec:        newOrderExecutor(brk, cfg.BrokerTimeout()),
		registry:    newRegistry(cfg.ParamsFor),
		events:      noopSink{},
		maxParallel: cfg.Monitor.MaxParallel,
		now:         time.Now,
	}
	if e.maxParallel <= 0 {
		e.maxParallel = 1
	}
	e.monitor = newExitMonitor(cfg.MonitorInterval(), e.checkExits)
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SubmitPriceBar folds one bar into its symbol's history, refreshes the
// level and enters on a breakout. A failed entry order is reported in the
// result; the bar itself stays accepted.
//
// The transition runs to completion even if the caller goes away; only
// broker.timeout_seconds bounds the gateway calls.
func (e *Engine) SubmitPriceBar(ctx context.Context, bar types.PriceBar, qty int) (*types.BarResult, error) {
	ctx = context.WithoutCancel(ctx)
	bar.Symbol = types.NormalizeSymbol(bar.Symbol)
	if err := validateBar(bar); err != nil {
		metrics.BarsRejected.Inc()
		return nil, err
	}
	if qty < 0 {
		metrics.BarsRejected.Inc()
		return nil, types.NewValidationError("quantity", "must be positive")
	}
	if qty == 0 {
		qty = e.cfg.QtyFor(bar.Symbol)
	}
	if bar.Timestamp.IsZero() {
		bar.Timestamp = e.now()
	}
	if obs, ok := e.brk.(interfaces.PriceObserver); ok {
		obs.ObservePrice(bar.Symbol, bar.Close)
	}

	st := e.registry.getOrCreate(bar.Symbol)
	st.mu.Lock()
	defer st.mu.Unlock()

	st.appendBar(bar)
	metrics.BarsIngested.WithLabelValues(bar.Symbol).Inc()

	res := &types.BarResult{Symbol: bar.Symbol}
	if st.refreshLevel() {
		res.LevelsUpdated = true
		metrics.LevelUpdates.WithLabelValues(bar.Symbol).Inc()
		logger.Info(ctx, "Levels updated",
			"symbol", bar.Symbol,
			"support", st.level.Support,
			"resistance", st.level.Resistance,
			"history", len(st.history),
		)
		e.events.Publish(EventLevelUpdated, bar.Symbol, st.level)
	}

	if dir, ok := st.breakout(bar.Close); ok {
		res.Signal = dir
		logger.Info(ctx, "Breakout detected",
			"symbol", bar.Symbol,
			"direction", dir,
			"close", bar.Close,
			"support", st.level.Support,
			"resistance", st.level.Resistance,
		)
		t, err := e.enter(ctx, st, dir, bar.Close, qty, types.SourceBreakout)
		if err != nil {
			res.OrderError = err.Error()
		}
		res.Trade = t
	}

	res.State = st.state()
	res.Level = st.level
	res.HistoryLength = len(st.history)
	return res, nil
}

// SubmitManualAction opens a trade at the current LTP without a breakout.
func (e *Engine) SubmitManualAction(ctx context.Context, a types.ManualAction) (*types.Trade, error) {
	ctx = context.WithoutCancel(ctx)
	a.Symbol = types.NormalizeSymbol(a.Symbol)
	if err := validateAction(a); err != nil {
		metrics.BarsRejected.Inc()
		return nil, err
	}
	qty := a.Quantity
	if qty == 0 {
		qty = e.cfg.QtyFor(a.Symbol)
	}

	st := e.registry.getOrCreate(a.Symbol)
	st.mu.Lock()
	defer st.mu.Unlock()

	if st.trade != nil {
		return nil, fmt.Errorf("%s: %w", a.Symbol, types.ErrTradeActive)
	}
	price, err := e.exec.ltp(ctx, a.Symbol)
	if err != nil {
		logger.ErrorWithErr(ctx, "Manual entry aborted, LTP unavailable", err, "symbol", a.Symbol)
		return nil, err
	}
	logger.Info(ctx, "Manual entry", "symbol", a.Symbol, "direction", a.Action, "qty", qty, "ltp", price)
	return e.enter(ctx, st, a.Action, price, qty, types.SourceManual)
}

// enter places the opening order and commits the trade only if it was
// accepted. Callers hold st.mu.
func (e *Engine) enter(ctx context.Context, st *symbolState, dir types.Direction, price float64, qty int, source types.EntrySource) (*types.Trade, error) {
	resp, err := e.exec.placeEntry(ctx, st.symbol, dir, qty, source)
	if err != nil {
		logger.ErrorWithErr(ctx, "Entry order failed, strategy stays idle", err,
			"symbol", st.symbol,
			"direction", dir,
			"price", price,
			"qty", qty,
		)
		e.events.Publish(EventEntryFailed, st.symbol, map[string]any{
			"direction": dir,
			"price":     price,
			"error":     err.Error(),
		})
		return nil, err
	}

	t := st.open(dir, price, qty, resp.OrderID, source, e.now())
	metrics.Entries.WithLabelValues(string(dir), string(source)).Inc()
	metrics.OpenTrades.Inc()
	e.exec.logEntry(ctx, t)
	e.events.Publish(EventTradeOpened, st.symbol, *t)

	if e.cfg.Monitor.StartOnEntry {
		e.StartMonitoring(ctx)
	}
	return copyTrade(t), nil
}

// exit sends the closing order and returns the symbol to Idle on success.
// On failure the trade stays open for the next attempt. Callers hold st.mu.
func (e *Engine) exit(ctx context.Context, st *symbolState, reason types.ExitReason, price float64) (*types.TradeSummary, error) {
	t := st.trade
	if t == nil {
		return nil, fmt.Errorf("%s: %w", st.symbol, types.ErrNoActiveTrade)
	}

	resp, err := e.exec.placeExit(ctx, t, reason)
	if err != nil {
		st.exitFailures++
		logger.Risk(ctx, st.symbol, "EXIT_FAILED",
			"reason", reason,
			"direction", t.Direction,
			"qty", t.Quantity,
			"ltp", price,
			"attempt", st.exitFailures,
			"error", err.Error(),
		)
		e.events.Publish(EventExitFailed, st.symbol, map[string]any{
			"reason":  reason,
			"ltp":     price,
			"attempt": st.exitFailures,
			"error":   err.Error(),
		})
		return nil, err
	}

	pnl, pct := realizedPnL(t, price)
	s := &types.TradeSummary{
		TradeID:    t.ID,
		Symbol:     t.Symbol,
		Direction:  t.Direction,
		EntryPrice: t.EntryPrice,
		ExitPrice:  price,
		Quantity:   t.Quantity,
		OpenedAt:   t.OpenedAt,
		ClosedAt:   e.now(),
		Reason:     reason,
		PnL:        pnl,
		PnLPercent: pct,
		EntryOrder: t.OrderID,
		ExitOrder:  resp.OrderID,
		Source:     t.Source,
	}
	st.clear()

	metrics.Exits.WithLabelValues(string(reason), string(s.Direction)).Inc()
	metrics.OpenTrades.Dec()
	metrics.RealizedPnL.Add(pnl)
	e.exec.logExit(ctx, s)
	if e.journal != nil {
		if err := e.journal.Record(ctx, *s); err != nil {
			logger.Warn(ctx, "Failed to journal closed trade", "symbol", s.Symbol, "trade_id", s.TradeID, "error", err)
		}
	}
	e.events.Publish(EventTradeClosed, st.symbol, *s)
	return s, nil
}

// ForceExit closes the symbol's open trade at the current LTP.
func (e *Engine) ForceExit(ctx context.Context, symbol string) (*types.TradeSummary, error) {
	ctx = context.WithoutCancel(ctx)
	symbol = types.NormalizeSymbol(symbol)
	st, ok := e.registry.lookup(symbol)
	if !ok {
		return nil, fmt.Errorf("%s: %w", symbol, types.ErrUnknownSymbol)
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	if st.trade == nil {
		return nil, fmt.Errorf("%s: %w", symbol, types.ErrNoActiveTrade)
	}
	price, err := e.exec.ltp(ctx, symbol)
	if err != nil {
		logger.Warn(ctx, "Manual exit aborted, LTP unavailable", "symbol", symbol, "error", err)
		return nil, err
	}
	return e.exit(ctx, st, types.ExitManual, price)
}

// Reset clears a symbol's history, level and trade without sending an order.
func (e *Engine) Reset(ctx context.Context, symbol string) error {
	symbol = types.NormalizeSymbol(symbol)
	hadTrade, ok := e.registry.reset(symbol)
	if !ok {
		return fmt.Errorf("%s: %w", symbol, types.ErrUnknownSymbol)
	}
	if hadTrade {
		metrics.OpenTrades.Dec()
		logger.Risk(ctx, symbol, "RESET_WITH_OPEN_TRADE", "note", "broker position left untouched")
	}
	logger.Info(ctx, "Strategy reset", "symbol", symbol)
	e.events.Publish(EventStrategyReset, symbol, map[string]any{"dropped_trade": hadTrade})
	return nil
}

func (e *Engine) Status(ctx context.Context, symbol string) (types.StrategyStatus, error) {
	symbol = types.NormalizeSymbol(symbol)
	st, ok := e.registry.status(symbol)
	if !ok {
		return types.StrategyStatus{}, fmt.Errorf("%s: %w", symbol, types.ErrUnknownSymbol)
	}
	return st, nil
}

func (e *Engine) Statuses(ctx context.Context) []types.StrategyStatus {
	states := e.registry.all()
	out := make([]types.StrategyStatus, 0, len(states))
	for _, st := range states {
		st.mu.Lock()
		out = append(out, st.snapshot())
		st.mu.Unlock()
	}
	return out
}

// StartMonitoring starts the exit monitor. It returns false if it was already running.
func (e *Engine) StartMonitoring(ctx context.Context) bool {
	if !e.monitor.start(ctx) {
		return false
	}
	logger.Info(ctx, "Exit monitoring started", "interval", e.monitor.interval.String())
	e.events.Publish(EventMonitorStarted, "", map[string]any{"interval_seconds": e.monitor.interval.Seconds()})
	return true
}

// StopMonitoring stops scheduling ticks and waits for the current one.
func (e *Engine) StopMonitoring(ctx context.Context) bool {
	if !e.monitor.stop() {
		return false
	}
	logger.Info(ctx, "Exit monitoring stopped")
	e.events.Publish(EventMonitorStopped, "", nil)
	return true
}

func (e *Engine) MonitoringStatus() types.MonitorStatus {
	watched := []string{}
	for _, st := range e.registry.active() {
		watched = append(watched, st.symbol)
	}
	return types.MonitorStatus{
		Running:         e.monitor.running(),
		IntervalSeconds: e.monitor.interval.Seconds(),
		WatchedSymbols:  watched,
		Strategies:      e.registry.size(),
		LastTick:        e.monitor.lastTickAt(),
	}
}

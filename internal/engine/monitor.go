package engine

import (
	"context"
	"sync"
	"time"

	"breakout-trading-bot/internal/logger"
	"breakout-trading-bot/internal/metrics"
)

// exitMonitor runs tick on a fixed interval until stopped. Stopping only
// prevents future ticks; a tick already running completes on a context
// that stop does not cancel.
type exitMonitor struct {
	interval time.Duration
	tick     func(ctx context.Context)

	mu       sync.Mutex
	cancel   context.CancelFunc
	done     chan struct{}
	lastTick time.Time
}

func newExitMonitor(interval time.Duration, tick func(ctx context.Context)) *exitMonitor {
	return &exitMonitor{interval: interval, tick: tick}
}

// start launches the loop. It returns false if the loop is already running.
func (m *exitMonitor) start(ctx context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.cancel != nil {
		return false
	}
	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	m.cancel = cancel
	m.done = make(chan struct{})
	go m.run(loopCtx, m.done)
	return true
}

func (m *exitMonitor) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	t := time.NewTicker(m.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			m.mu.Lock()
			m.lastTick = time.Now()
			m.mu.Unlock()
			m.tick(context.WithoutCancel(ctx))
		}
	}
}

// stop ends the loop and waits for an in-flight tick. It returns false if
// the loop was not running.
func (m *exitMonitor) stop() bool {
	m.mu.Lock()
	cancel, done := m.cancel, m.done
	m.cancel, m.done = nil, nil
	m.mu.Unlock()
	if cancel == nil {
		return false
	}
	cancel()
	<-done
	return true
}

func (m *exitMonitor) running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.cancel != nil
}

func (m *exitMonitor) lastTickAt() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastTick
}

// checkExits evaluates every open trade once. Symbols are checked in
// parallel so a slow or failing gateway call for one does not delay others.
func (e *Engine) checkExits(ctx context.Context) {
	metrics.MonitorTicks.Inc()
	active := e.registry.active()
	if len(active) == 0 {
		return
	}

	sem := make(chan struct{}, e.maxParallel)
	var wg sync.WaitGroup
	for _, st := range active {
		wg.Add(1)
		sem <- struct{}{}
		go func(st *symbolState) {
			defer wg.Done()
			defer func() { <-sem }()
			e.checkExit(ctx, st)
		}(st)
	}
	wg.Wait()
}

// checkExit closes st's trade if the live price reached its target or stop.
func (e *Engine) checkExit(ctx context.Context, st *symbolState) {
	st.mu.Lock()
	defer st.mu.Unlock()

	// a manual exit or reset may have won the race
	if st.trade == nil {
		return
	}

	ltp, err := e.exec.ltp(ctx, st.symbol)
	if err != nil {
		logger.Warn(ctx, "LTP fetch failed, retrying next tick", "symbol", st.symbol, "error", err)
		return
	}

	reason, hit := checkExit(st.trade, ltp)
	if !hit {
		logger.Debug(ctx, "Exit conditions not met",
			"symbol", st.symbol,
			"ltp", ltp,
			"target", st.trade.TargetPrice,
			"stop", st.trade.StopPrice,
		)
		return
	}
	_, _ = e.exit(ctx, st, reason, ltp)
}

package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"breakout-trading-bot/internal/store"
	"breakout-trading-bot/internal/types"
)

var errBrokerDown = errors.New("broker down")

// fakeBroker records gateway calls and injects failures and latency.
type fakeBroker struct {
	mu         sync.Mutex
	ltp        map[string]float64
	failPlace  bool
	failClose  bool
	failLTP    map[string]bool
	placeDelay time.Duration
	closeDelay time.Duration
	ltpDelay   time.Duration

	placed   []types.OrderReq
	closed   []types.OrderReq
	ltpCalls int
	seq      int
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{ltp: map[string]float64{}, failLTP: map[string]bool{}}
}

func (f *fakeBroker) setLTP(symbol string, price float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ltp[symbol] = price
}

func (f *fakeBroker) set(fn func(f *fakeBroker)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *fakeBroker) LTP(ctx context.Context, symbol string) (float64, error) {
	f.mu.Lock()
	f.ltpCalls++
	delay := f.ltpDelay
	fail := f.failLTP[symbol]
	price, ok := f.ltp[symbol]
	f.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
	if fail {
		return 0, errBrokerDown
	}
	if !ok {
		return 0, fmt.Errorf("no price for %s", symbol)
	}
	return price, nil
}

// PlaceOrder records the order before any delay, so a caller that gives up
// while waiting still leaves the order at the broker.
func (f *fakeBroker) PlaceOrder(ctx context.Context, req types.OrderReq) (types.OrderResp, error) {
	f.mu.Lock()
	if f.failPlace {
		f.mu.Unlock()
		return types.OrderResp{}, errBrokerDown
	}
	f.seq++
	f.placed = append(f.placed, req)
	resp := types.OrderResp{OrderID: fmt.Sprintf("OPEN-%d", f.seq), Status: "COMPLETE"}
	delay := f.placeDelay
	f.mu.Unlock()

	if err := wait(ctx, delay); err != nil {
		return types.OrderResp{}, err
	}
	return resp, nil
}

func (f *fakeBroker) CloseOrder(ctx context.Context, req types.OrderReq) (types.OrderResp, error) {
	f.mu.Lock()
	if f.failClose {
		f.mu.Unlock()
		return types.OrderResp{}, errBrokerDown
	}
	f.seq++
	f.closed = append(f.closed, req)
	resp := types.OrderResp{OrderID: fmt.Sprintf("CLOSE-%d", f.seq), Status: "COMPLETE"}
	delay := f.closeDelay
	f.mu.Unlock()

	if err := wait(ctx, delay); err != nil {
		return types.OrderResp{}, err
	}
	return resp, nil
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeBroker) counts() (placed, closed, ltp int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.placed), len(f.closed), f.ltpCalls
}

// recordingSink captures published events.
type recordingSink struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingSink) Publish(eventType, symbol string, data any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, eventType)
}

func (r *recordingSink) has(eventType string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.events {
		if e == eventType {
			return true
		}
	}
	return false
}

// memJournal keeps closed trades in memory.
type memJournal struct {
	mu     sync.Mutex
	trades []types.TradeSummary
}

func (j *memJournal) Record(ctx context.Context, s types.TradeSummary) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.trades = append(j.trades, s)
	return nil
}

func (j *memJournal) Recent(ctx context.Context, limit int) ([]types.TradeSummary, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]types.TradeSummary(nil), j.trades...), nil
}

// testConfig returns lookback 2 with the default 3% / 1% thresholds and a
// monitor that is only started explicitly.
func testConfig() *store.Config {
	cfg := store.Default()
	cfg.Strategy.Lookback = 2
	cfg.Monitor.AutoStart = false
	cfg.Monitor.StartOnEntry = false
	cfg.Monitor.IntervalSeconds = 0.01
	cfg.Broker.TimeoutSeconds = 1
	return cfg
}

func bar(symbol string, high, low, close float64) types.PriceBar {
	return types.PriceBar{Symbol: symbol, High: high, Low: low, Close: close}
}

// levelBars produce a swing high of 110 at index 2 and a swing low of 90
// at index 4 for lookback 2, with every close inside the range.
func levelBars(symbol string) []types.PriceBar {
	return []types.PriceBar{
		bar(symbol, 100, 95, 98),
		bar(symbol, 104, 96, 102),
		bar(symbol, 110, 100, 105),
		bar(symbol, 106, 97, 99),
		bar(symbol, 103, 90, 92),
		bar(symbol, 101, 93, 97),
		bar(symbol, 104, 95, 100),
		bar(symbol, 105, 96, 101),
	}
}

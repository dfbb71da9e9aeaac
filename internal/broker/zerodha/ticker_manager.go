package zerodha

import (
	"context"
	"fmt"
	"sync"

	"breakout-trading-bot/internal/logger"

	kiteticker "github.com/zerodha/gokiteconnect/v4/ticker"
)

type tickerManager struct {
	ticker      *kiteticker.Ticker
	apiKey      string
	accessToken string

	cache  *priceCache
	mapper *instrumentMapper

	mu        sync.Mutex
	connected bool
	tokens    []uint32
}

var _ TickerManager = (*tickerManager)(nil)

func (tm *tickerManager) Start(ctx context.Context) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if tm.ticker != nil {
		return nil
	}

	tm.ticker = kiteticker.New(tm.apiKey, tm.accessToken)
	tm.setupEventHandlers()

	go func() {
		logger.Info(ctx, "Starting Zerodha WebSocket ticker")
		tm.ticker.Serve()
	}()

	return nil
}

func (tm *tickerManager) Stop(ctx context.Context) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	if tm.ticker != nil {
		logger.Info(ctx, "Stopping Zerodha WebSocket ticker")
		tm.ticker.Stop()
		tm.ticker = nil
	}
	tm.connected = false
	tm.cache.clear()
}

func (tm *tickerManager) Subscribe(ctx context.Context, symbols []string) error {
	tokens := make([]uint32, 0, len(symbols))
	for _, symbol := range symbols {
		token, ok := tm.mapper.getToken(symbol)
		if !ok {
			return fmt.Errorf("no instrument token for %s", symbol)
		}
		tokens = append(tokens, token)
	}

	tm.mu.Lock()
	defer tm.mu.Unlock()

	tm.tokens = tokens
	if !tm.connected {
		// onConnect subscribes once the socket is up
		return nil
	}
	if err := tm.subscribeLocked(); err != nil {
		return err
	}

	logger.Info(ctx, "Subscribed to symbols for live prices", "symbols", symbols, "count", len(symbols))
	return nil
}

func (tm *tickerManager) subscribeLocked() error {
	if tm.ticker == nil || len(tm.tokens) == 0 {
		return nil
	}
	if err := tm.ticker.Subscribe(tm.tokens); err != nil {
		return fmt.Errorf("failed to subscribe to symbols: %w", err)
	}
	if err := tm.ticker.SetMode(kiteticker.ModeLTP, tm.tokens); err != nil {
		return fmt.Errorf("failed to set ticker mode: %w", err)
	}
	return nil
}

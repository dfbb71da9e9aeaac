package engine

import (
	"time"

	"breakout-trading-bot/internal/interfaces"
	"breakout-trading-bot/internal/store"
)

type Option func(*Engine)

// WithJournal records every closed trade in j.
func WithJournal(j interfaces.TradeJournal) Option {
	return func(e *Engine) { e.journal = j }
}

// WithEvents publishes lifecycle events to sink.
func WithEvents(sink interfaces.EventSink) Option {
	return func(e *Engine) {
		if sink != nil {
			e.events = sink
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func New(cfg *store.Config, brk interfaces.Broker, opts ...Option) interfaces.Engine {
	return newEngine(cfg, brk, opts...)
}

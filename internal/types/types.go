package types

import (
	"strings"
	"time"
)

// Direction is the side of an open position.
type Direction string

const (
	DirectionLong  Direction = "LONG"
	DirectionShort Direction = "SHORT"
)

// EntrySide returns the order side that opens a position in this direction.
func (d Direction) EntrySide() string {
	if d == DirectionShort {
		return "SELL"
	}
	return "BUY"
}

// ExitSide returns the order side that flattens a position in this direction.
func (d Direction) ExitSide() string {
	if d == DirectionShort {
		return "BUY"
	}
	return "SELL"
}

// State is the lifecycle state of a per-symbol strategy.
type State string

const (
	StateIdle        State = "IDLE"
	StateLongActive  State = "LONG_ACTIVE"
	StateShortActive State = "SHORT_ACTIVE"
)

// ExitReason records which rule closed a trade.
type ExitReason string

const (
	ExitProfit ExitReason = "PROFIT"
	ExitStop   ExitReason = "STOP"
	ExitManual ExitReason = "MANUAL"
)

// EntrySource records what opened a trade.
type EntrySource string

const (
	SourceBreakout EntrySource = "BREAKOUT"
	SourceManual   EntrySource = "MANUAL"
)

// NormalizeSymbol trims and upper-cases a trading symbol.
func NormalizeSymbol(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

type PriceBar struct {
	Symbol    string    `json:"symbol"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Timestamp time.Time `json:"timestamp"`
}

// Level is the current support/resistance pair of a symbol.
// Determined is false until both a swing high and a swing low have been seen.
type Level struct {
	Support    float64 `json:"support,omitempty"`
	Resistance float64 `json:"resistance,omitempty"`
	Determined bool    `json:"determined"`
	Locked     bool    `json:"locked"`
}

// StrategyParams are the tunables of one symbol's strategy.
type StrategyParams struct {
	Lookback   int     `json:"lookback" yaml:"lookback"`
	ProfitPct  float64 `json:"profit_pct" yaml:"profit_pct"`
	StopPct    float64 `json:"stop_pct" yaml:"stop_pct"`
	MaxHistory int     `json:"max_history" yaml:"max_history"`
}

// DefaultStrategyParams returns lookback 10, 3% target, 1% stop and a 50-bar history cap.
func DefaultStrategyParams() StrategyParams {
	return StrategyParams{Lookback: 10, ProfitPct: 0.03, StopPct: 0.01, MaxHistory: 50}
}

type Trade struct {
	ID          string      `json:"id"`
	Symbol      string      `json:"symbol"`
	Direction   Direction   `json:"direction"`
	EntryPrice  float64     `json:"entry_price"`
	Quantity    int         `json:"quantity"`
	TargetPrice float64     `json:"target_price"`
	StopPrice   float64     `json:"stop_price"`
	OpenedAt    time.Time   `json:"opened_at"`
	OrderID     string      `json:"order_id"`
	Source      EntrySource `json:"source"`
}

// TradeSummary describes a closed trade.
type TradeSummary struct {
	TradeID    string      `json:"trade_id"`
	Symbol     string      `json:"symbol"`
	Direction  Direction   `json:"direction"`
	EntryPrice float64     `json:"entry_price"`
	ExitPrice  float64     `json:"exit_price"`
	Quantity   int         `json:"quantity"`
	OpenedAt   time.Time   `json:"opened_at"`
	ClosedAt   time.Time   `json:"closed_at"`
	Reason     ExitReason  `json:"reason"`
	PnL        float64     `json:"pnl"`
	PnLPercent float64     `json:"pnl_percent"`
	EntryOrder string      `json:"entry_order_id"`
	ExitOrder  string      `json:"exit_order_id"`
	Source     EntrySource `json:"source"`
}

// ManualAction is an operator command that opens a trade without a breakout.
type ManualAction struct {
	Symbol   string    `json:"symbol"`
	Action   Direction `json:"action"`
	Quantity int       `json:"quantity"`
}

// BarResult reports what a single price bar did to its strategy.
type BarResult struct {
	Symbol        string    `json:"symbol"`
	State         State     `json:"state"`
	LevelsUpdated bool      `json:"levels_updated"`
	Level         Level     `json:"level"`
	Signal        Direction `json:"signal,omitempty"`
	Trade         *Trade    `json:"trade,omitempty"`
	OrderError    string    `json:"order_error,omitempty"`
	HistoryLength int       `json:"history_length"`
}

type StrategyStatus struct {
	Symbol        string         `json:"symbol"`
	State         State          `json:"state"`
	Level         Level          `json:"level"`
	ActiveTrade   *Trade         `json:"active_trade"`
	HistoryLength int            `json:"history_length"`
	Params        StrategyParams `json:"params"`
	ExitFailures  int            `json:"exit_failures,omitempty"`
}

type MonitorStatus struct {
	Running         bool      `json:"running"`
	IntervalSeconds float64   `json:"interval_seconds"`
	WatchedSymbols  []string  `json:"watched_symbols"`
	Strategies      int       `json:"strategies"`
	LastTick        time.Time `json:"last_tick,omitempty"`
}

type OrderReq struct {
	Symbol    string
	Direction Direction
	Qty       int
	Tag       string
}

type OrderResp struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type OHLC struct {
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	LastPrice float64 `json:"last_price"`
}

type Position struct {
	Symbol       string  `json:"symbol"`
	Exchange     string  `json:"exchange"`
	Product      string  `json:"product"`
	Quantity     int     `json:"quantity"`
	AveragePrice float64 `json:"average_price"`
	LastPrice    float64 `json:"last_price"`
	PnL          float64 `json:"pnl"`
}

type Order struct {
	OrderID         string  `json:"order_id"`
	Symbol          string  `json:"symbol"`
	TransactionType string  `json:"transaction_type"`
	Quantity        int     `json:"quantity"`
	AveragePrice    float64 `json:"average_price"`
	Status          string  `json:"status"`
}

type Holding struct {
	Symbol       string  `json:"symbol"`
	Exchange     string  `json:"exchange"`
	Quantity     int     `json:"quantity"`
	AveragePrice float64 `json:"average_price"`
	LastPrice    float64 `json:"last_price"`
	PnL          float64 `json:"pnl"`
}

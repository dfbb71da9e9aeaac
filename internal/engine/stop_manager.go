package engine

import (
	"breakout-trading-bot/internal/types"

	"github.com/shopspring/decimal"
)

var one = decimal.NewFromInt(1)

// stopManager computes and checks the profit target and stop of a trade.
// Arithmetic is decimal so thresholds equal entry × (1 ± pct) exactly.
type stopManager struct {
	profitPct decimal.Decimal
	stopPct   decimal.Decimal
}

// newStopManager creates a stop manager for one symbol's parameters.
func newStopManager(profitPct, stopPct float64) stopManager {
	return stopManager{
		profitPct: decimal.NewFromFloat(profitPct),
		stopPct:   decimal.NewFromFloat(stopPct),
	}
}

// thresholds returns the target and stop for an entry.
//
//   - LONG:  target = entry × (1 + profitPct), stop = entry × (1 − stopPct)
//   - SHORT: target = entry × (1 − profitPct), stop = entry × (1 + stopPct)
func (sm stopManager) thresholds(dir types.Direction, entry float64) (target, stop float64) {
	e := decimal.NewFromFloat(entry)
	if dir == types.DirectionShort {
		return e.Mul(one.Sub(sm.profitPct)).InexactFloat64(), e.Mul(one.Add(sm.stopPct)).InexactFloat64()
	}
	return e.Mul(one.Add(sm.profitPct)).InexactFloat64(), e.Mul(one.Sub(sm.stopPct)).InexactFloat64()
}

// checkExit reports whether ltp closes the trade and why.
// Profit is checked first, so a gap through both thresholds counts as profit.
func checkExit(t *types.Trade, ltp float64) (types.ExitReason, bool) {
	p := decimal.NewFromFloat(ltp)
	target := decimal.NewFromFloat(t.TargetPrice)
	stop := decimal.NewFromFloat(t.StopPrice)

	switch t.Direction {
	case types.DirectionLong:
		if p.GreaterThanOrEqual(target) {
			return types.ExitProfit, true
		}
		if p.LessThanOrEqual(stop) {
			return types.ExitStop, true
		}
	case types.DirectionShort:
		if p.LessThanOrEqual(target) {
			return types.ExitProfit, true
		}
		if p.GreaterThanOrEqual(stop) {
			return types.ExitStop, true
		}
	}
	return "", false
}

// realizedPnL returns the P&L of closing t at exit, and its percentage of the entry.
func realizedPnL(t *types.Trade, exit float64) (pnl, pct float64) {
	e := decimal.NewFromFloat(t.EntryPrice)
	x := decimal.NewFromFloat(exit)
	move := x.Sub(e)
	if t.Direction == types.DirectionShort {
		move = e.Sub(x)
	}
	pnl = move.Mul(decimal.NewFromInt(int64(t.Quantity))).InexactFloat64()
	if !e.IsZero() {
		pct = move.Div(e).Mul(decimal.NewFromInt(100)).Round(4).InexactFloat64()
	}
	return pnl, pct
}

package engine

import (
	"sync"
	"time"

	"breakout-trading-bot/internal/types"

	"github.com/google/uuid"
)

// symbolState is the strategy state of one symbol. Every field is guarded
// by mu, and one transition (including its gateway call) holds mu throughout.
type symbolState struct {
	mu sync.Mutex

	symbol  string
	params  types.StrategyParams
	stops   stopManager
	history []types.PriceBar
	level   types.Level
	trade   *types.Trade

	// consecutive failed close attempts of the open trade
	exitFailures int
}

func newSymbolState(symbol string, params types.StrategyParams) *symbolState {
	return &symbolState{
		symbol: symbol,
		params: params,
		stops:  newStopManager(params.ProfitPct, params.StopPct),
	}
}

func (s *symbolState) state() types.State {
	switch {
	case s.trade == nil:
		return types.StateIdle
	case s.trade.Direction == types.DirectionShort:
		return types.StateShortActive
	default:
		return types.StateLongActive
	}
}

// appendBar records bar, dropping the oldest bars beyond the history cap.
func (s *symbolState) appendBar(bar types.PriceBar) {
	s.history = append(s.history, bar)
	if over := len(s.history) - s.params.MaxHistory; over > 0 {
		s.history = append(s.history[:0:0], s.history[over:]...)
	}
}

// refreshLevel re-runs detection unless the level is locked. It reports
// whether the stored level changed.
func (s *symbolState) refreshLevel() bool {
	if s.level.Locked {
		return false
	}
	lvl, ok := detectLevel(s.history, s.params.Lookback)
	if !ok {
		return false
	}
	if s.level.Determined && lvl.Support == s.level.Support && lvl.Resistance == s.level.Resistance {
		return false
	}
	s.level = lvl
	return true
}

// breakout returns the entry direction signalled by a close, if any.
func (s *symbolState) breakout(close float64) (types.Direction, bool) {
	if s.trade != nil || s.level.Locked || !s.level.Determined {
		return "", false
	}
	if len(s.history) < 2*s.params.Lookback {
		return "", false
	}
	switch {
	case close > s.level.Resistance:
		return types.DirectionLong, true
	case close < s.level.Support:
		return types.DirectionShort, true
	}
	return "", false
}

// open commits a trade after its order was accepted and locks the level.
func (s *symbolState) open(dir types.Direction, price float64, qty int, orderID string, source types.EntrySource, now time.Time) *types.Trade {
	target, stop := s.stops.thresholds(dir, price)
	s.trade = &types.Trade{
		ID:          uuid.New().String(),
		Symbol:      s.symbol,
		Direction:   dir,
		EntryPrice:  price,
		Quantity:    qty,
		TargetPrice: target,
		StopPrice:   stop,
		OpenedAt:    now,
		OrderID:     orderID,
		Source:      source,
	}
	s.level.Locked = true
	s.exitFailures = 0
	return s.trade
}

// clear returns the symbol to Idle with no level and no history, so the
// next entry needs a fresh accumulation of bars.
func (s *symbolState) clear() {
	s.trade = nil
	s.level = types.Level{}
	s.history = nil
	s.exitFailures = 0
}

func (s *symbolState) snapshot() types.StrategyStatus {
	st := types.StrategyStatus{
		Symbol:        s.symbol,
		State:         s.state(),
		Level:         s.level,
		HistoryLength: len(s.history),
		Params:        s.params,
		ExitFailures:  s.exitFailures,
	}
	if s.trade != nil {
		t := *s.trade
		st.ActiveTrade = &t
	}
	return st
}

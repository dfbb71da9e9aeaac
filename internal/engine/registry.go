package engine

import (
	"sort"
	"sync"

	"breakout-trading-bot/internal/types"
)

// registry maps symbols to their state. The map lock only guards membership;
// each entry carries its own lock, so symbols never contend with each other.
type registry struct {
	mu     sync.RWMutex
	states map[string]*symbolState
	params func(symbol string) types.StrategyParams
}

func newRegistry(params func(symbol string) types.StrategyParams) *registry {
	return &registry{
		states: make(map[string]*symbolState),
		params: params,
	}
}

// getOrCreate returns the single state for symbol, creating it on first use.
func (r *registry) getOrCreate(symbol string) *symbolState {
	r.mu.RLock()
	st, ok := r.states[symbol]
	r.mu.RUnlock()
	if ok {
		return st
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if st, ok := r.states[symbol]; ok {
		return st
	}
	st = newSymbolState(symbol, r.params(symbol))
	r.states[symbol] = st
	return st
}

func (r *registry) lookup(symbol string) (*symbolState, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	st, ok := r.states[symbol]
	return st, ok
}

// all returns every state ordered by symbol.
func (r *registry) all() []*symbolState {
	r.mu.RLock()
	out := make([]*symbolState, 0, len(r.states))
	for _, st := range r.states {
		out = append(out, st)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].symbol < out[j].symbol })
	return out
}

func (r *registry) size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.states)
}

// active returns the states holding an open trade at the time of the call.
func (r *registry) active() []*symbolState {
	var out []*symbolState
	for _, st := range r.all() {
		st.mu.Lock()
		open := st.trade != nil
		st.mu.Unlock()
		if open {
			out = append(out, st)
		}
	}
	return out
}

// reset clears a symbol without sending any order. It waits for an
// in-flight transition on the same symbol to finish and reports whether
// a trade was dropped.
func (r *registry) reset(symbol string) (hadTrade, found bool) {
	st, ok := r.lookup(symbol)
	if !ok {
		return false, false
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	hadTrade = st.trade != nil
	st.clear()
	return hadTrade, true
}

func (r *registry) status(symbol string) (types.StrategyStatus, bool) {
	st, ok := r.lookup(symbol)
	if !ok {
		return types.StrategyStatus{}, false
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.snapshot(), true
}

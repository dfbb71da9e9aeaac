package engine

import (
	"breakout-trading-bot/internal/ta"
	"breakout-trading-bot/internal/types"
)

// detectLevel computes support and resistance from the swing points in bars.
// It reports false when the level is undetermined: not enough bars, a missing
// swing kind, or a support that does not sit below resistance.
func detectLevel(bars []types.PriceBar, lookback int) (types.Level, bool) {
	if lookback <= 0 || len(bars) < 2*lookback {
		return types.Level{}, false
	}

	highs := make([]float64, len(bars))
	lows := make([]float64, len(bars))
	for i, b := range bars {
		highs[i] = b.High
		lows[i] = b.Low
	}

	swingHighs := ta.SwingHighs(highs, lookback)
	swingLows := ta.SwingLows(lows, lookback)
	if len(swingHighs) == 0 || len(swingLows) == 0 {
		return types.Level{}, false
	}

	lvl := types.Level{
		Support:    ta.Min(swingLows),
		Resistance: ta.Max(swingHighs),
		Determined: true,
	}
	if lvl.Support >= lvl.Resistance {
		return types.Level{}, false
	}
	return lvl, true
}

package engine

import (
	"math"

	"breakout-trading-bot/internal/types"
)

func validPrice(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

// validateBar rejects bars with a missing field or an inverted range.
func validateBar(b types.PriceBar) error {
	if b.Symbol == "" {
		return types.NewValidationError("symbol", "missing")
	}
	fields := []struct {
		name string
		v    float64
	}{{"high", b.High}, {"low", b.Low}, {"close", b.Close}}
	for _, f := range fields {
		if !validPrice(f.v) {
			return types.NewValidationError(f.name, "missing or not a positive price")
		}
	}
	if b.High < b.Low {
		return types.NewValidationError("high", "below low")
	}
	return nil
}

func validateAction(a types.ManualAction) error {
	if a.Symbol == "" {
		return types.NewValidationError("symbol", "missing")
	}
	if a.Action != types.DirectionLong && a.Action != types.DirectionShort {
		return types.NewValidationError("action", "must be buy or sell")
	}
	if a.Quantity < 0 {
		return types.NewValidationError("quantity", "must be positive")
	}
	return nil
}

func copyTrade(t *types.Trade) *types.Trade {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

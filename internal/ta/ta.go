package ta

// SwingHighs returns the values of every bar in vals that dominates the lookback
// bars on each side. Earlier bars must be strictly lower and later bars no higher,
// so a run of equal peaks yields only its first bar.
func SwingHighs(vals []float64, lookback int) []float64 {
	return swings(vals, lookback, func(center, other float64) bool { return other > center },
		func(center, other float64) bool { return other >= center })
}

// SwingLows is SwingHighs mirrored on lows.
func SwingLows(vals []float64, lookback int) []float64 {
	return swings(vals, lookback, func(center, other float64) bool { return other < center },
		func(center, other float64) bool { return other <= center })
}

func swings(vals []float64, lookback int, beatsLater, beatsEarlier func(center, other float64) bool) []float64 {
	if lookback <= 0 || len(vals) < 2*lookback+1 {
		return nil
	}
	var out []float64
	for i := lookback; i+lookback < len(vals); i++ {
		if isSwing(vals, i, lookback, beatsLater, beatsEarlier) {
			out = append(out, vals[i])
		}
	}
	return out
}

func isSwing(vals []float64, i, lookback int, beatsLater, beatsEarlier func(center, other float64) bool) bool {
	c := vals[i]
	for j := i - lookback; j < i; j++ {
		if beatsEarlier(c, vals[j]) {
			return false
		}
	}
	for j := i + 1; j <= i+lookback; j++ {
		if beatsLater(c, vals[j]) {
			return false
		}
	}
	return true
}

func Max(vals []float64) float64 {
	m := vals[0]
	for _, v := range vals[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

func Min(vals []float64) float64 {
	m := vals[0]
	for _, v := range vals[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

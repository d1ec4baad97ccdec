package indicator

// EMASeries computes the exponential moving average sequence for the series.
// The first value is seeded with the simple average of the first period
// prices, then each later price folds in with multiplier 2/(period+1).
// A series shorter than the period degrades to a single-element sequence
// holding the last price (zero for an empty series).
func EMASeries(prices []float64, period int) []float64 {
	if period <= 0 || len(prices) < period {
		if len(prices) == 0 {
			return []float64{0}
		}
		return []float64{prices[len(prices)-1]}
	}

	multiplier := 2.0 / float64(period+1)

	var seed float64
	for _, p := range prices[:period] {
		seed += p
	}
	ema := []float64{seed / float64(period)}

	for i := period; i < len(prices); i++ {
		ema = append(ema, prices[i]*multiplier+ema[len(ema)-1]*(1-multiplier))
	}
	return ema
}

// TrailingEMA computes a single EMA value seeded at the first price and
// recurred over only the trailing period prices, with the smoothing alpha
// scaled by alphaFactor and capped at 1. This is the more responsive form
// the EMA engine uses; it deliberately ignores history older than the
// window.
func TrailingEMA(prices []float64, period int, alphaFactor float64) float64 {
	if len(prices) == 0 {
		return 0
	}
	if period <= 0 {
		return prices[len(prices)-1]
	}

	alpha := 2.0 / float64(period+1) * alphaFactor
	if alpha > 1 {
		alpha = 1
	}

	ema := prices[0]
	rest := prices[1:]
	if len(rest) > period {
		rest = rest[len(rest)-period:]
	}
	for _, p := range rest {
		ema = p*alpha + ema*(1-alpha)
	}
	return ema
}

package indicator

import "math"

// Bands is one Bollinger Bands computation over a trailing window.
type Bands struct {
	Upper  float64
	Middle float64
	Lower  float64
	Width  float64
	Sigma  float64 // population standard deviation of the window
}

// BollingerBands computes the SMA and population standard deviation over the
// trailing period prices and places the bands at middle ± stdDevMult·σ.
// A series shorter than the period degrades to synthetic ±2% bands around
// the last price so callers always get a usable envelope.
func BollingerBands(prices []float64, period int, stdDevMult float64) Bands {
	if period <= 0 || len(prices) < period {
		var last float64
		if len(prices) > 0 {
			last = prices[len(prices)-1]
		}
		return Bands{
			Upper:  last * 1.02,
			Middle: last,
			Lower:  last * 0.98,
			Width:  last * 0.04,
		}
	}

	window := prices[len(prices)-period:]
	var sum float64
	for _, p := range window {
		sum += p
	}
	sma := sum / float64(period)

	var sqSum float64
	for _, p := range window {
		d := p - sma
		sqSum += d * d
	}
	sigma := math.Sqrt(sqSum / float64(period))

	upper := sma + stdDevMult*sigma
	lower := sma - stdDevMult*sigma
	return Bands{
		Upper:  upper,
		Middle: sma,
		Lower:  lower,
		Width:  upper - lower,
		Sigma:  sigma,
	}
}

// BandPosition normalizes price into [0, 1] relative to the band envelope:
// 1 at or above the upper band, 0 at or below the lower band, the linear
// position in between otherwise. A zero-width band reports 1 when the price
// sits on it, keeping the zero-variance case division-free.
func BandPosition(price, upper, lower float64) float64 {
	if price >= upper {
		return 1.0
	}
	if price <= lower {
		return 0.0
	}
	return (price - lower) / (upper - lower)
}

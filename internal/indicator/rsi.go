// Package indicator holds the pure time-series math used by the strategy
// engines. Every function takes an ordered price slice (newest last) and
// never mutates it.
package indicator

// RSI computes the Relative Strength Index of the series using Wilder
// smoothing: the average gain/loss is seeded with the mean over the first
// period steps, then each remaining step folds in as
// avg = (avg*(period-1) + new) / period.
//
// Returns the neutral value 50 when the series is shorter than period+1
// points.
func RSI(prices []float64, period int) float64 {
	if period <= 0 || len(prices) < period+1 {
		return 50.0
	}

	gains := make([]float64, 0, len(prices)-1)
	losses := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		change := prices[i] - prices[i-1]
		if change > 0 {
			gains = append(gains, change)
			losses = append(losses, 0)
		} else {
			gains = append(gains, 0)
			losses = append(losses, -change)
		}
	}

	var gainSum, lossSum float64
	for i := 0; i < period; i++ {
		gainSum += gains[i]
		lossSum += losses[i]
	}
	avgGain := gainSum / float64(period)
	avgLoss := lossSum / float64(period)

	for i := period; i < len(gains); i++ {
		avgGain = (avgGain*float64(period-1) + gains[i]) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + losses[i]) / float64(period)
	}

	if avgLoss == 0 {
		return 100.0
	}
	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}

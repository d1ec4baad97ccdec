package indicator

// SMA computes the simple moving average over the trailing period prices.
// A series shorter than the period degrades to the last price (zero for an
// empty series).
func SMA(prices []float64, period int) float64 {
	if len(prices) == 0 {
		return 0
	}
	if period <= 0 || len(prices) < period {
		return prices[len(prices)-1]
	}

	var sum float64
	for _, p := range prices[len(prices)-period:] {
		sum += p
	}
	return sum / float64(period)
}

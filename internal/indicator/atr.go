package indicator

import "math"

// TrueRanges computes the per-step true range of a close-only series:
// |max(p_t, p_{t-1}) - min(p_t, p_{t-1})|. With no high/low data this
// collapses to the absolute step change, which is the intended
// approximation for a single price stream.
func TrueRanges(prices []float64) []float64 {
	if len(prices) < 2 {
		return nil
	}
	trs := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		hi := math.Max(prices[i], prices[i-1])
		lo := math.Min(prices[i], prices[i-1])
		trs = append(trs, math.Abs(hi-lo))
	}
	return trs
}

// ATR computes the Average True Range as the plain mean of the trailing
// period true ranges. Returns 0 when the series is shorter than period+1
// points.
func ATR(prices []float64, period int) float64 {
	if period <= 0 || len(prices) < period+1 {
		return 0
	}
	trs := TrueRanges(prices)
	if len(trs) < period {
		return 0
	}
	var sum float64
	for _, tr := range trs[len(trs)-period:] {
		sum += tr
	}
	return sum / float64(period)
}

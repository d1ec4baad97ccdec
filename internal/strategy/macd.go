package strategy

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/perpstack/trade-executor/internal/indicator"
	"github.com/perpstack/trade-executor/internal/signal"
)

// MACD is a trend engine built on the spread between a fast and a slow EMA
// and its own signal-line EMA.
type MACD struct {
	Base
}

// NewMACD creates a MACD engine for token with optional overrides.
func NewMACD(token string, overrides Params, log zerolog.Logger) *MACD {
	s := &MACD{}
	s.Base = newBase("MACD", token, s.DefaultParams(), overrides, log)
	return s
}

// DefaultParams returns the fixed default configuration.
func (s *MACD) DefaultParams() Params {
	return Params{
		ParamFastPeriod:         12,
		ParamSlowPeriod:         26,
		ParamSignalPeriod:       9,
		ParamHistogramThreshold: 0.01,
	}
}

// SignalKind classifies the engine.
func (s *MACD) SignalKind() string { return KindTrend }

// macdValues holds the last point of each MACD component.
type macdValues struct {
	macd      float64
	signal    float64
	histogram float64
}

func (s *MACD) calculate(prices []float64) macdValues {
	if len(prices) < s.params.Int(ParamSlowPeriod) {
		return macdValues{}
	}

	fast := indicator.EMASeries(prices, s.params.Int(ParamFastPeriod))
	slow := indicator.EMASeries(prices, s.params.Int(ParamSlowPeriod))

	// The slow EMA sequence is shorter; align both to its length.
	minLen := min(len(fast), len(slow))
	if minLen < 1 {
		return macdValues{}
	}
	fast = fast[len(fast)-minLen:]
	slow = slow[len(slow)-minLen:]

	macdLine := make([]float64, minLen)
	for i := range macdLine {
		macdLine[i] = fast[i] - slow[i]
	}
	signalLine := indicator.EMASeries(macdLine, s.params.Int(ParamSignalPeriod))

	lastMACD := macdLine[len(macdLine)-1]
	lastSignal := signalLine[len(signalLine)-1]
	return macdValues{
		macd:      lastMACD,
		signal:    lastSignal,
		histogram: lastMACD - lastSignal,
	}
}

// Analyze triggers on the MACD/signal-line crossover. The guard condition
// is macd > signal with the histogram magnitude above the threshold; the
// direction then follows the histogram's sign, so float noise that drives
// the histogram negative inside the guard produces a SELL. That is the
// intended, literal behavior.
func (s *MACD) Analyze(prices []float64, currentPrice float64, volumes []float64) signal.Signal {
	if !s.ValidateData(prices, s.params.Int(ParamSlowPeriod)) {
		return signal.HoldSignal("insufficient data for MACD calculation")
	}

	v := s.calculate(prices)
	threshold := s.params.Float(ParamHistogramThreshold)

	kind := signal.Hold
	confidence := 0.0
	reason := "waiting for clear signal"

	if v.macd > v.signal && math.Abs(v.histogram) > threshold {
		histRatio := math.Abs(v.histogram) / math.Max(math.Abs(v.macd), math.Max(math.Abs(v.signal), 0.001))
		// The 0.8 factor discounts a lagging indicator.
		confidence = math.Min(histRatio*2, 1.0) * 0.8
		if v.histogram > 0 {
			kind = signal.Buy
			reason = fmt.Sprintf("MACD bullish crossover: MACD=%.4f, signal=%.4f", v.macd, v.signal)
		} else {
			kind = signal.Sell
			reason = fmt.Sprintf("MACD bearish crossover: MACD=%.4f, signal=%.4f", v.macd, v.signal)
		}
	} else if math.Abs(v.histogram) < threshold {
		confidence = 0.1
		reason = "MACD near crossover point, waiting for confirmation"
	}

	return signal.New(kind, confidence, reason, map[string]any{
		"macd":          v.macd,
		"signal":        v.signal,
		"histogram":     v.histogram,
		"current_price": currentPrice,
	})
}

package strategy

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/perpstack/trade-executor/internal/indicator"
	"github.com/perpstack/trade-executor/internal/signal"
)

// EMA is a trend engine comparing a short and a long exponential average,
// both computed over a trailing window with a tunable responsiveness
// factor.
type EMA struct {
	Base
}

// NewEMA creates an EMA engine for token with optional overrides.
func NewEMA(token string, overrides Params, log zerolog.Logger) *EMA {
	s := &EMA{}
	s.Base = newBase("EMA", token, s.DefaultParams(), overrides, log)
	return s
}

// DefaultParams returns the fixed default configuration. multiplier is
// carried for callers that tune it; alpha_factor is the knob the smoothing
// actually reads.
func (s *EMA) DefaultParams() Params {
	return Params{
		ParamPeriod:           12,
		ParamMultiplier:       0.15,
		ParamComparisonPeriod: 26,
		ParamBufferPercentage: 0.01,
		ParamAlphaFactor:      1.0,
	}
}

// SignalKind classifies the engine.
func (s *EMA) SignalKind() string { return KindTrend }

// emaTrend bundles the derived trend metrics. Trend strength and momentum
// are measured against the last series price; the support/resistance zone
// pads the EMAs by the buffer percentage.
type emaTrend struct {
	trend      float64
	momentum   float64
	support    float64
	resistance float64
	shortEMA   float64
	longEMA    float64
	lastPrice  float64
}

func (s *EMA) calculateTrend(prices []float64) emaTrend {
	alphaFactor := s.params.Float(ParamAlphaFactor)
	shortEMA := indicator.TrailingEMA(prices, s.params.Int(ParamPeriod), alphaFactor)
	longEMA := indicator.TrailingEMA(prices, s.params.Int(ParamComparisonPeriod), alphaFactor)
	lastPrice := prices[len(prices)-1]

	var trend, momentum float64
	if longEMA > 0 {
		trend = (shortEMA - longEMA) / longEMA
	}
	if lastPrice > 0 {
		momentum = (lastPrice - shortEMA) / lastPrice
	}

	buffer := s.params.Float(ParamBufferPercentage)
	return emaTrend{
		trend:      trend,
		momentum:   momentum,
		support:    longEMA * (1 - buffer),
		resistance: shortEMA * (1 + buffer),
		shortEMA:   shortEMA,
		longEMA:    longEMA,
		lastPrice:  lastPrice,
	}
}

// Analyze signals on confirmed trends (strength and momentum agreeing),
// bounces off the long EMA, and trend-aligned continuation.
func (s *EMA) Analyze(prices []float64, currentPrice float64, volumes []float64) signal.Signal {
	need := max(s.params.Int(ParamPeriod), s.params.Int(ParamComparisonPeriod))
	if !s.ValidateData(prices, need) {
		return signal.HoldSignal("insufficient data for EMA calculation")
	}

	t := s.calculateTrend(prices)

	kind := signal.Hold
	confidence := 0.0
	reason := "neutral market conditions"

	switch {
	case t.trend > 0.01 && t.momentum > 0:
		kind = signal.Buy
		confidence = math.Abs(t.trend)*25 + math.Abs(t.momentum)*50
		reason = fmt.Sprintf("bullish EMA crossover: short=%.2f, long=%.2f, trend=%.1f%%",
			t.shortEMA, t.longEMA, t.trend*100)

	case t.trend < -0.01 && t.momentum < 0:
		kind = signal.Sell
		confidence = math.Abs(t.trend)*25 + math.Abs(t.momentum)*50
		reason = fmt.Sprintf("bearish EMA crossover: short=%.2f, long=%.2f, trend=%.1f%%",
			t.shortEMA, t.longEMA, t.trend*100)

	case currentPrice > 0 && math.Abs(currentPrice-t.longEMA)/currentPrice < 0.005:
		if t.trend > 0 {
			kind = signal.Buy
			reason = fmt.Sprintf("price bouncing from EMA support: %.2f", currentPrice)
		} else {
			kind = signal.Sell
			reason = fmt.Sprintf("price testing EMA resistance: %.2f", currentPrice)
		}
		confidence = 0.4

	case t.trend > 0 && currentPrice > t.shortEMA:
		confidence = 0.3
		reason = fmt.Sprintf("trend continuation: %.2f above EMAs", currentPrice)

	case t.trend < 0 && currentPrice < t.shortEMA:
		confidence = 0.3
		reason = fmt.Sprintf("trend continuation: %.2f below EMAs", currentPrice)
	}

	return signal.New(kind, confidence, reason, map[string]any{
		"trend":                  t.trend,
		"momentum":               t.momentum,
		"support":                t.support,
		"resistance":             t.resistance,
		"short_ema":              t.shortEMA,
		"long_ema":               t.longEMA,
		"current_price":          currentPrice,
		"trend_strength_percent": t.trend * 100,
		"momentum_percent":       t.momentum * 100,
	})
}

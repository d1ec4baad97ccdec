package strategy

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/perpstack/trade-executor/internal/indicator"
	"github.com/perpstack/trade-executor/internal/signal"
)

// Bollinger is the band-based volatility engine: breakouts beyond the
// envelope, bounces off it, squeeze releases and mid-band drift each map to
// their own signal tier.
type Bollinger struct {
	Base
}

// NewBollinger creates a Bollinger Bands engine for token with optional
// overrides.
func NewBollinger(token string, overrides Params, log zerolog.Logger) *Bollinger {
	s := &Bollinger{}
	s.Base = newBase("BollingerBands", token, s.DefaultParams(), overrides, log)
	return s
}

// DefaultParams returns the fixed default configuration.
func (s *Bollinger) DefaultParams() Params {
	return Params{
		ParamPeriod:             20,
		ParamStdDev:             2.0,
		ParamBandWidthThreshold: 0.02,
		ParamBreakoutStrength:   0.01,
		ParamUseSqueeze:         true,
	}
}

// SignalKind classifies the engine.
func (s *Bollinger) SignalKind() string { return KindVolatility }

// squeezeDetected reports whether the current band width has contracted well
// below its recent average. Widths are re-sampled over a trailing 20-point
// rolling window of period-length sub-windows.
func (s *Bollinger) squeezeDetected(prices []float64, currentWidth float64) bool {
	if len(prices) < 20 {
		return false
	}

	period := s.params.Int(ParamPeriod)
	stdDevMult := s.params.Float(ParamStdDev)

	var widths []float64
	for i := len(prices) - 19; i < len(prices); i++ {
		lo := i - 19
		if lo < 0 {
			lo = 0
		}
		window := prices[lo : i+1]
		if len(window) >= period {
			widths = append(widths, indicator.BollingerBands(window, period, stdDevMult).Width)
		}
	}
	if len(widths) < 6 {
		return false
	}

	var sum float64
	for _, w := range widths {
		sum += w
	}
	avg := sum / float64(len(widths))
	return currentWidth < avg*s.params.Float(ParamBandWidthThreshold)
}

// Analyze walks the decision tiers in priority order: strong breakout,
// plain band bounce, squeeze release, mid-band proximity. Zero variance
// (σ=0) is guarded explicitly: breakout confidence pins to 1 and the
// mid-band tier is skipped rather than dividing by zero.
func (s *Bollinger) Analyze(prices []float64, currentPrice float64, volumes []float64) signal.Signal {
	period := s.params.Int(ParamPeriod)
	if !s.ValidateData(prices, period) {
		return signal.HoldSignal("insufficient data for Bollinger Bands calculation")
	}

	bands := indicator.BollingerBands(prices, period, s.params.Float(ParamStdDev))
	position := indicator.BandPosition(currentPrice, bands.Upper, bands.Lower)
	breakout := s.params.Float(ParamBreakoutStrength)

	useSqueeze := s.params.Bool(ParamUseSqueeze)
	squeeze := false
	if useSqueeze {
		squeeze = s.squeezeDetected(prices, bands.Width)
	}

	kind := signal.Hold
	confidence := 0.0
	reason := "price within normal range"

	switch {
	case currentPrice >= bands.Upper*(1+breakout):
		kind = signal.Sell
		confidence = breakoutConfidence(currentPrice-bands.Upper, bands.Sigma)
		reason = fmt.Sprintf("strong upper band breakout: price %.2f vs upper band %.2f", currentPrice, bands.Upper)

	case currentPrice <= bands.Lower*(1-breakout):
		kind = signal.Buy
		confidence = breakoutConfidence(bands.Lower-currentPrice, bands.Sigma)
		reason = fmt.Sprintf("strong lower band breakout: price %.2f vs lower band %.2f", currentPrice, bands.Lower)

	case currentPrice > bands.Upper:
		kind = signal.Sell
		confidence = 0.6
		reason = fmt.Sprintf("price bouncing off upper band: %.2f vs %.2f", currentPrice, bands.Upper)

	case currentPrice < bands.Lower:
		kind = signal.Buy
		confidence = 0.6
		reason = fmt.Sprintf("price bouncing off lower band: %.2f vs %.2f", currentPrice, bands.Lower)

	case squeeze:
		switch {
		case position > 0.8:
			kind = signal.Sell
			confidence = 0.4
			reason = fmt.Sprintf("band squeeze near resistance: %.2f", position)
		case position < 0.2:
			kind = signal.Buy
			confidence = 0.4
			reason = fmt.Sprintf("band squeeze near support: %.2f", position)
		default:
			confidence = 0.3
			reason = "band squeeze detected, awaiting breakout"
		}

	case bands.Sigma > 0 && math.Abs(currentPrice-bands.Middle)/bands.Sigma < 0.5:
		if position > 0.5 {
			kind = signal.Sell
			confidence = 0.2
			reason = fmt.Sprintf("price approaching middle band from above: %.2f", currentPrice)
		} else {
			kind = signal.Buy
			confidence = 0.2
			reason = fmt.Sprintf("price approaching middle band from below: %.2f", currentPrice)
		}
	}

	return signal.New(kind, confidence, reason, map[string]any{
		"position":         position,
		"band_width":       bands.Width,
		"std_dev":          bands.Sigma,
		"upper_band":       bands.Upper,
		"middle_band":      bands.Middle,
		"lower_band":       bands.Lower,
		"squeeze_detected": squeeze,
	})
}

// breakoutConfidence scales the excursion past a band by the window σ.
// With σ=0 any excursion past the (collapsed) band is maximal.
func breakoutConfidence(excursion, sigma float64) float64 {
	if sigma <= 0 {
		return 1.0
	}
	return excursion / sigma
}

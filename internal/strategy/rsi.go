package strategy

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/perpstack/trade-executor/internal/indicator"
	"github.com/perpstack/trade-executor/internal/signal"
)

// RSI is the momentum engine: it sells overbought extremes and buys
// oversold extremes of the Wilder RSI oscillator.
type RSI struct {
	Base
}

// NewRSI creates an RSI engine for token with optional overrides.
func NewRSI(token string, overrides Params, log zerolog.Logger) *RSI {
	s := &RSI{}
	s.Base = newBase("RSI", token, s.DefaultParams(), overrides, log)
	return s
}

// DefaultParams returns the fixed default configuration. confirmation_bars
// is carried for callers that tune it but does not gate signals yet.
func (s *RSI) DefaultParams() Params {
	return Params{
		ParamPeriod:           14,
		ParamOverbought:       70.0,
		ParamOversold:         30.0,
		ParamNeutralHigh:      60.0,
		ParamNeutralLow:       40.0,
		ParamConfirmationBars: 1,
	}
}

// SignalKind classifies the engine.
func (s *RSI) SignalKind() string { return KindMomentum }

// Analyze maps the RSI level to a signal. Confidence scales with how far
// past the threshold the oscillator sits, saturating 30 RSI points beyond
// it.
func (s *RSI) Analyze(prices []float64, currentPrice float64, volumes []float64) signal.Signal {
	period := s.params.Int(ParamPeriod)
	if !s.ValidateData(prices, period+1) {
		return signal.HoldSignal("insufficient data for RSI calculation")
	}

	rsi := indicator.RSI(prices, period)
	overbought := s.params.Float(ParamOverbought)
	oversold := s.params.Float(ParamOversold)

	switch {
	case rsi >= overbought:
		confidence := (rsi - overbought) / 30
		return signal.New(signal.Sell, confidence,
			fmt.Sprintf("RSI overbought at %.2f (>= %.0f)", rsi, overbought),
			map[string]any{"rsi": rsi, "level": "overbought"})

	case rsi <= oversold:
		confidence := (oversold - rsi) / 30
		return signal.New(signal.Buy, confidence,
			fmt.Sprintf("RSI oversold at %.2f (<= %.0f)", rsi, oversold),
			map[string]any{"rsi": rsi, "level": "oversold"})

	case rsi > s.params.Float(ParamNeutralHigh):
		return signal.New(signal.Hold, 0.3,
			fmt.Sprintf("RSI in moderate overbought zone: %.2f", rsi),
			map[string]any{"rsi": rsi, "level": "moderate_overbought"})

	case rsi < s.params.Float(ParamNeutralLow):
		return signal.New(signal.Hold, 0.3,
			fmt.Sprintf("RSI in moderate oversold zone: %.2f", rsi),
			map[string]any{"rsi": rsi, "level": "moderate_oversold"})

	default:
		return signal.New(signal.Hold, 0.1,
			fmt.Sprintf("RSI in neutral zone: %.2f", rsi),
			map[string]any{"rsi": rsi, "level": "neutral"})
	}
}

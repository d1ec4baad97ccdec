package strategy

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/perpstack/trade-executor/internal/indicator"
	"github.com/perpstack/trade-executor/internal/signal"
)

// ATR is the range-based volatility engine: momentum breakouts relative to
// the average true range, high-volatility continuation, and tests of
// ATR-derived support/resistance.
type ATR struct {
	Base
}

// NewATR creates an ATR engine for token with optional overrides.
func NewATR(token string, overrides Params, log zerolog.Logger) *ATR {
	s := &ATR{}
	s.Base = newBase("ATR", token, s.DefaultParams(), overrides, log)
	return s
}

// DefaultParams returns the fixed default configuration.
func (s *ATR) DefaultParams() Params {
	return Params{
		ParamPeriod:            14,
		ParamATRMultiplier:     2.0,
		ParamRiskPercentage:    0.02,
		ParamBreakoutThreshold: 1.5,
		ParamTrendFilter:       true,
	}
}

// SignalKind classifies the engine.
func (s *ATR) SignalKind() string { return KindVolatility }

// Analyze walks the tiers in priority order: ATR breakout, volatility
// continuation, support/resistance test. Momentum is the percent change
// over the trailing five points, or the whole series when shorter.
func (s *ATR) Analyze(prices []float64, currentPrice float64, volumes []float64) signal.Signal {
	period := s.params.Int(ParamPeriod)
	if !s.ValidateData(prices, period+2) {
		return signal.HoldSignal("insufficient data for ATR calculation")
	}

	atr := indicator.ATR(prices, period)
	if atr <= 0 {
		return signal.HoldSignal("cannot calculate valid ATR from data")
	}

	// Support/resistance anchored on the last series price.
	lastPrice := prices[len(prices)-1]
	atrDistance := atr * s.params.Float(ParamATRMultiplier)
	support := math.Max(lastPrice-atrDistance, 0)
	resistance := lastPrice + atrDistance

	// Short periods validate with fewer than five points; shrink the
	// momentum window to whatever the series has.
	window := 5
	if len(prices) < window {
		window = len(prices)
	}
	recent := prices[len(prices)-window:]
	priceChange := (currentPrice - recent[0]) / recent[0] * 100

	var volatilityPct float64
	if currentPrice > 0 {
		volatilityPct = atr / currentPrice * 100
	}

	kind := signal.Hold
	confidence := 0.0
	reason := "neutral market conditions"

	breakoutDistance := atr * s.params.Float(ParamBreakoutThreshold)

	switch {
	case priceChange > breakoutDistance:
		kind = signal.Buy
		confidence = priceChange / (volatilityPct + 0.01)
		reason = fmt.Sprintf("strong upward momentum: %.1f%% vs ATR breakout: %.1f", priceChange, breakoutDistance)

	case priceChange < -breakoutDistance:
		kind = signal.Sell
		confidence = -priceChange / (volatilityPct + 0.01)
		reason = fmt.Sprintf("strong downward momentum: %.1f%% vs ATR breakout: %.1f", priceChange, breakoutDistance)

	case volatilityPct > s.params.Float(ParamRiskPercentage)*100:
		if priceChange > 0 {
			kind = signal.Buy
			confidence = math.Min(priceChange/volatilityPct, 0.7)
		} else {
			kind = signal.Sell
			confidence = math.Min(-priceChange/volatilityPct, 0.7)
		}
		reason = fmt.Sprintf("high volatility continuation: ATR=%.1f%%", volatilityPct)

	case math.Abs(currentPrice-support) < atr && priceChange > 0:
		kind = signal.Buy
		confidence = math.Min(math.Abs(priceChange)/volatilityPct, 0.5)
		reason = fmt.Sprintf("price testing support at %.2f with upward bias", support)

	case math.Abs(currentPrice-resistance) < atr && priceChange < 0:
		kind = signal.Sell
		confidence = math.Min(math.Abs(priceChange)/volatilityPct, 0.5)
		reason = fmt.Sprintf("price testing resistance at %.2f with downward bias", resistance)
	}

	return signal.New(kind, confidence, reason, map[string]any{
		"atr":                   atr,
		"current_price":         currentPrice,
		"volatility_percentage": volatilityPct,
		"price_change_percent":  priceChange,
		"support":               support,
		"resistance":            resistance,
		"risk_per_trade":        s.params.Float(ParamRiskPercentage),
	})
}

// PositionSize derives an order quantity from the ATR stop distance and the
// per-trade risk budget, capped at 95% of the balance at current price.
func (s *ATR) PositionSize(atr, currentPrice, accountBalance float64) float64 {
	if currentPrice <= 0 || atr <= 0 || accountBalance <= 0 {
		return 0
	}
	stopDistance := atr * s.params.Float(ParamATRMultiplier)
	if stopDistance <= 0 {
		return 0
	}
	size := accountBalance * s.params.Float(ParamRiskPercentage) / stopDistance
	maxSize := accountBalance / currentPrice * 0.95
	return math.Min(size, maxSize)
}

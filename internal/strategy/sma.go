package strategy

import (
	"fmt"
	"math"

	"github.com/rs/zerolog"

	"github.com/perpstack/trade-executor/internal/indicator"
	"github.com/perpstack/trade-executor/internal/signal"
)

// SMA is a trend engine with two modes: price deviation from a single
// moving average, or a golden/death cross between a short and a long one.
type SMA struct {
	Base
}

// NewSMA creates an SMA engine for token with optional overrides.
func NewSMA(token string, overrides Params, log zerolog.Logger) *SMA {
	s := &SMA{}
	s.Base = newBase("SMA", token, s.DefaultParams(), overrides, log)
	return s
}

// DefaultParams returns the fixed default configuration. The multiple-MA
// periods only matter when use_multiple_ma is set.
func (s *SMA) DefaultParams() Params {
	return Params{
		ParamPeriod:           20,
		ParamBufferPercentage: 0.01,
		ParamUseMultipleMA:    false,
		ParamShortMAPeriod:    10,
		ParamLongMAPeriod:     50,
	}
}

// SignalKind classifies the engine.
func (s *SMA) SignalKind() string { return KindTrend }

// Analyze dispatches on the configured mode.
func (s *SMA) Analyze(prices []float64, currentPrice float64, volumes []float64) signal.Signal {
	if !s.ValidateData(prices, s.params.Int(ParamPeriod)) {
		return signal.HoldSignal("insufficient data for SMA calculation")
	}

	if s.params.Bool(ParamUseMultipleMA) {
		need := max(s.params.Int(ParamShortMAPeriod), s.params.Int(ParamLongMAPeriod))
		if len(prices) < need {
			return signal.HoldSignal("insufficient data for multiple MA strategy")
		}
		return s.analyzeMultipleMA(prices, currentPrice)
	}
	return s.analyzeSingleMA(prices, currentPrice)
}

// analyzeSingleMA signals when the price deviates from the moving average
// by more than a small buffer, with confidence twice the relative
// deviation.
func (s *SMA) analyzeSingleMA(prices []float64, currentPrice float64) signal.Signal {
	sma := indicator.SMA(prices, s.params.Int(ParamPeriod))
	buffer := sma * s.params.Float(ParamBufferPercentage)

	meta := func(deviation float64) map[string]any {
		return map[string]any{
			"sma":       sma,
			"price":     currentPrice,
			"deviation": deviation,
			"technique": "single_ma",
		}
	}

	switch {
	case currentPrice > sma+buffer:
		deviation := (currentPrice - sma) / sma
		return signal.New(signal.Buy, deviation*2,
			fmt.Sprintf("price %.2f above SMA %.2f by %.1f%%", currentPrice, sma, deviation*100),
			meta(deviation))

	case currentPrice < sma-buffer:
		deviation := math.Abs(currentPrice-sma) / sma
		return signal.New(signal.Sell, deviation*2,
			fmt.Sprintf("price %.2f below SMA %.2f by %.1f%%", currentPrice, sma, deviation*100),
			meta(deviation))

	default:
		deviation := math.Abs(currentPrice-sma) / sma
		return signal.New(signal.Hold, 0.2,
			fmt.Sprintf("price %.2f close to SMA %.2f within buffer", currentPrice, sma),
			meta(deviation))
	}
}

// analyzeMultipleMA signals on golden/death crosses. A 2% spread between
// the averages saturates the confidence.
func (s *SMA) analyzeMultipleMA(prices []float64, currentPrice float64) signal.Signal {
	shortMA := indicator.SMA(prices, s.params.Int(ParamShortMAPeriod))
	longMA := indicator.SMA(prices, s.params.Int(ParamLongMAPeriod))

	meta := func(technique string, strength float64) map[string]any {
		return map[string]any{
			"short_ma":      shortMA,
			"long_ma":       longMA,
			"current_price": currentPrice,
			"strength":      strength,
			"technique":     technique,
		}
	}

	switch {
	case shortMA > longMA && currentPrice > shortMA:
		strength := (shortMA - longMA) / longMA
		return signal.New(signal.Buy, strength*50,
			fmt.Sprintf("golden cross: short MA %.2f above long MA %.2f", shortMA, longMA),
			meta("golden_cross", strength))

	case shortMA < longMA && currentPrice < shortMA:
		strength := math.Abs(shortMA-longMA) / longMA
		return signal.New(signal.Sell, strength*50,
			fmt.Sprintf("death cross: short MA %.2f below long MA %.2f", shortMA, longMA),
			meta("death_cross", strength))

	default:
		return signal.New(signal.Hold, 0.3,
			fmt.Sprintf("moving averages mixed: short %.2f, long %.2f", shortMA, longMA),
			meta("mixed_signals", 0))
	}
}

// Package strategy implements the signal-generation engines. Each engine
// evaluates a historical price series against one technical indicator and
// maps the result to a directional signal with a confidence score.
package strategy

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/perpstack/trade-executor/internal/signal"
)

// Signal kind groups, used for display and grouping only.
const (
	KindMomentum   = "momentum"
	KindTrend      = "trend"
	KindVolatility = "volatility"
)

// Strategy is the interface all engines implement.
type Strategy interface {
	Name() string
	Token() string

	// SignalKind classifies the engine (momentum, trend, volatility). It has
	// no effect on computation.
	SignalKind() string

	// DefaultParams returns the engine's fixed default configuration.
	DefaultParams() Params

	// Analyze evaluates the price series (newest last) against the current
	// price and returns one signal. It never mutates prices and never
	// returns an error: malformed input degrades to a zero-confidence HOLD.
	// The volume series is accepted for future extension and currently
	// unused by every engine.
	Analyze(prices []float64, currentPrice float64, volumes []float64) signal.Signal

	Params() Params
	UpdateParams(overrides Params)

	// RecordSignal appends to the bounded history. Analyze never records on
	// its own; whether to log each evaluation is the caller's call.
	RecordSignal(s signal.Signal)
	History() []signal.Signal
	PerformanceSummary() map[string]float64
}

// New builds an engine by type name with optional parameter overrides.
func New(typ, token string, overrides Params, log zerolog.Logger) (Strategy, error) {
	switch strings.ToLower(typ) {
	case "rsi":
		return NewRSI(token, overrides, log), nil
	case "macd":
		return NewMACD(token, overrides, log), nil
	case "bollinger":
		return NewBollinger(token, overrides, log), nil
	case "sma":
		return NewSMA(token, overrides, log), nil
	case "ema":
		return NewEMA(token, overrides, log), nil
	case "atr":
		return NewATR(token, overrides, log), nil
	default:
		return nil, fmt.Errorf("unknown strategy type %q", typ)
	}
}

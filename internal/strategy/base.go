package strategy

import (
	"strings"

	"github.com/rs/zerolog"

	"github.com/perpstack/trade-executor/internal/signal"
)

// Base carries the state and behavior shared by every engine: identity,
// the live parameter set, the bounded signal history and input validation.
type Base struct {
	name    string
	token   string
	params  Params
	history *signal.History
	log     zerolog.Logger
}

func newBase(name, token string, defaults, overrides Params, log zerolog.Logger) Base {
	return Base{
		name:    name,
		token:   strings.ToUpper(token),
		params:  merged(defaults, overrides),
		history: signal.NewHistory(signal.DefaultHistorySize),
		log:     log.With().Str("strategy", name).Str("token", strings.ToUpper(token)).Logger(),
	}
}

// Name returns the engine name.
func (b *Base) Name() string { return b.name }

// Token returns the uppercased symbol this engine is configured for.
func (b *Base) Token() string { return b.token }

// Params returns a copy of the current parameter set.
func (b *Base) Params() Params { return b.params.Clone() }

// UpdateParams merges overrides into the current parameter set. No
// validation is performed.
func (b *Base) UpdateParams(overrides Params) {
	for k, v := range overrides {
		b.params[k] = v
	}
	b.log.Debug().Int("overrides", len(overrides)).Msg("parameters updated")
}

// RecordSignal appends to the bounded history, evicting the oldest entry
// past capacity.
func (b *Base) RecordSignal(s signal.Signal) { b.history.Append(s) }

// History returns the retained signals, oldest first.
func (b *Base) History() []signal.Signal { return b.history.Snapshot() }

// ValidateData rejects a series that is empty, shorter than minPeriods, or
// contains any non-positive price.
func (b *Base) ValidateData(prices []float64, minPeriods int) bool {
	if len(prices) == 0 {
		b.log.Debug().Msg("no price data provided")
		return false
	}
	if len(prices) < minPeriods {
		b.log.Debug().Int("have", len(prices)).Int("need", minPeriods).Msg("insufficient data")
		return false
	}
	for _, p := range prices {
		if p <= 0 {
			b.log.Debug().Msg("price data contains non-positive values")
			return false
		}
	}
	return true
}

// PerformanceSummary aggregates basic statistics over the signal history.
func (b *Base) PerformanceSummary() map[string]float64 {
	hist := b.history.Snapshot()
	if len(hist) == 0 {
		return map[string]float64{
			"total_signals":  0,
			"avg_confidence": 0,
			"buy_signals":    0,
			"sell_signals":   0,
			"hold_signals":   0,
		}
	}

	var confSum float64
	var buys, sells float64
	for _, s := range hist {
		confSum += s.Confidence
		switch s.Kind {
		case signal.Buy:
			buys++
		case signal.Sell:
			sells++
		}
	}
	total := float64(len(hist))
	return map[string]float64{
		"total_signals":  total,
		"avg_confidence": confSum / total,
		"buy_signals":    buys,
		"sell_signals":   sells,
		"hold_signals":   total - buys - sells,
	}
}

// SignalStrength converts a confidence score into a coarse description.
func SignalStrength(confidence float64) string {
	switch {
	case confidence >= 0.8:
		return "Very Strong"
	case confidence >= 0.6:
		return "Strong"
	case confidence >= 0.4:
		return "Moderate"
	case confidence >= 0.2:
		return "Weak"
	default:
		return "Very Weak"
	}
}

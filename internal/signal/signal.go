// Package signal defines the trading signal emitted by strategy engines and
// the bounded in-memory history that keeps the most recent signals around for
// diagnostics.
package signal

import "time"

// Kind is the directional recommendation of a signal.
type Kind string

const (
	Buy  Kind = "BUY"
	Sell Kind = "SELL"
	Hold Kind = "HOLD"
)

// Signal is one strategy evaluation result.
type Signal struct {
	Kind       Kind           `json:"kind"`
	Confidence float64        `json:"confidence"` // always in [0, 1]
	Reason     string         `json:"reason"`
	Time       time.Time      `json:"timestamp"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// New builds a signal, clamping confidence into [0, 1] and stamping the
// current time. Intermediate math in the engines can overshoot the range
// (or produce NaN when a divisor degenerates); the clamp is the single
// place that restores the invariant.
func New(kind Kind, confidence float64, reason string, metadata map[string]any) Signal {
	return Signal{
		Kind:       kind,
		Confidence: Clamp(confidence),
		Reason:     reason,
		Time:       time.Now().UTC(),
		Metadata:   metadata,
	}
}

// HoldSignal is shorthand for a zero-confidence HOLD, the uniform degraded
// result for invalid input.
func HoldSignal(reason string) Signal {
	return New(Hold, 0, reason, nil)
}

// Clamp forces v into [0, 1]. NaN clamps to 0 so a degenerate divisor can
// never leak out of range.
func Clamp(v float64) float64 {
	if v != v || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

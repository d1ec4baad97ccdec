package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/perpstack/trade-executor/internal/signal"
)

func TestRSIAnalyze(t *testing.T) {
	tests := []struct {
		name           string
		overrides      Params
		prices         []float64
		wantKind       signal.Kind
		wantConfidence float64
		wantLevel      string
	}{
		{
			name:           "monotonic rise saturates overbought sell",
			prices:         risingSeries(30),
			wantKind:       signal.Sell,
			wantConfidence: 1.0, // RSI 100, thirty points past the threshold
			wantLevel:      "overbought",
		},
		{
			name:           "monotonic fall saturates oversold buy",
			prices:         fallingSeries(30),
			wantKind:       signal.Buy,
			wantConfidence: 1.0,
			wantLevel:      "oversold",
		},
		{
			name: "balanced series sits in the neutral band",
			// Equal up/down steps keep RSI near 50.
			prices:         alternatingSeries(30),
			wantKind:       signal.Hold,
			wantConfidence: 0.1,
			wantLevel:      "neutral",
		},
		{
			name: "moderate overbought zone holds at 0.3",
			// Widen the thresholds so a mid-range RSI lands between
			// neutral_zone_high and overbought.
			overrides:      Params{ParamNeutralHigh: 40.0, ParamOverbought: 95.0},
			prices:         alternatingSeries(30),
			wantKind:       signal.Hold,
			wantConfidence: 0.3,
			wantLevel:      "moderate_overbought",
		},
		{
			name:           "moderate oversold zone holds at 0.3",
			overrides:      Params{ParamNeutralLow: 60.0, ParamOversold: 5.0},
			prices:         alternatingSeries(30),
			wantKind:       signal.Hold,
			wantConfidence: 0.3,
			wantLevel:      "moderate_oversold",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewRSI("ETH", tt.overrides, testLog)
			got := s.Analyze(tt.prices, tt.prices[len(tt.prices)-1], nil)
			assert.Equal(t, tt.wantKind, got.Kind)
			assert.InDelta(t, tt.wantConfidence, got.Confidence, 1e-9)
			assert.Equal(t, tt.wantLevel, got.Metadata["level"])
			assert.Contains(t, got.Metadata, "rsi")
		})
	}
}

func TestRSIAnalyzeRequiresPeriodPlusOne(t *testing.T) {
	s := NewRSI("ETH", Params{ParamPeriod: 14}, testLog)

	got := s.Analyze(risingSeries(14), 113, nil)
	assert.Equal(t, signal.Hold, got.Kind)
	assert.Zero(t, got.Confidence)

	got = s.Analyze(risingSeries(15), 114, nil)
	assert.Equal(t, signal.Sell, got.Kind, "period+1 points is enough")
}

func alternatingSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 100
		if i%2 == 1 {
			out[i] = 101
		}
	}
	return out
}

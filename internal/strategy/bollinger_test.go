package strategy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/perpstack/trade-executor/internal/signal"
)

// bandFixture is a short window with known statistics: mean 100,
// population σ = sqrt(2) ≈ 1.414, upper ≈ 102.83, lower ≈ 97.17.
func bandFixture() []float64 {
	return []float64{98, 99, 100, 101, 102}
}

func TestBollingerDecisionTiers(t *testing.T) {
	overrides := Params{ParamPeriod: 5}

	tests := []struct {
		name           string
		currentPrice   float64
		wantKind       signal.Kind
		wantConfidence float64
		exactConf      bool
	}{
		{"strong breakout above sells", 106, signal.Sell, 1.0, true},
		{"strong breakout below buys", 94, signal.Buy, 1.0, true},
		{"bounce off upper band sells at 0.6", 103, signal.Sell, 0.6, true},
		{"bounce off lower band buys at 0.6", 97, signal.Buy, 0.6, true},
		{"mid-band drift from above sells weakly", 100.2, signal.Sell, 0.2, true},
		{"mid-band drift from below buys weakly", 99.8, signal.Buy, 0.2, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewBollinger("ETH", overrides, testLog)
			got := s.Analyze(bandFixture(), tt.currentPrice, nil)
			assert.Equal(t, tt.wantKind, got.Kind)
			if tt.exactConf {
				assert.InDelta(t, tt.wantConfidence, got.Confidence, 1e-9)
			}
			assert.Contains(t, got.Metadata, "upper_band")
			assert.Contains(t, got.Metadata, "band_width")
		})
	}
}

func TestBollingerZeroVarianceDoesNotDivide(t *testing.T) {
	// All prices equal: σ = 0 and the bands collapse onto the mean. The
	// engine must degrade to HOLD instead of dividing by zero.
	s := NewBollinger("ETH", nil, testLog)
	got := s.Analyze(flatSeries(25, 100), 100, nil)

	assert.Equal(t, signal.Hold, got.Kind)
	assert.Zero(t, got.Confidence)
	assert.Equal(t, 1.0, got.Metadata["position"], "price on a zero-width band reads as top of range")
	assert.Equal(t, 0.0, got.Metadata["std_dev"])
}

func TestBollingerZeroVarianceBreakoutPinsConfidence(t *testing.T) {
	s := NewBollinger("ETH", nil, testLog)
	got := s.Analyze(flatSeries(25, 100), 150, nil)

	require.Equal(t, signal.Sell, got.Kind)
	assert.Equal(t, 1.0, got.Confidence)
}

func TestBollingerSqueeze(t *testing.T) {
	// Fifteen volatile points followed by a flat tail: the current window
	// width collapses while the rolling-window average stays wide. A
	// generous width threshold makes the squeeze unambiguous.
	prices := make([]float64, 20)
	for i := 0; i < 15; i++ {
		prices[i] = 90
		if i%2 == 1 {
			prices[i] = 110
		}
	}
	for i := 15; i < 20; i++ {
		prices[i] = 100
	}

	s := NewBollinger("ETH", Params{ParamPeriod: 5, ParamBandWidthThreshold: 0.5}, testLog)

	got := s.Analyze(prices, 100, nil)
	require.Equal(t, true, got.Metadata["squeeze_detected"])
	// Zero-width current band puts the price at position 1.0, the
	// resistance end of the squeeze.
	assert.Equal(t, signal.Sell, got.Kind)
	assert.InDelta(t, 0.4, got.Confidence, 1e-9)
}

func TestBollingerSqueezeDisabled(t *testing.T) {
	prices := make([]float64, 20)
	for i := 0; i < 15; i++ {
		prices[i] = 90
		if i%2 == 1 {
			prices[i] = 110
		}
	}
	for i := 15; i < 20; i++ {
		prices[i] = 100
	}

	s := NewBollinger("ETH", Params{ParamPeriod: 5, ParamBandWidthThreshold: 0.5, ParamUseSqueeze: false}, testLog)
	got := s.Analyze(prices, 100, nil)
	assert.Equal(t, false, got.Metadata["squeeze_detected"])
	assert.NotEqual(t, 0.4, got.Confidence)
}

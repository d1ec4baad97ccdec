package strategy

// Params maps parameter names to numeric or boolean values. Each engine
// defines its own default set; construction-time overrides replace defaults
// key by key and unknown keys are added as-is. Defaults are internally
// consistent; custom overrides are the caller's responsibility and are not
// validated at runtime.
type Params map[string]any

// Parameter keys. Exported constants keep override call sites typo-proof.
const (
	ParamPeriod             = "period"
	ParamOverbought         = "overbought"
	ParamOversold           = "oversold"
	ParamNeutralHigh        = "neutral_zone_high"
	ParamNeutralLow         = "neutral_zone_low"
	ParamConfirmationBars   = "confirmation_bars"
	ParamFastPeriod         = "fast_period"
	ParamSlowPeriod         = "slow_period"
	ParamSignalPeriod       = "signal_period"
	ParamHistogramThreshold = "histogram_threshold"
	ParamStdDev             = "std_dev"
	ParamBandWidthThreshold = "band_width_threshold"
	ParamBreakoutStrength   = "breakout_strength"
	ParamUseSqueeze         = "use_squeeze"
	ParamBufferPercentage   = "buffer_percentage"
	ParamUseMultipleMA      = "use_multiple_ma"
	ParamShortMAPeriod      = "short_ma_period"
	ParamLongMAPeriod       = "long_ma_period"
	ParamComparisonPeriod   = "comparison_period"
	ParamMultiplier         = "multiplier"
	ParamAlphaFactor        = "alpha_factor"
	ParamATRMultiplier      = "atr_multiplier"
	ParamRiskPercentage     = "risk_percentage"
	ParamBreakoutThreshold  = "breakout_threshold"
	ParamTrendFilter        = "trend_filter"
)

// merged returns defaults overlaid with overrides, leaving both inputs
// untouched.
func merged(defaults, overrides Params) Params {
	out := make(Params, len(defaults)+len(overrides))
	for k, v := range defaults {
		out[k] = v
	}
	for k, v := range overrides {
		out[k] = v
	}
	return out
}

// Float reads a numeric parameter, coercing ints so YAML/JSON-sourced
// overrides behave the same as typed defaults.
func (p Params) Float(key string) float64 {
	switch v := p[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return 0
	}
}

// Int reads an integer parameter with the same coercions as Float.
func (p Params) Int(key string) int {
	return int(p.Float(key))
}

// Bool reads a boolean parameter; absent or non-boolean values read false.
func (p Params) Bool(key string) bool {
	v, _ := p[key].(bool)
	return v
}

// Clone copies the mapping so callers can inspect parameters without
// aliasing the engine's live set.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

package types

import "math"

type IndicatorType string

const (
	IndicatorTypeSMA        IndicatorType = "sma"
	IndicatorTypeEMA        IndicatorType = "ema"
	IndicatorTypeRSI        IndicatorType = "rsi"
	IndicatorTypeMACD       IndicatorType = "macd"
	IndicatorTypeBollinger  IndicatorType = "bollinger_bands"
	IndicatorTypeATR        IndicatorType = "atr"
	IndicatorTypeADX        IndicatorType = "adx"
	IndicatorTypeStochastic IndicatorType = "stochastic"
	IndicatorTypeIchimoku   IndicatorType = "ichimoku"
	IndicatorTypeSupertrend IndicatorType = "supertrend"
	IndicatorTypeVWAP       IndicatorType = "vwap"
	IndicatorTypeOBV        IndicatorType = "obv"
	IndicatorTypeFootprint  IndicatorType = "footprint"
)

// IndicatorResultKind tags the shape of an IndicatorResult.
type IndicatorResultKind string

const (
	ResultKindScalar    IndicatorResultKind = "scalar"
	ResultKindComposite IndicatorResultKind = "composite"
	ResultKindEmpty     IndicatorResultKind = "empty"
)

// IndicatorResult is either a single NaN-padded series aligned 1:1 with the
// input bars, or a named tuple of such series (e.g. macd line/signal/histogram).
// Callers switch on Kind; composite component names are indicator-specific.
type IndicatorResult struct {
	Kind       IndicatorResultKind
	Values     []float64
	Components map[string][]float64
}

// Scalar wraps a single series as an IndicatorResult.
func Scalar(values []float64) IndicatorResult {
	return IndicatorResult{Kind: ResultKindScalar, Values: values}
}

// Composite wraps named series as an IndicatorResult.
func Composite(components map[string][]float64) IndicatorResult {
	return IndicatorResult{Kind: ResultKindComposite, Components: components}
}

// Empty is the result for indicators whose upstream data is unavailable,
// e.g. an orderflow indicator with no tick trades loaded.
func Empty() IndicatorResult {
	return IndicatorResult{Kind: ResultKindEmpty}
}

// IsEmpty reports whether the result carries no data.
func (r IndicatorResult) IsEmpty() bool {
	return r.Kind == ResultKindEmpty
}

// Len returns the series length. For composite results all components share
// the same length.
func (r IndicatorResult) Len() int {
	switch r.Kind {
	case ResultKindScalar:
		return len(r.Values)
	case ResultKindComposite:
		for _, v := range r.Components {
			return len(v)
		}
	}

	return 0
}

// At returns the scalar value at index i, or NaN when out of range or when
// the result is not scalar.
func (r IndicatorResult) At(i int) float64 {
	if r.Kind != ResultKindScalar || i < 0 || i >= len(r.Values) {
		return math.NaN()
	}

	return r.Values[i]
}

// ComponentAt returns component name at index i, or NaN when missing.
func (r IndicatorResult) ComponentAt(name string, i int) float64 {
	if r.Kind != ResultKindComposite {
		return math.NaN()
	}

	series, ok := r.Components[name]
	if !ok || i < 0 || i >= len(series) {
		return math.NaN()
	}

	return series[i]
}

// NaNSeries returns a series of n NaN values.
func NaNSeries(n int) []float64 {
	series := make([]float64, n)
	for i := range series {
		series[i] = math.NaN()
	}

	return series
}

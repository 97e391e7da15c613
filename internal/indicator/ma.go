package indicator

import (
	"math"

	"github.com/rxtech-lab/argo-analytics/internal/types"
)

// closes extracts the close series from bars.
func closes(bars []types.Bar) []float64 {
	series := make([]float64, len(bars))
	for i, bar := range bars {
		series[i] = bar.Close
	}

	return series
}

// smaSeries computes a simple moving average over source with NaN warmup for
// the first period-1 indices.
func smaSeries(source []float64, period int) []float64 {
	result := types.NaNSeries(len(source))
	if period <= 0 || len(source) < period {
		return result
	}

	sum := 0.0
	for i, v := range source {
		sum += v

		if i >= period {
			sum -= source[i-period]
		}

		if i >= period-1 {
			result[i] = sum / float64(period)
		}
	}

	return result
}

// emaSeries computes an exponential moving average over source. The first
// defined value at index period-1 is seeded as the simple average of the
// first period values; afterwards ema = (current-prev)*multiplier + prev
// with multiplier = 2/(period+1). Leading NaNs in source shift the seed
// window forward.
func emaSeries(source []float64, period int) []float64 {
	result := types.NaNSeries(len(source))
	if period <= 0 || len(source) < period {
		return result
	}

	// skip leading NaNs so derived series (e.g. the MACD signal line) seed
	// from their first defined input
	start := 0
	for start < len(source) && math.IsNaN(source[start]) {
		start++
	}

	if len(source)-start < period {
		return result
	}

	seed := 0.0
	for i := start; i < start+period; i++ {
		seed += source[i]
	}

	prev := seed / float64(period)
	result[start+period-1] = prev

	multiplier := 2.0 / float64(period+1)
	for i := start + period; i < len(source); i++ {
		prev = (source[i]-prev)*multiplier + prev
		result[i] = prev
	}

	return result
}

// ComputeSMA computes a simple moving average of closes.
// Params: period (default 20).
func ComputeSMA(ctx Context, params []float64) types.IndicatorResult {
	period, ok := intParam(params, 0, 20)
	if !ok {
		return allNaN(len(ctx.Bars))
	}

	return types.Scalar(smaSeries(closes(ctx.Bars), period))
}

// SMAValueAt computes the SMA value for a single bar by recomputation.
func SMAValueAt(bars []types.Bar, period int, barIndex int) float64 {
	if barIndex < 0 || barIndex >= len(bars) {
		return math.NaN()
	}

	return ComputeSMA(Context{Bars: bars[:barIndex+1]}, []float64{float64(period)}).At(barIndex)
}

// ComputeEMA computes an exponential moving average of closes.
// Params: period (default 20).
func ComputeEMA(ctx Context, params []float64) types.IndicatorResult {
	period, ok := intParam(params, 0, 20)
	if !ok {
		return allNaN(len(ctx.Bars))
	}

	return types.Scalar(emaSeries(closes(ctx.Bars), period))
}

// EMAValueAt computes the EMA value for a single bar by recomputation.
func EMAValueAt(bars []types.Bar, period int, barIndex int) float64 {
	if barIndex < 0 || barIndex >= len(bars) {
		return math.NaN()
	}

	return ComputeEMA(Context{Bars: bars[:barIndex+1]}, []float64{float64(period)}).At(barIndex)
}

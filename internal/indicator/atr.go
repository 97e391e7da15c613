package indicator

import (
	"math"

	"github.com/rxtech-lab/argo-analytics/internal/types"
)

// trueRanges computes the per-bar true range. The first bar's true range is
// its high-low span since no previous close exists.
func trueRanges(bars []types.Bar) []float64 {
	ranges := make([]float64, len(bars))
	for i, bar := range bars {
		if i == 0 {
			ranges[i] = bar.High - bar.Low

			continue
		}

		prevClose := bars[i-1].Close
		ranges[i] = math.Max(bar.High-bar.Low, math.Max(math.Abs(bar.High-prevClose), math.Abs(bar.Low-prevClose)))
	}

	return ranges
}

// ComputeATR computes the Average True Range.
// Params: period (default 14).
//
// The first defined value at index period-1 is the simple average of the
// first period true ranges; afterwards the Wilder recurrence
// atr = prev - prev/period + tr/period applies.
func ComputeATR(ctx Context, params []float64) types.IndicatorResult {
	bars := ctx.Bars
	result := types.NaNSeries(len(bars))

	period, ok := intParam(params, 0, 14)
	if !ok || len(bars) < period {
		return types.Scalar(result)
	}

	ranges := trueRanges(bars)

	seed := 0.0
	for i := 0; i < period; i++ {
		seed += ranges[i]
	}

	prev := seed / float64(period)
	result[period-1] = prev

	for i := period; i < len(bars); i++ {
		prev = prev - prev/float64(period) + ranges[i]/float64(period)
		result[i] = prev
	}

	return types.Scalar(result)
}

// ATRValueAt computes the ATR value for a single bar by recomputation.
func ATRValueAt(bars []types.Bar, period int, barIndex int) float64 {
	if barIndex < 0 || barIndex >= len(bars) {
		return math.NaN()
	}

	return ComputeATR(Context{Bars: bars[:barIndex+1]}, []float64{float64(period)}).At(barIndex)
}

package indicator

import (
	"math"

	"github.com/rxtech-lab/argo-analytics/internal/types"
)

// Supertrend component names. Trend is +1 in an uptrend (the line is the
// lower band) and -1 in a downtrend (the line is the upper band).
const (
	SupertrendValue = "value"
	SupertrendTrend = "trend"
)

// ComputeSupertrend computes the supertrend line and its trend direction.
// Params: ATR period (default 10), multiplier (default 3).
//
// The final bands only ratchet toward price: the upper band only decreases
// unless the previous close broke above it, the lower band only increases
// unless the previous close broke below it. The trend flips when close
// crosses the opposite band.
func ComputeSupertrend(ctx Context, params []float64) types.IndicatorResult {
	bars := ctx.Bars
	n := len(bars)

	period, ok := intParam(params, 0, 10)
	multiplier := floatParam(params, 1, 3)

	if !ok || n < period {
		return allNaNComposite(n, SupertrendValue, SupertrendTrend)
	}

	atr := ComputeATR(ctx, []float64{float64(period)}).Values

	value := types.NaNSeries(n)
	trend := types.NaNSeries(n)

	var finalUpper, finalLower float64

	currentTrend := 0.0

	for i := period - 1; i < n; i++ {
		hl2 := (bars[i].High + bars[i].Low) / 2
		basicUpper := hl2 + multiplier*atr[i]
		basicLower := hl2 - multiplier*atr[i]

		if i == period-1 {
			finalUpper = basicUpper
			finalLower = basicLower

			if bars[i].Close >= hl2 {
				currentTrend = 1
			} else {
				currentTrend = -1
			}
		} else {
			prevClose := bars[i-1].Close

			if basicUpper < finalUpper || prevClose > finalUpper {
				finalUpper = basicUpper
			}

			if basicLower > finalLower || prevClose < finalLower {
				finalLower = basicLower
			}

			if currentTrend == 1 && bars[i].Close < finalLower {
				currentTrend = -1
				finalUpper = basicUpper
			} else if currentTrend == -1 && bars[i].Close > finalUpper {
				currentTrend = 1
				finalLower = basicLower
			}
		}

		trend[i] = currentTrend
		if currentTrend == 1 {
			value[i] = finalLower
		} else {
			value[i] = finalUpper
		}
	}

	return types.Composite(map[string][]float64{
		SupertrendValue: value,
		SupertrendTrend: trend,
	})
}

// SupertrendValueAt computes one supertrend component for a single bar by
// recomputation.
func SupertrendValueAt(bars []types.Bar, period int, multiplier float64, component string, barIndex int) float64 {
	if barIndex < 0 || barIndex >= len(bars) {
		return math.NaN()
	}

	result := ComputeSupertrend(Context{Bars: bars[:barIndex+1]}, []float64{float64(period), multiplier})

	return result.ComponentAt(component, barIndex)
}

package indicator

import (
	"math"

	"github.com/rxtech-lab/argo-analytics/internal/types"
)

// ComputeRSI computes the Relative Strength Index.
// Params: period (default 14).
//
// The average gain and loss are seeded as the arithmetic mean of the first
// period changes, then Wilder-smoothed. RSI is exactly 100 where the average
// loss is zero. The first defined value is at index period.
func ComputeRSI(ctx Context, params []float64) types.IndicatorResult {
	bars := ctx.Bars
	result := types.NaNSeries(len(bars))

	period, ok := intParam(params, 0, 14)
	if !ok || len(bars) < period+1 {
		return types.Scalar(result)
	}

	gains := make([]float64, len(bars))
	losses := make([]float64, len(bars))

	for i := 1; i < len(bars); i++ {
		change := bars[i].Close - bars[i-1].Close
		if change > 0 {
			gains[i] = change
		} else {
			losses[i] = -change
		}
	}

	avgGain := 0.0
	avgLoss := 0.0

	for i := 1; i <= period; i++ {
		avgGain += gains[i]
		avgLoss += losses[i]
	}

	avgGain /= float64(period)
	avgLoss /= float64(period)

	result[period] = rsiFromAverages(avgGain, avgLoss)

	for i := period + 1; i < len(bars); i++ {
		avgGain = (avgGain*float64(period-1) + gains[i]) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + losses[i]) / float64(period)
		result[i] = rsiFromAverages(avgGain, avgLoss)
	}

	return types.Scalar(result)
}

func rsiFromAverages(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		// perfect uptrend
		return 100
	}

	rs := avgGain / avgLoss

	return 100 - (100 / (1 + rs))
}

// RSIValueAt computes the RSI value for a single bar by recomputation.
func RSIValueAt(bars []types.Bar, period int, barIndex int) float64 {
	if barIndex < 0 || barIndex >= len(bars) {
		return math.NaN()
	}

	return ComputeRSI(Context{Bars: bars[:barIndex+1]}, []float64{float64(period)}).At(barIndex)
}

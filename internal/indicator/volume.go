package indicator

import (
	"math"

	"github.com/rxtech-lab/argo-analytics/internal/types"
)

// ComputeVWAP computes the cumulative volume-weighted average price using the
// typical price (high+low+close)/3. Defined from the first bar; bars with
// zero cumulative volume yield NaN.
func ComputeVWAP(ctx Context, params []float64) types.IndicatorResult {
	bars := ctx.Bars
	result := types.NaNSeries(len(bars))

	var cumulativePV, cumulativeVolume float64

	for i, bar := range bars {
		typical := (bar.High + bar.Low + bar.Close) / 3
		cumulativePV += typical * bar.Volume
		cumulativeVolume += bar.Volume

		if cumulativeVolume > 0 {
			result[i] = cumulativePV / cumulativeVolume
		}
	}

	return types.Scalar(result)
}

// VWAPValueAt computes the VWAP value for a single bar by recomputation.
func VWAPValueAt(bars []types.Bar, barIndex int) float64 {
	if barIndex < 0 || barIndex >= len(bars) {
		return math.NaN()
	}

	return ComputeVWAP(Context{Bars: bars[:barIndex+1]}, nil).At(barIndex)
}

// ComputeOBV computes On-Balance Volume. The first bar seeds the series at
// zero; afterwards volume is added on up-closes and subtracted on down-closes.
func ComputeOBV(ctx Context, params []float64) types.IndicatorResult {
	bars := ctx.Bars
	result := types.NaNSeries(len(bars))

	if len(bars) == 0 {
		return types.Scalar(result)
	}

	obv := 0.0
	result[0] = 0

	for i := 1; i < len(bars); i++ {
		switch {
		case bars[i].Close > bars[i-1].Close:
			obv += bars[i].Volume
		case bars[i].Close < bars[i-1].Close:
			obv -= bars[i].Volume
		}

		result[i] = obv
	}

	return types.Scalar(result)
}

// OBVValueAt computes the OBV value for a single bar by recomputation.
func OBVValueAt(bars []types.Bar, barIndex int) float64 {
	if barIndex < 0 || barIndex >= len(bars) {
		return math.NaN()
	}

	return ComputeOBV(Context{Bars: bars[:barIndex+1]}, nil).At(barIndex)
}

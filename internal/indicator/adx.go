package indicator

import (
	"math"

	"github.com/rxtech-lab/argo-analytics/internal/types"
)

// ADX/DMI component names.
const (
	ADXLine = "adx"
	PlusDI  = "plus_di"
	MinusDI = "minus_di"
)

// ComputeADX computes the Average Directional Index with its directional
// indicator lines. Params: period (default 14).
//
// Requires at least 2*period bars. The smoothed true range and directional
// movement follow the Wilder sum recurrence prev - prev/period + current,
// seeded with the sum of the first period values. DX is defined only where
// the smoothed true range is positive. ADX seeds at index 2*period-1 as the
// simple average of the first period DX values and is Wilder-smoothed
// thereafter.
func ComputeADX(ctx Context, params []float64) types.IndicatorResult {
	bars := ctx.Bars
	n := len(bars)

	period, ok := intParam(params, 0, 14)
	if !ok || n < 2*period {
		return allNaNComposite(n, ADXLine, PlusDI, MinusDI)
	}

	ranges := trueRanges(bars)
	plusDM := make([]float64, n)
	minusDM := make([]float64, n)

	for i := 1; i < n; i++ {
		upMove := bars[i].High - bars[i-1].High
		downMove := bars[i-1].Low - bars[i].Low

		if upMove > downMove && upMove > 0 {
			plusDM[i] = upMove
		}

		if downMove > upMove && downMove > 0 {
			minusDM[i] = downMove
		}
	}

	plusDILine := types.NaNSeries(n)
	minusDILine := types.NaNSeries(n)
	dx := types.NaNSeries(n)

	var smoothedTR, smoothedPlusDM, smoothedMinusDM float64
	for i := 1; i <= period; i++ {
		smoothedTR += ranges[i]
		smoothedPlusDM += plusDM[i]
		smoothedMinusDM += minusDM[i]
	}

	for i := period; i < n; i++ {
		if i > period {
			p := float64(period)
			smoothedTR = smoothedTR - smoothedTR/p + ranges[i]
			smoothedPlusDM = smoothedPlusDM - smoothedPlusDM/p + plusDM[i]
			smoothedMinusDM = smoothedMinusDM - smoothedMinusDM/p + minusDM[i]
		}

		if smoothedTR > 0 {
			plusDILine[i] = 100 * smoothedPlusDM / smoothedTR
			minusDILine[i] = 100 * smoothedMinusDM / smoothedTR

			diSum := plusDILine[i] + minusDILine[i]
			if diSum > 0 {
				dx[i] = 100 * math.Abs(plusDILine[i]-minusDILine[i]) / diSum
			} else {
				dx[i] = 0
			}
		}
	}

	adx := types.NaNSeries(n)

	seed := 0.0
	seedCount := 0

	for i := period; i < 2*period && i < n; i++ {
		if !math.IsNaN(dx[i]) {
			seed += dx[i]
			seedCount++
		}
	}

	if seedCount == period {
		prev := seed / float64(period)
		adx[2*period-1] = prev

		for i := 2 * period; i < n; i++ {
			if math.IsNaN(dx[i]) {
				continue
			}

			prev = (prev*float64(period-1) + dx[i]) / float64(period)
			adx[i] = prev
		}
	}

	return types.Composite(map[string][]float64{
		ADXLine: adx,
		PlusDI:  plusDILine,
		MinusDI: minusDILine,
	})
}

// ADXValueAt computes one ADX/DMI component for a single bar by recomputation.
func ADXValueAt(bars []types.Bar, period int, component string, barIndex int) float64 {
	if barIndex < 0 || barIndex >= len(bars) {
		return math.NaN()
	}

	result := ComputeADX(Context{Bars: bars[:barIndex+1]}, []float64{float64(period)})

	return result.ComponentAt(component, barIndex)
}

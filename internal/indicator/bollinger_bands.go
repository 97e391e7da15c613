package indicator

import (
	"math"

	"github.com/rxtech-lab/argo-analytics/internal/types"
)

// Bollinger band component names.
const (
	BandUpper  = "upper"
	BandMiddle = "middle"
	BandLower  = "lower"
)

// ComputeBollingerBands computes the upper, middle and lower bands.
// Params: period (default 20), standard deviation multiplier (default 2).
//
// The middle band is an SMA of closes; the deviation is the population
// standard deviation of the same window.
func ComputeBollingerBands(ctx Context, params []float64) types.IndicatorResult {
	n := len(ctx.Bars)

	period, ok := intParam(params, 0, 20)
	multiplier := floatParam(params, 1, 2)

	if !ok || n < period {
		return allNaNComposite(n, BandUpper, BandMiddle, BandLower)
	}

	source := closes(ctx.Bars)
	middle := smaSeries(source, period)
	upper := types.NaNSeries(n)
	lower := types.NaNSeries(n)

	for i := period - 1; i < n; i++ {
		variance := 0.0
		for j := i - period + 1; j <= i; j++ {
			diff := source[j] - middle[i]
			variance += diff * diff
		}

		deviation := math.Sqrt(variance / float64(period))
		upper[i] = middle[i] + multiplier*deviation
		lower[i] = middle[i] - multiplier*deviation
	}

	return types.Composite(map[string][]float64{
		BandUpper:  upper,
		BandMiddle: middle,
		BandLower:  lower,
	})
}

// BollingerValueAt computes one band for a single bar by recomputation.
func BollingerValueAt(bars []types.Bar, period int, multiplier float64, component string, barIndex int) float64 {
	if barIndex < 0 || barIndex >= len(bars) {
		return math.NaN()
	}

	result := ComputeBollingerBands(Context{Bars: bars[:barIndex+1]}, []float64{float64(period), multiplier})

	return result.ComponentAt(component, barIndex)
}

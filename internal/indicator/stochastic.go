package indicator

import (
	"math"

	"github.com/rxtech-lab/argo-analytics/internal/types"
)

// Stochastic oscillator component names.
const (
	StochasticK = "k"
	StochasticD = "d"
)

// ComputeStochastic computes the stochastic oscillator %K and %D lines.
// Params: %K period (default 14), %D period (default 3).
//
// %K is (close-lowestLow)/(highestHigh-lowestLow)*100 over the %K window and
// exactly 50 when the window range is zero. %D is the simple average of the
// last %D-period %K values.
func ComputeStochastic(ctx Context, params []float64) types.IndicatorResult {
	bars := ctx.Bars
	n := len(bars)

	kPeriod, okK := intParam(params, 0, 14)
	dPeriod, okD := intParam(params, 1, 3)

	if !okK || !okD || n < kPeriod {
		return allNaNComposite(n, StochasticK, StochasticD)
	}

	k := types.NaNSeries(n)

	for i := kPeriod - 1; i < n; i++ {
		lowest := math.Inf(1)
		highest := math.Inf(-1)

		for j := i - kPeriod + 1; j <= i; j++ {
			lowest = math.Min(lowest, bars[j].Low)
			highest = math.Max(highest, bars[j].High)
		}

		if highest == lowest {
			// flat market
			k[i] = 50
		} else {
			k[i] = (bars[i].Close - lowest) / (highest - lowest) * 100
		}
	}

	d := types.NaNSeries(n)

	for i := kPeriod + dPeriod - 2; i < n; i++ {
		sum := 0.0
		for j := i - dPeriod + 1; j <= i; j++ {
			sum += k[j]
		}

		d[i] = sum / float64(dPeriod)
	}

	return types.Composite(map[string][]float64{
		StochasticK: k,
		StochasticD: d,
	})
}

// StochasticValueAt computes one stochastic component for a single bar by
// recomputation.
func StochasticValueAt(bars []types.Bar, kPeriod, dPeriod int, component string, barIndex int) float64 {
	if barIndex < 0 || barIndex >= len(bars) {
		return math.NaN()
	}

	result := ComputeStochastic(Context{Bars: bars[:barIndex+1]}, []float64{float64(kPeriod), float64(dPeriod)})

	return result.ComponentAt(component, barIndex)
}

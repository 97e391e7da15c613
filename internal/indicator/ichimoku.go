package indicator

import (
	"math"

	"github.com/rxtech-lab/argo-analytics/internal/types"
)

// Ichimoku component names.
const (
	IchimokuTenkan  = "tenkan"
	IchimokuKijun   = "kijun"
	IchimokuSenkouA = "senkou_a"
	IchimokuSenkouB = "senkou_b"
	IchimokuChikou  = "chikou"
)

// midpoint returns (highestHigh+lowestLow)/2 over bars[from..to].
func midpoint(bars []types.Bar, from, to int) float64 {
	lowest := math.Inf(1)
	highest := math.Inf(-1)

	for j := from; j <= to; j++ {
		lowest = math.Min(lowest, bars[j].Low)
		highest = math.Max(highest, bars[j].High)
	}

	return (highest + lowest) / 2
}

// ComputeIchimoku computes the five Ichimoku lines.
// Params: tenkan period (default 9), kijun period (default 26),
// senkou B period (default 52), displacement (default 26).
//
// The senkou spans are displaced forward: the value stored at output index i
// was computed from data ending at bar i-displacement. The chikou span at
// index i holds the close of bar i+displacement and is NaN past the end of
// the data.
func ComputeIchimoku(ctx Context, params []float64) types.IndicatorResult {
	bars := ctx.Bars
	n := len(bars)

	tenkanPeriod, okT := intParam(params, 0, 9)
	kijunPeriod, okK := intParam(params, 1, 26)
	senkouBPeriod, okB := intParam(params, 2, 52)
	displacement, okD := intParam(params, 3, 26)

	if !okT || !okK || !okB || !okD {
		return allNaNComposite(n, IchimokuTenkan, IchimokuKijun, IchimokuSenkouA, IchimokuSenkouB, IchimokuChikou)
	}

	tenkan := types.NaNSeries(n)
	kijun := types.NaNSeries(n)
	senkouA := types.NaNSeries(n)
	senkouB := types.NaNSeries(n)
	chikou := types.NaNSeries(n)

	for i := 0; i < n; i++ {
		if i >= tenkanPeriod-1 {
			tenkan[i] = midpoint(bars, i-tenkanPeriod+1, i)
		}

		if i >= kijunPeriod-1 {
			kijun[i] = midpoint(bars, i-kijunPeriod+1, i)
		}

		// spans plotted at i are computed at the displaced source index
		source := i - displacement
		if source >= tenkanPeriod-1 && source >= kijunPeriod-1 {
			senkouA[i] = (midpoint(bars, source-tenkanPeriod+1, source) + midpoint(bars, source-kijunPeriod+1, source)) / 2
		}

		if source >= senkouBPeriod-1 {
			senkouB[i] = midpoint(bars, source-senkouBPeriod+1, source)
		}

		if i+displacement < n {
			chikou[i] = bars[i+displacement].Close
		}
	}

	return types.Composite(map[string][]float64{
		IchimokuTenkan:  tenkan,
		IchimokuKijun:   kijun,
		IchimokuSenkouA: senkouA,
		IchimokuSenkouB: senkouB,
		IchimokuChikou:  chikou,
	})
}

// IchimokuValueAt computes one Ichimoku component for a single bar by
// recomputation over the bars up to and including barIndex.
func IchimokuValueAt(bars []types.Bar, tenkanPeriod, kijunPeriod, senkouBPeriod, displacement int, component string, barIndex int) float64 {
	if barIndex < 0 || barIndex >= len(bars) {
		return math.NaN()
	}

	params := []float64{float64(tenkanPeriod), float64(kijunPeriod), float64(senkouBPeriod), float64(displacement)}
	result := ComputeIchimoku(Context{Bars: bars[:barIndex+1]}, params)

	return result.ComponentAt(component, barIndex)
}

package indicator

import (
	"math"

	"github.com/rxtech-lab/argo-analytics/internal/types"
)

// MACD component names.
const (
	MACDLine      = "line"
	MACDSignal    = "signal"
	MACDHistogram = "histogram"
)

// ComputeMACD computes the MACD line, signal line and histogram.
// Params: fast period (default 12), slow period (default 26),
// signal period (default 9).
//
// The line is defined from index slow-1, the signal and histogram from index
// slow+signal-2.
func ComputeMACD(ctx Context, params []float64) types.IndicatorResult {
	n := len(ctx.Bars)

	fast, okFast := intParam(params, 0, 12)
	slow, okSlow := intParam(params, 1, 26)
	signalPeriod, okSignal := intParam(params, 2, 9)

	if !okFast || !okSlow || !okSignal || fast >= slow {
		return allNaNComposite(n, MACDLine, MACDSignal, MACDHistogram)
	}

	source := closes(ctx.Bars)
	fastEMA := emaSeries(source, fast)
	slowEMA := emaSeries(source, slow)

	line := types.NaNSeries(n)
	for i := range line {
		if !math.IsNaN(fastEMA[i]) && !math.IsNaN(slowEMA[i]) {
			line[i] = fastEMA[i] - slowEMA[i]
		}
	}

	signal := emaSeries(line, signalPeriod)

	histogram := types.NaNSeries(n)
	for i := range histogram {
		if !math.IsNaN(line[i]) && !math.IsNaN(signal[i]) {
			histogram[i] = line[i] - signal[i]
		}
	}

	return types.Composite(map[string][]float64{
		MACDLine:      line,
		MACDSignal:    signal,
		MACDHistogram: histogram,
	})
}

// MACDValueAt computes one MACD component for a single bar by recomputation.
func MACDValueAt(bars []types.Bar, fast, slow, signalPeriod int, component string, barIndex int) float64 {
	if barIndex < 0 || barIndex >= len(bars) {
		return math.NaN()
	}

	result := ComputeMACD(Context{Bars: bars[:barIndex+1]}, []float64{float64(fast), float64(slow), float64(signalPeriod)})

	return result.ComponentAt(component, barIndex)
}

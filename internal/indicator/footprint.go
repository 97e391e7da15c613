package indicator

import (
	"math"
	"time"

	"github.com/rxtech-lab/argo-analytics/internal/types"
)

// Footprint component names. Each series is aligned with the bars: delta is
// the signed aggressor volume, poc the price level that traded the most
// volume in that bar, snapped to the footprint tick size.
const (
	FootprintDelta      = "delta"
	FootprintBuyVolume  = "buy_volume"
	FootprintSellVolume = "sell_volume"
	FootprintPOC        = "poc"
)

// niceTickSizes are the candidate price bucket sizes for footprint profiles.
var niceTickSizes = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000}

// NiceTickSize picks the candidate size nearest to target.
func NiceTickSize(target float64) float64 {
	best := niceTickSizes[0]
	bestDistance := math.Abs(target - best)

	for _, candidate := range niceTickSizes[1:] {
		distance := math.Abs(target - candidate)
		if distance < bestDistance {
			best = candidate
			bestDistance = distance
		}
	}

	return best
}

// AutoTickSize derives the footprint tick size from ATR(14) so a typical
// bar's range spans roughly targetBuckets price levels. The heuristic is not
// calibrated against any ground truth; treat it as a display default.
func AutoTickSize(bars []types.Bar, targetBuckets int) float64 {
	if targetBuckets <= 0 {
		targetBuckets = 20
	}

	atr := ComputeATR(Context{Bars: bars}, []float64{14})

	// last defined ATR value
	for i := atr.Len() - 1; i >= 0; i-- {
		if v := atr.At(i); !math.IsNaN(v) && v > 0 {
			return NiceTickSize(v / float64(targetBuckets))
		}
	}

	return niceTickSizes[0]
}

// snapToTick snaps price to the nearest multiple of tickSize.
func snapToTick(price, tickSize float64) float64 {
	return math.Round(price/tickSize) * tickSize
}

// ComputeFootprint aggregates tick trades into per-bar orderflow series.
// Params: tick size (0 or absent = auto from ATR(14)), target bucket count
// for auto sizing (default 20).
//
// Returns Empty when no tick trades are loaded. Trades are assigned to the
// bar whose interval contains their timestamp; trades outside every bar are
// ignored.
func ComputeFootprint(ctx Context, params []float64) types.IndicatorResult {
	bars := ctx.Bars
	n := len(bars)

	if len(ctx.TickTrades) == 0 {
		return types.Empty()
	}

	if n == 0 {
		return allNaNComposite(0, FootprintDelta, FootprintBuyVolume, FootprintSellVolume, FootprintPOC)
	}

	tickSize := floatParam(params, 0, 0)
	if tickSize <= 0 {
		targetBuckets := int(floatParam(params, 1, 20))
		tickSize = AutoTickSize(bars, targetBuckets)
	}

	interval := barInterval(bars)

	delta := make([]float64, n)
	buyVolume := make([]float64, n)
	sellVolume := make([]float64, n)
	poc := types.NaNSeries(n)

	// per-bar volume by snapped price level
	levels := make([]map[float64]float64, n)

	barIndex := 0

	for _, trade := range ctx.TickTrades {
		for barIndex+1 < n && !trade.Time.Before(bars[barIndex+1].Time) {
			barIndex++
		}

		if trade.Time.Before(bars[barIndex].Time) || !trade.Time.Before(bars[barIndex].Time.Add(interval)) {
			continue
		}

		delta[barIndex] += trade.Delta()
		buyVolume[barIndex] += trade.BuyVolume()
		sellVolume[barIndex] += trade.SellVolume()

		if levels[barIndex] == nil {
			levels[barIndex] = make(map[float64]float64)
		}

		levels[barIndex][snapToTick(trade.Price, tickSize)] += trade.Quantity
	}

	for i, barLevels := range levels {
		bestVolume := 0.0

		for price, volume := range barLevels {
			if volume > bestVolume || (volume == bestVolume && !math.IsNaN(poc[i]) && price < poc[i]) {
				bestVolume = volume
				poc[i] = price
			}
		}
	}

	return types.Composite(map[string][]float64{
		FootprintDelta:      delta,
		FootprintBuyVolume:  buyVolume,
		FootprintSellVolume: sellVolume,
		FootprintPOC:        poc,
	})
}

// barInterval infers the fixed bar resolution from the first two bars,
// defaulting to one minute for a single-bar series.
func barInterval(bars []types.Bar) time.Duration {
	if len(bars) >= 2 {
		return bars[1].Time.Sub(bars[0].Time)
	}

	return time.Minute
}

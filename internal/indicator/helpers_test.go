package indicator

import (
	"math"
	"time"

	"github.com/rxtech-lab/argo-analytics/internal/types"
)

// testBars builds a deterministic oscillating series with a mild uptrend so
// every indicator sees both up and down moves.
func testBars(n int) []types.Bar {
	bars := make([]types.Bar, n)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := range bars {
		closePrice := 100 + 10*math.Sin(float64(i)/5) + 0.1*float64(i)

		openPrice := closePrice - 0.5
		if i > 0 {
			openPrice = bars[i-1].Close
		}

		bars[i] = types.Bar{
			Time:   base.Add(time.Duration(i) * time.Minute),
			Open:   openPrice,
			High:   math.Max(openPrice, closePrice) + 1 + float64(i%3),
			Low:    math.Min(openPrice, closePrice) - 1 - float64(i%2),
			Close:  closePrice,
			Volume: 100 + float64(i%7)*10,
		}
	}

	return bars
}

// increasingBars builds a strictly rising close series 1, 2, 3, ...
func increasingBars(n int) []types.Bar {
	bars := make([]types.Bar, n)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := range bars {
		closePrice := float64(i + 1)
		bars[i] = types.Bar{
			Time:   base.Add(time.Duration(i) * time.Minute),
			Open:   closePrice - 0.5,
			High:   closePrice + 1,
			Low:    closePrice - 1,
			Close:  closePrice,
			Volume: 100,
		}
	}

	return bars
}

// flatBars builds a series where every price is identical.
func flatBars(n int) []types.Bar {
	bars := make([]types.Bar, n)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := range bars {
		bars[i] = types.Bar{
			Time:   base.Add(time.Duration(i) * time.Minute),
			Open:   100,
			High:   100,
			Low:    100,
			Close:  100,
			Volume: 100,
		}
	}

	return bars
}

// sameValue reports whether two values are both NaN or numerically close.
func sameValue(a, b float64) bool {
	if math.IsNaN(a) && math.IsNaN(b) {
		return true
	}

	return math.Abs(a-b) < 1e-9
}

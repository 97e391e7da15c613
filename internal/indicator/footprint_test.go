package indicator

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/rxtech-lab/argo-analytics/internal/types"
)

type FootprintTestSuite struct {
	suite.Suite
}

func TestFootprintSuite(t *testing.T) {
	suite.Run(t, new(FootprintTestSuite))
}

func (suite *FootprintTestSuite) TestNiceTickSize() {
	testCases := []struct {
		name     string
		target   float64
		expected float64
	}{
		{name: "below smallest", target: 0.001, expected: 0.01},
		{name: "between candidates picks nearest", target: 0.3, expected: 0.25},
		{name: "exact candidate", target: 1, expected: 1},
		{name: "large target", target: 70, expected: 50},
		{name: "beyond largest", target: 100000, expected: 5000},
	}

	for _, tc := range testCases {
		suite.Run(tc.name, func() {
			suite.Equal(tc.expected, NiceTickSize(tc.target))
		})
	}
}

func (suite *FootprintTestSuite) TestAutoTickSize() {
	// TR is constantly 2, so ATR(14) is 2 and 2/20 snaps to 0.1
	bars := increasingBars(30)

	suite.Equal(0.1, AutoTickSize(bars, 20))
}

func (suite *FootprintTestSuite) TestNoTickTradesIsEmpty() {
	bars := testBars(10)

	result := ComputeFootprint(Context{Bars: bars}, nil)

	suite.True(result.IsEmpty())
}

func (suite *FootprintTestSuite) TestAggregation() {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	bars := []types.Bar{
		{Time: base, Open: 100, High: 101, Low: 99, Close: 100.2, Volume: 10},
		{Time: base.Add(time.Minute), Open: 100.2, High: 102, Low: 100, Close: 101, Volume: 10},
	}

	ticks := []types.TickTrade{
		{Time: base.Add(5 * time.Second), Price: 100.02, Quantity: 2, IsBuyerMaker: false},
		{Time: base.Add(30 * time.Second), Price: 100.26, Quantity: 1, IsBuyerMaker: true},
		{Time: base.Add(70 * time.Second), Price: 101, Quantity: 5, IsBuyerMaker: false},
		// past the last bar's interval, ignored
		{Time: base.Add(3 * time.Minute), Price: 105, Quantity: 50, IsBuyerMaker: false},
	}

	result := ComputeFootprint(Context{Bars: bars, TickTrades: ticks}, []float64{0.25})

	suite.Require().Equal(2, result.Len())

	suite.InDelta(1, result.ComponentAt(FootprintDelta, 0), 1e-9)
	suite.InDelta(2, result.ComponentAt(FootprintBuyVolume, 0), 1e-9)
	suite.InDelta(1, result.ComponentAt(FootprintSellVolume, 0), 1e-9)
	// 100.02 snaps to 100.0 with 2 traded vs 1 at 100.25
	suite.InDelta(100.0, result.ComponentAt(FootprintPOC, 0), 1e-9)

	suite.InDelta(5, result.ComponentAt(FootprintDelta, 1), 1e-9)
	suite.InDelta(5, result.ComponentAt(FootprintBuyVolume, 1), 1e-9)
	suite.InDelta(0, result.ComponentAt(FootprintSellVolume, 1), 1e-9)
	suite.InDelta(101, result.ComponentAt(FootprintPOC, 1), 1e-9)
}

func (suite *FootprintTestSuite) TestBarWithoutTicksHasNaNPOC() {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	bars := []types.Bar{
		{Time: base, Open: 100, High: 101, Low: 99, Close: 100, Volume: 10},
		{Time: base.Add(time.Minute), Open: 100, High: 101, Low: 99, Close: 100, Volume: 10},
	}

	ticks := []types.TickTrade{
		{Time: base.Add(time.Second), Price: 100, Quantity: 1, IsBuyerMaker: false},
	}

	result := ComputeFootprint(Context{Bars: bars, TickTrades: ticks}, []float64{0.25})

	suite.InDelta(1, result.ComponentAt(FootprintDelta, 0), 1e-9)
	suite.Equal(0.0, result.ComponentAt(FootprintDelta, 1))
	suite.True(math.IsNaN(result.ComponentAt(FootprintPOC, 1)))
}

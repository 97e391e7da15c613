package indicator

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type StochasticTestSuite struct {
	suite.Suite
}

func TestStochasticSuite(t *testing.T) {
	suite.Run(t, new(StochasticTestSuite))
}

func (suite *StochasticTestSuite) TestFlatMarketIsFifty() {
	bars := flatBars(30)

	result := ComputeStochastic(Context{Bars: bars}, []float64{14, 3})

	for i := 13; i < 30; i++ {
		suite.Equal(50.0, result.ComponentAt(StochasticK, i))
	}

	for i := 15; i < 30; i++ {
		suite.Equal(50.0, result.ComponentAt(StochasticD, i))
	}
}

func (suite *StochasticTestSuite) TestKnownValues() {
	// rising closes with high = close+1 and low = close-1: over a 3-bar
	// window the range is 4 and close sits 3 above the lowest low
	bars := increasingBars(20)

	result := ComputeStochastic(Context{Bars: bars}, []float64{3, 3})

	for i := 2; i < 20; i++ {
		suite.InDelta(75, result.ComponentAt(StochasticK, i), 1e-9)
	}

	for i := 4; i < 20; i++ {
		suite.InDelta(75, result.ComponentAt(StochasticD, i), 1e-9)
	}
}

func (suite *StochasticTestSuite) TestBounded() {
	bars := testBars(100)

	result := ComputeStochastic(Context{Bars: bars}, []float64{14, 3})

	for i := 13; i < 100; i++ {
		k := result.ComponentAt(StochasticK, i)
		suite.GreaterOrEqual(k, 0.0)
		suite.LessOrEqual(k, 100.0)
	}
}

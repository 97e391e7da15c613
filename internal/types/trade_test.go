package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type TradeTestSuite struct {
	suite.Suite
}

func TestTradeSuite(t *testing.T) {
	suite.Run(t, new(TradeTestSuite))
}

func (suite *TradeTestSuite) TestGrossPnL() {
	testCases := []struct {
		name       string
		side       Side
		entryPrice float64
		exitPrice  float64
		quantity   float64
		expected   float64
	}{
		{name: "long profit", side: SideLong, entryPrice: 100, exitPrice: 110, quantity: 2, expected: 20},
		{name: "long loss", side: SideLong, entryPrice: 100, exitPrice: 95, quantity: 2, expected: -10},
		{name: "short profit", side: SideShort, entryPrice: 100, exitPrice: 90, quantity: 3, expected: 30},
		{name: "short loss", side: SideShort, entryPrice: 100, exitPrice: 105, quantity: 3, expected: -15},
		{name: "flat", side: SideLong, entryPrice: 100, exitPrice: 100, quantity: 5, expected: 0},
		{name: "fractional quantities stay exact", side: SideLong, entryPrice: 0.1, exitPrice: 0.3, quantity: 3, expected: 0.6},
	}

	for _, tc := range testCases {
		suite.Run(tc.name, func() {
			suite.InDelta(tc.expected, GrossPnL(tc.side, tc.entryPrice, tc.exitPrice, tc.quantity), 1e-12)
		})
	}
}

func (suite *TradeTestSuite) TestHoldingTime() {
	entry := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	trade := Trade{EntryTime: entry, ExitTime: entry.Add(90 * time.Minute)}
	suite.Equal(90*time.Minute, trade.HoldingTime())

	suite.Equal(time.Duration(0), Trade{EntryTime: entry}.HoldingTime())
	suite.Equal(time.Duration(0), Trade{}.HoldingTime())
}

func (suite *TradeTestSuite) TestIsTerminalOnly() {
	suite.True(ExitReasonRejected.IsTerminalOnly())
	suite.True(ExitReasonExpired.IsTerminalOnly())
	suite.False(ExitReasonSignal.IsTerminalOnly())
	suite.False(ExitReasonStopLoss.IsTerminalOnly())
	suite.False(ExitReasonTakeProfit.IsTerminalOnly())
	suite.False(ExitReasonTrailingStop.IsTerminalOnly())
}

func (suite *TradeTestSuite) TestTickTradeDerivations() {
	buy := TickTrade{Price: 100, Quantity: 2, IsBuyerMaker: false}
	sell := TickTrade{Price: 50, Quantity: 4, IsBuyerMaker: true}

	suite.Equal(2.0, buy.BuyVolume())
	suite.Equal(0.0, buy.SellVolume())
	suite.Equal(2.0, buy.Delta())
	suite.Equal(200.0, buy.Notional())

	suite.Equal(0.0, sell.BuyVolume())
	suite.Equal(4.0, sell.SellVolume())
	suite.Equal(-4.0, sell.Delta())
	suite.Equal(200.0, sell.Notional())
}

package engine

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-analytics/internal/types"
)

type TradeEngineTestSuite struct {
	suite.Suite
}

func TestTradeEngineSuite(t *testing.T) {
	suite.Run(t, new(TradeEngineTestSuite))
}

// barsFromCloses builds one-minute bars around the given closes.
func barsFromCloses(closes ...float64) []types.Bar {
	bars := make([]types.Bar, len(closes))
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	for i, c := range closes {
		open := c
		if i > 0 {
			open = closes[i-1]
		}

		bars[i] = types.Bar{
			Time:   base.Add(time.Duration(i) * time.Minute),
			Open:   open,
			High:   c + 1,
			Low:    c - 1,
			Close:  c,
			Volume: 100,
		}
	}

	return bars
}

// scripted builds an evaluator that answers true at the listed bar indices.
func scripted(signals map[string][]int) EvaluateFunc {
	lookup := make(map[string]map[int]bool, len(signals))
	for id, indices := range signals {
		lookup[id] = make(map[int]bool, len(indices))
		for _, i := range indices {
			lookup[id][i] = true
		}
	}

	return func(conditionID string, barIndex int) (bool, error) {
		bars, ok := lookup[conditionID]
		if !ok {
			return false, fmt.Errorf("unknown condition %q", conditionID)
		}

		return bars[barIndex], nil
	}
}

func fixedConfig(amount float64) BacktestEngineV1Config {
	return BacktestEngineV1Config{
		InitialCapital:      10000,
		PositionSizingType:  SizingFixedAmount,
		PositionSizingValue: amount,
	}
}

func longStrategy(zones ...types.ExitZone) StrategyConfig {
	return StrategyConfig{
		Name: "test_strategy",
		Entry: EntryConfig{
			ConditionID:   "enter",
			Side:          types.SideLong,
			MaxOpenTrades: 1,
			OrderType:     OrderTypeMarket,
		},
		Zones: zones,
	}
}

func (suite *TradeEngineTestSuite) run(strategy StrategyConfig, config BacktestEngineV1Config, bars []types.Bar, signals map[string][]int) (*TradeEngine, []types.Trade) {
	engine, err := NewTradeEngine(strategy, config, bars, scripted(signals), nil)
	suite.Require().NoError(err)

	trades, err := engine.Run()
	suite.Require().NoError(err)

	return engine, trades
}

func (suite *TradeEngineTestSuite) TestTakeProfitExit() {
	strategy := longStrategy(types.ExitZone{
		Name:            "default",
		TakeProfitType:  types.TakeProfitFixed,
		TakeProfitValue: 5,
	})

	bars := barsFromCloses(100, 104, 106)

	engine, trades := suite.run(strategy, fixedConfig(1000), bars, map[string][]int{"enter": {0}})

	suite.Require().Len(trades, 1)

	trade := trades[0]
	suite.Equal(types.SideLong, trade.Side)
	suite.Equal(0, trade.EntryIndex)
	suite.InDelta(100, trade.EntryPrice, 1e-9)
	suite.InDelta(10, trade.Quantity, 1e-9)
	suite.Equal(2, trade.ExitIndex)
	// fills at the target price, not the bar close
	suite.InDelta(105, trade.ExitPrice, 1e-9)
	suite.InDelta(50, trade.PnL, 1e-9)
	suite.InDelta(5, trade.PnLPercent, 1e-9)
	suite.Equal(types.ExitReasonTakeProfit, trade.ExitReason)
	suite.Equal("default", trade.ExitZoneName)
	suite.Equal(0, engine.OpenPositions())
	suite.InDelta(10050, engine.Equity(), 1e-9)
}

func (suite *TradeEngineTestSuite) TestStopLossExit() {
	strategy := longStrategy(types.ExitZone{
		Name:          "default",
		StopLossType:  types.StopLossFixed,
		StopLossValue: 5,
	})

	bars := barsFromCloses(100, 94)

	_, trades := suite.run(strategy, fixedConfig(1000), bars, map[string][]int{"enter": {0}})

	suite.Require().Len(trades, 1)
	suite.InDelta(95, trades[0].ExitPrice, 1e-9)
	suite.InDelta(-50, trades[0].PnL, 1e-9)
	suite.Equal(types.ExitReasonStopLoss, trades[0].ExitReason)
}

func (suite *TradeEngineTestSuite) TestShortTakeProfit() {
	strategy := longStrategy(types.ExitZone{
		Name:            "default",
		TakeProfitType:  types.TakeProfitFixed,
		TakeProfitValue: 5,
	})
	strategy.Entry.Side = types.SideShort

	bars := barsFromCloses(100, 94)

	_, trades := suite.run(strategy, fixedConfig(1000), bars, map[string][]int{"enter": {0}})

	suite.Require().Len(trades, 1)
	suite.Equal(types.SideShort, trades[0].Side)
	suite.InDelta(95, trades[0].ExitPrice, 1e-9)
	suite.InDelta(50, trades[0].PnL, 1e-9)
	suite.Equal(types.ExitReasonTakeProfit, trades[0].ExitReason)
}

func (suite *TradeEngineTestSuite) TestTrailingStopTightensWithBestPrice() {
	strategy := longStrategy(types.ExitZone{
		Name:          "default",
		StopLossType:  types.StopLossTrailing,
		StopLossValue: 10,
	})

	bars := barsFromCloses(100, 120, 130, 110)

	_, trades := suite.run(strategy, fixedConfig(1000), bars, map[string][]int{"enter": {0}})

	suite.Require().Len(trades, 1)

	trade := trades[0]
	// the stop anchors to the best close of 130
	suite.InDelta(117, trade.ExitPrice, 1e-9)
	suite.InDelta(170, trade.PnL, 1e-9)
	suite.Equal(types.ExitReasonTrailingStop, trade.ExitReason)
	suite.Equal(3, trade.ExitIndex)

	suite.InDelta(30, trade.MFEPercent, 1e-9)
	suite.Equal(2, trade.MFEIndex)
	suite.InDelta(0, trade.MAEPercent, 1e-9)
}

func (suite *TradeEngineTestSuite) TestZoneSelectionBoundary() {
	strategy := longStrategy(
		types.ExitZone{
			Name:          "low",
			MaxPnlPercent: optional.Some(5.0),
		},
		types.ExitZone{
			Name:            "high",
			MinPnlPercent:   optional.Some(5.0),
			ExitImmediately: true,
		},
	)

	// 4% stays in the low zone; exactly 5% crosses into the high zone
	bars := barsFromCloses(100, 104, 105)

	_, trades := suite.run(strategy, fixedConfig(1000), bars, map[string][]int{"enter": {0}})

	suite.Require().Len(trades, 1)
	suite.Equal("high", trades[0].ExitZoneName)
	suite.Equal(2, trades[0].ExitIndex)
	suite.InDelta(105, trades[0].ExitPrice, 1e-9)
	suite.Equal(types.ExitReasonSignal, trades[0].ExitReason)
}

func (suite *TradeEngineTestSuite) TestNoMatchingZoneFallsBackToFirst() {
	strategy := longStrategy(
		types.ExitZone{
			Name:            "first",
			MinPnlPercent:   optional.Some(0.0),
			MaxPnlPercent:   optional.Some(5.0),
			ExitImmediately: true,
		},
		types.ExitZone{
			Name:          "high",
			MinPnlPercent: optional.Some(5.0),
		},
	)

	// -10% matches neither declared range
	bars := barsFromCloses(100, 90)

	_, trades := suite.run(strategy, fixedConfig(1000), bars, map[string][]int{"enter": {0}})

	suite.Require().Len(trades, 1)
	suite.Equal("first", trades[0].ExitZoneName)
	suite.InDelta(90, trades[0].ExitPrice, 1e-9)
}

func (suite *TradeEngineTestSuite) TestPartialExitsNeverExceedPosition() {
	strategy := longStrategy(types.ExitZone{
		Name:            "all",
		ExitConditionID: "take",
		ExitPercent:     25,
		ExitBasis:       types.ExitBasisOriginal,
	})

	bars := barsFromCloses(100, 100, 100, 100, 100, 100)

	engine, trades := suite.run(strategy, fixedConfig(1000), bars, map[string][]int{
		"enter": {0},
		"take":  {1, 2, 3, 4, 5},
	})

	suite.Require().Len(trades, 4)

	total := 0.0
	for _, trade := range trades {
		suite.InDelta(2.5, trade.Quantity, 1e-9)
		total += trade.Quantity
	}

	suite.InDelta(10, total, 1e-9)
	suite.Equal(0, engine.OpenPositions())
}

func (suite *TradeEngineTestSuite) TestRemainingBasisShrinksSlices() {
	strategy := longStrategy(types.ExitZone{
		Name:            "all",
		ExitConditionID: "take",
		ExitPercent:     50,
		ExitBasis:       types.ExitBasisRemaining,
	})

	bars := barsFromCloses(100, 100, 100)

	_, trades := suite.run(strategy, fixedConfig(1000), bars, map[string][]int{
		"enter": {0},
		"take":  {1, 2},
	})

	suite.Require().Len(trades, 2)
	suite.InDelta(5, trades[0].Quantity, 1e-9)
	suite.InDelta(2.5, trades[1].Quantity, 1e-9)
}

func (suite *TradeEngineTestSuite) TestNoCapitalEmitsRejectedTrade() {
	strategy := longStrategy(types.ExitZone{Name: "all"})

	bars := barsFromCloses(100, 100)

	engine, trades := suite.run(strategy, fixedConfig(20000), bars, map[string][]int{"enter": {0}})

	suite.Require().Len(trades, 1)
	suite.Equal(types.ExitReasonRejected, trades[0].ExitReason)
	suite.Equal(0.0, trades[0].Quantity)
	suite.Equal(0, trades[0].EntryIndex)
	suite.Equal(0, engine.OpenPositions())
}

func (suite *TradeEngineTestSuite) TestMinBarsBeforeExitGate() {
	strategy := longStrategy(types.ExitZone{
		Name:              "default",
		TakeProfitType:    types.TakeProfitFixed,
		TakeProfitValue:   5,
		MinBarsBeforeExit: 2,
	})

	bars := barsFromCloses(100, 106, 106)

	_, trades := suite.run(strategy, fixedConfig(1000), bars, map[string][]int{"enter": {0}})

	suite.Require().Len(trades, 1)
	// the target was hit at bar 1 but the gate held it to bar 2
	suite.Equal(2, trades[0].ExitIndex)
	suite.Equal(types.ExitReasonTakeProfit, trades[0].ExitReason)
}

func (suite *TradeEngineTestSuite) TestReentryResetRestoresExitBudget() {
	zones := []types.ExitZone{
		{
			Name:          "rest",
			MaxPnlPercent: optional.Some(5.0),
		},
		{
			Name:            "profit",
			MinPnlPercent:   optional.Some(5.0),
			ExitImmediately: true,
			ExitPercent:     50,
			ExitBasis:       types.ExitBasisRemaining,
			MaxExits:        1,
			ReentryMode:     types.ReentryReset,
		},
	}

	bars := barsFromCloses(100, 106, 100, 106)

	_, trades := suite.run(longStrategy(zones...), fixedConfig(1000), bars, map[string][]int{"enter": {0}})

	suite.Require().Len(trades, 2)
	suite.InDelta(5, trades[0].Quantity, 1e-9)
	suite.Equal(1, trades[0].ExitIndex)
	suite.InDelta(2.5, trades[1].Quantity, 1e-9)
	suite.Equal(3, trades[1].ExitIndex)
}

func (suite *TradeEngineTestSuite) TestReentryContinueKeepsExitBudget() {
	zones := []types.ExitZone{
		{
			Name:          "rest",
			MaxPnlPercent: optional.Some(5.0),
		},
		{
			Name:            "profit",
			MinPnlPercent:   optional.Some(5.0),
			ExitImmediately: true,
			ExitPercent:     50,
			ExitBasis:       types.ExitBasisRemaining,
			MaxExits:        1,
			ReentryMode:     types.ReentryContinue,
		},
	}

	bars := barsFromCloses(100, 106, 100, 106)

	_, trades := suite.run(longStrategy(zones...), fixedConfig(1000), bars, map[string][]int{"enter": {0}})

	// the single exit budget was spent on the first zone visit
	suite.Require().Len(trades, 1)
	suite.Equal(1, trades[0].ExitIndex)
}

func (suite *TradeEngineTestSuite) TestStrategyExitClosesEverything() {
	strategy := longStrategy(types.ExitZone{Name: "all"})
	strategy.ExitConditionID = "exit_all"

	bars := barsFromCloses(100, 110, 90, 100)

	engine, trades := suite.run(strategy, fixedConfig(1000), bars, map[string][]int{
		"enter":    {0},
		"exit_all": {3},
	})

	suite.Require().Len(trades, 1)

	trade := trades[0]
	suite.Equal(3, trade.ExitIndex)
	suite.InDelta(100, trade.ExitPrice, 1e-9)
	suite.Equal(types.ExitReasonSignal, trade.ExitReason)
	suite.InDelta(10, trade.MFEPercent, 1e-9)
	suite.Equal(1, trade.MFEIndex)
	suite.InDelta(-10, trade.MAEPercent, 1e-9)
	suite.Equal(2, trade.MAEIndex)
	suite.Equal(0, engine.OpenPositions())
}

func (suite *TradeEngineTestSuite) TestSlippageAndFees() {
	strategy := longStrategy(types.ExitZone{
		Name:            "all",
		ExitConditionID: "take",
	})

	config := fixedConfig(1000)
	config.FeePercent = 0.1
	config.SlippagePercent = 1

	bars := barsFromCloses(100, 110)

	_, trades := suite.run(strategy, config, bars, map[string][]int{
		"enter": {0},
		"take":  {1},
	})

	suite.Require().Len(trades, 1)

	trade := trades[0]

	entryFill := 100 * 1.01
	exitFill := 110 * 0.99
	quantity := 1000 / entryFill
	fee := 0.001*entryFill*quantity + 0.001*exitFill*quantity
	net := (exitFill-entryFill)*quantity - fee

	suite.InDelta(entryFill, trade.EntryPrice, 1e-9)
	suite.InDelta(exitFill, trade.ExitPrice, 1e-9)
	suite.InDelta(quantity, trade.Quantity, 1e-9)
	suite.InDelta(fee, trade.Fee, 1e-6)
	suite.InDelta(net, trade.PnL, 1e-6)
	suite.InDelta(net/(entryFill*quantity)*100, trade.PnLPercent, 1e-6)
}

func (suite *TradeEngineTestSuite) TestLimitOrderFillsAtLimitPrice() {
	strategy := longStrategy(types.ExitZone{Name: "all"})
	strategy.Entry.OrderType = OrderTypeLimit
	strategy.Entry.LimitOffsetPercent = 5
	strategy.Entry.ExpirationBars = 3
	strategy.ExitConditionID = "exit_all"

	bars := barsFromCloses(100, 100, 100)
	bars[1].Low = 94

	_, trades := suite.run(strategy, fixedConfig(1000), bars, map[string][]int{
		"enter":    {0},
		"exit_all": {2},
	})

	suite.Require().Len(trades, 1)
	// no slippage on limit fills
	suite.InDelta(95, trades[0].EntryPrice, 1e-9)
	suite.InDelta(1000.0/95, trades[0].Quantity, 1e-9)
	suite.Equal(1, trades[0].EntryIndex)
}

func (suite *TradeEngineTestSuite) TestLimitOrderExpires() {
	strategy := longStrategy(types.ExitZone{Name: "all"})
	strategy.Entry.OrderType = OrderTypeLimit
	strategy.Entry.LimitOffsetPercent = 5
	strategy.Entry.ExpirationBars = 2

	// lows never reach the 95 limit
	bars := barsFromCloses(100, 100, 100)

	engine, trades := suite.run(strategy, fixedConfig(1000), bars, map[string][]int{"enter": {0}})

	suite.Require().Len(trades, 1)
	suite.Equal(types.ExitReasonExpired, trades[0].ExitReason)
	suite.Equal(0.0, trades[0].Quantity)
	suite.InDelta(95, trades[0].EntryPrice, 1e-9)
	suite.Equal(0, engine.OpenPositions())
}

func (suite *TradeEngineTestSuite) TestDCALadderAccumulates() {
	strategy := longStrategy(types.ExitZone{Name: "all"})
	strategy.ExitConditionID = "exit_all"
	strategy.Entry.DCA = DCAConfig{
		Enabled:        true,
		MaxEntries:     3,
		MinBarsBetween: 2,
		Mode:           DCAModePause,
	}

	bars := barsFromCloses(100, 100, 100, 100, 100, 100, 100)

	engine, trades := suite.run(strategy, fixedConfig(1000), bars, map[string][]int{
		"enter":    {0, 1, 2, 3, 4},
		"exit_all": {6},
	})

	// entries land on bars 0, 2 and 4; bars 1 and 3 are inside the spacing
	suite.Require().Len(trades, 1)
	suite.InDelta(30, trades[0].Quantity, 1e-9)
	suite.InDelta(100, trades[0].EntryPrice, 1e-9)
	suite.NotEmpty(trades[0].DCAGroupID)
	suite.Equal(0, engine.OpenPositions())
}

func (suite *TradeEngineTestSuite) TestDCAAveragesEntryPrice() {
	strategy := longStrategy(types.ExitZone{Name: "all"})
	strategy.ExitConditionID = "exit_all"
	strategy.Entry.DCA = DCAConfig{
		Enabled:    true,
		MaxEntries: 2,
		Mode:       DCAModePause,
	}

	bars := barsFromCloses(100, 50, 50)

	_, trades := suite.run(strategy, fixedConfig(1000), bars, map[string][]int{
		"enter":    {0, 1},
		"exit_all": {2},
	})

	suite.Require().Len(trades, 1)

	// 10 units at 100 plus 20 units at 50: volume-weighted average of 66.67
	suite.InDelta(30, trades[0].Quantity, 1e-9)
	suite.InDelta(2000.0/30, trades[0].EntryPrice, 1e-9)
}

func (suite *TradeEngineTestSuite) TestDCAAbortOnOpposingSignal() {
	strategy := longStrategy(types.ExitZone{Name: "all"})
	strategy.ExitConditionID = "exit_all"
	strategy.Entry.OpposingConditionID = "opposing"
	strategy.Entry.DCA = DCAConfig{
		Enabled:    true,
		MaxEntries: 3,
		Mode:       DCAModeAbort,
	}

	bars := barsFromCloses(100, 100, 100, 100)

	_, trades := suite.run(strategy, fixedConfig(1000), bars, map[string][]int{
		"enter":    {0, 1, 2},
		"opposing": {1},
		"exit_all": {3},
	})

	// the ladder aborted after the first entry
	suite.Require().Len(trades, 1)
	suite.InDelta(10, trades[0].Quantity, 1e-9)
}

func (suite *TradeEngineTestSuite) TestMaxOpenTradesAndCooldown() {
	strategy := longStrategy(types.ExitZone{Name: "all"})
	strategy.Entry.MaxOpenTrades = 2
	strategy.Entry.MinBarsBetweenEntries = 2

	config := BacktestEngineV1Config{
		InitialCapital:      10000,
		PositionSizingType:  SizingPercentEquity,
		PositionSizingValue: 10,
	}

	bars := barsFromCloses(100, 100, 100, 100)

	engine, trades := suite.run(strategy, config, bars, map[string][]int{
		"enter": {0, 1, 2, 3},
	})

	// bar 1 is inside the cooldown, bar 3 is over the position cap
	suite.Empty(trades)
	suite.Equal(2, engine.OpenPositions())
}

func (suite *TradeEngineTestSuite) TestPercentEquityCompounds() {
	strategy := longStrategy(types.ExitZone{
		Name:            "all",
		ExitConditionID: "take",
	})

	config := BacktestEngineV1Config{
		InitialCapital:      10000,
		PositionSizingType:  SizingPercentEquity,
		PositionSizingValue: 100,
	}

	bars := barsFromCloses(100, 110)

	engine, trades := suite.run(strategy, config, bars, map[string][]int{
		"enter": {0},
		"take":  {1},
	})

	suite.Require().Len(trades, 1)
	suite.InDelta(100, trades[0].Quantity, 1e-9)
	suite.InDelta(1000, trades[0].PnL, 1e-9)
	suite.InDelta(11000, engine.Equity(), 1e-9)
}

func (suite *TradeEngineTestSuite) TestZoneValidationFailsConstruction() {
	strategy := longStrategy(types.ExitZone{
		Name:          "broken",
		MinPnlPercent: optional.Some(5.0),
		MaxPnlPercent: optional.Some(5.0),
	})

	_, err := NewTradeEngine(strategy, fixedConfig(1000), barsFromCloses(100), scripted(nil), nil)
	suite.Error(err)
}

func (suite *TradeEngineTestSuite) TestOutOfRangeBarIndex() {
	engine, err := NewTradeEngine(longStrategy(types.ExitZone{Name: "all"}), fixedConfig(1000), barsFromCloses(100), scripted(nil), nil)
	suite.Require().NoError(err)

	suite.Error(engine.ProcessBar(-1))
	suite.Error(engine.ProcessBar(1))
}

package main

import (
	"context"
	"fmt"
	"log"
	"math"
	"os"

	"github.com/moznion/go-optional"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"

	btengine "github.com/rxtech-lab/argo-analytics/internal/backtest/engine"
	enginev1 "github.com/rxtech-lab/argo-analytics/internal/backtest/engine/engine_v1"
	"github.com/rxtech-lab/argo-analytics/internal/datasource"
	"github.com/rxtech-lab/argo-analytics/internal/indicator"
	"github.com/rxtech-lab/argo-analytics/internal/indicator/cache"
	"github.com/rxtech-lab/argo-analytics/internal/types"
)

func main() {
	cmd := &cli.Command{
		Name:  "backtest",
		Usage: "run a strategy backtest over CSV bar data",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "data",
				Usage:    "path to the OHLCV bar CSV file",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "ticks",
				Usage: "optional path to the tick-trade CSV file",
			},
			&cli.StringFlag{
				Name:     "config",
				Usage:    "path to the backtest YAML config",
				Required: true,
			},
			&cli.StringFlag{
				Name:     "strategy",
				Usage:    "path to the strategy YAML config",
				Required: true,
			},
			&cli.StringFlag{
				Name:  "output",
				Usage: "results folder",
				Value: "./results",
			},
		},
		Action: runBacktest,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func runBacktest(ctx context.Context, cmd *cli.Command) error {
	bars, err := datasource.LoadBarsCSV(cmd.String("data"))
	if err != nil {
		return err
	}

	var tickTrades []types.TickTrade
	if ticksPath := cmd.String("ticks"); ticksPath != "" {
		tickTrades, err = datasource.LoadTickTradesCSV(ticksPath)
		if err != nil {
			return err
		}
	}

	config, err := os.ReadFile(cmd.String("config"))
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}

	strategy, err := os.ReadFile(cmd.String("strategy"))
	if err != nil {
		return fmt.Errorf("failed to read strategy: %w", err)
	}

	backtester := enginev1.NewBacktestEngineV1()

	if err := backtester.Initialize(string(config)); err != nil {
		return fmt.Errorf("failed to initialize backtest engine: %w", err)
	}
	defer backtester.Shutdown()

	if err := backtester.SetStrategyConfig(string(strategy)); err != nil {
		return fmt.Errorf("failed to set strategy: %w", err)
	}

	if err := backtester.SetData(bars, tickTrades); err != nil {
		return err
	}

	backtester.SetConditionEvaluator(smaCrossEvaluator(backtester.IndicatorCache()))
	backtester.SetResultsFolder(cmd.String("output"))

	bar := progressbar.Default(int64(len(bars)), "backtesting")
	callback := btengine.OnProcessDataCallback(func(current, total int) {
		_ = bar.Set(current)
	})

	if err := backtester.Run(optional.Some(callback)); err != nil {
		return err
	}

	metrics := backtester.Metrics()
	fmt.Printf("\ntrades: %d  win rate: %.1f%%  total return: %.2f (%.2f%%)  max drawdown: %.2f%%\n",
		metrics.TotalTrades, metrics.WinRate*100, metrics.TotalReturn,
		metrics.TotalReturnPercent, metrics.MaxDrawdownPercent)

	return nil
}

// smaCrossEvaluator is a stand-in for the external condition DSL: it
// understands "sma_cross_up" and "sma_cross_down" over SMA(10)/SMA(30),
// served through the shared indicator cache.
func smaCrossEvaluator(c *cache.Cache) enginev1.EvaluateFunc {
	fast := indicator.Query{Type: types.IndicatorTypeSMA, Params: []float64{10}}
	slow := indicator.Query{Type: types.IndicatorTypeSMA, Params: []float64{30}}

	return func(conditionID string, barIndex int) (bool, error) {
		if barIndex == 0 {
			return false, nil
		}

		fastSeries, err := c.GetSync(fast)
		if err != nil {
			return false, err
		}

		slowSeries, err := c.GetSync(slow)
		if err != nil {
			return false, err
		}

		prevFast, curFast := fastSeries.At(barIndex-1), fastSeries.At(barIndex)
		prevSlow, curSlow := slowSeries.At(barIndex-1), slowSeries.At(barIndex)

		if math.IsNaN(prevFast) || math.IsNaN(prevSlow) || math.IsNaN(curFast) || math.IsNaN(curSlow) {
			return false, nil
		}

		switch conditionID {
		case "sma_cross_up":
			return prevFast <= prevSlow && curFast > curSlow, nil
		case "sma_cross_down":
			return prevFast >= prevSlow && curFast < curSlow, nil
		default:
			return false, fmt.Errorf("unknown condition %q", conditionID)
		}
	}
}

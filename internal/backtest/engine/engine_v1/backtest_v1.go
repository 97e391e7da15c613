package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/moznion/go-optional"
	"go.uber.org/zap"

	"github.com/rxtech-lab/argo-analytics/internal/backtest/engine"
	"github.com/rxtech-lab/argo-analytics/internal/indicator"
	"github.com/rxtech-lab/argo-analytics/internal/indicator/cache"
	"github.com/rxtech-lab/argo-analytics/internal/logger"
	"github.com/rxtech-lab/argo-analytics/internal/types"
)

// cacheCloseGrace bounds how long Run waits for background indicator work on
// shutdown.
const cacheCloseGrace = 5 * time.Second

// BacktestEngineV1 wires the indicator engine and cache, the external
// condition evaluator, the trade engine and the performance aggregator into
// one run. The backtest itself is strictly synchronous: it reads indicators
// through the cache's blocking path only.
type BacktestEngineV1 struct {
	config         BacktestEngineV1Config
	strategy       StrategyConfig
	strategyLoaded bool
	resultsFolder  string
	log            *logger.Logger

	registry        indicator.Registry
	indicatorEngine *indicator.Engine
	indicatorCache  *cache.Cache
	evaluate        EvaluateFunc

	bars       []types.Bar
	tickTrades []types.TickTrade

	trades  []types.Trade
	metrics types.PerformanceMetrics
}

// NewBacktestEngineV1 creates an engine with defaults. Initialize must be
// called before Run.
func NewBacktestEngineV1() *BacktestEngineV1 {
	return &BacktestEngineV1{
		config: EmptyConfig(),
	}
}

var _ engine.Engine = (*BacktestEngineV1)(nil)

// Initialize parses the engine configuration and builds the indicator stack.
func (b *BacktestEngineV1) Initialize(config string) error {
	parsed, err := ParseBacktestConfig(config)
	if err != nil {
		return err
	}

	b.config = parsed

	b.log, err = logger.NewLogger()
	if err != nil {
		return err
	}

	b.log.Debug("backtest engine initialized",
		zap.String("config", config),
	)

	b.registry = indicator.NewDefaultRegistry()
	b.indicatorEngine = indicator.NewEngine(b.registry)
	b.indicatorCache = cache.NewCache(b.indicatorEngine, b.config.CacheWorkers, b.log)

	return nil
}

// SetStrategyConfig parses and validates the strategy configuration.
func (b *BacktestEngineV1) SetStrategyConfig(config string) error {
	strategy, warnings, err := ParseStrategyConfig(config)
	if err != nil {
		return err
	}

	for _, warning := range warnings {
		b.log.Warn("strategy configuration", zap.String("warning", warning))
	}

	b.strategy = strategy
	b.strategyLoaded = true

	return nil
}

// SetConditionEvaluator supplies the external condition evaluator.
func (b *BacktestEngineV1) SetConditionEvaluator(evaluate EvaluateFunc) {
	b.evaluate = evaluate
}

// SetData supplies the bar sequence and optional tick trades for the run and
// resets the indicator context.
func (b *BacktestEngineV1) SetData(bars []types.Bar, tickTrades []types.TickTrade) error {
	if len(bars) == 0 {
		return fmt.Errorf("SetData: at least one bar is required")
	}

	b.bars = bars
	b.tickTrades = tickTrades

	if b.indicatorCache != nil {
		b.indicatorCache.SetContext(bars, tickTrades)
	}

	return nil
}

// SetResultsFolder sets where run artifacts are written. Empty disables
// artifact writing.
func (b *BacktestEngineV1) SetResultsFolder(folder string) {
	b.resultsFolder = folder
}

// IndicatorCache exposes the shared cache so interactive consumers (chart
// renderers) can request the same computations asynchronously.
func (b *BacktestEngineV1) IndicatorCache() *cache.Cache {
	return b.indicatorCache
}

func (b *BacktestEngineV1) preRunCheck() error {
	if b.log == nil {
		return fmt.Errorf("preRunCheck: engine is not initialized")
	}

	if !b.strategyLoaded {
		return fmt.Errorf("preRunCheck: no strategy configured")
	}

	if b.evaluate == nil {
		return fmt.Errorf("preRunCheck: no condition evaluator configured")
	}

	if len(b.bars) == 0 {
		return fmt.Errorf("preRunCheck: no data configured")
	}

	return nil
}

// Run executes the backtest to completion, computes the performance summary
// and, when a results folder is set, writes the run artifacts.
func (b *BacktestEngineV1) Run(onProcessDataCallback optional.Option[engine.OnProcessDataCallback]) error {
	if err := b.preRunCheck(); err != nil {
		return err
	}

	tradeEngine, err := NewTradeEngine(b.strategy, b.config, b.bars, b.evaluate, b.log)
	if err != nil {
		return err
	}

	b.log.Debug("running strategy",
		zap.String("strategy", b.strategy.Name),
		zap.Int("bars", len(b.bars)),
	)

	total := len(b.bars)
	for i := range b.bars {
		if err := tradeEngine.ProcessBar(i); err != nil {
			return fmt.Errorf("Run: failed to process bar %d: %w", i, err)
		}

		if onProcessDataCallback.IsSome() {
			onProcessDataCallback.Unwrap()(i+1, total)
		}
	}

	b.trades = tradeEngine.Trades()
	b.metrics = ComputePerformanceMetrics(b.strategy.Name, b.trades, b.config.InitialCapital)

	if b.resultsFolder != "" {
		if err := b.writeResults(); err != nil {
			return fmt.Errorf("Run: failed to write results: %w", err)
		}
	}

	return nil
}

// Trades returns the ordered immutable trade ledger of the last run.
func (b *BacktestEngineV1) Trades() []types.Trade {
	return b.trades
}

// Metrics returns the performance summary of the last run.
func (b *BacktestEngineV1) Metrics() types.PerformanceMetrics {
	return b.metrics
}

// Shutdown drains the indicator cache's background workers.
func (b *BacktestEngineV1) Shutdown() error {
	if b.indicatorCache == nil {
		return nil
	}

	return b.indicatorCache.Close(cacheCloseGrace)
}

func (b *BacktestEngineV1) writeResults() error {
	resultFolder := filepath.Join(b.resultsFolder, b.strategy.Name)
	if err := os.MkdirAll(resultFolder, 0755); err != nil {
		return fmt.Errorf("failed to create results folder: %w", err)
	}

	if err := types.WritePerformanceMetrics(filepath.Join(resultFolder, "stats.yaml"), b.metrics); err != nil {
		return fmt.Errorf("failed to write stats: %w", err)
	}

	ledger, err := NewLedger(b.log)
	if err != nil {
		return err
	}
	defer ledger.Close()

	if err := ledger.Append(b.trades...); err != nil {
		return err
	}

	if err := ledger.Write(resultFolder); err != nil {
		return err
	}

	return nil
}

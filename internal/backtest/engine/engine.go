package engine

import (
	"github.com/moznion/go-optional"

	"github.com/rxtech-lab/argo-analytics/internal/types"
)

// OnProcessDataCallback reports backtest progress: bars processed so far and
// the total bar count.
type OnProcessDataCallback func(current int, total int)

// Engine runs a strategy configuration over historical data and produces a
// trade ledger plus performance metrics.
type Engine interface {
	// Initialize parses the engine-level YAML configuration.
	Initialize(config string) error
	// SetStrategyConfig parses the strategy YAML configuration.
	SetStrategyConfig(config string) error
	// SetData supplies the bar sequence and optional tick trades for the run.
	SetData(bars []types.Bar, tickTrades []types.TickTrade) error
	// SetResultsFolder sets where run artifacts are written.
	SetResultsFolder(folder string)
	// Run executes the backtest to completion.
	Run(onProcessDataCallback optional.Option[OnProcessDataCallback]) error
	// Trades returns the ordered immutable trade ledger of the last run.
	Trades() []types.Trade
	// Metrics returns the performance summary of the last run.
	Metrics() types.PerformanceMetrics
}

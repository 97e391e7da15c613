package types

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// PerformanceMetrics is the summary of a completed backtest run. It is
// recomputed wholesale from the trade ledger, never mutated incrementally.
type PerformanceMetrics struct {
	// ID is the unique identifier for this backtest run.
	ID string `yaml:"id"`
	// Timestamp is when this backtest run was executed.
	Timestamp time.Time `yaml:"timestamp"`
	// StrategyName of the strategy that produced the ledger.
	StrategyName string `yaml:"strategy_name"`

	TotalTrades   int `yaml:"total_trades"`
	WinningTrades int `yaml:"winning_trades"`
	LosingTrades  int `yaml:"losing_trades"`
	// RejectedTrades counts signals that fired with no available capital.
	RejectedTrades int `yaml:"rejected_trades"`
	// ExpiredTrades counts pending entries that never filled.
	ExpiredTrades int `yaml:"expired_trades"`

	WinRate float64 `yaml:"win_rate"`
	// ProfitFactor is gross win / gross loss: +Inf when losses are zero and
	// wins are positive, 0 when both are zero.
	ProfitFactor       float64 `yaml:"profit_factor"`
	TotalReturn        float64 `yaml:"total_return"`
	TotalReturnPercent float64 `yaml:"total_return_percent"`
	MaxDrawdown        float64 `yaml:"max_drawdown"`
	MaxDrawdownPercent float64 `yaml:"max_drawdown_percent"`
	// SharpeRatio is mean per-trade PnL percent over its population standard
	// deviation, annualized by sqrt(252). 0 when undefined.
	SharpeRatio     float64 `yaml:"sharpe_ratio"`
	AverageWin      float64 `yaml:"average_win"`
	AverageLoss     float64 `yaml:"average_loss"`
	LargestWin      float64 `yaml:"largest_win"`
	LargestLoss     float64 `yaml:"largest_loss"`
	AvgHoldingHours float64 `yaml:"avg_holding_hours"`
	FinalEquity     float64 `yaml:"final_equity"`
	TotalFees       float64 `yaml:"total_fees"`
	// MaxCapitalUsagePercent is the peak of invested/equity over the
	// chronological entry/exit event timeline; MaxCapitalUsageAmount is the
	// invested notional at that peak.
	MaxCapitalUsagePercent float64 `yaml:"max_capital_usage_percent"`
	MaxCapitalUsageAmount  float64 `yaml:"max_capital_usage_amount"`
}

// WritePerformanceMetrics writes the metrics of a run as YAML.
func WritePerformanceMetrics(path string, metrics PerformanceMetrics) error {
	data, err := yaml.Marshal(metrics)
	if err != nil {
		return fmt.Errorf("failed to marshal performance metrics to YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write performance metrics to file: %w", err)
	}

	return nil
}

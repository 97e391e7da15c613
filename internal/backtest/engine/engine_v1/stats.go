package engine

import (
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/rxtech-lab/argo-analytics/internal/types"
)

// annualizationFactor scales the per-trade Sharpe ratio to trading days.
var annualizationFactor = math.Sqrt(252)

// ComputePerformanceMetrics aggregates a completed run's trade ledger into a
// single summary. The metrics are recomputed wholesale from the ledger;
// unrealized PnL is excluded since backtests always run to completion.
func ComputePerformanceMetrics(strategyName string, trades []types.Trade, initialCapital float64) types.PerformanceMetrics {
	metrics := types.PerformanceMetrics{
		ID:           uuid.New().String(),
		Timestamp:    time.Now(),
		StrategyName: strategyName,
		FinalEquity:  initialCapital,
	}

	equity := initialCapital
	peak := initialCapital

	var (
		grossWin, grossLoss float64
		pnlPercents         []float64
		totalHolding        time.Duration
		closedTrades        int
	)

	for _, trade := range trades {
		if trade.ExitReason == types.ExitReasonRejected {
			metrics.RejectedTrades++

			continue
		}

		if trade.ExitReason == types.ExitReasonExpired {
			metrics.ExpiredTrades++

			continue
		}

		closedTrades++
		metrics.TotalFees += trade.Fee
		totalHolding += trade.HoldingTime()

		switch {
		case trade.PnL > 0:
			metrics.WinningTrades++
			grossWin += trade.PnL

			if trade.PnL > metrics.LargestWin {
				metrics.LargestWin = trade.PnL
			}
		case trade.PnL < 0:
			metrics.LosingTrades++
			grossLoss += -trade.PnL

			if trade.PnL < metrics.LargestLoss {
				metrics.LargestLoss = trade.PnL
			}
		}

		equity += trade.PnL
		if equity > peak {
			peak = equity
		}

		drawdown := peak - equity
		if drawdown > metrics.MaxDrawdown {
			metrics.MaxDrawdown = drawdown

			if peak > 0 {
				metrics.MaxDrawdownPercent = drawdown / peak * 100
			}
		}

		pnlPercents = append(pnlPercents, trade.PnLPercent)
	}

	metrics.TotalTrades = closedTrades
	metrics.TotalReturn = equity - initialCapital
	metrics.FinalEquity = equity

	if initialCapital > 0 {
		metrics.TotalReturnPercent = metrics.TotalReturn / initialCapital * 100
	}

	if closedTrades > 0 {
		metrics.WinRate = float64(metrics.WinningTrades) / float64(closedTrades)
		metrics.AvgHoldingHours = totalHolding.Hours() / float64(closedTrades)
	}

	if metrics.WinningTrades > 0 {
		metrics.AverageWin = grossWin / float64(metrics.WinningTrades)
	}

	if metrics.LosingTrades > 0 {
		metrics.AverageLoss = -grossLoss / float64(metrics.LosingTrades)
	}

	metrics.ProfitFactor = profitFactor(grossWin, grossLoss)
	metrics.SharpeRatio = sharpeRatio(pnlPercents)
	metrics.MaxCapitalUsagePercent, metrics.MaxCapitalUsageAmount = maxCapitalUsage(trades, initialCapital)

	return metrics
}

// profitFactor is gross win over gross loss, +Inf when losses are zero and
// wins are positive, 0 when both are zero.
func profitFactor(grossWin, grossLoss float64) float64 {
	if grossLoss == 0 {
		if grossWin > 0 {
			return math.Inf(1)
		}

		return 0
	}

	return grossWin / grossLoss
}

// sharpeRatio is the population mean over the population standard deviation
// of per-trade PnL percents, annualized by sqrt(252). 0 when the deviation is
// zero or no trades closed.
func sharpeRatio(pnlPercents []float64) float64 {
	if len(pnlPercents) == 0 {
		return 0
	}

	mean := 0.0
	for _, p := range pnlPercents {
		mean += p
	}

	mean /= float64(len(pnlPercents))

	variance := 0.0
	for _, p := range pnlPercents {
		diff := p - mean
		variance += diff * diff
	}

	variance /= float64(len(pnlPercents))

	stddev := math.Sqrt(variance)
	if stddev == 0 {
		return 0
	}

	return mean / stddev * annualizationFactor
}

// capitalEvent is one point of the entry/exit replay timeline.
type capitalEvent struct {
	at time.Time
	// isExit events sort before entries at the same timestamp so freed
	// capital is available before being re-committed.
	isExit   bool
	notional float64
	pnl      float64
}

// maxCapitalUsage replays entries and exits chronologically and reports the
// peak of invested/equity together with the invested notional at that peak.
func maxCapitalUsage(trades []types.Trade, initialCapital float64) (float64, float64) {
	var events []capitalEvent

	for _, trade := range trades {
		if trade.Quantity <= 0 || trade.ExitReason.IsTerminalOnly() {
			continue
		}

		notional := trade.EntryPrice * trade.Quantity
		events = append(events, capitalEvent{at: trade.EntryTime, notional: notional})
		events = append(events, capitalEvent{at: trade.ExitTime, isExit: true, notional: notional, pnl: trade.PnL})
	}

	sort.SliceStable(events, func(i, j int) bool {
		if events[i].at.Equal(events[j].at) {
			return events[i].isExit && !events[j].isExit
		}

		return events[i].at.Before(events[j].at)
	})

	equity := initialCapital
	invested := 0.0

	var maxPercent, amountAtMax float64

	for _, event := range events {
		if event.isExit {
			invested -= event.notional
			equity += event.pnl

			continue
		}

		invested += event.notional

		if equity > 0 {
			percent := invested / equity * 100
			if percent > maxPercent {
				maxPercent = percent
				amountAtMax = invested
			}
		}
	}

	return maxPercent, amountAtMax
}

package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side is the direction of a position.
type Side string

const (
	SideLong  Side = "long"
	SideShort Side = "short"
)

// ExitReason records why a trade slice was closed.
type ExitReason string

const (
	ExitReasonSignal       ExitReason = "signal"
	ExitReasonStopLoss     ExitReason = "stop_loss"
	ExitReasonTakeProfit   ExitReason = "take_profit"
	ExitReasonTrailingStop ExitReason = "trailing_stop"
	ExitReasonRejected     ExitReason = "rejected"
	ExitReasonExpired      ExitReason = "expired"
)

// IsTerminalOnly reports whether the reason marks a trade that never held
// quantity (rejected entries and expired pending orders). Such trades are
// kept for signal and fee analytics but excluded from win/loss statistics.
func (r ExitReason) IsTerminalOnly() bool {
	return r == ExitReasonRejected || r == ExitReasonExpired
}

// Trade is an immutable record of a closed slice of a position. A partial
// close emits a new Trade for the closed quantity only; the remaining open
// quantity is tracked by the engine's live position state, never by mutating
// an emitted Trade.
type Trade struct {
	ID           string     `csv:"id"`
	StrategyName string     `csv:"strategy_name"`
	Side         Side       `csv:"side"`
	EntryIndex   int        `csv:"entry_index"`
	EntryTime    time.Time  `csv:"entry_time"`
	EntryPrice   float64    `csv:"entry_price"`
	Quantity     float64    `csv:"quantity"`
	ExitIndex    int        `csv:"exit_index"`
	ExitTime     time.Time  `csv:"exit_time"`
	ExitPrice    float64    `csv:"exit_price"`
	PnL          float64    `csv:"pnl"`
	PnLPercent   float64    `csv:"pnl_percent"`
	Fee          float64    `csv:"fee"`
	ExitReason   ExitReason `csv:"exit_reason"`
	DCAGroupID   string     `csv:"dca_group_id"`
	ExitZoneName string     `csv:"exit_zone_name"`
	// MFE/MAE are the best and worst unrealized PnL percent reached between
	// entry and exit, with the bar index at which each occurred.
	MFEPercent float64 `csv:"mfe_percent"`
	MFEIndex   int     `csv:"mfe_index"`
	MAEPercent float64 `csv:"mae_percent"`
	MAEIndex   int     `csv:"mae_index"`
}

// HoldingTime returns the duration the slice was held.
func (t Trade) HoldingTime() time.Duration {
	if t.ExitTime.IsZero() || t.EntryTime.IsZero() {
		return 0
	}

	return t.ExitTime.Sub(t.EntryTime)
}

// GrossPnL computes the fee-free profit of a closed slice.
func GrossPnL(side Side, entryPrice, exitPrice, quantity float64) float64 {
	entry := decimal.NewFromFloat(entryPrice)
	exit := decimal.NewFromFloat(exitPrice)
	qty := decimal.NewFromFloat(quantity)

	diff := exit.Sub(entry)
	if side == SideShort {
		diff = entry.Sub(exit)
	}

	result, _ := diff.Mul(qty).Float64()

	return result
}

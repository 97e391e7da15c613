package engine

import (
	"fmt"
	"math"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rxtech-lab/argo-analytics/internal/backtest/engine/engine_v1/commission_fee"
	"github.com/rxtech-lab/argo-analytics/internal/logger"
	"github.com/rxtech-lab/argo-analytics/internal/types"
)

// EvaluateFunc is the external condition evaluator. The engine only calls it
// with a previously-validated condition id and a bar index; evaluation
// failure is treated as "condition not met" for that bar.
type EvaluateFunc func(conditionID string, barIndex int) (bool, error)

// quantities below this are treated as fully closed
const qtyEpsilon = 1e-9

// pendingOrder is a resting limit entry waiting for a fill.
type pendingOrder struct {
	signalIndex int
	side        types.Side
	limitPrice  float64
	// dcaGroupID is set when the order adds to an existing position.
	dcaGroupID string
}

// TradeEngine is the per-run trade lifecycle state machine. It consumes
// entry/exit boolean signals and bar prices, manages open positions (sizing,
// DCA ladders, zone-based stop/take-profit/partial-exit policy) and emits
// immutable Trade records at close boundaries.
//
// The engine is single-goroutine per run. Independent runs over the same
// read-only bar data are safe to execute concurrently.
type TradeEngine struct {
	strategy   StrategyConfig
	config     BacktestEngineV1Config
	commission commission_fee.CommissionFee
	evaluate   EvaluateFunc
	log        *logger.Logger

	bars     []types.Bar
	realized float64
	// positions are open, ordered by entry; the most recent receives DCA
	// entries.
	positions []*position
	pending   []pendingOrder
	trades    []types.Trade

	lastFreshEntryIndex int
	warnings            []string
}

// NewTradeEngine validates the strategy's zones and builds a run-scoped
// engine. Zone overlap problems are collected as warnings; first match wins
// at runtime.
func NewTradeEngine(strategy StrategyConfig, config BacktestEngineV1Config, bars []types.Bar, evaluate EvaluateFunc, log *logger.Logger) (*TradeEngine, error) {
	if evaluate == nil {
		return nil, fmt.Errorf("NewTradeEngine: condition evaluator is required")
	}

	if log == nil {
		log = logger.NewNopLogger()
	}

	warnings, err := types.ValidateZones(strategy.Zones)
	if err != nil {
		return nil, fmt.Errorf("NewTradeEngine: %w", err)
	}

	for _, warning := range warnings {
		log.Warn("exit zone configuration", zap.String("warning", warning))
	}

	return &TradeEngine{
		strategy:            strategy,
		config:              config,
		commission:          commission_fee.NewPercentCommissionFee(config.FeePercent),
		evaluate:            evaluate,
		log:                 log,
		bars:                bars,
		lastFreshEntryIndex: -1,
		warnings:            warnings,
	}, nil
}

// Warnings returns the configuration warnings collected at construction.
func (e *TradeEngine) Warnings() []string {
	return e.warnings
}

// Trades returns the ordered trade ledger emitted so far.
func (e *TradeEngine) Trades() []types.Trade {
	return e.trades
}

// Equity returns current equity: initial capital plus realized net PnL.
func (e *TradeEngine) Equity() float64 {
	return e.config.InitialCapital + e.realized
}

// invested returns the entry notional committed to open positions.
func (e *TradeEngine) invested() float64 {
	total := 0.0
	for _, pos := range e.positions {
		total += pos.avgEntryPrice * pos.openQty
	}

	return total
}

// OpenPositions returns the number of open positions.
func (e *TradeEngine) OpenPositions() int {
	return len(e.positions)
}

// Run processes every bar in order and returns the final trade ledger.
func (e *TradeEngine) Run() ([]types.Trade, error) {
	for i := range e.bars {
		if err := e.ProcessBar(i); err != nil {
			return nil, err
		}
	}

	return e.trades, nil
}

// ProcessBar advances the state machine by one bar: pending order fills and
// expiry, then exits, then entries. Exits run first so freed capital is
// available to entries on the same bar.
func (e *TradeEngine) ProcessBar(barIndex int) error {
	if barIndex < 0 || barIndex >= len(e.bars) {
		return fmt.Errorf("ProcessBar: bar index %d out of range", barIndex)
	}

	e.processPendingOrders(barIndex)
	e.processExits(barIndex)
	e.processEntries(barIndex)

	return nil
}

// condition evaluates a condition id, treating errors and empty ids as false.
func (e *TradeEngine) condition(conditionID string, barIndex int) bool {
	if conditionID == "" {
		return false
	}

	met, err := e.evaluate(conditionID, barIndex)
	if err != nil {
		e.log.Debug("condition evaluation failed, treating as not met",
			zap.String("condition_id", conditionID),
			zap.Int("bar_index", barIndex),
			zap.Error(err),
		)

		return false
	}

	return met
}

func (e *TradeEngine) applySlippage(price float64, side types.Side, isEntry bool) float64 {
	slip := e.config.SlippagePercent / 100
	if slip == 0 {
		return price
	}

	// slippage always moves the fill against the trader
	adverse := (side == types.SideLong) == isEntry
	if adverse {
		return price * (1 + slip)
	}

	return price * (1 - slip)
}

// --- entries ---

func (e *TradeEngine) processEntries(barIndex int) {
	entry := e.strategy.Entry

	if entry.DCA.Enabled && entry.DCA.Mode == DCAModeAbort && e.condition(entry.OpposingConditionID, barIndex) {
		for _, pos := range e.positions {
			if !pos.dcaAborted {
				pos.dcaAborted = true
				e.log.Debug("DCA ladder aborted on opposing signal",
					zap.String("dca_group", pos.dcaGroupID),
					zap.Int("bar_index", barIndex),
				)
			}
		}
	}

	if !e.condition(entry.ConditionID, barIndex) {
		return
	}

	// DCA takes priority over fresh entries when both are possible on the
	// same bar.
	if entry.DCA.Enabled {
		if pos := e.dcaEligiblePosition(barIndex); pos != nil {
			e.placeEntry(barIndex, pos)

			return
		}

		if len(e.positions) > 0 {
			// ladder exists but is not eligible this bar; the bar is consumed
			return
		}
	}

	if len(e.positions) >= entry.MaxOpenTrades {
		return
	}

	if e.lastFreshEntryIndex >= 0 && barIndex-e.lastFreshEntryIndex < entry.MinBarsBetweenEntries {
		return
	}

	e.placeEntry(barIndex, nil)
}

// dcaEligiblePosition returns the most recent position that can take another
// DCA entry this bar, or nil.
func (e *TradeEngine) dcaEligiblePosition(barIndex int) *position {
	entry := e.strategy.Entry

	for i := len(e.positions) - 1; i >= 0; i-- {
		pos := e.positions[i]

		if pos.dcaAborted || pos.dcaEntries >= entry.DCA.MaxEntries {
			continue
		}

		spacing := barIndex - pos.lastEntryIndex

		switch entry.DCA.Mode {
		case DCAModeContinue:
			// spacing is ignored once the ladder has started
		default:
			if spacing < entry.DCA.MinBarsBetween {
				continue
			}
		}

		return pos
	}

	return nil
}

// placeEntry opens or extends a position at the current bar. Market orders
// fill at the bar close; limit orders rest until filled or expired.
func (e *TradeEngine) placeEntry(barIndex int, pos *position) {
	entry := e.strategy.Entry
	bar := e.bars[barIndex]

	if entry.OrderType == OrderTypeLimit {
		offset := entry.LimitOffsetPercent / 100

		limitPrice := bar.Close * (1 - offset)
		if entry.Side == types.SideShort {
			limitPrice = bar.Close * (1 + offset)
		}

		order := pendingOrder{signalIndex: barIndex, side: entry.Side, limitPrice: limitPrice}
		if pos != nil {
			order.dcaGroupID = pos.dcaGroupID
		}

		e.pending = append(e.pending, order)

		return
	}

	e.fillEntry(barIndex, e.applySlippage(bar.Close, entry.Side, true), pos)
}

// fillEntry commits capital at the fill price. A signal with no available
// capital emits a zero-quantity rejected trade instead of opening.
func (e *TradeEngine) fillEntry(barIndex int, fillPrice float64, pos *position) {
	bar := e.bars[barIndex]
	entry := e.strategy.Entry

	amount := e.config.PositionSizingValue
	if e.config.PositionSizingType == SizingPercentEquity {
		amount = e.Equity() * e.config.PositionSizingValue / 100
	}

	available := e.Equity() - e.invested()
	if amount > available+qtyEpsilon || amount <= 0 {
		e.emitNonFill(barIndex, fillPrice, types.ExitReasonRejected, pos)

		return
	}

	quantity := amount / fillPrice

	if pos != nil {
		pos.addEntry(barIndex, fillPrice, quantity)

		return
	}

	created := newPosition(uuid.New().String(), entry.Side, barIndex, bar.Time, fillPrice, quantity, e.strategy.Zones)
	e.positions = append(e.positions, created)
	e.lastFreshEntryIndex = barIndex
}

// emitNonFill records a terminal zero-quantity trade for a rejected or
// expired entry. These are kept for signal analytics and excluded from
// win/loss statistics.
func (e *TradeEngine) emitNonFill(barIndex int, price float64, reason types.ExitReason, pos *position) {
	bar := e.bars[barIndex]

	groupID := ""
	if pos != nil {
		groupID = pos.dcaGroupID
	}

	e.trades = append(e.trades, types.Trade{
		ID:           uuid.New().String(),
		StrategyName: e.strategy.Name,
		Side:         e.strategy.Entry.Side,
		EntryIndex:   barIndex,
		EntryTime:    bar.Time,
		EntryPrice:   price,
		Quantity:     0,
		ExitIndex:    barIndex,
		ExitTime:     bar.Time,
		ExitReason:   reason,
		DCAGroupID:   groupID,
	})
}

func (e *TradeEngine) processPendingOrders(barIndex int) {
	if len(e.pending) == 0 {
		return
	}

	bar := e.bars[barIndex]
	expiration := e.strategy.Entry.ExpirationBars

	remaining := e.pending[:0]

	for _, order := range e.pending {
		pos := e.findPosition(order.dcaGroupID)
		if order.dcaGroupID != "" && pos == nil {
			// the position closed before the DCA order filled; cancel quietly
			continue
		}

		filled := false
		if order.side == types.SideLong {
			filled = bar.Low <= order.limitPrice
		} else {
			filled = bar.High >= order.limitPrice
		}

		if filled {
			// limit orders fill at the limit price, no slippage
			e.fillEntry(barIndex, order.limitPrice, pos)

			continue
		}

		if expiration > 0 && barIndex-order.signalIndex >= expiration {
			e.emitNonFill(barIndex, order.limitPrice, types.ExitReasonExpired, pos)

			continue
		}

		remaining = append(remaining, order)
	}

	e.pending = remaining
}

func (e *TradeEngine) findPosition(dcaGroupID string) *position {
	if dcaGroupID == "" {
		return nil
	}

	for _, pos := range e.positions {
		if pos.dcaGroupID == dcaGroupID {
			return pos
		}
	}

	return nil
}

// --- exits ---

// selectZone picks the first declared zone containing pnlPercent, falling
// back to the first declared zone.
func (e *TradeEngine) selectZone(pnlPercent float64) types.ExitZone {
	for _, zone := range e.strategy.Zones {
		if zone.Contains(pnlPercent) {
			return zone
		}
	}

	return e.strategy.Zones[0]
}

func (e *TradeEngine) processExits(barIndex int) {
	bar := e.bars[barIndex]

	survivors := e.positions[:0]

	for _, pos := range e.positions {
		e.processPositionExits(pos, barIndex, bar)

		if pos.openQty > qtyEpsilon {
			survivors = append(survivors, pos)
		}
	}

	e.positions = survivors
}

func (e *TradeEngine) processPositionExits(pos *position, barIndex int, bar types.Bar) {
	pos.observe(barIndex, bar.Close)

	pnlPercent := pos.pnlPercent(bar.Close)
	zone := e.selectZone(pnlPercent)
	state := pos.zones[zone.Name]

	zoneEntered := !state.matched
	for name, zs := range pos.zones {
		zs.matched = name == zone.Name
	}

	if zoneEntered && zone.EffectiveReentryMode() == types.ReentryReset {
		state.exits = 0
	}

	if barIndex-pos.lastEntryIndex < zone.MinBarsBeforeExit {
		return
	}

	exhausted := zone.MaxExits > 0 && state.exits >= zone.MaxExits
	spaced := state.lastExitIndex < 0 || barIndex-state.lastExitIndex >= zone.MinBarsBetweenExits

	if !exhausted && spaced {
		if done := e.tryZoneExit(pos, zone, state, barIndex, bar, zoneEntered); done {
			return
		}
	}

	// strategy-level exit signal closes whatever is still open
	if pos.openQty > qtyEpsilon && e.condition(e.strategy.ExitConditionID, barIndex) {
		e.closeSlice(pos, zone.Name, barIndex, pos.openQty, bar.Close, types.ExitReasonSignal)
	}
}

// tryZoneExit evaluates the zone's triggers in priority order and executes
// the first that fires. Returns true when an exit happened.
func (e *TradeEngine) tryZoneExit(pos *position, zone types.ExitZone, state *zoneState, barIndex int, bar types.Bar, zoneEntered bool) bool {
	if zone.ExitImmediately && zoneEntered {
		e.zoneExit(pos, zone, state, barIndex, bar.Close, types.ExitReasonSignal)

		return true
	}

	if zone.StopLossType == types.StopLossFixed {
		stop := pos.avgEntryPrice * (1 - zone.StopLossValue/100)
		triggered := bar.Close <= stop

		if pos.side == types.SideShort {
			stop = pos.avgEntryPrice * (1 + zone.StopLossValue/100)
			triggered = bar.Close >= stop
		}

		if triggered {
			e.zoneExit(pos, zone, state, barIndex, stop, types.ExitReasonStopLoss)

			return true
		}
	}

	if zone.StopLossType == types.StopLossTrailing {
		stop := pos.trailingStopPrice(zone.StopLossValue)

		triggered := bar.Close <= stop
		if pos.side == types.SideShort {
			triggered = bar.Close >= stop
		}

		if triggered {
			e.zoneExit(pos, zone, state, barIndex, stop, types.ExitReasonTrailingStop)

			return true
		}
	}

	if zone.TakeProfitType == types.TakeProfitFixed {
		target := pos.avgEntryPrice * (1 + zone.TakeProfitValue/100)
		triggered := bar.Close >= target

		if pos.side == types.SideShort {
			target = pos.avgEntryPrice * (1 - zone.TakeProfitValue/100)
			triggered = bar.Close <= target
		}

		if triggered {
			e.zoneExit(pos, zone, state, barIndex, target, types.ExitReasonTakeProfit)

			return true
		}
	}

	if e.condition(zone.ExitConditionID, barIndex) {
		e.zoneExit(pos, zone, state, barIndex, bar.Close, types.ExitReasonSignal)

		return true
	}

	return false
}

// zoneExit closes the zone's effective exit percent of the basis quantity,
// capped at the quantity still open.
func (e *TradeEngine) zoneExit(pos *position, zone types.ExitZone, state *zoneState, barIndex int, rawPrice float64, reason types.ExitReason) {
	quantity := pos.basisQty(zone.EffectiveBasis()) * zone.EffectiveExitPercent() / 100
	quantity = math.Min(quantity, pos.openQty)

	if quantity <= qtyEpsilon {
		return
	}

	e.closeSlice(pos, zone.Name, barIndex, quantity, rawPrice, reason)
	state.exits++
	state.lastExitIndex = barIndex
}

// closeSlice emits an immutable Trade for the closed quantity. Commission is
// charged on both the proportional entry value and the exit value; percent
// PnL is net PnL over the slice's entry notional.
func (e *TradeEngine) closeSlice(pos *position, zoneName string, barIndex int, quantity, rawPrice float64, reason types.ExitReason) {
	bar := e.bars[barIndex]
	fillPrice := e.applySlippage(rawPrice, pos.side, false)

	entryNotional := pos.avgEntryPrice * quantity
	exitNotional := fillPrice * quantity
	fee := e.commission.Calculate(entryNotional) + e.commission.Calculate(exitNotional)

	gross := types.GrossPnL(pos.side, pos.avgEntryPrice, fillPrice, quantity)
	net := gross - fee

	pnlPercent := 0.0
	if entryNotional > 0 {
		pnlPercent = net / entryNotional * 100
	}

	e.trades = append(e.trades, types.Trade{
		ID:           uuid.New().String(),
		StrategyName: e.strategy.Name,
		Side:         pos.side,
		EntryIndex:   pos.entryIndex,
		EntryTime:    pos.entryTime,
		EntryPrice:   pos.avgEntryPrice,
		Quantity:     quantity,
		ExitIndex:    barIndex,
		ExitTime:     bar.Time,
		ExitPrice:    fillPrice,
		PnL:          net,
		PnLPercent:   pnlPercent,
		Fee:          fee,
		ExitReason:   reason,
		DCAGroupID:   pos.dcaGroupID,
		ExitZoneName: zoneName,
		MFEPercent:   pos.mfePercent,
		MFEIndex:     pos.mfeIndex,
		MAEPercent:   pos.maePercent,
		MAEIndex:     pos.maeIndex,
	})

	e.realized += net
	pos.openQty -= quantity

	if pos.openQty <= qtyEpsilon {
		pos.openQty = 0
	}
}

package engine

import (
	"math"
	"time"

	"github.com/rxtech-lab/argo-analytics/internal/types"
)

// zoneState is the per-position runtime counter of one exit zone.
type zoneState struct {
	// exits is the partial-exit count for the current zone occurrence.
	exits int
	// lastExitIndex is the bar of the zone's last partial exit, -1 if none.
	lastExitIndex int
	// matched reports whether the zone was the selected zone on the previous
	// bar; a false-to-true transition is a zone entry.
	matched bool
}

// position is the engine's mutable state for one open logical position.
// Immutable Trade records are emitted only at close boundaries; the position
// itself tracks open quantity, the DCA ladder and per-zone counters.
type position struct {
	dcaGroupID string
	side       types.Side

	entryIndex int
	entryTime  time.Time
	// avgEntryPrice is the volume-weighted entry price across DCA entries.
	avgEntryPrice float64
	// originalQty is the total quantity entered (ORIGINAL exit basis).
	originalQty float64
	// openQty is the quantity still open (REMAINING exit basis).
	openQty float64

	lastEntryIndex int
	dcaEntries     int
	dcaAborted     bool

	// bestPrice is the most favorable price reached since entry, anchoring
	// trailing stops.
	bestPrice float64

	mfePercent float64
	mfeIndex   int
	maePercent float64
	maeIndex   int

	zones map[string]*zoneState
}

func newPosition(dcaGroupID string, side types.Side, barIndex int, barTime time.Time, price, quantity float64, zones []types.ExitZone) *position {
	p := &position{
		dcaGroupID:     dcaGroupID,
		side:           side,
		entryIndex:     barIndex,
		entryTime:      barTime,
		avgEntryPrice:  price,
		originalQty:    quantity,
		openQty:        quantity,
		lastEntryIndex: barIndex,
		dcaEntries:     1,
		bestPrice:      price,
		mfePercent:     0,
		mfeIndex:       barIndex,
		maePercent:     0,
		maeIndex:       barIndex,
		zones:          make(map[string]*zoneState, len(zones)),
	}

	for _, zone := range zones {
		p.zones[zone.Name] = &zoneState{lastExitIndex: -1}
	}

	return p
}

// addEntry folds a DCA entry into the position's average price and sizes.
func (p *position) addEntry(barIndex int, price, quantity float64) {
	totalCost := p.avgEntryPrice*p.openQty + price*quantity
	p.openQty += quantity
	p.originalQty += quantity
	p.avgEntryPrice = totalCost / p.openQty
	p.lastEntryIndex = barIndex
	p.dcaEntries++
}

// pnlPercent is the unrealized PnL percent at price, sign-flipped for shorts.
func (p *position) pnlPercent(price float64) float64 {
	if p.avgEntryPrice == 0 {
		return 0
	}

	pct := (price - p.avgEntryPrice) / p.avgEntryPrice * 100
	if p.side == types.SideShort {
		pct = -pct
	}

	return pct
}

// observe updates the favorable-price anchor and the MFE/MAE excursions for
// the bar.
func (p *position) observe(barIndex int, price float64) {
	if p.side == types.SideLong {
		p.bestPrice = math.Max(p.bestPrice, price)
	} else {
		p.bestPrice = math.Min(p.bestPrice, price)
	}

	pct := p.pnlPercent(price)
	if pct > p.mfePercent {
		p.mfePercent = pct
		p.mfeIndex = barIndex
	}

	if pct < p.maePercent {
		p.maePercent = pct
		p.maeIndex = barIndex
	}
}

// basisQty returns the quantity a zone's exit percent applies to.
func (p *position) basisQty(basis types.ExitBasis) float64 {
	if basis == types.ExitBasisRemaining {
		return p.openQty
	}

	return p.originalQty
}

// trailingStopPrice returns the stop level anchored to the best price. The
// anchor only moves toward price, so the stop only ever tightens.
func (p *position) trailingStopPrice(distancePercent float64) float64 {
	if p.side == types.SideLong {
		return p.bestPrice * (1 - distancePercent/100)
	}

	return p.bestPrice * (1 + distancePercent/100)
}

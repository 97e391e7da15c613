package indicator

import (
	"fmt"
	"math"
	"sync"

	"github.com/rxtech-lab/argo-analytics/internal/types"
)

// Engine is a per-session façade over the indicator library. It owns the
// active data context (bars and tick trades) and memoizes whole-series
// results keyed by indicator id plus parameters. Setting a new context
// invalidates the memo table; replacing only the tick trades invalidates the
// orderflow entries.
//
// The engine is safe for concurrent use. It does not deduplicate concurrent
// computations of the same key; that is the cache's job. Duplicate
// computations of the same key produce identical values, so the last write
// wins harmlessly.
type Engine struct {
	registry Registry

	mu   sync.RWMutex
	ctx  Context
	memo map[string]memoEntry
	// gen increments on every context change; a computation started against
	// an older generation must not populate the memo table.
	gen uint64
}

type memoEntry struct {
	result    types.IndicatorResult
	orderflow bool
}

// NewEngine creates an engine with an empty context.
func NewEngine(registry Registry) *Engine {
	return &Engine{
		registry: registry,
		memo:     make(map[string]memoEntry),
	}
}

// SetContext replaces the active bars and tick trades and drops every
// memoized result.
func (e *Engine) SetContext(bars []types.Bar, tickTrades []types.TickTrade) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.ctx = Context{Bars: bars, TickTrades: tickTrades}
	e.memo = make(map[string]memoEntry)
	e.gen++
}

// SetTickTrades replaces only the tick trades and drops the memoized
// orderflow results; bar-based entries stay valid.
func (e *Engine) SetTickTrades(tickTrades []types.TickTrade) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.ctx.TickTrades = tickTrades
	e.gen++

	for key, entry := range e.memo {
		if entry.orderflow {
			delete(e.memo, key)
		}
	}
}

// Registry returns the registry backing this engine.
func (e *Engine) Registry() Registry {
	return e.registry
}

// Generation returns the current context generation.
func (e *Engine) Generation() uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.gen
}

// Cached returns the memoized result for the query without computing.
func (e *Engine) Cached(query Query) (types.IndicatorResult, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	entry, ok := e.memo[query.Key()]

	return entry.result, ok
}

// Context returns the active data context.
func (e *Engine) Context() Context {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return e.ctx
}

// Series returns the whole-series result for the query, computing and
// memoizing it on first use. An unknown indicator id is an error; missing
// upstream tick data for an orderflow indicator yields an Empty result.
func (e *Engine) Series(query Query) (types.IndicatorResult, error) {
	key := query.Key()

	e.mu.RLock()
	entry, ok := e.memo[key]
	ctx := e.ctx
	gen := e.gen
	e.mu.RUnlock()

	if ok {
		return entry.result, nil
	}

	descriptor, err := e.registry.Get(query.Type)
	if err != nil {
		return types.IndicatorResult{}, fmt.Errorf("Series: %w", err)
	}

	if descriptor.NeedsTickTrades && len(ctx.TickTrades) == 0 {
		return types.Empty(), nil
	}

	result := descriptor.Compute(ctx, query.Params)

	e.mu.Lock()
	// drop the result if the context changed underneath the computation
	if e.gen == gen {
		e.memo[key] = memoEntry{result: result, orderflow: descriptor.NeedsTickTrades}
	}
	e.mu.Unlock()

	return result, nil
}

// ValueAt returns the scalar point value for the query at barIndex.
// Composite results return NaN here; use ComponentValueAt for those.
func (e *Engine) ValueAt(query Query, barIndex int) (float64, error) {
	result, err := e.Series(query)
	if err != nil {
		return math.NaN(), err
	}

	return result.At(barIndex), nil
}

// ComponentValueAt returns one component's point value for the query at
// barIndex.
func (e *Engine) ComponentValueAt(query Query, component string, barIndex int) (float64, error) {
	result, err := e.Series(query)
	if err != nil {
		return math.NaN(), err
	}

	return result.ComponentAt(component, barIndex), nil
}

// MemoSize returns the number of memoized entries.
func (e *Engine) MemoSize() int {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return len(e.memo)
}

// Invalidate drops one memoized entry.
func (e *Engine) Invalidate(query Query) {
	e.mu.Lock()
	defer e.mu.Unlock()

	delete(e.memo, query.Key())
}

// InvalidateAll drops every memoized entry while keeping the context. The
// generation still advances so in-flight computations do not repopulate the
// table after the clear.
func (e *Engine) InvalidateAll() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.memo = make(map[string]memoEntry)
	e.gen++
}

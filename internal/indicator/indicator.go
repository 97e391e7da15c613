package indicator

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/rxtech-lab/argo-analytics/internal/types"
)

// Context is the data an indicator computes against. Bars are required;
// TickTrades are only consumed by orderflow indicators and may be nil.
type Context struct {
	Bars       []types.Bar
	TickTrades []types.TickTrade
}

// ComputeFunc computes a whole-series result for the given context. The
// result is always aligned 1:1 with ctx.Bars; insufficient history or invalid
// parameters degrade to an all-NaN result, never an error.
type ComputeFunc func(ctx Context, params []float64) types.IndicatorResult

// Descriptor describes one registered indicator.
type Descriptor struct {
	Type types.IndicatorType
	// NeedsTickTrades marks orderflow indicators; without tick data their
	// result is Empty, not an error.
	NeedsTickTrades bool
	Compute         ComputeFunc
}

// Query identifies one computation: an indicator id plus its numeric
// parameters in declaration order. Queries with equal keys are
// interchangeable for caching purposes.
type Query struct {
	Type   types.IndicatorType
	Params []float64
}

// Key returns the canonical cache key for this query.
func (q Query) Key() string {
	if len(q.Params) == 0 {
		return string(q.Type)
	}

	parts := make([]string, len(q.Params))
	for i, p := range q.Params {
		parts[i] = strconv.FormatFloat(p, 'g', -1, 64)
	}

	return fmt.Sprintf("%s(%s)", q.Type, strings.Join(parts, ","))
}

// intParam reads params[i] as a positive integer, falling back to def when
// absent. Returns ok=false when the value is present but not usable.
func intParam(params []float64, i, def int) (int, bool) {
	if i >= len(params) {
		return def, true
	}

	v := int(params[i])
	if float64(v) != params[i] || v <= 0 {
		return 0, false
	}

	return v, true
}

// floatParam reads params[i], falling back to def when absent.
func floatParam(params []float64, i int, def float64) float64 {
	if i >= len(params) {
		return def
	}

	return params[i]
}

// allNaN builds an all-NaN scalar result aligned with the bars.
func allNaN(n int) types.IndicatorResult {
	return types.Scalar(types.NaNSeries(n))
}

// allNaNComposite builds a composite result with all-NaN components.
func allNaNComposite(n int, names ...string) types.IndicatorResult {
	components := make(map[string][]float64, len(names))
	for _, name := range names {
		components[name] = types.NaNSeries(n)
	}

	return types.Composite(components)
}

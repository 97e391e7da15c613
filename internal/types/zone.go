package types

import (
	"fmt"

	"github.com/moznion/go-optional"
	"gopkg.in/yaml.v3"
)

// StopLossType selects how a zone's stop loss distance is anchored.
type StopLossType string

const (
	StopLossNone StopLossType = "none"
	// StopLossFixed is a fixed percent distance from the entry price.
	StopLossFixed StopLossType = "fixed_percent"
	// StopLossTrailing trails the best price reached since entry and only
	// ever tightens toward price.
	StopLossTrailing StopLossType = "trailing_percent"
)

// TakeProfitType selects how a zone's take profit is anchored.
type TakeProfitType string

const (
	TakeProfitNone TakeProfitType = "none"
	// TakeProfitFixed is a fixed percent distance from the entry price.
	TakeProfitFixed TakeProfitType = "fixed_percent"
)

// ExitBasis selects the quantity a zone's exit percent applies to.
type ExitBasis string

const (
	// ExitBasisOriginal computes the exit percent against the quantity at entry.
	ExitBasisOriginal ExitBasis = "original"
	// ExitBasisRemaining computes the exit percent against the quantity still open.
	ExitBasisRemaining ExitBasis = "remaining"
)

// ReentryMode controls the zone's partial-exit counter when PnL leaves and
// re-enters the zone's range.
type ReentryMode string

const (
	// ReentryContinue keeps the counter across re-entries.
	ReentryContinue ReentryMode = "continue"
	// ReentryReset resets the counter when PnL re-enters the zone.
	ReentryReset ReentryMode = "reset"
)

// ExitZone is one PnL-percent band of a strategy's exit policy. Zones are
// evaluated in declared order and the first zone whose [min, max) range
// contains the current PnL percent wins; when no zone matches, the first
// declared zone is used.
type ExitZone struct {
	Name string `yaml:"name" validate:"required"`
	// MinPnlPercent is the inclusive lower bound; unset means unbounded below.
	MinPnlPercent optional.Option[float64] `yaml:"min_pnl_percent"`
	// MaxPnlPercent is the exclusive upper bound; unset means unbounded above.
	MaxPnlPercent optional.Option[float64] `yaml:"max_pnl_percent"`
	// ExitConditionID names a boolean condition owned by the external
	// evaluator; empty means the zone has no condition exit.
	ExitConditionID string `yaml:"exit_condition_id"`

	StopLossType    StopLossType   `yaml:"stop_loss_type"`
	StopLossValue   float64        `yaml:"stop_loss_value" validate:"gte=0"`
	TakeProfitType  TakeProfitType `yaml:"take_profit_type"`
	TakeProfitValue float64        `yaml:"take_profit_value" validate:"gte=0"`

	// ExitImmediately closes on zone entry, bypassing all other checks.
	ExitImmediately bool `yaml:"exit_immediately"`
	// MinBarsBeforeExit gates every rule of this zone on bars elapsed since
	// the last entry into the position.
	MinBarsBeforeExit int `yaml:"min_bars_before_exit" validate:"gte=0"`
	// ExitPercent of the basis quantity to close per trigger. 0 means 100.
	ExitPercent float64 `yaml:"exit_percent" validate:"gte=0,lte=100"`
	// MaxExits caps partial exits per zone occurrence. 0 means unlimited.
	MaxExits int `yaml:"max_exits" validate:"gte=0"`
	// ExitBasis defaults to ExitBasisOriginal.
	ExitBasis ExitBasis `yaml:"exit_basis"`
	// ReentryMode defaults to ReentryContinue.
	ReentryMode ReentryMode `yaml:"reentry_mode"`
	// MinBarsBetweenExits spaces successive partial exits within this zone.
	MinBarsBetweenExits int `yaml:"min_bars_between_exits" validate:"gte=0"`
}

// yamlExitZone mirrors ExitZone on the wire; the optional PnL bounds are
// plain nullable scalars there.
type yamlExitZone struct {
	Name            string   `yaml:"name"`
	MinPnlPercent   *float64 `yaml:"min_pnl_percent"`
	MaxPnlPercent   *float64 `yaml:"max_pnl_percent"`
	ExitConditionID string   `yaml:"exit_condition_id"`

	StopLossType    StopLossType   `yaml:"stop_loss_type"`
	StopLossValue   float64        `yaml:"stop_loss_value"`
	TakeProfitType  TakeProfitType `yaml:"take_profit_type"`
	TakeProfitValue float64        `yaml:"take_profit_value"`

	ExitImmediately     bool        `yaml:"exit_immediately"`
	MinBarsBeforeExit   int         `yaml:"min_bars_before_exit"`
	ExitPercent         float64     `yaml:"exit_percent"`
	MaxExits            int         `yaml:"max_exits"`
	ExitBasis           ExitBasis   `yaml:"exit_basis"`
	ReentryMode         ReentryMode `yaml:"reentry_mode"`
	MinBarsBetweenExits int         `yaml:"min_bars_between_exits"`
}

// UnmarshalYAML decodes a zone, mapping absent PnL bounds to None.
func (z *ExitZone) UnmarshalYAML(node *yaml.Node) error {
	var raw yamlExitZone
	if err := node.Decode(&raw); err != nil {
		return err
	}

	*z = ExitZone{
		Name:                raw.Name,
		ExitConditionID:     raw.ExitConditionID,
		StopLossType:        raw.StopLossType,
		StopLossValue:       raw.StopLossValue,
		TakeProfitType:      raw.TakeProfitType,
		TakeProfitValue:     raw.TakeProfitValue,
		ExitImmediately:     raw.ExitImmediately,
		MinBarsBeforeExit:   raw.MinBarsBeforeExit,
		ExitPercent:         raw.ExitPercent,
		MaxExits:            raw.MaxExits,
		ExitBasis:           raw.ExitBasis,
		ReentryMode:         raw.ReentryMode,
		MinBarsBetweenExits: raw.MinBarsBetweenExits,
	}

	if raw.MinPnlPercent != nil {
		z.MinPnlPercent = optional.Some(*raw.MinPnlPercent)
	}

	if raw.MaxPnlPercent != nil {
		z.MaxPnlPercent = optional.Some(*raw.MaxPnlPercent)
	}

	return nil
}

// EffectiveExitPercent normalizes the configured exit percent, treating the
// zero value as a full close.
func (z ExitZone) EffectiveExitPercent() float64 {
	if z.ExitPercent <= 0 {
		return 100
	}

	return z.ExitPercent
}

// EffectiveBasis normalizes the configured basis.
func (z ExitZone) EffectiveBasis() ExitBasis {
	if z.ExitBasis == "" {
		return ExitBasisOriginal
	}

	return z.ExitBasis
}

// EffectiveReentryMode normalizes the configured re-entry mode.
func (z ExitZone) EffectiveReentryMode() ReentryMode {
	if z.ReentryMode == "" {
		return ReentryContinue
	}

	return z.ReentryMode
}

// Contains reports whether pnlPercent falls inside the zone's [min, max)
// range. An unset bound is unbounded on that side.
func (z ExitZone) Contains(pnlPercent float64) bool {
	if z.MinPnlPercent.IsSome() && pnlPercent < z.MinPnlPercent.Unwrap() {
		return false
	}

	if z.MaxPnlPercent.IsSome() && pnlPercent >= z.MaxPnlPercent.Unwrap() {
		return false
	}

	return true
}

// ValidateZones checks a strategy's zone list. A zone whose min is not below
// its max is an error; overlapping ranges across zones are reported as
// warnings because first-match-wins resolves them deterministically at runtime.
func ValidateZones(zones []ExitZone) ([]string, error) {
	if len(zones) == 0 {
		return nil, fmt.Errorf("ValidateZones: at least one exit zone is required")
	}

	var warnings []string

	for i, zone := range zones {
		if zone.MinPnlPercent.IsSome() && zone.MaxPnlPercent.IsSome() {
			minBound := zone.MinPnlPercent.Unwrap()
			maxBound := zone.MaxPnlPercent.Unwrap()

			if minBound >= maxBound {
				return nil, fmt.Errorf("ValidateZones: zone %q has min_pnl_percent %.4f >= max_pnl_percent %.4f", zone.Name, minBound, maxBound)
			}
		}

		for j := i + 1; j < len(zones); j++ {
			if zonesOverlap(zone, zones[j]) {
				warnings = append(warnings, fmt.Sprintf("zones %q and %q have overlapping PnL ranges; first match wins", zone.Name, zones[j].Name))
			}
		}
	}

	return warnings, nil
}

func zonesOverlap(a, b ExitZone) bool {
	// a is entirely below b
	if a.MaxPnlPercent.IsSome() && b.MinPnlPercent.IsSome() && a.MaxPnlPercent.Unwrap() <= b.MinPnlPercent.Unwrap() {
		return false
	}

	// b is entirely below a
	if b.MaxPnlPercent.IsSome() && a.MinPnlPercent.IsSome() && b.MaxPnlPercent.Unwrap() <= a.MinPnlPercent.Unwrap() {
		return false
	}

	return true
}

package engine

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/rxtech-lab/argo-analytics/internal/types"
)

// PositionSizingType selects how an entry's notional is derived.
type PositionSizingType string

const (
	// SizingFixedAmount commits a fixed quote-currency amount per entry.
	SizingFixedAmount PositionSizingType = "fixed_amount"
	// SizingPercentEquity commits a percentage of current equity per entry.
	SizingPercentEquity PositionSizingType = "percent_equity"
)

// OrderType selects how entries fill.
type OrderType string

const (
	// OrderTypeMarket fills at the signal bar's close.
	OrderTypeMarket OrderType = "market"
	// OrderTypeLimit places a resting order below (long) or above (short)
	// the signal price; unfilled orders expire after ExpirationBars.
	OrderTypeLimit OrderType = "limit"
)

// DCAMode controls how additional entries into an open position behave.
type DCAMode string

const (
	// DCAModePause skips new DCA entries until the spacing has elapsed.
	DCAModePause DCAMode = "pause"
	// DCAModeAbort cancels remaining DCA slots when an opposing signal fires.
	DCAModeAbort DCAMode = "abort"
	// DCAModeContinue ignores the spacing once the ladder has started.
	DCAModeContinue DCAMode = "continue"
)

// DCAConfig configures dollar-cost-averaging entries.
type DCAConfig struct {
	Enabled bool `yaml:"enabled"`
	// MaxEntries is the total entries allowed per position, the initial one
	// included.
	MaxEntries int `yaml:"max_entries" validate:"gte=0"`
	// MinBarsBetween spaces successive DCA entries.
	MinBarsBetween int     `yaml:"min_bars_between" validate:"gte=0"`
	Mode           DCAMode `yaml:"mode"`
}

// EntryConfig configures when and how positions open.
type EntryConfig struct {
	// ConditionID names the entry condition owned by the external evaluator.
	ConditionID string     `yaml:"condition_id" validate:"required"`
	Side        types.Side `yaml:"side"`
	// MaxOpenTrades caps concurrently open positions. 0 means 1.
	MaxOpenTrades int `yaml:"max_open_trades" validate:"gte=0"`
	// MinBarsBetweenEntries is the cooldown between fresh entries.
	MinBarsBetweenEntries int       `yaml:"min_bars_between_entries" validate:"gte=0"`
	OrderType             OrderType `yaml:"order_type"`
	// LimitOffsetPercent places limit orders this far on the favorable side
	// of the signal close.
	LimitOffsetPercent float64 `yaml:"limit_offset_percent" validate:"gte=0"`
	// ExpirationBars expires unfilled limit orders after this many bars.
	ExpirationBars int `yaml:"expiration_bars" validate:"gte=0"`
	// OpposingConditionID optionally names the signal that aborts a DCA
	// ladder in abort mode.
	OpposingConditionID string    `yaml:"opposing_condition_id"`
	DCA                 DCAConfig `yaml:"dca"`
}

// StrategyConfig is the full per-strategy configuration: entry settings plus
// the ordered exit-zone list.
type StrategyConfig struct {
	Name  string           `yaml:"name" validate:"required"`
	Entry EntryConfig      `yaml:"entry"`
	Zones []types.ExitZone `yaml:"zones" validate:"min=1,dive"`
	// ExitConditionID optionally names a strategy-level exit signal that
	// fully closes the position regardless of zone policy.
	ExitConditionID string `yaml:"exit_condition_id"`
}

// BacktestEngineV1Config is the engine-level configuration of a run.
type BacktestEngineV1Config struct {
	InitialCapital      float64            `yaml:"initial_capital" validate:"gt=0"`
	PositionSizingType  PositionSizingType `yaml:"position_sizing_type"`
	PositionSizingValue float64            `yaml:"position_sizing_value" validate:"gt=0"`
	FeePercent          float64            `yaml:"fee_percent" validate:"gte=0"`
	SlippagePercent     float64            `yaml:"slippage_percent" validate:"gte=0"`
	// CacheWorkers sizes the indicator cache's background pool.
	CacheWorkers int `yaml:"cache_workers" validate:"gte=0"`
}

// EmptyConfig returns the defaults used before Initialize.
func EmptyConfig() BacktestEngineV1Config {
	return BacktestEngineV1Config{
		InitialCapital:      10000,
		PositionSizingType:  SizingPercentEquity,
		PositionSizingValue: 100,
		FeePercent:          0,
		SlippagePercent:     0,
	}
}

// ParseBacktestConfig parses and validates the engine configuration.
func ParseBacktestConfig(content string) (BacktestEngineV1Config, error) {
	config := EmptyConfig()

	if err := yaml.Unmarshal([]byte(content), &config); err != nil {
		return config, fmt.Errorf("ParseBacktestConfig: failed to parse yaml: %w", err)
	}

	if config.PositionSizingType == "" {
		config.PositionSizingType = SizingPercentEquity
	}

	if err := validator.New().Struct(config); err != nil {
		return config, fmt.Errorf("ParseBacktestConfig: invalid config: %w", err)
	}

	return config, nil
}

// ParseStrategyConfig parses and validates a strategy configuration. Zone
// overlap problems are returned as warnings, not errors; first match wins at
// runtime.
func ParseStrategyConfig(content string) (StrategyConfig, []string, error) {
	var config StrategyConfig

	if err := yaml.Unmarshal([]byte(content), &config); err != nil {
		return config, nil, fmt.Errorf("ParseStrategyConfig: failed to parse yaml: %w", err)
	}

	applyStrategyDefaults(&config)

	if err := validator.New().Struct(config); err != nil {
		return config, nil, fmt.Errorf("ParseStrategyConfig: invalid config: %w", err)
	}

	warnings, err := types.ValidateZones(config.Zones)
	if err != nil {
		return config, nil, fmt.Errorf("ParseStrategyConfig: %w", err)
	}

	return config, warnings, nil
}

func applyStrategyDefaults(config *StrategyConfig) {
	if config.Entry.Side == "" {
		config.Entry.Side = types.SideLong
	}

	if config.Entry.MaxOpenTrades == 0 {
		config.Entry.MaxOpenTrades = 1
	}

	if config.Entry.OrderType == "" {
		config.Entry.OrderType = OrderTypeMarket
	}

	if config.Entry.DCA.Enabled && config.Entry.DCA.Mode == "" {
		config.Entry.DCA.Mode = DCAModePause
	}
}

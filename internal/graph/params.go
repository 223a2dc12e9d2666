package graph

import (
	"encoding/json"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/yourusername/graphtrader/internal/indicators"
)

var paramValidator = validator.New()

// TimingMode enumerates the timing filter variants
type TimingMode string

const (
	TimingModeSession   TimingMode = "session"
	TimingModeWindow    TimingMode = "window"
	TimingModeMaxSpread TimingMode = "max_spread"
)

// TimingParams configures a timing filter node. Session and window modes
// carry HH:MM bounds in the bar timezone; max_spread compares the run's
// configured spread against a ceiling.
type TimingParams struct {
	Mode            TimingMode `json:"mode" validate:"required,oneof=session window max_spread"`
	Start           string     `json:"start,omitempty" validate:"omitempty,len=5"`
	End             string     `json:"end,omitempty" validate:"omitempty,len=5"`
	MaxSpreadPoints float64    `json:"max_spread_points,omitempty" validate:"gte=0"`
}

// IndicatorCondition enumerates the confirmation conditions an indicator
// node can assert
type IndicatorCondition string

const (
	CondAbove      IndicatorCondition = "above"
	CondBelow      IndicatorCondition = "below"
	CondCrossAbove IndicatorCondition = "cross_above"
	CondCrossBelow IndicatorCondition = "cross_below"
)

// IndicatorParams configures an indicator confirmation node: an indicator
// buffer compared against a threshold (or the bar price) with one of the
// closed conditions.
type IndicatorParams struct {
	Indicator    string                  `json:"indicator" validate:"required,oneof=sma ema smma lwma rsi atr cci adx obv stochastic macd bollinger squeeze"`
	Period       int                     `json:"period,omitempty" validate:"gte=0"`
	FastPeriod   int                     `json:"fast_period,omitempty" validate:"gte=0"`
	SlowPeriod   int                     `json:"slow_period,omitempty" validate:"gte=0"`
	SignalPeriod int                     `json:"signal_period,omitempty" validate:"gte=0"`
	KPeriod      int                     `json:"k_period,omitempty" validate:"gte=0"`
	DPeriod      int                     `json:"d_period,omitempty" validate:"gte=0"`
	Slowing      int                     `json:"slowing,omitempty" validate:"gte=0"`
	Deviation    float64                 `json:"deviation,omitempty" validate:"gte=0"`
	AppliedPrice indicators.AppliedPrice `json:"applied_price,omitempty"`
	Condition    IndicatorCondition      `json:"condition" validate:"required,oneof=above below cross_above cross_below"`
	Threshold    float64                 `json:"threshold"`
	ComparePrice bool                    `json:"compare_price,omitempty"`
}

// PricePattern enumerates the supported candlestick patterns
type PricePattern string

const (
	PatternEngulfing PricePattern = "engulfing"
	PatternPinBar    PricePattern = "pin_bar"
	PatternInsideBar PricePattern = "inside_bar"
	PatternDoji      PricePattern = "doji"
)

// PriceActionParams configures a candlestick-pattern confirmation node
type PriceActionParams struct {
	Pattern       PricePattern `json:"pattern" validate:"required,oneof=engulfing pin_bar inside_bar doji"`
	MinWickRatio  float64      `json:"min_wick_ratio,omitempty" validate:"gte=0"`
	MaxBodyRatio  float64      `json:"max_body_ratio,omitempty" validate:"gte=0,lte=1"`
}

// EntryStrategyName enumerates the composite entry strategies
type EntryStrategyName string

const (
	EntryEMACrossover  EntryStrategyName = "ema_crossover"
	EntryRangeBreakout EntryStrategyName = "range_breakout"
	EntryRSIReversal   EntryStrategyName = "rsi_reversal"
	EntryTrendPullback EntryStrategyName = "trend_pullback"
	EntryMACDCrossover EntryStrategyName = "macd_crossover"
)

// EntryStrategyParams configures a composite entry node: a base signal plus
// independent advanced toggles that each AND-gate the base signal.
type EntryStrategyParams struct {
	Strategy     EntryStrategyName `json:"strategy" validate:"required,oneof=ema_crossover range_breakout rsi_reversal trend_pullback macd_crossover"`
	FastPeriod   int               `json:"fast_period,omitempty" validate:"gte=0"`
	SlowPeriod   int               `json:"slow_period,omitempty" validate:"gte=0"`
	SignalPeriod int               `json:"signal_period,omitempty" validate:"gte=0"`
	Period       int               `json:"period,omitempty" validate:"gte=0"`
	Oversold     float64           `json:"oversold,omitempty" validate:"gte=0,lte=100"`
	Overbought   float64           `json:"overbought,omitempty" validate:"gte=0,lte=100"`

	// advanced toggles
	TrendFilter        bool   `json:"trend_filter,omitempty"`
	TrendPeriod        int    `json:"trend_period,omitempty" validate:"gte=0"`
	SessionRestriction bool   `json:"session_restriction,omitempty"`
	SessionStart       string `json:"session_start,omitempty" validate:"omitempty,len=5"`
	SessionEnd         string `json:"session_end,omitempty" validate:"omitempty,len=5"`
	OscillatorConfirm  bool   `json:"oscillator_confirm,omitempty"`
	OscillatorPeriod   int    `json:"oscillator_period,omitempty" validate:"gte=0"`
}

// SizingMode enumerates position sizing modes
type SizingMode string

const (
	SizingFixedLot    SizingMode = "fixed_lot"
	SizingRiskPercent SizingMode = "risk_percent"
)

// OrderPlacementParams configures entry order construction
type OrderPlacementParams struct {
	Mode             SizingMode `json:"mode" validate:"required,oneof=fixed_lot risk_percent"`
	Lots             float64    `json:"lots,omitempty" validate:"gte=0"`
	RiskPercent      float64    `json:"risk_percent,omitempty" validate:"gte=0,lte=100"`
	StopLossPoints   float64    `json:"stop_loss_points" validate:"gte=0"`
	TakeProfitPoints float64    `json:"take_profit_points" validate:"gte=0"`
}

// RiskManagementParams overrides the graph-global daily caps when set
type RiskManagementParams struct {
	DailyLossCap    float64 `json:"daily_loss_cap,omitempty" validate:"gte=0"`
	DailyProfitCap  float64 `json:"daily_profit_cap,omitempty" validate:"gte=0"`
	MaxTradesPerDay int     `json:"max_trades_per_day,omitempty" validate:"gte=0"`
}

// TradeManagementParams configures the in-trade management rules. Zero
// values disable the corresponding rule.
type TradeManagementParams struct {
	BreakevenTriggerPoints    float64 `json:"breakeven_trigger_points,omitempty" validate:"gte=0"`
	BreakevenOffsetPoints     float64 `json:"breakeven_offset_points,omitempty" validate:"gte=0"`
	TrailingStartPoints       float64 `json:"trailing_start_points,omitempty" validate:"gte=0"`
	TrailingDistancePoints    float64 `json:"trailing_distance_points,omitempty" validate:"gte=0"`
	PartialClosePercent       float64 `json:"partial_close_percent,omitempty" validate:"gte=0,lte=100"`
	PartialCloseTriggerPoints float64 `json:"partial_close_trigger_points,omitempty" validate:"gte=0"`
	LockProfitTriggerPoints   float64 `json:"lock_profit_trigger_points,omitempty" validate:"gte=0"`
	LockProfitPoints          float64 `json:"lock_profit_points,omitempty" validate:"gte=0"`
	MaxBarsOpen               int     `json:"max_bars_open,omitempty" validate:"gte=0"`
}

// decodeParams unmarshals and validates a node's raw params into dst
func decodeParams(n Node, dst interface{}) error {
	raw := n.Params
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("node %q: invalid %s params: %w", n.ID, n.Kind, err)
	}
	if err := paramValidator.Struct(dst); err != nil {
		return fmt.Errorf("node %q: %s params out of range: %w", n.ID, n.Kind, err)
	}
	return nil
}

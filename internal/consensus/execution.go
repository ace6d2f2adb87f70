package consensus

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"

	"argos/internal/domain/decision"
)

// OrderType is the execution style of a plan
type OrderType string

const (
	OrderMarket  OrderType = "market"
	OrderLimit   OrderType = "limit"
	OrderStealth OrderType = "stealth"
	OrderTWAP    OrderType = "twap"
	OrderVWAP    OrderType = "vwap"
)

// Urgency expresses how aggressively fragments should be worked
type Urgency string

const (
	UrgencyImmediate Urgency = "immediate"
	UrgencyNormal    Urgency = "normal"
	UrgencyPatient   Urgency = "patient"
)

// Fragment units and ladder boundaries
const (
	stealthFragmentUnit = 10_000
	limitFragmentUnit   = 25_000
	twapFragmentUnit    = 20_000

	marketOrderConfidence = 95.0
	limitOrderConfidence  = 90.0

	stopLossPct   = 2.0
	takeProfitPct = 5.0

	// Stealth randomization bounds
	stealthVisibleShare = 0.5 // visible size capped at half a fragment
	stealthMinDelay     = 30 * time.Second
	stealthMaxDelay     = 5 * time.Minute
)

// ExecutionPlan describes how an approved order is worked into the market.
// Derived deterministically from size and confidence; immutable.
type ExecutionPlan struct {
	Side           decision.Recommendation
	OrderType      OrderType
	TotalSize      decimal.Decimal
	FragmentCount  int
	FragmentSize   decimal.Decimal
	Urgency        Urgency
	TimeHorizon    time.Duration
	PriceLimitPct  float64 // offset from mid for limit orders, 0 = unset
	StopLossPct    float64
	TakeProfitPct  float64
	MaxVisibleSize decimal.Decimal // stealth only
	MinDelay       time.Duration   // stealth only
	MaxDelay       time.Duration   // stealth only
	Rationale      string
}

// buildPlan synthesizes the execution plan. Size above the stealth
// threshold always forces stealth fragmentation; below it the order type
// follows the confidence ladder.
func (e *Engine) buildPlan(side decision.Recommendation, confidence float64, size decimal.Decimal) *ExecutionPlan {
	plan := &ExecutionPlan{
		Side:          side,
		TotalSize:     size,
		StopLossPct:   stopLossPct,
		TakeProfitPct: takeProfitPct,
	}

	stealthThreshold := decimal.NewFromFloat(e.cfg.StealthSizeThreshold)

	switch {
	case size.GreaterThan(stealthThreshold):
		fragment := decimal.NewFromInt(stealthFragmentUnit)
		plan.OrderType = OrderStealth
		plan.FragmentSize = fragment
		plan.FragmentCount = fragmentCount(size, fragment)
		plan.Urgency = UrgencyPatient
		plan.TimeHorizon = 12 * time.Hour
		plan.MaxVisibleSize = fragment.Mul(decimal.NewFromFloat(stealthVisibleShare))
		plan.MinDelay = stealthMinDelay
		plan.MaxDelay = stealthMaxDelay
		plan.Rationale = fmt.Sprintf(
			"Order of %s units exceeds the stealth threshold; fragmenting into %d randomized slices to limit market impact",
			humanize.Comma(size.IntPart()), plan.FragmentCount,
		)

	case confidence > marketOrderConfidence:
		plan.OrderType = OrderMarket
		plan.FragmentSize = size
		plan.FragmentCount = 1
		plan.Urgency = UrgencyImmediate
		plan.Rationale = fmt.Sprintf("Confidence %.0f%% justifies a single market order of %s units", confidence, humanize.Comma(size.IntPart()))

	case confidence > limitOrderConfidence:
		fragment := decimal.NewFromInt(limitFragmentUnit)
		plan.OrderType = OrderLimit
		plan.FragmentSize = fragment
		plan.FragmentCount = fragmentCount(size, fragment)
		plan.Urgency = UrgencyNormal
		plan.TimeHorizon = time.Hour
		plan.PriceLimitPct = 0.1
		plan.Rationale = fmt.Sprintf("Working %s units as %d limit fragments near mid", humanize.Comma(size.IntPart()), plan.FragmentCount)

	default:
		fragment := decimal.NewFromInt(twapFragmentUnit)
		plan.OrderType = OrderTWAP
		plan.FragmentSize = fragment
		plan.FragmentCount = fragmentCount(size, fragment)
		plan.Urgency = UrgencyPatient
		plan.TimeHorizon = 4 * time.Hour
		plan.Rationale = fmt.Sprintf("Spreading %s units across %d TWAP slices", humanize.Comma(size.IntPart()), plan.FragmentCount)
	}

	return plan
}

// fragmentCount returns ceil(size / fragment)
func fragmentCount(size, fragment decimal.Decimal) int {
	return int(size.Div(fragment).Ceil().IntPart())
}

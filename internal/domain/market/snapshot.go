package market

import (
	"context"

	"github.com/shopspring/decimal"

	"argos/internal/domain/decision"
)

// Snapshot is an enriched market view for one asset, produced by the
// indicator-library collaborator. Agents treat it as a pure input: the same
// snapshot always yields the same response.
type Snapshot struct {
	Asset      string
	AssetClass decision.AssetClass
	Price      float64
	Volume24h  float64

	OnChain    OnChainMetrics
	Macro      MacroMetrics
	Volatility VolatilityMetrics
	Momentum   MomentumMetrics
	Regulatory RegulatoryMetrics
	Technical  TechnicalMetrics
	Sentiment  SentimentScore
}

// OnChainMetrics covers whale and exchange-flow activity
type OnChainMetrics struct {
	WhaleNetFlow        float64 // net whale accumulation (+) / distribution (-), in units
	ExchangeNetFlow     float64 // net flow onto (+) / off (-) exchanges
	WashTradingRatio    float64 // 0-1 share of volume flagged as wash trading
	ActiveAddressChange float64 // 7d % change in active addresses
}

// MacroMetrics covers the macro-economic regime
type MacroMetrics struct {
	FedStance        string  // "hawkish" | "neutral" | "dovish"
	DXYChange        float64 // 30d % change in the dollar index
	YieldCurveSpread float64 // 10y-2y spread, percentage points
	CPIYoY           float64 // headline inflation, %
	CreditSpreads    float64 // high-yield spread, percentage points
	GoldCorrelation  float64 // rolling gold/USD correlation, -1..1
	VIX              float64
}

// VolatilityMetrics covers implied volatility and dealer Greeks flows
type VolatilityMetrics struct {
	VIX            float64
	TermStructure  string  // "contango" | "backwardation"
	IVRank         float64 // 0-100 percentile of implied vol
	VannaExposure  float64 // dealer vanna notional, normalized
	CharmDecay     float64 // charm flow pressure, normalized
	VommaConvexity float64 // vomma exposure, normalized
}

// MomentumMetrics covers trend and momentum indicators
type MomentumMetrics struct {
	RSI14           float64
	MACDHistogram   float64
	EMAStackBullish bool // fast > mid > slow
	EMAStackBearish bool // fast < mid < slow
	ADX             float64
	PriceChange7d   float64 // %
}

// RegulatoryMetrics covers compliance and counterparty risk
type RegulatoryMetrics struct {
	AuditStatus       string  // "audited" | "unaudited" | "failed"
	RugPullRisk       float64 // 0-1 model score
	SanctionsExposure bool
	LiquidityUSD      float64
	TeamVerified      bool
}

// TechnicalMetrics covers classic chart structure
type TechnicalMetrics struct {
	SupportDistancePct    float64 // % above nearest support
	ResistanceDistancePct float64 // % below nearest resistance
	Trend                 string  // "up" | "down" | "sideways"
	VolumeConfirmation    bool
}

// SentimentScore is the opaque output of the LLM-backed sentiment
// collaborator
type SentimentScore struct {
	Sentiment float64 // -1 (max fear) .. +1 (max greed)
	KeyThemes []string
	Reasoning string
}

// Position is one open holding in the portfolio snapshot
type Position struct {
	Asset string
	Size  decimal.Decimal
	Value decimal.Decimal
}

// PortfolioState is the portfolio snapshot consumed by risk assessment
type PortfolioState struct {
	TotalValue    decimal.Decimal
	Cash          decimal.Decimal
	TotalExposure decimal.Decimal
	Positions     []Position
}

// HasPosition reports whether the portfolio already holds the asset
func (p *PortfolioState) HasPosition(asset string) bool {
	for _, pos := range p.Positions {
		if pos.Asset == asset {
			return true
		}
	}
	return false
}

// SnapshotProvider supplies enriched snapshots. Production wires the live
// indicator pipeline; tests inject fixtures so agent output is reproducible.
type SnapshotProvider interface {
	Snapshot(ctx context.Context, asset string, class decision.AssetClass) (*Snapshot, error)
}

// SentimentProvider supplies LLM-derived sentiment for an asset
type SentimentProvider interface {
	Sentiment(ctx context.Context, asset string) (*SentimentScore, error)
}

// StaticProvider returns a fixed snapshot. Used in tests and as a stub until
// the live data pipeline is attached.
type StaticProvider struct {
	Snapshots map[string]*Snapshot
}

// Snapshot implements SnapshotProvider
func (p *StaticProvider) Snapshot(_ context.Context, asset string, class decision.AssetClass) (*Snapshot, error) {
	if s, ok := p.Snapshots[asset]; ok {
		return s, nil
	}
	s := NeutralSnapshot(asset, class)
	return s, nil
}

// NeutralSnapshot returns a snapshot with every metric at its neutral
// resting value. Useful as a test baseline: no agent condition triggers.
func NeutralSnapshot(asset string, class decision.AssetClass) *Snapshot {
	return &Snapshot{
		Asset:      asset,
		AssetClass: class,
		Price:      100,
		Volume24h:  1_000_000,
		OnChain: OnChainMetrics{
			WashTradingRatio: 0.05,
		},
		Macro: MacroMetrics{
			FedStance:        "neutral",
			YieldCurveSpread: 0.5,
			CPIYoY:           2.0,
			CreditSpreads:    2.0,
			VIX:              18,
		},
		Volatility: VolatilityMetrics{
			VIX:           18,
			TermStructure: "contango",
			IVRank:        50,
		},
		Momentum: MomentumMetrics{
			RSI14: 50,
			ADX:   20,
		},
		Regulatory: RegulatoryMetrics{
			AuditStatus:  "audited",
			RugPullRisk:  0.1,
			LiquidityUSD: 50_000_000,
			TeamVerified: true,
		},
		Technical: TechnicalMetrics{
			SupportDistancePct:    5,
			ResistanceDistancePct: 5,
			Trend:                 "sideways",
		},
	}
}

package agents

import (
	"context"
	"fmt"
	"strings"

	"argos/internal/domain/decision"
	"argos/internal/domain/market"
)

// Risk categories assessed by the devil's advocate
const (
	CategoryMarket      = "market"
	CategoryLiquidity   = "liquidity"
	CategoryTiming      = "timing"
	CategoryCorrelation = "correlation"
	CategoryRegulatory  = "regulatory"
	CategoryTechnical   = "technical"
	CategorySentiment   = "sentiment"
	CategoryMacro       = "macro"
)

// Critique aggregation weights: each critical issue adds 2 points, each
// warning half a point, on top of the category average.
const (
	criticalIssueWeight = 2.0
	warningWeight       = 0.5
	categoryBase        = 5.0
)

// CritiqueResult is one critique invocation's output. Not persisted; the
// agent carries no memory of prior critiques.
type CritiqueResult struct {
	OverallScore        float64 // 0-10
	CategoryScores      map[string]float64
	CriticalIssues      []string
	Warnings            []string
	CounterArguments    []string
	HistoricalScenarios []decision.FailureScenario
	VetoRecommended     bool
}

// ScenarioCatalog serves similarity-matched historical failure scenarios.
// The production implementation is backed by the trade-memory store; the
// built-in catalog below is the default.
type ScenarioCatalog interface {
	SimilarFailures(ctx context.Context, asset string, class decision.AssetClass, limit int) ([]decision.FailureScenario, error)
}

// DevilsAdvocate is the permanently bearish seventh agent. It scores eight
// independent risk categories and recommends a veto when the aggregate
// exceeds the configured threshold.
type DevilsAdvocate struct {
	vetoThreshold float64
	catalog       ScenarioCatalog
}

// NewDevilsAdvocate creates the adversarial critic. A nil catalog falls
// back to the built-in scenario list.
func NewDevilsAdvocate(vetoThreshold float64, catalog ScenarioCatalog) *DevilsAdvocate {
	if catalog == nil {
		catalog = builtinCatalog{}
	}
	return &DevilsAdvocate{vetoThreshold: vetoThreshold, catalog: catalog}
}

func (d *DevilsAdvocate) ID() string   { return AgentDevilsAdvocate }
func (d *DevilsAdvocate) Name() string { return "Devil's Advocate" }

// Critique runs the eight category assessments and aggregates them.
// overall = clamp(avg(categories) + 2*criticals + 0.5*warnings, 0, 10).
func (d *DevilsAdvocate) Critique(ctx context.Context, task *decision.AgentTask, snap *market.Snapshot) (*CritiqueResult, error) {
	res := &CritiqueResult{
		CategoryScores: make(map[string]float64, 8),
	}

	assessments := []struct {
		category string
		assess   func(*market.Snapshot, *CritiqueResult) float64
	}{
		{CategoryMarket, d.assessMarket},
		{CategoryLiquidity, d.assessLiquidity},
		{CategoryTiming, d.assessTiming},
		{CategoryCorrelation, d.assessCorrelation},
		{CategoryRegulatory, d.assessRegulatory},
		{CategoryTechnical, d.assessTechnical},
		{CategorySentiment, d.assessSentiment},
		{CategoryMacro, d.assessMacro},
	}

	var sum float64
	for _, a := range assessments {
		score := decision.Clamp(a.assess(snap, res), 0, 10)
		res.CategoryScores[a.category] = score
		sum += score
	}

	avg := sum / float64(len(assessments))
	res.OverallScore = decision.Clamp(
		avg+float64(len(res.CriticalIssues))*criticalIssueWeight+float64(len(res.Warnings))*warningWeight,
		0, 10,
	)
	res.VetoRecommended = res.OverallScore > d.vetoThreshold

	// Descriptive context only: matched scenarios never feed back into the score
	scenarios, err := d.catalog.SimilarFailures(ctx, task.Asset, task.AssetClass, 3)
	if err == nil {
		res.HistoricalScenarios = scenarios
	}

	return res, nil
}

// Analyze maps the critique onto the shared response contract:
// avoid when a veto is recommended, hold otherwise, confidence = overall*10.
func (d *DevilsAdvocate) Analyze(ctx context.Context, task *decision.AgentTask, snap *market.Snapshot) (*decision.AgentResponse, error) {
	critique, err := d.Critique(ctx, task, snap)
	if err != nil {
		return nil, err
	}

	rec := decision.Hold
	if critique.VetoRecommended {
		rec = decision.Avoid
	}

	risks := make([]string, 0, len(critique.CriticalIssues)+len(critique.Warnings))
	risks = append(risks, critique.CriticalIssues...)
	risks = append(risks, critique.Warnings...)

	return decision.NewResponse(
		d.ID(), d.Name(), task.ID,
		critique.OverallScore*10,
		rec,
		critique.CounterArguments,
		risks,
		map[string]interface{}{
			"overall_score":    critique.OverallScore,
			"category_scores":  critique.CategoryScores,
			"veto_recommended": critique.VetoRecommended,
		},
	)
}

func (d *DevilsAdvocate) assessMarket(snap *market.Snapshot, res *CritiqueResult) float64 {
	score := categoryBase
	if snap.Macro.VIX > vixStressed {
		score += 3
		res.Warnings = append(res.Warnings, fmt.Sprintf("Warning: market-wide volatility elevated, VIX %.1f", snap.Macro.VIX))
	}
	if snap.Technical.Trend == "down" {
		score += 2
		res.CounterArguments = append(res.CounterArguments, "The prevailing trend is down; buying against trend historically underperforms")
	} else {
		score -= 1
	}
	return score
}

func (d *DevilsAdvocate) assessLiquidity(snap *market.Snapshot, res *CritiqueResult) float64 {
	score := categoryBase
	if snap.Regulatory.LiquidityUSD < liquidityThin {
		score += 4
		res.CriticalIssues = append(res.CriticalIssues, "Critical: liquidity too thin to exit a meaningful position")
	}
	if snap.OnChain.WashTradingRatio > washTradingElevated {
		score += 2
		res.Warnings = append(res.Warnings, fmt.Sprintf("Warning: %.0f%% of volume flagged as wash trading", snap.OnChain.WashTradingRatio*100))
	}
	if snap.Regulatory.LiquidityUSD > liquidityDeep {
		score -= 2
	}
	return score
}

func (d *DevilsAdvocate) assessTiming(snap *market.Snapshot, res *CritiqueResult) float64 {
	score := categoryBase
	if snap.Momentum.RSI14 > rsiOverbought {
		score += 3
		res.Warnings = append(res.Warnings, fmt.Sprintf("Warning: chasing an overbought entry, RSI %.0f", snap.Momentum.RSI14))
		res.CounterArguments = append(res.CounterArguments, "Entering after the move is the retail pattern, not the edge")
	}
	if snap.Momentum.PriceChange7d > extendedMove7d {
		score += 2
		res.Warnings = append(res.Warnings, fmt.Sprintf("Warning: price already up %.0f%% in 7d", snap.Momentum.PriceChange7d))
	}
	if snap.Momentum.RSI14 < rsiOversold {
		score -= 1
	}
	return score
}

func (d *DevilsAdvocate) assessCorrelation(snap *market.Snapshot, res *CritiqueResult) float64 {
	score := categoryBase
	if abs(snap.Macro.GoldCorrelation) > 0.8 {
		score += 3
		res.Warnings = append(res.Warnings, fmt.Sprintf("Warning: gold/USD correlation at %.2f, diversification illusory", snap.Macro.GoldCorrelation))
	}
	if snap.Macro.DXYChange > dxyStrongChange {
		score += 1
	}
	return score
}

func (d *DevilsAdvocate) assessRegulatory(snap *market.Snapshot, res *CritiqueResult) float64 {
	score := categoryBase
	switch snap.Regulatory.AuditStatus {
	case "failed":
		score += 4
		res.CriticalIssues = append(res.CriticalIssues, "Critical: failed audit with unresolved findings")
	case "unaudited":
		score += 2
		res.Warnings = append(res.Warnings, "Warning: no audit on record")
	default:
		score -= 1
	}
	if snap.Regulatory.SanctionsExposure {
		score += 4
		res.CriticalIssues = append(res.CriticalIssues, "Critical: sanctions exposure, fraud and seizure risk")
	}
	if snap.Regulatory.RugPullRisk > rugPullCritical {
		score += 3
		res.CriticalIssues = append(res.CriticalIssues, fmt.Sprintf("Critical: rug-pull model score %.2f", snap.Regulatory.RugPullRisk))
	}
	return score
}

func (d *DevilsAdvocate) assessTechnical(snap *market.Snapshot, res *CritiqueResult) float64 {
	score := categoryBase
	if snap.Technical.ResistanceDistancePct < nearLevelPct {
		score += 2
		res.CounterArguments = append(res.CounterArguments, "Overhead resistance sits directly above entry; risk/reward is inverted")
	}
	if !snap.Technical.VolumeConfirmation {
		score += 2
		res.Warnings = append(res.Warnings, "Warning: the move lacks volume confirmation")
	}
	return score
}

func (d *DevilsAdvocate) assessSentiment(snap *market.Snapshot, res *CritiqueResult) float64 {
	score := categoryBase
	if snap.Sentiment.Sentiment > 0.7 {
		score += 3
		res.Warnings = append(res.Warnings, "Warning: crowd euphoria, contrarian signal")
		res.CounterArguments = append(res.CounterArguments, "When everyone is bullish, who is left to buy?")
	} else if snap.Sentiment.Sentiment < -0.7 {
		score += 2
		res.Warnings = append(res.Warnings, "Warning: capitulation-grade negative sentiment")
	}
	if themes := snap.Sentiment.KeyThemes; len(themes) > 0 && strings.Contains(strings.ToLower(strings.Join(themes, " ")), "fraud") {
		score += 3
		res.CriticalIssues = append(res.CriticalIssues, "Critical: fraud allegations among dominant sentiment themes")
	}
	return score
}

func (d *DevilsAdvocate) assessMacro(snap *market.Snapshot, res *CritiqueResult) float64 {
	score := categoryBase
	if snap.Macro.YieldCurveSpread < yieldCurveInverted {
		score += 3
		res.Warnings = append(res.Warnings, fmt.Sprintf("Warning: inverted yield curve at %.2fpp", snap.Macro.YieldCurveSpread))
	}
	if snap.Macro.CreditSpreads > creditSpreadStress {
		score += 3
		res.Warnings = append(res.Warnings, fmt.Sprintf("Warning: credit spreads at %.1fpp signal stress", snap.Macro.CreditSpreads))
	}
	if snap.Macro.FedStance == "hawkish" {
		score += 1
	}
	return score
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// builtinCatalog is the static failure-scenario list used when no
// trade-memory backed catalog is wired.
type builtinCatalog struct{}

func (builtinCatalog) SimilarFailures(_ context.Context, _ string, class decision.AssetClass, limit int) ([]decision.FailureScenario, error) {
	scenarios := []decision.FailureScenario{
		{Name: "LUNA/UST collapse", Description: "Algorithmic stablecoin death spiral wiped out $40B in days", Similarity: 0.42},
		{Name: "FTX insolvency", Description: "Exchange token collateral unwound overnight on insolvency news", Similarity: 0.38},
		{Name: "2021 leverage flush", Description: "Crowded longs liquidated in cascade, -50% in a week", Similarity: 0.35},
		{Name: "Volmageddon 2018", Description: "Short-vol products erased when VIX doubled in a session", Similarity: 0.31},
		{Name: "Nickel squeeze 2022", Description: "Commodity short squeeze forced exchange intervention", Similarity: 0.27},
	}
	if class == decision.ClassStocks {
		scenarios = []decision.FailureScenario{
			{Name: "Volmageddon 2018", Description: "Short-vol products erased when VIX doubled in a session", Similarity: 0.40},
			{Name: "2008 credit crunch", Description: "Credit stress preceded a 50% equity drawdown", Similarity: 0.33},
			{Name: "Dot-com unwind", Description: "Momentum leaders lost 80% after sentiment peaked", Similarity: 0.29},
		}
	}
	if limit > 0 && limit < len(scenarios) {
		scenarios = scenarios[:limit]
	}
	return scenarios, nil
}

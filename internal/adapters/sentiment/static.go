package sentiment

import (
	"context"

	"argos/internal/domain/market"
)

// Compile-time check
var _ market.SentimentProvider = (*StaticProvider)(nil)

// StaticProvider returns fixed sentiment scores. Unknown assets score
// neutral. Used in tests and when no LLM backend is configured.
type StaticProvider struct {
	Scores map[string]*market.SentimentScore
}

// Sentiment implements market.SentimentProvider
func (p *StaticProvider) Sentiment(_ context.Context, asset string) (*market.SentimentScore, error) {
	if s, ok := p.Scores[asset]; ok {
		return s, nil
	}
	return &market.SentimentScore{Sentiment: 0, Reasoning: "no sentiment source configured"}, nil
}

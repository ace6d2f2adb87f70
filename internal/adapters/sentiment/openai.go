package sentiment

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"golang.org/x/time/rate"

	"argos/internal/adapters/config"
	"argos/internal/domain/market"
	"argos/pkg/errors"
	"argos/pkg/logger"
)

// Compile-time check
var _ market.SentimentProvider = (*OpenAIProvider)(nil)

const systemPrompt = `You are a market sentiment analyst. Given an asset symbol, assess
current market sentiment for it. Respond with a JSON object only:
{"sentiment": <-1.0 to 1.0>, "key_themes": ["..."], "reasoning": "one sentence"}`

// OpenAIProvider scores asset sentiment with an LLM call. Requests are
// rate limited so a burst of pipeline runs cannot exhaust the API quota.
type OpenAIProvider struct {
	client  openai.Client
	model   string
	limiter *rate.Limiter
	log     *logger.Logger
}

// NewOpenAIProvider creates a new sentiment provider
func NewOpenAIProvider(cfg config.SentimentConfig) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "sentiment API key is required")
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	rps := cfg.RPS
	if rps <= 0 {
		rps = 2
	}

	return &OpenAIProvider{
		client:  openai.NewClient(opts...),
		model:   cfg.Model,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
		log:     logger.Get().With("component", "sentiment", "model", cfg.Model),
	}, nil
}

type sentimentPayload struct {
	Sentiment float64  `json:"sentiment"`
	KeyThemes []string `json:"key_themes"`
	Reasoning string   `json:"reasoning"`
}

// Sentiment implements market.SentimentProvider
func (p *OpenAIProvider) Sentiment(ctx context.Context, asset string) (*market.SentimentScore, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, errors.Wrap(err, "sentiment rate limit wait aborted")
	}

	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: p.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(fmt.Sprintf("Asset: %s", asset)),
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "sentiment API call failed")
	}

	if len(resp.Choices) == 0 {
		return nil, errors.Wrapf(errors.ErrInternal, "no completion returned")
	}

	var payload sentimentPayload
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &payload); err != nil {
		return nil, errors.Wrap(err, "failed to parse sentiment response")
	}

	if payload.Sentiment < -1 || payload.Sentiment > 1 {
		return nil, errors.Wrapf(errors.ErrInvalidInput, "sentiment %.2f out of range", payload.Sentiment)
	}

	p.log.Debugw("scored sentiment", "asset", asset, "sentiment", payload.Sentiment)

	return &market.SentimentScore{
		Sentiment: payload.Sentiment,
		KeyThemes: payload.KeyThemes,
		Reasoning: payload.Reasoning,
	}, nil
}

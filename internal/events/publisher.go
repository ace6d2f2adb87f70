package events

import (
	"context"
	"time"

	"argos/internal/adapters/kafka"
	"argos/pkg/errors"
	"argos/pkg/logger"
)

// DecisionMadeEvent is emitted after every completed pipeline run,
// approved or not
type DecisionMadeEvent struct {
	DecisionID     string    `json:"decision_id"`
	Goal           string    `json:"goal"`
	Asset          string    `json:"asset"`
	AssetClass     string    `json:"asset_class"`
	Recommendation string    `json:"recommendation"`
	Confidence     float64   `json:"confidence"`
	ProposedSize   string    `json:"proposed_size"`
	Approved       bool      `json:"approved"`
	HumanApproval  bool      `json:"human_approval"`
	VetoedBy       string    `json:"vetoed_by,omitempty"`
	Reasons        []string  `json:"reasons,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// DebateVerdictEvent is emitted when a debate session reaches its verdict
type DebateVerdictEvent struct {
	SessionID        string    `json:"session_id"`
	Asset            string    `json:"asset"`
	Recommendation   string    `json:"recommendation"`
	Confidence       float64   `json:"confidence"`
	ConsensusReached bool      `json:"consensus_reached"`
	Unanimous        bool      `json:"unanimous"`
	Rounds           int       `json:"rounds"`
	Timestamp        time.Time `json:"timestamp"`
}

// RiskAlertEvent is emitted when a decision is blocked by the risk gate
type RiskAlertEvent struct {
	Asset     string    `json:"asset"`
	Reason    string    `json:"reason"`
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Publisher publishes pipeline events to Kafka
type Publisher struct {
	producer *kafka.Producer
	log      *logger.Logger
}

// NewPublisher creates a new event publisher
func NewPublisher(producer *kafka.Producer, log *logger.Logger) *Publisher {
	return &Publisher{
		producer: producer,
		log:      log,
	}
}

// PublishDecisionMade publishes a completed decision. Vetoed decisions go
// to a dedicated topic so monitoring can alert on them separately.
func (p *Publisher) PublishDecisionMade(ctx context.Context, event *DecisionMadeEvent) error {
	topic := kafka.TopicDecisionMade
	if event.VetoedBy != "" {
		topic = kafka.TopicDecisionVetoed
	}
	return p.publish(ctx, topic, event.Asset, event)
}

// PublishDebateVerdict publishes a debate verdict
func (p *Publisher) PublishDebateVerdict(ctx context.Context, event *DebateVerdictEvent) error {
	return p.publish(ctx, kafka.TopicDebateVerdict, event.Asset, event)
}

// PublishRiskAlert publishes a risk gate rejection
func (p *Publisher) PublishRiskAlert(ctx context.Context, event *RiskAlertEvent) error {
	return p.publish(ctx, kafka.TopicRiskAlert, event.Asset, event)
}

func (p *Publisher) publish(ctx context.Context, topic, key string, event interface{}) error {
	if err := p.producer.Publish(ctx, topic, key, event); err != nil {
		p.log.Errorw("failed to publish event", "topic", topic, "error", err)
		return errors.Wrap(err, "send to kafka")
	}

	p.log.Debugw("event published", "topic", topic, "key", key)
	return nil
}

package redis

import (
	"context"
	"strconv"

	"github.com/redis/go-redis/v9"

	"argos/internal/consensus"
	"argos/internal/domain/decision"
	"argos/internal/metrics"
	"argos/pkg/logger"
)

// Key holding performance-derived agent weights, written by the
// evaluation collaborator
const weightsKey = "agents:consensus_weights"

// Compile-time check
var _ decision.WeightSource = (*WeightRepository)(nil)

// WeightRepository implements decision.WeightSource backed by a Redis hash.
// Missing keys and transport errors fall back to the default weight table,
// so consensus always has a usable weight for every agent.
type WeightRepository struct {
	client   *redis.Client
	defaults map[string]float64
	log      *logger.Logger
}

// NewWeightRepository creates a new weight repository
func NewWeightRepository(client *redis.Client) *WeightRepository {
	return &WeightRepository{
		client:   client,
		defaults: consensus.DefaultWeights(),
		log:      logger.Get().With("component", "weight_repository"),
	}
}

// Weight returns the consensus weight for an agent
func (r *WeightRepository) Weight(ctx context.Context, agentID string) float64 {
	raw, err := r.client.HGet(ctx, weightsKey, agentID).Result()
	if err == redis.Nil {
		metrics.DBQueries.WithLabelValues("redis", "get_agent_weight", "success").Inc()
		return r.fallback(agentID)
	}
	if err != nil {
		metrics.DBQueries.WithLabelValues("redis", "get_agent_weight", "error").Inc()
		r.log.Warnw("failed to read agent weight, using default", "agent_id", agentID, "error", err)
		return r.fallback(agentID)
	}
	metrics.DBQueries.WithLabelValues("redis", "get_agent_weight", "success").Inc()

	w, err := strconv.ParseFloat(raw, 64)
	if err != nil || w <= 0 {
		r.log.Warnw("malformed agent weight, using default", "agent_id", agentID, "raw", raw)
		return r.fallback(agentID)
	}

	return w
}

func (r *WeightRepository) fallback(agentID string) float64 {
	if w, ok := r.defaults[agentID]; ok {
		return w
	}
	return 1.0
}

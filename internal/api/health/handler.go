package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"argos/pkg/logger"
)

// Handler provides health check endpoints
type Handler struct {
	log         *logger.Logger
	postgres    *sqlx.DB
	redis       *redis.Client
	startTime   time.Time
	serviceName string
}

// New creates a new health check handler. Either backend may be nil when
// the service runs with in-memory storage.
func New(log *logger.Logger, postgres *sqlx.DB, rdb *redis.Client, serviceName string) *Handler {
	return &Handler{
		log:         log,
		postgres:    postgres,
		redis:       rdb,
		startTime:   time.Now(),
		serviceName: serviceName,
	}
}

// ComponentHealth represents health of a single component
type ComponentHealth struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// HandleLiveness returns 200 OK if service is running.
// Used by Kubernetes liveness probe.
func (h *Handler) HandleLiveness(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"status": "alive",
	})
}

// HandleReadiness checks if service is ready to accept traffic.
// Used by Kubernetes readiness probe.
func (h *Handler) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]ComponentHealth)
	allHealthy := true

	if h.postgres != nil {
		pg := ComponentHealth{Status: "healthy"}
		if err := h.postgres.PingContext(ctx); err != nil {
			pg = ComponentHealth{Status: "unhealthy", Error: err.Error()}
			allHealthy = false
		}
		checks["postgres"] = pg
	}

	if h.redis != nil {
		rd := ComponentHealth{Status: "healthy"}
		if err := h.redis.Ping(ctx).Err(); err != nil {
			rd = ComponentHealth{Status: "unhealthy", Error: err.Error()}
			allHealthy = false
		}
		checks["redis"] = rd
	}

	status := "healthy"
	code := http.StatusOK
	if !allHealthy {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status":  status,
		"service": h.serviceName,
		"uptime":  time.Since(h.startTime).String(),
		"checks":  checks,
	})
}

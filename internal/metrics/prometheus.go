package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Agent metrics
	AgentAnalyses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "argos_agent_analyses_total",
			Help: "Total number of agent analyses",
		},
		[]string{"agent", "status"}, // status: success|error|stale
	)

	AgentDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "argos_agent_duration_seconds",
			Help:    "Agent analysis duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"agent"},
	)

	// Decision metrics
	Decisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "argos_decisions_total",
			Help: "Total number of pipeline decisions",
		},
		[]string{"asset_class", "recommendation", "approved"},
	)

	Vetoes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "argos_vetoes_total",
			Help: "Total number of devil's advocate vetoes",
		},
		[]string{"asset_class"},
	)

	ConsensusConfidence = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "argos_consensus_confidence",
			Help:    "Final consensus confidence distribution",
			Buckets: []float64{10, 25, 50, 70, 85, 90, 95, 100},
		},
		[]string{"asset_class"},
	)

	HumanApprovals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "argos_human_approvals_total",
			Help: "Total number of decisions flagged for human approval",
		},
		[]string{"reason"}, // reason: size|confidence
	)

	// Debate metrics
	DebateRounds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "argos_debate_rounds",
			Help:    "Number of debate rounds per session",
			Buckets: []float64{1, 2, 3, 4, 5},
		},
		[]string{"asset_class"},
	)

	DebateDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "argos_debate_duration_seconds",
			Help:    "Full debate session duration in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
		},
		[]string{"asset_class"},
	)

	// Risk metrics
	RiskRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "argos_risk_rejections_total",
			Help: "Total number of decisions blocked by the risk gate",
		},
		[]string{"check"},
	)

	// System metrics
	KafkaMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "argos_kafka_messages_total",
			Help: "Total Kafka messages produced",
		},
		[]string{"topic", "status"},
	)

	DBQueries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "argos_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"database", "operation", "status"}, // database: postgres|redis
	)
)

// Init registers all metrics with Prometheus
func Init() {
	prometheus.MustRegister(AgentAnalyses)
	prometheus.MustRegister(AgentDuration)

	prometheus.MustRegister(Decisions)
	prometheus.MustRegister(Vetoes)
	prometheus.MustRegister(ConsensusConfidence)
	prometheus.MustRegister(HumanApprovals)

	prometheus.MustRegister(DebateRounds)
	prometheus.MustRegister(DebateDuration)

	prometheus.MustRegister(RiskRejections)

	prometheus.MustRegister(KafkaMessages)
	prometheus.MustRegister(DBQueries)
}

// Handler returns Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordAgentAnalysis records one agent analysis
func RecordAgentAnalysis(agent string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}

	AgentAnalyses.WithLabelValues(agent, status).Inc()
	AgentDuration.WithLabelValues(agent).Observe(duration.Seconds())
}

// RecordDecision records one completed pipeline decision
func RecordDecision(assetClass, recommendation string, approved bool, confidence float64) {
	approvedLabel := "false"
	if approved {
		approvedLabel = "true"
	}

	Decisions.WithLabelValues(assetClass, recommendation, approvedLabel).Inc()
	ConsensusConfidence.WithLabelValues(assetClass).Observe(confidence)
}

// RecordDebate records one completed debate session
func RecordDebate(assetClass string, rounds int, duration time.Duration) {
	DebateRounds.WithLabelValues(assetClass).Observe(float64(rounds))
	DebateDuration.WithLabelValues(assetClass).Observe(duration.Seconds())
}

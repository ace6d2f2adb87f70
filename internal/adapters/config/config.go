package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"argos/pkg/errors"
)

type Config struct {
	App           AppConfig
	Postgres      PostgresConfig
	Redis         RedisConfig
	Kafka         KafkaConfig
	Sentiment     SentimentConfig
	ErrorTracking ErrorTrackingConfig
	Pipeline      PipelineConfig
	Debate        DebateConfig
}

type AppConfig struct {
	Name     string `envconfig:"APP_NAME" default:"argos"`
	Env      string `envconfig:"APP_ENV" default:"development"`
	Version  string `envconfig:"APP_VERSION" default:"dev"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	HTTPPort int    `envconfig:"HTTP_PORT" default:"8080"`
}

type PostgresConfig struct {
	Host     string `envconfig:"POSTGRES_HOST" default:"localhost"`
	Port     int    `envconfig:"POSTGRES_PORT" default:"5432"`
	User     string `envconfig:"POSTGRES_USER" default:"argos"`
	Password string `envconfig:"POSTGRES_PASSWORD"`
	Database string `envconfig:"POSTGRES_DB" default:"argos"`
	SSLMode  string `envconfig:"POSTGRES_SSL_MODE" default:"disable"`
	MaxConns int    `envconfig:"POSTGRES_MAX_CONNS" default:"25"`
}

func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

type RedisConfig struct {
	Host     string `envconfig:"REDIS_HOST" default:"localhost"`
	Port     int    `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type KafkaConfig struct {
	Brokers []string `envconfig:"KAFKA_BROKERS" default:"localhost:9092"`
	GroupID string   `envconfig:"KAFKA_GROUP_ID" default:"argos"`
}

type SentimentConfig struct {
	APIKey  string  `envconfig:"SENTIMENT_API_KEY"`
	BaseURL string  `envconfig:"SENTIMENT_BASE_URL"`
	Model   string  `envconfig:"SENTIMENT_MODEL" default:"gpt-4o-mini"`
	RPS     float64 `envconfig:"SENTIMENT_RPS" default:"2"`
}

type ErrorTrackingConfig struct {
	Enabled     bool   `envconfig:"ERROR_TRACKING_ENABLED" default:"false"`
	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"SENTRY_ENVIRONMENT" default:"production"`
}

// PipelineConfig carries every decision threshold as an overridable setting.
// Defaults are the documented production values; tests override individual
// fields to probe behavior at alternate thresholds.
type PipelineConfig struct {
	// ExecutionThreshold is the minimum consensus confidence (0-100) required
	// before an execution plan is synthesized
	ExecutionThreshold float64 `envconfig:"PIPELINE_EXECUTION_THRESHOLD" default:"85"`

	// VetoThreshold is the devil's advocate score (0-10) above which a veto fires
	VetoThreshold float64 `envconfig:"PIPELINE_VETO_THRESHOLD" default:"7"`

	// StalenessWindow is the maximum acceptable age of an agent response
	StalenessWindow time.Duration `envconfig:"PIPELINE_STALENESS_WINDOW" default:"15m"`

	// TaskDeadline is the per-task completion deadline set at decomposition
	TaskDeadline time.Duration `envconfig:"PIPELINE_TASK_DEADLINE" default:"30s"`

	// MaxSingleTradeRiskPct is the single-trade share of portfolio value (percent)
	MaxSingleTradeRiskPct float64 `envconfig:"PIPELINE_MAX_SINGLE_TRADE_RISK_PCT" default:"2"`

	// MaxTotalExposurePct is the post-trade total exposure limit (percent)
	MaxTotalExposurePct float64 `envconfig:"PIPELINE_MAX_TOTAL_EXPOSURE_PCT" default:"2.5"`

	// StealthSizeThreshold is the order size above which stealth execution is forced
	StealthSizeThreshold float64 `envconfig:"PIPELINE_STEALTH_SIZE_THRESHOLD" default:"100000"`

	// HumanApprovalSize is the order size above which human approval is required
	HumanApprovalSize float64 `envconfig:"PIPELINE_HUMAN_APPROVAL_SIZE" default:"50000"`

	// HumanApprovalConfidence is the confidence below which human approval is required
	HumanApprovalConfidence float64 `envconfig:"PIPELINE_HUMAN_APPROVAL_CONFIDENCE" default:"90"`

	// MinBullishConfidence is the mean bullish confidence floor for adversarial synthesis
	MinBullishConfidence float64 `envconfig:"PIPELINE_MIN_BULLISH_CONFIDENCE" default:"60"`
}

type DebateConfig struct {
	MaxRounds          int           `envconfig:"DEBATE_MAX_ROUNDS" default:"3"`
	ConsensusThreshold float64       `envconfig:"DEBATE_CONSENSUS_THRESHOLD" default:"75"`
	ScanTimeout        time.Duration `envconfig:"DEBATE_SCAN_TIMEOUT" default:"30s"`
	EnableRebuttals    bool          `envconfig:"DEBATE_ENABLE_REBUTTALS" default:"true"`
}

// Load reads configuration from environment variables.
// It first tries to load .env file (useful for local development).
func Load() (*Config, error) {
	// Ignore error: .env is optional, env vars may come from the environment
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to process environment config")
	}

	return &cfg, nil
}

// DefaultPipeline returns the documented production thresholds.
// Used by tests and by callers that construct components without env loading.
func DefaultPipeline() PipelineConfig {
	return PipelineConfig{
		ExecutionThreshold:      85,
		VetoThreshold:           7,
		StalenessWindow:         15 * time.Minute,
		TaskDeadline:            30 * time.Second,
		MaxSingleTradeRiskPct:   2,
		MaxTotalExposurePct:     2.5,
		StealthSizeThreshold:    100_000,
		HumanApprovalSize:       50_000,
		HumanApprovalConfidence: 90,
		MinBullishConfidence:    60,
	}
}

// DefaultDebate returns the default debate settings.
func DefaultDebate() DebateConfig {
	return DebateConfig{
		MaxRounds:          3,
		ConsensusThreshold: 75,
		ScanTimeout:        30 * time.Second,
		EnableRebuttals:    true,
	}
}

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "argos", cfg.App.Name)
	assert.Equal(t, "development", cfg.App.Env)
	assert.Equal(t, 8080, cfg.App.HTTPPort)
	assert.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	assert.False(t, cfg.ErrorTracking.Enabled)

	assert.Equal(t, DefaultPipeline(), cfg.Pipeline)
	assert.Equal(t, DefaultDebate(), cfg.Debate)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PIPELINE_VETO_THRESHOLD", "8.5")
	t.Setenv("PIPELINE_STALENESS_WINDOW", "5m")
	t.Setenv("DEBATE_MAX_ROUNDS", "5")
	t.Setenv("POSTGRES_HOST", "db.internal")

	cfg, err := Load()
	require.NoError(t, err)

	assert.InDelta(t, 8.5, cfg.Pipeline.VetoThreshold, 0.001)
	assert.Equal(t, 5*time.Minute, cfg.Pipeline.StalenessWindow)
	assert.Equal(t, 5, cfg.Debate.MaxRounds)
	assert.Equal(t, "db.internal", cfg.Postgres.Host)
}

func TestDefaultPipeline(t *testing.T) {
	cfg := DefaultPipeline()

	assert.InDelta(t, 85, cfg.ExecutionThreshold, 0.001)
	assert.InDelta(t, 7, cfg.VetoThreshold, 0.001)
	assert.Equal(t, 15*time.Minute, cfg.StalenessWindow)
	assert.Equal(t, 30*time.Second, cfg.TaskDeadline)
	assert.InDelta(t, 2, cfg.MaxSingleTradeRiskPct, 0.001)
	assert.InDelta(t, 2.5, cfg.MaxTotalExposurePct, 0.001)
	assert.InDelta(t, 100_000, cfg.StealthSizeThreshold, 0.001)
	assert.InDelta(t, 50_000, cfg.HumanApprovalSize, 0.001)
	assert.InDelta(t, 90, cfg.HumanApprovalConfidence, 0.001)
	assert.InDelta(t, 60, cfg.MinBullishConfidence, 0.001)
}

func TestPostgresDSN(t *testing.T) {
	c := PostgresConfig{Host: "localhost", Port: 5432, User: "argos", Password: "secret", Database: "argos", SSLMode: "disable"}
	assert.Equal(t, "host=localhost port=5432 user=argos password=secret dbname=argos sslmode=disable", c.DSN())
}

func TestRedisAddr(t *testing.T) {
	c := RedisConfig{Host: "cache.internal", Port: 6380}
	assert.Equal(t, "cache.internal:6380", c.Addr())
}

package risk

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"argos/internal/adapters/config"
	"argos/internal/domain/decision"
	"argos/pkg/logger"
)

func validTrade() *CandidateTrade {
	return &CandidateTrade{
		Asset:          "BTC",
		AssetClass:     decision.ClassCrypto,
		Direction:      decision.Buy,
		Size:           decimal.NewFromInt(10_000),
		Confidence:     95,
		PortfolioValue: decimal.NewFromInt(1_000_000),
	}
}

func TestValidateTrade(t *testing.T) {
	v := NewPolicyValidator(config.DefaultPipeline(), logger.Get())
	ctx := context.Background()

	t.Run("clean trade approved without sign-off", func(t *testing.T) {
		out, err := v.ValidateTrade(ctx, validTrade())
		require.NoError(t, err)
		assert.True(t, out.Approved)
		assert.False(t, out.HITLRequired)
		assert.Len(t, out.Checks, 3)
		for _, c := range out.Checks {
			assert.True(t, c.Passed, c.Name)
		}
	})

	t.Run("non-positive size rejected", func(t *testing.T) {
		trade := validTrade()
		trade.Size = decimal.Zero
		out, err := v.ValidateTrade(ctx, trade)
		require.NoError(t, err)
		assert.False(t, out.Approved)
	})

	t.Run("non-directional decision rejected", func(t *testing.T) {
		for _, dir := range []decision.Recommendation{decision.Hold, decision.Avoid} {
			trade := validTrade()
			trade.Direction = dir
			out, err := v.ValidateTrade(ctx, trade)
			require.NoError(t, err)
			assert.False(t, out.Approved, dir)
		}
	})

	t.Run("single trade risk limit", func(t *testing.T) {
		trade := validTrade()
		trade.Size = decimal.NewFromInt(25_000)
		out, err := v.ValidateTrade(ctx, trade)
		require.NoError(t, err)
		assert.False(t, out.Approved)

		// Exactly at the 2% limit is allowed
		trade.Size = decimal.NewFromInt(20_000)
		out, err = v.ValidateTrade(ctx, trade)
		require.NoError(t, err)
		assert.True(t, out.Approved)
	})

	t.Run("risk check skipped without portfolio value", func(t *testing.T) {
		trade := validTrade()
		trade.PortfolioValue = decimal.Zero
		out, err := v.ValidateTrade(ctx, trade)
		require.NoError(t, err)
		assert.True(t, out.Approved)
		assert.Len(t, out.Checks, 2)
	})

	t.Run("large size requires human sign-off", func(t *testing.T) {
		trade := validTrade()
		trade.Size = decimal.NewFromInt(60_000)
		trade.PortfolioValue = decimal.NewFromInt(10_000_000)
		out, err := v.ValidateTrade(ctx, trade)
		require.NoError(t, err)
		assert.True(t, out.Approved)
		assert.True(t, out.HITLRequired)
	})

	t.Run("low confidence requires human sign-off", func(t *testing.T) {
		trade := validTrade()
		trade.Confidence = 89.9
		out, err := v.ValidateTrade(ctx, trade)
		require.NoError(t, err)
		assert.True(t, out.Approved)
		assert.True(t, out.HITLRequired)
	})
}

package debate

import (
	"context"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"argos/internal/adapters/config"
	"argos/internal/agents"
	"argos/internal/domain/debate"
	"argos/internal/domain/decision"
	"argos/internal/domain/market"
	"argos/pkg/errors"
	"argos/pkg/logger"
)

func testCoordinator() *Coordinator {
	return NewCoordinator(
		config.DefaultDebate(),
		agents.WorkerPool(),
		agents.NewDevilsAdvocate(7, nil),
		&market.StaticProvider{},
		logger.Get(),
	)
}

func debateTask(t *testing.T, asset string) *decision.AgentTask {
	t.Helper()
	task, err := decision.NewTask(decision.TaskAnalysis, asset, decision.ClassCrypto, 1, time.Now().Add(5*time.Minute), nil)
	require.NoError(t, err)
	return task
}

func TestRun_FullProtocol(t *testing.T) {
	c := testCoordinator()
	session, err := c.Run(context.Background(), debateTask(t, "BTC"))
	require.NoError(t, err)

	assert.Equal(t, debate.StatusComplete, session.Status)
	assert.False(t, session.EndedAt.IsZero())
	require.Len(t, session.Participants, 7, "six analysts plus the critic")

	// Every analyst responds instantly on fixture data
	assert.Len(t, session.EntriesByPhase(debate.PhaseScan), 6)

	// Two auditors plus the unconditional adversarial audit
	assert.Len(t, session.EntriesByPhase(debate.PhaseAudit), 3)

	// A neutral market converges slowly: all rounds run
	assert.Len(t, session.Rounds, 3)
	for i, round := range session.Rounds {
		assert.Equal(t, i+1, round.Number)
		assert.NotEmpty(t, round.EntryIDs)
	}

	require.NotNil(t, session.FinalVerdict)
	assert.Len(t, session.FinalVerdict.Votes, 7)
}

func TestRun_NeutralMarketVerdict(t *testing.T) {
	c := testCoordinator()
	session, err := c.Run(context.Background(), debateTask(t, "BTC"))
	require.NoError(t, err)

	verdict := session.FinalVerdict
	require.NotNil(t, verdict)

	// Neither side clears the directional cutoff on neutral data; only the
	// regulatory auditor (confidence 70) escalates. Hold carries 7.1 of 8.6
	// weight units.
	assert.Equal(t, decision.Hold, verdict.Recommendation)
	assert.InDelta(t, 82.56, verdict.Confidence, 0.1)
	assert.True(t, verdict.ConsensusReached)
	assert.False(t, verdict.Unanimous)

	regVote := verdict.Votes["regulatory_analyst"]
	assert.Equal(t, decision.Avoid, regVote.Recommendation)
	assert.InDelta(t, 1.5, regVote.Weight, 0.001)
}

func TestRun_UnanimousBullVotes(t *testing.T) {
	snap := market.NeutralSnapshot("BTC", decision.ClassCrypto)
	snap.Momentum.EMAStackBullish = true
	snap.Momentum.MACDHistogram = 1.5
	snap.Momentum.RSI14 = 60
	snap.Momentum.ADX = 30
	snap.Technical.Trend = "up"
	snap.Technical.SupportDistancePct = 1.5
	snap.Technical.VolumeConfirmation = true
	snap.Sentiment.Sentiment = 0.6

	// Bulls only: no bears, no auditors, no critic seated
	c := NewCoordinator(
		config.DefaultDebate(),
		[]agents.Agent{agents.NewMomentumAnalyst(), agents.NewTechnicalAnalyst()},
		nil,
		&market.StaticProvider{Snapshots: map[string]*market.Snapshot{"BTC": snap}},
		logger.Get(),
	)

	session, err := c.Run(context.Background(), debateTask(t, "BTC"))
	require.NoError(t, err)

	verdict := session.FinalVerdict
	require.NotNil(t, verdict)
	assert.Equal(t, decision.Buy, verdict.Recommendation)
	assert.True(t, verdict.Unanimous)
	assert.InDelta(t, 100, verdict.Confidence, 0.001)
	assert.True(t, verdict.ConsensusReached)

	require.Len(t, verdict.Votes, 2)
	for _, v := range verdict.Votes {
		assert.Equal(t, decision.Buy, v.Recommendation)
		assert.Equal(t, debate.RoleBull, v.Role)
	}
}

func TestAssignRoles(t *testing.T) {
	c := testCoordinator()
	participants := c.assignRoles()
	require.Len(t, participants, 7)

	roles := make(map[string]debate.Role, len(participants))
	for _, p := range participants {
		roles[p.AgentID] = p.Role
	}

	assert.Equal(t, debate.RoleBull, roles["momentum_analyst"])
	assert.Equal(t, debate.RoleBull, roles["technical_analyst"])
	assert.Equal(t, debate.RoleBear, roles["volatility_analyst"])
	assert.Equal(t, debate.RoleBear, roles["macro_analyst"])
	assert.Equal(t, debate.RoleAuditor, roles["regulatory_analyst"])
	assert.Equal(t, debate.RoleAuditor, roles["onchain_analyst"])
	assert.Equal(t, debate.RoleBear, roles[agents.AgentDevilsAdvocate], "the critic is permanently bearish")
}

func TestVoteFor(t *testing.T) {
	tests := []struct {
		role debate.Role
		conf float64
		want decision.Recommendation
	}{
		{debate.RoleBull, 60, decision.Buy},
		{debate.RoleBull, 59.9, decision.Hold},
		{debate.RoleBear, 60, decision.Avoid},
		{debate.RoleBear, 45, decision.Hold},
		{debate.RoleAuditor, 70, decision.Avoid},
		{debate.RoleAuditor, 69.9, decision.Hold},
		{debate.RoleNeutral, 100, decision.Hold},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, voteFor(tt.role, tt.conf), "%s at %.1f", tt.role, tt.conf)
	}
}

func TestConsensusProgress(t *testing.T) {
	c := testCoordinator()

	session, err := debate.NewSession("BTC", decision.ClassCrypto, []debate.Participant{
		{AgentID: "momentum_analyst", Role: debate.RoleBull},
		{AgentID: "macro_analyst", Role: debate.RoleBear},
	})
	require.NoError(t, err)
	require.NoError(t, session.Advance(debate.StatusDebating))

	assert.Zero(t, c.consensusProgress(session), "no debate entries yet")

	post := func(agentID string, conf float64) {
		e, err := debate.NewEntry(agentID, agentID, debate.PhaseDebate, debate.KindArgument, "arg", conf, nil)
		require.NoError(t, err)
		require.NoError(t, session.Append(e))
	}
	post("momentum_analyst", 90)
	post("macro_analyst", 20)

	// 0.5*mean(55) + 0.5*gap(70)
	assert.InDelta(t, 62.5, c.consensusProgress(session), 0.001)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 120))

	long := strings.Repeat("市", 130)
	got := truncate(long, 120)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, strings.Repeat("市", 120)+"…", got)
}

func TestSynthesizeResponses(t *testing.T) {
	c := testCoordinator()
	taskID := uuid.New()

	t.Run("requires a verdict", func(t *testing.T) {
		session, err := debate.NewSession("BTC", decision.ClassCrypto, []debate.Participant{
			{AgentID: "momentum_analyst", Role: debate.RoleBull},
		})
		require.NoError(t, err)

		_, err = c.SynthesizeResponses(session, taskID)
		assert.True(t, errors.Is(err, errors.ErrInvalidInput))
	})

	t.Run("one response per voter", func(t *testing.T) {
		session, err := c.Run(context.Background(), debateTask(t, "BTC"))
		require.NoError(t, err)

		responses, err := c.SynthesizeResponses(session, taskID)
		require.NoError(t, err)
		require.Len(t, responses, 7)

		for _, resp := range responses {
			assert.Equal(t, taskID, resp.TaskID)
			assert.Contains(t, resp.Result, "role")
			assert.Equal(t, session.ID.String(), resp.Result["debate_session"])

			vote := session.FinalVerdict.Votes[resp.AgentID]
			assert.Equal(t, vote.Recommendation, resp.Recommendation)
			assert.InDelta(t, vote.Confidence, resp.Confidence, 0.001)
		}
	})
}

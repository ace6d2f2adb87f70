package debate

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/google/uuid"

	"argos/internal/adapters/config"
	"argos/internal/agents"
	"argos/internal/domain/debate"
	"argos/internal/domain/decision"
	"argos/internal/domain/market"
	"argos/pkg/errors"
	"argos/pkg/logger"
)

// Verdict vote weights by role
var roleWeights = map[debate.Role]float64{
	debate.RoleBull:    1.0,
	debate.RoleBear:    1.2,
	debate.RoleAuditor: 1.5,
	debate.RoleNeutral: 0.8,
}

// Vote mapping cutoffs: a bull (bear) votes its directional stance only
// when its latest confidence clears the cutoff, otherwise hold; an auditor
// escalates to avoid above its concern cutoff.
const (
	directionalVoteCutoff = 60.0
	auditorConcernCutoff  = 70.0
)

// rebuttalsPerSide bounds counter entries generated per side per round
const rebuttalsPerSide = 2

// Coordinator orchestrates the scan → debate → audit → verdict protocol
// across the worker pool plus the devil's advocate. It is the blackboard's
// single writer; concurrent agents report through channels and never touch
// the session directly.
type Coordinator struct {
	cfg       config.DebateConfig
	pool      []agents.Agent
	advocate  *agents.DevilsAdvocate
	snapshots market.SnapshotProvider
	log       *logger.Logger
}

// NewCoordinator creates a debate coordinator over the given worker pool
func NewCoordinator(cfg config.DebateConfig, pool []agents.Agent, advocate *agents.DevilsAdvocate, snapshots market.SnapshotProvider, log *logger.Logger) *Coordinator {
	return &Coordinator{
		cfg:       cfg,
		pool:      pool,
		advocate:  advocate,
		snapshots: snapshots,
		log:       log.With("component", "debate_coordinator"),
	}
}

// Run executes a full debate for the task's asset and returns the
// completed session. A debate once started runs to completion; the scan
// timeout is the only cancellation point.
func (c *Coordinator) Run(ctx context.Context, task *decision.AgentTask) (*debate.Session, error) {
	participants := c.assignRoles()
	session, err := debate.NewSession(task.Asset, task.AssetClass, participants)
	if err != nil {
		return nil, err
	}

	snap, err := c.snapshots.Snapshot(ctx, task.Asset, task.AssetClass)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch market snapshot")
	}

	c.log.Infow("debate started",
		"session_id", session.ID,
		"asset", task.Asset,
		"participants", len(participants),
	)

	if err := c.runScan(ctx, session, task, snap); err != nil {
		return nil, err
	}
	if err := session.Advance(debate.StatusDebating); err != nil {
		return nil, err
	}
	if err := c.runDebateRounds(session); err != nil {
		return nil, err
	}
	if err := session.Advance(debate.StatusAuditing); err != nil {
		return nil, err
	}
	if err := c.runAudit(ctx, session, task, snap); err != nil {
		return nil, err
	}
	if err := session.Advance(debate.StatusVoting); err != nil {
		return nil, err
	}
	if err := c.runVerdict(session); err != nil {
		return nil, err
	}
	if err := session.Advance(debate.StatusComplete); err != nil {
		return nil, err
	}

	c.log.Infow("debate complete",
		"session_id", session.ID,
		"recommendation", session.FinalVerdict.Recommendation,
		"confidence", session.FinalVerdict.Confidence,
		"consensus", session.FinalVerdict.ConsensusReached,
		"rounds", len(session.Rounds),
	)

	return session, nil
}

// assignRoles maps agent identity to debate role. Fixed at session start,
// never changed mid-session. The devil's advocate, when seated, is
// permanently a bear.
func (c *Coordinator) assignRoles() []debate.Participant {
	participants := make([]debate.Participant, 0, len(c.pool)+1)
	for _, a := range c.pool {
		participants = append(participants, debate.Participant{
			AgentID:   a.ID(),
			AgentName: a.Name(),
			Role:      roleFor(a.ID()),
		})
	}
	if c.advocate != nil {
		participants = append(participants, debate.Participant{
			AgentID:   c.advocate.ID(),
			AgentName: c.advocate.Name(),
			Role:      debate.RoleBear,
		})
	}
	return participants
}

func roleFor(agentID string) debate.Role {
	switch {
	case strings.Contains(agentID, "momentum"), strings.Contains(agentID, "technical"):
		return debate.RoleBull
	case strings.Contains(agentID, "volatility"), strings.Contains(agentID, "macro"):
		return debate.RoleBear
	case strings.Contains(agentID, "regulatory"), strings.Contains(agentID, "onchain"):
		return debate.RoleAuditor
	default:
		return debate.RoleNeutral
	}
}

// runScan fans the worker pool out concurrently against the same task and
// posts each completed analysis to the blackboard as a finding. Agents that
// miss the timeout simply contribute no entry.
func (c *Coordinator) runScan(ctx context.Context, session *debate.Session, task *decision.AgentTask, snap *market.Snapshot) error {
	scanCtx, cancel := context.WithTimeout(ctx, c.cfg.ScanTimeout)
	defer cancel()

	type scanResult struct {
		agent agents.Agent
		resp  *decision.AgentResponse
	}

	results := make(chan scanResult, len(c.pool))
	var wg sync.WaitGroup
	for _, a := range c.pool {
		wg.Add(1)
		go func(a agents.Agent) {
			defer wg.Done()
			resp, err := a.Analyze(scanCtx, task, snap)
			if err != nil {
				c.log.Warnw("scan analysis failed", "agent", a.ID(), "error", err)
				return
			}
			select {
			case results <- scanResult{agent: a, resp: resp}:
			case <-scanCtx.Done():
			}
		}(a)
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	collected := 0
collect:
	for {
		select {
		case r, ok := <-results:
			if !ok {
				break collect
			}
			content := fmt.Sprintf("[%s] %s: %s", r.resp.Recommendation, r.agent.Name(), strings.Join(r.resp.Reasoning, "; "))
			if len(r.resp.Risks) > 0 {
				content += " | risks: " + strings.Join(r.resp.Risks, "; ")
			}
			entry, err := debate.NewEntry(r.agent.ID(), r.agent.Name(), debate.PhaseScan, debate.KindFinding, content, r.resp.Confidence, nil)
			if err != nil {
				return err
			}
			if err := session.Append(entry); err != nil {
				return err
			}
			collected++
		case <-scanCtx.Done():
			break collect
		}
	}

	c.log.Debugw("scan phase done", "session_id", session.ID, "findings", collected)
	return nil
}

// runDebateRounds runs up to MaxRounds rounds of structured argumentation,
// exiting early once the consensus-progress score clears the threshold.
func (c *Coordinator) runDebateRounds(session *debate.Session) error {
	for round := 1; round <= c.cfg.MaxRounds; round++ {
		entryIDs, err := c.runRound(session, round)
		if err != nil {
			return err
		}

		progress := c.consensusProgress(session)
		session.Rounds = append(session.Rounds, debate.Round{
			Number:   round,
			EntryIDs: entryIDs,
			Progress: progress,
		})

		c.log.Debugw("debate round complete", "session_id", session.ID, "round", round, "progress", progress)

		if progress > c.cfg.ConsensusThreshold {
			break
		}
	}
	return nil
}

// runRound posts one argument per bull, one per bear, then up to two
// counters per side. Argument synthesis within a round is concurrent;
// appends go through the coordinator alone.
func (c *Coordinator) runRound(session *debate.Session, round int) ([]uuid.UUID, error) {
	bulls := c.sideParticipants(session, debate.RoleBull)
	bears := c.sideParticipants(session, debate.RoleBear)

	prevBullArgs := c.roundArguments(session, round-1, debate.RoleBull)
	prevBearArgs := c.roundArguments(session, round-1, debate.RoleBear)

	type argument struct {
		participant debate.Participant
		content     string
		confidence  float64
		refs        []uuid.UUID
	}

	buildArgs := func(side []debate.Participant, opposing []*debate.Entry, stance string) []argument {
		out := make([]argument, len(side))
		var wg sync.WaitGroup
		for i, p := range side {
			wg.Add(1)
			go func(i int, p debate.Participant) {
				defer wg.Done()
				out[i] = argument{
					participant: p,
					content:     c.composeArgument(session, p, opposing, stance, round),
					confidence:  session.LatestConfidence(p.AgentID, 50),
					refs:        entryIDs(opposing),
				}
			}(i, p)
		}
		wg.Wait()
		return out
	}

	// Bulls argue first each round, then bears respond within the same round
	bullArgs := buildArgs(bulls, prevBearArgs, "bullish")
	bearArgs := buildArgs(bears, prevBullArgs, "bearish")

	ids := make([]uuid.UUID, 0, len(bullArgs)+len(bearArgs)+2*rebuttalsPerSide)
	var roundBullEntries, roundBearEntries []*debate.Entry
	for _, a := range bullArgs {
		entry, err := c.post(session, a.participant, debate.KindArgument, a.content, a.confidence, a.refs)
		if err != nil {
			return nil, err
		}
		ids = append(ids, entry.ID)
		roundBullEntries = append(roundBullEntries, entry)
	}
	for _, a := range bearArgs {
		entry, err := c.post(session, a.participant, debate.KindArgument, a.content, a.confidence, a.refs)
		if err != nil {
			return nil, err
		}
		ids = append(ids, entry.ID)
		roundBearEntries = append(roundBearEntries, entry)
	}

	if c.cfg.EnableRebuttals {
		counterIDs, err := c.postRebuttals(session, bulls, roundBearEntries)
		if err != nil {
			return nil, err
		}
		ids = append(ids, counterIDs...)
		counterIDs, err = c.postRebuttals(session, bears, roundBullEntries)
		if err != nil {
			return nil, err
		}
		ids = append(ids, counterIDs...)
	}

	return ids, nil
}

// composeArgument builds an argument quoting the agent's scan finding and,
// from round 2 onward, addressing the prior round's opposing arguments.
func (c *Coordinator) composeArgument(session *debate.Session, p debate.Participant, opposing []*debate.Entry, stance string, round int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Round %d %s case from %s.", round, stance, p.AgentName)

	for _, e := range session.EntriesByAgent(p.AgentID) {
		if e.Phase == debate.PhaseScan {
			fmt.Fprintf(&b, " My scan found: %s.", e.Content)
			break
		}
	}

	if round > 1 && len(opposing) > 0 {
		fmt.Fprintf(&b, " Addressing the opposing side: %q does not hold because the primary drivers in my scan remain intact.", truncate(opposing[0].Content, 120))
	}

	return b.String()
}

// postRebuttals posts up to two counters from the side against the
// strongest opposing arguments of this round.
func (c *Coordinator) postRebuttals(session *debate.Session, side []debate.Participant, opposing []*debate.Entry) ([]uuid.UUID, error) {
	if len(side) == 0 || len(opposing) == 0 {
		return nil, nil
	}

	targets := strongest(opposing, rebuttalsPerSide)
	ids := make([]uuid.UUID, 0, len(targets))
	for i, target := range targets {
		author := side[i%len(side)]
		content := fmt.Sprintf("Counter from %s: the claim %q overweights a single signal; the cross-check in my findings points the other way.",
			author.AgentName, truncate(target.Content, 120))
		entry, err := c.post(session, author, debate.KindCounter, content, session.LatestConfidence(author.AgentID, 50), []uuid.UUID{target.ID})
		if err != nil {
			return nil, err
		}
		ids = append(ids, entry.ID)
	}
	return ids, nil
}

// consensusProgress scores debate convergence:
// 0.5*mean confidence of all debate entries + 0.5*|mean bull - mean bear|,
// clamped to 100.
func (c *Coordinator) consensusProgress(session *debate.Session) float64 {
	entries := session.EntriesByPhase(debate.PhaseDebate)
	if len(entries) == 0 {
		return 0
	}

	var all, bull, bear float64
	var bullN, bearN int
	for _, e := range entries {
		all += e.Confidence
		switch session.RoleOf(e.AgentID) {
		case debate.RoleBull:
			bull += e.Confidence
			bullN++
		case debate.RoleBear:
			bear += e.Confidence
			bearN++
		}
	}

	meanAll := all / float64(len(entries))
	var gap float64
	if bullN > 0 && bearN > 0 {
		gap = abs(bull/float64(bullN) - bear/float64(bearN))
	}

	return decision.Clamp(0.5*meanAll+0.5*gap, 0, 100)
}

// runAudit has every auditor, plus the devil's advocate when seated,
// post one compliance/manipulation finding.
func (c *Coordinator) runAudit(ctx context.Context, session *debate.Session, task *decision.AgentTask, snap *market.Snapshot) error {
	for _, p := range session.Participants {
		if p.Role != debate.RoleAuditor {
			continue
		}
		content := fmt.Sprintf("Audit by %s: reviewed scan findings for compliance and manipulation concerns.", p.AgentName)
		if risks := c.scanRisks(session, p.AgentID); len(risks) > 0 {
			content += " Flagged: " + strings.Join(risks, "; ")
		} else {
			content += " No material concerns beyond those already on the record."
		}
		if _, err := c.post(session, p, debate.KindFinding, content, session.LatestConfidence(p.AgentID, 50), nil); err != nil {
			return err
		}
	}

	if c.advocate == nil {
		return nil
	}

	critique, err := c.advocate.Critique(ctx, task, snap)
	if err != nil {
		return err
	}
	content := fmt.Sprintf("Adversarial audit: overall risk %.1f/10 across 8 categories. %d critical issues, %d warnings.",
		critique.OverallScore, len(critique.CriticalIssues), len(critique.Warnings))
	if critique.VetoRecommended {
		content += " Veto recommended."
	}
	if len(critique.CriticalIssues) > 0 {
		content += " " + strings.Join(critique.CriticalIssues, "; ")
	}
	advocate := debate.Participant{AgentID: c.advocate.ID(), AgentName: c.advocate.Name(), Role: debate.RoleBear}
	if _, err := c.post(session, advocate, debate.KindFinding, content, critique.OverallScore*10, nil); err != nil {
		return err
	}

	return nil
}

// runVerdict collects one weighted vote per participant, tallies by
// recommendation, and sets the final verdict exactly once.
func (c *Coordinator) runVerdict(session *debate.Session) error {
	votes := make(map[string]debate.Vote, len(session.Participants))
	tally := map[decision.Recommendation]float64{}
	var totalWeight float64

	for _, p := range session.Participants {
		conf := session.LatestConfidence(p.AgentID, 50)
		weight := roleWeights[p.Role]
		rec := voteFor(p.Role, conf)

		votes[p.AgentID] = debate.Vote{
			AgentID:        p.AgentID,
			Role:           p.Role,
			Recommendation: rec,
			Confidence:     conf,
			Weight:         weight,
		}
		tally[rec] += weight
		totalWeight += weight

		content := fmt.Sprintf("%s (%s) votes %s at %.0f%% confidence, weight %.1f", p.AgentName, p.Role, rec, conf, weight)
		if _, err := c.post(session, p, debate.KindVote, content, conf, nil); err != nil {
			return err
		}
	}

	var winner decision.Recommendation = decision.Hold
	var best float64
	for _, rec := range []decision.Recommendation{decision.Buy, decision.Sell, decision.Hold, decision.Avoid} {
		if tally[rec] > best {
			best = tally[rec]
			winner = rec
		}
	}

	confidence := 0.0
	if totalWeight > 0 {
		confidence = best / totalWeight * 100
	}

	unanimous := true
	var first decision.Recommendation
	i := 0
	for _, v := range votes {
		if i == 0 {
			first = v.Recommendation
		} else if v.Recommendation != first {
			unanimous = false
		}
		i++
	}

	return session.SetVerdict(&debate.Verdict{
		Recommendation:   winner,
		Confidence:       confidence,
		ConsensusReached: confidence >= c.cfg.ConsensusThreshold,
		Unanimous:        unanimous,
		Votes:            votes,
	})
}

// voteFor maps role and confidence onto a vote
func voteFor(role debate.Role, confidence float64) decision.Recommendation {
	switch role {
	case debate.RoleBull:
		if confidence >= directionalVoteCutoff {
			return decision.Buy
		}
		return decision.Hold
	case debate.RoleBear:
		if confidence >= directionalVoteCutoff {
			return decision.Avoid
		}
		return decision.Hold
	case debate.RoleAuditor:
		if confidence >= auditorConcernCutoff {
			return decision.Avoid
		}
		return decision.Hold
	default:
		return decision.Hold
	}
}

// SynthesizeResponses converts a completed session's verdict votes into
// agent responses, the shape the consensus engine consumes.
func (c *Coordinator) SynthesizeResponses(session *debate.Session, taskID uuid.UUID) ([]*decision.AgentResponse, error) {
	if session.FinalVerdict == nil {
		return nil, errors.Wrap(errors.ErrInvalidInput, "session has no verdict")
	}

	responses := make([]*decision.AgentResponse, 0, len(session.Participants))
	for _, p := range session.Participants {
		vote, ok := session.FinalVerdict.Votes[p.AgentID]
		if !ok {
			continue
		}
		reasoning := make([]string, 0, 2)
		for _, e := range session.EntriesByAgent(p.AgentID) {
			if e.Phase == debate.PhaseScan || e.Phase == debate.PhaseAudit {
				reasoning = append(reasoning, e.Content)
			}
		}
		resp, err := decision.NewResponse(p.AgentID, p.AgentName, taskID, vote.Confidence, vote.Recommendation, reasoning, nil, map[string]interface{}{
			"debate_session": session.ID.String(),
			"role":           string(p.Role),
		})
		if err != nil {
			return nil, err
		}
		responses = append(responses, resp)
	}
	return responses, nil
}

// helpers

func (c *Coordinator) post(session *debate.Session, p debate.Participant, kind debate.EntryKind, content string, confidence float64, refs []uuid.UUID) (*debate.Entry, error) {
	phase := phaseOf(session.Status)
	entry, err := debate.NewEntry(p.AgentID, p.AgentName, phase, kind, content, decision.Clamp(confidence, 0, 100), refs)
	if err != nil {
		return nil, err
	}
	if err := session.Append(entry); err != nil {
		return nil, err
	}
	return entry, nil
}

func phaseOf(status debate.Status) debate.Phase {
	switch status {
	case debate.StatusScanning:
		return debate.PhaseScan
	case debate.StatusDebating:
		return debate.PhaseDebate
	case debate.StatusAuditing:
		return debate.PhaseAudit
	default:
		return debate.PhaseVerdict
	}
}

func (c *Coordinator) sideParticipants(session *debate.Session, role debate.Role) []debate.Participant {
	out := make([]debate.Participant, 0)
	for _, p := range session.Participants {
		if p.Role == role {
			out = append(out, p)
		}
	}
	return out
}

// roundArguments returns the argument entries a side posted in a given
// round; round 0 returns nil.
func (c *Coordinator) roundArguments(session *debate.Session, round int, role debate.Role) []*debate.Entry {
	if round < 1 || round > len(session.Rounds) {
		return nil
	}
	inRound := make(map[uuid.UUID]bool, len(session.Rounds[round-1].EntryIDs))
	for _, id := range session.Rounds[round-1].EntryIDs {
		inRound[id] = true
	}
	out := make([]*debate.Entry, 0)
	for _, e := range session.Blackboard {
		if e.Kind == debate.KindArgument && inRound[e.ID] && session.RoleOf(e.AgentID) == role {
			out = append(out, e)
		}
	}
	return out
}

// scanRisks extracts risk fragments from an agent's scan finding
func (c *Coordinator) scanRisks(session *debate.Session, agentID string) []string {
	for _, e := range session.EntriesByAgent(agentID) {
		if e.Phase == debate.PhaseScan {
			if idx := strings.Index(e.Content, "| risks: "); idx >= 0 {
				return strings.Split(e.Content[idx+len("| risks: "):], "; ")
			}
		}
	}
	return nil
}

func strongest(entries []*debate.Entry, n int) []*debate.Entry {
	sorted := make([]*debate.Entry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Confidence > sorted[j].Confidence
	})
	if n < len(sorted) {
		sorted = sorted[:n]
	}
	return sorted
}

func entryIDs(entries []*debate.Entry) []uuid.UUID {
	if len(entries) == 0 {
		return nil
	}
	ids := make([]uuid.UUID, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ID)
	}
	return ids
}

// truncate shortens s to at most n runes; slicing runes, not bytes,
// keeps multi-byte content valid UTF-8
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "…"
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

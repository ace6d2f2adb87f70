package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"argos/internal/agents"
	"argos/internal/domain/decision"
	"argos/internal/domain/market"
	"argos/internal/metrics"
	"argos/pkg/errors"
)

// Run executes the full pipeline for one trading goal: decomposition,
// concurrent worker fan-out, staleness-gated collection, adversarial
// critique, and the final gated decision. The aggregation barrier waits
// until the task deadline; agents that miss it are simply absent.
func (o *Orchestrator) Run(ctx context.Context, goal, asset string, class decision.AssetClass, proposedSize decimal.Decimal, portfolio *market.PortfolioState) (*Decision, error) {
	snap, err := o.snapshots.Snapshot(ctx, asset, class)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch market snapshot")
	}

	tasks, err := o.DecomposeTask(goal, asset, class)
	if err != nil {
		return nil, err
	}
	defer o.completeTasks(tasks)

	var analysisTask, critiqueTask *decision.AgentTask
	for _, t := range tasks {
		switch t.Kind {
		case decision.TaskAnalysis:
			if analysisTask == nil {
				analysisTask = t
			}
		case decision.TaskCritique:
			critiqueTask = t
		}
	}

	runCtx, cancel := context.WithTimeout(ctx, o.cfg.TaskDeadline)
	defer cancel()

	// Worker fan-out: every specialist analyzes concurrently; a failed
	// agent contributes nothing and is never retried in-process
	var wg sync.WaitGroup
	collected := make(chan *decision.AgentResponse, len(o.pool))
	for _, a := range o.pool {
		wg.Add(1)
		go func(a agents.Agent) {
			defer wg.Done()
			started := time.Now()
			resp, err := a.Analyze(runCtx, analysisTask, snap)
			metrics.RecordAgentAnalysis(a.ID(), time.Since(started), err)
			if err != nil {
				o.log.Warnw("agent analysis failed", "agent", a.ID(), "error", err)
				return
			}
			select {
			case collected <- resp:
			case <-runCtx.Done():
			}
		}(a)
	}
	go func() {
		wg.Wait()
		close(collected)
	}()

	responses := make([]*decision.AgentResponse, 0, len(o.pool))
gather:
	for {
		select {
		case resp, ok := <-collected:
			if !ok {
				break gather
			}
			if o.ReceiveAgentResponse(resp) {
				responses = append(responses, resp)
			}
		case <-runCtx.Done():
			break gather
		}
	}

	if len(responses) == 0 {
		return nil, errors.Wrap(errors.ErrNoResponses, "no agent completed within the deadline")
	}

	started := time.Now()
	advocateResp, err := o.advocate.Analyze(ctx, critiqueTask, snap)
	metrics.RecordAgentAnalysis(o.advocate.ID(), time.Since(started), err)
	if err != nil {
		return nil, errors.Wrap(err, "devil's advocate critique failed")
	}
	o.ReceiveAgentResponse(advocateResp)

	return o.MakeDecision(ctx, goal, asset, class, responses, advocateResp, proposedSize, portfolio, snap)
}

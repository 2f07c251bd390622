package learn

import (
	"time"

	"github.com/prime-radiant-inc/sprout/pkg/bus"
)

// EvaluationVerdict classifies how a mutation affected its agent's stumble
// rate over the window following its application.
type EvaluationVerdict string

const (
	VerdictHarmful EvaluationVerdict = "harmful"
	VerdictHelpful EvaluationVerdict = "helpful"
	VerdictNeutral EvaluationVerdict = "neutral"
)

// EvaluatePendingImprovements walks the pending-evaluation list, scoring
// each mutation old enough to have accumulated minActionsForEvaluation
// actions since it was applied; harmful mutations are rolled back. Every
// scored entry (helpful, neutral, or harmful) is removed from the pending
// list regardless of verdict.
func (q *Queue) EvaluatePendingImprovements() {
	if q.cfg.Metrics == nil || q.cfg.Genome == nil {
		return
	}

	q.mu.Lock()
	pending := append([]PendingEvaluation(nil), q.pending...)
	q.mu.Unlock()

	var remaining []PendingEvaluation
	for _, entry := range pending {
		count, err := q.cfg.Metrics.ActionCountSince(entry.AgentName, entry.Timestamp)
		if err != nil || count < minActionsForEvaluation {
			remaining = append(remaining, entry)
			continue
		}

		q.scoreAndMaybeRollback(entry)
	}

	q.mu.Lock()
	q.pending = remaining
	pendingCopy := append([]PendingEvaluation(nil), q.pending...)
	q.mu.Unlock()

	if err := savePending(q.cfg.PendingPath, pendingCopy); err != nil {
		q.emit(bus.KindWarning, map[string]any{"reason": "pending_evaluations_write_failed", "error": err.Error()})
	}
}

func (q *Queue) scoreAndMaybeRollback(entry PendingEvaluation) {
	before, errBefore := q.cfg.Metrics.StumbleRateForPeriod(entry.AgentName, 0, entry.Timestamp-1)
	after, errAfter := q.cfg.Metrics.StumbleRateForPeriod(entry.AgentName, entry.Timestamp, time.Now().UnixMilli())
	if errBefore != nil || errAfter != nil {
		return
	}
	delta := after - before

	verdict := VerdictNeutral
	switch {
	case delta > evaluationDeltaThreshold:
		verdict = VerdictHarmful
	case delta < -evaluationDeltaThreshold:
		verdict = VerdictHelpful
	}

	q.emit(bus.KindLearnMutate, map[string]any{
		"mutation_type": "evaluation",
		"agent_name":    entry.AgentName,
		"verdict":       string(verdict),
		"delta":         delta,
	})

	if verdict != VerdictHarmful {
		return
	}

	if err := q.cfg.Genome.RollbackCommit(entry.CommitHash); err != nil {
		q.emit(bus.KindWarning, map[string]any{"reason": "rollback_failed", "error": err.Error()})
		return
	}
	q.emit(bus.KindLearnMutate, map[string]any{
		"mutation_type": "rollback",
		"agent_name":    entry.AgentName,
		"commit_hash":   entry.CommitHash,
	})
}

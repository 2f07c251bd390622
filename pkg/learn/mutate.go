package learn

import (
	"fmt"
	"time"

	"github.com/prime-radiant-inc/sprout/pkg/bus"
	"github.com/prime-radiant-inc/sprout/pkg/genome"
	"github.com/prime-radiant-inc/sprout/pkg/verify"
)

const learnedMemoryConfidence = 0.8

// apply dispatches a decoded mutation against the Genome, returning the
// PendingEvaluation record to track for later verdict evaluation.
func (q *Queue) apply(signal verify.LearnSignal, mutation Mutation) (PendingEvaluation, error) {
	if q.cfg.Genome == nil {
		return PendingEvaluation{}, fmt.Errorf("learn: no genome configured")
	}

	var agentName, description string

	switch mutation.Type {
	case MutationCreateMemory:
		if mutation.CreateMemory == nil {
			return PendingEvaluation{}, fmt.Errorf("learn: create_memory mutation missing payload")
		}
		m := genome.Memory{
			ID:         "learn-" + bus.NewID(),
			Content:    mutation.CreateMemory.Content,
			Tags:       mutation.CreateMemory.Tags,
			Source:     genome.SourceLearn,
			Confidence: learnedMemoryConfidence,
		}
		if err := q.cfg.Genome.AddMemory(m); err != nil {
			return PendingEvaluation{}, err
		}
		agentName = signal.AgentName
		description = "created memory " + m.ID

	case MutationUpdateAgent:
		if mutation.UpdateAgent == nil {
			return PendingEvaluation{}, fmt.Errorf("learn: update_agent mutation missing payload")
		}
		spec, ok := q.cfg.Genome.GetAgent(mutation.UpdateAgent.AgentName)
		if !ok {
			return PendingEvaluation{}, fmt.Errorf("learn: update_agent: unknown agent %q", mutation.UpdateAgent.AgentName)
		}
		spec.SystemPrompt = mutation.UpdateAgent.SystemPrompt
		if err := q.cfg.Genome.UpdateAgent(spec); err != nil {
			return PendingEvaluation{}, err
		}
		agentName = spec.Name
		description = fmt.Sprintf("updated system_prompt to v%d", spec.Version+1)

	case MutationCreateAgent:
		if mutation.CreateAgent == nil {
			return PendingEvaluation{}, fmt.Errorf("learn: create_agent mutation missing payload")
		}
		if reservedAgentNames[mutation.CreateAgent.Name] {
			return PendingEvaluation{}, fmt.Errorf("learn: create_agent: %q is a reserved name", mutation.CreateAgent.Name)
		}
		spec := genome.AgentSpec{
			Name:         mutation.CreateAgent.Name,
			Description:  mutation.CreateAgent.Description,
			Model:        mutation.CreateAgent.Model,
			Capabilities: mutation.CreateAgent.Capabilities,
			SystemPrompt: mutation.CreateAgent.SystemPrompt,
			Constraints:  genome.Constraints{CanSpawn: false},
		}
		if err := q.cfg.Genome.AddAgent(spec); err != nil {
			return PendingEvaluation{}, err
		}
		agentName = spec.Name
		description = "created agent " + spec.Name

	case MutationCreateRoutingRule:
		if mutation.CreateRoutingRule == nil {
			return PendingEvaluation{}, fmt.Errorf("learn: create_routing_rule mutation missing payload")
		}
		rule := genome.RoutingRule{
			ID:         "learn-rule-" + bus.NewID(),
			Condition:  mutation.CreateRoutingRule.Condition,
			Preference: mutation.CreateRoutingRule.Preference,
			Strength:   mutation.CreateRoutingRule.Strength,
			Source:     "learn",
		}
		if err := q.cfg.Genome.AddRoutingRule(rule); err != nil {
			return PendingEvaluation{}, err
		}
		agentName = signal.AgentName
		description = "added routing rule " + rule.ID

	default:
		return PendingEvaluation{}, fmt.Errorf("learn: unsupported mutation type %q", mutation.Type)
	}

	hash, err := q.cfg.Genome.LastCommitHash()
	if err != nil {
		return PendingEvaluation{}, fmt.Errorf("learn: last commit hash: %w", err)
	}

	return PendingEvaluation{
		AgentName:    agentName,
		MutationType: mutation.Type,
		Timestamp:    time.Now().UnixMilli(),
		CommitHash:   hash,
		Description:  description,
	}, nil
}

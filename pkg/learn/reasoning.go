package learn

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"

	"github.com/prime-radiant-inc/sprout/pkg/llm"
	"github.com/prime-radiant-inc/sprout/pkg/verify"
)

// reasoningTemperature caps creativity per spec.md §4.9 ("temperature <= 0.3").
const reasoningTemperature = 0.2

// reason asks the LLM to select a genome mutation (or skip) in response to
// signal. A skip mutation (with nil error) means skip was selected, no
// provider is configured, or the response could not be parsed — all are
// treated identically by the caller.
func (q *Queue) reason(ctx context.Context, signal verify.LearnSignal) (*Mutation, error) {
	if q.cfg.Provider == nil {
		return &Mutation{Type: MutationSkip}, nil
	}

	prompt := q.buildReasoningPrompt(signal)
	temp := reasoningTemperature

	resp, err := q.cfg.Provider.Complete(ctx, llm.Request{
		Model:       q.cfg.Model,
		Messages:    []llm.Message{llm.NewUserText(prompt)},
		ToolChoice:  llm.ToolChoiceNone,
		Temperature: &temp,
		MaxTokens:   1024,
	})
	if err != nil {
		return nil, fmt.Errorf("learn: reasoning call: %w", err)
	}

	mutation, err := parseMutation(resp.Message.TextContent())
	if err != nil {
		// Parse failure is treated as skip, not a fatal error.
		return &Mutation{Type: MutationSkip}, nil
	}
	return mutation, nil
}

func (q *Queue) buildReasoningPrompt(signal verify.LearnSignal) string {
	var b strings.Builder
	b.WriteString("You are the improvement reasoner for an agent runtime. ")
	b.WriteString("A signal indicates an agent may need adjustment. Choose exactly one mutation, ")
	b.WriteString("or respond with {\"type\":\"skip\"} if nothing should change.\n\n")

	b.WriteString("Existing agents:\n")
	if q.cfg.Genome != nil {
		for _, spec := range q.cfg.Genome.ListAgents() {
			fmt.Fprintf(&b, "- %s (%s): %s\n", spec.Name, spec.Model, spec.Description)
		}
	}

	b.WriteString("\nRecent memories:\n")
	if q.cfg.Genome != nil {
		for _, m := range q.cfg.Genome.Memories() {
			fmt.Fprintf(&b, "- [%s] %s\n", strings.Join(m.Tags, ","), m.Content)
		}
	}

	if q.cfg.Genome != nil {
		if spec, ok := q.cfg.Genome.GetAgent(signal.AgentName); ok {
			fmt.Fprintf(&b, "\nTarget agent %q current system_prompt:\n%s\n", spec.Name, spec.SystemPrompt)
		}
	}

	fmt.Fprintf(&b, "\nSignal: kind=%s agent=%s goal=%q details_output=%q stumbles=%d turns=%d\n",
		signal.Kind, signal.AgentName, signal.Goal, signal.Details.Output, signal.Details.Stumbles, signal.Details.Turns)

	b.WriteString("\nRespond with one JSON object. Shapes:\n")
	b.WriteString(`{"type":"create_memory","content":"...","tags":["..."]}` + "\n")
	b.WriteString(`{"type":"update_agent","agent_name":"...","system_prompt":"..."}` + "\n")
	b.WriteString(`{"type":"create_agent","name":"...","description":"...","model":"...","capabilities":["..."],"system_prompt":"..."}` + "\n")
	b.WriteString(`{"type":"create_routing_rule","condition":"...","preference":"...","strength":0.0}` + "\n")
	b.WriteString(`{"type":"skip"}` + "\n")

	return b.String()
}

// parseMutation accepts an optionally markdown-fenced JSON object and
// decodes it into the typed mutation matching its "type" field.
func parseMutation(text string) (*Mutation, error) {
	raw := stripCodeFence(text)

	var obj map[string]any
	if err := json.Unmarshal([]byte(raw), &obj); err != nil {
		return nil, fmt.Errorf("learn: parse mutation json: %w", err)
	}

	typeStr, _ := obj["type"].(string)
	mutation := &Mutation{Type: MutationType(typeStr)}

	switch mutation.Type {
	case MutationSkip:
		return mutation, nil
	case MutationCreateMemory:
		var m CreateMemoryMutation
		if err := mapstructure.Decode(obj, &m); err != nil {
			return nil, err
		}
		mutation.CreateMemory = &m
	case MutationUpdateAgent:
		var m UpdateAgentMutation
		if err := mapstructure.Decode(obj, &m); err != nil {
			return nil, err
		}
		mutation.UpdateAgent = &m
	case MutationCreateAgent:
		var m CreateAgentMutation
		if err := mapstructure.Decode(obj, &m); err != nil {
			return nil, err
		}
		mutation.CreateAgent = &m
	case MutationCreateRoutingRule:
		var m CreateRoutingRuleMutation
		if err := mapstructure.Decode(obj, &m); err != nil {
			return nil, err
		}
		mutation.CreateRoutingRule = &m
	default:
		return nil, fmt.Errorf("learn: unknown mutation type %q", typeStr)
	}

	return mutation, nil
}

func stripCodeFence(text string) string {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

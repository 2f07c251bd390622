// Package learn implements the Learn Process: a single-consumer queue that
// classifies incoming stumble signals, reasons about genome mutations with
// an LLM, applies them, and later evaluates whether each mutation helped.
package learn

// MutationType enumerates the five shapes a reasoning pass may select.
type MutationType string

const (
	MutationSkip              MutationType = "skip"
	MutationCreateMemory      MutationType = "create_memory"
	MutationUpdateAgent       MutationType = "update_agent"
	MutationCreateAgent       MutationType = "create_agent"
	MutationCreateRoutingRule MutationType = "create_routing_rule"
)

// Mutation is the decoded LLM reasoning output: exactly one of the typed
// payload fields is populated, selected by Type.
type Mutation struct {
	Type MutationType `mapstructure:"type"`

	CreateMemory      *CreateMemoryMutation      `mapstructure:"-"`
	UpdateAgent       *UpdateAgentMutation       `mapstructure:"-"`
	CreateAgent       *CreateAgentMutation       `mapstructure:"-"`
	CreateRoutingRule *CreateRoutingRuleMutation `mapstructure:"-"`
}

// CreateMemoryMutation adds a new Memory sourced from a learned lesson.
type CreateMemoryMutation struct {
	Content string   `mapstructure:"content"`
	Tags    []string `mapstructure:"tags"`
}

// UpdateAgentMutation replaces the target agent's system_prompt.
type UpdateAgentMutation struct {
	AgentName    string `mapstructure:"agent_name"`
	SystemPrompt string `mapstructure:"system_prompt"`
}

// CreateAgentMutation adds a brand-new, non-spawning leaf agent.
type CreateAgentMutation struct {
	Name         string   `mapstructure:"name"`
	Description  string   `mapstructure:"description"`
	Model        string   `mapstructure:"model"`
	Capabilities []string `mapstructure:"capabilities"`
	SystemPrompt string   `mapstructure:"system_prompt"`
}

// CreateRoutingRuleMutation biases delegation toward preference whenever
// condition's keywords match a goal.
type CreateRoutingRuleMutation struct {
	Condition  string  `mapstructure:"condition"`
	Preference string  `mapstructure:"preference"`
	Strength   float64 `mapstructure:"strength"`
}

// PendingEvaluation tracks one applied mutation awaiting a verdict.
type PendingEvaluation struct {
	AgentName    string       `json:"agentName"`
	MutationType MutationType `json:"mutationType"`
	Timestamp    int64        `json:"timestamp"`
	CommitHash   string       `json:"commitHash"`
	Description  string       `json:"description"`
}

// reservedAgentNames blocks create_agent from shadowing a primitive or a
// kernel concept name.
var reservedAgentNames = map[string]bool{
	"read_file": true, "write_file": true, "edit_file": true, "apply_patch": true,
	"exec": true, "grep": true, "glob": true, "fetch": true,
	"learn": true, "kernel": true, "perceive": true, "recall": true,
	"plan": true, "act": true, "verify": true,
}

// minActionsForEvaluation is MIN_ACTIONS_FOR_EVALUATION from spec.md §4.9.
const minActionsForEvaluation = 5

// evaluationDeltaThreshold bounds a neutral verdict.
const evaluationDeltaThreshold = 0.05

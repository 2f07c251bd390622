// Package genome implements the Genome Store: a git-backed, versioned
// repository of agent specs, memories, and routing rules that the Agent
// Loop reads from and the Learn Process mutates.
package genome

import (
	"math"
	"time"
)

// Constraints bounds an agent's execution.
type Constraints struct {
	MaxTurns          int      `yaml:"max_turns"`
	MaxDepth          int      `yaml:"max_depth"`
	TimeoutMs         int      `yaml:"timeout_ms"`
	CanSpawn          bool     `yaml:"can_spawn"`
	CanLearn          bool     `yaml:"can_learn"`
	AllowedReadPaths  []string `yaml:"allowed_read_paths,omitempty"`
	AllowedWritePaths []string `yaml:"allowed_write_paths,omitempty"`
}

// AgentSpec is the identity and policy of one agent.
type AgentSpec struct {
	Name         string      `yaml:"name"`
	Description  string      `yaml:"description"`
	Model        string      `yaml:"model"`
	Capabilities []string    `yaml:"capabilities,omitempty"`
	Constraints  Constraints `yaml:"constraints"`
	Tags         []string    `yaml:"tags,omitempty"`
	SystemPrompt string      `yaml:"system_prompt,omitempty"`
	Version      int         `yaml:"version"`
}

// Clone returns an independent deep copy, used to hand an immutable
// snapshot to a child agent.
func (a AgentSpec) Clone() AgentSpec {
	clone := a
	clone.Capabilities = append([]string(nil), a.Capabilities...)
	clone.Constraints.AllowedReadPaths = append([]string(nil), a.Constraints.AllowedReadPaths...)
	clone.Constraints.AllowedWritePaths = append([]string(nil), a.Constraints.AllowedWritePaths...)
	clone.Tags = append([]string(nil), a.Tags...)
	return clone
}

// MemorySource identifies where a Memory originated.
type MemorySource string

const (
	SourceBootstrap MemorySource = "bootstrap"
	SourceLearn     MemorySource = "learn"
	SourceUser      MemorySource = "user"
)

// Memory is a unit of recalled context: a fact, lesson, or note an agent
// learned or was bootstrapped with.
type Memory struct {
	ID         string        `json:"id"`
	Content    string        `json:"content"`
	Tags       []string      `json:"tags,omitempty"`
	Source     MemorySource  `json:"source"`
	CreatedAt  int64         `json:"created_at"`
	LastUsedAt int64         `json:"last_used_at"`
	UseCount   int           `json:"use_count"`
	Confidence float64       `json:"confidence"`
}

// EffectiveConfidence decays the stored confidence by time since last use;
// the stored Confidence field remains authoritative for pruning decisions.
func (m Memory) EffectiveConfidence(now time.Time) float64 {
	ageDays := now.Sub(time.UnixMilli(m.LastUsedAt)).Hours() / 24
	if ageDays < 0 {
		ageDays = 0
	}
	return m.Confidence * math.Exp(-ageDays/30)
}

// RoutingRule biases delegation selection toward preference when condition
// keywords match a goal.
type RoutingRule struct {
	ID         string  `yaml:"id"`
	Condition  string  `yaml:"condition"`
	Preference string  `yaml:"preference"`
	Strength   float64 `yaml:"strength"`
	Source     string  `yaml:"source"`
}

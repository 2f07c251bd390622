// Package agent implements the Agent Loop: a bounded state machine that
// perceives a goal, recalls relevant context, and alternates planning
// (an LLM call) with dispatch (primitive execution and delegation to other
// agents) until the model stops calling tools or a budget is exhausted.
package agent

import (
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/prime-radiant-inc/sprout/pkg/bus"
	"github.com/prime-radiant-inc/sprout/pkg/genome"
	"github.com/prime-radiant-inc/sprout/pkg/llm"
	"github.com/prime-radiant-inc/sprout/pkg/metrics"
	"github.com/prime-radiant-inc/sprout/pkg/observability"
	"github.com/prime-radiant-inc/sprout/pkg/primitive"
	"github.com/prime-radiant-inc/sprout/pkg/recall"
	"github.com/prime-radiant-inc/sprout/pkg/verify"
)

// delegationToolName is the name of the meta-tool offered to agents that
// can_spawn; its schema enumerates the agents it may delegate to.
const delegationToolName = "delegate"

// Config wires the collaborators one Agent needs to run a single goal.
type Config struct {
	Spec      genome.AgentSpec
	Depth     int
	SessionID string

	Bus           *bus.Bus
	Genome        *genome.Store
	Registry      *primitive.Registry
	Provider      llm.Provider
	Recall        *recall.Recall
	Learn         LearnQueue
	Metrics       *metrics.Store
	Observability *observability.Provider

	// AvailableAgents is a snapshot of known agent specs, used to compute
	// the tool set and resolve delegation targets when Genome is nil or
	// does not yet know about a sibling agent.
	AvailableAgents []genome.AgentSpec

	// History seeds the conversation before the new goal is appended, e.g.
	// a prior session's log replayed by session.Resume. Nil for a fresh run.
	History []llm.Message

	WorkingDir string
	LogBase    string
}

// Agent runs one bounded goal to completion per the per-turn contract.
type Agent struct {
	cfg   Config
	spec  genome.AgentSpec
	depth int
	goal  string

	providerName string
	toolDefs     []llm.ToolDefinition
	delegable    map[string]bool
	isRouter     bool

	mu          sync.Mutex
	history     []llm.Message
	callHistory []verify.Call
	stumbles    int
	steerCh     chan string

	recallResult recall.Result
	startedAt    time.Time
}

// New constructs an Agent, validating the depth budget and computing its
// tool set exactly once: a delegation meta-tool when can_spawn, and primitive
// tools only when no capability names a known agent (primitives are
// leaf-only), with capability names aligned to the wired provider's
// edit_file/apply_patch convention.
func New(cfg Config) (*Agent, error) {
	if cfg.Spec.Name == "" {
		return nil, fmt.Errorf("agent: spec name is required")
	}
	if cfg.Provider == nil {
		return nil, fmt.Errorf("agent: provider is required")
	}
	if cfg.Spec.Constraints.MaxDepth > 0 && cfg.Depth >= cfg.Spec.Constraints.MaxDepth {
		return nil, ErrDepthExceeded
	}

	a := &Agent{
		cfg:          cfg,
		spec:         cfg.Spec,
		depth:        cfg.Depth,
		providerName: cfg.Provider.Name(),
		steerCh:      make(chan string, 16),
	}

	known := a.knownAgents()
	agentCaps, primCaps := splitCapabilities(cfg.Spec, known)

	a.delegable = make(map[string]bool, len(agentCaps))
	for _, name := range agentCaps {
		a.delegable[name] = true
	}
	a.isRouter = len(agentCaps) > 0

	var tools []llm.ToolDefinition
	if cfg.Spec.Constraints.CanSpawn {
		tools = append(tools, buildDelegationTool(agentCaps))
	}
	if !a.isRouter {
		tools = append(tools, a.primitiveToolDefs(primCaps)...)
	}
	a.toolDefs = tools

	if cfg.LogBase != "" {
		if err := os.MkdirAll(cfg.LogBase, 0o755); err != nil {
			return nil, fmt.Errorf("agent: create log base: %w", err)
		}
	}

	return a, nil
}

// knownAgents unions Genome's live agent set with the static snapshot,
// excluding this agent itself.
func (a *Agent) knownAgents() map[string]bool {
	known := make(map[string]bool)
	if a.cfg.Genome != nil {
		for _, s := range a.cfg.Genome.ListAgents() {
			known[s.Name] = true
		}
	}
	for _, s := range a.cfg.AvailableAgents {
		known[s.Name] = true
	}
	delete(known, a.cfg.Spec.Name)
	return known
}

// splitCapabilities partitions spec's capabilities into agent-delegation
// targets and primitive names, dropping self-references per the data model
// invariant.
func splitCapabilities(spec genome.AgentSpec, known map[string]bool) (agentCaps, primCaps []string) {
	for _, name := range spec.Capabilities {
		if name == spec.Name {
			continue
		}
		if known[name] {
			agentCaps = append(agentCaps, name)
			continue
		}
		primCaps = append(primCaps, name)
	}
	sort.Strings(agentCaps)
	return agentCaps, primCaps
}

// primitiveToolDefs resolves capability names against the registry, aligning
// each to the wired provider's edit_file/apply_patch convention first and
// deduplicating the result.
func (a *Agent) primitiveToolDefs(names []string) []llm.ToolDefinition {
	if a.cfg.Registry == nil {
		return nil
	}

	var defs []llm.ToolDefinition
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		aligned := alignCapabilityForProvider(name, a.providerName)
		if seen[aligned] {
			continue
		}
		seen[aligned] = true

		p, ok := a.cfg.Registry.Get(aligned)
		if !ok {
			continue
		}
		defs = append(defs, llm.ToolDefinition{
			Name:        p.Name(),
			Description: p.Description(),
			Parameters:  p.Schema(),
		})
	}
	return defs
}

// emit forwards an event through the Bus, tagged with this agent's name and
// depth. A nil Bus is a no-op, which keeps construction cheap in tests that
// don't care about the event stream.
func (a *Agent) emit(kind bus.Kind, data map[string]any) {
	if a.cfg.Bus == nil {
		return
	}
	a.cfg.Bus.Emit(kind, a.spec.Name, a.depth, data)
}

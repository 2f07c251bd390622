// Package primitive implements the Primitive Registry: a namespace of
// typed tools (filesystem, shell, HTTP, patching) exposed to agents behind
// a uniform execute contract.
package primitive

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/prime-radiant-inc/sprout/pkg/genome"
)

// Result is the outcome of one primitive invocation.
type Result struct {
	Output  string `json:"output"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

func ok(output string) Result  { return Result{Output: output, Success: true} }
func fail(err error) Result    { return Result{Success: false, Error: err.Error()} }
func failf(format string, a ...any) Result {
	return Result{Success: false, Error: fmt.Sprintf(format, a...)}
}

// Env is the execution environment passed to a primitive: path constraints
// and, when the invoking agent has workspace access, its Genome handle.
type Env struct {
	AgentName         string
	AllowedReadPaths  []string
	AllowedWritePaths []string
	WorkingDir        string

	Genome *genome.Store // nil unless the agent has Genome-backed workspace access
}

func matchesAny(patterns []string, path string) bool {
	if len(patterns) == 0 {
		return true
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	for _, p := range patterns {
		if ok, _ := filepath.Match(p, path); ok {
			return true
		}
		if ok, _ := filepath.Match(p, abs); ok {
			return true
		}
		if strings.HasPrefix(abs, strings.TrimSuffix(p, "*")) {
			return true
		}
	}
	return false
}

// CheckRead short-circuits with an access-denied Result when path doesn't
// match env's allowed_read_paths (empty means unrestricted).
func (e Env) CheckRead(path string) (Result, bool) {
	if !matchesAny(e.AllowedReadPaths, path) {
		return failf("access denied: %q is not in allowed_read_paths", path), false
	}
	return Result{}, true
}

// CheckWrite short-circuits with an access-denied Result when path doesn't
// match env's allowed_write_paths (empty means unrestricted).
func (e Env) CheckWrite(path string) (Result, bool) {
	if !matchesAny(e.AllowedWritePaths, path) {
		return failf("access denied: %q is not in allowed_write_paths", path), false
	}
	return Result{}, true
}

// Primitive is a typed tool: a uniform execute contract plus the metadata
// needed to offer it to an LLM as a tool definition.
type Primitive interface {
	Name() string
	Description() string
	Schema() map[string]any
	Execute(ctx context.Context, args map[string]any, env Env) (Result, error)
}

// Registry is the namespace of primitives available to agents.
type Registry struct {
	mu    sync.RWMutex
	items map[string]Primitive
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{items: make(map[string]Primitive)}
}

// Register adds a primitive under its own name.
func (r *Registry) Register(p Primitive) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.Name() == "" {
		return fmt.Errorf("primitive: name cannot be empty")
	}
	if _, exists := r.items[p.Name()]; exists {
		return fmt.Errorf("primitive: %q already registered", p.Name())
	}
	r.items[p.Name()] = p
	return nil
}

// Get returns a primitive by name.
func (r *Registry) Get(name string) (Primitive, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.items[name]
	return p, ok
}

// List returns every registered primitive.
func (r *Registry) List() []Primitive {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Primitive, 0, len(r.items))
	for _, p := range r.items {
		out = append(out, p)
	}
	return out
}

// maxOutputBytes is the per-primitive default output budget; the JSONL
// session/tool-result logs don't need to carry megabytes of exec output.
const maxOutputBytes = 16 * 1024

// truncateToolOutput enforces the maxOutputBytes byte budget on primitive
// output, appending a marker when truncation occurs.
func truncateToolOutput(output string) string {
	if len(output) <= maxOutputBytes {
		return output
	}
	return output[:maxOutputBytes] + fmt.Sprintf("\n...[truncated %d bytes]", len(output)-maxOutputBytes)
}

// Execute dispatches name through the registry, enforces read/write path
// constraints where applicable, and truncates output per the shared budget.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any, env Env) (Result, error) {
	p, ok := r.Get(name)
	if !ok {
		return failf("primitive: %q not registered", name), fmt.Errorf("primitive: %q not registered", name)
	}
	result, err := p.Execute(ctx, args, env)
	result.Output = truncateToolOutput(result.Output)
	return result, err
}

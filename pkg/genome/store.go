package genome

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/prime-radiant-inc/sprout/pkg/logger"
)

const (
	agentsDir  = "agents"
	routingDir = "routing"
	metricsDir = "metrics"
	logsDir    = "logs"

	memoriesFile = "memories/memories.jsonl"
	rulesFile    = "routing/rules.yaml"

	defaultPruneMinConfidence = 0.2
)

// Store is the Genome Store: a git-backed working directory of agent
// specs, memories, and routing rules. Every exported mutation holds Store's
// write mutex and commits to git (aside from the operational
// MarkMemoriesUsed, which is explicitly non-committing).
type Store struct {
	mu  sync.Mutex
	dir string

	agents  map[string]*AgentSpec
	memories []Memory
	rules    []RoutingRule
}

// Open binds a Store to dir without touching disk; call Init or
// LoadFromDisk next.
func Open(dir string) *Store {
	return &Store{dir: dir, agents: make(map[string]*AgentSpec)}
}

// Dir returns the Store's working directory.
func (s *Store) Dir() string { return s.dir }

// Init idempotently creates the genome's directory structure, initializes
// git, writes a .gitignore excluding logs/, and commits.
func (s *Store) Init() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, d := range []string{agentsDir, "memories", routingDir, metricsDir, logsDir} {
		if err := os.MkdirAll(filepath.Join(s.dir, d), 0o755); err != nil {
			return fmt.Errorf("genome: init mkdir %s: %w", d, err)
		}
	}

	gitignorePath := filepath.Join(s.dir, ".gitignore")
	if _, err := os.Stat(gitignorePath); os.IsNotExist(err) {
		if err := os.WriteFile(gitignorePath, []byte("logs/\n"), 0o644); err != nil {
			return fmt.Errorf("genome: write .gitignore: %w", err)
		}
	}

	memPath := filepath.Join(s.dir, memoriesFile)
	if _, err := os.Stat(memPath); os.IsNotExist(err) {
		if err := os.WriteFile(memPath, nil, 0o644); err != nil {
			return fmt.Errorf("genome: touch memories file: %w", err)
		}
	}

	rulesPath := filepath.Join(s.dir, rulesFile)
	if _, err := os.Stat(rulesPath); os.IsNotExist(err) {
		if err := os.WriteFile(rulesPath, []byte("rules: []\n"), 0o644); err != nil {
			return fmt.Errorf("genome: touch rules file: %w", err)
		}
	}

	if err := gitInit(s.dir); err != nil {
		return fmt.Errorf("genome: git init: %w", err)
	}
	if err := commitAll(s.dir, "genome: init"); err != nil {
		return fmt.Errorf("genome: init commit: %w", err)
	}
	return nil
}

// LoadFromDisk scans agents, memories, and rules into memory.
func (s *Store) LoadFromDisk() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadFromDiskLocked()
}

func (s *Store) loadFromDiskLocked() error {
	agents := make(map[string]*AgentSpec)
	entries, err := os.ReadDir(filepath.Join(s.dir, agentsDir))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("genome: read agents dir: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(s.dir, agentsDir, e.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("genome: read agent spec %s: %w", e.Name(), err)
		}
		var spec AgentSpec
		if err := yaml.Unmarshal(data, &spec); err != nil {
			return fmt.Errorf("genome: parse agent spec %s: %w", e.Name(), err)
		}
		agents[spec.Name] = &spec
	}
	s.agents = agents

	memories, err := loadMemories(filepath.Join(s.dir, memoriesFile))
	if err != nil {
		return err
	}
	s.memories = memories

	rules, err := loadRules(filepath.Join(s.dir, rulesFile))
	if err != nil {
		return err
	}
	s.rules = rules

	return nil
}

func loadMemories(path string) ([]Memory, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("genome: open memories: %w", err)
	}
	defer f.Close()

	var out []Memory
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 8*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 {
			continue
		}
		var m Memory
		if err := json.Unmarshal(line, &m); err != nil {
			continue
		}
		out = append(out, m)
	}
	return out, scanner.Err()
}

func loadRules(path string) ([]RoutingRule, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("genome: read rules: %w", err)
	}
	var doc struct {
		Rules []RoutingRule `yaml:"rules"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("genome: parse rules: %w", err)
	}
	return doc.Rules, nil
}

// InitFromBootstrap loads agent specs from dir only if the genome has no
// agents yet, and commits.
func (s *Store) InitFromBootstrap(dir string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.agents) > 0 {
		return nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("genome: read bootstrap dir: %w", err)
	}

	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return fmt.Errorf("genome: read bootstrap spec %s: %w", e.Name(), err)
		}
		var spec AgentSpec
		if err := yaml.Unmarshal(data, &spec); err != nil {
			return fmt.Errorf("genome: parse bootstrap spec %s: %w", e.Name(), err)
		}
		if err := s.writeAgentSpecLocked(&spec); err != nil {
			return err
		}
		s.agents[spec.Name] = &spec
	}

	return commitAll(s.dir, "genome: bootstrap")
}

// SyncBootstrap adds any bootstrap agents missing from the genome, without
// overwriting existing ones, and returns the names added.
func (s *Store) SyncBootstrap(dir string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("genome: read bootstrap dir: %w", err)
	}

	var added []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("genome: read bootstrap spec %s: %w", e.Name(), err)
		}
		var spec AgentSpec
		if err := yaml.Unmarshal(data, &spec); err != nil {
			return nil, fmt.Errorf("genome: parse bootstrap spec %s: %w", e.Name(), err)
		}
		if _, exists := s.agents[spec.Name]; exists {
			continue
		}
		if err := s.writeAgentSpecLocked(&spec); err != nil {
			return nil, err
		}
		s.agents[spec.Name] = &spec
		added = append(added, spec.Name)
	}

	if len(added) == 0 {
		return nil, nil
	}
	if err := commitAll(s.dir, fmt.Sprintf("genome: sync bootstrap (+%d agents)", len(added))); err != nil {
		return nil, err
	}
	return added, nil
}

func (s *Store) agentSpecPath(name string) string {
	return filepath.Join(s.dir, agentsDir, name+".yaml")
}

func (s *Store) writeAgentSpecLocked(spec *AgentSpec) error {
	data, err := yaml.Marshal(spec)
	if err != nil {
		return fmt.Errorf("genome: marshal agent spec %s: %w", spec.Name, err)
	}
	if err := os.WriteFile(s.agentSpecPath(spec.Name), data, 0o644); err != nil {
		return fmt.Errorf("genome: write agent spec %s: %w", spec.Name, err)
	}
	return nil
}

// AddAgent writes a new agent spec and commits.
func (s *Store) AddAgent(spec AgentSpec) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if spec.Version == 0 {
		spec.Version = 1
	}
	if err := s.writeAgentSpecLocked(&spec); err != nil {
		return err
	}
	s.agents[spec.Name] = &spec
	return commitAll(s.dir, fmt.Sprintf("genome: add agent %s", spec.Name))
}

// UpdateAgent replaces an existing agent spec, bumping version by 1, and
// commits.
func (s *Store) UpdateAgent(spec AgentSpec) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.agents[spec.Name]
	if !ok {
		return fmt.Errorf("genome: update agent: %q not found", spec.Name)
	}
	spec.Version = existing.Version + 1
	if err := s.writeAgentSpecLocked(&spec); err != nil {
		return err
	}
	s.agents[spec.Name] = &spec
	return commitAll(s.dir, fmt.Sprintf("genome: update agent %s (v%d)", spec.Name, spec.Version))
}

// RemoveAgent deletes an agent's spec file and commits.
func (s *Store) RemoveAgent(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.agents[name]; !ok {
		return fmt.Errorf("genome: remove agent: %q not found", name)
	}
	if err := os.Remove(s.agentSpecPath(name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("genome: remove agent spec %s: %w", name, err)
	}
	delete(s.agents, name)
	return commitAll(s.dir, fmt.Sprintf("genome: remove agent %s", name))
}

// GetAgent returns a cloned snapshot of an agent spec.
func (s *Store) GetAgent(name string) (AgentSpec, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	spec, ok := s.agents[name]
	if !ok {
		return AgentSpec{}, false
	}
	return spec.Clone(), true
}

// ListAgents returns cloned snapshots of every agent spec.
func (s *Store) ListAgents() []AgentSpec {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]AgentSpec, 0, len(s.agents))
	for _, spec := range s.agents {
		out = append(out, spec.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *Store) writeRulesLocked() error {
	doc := struct {
		Rules []RoutingRule `yaml:"rules"`
	}{Rules: s.rules}
	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("genome: marshal rules: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, rulesFile), data, 0o644); err != nil {
		return fmt.Errorf("genome: write rules: %w", err)
	}
	return nil
}

// AddRoutingRule appends a rule and commits.
func (s *Store) AddRoutingRule(rule RoutingRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules = append(s.rules, rule)
	if err := s.writeRulesLocked(); err != nil {
		return err
	}
	return commitAll(s.dir, fmt.Sprintf("genome: add routing rule %s", rule.ID))
}

// RemoveRoutingRule deletes a rule by id and commits.
func (s *Store) RemoveRoutingRule(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, r := range s.rules {
		if r.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("genome: remove routing rule: %q not found", id)
	}
	s.rules = append(s.rules[:idx], s.rules[idx+1:]...)
	if err := s.writeRulesLocked(); err != nil {
		return err
	}
	return commitAll(s.dir, fmt.Sprintf("genome: remove routing rule %s", id))
}

// PruneUnusedRoutingRules removes every rule whose id is not in usedIDs,
// and commits if anything changed.
func (s *Store) PruneUnusedRoutingRules(usedIDs map[string]bool) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.rules[:0:0]
	removed := 0
	for _, r := range s.rules {
		if usedIDs[r.ID] {
			kept = append(kept, r)
		} else {
			removed++
		}
	}
	if removed == 0 {
		return 0, nil
	}
	s.rules = kept
	if err := s.writeRulesLocked(); err != nil {
		return 0, err
	}
	if err := commitAll(s.dir, fmt.Sprintf("genome: prune %d unused routing rules", removed)); err != nil {
		return 0, err
	}
	return removed, nil
}

// MatchRoutingRules returns rules whose condition keywords case-insensitively
// substring-match query, sorted by strength descending.
func (s *Store) MatchRoutingRules(query string) []RoutingRule {
	s.mu.Lock()
	defer s.mu.Unlock()

	lowerQuery := strings.ToLower(query)
	var matched []RoutingRule
	for _, r := range s.rules {
		for _, kw := range strings.Fields(strings.ToLower(r.Condition)) {
			if strings.Contains(lowerQuery, kw) {
				matched = append(matched, r)
				break
			}
		}
	}
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].Strength > matched[j].Strength })
	return matched
}

func (s *Store) writeMemoriesLocked() error {
	path := filepath.Join(s.dir, memoriesFile)
	var buf strings.Builder
	for _, m := range s.memories {
		line, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("genome: marshal memory %s: %w", m.ID, err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	if err := os.WriteFile(path, []byte(buf.String()), 0o644); err != nil {
		return fmt.Errorf("genome: write memories: %w", err)
	}
	return nil
}

// AddMemory appends a memory and commits.
func (s *Store) AddMemory(m Memory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.CreatedAt == 0 {
		m.CreatedAt = time.Now().UnixMilli()
	}
	if m.LastUsedAt == 0 {
		m.LastUsedAt = m.CreatedAt
	}
	s.memories = append(s.memories, m)
	if err := s.writeMemoriesLocked(); err != nil {
		return err
	}
	return commitAll(s.dir, fmt.Sprintf("genome: add memory %s", m.ID))
}

// MarkMemoriesUsed bumps use_count and last_used_at for the given ids. This
// is explicitly operational, non-committing state: it is rewritten on disk
// but does not create a git commit.
func (s *Store) MarkMemoriesUsed(ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	now := time.Now().UnixMilli()
	changed := false
	for i, m := range s.memories {
		if want[m.ID] {
			s.memories[i].UseCount++
			s.memories[i].LastUsedAt = now
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return s.writeMemoriesLocked()
}

// PruneMemories removes memories whose stored confidence is below
// minConfidence (default 0.2) and commits if anything changed.
func (s *Store) PruneMemories(minConfidence float64) (int, error) {
	if minConfidence <= 0 {
		minConfidence = defaultPruneMinConfidence
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.memories[:0:0]
	removed := 0
	for _, m := range s.memories {
		if m.Confidence < minConfidence {
			removed++
			continue
		}
		kept = append(kept, m)
	}
	if removed == 0 {
		return 0, nil
	}
	s.memories = kept
	if err := s.writeMemoriesLocked(); err != nil {
		return 0, err
	}
	if err := commitAll(s.dir, fmt.Sprintf("genome: prune %d memories below confidence %.2f", removed, minConfidence)); err != nil {
		return 0, err
	}
	return removed, nil
}

// Memories returns a copy of every memory currently loaded.
func (s *Store) Memories() []Memory {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Memory, len(s.memories))
	copy(out, s.memories)
	return out
}

// RoutingRules returns a copy of every routing rule currently loaded.
func (s *Store) RoutingRules() []RoutingRule {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]RoutingRule, len(s.rules))
	copy(out, s.rules)
	return out
}

// LastCommitHash returns the hash of HEAD.
func (s *Store) LastCommitHash() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return lastCommitHash(s.dir)
}

// Rollback reverts HEAD (itself a new commit) and reloads in-memory state
// from disk.
func (s *Store) Rollback() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := revertHead(s.dir); err != nil {
		return fmt.Errorf("genome: rollback: %w", err)
	}
	logger.Get().Info("genome: rolled back HEAD")
	return s.loadFromDiskLocked()
}

// RollbackCommit reverts a specific commit hash and reloads in-memory
// state from disk.
func (s *Store) RollbackCommit(hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := revertCommit(s.dir, hash); err != nil {
		return fmt.Errorf("genome: rollback commit %s: %w", hash, err)
	}
	logger.Get().Info("genome: rolled back commit", "hash", hash)
	return s.loadFromDiskLocked()
}

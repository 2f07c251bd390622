package genome

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// AgentTool is a learned shell tool saved into an agent's workspace.
type AgentTool struct {
	Name        string
	Description string
	Interpreter string
	Script      string
}

const toolFrontmatterTemplate = "---\nname: %s\ndescription: %s\ninterpreter: %s\n---\n%s"

func agentWorkspaceDir(genomeDir, agentName string) string {
	return filepath.Join(genomeDir, agentsDir, agentName)
}

// SaveAgentTool writes a tool script under agents/<name>/tools/<toolname>
// with a YAML frontmatter header, sets the executable bit, and commits.
func (s *Store) SaveAgentTool(agentName string, tool AgentTool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if tool.Interpreter == "" {
		tool.Interpreter = "bash"
	}
	dir := filepath.Join(agentWorkspaceDir(s.dir, agentName), "tools")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("genome: mkdir agent tools dir: %w", err)
	}

	content := fmt.Sprintf(toolFrontmatterTemplate, tool.Name, tool.Description, tool.Interpreter, tool.Script)
	path := filepath.Join(dir, tool.Name)
	if err := os.WriteFile(path, []byte(content), 0o755); err != nil {
		return fmt.Errorf("genome: write agent tool %s: %w", tool.Name, err)
	}

	return commitAll(s.dir, fmt.Sprintf("genome: save tool %s for %s", tool.Name, agentName))
}

// SaveAgentFile writes a workspace file under agents/<name>/files/ and
// commits.
func (s *Store) SaveAgentFile(agentName, filename string, content []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Join(agentWorkspaceDir(s.dir, agentName), "files")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("genome: mkdir agent files dir: %w", err)
	}
	path := filepath.Join(dir, filename)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return fmt.Errorf("genome: write agent file %s: %w", filename, err)
	}
	return commitAll(s.dir, fmt.Sprintf("genome: save file %s for %s", filename, agentName))
}

// LoadAgentTools reads back every tool saved for agentName, parsing its
// frontmatter header.
func (s *Store) LoadAgentTools(agentName string) ([]AgentTool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Join(agentWorkspaceDir(s.dir, agentName), "tools")
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("genome: read agent tools dir: %w", err)
	}

	var tools []AgentTool
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("genome: read agent tool %s: %w", e.Name(), err)
		}
		tool, err := parseToolFrontmatter(string(data))
		if err != nil {
			continue
		}
		tools = append(tools, tool)
	}
	return tools, nil
}

// ListAgentFiles returns the filenames saved under agents/<name>/files/.
func (s *Store) ListAgentFiles(agentName string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Join(agentWorkspaceDir(s.dir, agentName), "files")
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("genome: read agent files dir: %w", err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

func parseToolFrontmatter(content string) (AgentTool, error) {
	const delim = "---\n"
	if !strings.HasPrefix(content, delim) {
		return AgentTool{}, fmt.Errorf("genome: tool missing frontmatter")
	}
	rest := content[len(delim):]
	end := strings.Index(rest, "\n---\n")
	if end < 0 {
		return AgentTool{}, fmt.Errorf("genome: tool frontmatter not terminated")
	}
	header := rest[:end]
	script := rest[end+len("\n---\n"):]

	tool := AgentTool{Script: script}
	for _, line := range strings.Split(header, "\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		switch key {
		case "name":
			tool.Name = value
		case "description":
			tool.Description = value
		case "interpreter":
			tool.Interpreter = value
		}
	}
	return tool, nil
}

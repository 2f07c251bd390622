package agent

import "github.com/prime-radiant-inc/sprout/pkg/llm"

// buildDelegationTool describes the delegation meta-tool: its schema
// enumerates agentNames (this agent's capabilities intersected with known
// agents, excluding self) as the allowed delegation targets.
func buildDelegationTool(agentNames []string) llm.ToolDefinition {
	return llm.ToolDefinition{
		Name:        delegationToolName,
		Description: "Delegate a subtask to another agent and return its output.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"agent": map[string]any{
					"type":        "string",
					"description": "Name of the agent to delegate to.",
					"enum":        toAnySlice(agentNames),
				},
				"goal": map[string]any{
					"type":        "string",
					"description": "The subtask goal to hand to the delegate.",
				},
				"hints": map[string]any{
					"type":        "array",
					"items":       map[string]any{"type": "string"},
					"description": "Optional hints to help the delegate.",
				},
			},
			"required": []string{"agent", "goal"},
		},
	}
}

func toAnySlice(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

// alignCapabilityForProvider swaps edit_file/apply_patch depending on the
// provider this agent is wired to: OpenAI gets apply_patch, Anthropic and
// Gemini get edit_file. Every other capability name passes through.
func alignCapabilityForProvider(name, providerName string) string {
	switch providerName {
	case "openai":
		if name == "edit_file" {
			return "apply_patch"
		}
	case "anthropic", "gemini":
		if name == "apply_patch" {
			return "edit_file"
		}
	}
	return name
}

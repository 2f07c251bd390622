package agent

import (
	"fmt"
	"sort"
	"strings"
)

// buildSystemPrompt renders the agent's base system prompt plus the
// env-context Recall surfaced for this goal: recalled memories, routing
// hints, and (for agents that can spawn) the menu of known delegates.
func (a *Agent) buildSystemPrompt() string {
	var b strings.Builder

	if a.spec.SystemPrompt != "" {
		b.WriteString(a.spec.SystemPrompt)
		b.WriteString("\n\n")
	}

	if len(a.recallResult.Memories) > 0 {
		b.WriteString("Relevant memories:\n")
		for _, m := range a.recallResult.Memories {
			fmt.Fprintf(&b, "- %s\n", m.Content)
		}
		b.WriteString("\n")
	}

	if len(a.recallResult.RoutingHints) > 0 {
		b.WriteString("Routing preferences:\n")
		for _, r := range a.recallResult.RoutingHints {
			fmt.Fprintf(&b, "- prefer %s when: %s\n", r.Preference, r.Condition)
		}
		b.WriteString("\n")
	}

	if a.spec.Constraints.CanSpawn && len(a.delegable) > 0 {
		names := make([]string, 0, len(a.delegable))
		for name := range a.delegable {
			names = append(names, name)
		}
		sort.Strings(names)
		b.WriteString("Agents you can delegate to: " + strings.Join(names, ", ") + "\n")
	}

	return strings.TrimRight(b.String(), "\n")
}

package agent

import "strings"

// contextWindowFor returns a conservative context-window token budget for
// model, attached to plan_end purely as an observability estimate — it
// never gates or truncates a request. Unknown models fall back to the
// 128k budget common across this corpus's providers.
func contextWindowFor(model string) int {
	switch model {
	case "fast":
		return 128_000
	case "good", "best":
		return 200_000
	}

	lower := strings.ToLower(model)
	switch {
	case strings.Contains(lower, "claude"):
		return 200_000
	case strings.Contains(lower, "gpt-4o"), strings.Contains(lower, "gpt-4-turbo"):
		return 128_000
	case strings.Contains(lower, "gemini-1.5"), strings.Contains(lower, "gemini-2"):
		return 1_000_000
	default:
		return 128_000
	}
}

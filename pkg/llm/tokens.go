package llm

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// defaultEncoding is used for every provider: an exact per-provider count
// would require that provider's own tokenizer, which is out of scope here.
// cl100k_base gives a stable, conservative estimate for context-window
// budgeting.
const defaultEncoding = "cl100k_base"

var (
	encOnce sync.Once
	enc     *tiktoken.Tiktoken
	encErr  error
)

func encoding() (*tiktoken.Tiktoken, error) {
	encOnce.Do(func() {
		enc, encErr = tiktoken.GetEncoding(defaultEncoding)
	})
	return enc, encErr
}

// EstimateTokens returns an approximate token count for s. On encoder
// initialization failure it falls back to a conservative byte/4 heuristic.
func EstimateTokens(s string) int {
	e, err := encoding()
	if err != nil {
		return len(s)/4 + 1
	}
	return len(e.Encode(s, nil, nil))
}

// EstimateMessageTokens sums EstimateTokens over every text, thinking, and
// tool-call/tool-result part of a message, plus a small per-part overhead
// constant approximating role/field framing cost.
func EstimateMessageTokens(m Message) int {
	const perPartOverhead = 4
	total := perPartOverhead
	for _, p := range m.Parts {
		total += perPartOverhead
		switch p.Type {
		case PartText:
			total += EstimateTokens(p.Text)
		case PartThinking, PartRedactedThinking:
			total += EstimateTokens(p.Thinking)
		case PartToolCall:
			total += EstimateTokens(p.ToolName)
			for k, v := range p.Arguments {
				total += EstimateTokens(k)
				if s, ok := v.(string); ok {
					total += EstimateTokens(s)
				} else {
					total += 2
				}
			}
		case PartToolResult:
			total += EstimateTokens(p.ToolResultContent)
		}
	}
	return total
}

// EstimateHistoryTokens sums EstimateMessageTokens across a conversation.
func EstimateHistoryTokens(history []Message) int {
	total := 0
	for _, m := range history {
		total += EstimateMessageTokens(m)
	}
	return total
}

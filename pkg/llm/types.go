// Package llm defines the provider-facing wire contract: messages, content
// parts, tool definitions, and the Provider trait. It ships a
// deterministic mock provider for tests; real Anthropic/OpenAI/Gemini wire
// adapters are an external collaborator outside this package's scope.
package llm

// Role is the speaker of a Message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// PartType enumerates the kinds of ContentPart a Message can carry.
type PartType string

const (
	PartText              PartType = "text"
	PartToolCall          PartType = "tool_call"
	PartToolResult        PartType = "tool_result"
	PartThinking          PartType = "thinking"
	PartRedactedThinking  PartType = "redacted_thinking"
	PartImage             PartType = "image"
)

// ContentPart is one typed fragment of a Message. Only the fields relevant
// to Type are populated; the rest are left zero.
type ContentPart struct {
	Type PartType `json:"type" mapstructure:"type"`

	// PartText
	Text string `json:"text,omitempty" mapstructure:"text"`

	// PartToolCall
	ToolCallID string         `json:"tool_call_id,omitempty" mapstructure:"tool_call_id"`
	ToolName   string         `json:"tool_name,omitempty" mapstructure:"tool_name"`
	Arguments  map[string]any `json:"arguments,omitempty" mapstructure:"arguments"`

	// PartToolResult. ToolCallID here must reference the id of a prior
	// tool_call part earlier in the same conversation.
	ToolResultContent string `json:"tool_result_content,omitempty" mapstructure:"tool_result_content"`
	IsError           bool   `json:"is_error,omitempty" mapstructure:"is_error"`

	// PartThinking / PartRedactedThinking
	Thinking string `json:"thinking,omitempty" mapstructure:"thinking"`

	// PartImage
	ImageURL  string `json:"image_url,omitempty" mapstructure:"image_url"`
	ImageData string `json:"image_data,omitempty" mapstructure:"image_data"`
	MimeType  string `json:"mime_type,omitempty" mapstructure:"mime_type"`
}

// Text builds a text ContentPart.
func Text(s string) ContentPart { return ContentPart{Type: PartText, Text: s} }

// ToolCallPart builds a tool_call ContentPart.
func ToolCallPart(id, name string, args map[string]any) ContentPart {
	return ContentPart{Type: PartToolCall, ToolCallID: id, ToolName: name, Arguments: args}
}

// ToolResultPart builds a tool_result ContentPart referencing callID.
func ToolResultPart(callID, content string, isError bool) ContentPart {
	return ContentPart{Type: PartToolResult, ToolCallID: callID, ToolResultContent: content, IsError: isError}
}

// Message is one turn of a conversation: a role plus an ordered list of
// typed parts. Assistant messages may mix text, thinking, and tool_calls.
type Message struct {
	Role  Role          `json:"role" mapstructure:"role"`
	Parts []ContentPart `json:"parts" mapstructure:"parts"`
}

// ToolCalls returns every tool_call part in the message, in order.
func (m Message) ToolCalls() []ContentPart {
	var out []ContentPart
	for _, p := range m.Parts {
		if p.Type == PartToolCall {
			out = append(out, p)
		}
	}
	return out
}

// TextContent concatenates every text part in the message.
func (m Message) TextContent() string {
	var out string
	for _, p := range m.Parts {
		if p.Type == PartText {
			out += p.Text
		}
	}
	return out
}

// NewAssistantText builds a plain assistant text message.
func NewAssistantText(text string) Message {
	return Message{Role: RoleAssistant, Parts: []ContentPart{Text(text)}}
}

// NewUserText builds a plain user text message.
func NewUserText(text string) Message {
	return Message{Role: RoleUser, Parts: []ContentPart{Text(text)}}
}

// NewToolResult builds a tool-role message carrying one tool_result part.
func NewToolResult(callID, content string, isError bool) Message {
	return Message{Role: RoleTool, Parts: []ContentPart{ToolResultPart(callID, content, isError)}}
}

// ToolChoice constrains how the provider must use the offered tools.
type ToolChoice struct {
	Mode string // "auto", "none", "required", "name"
	Name string // populated when Mode == "name"
}

var (
	ToolChoiceAuto     = ToolChoice{Mode: "auto"}
	ToolChoiceNone     = ToolChoice{Mode: "none"}
	ToolChoiceRequired = ToolChoice{Mode: "required"}
)

// ToolDefinition is a tool offered to the provider, described as JSON Schema.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Request is one completion request to a provider.
type Request struct {
	Model          string
	Provider       string
	Messages       []Message
	Tools          []ToolDefinition
	ToolChoice     ToolChoice
	Temperature    *float64
	TopP           *float64
	MaxTokens      int
	StopSequences  []string
	ProviderOptions map[string]any
}

// FinishReason classifies why a provider stopped generating.
type FinishReason string

const (
	FinishStop          FinishReason = "stop"
	FinishLength        FinishReason = "length"
	FinishToolCalls     FinishReason = "tool_calls"
	FinishContentFilter FinishReason = "content_filter"
	FinishError         FinishReason = "error"
	FinishOther         FinishReason = "other"
)

// Finish describes the stop condition of a Response.
type Finish struct {
	Reason FinishReason `json:"reason"`
	Raw    string       `json:"raw,omitempty"`
}

// Usage reports token accounting for a Response.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is one provider completion result.
type Response struct {
	ID       string  `json:"id"`
	Model    string  `json:"model"`
	Provider string  `json:"provider"`
	Message  Message `json:"message"`
	Finish   Finish  `json:"finish"`
	Usage    Usage   `json:"usage"`
}

// StreamEventType enumerates streaming chunk kinds.
type StreamEventType string

const (
	StreamText     StreamEventType = "text"
	StreamToolCall StreamEventType = "tool_call"
	StreamDone     StreamEventType = "done"
	StreamError    StreamEventType = "error"
)

// StreamEvent is one chunk of a streamed completion.
type StreamEvent struct {
	Type     StreamEventType
	Text     string
	ToolCall *ContentPart
	Response *Response
	Err      error
}

package ai

/*
	##### NORMALIZED STREAM OUTPUT #####

	Every vendor adapter folds its wire events into the same chunk shape.
	A StreamChunk is an immutable snapshot: cumulative fields always carry
	the running totals, delta fields carry only what this event added.
*/

// FinishReason is the unified classification of why a generation stopped.
// Each vendor adapter owns a fixed table from its native stop vocabulary
// into this closed set; values absent from a table default to [FinishStop].
type FinishReason string

const (
	// FinishStop means the model completed its turn normally.
	FinishStop FinishReason = "stop"
	// FinishLength means the output hit a token or length limit.
	FinishLength FinishReason = "length"
	// FinishToolUse means the model stopped to request tool invocations.
	FinishToolUse FinishReason = "tool_use"
	// FinishError means the vendor reported a terminal failure status.
	FinishError FinishReason = "error"
)

// Usage holds token counters for one generation. Vendors report sub-counts
// under differently named detail objects; adapters flatten them into this
// single shape.
type Usage struct {
	InputTokens  int `json:"input_tokens,omitempty"`
	OutputTokens int `json:"output_tokens,omitempty"`
	TotalTokens  int `json:"total_tokens,omitempty"`

	// Extended token metrics
	CachedTokens    int `json:"cached_tokens,omitempty"`    // Prompt tokens served from a provider cache
	ReasoningTokens int `json:"reasoning_tokens,omitempty"` // Tokens spent on reasoning/thinking output
}

// ToolCall is a model-issued request to invoke an external function. During
// streaming its Arguments map is replaced wholesale each time the
// concatenated argument fragments first parse as valid JSON; it is never
// mutated in place, so snapshots taken by earlier chunks stay valid.
type ToolCall struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
}

// Reasoning carries "thinking" style output: the cumulative text produced so
// far and the increment contributed by the current event.
type Reasoning struct {
	Content string `json:"content"`
	Delta   string `json:"delta,omitempty"`
}

// StreamChunk is one normalized unit of streamed output. Content and
// Reasoning.Content always reflect the running totals for the generation;
// Delta and Reasoning.Delta carry only this event's increment. A non-empty
// FinishReason marks the chunk as logically terminal: no further
// content-bearing chunks are valid for the same generation.
type StreamChunk struct {
	Content      string       `json:"content"`
	Delta        string       `json:"delta,omitempty"`
	FinishReason FinishReason `json:"finish_reason,omitempty"`
	ToolCalls    []ToolCall   `json:"tool_calls,omitempty"`
	Reasoning    *Reasoning   `json:"reasoning,omitempty"`
	Usage        *Usage       `json:"usage,omitempty"`
}

package openai

/*
	CHAT COMPLETIONS STREAMING API - WIRE TYPES

	These types model the SSE chunks returned by the /chat/completions
	endpoint when stream=true. Each chunk carries a single choice whose delta
	holds content text, reasoning text, or positional tool-call fragments.
	Usage arrives in a trailing chunk with empty choices when the request set
	stream_options.include_usage.
*/

// chatCompletionChunk represents a single SSE chunk from the streaming chat
// completions endpoint.
type chatCompletionChunk struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"` // "chat.completion.chunk"
	Created int64        `json:"created"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
	Usage   *chatUsage   `json:"usage,omitempty"` // Trailing chunk only
	Error   *chatError   `json:"error,omitempty"` // Structured mid-stream error
}

// chatChoice represents a single choice in a streaming chunk.
type chatChoice struct {
	Index        int       `json:"index"`
	Delta        chatDelta `json:"delta"`
	FinishReason *string   `json:"finish_reason"` // Nullable; nil until the final chunk for this choice
}

// chatDelta carries the incremental content for a streaming chunk. All
// fields are optional; a chunk may carry only content, only tool calls,
// only a role, etc.
type chatDelta struct {
	Role      string             `json:"role,omitempty"`
	Content   *string            `json:"content,omitempty"`   // Nullable to distinguish empty string from absent
	Reasoning *string            `json:"reasoning,omitempty"` // Reasoning/thinking delta
	ToolCalls []chatToolCallPart `json:"tool_calls,omitempty"`
}

// chatToolCallPart is an incremental tool-call fragment. Only the first
// fragment for a given index reliably carries the ID and function name;
// later fragments carry argument text correlated through the index alone.
type chatToolCallPart struct {
	Index    int    `json:"index"`
	ID       string `json:"id,omitempty"`
	Type     string `json:"type,omitempty"`
	Function struct {
		Name      string `json:"name,omitempty"`
		Arguments string `json:"arguments,omitempty"`
	} `json:"function"`
}

// chatUsage is the vendor usage shape. Cached and reasoning token counts
// arrive nested under separate detail objects and are flattened into the
// unified usage shape by the adapter.
type chatUsage struct {
	PromptTokens        int `json:"prompt_tokens"`
	CompletionTokens    int `json:"completion_tokens"`
	TotalTokens         int `json:"total_tokens"`
	PromptTokensDetails *struct {
		CachedTokens int `json:"cached_tokens"`
	} `json:"prompt_tokens_details,omitempty"`
	CompletionTokensDetails *struct {
		ReasoningTokens int `json:"reasoning_tokens"`
	} `json:"completion_tokens_details,omitempty"`
}

// chatError is a structured error delivered inside the SSE stream.
type chatError struct {
	Message string `json:"message"`
	Type    string `json:"type,omitempty"`
	Code    any    `json:"code,omitempty"`
}

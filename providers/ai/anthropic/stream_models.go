package anthropic

/*
	ANTHROPIC SSE STREAMING - WIRE TYPES

	Anthropic streaming uses SSE with "event:" lines to identify event types,
	followed by "data:" lines containing JSON payloads. The SSEScanner only
	surfaces "data:" lines, so the "type" field inside the JSON payload is
	the discriminator.

	Event lifecycle:
	  message_start → content_block_start → content_block_delta →
	  content_block_stop → message_delta → message_stop
*/

// anthropicStreamEvent is the top-level envelope for all Anthropic SSE
// events. The Type field discriminates which optional fields are populated.
type anthropicStreamEvent struct {
	Type         string             `json:"type"`
	Message      *messageStart      `json:"message,omitempty"`       // For "message_start"
	Index        int                `json:"index,omitempty"`         // For content_block_start/delta/stop
	ContentBlock *contentBlock      `json:"content_block,omitempty"` // For "content_block_start"
	Delta        *anthropicDelta    `json:"delta,omitempty"`         // For "content_block_delta" and "message_delta"
	Usage        *anthropicUsage    `json:"usage,omitempty"`         // For "message_delta"
	Error        *anthropicError    `json:"error,omitempty"`         // For "error" events
}

// messageStart carries the initial response snapshot, including the input
// token counts that trailing usage must be merged with.
type messageStart struct {
	ID    string         `json:"id"`
	Model string         `json:"model"`
	Usage anthropicUsage `json:"usage"`
}

// contentBlock announces which kind of block is opening. For tool_use blocks
// the ID and Name fields carry the tool-call identity; they are present only
// here, never on the subsequent input_json_delta events.
type contentBlock struct {
	Type string `json:"type"` // "text", "thinking", "tool_use"
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

// anthropicDelta carries incremental content within a content_block_delta or
// the stop reason within a message_delta. The Type sub-field distinguishes:
//   - "text_delta": Text is populated
//   - "thinking_delta": Thinking is populated
//   - "input_json_delta": PartialJSON is populated (tool-call arguments)
//   - (no type, message_delta): StopReason is populated
type anthropicDelta struct {
	Type        string `json:"type,omitempty"`
	Text        string `json:"text,omitempty"`
	Thinking    string `json:"thinking,omitempty"`
	PartialJSON string `json:"partial_json,omitempty"`
	StopReason  string `json:"stop_reason,omitempty"`
}

// anthropicUsage is the vendor token-count shape. Input tokens arrive on
// message_start, output tokens on message_delta.
type anthropicUsage struct {
	InputTokens              int `json:"input_tokens,omitempty"`
	OutputTokens             int `json:"output_tokens,omitempty"`
	CacheCreationInputTokens int `json:"cache_creation_input_tokens,omitempty"`
	CacheReadInputTokens     int `json:"cache_read_input_tokens,omitempty"`
}

// anthropicError represents an error event in the SSE stream.
type anthropicError struct {
	Type    string `json:"type"`    // e.g. "overloaded_error", "api_error"
	Message string `json:"message"` // Human-readable description
}

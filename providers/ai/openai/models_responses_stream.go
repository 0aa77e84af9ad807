package openai

/*
	RESPONSES STREAMING API - WIRE TYPES

	The /responses endpoint frames its stream as explicitly typed events
	(response.output_text.delta, response.output_item.added,
	response.function_call_arguments.delta/.done, response.completed, ...)
	rather than choice-shaped chunks. Tool-call identity is established at
	item-added time, keyed by output position; a ".done" event carries the
	authoritative final argument string.
*/

// responsesStreamEvent is the envelope for all /responses SSE events. The
// Type field discriminates which optional fields are populated.
type responsesStreamEvent struct {
	Type        string               `json:"type"`
	Delta       string               `json:"delta,omitempty"`        // output_text.delta, function_call_arguments.delta, reasoning deltas
	OutputIndex int                  `json:"output_index,omitempty"` // Position of the output item this event belongs to
	ItemID      string               `json:"item_id,omitempty"`
	Item        *responsesOutputItem `json:"item,omitempty"`      // output_item.added / output_item.done
	Arguments   string               `json:"arguments,omitempty"` // function_call_arguments.done (authoritative)
	Response    *responsesResponse   `json:"response,omitempty"`  // completed / incomplete / failed
	Error       *responsesError      `json:"error,omitempty"`     // "error" events
}

// responsesOutputItem announces a structured output item. For
// type "function_call" it carries the tool-call identity.
type responsesOutputItem struct {
	ID        string `json:"id"`
	Type      string `json:"type"` // "message", "reasoning", "function_call", ...
	Name      string `json:"name,omitempty"`
	CallID    string `json:"call_id,omitempty"`
	Arguments string `json:"arguments,omitempty"`
	Status    string `json:"status,omitempty"`
}

// responsesResponse is the response object embedded in terminal events.
type responsesResponse struct {
	ID                string          `json:"id"`
	Status            string          `json:"status"` // "completed", "incomplete", "failed"
	Usage             *responsesUsage `json:"usage,omitempty"`
	Error             *responsesError `json:"error,omitempty"`
	IncompleteDetails *struct {
		Reason string `json:"reason"` // e.g. "max_output_tokens"
	} `json:"incomplete_details,omitempty"`
}

// responsesUsage mirrors the vendor usage shape; cached and reasoning token
// counts sit under detail objects, flattened by the adapter.
type responsesUsage struct {
	InputTokens        int `json:"input_tokens"`
	OutputTokens       int `json:"output_tokens"`
	TotalTokens        int `json:"total_tokens"`
	InputTokensDetails *struct {
		CachedTokens int `json:"cached_tokens"`
	} `json:"input_tokens_details,omitempty"`
	OutputTokensDetails *struct {
		ReasoningTokens int `json:"reasoning_tokens"`
	} `json:"output_tokens_details,omitempty"`
}

// responsesError is a structured failure reported inside the stream.
type responsesError struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

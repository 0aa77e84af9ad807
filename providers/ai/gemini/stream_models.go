package gemini

import "encoding/json"

/*
	GEMINI SSE STREAMING - WIRE TYPES

	Gemini's streamGenerateContent endpoint (with alt=sse) frames each SSE
	event as a full generateContentResponse carrying a candidate content
	array, not per-field deltas. Text parts within one event are the event's
	increment; function-call parts arrive whole and carry no vendor id.
	Usage metadata may arrive in an event with no candidate content at all.
*/

// generateContentResponse is the payload of one streaming SSE event.
type generateContentResponse struct {
	Candidates    []candidate    `json:"candidates,omitempty"`
	UsageMetadata *usageMetadata `json:"usageMetadata,omitempty"`
	Error         *geminiError   `json:"error,omitempty"`
}

// candidate is one generated answer. Streaming only ever populates the
// first candidate.
type candidate struct {
	Content      *candidateContent `json:"content,omitempty"`
	FinishReason string            `json:"finishReason,omitempty"`
}

type candidateContent struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts,omitempty"`
}

// part is a single content fragment. Text parts flagged with thought=true
// carry reasoning output; functionCall parts carry a complete tool
// invocation with pre-structured arguments.
type part struct {
	Text         string        `json:"text,omitempty"`
	Thought      bool          `json:"thought,omitempty"`
	FunctionCall *functionCall `json:"functionCall,omitempty"`
}

// functionCall is a whole tool invocation. Gemini assigns no call id; the
// adapter uses the function name as a synthetic one.
type functionCall struct {
	Name string          `json:"name"`
	Args json.RawMessage `json:"args,omitempty"`
}

// usageMetadata is the vendor usage shape, flattened by the adapter.
type usageMetadata struct {
	PromptTokenCount        int `json:"promptTokenCount,omitempty"`
	CandidatesTokenCount    int `json:"candidatesTokenCount,omitempty"`
	TotalTokenCount         int `json:"totalTokenCount,omitempty"`
	ThoughtsTokenCount      int `json:"thoughtsTokenCount,omitempty"`
	CachedContentTokenCount int `json:"cachedContentTokenCount,omitempty"`
}

// geminiError is a structured failure reported inside the stream.
type geminiError struct {
	Code    int    `json:"code,omitempty"`
	Message string `json:"message"`
	Status  string `json:"status,omitempty"`
}

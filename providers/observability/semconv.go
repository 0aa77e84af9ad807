package observability

// Semantic conventions for observability attributes. These constants define
// standard attribute names so the transport and the vendor adapters record
// observations consistently.

// --- LLM provider attributes ---

const (
	// AttrLLMProvider is the name of the LLM provider (e.g., "openai", "anthropic").
	AttrLLMProvider = "llm.provider"

	// AttrLLMModel is the model identifier (e.g., "gpt-4o", "claude-sonnet-4").
	AttrLLMModel = "llm.model"

	// AttrLLMEndpoint is the API endpoint URL.
	AttrLLMEndpoint = "llm.endpoint"

	// AttrLLMEndpointType is the event shape served by the endpoint
	// (e.g., "chat_completions", "responses", "messages", "generate_content").
	AttrLLMEndpointType = "llm.endpoint.type"

	// AttrLLMFinishReason is the normalized reason the generation finished.
	AttrLLMFinishReason = "llm.finish_reason"

	// AttrLLMVendorFinishReason is the raw finish/stop value from the wire,
	// recorded when it is absent from the vendor's mapping table.
	AttrLLMVendorFinishReason = "llm.finish_reason.vendor"
)

// --- Token usage attributes ---

const (
	AttrLLMTokensInput  = "llm.tokens.input"  // #nosec G101 -- token refers to LLM tokens
	AttrLLMTokensOutput = "llm.tokens.output" // #nosec G101 -- token refers to LLM tokens
	AttrLLMTokensTotal  = "llm.tokens.total"  // #nosec G101 -- token refers to LLM tokens
)

// --- HTTP attributes ---

const (
	AttrHTTPMethod           = "http.method"
	AttrHTTPURL              = "http.url"
	AttrHTTPStatusCode       = "http.status_code"
	AttrHTTPRequestBodySize  = "http.request.body.size"
	AttrHTTPResponseBodySize = "http.response.body.size"
)

// --- Span event names ---

const (
	// EventLLMRequestStart marks the beginning of a provider request.
	EventLLMRequestStart = "llm.request.start"

	// EventLLMStreamEnd marks normal termination of a streamed generation.
	EventLLMStreamEnd = "llm.stream.end"
)

// Package openai normalizes the two SSE event shapes served by
// OpenAI-compatible APIs into the shared chunk model: the legacy
// choice-shaped /chat/completions stream and the typed-event /responses
// stream.
//
// The entry point is [New], which reads OPENAI_API_KEY and
// OPENAI_API_BASE_URL from the environment. Use
// [OpenAIProvider.StreamChatCompletions] or [OpenAIProvider.StreamResponses]
// depending on which endpoint the request body targets; both return an
// [ai.ChunkStream] yielding identical chunk semantics.
package openai

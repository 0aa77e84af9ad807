// Package anthropic normalizes the block-scoped SSE events of Anthropic's
// Messages API into the shared chunk model.
//
// The entry point is [New], which reads ANTHROPIC_API_KEY and
// ANTHROPIC_API_BASE_URL from the environment.
// [AnthropicProvider.StreamMessages] returns an [ai.ChunkStream]; text,
// thinking, and tool-argument deltas are distinguished by the sub-type field
// inside each content_block_delta, and the stop reason arrives with usage on
// the trailing message_delta.
package anthropic

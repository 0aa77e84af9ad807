// Package ai defines the normalized streaming model shared by every vendor
// adapter: the [StreamChunk] output unit, the [StreamState] accumulator that
// owns one generation's progress, and the [ChunkStream] pull-based sequence
// consumed by callers.
//
// Vendor adapters live in the subpackages (openai, anthropic, gemini). Each
// folds its own wire events into StreamChunk values through a StreamState, so
// a caller iterates the same chunk shape regardless of which API is backing
// the generation.
package ai

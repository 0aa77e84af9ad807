package ai

import "iter"

// ChunkStream wraps the pull-based sequence of normalized chunks produced by
// one generation call. It supports range-over-func iteration for real-time
// processing of deltas.
//
// Important: callers must consume the stream by iterating with Iter()
// (breaking out of the loop early is fine). The underlying provider holds
// open resources — an HTTP response body and its connection — that are only
// released when the iterator completes or the caller breaks out of the loop.
// Constructing a ChunkStream and never iterating it will leak those
// resources.
//
// Consumers observe exactly one of three outcomes: a clean sequence ending
// normally, a clean sequence whose final chunk carries a non-empty
// FinishReason, or a single non-nil error that ends iteration.
type ChunkStream struct {
	iterator iter.Seq2[StreamChunk, error]
}

// NewChunkStream creates a ChunkStream from a raw streaming iterator.
// The iterator is expected to yield StreamChunk values (with nil error) for
// normal progress, and may yield a non-nil error to signal a mid-stream
// failure; an error is always the last thing yielded.
func NewChunkStream(iterator iter.Seq2[StreamChunk, error]) *ChunkStream {
	return &ChunkStream{iterator: iterator}
}

// Iter returns the underlying iterator for use with range-over-func loops.
//
// Example:
//
//	for chunk, err := range stream.Iter() {
//	    if err != nil { handle error }
//	    fmt.Print(chunk.Delta)
//	}
func (stream *ChunkStream) Iter() iter.Seq2[StreamChunk, error] {
	return stream.iterator
}

package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/genflow-ai/genflow/providers/ai"
)

// writeSSE is a test helper that writes an SSE data line to the response writer and flushes.
func writeSSE(writer http.ResponseWriter, data string) {
	fmt.Fprintf(writer, "data: %s\n\n", data)
	if flusher, ok := writer.(http.Flusher); ok {
		flusher.Flush()
	}
}

// writeSSEDone writes the [DONE] sentinel to signal end of stream.
func writeSSEDone(writer http.ResponseWriter) {
	fmt.Fprintf(writer, "data: [DONE]\n\n")
	if flusher, ok := writer.(http.Flusher); ok {
		flusher.Flush()
	}
}

// collectChunks drains a stream and returns every chunk, failing the test on
// any iterator error.
func collectChunks(t *testing.T, stream *ai.ChunkStream) []ai.StreamChunk {
	t.Helper()

	var chunks []ai.StreamChunk
	for chunk, err := range stream.Iter() {
		if err != nil {
			t.Fatalf("iterator returned error: %v", err)
		}
		chunks = append(chunks, chunk)
	}
	return chunks
}

// TestStreamChatCompletions_ContentSnapshots verifies each chunk carries the
// cumulative content alongside its delta, with the finish reason and trailing
// usage surfaced on their own chunks.
func TestStreamChatCompletions_ContentSnapshots(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.Header().Set("Content-Type", "text/event-stream")
		writer.WriteHeader(http.StatusOK)

		writeSSE(writer, `{"id":"chatcmpl-1","object":"chat.completion.chunk","created":1700000000,"model":"gpt-4","choices":[{"index":0,"delta":{"role":"assistant","content":"Hello"},"finish_reason":null}]}`)
		writeSSE(writer, `{"id":"chatcmpl-1","object":"chat.completion.chunk","created":1700000000,"model":"gpt-4","choices":[{"index":0,"delta":{"content":" world"},"finish_reason":null}]}`)
		writeSSE(writer, `{"id":"chatcmpl-1","object":"chat.completion.chunk","created":1700000000,"model":"gpt-4","choices":[{"index":0,"delta":{},"finish_reason":"stop"}]}`)
		writeSSE(writer, `{"id":"chatcmpl-1","object":"chat.completion.chunk","created":1700000000,"model":"gpt-4","choices":[],"usage":{"prompt_tokens":10,"completion_tokens":2,"total_tokens":12,"prompt_tokens_details":{"cached_tokens":4},"completion_tokens_details":{"reasoning_tokens":1}}}`)
		writeSSEDone(writer)
	}))
	defer server.Close()

	provider := New().WithBaseURL(server.URL).WithAPIKey("test-key")

	stream, err := provider.StreamChatCompletions(context.Background(), map[string]any{"model": "gpt-4", "stream": true})
	if err != nil {
		t.Fatalf("StreamChatCompletions returned error: %v", err)
	}

	chunks := collectChunks(t, stream)
	if len(chunks) != 4 {
		t.Fatalf("expected 4 chunks, got %d: %+v", len(chunks), chunks)
	}

	if chunks[0].Content != "Hello" || chunks[0].Delta != "Hello" {
		t.Errorf("unexpected first chunk: %+v", chunks[0])
	}
	if chunks[1].Content != "Hello world" || chunks[1].Delta != " world" {
		t.Errorf("unexpected second chunk: %+v", chunks[1])
	}

	finishChunk := chunks[2]
	if finishChunk.FinishReason != ai.FinishStop {
		t.Errorf("expected finish reason stop, got %q", finishChunk.FinishReason)
	}
	if finishChunk.Content != "Hello world" || finishChunk.Delta != "" {
		t.Errorf("finish chunk should carry cumulative content and empty delta: %+v", finishChunk)
	}

	usageChunk := chunks[3]
	if usageChunk.Usage == nil {
		t.Fatal("expected usage on trailing chunk")
	}
	if usageChunk.Usage.InputTokens != 10 || usageChunk.Usage.OutputTokens != 2 || usageChunk.Usage.TotalTokens != 12 {
		t.Errorf("unexpected usage: %+v", usageChunk.Usage)
	}
	if usageChunk.Usage.CachedTokens != 4 || usageChunk.Usage.ReasoningTokens != 1 {
		t.Errorf("nested usage details not flattened: %+v", usageChunk.Usage)
	}
}

// TestStreamChatCompletions_ToolCallCorrelation verifies that argument
// fragments carrying only a positional index are folded into the call whose
// identity arrived earlier, and that arguments materialize once the buffer
// parses.
func TestStreamChatCompletions_ToolCallCorrelation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.Header().Set("Content-Type", "text/event-stream")
		writer.WriteHeader(http.StatusOK)

		writeSSE(writer, `{"id":"chatcmpl-2","object":"chat.completion.chunk","created":1700000000,"model":"gpt-4","choices":[{"index":0,"delta":{"role":"assistant","tool_calls":[{"index":0,"id":"call_abc123","type":"function","function":{"name":"get_weather","arguments":""}}]},"finish_reason":null}]}`)
		writeSSE(writer, `{"id":"chatcmpl-2","object":"chat.completion.chunk","created":1700000000,"model":"gpt-4","choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"function":{"arguments":"{\"city\":"}}]},"finish_reason":null}]}`)
		writeSSE(writer, `{"id":"chatcmpl-2","object":"chat.completion.chunk","created":1700000000,"model":"gpt-4","choices":[{"index":0,"delta":{"tool_calls":[{"index":0,"function":{"arguments":"\"London\"}"}}]},"finish_reason":null}]}`)
		writeSSE(writer, `{"id":"chatcmpl-2","object":"chat.completion.chunk","created":1700000000,"model":"gpt-4","choices":[{"index":0,"delta":{},"finish_reason":"tool_calls"}]}`)
		writeSSEDone(writer)
	}))
	defer server.Close()

	provider := New().WithBaseURL(server.URL).WithAPIKey("test-key")

	stream, err := provider.StreamChatCompletions(context.Background(), map[string]any{"model": "gpt-4", "stream": true})
	if err != nil {
		t.Fatalf("StreamChatCompletions returned error: %v", err)
	}

	chunks := collectChunks(t, stream)
	if len(chunks) != 4 {
		t.Fatalf("expected 4 chunks, got %d", len(chunks))
	}

	// Mid-stream, before the argument buffer parses, the call is visible with
	// its identity but no arguments yet.
	mid := chunks[1]
	if len(mid.ToolCalls) != 1 {
		t.Fatalf("expected 1 tool call mid-stream, got %+v", mid.ToolCalls)
	}
	if mid.ToolCalls[0].ID != "call_abc123" || mid.ToolCalls[0].Name != "get_weather" {
		t.Errorf("unexpected tool call identity: %+v", mid.ToolCalls[0])
	}
	if mid.ToolCalls[0].Arguments != nil {
		t.Errorf("arguments should not parse from a partial buffer: %+v", mid.ToolCalls[0].Arguments)
	}

	final := chunks[len(chunks)-1]
	if final.FinishReason != ai.FinishToolUse {
		t.Errorf("expected finish reason tool_use, got %q", final.FinishReason)
	}
	if len(final.ToolCalls) != 1 {
		t.Fatalf("expected 1 tool call, got %+v", final.ToolCalls)
	}
	if got := final.ToolCalls[0].Arguments["city"]; got != "London" {
		t.Errorf("expected city London, got %v", final.ToolCalls[0].Arguments)
	}
}

// TestStreamChatCompletions_SkipsMalformedEvents verifies a payload that is
// not valid JSON is skipped without ending the stream.
func TestStreamChatCompletions_SkipsMalformedEvents(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.Header().Set("Content-Type", "text/event-stream")
		writer.WriteHeader(http.StatusOK)

		writeSSE(writer, `{"choices":[{"index":0,"delta":{"content":"before"},"finish_reason":null}]}`)
		writeSSE(writer, `{this is not json`)
		writeSSE(writer, `{"choices":[{"index":0,"delta":{"content":" after"},"finish_reason":"stop"}]}`)
		writeSSEDone(writer)
	}))
	defer server.Close()

	provider := New().WithBaseURL(server.URL).WithAPIKey("test-key")

	stream, err := provider.StreamChatCompletions(context.Background(), nil)
	if err != nil {
		t.Fatalf("StreamChatCompletions returned error: %v", err)
	}

	chunks := collectChunks(t, stream)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks around the malformed event, got %d", len(chunks))
	}
	if chunks[1].Content != "before after" {
		t.Errorf("expected content to survive the bad event, got %q", chunks[1].Content)
	}
	if chunks[1].FinishReason != ai.FinishStop {
		t.Errorf("expected finish reason stop, got %q", chunks[1].FinishReason)
	}
}

// TestStreamChatCompletions_VendorErrorEndsStream verifies a structured error
// payload is surfaced through the iterator and terminates iteration.
func TestStreamChatCompletions_VendorErrorEndsStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.Header().Set("Content-Type", "text/event-stream")
		writer.WriteHeader(http.StatusOK)

		writeSSE(writer, `{"choices":[{"index":0,"delta":{"content":"partial"},"finish_reason":null}]}`)
		writeSSE(writer, `{"error":{"message":"The server is overloaded","type":"server_error"}}`)
	}))
	defer server.Close()

	provider := New().WithBaseURL(server.URL).WithAPIKey("test-key")

	stream, err := provider.StreamChatCompletions(context.Background(), nil)
	if err != nil {
		t.Fatalf("StreamChatCompletions returned error: %v", err)
	}

	var chunks []ai.StreamChunk
	var streamErr error
	for chunk, iterErr := range stream.Iter() {
		if iterErr != nil {
			streamErr = iterErr
			break
		}
		chunks = append(chunks, chunk)
	}

	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk before the error, got %d", len(chunks))
	}
	if streamErr == nil {
		t.Fatal("expected a stream error")
	}
	if !strings.Contains(streamErr.Error(), "The server is overloaded") {
		t.Errorf("expected vendor message in error, got: %v", streamErr)
	}
}

// TestStreamChatCompletions_MissingAPIKey verifies the call fails before any
// request is sent when no key is configured.
func TestStreamChatCompletions_MissingAPIKey(t *testing.T) {
	provider := New().WithAPIKey("")

	_, err := provider.StreamChatCompletions(context.Background(), nil)
	if err == nil {
		t.Fatal("expected error for missing API key")
	}
	if !strings.Contains(err.Error(), "API key") {
		t.Errorf("unexpected error: %v", err)
	}
}

// countingBody wraps a response body and counts Close calls.
type countingBody struct {
	inner  io.ReadCloser
	closes *atomic.Int32
}

func (body *countingBody) Read(p []byte) (int, error) { return body.inner.Read(p) }

func (body *countingBody) Close() error {
	body.closes.Add(1)
	return body.inner.Close()
}

// countingTransport wraps the default transport and instruments each response
// body with a close counter.
type countingTransport struct {
	closes atomic.Int32
}

func (transport *countingTransport) RoundTrip(request *http.Request) (*http.Response, error) {
	response, err := http.DefaultTransport.RoundTrip(request)
	if err != nil {
		return nil, err
	}
	response.Body = &countingBody{inner: response.Body, closes: &transport.closes}
	return response, nil
}

// TestStreamChatCompletions_EarlyBreakClosesBodyOnce verifies that breaking
// out of the range loop closes the response body exactly once.
func TestStreamChatCompletions_EarlyBreakClosesBodyOnce(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.Header().Set("Content-Type", "text/event-stream")
		writer.WriteHeader(http.StatusOK)

		for i := 0; i < 50; i++ {
			writeSSE(writer, `{"choices":[{"index":0,"delta":{"content":"x"},"finish_reason":null}]}`)
		}
		writeSSEDone(writer)
	}))
	defer server.Close()

	transport := &countingTransport{}
	provider := New().
		WithBaseURL(server.URL).
		WithAPIKey("test-key").
		WithHttpClient(&http.Client{Transport: transport})

	stream, err := provider.StreamChatCompletions(context.Background(), nil)
	if err != nil {
		t.Fatalf("StreamChatCompletions returned error: %v", err)
	}

	seen := 0
	for _, iterErr := range stream.Iter() {
		if iterErr != nil {
			t.Fatalf("iterator returned error: %v", iterErr)
		}
		seen++
		if seen == 2 {
			break
		}
	}

	if got := transport.closes.Load(); got != 1 {
		t.Errorf("expected body closed exactly once, got %d", got)
	}
}

// TestStreamChatCompletions_ContextCancellation verifies a canceled context
// surfaces through the iterator instead of hanging on the open stream.
func TestStreamChatCompletions_ContextCancellation(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		writer.Header().Set("Content-Type", "text/event-stream")
		writer.WriteHeader(http.StatusOK)

		writeSSE(writer, `{"choices":[{"index":0,"delta":{"content":"first"},"finish_reason":null}]}`)
		<-release
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	provider := New().WithBaseURL(server.URL).WithAPIKey("test-key")

	stream, err := provider.StreamChatCompletions(ctx, nil)
	if err != nil {
		t.Fatalf("StreamChatCompletions returned error: %v", err)
	}

	var streamErr error
	for chunk, iterErr := range stream.Iter() {
		if iterErr != nil {
			streamErr = iterErr
			break
		}
		if chunk.Delta == "first" {
			cancel()
		}
	}

	if streamErr == nil {
		t.Fatal("expected an error after cancellation")
	}
	if !errors.Is(streamErr, context.Canceled) && !strings.Contains(streamErr.Error(), "context canceled") {
		t.Errorf("expected context cancellation error, got: %v", streamErr)
	}
}

package anthropic

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/genflow-ai/genflow/internal/utils"
	"github.com/genflow-ai/genflow/providers/ai"
	"github.com/genflow-ai/genflow/providers/observability"
)

// StreamMessages sends the given request body to the Messages endpoint and
// returns the normalized chunk sequence. The body is forwarded opaquely; the
// caller is responsible for setting stream=true.
//
// Anthropic scopes its events to content blocks. Tool-call identity arrives
// on content_block_start (the only event carrying id and name), argument
// fragments on input_json_delta events correlated by block index, and the
// stop reason together with the output token count on the trailing
// message_delta. A dedicated "error" event type raises immediately.
//
// Anthropic SSE lifecycle:
//
//	message_start → content_block_start → content_block_delta(s) →
//	content_block_stop → message_delta → message_stop
func (provider *AnthropicProvider) StreamMessages(ctx context.Context, body any) (*ai.ChunkStream, error) {
	span := observability.SpanFromContext(ctx)
	observer := observability.ObserverFromContext(ctx)

	if span != nil {
		span.AddEvent(observability.EventLLMRequestStart)
		span.SetAttributes(
			observability.String(observability.AttrLLMProvider, "anthropic"),
			observability.String(observability.AttrLLMEndpoint, provider.baseURL),
			observability.String(observability.AttrLLMEndpointType, "messages"),
		)
	}

	// Guard against missing credentials before making a network call.
	if provider.apiKey == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY is not set")
	}

	streamURL := provider.baseURL + messagesEndpoint

	// Pass empty apiKey so DoPostStream does not inject a Bearer token;
	// Anthropic authenticates via x-api-key (set inside streamConfig).
	httpResponse, err := utils.DoPostStream(ctx, provider.client, streamURL, "", body, provider.streamConfig())
	if err != nil {
		if observer != nil {
			observer.Trace(ctx, "Streaming HTTP request failed", observability.Error(err))
		}
		return nil, err
	}

	// Anthropic closes the connection after message_stop instead of sending
	// a [DONE] sentinel, so sentinel detection stays off.
	sseScanner := utils.NewSSEScanner(httpResponse.Body)
	state := ai.NewStreamState()

	iteratorFunc := func(yield func(ai.StreamChunk, error) bool) {
		defer utils.CloseWithLog(httpResponse.Body)

		// Token counts are spread across multiple events (message_start for
		// input tokens, message_delta for output tokens) so they are
		// accumulated here and emitted together on the terminal chunk.
		inputTokens := 0
		cacheCreationTokens := 0
		cacheReadTokens := 0

		for {
			if ctx.Err() != nil {
				yield(ai.StreamChunk{}, ctx.Err())
				return
			}

			payload, sseErr := sseScanner.Next()
			if sseErr == io.EOF {
				if span != nil {
					span.AddEvent(observability.EventLLMStreamEnd)
				}
				return
			}
			if sseErr != nil {
				yield(ai.StreamChunk{}, fmt.Errorf("SSE read error: %w", sseErr))
				return
			}

			var event anthropicStreamEvent
			if parseErr := json.Unmarshal([]byte(payload), &event); parseErr != nil || event.Type == "" {
				// One bad event does not end the generation.
				if observer != nil {
					observer.Trace(ctx, "Skipping malformed stream event", observability.Error(parseErr))
				}
				continue
			}

			switch event.Type {

			case "message_start":
				// Initial usage snapshot: input tokens and prompt-cache
				// counters. Output tokens are always 0 here; no chunk yet.
				if event.Message != nil {
					inputTokens = event.Message.Usage.InputTokens
					cacheCreationTokens = event.Message.Usage.CacheCreationInputTokens
					cacheReadTokens = event.Message.Usage.CacheReadInputTokens
				}

			case "content_block_start":
				// tool_use blocks carry the tool-call identity; id and name
				// never appear on the later input_json_delta events, so the
				// block index is bound to the id here.
				if event.ContentBlock == nil || event.ContentBlock.Type != "tool_use" {
					continue
				}

				state.InitToolCall(event.ContentBlock.ID, event.ContentBlock.Name)
				state.BindToolCallIndex(event.Index, event.ContentBlock.ID)

				if !yield(state.NewChunk("", "", nil), nil) {
					return
				}

			case "content_block_delta":
				if event.Delta == nil {
					continue
				}

				switch event.Delta.Type {
				case "text_delta":
					if event.Delta.Text == "" {
						continue
					}
					state.AddContentDelta(event.Delta.Text)
					if !yield(state.NewChunk(event.Delta.Text, "", nil), nil) {
						return
					}

				case "thinking_delta":
					if event.Delta.Thinking == "" {
						continue
					}
					state.AddReasoningDelta(event.Delta.Thinking)
					if !yield(state.NewChunk("", "", nil), nil) {
						return
					}

				case "input_json_delta":
					id, ok := state.ToolCallIDForIndex(event.Index)
					if !ok || event.Delta.PartialJSON == "" {
						continue
					}
					state.AddToolCallArgs(id, event.Delta.PartialJSON)
					if !yield(state.NewChunk("", "", nil), nil) {
						return
					}
				}

			case "content_block_stop":
				// Closes the current block; nothing to emit.

			case "message_delta":
				// The trailing message-level delta carries the stop reason
				// and the final output token count together: emit the
				// terminal chunk combining both.
				outputTokens := 0
				if event.Usage != nil {
					outputTokens = event.Usage.OutputTokens
				}

				stopReason := ""
				if event.Delta != nil {
					stopReason = event.Delta.StopReason
				}

				usage := &ai.Usage{
					InputTokens:  inputTokens,
					OutputTokens: outputTokens,
					TotalTokens:  inputTokens + outputTokens,
					CachedTokens: cacheCreationTokens + cacheReadTokens,
				}

				if !yield(state.NewChunk("", mapStopReason(ctx, stopReason), usage), nil) {
					return
				}

			case "message_stop":
				// Terminal event; the finish reason already went out with
				// message_delta.
				if span != nil {
					span.AddEvent(observability.EventLLMStreamEnd)
				}
				return

			case "error":
				// Server-side failure mid-stream: raise immediately.
				errMsg := "unknown stream error"
				if event.Error != nil {
					errMsg = event.Error.Message
				}
				yield(ai.StreamChunk{}, fmt.Errorf("anthropic stream error: %s", errMsg))
				return

			case "ping":
				// Keep-alive; nothing to yield.

			default:
				// Unknown event types are skipped for forward compatibility.
			}
		}
	}

	return ai.NewChunkStream(iteratorFunc), nil
}

// mapStopReason converts an Anthropic stop_reason value into the unified
// taxonomy. Values absent from the table default to stop; the raw value is
// traced so an unmapped future status is visible.
func mapStopReason(ctx context.Context, stopReason string) ai.FinishReason {
	switch stopReason {
	case "", "end_turn", "stop_sequence", "refusal":
		return ai.FinishStop
	case "tool_use":
		return ai.FinishToolUse
	case "max_tokens":
		return ai.FinishLength
	default:
		if observer := observability.ObserverFromContext(ctx); observer != nil {
			observer.Trace(ctx, "Unmapped finish reason, defaulting to stop",
				observability.String(observability.AttrLLMVendorFinishReason, stopReason),
			)
		}
		return ai.FinishStop
	}
}

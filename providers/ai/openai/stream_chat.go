package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/genflow-ai/genflow/internal/utils"
	"github.com/genflow-ai/genflow/providers/ai"
	"github.com/genflow-ai/genflow/providers/observability"
)

// errMalformedEvent marks an SSE payload that failed to parse as structured
// data. Such events are skipped individually; the stream continues.
var errMalformedEvent = errors.New("malformed event payload")

// StreamChatCompletions sends the given request body to the /chat/completions
// endpoint and returns the normalized chunk sequence. The body is forwarded
// opaquely; the caller is responsible for setting stream=true (and
// stream_options.include_usage when trailing usage is wanted).
//
// Pre-stream errors (missing API key, non-2xx HTTP response after retries,
// network failure) are returned immediately. Mid-stream errors — a vendor
// error payload or a transport read failure — are yielded through the
// iterator and end it.
func (provider *OpenAIProvider) StreamChatCompletions(ctx context.Context, body any) (*ai.ChunkStream, error) {
	span := observability.SpanFromContext(ctx)
	observer := observability.ObserverFromContext(ctx)

	if span != nil {
		span.AddEvent(observability.EventLLMRequestStart)
		span.SetAttributes(
			observability.String(observability.AttrLLMProvider, "openai"),
			observability.String(observability.AttrLLMEndpoint, provider.baseURL),
			observability.String(observability.AttrLLMEndpointType, "chat_completions"),
		)
	}

	if provider.apiKey == "" {
		return nil, fmt.Errorf("API key is not set")
	}

	streamURL := provider.baseURL + chatCompletionsEndpoint
	httpResponse, err := utils.DoPostStream(ctx, provider.client, streamURL, provider.apiKey, body, provider.streamConfig())
	if err != nil {
		if observer != nil {
			observer.Trace(ctx, "Streaming HTTP request failed", observability.Error(err))
		}
		return nil, err
	}

	// The chat completions stream terminates with an explicit [DONE] sentinel.
	sseScanner := utils.NewSSEScanner(httpResponse.Body, utils.WithDoneSentinel())
	state := ai.NewStreamState()

	iteratorFunc := func(yield func(ai.StreamChunk, error) bool) {
		// Close the body when the iterator finishes or the caller breaks out
		// of the range loop early; this releases the underlying connection.
		defer utils.CloseWithLog(httpResponse.Body)

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

			chunk, convErr := chatEventToChunk(ctx, payload, state)
			if convErr != nil {
				if errors.Is(convErr, errMalformedEvent) {
					// One bad event does not end the generation.
					if observer != nil {
						observer.Trace(ctx, "Skipping malformed stream event", observability.Error(convErr))
					}
					continue
				}
				yield(ai.StreamChunk{}, convErr)
				return
			}

			if chunk == nil {
				continue
			}

			if !yield(*chunk, nil) {
				return // Caller stopped iterating
			}
		}
	}

	return ai.NewChunkStream(iteratorFunc), nil
}

// chatEventToChunk interprets one decoded chat-completions event against the
// stream state and produces at most one normalized chunk. It returns
// (nil, nil) for events that contribute nothing, an error wrapping
// errMalformedEvent for unparseable payloads, and a bare error for vendor
// structured error events.
func chatEventToChunk(ctx context.Context, payload string, state *ai.StreamState) (*ai.StreamChunk, error) {
	var event chatCompletionChunk
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformedEvent, err)
	}

	if event.Error != nil {
		return nil, fmt.Errorf("openai stream error: %s", event.Error.Message)
	}

	var delta string
	var finishReason ai.FinishReason
	var usage *ai.Usage
	emit := false

	// Usage arrives in a trailing chunk with empty choices, so it is
	// processed before the choice loop.
	if event.Usage != nil {
		usage = flattenChatUsage(event.Usage)
		emit = true
	}

	for _, choice := range event.Choices {
		if choice.Delta.Content != nil && *choice.Delta.Content != "" {
			delta += *choice.Delta.Content
			state.AddContentDelta(*choice.Delta.Content)
			emit = true
		}

		if choice.Delta.Reasoning != nil && *choice.Delta.Reasoning != "" {
			state.AddReasoningDelta(*choice.Delta.Reasoning)
			emit = true
		}

		for _, part := range choice.Delta.ToolCalls {
			applyChatToolCallPart(state, part)
			emit = true
		}

		if choice.FinishReason != nil && *choice.FinishReason != "" {
			finishReason = mapChatFinishReason(ctx, *choice.FinishReason)
			emit = true
		}
	}

	if !emit {
		return nil, nil
	}

	chunk := state.NewChunk(delta, finishReason, usage)
	return &chunk, nil
}

// applyChatToolCallPart folds one positional tool-call fragment into the
// state. The first fragment for an index carries the id and name and binds
// the index; later fragments resolve the id through the correlation table.
func applyChatToolCallPart(state *ai.StreamState, part chatToolCallPart) {
	id := part.ID
	if id != "" {
		state.InitToolCall(id, part.Function.Name)
		state.BindToolCallIndex(part.Index, id)
	} else {
		resolved, ok := state.ToolCallIDForIndex(part.Index)
		if !ok {
			// Fragment for an index whose identity never arrived; drop it.
			return
		}
		id = resolved
	}

	if part.Function.Arguments != "" {
		state.AddToolCallArgs(id, part.Function.Arguments)
	}
}

// flattenChatUsage folds the vendor's nested usage detail objects into the
// unified usage shape.
func flattenChatUsage(vendorUsage *chatUsage) *ai.Usage {
	usage := &ai.Usage{
		InputTokens:  vendorUsage.PromptTokens,
		OutputTokens: vendorUsage.CompletionTokens,
		TotalTokens:  vendorUsage.TotalTokens,
	}
	if vendorUsage.PromptTokensDetails != nil {
		usage.CachedTokens = vendorUsage.PromptTokensDetails.CachedTokens
	}
	if vendorUsage.CompletionTokensDetails != nil {
		usage.ReasoningTokens = vendorUsage.CompletionTokensDetails.ReasoningTokens
	}
	return usage
}

// mapChatFinishReason converts a chat-completions finish_reason value into
// the unified taxonomy. Values absent from the table default to stop; the
// raw value is traced so an unmapped future status is visible rather than
// silently folded away.
func mapChatFinishReason(ctx context.Context, vendorReason string) ai.FinishReason {
	switch vendorReason {
	case "stop", "content_filter":
		return ai.FinishStop
	case "length":
		return ai.FinishLength
	case "tool_calls", "function_call":
		return ai.FinishToolUse
	default:
		if observer := observability.ObserverFromContext(ctx); observer != nil {
			observer.Trace(ctx, "Unmapped finish reason, defaulting to stop",
				observability.String(observability.AttrLLMVendorFinishReason, vendorReason),
			)
		}
		return ai.FinishStop
	}
}

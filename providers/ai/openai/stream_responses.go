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

// StreamResponses sends the given request body to the /responses endpoint
// and returns the normalized chunk sequence. The body is forwarded opaquely;
// the caller is responsible for setting stream=true.
//
// Unlike the choice-shaped chat completions stream, /responses events are
// explicitly typed. Tool-call identity arrives with output_item.added (keyed
// by output position), argument fragments with function_call_arguments.delta,
// and an authoritative final argument string with
// function_call_arguments.done, which overrides whatever the deltas
// accumulated.
func (provider *OpenAIProvider) StreamResponses(ctx context.Context, body any) (*ai.ChunkStream, error) {
	span := observability.SpanFromContext(ctx)
	observer := observability.ObserverFromContext(ctx)

	if span != nil {
		span.AddEvent(observability.EventLLMRequestStart)
		span.SetAttributes(
			observability.String(observability.AttrLLMProvider, "openai"),
			observability.String(observability.AttrLLMEndpoint, provider.baseURL),
			observability.String(observability.AttrLLMEndpointType, "responses"),
		)
	}

	if provider.apiKey == "" {
		return nil, fmt.Errorf("API key is not set")
	}

	streamURL := provider.baseURL + responsesEndpoint
	httpResponse, err := utils.DoPostStream(ctx, provider.client, streamURL, provider.apiKey, body, provider.streamConfig())
	if err != nil {
		if observer != nil {
			observer.Trace(ctx, "Streaming HTTP request failed", observability.Error(err))
		}
		return nil, err
	}

	// The responses stream also terminates with the [DONE] sentinel.
	sseScanner := utils.NewSSEScanner(httpResponse.Body, utils.WithDoneSentinel())
	state := ai.NewStreamState()

	iteratorFunc := func(yield func(ai.StreamChunk, error) bool) {
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

			chunk, convErr := responsesEventToChunk(ctx, payload, state)
			if convErr != nil {
				if errors.Is(convErr, errMalformedEvent) {
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

// responsesEventToChunk dispatches one typed /responses event against the
// stream state. Unmatched event types yield no chunk; the closed set of
// handled tags below is the whole adapter surface.
func responsesEventToChunk(ctx context.Context, payload string, state *ai.StreamState) (*ai.StreamChunk, error) {
	var event responsesStreamEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformedEvent, err)
	}
	if event.Type == "" {
		return nil, fmt.Errorf("%w: missing type field", errMalformedEvent)
	}

	switch event.Type {

	case "response.output_text.delta":
		if event.Delta == "" {
			return nil, nil
		}
		state.AddContentDelta(event.Delta)
		chunk := state.NewChunk(event.Delta, "", nil)
		return &chunk, nil

	case "response.reasoning_text.delta", "response.reasoning_summary_text.delta":
		if event.Delta == "" {
			return nil, nil
		}
		state.AddReasoningDelta(event.Delta)
		chunk := state.NewChunk("", "", nil)
		return &chunk, nil

	case "response.output_item.added":
		// Tool-call identity is established here, keyed by output position.
		// Later argument fragments carry only the position.
		if event.Item == nil || event.Item.Type != "function_call" {
			return nil, nil
		}

		id := event.Item.CallID
		if id == "" {
			id = event.Item.ID
		}
		state.InitToolCall(id, event.Item.Name)
		state.BindToolCallIndex(event.OutputIndex, id)

		chunk := state.NewChunk("", "", nil)
		return &chunk, nil

	case "response.function_call_arguments.delta":
		id, ok := state.ToolCallIDForIndex(event.OutputIndex)
		if !ok || event.Delta == "" {
			return nil, nil
		}
		state.AddToolCallArgs(id, event.Delta)
		chunk := state.NewChunk("", "", nil)
		return &chunk, nil

	case "response.function_call_arguments.done":
		// The done event's final argument string is authoritative and
		// overrides whatever was accumulated from deltas.
		id, ok := state.ToolCallIDForIndex(event.OutputIndex)
		if !ok {
			return nil, nil
		}
		state.SetToolCallArgs(id, event.Arguments)
		chunk := state.NewChunk("", "", nil)
		return &chunk, nil

	case "response.completed", "response.incomplete":
		var usage *ai.Usage
		status := event.Type
		if event.Response != nil {
			usage = flattenResponsesUsage(event.Response.Usage)
			if event.Response.Status != "" {
				status = event.Response.Status
			}
		}

		chunk := state.NewChunk("", mapResponsesStatus(ctx, status, state.HasToolCalls()), usage)
		return &chunk, nil

	case "response.failed":
		message := "response failed"
		if event.Response != nil && event.Response.Error != nil {
			message = event.Response.Error.Message
		}
		return nil, fmt.Errorf("openai responses stream error: %s", message)

	case "error":
		message := "unknown stream error"
		if event.Error != nil {
			message = event.Error.Message
		}
		return nil, fmt.Errorf("openai responses stream error: %s", message)

	default:
		// Lifecycle and progress events (response.created,
		// response.in_progress, response.output_item.done,
		// response.content_part.*, ...) carry nothing the normalized
		// model needs.
		return nil, nil
	}
}

// flattenResponsesUsage folds the vendor's nested usage detail objects into
// the unified usage shape.
func flattenResponsesUsage(vendorUsage *responsesUsage) *ai.Usage {
	if vendorUsage == nil {
		return nil
	}

	usage := &ai.Usage{
		InputTokens:  vendorUsage.InputTokens,
		OutputTokens: vendorUsage.OutputTokens,
		TotalTokens:  vendorUsage.TotalTokens,
	}
	if vendorUsage.InputTokensDetails != nil {
		usage.CachedTokens = vendorUsage.InputTokensDetails.CachedTokens
	}
	if vendorUsage.OutputTokensDetails != nil {
		usage.ReasoningTokens = vendorUsage.OutputTokensDetails.ReasoningTokens
	}
	return usage
}

// mapResponsesStatus converts a terminal response status into the unified
// taxonomy. The endpoint has no tool-call finish status of its own, so a
// completed response that issued tool calls is classified as tool_use.
func mapResponsesStatus(ctx context.Context, status string, hasToolCalls bool) ai.FinishReason {
	switch status {
	case "completed", "response.completed":
		if hasToolCalls {
			return ai.FinishToolUse
		}
		return ai.FinishStop
	case "incomplete", "response.incomplete":
		return ai.FinishLength
	case "failed":
		return ai.FinishError
	default:
		if observer := observability.ObserverFromContext(ctx); observer != nil {
			observer.Trace(ctx, "Unmapped finish reason, defaulting to stop",
				observability.String(observability.AttrLLMVendorFinishReason, status),
			)
		}
		return ai.FinishStop
	}
}

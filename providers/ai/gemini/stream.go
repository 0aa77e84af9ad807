package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/genflow-ai/genflow/internal/utils"
	"github.com/genflow-ai/genflow/providers/ai"
	"github.com/genflow-ai/genflow/providers/observability"
)

// errMalformedEvent marks an SSE payload that failed to parse as structured
// data. Such events are skipped individually; the stream continues.
var errMalformedEvent = errors.New("malformed event payload")

// StreamGenerateContent sends the given request body to the model's
// streamGenerateContent endpoint (with alt=sse) and returns the normalized
// chunk sequence. The body is forwarded opaquely.
//
// Each Gemini SSE event carries a whole candidate content array rather than
// per-field deltas: all text parts within one event are concatenated into a
// single delta, and function-call parts — which lack a vendor-assigned id —
// are registered under their function name as a synthetic id. Usage may
// arrive in an event with no candidate content at all, which still produces
// a usage-only chunk.
func (provider *GeminiProvider) StreamGenerateContent(ctx context.Context, model string, body any) (*ai.ChunkStream, error) {
	span := observability.SpanFromContext(ctx)
	observer := observability.ObserverFromContext(ctx)

	if span != nil {
		span.AddEvent(observability.EventLLMRequestStart)
		span.SetAttributes(
			observability.String(observability.AttrLLMProvider, "gemini"),
			observability.String(observability.AttrLLMEndpoint, provider.baseURL),
			observability.String(observability.AttrLLMEndpointType, "generate_content"),
			observability.String(observability.AttrLLMModel, model),
		)
	}

	if provider.apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is not set")
	}
	if model == "" {
		return nil, fmt.Errorf("model is not set")
	}

	streamURL := fmt.Sprintf("%s/models/%s:streamGenerateContent?alt=sse", provider.baseURL, model)

	// Pass empty apiKey so DoPostStream does not inject a Bearer token;
	// Gemini authenticates via x-goog-api-key (set inside streamConfig).
	httpResponse, err := utils.DoPostStream(ctx, provider.client, streamURL, "", body, provider.streamConfig())
	if err != nil {
		if observer != nil {
			observer.Trace(ctx, "Streaming HTTP request failed", observability.Error(err))
		}
		return nil, err
	}

	// Gemini closes the connection at end of stream; no [DONE] sentinel.
	sseScanner := utils.NewSSEScanner(httpResponse.Body)
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

			chunk, convErr := candidateEventToChunk(ctx, payload, state)
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

// candidateEventToChunk folds one whole-candidate event into the stream
// state and produces at most one normalized chunk for it.
func candidateEventToChunk(ctx context.Context, payload string, state *ai.StreamState) (*ai.StreamChunk, error) {
	var response generateContentResponse
	if err := json.Unmarshal([]byte(payload), &response); err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformedEvent, err)
	}

	if response.Error != nil {
		return nil, fmt.Errorf("gemini stream error: %s", response.Error.Message)
	}

	var usage *ai.Usage
	if response.UsageMetadata != nil {
		usage = &ai.Usage{
			InputTokens:     response.UsageMetadata.PromptTokenCount,
			OutputTokens:    response.UsageMetadata.CandidatesTokenCount,
			TotalTokens:     response.UsageMetadata.TotalTokenCount,
			ReasoningTokens: response.UsageMetadata.ThoughtsTokenCount,
			CachedTokens:    response.UsageMetadata.CachedContentTokenCount,
		}
	}

	if len(response.Candidates) == 0 {
		// Usage may arrive without any candidate content; it still yields a
		// usage-only chunk with an empty delta.
		if usage == nil {
			return nil, nil
		}
		chunk := state.NewChunk("", "", usage)
		return &chunk, nil
	}

	candidate := response.Candidates[0]

	var finishReason ai.FinishReason
	if candidate.FinishReason != "" {
		finishReason = mapFinishReason(ctx, candidate.FinishReason)
	}

	emit := usage != nil || finishReason != ""
	var textParts []string

	if candidate.Content != nil {
		for _, contentPart := range candidate.Content.Parts {
			if contentPart.Text != "" {
				emit = true
				if contentPart.Thought {
					state.AddReasoningDelta(contentPart.Text)
				} else {
					textParts = append(textParts, contentPart.Text)
				}
			}

			// Function calls arrive whole, with pre-structured arguments and
			// no vendor id: the function name doubles as a synthetic id.
			if contentPart.FunctionCall != nil {
				emit = true
				name := contentPart.FunctionCall.Name
				state.InitToolCall(name, name)
				if len(contentPart.FunctionCall.Args) > 0 {
					state.SetToolCallArgs(name, string(contentPart.FunctionCall.Args))
				}
			}
		}
	}

	if !emit {
		return nil, nil
	}

	// All text parts of one event concatenate into a single delta.
	delta := strings.Join(textParts, "")
	state.AddContentDelta(delta)

	chunk := state.NewChunk(delta, finishReason, usage)
	return &chunk, nil
}

// mapFinishReason converts a Gemini finishReason value into the unified
// taxonomy. Values absent from the table default to stop; the raw value is
// traced so an unmapped future status (e.g. a new safety category) is
// visible rather than silently folded away.
func mapFinishReason(ctx context.Context, vendorReason string) ai.FinishReason {
	switch vendorReason {
	case "STOP", "OTHER", "SAFETY", "RECITATION":
		return ai.FinishStop
	case "MAX_TOKENS":
		return ai.FinishLength
	case "TOOL_USE":
		return ai.FinishToolUse
	case "ERROR":
		return ai.FinishError
	default:
		if observer := observability.ObserverFromContext(ctx); observer != nil {
			observer.Trace(ctx, "Unmapped finish reason, defaulting to stop",
				observability.String(observability.AttrLLMVendorFinishReason, vendorReason),
			)
		}
		return ai.FinishStop
	}
}

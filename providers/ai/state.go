package ai

import (
	"encoding/json"
	"strings"

	"github.com/genflow-ai/genflow/internal/utils"
)

// StreamState owns one generation's mutable progress: cumulative content and
// reasoning text, in-flight tool calls with their raw argument buffers, and
// the correlation table from vendor-assigned positional indexes to tool-call
// ids. A StreamState is created at call start, mutated only by that call's
// adapter, and discarded when the call ends; it is never shared between
// generations and needs no locking.
type StreamState struct {
	content   strings.Builder
	reasoning strings.Builder

	// reasoningDelta is the increment added by the current event; it is
	// folded into the next chunk snapshot and cleared.
	reasoningDelta string

	toolCalls  map[string]*ToolCall
	argBuffers map[string]*strings.Builder

	// indexToID correlates vendor positional indexes with tool-call ids.
	// Some vendors send identity and argument fragments in separate events
	// tied together only by position; the table is owned here so correlation
	// never leaks into ambient state.
	indexToID map[int]string

	// callOrder preserves insertion order for chunk snapshots.
	callOrder []string

	hasToolCalls bool
}

// NewStreamState creates the empty state for one generation call.
func NewStreamState() *StreamState {
	return &StreamState{
		toolCalls:  make(map[string]*ToolCall),
		argBuffers: make(map[string]*strings.Builder),
		indexToID:  make(map[int]string),
	}
}

// AddContentDelta appends text to the cumulative content. Content only ever
// grows, by exactly the bytes of each delta, for the lifetime of one state.
func (state *StreamState) AddContentDelta(text string) {
	state.content.WriteString(text)
}

// Content returns the cumulative content accumulated so far.
func (state *StreamState) Content() string {
	return state.content.String()
}

// AddReasoningDelta appends text to the cumulative reasoning output and
// returns the content/delta pair for emission. The delta is also held as the
// pending reasoning increment folded into the next [StreamState.NewChunk].
func (state *StreamState) AddReasoningDelta(text string) Reasoning {
	state.reasoning.WriteString(text)
	state.reasoningDelta = text
	return Reasoning{Content: state.reasoning.String(), Delta: text}
}

// ReasoningContent returns the cumulative reasoning text accumulated so far.
func (state *StreamState) ReasoningContent() string {
	return state.reasoning.String()
}

// InitToolCall registers a new in-flight tool call with an empty argument
// buffer. Registering an id twice is a no-op, so adapters may call it
// defensively when a vendor repeats identity information.
func (state *StreamState) InitToolCall(id, name string) {
	if _, exists := state.toolCalls[id]; exists {
		return
	}

	state.toolCalls[id] = &ToolCall{ID: id, Name: name}
	state.argBuffers[id] = &strings.Builder{}
	state.callOrder = append(state.callOrder, id)
	state.hasToolCalls = true
}

// BindToolCallIndex records that the vendor's positional index refers to the
// tool call with the given id.
func (state *StreamState) BindToolCallIndex(index int, id string) {
	state.indexToID[index] = id
}

// ToolCallIDForIndex resolves a vendor positional index to the tool-call id
// it was bound to, for vendors whose argument fragments carry only an index.
func (state *StreamState) ToolCallIDForIndex(index int) (string, bool) {
	id, ok := state.indexToID[index]
	return id, ok
}

// AddToolCallArgs appends fragment to the call's raw argument buffer and
// attempts to parse the whole buffer as JSON. On success the call's
// Arguments map is replaced with a freshly built value; on failure the
// previous value is left untouched. Partial or invalid fragments are
// expected mid-stream and never produce an error.
func (state *StreamState) AddToolCallArgs(id, fragment string) {
	call, ok := state.toolCalls[id]
	if !ok {
		return
	}

	buffer := state.argBuffers[id]
	buffer.WriteString(fragment)

	// Parse into a fresh map so earlier chunk snapshots sharing the old map
	// are never mutated underneath the consumer.
	var arguments map[string]any
	if err := json.Unmarshal([]byte(buffer.String()), &arguments); err != nil {
		return
	}
	call.Arguments = arguments
}

// SetToolCallArgs replaces the call's arguments with an authoritative final
// string, for protocols that signal "arguments complete" explicitly. The
// final string overrides whatever was accumulated from deltas. Parsing is
// strict first, then repaired (via jsonrepair) for near-valid payloads; if
// both fail the last successfully parsed value is kept.
func (state *StreamState) SetToolCallArgs(id, final string) {
	call, ok := state.toolCalls[id]
	if !ok {
		return
	}

	buffer := state.argBuffers[id]
	buffer.Reset()
	buffer.WriteString(final)

	arguments, err := utils.ParseStringAs[map[string]any](final)
	if err != nil {
		return
	}
	call.Arguments = arguments
}

// HasToolCalls reports whether any tool call has been seen this generation.
func (state *StreamState) HasToolCalls() bool {
	return state.hasToolCalls
}

// NewChunk builds a StreamChunk snapshot combining the current cumulative
// state with this event's delta, optional finish reason, and optional usage.
// The delta must already have been applied via [StreamState.AddContentDelta];
// NewChunk itself never mutates the cumulative content. The snapshot includes
// the in-flight tool calls if any exist and the reasoning pair if any
// reasoning text has accumulated; the pending reasoning delta is consumed by
// the snapshot.
func (state *StreamState) NewChunk(delta string, finishReason FinishReason, usage *Usage) StreamChunk {
	chunk := StreamChunk{
		Content:      state.content.String(),
		Delta:        delta,
		FinishReason: finishReason,
		Usage:        usage,
	}

	if state.hasToolCalls {
		chunk.ToolCalls = state.toolCallSnapshot()
	}

	if state.reasoning.Len() > 0 {
		chunk.Reasoning = &Reasoning{
			Content: state.reasoning.String(),
			Delta:   state.reasoningDelta,
		}
		state.reasoningDelta = ""
	}

	return chunk
}

// toolCallSnapshot copies the in-flight tool calls in insertion order.
// Values are copied so the returned slice is stable even as later fragments
// arrive; Arguments maps are shared but replaced (never mutated) on update.
func (state *StreamState) toolCallSnapshot() []ToolCall {
	snapshot := make([]ToolCall, 0, len(state.callOrder))
	for _, id := range state.callOrder {
		snapshot = append(snapshot, *state.toolCalls[id])
	}
	return snapshot
}

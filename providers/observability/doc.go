// Package observability defines the interfaces and semantic conventions used
// for structured logging and trace annotation throughout the streaming
// engine.
//
// Callers propagate an active [Observer] and [Span] through a
// [context.Context] using [ContextWithObserver] and [ContextWithSpan]; the
// transport and the vendor adapters retrieve them with [ObserverFromContext]
// and [SpanFromContext] and record what they see. When neither is present the
// engine stays silent.
//
// The semconv.go file contains the standard attribute-key and event-name
// constants that should be used when recording observations. The slogobs
// subpackage provides a log/slog-backed [Observer].
package observability

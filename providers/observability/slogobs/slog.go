// Package slogobs implements [observability.Observer] on top of the standard
// library's log/slog package. It is the default observer used by the example
// programs; applications with their own telemetry stack can implement the
// Observer interface directly instead.
package slogobs

import (
	"context"
	"log/slog"

	"github.com/genflow-ai/genflow/providers/observability"
)

// LevelTrace sits below slog.LevelDebug. slog has no native trace level, so
// the observer maps Trace calls to this custom level; handlers configured
// with a higher minimum level drop them.
const LevelTrace = slog.Level(-8)

// Observer adapts a slog.Logger to the [observability.Observer] interface.
type Observer struct {
	logger *slog.Logger
}

// New creates an Observer backed by the given slog.Logger. A nil logger
// falls back to slog.Default().
func New(logger *slog.Logger) *Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Observer{logger: logger}
}

func (observer *Observer) Trace(ctx context.Context, msg string, attrs ...observability.Attribute) {
	observer.logger.Log(ctx, LevelTrace, msg, slogArgs(attrs)...)
}

func (observer *Observer) Debug(ctx context.Context, msg string, attrs ...observability.Attribute) {
	observer.logger.DebugContext(ctx, msg, slogArgs(attrs)...)
}

func (observer *Observer) Info(ctx context.Context, msg string, attrs ...observability.Attribute) {
	observer.logger.InfoContext(ctx, msg, slogArgs(attrs)...)
}

func (observer *Observer) Warn(ctx context.Context, msg string, attrs ...observability.Attribute) {
	observer.logger.WarnContext(ctx, msg, slogArgs(attrs)...)
}

func (observer *Observer) Error(ctx context.Context, msg string, attrs ...observability.Attribute) {
	observer.logger.ErrorContext(ctx, msg, slogArgs(attrs)...)
}

// slogArgs converts observability attributes to alternating key/value args
// in the form slog.Logger expects.
func slogArgs(attrs []observability.Attribute) []any {
	args := make([]any, 0, len(attrs)*2)
	for _, attr := range attrs {
		args = append(args, attr.Key, attr.Value)
	}
	return args
}

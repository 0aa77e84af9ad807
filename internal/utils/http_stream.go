package utils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand/v2"
	"net/http"
	"time"

	"github.com/genflow-ai/genflow/providers/observability"
)

// maxResponseBodySize is the maximum error response body size (10 MB).
// Enforced via io.LimitReader to prevent unbounded memory allocation from
// rogue responses.
const maxResponseBodySize int64 = 10 * 1024 * 1024

// Backoff tuning for the retry loop. Each failed attempt waits
// min(retryInitialBackoff * 2^attempt, retryMaxBackoff) plus up to 10%
// jitter before the request is reissued.
const (
	retryInitialBackoff = 500 * time.Millisecond
	retryMaxBackoff     = 10 * time.Second
	retryJitterFraction = 0.1
)

// HeaderOption is a single static header applied to the outgoing request.
// Options are applied after the defaults, so they can override Content-Type
// or the Authorization header when a vendor authenticates differently.
type HeaderOption struct {
	Key   string
	Value string
}

// StreamConfig carries the transport-level knobs for a streaming POST.
// The zero value means: one attempt, no connect deadline, no extra headers.
type StreamConfig struct {
	// MaxAttempts is the total number of times the request is issued before
	// the last attempt's error is surfaced. Values below 1 are treated as 1.
	MaxAttempts int

	// ConnectTimeout bounds the time until response headers arrive. It does
	// not bound reads of the open body: once the stream has started flowing,
	// only the caller's context can end it.
	ConnectTimeout time.Duration

	// Headers are static headers set on every attempt.
	Headers []HeaderOption

	// HeaderHook, when non-nil, is invoked with the request headers after
	// defaults and Headers have been applied, allowing per-request mutation
	// (request IDs, tracing headers, rotated credentials).
	HeaderHook func(http.Header)
}

// DoPostStream performs an HTTP POST request and returns the raw response
// with the body left open for SSE reading. The caller is responsible for
// closing the response body when done. On error paths the body is read and
// closed before returning.
//
// The whole request is reissued on any failure (network error or non-2xx
// status) up to cfg.MaxAttempts times, with exponential backoff between
// attempts; the error from the final attempt is the one surfaced. Context
// cancellation short-circuits the retry loop immediately.
func DoPostStream(ctx context.Context, client *http.Client, url string, apiKey string, body any, cfg StreamConfig) (*http.Response, error) {
	span := observability.SpanFromContext(ctx)
	observer := observability.ObserverFromContext(ctx)

	httpClient := client
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("error marshaling body: %w", err)
	}

	if span != nil {
		span.AddEvent("http.stream_request.prepared",
			observability.String(observability.AttrHTTPMethod, "POST"),
			observability.String(observability.AttrHTTPURL, url),
			observability.Int(observability.AttrHTTPRequestBodySize, len(jsonBody)),
		)
	}

	var lastErr error

	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			// Respect context cancellation between attempts.
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(computeBackoff(attempt - 1)):
			}

			if observer != nil {
				observer.Trace(ctx, "Retrying streaming request",
					observability.String(observability.AttrHTTPURL, url),
					observability.Int("http.retry.attempt", attempt),
					observability.Error(lastErr),
				)
			}
		}

		response, attemptErr := doStreamAttempt(ctx, httpClient, url, apiKey, jsonBody, cfg, span)
		if attemptErr == nil {
			return response, nil
		}

		// Context errors are not retryable; the caller gave up.
		if ctx.Err() != nil {
			return nil, attemptErr
		}

		lastErr = attemptErr
	}

	return nil, lastErr
}

// doStreamAttempt issues a single streaming POST. The connect timeout is
// enforced with a timer that cancels the request context only until response
// headers arrive; after that the open body is governed by the caller's
// context alone, and the per-attempt cancel is deferred to body close.
func doStreamAttempt(ctx context.Context, client *http.Client, url string, apiKey string, jsonBody []byte, cfg StreamConfig, span observability.Span) (*http.Response, error) {
	reqCtx, cancel := context.WithCancel(ctx)

	req, err := http.NewRequestWithContext(reqCtx, "POST", url, bytes.NewReader(jsonBody))
	if err != nil {
		cancel()
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	// Apply custom headers (can override Authorization if needed).
	for _, header := range cfg.Headers {
		req.Header.Set(header.Key, header.Value)
	}
	if cfg.HeaderHook != nil {
		cfg.HeaderHook(req.Header)
	}

	// Arm the connect deadline: it aborts the attempt only while waiting for
	// response headers, never an already-flowing stream.
	var connectTimer *time.Timer
	if cfg.ConnectTimeout > 0 {
		connectTimer = time.AfterFunc(cfg.ConnectTimeout, cancel)
	}

	requestStart := time.Now()
	response, err := client.Do(req)
	requestDuration := time.Since(requestStart)

	if connectTimer != nil {
		connectTimer.Stop()
	}

	if err != nil {
		cancel()
		if span != nil {
			span.AddEvent("http.stream_request.error",
				observability.Error(err),
				observability.Duration("http.request.duration", requestDuration),
			)
		}
		return nil, fmt.Errorf("error sending stream request: %w", err)
	}

	// For non-2xx responses, read the body and close it before returning the error.
	if response.StatusCode < 200 || response.StatusCode >= 300 {
		defer cancel()
		defer CloseWithLog(response.Body)
		// Cap body reads to maxResponseBodySize to prevent unbounded memory allocation.
		errorBody, readErr := io.ReadAll(io.LimitReader(response.Body, maxResponseBodySize))
		if readErr != nil {
			return nil, fmt.Errorf("non-2xx status %d (failed to read body: %v)", response.StatusCode, readErr)
		}
		return nil, fmt.Errorf("non-2xx status %d: %s", response.StatusCode, string(errorBody))
	}

	if response.Body == nil || response.Body == http.NoBody {
		cancel()
		return nil, fmt.Errorf("status %d with empty response body", response.StatusCode)
	}

	if span != nil {
		span.AddEvent("http.stream_response.started",
			observability.Int(observability.AttrHTTPStatusCode, response.StatusCode),
			observability.Duration("http.request.duration", requestDuration),
		)
	}

	// Release the per-attempt request context when the caller closes the body.
	response.Body = &cancelOnCloseBody{ReadCloser: response.Body, cancel: cancel}

	return response, nil
}

// cancelOnCloseBody ties the per-attempt request context to the response
// body, so abandoning the stream releases the underlying connection.
type cancelOnCloseBody struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (body *cancelOnCloseBody) Close() error {
	defer body.cancel()
	return body.ReadCloser.Close()
}

// computeBackoff returns the wait before reissuing after failed attempt
// number attempt (0-indexed).
func computeBackoff(attempt int) time.Duration {
	base := float64(retryInitialBackoff) * math.Pow(2, float64(attempt))
	if base > float64(retryMaxBackoff) {
		base = float64(retryMaxBackoff)
	}

	jitter := base * retryJitterFraction * rand.Float64() //nolint:gosec // non-cryptographic jitter is intentional
	return time.Duration(base + jitter)
}

// CloseWithLog closes closer and logs any close error without propagating it.
// Used in defers where a primary error must take precedence.
func CloseWithLog(closer io.Closer) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		slog.Warn("failed to close response body", "error", err.Error())
	}
}

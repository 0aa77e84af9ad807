// Package utils provides the shared low-level transport helpers used by every
// provider: streaming HTTP POST with retry and connect-timeout handling,
// incremental byte-to-line decoding, SSE event-frame extraction, and lenient
// JSON parsing.
//
// Key entry points: [DoPostStream] together with [SSEScanner] for
// Server-Sent Events streaming, [LineScanner] for raw line decoding, and
// [ParseStringAs] for strict-then-repaired JSON parsing.
//
// Nothing in this package knows about any vendor's event schema. Providers
// compose [DoPostStream] + [SSEScanner] and interpret the resulting payload
// strings themselves.
package utils

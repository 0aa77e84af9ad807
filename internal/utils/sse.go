package utils

import (
	"io"
	"strings"
)

// doneSentinel is the textual end-of-stream marker used by the OpenAI family
// of APIs. Anthropic and Gemini close the connection instead of sending a
// sentinel, so detection is optional (see [WithDoneSentinel]).
const doneSentinel = "[DONE]"

// SSEScanner reads Server-Sent Events from an io.Reader. It filters the line
// stream down to the payload of "data:" lines, skipping blank lines, comment
// lines, and non-data fields. Consecutive data lines belonging to one event
// are joined with newlines at the blank-line event boundary.
//
// Decoding is stateless across events: re-scanning the same line sequence
// yields the same payload sequence.
type SSEScanner struct {
	lines          *LineScanner
	detectSentinel bool
}

// SSEOption configures an SSEScanner.
type SSEOption func(*SSEScanner)

// WithDoneSentinel makes the scanner treat a "[DONE]" data payload as end of
// stream (io.EOF). OpenAI-compatible endpoints require this; vendors that
// simply close the connection do not send the sentinel and can leave it off.
func WithDoneSentinel() SSEOption {
	return func(scanner *SSEScanner) {
		scanner.detectSentinel = true
	}
}

// NewSSEScanner creates an SSEScanner reading SSE events from reader.
// Individual lines are capped at 1 MB (see [LineScanner]).
func NewSSEScanner(reader io.Reader, options ...SSEOption) *SSEScanner {
	scanner := &SSEScanner{lines: NewLineScanner(reader)}
	for _, option := range options {
		option(scanner)
	}
	return scanner
}

// Next returns the next SSE data payload as a string.
// It skips empty lines, comment lines (starting with ':'), and other SSE
// fields (event:, id:, retry:). Returns io.EOF when the stream ends, and —
// when sentinel detection is enabled — when the "[DONE]" sentinel arrives.
//
// Multi-line data fields (multiple consecutive "data:" lines) are joined with
// newlines into a single payload string.
func (scanner *SSEScanner) Next() (string, error) {
	var dataLines []string

	for {
		line, err := scanner.lines.Next()
		if err == io.EOF {
			// Flush any data lines pending when the stream closes mid-event.
			if len(dataLines) > 0 {
				return strings.Join(dataLines, "\n"), nil
			}
			return "", io.EOF
		}
		if err != nil {
			return "", err
		}

		// Empty line signals end of an event; flush accumulated data lines.
		if line == "" {
			if len(dataLines) > 0 {
				return strings.Join(dataLines, "\n"), nil
			}
			continue
		}

		// Skip SSE comments.
		if strings.HasPrefix(line, ":") {
			continue
		}

		if strings.HasPrefix(line, "data:") {
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))

			if scanner.detectSentinel && data == doneSentinel {
				return "", io.EOF
			}

			dataLines = append(dataLines, data)
			continue
		}

		// Ignore other SSE fields (event:, id:, retry:).
	}
}

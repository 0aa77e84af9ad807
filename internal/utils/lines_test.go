package utils

import (
	"io"
	"strings"
	"testing"
	"testing/iotest"
)

// collectLines drains a LineScanner and returns every decoded line.
func collectLines(t *testing.T, scanner *LineScanner) []string {
	t.Helper()

	var lines []string
	for {
		line, err := scanner.Next()
		if err == io.EOF {
			return lines
		}
		if err != nil {
			t.Fatalf("Next returned unexpected error: %v", err)
		}
		lines = append(lines, line)
	}
}

// TestLineScanner_SplitsOnNewlines verifies basic line decoding including an
// empty line between records.
func TestLineScanner_SplitsOnNewlines(t *testing.T) {
	scanner := NewLineScanner(strings.NewReader("alpha\nbeta\n\ngamma\n"))

	lines := collectLines(t, scanner)
	expected := []string{"alpha", "beta", "", "gamma"}

	if len(lines) != len(expected) {
		t.Fatalf("expected %d lines, got %d: %q", len(expected), len(lines), lines)
	}
	for i, line := range expected {
		if lines[i] != line {
			t.Errorf("line %d: expected %q, got %q", i, line, lines[i])
		}
	}
}

// TestLineScanner_CarryOverAcrossReads verifies that a line split over many
// read boundaries is reassembled. OneByteReader forces the worst case: every
// read delivers a single byte.
func TestLineScanner_CarryOverAcrossReads(t *testing.T) {
	reader := iotest.OneByteReader(strings.NewReader("data: hello\ndata: world\n"))
	scanner := NewLineScanner(reader)

	lines := collectLines(t, scanner)
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), lines)
	}
	if lines[0] != "data: hello" || lines[1] != "data: world" {
		t.Errorf("unexpected lines: %q", lines)
	}
}

// TestLineScanner_FlushesTrailingPartialLine verifies that a final line
// without a terminating newline is yielded when the stream ends.
func TestLineScanner_FlushesTrailingPartialLine(t *testing.T) {
	scanner := NewLineScanner(strings.NewReader("complete\npartial"))

	lines := collectLines(t, scanner)
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d: %q", len(lines), lines)
	}
	if lines[1] != "partial" {
		t.Errorf("expected trailing partial line to flush, got %q", lines[1])
	}
}

// TestLineScanner_TrimsCarriageReturns verifies CRLF line endings decode the
// same as bare LF.
func TestLineScanner_TrimsCarriageReturns(t *testing.T) {
	scanner := NewLineScanner(strings.NewReader("one\r\ntwo\r\n"))

	lines := collectLines(t, scanner)
	if len(lines) != 2 || lines[0] != "one" || lines[1] != "two" {
		t.Errorf("unexpected lines: %q", lines)
	}
}

// TestLineScanner_EmptyStream verifies immediate EOF on an empty reader.
func TestLineScanner_EmptyStream(t *testing.T) {
	scanner := NewLineScanner(strings.NewReader(""))

	if _, err := scanner.Next(); err != io.EOF {
		t.Fatalf("expected io.EOF, got %v", err)
	}
	// EOF must be sticky.
	if _, err := scanner.Next(); err != io.EOF {
		t.Fatalf("expected io.EOF on second call, got %v", err)
	}
}

// TestLineScanner_OversizedLine verifies the per-line size cap surfaces an
// error instead of buffering without bound.
func TestLineScanner_OversizedLine(t *testing.T) {
	huge := strings.Repeat("x", maxLineSize+2)
	scanner := NewLineScanner(strings.NewReader(huge))

	_, err := scanner.Next()
	if err == nil || err == io.EOF {
		t.Fatalf("expected size-cap error, got %v", err)
	}
}

package utils

import (
	"bytes"
	"fmt"
	"io"
)

// maxLineSize is the maximum size of a single decoded line (1 MB). The
// default bufio limits are too small for large SSE events such as tool-call
// arguments or long completions. A line exceeding this limit surfaces as an
// error from [LineScanner.Next].
const maxLineSize = 1 * 1024 * 1024

// lineReadChunkSize is the size of each raw read issued against the
// underlying stream. Reads are incremental so that a line is yielded as soon
// as its terminating newline arrives, regardless of how the network fragments
// the byte stream.
const lineReadChunkSize = 4 * 1024

// LineScanner decodes an io.Reader into complete text lines. It maintains a
// carry-over buffer across read boundaries, so a line split over multiple
// network chunks is reassembled and yielded once its newline arrives. A
// trailing line without a final newline is flushed when the stream ends.
//
// Line endings may be "\n" or "\r\n"; the terminator is never included in the
// yielded line.
type LineScanner struct {
	reader io.Reader
	carry  bytes.Buffer // bytes received but not yet terminated by a newline
	chunk  []byte
	err    error
}

// NewLineScanner creates a LineScanner reading from reader.
func NewLineScanner(reader io.Reader) *LineScanner {
	return &LineScanner{
		reader: reader,
		chunk:  make([]byte, lineReadChunkSize),
	}
}

// Next returns the next complete line. It returns io.EOF once the underlying
// stream is exhausted and any trailing partial line has been flushed. Any
// other error comes from the underlying reader or the per-line size cap.
func (scanner *LineScanner) Next() (string, error) {
	for {
		// Yield a buffered line if one is already complete.
		if line, ok := scanner.takeLine(); ok {
			return line, nil
		}

		if scanner.err != nil {
			// Flush the trailing partial line before surfacing EOF.
			if scanner.err == io.EOF && scanner.carry.Len() > 0 {
				line := scanner.carry.String()
				scanner.carry.Reset()
				return trimCarriageReturn(line), nil
			}
			return "", scanner.err
		}

		if scanner.carry.Len() > maxLineSize {
			scanner.err = fmt.Errorf("line exceeds %d bytes", maxLineSize)
			return "", scanner.err
		}

		read, readErr := scanner.reader.Read(scanner.chunk)
		if read > 0 {
			scanner.carry.Write(scanner.chunk[:read])
		}
		if readErr != nil {
			scanner.err = readErr
		}
	}
}

// takeLine splits one complete line off the front of the carry-over buffer.
func (scanner *LineScanner) takeLine() (string, bool) {
	data := scanner.carry.Bytes()
	newlineIndex := bytes.IndexByte(data, '\n')
	if newlineIndex < 0 {
		return "", false
	}

	line := string(data[:newlineIndex])
	scanner.carry.Next(newlineIndex + 1)
	return trimCarriageReturn(line), true
}

func trimCarriageReturn(line string) string {
	if len(line) > 0 && line[len(line)-1] == '\r' {
		return line[:len(line)-1]
	}
	return line
}

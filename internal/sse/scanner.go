// Package sse provides Server-Sent Events support: a Scanner for reading
// upstream SSE streams and a Writer for producing them to HTTP clients.
package sse

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// maxLineSize is the maximum size of a single SSE line (1 MB). The default
// bufio.Scanner limit of 64 KiB is too small for large completion chunks.
const maxLineSize = 1 * 1024 * 1024

// Scanner reads Server-Sent Events from an io.Reader. It handles multi-line
// data fields, skips comments and empty lines, and treats the [DONE]
// sentinel used by OpenAI-compatible APIs as end of stream.
type Scanner struct {
	scanner *bufio.Scanner
}

// NewScanner creates a Scanner reading SSE events from r. Lines exceeding
// maxLineSize cause Next to return an error wrapping bufio.ErrTooLong.
func NewScanner(r io.Reader) *Scanner {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	return &Scanner{scanner: scanner}
}

// Next returns the next SSE data payload. Multiple consecutive "data:" lines
// of one event are joined with newlines. Returns io.EOF at end of stream and
// on the [DONE] sentinel.
func (s *Scanner) Next() (string, error) {
	var dataLines []string

	for s.scanner.Scan() {
		line := s.scanner.Text()

		// Empty line terminates an event; flush accumulated data lines.
		if line == "" {
			if len(dataLines) > 0 {
				return strings.Join(dataLines, "\n"), nil
			}
			continue
		}

		// SSE comment
		if strings.HasPrefix(line, ":") {
			continue
		}

		if strings.HasPrefix(line, "data:") {
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			if data == "[DONE]" {
				return "", io.EOF
			}
			dataLines = append(dataLines, data)
			continue
		}

		// Other SSE fields (event:, id:, retry:) are ignored.
	}

	if err := s.scanner.Err(); err != nil {
		return "", fmt.Errorf("sse scanner: %w", err)
	}

	if len(dataLines) > 0 {
		return strings.Join(dataLines, "\n"), nil
	}
	return "", io.EOF
}

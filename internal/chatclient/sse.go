package chatclient

import (
	"bufio"
	"bytes"
	"io"
)

// Event is one parsed server-sent event.
type Event struct {
	Name string
	Data []byte
}

// SSEReader parses named server-sent events from a stream.
type SSEReader struct {
	reader *bufio.Reader
}

// NewSSEReader creates a new SSE reader from an io.Reader.
func NewSSEReader(r io.Reader) *SSEReader {
	return &SSEReader{reader: bufio.NewReader(r)}
}

// ReadEvent reads the next event from the stream. Multi-line data fields
// are joined with newlines, per the SSE framing rules. Comment lines and
// unknown fields (id:, retry:) are skipped. Returns io.EOF when the
// stream ends.
func (s *SSEReader) ReadEvent() (Event, error) {
	var name string
	var dataLines [][]byte

	for {
		line, err := s.reader.ReadBytes('\n')
		if err != nil {
			if err == io.EOF && len(dataLines) > 0 {
				return Event{Name: name, Data: bytes.Join(dataLines, []byte("\n"))}, nil
			}
			return Event{}, err
		}

		line = bytes.TrimRight(line, "\r\n")

		// Blank line terminates the event.
		if len(line) == 0 {
			if len(dataLines) > 0 || name != "" {
				return Event{Name: name, Data: bytes.Join(dataLines, []byte("\n"))}, nil
			}
			continue
		}

		switch {
		case bytes.HasPrefix(line, []byte("event:")):
			name = string(bytes.TrimSpace(line[6:]))
		case bytes.HasPrefix(line, []byte("data:")):
			dataLines = append(dataLines, bytes.TrimSpace(line[5:]))
		}
	}
}

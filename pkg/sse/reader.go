package sse

import (
	"bufio"
	"io"
	"strings"
)

// TeeReader reads SSE events from a source io.Reader while simultaneously
// writing all raw bytes verbatim to a destination io.Writer.
// This effectively enables "tee" shaped reading where TeeReader.Next
// returns the Event for consumption while writing to a separate destination.
//
// ┌──────────────────┐
// │ source io.Reader │
// └──────────────────┘
// │
// ▼
// ┌──────────────────┐   ┌───────────────────────┐
// │ TeeReader.Next() │──▶│ destination io.Writer │
// └──────────────────┘   └───────────────────────┘
// │
// ▼
// ┌──────────────────┐
// │      Event       │
// └──────────────────┘
//
// The destination receives each upstream read as it arrives, byte for byte
// (including "\r\n" line endings), before the events inside it are parsed.
type TeeReader struct {
	scanner *bufio.Scanner

	// current accumulates fields for the event being built in the current scan.
	current *Event
	hasData bool
}

// NewTeeReader returns a Reader that parses SSE events from the src io.Reader
// and writes all raw bytes through to dest.
// The dest writer typically backs an io.Pipe connected to the downstream HTTP
// response. A failed write to dest surfaces as the error of Next.
func NewTeeReader(src io.Reader, dest io.Writer) *TeeReader {
	scanner := bufio.NewScanner(io.TeeReader(src, dest))
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	return &TeeReader{
		scanner: scanner,
		current: &Event{},
	}
}

// Next returns the next parsed SSE event. It blocks until a complete event
// is available (terminated by a blank line in the stream).
// Next returns nil, nil when the source is exhausted.
func (r *TeeReader) Next() (*Event, error) {
	for r.scanner.Scan() {
		raw := r.scanner.Text()

		if raw == "" {
			if r.hasData {
				ev := r.current
				r.reset()
				return ev, nil
			}
			// keep-alive newline
			continue
		}

		if strings.HasPrefix(raw, ":") {
			continue
		}

		r.parseLine(raw)
	}

	if err := r.scanner.Err(); err != nil {
		return nil, err
	}

	// Stream ended without a trailing blank line.
	if r.hasData {
		ev := r.current
		r.reset()
		return ev, nil
	}

	return nil, nil
}

// parseLine accumulates one "field:value" line into the current event. The
// first space after the colon is optional and stripped if present.
func (r *TeeReader) parseLine(line string) {
	field, value, ok := strings.Cut(line, ":")
	if ok {
		value = strings.TrimPrefix(value, " ")
	} else {
		field = line
	}

	switch field {
	case "data":
		if r.hasData && r.current.Data != "" {
			r.current.Data += "\n"
		}
		r.current.Data += value
		r.hasData = true
	case "event":
		r.current.Type = value
		r.hasData = true
	case "id":
		r.current.ID = value
		r.hasData = true
	}
}

func (r *TeeReader) reset() {
	r.current = &Event{}
	r.hasData = false
}

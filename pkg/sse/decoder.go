package sse

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/tidwall/gjson"

	"github.com/campusai/campus/pkg/apierr"
)

// FrameKind classifies a single line of a completion stream.
type FrameKind int

const (
	// FrameIgnore is a blank line, a comment, or a non-data field.
	FrameIgnore FrameKind = iota
	// FrameData is a "data: " line carrying a JSON payload.
	FrameData
	// FrameDone is the "data: [DONE]" terminator.
	FrameDone
)

// Frame is one classified stream line.
type Frame struct {
	Kind    FrameKind
	Payload string
}

// ParseLine classifies one line of a completion stream. A trailing "\r" is
// stripped; the data payload is trimmed of surrounding whitespace.
func ParseLine(line string) Frame {
	line = strings.TrimSuffix(line, "\r")
	if strings.TrimSpace(line) == "" || strings.HasPrefix(line, ":") {
		return Frame{Kind: FrameIgnore}
	}
	payload, ok := strings.CutPrefix(line, "data: ")
	if !ok {
		return Frame{Kind: FrameIgnore}
	}
	payload = strings.TrimSpace(payload)
	if payload == DonePayload {
		return Frame{Kind: FrameDone}
	}
	return Frame{Kind: FrameData, Payload: payload}
}

// Decoder incrementally rebuilds assistant deltas from an OpenAI-compatible
// completion stream. Bytes may be fed in arbitrary pieces: a multi-byte
// character split across reads is held back until complete, and a data line
// that is not yet valid JSON is kept in the buffer until more bytes arrive.
//
// A Decoder is not safe for concurrent use.
type Decoder struct {
	buf   string
	carry []byte
	done  bool
}

// NewDecoder returns an empty Decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Done reports whether the [DONE] terminator has been seen. Once done, the
// decoder ignores all further input.
func (d *Decoder) Done() bool {
	return d.done
}

// Buffered returns the decoded text not yet consumed as complete lines.
func (d *Decoder) Buffered() string {
	return d.buf
}

// Feed consumes the next piece of the stream and returns the non-empty
// deltas it completed, in order.
func (d *Decoder) Feed(p []byte) []string {
	if d.done {
		return nil
	}
	d.buf += d.decode(p)
	return d.drain()
}

// Finish is called at end of stream. It flushes any held-back bytes and
// processes a final line that lacked a trailing newline. Text that still
// cannot be parsed is reported as a malformed stream frame; deltas decoded
// before it are returned alongside the error.
func (d *Decoder) Finish() ([]string, error) {
	if d.done {
		return nil, nil
	}
	if len(d.carry) > 0 {
		d.buf += strings.ToValidUTF8(string(d.carry), string(utf8.RuneError))
		d.carry = nil
	}

	deltas := d.drain()
	if d.done {
		d.buf = ""
		return deltas, nil
	}

	rest := d.buf
	d.buf = ""
	if strings.TrimSpace(rest) == "" {
		return deltas, nil
	}

	for _, line := range strings.Split(rest, "\n") {
		frame := ParseLine(line)
		switch frame.Kind {
		case FrameIgnore:
			continue
		case FrameDone:
			d.done = true
			return deltas, nil
		}
		if !gjson.Valid(frame.Payload) {
			return deltas, apierr.Wrap(apierr.KindMalformedStreamFrame,
				fmt.Errorf("unparseable frame at end of stream: %q", frame.Payload))
		}
		if delta := deltaContent(frame.Payload); delta != "" {
			deltas = append(deltas, delta)
		}
	}
	return deltas, nil
}

// drain processes every complete line in the buffer. An unparseable data
// line is pushed back, with its newline, and processing stops until the
// next Feed.
func (d *Decoder) drain() []string {
	var deltas []string
	for !d.done {
		idx := strings.IndexByte(d.buf, '\n')
		if idx < 0 {
			break
		}
		line := d.buf[:idx]
		d.buf = d.buf[idx+1:]

		frame := ParseLine(line)
		switch frame.Kind {
		case FrameIgnore:
			continue
		case FrameDone:
			d.done = true
			d.buf = ""
			continue
		}

		if !gjson.Valid(frame.Payload) {
			d.buf = strings.TrimSuffix(line, "\r") + "\n" + d.buf
			break
		}
		if delta := deltaContent(frame.Payload); delta != "" {
			deltas = append(deltas, delta)
		}
	}
	return deltas
}

// decode converts p to text, holding back an incomplete trailing UTF-8
// sequence for the next call. Invalid bytes become U+FFFD.
func (d *Decoder) decode(p []byte) string {
	data := p
	if len(d.carry) > 0 {
		data = append(d.carry, p...)
		d.carry = nil
	}

	if n := incompleteSuffix(data); n > 0 {
		d.carry = append([]byte(nil), data[len(data)-n:]...)
		data = data[:len(data)-n]
	}
	return strings.ToValidUTF8(string(data), string(utf8.RuneError))
}

// incompleteSuffix returns the length of a truncated multi-byte sequence at
// the end of b, or 0.
func incompleteSuffix(b []byte) int {
	for i := 1; i < utf8.UTFMax && i <= len(b); i++ {
		c := b[len(b)-i]
		if !utf8.RuneStart(c) {
			continue
		}
		if c >= utf8.RuneSelf && !utf8.FullRune(b[len(b)-i:]) {
			return i
		}
		return 0
	}
	return 0
}

// Package sse provides the two halves of the campus chat stream: a tee-reader
// the gateway uses to relay an upstream SSE (Server-Sent Events) byte stream
// verbatim while observing its events, and a Decoder clients use to rebuild
// assistant deltas from that stream across arbitrary read boundaries.
//
// This package intentionally does NOT provide SSE writer or server
// capabilities.
//
// See the SSE specification:
// https://html.spec.whatwg.org/multipage/server-sent-events.html
package sse

import (
	"strings"

	"github.com/tidwall/gjson"
)

// DonePayload is the data payload that terminates a completion stream.
const DonePayload = "[DONE]"

// deltaPath locates the incremental text in an OpenAI-compatible chunk.
const deltaPath = "choices.0.delta.content"

// Event represents a single parsed SSE event, delimited by a blank line
// in the upstream byte stream.
type Event struct {
	// Type is the SSE event type from the "event:" field.
	// An empty string means the default "message" type per the SSE spec.
	Type string

	// Data is the concatenated contents of all "data:" lines for this event,
	// joined with "\n" (per the SSE spec, multiple data fields are joined
	// with a single newline).
	Data string

	// ID is the last event ID from the "id:" field, if present.
	ID string
}

// IsDone reports whether the event is the stream terminator.
func (e *Event) IsDone() bool {
	return strings.TrimSpace(e.Data) == DonePayload
}

// Delta returns choices[0].delta.content of the event's JSON payload, or ""
// when the payload carries no content.
func (e *Event) Delta() string {
	return deltaContent(e.Data)
}

func deltaContent(payload string) string {
	res := gjson.Get(payload, deltaPath)
	if res.Type != gjson.String {
		return ""
	}
	return res.Str
}

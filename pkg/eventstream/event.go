// Package eventstream publishes gateway telemetry to an event stream.
// Events never carry message content.
package eventstream

import (
	"time"

	"github.com/google/uuid"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeRelayCompleted is emitted after a gateway request finishes.
	EventTypeRelayCompleted = "campus.relay.completed"
)

// RelayCompletedEvent is a transport-neutral event payload for one
// finished gateway request.
type RelayCompletedEvent struct {
	SchemaVersion int          `json:"schema_version"`
	EventType     string       `json:"event_type"`
	EventID       string       `json:"event_id"`
	EmittedAt     time.Time    `json:"emitted_at"`
	Source        EventSource  `json:"source"`
	RequestMeta   RelayRequest `json:"request_meta"`
	Stream        RelayStream  `json:"stream"`
}

// EventSource identifies who made the request.
type EventSource struct {
	Subject string `json:"subject,omitempty"`
	Role    string `json:"role,omitempty"`
	Persona string `json:"persona,omitempty"`
	Model   string `json:"model,omitempty"`
}

// RelayRequest captures request lifecycle metadata for the event.
type RelayRequest struct {
	RequestID   string    `json:"request_id,omitempty"`
	Path        string    `json:"path,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	CompletedAt time.Time `json:"completed_at"`
	DurationMs  int64     `json:"duration_ms"`
	Streaming   bool      `json:"streaming"`
	HTTPStatus  int       `json:"http_status"`
	ErrorCode   string    `json:"error_code,omitempty"`
}

// RelayStream summarizes the relayed stream.
type RelayStream struct {
	Deltas    int   `json:"deltas"`
	Bytes     int64 `json:"bytes"`
	SawDone   bool  `json:"saw_done"`
	Cancelled bool  `json:"cancelled,omitempty"`
}

// NewRelayCompletedEvent stamps a new event with an ID and emission time.
func NewRelayCompletedEvent(source EventSource, req RelayRequest, stream RelayStream) *RelayCompletedEvent {
	return &RelayCompletedEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeRelayCompleted,
		EventID:       "evt_" + uuid.NewString(),
		EmittedAt:     time.Now().UTC(),
		Source:        source,
		RequestMeta:   req,
		Stream:        stream,
	}
}

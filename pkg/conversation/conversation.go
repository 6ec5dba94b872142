// Package conversation holds the client-side state of one chat view: the
// visible message list and the state of the in-flight assistant turn.
//
// A turn is either Idle or Streaming. While Streaming, every delta grows a
// single assistant message at the end of the list, so a turn produces at
// most one assistant message regardless of how many deltas arrive.
package conversation

import (
	"errors"
	"strings"
	"sync"

	"github.com/campusai/campus/pkg/llm"
)

var (
	// ErrTurnInProgress is returned by Begin while a turn is streaming.
	ErrTurnInProgress = errors.New("a response is already streaming")

	// ErrNoTurn is returned when a delta arrives with no turn in progress.
	ErrNoTurn = errors.New("no turn in progress")

	// ErrEmptyMessage is returned by Begin for blank input.
	ErrEmptyMessage = errors.New("message is empty")
)

// State is the state of the current assistant turn.
type State int

const (
	Idle State = iota
	Streaming
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Streaming:
		return "streaming"
	default:
		return "unknown"
	}
}

// Turn is the in-flight assistant turn.
type Turn struct {
	State State

	// acc accumulates every delta of the turn in arrival order.
	acc strings.Builder

	// index of the assistant message in the view, or -1 before the first
	// non-empty delta.
	index int
}

// Content returns the text accumulated so far.
func (t *Turn) Content() string {
	return t.acc.String()
}

// View is the message list of one chat session. It is safe for concurrent
// use: a stream consumer may append deltas while a renderer reads Messages.
type View struct {
	mu       sync.RWMutex
	messages []llm.ChatMessage
	turn     Turn
	lastErr  error
}

// NewView returns an empty, idle view.
func NewView() *View {
	return &View{turn: Turn{index: -1}}
}

// Begin appends the user's message and starts a streaming turn. It returns
// the history to send upstream, including the new message.
func (v *View) Begin(text string) ([]llm.ChatMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	if v.turn.State == Streaming {
		return nil, ErrTurnInProgress
	}

	v.messages = append(v.messages, llm.NewTextMessage(llm.RoleUser, text))
	v.turn = Turn{State: Streaming, index: -1}
	v.lastErr = nil

	return v.snapshot(), nil
}

// Append adds a delta to the streaming turn and returns the accumulated
// assistant content. The first non-empty delta appends the assistant
// message; later deltas replace its content.
func (v *View) Append(delta string) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.turn.State != Streaming {
		return "", ErrNoTurn
	}
	if delta == "" {
		return v.turn.Content(), nil
	}

	v.turn.acc.WriteString(delta)
	content := v.turn.Content()

	if v.turn.index < 0 {
		v.messages = append(v.messages, llm.NewTextMessage(llm.RoleAssistant, content))
		v.turn.index = len(v.messages) - 1
	} else {
		v.messages[v.turn.index].Content = content
	}
	return content, nil
}

// Commit ends the streaming turn and returns the final assistant content.
// A turn that received no content leaves no assistant message behind.
func (v *View) Commit() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.finish(nil)
}

// Abort ends the streaming turn because of err. Content received so far
// stays visible.
func (v *View) Abort(err error) string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.finish(err)
}

func (v *View) finish(err error) string {
	if v.turn.State != Streaming {
		return ""
	}
	content := v.turn.Content()
	v.turn = Turn{index: -1}
	v.lastErr = err
	return content
}

// State returns the state of the current turn.
func (v *View) State() State {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.turn.State
}

// Err returns the error that aborted the most recent turn, if any.
func (v *View) Err() error {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.lastErr
}

// Messages returns a copy of the visible message list.
func (v *View) Messages() []llm.ChatMessage {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.snapshot()
}

// Reset clears the view. It fails while a turn is streaming.
func (v *View) Reset() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.turn.State == Streaming {
		return ErrTurnInProgress
	}
	v.messages = nil
	v.lastErr = nil
	return nil
}

// Restore replaces the message list with messages, e.g. a saved transcript.
// It fails while a turn is streaming.
func (v *View) Restore(messages []llm.ChatMessage) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.turn.State == Streaming {
		return ErrTurnInProgress
	}
	v.messages = make([]llm.ChatMessage, len(messages))
	copy(v.messages, messages)
	v.lastErr = nil
	return nil
}

func (v *View) snapshot() []llm.ChatMessage {
	out := make([]llm.ChatMessage, len(v.messages))
	copy(out, v.messages)
	return out
}

package testutils

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"

	"github.com/campusai/campus/pkg/llm"
)

// Upstream is a fake OpenAI-compatible completion API backed by httptest.
// Streamed requests receive Chunks verbatim, one flushed write per entry;
// non-streamed requests receive Completion as the first choice.
type Upstream struct {
	Server *httptest.Server

	mu         sync.Mutex
	status     int
	errorBody  string
	chunks     []string
	completion string
	requests   []llm.CompletionRequest
	headers    []http.Header
}

// NewUpstream starts a fake upstream. Close it when done.
func NewUpstream() *Upstream {
	u := &Upstream{}
	u.Server = httptest.NewServer(http.HandlerFunc(u.handle))
	return u
}

// URL returns the API root to configure clients with.
func (u *Upstream) URL() string {
	return u.Server.URL + "/v1"
}

// Close shuts the server down.
func (u *Upstream) Close() {
	u.Server.Close()
}

// FailWith makes every following request fail with status and body.
func (u *Upstream) FailWith(status int, body string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.status = status
	u.errorBody = body
}

// StreamChunks sets the raw pieces written for streamed requests.
func (u *Upstream) StreamChunks(chunks ...string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.chunks = chunks
}

// StreamDeltas streams one completion chunk per delta followed by [DONE].
func (u *Upstream) StreamDeltas(deltas ...string) {
	u.StreamChunks(SSEChunks(deltas...)...)
}

// CompleteWith sets the content returned for non-streamed requests.
func (u *Upstream) CompleteWith(content string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.completion = content
}

// Requests returns every request received so far.
func (u *Upstream) Requests() []llm.CompletionRequest {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := make([]llm.CompletionRequest, len(u.requests))
	copy(out, u.requests)
	return out
}

// Headers returns the headers of every request received so far.
func (u *Upstream) Headers() []http.Header {
	u.mu.Lock()
	defer u.mu.Unlock()
	out := make([]http.Header, len(u.headers))
	copy(out, u.headers)
	return out
}

// SSEChunks formats deltas as completion stream frames terminated by [DONE].
func SSEChunks(deltas ...string) []string {
	out := make([]string, 0, len(deltas)+1)
	for _, d := range deltas {
		content, _ := json.Marshal(d)
		out = append(out, fmt.Sprintf("data: {\"id\":\"chatcmpl-test\",\"object\":\"chat.completion.chunk\",\"choices\":[{\"index\":0,\"delta\":{\"content\":%s}}]}\n\n", content))
	}
	return append(out, "data: [DONE]\n\n")
}

func (u *Upstream) handle(w http.ResponseWriter, r *http.Request) {
	var req llm.CompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":{"message":"bad json"}}`, http.StatusBadRequest)
		return
	}

	u.mu.Lock()
	u.requests = append(u.requests, req)
	u.headers = append(u.headers, r.Header.Clone())
	status, errorBody, chunks, completion := u.status, u.errorBody, u.chunks, u.completion
	u.mu.Unlock()

	if status != 0 && status != http.StatusOK {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(errorBody))
		return
	}

	if req.Stream {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		flusher, _ := w.(http.Flusher)
		for _, c := range chunks {
			if _, err := w.Write([]byte(c)); err != nil {
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"id":     "chatcmpl-test",
		"object": "chat.completion",
		"model":  req.Model,
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]string{"role": "assistant", "content": completion},
			"finish_reason": "stop",
		}},
	})
}

package llm

// StreamChunk is a single OpenAI-compatible streaming completion chunk, the
// JSON payload of one "data:" SSE line.
type StreamChunk struct {
	ID      string        `json:"id,omitempty"`
	Object  string        `json:"object,omitempty"`
	Model   string        `json:"model,omitempty"`
	Choices []ChunkChoice `json:"choices"`
}

// ChunkChoice is one choice of a streaming chunk.
type ChunkChoice struct {
	Index        int        `json:"index"`
	Delta        ChunkDelta `json:"delta"`
	FinishReason *string    `json:"finish_reason,omitempty"`
}

// ChunkDelta carries the incremental content of a streaming chunk.
type ChunkDelta struct {
	Role    string `json:"role,omitempty"`
	Content string `json:"content,omitempty"`
}

// DoneSentinel terminates an OpenAI-compatible SSE stream.
const DoneSentinel = "[DONE]"

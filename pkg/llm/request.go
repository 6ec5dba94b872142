package llm

// ChatRequest is the body a client posts to the chat gateway.
type ChatRequest struct {
	// Conversation messages, oldest first. A leading system message
	// suppresses persona prompt injection.
	Messages []ChatMessage `json:"messages" validate:"required,min=1,max=100,dive"`

	// Persona optionally selects the system prompt (e.g. "exam-prep").
	// A persona in the route path takes precedence.
	Persona string `json:"persona,omitempty"`
}

// CompletionRequest is the OpenAI-compatible chat completion request the
// gateway sends upstream.
type CompletionRequest struct {
	Model    string        `json:"model"`
	Messages []ChatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

// AnalysisRequest is the body posted to the document analysis gateway.
type AnalysisRequest struct {
	Content string `json:"content" validate:"required"`
}

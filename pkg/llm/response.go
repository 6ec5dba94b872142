package llm

// ErrorResponse is the JSON error body returned by the gateway.
// Code is a stable machine-readable error kind (e.g. "rate_limited").
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// AnalysisResponse is the body returned by the document analysis gateway.
type AnalysisResponse struct {
	Analysis string `json:"analysis"`
}

// Package upstream is the client for the OpenAI-compatible chat completion
// API that backs the campus gateway.
//
// Streaming completions are opened over raw HTTP so the gateway can relay
// the response bytes verbatim. Non-streaming completions go through
// go-openai.
package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/campusai/campus/pkg/apierr"
	"github.com/campusai/campus/pkg/llm"
	"github.com/campusai/campus/pkg/utils"
)

const (
	// DefaultBaseURL is the OpenAI API root.
	DefaultBaseURL = "https://api.openai.com/v1"

	// DefaultModel is used when no model is configured.
	DefaultModel = "gpt-4o-mini"

	// DefaultTimeout bounds a whole upstream exchange, including a streamed
	// body. Completions can be slow.
	DefaultTimeout = 5 * time.Minute

	completionsPath = "/chat/completions"

	// maxErrorBody caps how much of an error response is kept for logs.
	maxErrorBody = 4 << 10
)

// Config configures a Client.
type Config struct {
	// BaseURL is the API root, e.g. "https://api.openai.com/v1".
	BaseURL string

	// APIKey is sent as a bearer token. An empty key makes every call fail
	// with a configuration error before any network traffic.
	APIKey string

	// Model is the completion model name.
	Model string

	// HTTPClient overrides the default client (5 minute timeout).
	HTTPClient *http.Client
}

// Client talks to the upstream completion API.
type Client struct {
	baseURL string
	apiKey  string
	model   string
	http    *http.Client
	openai  *openai.Client
}

// New creates a Client. Zero fields take their defaults.
func New(c Config) *Client {
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: DefaultTimeout}
	}
	base := strings.TrimRight(c.BaseURL, "/")

	oc := openai.DefaultConfig(c.APIKey)
	oc.BaseURL = base
	oc.HTTPClient = c.HTTPClient

	return &Client{
		baseURL: base,
		apiKey:  c.APIKey,
		model:   c.Model,
		http:    c.HTTPClient,
		openai:  openai.NewClientWithConfig(oc),
	}
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.model
}

// BaseURL returns the configured API root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Configured reports whether an API key is set.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

func (c *Client) checkConfigured() error {
	if !c.Configured() {
		return apierr.New(apierr.KindConfigurationError, "upstream API key is not configured")
	}
	return nil
}

// OpenStream starts a streamed completion and returns the upstream response
// with a 2xx status. The caller owns the body and must close it.
//
// A 429 becomes rate_limited, a 402 credits_exhausted, and any other failure
// upstream_failure.
func (c *Client) OpenStream(ctx context.Context, messages []llm.ChatMessage) (*http.Response, error) {
	if err := c.checkConfigured(); err != nil {
		return nil, err
	}

	body, err := json.Marshal(llm.CompletionRequest{
		Model:    c.model,
		Messages: messages,
		Stream:   true,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+completionsPath, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating upstream request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apierr.Wrap(apierr.KindUpstreamFailure, fmt.Errorf("upstream request failed: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		e := apierr.FromUpstreamStatus(resp.StatusCode)
		e.Err = fmt.Errorf("upstream returned status %d: %s", resp.StatusCode, utils.Truncate(string(snippet), 512))
		return nil, e
	}

	return resp, nil
}

// Complete runs a non-streaming completion and returns the first choice's
// content.
func (c *Client) Complete(ctx context.Context, messages []llm.ChatMessage) (string, error) {
	if err := c.checkConfigured(); err != nil {
		return "", err
	}

	req := openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: make([]openai.ChatCompletionMessage, 0, len(messages)),
	}
	for _, m := range messages {
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{Role: m.Role, Content: m.Content})
	}

	resp, err := c.openai.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", classify(err)
	}
	if len(resp.Choices) == 0 {
		return "", apierr.Wrap(apierr.KindUpstreamFailure, errors.New("upstream returned no choices"))
	}
	return resp.Choices[0].Message.Content, nil
}

// classify maps go-openai errors onto the gateway taxonomy.
func classify(err error) error {
	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}

	if status == 0 {
		return apierr.Wrap(apierr.KindUpstreamFailure, err)
	}
	e := apierr.FromUpstreamStatus(status)
	if e == nil {
		return apierr.Wrap(apierr.KindUpstreamFailure, err)
	}
	e.Err = err
	return e
}

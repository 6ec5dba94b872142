// Package chat is the client for the campus gateway: it streams tutor turns
// into a conversation.View and calls the analysis and news functions.
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/campusai/campus/pkg/analysis"
	"github.com/campusai/campus/pkg/apierr"
	"github.com/campusai/campus/pkg/conversation"
	"github.com/campusai/campus/pkg/llm"
	"github.com/campusai/campus/pkg/logger"
	"github.com/campusai/campus/pkg/news"
	"github.com/campusai/campus/pkg/sse"
)

const (
	functionsPath = "/functions/v1"
	tutorPath     = functionsPath + "/ai-tutor"
	analyzePath   = functionsPath + "/analyze-question-paper"
	newsPath      = functionsPath + "/news-recommendations"

	// DefaultTimeout bounds a whole exchange, including a streamed body.
	DefaultTimeout = 5 * time.Minute

	readSize     = 32 << 10
	maxErrorBody = 64 << 10
)

// Config configures a Client.
type Config struct {
	// GatewayURL is the gateway root, e.g. "http://localhost:8080".
	GatewayURL string

	// Token is the bearer token. Requests without one fail with
	// authentication_required before any network traffic.
	Token string

	// HTTPClient overrides the default client (5 minute timeout).
	HTTPClient *http.Client

	Logger *slog.Logger
}

// Client talks to a campus gateway.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a gateway client.
func NewClient(c Config) *Client {
	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	log := c.Logger
	if log == nil {
		log = logger.Nop()
	}
	return &Client{
		baseURL:    strings.TrimRight(c.GatewayURL, "/"),
		token:      c.Token,
		httpClient: httpClient,
		logger:     log,
	}
}

// DeltaFunc observes the accumulated assistant content after each delta.
type DeltaFunc func(content string)

// Send runs one tutor turn: it appends text to view as a user message,
// streams the reply into view and returns the final assistant content.
//
// persona may be empty to use the gateway default. On failure the turn is
// aborted; deltas received before the failure stay in the view.
func (c *Client) Send(ctx context.Context, view *conversation.View, persona, text string, onDelta DeltaFunc) (string, error) {
	history, err := view.Begin(text)
	if err != nil {
		return "", err
	}

	path := tutorPath
	if persona != "" {
		path += "/" + persona
	}

	resp, err := c.post(ctx, path, llm.ChatRequest{Messages: history})
	if err != nil {
		view.Abort(err)
		return "", err
	}
	defer resp.Body.Close()

	content, err := c.consume(ctx, resp.Body, view, onDelta)
	if err != nil {
		view.Abort(err)
		return content, err
	}
	return view.Commit(), nil
}

// consume feeds the response body through an sse.Decoder until the stream
// ends or the [DONE] sentinel arrives.
func (c *Client) consume(ctx context.Context, body io.Reader, view *conversation.View, onDelta DeltaFunc) (string, error) {
	dec := sse.NewDecoder()
	buf := make([]byte, readSize)
	var content string

	apply := func(deltas []string) error {
		for _, d := range deltas {
			var err error
			content, err = view.Append(d)
			if err != nil {
				return err
			}
			if onDelta != nil {
				onDelta(content)
			}
		}
		return nil
	}

	for !dec.Done() {
		n, readErr := body.Read(buf)
		if n > 0 {
			if err := apply(dec.Feed(buf[:n])); err != nil {
				return content, err
			}
		}

		if readErr == nil {
			continue
		}
		if errors.Is(readErr, io.EOF) {
			break
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return content, ctxErr
		}
		c.logger.Debug("stream read failed", "error", readErr)
		return content, apierr.Wrap(apierr.KindUpstreamFailure, readErr)
	}

	deltas, err := dec.Finish()
	if applyErr := apply(deltas); applyErr != nil {
		return content, applyErr
	}
	if err != nil {
		// The partial message is kept.
		c.logger.Debug("stream ended with an unparseable frame", "error", err)
	}
	return content, nil
}

// Analyze sends question paper content for analysis. Content over
// analysis.MaxContentRunes is rejected before any request is made.
func (c *Client) Analyze(ctx context.Context, content string) (string, error) {
	if err := analysis.Validate(content); err != nil {
		return "", err
	}

	resp, err := c.post(ctx, analyzePath, llm.AnalysisRequest{Content: content})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var out llm.AnalysisResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", apierr.Wrap(apierr.KindUpstreamFailure, fmt.Errorf("decoding analysis: %w", err))
	}
	return out.Analysis, nil
}

// News fetches career news recommendations for interests.
func (c *Client) News(ctx context.Context, interests string) ([]news.Item, error) {
	resp, err := c.post(ctx, newsPath, news.Request{UserInterests: interests})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out news.Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, apierr.Wrap(apierr.KindUpstreamFailure, fmt.Errorf("decoding recommendations: %w", err))
	}
	return out.Recommendations, nil
}

// post sends body as JSON and returns a 200 response. Any other status is
// translated into an *apierr.Error from the gateway's error body.
func (c *Client) post(ctx context.Context, path string, body any) (*http.Response, error) {
	if c.token == "" {
		return nil, apierr.New(apierr.KindAuthenticationRequired, "")
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	c.logger.Debug("sending gateway request",
		"path", path,
		"bytes", len(payload),
	)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, apierr.Wrap(apierr.KindUpstreamFailure, fmt.Errorf("sending request to gateway: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		e := apierr.FromResponse(resp.StatusCode, respBody)
		c.logger.Debug("gateway returned an error",
			"path", path,
			"status", resp.StatusCode,
			"code", e.Kind,
		)
		return nil, e
	}

	return resp, nil
}

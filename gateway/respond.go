package gateway

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"github.com/campusai/campus/gateway/worker"
	"github.com/campusai/campus/pkg/apierr"
	"github.com/campusai/campus/pkg/auth"
	"github.com/campusai/campus/pkg/eventstream"
	"github.com/campusai/campus/pkg/llm"
)

// requestMeta is the per-request state captured before a handler returns.
// fiber recycles its Ctx afterwards, so strings are cloned.
type requestMeta struct {
	route     string
	requestID string
	subject   string
	role      string
	persona   string
	startedAt time.Time
}

func (g *Gateway) newRequestMeta(c *fiber.Ctx, route string) requestMeta {
	m := requestMeta{
		route:     route,
		startedAt: time.Now(),
	}
	if id, ok := c.Locals(requestid.ConfigDefault.ContextKey).(string); ok {
		m.requestID = strings.Clone(id)
	}
	if s, ok := auth.SessionFrom(c); ok {
		m.subject = s.Subject
		m.role = s.Role
	}
	return m
}

// decodeBody unmarshals the request body into v. An empty body leaves v
// untouched when allowEmpty is set.
func decodeBody(c *fiber.Ctx, v any, allowEmpty bool) error {
	body := c.Body()
	if len(strings.TrimSpace(string(body))) == 0 {
		if allowEmpty {
			return nil
		}
		return apierr.New(apierr.KindInvalidRequest, "Request body is required")
	}
	if err := json.Unmarshal(body, v); err != nil {
		return apierr.New(apierr.KindInvalidRequest, "Request body is not valid JSON")
	}
	return nil
}

// fail writes err as a JSON error body and records the failure.
func (g *Gateway) fail(c *fiber.Ctx, meta requestMeta, err error) error {
	e := apierr.As(err)

	switch e.Kind {
	case apierr.KindUpstreamFailure, apierr.KindConfigurationError:
		g.logger.Error("gateway request failed",
			"route", meta.route,
			"request_id", meta.requestID,
			"code", e.Kind,
			"error", err,
		)
	default:
		g.logger.Warn("gateway request rejected",
			"route", meta.route,
			"request_id", meta.requestID,
			"code", e.Kind,
			"error", err,
		)
	}

	g.record(meta, e.Status(), string(e.Kind), false, eventstream.RelayStream{})

	return c.Status(e.Status()).JSON(llm.ErrorResponse{
		Error: e.UserMessage(),
		Code:  string(e.Kind),
	})
}

// record enqueues a telemetry job for a finished request.
func (g *Gateway) record(meta requestMeta, status int, code string, streaming bool, stream eventstream.RelayStream) {
	completedAt := time.Now()
	event := eventstream.NewRelayCompletedEvent(
		eventstream.EventSource{
			Subject: meta.subject,
			Role:    meta.role,
			Persona: meta.persona,
			Model:   g.config.Upstream.Model(),
		},
		eventstream.RelayRequest{
			RequestID:   meta.requestID,
			Path:        functionsPrefix + "/" + meta.route,
			StartedAt:   meta.startedAt,
			CompletedAt: completedAt,
			DurationMs:  completedAt.Sub(meta.startedAt).Milliseconds(),
			Streaming:   streaming,
			HTTPStatus:  status,
			ErrorCode:   code,
		},
		stream,
	)

	g.workerPool.Enqueue(worker.Job{
		Route:  meta.route,
		Event:  event,
		Stream: streaming && code == "",
	})
}

// allow applies the per-subject limiter.
func (g *Gateway) allow(meta requestMeta) error {
	if g.limiter.Allow(meta.subject) {
		return nil
	}
	g.config.Metrics.RateLimited()
	return apierr.New(apierr.KindRateLimited, "")
}

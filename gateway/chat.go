package gateway

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/campusai/campus/pkg/apierr"
	"github.com/campusai/campus/pkg/eventstream"
	"github.com/campusai/campus/pkg/llm"
	"github.com/campusai/campus/pkg/persona"
	"github.com/campusai/campus/pkg/sse"
)

// handleChat relays a streamed completion. The persona comes from the route,
// then the body, then the gateway default.
func (g *Gateway) handleChat(c *fiber.Ctx) error {
	meta := g.newRequestMeta(c, routeChat)

	if err := g.allow(meta); err != nil {
		return g.fail(c, meta, err)
	}

	var req llm.ChatRequest
	if err := decodeBody(c, &req, false); err != nil {
		return g.fail(c, meta, err)
	}
	if err := g.validate.Struct(req); err != nil {
		return g.fail(c, meta, validationError(err))
	}

	tag, err := g.resolvePersona(c.Params("persona"), req.Persona)
	if err != nil {
		return g.fail(c, meta, err)
	}
	meta.persona = string(tag)

	messages, err := g.config.Personas.Inject(tag, req.Messages)
	if err != nil {
		return g.fail(c, meta, apierr.Wrap(apierr.KindInvalidRequest, err))
	}

	// The upstream request outlives this handler: fasthttp recycles the
	// RequestCtx once the handler returns while the relay keeps streaming.
	ctx, cancel := context.WithCancel(g.ctx)

	resp, err := g.config.Upstream.OpenStream(ctx, messages)
	if err != nil {
		cancel()
		return g.fail(c, meta, err)
	}

	g.logger.Debug("relaying upstream stream",
		"request_id", meta.requestID,
		"persona", meta.persona,
		"message_count", len(messages),
	)

	g.header.SetClientResponseHeaders(c, resp)
	g.header.SetStreamHeaders(c)

	// io.Pipe gives backpressure: pw.Write blocks until fasthttp has read
	// the chunk and flushed it to the client.
	pr, pw := io.Pipe()
	g.relays.Add(1)
	go g.relay(ctx, cancel, resp, pw, meta)

	// Unknown size (-1) selects chunked transfer encoding.
	c.Context().Response.SetBodyStream(pr, -1)
	return nil
}

func (g *Gateway) resolvePersona(routeParam, bodyField string) (persona.Tag, error) {
	for _, candidate := range []string{routeParam, bodyField} {
		if strings.TrimSpace(candidate) == "" {
			continue
		}
		tag, err := persona.ParseTag(candidate)
		if err != nil || !g.config.Personas.Has(tag) {
			return "", apierr.Newf(apierr.KindInvalidRequest, "Unknown persona %q", candidate)
		}
		if !tag.Chat() {
			return "", apierr.Newf(apierr.KindInvalidRequest, "Persona %q is not available for chat", candidate)
		}
		return tag, nil
	}
	return g.config.DefaultPersona, nil
}

// relay copies the upstream body to the client verbatim while counting
// deltas for telemetry. A failed client write cancels the upstream request.
func (g *Gateway) relay(ctx context.Context, cancel context.CancelFunc, resp *http.Response, pw *io.PipeWriter, meta requestMeta) {
	defer g.relays.Done()
	defer cancel()
	defer resp.Body.Close()

	// Unblock a pending pipe write when the gateway shuts down.
	stop := context.AfterFunc(ctx, func() {
		pw.CloseWithError(ctx.Err())
	})
	defer stop()

	counter := &countingWriter{w: pw}
	tr := sse.NewTeeReader(resp.Body, counter)

	var stats eventstream.RelayStream
	var relayErr error
	for {
		ev, err := tr.Next()
		if err != nil {
			relayErr = err
			break
		}
		if ev == nil {
			break
		}
		if ev.IsDone() {
			stats.SawDone = true
			continue
		}
		if ev.Delta() != "" {
			stats.Deltas++
		}
	}
	stats.Bytes = counter.n

	switch {
	case relayErr == nil:
		pw.Close()
	case ctx.Err() != nil || errors.Is(relayErr, io.ErrClosedPipe):
		stats.Cancelled = true
		pw.CloseWithError(relayErr)
		g.logger.Info("relay cancelled",
			"request_id", meta.requestID,
			"persona", meta.persona,
			"bytes", stats.Bytes,
		)
	default:
		pw.CloseWithError(relayErr)
		g.logger.Error("error relaying upstream stream",
			"request_id", meta.requestID,
			"persona", meta.persona,
			"error", relayErr,
		)
	}

	g.logger.Debug("relay complete",
		"request_id", meta.requestID,
		"persona", meta.persona,
		"deltas", stats.Deltas,
		"bytes", stats.Bytes,
		"saw_done", stats.SawDone,
		"duration", time.Since(meta.startedAt),
	)

	g.record(meta, http.StatusOK, "", true, stats)
}

// countingWriter counts bytes written through it.
type countingWriter struct {
	w io.Writer
	n int64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}

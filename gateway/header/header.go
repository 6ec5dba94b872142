// Package header provides header handling for the campus gateway.
//
// The gateway sits between a student client and the upstream completion API:
//
//	Client <--> Gateway <--> Upstream completion API
//
// Each leg carries its own credentials, so nothing from the client's request
// is forwarded upstream. On the way back only safe upstream headers are
// copied to the client.
package header

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// Handler manages headers between gateway connections.
type Handler struct{}

// NewHandler creates a new header Handler.
func NewHandler() *Handler {
	return &Handler{}
}

const (
	// AllowHeaders is the CORS allow list for browser clients.
	AllowHeaders = "authorization, x-client-info, apikey, content-type"

	// RequestIDHeader carries the gateway's request ID.
	RequestIDHeader = "X-Request-Id"

	// UpstreamRequestIDHeader carries the upstream's request ID, when sent.
	UpstreamRequestIDHeader = "X-Upstream-Request-Id"

	// EventStreamContentType is the content type of a relayed stream.
	EventStreamContentType = "text/event-stream"
)

// skipResponse is the set of upstream response headers (client <-- gateway <-- upstream)
// that are not copied back to the downstream client.
var skipResponse = map[string]struct{}{
	// Hop-by-hop headers: only meaningful for a single transport-level connection.
	"Connection":        {},
	"Transfer-Encoding": {},
	"Keep-Alive":        {},

	// Go's http.Transport strips Content-Encoding after auto-decompression,
	// so a stale value would claim an encoding the body no longer has.
	"Content-Encoding": {},

	// The relayed body is chunked by fasthttp.
	"Content-Length": {},

	// The gateway sets its own content type and CORS policy.
	"Content-Type":                     {},
	"Access-Control-Allow-Origin":      {},
	"Access-Control-Allow-Headers":     {},
	"Access-Control-Allow-Credentials": {},

	// Upstream account details and cookies stay on the gateway.
	"Set-Cookie":          {},
	"Openai-Organization": {},
	"Openai-Project":      {},
	"X-Request-Id":        {},
}

// SetStreamHeaders marks the client response as an unbuffered event stream.
func (h *Handler) SetStreamHeaders(c *fiber.Ctx) {
	c.Set(fiber.HeaderContentType, EventStreamContentType)
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set("X-Accel-Buffering", "no")
}

// SetClientResponseHeaders copies response headers from the upstream
// http.Response to the Fiber context, filtering headers that the gateway
// should not forward back down to the client. The upstream request ID is
// kept under UpstreamRequestIDHeader.
func (h *Handler) SetClientResponseHeaders(c *fiber.Ctx, resp *http.Response) {
	for k, v := range resp.Header {
		if _, skip := skipResponse[k]; !skip {
			c.Set(k, strings.Join(v, ", "))
		}
	}
	if id := resp.Header.Get("X-Request-Id"); id != "" {
		c.Set(UpstreamRequestIDHeader, id)
	}
}

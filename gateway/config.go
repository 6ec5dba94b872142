package gateway

import (
	"github.com/campusai/campus/pkg/auth"
	"github.com/campusai/campus/pkg/eventstream"
	"github.com/campusai/campus/pkg/metrics"
	"github.com/campusai/campus/pkg/persona"
	"github.com/campusai/campus/pkg/storage"
	"github.com/campusai/campus/pkg/upstream"
)

// Config is the gateway server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8080")
	ListenAddr string

	// DefaultPersona is used when neither the route nor the body names one.
	// Defaults to persona.Tutor.
	DefaultPersona persona.Tag

	// RateLimitRPS is the sustained per-subject request rate.
	// Zero disables the local limiter.
	RateLimitRPS float64

	// RateLimitBurst is the per-subject burst size (defaults to 1 when the
	// limiter is enabled).
	RateLimitBurst int

	// Upstream is the completion API client.
	Upstream *upstream.Client

	// Validator authenticates bearer tokens.
	Validator auth.Validator

	// Personas is the persona table. Defaults to the built-in personas.
	Personas *persona.Table

	// News is the career news store. Defaults to an empty in-memory store.
	News storage.NewsDriver

	// Publisher receives relay telemetry. Defaults to a no-op publisher.
	Publisher eventstream.Publisher

	// Metrics collects gateway metrics. Defaults to a fresh registry.
	Metrics *metrics.Metrics
}

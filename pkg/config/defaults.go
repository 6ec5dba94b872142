package config

import (
	"github.com/campusai/campus/pkg/auth"
	"github.com/campusai/campus/pkg/persona"
	"github.com/campusai/campus/pkg/upstream"
)

const (
	defaultGatewayListen = ":8080"
	defaultProvider      = "openai"
	defaultKafkaTopic    = "campus.relay"

	defaultClientGatewayTarget = "http://localhost:8080"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Gateway: GatewayConfig{
			Listen:         defaultGatewayListen,
			Provider:       defaultProvider,
			Upstream:       upstream.DefaultBaseURL,
			Model:          upstream.DefaultModel,
			DefaultPersona: string(persona.Tutor),
		},
		Auth: AuthConfig{
			TokenTTL: auth.DefaultTokenTTL.String(),
		},
		EventStream: EventStreamConfig{
			KafkaTopic: defaultKafkaTopic,
		},
		Client: ClientConfig{
			GatewayTarget: defaultClientGatewayTarget,
		},
	}
}

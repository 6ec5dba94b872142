package config

import (
	"fmt"
	"strconv"
	"time"
)

// Config represents the persistent campus configuration stored as config.toml
// in the .campus/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version     int               `toml:"version"`
	Gateway     GatewayConfig     `toml:"gateway"`
	Auth        AuthConfig        `toml:"auth"`
	Storage     StorageConfig     `toml:"storage"`
	EventStream EventStreamConfig `toml:"eventstream"`
	Client      ClientConfig      `toml:"client"`
}

// GatewayConfig holds settings for "campus serve".
type GatewayConfig struct {
	Listen         string  `toml:"listen,omitempty"`
	Provider       string  `toml:"provider,omitempty"`
	Upstream       string  `toml:"upstream,omitempty"`
	Model          string  `toml:"model,omitempty"`
	DefaultPersona string  `toml:"default_persona,omitempty"`
	PersonasFile   string  `toml:"personas_file,omitempty"`
	RateLimitRPS   float64 `toml:"rate_limit_rps,omitempty"`
	RateLimitBurst int     `toml:"rate_limit_burst,omitempty"`
}

// AuthConfig holds bearer token settings shared by the gateway and
// "campus token".
type AuthConfig struct {
	JWTSecret string `toml:"jwt_secret,omitempty"`
	Issuer    string `toml:"issuer,omitempty"`
	TokenTTL  string `toml:"token_ttl,omitempty"`
}

// StorageConfig selects the news store. PostgresDSN wins over SQLitePath;
// with neither set the gateway keeps news in memory.
type StorageConfig struct {
	SQLitePath  string `toml:"sqlite_path,omitempty"`
	PostgresDSN string `toml:"postgres_dsn,omitempty"`
}

// EventStreamConfig holds relay telemetry settings. Brokers are a comma
// separated list; empty disables publishing.
type EventStreamConfig struct {
	KafkaBrokers string `toml:"kafka_brokers,omitempty"`
	KafkaTopic   string `toml:"kafka_topic,omitempty"`
}

// ClientConfig holds settings for CLI commands that talk to a running
// gateway (campus chat, campus analyze, campus news).
type ClientConfig struct {
	GatewayTarget string `toml:"gateway_target,omitempty"`
	Token         string `toml:"token,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get    func(c *Config) string
	set    func(c *Config, v string) error
	secret bool
}

func stringKey(field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error { *field(c) = v; return nil },
	}
}

func secretKey(field func(c *Config) *string) configKeyInfo {
	k := stringKey(field)
	k.secret = true
	return k
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"gateway.listen":          stringKey(func(c *Config) *string { return &c.Gateway.Listen }),
	"gateway.provider":        stringKey(func(c *Config) *string { return &c.Gateway.Provider }),
	"gateway.upstream":        stringKey(func(c *Config) *string { return &c.Gateway.Upstream }),
	"gateway.model":           stringKey(func(c *Config) *string { return &c.Gateway.Model }),
	"gateway.default_persona": stringKey(func(c *Config) *string { return &c.Gateway.DefaultPersona }),
	"gateway.personas_file":   stringKey(func(c *Config) *string { return &c.Gateway.PersonasFile }),
	"gateway.rate_limit_rps": {
		get: func(c *Config) string {
			if c.Gateway.RateLimitRPS == 0 {
				return ""
			}
			return strconv.FormatFloat(c.Gateway.RateLimitRPS, 'f', -1, 64)
		},
		set: func(c *Config, v string) error {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil || f < 0 {
				return fmt.Errorf("invalid value for gateway.rate_limit_rps: %q", v)
			}
			c.Gateway.RateLimitRPS = f
			return nil
		},
	},
	"gateway.rate_limit_burst": {
		get: func(c *Config) string {
			if c.Gateway.RateLimitBurst == 0 {
				return ""
			}
			return strconv.Itoa(c.Gateway.RateLimitBurst)
		},
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				return fmt.Errorf("invalid value for gateway.rate_limit_burst: %q", v)
			}
			c.Gateway.RateLimitBurst = n
			return nil
		},
	},
	"auth.jwt_secret": secretKey(func(c *Config) *string { return &c.Auth.JWTSecret }),
	"auth.issuer":     stringKey(func(c *Config) *string { return &c.Auth.Issuer }),
	"auth.token_ttl": {
		get: func(c *Config) string { return c.Auth.TokenTTL },
		set: func(c *Config, v string) error {
			if _, err := time.ParseDuration(v); err != nil {
				return fmt.Errorf("invalid value for auth.token_ttl: %w", err)
			}
			c.Auth.TokenTTL = v
			return nil
		},
	},
	"storage.sqlite_path":       stringKey(func(c *Config) *string { return &c.Storage.SQLitePath }),
	"storage.postgres_dsn":      secretKey(func(c *Config) *string { return &c.Storage.PostgresDSN }),
	"eventstream.kafka_brokers": stringKey(func(c *Config) *string { return &c.EventStream.KafkaBrokers }),
	"eventstream.kafka_topic":   stringKey(func(c *Config) *string { return &c.EventStream.KafkaTopic }),
	"client.gateway_target":     stringKey(func(c *Config) *string { return &c.Client.GatewayTarget }),
	"client.token":              secretKey(func(c *Config) *string { return &c.Client.Token }),
}

// orderedKeys matches the TOML section layout.
var orderedKeys = []string{
	"gateway.listen",
	"gateway.provider",
	"gateway.upstream",
	"gateway.model",
	"gateway.default_persona",
	"gateway.personas_file",
	"gateway.rate_limit_rps",
	"gateway.rate_limit_burst",
	"auth.jwt_secret",
	"auth.issuer",
	"auth.token_ttl",
	"storage.sqlite_path",
	"storage.postgres_dsn",
	"eventstream.kafka_brokers",
	"eventstream.kafka_topic",
	"client.gateway_target",
	"client.token",
}

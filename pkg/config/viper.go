package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/campusai/campus/pkg/dotdir"
)

// EnvPrefix is the prefix of environment variables that override config
// keys, e.g. CAMPUS_GATEWAY_LISTEN.
const EnvPrefix = "CAMPUS"

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables
// with the CAMPUS_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (CAMPUS_GATEWAY_LISTEN, CAMPUS_AUTH_JWT_SECRET, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	setViperDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// FromViper materialises the effective configuration from v.
func FromViper(v *viper.Viper) *Config {
	return &Config{
		Version: v.GetInt("version"),
		Gateway: GatewayConfig{
			Listen:         v.GetString("gateway.listen"),
			Provider:       v.GetString("gateway.provider"),
			Upstream:       v.GetString("gateway.upstream"),
			Model:          v.GetString("gateway.model"),
			DefaultPersona: v.GetString("gateway.default_persona"),
			PersonasFile:   v.GetString("gateway.personas_file"),
			RateLimitRPS:   v.GetFloat64("gateway.rate_limit_rps"),
			RateLimitBurst: v.GetInt("gateway.rate_limit_burst"),
		},
		Auth: AuthConfig{
			JWTSecret: v.GetString("auth.jwt_secret"),
			Issuer:    v.GetString("auth.issuer"),
			TokenTTL:  v.GetString("auth.token_ttl"),
		},
		Storage: StorageConfig{
			SQLitePath:  v.GetString("storage.sqlite_path"),
			PostgresDSN: v.GetString("storage.postgres_dsn"),
		},
		EventStream: EventStreamConfig{
			KafkaBrokers: v.GetString("eventstream.kafka_brokers"),
			KafkaTopic:   v.GetString("eventstream.kafka_topic"),
		},
		Client: ClientConfig{
			GatewayTarget: v.GetString("client.gateway_target"),
			Token:         v.GetString("client.token"),
		},
	}
}

// LoadDotEnv loads KEY=value pairs from .env files into the process
// environment. Missing files are skipped and variables already set are
// never overwritten. With no paths it loads ./.env.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}

	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("checking %s: %w", p, err)
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("loading %s: %w", filepath.Base(p), err)
		}
	}
	return nil
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	// Gateway
	v.SetDefault("gateway.listen", d.Gateway.Listen)
	v.SetDefault("gateway.provider", d.Gateway.Provider)
	v.SetDefault("gateway.upstream", d.Gateway.Upstream)
	v.SetDefault("gateway.model", d.Gateway.Model)
	v.SetDefault("gateway.default_persona", d.Gateway.DefaultPersona)
	v.SetDefault("gateway.personas_file", d.Gateway.PersonasFile)
	v.SetDefault("gateway.rate_limit_rps", d.Gateway.RateLimitRPS)
	v.SetDefault("gateway.rate_limit_burst", d.Gateway.RateLimitBurst)

	// Auth
	v.SetDefault("auth.jwt_secret", d.Auth.JWTSecret)
	v.SetDefault("auth.issuer", d.Auth.Issuer)
	v.SetDefault("auth.token_ttl", d.Auth.TokenTTL)

	// Storage
	v.SetDefault("storage.sqlite_path", d.Storage.SQLitePath)
	v.SetDefault("storage.postgres_dsn", d.Storage.PostgresDSN)

	// Event stream
	v.SetDefault("eventstream.kafka_brokers", d.EventStream.KafkaBrokers)
	v.SetDefault("eventstream.kafka_topic", d.EventStream.KafkaTopic)

	// Client
	v.SetDefault("client.gateway_target", d.Client.GatewayTarget)
	v.SetDefault("client.token", d.Client.Token)
}

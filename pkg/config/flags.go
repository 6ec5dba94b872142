package config

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag.
// Commands reference flags by registry key rather than hard-coding names,
// shorthands, defaults, and descriptions inline, so the same logical flag
// (e.g. --gateway on "campus chat", "campus analyze" and "campus news")
// cannot drift between commands.
type Flag struct {
	// Name is the long flag name (e.g. "upstream").
	Name string

	// Shorthand is the one-letter short flag (e.g. "u"). Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "gateway.upstream").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of flag names to Flag structs that hold their name,
// shorthand, viper key, etc.
type FlagSet map[string]Flag

// Flag registry keys.
const (
	FlagListen         = "listen"
	FlagProvider       = "provider"
	FlagUpstream       = "upstream"
	FlagModel          = "model"
	FlagDefaultPersona = "default-persona"
	FlagPersonasFile   = "personas-file"
	FlagRateLimitRPS   = "rate-limit-rps"
	FlagRateLimitBurst = "rate-limit-burst"
	FlagJWTSecret      = "jwt-secret"
	FlagIssuer         = "issuer"
	FlagTokenTTL       = "token-ttl"
	FlagSQLite         = "sqlite"
	FlagPostgres       = "postgres"
	FlagKafkaBrokers   = "kafka-brokers"
	FlagKafkaTopic     = "kafka-topic"
	FlagGatewayTarget  = "gateway"
	FlagToken          = "token"
)

// Flags is the registry of every config-backed flag.
var Flags = FlagSet{
	FlagListen:         {Name: "listen", Shorthand: "l", ViperKey: "gateway.listen", Description: "Address for the gateway to listen on"},
	FlagProvider:       {Name: "provider", Shorthand: "p", ViperKey: "gateway.provider", Description: "Upstream provider whose stored API key is used (openai, openrouter, groq)"},
	FlagUpstream:       {Name: "upstream", Shorthand: "u", ViperKey: "gateway.upstream", Description: "OpenAI-compatible upstream API root"},
	FlagModel:          {Name: "model", Shorthand: "m", ViperKey: "gateway.model", Description: "Upstream completion model"},
	FlagDefaultPersona: {Name: "default-persona", ViperKey: "gateway.default_persona", Description: "Persona used when a request names none"},
	FlagPersonasFile:   {Name: "personas-file", ViperKey: "gateway.personas_file", Description: "TOML file overriding persona prompts (watched for changes)"},
	FlagRateLimitRPS:   {Name: "rate-limit-rps", ViperKey: "gateway.rate_limit_rps", Description: "Requests per second allowed per caller (0 disables)"},
	FlagRateLimitBurst: {Name: "rate-limit-burst", ViperKey: "gateway.rate_limit_burst", Description: "Burst size for the per-caller rate limit"},
	FlagJWTSecret:      {Name: "jwt-secret", ViperKey: "auth.jwt_secret", Description: "HS256 secret for bearer tokens"},
	FlagIssuer:         {Name: "issuer", ViperKey: "auth.issuer", Description: "Expected token issuer (empty accepts any)"},
	FlagTokenTTL:       {Name: "ttl", ViperKey: "auth.token_ttl", Description: "Lifetime of issued tokens"},
	FlagSQLite:         {Name: "sqlite", Shorthand: "s", ViperKey: "storage.sqlite_path", Description: "Path to SQLite news database (default: in-memory)"},
	FlagPostgres:       {Name: "postgres", ViperKey: "storage.postgres_dsn", Description: "PostgreSQL connection string for the news store"},
	FlagKafkaBrokers:   {Name: "kafka-brokers", ViperKey: "eventstream.kafka_brokers", Description: "Comma separated Kafka brokers for relay telemetry"},
	FlagKafkaTopic:     {Name: "kafka-topic", ViperKey: "eventstream.kafka_topic", Description: "Kafka topic for relay telemetry"},
	FlagGatewayTarget:  {Name: "gateway", Shorthand: "g", ViperKey: "client.gateway_target", Description: "Campus gateway URL"},
	FlagToken:          {Name: "token", Shorthand: "t", ViperKey: "client.token", Description: "Bearer token for the gateway"},
}

// AddStringFlag registers a string flag on cmd from the given FlagSet.
// The flag's name, shorthand, default, and description all come from the
// FlagSet entry so they cannot drift across commands.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaults().GetString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddIntFlag registers an int flag on cmd from the given FlagSet.
func AddIntFlag(cmd *cobra.Command, fs FlagSet, key string, target *int) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaults().GetInt(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().IntVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().IntVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddFloatFlag registers a float64 flag on cmd from the given FlagSet.
func AddFloatFlag(cmd *cobra.Command, fs FlagSet, key string, target *float64) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaults().GetFloat64(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().Float64VarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().Float64Var(target, def.Name, defaultVal, def.Description)
	}
}

// BindRegisteredFlags binds already-registered flags to viper using definitions
// from the given FlagSet. Call this in PreRunE after InitViper to connect flags
// to the viper precedence chain (flag > env > config file > default).
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, registryKey := range registryKeys {
		def, ok := fs[registryKey]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

// defaults returns a viper holding only NewDefaultConfig values.
func defaults() *viper.Viper {
	v := viper.New()
	setViperDefaults(v)
	return v
}

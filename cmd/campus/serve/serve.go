// Package servecmder provides the serve command that runs the campus gateway.
package servecmder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/campusai/campus/gateway"
	"github.com/campusai/campus/pkg/auth"
	"github.com/campusai/campus/pkg/config"
	"github.com/campusai/campus/pkg/credentials"
	"github.com/campusai/campus/pkg/eventstream"
	eventstreamutils "github.com/campusai/campus/pkg/eventstream/utils"
	"github.com/campusai/campus/pkg/logger"
	"github.com/campusai/campus/pkg/metrics"
	"github.com/campusai/campus/pkg/persona"
	"github.com/campusai/campus/pkg/storage"
	storageutils "github.com/campusai/campus/pkg/storage/utils"
	"github.com/campusai/campus/pkg/upstream"
)

type serveCommander struct {
	configDir string
	debug     bool
	jsonLogs  bool
	logFile   string
	cfg       *config.Config
	logger    *slog.Logger

	// flag targets; effective values are read back through viper
	listen, provider, upstream, model string
	defaultPersona, personasFile      string
	rps                               float64
	burst                             int
	jwtSecret, issuer                 string
	sqlitePath, postgresDSN           string
	kafkaBrokers, kafkaTopic          string
}

var serveFlags = []string{
	config.FlagListen,
	config.FlagProvider,
	config.FlagUpstream,
	config.FlagModel,
	config.FlagDefaultPersona,
	config.FlagPersonasFile,
	config.FlagRateLimitRPS,
	config.FlagRateLimitBurst,
	config.FlagJWTSecret,
	config.FlagIssuer,
	config.FlagSQLite,
	config.FlagPostgres,
	config.FlagKafkaBrokers,
	config.FlagKafkaTopic,
}

const serveLongDesc string = `Run the campus AI gateway.

The gateway authenticates students with bearer tokens, attaches persona
system prompts and relays streamed completions from an OpenAI-compatible
upstream byte for byte. It also serves document analysis, career news
recommendations, Prometheus metrics on /metrics and MCP tools on /mcp.

Settings come from flags, CAMPUS_* environment variables, .campus/config.toml
and built-in defaults, in that order. The upstream API key is read from
CAMPUS_UPSTREAM_API_KEY, credentials stored with "campus auth", or the
provider's own environment variable.

Examples:
  campus serve --jwt-secret s3cret
  campus serve --provider groq --upstream https://api.groq.com/openai/v1 --model llama-3.1-8b-instant
  CAMPUS_AUTH_JWT_SECRET=s3cret campus serve --sqlite news.db --kafka-brokers localhost:9092`

const serveShortDesc string = "Run the campus AI gateway"

func NewServeCmd() *cobra.Command {
	return newServeCmd(&serveCommander{})
}

func newServeCmd(cmder *serveCommander) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			cmder.configDir, _ = cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(cmder.configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			config.BindRegisteredFlags(v, cmd, config.Flags, serveFlags)
			cmder.cfg = config.FromViper(v)
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cmder.debug, err = cmd.Flags().GetBool("debug")
			if err != nil {
				return fmt.Errorf("could not get debug flag: %w", err)
			}
			return cmder.run(cmd.Context())
		},
	}

	config.AddStringFlag(cmd, config.Flags, config.FlagListen, &cmder.listen)
	config.AddStringFlag(cmd, config.Flags, config.FlagProvider, &cmder.provider)
	config.AddStringFlag(cmd, config.Flags, config.FlagUpstream, &cmder.upstream)
	config.AddStringFlag(cmd, config.Flags, config.FlagModel, &cmder.model)
	config.AddStringFlag(cmd, config.Flags, config.FlagDefaultPersona, &cmder.defaultPersona)
	config.AddStringFlag(cmd, config.Flags, config.FlagPersonasFile, &cmder.personasFile)
	config.AddFloatFlag(cmd, config.Flags, config.FlagRateLimitRPS, &cmder.rps)
	config.AddIntFlag(cmd, config.Flags, config.FlagRateLimitBurst, &cmder.burst)
	config.AddStringFlag(cmd, config.Flags, config.FlagJWTSecret, &cmder.jwtSecret)
	config.AddStringFlag(cmd, config.Flags, config.FlagIssuer, &cmder.issuer)
	config.AddStringFlag(cmd, config.Flags, config.FlagSQLite, &cmder.sqlitePath)
	config.AddStringFlag(cmd, config.Flags, config.FlagPostgres, &cmder.postgresDSN)
	config.AddStringFlag(cmd, config.Flags, config.FlagKafkaBrokers, &cmder.kafkaBrokers)
	config.AddStringFlag(cmd, config.Flags, config.FlagKafkaTopic, &cmder.kafkaTopic)
	cmd.Flags().BoolVar(&cmder.jsonLogs, "json-logs", false, "Write logs as JSON instead of colorized text")
	cmd.Flags().StringVar(&cmder.logFile, "log-file", "", "Also append JSON logs to this file")

	return cmd
}

// server bundles the gateway with the resources it borrows, so they can be
// released in order once it stops.
type server struct {
	gateway   *gateway.Gateway
	personas  *persona.Table
	news      storage.NewsDriver
	publisher eventstream.Publisher
}

func (s *server) close() {
	_ = s.publisher.Close()
	_ = s.news.Close()
}

func (c *serveCommander) run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	c.logger = logger.New(
		logger.WithDebug(c.debug),
		logger.WithJSON(c.jsonLogs),
		logger.WithPretty(!c.jsonLogs),
		logger.WithWriter(os.Stderr),
		logger.WithComponent("gateway"),
	)
	if c.logFile != "" {
		f, err := os.OpenFile(c.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		defer f.Close()
		c.logger = logger.Multi(c.logger, logger.New(
			logger.WithDebug(c.debug),
			logger.WithJSON(true),
			logger.WithWriter(f),
			logger.WithComponent("gateway"),
		))
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := c.newServer(ctx)
	if err != nil {
		return err
	}
	defer srv.close()

	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		if err := srv.gateway.Run(); err != nil {
			return fmt.Errorf("gateway error: %w", err)
		}
		return nil
	})

	if path := c.cfg.Gateway.PersonasFile; path != "" {
		eg.Go(func() error {
			if err := srv.personas.Watch(egCtx, path, c.logger); err != nil {
				c.logger.Warn("persona hot reload stopped", "path", path, "error", err)
			}
			return nil
		})
	}

	eg.Go(func() error {
		<-egCtx.Done()
		c.logger.Info("shutting down gateway")
		return srv.gateway.Close()
	})

	return eg.Wait()
}

// newServer builds the gateway and everything it depends on from c.cfg.
func (c *serveCommander) newServer(ctx context.Context) (*server, error) {
	cfg := c.cfg

	if cfg.Auth.JWTSecret == "" {
		return nil, errors.New("auth.jwt_secret is required: set --jwt-secret, CAMPUS_AUTH_JWT_SECRET or 'campus config set auth.jwt_secret'")
	}
	validator, err := auth.NewJWTValidator(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	if err != nil {
		return nil, fmt.Errorf("creating token validator: %w", err)
	}

	apiKey, err := c.upstreamKey()
	if err != nil {
		return nil, err
	}

	personas := persona.NewTable()
	if cfg.Gateway.PersonasFile != "" {
		if err := personas.LoadFile(cfg.Gateway.PersonasFile); err != nil {
			return nil, err
		}
		c.logger.Info("loaded personas", "path", cfg.Gateway.PersonasFile)
	}

	storeOpts := &storageutils.NewNewsDriverOpts{
		SQLitePath:  cfg.Storage.SQLitePath,
		PostgresDSN: cfg.Storage.PostgresDSN,
	}
	store, err := storageutils.NewNewsDriver(ctx, storeOpts)
	if err != nil {
		return nil, err
	}
	c.logger.Info("using news store", "driver", storeOpts.Kind())

	publisher, err := eventstreamutils.NewPublisher(&eventstreamutils.NewPublisherOpts{
		Brokers: cfg.EventStream.KafkaBrokers,
		Topic:   cfg.EventStream.KafkaTopic,
		Logger:  c.logger,
	})
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("creating relay publisher: %w", err)
	}
	if brokers := eventstreamutils.SplitBrokers(cfg.EventStream.KafkaBrokers); len(brokers) > 0 {
		c.logger.Info("publishing relay events", "brokers", brokers, "topic", cfg.EventStream.KafkaTopic)
	}

	gw, err := gateway.New(gateway.Config{
		ListenAddr:     cfg.Gateway.Listen,
		DefaultPersona: persona.Tag(strings.ToLower(strings.TrimSpace(cfg.Gateway.DefaultPersona))),
		RateLimitRPS:   cfg.Gateway.RateLimitRPS,
		RateLimitBurst: cfg.Gateway.RateLimitBurst,
		Upstream: upstream.New(upstream.Config{
			BaseURL: cfg.Gateway.Upstream,
			APIKey:  apiKey,
			Model:   cfg.Gateway.Model,
		}),
		Validator: validator,
		Personas:  personas,
		News:      store,
		Publisher: publisher,
		Metrics:   metrics.New(),
	}, c.logger)
	if err != nil {
		publisher.Close()
		store.Close()
		return nil, fmt.Errorf("creating gateway: %w", err)
	}

	return &server{
		gateway:   gw,
		personas:  personas,
		news:      store,
		publisher: publisher,
	}, nil
}

// upstreamKey resolves the provider API key. A missing key is not fatal:
// the gateway answers chat requests with a configuration error instead.
func (c *serveCommander) upstreamKey() (string, error) {
	provider := strings.ToLower(strings.TrimSpace(c.cfg.Gateway.Provider))
	if provider == "" {
		provider = credentials.DefaultProvider
	}

	mgr, err := credentials.NewManager(c.configDir)
	if err != nil {
		return "", fmt.Errorf("loading credentials: %w", err)
	}

	key, source, err := mgr.UpstreamKey(provider)
	if err != nil {
		return "", fmt.Errorf("resolving %s API key: %w", provider, err)
	}
	if key == "" {
		c.logger.Warn("no upstream API key configured; chat requests will fail",
			"provider", provider,
			"env", credentials.EnvVarForProvider(provider),
		)
		return "", nil
	}

	c.logger.Info("using upstream API key", "provider", provider, "source", string(source))
	return key, nil
}

// Package gateway provides the campus AI gateway: an authenticated HTTP
// front for an OpenAI-compatible completion API that attaches persona
// prompts, relays streamed completions byte for byte, and serves the
// document analysis and news recommendation functions.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"

	"github.com/campusai/campus/gateway/header"
	"github.com/campusai/campus/gateway/mcp"
	"github.com/campusai/campus/gateway/worker"
	"github.com/campusai/campus/pkg/analysis"
	"github.com/campusai/campus/pkg/auth"
	"github.com/campusai/campus/pkg/eventstream/nop"
	"github.com/campusai/campus/pkg/metrics"
	"github.com/campusai/campus/pkg/news"
	"github.com/campusai/campus/pkg/persona"
	"github.com/campusai/campus/pkg/storage/inmemory"
)

// Route names used in logs, metrics and telemetry.
const (
	routeChat    = "ai-tutor"
	routeAnalyze = "analyze-question-paper"
	routeNews    = "news-recommendations"

	functionsPrefix = "/functions/v1"
)

// Gateway is the campus AI gateway server.
type Gateway struct {
	config      Config
	logger      *slog.Logger
	server      *fiber.App
	workerPool  *worker.Pool
	validate    *validator.Validate
	limiter     *subjectLimiter
	header      *header.Handler
	analyzer    *analysis.Analyzer
	recommender *news.Recommender
	mcp         *mcp.Server

	// ctx is cancelled on Close and bounds every upstream request.
	ctx    context.Context
	cancel context.CancelFunc

	// relays tracks streaming goroutines still writing to clients.
	relays sync.WaitGroup
}

// New creates a new Gateway.
func New(config Config, logger *slog.Logger) (*Gateway, error) {
	if config.Upstream == nil {
		return nil, errors.New("upstream client is required")
	}
	if config.Validator == nil {
		return nil, errors.New("token validator is required")
	}
	if logger == nil {
		return nil, errors.New("logger is required")
	}

	if config.DefaultPersona == "" {
		config.DefaultPersona = persona.Tutor
	}
	if config.Personas == nil {
		config.Personas = persona.NewTable()
	}
	if !config.Personas.Has(config.DefaultPersona) {
		return nil, fmt.Errorf("unknown default persona %q", config.DefaultPersona)
	}
	if !config.DefaultPersona.Chat() {
		return nil, fmt.Errorf("default persona %q is not available for chat", config.DefaultPersona)
	}
	if config.News == nil {
		config.News = inmemory.NewDriver()
	}
	if config.Publisher == nil {
		config.Publisher = nop.NewPublisher()
	}
	if config.Metrics == nil {
		config.Metrics = metrics.New()
	}

	wp, err := worker.NewPool(&worker.Config{
		Publisher: config.Publisher,
		Metrics:   config.Metrics,
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create worker pool: %w", err)
	}

	analyzer := analysis.NewAnalyzer(config.Upstream, config.Personas)
	recommender := news.NewRecommender(config.News, config.Upstream, config.Personas)

	mcpServer, err := mcp.NewServer(mcp.Config{
		Analyzer:    analyzer,
		Recommender: recommender,
		Logger:      logger,
	})
	if err != nil {
		wp.Close()
		return nil, fmt.Errorf("could not create MCP server: %w", err)
	}

	app := fiber.New(fiber.Config{
		// Disable startup message for cleaner logs
		DisableStartupMessage: true,
		BodyLimit:             8 << 20,
	})

	ctx, cancel := context.WithCancel(context.Background())

	g := &Gateway{
		config:      config,
		logger:      logger,
		server:      app,
		workerPool:  wp,
		validate:    newValidator(),
		limiter:     newSubjectLimiter(config.RateLimitRPS, config.RateLimitBurst),
		header:      header.NewHandler(),
		analyzer:    analyzer,
		recommender: recommender,
		mcp:         mcpServer,
		ctx:         ctx,
		cancel:      cancel,
	}

	g.routes()
	return g, nil
}

func (g *Gateway) routes() {
	app := g.server
	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{Header: header.RequestIDHeader}))

	app.Get("/ping", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(g.config.Metrics.Handler()))

	requireAuth := auth.Middleware(g.config.Validator, g.logger)

	fn := app.Group(functionsPrefix, cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: header.AllowHeaders,
		AllowMethods: "POST, OPTIONS",
	}))
	fn.Options("/*", func(c *fiber.Ctx) error {
		return c.SendStatus(fiber.StatusOK)
	})
	fn.Post("/ai-tutor", requireAuth, g.handleChat)
	fn.Post("/ai-tutor/:persona", requireAuth, g.handleChat)
	fn.Post("/analyze-question-paper", requireAuth, g.handleAnalyze)
	fn.Post("/news-recommendations", requireAuth, g.handleNews)

	app.All("/mcp", requireAuth, adaptor.HTTPHandler(g.mcp.Handler()))
}

// App exposes the fiber application, mainly for app.Test in tests.
func (g *Gateway) App() *fiber.App {
	return g.server
}

// Run starts the gateway server on the configured listening address
func (g *Gateway) Run() error {
	g.logger.Info("starting gateway server",
		"listen", g.config.ListenAddr,
		"upstream", g.config.Upstream.BaseURL(),
		"model", g.config.Upstream.Model(),
	)

	return g.server.Listen(g.config.ListenAddr)
}

// RunWithListener starts the gateway server using the provided listener.
func (g *Gateway) RunWithListener(listener net.Listener) error {
	g.logger.Info("starting gateway server",
		"listen", listener.Addr().String(),
		"upstream", g.config.Upstream.BaseURL(),
		"model", g.config.Upstream.Model(),
	)

	return g.server.Listener(listener)
}

// Close cancels in-flight upstream requests, shuts the server down and waits
// for the telemetry worker pool to drain.
func (g *Gateway) Close() error {
	g.cancel()
	err := g.server.Shutdown()
	g.relays.Wait()
	g.workerPool.Close()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

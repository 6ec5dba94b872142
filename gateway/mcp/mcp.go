// Package mcp exposes the campus analysis and news tools over MCP (Model
// Context Protocol) so agents can use them alongside the HTTP gateway.
package mcp

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/campusai/campus/pkg/news"
	"github.com/campusai/campus/pkg/utils"
)

// Analyzer analyzes question paper content.
type Analyzer interface {
	Analyze(ctx context.Context, content string) (string, error)
}

// Recommender ranks career news for a set of interests.
type Recommender interface {
	Recommend(ctx context.Context, interests string) ([]news.Item, error)
}

type Config struct {
	// Analyzer backs the analyze_question_paper tool
	Analyzer Analyzer

	// Recommender backs the recommend_news tool
	Recommender Recommender

	// Logger is the configured slog logger
	Logger *slog.Logger
}

type Server struct {
	config    Config
	mcpServer *mcp.Server
	handler   *mcp.StreamableHTTPHandler
}

// NewServer creates a new MCP server with the analysis and news tools.
func NewServer(c Config) (*Server, error) {
	if c.Analyzer == nil {
		return nil, errors.New("analyzer is required")
	}
	if c.Recommender == nil {
		return nil, errors.New("recommender is required")
	}
	if c.Logger == nil {
		return nil, errors.New("logger is required")
	}

	s := &Server{
		config: c,
	}

	mcpServer := mcp.NewServer(
		&mcp.Implementation{
			Name:    "campus",
			Version: utils.Version,
		},
		&mcp.ServerOptions{},
	)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        analyzeToolName,
		Description: analyzeDescription,
	}, s.handleAnalyze)

	mcp.AddTool(mcpServer, &mcp.Tool{
		Name:        recommendToolName,
		Description: recommendDescription,
	}, s.handleRecommend)

	s.mcpServer = mcpServer

	// Create a streamable HTTP net/http handler for stateless operations
	s.handler = mcp.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcp.Server {
			return mcpServer
		},
		&mcp.StreamableHTTPOptions{
			Stateless: true,
		},
	)

	return s, nil
}

// Handler returns the HTTP handler for the MCP server.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// MCPServer returns the underlying server, for in-process transports.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcpServer
}

package mcp

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/campusai/campus/pkg/apierr"
	"github.com/campusai/campus/pkg/news"
)

var (
	analyzeToolName    = "analyze_question_paper"
	analyzeDescription = "Analyze previous-year question paper text. Returns topic frequency, important questions and a study plan as markdown."

	recommendToolName    = "recommend_news"
	recommendDescription = "Recommend up to three recent career news items for a student's interests."
)

// AnalyzeInput represents the input arguments for the analysis tool.
type AnalyzeInput struct {
	Content string `json:"content" jsonschema:"the full question paper text, at most 100000 characters"`
}

// AnalyzeOutput represents the output of the analysis tool.
type AnalyzeOutput struct {
	Analysis string `json:"analysis"`
}

// RecommendInput represents the input arguments for the news tool.
type RecommendInput struct {
	Interests string `json:"interests,omitempty" jsonschema:"the student's interests (default: technology and career development)"`
}

// RecommendOutput represents the output of the news tool.
type RecommendOutput struct {
	Recommendations []news.Item `json:"recommendations"`
	Count           int         `json:"count"`
}

func (s *Server) handleAnalyze(ctx context.Context, _ *mcp.CallToolRequest, input AnalyzeInput) (*mcp.CallToolResult, AnalyzeOutput, error) {
	s.config.Logger.Debug("MCP analyze request", "content_length", len(input.Content))

	out, err := s.config.Analyzer.Analyze(ctx, input.Content)
	if err != nil {
		s.config.Logger.Error("MCP analyze failed", "error", err)
		return nil, AnalyzeOutput{}, toolError(err)
	}

	return nil, AnalyzeOutput{Analysis: out}, nil
}

func (s *Server) handleRecommend(ctx context.Context, _ *mcp.CallToolRequest, input RecommendInput) (*mcp.CallToolResult, RecommendOutput, error) {
	s.config.Logger.Debug("MCP recommend request", "interests", input.Interests)

	items, err := s.config.Recommender.Recommend(ctx, input.Interests)
	if err != nil {
		s.config.Logger.Error("MCP recommend failed", "error", err)
		return nil, RecommendOutput{}, toolError(err)
	}
	if items == nil {
		items = []news.Item{}
	}

	return nil, RecommendOutput{Recommendations: items, Count: len(items)}, nil
}

// toolError reduces err to its user-facing copy. The SDK reports it inside
// the tool result so the calling model can see it.
func toolError(err error) error {
	return errors.New(apierr.As(err).UserMessage())
}

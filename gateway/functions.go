package gateway

import (
	"github.com/gofiber/fiber/v2"

	"github.com/campusai/campus/pkg/eventstream"
	"github.com/campusai/campus/pkg/llm"
	"github.com/campusai/campus/pkg/news"
	"github.com/campusai/campus/pkg/persona"
)

// handleAnalyze forwards question paper content as one non-streamed
// completion under the pyq-analysis persona.
func (g *Gateway) handleAnalyze(c *fiber.Ctx) error {
	meta := g.newRequestMeta(c, routeAnalyze)
	meta.persona = string(persona.PYQAnalysis)

	if err := g.allow(meta); err != nil {
		return g.fail(c, meta, err)
	}

	var req llm.AnalysisRequest
	if err := decodeBody(c, &req, false); err != nil {
		return g.fail(c, meta, err)
	}

	// Analyze re-checks the size ceiling before calling upstream.
	out, err := g.analyzer.Analyze(g.ctx, req.Content)
	if err != nil {
		return g.fail(c, meta, err)
	}

	g.logger.Debug("analysis complete",
		"request_id", meta.requestID,
		"content_length", len(req.Content),
		"analysis_length", len(out),
	)
	g.record(meta, fiber.StatusOK, "", false, eventstream.RelayStream{Bytes: int64(len(out))})

	return c.JSON(llm.AnalysisResponse{Analysis: out})
}

// handleNews ranks recent career news for the caller's interests.
func (g *Gateway) handleNews(c *fiber.Ctx) error {
	meta := g.newRequestMeta(c, routeNews)
	meta.persona = string(persona.NewsAdvisor)

	if err := g.allow(meta); err != nil {
		return g.fail(c, meta, err)
	}

	var req news.Request
	if err := decodeBody(c, &req, true); err != nil {
		return g.fail(c, meta, err)
	}

	items, err := g.recommender.Recommend(g.ctx, req.UserInterests)
	if err != nil {
		return g.fail(c, meta, err)
	}
	if items == nil {
		items = []news.Item{}
	}

	g.record(meta, fiber.StatusOK, "", false, eventstream.RelayStream{})
	return c.JSON(news.Response{Recommendations: items})
}

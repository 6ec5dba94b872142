package news

import (
	"context"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/campusai/campus/pkg/llm"
	"github.com/campusai/campus/pkg/persona"
)

const (
	// CandidateLimit is how many recent items are offered to the model.
	CandidateLimit = 20

	// MaxRecommendations caps the number of items returned.
	MaxRecommendations = 3

	emptyNews = "No news available"
)

// Source lists recent news items, newest first.
type Source interface {
	Latest(ctx context.Context, limit int) ([]Item, error)
}

// Completer runs a single non-streaming completion.
type Completer interface {
	Complete(ctx context.Context, messages []llm.ChatMessage) (string, error)
}

// Request is the body of a recommendation call.
type Request struct {
	UserInterests string `json:"userInterests"`
}

// Response carries the recommended items in order of relevance.
type Response struct {
	Recommendations []Item `json:"recommendations"`
}

// Recommender ranks recent news for a student's interests.
type Recommender struct {
	source    Source
	completer Completer
	personas  *persona.Table
}

// NewRecommender creates a Recommender.
func NewRecommender(source Source, completer Completer, personas *persona.Table) *Recommender {
	return &Recommender{
		source:    source,
		completer: completer,
		personas:  personas,
	}
}

// Recommend asks the model to rank the most recent items for interests.
// Upstream errors are returned unchanged so callers can translate them.
// A reply that does not name any known item falls back to the most recent
// items.
func (r *Recommender) Recommend(ctx context.Context, interests string) ([]Item, error) {
	items, err := r.source.Latest(ctx, CandidateLimit)
	if err != nil {
		return nil, fmt.Errorf("could not load news: %w", err)
	}

	messages := []llm.ChatMessage{
		llm.NewTextMessage(llm.RoleSystem, r.personas.NewsAdvisorPrompt(interests)),
		llm.NewTextMessage(llm.RoleUser, Digest(items)),
	}

	reply, err := r.completer.Complete(ctx, messages)
	if err != nil {
		return nil, err
	}

	if picked := Select(items, ParseIDs(reply)); len(picked) > 0 {
		return picked, nil
	}
	return mostRecent(items), nil
}

// Digest renders items as the user message sent to the model.
func Digest(items []Item) string {
	if len(items) == 0 {
		return emptyNews
	}

	parts := make([]string, 0, len(items))
	for _, item := range items {
		parts = append(parts, fmt.Sprintf("[%s] %s (%s): %s", item.ID, item.Title, item.Category, item.Content))
	}
	return strings.Join(parts, "\n\n")
}

// ParseIDs extracts the JSON array of IDs from a model reply. Models often
// wrap the array in prose or a code fence, so the outermost brackets are
// used. Returns nil when no valid array is found.
func ParseIDs(reply string) []string {
	start := strings.Index(reply, "[")
	end := strings.LastIndex(reply, "]")
	if start < 0 || end <= start {
		return nil
	}

	raw := reply[start : end+1]
	if !gjson.Valid(raw) {
		return nil
	}

	var ids []string
	gjson.Parse(raw).ForEach(func(_, v gjson.Result) bool {
		if v.Type == gjson.String {
			ids = append(ids, v.String())
		}
		return true
	})
	return ids
}

// Select returns the items named by ids in that order, skipping unknown and
// repeated IDs, capped at MaxRecommendations.
func Select(items []Item, ids []string) []Item {
	byID := make(map[string]Item, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}

	out := make([]Item, 0, MaxRecommendations)
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if len(out) == MaxRecommendations {
			break
		}
		item, ok := byID[id]
		if !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, item)
	}
	return out
}

func mostRecent(items []Item) []Item {
	if len(items) > MaxRecommendations {
		items = items[:MaxRecommendations]
	}
	return append([]Item{}, items...)
}

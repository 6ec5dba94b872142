// Package persona maps persona tags to the system prompts injected ahead of
// a conversation. The same table is consumed by the gateway and by clients.
package persona

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/campusai/campus/pkg/llm"
)

// Tag identifies a persona.
type Tag string

const (
	Tutor          Tag = "tutor"
	ExamPrep       Tag = "exam-prep"
	CareerGuidance Tag = "career-guidance"
	PYQAnalysis    Tag = "pyq-analysis"
	NewsAdvisor    Tag = "news-advisor"

	// None disables system prompt injection.
	None Tag = "none"
)

// InterestsPlaceholder is replaced by the reader's interests in the
// news-advisor prompt.
const InterestsPlaceholder = "{interests}"

// DefaultInterests is used when a news request carries no interests.
const DefaultInterests = "technology and career development"

// Persona is a named system prompt.
type Persona struct {
	Tag          Tag    `toml:"tag"`
	Description  string `toml:"description"`
	SystemPrompt string `toml:"system_prompt"`
}

// Defaults returns the built-in personas.
func Defaults() []Persona {
	return []Persona{
		{
			Tag:         Tutor,
			Description: "General AI tutor",
			SystemPrompt: "You are a friendly and knowledgeable AI tutor for college students. " +
				"Explain concepts step by step, use examples, check understanding, and keep answers clear and concise.",
		},
		{
			Tag:         ExamPrep,
			Description: "Exam preparation assistant",
			SystemPrompt: "You are an expert exam preparation tutor. Help students prepare for their exams by:\n" +
				"1. Creating personalized study plans\n" +
				"2. Explaining difficult concepts clearly\n" +
				"3. Providing practice questions and mock tests\n" +
				"4. Suggesting time management strategies\n" +
				"5. Offering tips for exam day success\n\n" +
				"Be encouraging and supportive while providing actionable study advice.",
		},
		{
			Tag:         CareerGuidance,
			Description: "Career counselor",
			SystemPrompt: "You are an experienced career counselor and guidance expert. Help students with:\n" +
				"1. Career path exploration and recommendations\n" +
				"2. Industry insights and job market trends\n" +
				"3. Skill development and course suggestions\n" +
				"4. Resume building and interview preparation\n" +
				"5. Internship and job search strategies\n" +
				"6. Higher education options and guidance\n\n" +
				"Provide personalized advice based on student interests, strengths, and goals. Be encouraging and practical.",
		},
		{
			Tag:         PYQAnalysis,
			Description: "Previous year question analyst",
			SystemPrompt: "You are an expert at analyzing previous year exam questions and patterns. Help students by:\n" +
				"1. Analyzing question patterns and trends from previous years\n" +
				"2. Identifying frequently asked topics and important concepts\n" +
				"3. Providing detailed solutions and explanations for past questions\n" +
				"4. Predicting potential questions based on historical patterns\n" +
				"5. Suggesting which topics to prioritize for preparation\n" +
				"6. Explaining marking schemes and answer strategies\n\n" +
				"Provide thorough analysis and actionable insights for better exam preparation.",
		},
		{
			Tag:         NewsAdvisor,
			Description: "Career news recommender",
			SystemPrompt: "You are a career advisor AI. Analyze the following news items and recommend the top 3 " +
				"most relevant ones for students interested in " + InterestsPlaceholder + ". " +
				`Return ONLY a JSON array of the news IDs in order of relevance, like: ["id1", "id2", "id3"]`,
		},
		{
			Tag:         None,
			Description: "No system prompt",
		},
	}
}

// ParseTag validates s as a known built-in tag. The empty string parses as
// the empty tag so callers can fall through to a default.
func ParseTag(s string) (Tag, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return "", nil
	}
	for _, p := range Defaults() {
		if string(p.Tag) == s {
			return p.Tag, nil
		}
	}
	return "", fmt.Errorf("unknown persona %q", s)
}

// Chat reports whether the persona can lead a chat. The news-advisor prompt
// is a template for the recommender and asks for a bare JSON reply.
func (t Tag) Chat() bool {
	return t != NewsAdvisor
}

// ParseChatTag is ParseTag restricted to personas that can lead a chat.
func ParseChatTag(s string) (Tag, error) {
	tag, err := ParseTag(s)
	if err != nil {
		return "", err
	}
	if !tag.Chat() {
		return "", fmt.Errorf("persona %q is not available for chat", tag)
	}
	return tag, nil
}

// Table is a concurrency-safe persona lookup table. It starts with the
// built-in personas; overrides replace entries by tag.
type Table struct {
	mu       sync.RWMutex
	personas map[Tag]Persona
}

// NewTable returns a table holding the built-in personas.
func NewTable() *Table {
	t := &Table{}
	t.reset(nil)
	return t
}

func (t *Table) reset(overrides []Persona) {
	personas := make(map[Tag]Persona, len(overrides)+6)
	for _, p := range Defaults() {
		personas[p.Tag] = p
	}
	for _, p := range overrides {
		if p.Tag == None {
			continue
		}
		personas[p.Tag] = p
	}

	t.mu.Lock()
	t.personas = personas
	t.mu.Unlock()
}

// Get returns the persona for tag.
func (t *Table) Get(tag Tag) (Persona, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	p, ok := t.personas[tag]
	return p, ok
}

// Has reports whether tag is known to the table.
func (t *Table) Has(tag Tag) bool {
	_, ok := t.Get(tag)
	return ok
}

// Tags returns all known tags in sorted order.
func (t *Table) Tags() []Tag {
	t.mu.RLock()
	defer t.mu.RUnlock()
	tags := make([]Tag, 0, len(t.personas))
	for tag := range t.personas {
		tags = append(tags, tag)
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i] < tags[j] })
	return tags
}

// SystemPrompt returns the prompt for tag. The None persona returns "".
func (t *Table) SystemPrompt(tag Tag) (string, error) {
	p, ok := t.Get(tag)
	if !ok {
		return "", fmt.Errorf("unknown persona %q", tag)
	}
	return p.SystemPrompt, nil
}

// NewsAdvisorPrompt renders the news-advisor prompt for the given interests.
func (t *Table) NewsAdvisorPrompt(interests string) string {
	interests = strings.TrimSpace(interests)
	if interests == "" {
		interests = DefaultInterests
	}
	p, _ := t.Get(NewsAdvisor)
	return strings.ReplaceAll(p.SystemPrompt, InterestsPlaceholder, interests)
}

// Inject prepends the persona's system prompt to messages unless the first
// message is already a system message, the persona is None, or its prompt
// is empty. The input slice is never modified.
func (t *Table) Inject(tag Tag, messages []llm.ChatMessage) ([]llm.ChatMessage, error) {
	if len(messages) > 0 && messages[0].IsSystem() {
		return messages, nil
	}
	prompt, err := t.SystemPrompt(tag)
	if err != nil {
		return nil, err
	}
	if prompt == "" {
		return messages, nil
	}

	out := make([]llm.ChatMessage, 0, len(messages)+1)
	out = append(out, llm.NewTextMessage(llm.RoleSystem, prompt))
	return append(out, messages...), nil
}

package analysis

import (
	"context"
	"fmt"

	"github.com/campusai/campus/pkg/llm"
	"github.com/campusai/campus/pkg/persona"
)

// Completer runs a single non-streaming completion.
type Completer interface {
	Complete(ctx context.Context, messages []llm.ChatMessage) (string, error)
}

// Analyzer sends question paper content upstream under the pyq-analysis
// persona. It backs both the HTTP gateway and the MCP tool.
type Analyzer struct {
	completer Completer
	personas  *persona.Table
}

// NewAnalyzer creates an Analyzer.
func NewAnalyzer(completer Completer, personas *persona.Table) *Analyzer {
	return &Analyzer{
		completer: completer,
		personas:  personas,
	}
}

// Analyze validates content and returns the model's analysis. Validation
// happens before any upstream call.
func (a *Analyzer) Analyze(ctx context.Context, content string) (string, error) {
	if err := Validate(content); err != nil {
		return "", err
	}

	messages, err := a.personas.Inject(persona.PYQAnalysis, []llm.ChatMessage{
		llm.NewTextMessage(llm.RoleUser, content),
	})
	if err != nil {
		return "", fmt.Errorf("could not build analysis prompt: %w", err)
	}

	return a.completer.Complete(ctx, messages)
}

package analysis_test

import (
	"context"
	"errors"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/campusai/campus/pkg/analysis"
	"github.com/campusai/campus/pkg/apierr"
	"github.com/campusai/campus/pkg/llm"
	"github.com/campusai/campus/pkg/persona"
)

type stubCompleter struct {
	calls    int
	messages []llm.ChatMessage
	reply    string
	err      error
}

func (s *stubCompleter) Complete(_ context.Context, messages []llm.ChatMessage) (string, error) {
	s.calls++
	s.messages = messages
	return s.reply, s.err
}

var _ = Describe("Analyzer", func() {
	var (
		completer *stubCompleter
		analyzer  *analysis.Analyzer
		table     *persona.Table
	)

	BeforeEach(func() {
		completer = &stubCompleter{reply: "## Topics\n- Calculus"}
		table = persona.NewTable()
		analyzer = analysis.NewAnalyzer(completer, table)
	})

	It("sends the content as one user message under the pyq-analysis prompt", func() {
		out, err := analyzer.Analyze(context.Background(), "Q1. Integrate x^2")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal("## Topics\n- Calculus"))

		prompt, err := table.SystemPrompt(persona.PYQAnalysis)
		Expect(err).NotTo(HaveOccurred())
		Expect(completer.messages).To(Equal([]llm.ChatMessage{
			llm.NewTextMessage(llm.RoleSystem, prompt),
			llm.NewTextMessage(llm.RoleUser, "Q1. Integrate x^2"),
		}))
	})

	It("rejects oversized content without calling upstream", func() {
		_, err := analyzer.Analyze(context.Background(), strings.Repeat("a", 150_000))
		Expect(errors.Is(err, apierr.ErrPayloadTooLarge)).To(BeTrue())
		Expect(completer.calls).To(Equal(0))
	})

	It("rejects blank content without calling upstream", func() {
		_, err := analyzer.Analyze(context.Background(), " \n ")
		Expect(errors.Is(err, apierr.ErrInvalidRequest)).To(BeTrue())
		Expect(completer.calls).To(Equal(0))
	})

	It("passes upstream errors through", func() {
		completer.err = apierr.New(apierr.KindCreditsExhausted, "")
		_, err := analyzer.Analyze(context.Background(), "Q1")
		Expect(errors.Is(err, apierr.ErrCreditsExhausted)).To(BeTrue())
	})
})

package news_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/campusai/campus/pkg/apierr"
	"github.com/campusai/campus/pkg/llm"
	"github.com/campusai/campus/pkg/news"
	"github.com/campusai/campus/pkg/persona"
	"github.com/campusai/campus/pkg/storage/inmemory"
)

type fakeCompleter struct {
	reply    string
	err      error
	messages []llm.ChatMessage
}

func (f *fakeCompleter) Complete(_ context.Context, messages []llm.ChatMessage) (string, error) {
	f.messages = messages
	return f.reply, f.err
}

var _ = Describe("Recommender", func() {
	var (
		ctx       context.Context
		store     *inmemory.Driver
		completer *fakeCompleter
		rec       *news.Recommender
	)

	BeforeEach(func() {
		ctx = context.Background()
		store = inmemory.NewDriver()
		completer = &fakeCompleter{}
		rec = news.NewRecommender(store, completer, persona.NewTable())

		base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
		for i, id := range []string{"n1", "n2", "n3", "n4", "n5"} {
			_, err := store.Put(ctx, &news.Item{
				ID:        id,
				Title:     "Title " + id,
				Category:  "tech",
				Content:   "Body " + id,
				CreatedAt: base.Add(time.Duration(i) * time.Hour),
			})
			Expect(err).NotTo(HaveOccurred())
		}
	})

	It("returns the items named by the model in order", func() {
		completer.reply = `["n2", "n4", "n1"]`

		items, err := rec.Recommend(ctx, "machine learning")
		Expect(err).NotTo(HaveOccurred())
		Expect(items).To(HaveLen(3))
		Expect(items[0].ID).To(Equal("n2"))
		Expect(items[1].ID).To(Equal("n4"))
		Expect(items[2].ID).To(Equal("n1"))
	})

	It("sends the interests in the system prompt and the digest as the user message", func() {
		completer.reply = `["n1"]`

		_, err := rec.Recommend(ctx, "robotics")
		Expect(err).NotTo(HaveOccurred())
		Expect(completer.messages).To(HaveLen(2))
		Expect(completer.messages[0].Role).To(Equal(llm.RoleSystem))
		Expect(completer.messages[0].Content).To(ContainSubstring("robotics"))
		Expect(completer.messages[1].Role).To(Equal(llm.RoleUser))
		Expect(completer.messages[1].Content).To(HavePrefix("[n5] Title n5 (tech): Body n5"))
	})

	It("uses the default interests when none are given", func() {
		completer.reply = `["n1"]`

		_, err := rec.Recommend(ctx, "  ")
		Expect(err).NotTo(HaveOccurred())
		Expect(completer.messages[0].Content).To(ContainSubstring(persona.DefaultInterests))
	})

	It("falls back to the three most recent items on an unparseable reply", func() {
		completer.reply = "I think the second one is best."

		items, err := rec.Recommend(ctx, "")
		Expect(err).NotTo(HaveOccurred())
		Expect(items).To(HaveLen(3))
		Expect(items[0].ID).To(Equal("n5"))
		Expect(items[2].ID).To(Equal("n3"))
	})

	It("falls back when every ID is unknown", func() {
		completer.reply = `["x", "y"]`

		items, err := rec.Recommend(ctx, "")
		Expect(err).NotTo(HaveOccurred())
		Expect(items[0].ID).To(Equal("n5"))
	})

	It("returns upstream errors unchanged", func() {
		completer.err = apierr.ErrRateLimited

		_, err := rec.Recommend(ctx, "")
		Expect(errors.Is(err, apierr.ErrRateLimited)).To(BeTrue())
	})

	It("sends a placeholder when the store is empty", func() {
		rec = news.NewRecommender(inmemory.NewDriver(), completer, persona.NewTable())
		completer.reply = `[]`

		items, err := rec.Recommend(ctx, "")
		Expect(err).NotTo(HaveOccurred())
		Expect(items).To(BeEmpty())
		Expect(completer.messages[1].Content).To(Equal("No news available"))
	})
})

var _ = Describe("ParseIDs", func() {
	DescribeTable("extracts IDs",
		func(reply string, expected []string) {
			Expect(news.ParseIDs(reply)).To(Equal(expected))
		},
		Entry("bare array", `["a","b"]`, []string{"a", "b"}),
		Entry("code fence", "```json\n[\"a\", \"b\", \"c\"]\n```", []string{"a", "b", "c"}),
		Entry("prose around", `Here you go: ["a"] enjoy`, []string{"a"}),
		Entry("non-string entries skipped", `["a", 2, null]`, []string{"a"}),
		Entry("no array", "nothing", nil),
		Entry("broken array", `["a", `, nil),
	)
})

var _ = Describe("Select", func() {
	items := []news.Item{{ID: "a"}, {ID: "b"}, {ID: "c"}, {ID: "d"}}

	It("caps the result and skips duplicates", func() {
		got := news.Select(items, []string{"d", "d", "a", "zz", "b", "c"})
		Expect(got).To(HaveLen(3))
		Expect(got[0].ID).To(Equal("d"))
		Expect(got[1].ID).To(Equal("a"))
		Expect(got[2].ID).To(Equal("b"))
	})
})

package gateway

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/campusai/campus/gateway/header"
	"github.com/campusai/campus/pkg/apierr"
	"github.com/campusai/campus/pkg/llm"
	"github.com/campusai/campus/pkg/news"
	"github.com/campusai/campus/pkg/persona"
	testutils "github.com/campusai/campus/pkg/utils/test"
)

var _ = Describe("Gateway", func() {
	var tg *testGateway

	AfterEach(func() {
		if tg != nil {
			tg.close()
			tg = nil
		}
	})

	Describe("New", func() {
		It("requires an upstream client", func() {
			_, err := New(Config{}, nil)
			Expect(err).To(MatchError(ContainSubstring("upstream client is required")))
		})

		It("rejects an unknown default persona", func() {
			tg = newTestGateway("sk-test", nil)
			cfg := tg.config
			cfg.DefaultPersona = persona.Tag("astrologer")
			_, err := New(cfg, tg.logger)
			Expect(err).To(MatchError(ContainSubstring("unknown default persona")))
		})

		It("rejects news-advisor as the default chat persona", func() {
			tg = newTestGateway("sk-test", nil)
			cfg := tg.config
			cfg.DefaultPersona = persona.NewsAdvisor
			_, err := New(cfg, tg.logger)
			Expect(err).To(MatchError(ContainSubstring("not available for chat")))
		})
	})

	Describe("GET /ping", func() {
		It("answers without a token", func() {
			tg = newTestGateway("sk-test", nil)

			resp, err := tg.App().Test(httptest.NewRequest(http.MethodGet, "/ping", nil), -1)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(readBody(resp)).To(MatchJSON(`{"status":"ok"}`))
		})

		It("tags responses with a request ID", func() {
			tg = newTestGateway("sk-test", nil)

			resp, err := tg.App().Test(httptest.NewRequest(http.MethodGet, "/ping", nil), -1)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Header.Get(header.RequestIDHeader)).NotTo(BeEmpty())

			req := httptest.NewRequest(http.MethodGet, "/ping", nil)
			req.Header.Set(header.RequestIDHeader, "trace-42")
			resp, err = tg.App().Test(req, -1)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Header.Get(header.RequestIDHeader)).To(Equal("trace-42"))
		})
	})

	Describe("CORS preflight", func() {
		It("answers OPTIONS with 200 and the allowed headers", func() {
			tg = newTestGateway("sk-test", nil)

			req := httptest.NewRequest(http.MethodOptions, "/functions/v1/ai-tutor", nil)
			req.Header.Set("Origin", "https://campus.example.edu")
			req.Header.Set("Access-Control-Request-Method", http.MethodPost)
			resp, err := tg.App().Test(req, -1)
			Expect(err).NotTo(HaveOccurred())

			Expect(resp.StatusCode).To(BeElementOf(http.StatusOK, http.StatusNoContent))
			Expect(resp.Header.Get("Access-Control-Allow-Origin")).To(Equal("*"))
			Expect(strings.ToLower(resp.Header.Get("Access-Control-Allow-Headers"))).To(ContainSubstring("authorization"))
		})
	})

	Describe("authentication", func() {
		It("rejects requests without a bearer token", func() {
			tg = newTestGateway("sk-test", nil)
			tg.token = ""

			resp := tg.post("/functions/v1/ai-tutor", chatBody(llm.NewTextMessage(llm.RoleUser, "hi")))
			Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
			Expect(decodeError(resp).Code).To(Equal(string(apierr.KindAuthenticationRequired)))
			Expect(tg.fake.Requests()).To(BeEmpty())
		})

		It("rejects a malformed token", func() {
			tg = newTestGateway("sk-test", nil)
			tg.token = "not-a-jwt"

			resp := tg.post("/functions/v1/news-recommendations", "")
			Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
		})
	})

	Describe("POST /functions/v1/ai-tutor", func() {
		It("relays the upstream stream verbatim", func() {
			tg = newTestGateway("sk-test", nil)
			chunks := testutils.SSEChunks("He", "llo")
			tg.fake.StreamChunks(chunks...)

			resp := tg.post("/functions/v1/ai-tutor", chatBody(llm.NewTextMessage(llm.RoleUser, "Say hello")))
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(resp.Header.Get("Content-Type")).To(HavePrefix("text/event-stream"))
			Expect(resp.Header.Get("Cache-Control")).To(Equal("no-cache"))
			Expect(readBody(resp)).To(Equal(strings.Join(chunks, "")))
		})

		It("passes comments and CRLF framing through untouched", func() {
			tg = newTestGateway("sk-test", nil)
			raw := []string{
				": keep-alive\r\n\r\n",
				"data: {\"choices\":[{\"delta\":{\"content\":\"A\"}}]}\r\n\r\n",
				"data: [DONE]\r\n\r\n",
			}
			tg.fake.StreamChunks(raw...)

			resp := tg.post("/functions/v1/ai-tutor", chatBody(llm.NewTextMessage(llm.RoleUser, "x")))
			Expect(readBody(resp)).To(Equal(strings.Join(raw, "")))
		})

		It("asks upstream for a streamed completion with the tutor prompt first", func() {
			tg = newTestGateway("sk-test", nil)
			tg.fake.StreamDeltas("ok")

			readBody(tg.post("/functions/v1/ai-tutor", chatBody(llm.NewTextMessage(llm.RoleUser, "What is a monad?"))))

			reqs := tg.fake.Requests()
			Expect(reqs).To(HaveLen(1))
			Expect(reqs[0].Stream).To(BeTrue())
			Expect(reqs[0].Model).To(Equal("test-model"))
			Expect(reqs[0].Messages).To(HaveLen(2))
			Expect(reqs[0].Messages[0].Role).To(Equal(llm.RoleSystem))

			prompt, err := tg.config.Personas.SystemPrompt(persona.Tutor)
			Expect(err).NotTo(HaveOccurred())
			Expect(reqs[0].Messages[0].Content).To(Equal(prompt))
			Expect(reqs[0].Messages[1].Content).To(Equal("What is a monad?"))
		})

		It("selects the persona from the route before the body", func() {
			tg = newTestGateway("sk-test", nil)
			tg.fake.StreamDeltas("ok")

			body := llm.ChatRequest{
				Messages: []llm.ChatMessage{llm.NewTextMessage(llm.RoleUser, "plan my week")},
				Persona:  string(persona.CareerGuidance),
			}
			readBody(tg.post("/functions/v1/ai-tutor/exam-prep", body))

			prompt, _ := tg.config.Personas.SystemPrompt(persona.ExamPrep)
			Expect(tg.fake.Requests()[0].Messages[0].Content).To(Equal(prompt))
		})

		It("selects the persona from the body field", func() {
			tg = newTestGateway("sk-test", nil)
			tg.fake.StreamDeltas("ok")

			body := llm.ChatRequest{
				Messages: []llm.ChatMessage{llm.NewTextMessage(llm.RoleUser, "resume tips")},
				Persona:  string(persona.CareerGuidance),
			}
			readBody(tg.post("/functions/v1/ai-tutor", body))

			prompt, _ := tg.config.Personas.SystemPrompt(persona.CareerGuidance)
			Expect(tg.fake.Requests()[0].Messages[0].Content).To(Equal(prompt))
		})

		It("keeps a caller supplied system prompt", func() {
			tg = newTestGateway("sk-test", nil)
			tg.fake.StreamDeltas("ok")

			readBody(tg.post("/functions/v1/ai-tutor/exam-prep", chatBody(
				llm.NewTextMessage(llm.RoleSystem, "You are a pirate."),
				llm.NewTextMessage(llm.RoleUser, "hi"),
			)))

			msgs := tg.fake.Requests()[0].Messages
			Expect(msgs).To(HaveLen(2))
			Expect(msgs[0].Content).To(Equal("You are a pirate."))
		})

		It("injects nothing for the none persona", func() {
			tg = newTestGateway("sk-test", nil)
			tg.fake.StreamDeltas("ok")

			readBody(tg.post("/functions/v1/ai-tutor/none", chatBody(llm.NewTextMessage(llm.RoleUser, "hi"))))

			msgs := tg.fake.Requests()[0].Messages
			Expect(msgs).To(HaveLen(1))
			Expect(msgs[0].Role).To(Equal(llm.RoleUser))
		})

		DescribeTable("refuses news-advisor as a chat persona",
			func(path string, body llm.ChatRequest) {
				tg = newTestGateway("sk-test", nil)
				tg.fake.StreamDeltas("ok")

				resp := tg.post(path, body)
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				e := decodeError(resp)
				Expect(e.Code).To(Equal(string(apierr.KindInvalidRequest)))
				Expect(e.Error).To(ContainSubstring("not available for chat"))
				Expect(tg.fake.Requests()).To(BeEmpty())
			},
			Entry("from the route", "/functions/v1/ai-tutor/news-advisor",
				chatBody(llm.NewTextMessage(llm.RoleUser, "hi"))),
			Entry("from the body", "/functions/v1/ai-tutor",
				llm.ChatRequest{Persona: "news-advisor", Messages: []llm.ChatMessage{llm.NewTextMessage(llm.RoleUser, "hi")}}),
		)

		It("rejects an unknown persona", func() {
			tg = newTestGateway("sk-test", nil)

			resp := tg.post("/functions/v1/ai-tutor/astrologer", chatBody(llm.NewTextMessage(llm.RoleUser, "hi")))
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			Expect(decodeError(resp).Error).To(ContainSubstring("astrologer"))
			Expect(tg.fake.Requests()).To(BeEmpty())
		})

		DescribeTable("translates upstream failures",
			func(status int, wantStatus int, wantCode apierr.Kind, wantMessage string) {
				tg = newTestGateway("sk-test", nil)
				tg.fake.FailWith(status, `{"error":{"message":"upstream said no"}}`)

				resp := tg.post("/functions/v1/ai-tutor", chatBody(llm.NewTextMessage(llm.RoleUser, "hi")))
				Expect(resp.StatusCode).To(Equal(wantStatus))

				body := decodeError(resp)
				Expect(body.Code).To(Equal(string(wantCode)))
				Expect(body.Error).To(Equal(wantMessage))
			},
			Entry("rate limit", http.StatusTooManyRequests, http.StatusTooManyRequests,
				apierr.KindRateLimited, "Rate limit exceeded. Please try again later."),
			Entry("credits", http.StatusPaymentRequired, http.StatusPaymentRequired,
				apierr.KindCreditsExhausted, "AI credits exhausted. Please contact admin."),
			Entry("server error", http.StatusInternalServerError, http.StatusBadGateway,
				apierr.KindUpstreamFailure, "AI gateway error"),
		)

		It("fails with a configuration error when no API key is set", func() {
			tg = newTestGateway("", nil)

			resp := tg.post("/functions/v1/ai-tutor", chatBody(llm.NewTextMessage(llm.RoleUser, "hi")))
			Expect(resp.StatusCode).To(Equal(http.StatusInternalServerError))
			Expect(decodeError(resp).Code).To(Equal(string(apierr.KindConfigurationError)))
			Expect(tg.fake.Requests()).To(BeEmpty())
		})

		DescribeTable("validates the request body",
			func(body any) {
				tg = newTestGateway("sk-test", nil)

				resp := tg.post("/functions/v1/ai-tutor", body)
				Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
				Expect(decodeError(resp).Code).To(Equal(string(apierr.KindInvalidRequest)))
				Expect(tg.fake.Requests()).To(BeEmpty())
			},
			Entry("empty body", ""),
			Entry("malformed JSON", `{"messages":`),
			Entry("no messages", `{"messages":[]}`),
			Entry("unknown role", `{"messages":[{"role":"tool","content":"x"}]}`),
			Entry("oversized message", chatBody(llm.NewTextMessage(llm.RoleUser, strings.Repeat("a", MaxMessageBytes+1)))),
		)

		It("applies the per-caller rate limit", func() {
			tg = newTestGateway("sk-test", func(c *Config) {
				c.RateLimitRPS = 0.001
				c.RateLimitBurst = 1
			})
			tg.fake.StreamDeltas("ok")

			first := tg.post("/functions/v1/ai-tutor", chatBody(llm.NewTextMessage(llm.RoleUser, "one")))
			Expect(first.StatusCode).To(Equal(http.StatusOK))
			readBody(first)

			second := tg.post("/functions/v1/ai-tutor", chatBody(llm.NewTextMessage(llm.RoleUser, "two")))
			Expect(second.StatusCode).To(Equal(http.StatusTooManyRequests))
			Expect(decodeError(second).Code).To(Equal(string(apierr.KindRateLimited)))
			Expect(tg.fake.Requests()).To(HaveLen(1))
		})

		It("publishes a relay event without message content", func() {
			tg = newTestGateway("sk-test", nil)
			tg.fake.StreamDeltas("He", "llo")

			readBody(tg.post("/functions/v1/ai-tutor", chatBody(llm.NewTextMessage(llm.RoleUser, "secret question"))))

			Eventually(tg.publisher.Events).Should(HaveLen(1))
			ev := tg.publisher.Events()[0]
			Expect(ev.Source.Subject).To(Equal("student-1"))
			Expect(ev.Source.Persona).To(Equal(string(persona.Tutor)))
			Expect(ev.RequestMeta.Streaming).To(BeTrue())
			Expect(ev.RequestMeta.HTTPStatus).To(Equal(http.StatusOK))
			Expect(ev.Stream.Deltas).To(Equal(2))
			Expect(ev.Stream.SawDone).To(BeTrue())

			raw, err := json.Marshal(ev)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(raw)).NotTo(ContainSubstring("secret question"))
			Expect(string(raw)).NotTo(ContainSubstring("llo"))
		})
	})

	Describe("POST /functions/v1/analyze-question-paper", func() {
		It("returns the analysis from one non-streamed completion", func() {
			tg = newTestGateway("sk-test", nil)
			tg.fake.CompleteWith("Unit 3 appears every year.")

			resp := tg.post("/functions/v1/analyze-question-paper", llm.AnalysisRequest{Content: "Q1. Define entropy."})
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(readBody(resp)).To(MatchJSON(`{"analysis":"Unit 3 appears every year."}`))

			reqs := tg.fake.Requests()
			Expect(reqs).To(HaveLen(1))
			Expect(reqs[0].Stream).To(BeFalse())
			prompt, _ := tg.config.Personas.SystemPrompt(persona.PYQAnalysis)
			Expect(reqs[0].Messages[0].Content).To(Equal(prompt))
			Expect(reqs[0].Messages[1].Content).To(Equal("Q1. Define entropy."))
		})

		It("rejects content over the size ceiling", func() {
			tg = newTestGateway("sk-test", nil)

			resp := tg.post("/functions/v1/analyze-question-paper", llm.AnalysisRequest{Content: strings.Repeat("x", 100_001)})
			Expect(resp.StatusCode).To(Equal(http.StatusRequestEntityTooLarge))
			Expect(decodeError(resp).Code).To(Equal(string(apierr.KindPayloadTooLarge)))
			Expect(tg.fake.Requests()).To(BeEmpty())
		})

		It("rejects blank content", func() {
			tg = newTestGateway("sk-test", nil)

			resp := tg.post("/functions/v1/analyze-question-paper", llm.AnalysisRequest{Content: "  "})
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("POST /functions/v1/news-recommendations", func() {
		var ids []string

		seed := func() {
			ids = nil
			for _, title := range []string{"Hackathon", "Internship drive", "Placement stats", "Alumni talk"} {
				item := news.NewItem(title, "careers", title+" details")
				_, err := tg.news.Put(tg.ctx, item)
				Expect(err).NotTo(HaveOccurred())
				ids = append(ids, item.ID)
			}
		}

		It("returns the items the model picked, in its order", func() {
			tg = newTestGateway("sk-test", nil)
			seed()
			tg.fake.CompleteWith(`Here you go: ["` + ids[2] + `","` + ids[0] + `"]`)

			resp := tg.post("/functions/v1/news-recommendations", news.Request{UserInterests: "placements"})
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var out news.Response
			Expect(json.Unmarshal([]byte(readBody(resp)), &out)).To(Succeed())
			Expect(out.Recommendations).To(HaveLen(2))
			Expect(out.Recommendations[0].ID).To(Equal(ids[2]))
			Expect(out.Recommendations[1].ID).To(Equal(ids[0]))

			Expect(tg.fake.Requests()[0].Messages[0].Content).To(ContainSubstring("placements"))
		})

		It("falls back to the most recent items when the reply has no IDs", func() {
			tg = newTestGateway("sk-test", nil)
			seed()
			tg.fake.CompleteWith("I cannot decide.")

			resp := tg.post("/functions/v1/news-recommendations", "")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))

			var out news.Response
			Expect(json.Unmarshal([]byte(readBody(resp)), &out)).To(Succeed())
			Expect(out.Recommendations).To(HaveLen(news.MaxRecommendations))
		})

		It("returns an empty list when there is no news", func() {
			tg = newTestGateway("sk-test", nil)
			tg.fake.CompleteWith("[]")

			resp := tg.post("/functions/v1/news-recommendations", news.Request{})
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(readBody(resp)).To(MatchJSON(`{"recommendations":[]}`))
		})

		It("reports upstream failures", func() {
			tg = newTestGateway("sk-test", nil)
			seed()
			tg.fake.FailWith(http.StatusTooManyRequests, `{}`)

			resp := tg.post("/functions/v1/news-recommendations", news.Request{UserInterests: "ai"})
			Expect(resp.StatusCode).To(Equal(http.StatusTooManyRequests))
		})
	})

	Describe("GET /metrics", func() {
		It("exposes gateway counters", func() {
			tg = newTestGateway("sk-test", nil)
			tg.fake.StreamDeltas("ok")
			readBody(tg.post("/functions/v1/ai-tutor", chatBody(llm.NewTextMessage(llm.RoleUser, "hi"))))

			Eventually(func() string {
				resp, err := tg.App().Test(httptest.NewRequest(http.MethodGet, "/metrics", nil), -1)
				Expect(err).NotTo(HaveOccurred())
				return readBody(resp)
			}).Should(ContainSubstring("campus_gateway_requests_total"))
		})
	})
})

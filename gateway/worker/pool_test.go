package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/campusai/campus/pkg/eventstream"
	"github.com/campusai/campus/pkg/logger"
	"github.com/campusai/campus/pkg/metrics"
)

// recordingPublisher captures published events for assertions.
type recordingPublisher struct {
	mu     sync.Mutex
	events []*eventstream.RelayCompletedEvent
	err    error
	block  chan struct{}
}

func (r *recordingPublisher) PublishRelay(_ context.Context, ev *eventstream.RelayCompletedEvent) error {
	if r.block != nil {
		<-r.block
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return r.err
}

func (r *recordingPublisher) Close() error { return nil }

func (r *recordingPublisher) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func testEvent(persona string, status int) *eventstream.RelayCompletedEvent {
	now := time.Now()
	return eventstream.NewRelayCompletedEvent(
		eventstream.EventSource{Subject: "user-1", Persona: persona},
		eventstream.RelayRequest{StartedAt: now.Add(-time.Second), CompletedAt: now, HTTPStatus: status, Streaming: true},
		eventstream.RelayStream{Deltas: 2, Bytes: 64, SawDone: true},
	)
}

var _ = Describe("Worker Pool", func() {
	var (
		publisher *recordingPublisher
		m         *metrics.Metrics
	)

	BeforeEach(func() {
		publisher = &recordingPublisher{}
		m = metrics.New()
	})

	Describe("NewPool", func() {
		It("requires a publisher", func() {
			_, err := NewPool(&Config{Logger: logger.Nop()})
			Expect(err).To(MatchError(ContainSubstring("publisher is required")))
		})

		It("requires a logger", func() {
			_, err := NewPool(&Config{Publisher: publisher})
			Expect(err).To(MatchError(ContainSubstring("logger is required")))
		})
	})

	Describe("Enqueue", func() {
		It("publishes every queued event before Close returns", func() {
			wp, err := NewPool(&Config{Publisher: publisher, Metrics: m, Logger: logger.Nop()})
			Expect(err).NotTo(HaveOccurred())

			for range 5 {
				Expect(wp.Enqueue(Job{Route: "ai-tutor", Event: testEvent("tutor", 200), Stream: true})).To(BeTrue())
			}
			wp.Close()

			Expect(publisher.count()).To(Equal(5))
			Expect(testutil.CollectAndCount(m.Registry(), "campus_gateway_requests_total")).To(Equal(1))
		})

		It("rejects jobs without an event", func() {
			wp, err := NewPool(&Config{Publisher: publisher, Logger: logger.Nop()})
			Expect(err).NotTo(HaveOccurred())
			defer wp.Close()

			Expect(wp.Enqueue(Job{Route: "ai-tutor"})).To(BeFalse())
		})

		It("drops jobs when the queue is full", func() {
			publisher.block = make(chan struct{})
			wp, err := NewPool(&Config{
				Publisher:  publisher,
				Metrics:    m,
				NumWorkers: 1,
				QueueSize:  1,
				Logger:     logger.Nop(),
			})
			Expect(err).NotTo(HaveOccurred())

			// One job is held by the blocked worker, one fills the queue.
			Expect(wp.Enqueue(Job{Event: testEvent("tutor", 200)})).To(BeTrue())
			Eventually(func() int { return len(wp.queue) }).Should(Equal(0))
			Expect(wp.Enqueue(Job{Event: testEvent("tutor", 200)})).To(BeTrue())
			Expect(wp.Enqueue(Job{Event: testEvent("tutor", 200)})).To(BeFalse())

			close(publisher.block)
			wp.Close()
			Expect(publisher.count()).To(Equal(2))
		})

		It("keeps working after a publish error", func() {
			publisher.err = errors.New("broker down")
			wp, err := NewPool(&Config{Publisher: publisher, Metrics: m, Logger: logger.Nop()})
			Expect(err).NotTo(HaveOccurred())

			wp.Enqueue(Job{Event: testEvent("exam-prep", 502)})
			wp.Enqueue(Job{Event: testEvent("exam-prep", 502)})
			wp.Close()

			Expect(publisher.count()).To(Equal(2))
		})
	})

	It("can be closed twice", func() {
		wp, err := NewPool(&Config{Publisher: publisher, Logger: logger.Nop()})
		Expect(err).NotTo(HaveOccurred())
		wp.Close()
		Expect(wp.Close).NotTo(Panic())
	})
})

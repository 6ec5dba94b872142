package kafka_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/campusai/campus/pkg/eventstream"
	"github.com/campusai/campus/pkg/eventstream/kafka"
	"github.com/campusai/campus/pkg/logger"
)

type recordingWriter struct {
	mu       sync.Mutex
	messages []kafkago.Message
	err      error
	closed   bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

var _ eventstream.Publisher = (*kafka.Publisher)(nil)

var _ = Describe("Publisher", func() {
	var (
		writer    *recordingWriter
		publisher *kafka.Publisher
	)

	BeforeEach(func() {
		writer = &recordingWriter{}
		var err error
		publisher, err = kafka.NewPublisher(kafka.Config{
			Topic:  "relay-test",
			Logger: logger.Nop(),
			Writer: writer,
		})
		Expect(err).NotTo(HaveOccurred())
	})

	It("requires brokers when no writer is given", func() {
		_, err := kafka.NewPublisher(kafka.Config{})
		Expect(err).To(HaveOccurred())
	})

	It("rejects nil events", func() {
		err := publisher.PublishRelay(context.Background(), nil)
		Expect(err).To(MatchError(eventstream.ErrNilRelayEvent))
	})

	It("writes the event as JSON keyed by subject", func() {
		event := eventstream.NewRelayCompletedEvent(
			eventstream.EventSource{Subject: "user-1", Persona: "tutor"},
			eventstream.RelayRequest{HTTPStatus: 200, Streaming: true},
			eventstream.RelayStream{Deltas: 3, SawDone: true},
		)

		Expect(publisher.PublishRelay(context.Background(), event)).To(Succeed())
		Expect(writer.messages).To(HaveLen(1))

		msg := writer.messages[0]
		Expect(string(msg.Key)).To(Equal("user-1"))
		Expect(msg.Headers).To(ContainElement(kafkago.Header{Key: "event_type", Value: []byte(eventstream.EventTypeRelayCompleted)}))

		var decoded eventstream.RelayCompletedEvent
		Expect(json.Unmarshal(msg.Value, &decoded)).To(Succeed())
		Expect(decoded.EventID).To(Equal(event.EventID))
		Expect(decoded.Stream.Deltas).To(Equal(3))
	})

	It("wraps writer errors", func() {
		writer.err = errors.New("broker down")
		event := eventstream.NewRelayCompletedEvent(eventstream.EventSource{}, eventstream.RelayRequest{}, eventstream.RelayStream{})

		err := publisher.PublishRelay(context.Background(), event)
		Expect(err).To(MatchError(ContainSubstring("broker down")))
	})

	It("closes the writer", func() {
		Expect(publisher.Close()).To(Succeed())
		Expect(writer.closed).To(BeTrue())
	})
})

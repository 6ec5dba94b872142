// Package eventstreamutils picks a relay event publisher from configuration.
package eventstreamutils

import (
	"log/slog"
	"strings"

	"github.com/campusai/campus/pkg/eventstream"
	"github.com/campusai/campus/pkg/eventstream/kafka"
	"github.com/campusai/campus/pkg/eventstream/nop"
)

type NewPublisherOpts struct {
	// Brokers is a comma separated list of Kafka addresses.
	Brokers string
	Topic   string
	Logger  *slog.Logger
}

// SplitBrokers turns a comma separated broker list into addresses,
// dropping blanks.
func SplitBrokers(s string) []string {
	var out []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// NewPublisher returns a Kafka publisher when brokers are configured and a
// no-op publisher otherwise.
func NewPublisher(o *NewPublisherOpts) (eventstream.Publisher, error) {
	brokers := SplitBrokers(o.Brokers)
	if len(brokers) == 0 {
		return nop.NewPublisher(), nil
	}
	return kafka.NewPublisher(kafka.Config{
		Brokers: brokers,
		Topic:   o.Topic,
		Logger:  o.Logger,
	})
}

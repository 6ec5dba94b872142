// Package worker provides an asynchronous worker pool that publishes relay
// telemetry to the configured eventstream.Publisher and records it in the
// gateway metrics.
//
// The pool decouples publishing from the gateway's HTTP hot path so a slow or
// unavailable event stream never delays a student's response.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/campusai/campus/pkg/eventstream"
	"github.com/campusai/campus/pkg/metrics"
)

var (
	defaultNumWorkers     uint = 3
	defaultJobQueueSize   uint = 256
	defaultPublishTimeout      = 10 * time.Second
)

// Job is a unit of work for the worker pool to execute against.
type Job struct {
	Route  string
	Event  *eventstream.RelayCompletedEvent
	Stream bool
}

// Config is the configuration options for the worker pool.
type Config struct {
	// Publisher receives every relay event.
	Publisher eventstream.Publisher

	// Metrics is optional. When set, each job is recorded.
	Metrics *metrics.Metrics

	// NumWorkers is the number of background workers in the pool.
	NumWorkers uint

	// QueueSize is the capacity of the buffered job channel (defaults to 256).
	QueueSize uint

	// PublishTimeout bounds a single publish (defaults to 10s).
	PublishTimeout time.Duration

	// Logger is the provided slog logger
	Logger *slog.Logger
}

// Pool processes telemetry jobs asynchronously via a worker pool.
type Pool struct {
	config *Config
	queue  chan Job
	wg     sync.WaitGroup
	logger *slog.Logger

	closeOnce sync.Once
}

// NewPool creates a new Pool and starts its worker goroutines.
func NewPool(c *Config) (*Pool, error) {
	if c.Publisher == nil {
		return nil, errors.New("publisher is required")
	}
	if c.Logger == nil {
		return nil, errors.New("logger is required")
	}

	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}

	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}

	if c.PublishTimeout == 0 {
		c.PublishTimeout = defaultPublishTimeout
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	wp := &Pool{
		config: c,
		queue:  make(chan Job, c.QueueSize),
		logger: c.Logger,
	}

	wp.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go wp.worker(i)
	}

	return wp, nil
}

// Enqueue submits a job for processing by the worker pool.
// Returns true if enqueued, false if the queue is full, resulting in the job being dropped
func (p *Pool) Enqueue(job Job) bool {
	if job.Event == nil {
		return false
	}

	select {
	case p.queue <- job:
		p.logger.Debug("job queued",
			"route", job.Route,
			"event_id", job.Event.EventID,
		)
		return true
	default:
		p.logger.Error("job not queued, queue full, job dropped",
			"route", job.Route,
			"event_id", job.Event.EventID,
		)
		if p.config.Metrics != nil {
			p.config.Metrics.JobDropped()
		}
		return false
	}
}

// Close signals workers to stop and waits for in-flight jobs to drain.
// Call this during graceful shutdown after the gateway HTTP server has stopped.
// Close is safe to call more than once.
func (p *Pool) Close() {
	p.closeOnce.Do(func() {
		close(p.queue)
		p.wg.Wait()
	})
}

// worker is the inner worker thread that continuously pulls jobs off the jobs queue
func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("worker started", "worker_id", id)

	for job := range p.queue {
		p.processJob(job)
	}

	p.logger.Debug("telemetry worker stopped", "worker_id", id)
}

// processJob records the job's metrics and publishes its event.
func (p *Pool) processJob(job Job) {
	ev := job.Event

	if m := p.config.Metrics; m != nil {
		elapsed := ev.RequestMeta.CompletedAt.Sub(ev.RequestMeta.StartedAt)
		m.ObserveRequest(job.Route, ev.Source.Persona, ev.RequestMeta.HTTPStatus, elapsed)
		if job.Stream {
			m.ObserveStream(ev.Source.Persona, ev.Stream.Deltas, ev.Stream.Bytes)
		}
		if ev.RequestMeta.ErrorCode != "" {
			m.ObserveError(ev.RequestMeta.ErrorCode)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), p.config.PublishTimeout)
	defer cancel()

	err := p.config.Publisher.PublishRelay(ctx, ev)
	if p.config.Metrics != nil {
		p.config.Metrics.Published(err)
	}
	if err != nil {
		p.logger.Error("relay event publish failed",
			"event_id", ev.EventID,
			"route", job.Route,
			"error", err,
		)
		return
	}

	p.logger.Debug("relay event published",
		"event_id", ev.EventID,
		"route", job.Route,
		"status", ev.RequestMeta.HTTPStatus,
	)
}

package gateway

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	limiterIdleTTL     = 10 * time.Minute
	limiterSweepAbove  = 1024
	defaultBurstPerSub = 1
)

// subjectLimiter applies a token bucket per authenticated subject.
// A nil *subjectLimiter allows everything.
type subjectLimiter struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	limiters map[string]*limiterEntry
	now      func() time.Time
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newSubjectLimiter(rps float64, burst int) *subjectLimiter {
	if rps <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = defaultBurstPerSub
	}
	return &subjectLimiter{
		limit:    rate.Limit(rps),
		burst:    burst,
		limiters: make(map[string]*limiterEntry),
		now:      time.Now,
	}
}

// Allow reports whether subject may make a request now.
func (l *subjectLimiter) Allow(subject string) bool {
	if l == nil {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	e, ok := l.limiters[subject]
	if !ok {
		if len(l.limiters) >= limiterSweepAbove {
			l.sweep(now)
		}
		e = &limiterEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.limiters[subject] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1)
}

// sweep drops limiters idle for longer than limiterIdleTTL. Callers hold l.mu.
func (l *subjectLimiter) sweep(now time.Time) {
	for subject, e := range l.limiters {
		if now.Sub(e.lastSeen) > limiterIdleTTL {
			delete(l.limiters, subject)
		}
	}
}

package channels

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// maxTrackedKeys caps the number of tracked rate-limit keys to prevent
	// memory exhaustion from senders rotating numbers.
	maxTrackedKeys = 4096

	// idleEvictAfter drops limiters that have not been used for this long.
	idleEvictAfter = 10 * time.Minute
)

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// SenderRateLimiter bounds inbound events per sender key (token bucket per key).
// Safe for concurrent use. A nil or disabled limiter allows everything.
type SenderRateLimiter struct {
	mu      sync.Mutex
	entries map[string]*limiterEntry
	limit   rate.Limit
	burst   int
	now     func() time.Time
}

// NewSenderRateLimiter creates a limiter allowing rpm events per minute per key.
// rpm <= 0 disables limiting.
func NewSenderRateLimiter(rpm, burst int) *SenderRateLimiter {
	if burst <= 0 {
		burst = 1
	}
	l := &SenderRateLimiter{
		entries: make(map[string]*limiterEntry),
		burst:   burst,
		now:     time.Now,
	}
	if rpm > 0 {
		l.limit = rate.Limit(float64(rpm) / 60.0)
	}
	return l
}

// Enabled reports whether the limiter enforces anything.
func (r *SenderRateLimiter) Enabled() bool {
	return r != nil && r.limit > 0
}

// Allow returns true if the key is within rate limits.
// Prunes idle entries and enforces a hard cap on tracked keys.
func (r *SenderRateLimiter) Allow(key string) bool {
	if !r.Enabled() {
		return true
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()

	if len(r.entries) >= maxTrackedKeys {
		for k, e := range r.entries {
			if now.Sub(e.lastSeen) >= idleEvictAfter {
				delete(r.entries, k)
			}
		}
		// Hard eviction if still at cap (FIFO-ish via map iteration)
		for len(r.entries) >= maxTrackedKeys {
			for k := range r.entries {
				delete(r.entries, k)
				break
			}
		}
	}

	e, ok := r.entries[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(r.limit, r.burst)}
		r.entries[key] = e
	}
	e.lastSeen = now
	return e.limiter.AllowN(now, 1)
}

package security

import (
	"errors"
	"sync"
	"time"
)

var ErrRateLimited = errors.New("rate limit exceeded")

// Rule is a rolling window: at most Limit attempts in any Window.
type Rule struct {
	Limit  int
	Window time.Duration
}

var (
	LoginRule    = Rule{Limit: 5, Window: 15 * time.Minute}
	RegisterRule = Rule{Limit: 3, Window: 5 * time.Minute}
)

// RateLimiter counts attempts per key over a sliding window. Rejected
// attempts are not counted.
type RateLimiter struct {
	Now func() time.Time

	mu       sync.Mutex
	attempts map[string][]time.Time
}

func NewRateLimiter() *RateLimiter {
	return &RateLimiter{Now: time.Now, attempts: map[string][]time.Time{}}
}

func (l *RateLimiter) Allow(key string, r Rule) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.attempts == nil {
		l.attempts = map[string][]time.Time{}
	}
	now := time.Now()
	if l.Now != nil {
		now = l.Now()
	}
	start := now.Add(-r.Window)

	kept := l.attempts[key][:0]
	for _, at := range l.attempts[key] {
		if at.After(start) {
			kept = append(kept, at)
		}
	}
	if len(kept) >= r.Limit {
		l.attempts[key] = kept
		return false
	}
	l.attempts[key] = append(kept, now)
	return true
}

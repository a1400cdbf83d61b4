// Package ratelimit throttles resolve attempts per (token, source) pair.
//
// Counting is best-effort: counters live in a cache that may evict them or
// lose them on restart, and a failing store lets requests through. The
// access-count limit of a link is enforced by storage, not here.
package ratelimit

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/scratchdata/sharelinks/pkg/storage/cache/models"
)

type Store interface {
	Increment(key string, window time.Duration) (models.Counter, error)
	Read(key string) (models.Counter, bool)
	Expire(key string)
}

type Result struct {
	Allowed    bool
	Count      int64
	RetryAfter time.Duration
}

type Limiter struct {
	store       Store
	maxAttempts int64
	window      time.Duration
	now         func() time.Time
}

func New(store Store, maxAttempts int, window time.Duration) *Limiter {
	return &Limiter{
		store:       store,
		maxAttempts: int64(maxAttempts),
		window:      window,
		now:         time.Now,
	}
}

// Check counts one attempt and reports whether it is within the window's
// budget.
func (l *Limiter) Check(token string, source string) Result {
	counter, err := l.store.Increment(key(token, source), l.window)
	if err != nil {
		log.Warn().Err(err).Str("source", source).Msg("Rate limit store unavailable, allowing request")
		return Result{Allowed: true}
	}

	if counter.Count <= l.maxAttempts {
		return Result{Allowed: true, Count: counter.Count}
	}

	retryAfter := counter.ExpiresAt.Sub(l.now())
	if retryAfter < time.Second {
		retryAfter = time.Second
	}
	return Result{Allowed: false, Count: counter.Count, RetryAfter: retryAfter}
}

func (l *Limiter) Attempts(token string, source string) int64 {
	counter, ok := l.store.Read(key(token, source))
	if !ok {
		return 0
	}
	return counter.Count
}

func (l *Limiter) Reset(token string, source string) {
	l.store.Expire(key(token, source))
}

// Tokens are secrets, so only their digest is kept as a cache key.
func key(token string, source string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:16]) + "|" + source
}

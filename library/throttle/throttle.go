// Package throttle provides per-identity token-bucket admission control.
package throttle

import (
	"math"
	"sync"
	"time"

	"github.com/Laisky/errors/v2"
	"golang.org/x/time/rate"
)

// IdentityLimiterCfg configuration for IdentityLimiter
type IdentityLimiterCfg struct {
	// PerSec tokens replenished per second for each identity.
	PerSec int
	// Burst bucket capacity for each identity.
	Burst int
	// BlockDuration how long an identity stays blocked after exhausting
	// its bucket. Zero means no block window, only replenishment delay.
	BlockDuration time.Duration
}

type bucket struct {
	mu           sync.Mutex
	limiter      *rate.Limiter
	blockedUntil time.Time
}

// IdentityLimiter keeps an independent token bucket per identity key.
type IdentityLimiter struct {
	mu      sync.Mutex
	cfg     *IdentityLimiterCfg
	buckets *sync.Map
	now     func() time.Time
}

// NewIdentityLimiter create new IdentityLimiter
func NewIdentityLimiter(cfg *IdentityLimiterCfg) (*IdentityLimiter, error) {
	if cfg.PerSec <= 0 {
		return nil, errors.Errorf("PerSec must bigger than 0")
	}
	if cfg.Burst < cfg.PerSec {
		return nil, errors.Errorf("burst must not be smaller than PerSec")
	}

	return &IdentityLimiter{
		cfg:     cfg,
		buckets: new(sync.Map),
		now:     time.Now,
	}, nil
}

func (l *IdentityLimiter) bucketFor(key string) (b *bucket) {
	bi, ok := l.buckets.Load(key)
	if !ok {
		l.mu.Lock()
		if bi, ok = l.buckets.Load(key); !ok {
			b = &bucket{
				limiter: rate.NewLimiter(rate.Limit(l.cfg.PerSec), l.cfg.Burst),
			}
			l.buckets.Store(key, b)
			l.mu.Unlock()
			return b
		}
		l.mu.Unlock()
	}

	return bi.(*bucket)
}

// Consume takes one token for the identity. When the bucket is exhausted
// it returns ok=false with a retry-after hint in whole seconds, and the
// identity stays blocked for the configured block window.
func (l *IdentityLimiter) Consume(key string) (ok bool, retryAfterSeconds int) {
	b := l.bucketFor(key)
	b.mu.Lock()
	defer b.mu.Unlock()

	now := l.now()
	if b.blockedUntil.After(now) {
		return false, ceilSeconds(b.blockedUntil.Sub(now))
	}

	rsv := b.limiter.ReserveN(now, 1)
	if !rsv.OK() {
		return false, ceilSeconds(l.cfg.BlockDuration)
	}
	if delay := rsv.DelayFrom(now); delay > 0 {
		// Not enough tokens right now; do not wait, reject the caller.
		rsv.CancelAt(now)

		retryAfter := delay
		if l.cfg.BlockDuration > 0 {
			b.blockedUntil = now.Add(l.cfg.BlockDuration)
			if l.cfg.BlockDuration > retryAfter {
				retryAfter = l.cfg.BlockDuration
			}
		}
		return false, ceilSeconds(retryAfter)
	}

	return true, 0
}

func ceilSeconds(d time.Duration) int {
	s := int(math.Ceil(d.Seconds()))
	if s < 1 {
		s = 1
	}
	return s
}

package repository

import (
	"context"
	"sync"
	"time"

	"localhire/internal/domain"

	"github.com/rs/zerolog"
)

const recoveryInterval = time.Minute

// FailoverLimiter uses primary until it errors, then serves from fallback and
// retries primary once per recoveryInterval.
type FailoverLimiter struct {
	primary  domain.RateLimiter
	fallback domain.RateLimiter
	logger   *zerolog.Logger

	mu        sync.Mutex
	isDown    bool
	lastCheck time.Time
	now       func() time.Time
}

func NewFailoverLimiter(primary, fallback domain.RateLimiter, logger *zerolog.Logger) *FailoverLimiter {
	return &FailoverLimiter{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
		now:      time.Now,
	}
}

// usePrimary reports whether the next call should go to primary.
func (f *FailoverLimiter) usePrimary() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.isDown {
		return true
	}
	if f.now().Sub(f.lastCheck) > recoveryInterval {
		f.lastCheck = f.now()
		return true
	}
	return false
}

func (f *FailoverLimiter) markDown() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.isDown = true
	f.lastCheck = f.now()
}

func (f *FailoverLimiter) markUp() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.isDown {
		f.logger.Info().Msg("Primary rate limiter recovered")
	}
	f.isDown = false
}

func (f *FailoverLimiter) Down() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.isDown
}

func (f *FailoverLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if f.usePrimary() {
		allowed, err := f.primary.Allow(ctx, key, limit, window)
		if err == nil {
			f.markUp()
			return allowed, nil
		}
		f.logger.Error().Err(err).Msg("Primary rate limiter failed, falling back to memory")
		f.markDown()
	}
	return f.fallback.Allow(ctx, key, limit, window)
}

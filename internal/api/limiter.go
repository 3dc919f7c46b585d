package api

import (
	"net"
	"net/http"
	"sync"
	"time"

	"localhire/internal/config"

	"golang.org/x/time/rate"
)

const (
	limiterIdleTTL    = 10 * time.Minute
	limiterMaxCallers = 10000
)

type callerEntry struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// callerLimiter keeps one token bucket per remote host. It runs before
// authentication, so nothing the caller controls picks the bucket.
type callerLimiter struct {
	mu        sync.Mutex
	callers   map[string]*callerEntry
	cfg       config.APIRateLimitConfig
	lastSweep time.Time
	now       func() time.Time
}

func newCallerLimiter(cfg config.APIRateLimitConfig) *callerLimiter {
	return &callerLimiter{
		callers: make(map[string]*callerEntry),
		cfg:     cfg,
		now:     time.Now,
	}
}

func (l *callerLimiter) getLimiter(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if e, ok := l.callers[key]; ok {
		e.lastSeen = now
		return e.lim
	}

	if now.Sub(l.lastSweep) > limiterIdleTTL || len(l.callers) >= limiterMaxCallers {
		l.sweep(now)
	}

	burst := l.cfg.Burst
	if burst <= 0 {
		burst = 5
	}
	e := &callerEntry{lim: rate.NewLimiter(rate.Limit(l.cfg.RPS), burst), lastSeen: now}
	l.callers[key] = e
	return e.lim
}

// sweep drops idle callers, then the stalest ones while the map is full.
// Caller holds mu.
func (l *callerLimiter) sweep(now time.Time) {
	l.lastSweep = now
	for key, e := range l.callers {
		if now.Sub(e.lastSeen) > limiterIdleTTL {
			delete(l.callers, key)
		}
	}
	for len(l.callers) >= limiterMaxCallers {
		var oldestKey string
		var oldest time.Time
		for key, e := range l.callers {
			if oldestKey == "" || e.lastSeen.Before(oldest) {
				oldestKey, oldest = key, e.lastSeen
			}
		}
		delete(l.callers, oldestKey)
	}
}

func (l *callerLimiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.callers)
}

func callerKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err == nil && host != "" {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "unknown"
}

func (l *callerLimiter) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if l.cfg.RPS <= 0 {
			next.ServeHTTP(w, r)
			return
		}
		if !l.getLimiter(callerKey(r)).Allow() {
			writeFail(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Per-remote-IP token bucket. Buckets refill lazily on access instead of
// running a goroutine per client.

type bucket struct {
	tokens float64
	last   time.Time
}

type Limiter struct {
	mu      sync.Mutex
	rate    float64 // tokens per second
	burst   float64
	buckets map[string]*bucket
	now     func() time.Time
}

func New(perMin, burst int) *Limiter {
	if perMin <= 0 {
		perMin = 60
	}
	if burst <= 0 {
		burst = 120
	}
	return &Limiter{
		rate:    float64(perMin) / 60,
		burst:   float64(burst),
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
}

func (l *Limiter) Allow(r *http.Request) bool {
	return l.allowKey(clientIP(r))
}

func (l *Limiter) allowKey(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b := l.buckets[key]
	if b == nil {
		b = &bucket{tokens: l.burst, last: now}
		l.buckets[key] = b
	}
	b.tokens += now.Sub(b.last).Seconds() * l.rate
	if b.tokens > l.burst {
		b.tokens = l.burst
	}
	b.last = now
	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

func clientIP(r *http.Request) string {
	// best effort: X-Forwarded-For first IP, else RemoteAddr host
	if xf := r.Header.Get("X-Forwarded-For"); xf != "" {
		if idx := strings.IndexByte(xf, ','); idx >= 0 {
			xf = xf[:idx]
		}
		return strings.TrimSpace(xf)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

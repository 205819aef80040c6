package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	loginPath      = "/api/v1/auth/login"
	maxTrackedKeys = 1000
	idleBucketTTL  = 10 * time.Minute
)

type RateLimitConfig struct {
	GeneralRPM int
	LoginRPM   int
	// TrustProxy makes X-Forwarded-For / X-Real-IP name the client. Only
	// safe behind a proxy that overwrites them.
	TrustProxy bool
}

type bucketScope uint8

const (
	scopeGeneral bucketScope = iota
	scopeLogin
)

type bucketKey struct {
	scope  bucketScope
	client string
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter meters API calls per client address. Login attempts draw from
// their own, smaller bucket; health and metrics scrapes are never limited.
type RateLimiter struct {
	cfg     RateLimitConfig
	mu      sync.Mutex
	buckets map[bucketKey]*bucket
	now     func() time.Time
}

func NewRateLimiter(cfg RateLimitConfig) *RateLimiter {
	if cfg.GeneralRPM <= 0 {
		cfg.GeneralRPM = 100
	}
	if cfg.LoginRPM <= 0 {
		cfg.LoginRPM = 10
	}

	return &RateLimiter{
		cfg:     cfg,
		buckets: map[bucketKey]*bucket{},
		now:     time.Now,
	}
}

func (l *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health", "/metrics":
			next.ServeHTTP(w, r)
			return
		}

		key := bucketKey{scope: scopeGeneral, client: ClientIP(r, l.cfg.TrustProxy)}
		rpm := l.cfg.GeneralRPM
		if r.Method == http.MethodPost && strings.EqualFold(strings.TrimRight(r.URL.Path, "/"), loginPath) {
			key.scope = scopeLogin
			rpm = l.cfg.LoginRPM
		}

		if !l.allow(key, rpm) {
			w.Header().Set("Retry-After", retryAfter(rpm))
			writeJSONError(w, http.StatusTooManyRequests, "RATE_LIMITED", "Demasiadas solicitudes, intenta nuevamente en un momento")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (l *RateLimiter) allow(key bucketKey, rpm int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[key]
	if !ok {
		if len(l.buckets) >= maxTrackedKeys {
			l.evictIdleLocked(now)
		}
		b = &bucket{limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(rpm)), rpm)}
		l.buckets[key] = b
	}
	b.lastSeen = now

	return b.limiter.AllowN(now, 1)
}

func (l *RateLimiter) evictIdleLocked(now time.Time) {
	cutoff := now.Add(-idleBucketTTL)
	for key, b := range l.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(l.buckets, key)
		}
	}
}

// retryAfter is the time one token takes to refill, in whole seconds.
func retryAfter(rpm int) string {
	return strconv.Itoa(int(math.Ceil(60 / float64(rpm))))
}

// ClientIP returns the caller's address, honoring proxy headers only when
// trustProxy is set.
func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if forwarded := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); forwarded != "" {
			first, _, _ := strings.Cut(forwarded, ",")
			if first = strings.TrimSpace(first); first != "" {
				return first
			}
		}
		if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
			return realIP
		}
	}

	remote := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(remote); err == nil && host != "" {
		return host
	}
	if remote == "" {
		return "unknown"
	}
	return remote
}

package ratelimit

import (
	"fmt"
	"log/slog"
	"math"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/render"
	"github.com/raulk/clock"
	"github.com/tendant/simple-delegation/pkg/client"
	pkgerrors "github.com/tendant/simple-delegation/pkg/errors"
)

// Config holds rate limiting configuration. A zero capacity disables that limit.
type Config struct {
	PerIPCapacity   int
	PerIPRefillRate float64

	// Keyed by caller account, for requests that passed client.CallerMiddleware
	PerCallerCapacity   int
	PerCallerRefillRate float64

	BucketTTL time.Duration
}

// DefaultConfig allows 300 requests per minute per IP and 60 per minute per caller
func DefaultConfig() Config {
	return Config{BucketTTL: time.Hour}.PerMinute(300, 60)
}

// PerMinute returns c with both budgets replaced. Each bucket holds one
// minute of requests and refills at the per-minute rate.
func (c Config) PerMinute(perIP, perCaller int) Config {
	c.PerIPCapacity = perIP
	c.PerIPRefillRate = float64(perIP) / 60.0
	c.PerCallerCapacity = perCaller
	c.PerCallerRefillRate = float64(perCaller) / 60.0
	return c
}

// Middleware limits requests per client IP and per authenticated caller
type Middleware struct {
	config        Config
	ipLimiter     *RateLimiter
	callerLimiter *RateLimiter
}

type Option func(*options)

type options struct {
	clock clock.Clock
}

func WithClock(clk clock.Clock) Option {
	return func(o *options) {
		o.clock = clk
	}
}

func NewMiddleware(config Config, opts ...Option) *Middleware {
	o := options{clock: clock.New()}
	for _, opt := range opts {
		opt(&o)
	}

	m := &Middleware{config: config}
	if config.PerIPCapacity > 0 {
		m.ipLimiter = NewRateLimiter(config.PerIPCapacity, config.PerIPRefillRate, config.BucketTTL, o.clock)
	}
	if config.PerCallerCapacity > 0 {
		m.callerLimiter = NewRateLimiter(config.PerCallerCapacity, config.PerCallerRefillRate, config.BucketTTL, o.clock)
	}
	return m
}

// Handler must run after client.CallerMiddleware for the per-caller limit to apply
func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.ipLimiter != nil {
			ip := getClientIP(r)
			if ok, wait := m.ipLimiter.Allow(ip); !ok {
				m.rateLimitExceeded(w, r, "ip", ip, wait)
				return
			}
		}

		if caller, ok := client.CallerFromContext(r.Context()); ok && m.callerLimiter != nil {
			key := caller.Account.Hex()
			if ok, wait := m.callerLimiter.Allow(key); !ok {
				m.rateLimitExceeded(w, r, "caller", key, wait)
				return
			}
			w.Header().Set("X-RateLimit-Limit-Caller", fmt.Sprintf("%d", m.config.PerCallerCapacity))
		}

		next.ServeHTTP(w, r)
	})
}

func (m *Middleware) rateLimitExceeded(w http.ResponseWriter, r *http.Request, limitType, key string, wait time.Duration) {
	slog.Warn("Rate limit exceeded", "type", limitType, "key", key, "method", r.Method, "path", r.URL.Path)

	retryAfter := int(math.Ceil(wait.Seconds()))
	if retryAfter < 1 {
		retryAfter = 1
	}
	w.Header().Set("Retry-After", fmt.Sprintf("%d", retryAfter))

	err := pkgerrors.New(pkgerrors.ErrCodeRateLimited, "too many requests").
		WithDetail("type", limitType).
		WithDetail("retry_after", retryAfter)
	status, body := pkgerrors.ToResponse(err)
	render.Status(r, status)
	render.JSON(w, r, body)
}

// getClientIP keys the per-IP limit on the connection address. Forwarding
// headers are honoured only through a RealIP middleware mounted ahead of
// the limiter by a server that sits behind a trusted proxy.
func getClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Package ratelimit provides per-client request limiting for the review and
// job APIs using a token bucket per (client, tier).
package ratelimit

import (
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Tier is a group of endpoints sharing one limit.
type Tier struct {
	Name string
	// Limit is the sustained request rate per window; Burst is the bucket
	// capacity.
	Limit  int
	Window time.Duration
	Burst  int
	// Match reports whether a request falls into this tier.
	Match func(method, path string) bool
}

// DefaultTiers returns the endpoint tiers: job submission is the most
// expensive operation (it fans out paid agent calls), review mutations are
// moderate, and reads fall through to the default.
func DefaultTiers() []Tier {
	return []Tier{
		{
			Name: "job-submission", Limit: 10, Window: time.Hour, Burst: 2,
			Match: func(method, path string) bool {
				return method == http.MethodPost && path == "/jobs"
			},
		},
		{
			Name: "review-mutation", Limit: 100, Window: time.Minute, Burst: 10,
			Match: func(method, path string) bool {
				return method == http.MethodPost && strings.HasPrefix(path, "/review/")
			},
		},
	}
}

// Config controls the limiter. Loaded from RATE_LIMIT_* environment
// variables so deployments can tune limits without a rebuild.
type Config struct {
	Enabled       bool
	DefaultLimit  int
	DefaultWindow time.Duration
	Tiers         []Tier
}

// LoadConfig reads the limiter configuration from the environment.
func LoadConfig() Config {
	cfg := Config{
		Enabled:       true,
		DefaultLimit:  1000,
		DefaultWindow: time.Minute,
		Tiers:         DefaultTiers(),
	}
	if v := os.Getenv("RATE_LIMIT_ENABLED"); v != "" {
		cfg.Enabled = v == "true" || v == "1"
	}
	if v, err := strconv.Atoi(os.Getenv("RATE_LIMIT_DEFAULT_LIMIT")); err == nil && v > 0 {
		cfg.DefaultLimit = v
	}
	if d, err := time.ParseDuration(os.Getenv("RATE_LIMIT_DEFAULT_WINDOW")); err == nil && d > 0 {
		cfg.DefaultWindow = d
	}
	return cfg
}

type bucket struct {
	capacity   float64
	refillRate float64
	tokens     float64
	lastRefill time.Time
}

func (b *bucket) take(now time.Time) bool {
	elapsed := now.Sub(b.lastRefill).Seconds()
	b.tokens = min(b.capacity, b.tokens+elapsed*b.refillRate)
	b.lastRefill = now
	if b.tokens >= 1 {
		b.tokens--
		return true
	}
	return false
}

// Limiter holds one bucket per (client, tier) pair.
type Limiter struct {
	cfg     Config
	mu      sync.Mutex
	buckets map[string]*bucket
	now     func() time.Time
}

// NewLimiter builds a Limiter from the configuration.
func NewLimiter(cfg Config) *Limiter {
	return &Limiter{cfg: cfg, buckets: make(map[string]*bucket), now: time.Now}
}

// Allow reports whether the client may perform the request. The health
// endpoint is never limited.
func (l *Limiter) Allow(clientID, method, path string) bool {
	if !l.cfg.Enabled || path == "/health" {
		return true
	}

	tierName := "default"
	limit := l.cfg.DefaultLimit
	window := l.cfg.DefaultWindow
	burst := limit
	for _, tier := range l.cfg.Tiers {
		if tier.Match(method, path) {
			tierName = tier.Name
			limit = tier.Limit
			window = tier.Window
			burst = tier.Burst
			if burst <= 0 {
				burst = limit
			}
			break
		}
	}

	key := clientID + "|" + tierName
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{
			capacity:   float64(burst),
			refillRate: float64(limit) / window.Seconds(),
			tokens:     float64(burst),
			lastRefill: now,
		}
		l.buckets[key] = b
	}
	return b.take(now)
}

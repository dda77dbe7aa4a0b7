// Package ratelimit provides per-client rate limiting for the gateway.
package ratelimit

import (
	"sync"

	"golang.org/x/time/rate"
)

// Config holds rate limiter configuration.
type Config struct {
	Enabled           bool
	RequestsPerMinute int
}

// DefaultConfig returns the default rate limiting configuration.
func DefaultConfig() Config {
	return Config{
		Enabled:           false, // Off by default for single-user use
		RequestsPerMinute: 60,
	}
}

// Limiter applies a token bucket per client on top of a global bucket.
type Limiter struct {
	config  Config
	global  *rate.Limiter
	clients sync.Map // map[string]*rate.Limiter
}

// NewLimiter creates a new rate limiter with the given configuration.
func NewLimiter(config Config) *Limiter {
	if config.RequestsPerMinute <= 0 {
		config.RequestsPerMinute = DefaultConfig().RequestsPerMinute
	}
	l := &Limiter{config: config}
	if config.Enabled {
		l.global = rate.NewLimiter(perMinute(config.RequestsPerMinute), config.RequestsPerMinute)
	}
	return l
}

func perMinute(n int) rate.Limit {
	return rate.Limit(float64(n) / 60.0)
}

// AllowRequest reports whether a request from clientID is allowed.
// Both the global and the per-client bucket must have a token.
func (l *Limiter) AllowRequest(clientID string) bool {
	if !l.config.Enabled {
		return true
	}

	if !l.global.Allow() {
		return false
	}

	if clientID != "" {
		if !l.clientLimiter(clientID).Allow() {
			return false
		}
	}

	return true
}

func (l *Limiter) clientLimiter(clientID string) *rate.Limiter {
	if cached, ok := l.clients.Load(clientID); ok {
		return cached.(*rate.Limiter)
	}

	fresh := rate.NewLimiter(perMinute(l.config.RequestsPerMinute), l.config.RequestsPerMinute)
	actual, _ := l.clients.LoadOrStore(clientID, fresh)
	return actual.(*rate.Limiter)
}

// Reset drops all per-client buckets and refills the global one.
func (l *Limiter) Reset() {
	l.clients = sync.Map{}
	if l.config.Enabled {
		l.global = rate.NewLimiter(perMinute(l.config.RequestsPerMinute), l.config.RequestsPerMinute)
	}
}

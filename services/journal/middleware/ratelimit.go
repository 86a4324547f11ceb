// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// RateLimitConfig bounds how fast one client IP may hit a route.
type RateLimitConfig struct {
	// PerMinute is the sustained rate. Zero or less disables limiting.
	PerMinute int `yaml:"per_minute"`

	// Burst is the bucket size. Defaults to PerMinute.
	Burst int `yaml:"burst"`

	// IdleTTL drops limiters of clients not seen for this long.
	IdleTTL time.Duration `yaml:"idle_ttl"`
}

// DefaultLoginRateLimit allows ten login attempts per minute per IP.
func DefaultLoginRateLimit() RateLimitConfig {
	return RateLimitConfig{PerMinute: 10, Burst: 10, IdleTTL: 10 * time.Minute}
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPRateLimiter keeps one token bucket per client IP.
//
// # Thread Safety
//
// Safe for concurrent use.
type IPRateLimiter struct {
	mu      sync.Mutex
	clients map[string]*clientLimiter
	limit   rate.Limit
	burst   int
	idleTTL time.Duration
	now     func() time.Time
}

// NewIPRateLimiter returns nil when cfg disables limiting. A nil limiter
// allows everything.
func NewIPRateLimiter(cfg RateLimitConfig) *IPRateLimiter {
	if cfg.PerMinute <= 0 {
		return nil
	}
	if cfg.Burst <= 0 {
		cfg.Burst = cfg.PerMinute
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = 10 * time.Minute
	}
	return &IPRateLimiter{
		clients: make(map[string]*clientLimiter),
		limit:   rate.Every(time.Minute / time.Duration(cfg.PerMinute)),
		burst:   cfg.Burst,
		idleTTL: cfg.IdleTTL,
		now:     time.Now,
	}
}

// Allow reports whether the client may proceed now.
func (l *IPRateLimiter) Allow(ip string) bool {
	if l == nil {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.evictIdle(now)
	cl, ok := l.clients[ip]
	if !ok {
		cl = &clientLimiter{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.clients[ip] = cl
	}
	cl.lastSeen = now
	return cl.limiter.AllowN(now, 1)
}

// evictIdle must be called with mu held.
func (l *IPRateLimiter) evictIdle(now time.Time) {
	for ip, cl := range l.clients {
		if now.Sub(cl.lastSeen) > l.idleTTL {
			delete(l.clients, ip)
		}
	}
}

// RateLimit aborts with 429 once the client's bucket is empty.
func RateLimit(l *IPRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !l.Allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests, try again later"})
			return
		}
		c.Next()
	}
}

// internal/app/system/ratelimit/ratelimit.go
package ratelimit

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Limiter provides rate limiting using a sliding window algorithm.
// It is safe for concurrent use.
type Limiter struct {
	mu       sync.Mutex
	windows  map[string]*window
	limit    int           // max requests per window
	duration time.Duration // window duration
	cleanup  time.Duration // how often to clean old entries
}

type window struct {
	count     int
	expiresAt time.Time
}

// New creates a new rate limiter allowing limit requests per duration.
func New(limit int, duration time.Duration) *Limiter {
	l := &Limiter{
		windows:  make(map[string]*window),
		limit:    limit,
		duration: duration,
		cleanup:  duration * 2,
	}
	go l.cleanupLoop()
	return l
}

// Allow checks if a request from the given key should be allowed.
func (l *Limiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	w, exists := l.windows[key]

	if !exists || now.After(w.expiresAt) {
		l.windows[key] = &window{
			count:     1,
			expiresAt: now.Add(l.duration),
		}
		return true
	}

	if w.count >= l.limit {
		return false
	}

	w.count++
	return true
}

// Remaining returns how many requests are left for this key in the current window.
func (l *Limiter) Remaining(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	w, exists := l.windows[key]

	if !exists || now.After(w.expiresAt) {
		return l.limit
	}

	remaining := l.limit - w.count
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Reset clears the rate limit for a specific key.
func (l *Limiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.windows, key)
}

// cleanupLoop periodically removes expired entries to prevent memory leaks.
func (l *Limiter) cleanupLoop() {
	ticker := time.NewTicker(l.cleanup)
	defer ticker.Stop()

	for range ticker.C {
		l.mu.Lock()
		now := time.Now()
		for key, w := range l.windows {
			if now.After(w.expiresAt) {
				delete(l.windows, key)
			}
		}
		l.mu.Unlock()
	}
}

// ClientIP extracts the client IP from an HTTP request. It checks
// X-Forwarded-For and X-Real-IP headers first (for proxied requests),
// then falls back to RemoteAddr.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		if len(parts) > 0 {
			ip := strings.TrimSpace(parts[0])
			if ip != "" {
				return ip
			}
		}
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// InviteLimiter throttles outbound invite email. It tracks both
// sender-IP and recipient limits so one client cannot flood the mailer
// and one mailbox cannot be spammed from many clients.
type InviteLimiter struct {
	ipLimiter        *Limiter
	recipientLimiter *Limiter
}

// NewInviteLimiter creates a limiter with defaults suited to invite
// email: 10 sends per IP per minute, 3 sends per recipient per hour.
func NewInviteLimiter() *InviteLimiter {
	return &InviteLimiter{
		ipLimiter:        New(10, time.Minute),
		recipientLimiter: New(3, time.Hour),
	}
}

// NewInviteLimiterWithConfig creates an invite limiter with custom limits.
func NewInviteLimiterWithConfig(ipLimit int, ipDuration time.Duration, recipientLimit int, recipientDuration time.Duration) *InviteLimiter {
	return &InviteLimiter{
		ipLimiter:        New(ipLimit, ipDuration),
		recipientLimiter: New(recipientLimit, recipientDuration),
	}
}

// Check verifies if an invite send should be allowed.
// Returns (allowed, reason) where reason explains why it was blocked.
func (il *InviteLimiter) Check(r *http.Request, recipient string) (bool, string) {
	ip := ClientIP(r)

	if !il.ipLimiter.Allow(ip) {
		return false, "Too many invites sent. Please wait a minute before trying again."
	}

	if recipient != "" {
		key := strings.ToLower(strings.TrimSpace(recipient))
		if !il.recipientLimiter.Allow(key) {
			return false, "This address was already invited recently. Please wait before re-sending."
		}
	}

	return true, ""
}

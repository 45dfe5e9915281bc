// Package timeouts provides centralized timeout values for remote store and
// handler operations.
//
// The sync engine treats every remote call as a suspension point; these
// values bound how long any one of them may block. Using centralized values
// keeps handler and engine behavior consistent and easy to tune.
//
// Guidelines for choosing a timeout:
//   - Ping: health checks and connectivity verification
//   - Short: single-document reads or lookups
//   - Medium: list queries, simple writes, workspace loads
//   - Long: multi-step operations touching several collections
package timeouts

import (
	"os"
	"sync"
	"time"
)

// Default timeout values (used if Configure is not called).
const (
	DefaultPing   = 2 * time.Second
	DefaultShort  = 5 * time.Second
	DefaultMedium = 10 * time.Second
	DefaultLong   = 30 * time.Second
)

// mu protects all timeout values from concurrent access.
var mu sync.RWMutex

var (
	ping   = DefaultPing
	short  = DefaultShort
	medium = DefaultMedium
	long   = DefaultLong
)

// Ping returns the timeout for health checks and connectivity verification.
func Ping() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return ping
}

// Short returns the timeout for simple operations like single-document reads.
// Examples: get by ID, profile lookup, invite code lookup.
func Short() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return short
}

// Medium returns the timeout for moderate operations like list queries.
// Examples: category/item lists, member loads, simple creates and updates.
func Medium() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return medium
}

// Long returns the timeout for operations touching multiple collections.
// Examples: workspace creation, membership removal with item cleanup.
func Long() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return long
}

// Config holds timeout configuration values.
// Zero values are ignored (defaults are kept).
type Config struct {
	Ping   time.Duration
	Short  time.Duration
	Medium time.Duration
	Long   time.Duration
}

// Configure sets custom timeout values. Zero values in the config are
// ignored, keeping the current (or default) values. Call during application
// startup before handlers are registered.
func Configure(cfg Config) {
	mu.Lock()
	defer mu.Unlock()
	if cfg.Ping > 0 {
		ping = cfg.Ping
	}
	if cfg.Short > 0 {
		short = cfg.Short
	}
	if cfg.Medium > 0 {
		medium = cfg.Medium
	}
	if cfg.Long > 0 {
		long = cfg.Long
	}
}

// Reset restores all timeouts to their default values. Useful for testing.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	ping = DefaultPing
	short = DefaultShort
	medium = DefaultMedium
	long = DefaultLong
}

// ConfigureFromEnv reads timeout overrides from environment variables
// (TIMEOUT_PING, TIMEOUT_SHORT, TIMEOUT_MEDIUM, TIMEOUT_LONG; Go duration
// syntax). Invalid or unset values keep the current setting. Returns the
// number of timeouts configured.
func ConfigureFromEnv() int {
	mu.Lock()
	defer mu.Unlock()
	configured := 0

	set := func(key string, dst *time.Duration) {
		if v := os.Getenv(key); v != "" {
			if d, err := time.ParseDuration(v); err == nil && d > 0 {
				*dst = d
				configured++
			}
		}
	}
	set("TIMEOUT_PING", &ping)
	set("TIMEOUT_SHORT", &short)
	set("TIMEOUT_MEDIUM", &medium)
	set("TIMEOUT_LONG", &long)

	return configured
}

package rest

import (
	"sync"
	"time"
)

// RequestClass groups requests that share a per-second budget
type RequestClass int

const (
	ClassRead RequestClass = iota
	ClassWrite
)

// RateLimitConfig rate limiting configuration
type RateLimitConfig struct {
	// Per-client token bucket
	MaxRequestsPerSecond int           // Default: 100 requests/sec
	BurstSize            int           // Burst allowance: 200
	BanDuration          time.Duration // Ban duration when exceeded: 60 seconds

	// Per-class limits (requests per second, 0 = unlimited)
	MaxReadsPerSecond  int
	MaxWritesPerSecond int
}

// DefaultRateLimitConfig returns default rate limit configuration
func DefaultRateLimitConfig() *RateLimitConfig {
	return &RateLimitConfig{
		MaxRequestsPerSecond: 100,
		BurstSize:            200,
		BanDuration:          60 * time.Second,
		MaxReadsPerSecond:    50,
		MaxWritesPerSecond:   5,
	}
}

// clientRateLimiter tracks rate limits for a single client
type clientRateLimiter struct {
	mu sync.Mutex

	tokens     float64
	maxTokens  float64
	refillRate float64 // tokens per second
	lastRefill time.Time

	classCounters map[RequestClass]*classCounter

	bannedUntil time.Time
}

// classCounter counts requests in a one second window
type classCounter struct {
	count       int
	windowStart time.Time
}

// RateLimiter manages rate limiting for all clients
type RateLimiter struct {
	mu sync.RWMutex

	config  *RateLimitConfig
	clients map[string]*clientRateLimiter // key: remote host

	cleanupInterval time.Duration
	stopCh          chan struct{}
	stopOnce        sync.Once
	now             func() time.Time
}

// NewRateLimiter creates a new rate limiter
func NewRateLimiter(config *RateLimitConfig) *RateLimiter {
	if config == nil {
		config = DefaultRateLimitConfig()
	}

	rl := &RateLimiter{
		config:          config,
		clients:         make(map[string]*clientRateLimiter),
		cleanupInterval: 5 * time.Minute,
		stopCh:          make(chan struct{}),
		now:             time.Now,
	}

	go rl.cleanupLoop()

	return rl
}

// Stop stops the rate limiter
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() {
		close(rl.stopCh)
	})
}

func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stopCh:
			return
		case <-ticker.C:
			rl.cleanup()
		}
	}
}

// cleanup removes stale client rate limiters
func (rl *RateLimiter) cleanup() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	staleThreshold := 10 * time.Minute

	for clientID, crl := range rl.clients {
		crl.mu.Lock()
		if now.Sub(crl.lastRefill) > staleThreshold && now.After(crl.bannedUntil) {
			delete(rl.clients, clientID)
		}
		crl.mu.Unlock()
	}
}

func (rl *RateLimiter) getClientLimiter(clientID string) *clientRateLimiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if crl, exists := rl.clients[clientID]; exists {
		return crl
	}

	crl := &clientRateLimiter{
		tokens:        float64(rl.config.BurstSize),
		maxTokens:     float64(rl.config.BurstSize),
		refillRate:    float64(rl.config.MaxRequestsPerSecond),
		lastRefill:    rl.now(),
		classCounters: make(map[RequestClass]*classCounter),
	}
	rl.clients[clientID] = crl
	return crl
}

// Allow checks if a request from a client is allowed
// Returns: (allowed bool, reason string)
func (rl *RateLimiter) Allow(clientID string, class RequestClass) (bool, string) {
	crl := rl.getClientLimiter(clientID)
	crl.mu.Lock()
	defer crl.mu.Unlock()

	now := rl.now()

	if now.Before(crl.bannedUntil) {
		return false, "client is temporarily banned"
	}

	// Refill tokens (token bucket algorithm)
	elapsed := now.Sub(crl.lastRefill).Seconds()
	crl.tokens += elapsed * crl.refillRate
	if crl.tokens > crl.maxTokens {
		crl.tokens = crl.maxTokens
	}
	crl.lastRefill = now

	if crl.tokens < 1 {
		crl.bannedUntil = now.Add(rl.config.BanDuration)
		return false, "overall rate limit exceeded, client banned"
	}

	if !rl.checkClassLimit(crl, class, now) {
		return false, "request class rate limit exceeded"
	}

	crl.tokens--

	return true, ""
}

func (rl *RateLimiter) checkClassLimit(crl *clientRateLimiter, class RequestClass, now time.Time) bool {
	limit := rl.getClassLimit(class)
	if limit == 0 {
		return true
	}

	counter, exists := crl.classCounters[class]
	if !exists {
		counter = &classCounter{windowStart: now}
		crl.classCounters[class] = counter
	}

	if now.Sub(counter.windowStart) >= time.Second {
		counter.count = 0
		counter.windowStart = now
	}

	if counter.count >= limit {
		return false
	}

	counter.count++
	return true
}

func (rl *RateLimiter) getClassLimit(class RequestClass) int {
	switch class {
	case ClassRead:
		return rl.config.MaxReadsPerSecond
	case ClassWrite:
		return rl.config.MaxWritesPerSecond
	default:
		return 0
	}
}

// IsBanned checks if a client is currently banned
func (rl *RateLimiter) IsBanned(clientID string) bool {
	rl.mu.RLock()
	crl, exists := rl.clients[clientID]
	rl.mu.RUnlock()

	if !exists {
		return false
	}

	crl.mu.Lock()
	defer crl.mu.Unlock()

	return rl.now().Before(crl.bannedUntil)
}

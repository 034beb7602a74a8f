package middleware

import (
	"errors"
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Togather-Foundation/confdir/internal/api/problem"
	"github.com/Togather-Foundation/confdir/internal/config"
	"golang.org/x/time/rate"
)

type RateLimitTier string

const (
	TierPublic RateLimitTier = "public"
	TierAdmin  RateLimitTier = "admin"
	TierLogin  RateLimitTier = "login"
)

const (
	loginWindow     = 15 * time.Minute
	limiterIdleTTL  = 15 * time.Minute
	cleanupInterval = 5 * time.Minute
)

var errRateLimited = errors.New("rate limit exceeded")

// tierPolicy is a token bucket shape. A zero burst disables limiting.
type tierPolicy struct {
	every time.Duration
	burst int
}

// retryAfter is the wait until the next token, rounded up to whole seconds.
func (p tierPolicy) retryAfter() int {
	secs := int((p.every + time.Second - 1) / time.Second)
	return max(secs, 1)
}

func policiesFrom(cfg config.RateLimitConfig) map[RateLimitTier]tierPolicy {
	perWindow := func(limit int, window time.Duration) tierPolicy {
		if limit <= 0 {
			return tierPolicy{}
		}
		return tierPolicy{every: window / time.Duration(limit), burst: limit}
	}
	return map[RateLimitTier]tierPolicy{
		TierPublic: perWindow(cfg.PublicPerMinute, time.Minute),
		TierAdmin:  perWindow(cfg.AdminPerMinute, time.Minute),
		TierLogin:  perWindow(cfg.LoginPer15Minutes, loginWindow),
	}
}

// RateLimiter keeps one token bucket per client and tier.
type RateLimiter struct {
	store   *limiterStore
	trusted []netip.Prefix
	env     string
}

// NewRateLimiter starts the limiter together with its idle-bucket sweeper.
// Call Stop on shutdown.
func NewRateLimiter(cfg config.RateLimitConfig, env string) *RateLimiter {
	return &RateLimiter{
		store:   newLimiterStore(cfg),
		trusted: parseCIDRs(cfg.TrustedProxyCIDRs),
		env:     env,
	}
}

// Limit enforces tier and answers 429 with Retry-After once a client's bucket
// is empty.
func (l *RateLimiter) Limit(tier RateLimitTier) func(http.Handler) http.Handler {
	policy := l.store.policies[tier]
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if bucket := l.store.limiter(tier, clientKey(r, l.trusted)); bucket != nil && !bucket.Allow() {
				w.Header().Set("Retry-After", strconv.Itoa(policy.retryAfter()))
				problem.Write(w, r, http.StatusTooManyRequests, problem.TypeRateLimited, "Too many requests", errRateLimited, l.env)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (l *RateLimiter) Stop() {
	l.store.Stop()
}

type limiterStore struct {
	policies map[RateLimitTier]tierPolicy
	now      func() time.Time

	mu       sync.Mutex
	limiters map[string]*bucket

	done     chan struct{}
	stopOnce sync.Once
}

type bucket struct {
	*rate.Limiter
	lastSeen time.Time
}

func newLimiterStore(cfg config.RateLimitConfig) *limiterStore {
	s := &limiterStore{
		policies: policiesFrom(cfg),
		now:      time.Now,
		limiters: make(map[string]*bucket),
		done:     make(chan struct{}),
	}
	go s.sweep()
	return s
}

// limiter returns the bucket of key for tier, or nil when tier is unlimited.
func (s *limiterStore) limiter(tier RateLimitTier, key string) *rate.Limiter {
	policy := s.policies[tier]
	if policy.burst == 0 {
		return nil
	}
	id := string(tier) + "|" + key

	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.limiters[id]
	if !ok {
		b = &bucket{Limiter: rate.NewLimiter(rate.Every(policy.every), policy.burst)}
		s.limiters[id] = b
	}
	b.lastSeen = s.now()
	return b.Limiter
}

func (s *limiterStore) sweep() {
	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.done:
			return
		}
	}
}

// cleanup forgets buckets idle for longer than limiterIdleTTL.
func (s *limiterStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := s.now().Add(-limiterIdleTTL)
	for id, b := range s.limiters {
		if b.lastSeen.Before(cutoff) {
			delete(s.limiters, id)
		}
	}
}

func (s *limiterStore) Stop() {
	s.stopOnce.Do(func() { close(s.done) })
}

// clientKey is the peer address, or the first X-Forwarded-For hop (then
// X-Real-IP) when the peer is a trusted proxy.
func clientKey(r *http.Request, trusted []netip.Prefix) string {
	peer := r.RemoteAddr
	if host, _, err := net.SplitHostPort(peer); err == nil {
		peer = host
	}
	if !fromTrustedProxy(peer, trusted) {
		return peer
	}
	if hop, _, _ := strings.Cut(r.Header.Get("X-Forwarded-For"), ","); strings.TrimSpace(hop) != "" {
		return strings.TrimSpace(hop)
	}
	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}
	return peer
}

func fromTrustedProxy(peer string, trusted []netip.Prefix) bool {
	addr, err := netip.ParseAddr(peer)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, prefix := range trusted {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

// parseCIDRs drops malformed entries.
func parseCIDRs(values []string) []netip.Prefix {
	var prefixes []netip.Prefix
	for _, value := range values {
		if prefix, err := netip.ParsePrefix(strings.TrimSpace(value)); err == nil {
			prefixes = append(prefixes, prefix.Masked())
		}
	}
	return prefixes
}

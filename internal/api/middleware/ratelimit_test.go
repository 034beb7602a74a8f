package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Togather-Foundation/confdir/internal/config"
	"github.com/stretchr/testify/require"
)

func limitedHandler(t *testing.T, cfg config.RateLimitConfig, tier RateLimitTier) http.Handler {
	t.Helper()
	limiter := NewRateLimiter(cfg, "test")
	t.Cleanup(limiter.Stop)
	return limiter.Limit(tier)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func send(handler http.Handler, remoteAddr string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/login", nil)
	req.RemoteAddr = remoteAddr
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	return res
}

func TestLoginRateLimit_BlocksAfterBurst(t *testing.T) {
	handler := limitedHandler(t, config.RateLimitConfig{LoginPer15Minutes: 5}, TierLogin)

	for i := 0; i < 5; i++ {
		res := send(handler, "192.168.1.101:54321", nil)
		require.Equal(t, http.StatusOK, res.Code, "request %d", i+1)
	}

	res := send(handler, "192.168.1.101:54321", nil)
	require.Equal(t, http.StatusTooManyRequests, res.Code)
	require.Equal(t, "180", res.Header().Get("Retry-After"))
	require.Equal(t, "application/problem+json", res.Header().Get("Content-Type"))
}

func TestLoginRateLimit_PerIPIsolation(t *testing.T) {
	handler := limitedHandler(t, config.RateLimitConfig{LoginPer15Minutes: 2}, TierLogin)

	send(handler, "192.168.1.100:12345", nil)
	send(handler, "192.168.1.100:12345", nil)
	require.Equal(t, http.StatusTooManyRequests, send(handler, "192.168.1.100:12345", nil).Code)

	require.Equal(t, http.StatusOK, send(handler, "192.168.1.200:54321", nil).Code)
}

func TestRateLimit_ForwardedForOnlyFromTrustedProxy(t *testing.T) {
	cfg := config.RateLimitConfig{LoginPer15Minutes: 1, TrustedProxyCIDRs: []string{"10.0.0.0/8", "not-a-cidr"}}
	handler := limitedHandler(t, cfg, TierLogin)

	require.Equal(t, http.StatusOK, send(handler, "10.0.0.1:12345", map[string]string{"X-Forwarded-For": "203.0.113.45"}).Code)
	require.Equal(t, http.StatusTooManyRequests, send(handler, "10.0.0.2:12345", map[string]string{"X-Forwarded-For": "203.0.113.45, 10.0.0.1"}).Code)
	// A different real client behind the same proxy has its own bucket.
	require.Equal(t, http.StatusOK, send(handler, "10.0.0.1:12345", map[string]string{"X-Forwarded-For": "203.0.113.46"}).Code)
}

func TestRateLimit_DisabledWhenZero(t *testing.T) {
	handler := limitedHandler(t, config.RateLimitConfig{}, TierAdmin)

	for i := 0; i < 10; i++ {
		require.Equal(t, http.StatusOK, send(handler, "192.168.1.100:12345", nil).Code)
	}
}

func TestTierPublic_RateLimit(t *testing.T) {
	handler := limitedHandler(t, config.RateLimitConfig{PublicPerMinute: 2}, TierPublic)

	require.Equal(t, http.StatusOK, send(handler, "192.168.1.102:12345", nil).Code)
	require.Equal(t, http.StatusOK, send(handler, "192.168.1.102:12345", nil).Code)

	res := send(handler, "192.168.1.102:12345", nil)
	require.Equal(t, http.StatusTooManyRequests, res.Code)
	require.Equal(t, "30", res.Header().Get("Retry-After"))
}

func TestClientKey(t *testing.T) {
	trusted := parseCIDRs([]string{"10.0.0.0/8"})

	tests := []struct {
		name    string
		remote  string
		headers map[string]string
		want    string
	}{
		{"forwarded from trusted proxy", "10.0.0.1:12345", map[string]string{"X-Forwarded-For": "203.0.113.45, 198.51.100.1"}, "203.0.113.45"},
		{"real ip from trusted proxy", "10.0.0.1:12345", map[string]string{"X-Real-IP": "203.0.113.45"}, "203.0.113.45"},
		{"forwarded from untrusted peer", "192.0.2.10:12345", map[string]string{"X-Forwarded-For": "203.0.113.45"}, "192.0.2.10"},
		{"remote addr without port", "192.168.1.100", nil, "192.168.1.100"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			require.Equal(t, tt.want, clientKey(req, trusted))
		})
	}
}

func TestLimiterStoreCleanup(t *testing.T) {
	store := newLimiterStore(config.RateLimitConfig{PublicPerMinute: 10})
	defer store.Stop()
	now := time.Date(2025, 12, 4, 9, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	require.NotNil(t, store.limiter(TierPublic, "a"))
	require.Nil(t, store.limiter(TierAdmin, "a"))

	now = now.Add(limiterIdleTTL + time.Second)
	store.cleanup()

	store.mu.Lock()
	defer store.mu.Unlock()
	require.Empty(t, store.limiters)
}

func BenchmarkRateLimit_Allow(b *testing.B) {
	limiter := NewRateLimiter(config.RateLimitConfig{PublicPerMinute: 1000}, "test")
	defer limiter.Stop()
	handler := limiter.Limit(TierPublic)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/events", nil)
	req.RemoteAddr = "192.168.1.100:12345"

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}
}

func TestTierPolicyRetryAfter(t *testing.T) {
	policies := policiesFrom(config.RateLimitConfig{PublicPerMinute: 120, AdminPerMinute: 7, LoginPer15Minutes: 5})

	require.Equal(t, 1, policies[TierPublic].retryAfter())
	require.Equal(t, 9, policies[TierAdmin].retryAfter())
	require.Equal(t, 180, policies[TierLogin].retryAfter())
}

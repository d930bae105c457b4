package server

import (
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNormalizeOrigins(t *testing.T) {
	normalized, allowAll := normalizeOrigins([]string{
		" HTTP://Example.COM ",
		"",
		"not a url",
		"https://chat.example:8443",
	}, discardLogger())

	assert.False(t, allowAll)
	assert.Equal(t, []string{"http://example.com", "https://chat.example:8443"}, normalized)

	_, allowAll = normalizeOrigins([]string{"*"}, discardLogger())
	assert.True(t, allowAll)
}

func TestOriginPolicy(t *testing.T) {
	p := newOriginPolicy([]string{"http://localhost:8080"}, discardLogger())

	tests := []struct {
		origin string
		want   bool
	}{
		{"http://localhost:8080", true},
		{"HTTP://LOCALHOST:8080", true},
		{"http://localhost:9090", false},
		{"https://localhost:8080", false},
		{"", false},
		{"garbage", false},
	}

	for _, tt := range tests {
		t.Run(tt.origin, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/ws", nil)
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			assert.Equal(t, tt.want, p.checkOrigin(r))
		})
	}

	assert.Equal(t, []string{"http://localhost:8080"}, p.corsOrigins())
	assert.Equal(t, []string{"*"}, newOriginPolicy([]string{"*"}, discardLogger()).corsOrigins())
}

func TestRateLimiterBurst(t *testing.T) {
	limiter := newRateLimiter(3, time.Hour)

	for i := 0; i < 3; i++ {
		assert.True(t, limiter.Allow(), "token %d", i)
	}
	assert.False(t, limiter.Allow())
}

func TestRateLimiterRefills(t *testing.T) {
	limiter := newRateLimiter(2, 100*time.Millisecond)
	assert.True(t, limiter.Allow())
	assert.True(t, limiter.Allow())
	assert.False(t, limiter.Allow())

	assert.Eventually(t, limiter.Allow, time.Second, 10*time.Millisecond)
}

func TestRateLimiterDefaults(t *testing.T) {
	limiter := newRateLimiter(0, 0)
	assert.Equal(t, 1, limiter.Burst())
}

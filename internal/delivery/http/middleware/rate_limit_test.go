package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

func newLimitedHandler(t *testing.T, limit rate.Limit, burst int) http.Handler {
	t.Helper()
	rl := NewRateLimiter(context.Background(), limit, burst, time.Minute, time.Minute)
	t.Cleanup(rl.Shutdown)

	return rl.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func get(h http.Handler, ip string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/medicines", nil)
	req.Header.Set("X-Real-IP", ip)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRateLimiterAllowsWithinBurst(t *testing.T) {
	h := newLimitedHandler(t, 1, 3)

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, get(h, "10.0.0.1").Code)
	}
}

func TestRateLimiterRejectsWithEnvelope(t *testing.T) {
	h := newLimitedHandler(t, 1, 1)

	require.Equal(t, http.StatusOK, get(h, "10.0.0.2").Code)

	rec := get(h, "10.0.0.2")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json"))

	var body struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.False(t, body.Success)
	assert.Equal(t, "Too many requests", body.Message)
}

func TestRateLimiterIsolatesClients(t *testing.T) {
	h := newLimitedHandler(t, 1, 1)

	require.Equal(t, http.StatusOK, get(h, "10.0.0.3").Code)
	require.Equal(t, http.StatusTooManyRequests, get(h, "10.0.0.3").Code)
	assert.Equal(t, http.StatusOK, get(h, "10.0.0.4").Code)
}

func TestRateLimiterEvictsStaleVisitors(t *testing.T) {
	rl := NewRateLimiter(context.Background(), 1, 1, time.Minute, time.Millisecond)
	defer rl.Shutdown()

	rl.bucketFor("10.0.0.5")
	require.Len(t, rl.visitors, 1)

	time.Sleep(5 * time.Millisecond)
	rl.evictStale()
	assert.Empty(t, rl.visitors)
}

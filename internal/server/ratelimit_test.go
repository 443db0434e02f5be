package server

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiterPerClient(t *testing.T) {
	rl := NewRateLimiter(0.001, 1, slog.New(slog.NewTextHandler(io.Discard, nil)))

	assert.True(t, rl.Allow("192.0.2.1"))
	assert.False(t, rl.Allow("192.0.2.1"))
	assert.True(t, rl.Allow("192.0.2.2"))
	assert.Equal(t, 2, rl.Len())

	rl.Cleanup(time.Now().Add(time.Minute))
	assert.Zero(t, rl.Len())
	assert.True(t, rl.Allow("192.0.2.1"))
}

func TestRateLimiterHandler(t *testing.T) {
	rl := NewRateLimiter(0.001, 1, slog.New(slog.NewTextHandler(io.Discard, nil)))
	h := rl.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	call := func(remote string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = remote
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusNoContent, call("192.0.2.1:1000"))
	// same client from another port
	assert.Equal(t, http.StatusTooManyRequests, call("192.0.2.1:2000"))
	assert.Equal(t, http.StatusNoContent, call("[2001:db8::1]:1000"))
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "198.51.100.7:5555"
	assert.Equal(t, "198.51.100.7", clientIP(req))

	req.RemoteAddr = "not-an-addr"
	assert.Equal(t, "not-an-addr", clientIP(req))
}

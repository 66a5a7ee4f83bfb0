package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"asset-tracker/internal/config"

	"github.com/stretchr/testify/assert"
)

var ok = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })

func serve(h http.Handler, remote string, hdr map[string]string) int {
	req := httptest.NewRequest(http.MethodGet, "/api/markers", nil)
	req.RemoteAddr = remote
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec.Code
}

func TestAllowlist(t *testing.T) {
	h := Wrap(ok, config.RateLimitConfig{}, config.OriginConfig{
		DefenseEnable: true,
		AllowIPs:      "203.0.113.7, bogus",
		AllowCIDRs:    "10.20.0.0/16,fd00::/8",
		AllowLocal:    true,
		RealIPHeader:  "X-Forwarded-For",
	})
	assert.Equal(t, http.StatusNoContent, serve(h, "10.20.3.4:5555", nil))
	assert.Equal(t, http.StatusNoContent, serve(h, "[::1]:5555", nil))
	assert.Equal(t, http.StatusNoContent, serve(h, "198.51.100.1:1", map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"}))
	assert.Equal(t, http.StatusNoContent, serve(h, "[fd00::1]:80", nil))
	assert.Equal(t, http.StatusForbidden, serve(h, "198.51.100.1:1", nil))
	assert.Equal(t, http.StatusForbidden, serve(h, "garbage", nil))
}

func TestDisabledPassesThrough(t *testing.T) {
	h := Wrap(ok, config.RateLimitConfig{}, config.OriginConfig{})
	assert.Equal(t, http.StatusNoContent, serve(h, "198.51.100.1:1", nil))
}

func TestTokenBucket(t *testing.T) {
	now := time.Unix(100, 0)
	tb := NewTokenBucket(2)
	tb.now = func() time.Time { return now }
	h := RateLimit(tb, ok)

	assert.Equal(t, http.StatusNoContent, serve(h, "1.1.1.1:1", nil))
	assert.Equal(t, http.StatusNoContent, serve(h, "1.1.1.1:1", nil))
	assert.Equal(t, http.StatusTooManyRequests, serve(h, "1.1.1.1:1", nil))

	now = now.Add(time.Second)
	assert.Equal(t, http.StatusNoContent, serve(h, "1.1.1.1:1", nil))
}

// 包 middleware：入口限流与来源白名单
package middleware

import (
	"net/http"
	"sync"
	"time"

	"asset-tracker/internal/config"
	"asset-tracker/internal/logger"
)

// 文档注释：令牌桶限流（每秒补满）
// 背景：刷新与反地理接口会触发下游付费调用，峰值时在入口丢弃多余请求。
// 约束：不排队，超出即 429；容量即每秒请求数。
type TokenBucket struct {
	capacity int
	tokens   int
	lastSec  int64
	now      func() time.Time
	mu       sync.Mutex
}

func NewTokenBucket(qps int) *TokenBucket {
	if qps <= 0 {
		qps = 200
	}
	return &TokenBucket{capacity: qps, tokens: qps, lastSec: time.Now().Unix(), now: time.Now}
}

func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	sec := tb.now().Unix()
	if tb.lastSec != sec {
		tb.lastSec = sec
		tb.tokens = tb.capacity
	}
	if tb.tokens > 0 {
		tb.tokens--
		return true
	}
	return false
}

func RateLimit(tb *TokenBucket, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !tb.Allow() {
			logger.L().Debug("rate_limited", "path", r.URL.Path)
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Wrap：按配置叠加白名单与限流；白名单在内层
func Wrap(next http.Handler, rl config.RateLimitConfig, oc config.OriginConfig) http.Handler {
	h := next
	if oc.DefenseEnable {
		h = NewAllowlist(oc).Wrap(h)
	}
	if rl.Enabled {
		h = RateLimit(NewTokenBucket(rl.QPS), h)
	}
	return h
}

package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// visitor 包装限流器和最后活跃时间，用于定期清理
type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// visitors 保存每个客户端 IP 的限流状态
type visitors struct {
	mu    sync.Mutex
	store map[string]*visitor
}

func (vs *visitors) get(key string, r rate.Limit, burst int) *visitor {
	vs.mu.Lock()
	defer vs.mu.Unlock()
	v, exists := vs.store[key]
	if !exists {
		v = &visitor{limiter: rate.NewLimiter(r, burst)}
		vs.store[key] = v
	}
	v.lastSeen = time.Now()
	return v
}

func (vs *visitors) evict(expiry time.Duration) {
	vs.mu.Lock()
	defer vs.mu.Unlock()
	for ip, v := range vs.store {
		if time.Since(v.lastSeen) > expiry {
			delete(vs.store, ip)
		}
	}
}

func (vs *visitors) len() int {
	vs.mu.Lock()
	defer vs.mu.Unlock()
	return len(vs.store)
}

// janitor 定期清理长时间不活跃的客户端，ctx 结束时返回。
func (vs *visitors) janitor(ctx context.Context, interval, expiry time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			vs.evict(expiry)
		}
	}
}

// RateLimiter 按客户端 IP 限流，保护调用生成模型的接口。maxRequests<=0 时不限流。
// 后台清理协程随 ctx 结束而退出。
func RateLimiter(ctx context.Context, maxRequests int, window time.Duration) gin.HandlerFunc {
	if maxRequests <= 0 || window <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	vs := &visitors{store: make(map[string]*visitor)}
	expiry := window * 3
	if expiry < time.Minute {
		expiry = time.Minute
	}
	go vs.janitor(ctx, time.Minute, expiry)

	r := rate.Every(window / time.Duration(maxRequests))

	return func(c *gin.Context) {
		v := vs.get(c.ClientIP(), r, maxRequests)
		if !v.limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"code":    http.StatusTooManyRequests,
				"message": "too many requests",
				"data":    nil,
			})
			return
		}
		c.Next()
	}
}

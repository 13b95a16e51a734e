package middleware

import (
	_ "embed"
	"fmt"
	"time"

	"tenco_blog/internal/observability"
	"tenco_blog/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
)

//go:embed rate_limiter.lua
var fixedWindowLua string

// redis.Script 先EvalSha，脚本没加载过再退回Eval
var fixedWindowScript = redis.NewScript(fixedWindowLua)

// RateLimiterConfig 固定窗口：Window 时间内最多 Limit 次
type RateLimiterConfig struct {
	Limit  int
	Window time.Duration
}

func LoginRateLimiterKey(ip string) string {
	return fmt.Sprintf("ratelimit:login:%s", ip)
}

// LoginRateLimiter 按客户端IP限制登录尝试次数，超限交给reject处理（重新渲染登录页）
// Redis出错时放行
func LoginRateLimiter(rdb *redis.Client, conf RateLimiterConfig, metrics *observability.Metrics, reject gin.HandlerFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		key := LoginRateLimiterKey(ip)

		count, err := fixedWindowScript.Run(c.Request.Context(), rdb, []string{key}, conf.Window.Milliseconds()).Int64()
		if err != nil {
			logger.Log.WithError(err).Error("登录限流计数失败，放行")
			c.Next()
			return
		}

		if count > int64(conf.Limit) {
			logger.Log.WithField("ip", ip).WithField("count", count).Warn("登录尝试过于频繁")
			metrics.LoginFailed("rate_limited")
			reject(c)
			c.Abort()
			return
		}
		c.Next()
	}
}

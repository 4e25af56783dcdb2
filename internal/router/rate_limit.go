package router

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/railbook-next/internal/http/response"
	"github.com/railbook-next/internal/i18n"
	"github.com/railbook-next/internal/logger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// RateLimitKeyFunc 生成限流 key 的函数
type RateLimitKeyFunc func(*gin.Context) string

// RateLimitRule 限流规则
type RateLimitRule struct {
	Prefix        string
	WindowSeconds int
	MaxRequests   int
	MessageKey    string
}

var rateLimitScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
	redis.call("EXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("TTL", KEYS[1])
return {current, ttl}
`)

// RateLimitMiddleware 频率限制中间件：Redis 可用时按固定窗口计数，否则退化为进程内令牌桶
func RateLimitMiddleware(client *redis.Client, rule RateLimitRule, keyFunc RateLimitKeyFunc) gin.HandlerFunc {
	if rule.WindowSeconds <= 0 || rule.MaxRequests <= 0 {
		return func(c *gin.Context) { c.Next() }
	}
	if client == nil {
		logger.Warnw("rate_limit_local_fallback", "prefix", rule.Prefix)
		return localRateLimit(newLocalLimiters(rule), rule, keyFunc)
	}
	return func(c *gin.Context) {
		key := resolveRateLimitKey(c, rule, keyFunc)

		result, err := rateLimitScript.Run(c.Request.Context(), client, []string{key}, rule.WindowSeconds).Result()
		if err != nil {
			msg := i18n.T(i18n.ResolveLocale(c), "error.rate_limit_unavailable")
			response.Error(c, response.CodeInternal, msg)
			c.Abort()
			return
		}

		values, ok := result.([]interface{})
		if !ok || len(values) < 2 {
			msg := i18n.T(i18n.ResolveLocale(c), "error.rate_limit_unavailable")
			response.Error(c, response.CodeInternal, msg)
			c.Abort()
			return
		}
		count, ok := toInt64(values[0])
		if !ok {
			msg := i18n.T(i18n.ResolveLocale(c), "error.rate_limit_unavailable")
			response.Error(c, response.CodeInternal, msg)
			c.Abort()
			return
		}
		ttlSeconds, _ := toInt64(values[1])
		if count > int64(rule.MaxRequests) {
			rejectRateLimited(c, rule, int(ttlSeconds))
			return
		}

		c.Next()
	}
}

func resolveRateLimitKey(c *gin.Context, rule RateLimitRule, keyFunc RateLimitKeyFunc) string {
	key := ""
	if keyFunc != nil {
		key = strings.TrimSpace(keyFunc(c))
	}
	if key == "" {
		key = c.ClientIP()
	}
	if rule.Prefix != "" {
		key = fmt.Sprintf("%s:%s", rule.Prefix, key)
	}
	return key
}

func rejectRateLimited(c *gin.Context, rule RateLimitRule, waitSeconds int) {
	if waitSeconds < 1 {
		waitSeconds = rule.WindowSeconds
	}
	if waitSeconds < 1 {
		waitSeconds = 1
	}
	msgKey := strings.TrimSpace(rule.MessageKey)
	if msgKey == "" {
		msgKey = "error.rate_limited"
	}
	c.Header("Retry-After", fmt.Sprintf("%d", waitSeconds))
	msg := i18n.Sprintf(i18n.ResolveLocale(c), msgKey, waitSeconds)
	response.Error(c, response.CodeTooManyRequests, msg)
	c.Abort()
}

// localLimiters 进程内按 key 维护的令牌桶，桶容量为窗口内的最大请求数
type localLimiters struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	limit    rate.Limit
	burst    int
}

func newLocalLimiters(rule RateLimitRule) *localLimiters {
	window := time.Duration(rule.WindowSeconds) * time.Second
	return &localLimiters{
		limiters: make(map[string]*rate.Limiter),
		limit:    rate.Every(window / time.Duration(rule.MaxRequests)),
		burst:    rule.MaxRequests,
	}
}

func (l *localLimiters) get(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()
	limiter, ok := l.limiters[key]
	if !ok {
		limiter = rate.NewLimiter(l.limit, l.burst)
		l.limiters[key] = limiter
	}
	return limiter
}

func localRateLimit(limiters *localLimiters, rule RateLimitRule, keyFunc RateLimitKeyFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := resolveRateLimitKey(c, rule, keyFunc)
		reservation := limiters.get(key).Reserve()
		if delay := reservation.Delay(); delay > 0 {
			reservation.Cancel()
			rejectRateLimited(c, rule, int((delay+time.Second-1)/time.Second))
			return
		}
		c.Next()
	}
}

// KeyByUserID 已登录用户按用户标识限流，否则按 IP
func KeyByUserID(c *gin.Context) string {
	if value, ok := c.Get(userIDKey); ok {
		if id, ok := value.(string); ok && strings.TrimSpace(id) != "" {
			return "user:" + strings.TrimSpace(id)
		}
	}
	return "ip:" + c.ClientIP()
}

// KeyByIP 使用 IP 作为限流 key
func KeyByIP(c *gin.Context) string {
	return c.ClientIP()
}

func toInt64(value interface{}) (int64, bool) {
	switch v := value.(type) {
	case int64:
		return v, true
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case int16:
		return int64(v), true
	case int8:
		return int64(v), true
	case uint64:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint8:
		return int64(v), true
	case float64:
		return int64(v), true
	case float32:
		return int64(v), true
	default:
		return 0, false
	}
}

package router

import (
	"fmt"
	"strings"

	"github.com/railbook-next/internal/cache"
	"github.com/railbook-next/internal/config"
	publichandlers "github.com/railbook-next/internal/http/handlers/public"
	"github.com/railbook-next/internal/logger"
	"github.com/railbook-next/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	handler := publichandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "rb"
	}
	lockRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:seat_lock", redisPrefix),
		WindowSeconds: cfg.Security.LockRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.LockRateLimit.MaxRequests,
		MessageKey:    "error.rate_limited",
	}

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	r.GET("/health", handler.Health)

	apiV1 := r.Group("/api/v1")
	{
		// 渠道回调，凭签名鉴权
		apiV1.POST("/payments/callback", handler.PaymentCallback)

		user := apiV1.Group("")
		user.Use(JWTAuthMiddleware(cfg.JWT.SecretKey))
		{
			user.POST("/locks", RateLimitMiddleware(cache.Client(), lockRule, KeyByUserID), handler.AcquireSeatLock)
			user.GET("/locks/:id", handler.GetSeatLock)

			user.POST("/orders", handler.CreateOrder)
			user.GET("/orders", handler.ListOrders)
			user.GET("/orders/:id", handler.GetOrder)
			user.POST("/orders/:id/cancel", handler.CancelOrder)
			user.GET("/orders/:id/payments", handler.ListOrderPayments)

			user.POST("/payments", handler.InitiatePayment)
			user.GET("/payments/:id/status", handler.GetPaymentStatus)
		}
	}

	return r
}

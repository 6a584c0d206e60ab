package router

import (
	"fmt"
	"strings"

	"github.com/gopay-next/internal/cache"
	"github.com/gopay-next/internal/config"
	publichandlers "github.com/gopay-next/internal/http/handlers/public"
	"github.com/gopay-next/internal/logger"
	"github.com/gopay-next/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	publicHandler := publichandlers.New(c)

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))

	// 收银台页面模板与静态资源
	r.LoadHTMLGlob("templates/*.html")
	r.Static("/assets", "./public/assets")

	// 下单接口按商户+IP 限流
	var submitLimiter gin.HandlerFunc
	if cfg.RateLimit.Enabled {
		redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
		if redisPrefix == "" {
			redisPrefix = "gopay"
		}
		submitLimiter = RateLimitMiddleware(cache.Client(), RateLimitRule{
			Prefix:        fmt.Sprintf("%s:rate:submit", redisPrefix),
			WindowSeconds: cfg.RateLimit.WindowSeconds,
			MaxRequests:   cfg.RateLimit.MaxRequests,
			Message:       "下单过于频繁，请稍后重试",
		}, KeyByIPAndParam("pid"))
	}

	r.GET("/", publicHandler.Index)

	if submitLimiter != nil {
		r.GET("/submit.php", submitLimiter, publicHandler.Submit)
		r.POST("/submit.php", submitLimiter, publicHandler.Submit)
	} else {
		r.GET("/submit.php", publicHandler.Submit)
		r.POST("/submit.php", publicHandler.Submit)
	}

	// 渠道回调
	r.POST("/pay/alipay_notify", publicHandler.AlipayNotify)
	r.GET("/pay/alipay_return", publicHandler.AlipayReturn)
	r.POST("/pay/wxpay_notify/:appid", publicHandler.WxpayNotify)
	r.GET("/pay/wxpay/native", publicHandler.WxpayNativePage)

	// 订单轮询与跳转
	r.GET("/api/order_status", publicHandler.OrderStatus)
	r.GET("/go", publicHandler.Redirect)
	r.GET("/test", publicHandler.Test)

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}

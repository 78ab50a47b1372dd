package router

import (
	"fmt"
	"strings"

	"github.com/fireguard-store/storefront/internal/cache"
	"github.com/fireguard-store/storefront/internal/config"
	"github.com/fireguard-store/storefront/internal/constants"
	publichandlers "github.com/fireguard-store/storefront/internal/http/handlers/public"
	"github.com/fireguard-store/storefront/internal/logger"
	"github.com/fireguard-store/storefront/internal/provider"

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
		redisPrefix = constants.DefaultRedisPrefix
	}
	redisClient := cache.Client()
	sessionRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:session", redisPrefix),
		WindowSeconds: cfg.Security.RateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.RateLimit.MaxRequests,
	}
	cartWriteRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:cart", redisPrefix),
		WindowSeconds: cfg.Security.RateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.RateLimit.MaxRequests,
	}
	cartWriteLimit := RateLimitMiddleware(redisClient, cartWriteRule, KeyBySession)

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))
	r.Use(LocaleMiddleware())

	apiV1 := r.Group("/api/v1")
	{
		apiV1.POST("/session", RateLimitMiddleware(redisClient, sessionRule, KeyByIP), handler.CreateSession)
		apiV1.GET("/products/:id", handler.GetProduct)

		// 购物车接口（需要会话）
		cartGroup := apiV1.Group("/cart")
		cartGroup.Use(CartSessionMiddleware(c.SessionToken, cfg.Session.CookieName))
		{
			cartGroup.GET("", handler.GetCart)
			cartGroup.GET("/details", handler.GetCartDetails)
			cartGroup.POST("/items", cartWriteLimit, handler.AddCartItem)
			cartGroup.PUT("/items/:id", cartWriteLimit, handler.UpdateCartItem)
			cartGroup.DELETE("/items/:id", cartWriteLimit, handler.RemoveCartItem)
			cartGroup.DELETE("", cartWriteLimit, handler.ClearCart)
		}
	}

	// 健康检查
	r.GET("/health", handler.Health)

	return r
}

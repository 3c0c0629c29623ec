package httptransport

import (
	"time"

	gincors "github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"newsletter/backend/internal/auth"
	"newsletter/backend/internal/config"
	"newsletter/backend/internal/health"
	"newsletter/backend/internal/middleware"
	"newsletter/backend/internal/monitoring"
	"newsletter/backend/internal/service"
	"newsletter/backend/internal/storage"
)

// RouterDependencies 路由器依赖项
type RouterDependencies struct {
	Config              *config.Config
	SubscriptionService *service.SubscriptionService
	NewsletterService   *service.NewsletterService
	AuthService         *auth.Service
	Store               storage.Store
	RedisClient         *redis.Client // 可为 nil
	Metrics             *monitoring.Metrics
	Logger              *zap.Logger
}

// NewRouter 创建并返回 Gin 路由实例。
func NewRouter(deps RouterDependencies) *gin.Engine {
	router := gin.New()

	router.Use(middleware.RecoveryHandler(deps.Logger))
	router.Use(middleware.RequestLogger(deps.Logger))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.HTTPMetrics(deps.Metrics))

	// 订阅表单和发布请求都很小
	router.Use(middleware.RequestSizeLimit(1 * 1024 * 1024))

	// CORS 配置
	corsConfig := gincors.Config{
		AllowOrigins:     deps.Config.CORS.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "Idempotency-Key"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	// 如果允许所有来源，则需清空凭证支持。
	for _, origin := range corsConfig.AllowOrigins {
		if origin == "*" {
			corsConfig.AllowCredentials = false
			break
		}
	}
	router.Use(gincors.New(corsConfig))

	subscriptionHandler := NewSubscriptionHandler(deps.SubscriptionService, deps.Metrics)
	newsletterHandler := NewNewsletterHandler(deps.NewsletterService, deps.Metrics)
	authHandler := NewAuthHandler(deps.AuthService, int(deps.Config.Session.TTL.Seconds()), deps.Logger)

	basicAuth := middleware.NewBasicAuth(deps.AuthService, deps.Logger)
	sessionAuth := middleware.NewSessionAuth(deps.AuthService, deps.Logger)

	// 探针与指标
	healthChecker := health.NewHealthChecker(deps.Store, deps.RedisClient, deps.Logger)
	router.GET("/healthz", gin.WrapF(healthChecker.LiveHandler()))
	router.GET("/readyz", gin.WrapF(healthChecker.ReadyHandler()))
	router.GET("/metrics", gin.WrapH(deps.Metrics.HTTPHandler()))

	// ========== 订阅 ==========
	router.POST("/subscriptions", subscriptionHandler.Subscribe)
	router.GET("/subscriptions/confirm", subscriptionHandler.Confirm)

	// ========== 机器端发布（Basic 认证） ==========
	router.POST("/newsletters", basicAuth.RequireAuth(), newsletterHandler.Publish)

	// ========== 管理员登录 ==========
	router.GET("/login", authHandler.LoginPage)
	router.POST("/login", authHandler.Login)

	// ========== 管理后台（会话认证） ==========
	adminRoutes := router.Group("/admin")
	adminRoutes.Use(sessionAuth.RequireSession())
	{
		adminRoutes.GET("/newsletters", newsletterHandler.PublishPage)
		adminRoutes.POST("/newsletters", newsletterHandler.PublishForm)
		adminRoutes.POST("/logout", authHandler.Logout)
	}

	return router
}

package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"newsletter/backend/internal/auth"
	"newsletter/backend/internal/config"
	"newsletter/backend/internal/logger"
	"newsletter/backend/internal/mailer"
	"newsletter/backend/internal/monitoring"
	"newsletter/backend/internal/service"
	"newsletter/backend/internal/storage"
	"newsletter/backend/internal/storage/memory"
	redisstore "newsletter/backend/internal/storage/redis"
	sqlstore "newsletter/backend/internal/storage/sql"
	httptransport "newsletter/backend/internal/transport/http"
)

// main 启动订阅与简报投递服务。
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	log, err := logger.NewLogger(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
		LogFile:     "",
		MaxSize:     100,
		MaxBackups:  3,
		MaxAge:      28,
		Compress:    true,
	})
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	log.Info("starting newsletter server",
		zap.String("log_level", cfg.Log.Level),
		zap.Bool("development", cfg.Log.Development),
	)

	// 初始化存储层
	var store storage.Store
	if cfg.Database.Type != "" && cfg.Database.DSN != "" {
		store, err = sqlstore.NewStore(
			cfg.Database.Type,
			cfg.Database.DSN,
			cfg.Database.MaxOpenConns,
			cfg.Database.MaxIdleConns,
			cfg.Database.ConnMaxLifetime,
		)
		if err != nil {
			panic(fmt.Sprintf("failed to initialize database storage: %v", err))
		}
		log.Info("using database storage", zap.String("type", cfg.Database.Type))
	} else {
		store = memory.NewStore()
		log.Info("using memory storage (development mode)")
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Warn("failed to close store", zap.Error(err))
		}
	}()

	// 会话默认随主存储；配置了 Redis 时改用 Redis（多实例共享会话）
	var sessions storage.SessionRepository = store
	var redisClient *goredis.Client
	if cfg.Redis.Enabled {
		redisClient, err = redisstore.NewClient(cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			panic(fmt.Sprintf("failed to connect to redis: %v", err))
		}
		sessions = redisstore.NewSessionStore(redisClient)
		log.Info("using redis session storage", zap.String("address", cfg.Redis.Address))
	}

	metrics := monitoring.NewMetrics()

	// 出站邮件
	sender, err := mailer.NewSMTPSender(
		cfg.Mail.SMTPAddr,
		cfg.Mail.SMTPUsername,
		cfg.Mail.SMTPPassword,
		cfg.Mail.Sender,
		cfg.Mail.SendRate,
	)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize mailer: %v", err))
	}

	// 认证与业务服务
	tokens := auth.NewTokenManager(cfg.Session.Secret, cfg.Session.Issuer, cfg.Session.TTL)
	authService := auth.NewService(store, sessions, tokens)
	subscriptionService := service.NewSubscriptionService(store, store, sender, cfg.Server.BaseURL, log)
	newsletterService := service.NewNewsletterService(store, store, sender, cfg.Mail.FanoutWorkers, log)

	router := httptransport.NewRouter(httptransport.RouterDependencies{
		Config:              cfg,
		SubscriptionService: subscriptionService,
		NewsletterService:   newsletterService,
		AuthService:         authService,
		Store:               store,
		RedisClient:         redisClient,
		Metrics:             metrics,
		Logger:              log,
	})

	httpAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpServer := &http.Server{
		Addr:              httpAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// 信号处理
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		log.Info("starting HTTP server", zap.String("address", httpAddr))
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server error", zap.Error(err))
			return err
		}
		return nil
	})

	// 优雅关闭 goroutine
	group.Go(func() error {
		<-groupCtx.Done()
		log.Info("shutdown signal received, gracefully shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("HTTP server shutdown error", zap.Error(err))
		}

		log.Info("server stopped")
		return nil
	})

	if err := group.Wait(); err != nil && err != context.Canceled {
		log.Fatal("server error", zap.Error(err))
	}

	log.Info("server exited cleanly")
}

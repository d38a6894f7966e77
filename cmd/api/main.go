package main

import (
	"context"
	"log"

	"librestock/internal/config"
	"librestock/internal/database"
	"librestock/internal/handler"
	"librestock/internal/middleware"
	"librestock/internal/repository"
	"librestock/internal/service"
	"librestock/pkg/logger"
	"librestock/pkg/ratelimit"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Configuration failed: %v", err)
	}

	zlog, err := logger.New(cfg.Environment)
	if err != nil {
		log.Fatalf("Logger setup failed: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	db, err := database.NewConnection(cfg.DSN())
	if err != nil {
		zlog.Fatal("database connection failed", zap.Error(err))
	}
	zlog.Info("connected to postgres", zap.String("host", cfg.DBHost), zap.String("database", cfg.DBName))

	// Set up dependencies (Repository -> Service -> Handler)
	txManager := repository.NewTransactionManager(db, repository.PostgresAdvisoryLocker{})
	roleRepo := repository.NewRoleRepository(db)
	userRepo := repository.NewUserRepository(db)

	roleService := service.NewRoleService(roleRepo, txManager, zlog)
	userService := service.NewUserService(userRepo, roleRepo, roleService, txManager, zlog)
	bootstrapService := service.NewBootstrapService(roleRepo, txManager, zlog)

	// Seeding runs on every start; it only creates roles that are missing.
	if err := roleService.Seed(context.Background()); err != nil {
		zlog.Fatal("role seeding failed", zap.Error(err))
	}

	guard := middleware.NewGuard(roleService, zlog)

	var limiter ratelimit.Limiter
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		limiter = ratelimit.NewRedis(client, cfg.AuthRateLimitMax, cfg.AuthRateLimitWindow)
		zlog.Info("auth rate limiting backed by redis", zap.String("addr", cfg.RedisAddr))
	} else {
		limiter = ratelimit.NewMemory(cfg.AuthRateLimitMax, cfg.AuthRateLimitWindow)
	}

	roleHandler := handler.NewRoleHandler(roleService, guard)
	userHandler := handler.NewUserHandler(userService, guard)
	hookHandler := handler.NewHookHandler(bootstrapService, zlog)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.FrontendURL}
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	router.Use(middleware.SessionLoader(userRepo, zlog))

	// Auth-adjacent surfaces get the rate limiter; everything else does not.
	authLimited := router.Group("", middleware.AuthRateLimit(limiter, zlog))
	userHandler.RegisterMe(authLimited)
	hookHandler.RegisterRoutes(authLimited)

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "OK"})
	})

	roleHandler.RegisterRoutes(router.Group(""))
	userHandler.RegisterRoutes(router.Group(""))

	zlog.Info("server listening", zap.String("port", cfg.Port))
	if err := router.Run(":" + cfg.Port); err != nil {
		zlog.Fatal("server failed", zap.Error(err))
	}
}

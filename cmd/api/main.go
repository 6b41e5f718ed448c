package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/stocknest/inventory-api/api/swagger"
	"github.com/stocknest/inventory-api/internal/handler"
	"github.com/stocknest/inventory-api/internal/middleware"
	"github.com/stocknest/inventory-api/internal/repository"
	"github.com/stocknest/inventory-api/internal/service"
	"github.com/stocknest/inventory-api/internal/token"
	"github.com/stocknest/inventory-api/pkg/cache"
	"github.com/stocknest/inventory-api/pkg/config"
	"github.com/stocknest/inventory-api/pkg/database"
	"github.com/stocknest/inventory-api/pkg/logger"
	corsmiddleware "github.com/stocknest/inventory-api/pkg/middleware/cors"
	reqidmiddleware "github.com/stocknest/inventory-api/pkg/middleware/requestid"
	"github.com/stocknest/inventory-api/pkg/password"
)

// @title StockNest Inventory API
// @version 0.1.0
// @description Session and account lifecycle for the StockNest inventory platform
// @BasePath /
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	rdb, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	defer rdb.Close()

	codec, err := token.NewCodec(
		token.ClassConfig{Secret: cfg.Token.AccessSecret, Lifetime: cfg.Token.AccessExpiration},
		token.ClassConfig{Secret: cfg.Token.RefreshSecret, Lifetime: cfg.Token.RefreshExpiration},
	)
	if err != nil {
		logr.Sugar().Fatalw("failed to init token codec", "error", err)
	}
	policy := token.RefreshPolicy{
		Lifetime:  cfg.Token.RefreshExpiration,
		Threshold: cfg.Token.RefreshThreshold,
	}

	userRepo := repository.NewUserRepository(db)
	denylistRepo := repository.NewDenylistRepository(rdb, logr)
	identityRepo := repository.NewIdentityRepository(rdb, logr)

	// Outstanding logins survive restarts as long as the identity set holds
	// every live account id. A failed warm-up is not fatal: the set heals on
	// the next boot and reads fail open until then.
	warmCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := identityRepo.Warm(warmCtx, userRepo); err != nil {
		logr.Sugar().Warnw("failed to warm identity set", "error", err)
	}
	cancel()

	hasher := password.NewHasher(cfg.Password.HashLength)
	metricsSvc := service.NewMetricsService()

	sessionSvc := service.NewSessionService(
		userRepo, denylistRepo, identityRepo,
		codec, policy, hasher, nil, logr, metricsSvc,
	)
	userSvc := service.NewUserService(userRepo, identityRepo, logr)

	sessionHandler := handler.NewSessionHandler(sessionSvc)
	userHandler := handler.NewUserHandler(userSvc)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "database unavailable"})
			return
		}
		if err := rdb.Ping(ctx).Err(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "redis unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(metricsSvc.Handler()))

	session := r.Group("/session")
	{
		session.POST("/register", sessionHandler.Register)
		session.POST("/login", sessionHandler.Login)
		session.DELETE("/logout", sessionHandler.Logout)
	}

	users := r.Group("/users", middleware.Session(sessionSvc))
	{
		users.GET("/me", userHandler.Me)
		users.DELETE("/me", userHandler.Delete)
	}

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}

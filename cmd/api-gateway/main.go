package main

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aakarshsak/ecom-price-tracker/internal/authz"
	"github.com/aakarshsak/ecom-price-tracker/internal/gateway"
	"github.com/aakarshsak/ecom-price-tracker/internal/middleware"
	"github.com/aakarshsak/ecom-price-tracker/internal/repository"
	"github.com/aakarshsak/ecom-price-tracker/internal/service"
	"github.com/aakarshsak/ecom-price-tracker/internal/token"
	"github.com/aakarshsak/ecom-price-tracker/pkg/cache"
	"github.com/aakarshsak/ecom-price-tracker/pkg/config"
	"github.com/aakarshsak/ecom-price-tracker/pkg/logger"
	corsmiddleware "github.com/aakarshsak/ecom-price-tracker/pkg/middleware/cors"
	reqidmiddleware "github.com/aakarshsak/ecom-price-tracker/pkg/middleware/requestid"
)

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

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	defer redisClient.Close()

	metrics := service.NewMetricsService()
	codec := token.NewCodec(cfg.JWT)
	blacklistRepo := repository.NewBlacklistRepository(redisClient, logr)
	authorizer := authz.NewAuthorizer(codec, blacklistRepo, metrics, cfg.Gateway.StoreTimeout, logr)

	proxy, err := gateway.NewProxy([]gateway.Route{
		{Prefix: cfg.APIPrefix + "/auth", Target: cfg.Gateway.AuthServiceURL},
		{Prefix: cfg.APIPrefix + "/roles", Target: cfg.Gateway.AuthServiceURL},
		{Prefix: cfg.APIPrefix + "/reports", Target: cfg.Gateway.AuthServiceURL},
		{Prefix: cfg.APIPrefix, Target: cfg.Gateway.UserServiceURL},
	}, logr)
	if err != nil {
		logr.Sugar().Fatalw("invalid gateway route table", "error", err)
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(middleware.Metrics(metrics))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/info", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"service": "api-gateway", "env": cfg.Env})
	})
	r.GET("/metrics", func(c *gin.Context) {
		metrics.Handler().ServeHTTP(c.Writer, c.Request)
	})

	r.Use(gateway.Filter(authorizer, cfg.APIPrefix))
	r.NoRoute(proxy.Handle)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("api gateway starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("gateway failed", "error", err)
	}
}

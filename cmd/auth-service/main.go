package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/aakarshsak/ecom-price-tracker/api/swagger"
	"github.com/aakarshsak/ecom-price-tracker/internal/authz"
	"github.com/aakarshsak/ecom-price-tracker/internal/client"
	"github.com/aakarshsak/ecom-price-tracker/internal/handler"
	"github.com/aakarshsak/ecom-price-tracker/internal/middleware"
	"github.com/aakarshsak/ecom-price-tracker/internal/models"
	"github.com/aakarshsak/ecom-price-tracker/internal/repository"
	"github.com/aakarshsak/ecom-price-tracker/internal/service"
	"github.com/aakarshsak/ecom-price-tracker/internal/token"
	"github.com/aakarshsak/ecom-price-tracker/pkg/cache"
	"github.com/aakarshsak/ecom-price-tracker/pkg/config"
	"github.com/aakarshsak/ecom-price-tracker/pkg/database"
	"github.com/aakarshsak/ecom-price-tracker/pkg/logger"
	corsmiddleware "github.com/aakarshsak/ecom-price-tracker/pkg/middleware/cors"
	reqidmiddleware "github.com/aakarshsak/ecom-price-tracker/pkg/middleware/requestid"
	"github.com/aakarshsak/ecom-price-tracker/pkg/password"
	"github.com/aakarshsak/ecom-price-tracker/pkg/storage"
)

// @title Trading Platform Auth Service
// @version 1.0.0
// @description Authentication, token lifecycle and role administration
// @BasePath /v1/api
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

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	defer redisClient.Close()

	validate := validator.New()
	codec := token.NewCodec(cfg.JWT)
	hasher := password.NewBcryptHasher(cfg.Password.BcryptCost)
	metrics := service.NewMetricsService()

	credRepo := repository.NewCredentialRepository(db)
	roleRepo := repository.NewRoleRepository(db)
	refreshRepo := repository.NewRefreshTokenRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	blacklistRepo := repository.NewBlacklistRepository(redisClient, logr)

	roleSvc := service.NewRoleService(roleRepo, auditRepo, validate, logr)

	seedCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := roleSvc.Seed(seedCtx); err != nil {
		cancel()
		logr.Sugar().Fatalw("role bootstrap failed", "error", err)
	}
	cancel()

	profileClient := client.NewProfileClient(cfg.Profile, logr)
	authSvc := service.NewAuthService(
		credRepo, refreshRepo, blacklistRepo, roleSvc, auditRepo, profileClient,
		hasher, codec, metrics, cfg.Lockout, validate, logr,
	)

	reportStore, err := storage.NewLocalStorage(cfg.Reports.StorageDir)
	if err != nil {
		logr.Sugar().Fatalw("failed to init report storage", "error", err)
	}
	signer := storage.NewSignedURLSigner(cfg.Reports.SignedURLSecret, cfg.Reports.SignedURLTTL)
	reportSvc := service.NewReportService(auditRepo, reportStore, signer, validate, logr)

	authorizer := authz.NewAuthorizer(codec, blacklistRepo, metrics, cfg.Gateway.StoreTimeout, logr)

	authHandler := handler.NewAuthHandler(authSvc)
	roleHandler := handler.NewRoleHandler(roleSvc)
	reportHandler := handler.NewReportHandler(reportSvc)
	metricsHandler := handler.NewMetricsHandler(metrics)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(middleware.Metrics(metrics))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/refresh", authHandler.Refresh)
	auth.POST("/forgot-password", authHandler.ForgotPassword)
	auth.POST("/reset-password", authHandler.ResetPassword)
	auth.POST("/verify-email", authHandler.VerifyEmail)

	authProtected := auth.Group("")
	authProtected.Use(middleware.Auth(authorizer))
	authProtected.POST("/logout", authHandler.Logout)
	authProtected.POST("/logout-all", authHandler.LogoutAll)
	authProtected.GET("/me", authHandler.Me)

	roles := api.Group("/roles")
	roles.Use(middleware.Auth(authorizer), middleware.RequirePermission(models.PermissionManageUsers))
	roles.GET("", roleHandler.List)
	roles.POST("/assign", roleHandler.Assign)
	roles.POST("/remove", roleHandler.Remove)

	reports := api.Group("/reports")
	reports.GET("/download", reportHandler.Download)
	reportsProtected := reports.Group("")
	reportsProtected.Use(middleware.Auth(authorizer), middleware.RequirePermission(models.PermissionViewReports))
	reportsProtected.POST("/security-activity", reportHandler.Generate)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("auth service starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}

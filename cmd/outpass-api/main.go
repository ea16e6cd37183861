package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/campusgate/outpass-api/api/swagger"
	"github.com/campusgate/outpass-api/internal/handler"
	"github.com/campusgate/outpass-api/internal/middleware"
	"github.com/campusgate/outpass-api/internal/models"
	"github.com/campusgate/outpass-api/internal/repository"
	"github.com/campusgate/outpass-api/internal/service"
	"github.com/campusgate/outpass-api/pkg/cache"
	"github.com/campusgate/outpass-api/pkg/config"
	"github.com/campusgate/outpass-api/pkg/database"
	"github.com/campusgate/outpass-api/pkg/logger"
	corsmiddleware "github.com/campusgate/outpass-api/pkg/middleware/cors"
	reqidmiddleware "github.com/campusgate/outpass-api/pkg/middleware/requestid"
	"github.com/campusgate/outpass-api/pkg/passtoken"
	"github.com/campusgate/outpass-api/pkg/storage"
)

// @title Campus Outpass API
// @version 1.0.0
// @description Outpass lifecycle and gate verification service
// @BasePath /api/v1
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer redisClient.Close() //nolint:errcheck

	validate := validator.New()

	userRepo := repository.NewUserRepository(db)
	outpassRepo := repository.NewOutpassRepository(db)
	settingsRepo := repository.NewSettingsRepository(db)

	metricsSvc := service.NewMetricsService()

	authSvc := service.NewAuthService(userRepo, validate, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
	})

	settingsSvc := service.NewSettingsService(settingsRepo, userRepo, logr)
	if err := settingsSvc.Reload(ctx); err != nil {
		logr.Warn("settings reload failed, using defaults", zap.Error(err))
	}

	notifier := service.NewRedisNotifier(redisClient, service.RedisNotifierConfig{
		Channel:    cfg.Notifications.Channel,
		Workers:    cfg.Notifications.Workers,
		MaxRetries: cfg.Notifications.MaxRetries,
	}, logr)
	notifier.Start(ctx)
	defer notifier.Stop()

	signer := passtoken.NewSigner(cfg.PassToken.Secret, cfg.PassToken.TTL)

	outpassSvc := service.NewOutpassService(outpassRepo, userRepo, signer, settingsSvc, notifier, userRepo, validate, logr,
		service.WithOutpassMetrics(metricsSvc))

	var exportSvc *service.ExportService
	if cfg.Exports.Enabled {
		local, err := storage.NewLocalStorage(cfg.Exports.StorageDir)
		if err != nil {
			logr.Fatal("failed to init export storage", zap.Error(err))
		}
		exportSigner := storage.NewSignedURLSigner(cfg.PassToken.Secret, 24*time.Hour)
		exportSvc = service.NewExportService(outpassRepo, userRepo, local, exportSigner,
			service.ExportConfig{APIPrefix: cfg.APIPrefix}, logr, nil, nil)
	}

	userSvc := service.NewUserService(userRepo, validate, logr)

	authHandler := handler.NewAuthHandler(authSvc)
	userHandler := handler.NewUserHandler(userSvc)
	outpassHandler := handler.NewOutpassHandler(outpassSvc)
	settingsHandler := handler.NewSettingsHandler(settingsSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
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
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)
		auth.POST("/logout", middleware.JWT(authSvc), authHandler.Logout)
		auth.POST("/change-password", middleware.JWT(authSvc), authHandler.ChangePassword)
		auth.GET("/me", middleware.JWT(authSvc), authHandler.Me)
	}

	outpasses := api.Group("/outpasses", middleware.JWT(authSvc))
	{
		outpasses.POST("", middleware.RequireRoles(models.RoleStudent), outpassHandler.Create)
		outpasses.GET("", outpassHandler.List)
		outpasses.GET("/:id", outpassHandler.Get)
		outpasses.POST("/:id/approve", middleware.RequireRoles(models.RoleWarden, models.RoleAdmin), outpassHandler.Approve)
		outpasses.POST("/:id/reject", middleware.RequireRoles(models.RoleWarden, models.RoleAdmin), outpassHandler.Reject)
		outpasses.POST("/:id/cancel", middleware.RequireRoles(models.RoleStudent), outpassHandler.Cancel)
		outpasses.POST("/:id/check-out", middleware.RequireRoles(models.RoleSecurity, models.RoleAdmin), outpassHandler.CheckOut)
		outpasses.POST("/:id/check-in", middleware.RequireRoles(models.RoleSecurity, models.RoleAdmin), outpassHandler.CheckIn)
		outpasses.POST("/scan", middleware.RequireRoles(models.RoleSecurity, models.RoleAdmin), outpassHandler.Scan)
		outpasses.POST("/sweep", middleware.RequireRoles(models.RoleAdmin), outpassHandler.Sweep)
	}

	if exportSvc != nil {
		exportHandler := handler.NewExportHandler(exportSvc)
		api.POST("/outpasses/export",
			middleware.JWT(authSvc),
			middleware.RequireRoles(models.RoleWarden, models.RoleAdmin),
			middleware.Audit(userRepo, "EXPORT", "outpass_register"),
			exportHandler.Generate)
		// Download links carry their own signed token, so no session is required.
		api.GET("/outpasses/export/:token", exportHandler.Download)
	}

	users := api.Group("/users", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin))
	{
		users.GET("", userHandler.List)
		users.POST("", userHandler.Create)
		users.GET("/:id", userHandler.Get)
		users.PUT("/:id", userHandler.Update)
		users.DELETE("/:id", userHandler.Delete)
	}

	settings := api.Group("/settings", middleware.JWT(authSvc), middleware.RequireRoles(models.RoleAdmin))
	{
		settings.GET("", settingsHandler.List)
		settings.PUT("/:key", settingsHandler.Update)
		settings.POST("/reload", settingsHandler.Reload)
	}

	if cfg.Sweep.Enabled {
		go runOverdueSweep(ctx, outpassSvc, cfg.Sweep.Interval, logr)
	}
	if exportSvc != nil {
		go runExportCleanup(ctx, exportSvc, logr)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logr.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logr.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Error("graceful shutdown failed", zap.Error(err))
	}
}

// runOverdueSweep periodically flags checked-out outpasses whose deadline has
// passed. Each tick is independent; a failed sweep is retried on the next one.
func runOverdueSweep(ctx context.Context, svc *service.OutpassService, interval time.Duration, logr *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			result, err := svc.SweepOverdue(ctx)
			if err != nil {
				logr.Error("overdue sweep failed", zap.Error(err))
				continue
			}
			if result.Flagged > 0 {
				logr.Info("overdue sweep flagged records", zap.Int("flagged", result.Flagged))
			}
		}
	}
}

func runExportCleanup(ctx context.Context, svc *service.ExportService, logr *zap.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := svc.Cleanup(0)
			if err != nil {
				logr.Warn("export cleanup failed", zap.Error(err))
				continue
			}
			if len(deleted) > 0 {
				logr.Info("expired exports removed", zap.Int("count", len(deleted)))
			}
		}
	}
}

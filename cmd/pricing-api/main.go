// Package main 是定价服务入口
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/dumeirei/marketplace-pricing/internal/common/cache"
	"github.com/dumeirei/marketplace-pricing/internal/common/config"
	"github.com/dumeirei/marketplace-pricing/internal/common/database"
	"github.com/dumeirei/marketplace-pricing/internal/common/logger"
	"github.com/dumeirei/marketplace-pricing/internal/common/metrics"
	"github.com/dumeirei/marketplace-pricing/internal/common/tracing"
	"github.com/dumeirei/marketplace-pricing/internal/models"
	"github.com/dumeirei/marketplace-pricing/internal/scheduler"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load(os.Getenv("PRICING_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(&cfg.Logger); err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err = run(ctx, cfg, logger.GetLogger())
	stop()
	if err != nil {
		logger.Error("service exited with error", zap.Error(err))
	}
	_ = logger.Sync()
	if err != nil {
		os.Exit(1)
	}
}

// run 启动依赖与 HTTP 服务，ctx 取消后按相反顺序关闭
func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	log.Info("starting marketplace pricing service",
		zap.String("version", version),
		zap.String("mode", cfg.Server.Mode),
	)

	db, err := database.Init(&cfg.Database)
	if err != nil {
		return err
	}
	defer func() {
		if err := database.Close(); err != nil {
			log.Error("close database", zap.Error(err))
		}
	}()
	if cfg.Database.AutoMigrate {
		if err := database.Migrate(db, models.AllModels()...); err != nil {
			return err
		}
	}

	// Redis 只承担币种缓存、核销锁与限流，不可用时降级运行
	var redisClient *redis.Client
	if client, err := cache.Init(&cfg.Redis); err != nil {
		log.Warn("redis unavailable, running without cache and redemption lock", zap.Error(err))
	} else {
		redisClient = client
		defer cache.Close()
	}

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.Init(cfg.Metrics.Namespace)
	}
	tracer, err := tracing.Init(tracing.FromConfig(&cfg.Tracing, cfg.Server.Mode))
	if err != nil {
		log.Warn("tracing disabled", zap.Error(err))
	} else {
		defer func() {
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = tracer.Shutdown(flushCtx)
		}()
	}

	gin.SetMode(ginMode(cfg))
	engine := gin.New()
	app := setupRouter(engine, cfg, log, db, redisClient, m)

	if err := app.settings.Refresh(ctx); err != nil {
		log.Warn("initial settings load failed, using config defaults", zap.Error(err))
	}

	sched := scheduler.NewScheduler(m)
	scheduler.RegisterTasks(sched, scheduler.NewTaskHandler(app.settings, app.rateService, app.markupService), &cfg.Pricing)
	sched.Start(ctx)
	defer sched.Stop()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	serveErr := make(chan error, 1)
	go func() {
		log.Info("http server listening", zap.String("addr", srv.Addr))
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

func ginMode(cfg *config.Config) string {
	switch {
	case cfg.IsRelease():
		return gin.ReleaseMode
	case cfg.IsDebug():
		return gin.DebugMode
	}
	return gin.TestMode
}

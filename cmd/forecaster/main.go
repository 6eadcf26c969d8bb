package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"revpace/internal/cache"
	"revpace/internal/config"
	cronrunner "revpace/internal/cron"
	"revpace/internal/db"
	"revpace/internal/ensemble"
	"revpace/internal/handler"
	"revpace/internal/logger"
	"revpace/internal/pace"
	"revpace/internal/pickup"
	gormrepository "revpace/internal/repository/gorm"
	"revpace/internal/service"

	_ "revpace/docs"
)

func main() {
	cfgPath := os.Getenv("RM_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/config.yaml"
	}

	envOnly := false
	if envOnlyRaw := os.Getenv("RM_ENV_ONLY"); envOnlyRaw != "" {
		envOnly = strings.EqualFold(envOnlyRaw, "true") || envOnlyRaw == "1"
	}

	cfg, err := config.Load(cfgPath, envOnly)
	if err != nil {
		panic(err)
	}

	logger, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	dbConn, err := db.Open(cfg.DB)
	if err != nil {
		logger.Fatal("db open failed", zap.Error(err))
	}
	defer db.Close(dbConn)

	if err := db.SetTimezone(dbConn, cfg.DB.Timezone); err != nil {
		logger.Warn("failed to set timezone", zap.Error(err))
	}
	if err := db.AutoMigrate(dbConn); err != nil {
		logger.Fatal("auto-migrate failed", zap.Error(err))
	}

	store := gormrepository.New(dbConn.Gorm)
	settingsSvc := &service.SystemSettingsService{Repo: store}
	if err := settingsSvc.EnsureDefaultSwitches(context.Background()); err != nil {
		logger.Warn("init default system switches failed", zap.Error(err))
	}

	overviewCache, err := cache.New(cfg.Redis.URL, cfg.Redis.TTL)
	if err != nil {
		logger.Warn("redis cache disabled", zap.Error(err))
		overviewCache = nil
	}
	if overviewCache != nil {
		defer overviewCache.Close()
	}

	epoch := parseEpoch(cfg.Pace.LedgerEpoch)

	snapshotSvc := &pace.SnapshotService{
		Repo:         store,
		Logger:       logger,
		TrailingDays: cfg.Pace.TrailingDays,
	}
	backfillSvc := &pace.BackfillService{
		Repo:   store,
		Logger: logger,
		Epoch:  epoch,
	}
	rateStatsSvc := &pace.RateStatsService{
		Repo:        store,
		Logger:      logger,
		HorizonDays: cfg.Pace.HorizonDays,
	}
	forecaster := &pickup.Forecaster{
		Repo:             store,
		Logger:           logger,
		Epoch:            epoch,
		MaxListedSamples: cfg.Pickup.MaxListedSamples,
	}
	weighting := &ensemble.Weighting{
		Repo:        store,
		MAPEFloor:   cfg.Ensemble.MapeFloor,
		HistoryDays: cfg.Ensemble.HistoryDays,
	}
	var blender *ensemble.Blender
	if cfg.Ensemble.BlendEnabled {
		blender = &ensemble.Blender{
			Repo:            store,
			EnsembleWeight:  cfg.Ensemble.EnsembleWeight,
			ReferenceWeight: cfg.Ensemble.ReferenceWeight,
		}
	}
	engine := &ensemble.Engine{
		Repo:   store,
		Logger: logger,
		Producers: []ensemble.ForecastProducer{
			&ensemble.PickupProducer{Forecaster: forecaster},
			&ensemble.PriorYearProducer{Repo: store},
			&ensemble.PaceTrendProducer{Repo: store, Epoch: epoch},
		},
		Weighting: weighting,
		Blender:   blender,
	}
	backtester := &ensemble.BacktestEngine{
		Repo:       store,
		Logger:     logger,
		Forecaster: forecaster,
		Engine:     engine,
		Epoch:      epoch,
	}
	actualsSvc := &service.ActualsService{
		Repo:   store,
		Logger: logger,
		Flags:  settingsSvc,
	}

	if strings.EqualFold(cfg.App.Env, "dev") {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())

	healthHandler := &handler.HealthHandler{DB: dbConn.Gorm, Cache: overviewCache}
	healthHandler.Register(router)

	streamHub := handler.NewStreamHub(logger)
	streamHub.Register(router)

	paceHandler := &handler.PaceHandler{
		Repo:       store,
		Forecaster: forecaster,
		Cache:      overviewCache,
		Flags:      settingsSvc,
	}
	paceHandler.Register(router)
	forecastHandler := &handler.ForecastHandler{
		Repo:   store,
		Engine: engine,
		Stream: streamHub,
	}
	forecastHandler.Register(router)
	backtestHandler := &handler.BacktestHandler{
		Repo:   store,
		Engine: backtester,
	}
	backtestHandler.Register(router)
	settingsHandler := &handler.SettingsHandler{
		Repo:     store,
		Settings: settingsSvc,
	}
	settingsHandler.Register(router)

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cronRunner := cronrunner.New(logger, ctx)
	if cfg.Cron.Enabled {
		_, err = cronRunner.Add(cfg.Cron.PaceSnapshot, func(ctx context.Context) {
			if !settingsSvc.IsEnabled(ctx, service.FeaturePaceSnapshot, true) {
				return
			}
			result, err := snapshotSvc.RunOnce(ctx)
			if err != nil {
				logger.Warn("cron pace snapshot failed", zap.Error(err))
				return
			}
			overviewCache.Invalidate(ctx, handler.OverviewCachePrefix)
			logger.Info("cron pace snapshot ok",
				zap.Int("dates", result.Dates),
				zap.Int("rows", result.Rows),
				zap.Int("errors", result.Errors),
			)
		})
		if err != nil {
			logger.Warn("cron register pace snapshot failed", zap.Error(err))
		}

		repairDays := cfg.Backfill.RepairDays
		resume := cfg.Backfill.Resume
		_, err = cronRunner.Add(cfg.Cron.BackfillRepair, func(ctx context.Context) {
			if !settingsSvc.IsEnabled(ctx, service.FeaturePaceBackfill, true) {
				return
			}
			to := time.Now().UTC()
			result, err := backfillSvc.Run(ctx, pace.BackfillOptions{
				From:   to.AddDate(0, 0, -repairDays),
				To:     to,
				Resume: resume,
				Repair: true,
			})
			if err != nil {
				logger.Warn("cron backfill repair failed", zap.Error(err))
				return
			}
			logger.Info("cron backfill repair ok",
				zap.Int("dates", result.Dates),
				zap.Int("rows", result.Rows),
				zap.Int("errors", result.Errors),
			)
		})
		if err != nil {
			logger.Warn("cron register backfill repair failed", zap.Error(err))
		}

		_, err = cronRunner.Add(cfg.Cron.RateStats, func(ctx context.Context) {
			if !settingsSvc.IsEnabled(ctx, service.FeatureRateStats, true) {
				return
			}
			result, err := rateStatsSvc.RunOnce(ctx)
			if err != nil {
				logger.Warn("cron rate stats failed", zap.Error(err))
				return
			}
			logger.Info("cron rate stats ok",
				zap.Int("dates", result.Dates),
				zap.Int("rows", result.Rows),
				zap.Int("errors", result.Errors),
			)
		})
		if err != nil {
			logger.Warn("cron register rate stats failed", zap.Error(err))
		}

		_, err = cronRunner.Add(cfg.Cron.Actuals, func(ctx context.Context) {
			if err := actualsSvc.RunOnce(ctx); err != nil {
				logger.Warn("cron actuals failed", zap.Error(err))
			}
		})
		if err != nil {
			logger.Warn("cron register actuals failed", zap.Error(err))
		}

		cronRunner.Start()
		defer cronRunner.Stop()
	} else {
		go func() {
			if err := actualsSvc.Run(ctx, 6*time.Hour); err != nil && !errors.Is(err, context.Canceled) {
				logger.Warn("actuals service stopped", zap.Error(err))
			}
		}()
	}

	errCh := make(chan error, 2)

	go func() {
		logger.Info("http server starting", zap.String("addr", cfg.Server.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown requested")
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}

func parseEpoch(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	epoch, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}
	}
	return epoch.UTC()
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type,Authorization")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}

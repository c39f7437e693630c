package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Artufe/bravo-tango-bravo/internal/app"
	"github.com/Artufe/bravo-tango-bravo/internal/auth"
	"github.com/Artufe/bravo-tango-bravo/internal/cache"
	"github.com/Artufe/bravo-tango-bravo/internal/config"
	"github.com/Artufe/bravo-tango-bravo/internal/database"
	"github.com/Artufe/bravo-tango-bravo/internal/handler"
	"github.com/Artufe/bravo-tango-bravo/internal/logger"
	middlewarepkg "github.com/Artufe/bravo-tango-bravo/internal/middleware"
	"github.com/Artufe/bravo-tango-bravo/internal/publish"
	"github.com/Artufe/bravo-tango-bravo/internal/repository"
	"github.com/Artufe/bravo-tango-bravo/internal/router"
	"github.com/Artufe/bravo-tango-bravo/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Must("info", "json").Fatal("failed to load config", zap.Error(err))
	}

	log := logger.Must(cfg.LogLevel, cfg.LogFormat)
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal("failed to connect database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool); err != nil {
		log.Fatal("failed to migrate database", zap.Error(err))
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = cache.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			log.Fatal("failed to connect redis", zap.Error(err))
		}
		defer redisClient.Close()
	} else {
		log.Warn("REDIS_URL not set, email verdicts will not be cached")
	}

	missingSites, err := app.OpenMissingSites(cfg.Enrich.MissingSitesFile)
	if err != nil {
		log.Fatal("failed to open missing sites file", zap.Error(err))
	}
	if missingSites != nil {
		defer missingSites.Close()
	}

	leadsRepo := repository.NewPGXLeadsRepository(pool)

	opts := app.Options{Store: leadsRepo}
	if redisClient != nil {
		opts.Redis = redisClient
	}
	if missingSites != nil {
		opts.MissingSites = missingSites
	}
	pipeline, err := app.NewPipeline(cfg, log, opts)
	if err != nil {
		log.Fatal("failed to build pipeline", zap.Error(err))
	}

	queriesOpts := []service.QueriesOption{
		service.WithPhoneRegion(cfg.Enrich.PhoneRegion),
		service.WithLogger(log.Named("queries")),
	}
	if publisher := publish.New(nil, cfg.PublishURL); publisher.Enabled() {
		queriesOpts = append(queriesOpts, service.WithPublisher(publisher))
	}
	queriesService := service.NewQueriesService(pipeline, leadsRepo, queriesOpts...)

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middlewarepkg.RequestID())
	e.Use(middlewarepkg.Logging(log.Named("http")))
	e.Use(echoMiddleware.Recover())

	router.Register(e, cfg, jwtManager, router.Handlers{
		Queries:     handler.NewQueriesHandler(queriesService),
		AdminUpload: handler.NewAdminUploadHandler(queriesService),
	})

	serverErr := make(chan error, 1)
	go func() {
		log.Info("api listening", zap.String("port", cfg.Port))
		serverErr <- e.Start(":" + cfg.Port)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		log.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
		return
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Warn("graceful shutdown failed", zap.Error(err))
	}
	if err := queriesService.Shutdown(shutdownCtx); err != nil {
		log.Warn("running queries did not stop in time", zap.Error(err))
	}
}

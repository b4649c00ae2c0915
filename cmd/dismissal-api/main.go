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
	"go.uber.org/zap"

	"github.com/noah-isme/sma-dismissal-api/internal/handler"
	"github.com/noah-isme/sma-dismissal-api/internal/realtime"
	"github.com/noah-isme/sma-dismissal-api/internal/repository"
	"github.com/noah-isme/sma-dismissal-api/internal/service"
	"github.com/noah-isme/sma-dismissal-api/pkg/cache"
	"github.com/noah-isme/sma-dismissal-api/pkg/config"
	"github.com/noah-isme/sma-dismissal-api/pkg/database"
	"github.com/noah-isme/sma-dismissal-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/sma-dismissal-api/pkg/middleware/cors"
)

// @title School Dismissal API
// @version 1.0.0
// @description Dismissal queue, check-ins and realtime pickup updates
// @BasePath /
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

const shutdownTimeout = 15 * time.Second

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

	if err := run(cfg, logr); err != nil {
		logr.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logr *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(ctx, cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, caching and event stream disabled", zap.Error(err))
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	validate := validator.New()
	metrics := service.NewMetricsService()

	schoolRepo := repository.NewSchoolRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	queueRepo := repository.NewQueueRepository(db)
	rosterRepo := repository.NewRosterRepository(db)
	activityRepo := repository.NewActivityRepository(db)
	changeRequestRepo := repository.NewChangeRequestRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, logr)
	streamRepo := repository.NewEventStreamRepository(redisClient, cfg.Events.Stream, cfg.Events.StreamMaxLen)

	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Dismissal.StatsCacheTTL, logr, redisClient != nil)
	hub := realtime.NewHub(realtime.HubConfig{
		ClientBuffer: cfg.Realtime.ClientBuffer,
		WriteTimeout: cfg.Realtime.WriteTimeout,
	}, logr.Named("realtime"), metrics)
	dispatcher := service.NewEventDispatcher(streamRepo, service.EventDispatcherConfig{
		Workers: cfg.Events.Workers,
		Retries: cfg.Events.Retries,
	}, metrics, logr.Named("events"))
	broadcaster := service.NewBroadcaster(hub, dispatcher, logr)

	authSvc := service.NewAuthService(validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	schools := service.NewSchoolDirectory(schoolRepo, cacheSvc, cfg.Dismissal.SchoolCacheTTL, logr)
	activity := service.NewActivityService(activityRepo, cfg.Dismissal.ActivityLimit, logr)
	sessions := service.NewSessionService(sessionRepo, schools, queueRepo, activity, broadcaster, metrics, logr)
	queue := service.NewQueueService(queueRepo, sessionRepo, sessions, rosterRepo, activity, cacheSvc, broadcaster, validate, metrics, logr,
		service.QueueConfig{DelayOffset: cfg.Dismissal.DelayOffset, StatsCacheTTL: cfg.Dismissal.StatsCacheTTL})
	checkIns := service.NewCheckInService(rosterRepo, schools, sessions, queue, validate, metrics, logr)
	changeRequests := service.NewChangeRequestService(changeRequestRepo, rosterRepo, schools, sessions, broadcaster, validate, logr)
	exports := service.NewExportService(sessions, queueRepo, validate, logr)

	dispatcher.Start(ctx)
	defer dispatcher.Stop()
	defer hub.Close()

	if cfg.Scheduler.Enabled {
		scheduler := service.NewDismissalScheduler(schools, sessions, broadcaster, service.SchedulerConfig{
			Interval: cfg.Scheduler.Interval,
			Timeout:  cfg.Scheduler.Timeout,
		}, metrics, logr.Named("scheduler"))
		scheduler.Start(ctx)
		defer scheduler.Stop()
	}

	wsOrigins := cfg.Realtime.AllowedOrigins
	if len(wsOrigins) == 0 {
		wsOrigins = cfg.CORS.AllowedOrigins
	}
	router := newRouter(cfg, logr, authSvc, metrics, handlers{
		sessions:       handler.NewSessionHandler(sessions, exports),
		queue:          handler.NewQueueHandler(queue),
		checkIns:       handler.NewCheckInHandler(checkIns),
		changeRequests: handler.NewChangeRequestHandler(changeRequests),
		realtime:       handler.NewRealtimeHandler(hub, corsmiddleware.NewPolicy(wsOrigins).CheckOrigin, logr.Named("realtime")),
		metrics: handler.NewMetricsHandler(metrics.Handler(),
			handler.HealthCheck{Name: "postgres", Pinger: db},
			handler.HealthCheck{Name: "redis", Pinger: handler.PingFunc(cacheRepo.Ping)},
		),
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

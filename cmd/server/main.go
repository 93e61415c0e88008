package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/erzhanbek/hooksched/config"
	"github.com/erzhanbek/hooksched/internal/health"
	"github.com/erzhanbek/hooksched/internal/infrastructure/postgres"
	ctxlog "github.com/erzhanbek/hooksched/internal/log"
	"github.com/erzhanbek/hooksched/internal/metrics"
	"github.com/erzhanbek/hooksched/internal/scheduler"
	httptransport "github.com/erzhanbek/hooksched/internal/transport/http"
	"github.com/erzhanbek/hooksched/internal/transport/http/handler"
	"github.com/erzhanbek/hooksched/internal/usecase"
	"github.com/gin-gonic/gin"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := newLogger(cfg.Env, cfg.SlogLevel())

	if cfg.Env != "local" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		stop()
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	metrics.Register()
	checker := health.NewChecker(pool, logger, prometheus.DefaultRegisterer)

	jobRepo := postgres.NewJobRepository(pool)

	engine := scheduler.New(jobRepo, logger, scheduler.Options{
		MaxConcurrency: cfg.MaxConcurrency,
		HTTPTimeout:    time.Duration(cfg.HTTPTimeoutSec) * time.Second,
		RetryBase:      time.Duration(cfg.RetryBaseMS) * time.Millisecond,
		MaxTimerWait:   cfg.MaxTimerWait,
	})
	// re-arm everything that survived the last shutdown
	if err := engine.Start(ctx); err != nil {
		stop()
		log.Fatalf("scheduler recovery: %v", err)
	}

	jobUsecase := usecase.NewJobUsecase(jobRepo, engine)
	jobHandler := handler.NewJobHandler(jobUsecase, logger)

	srv := http.Server{
		Addr:    ":" + cfg.Port,
		Handler: httptransport.NewRouter(logger, jobHandler),
	}

	metricsSrv := metrics.NewServer(":"+cfg.MetricsPort, checker)

	go func() {
		logger.Info("server started", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	go func() {
		logger.Info("metrics server started", "port", cfg.MetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "error", err)
		}
	}()

	<-ctx.Done()
	stop()
	logger.Info("shutting down...")

	engine.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", "error", err)
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown", "error", err)
	}
}

func newLogger(env string, level slog.Level) *slog.Logger {
	var inner slog.Handler
	if env == "local" {
		inner = tint.NewHandler(os.Stdout, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		})
	} else {
		inner = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}
	return slog.New(ctxlog.NewContextHandler(inner))
}

// Command server runs the room backend: HTTP API, batching scheduler, and
// the generation pipeline against the configured reasoning service.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	redis "github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/vibedeux/go-room-backend/internal/bus"
	"github.com/vibedeux/go-room-backend/internal/config"
	httpapi "github.com/vibedeux/go-room-backend/internal/http"
	"github.com/vibedeux/go-room-backend/internal/observability"
	"github.com/vibedeux/go-room-backend/internal/pipeline"
	"github.com/vibedeux/go-room-backend/internal/platform"
	"github.com/vibedeux/go-room-backend/internal/reasoning"
	"github.com/vibedeux/go-room-backend/internal/repo"
	"github.com/vibedeux/go-room-backend/internal/scheduler"
	"github.com/vibedeux/go-room-backend/internal/sysutil"
)

// version is set at build time via -ldflags "-X main.version=...".
var version = "dev"

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.MustLoad()

	// Logging
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	sysutil.SetLogLevel(cfg.LogLevel)
	logger := log.With().Str("service", cfg.OTEL.ServiceName).Logger()

	// Storage
	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database")
	}
	if err := repo.AutoMigrate(db); err != nil {
		logger.Fatal().Err(err).Msg("migrate database")
	}

	// Tracing
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if cfg.OTEL.Enabled {
		shutdown, err := observability.SetupOTel(ctx, cfg.OTEL, version)
		if err != nil {
			logger.Fatal().Err(err).Msg("setup tracing")
		}
		defer func() {
			c, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(c); err != nil {
				logger.Warn().Err(err).Msg("tracer shutdown")
			}
		}()
	}

	// Status bus
	var statusBus bus.Bus = bus.Nop{}
	if cfg.Redis.Enabled {
		rc := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rc.Ping(ctx).Err(); err != nil {
			logger.Fatal().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis ping")
		}
		defer rc.Close()
		statusBus = bus.NewRedis(rc, logger)
	}

	// Generation pipeline: local synthesis by default, the external
	// platform when configured.
	var cycle interface {
		Run(ctx context.Context, roomID string) error
	}
	if cfg.Platform.Enabled {
		pc := platform.NewHTTPClient(platform.Config{
			BaseURL: cfg.Platform.BaseURL,
			APIKey:  cfg.Platform.APIKey,
		})
		cycle = pipeline.NewPlatformCycle(db, pc, statusBus, cfg.BatchWindow, cfg.CommandMinSupport, logger)
	} else {
		rc := reasoning.NewHTTPClient(reasoning.Config{
			BaseURL: cfg.Reasoning.BaseURL,
			APIKey:  cfg.Reasoning.APIKey,
			Model:   cfg.Reasoning.Model,
		}, reasoning.WithTimeout(cfg.Reasoning.Timeout))

		analyzer := pipeline.NewAnalyzer(db, rc, cfg.AnalyzerLookback, cfg.MaxEventsPerCycle, logger)
		planner := pipeline.NewPlanner(db, rc, analyzer, logger)
		builder := pipeline.NewBuilder(db, rc, logger)
		cycle = pipeline.NewRunner(planner, builder, statusBus, logger)
	}

	// Batching scheduler drives cycles from prompt activity.
	sched := scheduler.New(cfg.BatchWindow, cfg.BatchEarlyCount, nil, func(ctx context.Context, roomID string) {
		if err := cycle.Run(ctx, roomID); err != nil {
			logger.Error().Err(err).Str("room_id", roomID).Msg("scheduled cycle failed")
		}
	}, logger)

	// HTTP
	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, db, httpapi.Deps{
		Cycle:   cycle,
		Notify:  sched.Notify,
		Running: sched.Running,
		Log:     logger,
	}, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Str("version", version).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	sc, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(sc); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
	logger.Info().Msg("server stopped")
}

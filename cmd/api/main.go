package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/crimestat/crimestat/internal/adapters/http"
	natsadapter "github.com/crimestat/crimestat/internal/adapters/nats"
	"github.com/crimestat/crimestat/internal/adapters/police"
	"github.com/crimestat/crimestat/internal/adapters/postgres"
	temporaladapter "github.com/crimestat/crimestat/internal/adapters/temporal"
	"github.com/crimestat/crimestat/internal/adapters/valkey"
	"github.com/crimestat/crimestat/internal/core/drawing"
	"github.com/crimestat/crimestat/internal/core/ports"
	"github.com/crimestat/crimestat/internal/core/usecases"
	"github.com/crimestat/crimestat/internal/pkg/config"
	"github.com/crimestat/crimestat/internal/pkg/logging"
	"github.com/crimestat/crimestat/internal/pkg/metrics"
	"github.com/crimestat/crimestat/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("crimestat-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logging.Setup("crimestat-api", cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.OTLPEndpoint)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	deps := &http.Dependencies{}

	// Database (query log)
	var queryLog *usecases.QueryLogService
	if cfg.Database.Enabled {
		db, err := postgres.New(ctx, cfg.Database.DSN())
		if err != nil {
			slog.Warn("database unavailable, query log disabled", "error", err)
		} else {
			defer db.Close()
			deps.DB = db
			queryLog = usecases.NewQueryLogService(postgres.NewQueryLogRepo(db))
			go reportPoolStats(ctx, db)
		}
	}

	// Cache
	var cache ports.CacheService
	if cfg.Valkey.Enabled {
		vc, err := valkey.New(cfg.Valkey.Addr, valkey.DefaultPrefix)
		if err != nil {
			slog.Warn("valkey unavailable", "error", err)
		} else {
			defer vc.Close()
			cache = vc
			deps.Cache = vc
		}
	}

	// NATS: fetch outcomes on JetStream, render events for WebSocket relays
	var (
		publisher ports.EventPublisher
		surface   ports.MapSurface
	)
	if cfg.NATS.Enabled {
		pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
		if err != nil {
			slog.Warn("nats unavailable", "error", err)
		} else {
			defer pub.Close()
			publisher = pub
			surface = pub
		}

		natsConn, err := natsadapter.RawConn(cfg.NATS.URL)
		if err != nil {
			slog.Warn("nats ws conn unavailable", "error", err)
		} else {
			defer natsConn.Close()
			deps.NATS = natsConn
		}
	}

	// Temporal
	var runner ports.TrendRunner
	if cfg.Temporal.Enabled {
		r, err := temporaladapter.Dial(cfg.Temporal.HostPort, cfg.Temporal.Namespace, cfg.Temporal.TaskQueue)
		if err != nil {
			slog.Warn("temporal unavailable, trends disabled", "error", err)
		} else {
			defer r.Close()
			runner = r
		}
	}

	// Use cases
	source := police.New(police.Options{
		BaseURL:   cfg.Police.BaseURL,
		Timeout:   cfg.Police.Timeout,
		Rate:      cfg.Police.Rate,
		Burst:     cfg.Police.Burst,
		UserAgent: cfg.Police.UserAgent,
	})
	crimes := usecases.NewCrimeService(source, cache, publisher, cfg.Police.CacheTTL)

	deps.Maps = usecases.NewMapService(crimes, surface, usecases.MapConfig{
		Drawing:      drawing.Config{CloseMeters: cfg.Map.CloseMeters, ClosePixels: cfg.Map.ClosePixels},
		DismissAfter: cfg.Map.DismissAfter,
		HeatRadius:   cfg.Map.HeatRadius,
		DefaultMonth: cfg.Map.DefaultMonth,
		IdleTTL:      cfg.Map.IdleTTL,
	})
	go deps.Maps.RunSweeper(ctx, time.Minute)
	deps.Statistics = usecases.NewStatisticsService(crimes)
	deps.Trends = usecases.NewTrendService(crimes, runner)
	deps.QueryLog = queryLog

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    1024 * 1024, // 1 MB max request body
		AppName:      "CrimeStat API",
	})
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "http://localhost:3000, http://localhost:5173",
		AllowMethods:     "GET,POST,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, If-None-Match",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	// Give in-flight requests up to 10s to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	// Let background fetches land before the publisher closes.
	deps.Maps.Wait()
	slog.Info("server stopped")
}

// reportPoolStats refreshes the DB pool gauges until ctx ends.
func reportPoolStats(ctx context.Context, db *postgres.DB) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		metrics.UpdateDBPoolMetrics(db.Stat())
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}

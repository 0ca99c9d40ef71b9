package main

import (
	"context"
	"log"
	"log/slog"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/worker"

	"github.com/crimestat/crimestat/internal/adapters/police"
	temporaladapter "github.com/crimestat/crimestat/internal/adapters/temporal"
	"github.com/crimestat/crimestat/internal/adapters/valkey"
	"github.com/crimestat/crimestat/internal/core/ports"
	"github.com/crimestat/crimestat/internal/core/usecases"
	"github.com/crimestat/crimestat/internal/pkg/config"
	"github.com/crimestat/crimestat/internal/pkg/logging"
	"github.com/crimestat/crimestat/internal/pkg/telemetry"
	"github.com/crimestat/crimestat/internal/workflows"
)

// trendworker runs MonthlyTrendWorkflow and its activities.
func main() {
	cfg, err := config.Load("crimestat-trendworker")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup("crimestat-trendworker", cfg.Log.Level, cfg.Log.Format)

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(context.Background(), cfg.Telemetry.ServiceName, cfg.Telemetry.OTLPEndpoint)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	runner, err := temporaladapter.Dial(cfg.Temporal.HostPort, cfg.Temporal.Namespace, cfg.Temporal.TaskQueue)
	if err != nil {
		log.Fatalf("temporal: %v", err)
	}
	defer runner.Close()

	// The worker shares the API's response cache so a trend warms it.
	var cache ports.CacheService
	if cfg.Valkey.Enabled {
		vc, err := valkey.New(cfg.Valkey.Addr, valkey.DefaultPrefix)
		if err != nil {
			slog.Warn("valkey unavailable", "error", err)
		} else {
			defer vc.Close()
			cache = vc
		}
	}

	source := police.New(police.Options{
		BaseURL:   cfg.Police.BaseURL,
		Timeout:   cfg.Police.Timeout,
		Rate:      cfg.Police.Rate,
		Burst:     cfg.Police.Burst,
		UserAgent: cfg.Police.UserAgent,
	})
	crimes := usecases.NewCrimeService(source, cache, nil, cfg.Police.CacheTTL)

	w := worker.New(runner.Client(), cfg.Temporal.TaskQueue, worker.Options{})
	w.RegisterWorkflow(workflows.MonthlyTrendWorkflow)
	w.RegisterActivityWithOptions(
		(&workflows.TrendActivities{Trends: usecases.NewTrendService(crimes, nil)}).SummarizeMonth,
		activity.RegisterOptions{Name: workflows.ActivitySummarizeMonth},
	)

	slog.Info("trend worker started", "task_queue", cfg.Temporal.TaskQueue)
	if err := w.Run(worker.InterruptCh()); err != nil {
		log.Fatalf("worker: %v", err)
	}
}

package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	natsadapter "github.com/crimestat/crimestat/internal/adapters/nats"
	"github.com/crimestat/crimestat/internal/adapters/postgres"
	"github.com/crimestat/crimestat/internal/core/ports"
	"github.com/crimestat/crimestat/internal/core/usecases"
	"github.com/crimestat/crimestat/internal/pkg/config"
	"github.com/crimestat/crimestat/internal/pkg/logging"
	"github.com/crimestat/crimestat/internal/pkg/telemetry"
)

// recorder consumes fetch outcomes from JetStream and appends them to the
// query log.
func main() {
	cfg, err := config.Load("crimestat-recorder")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup("crimestat-recorder", cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.OTLPEndpoint)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	sub, err := natsadapter.NewSubscriber(cfg.NATS.URL)
	if err != nil {
		log.Fatalf("nats: %v", err)
	}
	defer sub.Close()

	svc := usecases.NewQueryLogService(postgres.NewQueryLogRepo(db))
	err = sub.SubscribeFetchOutcomes(ctx, func(ctx context.Context, o *ports.FetchOutcome) error {
		return svc.Record(ctx, o)
	})
	if err != nil {
		log.Fatalf("subscribe: %v", err)
	}

	slog.Info("recorder started", "durable", natsadapter.RecorderDurable)
	<-ctx.Done()
	slog.Info("recorder stopped")
}

package http

import (
	"context"

	"github.com/nats-io/nats.go"

	"github.com/crimestat/crimestat/internal/core/usecases"
)

// Pinger is a backing service the readiness check can probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Maps       *usecases.MapService
	Statistics *usecases.StatisticsService
	Trends     *usecases.TrendService
	QueryLog   *usecases.QueryLogService
	NATS       *nats.Conn
	DB         Pinger
	Cache      Pinger
}

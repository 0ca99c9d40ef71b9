package ports

import (
	"context"

	"github.com/crimestat/crimestat/internal/core/domain"
)

// FetchOutcome is published once per upstream fetch.
type FetchOutcome struct {
	Month      domain.Month `json:"month"`
	Poly       string       `json:"poly"`
	Status     string       `json:"status"`
	Records    int          `json:"records"`
	DurationMs int64        `json:"duration_ms"`
	Cached     bool         `json:"cached"`
}

// RenderEvent is a change to a session's map surface.
type RenderEvent struct {
	Kind    string `json:"kind"`
	Session string `json:"session"`
	Payload any    `json:"payload,omitempty"`
}

// Render event kinds.
const (
	RenderDrawing = "drawing"
	RenderTooltip = "tooltip"
	RenderMarkers = "markers"
	RenderHeat    = "heat"
	RenderStatus  = "status"
)

// MapSurface receives every visible change of a map session.
type MapSurface interface {
	Render(ctx context.Context, ev RenderEvent) error
}

// EventPublisher publishes domain events to a message broker.
type EventPublisher interface {
	PublishFetchOutcome(ctx context.Context, o *FetchOutcome) error
}

// EventSubscriber subscribes to domain events from a message broker.
type EventSubscriber interface {
	SubscribeFetchOutcomes(ctx context.Context, handler func(ctx context.Context, o *FetchOutcome) error) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}

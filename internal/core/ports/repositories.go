package ports

import (
	"context"

	"github.com/crimestat/crimestat/internal/core/domain"
)

// CrimeSource fetches street-level crimes for a region and month.
// Implementations return errors wrapping domain.ErrPayloadTooLarge,
// domain.ErrMalformedResponse or domain.ErrNetworkFailure.
type CrimeSource interface {
	FetchCrimes(ctx context.Context, q domain.RegionQuery) ([]domain.CrimeRecord, error)
}

// QueryLogRepository persists fetch outcomes.
type QueryLogRepository interface {
	Insert(ctx context.Context, entry *domain.QueryLogEntry) error
	Recent(ctx context.Context, limit, offset int) ([]domain.QueryLogEntry, error)
}

// TrendRunner starts and inspects yearly trend computations.
type TrendRunner interface {
	Start(ctx context.Context, poly string) (string, error)
	Result(ctx context.Context, id string) (*domain.TrendResult, bool, error)
}

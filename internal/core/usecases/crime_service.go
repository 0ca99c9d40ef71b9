package usecases

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/crimestat/crimestat/internal/core/domain"
	"github.com/crimestat/crimestat/internal/core/fetch"
	"github.com/crimestat/crimestat/internal/core/ports"
	"github.com/crimestat/crimestat/internal/pkg/metrics"
)

// DefaultCrimeCacheTTL is how long a successful response is reused, in seconds.
// Published street crime months rarely change.
const DefaultCrimeCacheTTL = 3600

// PublishTimeout bounds how long a fetch waits for its outcome to be acked.
const PublishTimeout = 5 * time.Second

// CrimeService fetches crimes through the cache and reports every outcome.
// It satisfies ports.CrimeSource, so callers can use it in place of the raw client.
type CrimeService struct {
	source    ports.CrimeSource
	cache     ports.CacheService
	publisher ports.EventPublisher
	ttl       int
}

// NewCrimeService creates a new CrimeService. cache and publisher may be nil.
func NewCrimeService(source ports.CrimeSource, cache ports.CacheService, publisher ports.EventPublisher, ttlSeconds int) *CrimeService {
	if ttlSeconds <= 0 {
		ttlSeconds = DefaultCrimeCacheTTL
	}
	return &CrimeService{source: source, cache: cache, publisher: publisher, ttl: ttlSeconds}
}

// FetchCrimes returns the records of q. Only successful responses are cached.
func (s *CrimeService) FetchCrimes(ctx context.Context, q domain.RegionQuery) ([]domain.CrimeRecord, error) {
	start := time.Now()
	cacheKey := "crimes:" + q.Key()

	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKey); err == nil {
			var records []domain.CrimeRecord
			if err := json.Unmarshal(data, &records); err == nil {
				metrics.CacheHits.WithLabelValues("crimes").Inc()
				s.report(ctx, q, len(records), nil, time.Since(start), true)
				return records, nil
			}
		}
		metrics.CacheMisses.WithLabelValues("crimes").Inc()
	}

	records, err := s.source.FetchCrimes(ctx, q)
	elapsed := time.Since(start)
	metrics.PoliceFetchDuration.Observe(elapsed.Seconds())
	metrics.PoliceFetchesTotal.WithLabelValues(fetch.StatusOf(err).String()).Inc()
	if err != nil {
		s.report(ctx, q, 0, err, elapsed, false)
		return nil, err
	}
	metrics.PoliceRecordsReturned.Observe(float64(len(records)))

	if s.cache != nil {
		if data, err := json.Marshal(records); err == nil {
			_ = s.cache.Set(ctx, cacheKey, data, s.ttl)
		}
	}

	s.report(ctx, q, len(records), nil, elapsed, false)
	return records, nil
}

func (s *CrimeService) report(ctx context.Context, q domain.RegionQuery, n int, err error, elapsed time.Duration, cached bool) {
	status := fetch.StatusOf(err).String()
	slog.Debug("crime fetch", "date", q.Date(), "status", status, "records", n, "cached", cached, "duration", elapsed)
	if s.publisher == nil {
		return
	}
	o := &ports.FetchOutcome{
		Month:      q.Month,
		Poly:       q.Poly(),
		Status:     status,
		Records:    n,
		DurationMs: elapsed.Milliseconds(),
		Cached:     cached,
	}
	ctx, cancel := context.WithTimeout(ctx, PublishTimeout)
	defer cancel()
	if perr := s.publisher.PublishFetchOutcome(ctx, o); perr != nil {
		slog.Warn("publish fetch outcome", "error", perr)
	}
}

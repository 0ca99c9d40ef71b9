package usecases

import (
	"context"
	"errors"
	"fmt"

	"github.com/crimestat/crimestat/internal/core/domain"
	"github.com/crimestat/crimestat/internal/core/fetch"
	"github.com/crimestat/crimestat/internal/core/ports"
	"github.com/crimestat/crimestat/internal/core/presentation"
	"github.com/crimestat/crimestat/internal/pkg/telemetry"
)

// ErrTrendsUnavailable is returned when no workflow engine is configured.
var ErrTrendsUnavailable = errors.New("trend computation is not configured")

// TrendService runs yearly per-month summaries of an area.
type TrendService struct {
	crimes ports.CrimeSource
	runner ports.TrendRunner
}

// NewTrendService creates a new TrendService. runner may be nil when only
// SummarizeMonth is needed, as in the workflow worker.
func NewTrendService(crimes ports.CrimeSource, runner ports.TrendRunner) *TrendService {
	return &TrendService{crimes: crimes, runner: runner}
}

// Start validates poly and launches a trend run, returning its id.
func (s *TrendService) Start(ctx context.Context, poly string) (string, error) {
	if _, err := domain.ParsePolygon(poly); err != nil {
		return "", err
	}
	if s.runner == nil {
		return "", ErrTrendsUnavailable
	}
	id, err := s.runner.Start(ctx, poly)
	if err != nil {
		return "", fmt.Errorf("start trend: %w", err)
	}
	return id, nil
}

// Result returns a finished trend. done is false while it is still running.
func (s *TrendService) Result(ctx context.Context, id string) (*domain.TrendResult, bool, error) {
	if s.runner == nil {
		return nil, false, ErrTrendsUnavailable
	}
	return s.runner.Result(ctx, id)
}

// SummarizeMonth aggregates one month of an area. An area too large for the
// upstream API yields a too_many_results month rather than an error.
func (s *TrendService) SummarizeMonth(ctx context.Context, poly string, index int) (domain.MonthTrend, error) {
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanSummarizeMonth)
	defer span.End()

	polygon, err := domain.ParsePolygon(poly)
	if err != nil {
		return domain.MonthTrend{}, err
	}
	q, err := domain.NewRegionQuery(polygon, index)
	if err != nil {
		return domain.MonthTrend{}, err
	}

	mt := domain.MonthTrend{Month: q.Month}
	records, err := s.crimes.FetchCrimes(ctx, q)
	mt.Status = fetch.StatusOf(err).String()
	switch {
	case err == nil:
		mt.Counts = presentation.Aggregate(records)
		mt.Total = mt.Counts.Total
		return mt, nil
	case errors.Is(err, domain.ErrPayloadTooLarge):
		return mt, nil
	default:
		return mt, err
	}
}

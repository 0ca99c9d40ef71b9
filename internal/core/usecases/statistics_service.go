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

// StatisticsView is everything the statistics page shows.
type StatisticsView struct {
	Poly    string               `json:"poly"`
	Month   domain.Month         `json:"month"`
	Status  domain.FetchStatus   `json:"status"`
	Banner  *domain.Banner       `json:"banner,omitempty"`
	Summary domain.Summary       `json:"summary"`
	Chart   domain.ChartData     `json:"chart"`
	Recap   domain.Recap         `json:"recap"`
	Months  []domain.MonthOption `json:"months"`
}

// StatisticsService computes per-category statistics for an area. It keeps
// no state: the month selector on the page simply calls it again.
type StatisticsService struct {
	crimes ports.CrimeSource
}

// NewStatisticsService creates a new StatisticsService.
func NewStatisticsService(crimes ports.CrimeSource) *StatisticsService {
	return &StatisticsService{crimes: crimes}
}

// Compute fetches the area's crimes for month and aggregates them.
// A failed view is still returned alongside the error so callers can show
// its banner; banners on this page never expire.
func (s *StatisticsService) Compute(ctx context.Context, poly, month string, viewportHeight int) (StatisticsView, error) {
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanStatistics)
	defer span.End()

	v := StatisticsView{Poly: poly, Months: presentation.MonthOptions()}

	m, err := domain.ParseMonth(month)
	if err != nil {
		return v, err
	}
	v.Month = m

	polygon, err := domain.ParsePolygon(poly)
	if err != nil {
		if errors.Is(err, domain.ErrNoAreaSelected) {
			v.Status = domain.FetchError
			b := presentation.NoAreaBanner()
			v.Banner = &b
		}
		return v, err
	}

	q := domain.RegionQuery{Polygon: polygon, Month: m}
	records, err := s.crimes.FetchCrimes(ctx, q)
	v.Status = fetch.StatusOf(err)
	if err != nil {
		b := presentation.NoAreaBanner()
		switch v.Status {
		case domain.FetchTooManyResults:
			b.Message = domain.MessageTooManyResults
		case domain.FetchError:
			b.Message = domain.MessageFetchFailed
		}
		v.Banner = &b
		return v, fmt.Errorf("statistics for %s: %w", m, err)
	}

	v.Summary = presentation.Aggregate(records)
	v.Chart = presentation.BuildChart(v.Summary, viewportHeight)
	v.Recap = presentation.BuildRecap(v.Chart)
	return v, nil
}

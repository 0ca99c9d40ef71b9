package usecases

import (
	"context"
	"fmt"
	"time"

	"github.com/crimestat/crimestat/internal/core/domain"
	"github.com/crimestat/crimestat/internal/core/ports"
	"github.com/crimestat/crimestat/internal/pkg/telemetry"
)

// QueryLogService records fetch outcomes and lists recent ones.
type QueryLogService struct {
	repo ports.QueryLogRepository
}

// NewQueryLogService creates a new QueryLogService.
func NewQueryLogService(repo ports.QueryLogRepository) *QueryLogService {
	return &QueryLogService{repo: repo}
}

// Record stores one outcome.
func (s *QueryLogService) Record(ctx context.Context, o *ports.FetchOutcome) error {
	ctx, span := telemetry.Tracer().Start(ctx, telemetry.SpanRecordOutcome)
	defer span.End()

	entry := &domain.QueryLogEntry{
		Month:      o.Month,
		Poly:       o.Poly,
		Status:     o.Status,
		Records:    o.Records,
		DurationMs: o.DurationMs,
		Cached:     o.Cached,
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.repo.Insert(ctx, entry); err != nil {
		return fmt.Errorf("insert query log: %w", err)
	}
	return nil
}

// Recent returns the newest entries first.
func (s *QueryLogService) Recent(ctx context.Context, limit, offset int) ([]domain.QueryLogEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.Recent(ctx, limit, offset)
}

package workflows

import (
	"context"
	"errors"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/crimestat/crimestat/internal/core/domain"
	"github.com/crimestat/crimestat/internal/core/usecases"
)

// Activity names.
const (
	ActivitySummarizeMonth = "SummarizeMonth"
)

// TrendActivities holds the activity implementations for the trend workflow.
type TrendActivities struct {
	Trends *usecases.TrendService
}

// SummarizeMonth aggregates one month of an area. Invalid input fails
// without retries; upstream failures are retried by the workflow policy.
func (a *TrendActivities) SummarizeMonth(ctx context.Context, poly string, month int) (domain.MonthTrend, error) {
	logger := activity.GetLogger(ctx)

	mt, err := a.Trends.SummarizeMonth(ctx, poly, month)
	if err != nil {
		if errors.Is(err, domain.ErrNoAreaSelected) || errors.Is(err, domain.ErrPolygonTooSmall) ||
			errors.Is(err, domain.ErrInvalidPolygon) || errors.Is(err, domain.ErrInvalidMonth) {
			return mt, temporal.NewNonRetryableApplicationError(err.Error(), "InvalidArea", err)
		}
		logger.Warn("summarize month failed", "month", month, "error", err)
		return mt, err
	}
	logger.Info("month summarized", "month", mt.Month, "status", mt.Status, "total", mt.Total)
	return mt, nil
}

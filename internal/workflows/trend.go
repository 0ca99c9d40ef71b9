package workflows

import (
	"errors"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/crimestat/crimestat/internal/core/domain"
)

// TrendInput is the input for the trend workflow.
type TrendInput struct {
	Poly string
}

// MonthlyTrendWorkflow summarizes all twelve months of domain.QueryYear for
// an area. Months are fetched in parallel; a month that keeps failing is
// reported with status "error" instead of failing the whole run.
func MonthlyTrendWorkflow(ctx workflow.Context, input TrendInput) (*domain.TrendResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting trend workflow")

	actOpts := workflow.ActivityOptions{
		StartToCloseTimeout: 60 * time.Second,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    2 * time.Second,
			BackoffCoefficient: 2,
			MaximumAttempts:    3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, actOpts)

	futures := make([]workflow.Future, 12)
	for i := range futures {
		futures[i] = workflow.ExecuteActivity(ctx, ActivitySummarizeMonth, input.Poly, i+1)
	}

	result := &domain.TrendResult{Poly: input.Poly, Year: domain.QueryYear}
	for i, f := range futures {
		var mt domain.MonthTrend
		if err := f.Get(ctx, &mt); err != nil {
			var appErr *temporal.ApplicationError
			if errors.As(err, &appErr) && appErr.NonRetryable() {
				return nil, err
			}
			logger.Warn("month failed", "month", i+1, "error", err)
			m, _ := domain.MonthFromIndex(i + 1)
			mt = domain.MonthTrend{Month: m, Status: domain.FetchError.String()}
		}
		result.Months = append(result.Months, mt)
	}

	logger.Info("Trend workflow finished", "months", len(result.Months))
	return result, nil
}

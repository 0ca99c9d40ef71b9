package workflows_test

import (
	"context"
	"errors"
	"testing"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"

	"github.com/crimestat/crimestat/internal/core/domain"
	"github.com/crimestat/crimestat/internal/core/usecases"
	"github.com/crimestat/crimestat/internal/workflows"
)

const poly = "52.6,-1.2:52.6,-1.1:52.66,-1.1:52.66,-1.2:52.6,-1.2"

type stubSource struct {
	fn func(q domain.RegionQuery) ([]domain.CrimeRecord, error)
}

func (s stubSource) FetchCrimes(_ context.Context, q domain.RegionQuery) ([]domain.CrimeRecord, error) {
	return s.fn(q)
}

func newEnv(src stubSource) *testsuite.TestWorkflowEnvironment {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(workflows.MonthlyTrendWorkflow)
	acts := &workflows.TrendActivities{Trends: usecases.NewTrendService(src, nil)}
	env.RegisterActivityWithOptions(acts.SummarizeMonth, activity.RegisterOptions{Name: workflows.ActivitySummarizeMonth})
	return env
}

func TestMonthlyTrendWorkflow(t *testing.T) {
	src := stubSource{fn: func(q domain.RegionQuery) ([]domain.CrimeRecord, error) {
		switch q.Month {
		case "2024-02":
			return nil, domain.ErrPayloadTooLarge
		case "2024-05":
			return nil, domain.ErrNetworkFailure
		}
		out := make([]domain.CrimeRecord, q.Month.Index())
		for i := range out {
			out[i] = domain.CrimeRecord{ID: int64(i), Category: "burglary"}
		}
		return out, nil
	}}
	env := newEnv(src)

	env.ExecuteWorkflow(workflows.MonthlyTrendWorkflow, workflows.TrendInput{Poly: poly})
	if !env.IsWorkflowCompleted() {
		t.Fatal("workflow did not complete")
	}
	if err := env.GetWorkflowError(); err != nil {
		t.Fatalf("unexpected workflow error: %v", err)
	}

	var result domain.TrendResult
	if err := env.GetWorkflowResult(&result); err != nil {
		t.Fatal(err)
	}
	if len(result.Months) != 12 || result.Year != 2024 {
		t.Fatalf("unexpected result %+v", result)
	}
	if m := result.Months[0]; m.Month != "2024-01" || m.Total != 1 || m.Status != "success" {
		t.Errorf("unexpected January %+v", m)
	}
	if m := result.Months[1]; m.Status != "too_many_results" {
		t.Errorf("unexpected February %+v", m)
	}
	if m := result.Months[4]; m.Status != "error" || m.Month != "2024-05" {
		t.Errorf("unexpected May %+v", m)
	}
	if m := result.Months[11]; m.Total != 12 || m.Counts.PerCategory["burglary"] != 12 {
		t.Errorf("unexpected December %+v", m)
	}
}

func TestMonthlyTrendWorkflow_InvalidArea(t *testing.T) {
	tests := []struct {
		name string
		poly string
	}{
		{"two points", "1,2:3,4"},
		{"malformed", "52.6;-1.2:abc"},
		{"no area", domain.NoAreaSentinel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			env := newEnv(stubSource{fn: func(q domain.RegionQuery) ([]domain.CrimeRecord, error) {
				called = true
				return nil, nil
			}})

			env.ExecuteWorkflow(workflows.MonthlyTrendWorkflow, workflows.TrendInput{Poly: tt.poly})
			if !env.IsWorkflowCompleted() {
				t.Fatal("workflow did not complete")
			}
			err := env.GetWorkflowError()
			if err == nil {
				t.Fatalf("expected workflow error for %q", tt.poly)
			}
			var appErr *temporal.ApplicationError
			if !errors.As(err, &appErr) || appErr.Type() != "InvalidArea" || !appErr.NonRetryable() {
				t.Errorf("expected non-retryable InvalidArea, got %v", err)
			}
			if called {
				t.Error("no upstream request expected")
			}
		})
	}
}

// Package temporal starts and inspects trend workflows on a Temporal cluster.
package temporal

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"

	"github.com/crimestat/crimestat/internal/core/domain"
	"github.com/crimestat/crimestat/internal/workflows"
)

// ErrTrendNotFound is returned for unknown trend ids.
var ErrTrendNotFound = domain.ErrTrendNotFound

// WorkflowIDPrefix prefixes every trend workflow id.
const WorkflowIDPrefix = "trend-"

// Runner implements ports.TrendRunner.
type Runner struct {
	client    client.Client
	taskQueue string
}

// Dial connects to Temporal.
func Dial(hostPort, namespace, taskQueue string) (*Runner, error) {
	c, err := client.Dial(client.Options{
		HostPort:  hostPort,
		Namespace: namespace,
	})
	if err != nil {
		return nil, fmt.Errorf("temporal client: %w", err)
	}
	return NewRunner(c, taskQueue), nil
}

// NewRunner wraps an existing client.
func NewRunner(c client.Client, taskQueue string) *Runner {
	return &Runner{client: c, taskQueue: taskQueue}
}

// Client exposes the underlying client, e.g. for a worker.
func (r *Runner) Client() client.Client {
	return r.client
}

// Start launches MonthlyTrendWorkflow for poly.
func (r *Runner) Start(ctx context.Context, poly string) (string, error) {
	opts := client.StartWorkflowOptions{
		ID:        WorkflowIDPrefix + uuid.NewString(),
		TaskQueue: r.taskQueue,
	}
	run, err := r.client.ExecuteWorkflow(ctx, opts, workflows.MonthlyTrendWorkflow, workflows.TrendInput{Poly: poly})
	if err != nil {
		return "", err
	}
	return run.GetID(), nil
}

// Result returns the trend once the workflow has completed.
func (r *Runner) Result(ctx context.Context, id string) (*domain.TrendResult, bool, error) {
	desc, err := r.client.DescribeWorkflowExecution(ctx, id, "")
	if err != nil {
		var nf *serviceerror.NotFound
		if errors.As(err, &nf) {
			return nil, false, fmt.Errorf("%w: %s", ErrTrendNotFound, id)
		}
		return nil, false, err
	}

	switch desc.GetWorkflowExecutionInfo().GetStatus() {
	case enumspb.WORKFLOW_EXECUTION_STATUS_RUNNING:
		return nil, false, nil
	case enumspb.WORKFLOW_EXECUTION_STATUS_COMPLETED:
		var result domain.TrendResult
		if err := r.client.GetWorkflow(ctx, id, "").Get(ctx, &result); err != nil {
			return nil, false, err
		}
		return &result, true, nil
	default:
		return nil, true, fmt.Errorf("trend %s ended with status %s", id, desc.GetWorkflowExecutionInfo().GetStatus())
	}
}

// Close releases the client.
func (r *Runner) Close() {
	r.client.Close()
}

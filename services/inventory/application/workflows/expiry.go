// Package workflows contains the inventory context's Temporal workflows.
package workflows

import (
	"context"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	appsvcs "github.com/ghuser/stockledger/services/inventory/application/services"
)

// ExpirySweepWorkflowID is the stable workflow ID for the nightly sweep, so
// redeploys attach to the running schedule instead of starting a second one.
const ExpirySweepWorkflowID = "inventory-expiry-sweep"

// ExpirySweepCron runs the sweep daily at 02:00 UTC.
const ExpirySweepCron = "0 2 * * *"

// ExpirySweepResult is the outcome of one sweep run.
type ExpirySweepResult struct {
	Flagged int `json:"flagged"`
}

// ExpirySweepWorkflow flags every batch receipt whose expiry date has passed.
// It is scheduled on a cron; each run executes the sweep activity once with
// retries delegated to Temporal.
func ExpirySweepWorkflow(ctx workflow.Context) (ExpirySweepResult, error) {
	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 5 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval: 10 * time.Second,
			MaximumAttempts: 3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	var result ExpirySweepResult
	err := workflow.ExecuteActivity(ctx, (*ExpiryActivities).SweepExpired, workflow.Now(ctx).UTC()).Get(ctx, &result)
	return result, err
}

// ExpiryActivities holds the activity implementations backing the sweep.
type ExpiryActivities struct {
	batch *appsvcs.BatchService
}

// NewExpiryActivities returns activities wired with the batch service.
func NewExpiryActivities(batch *appsvcs.BatchService) *ExpiryActivities {
	return &ExpiryActivities{batch: batch}
}

// SweepExpired flags batch receipts that expired on or before asOf.
func (a *ExpiryActivities) SweepExpired(ctx context.Context, asOf time.Time) (ExpirySweepResult, error) {
	flagged, err := a.batch.SweepExpired(ctx, asOf)
	if err != nil {
		return ExpirySweepResult{Flagged: flagged}, err
	}
	return ExpirySweepResult{Flagged: flagged}, nil
}

package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/samirrijal/loopwalk/internal/core/domain"
)

// LoopRouteWorkflowName is the registered workflow type.
const LoopRouteWorkflowName = "LoopRouteWorkflow"

// LoopRouteInput is the input for the loop route workflow. The request is
// already normalized by the API so retries reuse the same search ID.
type LoopRouteInput struct {
	Request domain.LoopRequest
}

// LoopRouteWorkflow runs one loop search as a durable job. Invalid requests
// fail without retry; everything else yields a route, possibly empty.
func LoopRouteWorkflow(ctx workflow.Context, input LoopRouteInput) (*domain.LoopRoute, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting loop route workflow", "searchID", input.Request.SearchID, "distanceKm", input.Request.DistanceKm)

	actOpts := workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts:        2,
			NonRetryableErrorTypes: []string{ErrTypeInvalidRequest},
		},
	}
	ctx = workflow.WithActivityOptions(ctx, actOpts)

	var route domain.LoopRoute
	if err := workflow.ExecuteActivity(ctx, "GenerateLoop", input.Request).Get(ctx, &route); err != nil {
		logger.Warn("loop generation failed", "error", err)
		return nil, err
	}

	logger.Info("Loop route ready", "status", route.Status, "distanceKm", route.DistanceKm)
	return &route, nil
}

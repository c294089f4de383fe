package workflows

import (
	"context"
	"errors"

	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"

	"github.com/samirrijal/loopwalk/internal/core/domain"
)

// ErrTypeInvalidRequest tags application errors that must not be retried.
const ErrTypeInvalidRequest = "InvalidRequest"

// LoopGenerator is the slice of usecases.LoopService the activities need.
type LoopGenerator interface {
	Generate(ctx context.Context, req domain.LoopRequest) (*domain.LoopRoute, error)
}

// LoopActivities holds the activity implementations for the loop route workflow.
type LoopActivities struct {
	Loops LoopGenerator
}

// GenerateLoop runs the search. Heartbeats are not needed: the search is
// bounded by its attempt budget and the activity timeout.
func (a *LoopActivities) GenerateLoop(ctx context.Context, req domain.LoopRequest) (*domain.LoopRoute, error) {
	activity.GetLogger(ctx).Info("generating loop", "searchID", req.SearchID, "attempt", activity.GetInfo(ctx).Attempt)

	route, err := a.Loops.Generate(ctx, req)
	if errors.Is(err, domain.ErrInvalidRequest) {
		return nil, temporal.NewNonRetryableApplicationError(err.Error(), ErrTypeInvalidRequest, err)
	}
	return route, err
}

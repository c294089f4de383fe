package temporaladapter

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"

	"github.com/samirrijal/loopwalk/internal/core/domain"
	"github.com/samirrijal/loopwalk/internal/workflows"
)

const jobIDPrefix = "loop-"

// Scheduler implements ports.JobScheduler on Temporal workflows.
type Scheduler struct {
	client    client.Client
	taskQueue string
}

// Dial connects to the Temporal frontend.
func Dial(hostPort, namespace string) (client.Client, error) {
	c, err := client.Dial(client.Options{HostPort: hostPort, Namespace: namespace})
	if err != nil {
		return nil, fmt.Errorf("temporal dial: %w", err)
	}
	return c, nil
}

// NewScheduler creates a Scheduler submitting to taskQueue.
func NewScheduler(c client.Client, taskQueue string) *Scheduler {
	return &Scheduler{client: c, taskQueue: taskQueue}
}

// Submit starts a LoopRouteWorkflow. The job ID doubles as the search ID
// unless the request already carries one.
func (s *Scheduler) Submit(ctx context.Context, req domain.LoopRequest) (string, error) {
	jobID := jobIDPrefix + uuid.NewString()
	if req.SearchID == "" {
		req.SearchID = jobID
	}

	opts := client.StartWorkflowOptions{
		ID:        jobID,
		TaskQueue: s.taskQueue,
	}
	run, err := s.client.ExecuteWorkflow(ctx, opts, workflows.LoopRouteWorkflowName, workflows.LoopRouteInput{Request: req})
	if err != nil {
		return "", fmt.Errorf("start loop workflow: %w", err)
	}
	return run.GetID(), nil
}

// Result returns the finished route of jobID.
func (s *Scheduler) Result(ctx context.Context, jobID string) (*domain.LoopRoute, error) {
	desc, err := s.client.DescribeWorkflowExecution(ctx, jobID, "")
	if err != nil {
		var nf *serviceerror.NotFound
		if errors.As(err, &nf) {
			return nil, domain.ErrJobNotFound
		}
		return nil, fmt.Errorf("describe job %s: %w", jobID, err)
	}

	if desc.GetWorkflowExecutionInfo().GetStatus() == enumspb.WORKFLOW_EXECUTION_STATUS_RUNNING {
		return nil, domain.ErrJobNotFinished
	}

	var route domain.LoopRoute
	if err := s.client.GetWorkflow(ctx, jobID, "").Get(ctx, &route); err != nil {
		return nil, fmt.Errorf("job %s failed: %w", jobID, err)
	}
	return &route, nil
}

// Ping checks the frontend for readiness probes.
func (s *Scheduler) Ping(ctx context.Context) error {
	_, err := s.client.CheckHealth(ctx, &client.CheckHealthRequest{})
	return err
}

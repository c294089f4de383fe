package main

import (
	"context"
	"log"
	"log/slog"

	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"

	"github.com/samirrijal/loopwalk/internal/adapters/graphhopper"
	natsadapter "github.com/samirrijal/loopwalk/internal/adapters/nats"
	"github.com/samirrijal/loopwalk/internal/adapters/routingcache"
	temporaladapter "github.com/samirrijal/loopwalk/internal/adapters/temporal"
	"github.com/samirrijal/loopwalk/internal/adapters/valkey"
	"github.com/samirrijal/loopwalk/internal/core/ports"
	"github.com/samirrijal/loopwalk/internal/core/usecases"
	"github.com/samirrijal/loopwalk/internal/pkg/config"
	"github.com/samirrijal/loopwalk/internal/pkg/logging"
	"github.com/samirrijal/loopwalk/internal/pkg/telemetry"
	"github.com/samirrijal/loopwalk/internal/workflows"
)

func main() {
	cfg, err := config.Load("loopwalk-worker")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(context.Background(), cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
		if err != nil {
			slog.Warn("telemetry init failed", "error", err)
		} else {
			defer shutdown()
		}
	}

	settings, err := usecases.SettingsFromConfig(cfg.Search)
	if err != nil {
		log.Fatalf("search config: %v", err)
	}

	var router ports.RoutingService = graphhopper.New(
		cfg.Routing.BaseURL,
		cfg.Routing.APIKey,
		cfg.Routing.TimeoutDuration(),
		graphhopper.WithProfile(cfg.Routing.Profile),
	)
	if cfg.Routing.CacheEnabled {
		cache, err := valkey.New(cfg.Valkey.Addr)
		if err != nil {
			slog.Warn("valkey unavailable, routing cache disabled", "error", err)
		} else {
			defer cache.Close()
			router = routingcache.New(router, cache, cfg.Routing.Profile, cfg.Routing.CacheTTL)
		}
	}

	var publisher ports.EventPublisher
	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable", "error", err)
	} else {
		defer pub.Close()
		publisher = pub
	}

	// Connect to Temporal
	c, err := temporaladapter.Dial(cfg.Temporal.HostPort, cfg.Temporal.Namespace)
	if err != nil {
		log.Fatalf("temporal client: %v", err)
	}
	defer c.Close()

	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})

	// Register workflow & activities
	loops := usecases.NewLoopService(router, publisher, settings)
	w.RegisterWorkflowWithOptions(workflows.LoopRouteWorkflow, workflow.RegisterOptions{
		Name: workflows.LoopRouteWorkflowName,
	})
	w.RegisterActivity(&workflows.LoopActivities{Loops: loops})

	slog.Info("loop worker started", "task_queue", cfg.Temporal.TaskQueue)
	err = w.Run(worker.InterruptCh())
	loops.Wait()
	if err != nil {
		log.Fatalf("worker: %v", err)
	}
}

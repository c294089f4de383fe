package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/samirrijal/loopwalk/internal/adapters/graphhopper"
	"github.com/samirrijal/loopwalk/internal/adapters/http"
	natsadapter "github.com/samirrijal/loopwalk/internal/adapters/nats"
	"github.com/samirrijal/loopwalk/internal/adapters/routingcache"
	temporaladapter "github.com/samirrijal/loopwalk/internal/adapters/temporal"
	"github.com/samirrijal/loopwalk/internal/adapters/valkey"
	"github.com/samirrijal/loopwalk/internal/core/ports"
	"github.com/samirrijal/loopwalk/internal/core/usecases"
	"github.com/samirrijal/loopwalk/internal/pkg/config"
	"github.com/samirrijal/loopwalk/internal/pkg/logging"
	"github.com/samirrijal/loopwalk/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("loopwalk-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Telemetry
	if cfg.Telemetry.Enabled {
		shutdown, err := telemetry.InitTracer(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.TempoAddr)
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

	deps := &http.Dependencies{
		RateLimit:      cfg.Server.RateLimit,
		RequestTimeout: time.Duration(cfg.Server.RequestTimeout) * time.Second,
	}

	// Cache (optional)
	cache, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		slog.Warn("valkey unavailable", "error", err)
	} else {
		defer cache.Close()
		deps.Cache = cache
		deps.LimiterStorage = valkey.NewStorage(cache, "limiter:")
	}

	// Routing
	var router ports.RoutingService = graphhopper.New(
		cfg.Routing.BaseURL,
		cfg.Routing.APIKey,
		cfg.Routing.TimeoutDuration(),
		graphhopper.WithProfile(cfg.Routing.Profile),
	)
	if cfg.Routing.CacheEnabled && cache != nil {
		router = routingcache.New(router, cache, cfg.Routing.Profile, cfg.Routing.CacheTTL)
	}

	// NATS
	var publisher ports.EventPublisher
	pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats unavailable", "error", err)
	} else {
		defer pub.Close()
		publisher = pub
	}

	// Raw NATS connection for the WebSocket relay
	natsConn, err := natsadapter.RawConn(cfg.NATS.URL)
	if err != nil {
		slog.Warn("nats ws conn unavailable", "error", err)
	} else {
		defer natsConn.Close()
		deps.NATS = natsConn
	}

	deps.Loops = usecases.NewLoopService(router, publisher, settings)

	// Async jobs
	if cfg.Temporal.Enabled {
		tc, err := temporaladapter.Dial(cfg.Temporal.HostPort, cfg.Temporal.Namespace)
		if err != nil {
			slog.Warn("temporal unavailable, async jobs disabled", "error", err)
		} else {
			defer tc.Close()
			scheduler := temporaladapter.NewScheduler(tc, cfg.Temporal.TaskQueue)
			deps.Jobs = scheduler
			deps.Temporal = scheduler
		}
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    64 * 1024,
		AppName:      "LoopWalk API",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.Server.AllowOrigins,
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept",
		MaxAge:       3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr, "routing", cfg.Routing.BaseURL, "profile", cfg.Routing.Profile)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}
	deps.Loops.Wait()

	slog.Info("server stopped")
}

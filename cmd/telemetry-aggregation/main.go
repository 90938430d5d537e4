package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpapi "github.com/cosinefox/telemetry-aggregation/internal/api/http"
	"github.com/cosinefox/telemetry-aggregation/internal/config"
	"github.com/cosinefox/telemetry-aggregation/internal/metrics"
	"github.com/cosinefox/telemetry-aggregation/internal/scheduler"
	"github.com/cosinefox/telemetry-aggregation/internal/store"
	"github.com/cosinefox/telemetry-aggregation/internal/telemetry"
	"github.com/cosinefox/telemetry-aggregation/internal/telemetry/providers"
)

const serviceName = "telemetry-aggregation"

func main() {
	// Load configuration (.env first, then environment).
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.New(registry)

	// Snapshot cache keyed by category.
	memStore := store.NewMemoryStore[telemetry.Snapshot](
		store.WithObserver[telemetry.Snapshot](recorder.CacheLookup),
	)

	aggOpts := []telemetry.AggregatorOption{telemetry.WithRecorder(recorder)}
	loc := cfg.Location()

	steam := providers.NewSteamProvider(httpClient, cfg.SteamURL, cfg.SteamAPIKey, cfg.SteamID, cfg.SteamRatePerSec)
	if !steam.Configured() {
		log.Printf("INFO: STEAM_API_KEY or STEAM_ID not set; steam category is unconfigured")
	}

	var status, bluesky telemetry.Source[json.RawMessage]
	if cfg.StatusCafeUser != "" {
		status = providers.NewStatusCafeProvider(httpClient, cfg.StatusCafeURL, cfg.StatusCafeUser)
	}
	if cfg.BlueskyHandle != "" {
		bluesky = providers.NewBlueskyProvider(httpClient, cfg.BlueskyURL, cfg.BlueskyHandle)
	}

	aggregators := []telemetry.Aggregator{
		telemetry.NewEnvironmentAggregator(
			providers.NewForecastProvider(httpClient, cfg.ForecastURL, loc),
			providers.NewAirQualityProvider(httpClient, cfg.AirQualityURL, loc),
			providers.NewQuakeProvider(httpClient, cfg.QuakeURL),
			aggOpts...,
		),
		telemetry.NewActivityAggregator(steam, aggOpts...),
		telemetry.NewFeedAggregator(telemetry.CategoryStatus, status, aggOpts...),
		telemetry.NewFeedAggregator(telemetry.CategoryBluesky, bluesky, aggOpts...),
	}

	// Core service routing categories through the cache.
	service := telemetry.NewService(memStore, aggregators,
		telemetry.WithDefaultWindow(cfg.CacheWindow),
		telemetry.WithWindows(cfg.CacheWindows),
		telemetry.WithObserver(recorder),
	)

	// Optional cache warmer.
	sched := scheduler.New(cfg.WarmInterval, service)
	if err := sched.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               serviceName,
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          cfg.HTTPTimeout + 10*time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(logger.New(logger.Config{
		Format: "${time} ${locals:requestid} ${status} - ${latency} ${method} ${path}\n",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": serviceName,
		})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	httpapi.RegisterRoutes(app, service, steam.SteamID())

	go func() {
		log.Printf("INFO: listening on :%s", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
}

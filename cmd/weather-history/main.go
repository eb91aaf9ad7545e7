package main

import (
	"context"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	httpapi "weather-history/internal/api/http"
	"weather-history/internal/cache"
	"weather-history/internal/config"
	"weather-history/internal/geo"
	"weather-history/internal/logger"
	"weather-history/internal/meteo"
	"weather-history/internal/scheduler"
	"weather-history/internal/store"
	"weather-history/internal/weather"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("failed to load config: %v", err)
	}

	log := logger.New(cfg.LogLevel, cfg.Env)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to create postgres pool: %v", err)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		log.Fatalf("failed to reach postgres: %v", err)
	}

	db := store.NewPostgresStore(pool, log)
	if err := db.EnsureSchema(ctx); err != nil {
		log.Fatalf("failed to ensure schema: %v", err)
	}
	cancel()

	// Shared HTTP client for outbound upstream calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	// One cache instance shared by both clients and the pipeline.
	sharedCache := cache.New()

	geocoder := geo.NewClient(httpClient, geo.Config{
		BaseURL:        cfg.GeocodingBaseURL,
		UserAgent:      cfg.UserAgent,
		AcceptLanguage: cfg.AcceptLanguage,
		MinInterval:    cfg.GeocodeMinInterval,
		CacheTTL:       cfg.CacheTTLMonth,
	}, sharedCache, log)

	fetcher := meteo.NewClient(httpClient, meteo.Config{
		BaseURL:  cfg.WeatherBaseURL,
		CacheTTL: cfg.CacheTTLHour,
	}, sharedCache, log)

	service := weather.NewService(geocoder, fetcher, db, sharedCache, cfg.CacheTTLHour, cfg.MaxDaysAllowed, log)

	sched := scheduler.New(cfg.WarmupCities, cfg.WarmupDays, cfg.WarmupInterval, service, log)
	if err := sched.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	app := fiber.New(fiber.Config{
		AppName:               "weather-history",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
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

	app.Use(fiberlogger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "weather-history",
		})
	})

	httpapi.RegisterRoutes(app, service, db)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Errorf("fiber server stopped: %v", err)
		}
	}()
	log.Infof("listening on :%s", cfg.Port)

	sigCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-sigCtx.Done()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancelShutdown()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Errorf("error during shutdown: %v", err)
	}
}

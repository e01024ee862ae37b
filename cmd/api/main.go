package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	stdhttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/nats-io/nats.go"

	"github.com/yash1732/gigguard/internal/adapters/http"
	natsadapter "github.com/yash1732/gigguard/internal/adapters/nats"
	"github.com/yash1732/gigguard/internal/adapters/nominatim"
	"github.com/yash1732/gigguard/internal/adapters/overpass"
	"github.com/yash1732/gigguard/internal/adapters/postgres"
	temporaladapter "github.com/yash1732/gigguard/internal/adapters/temporal"
	"github.com/yash1732/gigguard/internal/adapters/valkey"
	"github.com/yash1732/gigguard/internal/core/domain"
	"github.com/yash1732/gigguard/internal/core/ports"
	"github.com/yash1732/gigguard/internal/core/usecases"
	"github.com/yash1732/gigguard/internal/pkg/config"
	"github.com/yash1732/gigguard/internal/pkg/logging"
	"github.com/yash1732/gigguard/internal/pkg/metrics"
	"github.com/yash1732/gigguard/internal/pkg/telemetry"
)

func main() {
	cfg, err := config.Load("gigguard-api")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	// Structured logging
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info"
	}
	logging.Setup(logLevel, "json")

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

	// Database (optional: SOS history is skipped without it)
	var events ports.SOSEventRepository
	db, err := postgres.New(ctx, cfg.Database.DSN())
	if err != nil {
		slog.Warn("database unavailable, sos events will not be stored", "error", err)
	} else {
		defer db.Close()
		events = postgres.NewSOSRepo(db)
		go reportPoolStats(ctx, db)
	}

	// Cache
	var poiCache ports.CacheService
	cache, err := valkey.New(cfg.Valkey.Addr)
	if err != nil {
		slog.Warn("valkey unavailable", "error", err)
	} else {
		defer cache.Close()
		poiCache = cache
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

	// Raw NATS connection for WebSocket relay
	var natsConn *nats.Conn
	if conn, err := natsadapter.RawConn(cfg.NATS.URL); err != nil {
		slog.Warn("nats ws conn unavailable", "error", err)
	} else {
		defer conn.Close()
		natsConn = conn
	}

	// Temporal (optional: the escalator also schedules from sos.triggered)
	var escalator ports.EscalationScheduler
	if cfg.Temporal.Enabled {
		tc, err := temporaladapter.Dial(cfg.Temporal.HostPort, cfg.Temporal.Namespace)
		if err != nil {
			slog.Warn("temporal unavailable", "error", err)
		} else {
			defer tc.Close()
			escalator = temporaladapter.NewScheduler(tc, cfg.Temporal.TaskQueue, cfg.Temporal.AckTimeout)
		}
	}

	// Providers share one HTTP client
	httpClient := &stdhttp.Client{
		Transport: &stdhttp.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 20,
			IdleConnTimeout:     90 * time.Second,
		},
	}
	provider := overpass.New(httpClient, overpass.Config{
		URL:         cfg.Overpass.URL,
		UserAgent:   cfg.Overpass.UserAgent,
		Timeout:     cfg.Overpass.Timeout,
		MaxAttempts: cfg.Overpass.MaxAttempts,
		RetryDelay:  cfg.Overpass.RetryDelay,
	})
	geocoder := nominatim.New(httpClient, nominatim.Config{
		URL:       cfg.Nominatim.URL,
		UserAgent: cfg.Nominatim.UserAgent,
		Timeout:   cfg.Nominatim.Timeout,
	})

	// Use cases
	cached := usecases.NewCachedPOIProvider(provider, poiCache, cfg.Search.CacheTTL)
	search := usecases.NewSearchStrategy(cached, cfg.Search.Radii, fallbacks(cfg.Search.Fallbacks))
	orchestrator := usecases.NewOrchestrator(search, geocoder, cfg.Search.Budget)
	engine := usecases.NewResolutionEngine(orchestrator, search, usecases.NewRanker(cfg.Search.TopN), cfg.Search.EmergencyNumber)
	sosSvc := usecases.NewSOSService(engine, events, publisher, escalator)

	deps := &http.Dependencies{
		SOS:   sosSvc,
		NATS:  natsConn,
		DB:    db,
		Cache: cache,
	}

	// Fiber
	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    64 * 1024,
		AppName:      "GigGuard API",
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     "*",
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: false,
		MaxAge:           3600,
	}))

	http.SetupRoutes(app, deps)

	// Graceful shutdown
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		slog.Info("API server starting", "addr", addr)
		if err := app.Listen(addr); err != nil {
			log.Fatalf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	slog.Info("shutdown signal received, draining connections...", "signal", sig.String())

	// An SOS resolution may take up to the search budget
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Search.Budget+5*time.Second)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("forced shutdown", "error", err)
	}

	slog.Info("server stopped")
}

// fallbacks converts the configured category names, skipping unknown ones.
func fallbacks(raw map[string]string) map[domain.Category]domain.Category {
	known := map[domain.Category]bool{
		domain.CategoryHospital: true,
		domain.CategoryPolice:   true,
		domain.CategoryPharmacy: true,
		domain.CategoryClinic:   true,
	}
	out := make(map[domain.Category]domain.Category, len(raw))
	for from, to := range raw {
		f, t := domain.Category(from), domain.Category(to)
		if !known[f] || !known[t] || f == t {
			slog.Warn("ignoring search fallback", "from", from, "to", to)
			continue
		}
		out[f] = t
	}
	return out
}

func reportPoolStats(ctx context.Context, db *postgres.DB) {
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			metrics.UpdateDBPoolMetrics(db.Pool.Stat())
		}
	}
}

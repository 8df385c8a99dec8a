package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	httpapi "github.com/fleetdesk/fleetdesk/internal/api/http"
	"github.com/fleetdesk/fleetdesk/internal/application/auth"
	"github.com/fleetdesk/fleetdesk/internal/application/coordinator"
	"github.com/fleetdesk/fleetdesk/internal/application/fuel"
	"github.com/fleetdesk/fleetdesk/internal/application/invoice"
	"github.com/fleetdesk/fleetdesk/internal/application/logistics"
	"github.com/fleetdesk/fleetdesk/internal/application/negotiation"
	"github.com/fleetdesk/fleetdesk/internal/application/request"
	"github.com/fleetdesk/fleetdesk/internal/application/user"
	"github.com/fleetdesk/fleetdesk/internal/application/vehicle"
	"github.com/fleetdesk/fleetdesk/internal/config"
	"github.com/fleetdesk/fleetdesk/internal/infrastructure/cache"
	"github.com/fleetdesk/fleetdesk/internal/infrastructure/postgres"
	"github.com/fleetdesk/fleetdesk/internal/infrastructure/sse"
)

func main() {
	_ = godotenv.Load()

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db error: %v", err)
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		log.Fatalf("migration error: %v", err)
	}

	// repositories
	requestRepo := postgres.NewRequestRepository(pool)
	negotiationRepo := postgres.NewNegotiationRepository(pool)
	logisticsRepo := postgres.NewLogisticsRepository(pool)
	invoiceRepo := postgres.NewInvoiceRepository(pool)
	vehicleRepo := postgres.NewVehicleRepository(pool)
	fuelRepo := postgres.NewFuelRepository(pool)
	userRepo := postgres.NewUserRepository(pool)
	sessionRepo := postgres.NewSessionRepository(pool)

	// infrastructure
	sseHub := sse.NewHub()
	var snapshotCache coordinator.SnapshotCache
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unreachable, snapshot cache disabled")
		} else {
			snapshotCache = cache.NewSnapshotCache(rdb, cfg.SnapshotCacheTTL)
		}
	}

	// services
	requestSvc := request.NewService(requestRepo, negotiationRepo, vehicleRepo, userRepo, logger)
	negotiationSvc := negotiation.NewService(requestRepo, negotiationRepo, logger)
	logisticsSvc := logistics.NewService(requestRepo, logisticsRepo, logger)
	invoiceSvc := invoice.NewService(requestRepo, negotiationRepo, invoiceRepo, cfg.DivergenceRule, logger)
	coordinatorSvc := coordinator.NewService(requestSvc, negotiationSvc, logisticsSvc, invoiceSvc, vehicleRepo, userRepo, snapshotCache, sseHub, logger)
	vehicleSvc := vehicle.NewService(vehicleRepo, logger)
	fuelSvc := fuel.NewService(fuelRepo, vehicleRepo, logger)
	userSvc := user.NewService(userRepo, logger)
	authSvc := auth.NewService(userRepo, sessionRepo, cfg.SessionTTL, logger)

	// API server
	apiServer := httpapi.NewServer(coordinatorSvc, authSvc, userSvc, vehicleSvc, fuelSvc, sseHub, cfg.SessionCookieName, cfg.SessionCookieSecure)

	httpServer := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      apiServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// background loops
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			if n, err := authSvc.PurgeExpired(context.Background()); err != nil {
				logger.Warn().Err(err).Msg("session purge failed")
			} else if n > 0 {
				logger.Info().Int("purged", n).Msg("expired sessions removed")
			}
		}
	}()

	// start server
	go func() {
		logger.Info().Str("addr", cfg.ServerAddr).Msg("http server started")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	// graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpServer.Shutdown(ctxShutdown)
	sseHub.Stop()
}

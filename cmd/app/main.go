package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"couple-pairing-service/internal/config"
	"couple-pairing-service/internal/infra/api"
	"couple-pairing-service/internal/infra/db/postgres"
	"couple-pairing-service/internal/infra/logging"
	"couple-pairing-service/internal/infra/metrics"
	redisadapter "couple-pairing-service/internal/infra/redis"
	"couple-pairing-service/internal/infra/web"
	"couple-pairing-service/internal/usecase"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	dev := flag.Bool("dev", false, "run in development mode")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath, *dev)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	metrics.MustRegister()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.PoolSize)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connection failed")
	}
	defer pool.Close()

	redisClient, err := redisadapter.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connection failed")
	}
	defer redisClient.Close()

	accountRepo := postgres.NewPostgresAccountRepo(pool)
	coupleRepo := postgres.NewPostgresCoupleRepo(pool)
	invitationRepo := postgres.NewPostgresInvitationRepo(pool)
	txManager := postgres.NewTxManager(pool)

	locker := redisadapter.NewLocker(redisClient)
	limiter := redisadapter.NewRateLimiter(redisClient)

	pairingUC := usecase.NewPairingUseCase(
		accountRepo, coupleRepo, invitationRepo, txManager,
		locker, cfg.Pairing.CodeAttempts, logger,
	)
	invitationUC := usecase.NewInvitationUseCase(
		accountRepo, invitationRepo, pairingUC, txManager,
		limiter, cfg.Pairing.SendLimit, cfg.Pairing.SendWindow, cfg.Pairing.InvitationTTL, logger,
	)
	coupleUC := usecase.NewCoupleUseCase(coupleRepo, txManager, cfg.Pairing.CodeAttempts, logger)
	accountUC := usecase.NewAccountUseCase(accountRepo, invitationRepo, pairingUC, txManager, logger)
	statsUC := usecase.NewStatsUseCase(accountRepo, coupleRepo, invitationRepo)

	authManager := api.NewAuthManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	apiServer := api.NewServer(accountUC, invitationUC, pairingUC, coupleUC, authManager, logger)

	publicSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	adminMux := http.NewServeMux()
	web.NewServer(statsUC, accountUC, coupleUC, cfg.Admin.APIKey, logger).RegisterRoutes(adminMux)
	adminSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Admin.Port),
		Handler:           adminMux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info().Int("port", cfg.Server.Port).Msg("public API listening")
		if err := publicSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("public server: %w", err)
		}
	}()
	go func() {
		logger.Info().Int("port", cfg.Admin.Port).Msg("admin API listening")
		if err := adminSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("admin server: %w", err)
		}
	}()

	// Background sweep retires overdue invitations even when nobody reads
	// their inbox.
	go sweepLoop(ctx, invitationUC, logger)

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-errCh:
		logger.Error().Err(err).Msg("server failed")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := publicSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("public server shutdown failed")
	}
	if err := adminSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("admin server shutdown failed")
	}
	logger.Info().Msg("stopped")
}

// sweepLoop periodically retires overdue invitations.
func sweepLoop(ctx context.Context, invitationUC usecase.InvitationUseCase, logger *zerolog.Logger) {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			invitationUC.SweepExpired(ctx)
			logger.Debug().Msg("invitation sweep tick")
		}
	}
}

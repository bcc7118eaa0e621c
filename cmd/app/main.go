package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"copytrade-subscription/internal/config"
	"copytrade-subscription/internal/infra/adapters/mail"
	"copytrade-subscription/internal/infra/adapters/rate"
	"copytrade-subscription/internal/infra/adapters/storage"
	pg "copytrade-subscription/internal/infra/db/postgres"
	"copytrade-subscription/internal/infra/logging"
	"copytrade-subscription/internal/infra/metrics"
	red "copytrade-subscription/internal/infra/redis"
	"copytrade-subscription/internal/infra/sched"
	"copytrade-subscription/internal/infra/security"
	"copytrade-subscription/internal/infra/web"
	"copytrade-subscription/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Info().Msg("developer mode enabled")
	}

	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connect failed")
	}
	defer pool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connect failed")
	}
	defer redisClient.Close()
	locker := red.NewLocker(redisClient)
	sessionStore := red.NewCheckoutSessionStore(redisClient)
	rateCache := red.NewRateCache(redisClient)

	// ---- Encryption ----
	cipher, err := security.NewEncryptionService(cfg.Security.EncryptionKey)
	if err != nil {
		logger.Fatal().Err(err).Msg("encryption init failed")
	}

	// ---- Adapters ----
	rates := rate.NewHTTPRateProvider(cfg.Rate.URL, cfg.Rate.Fallback, rateCache, logger)
	objectStorage, err := storage.NewS3Storage(ctx, &cfg.Storage, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("object storage init failed")
	}
	mailer := mail.NewSMTPMailer(&cfg.SMTP, logger)

	// ---- Repositories ----
	txManager := pg.NewTxManager(pool)
	paymentRepo := pg.NewPaymentRepo(pool)
	walletRepo := pg.NewWalletRepo(pool)
	runningRepo := pg.NewRunningStrategyRepo(pool)
	modificationRepo := pg.NewModificationRequestRepo(pool)
	strategyRepo := pg.NewStrategyRepo(pool)
	userRepo := pg.NewUserRepo(pool)

	// ---- Use cases ----
	pricingUC := usecase.NewPricingUseCase(rates, cfg.Rate.Base, cfg.Rate.Quote, logger)
	intakeUC := usecase.NewIntakeUseCase(paymentRepo, strategyRepo, pricingUC, cipher, logger)
	verifyUC := usecase.NewVerificationUseCase(paymentRepo, walletRepo, runningRepo, userRepo, strategyRepo, txManager, locker, mailer, logger)
	checkoutUC := usecase.NewCheckoutUseCase(sessionStore, pricingUC, intakeUC, cipher, logger)
	walletUC := usecase.NewWalletUseCase(walletRepo, logger)
	runningUC := usecase.NewRunningStrategyUseCase(runningRepo, modificationRepo, cipher, logger)

	// ---- Workers ----
	expiryWorker := sched.NewCheckoutExpiryWorker(cfg.Workers.ExpirySweepInterval, paymentRepo, intakeUC, logger)
	go func() { _ = expiryWorker.Run(ctx) }()
	reminderWorker := sched.NewRenewalReminderWorker(cfg.Workers.ReminderInterval, cfg.Workers.ReminderLeadTime, paymentRepo, userRepo, strategyRepo, mailer, logger)
	go func() { _ = reminderWorker.Run(ctx) }()

	// ---- HTTP server ----
	auth := web.NewAuthManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	server := web.NewServer(cfg, auth, pricingUC, intakeUC, verifyUC, checkoutUC, walletUC, runningUC, userRepo, rates, objectStorage, logger)
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown error")
	}
}

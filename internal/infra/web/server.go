package web

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"copytrade-subscription/internal/config"
	"copytrade-subscription/internal/domain/ports/adapter"
	"copytrade-subscription/internal/domain/ports/repository"
	"copytrade-subscription/internal/usecase"
)

type Server struct {
	cfg *config.Config

	auth       *AuthManager
	pricingUC  usecase.PricingUseCase
	intakeUC   usecase.IntakeUseCase
	verifyUC   usecase.VerificationUseCase
	checkoutUC usecase.CheckoutUseCase
	walletUC   usecase.WalletUseCase
	runningUC  usecase.RunningStrategyUseCase
	users      repository.UserRepository
	rates      adapter.RateProvider
	storage    adapter.ObjectStorage

	log    *zerolog.Logger
	server *http.Server
}

func NewServer(
	cfg *config.Config,
	auth *AuthManager,
	pricingUC usecase.PricingUseCase,
	intakeUC usecase.IntakeUseCase,
	verifyUC usecase.VerificationUseCase,
	checkoutUC usecase.CheckoutUseCase,
	walletUC usecase.WalletUseCase,
	runningUC usecase.RunningStrategyUseCase,
	users repository.UserRepository,
	rates adapter.RateProvider,
	storage adapter.ObjectStorage,
	logger *zerolog.Logger,
) *Server {
	compLog := logger.With().Str("component", "WebServer").Logger()
	return &Server{
		cfg:        cfg,
		auth:       auth,
		pricingUC:  pricingUC,
		intakeUC:   intakeUC,
		verifyUC:   verifyUC,
		checkoutUC: checkoutUC,
		walletUC:   walletUC,
		runningUC:  runningUC,
		users:      users,
		rates:      rates,
		storage:    storage,
		log:        &compLog,
	}
}

func (s *Server) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(traceMiddleware)
	r.Use(recoverMiddleware(s.log))
	r.Use(requestLogMiddleware(s.log))

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	r.Post("/auth/login", s.handleLogin)
	r.Get("/rate", s.handleRate)
	r.Get("/quote", s.handleQuote)

	// Authenticated user surface.
	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth)

		r.Post("/payments", s.handleCreatePayment)
		r.Get("/payments", s.handleListPayments)
		r.Get("/payments/{id}", s.handleGetPayment)
		r.Put("/payments/{id}", s.handleAttachProof)
		r.Patch("/payments/{id}", s.handlePatchPayment)

		r.Post("/upload-url", s.handleUploadURL)

		r.Post("/checkout", s.handleCheckoutStart)
		r.Get("/checkout/{id}", s.handleCheckoutGet)
		r.Post("/checkout/{id}/advance", s.handleCheckoutAdvance)
		r.Post("/checkout/{id}/back", s.handleCheckoutBack)
		r.Post("/checkout/{id}/cancel", s.handleCheckoutCancel)

		r.Get("/wallet", s.handleWalletBalance)
		r.Get("/wallet/entries", s.handleWalletEntries)

		r.Get("/running-strategies", s.handleListRunning)
		r.Post("/running-strategies/{id}/modification", s.handleRequestModification)

		// Admin surface.
		r.Group(func(r chi.Router) {
			r.Use(s.requireAdmin)

			r.Patch("/payments", s.handleAdminBulkStatus)
			r.Get("/admin/running-strategies", s.handleAdminListRunning)
			r.Patch("/admin/running-strategies/{id}/status", s.handleAdminExecutionStatus)
			r.Get("/admin/modifications", s.handleAdminListModifications)
			r.Patch("/admin/modifications/{id}", s.handleAdminResolveModification)
			r.Get("/admin/users", s.handleAdminListUsers)
			r.Patch("/admin/users/{id}", s.handleAdminSetUserEnabled)
			r.Post("/admin/wallets/{userID}/credit", s.handleAdminWalletCredit)
			r.Post("/admin/wallets/{userID}/debit", s.handleAdminWalletDebit)
			r.Post("/admin/wallets/{userID}/recompute", s.handleAdminWalletRecompute)
		})
	})

	return r
}

func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Server.Port),
		Handler:      s.Router(),
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}
	s.log.Info().Int("port", s.cfg.Server.Port).Msg("http server listening")
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

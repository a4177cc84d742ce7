// Package api wires the HTTP handlers into a server.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/clenisa/discounted-cashflow-analysis/pkg/api/config"
	"github.com/clenisa/discounted-cashflow-analysis/pkg/api/library"
	"github.com/clenisa/discounted-cashflow-analysis/pkg/api/middleware"
	"github.com/clenisa/discounted-cashflow-analysis/pkg/api/respond"
	"github.com/clenisa/discounted-cashflow-analysis/pkg/api/valuation"
	"github.com/clenisa/discounted-cashflow-analysis/pkg/core/currency"
	"github.com/clenisa/discounted-cashflow-analysis/pkg/core/store"
)

type WebAPI struct {
	router          *chi.Mux
	logger          *zerolog.Logger
	server          *http.Server
	shutdownTimeout time.Duration
}

type Dependencies struct {
	Store    store.Store
	Rates    *currency.RateTable
	Settings *config.Settings
}

type Config struct {
	Addr            string
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
	Dependencies    Dependencies
}

func NewWebAPI(logger zerolog.Logger, cfg Config) *WebAPI {
	deps := cfg.Dependencies
	if deps.Rates == nil {
		deps.Rates = currency.NewRateTable(currency.DefaultRates()...)
	}
	if deps.Settings == nil {
		deps.Settings = config.NewSettings(currency.EUR, "")
	}
	valuationHandler := valuation.NewHandler(deps.Rates, deps.Settings)
	configHandler := config.NewHandler(deps.Settings, deps.Rates)

	router := chi.NewRouter()
	router.Use(chimw.RequestID)
	router.Use(middleware.Logger(&logger))
	router.Use(chimw.Recoverer)
	router.Use(middleware.CORS(cfg.AllowedOrigins))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		respond.JSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})

	router.Route("/api/v1", func(r chi.Router) {
		valuationHandler.Routes(r)
		if deps.Store != nil {
			library.NewHandler(deps.Store).Routes(r)
		}
		r.Get("/config", configHandler.HandleConfig)
		r.Post("/config/currency", configHandler.HandleSwitch)
	})

	timeout := cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WebAPI{
		router:          router,
		logger:          &logger,
		shutdownTimeout: timeout,
		server: &http.Server{
			Addr:              cfg.Addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}
}

// Handler returns the root handler, mainly for tests.
func (w *WebAPI) Handler() http.Handler {
	return w.router
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (w *WebAPI) Start(ctx context.Context) error {
	serverErrors := make(chan error, 1)

	go func() {
		w.logger.Info().Str("addr", w.server.Addr).Msg("starting server")
		serverErrors <- w.server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		w.logger.Info().Msg("shutdown initiated")

		// Give outstanding requests a deadline for completion.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), w.shutdownTimeout)
		defer cancel()

		if err := w.server.Shutdown(shutdownCtx); err != nil {
			w.logger.Error().Err(err).Msg("graceful shutdown failed")
			return w.server.Close()
		}
	}
	return nil
}

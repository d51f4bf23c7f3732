package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/slowpost/slowpost/api"
	"github.com/slowpost/slowpost/auth"
	"github.com/slowpost/slowpost/internal/config"
	"github.com/slowpost/slowpost/internal/metrics"
	"github.com/slowpost/slowpost/mail"
	"github.com/slowpost/slowpost/store"
	bboltstore "github.com/slowpost/slowpost/store/bbolt"
	memorystore "github.com/slowpost/slowpost/store/memory"
	postgresstore "github.com/slowpost/slowpost/store/postgres"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the Slowpost API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
		slog.SetDefault(logger)

		st, closeStore, err := openStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer closeStore()

		svc := auth.NewService(st, auth.WithSkipPin(cfg.SkipPin))

		var mailer mail.Mailer
		if cfg.SendGridAPIKey != "" {
			mailer = mail.NewSendGridMailer(cfg.SendGridAPIKey, cfg.MailFrom)
		} else {
			logger.Warn("SENDGRID_API_KEY not set, logging PINs instead of mailing them")
			mailer = mail.NewLogMailer(logger)
		}

		registry := prometheus.NewRegistry()
		collector := metrics.NewCollector(registry)

		a := api.New(st, svc, mailer,
			api.WithLogger(logger),
			api.WithMetrics(collector),
			api.WithCookieSecure(cfg.CookieSecure),
		)

		r := chi.NewRouter()
		r.Use(middleware.Logger)
		r.Use(middleware.Recoverer)

		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("OK"))
		})
		r.Handle("/metrics", metrics.Handler(registry))
		r.Handle("/api/*", a.Handler())

		server := &http.Server{
			Addr:              ":" + cfg.ServerPort,
			Handler:           r,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		}

		// Graceful shutdown on SIGINT/SIGTERM.
		done := make(chan error, 1)
		go func() {
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				done <- fmt.Errorf("server failed: %w", err)
				return
			}
			done <- nil
		}()

		logger.Info("server started",
			slog.String("port", cfg.ServerPort),
			slog.String("backend", cfg.Backend))

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("shutting down", slog.String("signal", sig.String()))
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(ctx); err != nil {
				return fmt.Errorf("server shutdown failed: %w", err)
			}
			return nil
		case err := <-done:
			return err
		}
	},
}

// openStore builds the configured backend and returns it with its cleanup.
func openStore(ctx context.Context, cfg *config.Config) (store.Store, func(), error) {
	switch cfg.Backend {
	case config.BackendMemory:
		return memorystore.New(), func() {}, nil
	case config.BackendBBolt:
		if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
			return nil, nil, fmt.Errorf("creating data directory: %w", err)
		}
		st, err := bboltstore.NewFromFile(cfg.DataDir+"/slowpost.db", nil)
		if err != nil {
			return nil, nil, fmt.Errorf("opening bbolt store: %w", err)
		}
		return st, func() { st.Close() }, nil
	case config.BackendPostgres:
		st, err := postgresstore.NewFromDSN(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to postgres: %w", err)
		}
		return st, func() { st.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}

func init() {
	rootCmd.AddCommand(serverCmd)
}

package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/heliawallet/vault-server-go/internal/config"
	"github.com/heliawallet/vault-server-go/internal/handler"
	"github.com/heliawallet/vault-server-go/internal/jobs"
	"github.com/heliawallet/vault-server-go/internal/middleware"
	"github.com/heliawallet/vault-server-go/internal/repository"
	"github.com/heliawallet/vault-server-go/internal/service"
	"github.com/heliawallet/vault-server-go/internal/store"
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	setLogLevel(cfg.LogLevel)

	isProduction := os.Getenv("FLY_APP_NAME") != ""
	if err := cfg.Validate(isProduction); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		log.Fatal().Err(err).Str("dir", cfg.DataDir).Msg("failed to create data directory")
	}

	openCtx, cancel := context.WithTimeout(context.Background(), config.StoreOpenTimeout)
	st, err := store.NewHandle(cfg.DatabasePath()).Open(openCtx)
	cancel()
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DatabasePath()).Msg("failed to open store")
	}
	defer st.Close()
	log.Info().Str("path", cfg.DatabasePath()).Msg("store opened")

	accountRepo := repository.NewAccountRepository(st)
	sessionRepo := repository.NewSessionRepository(st)
	conversationRepo := repository.NewConversationRepository(st)
	contactRepo := repository.NewContactRepository(st)
	labelRepo := repository.NewTxLabelRepository(st)
	settingsRepo := repository.NewSettingsRepository(st)
	snapshotRepo := repository.NewSnapshotRepository(st)
	tokenRepo := repository.NewTrackedTokenRepository(st)

	signer := service.NewTokenSigner(cfg.TokenSecret, cfg.AccessTokenTTL())
	authService := service.NewAuthService(
		accountRepo, sessionRepo, snapshotRepo,
		signer, cfg.RefreshTokenTTL(), cfg.SnapshotRetention(),
	)
	vaultService := service.NewVaultService(
		conversationRepo, contactRepo, labelRepo,
		settingsRepo, snapshotRepo, tokenRepo,
		cfg.EncryptionKey,
	)
	portabilityService := service.NewPortabilityService(
		st, accountRepo, sessionRepo, conversationRepo,
		contactRepo, labelRepo, settingsRepo, snapshotRepo, tokenRepo,
	)

	authMiddleware := middleware.NewAuthMiddleware(authService, signer)

	authHandler := handler.NewAuthHandler(authService)
	vaultHandler := handler.NewVaultHandler(vaultService)
	portabilityHandler := handler.NewPortabilityHandler(portabilityService, authService)

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(config.ServerRequestTimeout))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{
			"status":    "ok",
			"timestamp": time.Now().UnixMilli(),
		})
	})

	r.Route("/auth", func(r chi.Router) {
		r.Mount("/", authHandler.PublicRoutes())
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Handler)
			r.Mount("/account", authHandler.ProtectedRoutes())
		})
	})

	r.Route("/vault", func(r chi.Router) {
		r.Use(authMiddleware.Handler)
		r.Mount("/", vaultHandler.Routes())
	})

	r.Route("/portability", func(r chi.Router) {
		r.Use(authMiddleware.Handler)
		r.Mount("/", portabilityHandler.Routes())
	})

	cleanupJob := jobs.NewCleanupJob(authService, config.CleanupJobInterval)
	cleanupJob.Start()
	defer cleanupJob.Stop()

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r,
		ReadTimeout:  config.ServerReadTimeout,
		WriteTimeout: config.ServerWriteTimeout,
		IdleTimeout:  config.ServerIdleTimeout,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr()).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), config.ServerShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

func setLogLevel(level string) {
	switch level {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/littletreat/internal/config"
	"github.com/vasiliy-maslov/littletreat/internal/db"
	httpHandler "github.com/vasiliy-maslov/littletreat/internal/handler/http"
	"github.com/vasiliy-maslov/littletreat/internal/store"
)

const serviceName = "order-store"

func main() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	log.Logger = log.With().Str("service", serviceName).Logger()

	log.Info().Msg("Order store starting...")

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	connectCtx, connectCancel := context.WithTimeout(context.Background(), 30*time.Second)
	postgres, err := db.New(connectCtx, cfg.Postgres)
	connectCancel()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}

	orderRepository := store.NewRepository(postgres.Pool, cfg.Postgres.LockTimeout)
	orderSvc := store.NewService(orderRepository)
	storeHandler := httpHandler.NewStoreHandler(orderSvc)

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	httpHandler.RegisterHealth(router, serviceName)
	storeHandler.RegisterRoutes(router)

	server := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.App.Port).Msg("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)
	<-stopCh
	log.Info().Msg("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Shutdown failed")
	}
	postgres.Close()

	log.Info().Msg("Order store stopped")
}

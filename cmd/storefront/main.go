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
	"github.com/vasiliy-maslov/littletreat/internal/admin"
	"github.com/vasiliy-maslov/littletreat/internal/catalog"
	"github.com/vasiliy-maslov/littletreat/internal/checkout"
	"github.com/vasiliy-maslov/littletreat/internal/config"
	httpHandler "github.com/vasiliy-maslov/littletreat/internal/handler/http"
	"github.com/vasiliy-maslov/littletreat/internal/sheets"
)

func main() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	log.Logger = log.With().Str("service", cfg.App.Name).Logger()
	log.Info().Stringer("kind", cfg.Kind()).Msg("Storefront starting...")

	menu, err := catalog.LoadFile(cfg.Storefront.MenuPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.Storefront.MenuPath).Msg("Failed to load menu")
	}
	slots, err := catalog.TimeSlots(cfg.Storefront.DeliveryWindow)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid delivery window")
	}

	endpoint := config.NewEndpoint(cfg.Store.BaseURL, cfg.Store.OverrideFile)
	if !endpoint.Configured() {
		log.Warn().Msg("No order store configured; orders will not be saved until one is set up")
	}
	storeClient := sheets.NewClient(endpoint, cfg.Store.Timeout, cfg.Store.Retry)

	checkoutSvc := checkout.NewService(checkout.Config{
		Kind:           cfg.Kind(),
		Prefix:         cfg.Storefront.Prefix,
		WhatsApp:       cfg.Storefront.WhatsApp,
		Sheet:          cfg.Storefront.Sheet,
		DeliveryDate:   cfg.Storefront.DeliveryDate,
		Persist:        cfg.Storefront.Persist,
		PersistTimeout: cfg.Store.Timeout * time.Duration(cfg.Store.Retry.Attempts+1),
	}, storeClient)

	loc := cfg.Admin.Location()
	dashboard := admin.NewDashboard(storeClient, admin.Config{
		Kind:  cfg.Kind(),
		Sheet: cfg.Storefront.Sheet,
	}, admin.WithClock(func() time.Time { return time.Now().In(loc) }))

	storefrontHandler := httpHandler.NewStorefrontHandler(menu, checkoutSvc, httpHandler.StorefrontConfig{
		Name:         cfg.Storefront.Name,
		Kind:         cfg.Kind(),
		DeliveryDate: cfg.Storefront.DeliveryDate,
		Slots:        slots,
	})
	adminHandler := httpHandler.NewAdminHandler(dashboard, endpoint,
		httpHandler.BasicAuth(cfg.App.Name, cfg.Admin.Username, cfg.Admin.PasswordHash))

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	httpHandler.RegisterHealth(router, cfg.App.Name)
	storefrontHandler.RegisterRoutes(router)
	adminHandler.RegisterRoutes(router)

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

	log.Info().Msg("Waiting for background order writes")
	checkoutSvc.Wait()
	dashboard.Wait()

	log.Info().Msg("Storefront stopped")
}

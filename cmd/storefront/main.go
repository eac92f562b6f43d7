package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/kasuri-atelier/storefront/internal/config"
	"github.com/kasuri-atelier/storefront/internal/db"
	"github.com/kasuri-atelier/storefront/internal/event"
	"github.com/kasuri-atelier/storefront/internal/metrics"
	"github.com/kasuri-atelier/storefront/internal/mint"
	"github.com/kasuri-atelier/storefront/internal/notify"
	"github.com/kasuri-atelier/storefront/internal/order"
	"github.com/kasuri-atelier/storefront/internal/payment"
	"github.com/kasuri-atelier/storefront/internal/transport"
	"github.com/kasuri-atelier/storefront/internal/verify"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	log.Logger = log.With().Str("service", "storefront").Logger()

	log.Info().Msg("storefront starting...")

	cfg, err := config.Load(".env")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if cfg.App.Env == "production" {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	if err := db.Migrate(cfg.Postgres); err != nil {
		log.Fatal().Err(err).Msg("failed to apply migrations")
	}

	pg, err := db.New(context.Background(), cfg.Postgres)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pg.Close()

	cache, err := order.NewCache(cfg.Cache.Path)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open fallback cache")
	}
	defer cache.Close()

	store := order.NewTwoTierStore(order.NewPostgresStore(pg.Pool), cache)

	var events event.Publisher
	if len(cfg.Kafka.Brokers) > 0 {
		events = event.NewKafkaPublisher(cfg.Kafka.Brokers)
	} else {
		events = event.NewNoopPublisher()
	}
	defer events.Close()

	var mailer notify.Mailer
	if cfg.Mail.Endpoint != "" {
		mailer = notify.NewAPIMailer(cfg.Mail.Endpoint, cfg.Mail.APIKey, cfg.Mail.From, 10*time.Second)
	} else {
		mailer = notify.NewNoopMailer()
	}

	m := metrics.New()

	providers := []mint.Provider{
		mint.NewCrossmintProvider(cfg.Mint.CrossmintBaseURL, cfg.Mint.CrossmintAPIKey, cfg.Mint.CollectionID, cfg.Mint.Timeout),
		mint.NewLocalProvider(),
	}
	orchestrator := mint.NewOrchestrator(store, providers, mailer, events, m, cfg.Mint.RetryAfter)

	router := transport.NewRouter(transport.Deps{
		OrderService:      order.NewService(store, order.Fees{Shipping: cfg.Fees.Shipping, Certificate: cfg.Fees.Certificate}),
		SignatureVerifier: payment.NewSignatureVerifier(cfg.Payment.ServerKey),
		Reconciler:        payment.NewReconciler(store, events, m),
		Minter:            orchestrator,
		Resolver:          verify.NewVerifier(store, cache, m, 500),
		Resetter:          orchestrator,
		Metrics:           m,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.App.Port).Msg("starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	log.Info().Msg("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("shutdown failed")
	}
	log.Info().Msg("server stopped")
}

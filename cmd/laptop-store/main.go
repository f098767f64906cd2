package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/laptop-store/internal/cache"
	"github.com/vasiliy-maslov/laptop-store/internal/cart"
	"github.com/vasiliy-maslov/laptop-store/internal/catalog"
	"github.com/vasiliy-maslov/laptop-store/internal/config"
	"github.com/vasiliy-maslov/laptop-store/internal/db"
	"github.com/vasiliy-maslov/laptop-store/internal/events"
	handler "github.com/vasiliy-maslov/laptop-store/internal/handler/http"
	"github.com/vasiliy-maslov/laptop-store/internal/order"
	"github.com/vasiliy-maslov/laptop-store/internal/payment"
	"github.com/vasiliy-maslov/laptop-store/internal/refund"
	"github.com/vasiliy-maslov/laptop-store/internal/review"
	"github.com/vasiliy-maslov/laptop-store/internal/transport"
)

type publisher interface {
	catalog.SearchIndexer
	order.Notifier
	payment.Gateway
	io.Closer
}

func main() {
	log.Logger = log.With().Str("service", "laptop-store").Logger()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	setupLogger(cfg.App)

	log.Info().Msg("Laptop store starting...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	pg, err := db.New(ctx, cfg.Postgres)
	cancel()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pg.Close()

	if err := pg.Migrate(cfg.Postgres.MigrationsPath); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply migrations")
	}

	var productCache catalog.Cache
	if cfg.Redis.Addr != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		c, err := cache.New(ctx, cfg.Redis)
		cancel()
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to redis")
		}
		defer c.Close()
		productCache = c
	} else {
		log.Warn().Msg("REDIS_ADDR is not set, product cache disabled")
	}

	var pub publisher = events.NopPublisher{}
	if len(cfg.Kafka.Brokers) > 0 {
		pub = events.NewKafkaPublisher(cfg.Kafka)
	} else {
		log.Warn().Msg("KAFKA_BROKERS is not set, domain events are dropped")
	}
	defer func() {
		if err := pub.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close event publisher")
		}
	}()

	productRepo := catalog.NewRepository(pg.Pool)
	catalogSvc := catalog.NewService(productRepo, pub, productCache)
	cartSvc := cart.NewService(cart.NewRepository(pg.Pool), cart.NewTransactor(pg))
	orderRepo := order.NewRepository(pg.Pool)
	orderSvc := order.NewService(orderRepo, order.NewTransactor(pg), pub, catalogSvc)
	paymentSvc := payment.NewService(payment.NewRepository(pg.Pool), payment.NewTransactor(pg), pub)
	refundSvc := refund.NewService(refund.NewRepository(pg.Pool), orderRepo)
	reviewSvc := review.NewService(review.NewRepository(pg.Pool), review.NewTransactor(pg), productRepo, catalogSvc)

	router := transport.NewRouter(transport.Handlers{
		Products: handler.NewProductHandler(catalogSvc),
		Carts:    handler.NewCartHandler(cartSvc),
		Orders:   handler.NewOrderHandler(orderSvc, paymentSvc),
		Payments: handler.NewPaymentHandler(paymentSvc),
		Refunds:  handler.NewRefundHandler(refundSvc),
		Reviews:  handler.NewReviewHandler(reviewSvc),
	}, pg.Pool)

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.App.Port).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	log.Info().Msg("Shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Shutdown failed")
	}
	log.Info().Msg("Laptop store stopped")
}

func setupLogger(cfg config.AppConfig) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.LogFormat == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}

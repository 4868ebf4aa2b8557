package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"stylegenie/pkg/api"
	"stylegenie/pkg/clients/gateway"
	"stylegenie/pkg/clients/openai"
	"stylegenie/pkg/config"
	"stylegenie/pkg/conversation"
	"stylegenie/pkg/events"
	"stylegenie/pkg/logging"
	"stylegenie/pkg/marketplace"
	"stylegenie/pkg/metrics"
	"stylegenie/pkg/middleware"
	"stylegenie/pkg/repository/image"
	"stylegenie/pkg/search"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config failed")
	}
	logging.Setup(cfg.Log.Level, cfg.Log.Pretty)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := metrics.NewRegistry()
	images := image.NewMemoryRepository(reg)
	resolver := image.NewResolver(images)

	registry := marketplace.NewDefaultRegistry()
	var source marketplace.Lister = registry
	if cfg.MarketplacesURL != "" {
		source = marketplace.WithDefaults(marketplace.NewRemoteSource(cfg.MarketplacesURL, cfg.Gateway.Timeout))
		log.Info().Str("url", cfg.MarketplacesURL).Msg("using remote marketplace list")
	}

	if cfg.Gateway.URL == "" {
		log.Warn().Msg("GATEWAY_URL is empty, every search will return fallback products")
	}
	provider := gateway.NewClient(cfg.Gateway.URL, cfg.Gateway.Timeout, resolver)

	opts := search.Options{
		PerMarketplace:  cfg.Search.PerMarketplace,
		DisplayBudget:   cfg.Search.DisplayBudget,
		ClassifyTimeout: cfg.Gateway.Timeout,
		Metrics:         reg,
	}
	if cfg.OpenAI.APIKey != "" {
		classifier, err := openai.NewClient(ctx, cfg.OpenAI.APIKey, cfg.OpenAI.BaseURL, cfg.OpenAI.Model, cfg.Gateway.Timeout, resolver)
		if err != nil {
			log.Warn().Err(err).Msg("openai classifier disabled")
		} else {
			opts.Classifier = classifier
		}
	}
	aggregator := search.NewAggregator(source, provider, opts)

	var store conversation.Store
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatal().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis ping failed")
		}
		store = conversation.NewRedisStore(rdb, cfg.SessionTTL)
		log.Info().Str("addr", cfg.Redis.Addr).Msg("sessions stored in redis")
	} else {
		store = conversation.NewMemoryStore(cfg.SessionTTL)
	}

	var publisher events.Publisher = events.Nop{}
	if len(cfg.Kafka.Brokers) > 0 {
		kp := events.NewKafkaPublisher(events.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic), reg)
		defer func() {
			if err := kp.Close(); err != nil {
				log.Error().Err(err).Msg("kafka writer close failed")
			}
		}()
		publisher = kp
	}

	engine := conversation.NewEngine(store, aggregator, publisher, reg)
	handlers := api.NewHandlers(engine, registry, aggregator, images, api.ImageOptions{
		TTL:      cfg.Image.TTL,
		MaxBytes: cfg.Image.MaxBytes,
	})

	server := echo.New()
	server.HideBanner = true
	server.Use(echomw.Recover())
	server.Use(middleware.RequestLogger(reg))
	api.RegisterRoutes(server, handlers, reg)

	go func() {
		log.Info().Str("address", cfg.Address).Msg("server starting")
		if err := server.Start(cfg.Address); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}
	log.Info().Msg("server stopped")
}

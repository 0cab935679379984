package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/restaurant-backend/pkg/config"
	"github.com/angelmondragon/restaurant-backend/pkg/db"
	"github.com/angelmondragon/restaurant-backend/pkg/kafka"
	"github.com/angelmondragon/restaurant-backend/pkg/logger"
	"github.com/angelmondragon/restaurant-backend/pkg/metrics"
	"github.com/angelmondragon/restaurant-backend/pkg/migrate"
	"github.com/angelmondragon/restaurant-backend/pkg/outbox"
	"github.com/angelmondragon/restaurant-backend/pkg/outbox/broker"
	"github.com/angelmondragon/restaurant-backend/pkg/outbox/registry"
	"github.com/angelmondragon/restaurant-backend/pkg/pubsub"
	"github.com/angelmondragon/restaurant-backend/pkg/rabbitmq"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "outbox-publisher"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	cfg.Service.Kind = "outbox-publisher"

	logg = logger.New(logger.Options{
		ServiceName: "outbox-publisher",
		Level:       cfg.App.LogLevel,
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, cfg.FeatureFlags, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	brokerName, _ := cfg.Events.Broker()
	pub, topic, err := openBroker(context.Background(), cfg, brokerName, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap broker", err)
		os.Exit(1)
	}
	defer func() {
		if err := pub.Close(); err != nil {
			logg.Error(context.Background(), "error closing broker publisher", err)
		}
	}()

	eventRegistry, err := registry.NewEventRegistry(topic)
	if err != nil {
		logg.Error(context.Background(), "failed to build event registry", err)
		os.Exit(1)
	}
	service, err := NewService(ServiceParams{
		Config:        cfg,
		Logger:        logg,
		DB:            dbClient,
		Broker:        pub,
		BrokerName:    brokerName,
		Repository:    outbox.NewRepository(dbClient.DB()),
		Registry:      eventRegistry,
		DLQRepository: outbox.NewDLQRepository(dbClient.DB()),
		Metrics:       metrics.NewOutboxMetrics(prometheus.DefaultRegisterer),
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create outbox publisher", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": "outbox-publisher",
		"broker":      brokerName,
	})
	if addr := cfg.Outbox.MetricsAddr; addr != "" {
		defer metrics.Shutdown(metrics.Serve(ctx, addr, prometheus.DefaultGatherer, logg))
	}
	logg.Info(ctx, "starting outbox publisher")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "outbox publisher stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "outbox publisher shutting down gracefully")
}

// openBroker returns the configured transport and the topic (or exchange)
// every order event is routed to.
func openBroker(ctx context.Context, cfg *config.Config, name string, logg *logger.Logger) (broker.Publisher, string, error) {
	switch name {
	case config.BrokerRabbitMQ:
		pub, err := rabbitmq.NewPublisher(ctx, cfg.RabbitMQ, logg)
		return pub, cfg.RabbitMQ.Exchange, err
	case config.BrokerKafka:
		pub, err := kafka.NewPublisher(ctx, cfg.Kafka, logg)
		return pub, cfg.Kafka.OrdersTopic, err
	case config.BrokerPubSub:
		pub, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
		return pub, cfg.PubSub.OrdersTopic, err
	default:
		return nil, "", fmt.Errorf("unsupported broker %q", name)
	}
}

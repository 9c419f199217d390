package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"async-ledger/config"
	"async-ledger/internal/adapter/messaging/rabbitmq"
	pgStorage "async-ledger/internal/adapter/storage/postgres"
	redisStorage "async-ledger/internal/adapter/storage/redis"
	"async-ledger/internal/core/domain"
	"async-ledger/internal/core/ports"
	"async-ledger/internal/service"
	"async-ledger/pkg/logger"
)

func main() {
	cfg, err := config.Load(os.Getenv("LEDGER_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)
	log.Info().
		Int("shards", cfg.RabbitMQ.ShardCount).
		Int("max_attempts", cfg.RabbitMQ.MaxAttempts).
		Dur("retry_ttl", cfg.RabbitMQ.RetryTTL).
		Msg("Starting settlement worker")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	mq := rabbitmq.NewConnectionManager(cfg.RabbitMQ, log)
	if err := mq.Open(); err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to RabbitMQ")
	}
	defer mq.Close() //nolint:errcheck

	topology := rabbitmq.NewTopology(cfg.RabbitMQ)
	if err := rabbitmq.DeclareTopology(mq, topology); err != nil {
		log.Fatal().Err(err).Msg("Failed to declare settlement topology")
	}
	publisher := rabbitmq.NewPublisher(mq, topology, rabbitmq.PublishOptionsFromConfig(cfg.RabbitMQ), log)

	var settlement ports.SettlementHandler = service.NewSettlementHandler(
		pgStorage.NewTransactionRepo(pool),
		pgStorage.NewAccountRepo(pool),
		pgStorage.NewTransactor(pool),
		redisStorage.NewAccountCache(rdb),
		log,
	)

	var handle rabbitmq.HandlerFunc[domain.TransactionCreatedEvent] = func(ctx context.Context, env rabbitmq.Envelope[domain.TransactionCreatedEvent], meta ports.DeliveryMetadata) error {
		return settlement.Handle(ctx, env.Data, meta)
	}

	consumer := rabbitmq.NewShardedConsumer(mq, publisher, topology, handle, rabbitmq.ConsumerOptions{
		Name:              "settlement",
		PrefetchCount:     cfg.RabbitMQ.PrefetchCount,
		MaxAttempts:       uint(cfg.RabbitMQ.MaxAttempts),
		ReconnectInterval: cfg.RabbitMQ.ReconnectInterval,
	}, log)

	if err := consumer.Run(ctx); err != nil {
		log.Error().Err(err).Msg("Settlement consumer stopped with error")
	}

	log.Info().Msg("Worker exited")
}

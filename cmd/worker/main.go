package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"linkbio/internal/cache"
	"linkbio/internal/config"
	"linkbio/internal/database"
	"linkbio/internal/log"
	"linkbio/internal/queue"
	"linkbio/internal/repository"
	"linkbio/internal/storage"
	"linkbio/internal/tasks"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment)

	ctx := context.Background()

	dbPool, err := database.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect postgres")
	}
	defer dbPool.Close()

	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect redis")
	}
	defer redisClient.Close()

	objectStore, err := storage.NewObjectStore(cfg.Storage)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init object store")
	}

	processor := tasks.NewProcessor(
		objectStore,
		repository.NewAssetRepository(dbPool),
		cfg.Uploads.OrphanRetention,
		logger,
	)
	consumer := queue.NewConsumer(
		redisClient,
		cfg.Redis.CleanupStream,
		cfg.Redis.CleanupGroup,
		cfg.Redis.Consumer,
		cfg.Redis.ClaimInterval,
		logger,
		processor,
	)
	if err := consumer.EnsureGroup(ctx); err != nil {
		logger.Fatal().Err(err).Msg("create consumer group failed")
	}

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := consumer.Start(runCtx); err != nil && err != context.Canceled {
			logger.Fatal().Err(err).Msg("consumer stopped unexpectedly")
		}
	}()

	<-runCtx.Done()
	logger.Info().Msg("shutdown signal received")
	time.Sleep(500 * time.Millisecond)
}

package main

import (
	"context"
	"time"

	"github.com/NDERI007/simflow/internal/cache"
	"github.com/NDERI007/simflow/internal/config"
	"github.com/NDERI007/simflow/internal/database"
	"github.com/NDERI007/simflow/internal/repository"
	"github.com/NDERI007/simflow/internal/service"
	"github.com/NDERI007/simflow/pkg/mq"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Only one scheduler instance sweeps at a time; the lock lease expires on its
// own if the holder dies mid-sweep.
const sweepLockKey = "scheduler:sweep:lock"

func main() {
	fx.New(
		fx.Provide(
			config.Load,
			zap.NewProduction,

			database.NewConnection,
			NewMQConnection,
			NewMQPublisher,
			NewRedisClient,

			repository.NewMessageRepository,
			repository.NewMessageContactRepository,
			repository.NewBatchJobRepository,
			repository.NewQuotaRepository,

			service.NewQuotaService,
			service.NewEnqueueService,
			NewDiscoveryService,
		),
		fx.Invoke(runScheduler),
	).Run()
}

func runScheduler(cfg *config.Config, discoverySvc service.DiscoveryService, locker *cache.Client,
	logger *zap.Logger, rabbit *mq.RabbitMQ, lc fx.Lifecycle) {
	appCtx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := locker.Ping(ctx); err != nil {
				logger.Error("redis unreachable", zap.Error(err))
				return err
			}

			go func() {
				ticker := time.NewTicker(cfg.Discovery.Interval)
				defer ticker.Stop()

				for {
					select {
					case <-ticker.C:
						sweep(appCtx, cfg, discoverySvc, locker, logger)
					case <-appCtx.Done():
						logger.Info("scheduler context cancelled")
						return
					}
				}
			}()

			logger.Info("scheduler started",
				zap.Duration("interval", cfg.Discovery.Interval))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("stopping scheduler")
			cancel()

			if err := locker.Close(); err != nil {
				return err
			}
			return rabbit.Close()
		},
	})
}

func sweep(ctx context.Context, cfg *config.Config, discoverySvc service.DiscoveryService,
	locker *cache.Client, logger *zap.Logger) {
	acquired, err := locker.AcquireLock(ctx, sweepLockKey, cfg.Discovery.LockTTL)
	if err != nil {
		logger.Error("failed to acquire sweep lock", zap.Error(err))
		return
	}

	if !acquired {
		logger.Debug("sweep lock held elsewhere, skipping tick")
		return
	}
	defer func() {
		if err := locker.ReleaseLock(ctx, sweepLockKey); err != nil {
			logger.Warn("failed to release sweep lock", zap.Error(err))
		}
	}()

	if err := discoverySvc.Sweep(ctx); err != nil {
		logger.Error("sweep failed", zap.Error(err))
	}
}

func NewDiscoveryService(cfg *config.Config, messageRepo repository.MessageRepository,
	contactRepo repository.MessageContactRepository, enqueuer service.EnqueueService,
	logger *zap.Logger) service.DiscoveryService {
	policy := service.RetryPolicy{
		MaxAttempts:  cfg.Batch.MaxAttempts,
		InitialDelay: cfg.Batch.InitialDelay,
	}

	return service.NewDiscoveryService(messageRepo, contactRepo, enqueuer, policy,
		cfg.Discovery.SweepTimeout, cfg.Discovery.SweepLimit, logger)
}

func NewRedisClient(cfg *config.Config, logger *zap.Logger) *cache.Client {
	return cache.NewClient(cfg.Redis, logger)
}

func NewMQConnection(cfg *config.Config, logger *zap.Logger) (*mq.RabbitMQ, error) {
	return mq.NewConnection(cfg.RabbitMQ, logger)
}

func NewMQPublisher(rabbitMQ *mq.RabbitMQ) (mq.Publisher, error) {
	return rabbitMQ.CreatePublisher()
}

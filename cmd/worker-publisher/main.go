package main

import (
	"context"
	"time"

	"github.com/NDERI007/simflow/internal/config"
	"github.com/NDERI007/simflow/internal/consumers"
	"github.com/NDERI007/simflow/internal/database"
	"github.com/NDERI007/simflow/internal/publishers"
	"github.com/NDERI007/simflow/internal/repository"
	"github.com/NDERI007/simflow/internal/service"
	"github.com/NDERI007/simflow/pkg/mq"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func main() {
	fx.New(
		fx.Provide(
			config.Load,
			zap.NewProduction,

			database.NewConnection,
			NewMQConnection,
			NewMQPublisher,

			repository.NewBatchJobRepository,

			NewBatchQueueService,

			publishers.NewBatchPublisher,
		),
		fx.Invoke(runBatchPublisher),
	).Run()
}

func runBatchPublisher(cfg *config.Config, publisher publishers.BatchPublisher, logger *zap.Logger,
	rabbit *mq.RabbitMQ, lc fx.Lifecycle) {
	appCtx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := rabbit.DeclareTopology(consumers.BatchQueueName); err != nil {
				logger.Error("declare topology failed", zap.Error(err))
				return err
			}

			logger.Info("queue declared", zap.String("queue", consumers.BatchQueueName))

			go func() {
				ticker := time.NewTicker(30 * time.Second)
				defer ticker.Stop()

				for {
					select {
					case <-ticker.C:
						if err := publisher.Publish(appCtx); err != nil {
							logger.Error("failed to publish batch jobs", zap.Error(err))
						}
					case <-appCtx.Done():
						logger.Info("publisher context cancelled")
						return
					}
				}
			}()

			logger.Info("batch publisher started")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("stopping batch publisher")
			cancel()
			return rabbit.Close()
		},
	})
}

func NewBatchQueueService(cfg *config.Config, jobRepo repository.BatchJobRepository,
	logger *zap.Logger) service.BatchQueueService {
	return service.NewBatchQueueService(jobRepo, cfg.Batch.StaleAfter, logger)
}

func NewMQConnection(cfg *config.Config, logger *zap.Logger) (*mq.RabbitMQ, error) {
	return mq.NewConnection(cfg.RabbitMQ, logger)
}

func NewMQPublisher(rabbitMQ *mq.RabbitMQ) (mq.Publisher, error) {
	return rabbitMQ.CreatePublisher()
}

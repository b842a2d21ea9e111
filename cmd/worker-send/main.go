package main

import (
	"context"
	"net/http"

	"github.com/NDERI007/simflow/internal/config"
	"github.com/NDERI007/simflow/internal/consumers"
	"github.com/NDERI007/simflow/internal/database"
	"github.com/NDERI007/simflow/internal/metrics"
	"github.com/NDERI007/simflow/internal/notify"
	"github.com/NDERI007/simflow/internal/repository"
	"github.com/NDERI007/simflow/internal/service"
	"github.com/NDERI007/simflow/pkg/httpclient"
	"github.com/NDERI007/simflow/pkg/mq"
	"github.com/NDERI007/simflow/pkg/smsprovider"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

func main() {
	fx.New(
		fx.Provide(
			config.Load,
			zap.NewProduction,
			database.NewConnection,
			NewMQConnection,
			NewMQConsumer,

			repository.NewBatchJobRepository,
			repository.NewMessageRepository,
			repository.NewMessageContactRepository,
			repository.NewSenderIDRepository,
			repository.NewQuotaRepository,

			NewSMSProvider,
			NewRateLimiter,
			NewNotifier,
			service.NewQuotaService,
			NewDeliveryService,

			NewBatchConsumer,
		),
		fx.Invoke(runBatchConsumer),
	).Run()
}

func runBatchConsumer(cfg *config.Config, batchConsumer consumers.BatchConsumer, logger *zap.Logger,
	rabbit *mq.RabbitMQ, lc fx.Lifecycle,
) {
	appCtx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := rabbit.DeclareTopology(consumers.BatchQueueName); err != nil {
				logger.Error("declare topology failed", zap.Error(err))
				return err
			}
			logger.Info("queue declared", zap.String("queue", consumers.BatchQueueName))

			metrics.Init()
			go func() {
				http.Handle("/metrics", promhttp.Handler())
				if err := http.ListenAndServe(cfg.Batch.MetricsPort, nil); err != nil {
					logger.Error("metrics listener exited", zap.Error(err))
				}
			}()

			go func() {
				if err := batchConsumer.Consume(appCtx); err != nil {
					logger.Error("consumer exited", zap.Error(err))
				}
			}()

			logger.Info("batch consumer started",
				zap.Int("concurrency", cfg.Batch.Concurrency),
				zap.Int("ratePerSecond", cfg.Batch.RatePerSecond))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("stopping batch consumer")
			cancel()
			return rabbit.Close()
		},
	})
}

func NewSMSProvider(cfg *config.Config) smsprovider.Provider {
	client := httpclient.NewHTTPClient(cfg.Provider.Timeout)
	return smsprovider.NewSMSProvider(cfg.Provider, client)
}

func NewRateLimiter(cfg *config.Config) *rate.Limiter {
	return rate.NewLimiter(rate.Limit(cfg.Batch.RatePerSecond), cfg.Batch.RatePerSecond)
}

func NewNotifier(cfg *config.Config, logger *zap.Logger) service.Notifier {
	return notify.NewMailer(cfg.Alerts, logger)
}

func NewDeliveryService(cfg *config.Config, jobRepo repository.BatchJobRepository,
	messageRepo repository.MessageRepository, contactRepo repository.MessageContactRepository,
	senderRepo repository.SenderIDRepository, provider smsprovider.Provider, quota service.QuotaService,
	notifier service.Notifier, limiter *rate.Limiter, logger *zap.Logger) service.DeliveryService {
	return service.NewDeliveryService(jobRepo, messageRepo, contactRepo, senderRepo,
		provider, quota, notifier, limiter, cfg.Batch.StaleAfter, logger)
}

func NewBatchConsumer(cfg *config.Config, deliverySvc service.DeliveryService, consumer mq.Consumer,
	logger *zap.Logger) consumers.BatchConsumer {
	return consumers.NewBatchConsumer(deliverySvc, consumer, cfg.Batch.Concurrency, logger)
}

func NewMQConnection(cfg *config.Config, logger *zap.Logger) (*mq.RabbitMQ, error) {
	return mq.NewConnection(cfg.RabbitMQ, logger)
}

func NewMQConsumer(rabbitMQ *mq.RabbitMQ) (mq.Consumer, error) {
	return rabbitMQ.CreateConsumer()
}

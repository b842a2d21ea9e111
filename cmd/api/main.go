package main

import (
	"context"

	"github.com/NDERI007/simflow/internal/api"
	v1 "github.com/NDERI007/simflow/internal/api/v1"
	"github.com/NDERI007/simflow/internal/config"
	"github.com/NDERI007/simflow/internal/consumers"
	"github.com/NDERI007/simflow/internal/database"
	middleware "github.com/NDERI007/simflow/internal/error"
	"github.com/NDERI007/simflow/internal/repository"
	"github.com/NDERI007/simflow/internal/service"
	"github.com/NDERI007/simflow/internal/sms"
	"github.com/NDERI007/simflow/pkg/mq"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	fx.New(
		fx.Provide(
			config.Load,
			zap.NewProduction,
			database.NewConnection,
			NewMQConnection,
			NewMQPublisher,
			NewFiberApp,
			NewPhoneNormalizer,
			sms.NewRecipientPreparer,

			repository.NewMessageRepository,
			repository.NewMessageContactRepository,
			repository.NewQuotaRepository,
			repository.NewBatchJobRepository,
			repository.NewTransactionManager,

			service.NewQuotaService,
			service.NewEnqueueService,
			NewRetryPolicy,
			service.NewMessageWorkflowService,

			v1.NewHandler,
		),
		fx.Invoke(startServer),
	).Run()
}

func startServer(app *fiber.App, handler *v1.Handler, cfg *config.Config, rabbit *mq.RabbitMQ,
	db *gorm.DB, lc fx.Lifecycle,
) {
	api.SetupRoutes(app, handler)
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := rabbit.DeclareTopology(consumers.BatchQueueName); err != nil {
				return err
			}

			if err := database.Migrate(db); err != nil {
				return err
			}

			go app.Listen(cfg.API.Port)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			if err := app.ShutdownWithContext(ctx); err != nil {
				return err
			}
			return rabbit.Close()
		},
	})
}

func NewFiberApp() *fiber.App {
	return fiber.New(fiber.Config{ErrorHandler: middleware.ErrorHandler()})
}

func NewPhoneNormalizer(logger *zap.Logger) *sms.PhoneNormalizer {
	return sms.NewPhoneNormalizer(logger, false)
}

func NewRetryPolicy(cfg *config.Config) service.RetryPolicy {
	return service.RetryPolicy{
		MaxAttempts:  cfg.Batch.MaxAttempts,
		InitialDelay: cfg.Batch.InitialDelay,
	}
}

func NewMQConnection(cfg *config.Config, logger *zap.Logger) (*mq.RabbitMQ, error) {
	return mq.NewConnection(cfg.RabbitMQ, logger)
}

func NewMQPublisher(rabbitMQ *mq.RabbitMQ) (mq.Publisher, error) {
	return rabbitMQ.CreatePublisher()
}

package consumers

import (
	"context"
	"encoding/json"

	"github.com/NDERI007/simflow/internal/service"
	"github.com/NDERI007/simflow/pkg/mq"
	"go.uber.org/zap"
)

// BatchQueueName is the durable queue carrying batch child jobs.
const BatchQueueName = "sms.batch"

type BatchConsumer interface {
	Consume(ctx context.Context) error
}

type batchConsumer struct {
	service     service.DeliveryService
	consumer    mq.Consumer
	concurrency int
	logger      *zap.Logger
}

func NewBatchConsumer(service service.DeliveryService, consumer mq.Consumer, concurrency int,
	logger *zap.Logger) BatchConsumer {
	return &batchConsumer{
		service:     service,
		consumer:    consumer,
		concurrency: concurrency,
		logger:      logger,
	}
}

func (b *batchConsumer) Consume(ctx context.Context) error {
	return b.consumer.Consume(ctx, b.concurrency, BatchQueueName, b.handleMessage)
}

func (b *batchConsumer) handleMessage(ctx context.Context, body []byte) error {
	var cmd service.BatchJobCommand
	if err := json.Unmarshal(body, &cmd); err != nil {
		b.logger.Warn("invalid batch job payload", zap.Error(err))
		return err
	}

	b.logger.Info("received batch job",
		zap.String("jobID", cmd.JobID),
		zap.Int64("messageID", cmd.MessageID),
		zap.Int("recipients", len(cmd.ToNumbers)))

	return b.service.ProcessBatch(ctx, cmd)
}

package publishers

import (
	"context"
	"encoding/json"

	"github.com/NDERI007/simflow/internal/service"
	"github.com/NDERI007/simflow/pkg/mq"
	"go.uber.org/zap"
)

const batchQueueName = "sms.batch"

// BatchPublisher drains the job table onto the wire: never-published jobs and
// jobs whose retry delay has elapsed.
type BatchPublisher interface {
	Publish(ctx context.Context) error
}

type batchPublisher struct {
	service   service.BatchQueueService
	publisher mq.Publisher
	logger    *zap.Logger
}

func NewBatchPublisher(service service.BatchQueueService, publisher mq.Publisher, logger *zap.Logger) BatchPublisher {
	return &batchPublisher{service: service, publisher: publisher, logger: logger}
}

func (b *batchPublisher) Publish(ctx context.Context) error {
	jobs, err := b.service.FindJobsToQueue(ctx, 100)
	if err != nil {
		return err
	}

	if len(jobs) == 0 {
		return nil
	}

	b.logger.Info("Publishing batch jobs", zap.Int("count", len(jobs)))

	successCount := 0
	for _, job := range jobs {
		body, _ := json.Marshal(job)
		if err := b.publisher.Publish(ctx, "", batchQueueName, body); err != nil {
			b.logger.Error("Failed to publish batch job",
				zap.Error(err),
				zap.String("jobID", job.JobID))
			continue
		}

		if err := b.service.MarkJobAsQueued(ctx, job.JobID); err != nil {
			continue
		}

		successCount++
	}

	if successCount > 0 {
		b.logger.Info("Successfully published batch jobs",
			zap.Int("published", successCount),
			zap.Int("total", len(jobs)))
	}

	return nil
}

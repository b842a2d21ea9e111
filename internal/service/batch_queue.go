package service

import (
	"context"
	"time"

	"github.com/NDERI007/simflow/internal/model"
	"github.com/NDERI007/simflow/internal/repository"
	"go.uber.org/zap"
)

// BatchQueueService feeds the republisher: it finds jobs that should be on
// the wire, either never published, due for their next attempt, or stuck
// RUNNING past the stale threshold on a worker that died. Jobs that have run
// out of attempts are still republished once more so the delivery worker can
// record the terminal failure and issue the refund.
type BatchQueueService interface {
	FindJobsToQueue(ctx context.Context, limit int) ([]BatchJobCommand, error)
	MarkJobAsQueued(ctx context.Context, jobID string) error
}

type batchQueue struct {
	jobRepo    repository.BatchJobRepository
	staleAfter time.Duration
	logger     *zap.Logger
}

func NewBatchQueueService(jobRepo repository.BatchJobRepository, staleAfter time.Duration,
	logger *zap.Logger) BatchQueueService {
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}

	return &batchQueue{jobRepo: jobRepo, staleAfter: staleAfter, logger: logger}
}

func (b *batchQueue) FindJobsToQueue(ctx context.Context, limit int) ([]BatchJobCommand, error) {
	b.logger.Debug("Finding batch jobs to publish", zap.Int("batchSize", limit))

	jobs, err := b.jobRepo.FindDue(ctx, time.Now(), time.Now().Add(-b.staleAfter), limit)
	if err != nil {
		b.logger.Error("Failed to find due batch jobs", zap.Error(err))
		return nil, err
	}

	if len(jobs) == 0 {
		b.logger.Debug("No batch jobs due for publishing")
		return nil, nil
	}

	commands := make([]BatchJobCommand, 0, len(jobs))
	for _, job := range jobs {
		commands = append(commands, toCommand(job))
	}

	return commands, nil
}

func (b *batchQueue) MarkJobAsQueued(ctx context.Context, jobID string) error {
	if err := b.jobRepo.MarkQueued(ctx, jobID); err != nil {
		b.logger.Error("Failed to mark batch job as queued",
			zap.String("jobID", jobID),
			zap.Error(err))
		return err
	}

	return nil
}

func toCommand(job model.BatchJob) BatchJobCommand {
	return BatchJobCommand{
		JobID:              job.ID,
		MessageID:          job.MessageID,
		UserID:             job.UserID,
		Message:            job.Body,
		ToNumbers:          job.Phones,
		ContactMap:         job.ContactMap,
		SegmentsPerMessage: job.SegmentsPerMessage,
		Metadata:           BatchMetadata{Source: job.Source, BatchIndex: job.BatchIndex},
	}
}

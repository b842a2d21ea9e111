package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/NDERI007/simflow/internal/model"
	"github.com/NDERI007/simflow/internal/repository"
	"github.com/NDERI007/simflow/pkg/mq"
	"go.uber.org/zap"
)

// BatchSize is the fixed recipient count per child job.
const BatchSize = 500

const batchQueueName = "sms.batch"

// EnqueueService splits a prepared message into the parent+children job
// graph, debits quota once for the whole message, and publishes the children.
// Deterministic ids make the whole operation safe to repeat.
type EnqueueService interface {
	Enqueue(ctx context.Context, cmd EnqueueMessageCommand) error
}

type enqueue struct {
	jobRepo   repository.BatchJobRepository
	quota     QuotaService
	publisher mq.Publisher
	logger    *zap.Logger
}

func NewEnqueueService(jobRepo repository.BatchJobRepository, quota QuotaService,
	publisher mq.Publisher, logger *zap.Logger) EnqueueService {
	return &enqueue{jobRepo: jobRepo, quota: quota, publisher: publisher, logger: logger}
}

func (e *enqueue) Enqueue(ctx context.Context, cmd EnqueueMessageCommand) error {
	if cmd.Recipients.TotalRecipients == 0 {
		return errors.New("refusing to enqueue message with zero recipients")
	}

	parent, children := e.buildGraph(cmd)

	err := e.jobRepo.CreateGraph(ctx, parent, children)
	if err != nil && !errors.Is(err, repository.ErrJobDuplicate) {
		e.logger.Error("Failed to persist batch job graph",
			zap.Int64("messageID", cmd.MessageID),
			zap.Error(err))
		return ErrDatabase
	}

	if errors.Is(err, repository.ErrJobDuplicate) {
		e.logger.Info("Batch job graph already exists, re-enqueue is a no-op",
			zap.Int64("messageID", cmd.MessageID))
	}

	// Whichever actor gets here first pays for the message; the ledger key
	// makes the duplicate attempt a no-op.
	reason := model.QuotaReasonSendSMS
	if cmd.Source == SourceScheduler {
		reason = model.QuotaReasonScheduledSend
	}

	debit := QuotaMutationCommand{
		UserID:    cmd.UserID,
		Amount:    cmd.Recipients.TotalSegments,
		Reason:    reason,
		RelatedID: fmt.Sprintf("%d", cmd.MessageID),
	}

	if err := e.quota.Debit(ctx, debit); err != nil {
		if errors.Is(err, ErrInsufficientQuota) {
			// The graph is already persisted and the republisher picks up
			// every pending job, so an unpaid message must be cancelled
			// before returning or it goes on the wire for free.
			e.cancelGraph(ctx, cmd.MessageID, children)
			return err
		}

		e.logger.Error("Quota debit failed during enqueue",
			zap.Int64("messageID", cmd.MessageID),
			zap.Error(err))
		return err
	}

	return e.publishChildren(ctx, cmd, children)
}

// cancelGraph marks every child terminally failed. Child ids are
// deterministic, so this also finds the rows of a duplicate re-enqueue.
func (e *enqueue) cancelGraph(ctx context.Context, messageID int64, children []model.BatchJob) {
	for _, child := range children {
		if err := e.jobRepo.MarkFailedPerm(ctx, child.ID, "INSUFFICIENT_QUOTA"); err != nil {
			e.logger.Error("Failed to cancel unpaid batch job",
				zap.String("jobID", child.ID),
				zap.Error(err))
		}
	}

	e.logger.Warn("Batch job graph cancelled, quota debit refused",
		zap.Int64("messageID", messageID),
		zap.Int("batches", len(children)))
}

func (e *enqueue) buildGraph(cmd EnqueueMessageCommand) (*model.BatchParent, []model.BatchJob) {
	phones := cmd.Recipients.Phones

	parent := &model.BatchParent{
		ID:              fmt.Sprintf("flow-%d", cmd.MessageID),
		MessageID:       cmd.MessageID,
		TotalRecipients: cmd.Recipients.TotalRecipients,
		CreatedAt:       time.Now(),
	}

	var children []model.BatchJob
	for index := 0; index*BatchSize < len(phones); index++ {
		start := index * BatchSize
		end := start + BatchSize
		if end > len(phones) {
			end = len(phones)
		}

		slice := phones[start:end]
		contactMap := make(map[string]*int64, len(slice))
		for _, phone := range slice {
			contactMap[phone] = cmd.Recipients.ContactMap[phone]
		}

		children = append(children, model.BatchJob{
			ID:                 fmt.Sprintf("sms-%d-batch-%d", cmd.MessageID, index),
			ParentID:           parent.ID,
			MessageID:          cmd.MessageID,
			UserID:             cmd.UserID,
			BatchIndex:         index,
			Body:               cmd.Body,
			Phones:             slice,
			ContactMap:         contactMap,
			SegmentsPerMessage: cmd.Recipients.SegmentsPerMessage,
			Source:             cmd.Source,
			Status:             model.BatchJobStatusPending,
			AttemptCount:       0,
			MaxAttempts:        cmd.Policy.MaxAttempts,
			InitialDelayMS:     cmd.Policy.InitialDelay.Milliseconds(),
			CreatedAt:          time.Now(),
			UpdatedAt:          time.Now(),
		})
	}

	parent.ChildCount = len(children)

	return parent, children
}

func (e *enqueue) publishChildren(ctx context.Context, cmd EnqueueMessageCommand, children []model.BatchJob) error {
	published := 0
	for _, child := range children {
		payload := BatchJobCommand{
			JobID:              child.ID,
			MessageID:          child.MessageID,
			UserID:             cmd.UserID,
			Message:            child.Body,
			ToNumbers:          child.Phones,
			ContactMap:         child.ContactMap,
			SegmentsPerMessage: child.SegmentsPerMessage,
			Metadata:           BatchMetadata{Source: cmd.Source, BatchIndex: child.BatchIndex},
		}

		body, _ := json.Marshal(payload)
		if err := e.publisher.Publish(ctx, "", batchQueueName, body); err != nil {
			// The publisher worker re-publishes pending jobs, so a publish
			// failure here delays the batch rather than losing it.
			e.logger.Warn("Failed to publish batch job, leaving for republisher",
				zap.String("jobID", child.ID),
				zap.Error(err))
			continue
		}

		if err := e.jobRepo.MarkQueued(ctx, child.ID); err != nil {
			e.logger.Warn("Failed to mark batch job as queued",
				zap.String("jobID", child.ID),
				zap.Error(err))
			continue
		}

		published++
	}

	e.logger.Info("Message enqueued",
		zap.Int64("messageID", cmd.MessageID),
		zap.Int("batches", len(children)),
		zap.Int("published", published),
		zap.Int("recipients", cmd.Recipients.TotalRecipients))

	return nil
}

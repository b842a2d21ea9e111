package service

import (
	"context"
	"time"

	"github.com/NDERI007/simflow/internal/model"
	"github.com/NDERI007/simflow/internal/repository"
	"github.com/NDERI007/simflow/internal/sms"
	"go.uber.org/zap"
)

// DiscoveryService is the cron half of the pipeline: each sweep finds due
// scheduled messages and hands them to the enqueuer. The sweep runs under a
// deadline so a slow database cannot pile sweeps on top of each other.
type DiscoveryService interface {
	Sweep(ctx context.Context) error
}

type discovery struct {
	messageRepo repository.MessageRepository
	contactRepo repository.MessageContactRepository
	enqueuer    EnqueueService
	policy      RetryPolicy
	timeout     time.Duration
	limit       int
	logger      *zap.Logger
}

func NewDiscoveryService(messageRepo repository.MessageRepository, contactRepo repository.MessageContactRepository,
	enqueuer EnqueueService, policy RetryPolicy, timeout time.Duration, limit int,
	logger *zap.Logger) DiscoveryService {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if limit <= 0 {
		limit = 100
	}

	return &discovery{
		messageRepo: messageRepo,
		contactRepo: contactRepo,
		enqueuer:    enqueuer,
		policy:      policy,
		timeout:     timeout,
		limit:       limit,
		logger:      logger,
	}
}

func (d *discovery) Sweep(ctx context.Context) error {
	sweepCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	due, err := d.messageRepo.FindDueScheduled(sweepCtx, time.Now(), d.limit)
	if err != nil {
		d.logger.Error("Failed to find due scheduled messages", zap.Error(err))
		return err
	}

	if len(due) == 0 {
		d.logger.Debug("No scheduled messages due")
		return nil
	}

	d.logger.Info("Enqueueing due scheduled messages", zap.Int("count", len(due)))

	for _, message := range due {
		if sweepCtx.Err() != nil {
			d.logger.Warn("Sweep deadline reached, remaining messages wait for next tick",
				zap.Error(sweepCtx.Err()))
			return sweepCtx.Err()
		}

		recipients, err := d.recipientsFor(sweepCtx, message.ID)
		if err != nil {
			d.logger.Error("Failed to rebuild recipients for scheduled message",
				zap.Int64("messageID", message.ID),
				zap.Error(err))
			continue
		}

		if recipients.TotalRecipients == 0 {
			d.logger.Warn("Scheduled message has no recipients, skipping",
				zap.Int64("messageID", message.ID))
			continue
		}

		cmd := EnqueueMessageCommand{
			MessageID:  message.ID,
			UserID:     message.UserID,
			Body:       message.Body,
			Recipients: recipients,
			Source:     SourceScheduler,
			Policy:     d.policy,
		}

		if err := d.enqueuer.Enqueue(sweepCtx, cmd); err != nil {
			d.logger.Error("Failed to enqueue scheduled message",
				zap.Int64("messageID", message.ID),
				zap.Error(err))
			continue
		}
	}

	return nil
}

// recipientsFor reconstructs the RecipientSet from the pending contact rows
// written at submission time. Phones were canonicalized then, so this is a
// read + re-price, not a re-validation.
func (d *discovery) recipientsFor(ctx context.Context, messageID int64) (sms.RecipientSet, error) {
	pending, err := d.contactRepo.ListByMessageAndStatus(ctx, messageID, model.ContactStatusPending)
	if err != nil {
		return sms.RecipientSet{}, err
	}

	phones := make([]string, 0, len(pending))
	contactMap := make(map[string]*int64, len(pending))
	for _, contact := range pending {
		phones = append(phones, contact.Phone)
		contactMap[contact.Phone] = contact.ContactID
	}

	msg, err := d.messageRepo.GetByID(messageID)
	if err != nil {
		return sms.RecipientSet{}, err
	}

	segments := msg.SegmentsPerMessage

	return sms.RecipientSet{
		Phones:             phones,
		ContactMap:         contactMap,
		TotalRecipients:    len(phones),
		SegmentsPerMessage: segments,
		TotalSegments:      int64(len(phones)) * int64(segments),
	}, nil
}

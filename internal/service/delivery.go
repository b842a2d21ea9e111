package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/NDERI007/simflow/internal/metrics"
	"github.com/NDERI007/simflow/internal/model"
	"github.com/NDERI007/simflow/internal/repository"
	"github.com/NDERI007/simflow/pkg/mq"
	"github.com/NDERI007/simflow/pkg/smsprovider"
	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// DeliveryService runs one batch-job attempt end to end:
// resolve sender -> dispatch -> persist outcomes -> settle message status ->
// settle quota. Failure branches either schedule the next attempt
// (FAILED_TEMP + next_attempt_at) or go straight to terminal failure.
type DeliveryService interface {
	ProcessBatch(ctx context.Context, cmd BatchJobCommand) error
}

type Notifier interface {
	QuotaApplyFailed(userID string, messageID int64, amount int64, cause string) error
}

// DefaultStaleAfter bounds how long a RUNNING job stays claimed by a worker
// that may no longer exist.
const DefaultStaleAfter = 5 * time.Minute

type delivery struct {
	jobRepo     repository.BatchJobRepository
	messageRepo repository.MessageRepository
	contactRepo repository.MessageContactRepository
	senderRepo  repository.SenderIDRepository
	provider    smsprovider.Provider
	quota       QuotaService
	notifier    Notifier
	limiter     *rate.Limiter
	staleAfter  time.Duration
	logger      *zap.Logger
}

func NewDeliveryService(jobRepo repository.BatchJobRepository, messageRepo repository.MessageRepository,
	contactRepo repository.MessageContactRepository, senderRepo repository.SenderIDRepository,
	provider smsprovider.Provider, quota QuotaService, notifier Notifier, limiter *rate.Limiter,
	staleAfter time.Duration, logger *zap.Logger) DeliveryService {
	if staleAfter <= 0 {
		staleAfter = DefaultStaleAfter
	}

	return &delivery{
		jobRepo:     jobRepo,
		messageRepo: messageRepo,
		contactRepo: contactRepo,
		senderRepo:  senderRepo,
		provider:    provider,
		quota:       quota,
		notifier:    notifier,
		limiter:     limiter,
		staleAfter:  staleAfter,
		logger:      logger,
	}
}

func (d *delivery) ProcessBatch(ctx context.Context, cmd BatchJobCommand) error {
	job, err := d.getJobForProcessing(ctx, cmd.JobID)
	if err != nil {
		if errors.Is(err, ErrDatabase) {
			return mq.Temporary(err)
		}

		return nil
	}

	attempt := job.AttemptCount + 1
	if err := d.jobRepo.MarkRunning(ctx, cmd.JobID, attempt, time.Now().Add(-d.staleAfter)); err != nil {
		if errors.Is(err, repository.ErrNoRowsAffected) {
			d.logger.Info("Batch job claimed by another worker",
				zap.String("jobID", cmd.JobID))
			return nil
		}

		return mq.Temporary(err)
	}

	sender, err := d.senderRepo.GetByUserID(ctx, cmd.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrSenderNotFound) {
			// Configuration error: no amount of retrying conjures a sender id.
			d.logger.Error("User has no registered sender id",
				zap.String("userID", cmd.UserID),
				zap.Int64("messageID", cmd.MessageID))
			return d.failTerminally(ctx, job, cmd, "MISSING_SENDER_ID")
		}

		return d.failAttempt(ctx, job, cmd, attempt, "sender lookup failed: "+err.Error())
	}

	if err := d.limiter.Wait(ctx); err != nil {
		return mq.Temporary(err)
	}

	results := d.provider.SendBatch(ctx, cmd.ToNumbers, cmd.Message, sender.SenderID)
	metrics.BatchesDispatched.Inc()

	if err := d.persistOutcomes(ctx, cmd, results); err != nil {
		// Transient storage fault, not a message fault: retriable.
		d.logger.Error("Failed to persist delivery outcomes",
			zap.String("jobID", cmd.JobID),
			zap.Error(err))
		return d.failAttempt(ctx, job, cmd, attempt, "outcome persistence failed: "+err.Error())
	}

	succeeded, failed, nonRetriable := tally(results)
	metrics.RecipientsSent.Add(float64(succeeded))
	metrics.RecipientsFailed.Add(float64(failed))

	if succeeded == 0 {
		if nonRetriable > 0 {
			d.logger.Error("Batch rejected permanently by gateway",
				zap.String("jobID", cmd.JobID),
				zap.Int("failed", failed),
				zap.Int("nonRetriable", nonRetriable))
			return d.failTerminally(ctx, job, cmd, "all recipients failed with permanent rejection")
		}

		return d.failAttempt(ctx, job, cmd, attempt, "all recipients failed with transient errors")
	}

	if failed > 0 {
		d.logger.Warn("Batch partially failed, recipients recorded for accounting",
			zap.String("jobID", cmd.JobID),
			zap.Int("succeeded", succeeded),
			zap.Int("failed", failed))
	}

	d.markMessageSent(ctx, cmd.MessageID)
	d.settleQuota(ctx, cmd)

	if err := d.jobRepo.MarkCompleted(ctx, cmd.JobID); err != nil {
		d.logger.Warn("Failed to remove completed batch job",
			zap.String("jobID", cmd.JobID),
			zap.Error(err))
	}

	d.logger.Info("Batch delivered",
		zap.String("jobID", cmd.JobID),
		zap.Int64("messageID", cmd.MessageID),
		zap.Int("succeeded", succeeded),
		zap.Int("failed", failed),
		zap.Int("attempt", attempt))

	return nil
}

func (d *delivery) getJobForProcessing(ctx context.Context, jobID string) (*model.BatchJob, error) {
	job, err := d.jobRepo.GetByID(ctx, jobID)
	if err != nil {
		if errors.Is(err, repository.ErrJobNotFound) {
			// Completed jobs are deleted; a missing job is a duplicate delivery.
			d.logger.Info("Batch job no longer exists, skipping",
				zap.String("jobID", jobID))
			return nil, ErrJobAlreadyProcessed
		}

		return nil, ErrDatabase
	}

	switch job.Status {
	case model.BatchJobStatusPending, model.BatchJobStatusQueued, model.BatchJobStatusFailedTemp:
		return job, nil

	case model.BatchJobStatusRunning:
		if time.Since(job.UpdatedAt) >= d.staleAfter {
			// The claiming worker died mid-attempt; the status-guarded
			// MarkRunning below still arbitrates if it comes back.
			d.logger.Warn("Reclaiming stale running batch job",
				zap.String("jobID", jobID),
				zap.Time("lastUpdate", job.UpdatedAt))
			return job, nil
		}

		d.logger.Warn("Batch job already running on another worker",
			zap.String("jobID", jobID))
		return nil, ErrJobBeingProcessed

	case model.BatchJobStatusFailedPerm:
		d.logger.Info("Batch job already failed permanently",
			zap.String("jobID", jobID))
		return nil, ErrJobBeingProcessed

	default:
		d.logger.Error("Unknown batch job status",
			zap.String("jobID", jobID),
			zap.String("status", string(job.Status)))
		return nil, ErrJobBeingProcessed
	}
}

func (d *delivery) persistOutcomes(ctx context.Context, cmd BatchJobCommand, results []smsprovider.Result) error {
	contacts := make([]model.MessageContact, 0, len(results))
	for _, result := range results {
		status := model.ContactStatusSuccess
		var lastError *string
		if result.Status == smsprovider.StatusFailed {
			status = model.ContactStatusFailed
			msg := result.Message
			lastError = &msg
		}

		code := result.Code
		contacts = append(contacts, model.MessageContact{
			MessageID: cmd.MessageID,
			Phone:     result.Phone,
			ContactID: cmd.ContactMap[result.Phone],
			Status:    status,
			Code:      &code,
			LastError: lastError,
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		})
	}

	return d.contactRepo.UpsertBatch(ctx, contacts)
}

// markMessageSent flips the message under the queued/scheduled guard.
// Batches complete in any order, so losing the race is normal.
func (d *delivery) markMessageSent(ctx context.Context, messageID int64) {
	err := d.messageRepo.MarkSent(ctx, messageID, time.Now())
	if err == nil || errors.Is(err, repository.ErrNoRowsAffected) {
		return
	}

	d.logger.Warn("Failed to mark message as sent",
		zap.Int64("messageID", messageID),
		zap.Error(err))
}

// settleQuota re-attempts the once-per-message debit. The enqueuer normally
// paid already, making this a duplicate-key no-op. A failure here is logged
// and alerted, never escalated: the send itself succeeded and a retry storm
// over bookkeeping would be worse than the gap.
func (d *delivery) settleQuota(ctx context.Context, cmd BatchJobCommand) {
	// The reason must match what the enqueuer used so the ledger key lines
	// up and the duplicate attempt stays a no-op.
	reason := model.QuotaReasonSendSMS
	if cmd.Metadata.Source == SourceScheduler {
		reason = model.QuotaReasonScheduledSend
	}

	debit := QuotaMutationCommand{
		UserID:    cmd.UserID,
		Amount:    int64(len(cmd.ToNumbers)) * int64(cmd.SegmentsPerMessage),
		Reason:    reason,
		RelatedID: fmt.Sprintf("%d", cmd.MessageID),
	}

	operation := func() error {
		err := d.quota.Debit(ctx, debit)
		if errors.Is(err, ErrInsufficientQuota) {
			return backoff.Permanent(err)
		}
		return err
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 200 * time.Millisecond
	policy.MaxElapsedTime = 5 * time.Second

	err := backoff.Retry(operation, backoff.WithContext(policy, ctx))
	if err == nil {
		return
	}

	metrics.QuotaApplyFailures.Inc()
	d.logger.Warn("Quota application failed after send, needs reconciliation",
		zap.Int64("messageID", cmd.MessageID),
		zap.String("userID", cmd.UserID),
		zap.Error(err))

	if notifyErr := d.notifier.QuotaApplyFailed(cmd.UserID, cmd.MessageID, debit.Amount, err.Error()); notifyErr != nil {
		d.logger.Error("Failed to alert operators about quota gap",
			zap.Int64("messageID", cmd.MessageID),
			zap.Error(notifyErr))
	}
}

// failAttempt schedules the next attempt, or converts to terminal failure
// when the attempt budget is spent.
func (d *delivery) failAttempt(ctx context.Context, job *model.BatchJob, cmd BatchJobCommand,
	attempt int, reason string) error {

	if attempt >= job.MaxAttempts {
		d.logger.Warn("Batch job exhausted its attempts",
			zap.String("jobID", cmd.JobID),
			zap.Int("attempts", attempt),
			zap.String("reason", reason))
		return d.failTerminally(ctx, job, cmd, "exceeded max attempts: "+reason)
	}

	delay := backoffDelay(job.InitialDelayMS, attempt)
	nextAttempt := time.Now().Add(delay)

	if err := d.jobRepo.MarkFailedTemp(ctx, cmd.JobID, nextAttempt, reason); err != nil {
		d.logger.Error("Failed to schedule batch job retry",
			zap.String("jobID", cmd.JobID),
			zap.Error(err))
		return mq.Temporary(err)
	}

	d.logger.Info("Batch job scheduled for retry",
		zap.String("jobID", cmd.JobID),
		zap.Int("attempt", attempt),
		zap.Int("maxAttempts", job.MaxAttempts),
		zap.Duration("delay", delay))

	return nil
}

// failTerminally is the queue's terminal-failure callback: record the
// permanent job failure, mark the message failed under the status guard, and
// refund the failed fraction exactly once.
func (d *delivery) failTerminally(ctx context.Context, job *model.BatchJob, cmd BatchJobCommand, reason string) error {
	if err := d.jobRepo.MarkFailedPerm(ctx, cmd.JobID, reason); err != nil {
		d.logger.Error("Failed to record permanent batch failure",
			zap.String("jobID", cmd.JobID),
			zap.Error(err))
		return mq.Temporary(err)
	}

	err := d.messageRepo.MarkFailed(ctx, cmd.MessageID, time.Now(), reason)
	if errors.Is(err, repository.ErrNoRowsAffected) {
		// Another batch already settled the message; the refund belongs to
		// whichever actor actually flipped the status.
		d.logger.Info("Message already settled, skipping refund",
			zap.Int64("messageID", cmd.MessageID))
		return mq.Unrecoverable(errors.New(reason))
	}

	if err != nil {
		d.logger.Error("Failed to mark message as failed",
			zap.Int64("messageID", cmd.MessageID),
			zap.Error(err))
		return mq.Temporary(err)
	}

	d.refundFailedRecipients(ctx, cmd)

	// Unrecoverable tells the queue this job must never run again.
	return mq.Unrecoverable(errors.New(reason))
}

func (d *delivery) refundFailedRecipients(ctx context.Context, cmd BatchJobCommand) {
	failedCount, err := d.contactRepo.CountByMessageAndStatus(ctx, cmd.MessageID, model.ContactStatusFailed)
	if err != nil {
		d.logger.Error("Failed to count failed recipients for refund",
			zap.Int64("messageID", cmd.MessageID),
			zap.Error(err))
		return
	}

	if failedCount == 0 {
		// Terminal failure before any outcome row was written (for example
		// a missing sender id): refund what was charged for the batch.
		failedCount = int64(len(cmd.ToNumbers))
	}

	refund := QuotaMutationCommand{
		UserID:    cmd.UserID,
		Amount:    failedCount * int64(cmd.SegmentsPerMessage),
		Reason:    model.QuotaReasonRetriesExhausted,
		RelatedID: fmt.Sprintf("%d", cmd.MessageID),
	}

	if err := d.quota.Credit(ctx, refund); err != nil {
		d.logger.Error("Refund failed, needs manual reconciliation",
			zap.Int64("messageID", cmd.MessageID),
			zap.Int64("amount", refund.Amount),
			zap.Error(err))
		return
	}

	metrics.RefundsIssued.Inc()
	d.logger.Info("Refund issued for exhausted retries",
		zap.Int64("messageID", cmd.MessageID),
		zap.Int64("failedRecipients", failedCount),
		zap.Int64("amount", refund.Amount))
}

func tally(results []smsprovider.Result) (succeeded, failed, nonRetriable int) {
	for _, result := range results {
		if result.Status == smsprovider.StatusSuccess {
			succeeded++
			continue
		}

		failed++
		if result.Type == smsprovider.TypeNonRetriable {
			nonRetriable++
		}
	}

	return succeeded, failed, nonRetriable
}

// backoffDelay is initialDelay * 2^(attempt-1).
func backoffDelay(initialDelayMS int64, attempt int) time.Duration {
	delay := time.Duration(initialDelayMS) * time.Millisecond
	for i := 1; i < attempt; i++ {
		delay *= 2
	}

	return delay
}

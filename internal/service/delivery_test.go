package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/NDERI007/simflow/internal/mocks"
	"github.com/NDERI007/simflow/internal/model"
	"github.com/NDERI007/simflow/internal/repository"
	"github.com/NDERI007/simflow/internal/service"
	"github.com/NDERI007/simflow/pkg/smsprovider"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type deliveryMocks struct {
	jobRepo     *mocks.BatchJobRepository
	messageRepo *mocks.MessageRepository
	contactRepo *mocks.MessageContactRepository
	senderRepo  *mocks.SenderIDRepository
	provider    *mocks.Provider
	quota       *mocks.QuotaService
	notifier    *mocks.Notifier
}

func newDelivery(t *testing.T) (service.DeliveryService, *deliveryMocks) {
	t.Helper()

	m := &deliveryMocks{
		jobRepo:     &mocks.BatchJobRepository{},
		messageRepo: &mocks.MessageRepository{},
		contactRepo: &mocks.MessageContactRepository{},
		senderRepo:  &mocks.SenderIDRepository{},
		provider:    &mocks.Provider{},
		quota:       &mocks.QuotaService{},
		notifier:    &mocks.Notifier{},
	}

	svc := service.NewDeliveryService(m.jobRepo, m.messageRepo, m.contactRepo, m.senderRepo,
		m.provider, m.quota, m.notifier, rate.NewLimiter(rate.Inf, 1), 5*time.Minute, zap.NewNop())

	return svc, m
}

func batchCommand() service.BatchJobCommand {
	return service.BatchJobCommand{
		JobID:              "sms-42-batch-0",
		MessageID:          42,
		UserID:             "user-1",
		Message:            "hello",
		ToNumbers:          []string{"79161234567", "79261234567", "79361234567"},
		ContactMap:         map[string]*int64{},
		SegmentsPerMessage: 2,
		Metadata:           service.BatchMetadata{Source: service.SourceAPI, BatchIndex: 0},
	}
}

func pendingJob() *model.BatchJob {
	return &model.BatchJob{
		ID:             "sms-42-batch-0",
		ParentID:       "flow-42",
		MessageID:      42,
		UserID:         "user-1",
		Status:         model.BatchJobStatusQueued,
		AttemptCount:   0,
		MaxAttempts:    3,
		InitialDelayMS: 30000,
		UpdatedAt:      time.Now(),
	}
}

func successResults(phones []string) []smsprovider.Result {
	results := make([]smsprovider.Result, 0, len(phones))
	for _, phone := range phones {
		results = append(results, smsprovider.Result{
			Phone:  phone,
			Status: smsprovider.StatusSuccess,
			Code:   smsprovider.CodeSuccess,
		})
	}
	return results
}

func failedResults(phones []string, code string) []smsprovider.Result {
	results := make([]smsprovider.Result, 0, len(phones))
	for _, phone := range phones {
		results = append(results, smsprovider.Result{
			Phone:   phone,
			Status:  smsprovider.StatusFailed,
			Code:    code,
			Message: "rejected",
			Type:    smsprovider.Classify(code),
		})
	}
	return results
}

func TestDelivery_ProcessBatch(t *testing.T) {
	ctx := context.Background()

	t.Run("delivers full batch and settles message", func(t *testing.T) {
		svc, m := newDelivery(t)
		cmd := batchCommand()

		m.jobRepo.On("GetByID", ctx, cmd.JobID).Return(pendingJob(), nil)
		m.jobRepo.On("MarkRunning", ctx, cmd.JobID, 1, mock.AnythingOfType("time.Time")).Return(nil)
		m.senderRepo.On("GetByUserID", ctx, "user-1").
			Return(&model.SenderID{UserID: "user-1", SenderID: "ACME"}, nil)
		m.provider.On("SendBatch", ctx, cmd.ToNumbers, "hello", "ACME").
			Return(successResults(cmd.ToNumbers))
		m.contactRepo.On("UpsertBatch", ctx,
			mock.MatchedBy(func(contacts []model.MessageContact) bool {
				return len(contacts) == 3 && contacts[0].Status == model.ContactStatusSuccess
			})).Return(nil)
		m.messageRepo.On("MarkSent", ctx, int64(42), mock.AnythingOfType("time.Time")).Return(nil)
		m.quota.On("Debit", ctx,
			mock.MatchedBy(func(debit service.QuotaMutationCommand) bool {
				return debit.Amount == 6 && debit.RelatedID == "42"
			})).Return(nil)
		m.jobRepo.On("MarkCompleted", ctx, cmd.JobID).Return(nil)

		err := svc.ProcessBatch(ctx, cmd)

		assert.NoError(t, err)
		m.jobRepo.AssertExpectations(t)
		m.quota.AssertNotCalled(t, "Credit", mock.Anything, mock.Anything)
	})

	t.Run("scheduler-sourced job settles quota under the scheduled reason", func(t *testing.T) {
		svc, m := newDelivery(t)
		cmd := batchCommand()
		cmd.Metadata.Source = service.SourceScheduler

		m.jobRepo.On("GetByID", ctx, cmd.JobID).Return(pendingJob(), nil)
		m.jobRepo.On("MarkRunning", ctx, cmd.JobID, 1, mock.AnythingOfType("time.Time")).Return(nil)
		m.senderRepo.On("GetByUserID", ctx, "user-1").
			Return(&model.SenderID{UserID: "user-1", SenderID: "ACME"}, nil)
		m.provider.On("SendBatch", ctx, cmd.ToNumbers, "hello", "ACME").
			Return(successResults(cmd.ToNumbers))
		m.contactRepo.On("UpsertBatch", ctx, mock.Anything).Return(nil)
		m.messageRepo.On("MarkSent", ctx, int64(42), mock.AnythingOfType("time.Time")).Return(nil)
		m.quota.On("Debit", ctx,
			mock.MatchedBy(func(debit service.QuotaMutationCommand) bool {
				return debit.Reason == model.QuotaReasonScheduledSend
			})).Return(nil)
		m.jobRepo.On("MarkCompleted", ctx, cmd.JobID).Return(nil)

		err := svc.ProcessBatch(ctx, cmd)

		assert.NoError(t, err)
		m.quota.AssertExpectations(t)
	})

	t.Run("partial failure still completes and records the failures", func(t *testing.T) {
		svc, m := newDelivery(t)
		cmd := batchCommand()

		results := successResults(cmd.ToNumbers[:2])
		results = append(results, failedResults(cmd.ToNumbers[2:], "005")...)

		m.jobRepo.On("GetByID", ctx, cmd.JobID).Return(pendingJob(), nil)
		m.jobRepo.On("MarkRunning", ctx, cmd.JobID, 1, mock.AnythingOfType("time.Time")).Return(nil)
		m.senderRepo.On("GetByUserID", ctx, "user-1").
			Return(&model.SenderID{UserID: "user-1", SenderID: "ACME"}, nil)
		m.provider.On("SendBatch", ctx, cmd.ToNumbers, "hello", "ACME").Return(results)
		m.contactRepo.On("UpsertBatch", ctx,
			mock.MatchedBy(func(contacts []model.MessageContact) bool {
				return len(contacts) == 3 &&
					contacts[2].Status == model.ContactStatusFailed &&
					*contacts[2].Code == "005"
			})).Return(nil)
		m.messageRepo.On("MarkSent", ctx, int64(42), mock.AnythingOfType("time.Time")).Return(nil)
		m.quota.On("Debit", ctx, mock.Anything).Return(nil)
		m.jobRepo.On("MarkCompleted", ctx, cmd.JobID).Return(nil)

		err := svc.ProcessBatch(ctx, cmd)

		assert.NoError(t, err)
		m.messageRepo.AssertExpectations(t)
	})

	t.Run("transient batch failure schedules a retry with backoff", func(t *testing.T) {
		svc, m := newDelivery(t)
		cmd := batchCommand()

		m.jobRepo.On("GetByID", ctx, cmd.JobID).Return(pendingJob(), nil)
		m.jobRepo.On("MarkRunning", ctx, cmd.JobID, 1, mock.AnythingOfType("time.Time")).Return(nil)
		m.senderRepo.On("GetByUserID", ctx, "user-1").
			Return(&model.SenderID{UserID: "user-1", SenderID: "ACME"}, nil)
		m.provider.On("SendBatch", ctx, cmd.ToNumbers, "hello", "ACME").
			Return(failedResults(cmd.ToNumbers, smsprovider.CodeTimeout))
		m.contactRepo.On("UpsertBatch", ctx, mock.Anything).Return(nil)
		m.jobRepo.On("MarkFailedTemp", ctx, cmd.JobID,
			mock.AnythingOfType("time.Time"), mock.AnythingOfType("string")).Return(nil)

		err := svc.ProcessBatch(ctx, cmd)

		assert.NoError(t, err)
		m.jobRepo.AssertExpectations(t)
		m.messageRepo.AssertNotCalled(t, "MarkSent", mock.Anything, mock.Anything, mock.Anything)
		m.jobRepo.AssertNotCalled(t, "MarkCompleted", mock.Anything, mock.Anything)
	})

	t.Run("exhausted attempts fail terminally and refund the failed fraction", func(t *testing.T) {
		svc, m := newDelivery(t)
		cmd := batchCommand()

		job := pendingJob()
		job.Status = model.BatchJobStatusFailedTemp
		job.AttemptCount = 2

		m.jobRepo.On("GetByID", ctx, cmd.JobID).Return(job, nil)
		m.jobRepo.On("MarkRunning", ctx, cmd.JobID, 3, mock.AnythingOfType("time.Time")).Return(nil)
		m.senderRepo.On("GetByUserID", ctx, "user-1").
			Return(&model.SenderID{UserID: "user-1", SenderID: "ACME"}, nil)
		m.provider.On("SendBatch", ctx, cmd.ToNumbers, "hello", "ACME").
			Return(failedResults(cmd.ToNumbers, smsprovider.CodeTimeout))
		m.contactRepo.On("UpsertBatch", ctx, mock.Anything).Return(nil)
		m.jobRepo.On("MarkFailedPerm", ctx, cmd.JobID, mock.AnythingOfType("string")).Return(nil)
		m.messageRepo.On("MarkFailed", ctx, int64(42),
			mock.AnythingOfType("time.Time"), mock.AnythingOfType("string")).Return(nil)
		m.contactRepo.On("CountByMessageAndStatus", ctx, int64(42), model.ContactStatusFailed).
			Return(int64(3), nil)
		m.quota.On("Credit", ctx,
			mock.MatchedBy(func(refund service.QuotaMutationCommand) bool {
				return refund.Amount == 6 &&
					refund.Reason == model.QuotaReasonRetriesExhausted &&
					refund.RelatedID == "42"
			})).Return(nil)

		err := svc.ProcessBatch(ctx, cmd)

		assert.Error(t, err)
		m.quota.AssertExpectations(t)
	})

	t.Run("permanent gateway rejection skips remaining attempts", func(t *testing.T) {
		svc, m := newDelivery(t)
		cmd := batchCommand()

		m.jobRepo.On("GetByID", ctx, cmd.JobID).Return(pendingJob(), nil)
		m.jobRepo.On("MarkRunning", ctx, cmd.JobID, 1, mock.AnythingOfType("time.Time")).Return(nil)
		m.senderRepo.On("GetByUserID", ctx, "user-1").
			Return(&model.SenderID{UserID: "user-1", SenderID: "ACME"}, nil)
		m.provider.On("SendBatch", ctx, cmd.ToNumbers, "hello", "ACME").
			Return(failedResults(cmd.ToNumbers, "004"))
		m.contactRepo.On("UpsertBatch", ctx, mock.Anything).Return(nil)
		m.jobRepo.On("MarkFailedPerm", ctx, cmd.JobID, mock.AnythingOfType("string")).Return(nil)
		m.messageRepo.On("MarkFailed", ctx, int64(42),
			mock.AnythingOfType("time.Time"), mock.AnythingOfType("string")).Return(nil)
		m.contactRepo.On("CountByMessageAndStatus", ctx, int64(42), model.ContactStatusFailed).
			Return(int64(3), nil)
		m.quota.On("Credit", ctx, mock.Anything).Return(nil)

		err := svc.ProcessBatch(ctx, cmd)

		assert.Error(t, err)
		m.jobRepo.AssertNotCalled(t, "MarkFailedTemp", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("missing sender id is terminal and refunds the whole batch", func(t *testing.T) {
		svc, m := newDelivery(t)
		cmd := batchCommand()

		m.jobRepo.On("GetByID", ctx, cmd.JobID).Return(pendingJob(), nil)
		m.jobRepo.On("MarkRunning", ctx, cmd.JobID, 1, mock.AnythingOfType("time.Time")).Return(nil)
		m.senderRepo.On("GetByUserID", ctx, "user-1").
			Return(nil, repository.ErrSenderNotFound)
		m.jobRepo.On("MarkFailedPerm", ctx, cmd.JobID, "MISSING_SENDER_ID").Return(nil)
		m.messageRepo.On("MarkFailed", ctx, int64(42),
			mock.AnythingOfType("time.Time"), "MISSING_SENDER_ID").Return(nil)
		m.contactRepo.On("CountByMessageAndStatus", ctx, int64(42), model.ContactStatusFailed).
			Return(int64(0), nil)
		m.quota.On("Credit", ctx,
			mock.MatchedBy(func(refund service.QuotaMutationCommand) bool {
				return refund.Amount == 6
			})).Return(nil)

		err := svc.ProcessBatch(ctx, cmd)

		assert.Error(t, err)
		m.provider.AssertNotCalled(t, "SendBatch", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		m.quota.AssertExpectations(t)
	})

	t.Run("message already settled by another batch skips the refund", func(t *testing.T) {
		svc, m := newDelivery(t)
		cmd := batchCommand()

		m.jobRepo.On("GetByID", ctx, cmd.JobID).Return(pendingJob(), nil)
		m.jobRepo.On("MarkRunning", ctx, cmd.JobID, 1, mock.AnythingOfType("time.Time")).Return(nil)
		m.senderRepo.On("GetByUserID", ctx, "user-1").
			Return(nil, repository.ErrSenderNotFound)
		m.jobRepo.On("MarkFailedPerm", ctx, cmd.JobID, "MISSING_SENDER_ID").Return(nil)
		m.messageRepo.On("MarkFailed", ctx, int64(42),
			mock.AnythingOfType("time.Time"), "MISSING_SENDER_ID").
			Return(repository.ErrNoRowsAffected)

		err := svc.ProcessBatch(ctx, cmd)

		assert.Error(t, err)
		m.quota.AssertNotCalled(t, "Credit", mock.Anything, mock.Anything)
	})

	t.Run("missing job row means duplicate delivery and is acked", func(t *testing.T) {
		svc, m := newDelivery(t)
		cmd := batchCommand()

		m.jobRepo.On("GetByID", ctx, cmd.JobID).Return(nil, repository.ErrJobNotFound)

		err := svc.ProcessBatch(ctx, cmd)

		assert.NoError(t, err)
		m.jobRepo.AssertNotCalled(t, "MarkRunning", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("job running on another worker is acked without processing", func(t *testing.T) {
		svc, m := newDelivery(t)
		cmd := batchCommand()

		job := pendingJob()
		job.Status = model.BatchJobStatusRunning

		m.jobRepo.On("GetByID", ctx, cmd.JobID).Return(job, nil)

		err := svc.ProcessBatch(ctx, cmd)

		assert.NoError(t, err)
		m.provider.AssertNotCalled(t, "SendBatch", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("running job abandoned by a dead worker is reclaimed", func(t *testing.T) {
		svc, m := newDelivery(t)
		cmd := batchCommand()

		job := pendingJob()
		job.Status = model.BatchJobStatusRunning
		job.AttemptCount = 1
		job.UpdatedAt = time.Now().Add(-10 * time.Minute)

		m.jobRepo.On("GetByID", ctx, cmd.JobID).Return(job, nil)
		m.jobRepo.On("MarkRunning", ctx, cmd.JobID, 2, mock.AnythingOfType("time.Time")).Return(nil)
		m.senderRepo.On("GetByUserID", ctx, "user-1").
			Return(&model.SenderID{UserID: "user-1", SenderID: "ACME"}, nil)
		m.provider.On("SendBatch", ctx, cmd.ToNumbers, "hello", "ACME").
			Return(successResults(cmd.ToNumbers))
		m.contactRepo.On("UpsertBatch", ctx, mock.Anything).Return(nil)
		m.messageRepo.On("MarkSent", ctx, int64(42), mock.AnythingOfType("time.Time")).Return(nil)
		m.quota.On("Debit", ctx, mock.Anything).Return(nil)
		m.jobRepo.On("MarkCompleted", ctx, cmd.JobID).Return(nil)

		err := svc.ProcessBatch(ctx, cmd)

		assert.NoError(t, err)
		m.jobRepo.AssertExpectations(t)
	})

	t.Run("lost claim race is acked", func(t *testing.T) {
		svc, m := newDelivery(t)
		cmd := batchCommand()

		m.jobRepo.On("GetByID", ctx, cmd.JobID).Return(pendingJob(), nil)
		m.jobRepo.On("MarkRunning", ctx, cmd.JobID, 1, mock.AnythingOfType("time.Time")).Return(repository.ErrNoRowsAffected)

		err := svc.ProcessBatch(ctx, cmd)

		assert.NoError(t, err)
		m.senderRepo.AssertNotCalled(t, "GetByUserID", mock.Anything, mock.Anything)
	})
}

func TestBackoffDelayGrowth(t *testing.T) {
	job := pendingJob()
	cmd := batchCommand()
	ctx := context.Background()

	svc, m := newDelivery(t)

	job.AttemptCount = 1
	m.jobRepo.On("GetByID", ctx, cmd.JobID).Return(job, nil)
	m.jobRepo.On("MarkRunning", ctx, cmd.JobID, 2, mock.AnythingOfType("time.Time")).Return(nil)
	m.senderRepo.On("GetByUserID", ctx, "user-1").
		Return(&model.SenderID{UserID: "user-1", SenderID: "ACME"}, nil)
	m.provider.On("SendBatch", ctx, cmd.ToNumbers, "hello", "ACME").
		Return(failedResults(cmd.ToNumbers, smsprovider.CodeNetworkError))
	m.contactRepo.On("UpsertBatch", ctx, mock.Anything).Return(nil)

	// Second attempt doubles the initial delay: 30s * 2 = 60s.
	m.jobRepo.On("MarkFailedTemp", ctx, cmd.JobID,
		mock.MatchedBy(func(next time.Time) bool {
			remaining := time.Until(next)
			return remaining > 55*time.Second && remaining <= 60*time.Second
		}), mock.AnythingOfType("string")).Return(nil)

	err := svc.ProcessBatch(ctx, cmd)

	assert.NoError(t, err)
	m.jobRepo.AssertExpectations(t)
}

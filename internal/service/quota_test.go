package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/NDERI007/simflow/internal/mocks"
	"github.com/NDERI007/simflow/internal/model"
	"github.com/NDERI007/simflow/internal/repository"
	"github.com/NDERI007/simflow/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

func TestQuota_Check(t *testing.T) {
	logger := zap.NewNop()

	t.Run("reports available quota", func(t *testing.T) {
		mockRepo := &mocks.QuotaRepository{}
		svc := service.NewQuotaService(mockRepo, logger)

		mockRepo.On("GetBalance", context.Background(), "user-1").Return(int64(100), nil)

		result, err := svc.Check(context.Background(), "user-1", int64(60))

		assert.NoError(t, err)
		assert.True(t, result.HasQuota)
		assert.Equal(t, int64(100), result.Available)
		assert.Equal(t, int64(60), result.Required)
	})

	t.Run("reports insufficient quota without error", func(t *testing.T) {
		mockRepo := &mocks.QuotaRepository{}
		svc := service.NewQuotaService(mockRepo, logger)

		mockRepo.On("GetBalance", context.Background(), "user-1").Return(int64(10), nil)

		result, err := svc.Check(context.Background(), "user-1", int64(60))

		assert.NoError(t, err)
		assert.False(t, result.HasQuota)
	})

	t.Run("maps storage fault to database error", func(t *testing.T) {
		mockRepo := &mocks.QuotaRepository{}
		svc := service.NewQuotaService(mockRepo, logger)

		mockRepo.On("GetBalance", context.Background(), "user-1").
			Return(int64(0), errors.New("connection refused"))

		_, err := svc.Check(context.Background(), "user-1", int64(60))

		assert.ErrorIs(t, err, service.ErrDatabase)
	})
}

func TestQuota_Debit(t *testing.T) {
	logger := zap.NewNop()

	cmd := service.QuotaMutationCommand{
		UserID:    "user-1",
		Amount:    30,
		Reason:    model.QuotaReasonSendSMS,
		RelatedID: "42",
	}

	t.Run("debits and records ledger entry", func(t *testing.T) {
		mockRepo := &mocks.QuotaRepository{}
		svc := service.NewQuotaService(mockRepo, logger)

		mockRepo.On("Debit", context.Background(),
			mock.MatchedBy(func(entry *model.QuotaLedgerEntry) bool {
				return entry.UserID == "user-1" &&
					entry.Amount == 30 &&
					entry.Reason == model.QuotaReasonSendSMS &&
					entry.RelatedID == "42"
			})).Return(nil)

		err := svc.Debit(context.Background(), cmd)

		assert.NoError(t, err)
		mockRepo.AssertExpectations(t)
	})

	t.Run("duplicate ledger key is a no-op", func(t *testing.T) {
		mockRepo := &mocks.QuotaRepository{}
		svc := service.NewQuotaService(mockRepo, logger)

		mockRepo.On("Debit", context.Background(), mock.AnythingOfType("*model.QuotaLedgerEntry")).
			Return(repository.ErrLedgerDuplicate)

		err := svc.Debit(context.Background(), cmd)

		assert.NoError(t, err)
	})

	t.Run("insufficient balance surfaces as insufficient quota", func(t *testing.T) {
		mockRepo := &mocks.QuotaRepository{}
		svc := service.NewQuotaService(mockRepo, logger)

		mockRepo.On("Debit", context.Background(), mock.AnythingOfType("*model.QuotaLedgerEntry")).
			Return(repository.ErrInsufficientQuota)

		err := svc.Debit(context.Background(), cmd)

		assert.ErrorIs(t, err, service.ErrInsufficientQuota)
	})
}

func TestQuota_Credit(t *testing.T) {
	logger := zap.NewNop()

	cmd := service.QuotaMutationCommand{
		UserID:    "user-1",
		Amount:    30,
		Reason:    model.QuotaReasonRetriesExhausted,
		RelatedID: "42",
	}

	t.Run("credits balance", func(t *testing.T) {
		mockRepo := &mocks.QuotaRepository{}
		svc := service.NewQuotaService(mockRepo, logger)

		mockRepo.On("Credit", context.Background(), mock.AnythingOfType("*model.QuotaLedgerEntry")).
			Return(nil)

		err := svc.Credit(context.Background(), cmd)

		assert.NoError(t, err)
	})

	t.Run("duplicate refund is a no-op", func(t *testing.T) {
		mockRepo := &mocks.QuotaRepository{}
		svc := service.NewQuotaService(mockRepo, logger)

		mockRepo.On("Credit", context.Background(), mock.AnythingOfType("*model.QuotaLedgerEntry")).
			Return(repository.ErrLedgerDuplicate)

		err := svc.Credit(context.Background(), cmd)

		assert.NoError(t, err)
	})
}

func TestQuota_ReverseByRelated(t *testing.T) {
	logger := zap.NewNop()

	t.Run("reverses a purchase with an equal debit", func(t *testing.T) {
		mockRepo := &mocks.QuotaRepository{}
		svc := service.NewQuotaService(mockRepo, logger)

		original := &model.QuotaLedgerEntry{
			UserID:    "user-1",
			Amount:    500,
			Reason:    model.QuotaReasonPurchase,
			RelatedID: "order-9",
		}

		mockRepo.On("GetEntryByRelated", context.Background(), model.QuotaReasonPurchase, "order-9").
			Return(original, nil)

		mockRepo.On("Debit", context.Background(),
			mock.MatchedBy(func(entry *model.QuotaLedgerEntry) bool {
				return entry.UserID == "user-1" &&
					entry.Amount == 500 &&
					entry.Reason == model.QuotaReasonPurchaseReversal &&
					entry.RelatedID == "order-9"
			})).Return(nil)

		err := svc.ReverseByRelated(context.Background(), "order-9")

		assert.NoError(t, err)
		mockRepo.AssertExpectations(t)
	})

	t.Run("unknown purchase id", func(t *testing.T) {
		mockRepo := &mocks.QuotaRepository{}
		svc := service.NewQuotaService(mockRepo, logger)

		mockRepo.On("GetEntryByRelated", context.Background(), model.QuotaReasonPurchase, "order-9").
			Return(nil, repository.ErrLedgerEntryNotFound)

		err := svc.ReverseByRelated(context.Background(), "order-9")

		assert.ErrorIs(t, err, service.ErrPurchaseNotFound)
	})
}

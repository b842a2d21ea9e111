package service

import (
	"context"
	"errors"

	"github.com/NDERI007/simflow/internal/model"
	"github.com/NDERI007/simflow/internal/repository"
	"go.uber.org/zap"
)

// QuotaService owns balance consistency. Check is advisory only (it reserves
// nothing); Debit and Credit are idempotent per (reason, related id) so
// at-least-once callers cannot double-charge or double-refund.
type QuotaService interface {
	Check(ctx context.Context, userID string, amount int64) (QuotaCheckResult, error)
	Debit(ctx context.Context, cmd QuotaMutationCommand) error
	Credit(ctx context.Context, cmd QuotaMutationCommand) error

	// ReverseByRelated undoes a prior credit (refund-of-purchase): it looks
	// up the original entry and issues an equal-and-opposite debit.
	ReverseByRelated(ctx context.Context, relatedID string) error
}

type quota struct {
	repo   repository.QuotaRepository
	logger *zap.Logger
}

func NewQuotaService(repo repository.QuotaRepository, logger *zap.Logger) QuotaService {
	return &quota{repo: repo, logger: logger}
}

func (q *quota) Check(ctx context.Context, userID string, amount int64) (QuotaCheckResult, error) {
	available, err := q.repo.GetBalance(ctx, userID)
	if err != nil {
		q.logger.Error("Failed to read quota balance",
			zap.String("userID", userID),
			zap.Error(err))
		return QuotaCheckResult{}, ErrDatabase
	}

	return QuotaCheckResult{
		HasQuota:  available >= amount,
		Available: available,
		Required:  amount,
	}, nil
}

func (q *quota) Debit(ctx context.Context, cmd QuotaMutationCommand) error {
	entry := model.QuotaLedgerEntry{
		UserID:    cmd.UserID,
		Amount:    cmd.Amount,
		Reason:    cmd.Reason,
		RelatedID: cmd.RelatedID,
	}

	err := q.repo.Debit(ctx, &entry)
	if err == nil {
		q.logger.Info("Quota debited",
			zap.String("userID", cmd.UserID),
			zap.Int64("amount", cmd.Amount),
			zap.String("reason", cmd.Reason),
			zap.String("relatedID", cmd.RelatedID))
		return nil
	}

	if errors.Is(err, repository.ErrLedgerDuplicate) {
		q.logger.Debug("Quota already debited for this key",
			zap.String("reason", cmd.Reason),
			zap.String("relatedID", cmd.RelatedID))
		return nil
	}

	if errors.Is(err, repository.ErrInsufficientQuota) {
		q.logger.Warn("Insufficient quota for debit",
			zap.String("userID", cmd.UserID),
			zap.Int64("amount", cmd.Amount),
			zap.String("relatedID", cmd.RelatedID))
		return ErrInsufficientQuota
	}

	q.logger.Error("Quota debit failed",
		zap.String("userID", cmd.UserID),
		zap.String("relatedID", cmd.RelatedID),
		zap.Error(err))

	return ErrDatabase
}

func (q *quota) Credit(ctx context.Context, cmd QuotaMutationCommand) error {
	entry := model.QuotaLedgerEntry{
		UserID:    cmd.UserID,
		Amount:    cmd.Amount,
		Reason:    cmd.Reason,
		RelatedID: cmd.RelatedID,
	}

	err := q.repo.Credit(ctx, &entry)
	if err == nil {
		q.logger.Info("Quota credited",
			zap.String("userID", cmd.UserID),
			zap.Int64("amount", cmd.Amount),
			zap.String("reason", cmd.Reason),
			zap.String("relatedID", cmd.RelatedID))
		return nil
	}

	if errors.Is(err, repository.ErrLedgerDuplicate) {
		q.logger.Debug("Quota already credited for this key",
			zap.String("reason", cmd.Reason),
			zap.String("relatedID", cmd.RelatedID))
		return nil
	}

	q.logger.Error("Quota credit failed",
		zap.String("userID", cmd.UserID),
		zap.String("relatedID", cmd.RelatedID),
		zap.Error(err))

	return ErrDatabase
}

func (q *quota) ReverseByRelated(ctx context.Context, relatedID string) error {
	original, err := q.repo.GetEntryByRelated(ctx, model.QuotaReasonPurchase, relatedID)
	if err != nil {
		if errors.Is(err, repository.ErrLedgerEntryNotFound) {
			return ErrPurchaseNotFound
		}

		q.logger.Error("Failed to look up purchase for reversal",
			zap.String("relatedID", relatedID),
			zap.Error(err))
		return ErrDatabase
	}

	reversal := QuotaMutationCommand{
		UserID:    original.UserID,
		Amount:    original.Amount,
		Reason:    model.QuotaReasonPurchaseReversal,
		RelatedID: relatedID,
	}

	return q.Debit(ctx, reversal)
}

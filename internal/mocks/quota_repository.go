package mocks

import (
	"context"

	"github.com/NDERI007/simflow/internal/model"
	"github.com/stretchr/testify/mock"
)

type QuotaRepository struct {
	mock.Mock
}

func (q *QuotaRepository) GetBalance(ctx context.Context, userID string) (int64, error) {
	args := q.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (q *QuotaRepository) Debit(ctx context.Context, entry *model.QuotaLedgerEntry) error {
	args := q.Called(ctx, entry)
	return args.Error(0)
}

func (q *QuotaRepository) Credit(ctx context.Context, entry *model.QuotaLedgerEntry) error {
	args := q.Called(ctx, entry)
	return args.Error(0)
}

func (q *QuotaRepository) GetEntryByRelated(ctx context.Context, reason, relatedID string) (*model.QuotaLedgerEntry, error) {
	args := q.Called(ctx, reason, relatedID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.QuotaLedgerEntry), args.Error(1)
}

package mocks

import (
	"context"

	"github.com/NDERI007/simflow/internal/service"
	"github.com/stretchr/testify/mock"
)

type QuotaService struct {
	mock.Mock
}

func (q *QuotaService) Check(ctx context.Context, userID string, amount int64) (service.QuotaCheckResult, error) {
	args := q.Called(ctx, userID, amount)
	return args.Get(0).(service.QuotaCheckResult), args.Error(1)
}

func (q *QuotaService) Debit(ctx context.Context, cmd service.QuotaMutationCommand) error {
	args := q.Called(ctx, cmd)
	return args.Error(0)
}

func (q *QuotaService) Credit(ctx context.Context, cmd service.QuotaMutationCommand) error {
	args := q.Called(ctx, cmd)
	return args.Error(0)
}

func (q *QuotaService) ReverseByRelated(ctx context.Context, relatedID string) error {
	args := q.Called(ctx, relatedID)
	return args.Error(0)
}

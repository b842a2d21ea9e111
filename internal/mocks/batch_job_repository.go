package mocks

import (
	"context"
	"time"

	"github.com/NDERI007/simflow/internal/model"
	"github.com/stretchr/testify/mock"
)

type BatchJobRepository struct {
	mock.Mock
}

func (b *BatchJobRepository) CreateGraph(ctx context.Context, parent *model.BatchParent, children []model.BatchJob) error {
	args := b.Called(ctx, parent, children)
	return args.Error(0)
}

func (b *BatchJobRepository) GetByID(ctx context.Context, jobID string) (*model.BatchJob, error) {
	args := b.Called(ctx, jobID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.BatchJob), args.Error(1)
}

func (b *BatchJobRepository) MarkRunning(ctx context.Context, jobID string, attempt int, staleBefore time.Time) error {
	args := b.Called(ctx, jobID, attempt, staleBefore)
	return args.Error(0)
}

func (b *BatchJobRepository) MarkCompleted(ctx context.Context, jobID string) error {
	args := b.Called(ctx, jobID)
	return args.Error(0)
}

func (b *BatchJobRepository) MarkFailedTemp(ctx context.Context, jobID string, nextAttemptAt time.Time, lastError string) error {
	args := b.Called(ctx, jobID, nextAttemptAt, lastError)
	return args.Error(0)
}

func (b *BatchJobRepository) MarkFailedPerm(ctx context.Context, jobID string, lastError string) error {
	args := b.Called(ctx, jobID, lastError)
	return args.Error(0)
}

func (b *BatchJobRepository) FindDue(ctx context.Context, now time.Time, staleBefore time.Time, limit int) ([]model.BatchJob, error) {
	args := b.Called(ctx, now, staleBefore, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.BatchJob), args.Error(1)
}

func (b *BatchJobRepository) MarkQueued(ctx context.Context, jobID string) error {
	args := b.Called(ctx, jobID)
	return args.Error(0)
}

package mocks

import (
	"context"

	"github.com/NDERI007/simflow/internal/service"
	"github.com/stretchr/testify/mock"
)

type BatchQueueService struct {
	mock.Mock
}

func (b *BatchQueueService) FindJobsToQueue(ctx context.Context, limit int) ([]service.BatchJobCommand, error) {
	args := b.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]service.BatchJobCommand), args.Error(1)
}

func (b *BatchQueueService) MarkJobAsQueued(ctx context.Context, jobID string) error {
	args := b.Called(ctx, jobID)
	return args.Error(0)
}

package mocks

import (
	"context"

	"github.com/NDERI007/simflow/internal/service"
	"github.com/stretchr/testify/mock"
)

type EnqueueService struct {
	mock.Mock
}

func (e *EnqueueService) Enqueue(ctx context.Context, cmd service.EnqueueMessageCommand) error {
	args := e.Called(ctx, cmd)
	return args.Error(0)
}

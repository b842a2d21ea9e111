package mocks

import (
	"context"

	"github.com/NDERI007/simflow/internal/model"
	"github.com/stretchr/testify/mock"
)

type SenderIDRepository struct {
	mock.Mock
}

func (s *SenderIDRepository) GetByUserID(ctx context.Context, userID string) (*model.SenderID, error) {
	args := s.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.SenderID), args.Error(1)
}

package mocks

import (
	"context"
	"time"

	"github.com/NDERI007/simflow/internal/model"
	"github.com/stretchr/testify/mock"
)

type MessageRepository struct {
	mock.Mock
}

func (m *MessageRepository) Create(ctx context.Context, message *model.Message) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

func (m *MessageRepository) GetByID(id int64) (*model.Message, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Message), args.Error(1)
}

func (m *MessageRepository) GetByUserID(userID string, limit, offset int) ([]model.Message, error) {
	args := m.Called(userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Message), args.Error(1)
}

func (m *MessageRepository) MarkSent(ctx context.Context, messageID int64, sentAt time.Time) error {
	args := m.Called(ctx, messageID, sentAt)
	return args.Error(0)
}

func (m *MessageRepository) MarkFailed(ctx context.Context, messageID int64, failedAt time.Time, lastError string) error {
	args := m.Called(ctx, messageID, failedAt, lastError)
	return args.Error(0)
}

func (m *MessageRepository) FindDueScheduled(ctx context.Context, now time.Time, limit int) ([]model.Message, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Message), args.Error(1)
}

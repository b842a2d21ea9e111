package mocks

import (
	"context"

	"github.com/NDERI007/simflow/internal/model"
	"github.com/stretchr/testify/mock"
)

type MessageContactRepository struct {
	mock.Mock
}

func (m *MessageContactRepository) UpsertBatch(ctx context.Context, contacts []model.MessageContact) error {
	args := m.Called(ctx, contacts)
	return args.Error(0)
}

func (m *MessageContactRepository) CountByMessageAndStatus(ctx context.Context, messageID int64, status model.ContactStatus) (int64, error) {
	args := m.Called(ctx, messageID, status)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MessageContactRepository) ListByMessageAndStatus(ctx context.Context, messageID int64, status model.ContactStatus) ([]model.MessageContact, error) {
	args := m.Called(ctx, messageID, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.MessageContact), args.Error(1)
}

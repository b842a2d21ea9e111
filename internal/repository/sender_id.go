package repository

import (
	"context"
	"errors"

	"github.com/NDERI007/simflow/internal/model"
	"gorm.io/gorm"
)

var ErrSenderNotFound = errors.New("SENDER_NOT_FOUND")

type SenderIDRepository interface {
	GetByUserID(ctx context.Context, userID string) (*model.SenderID, error)
}

type SenderID struct {
	db *gorm.DB
}

func NewSenderIDRepository(db *gorm.DB) SenderIDRepository {
	return &SenderID{db: db}
}

func (r *SenderID) GetByUserID(ctx context.Context, userID string) (*model.SenderID, error) {
	var sender model.SenderID

	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&sender).Error
	if err == nil {
		return &sender, nil
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSenderNotFound
	}

	return nil, err
}

package repository

import (
	"context"
	"errors"
	"time"

	"github.com/NDERI007/simflow/internal/model"
	"gorm.io/gorm"
)

var ErrMessageNotFound = errors.New("MESSAGE_NOT_FOUND")
var ErrNoRowsAffected = errors.New("NO_ROWS_AFFECTED")

type MessageRepository interface {
	Create(ctx context.Context, message *model.Message) error
	GetByID(id int64) (*model.Message, error)
	GetByUserID(userID string, limit, offset int) ([]model.Message, error)

	// MarkSent flips the message to SENT only while it is still QUEUED or
	// SCHEDULED. ErrNoRowsAffected means another actor already settled it.
	MarkSent(ctx context.Context, messageID int64, sentAt time.Time) error

	// MarkFailed is the terminal-failure counterpart, under the same guard.
	MarkFailed(ctx context.Context, messageID int64, failedAt time.Time, lastError string) error

	FindDueScheduled(ctx context.Context, now time.Time, limit int) ([]model.Message, error)
}

type Message struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &Message{db: db}
}

func (m *Message) Create(ctx context.Context, message *model.Message) error {
	db := GetTx(ctx, m.db)
	return db.Create(message).Error
}

func (m *Message) GetByID(id int64) (*model.Message, error) {
	var message model.Message

	err := m.db.Where("id = ?", id).First(&message).Error
	if err == nil {
		return &message, nil
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrMessageNotFound
	}

	return nil, err
}

func (m *Message) GetByUserID(userID string, limit, offset int) ([]model.Message, error) {
	var messages []model.Message

	err := m.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}

	return messages, nil
}

func (m *Message) MarkSent(ctx context.Context, messageID int64, sentAt time.Time) error {
	db := GetTx(ctx, m.db)

	result := db.Model(&model.Message{}).
		Where("id = ? AND status IN (?, ?)",
			messageID, model.MessageStatusQueued, model.MessageStatusScheduled).
		Updates(map[string]interface{}{
			"status":     model.MessageStatusSent,
			"sent_at":    sentAt,
			"updated_at": time.Now(),
		})

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrNoRowsAffected
	}

	return nil
}

func (m *Message) MarkFailed(ctx context.Context, messageID int64, failedAt time.Time, lastError string) error {
	db := GetTx(ctx, m.db)

	result := db.Model(&model.Message{}).
		Where("id = ? AND status IN (?, ?)",
			messageID, model.MessageStatusQueued, model.MessageStatusScheduled).
		Updates(map[string]interface{}{
			"status":     model.MessageStatusFailed,
			"failed_at":  failedAt,
			"last_error": lastError,
			"updated_at": time.Now(),
		})

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrNoRowsAffected
	}

	return nil
}

func (m *Message) FindDueScheduled(ctx context.Context, now time.Time, limit int) ([]model.Message, error) {
	var messages []model.Message

	err := m.db.WithContext(ctx).
		Where("status = ? AND scheduled_at IS NOT NULL AND scheduled_at <= ?",
			model.MessageStatusScheduled, now).
		Order("scheduled_at ASC").
		Limit(limit).
		Find(&messages).Error
	if err != nil {
		return nil, err
	}

	return messages, nil
}

package repository

import (
	"context"

	"github.com/NDERI007/simflow/internal/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type MessageContactRepository interface {
	// UpsertBatch writes one row per delivery outcome, keyed on
	// (message_id, phone). Re-delivering the same batch overwrites the
	// previous outcome instead of duplicating rows.
	UpsertBatch(ctx context.Context, contacts []model.MessageContact) error

	CountByMessageAndStatus(ctx context.Context, messageID int64, status model.ContactStatus) (int64, error)
	ListByMessageAndStatus(ctx context.Context, messageID int64, status model.ContactStatus) ([]model.MessageContact, error)
}

type MessageContact struct {
	db *gorm.DB
}

func NewMessageContactRepository(db *gorm.DB) MessageContactRepository {
	return &MessageContact{db: db}
}

func (r *MessageContact) UpsertBatch(ctx context.Context, contacts []model.MessageContact) error {
	if len(contacts) == 0 {
		return nil
	}

	db := GetTx(ctx, r.db)

	return db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "message_id"}, {Name: "phone"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"status", "code", "last_error", "updated_at",
		}),
	}).Create(&contacts).Error
}

func (r *MessageContact) CountByMessageAndStatus(ctx context.Context, messageID int64, status model.ContactStatus) (int64, error) {
	var count int64

	err := r.db.WithContext(ctx).Model(&model.MessageContact{}).
		Where("message_id = ? AND status = ?", messageID, status).
		Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

func (r *MessageContact) ListByMessageAndStatus(ctx context.Context, messageID int64, status model.ContactStatus) ([]model.MessageContact, error) {
	var contacts []model.MessageContact

	err := r.db.WithContext(ctx).
		Where("message_id = ? AND status = ?", messageID, status).
		Order("updated_at ASC").
		Find(&contacts).Error
	if err != nil {
		return nil, err
	}

	return contacts, nil
}

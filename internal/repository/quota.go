package repository

import (
	"context"
	"errors"
	"time"

	"github.com/NDERI007/simflow/internal/model"
	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

var ErrInsufficientQuota = errors.New("INSUFFICIENT_QUOTA")
var ErrLedgerDuplicate = errors.New("LEDGER_DUPLICATE")
var ErrLedgerEntryNotFound = errors.New("LEDGER_ENTRY_NOT_FOUND")

type QuotaRepository interface {
	GetBalance(ctx context.Context, userID string) (int64, error)

	// Debit decrements the balance with a single guarded UPDATE and appends
	// the ledger entry in one transaction. ErrInsufficientQuota when the
	// balance cannot cover the amount; ErrLedgerDuplicate when the
	// (reason, related_id) entry already exists, meaning this mutation
	// already happened.
	Debit(ctx context.Context, entry *model.QuotaLedgerEntry) error

	// Credit is the increment counterpart, creating the balance row if the
	// user has never held quota.
	Credit(ctx context.Context, entry *model.QuotaLedgerEntry) error

	GetEntryByRelated(ctx context.Context, reason, relatedID string) (*model.QuotaLedgerEntry, error)
}

type Quota struct {
	db *gorm.DB
}

func NewQuotaRepository(db *gorm.DB) QuotaRepository {
	return &Quota{db: db}
}

func (q *Quota) GetBalance(ctx context.Context, userID string) (int64, error) {
	var balance model.QuotaBalance

	err := q.db.WithContext(ctx).Where("user_id = ?", userID).First(&balance).Error
	if err == nil {
		return balance.Balance, nil
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}

	return 0, err
}

func (q *Quota) Debit(ctx context.Context, entry *model.QuotaLedgerEntry) error {
	amount := entry.Amount
	if amount > 0 {
		amount = -amount
	}

	return q.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ledger := *entry
		ledger.Amount = amount
		ledger.CreatedAt = time.Now()

		if err := tx.Create(&ledger).Error; err != nil {
			var mysqlErr *mysql.MySQLError
			if errors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
				return ErrLedgerDuplicate
			}
			return err
		}

		result := tx.Model(&model.QuotaBalance{}).
			Where("user_id = ? AND balance >= ?", entry.UserID, -amount).
			Updates(map[string]interface{}{
				"balance":    gorm.Expr("balance + ?", amount),
				"updated_at": time.Now(),
			})

		if result.Error != nil {
			return result.Error
		}

		if result.RowsAffected == 0 {
			return ErrInsufficientQuota
		}

		return nil
	})
}

func (q *Quota) Credit(ctx context.Context, entry *model.QuotaLedgerEntry) error {
	amount := entry.Amount
	if amount < 0 {
		amount = -amount
	}

	return q.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ledger := *entry
		ledger.Amount = amount
		ledger.CreatedAt = time.Now()

		if err := tx.Create(&ledger).Error; err != nil {
			var mysqlErr *mysql.MySQLError
			if errors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
				return ErrLedgerDuplicate
			}
			return err
		}

		result := tx.Model(&model.QuotaBalance{}).
			Where("user_id = ?", entry.UserID).
			Updates(map[string]interface{}{
				"balance":    gorm.Expr("balance + ?", amount),
				"updated_at": time.Now(),
			})

		if result.Error != nil {
			return result.Error
		}

		if result.RowsAffected == 0 {
			balance := model.QuotaBalance{UserID: entry.UserID, Balance: amount, UpdatedAt: time.Now()}
			if err := tx.Create(&balance).Error; err != nil {
				return err
			}
		}

		return nil
	})
}

func (q *Quota) GetEntryByRelated(ctx context.Context, reason, relatedID string) (*model.QuotaLedgerEntry, error) {
	var entry model.QuotaLedgerEntry

	err := q.db.WithContext(ctx).
		Where("reason = ? AND related_id = ?", reason, relatedID).
		First(&entry).Error
	if err == nil {
		return &entry, nil
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrLedgerEntryNotFound
	}

	return nil, err
}

package database

import (
	"context"

	"github.com/NDERI007/simflow/internal/config"
	"github.com/NDERI007/simflow/internal/model"
	"github.com/NDERI007/simflow/pkg/mysql"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func NewConnection(cfg *config.Config, logger *zap.Logger) (*gorm.DB, error) {
	return mysql.NewConnection(context.Background(), cfg.Database, logger)
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.Message{},
		&model.MessageContact{},
		&model.QuotaBalance{},
		&model.QuotaLedgerEntry{},
		&model.BatchParent{},
		&model.BatchJob{},
		&model.SenderID{},
	)
}

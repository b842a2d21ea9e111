package repository

import (
	"context"
	"errors"
	"time"

	"github.com/NDERI007/simflow/internal/model"
	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
)

var ErrJobDuplicate = errors.New("JOB_DUPLICATE")
var ErrJobNotFound = errors.New("JOB_NOT_FOUND")

type BatchJobRepository interface {
	// CreateGraph writes the parent and all children in one transaction.
	// A duplicate parent or child id maps to ErrJobDuplicate, which makes
	// re-enqueuing the same message a no-op at the queue level.
	CreateGraph(ctx context.Context, parent *model.BatchParent, children []model.BatchJob) error

	GetByID(ctx context.Context, jobID string) (*model.BatchJob, error)

	// MarkRunning bumps the attempt count under a status guard so two
	// consumers cannot run the same attempt. A RUNNING job whose last
	// update predates staleBefore is claimable again: its worker is
	// presumed dead.
	MarkRunning(ctx context.Context, jobID string, attempt int, staleBefore time.Time) error

	// MarkCompleted removes the child (removeOnComplete) and, when it was
	// the parent's last child, the parent row too.
	MarkCompleted(ctx context.Context, jobID string) error

	MarkFailedTemp(ctx context.Context, jobID string, nextAttemptAt time.Time, lastError string) error
	MarkFailedPerm(ctx context.Context, jobID string, lastError string) error

	FindDue(ctx context.Context, now time.Time, staleBefore time.Time, limit int) ([]model.BatchJob, error)
	MarkQueued(ctx context.Context, jobID string) error
}

type BatchJob struct {
	db *gorm.DB
}

func NewBatchJobRepository(db *gorm.DB) BatchJobRepository {
	return &BatchJob{db: db}
}

func (r *BatchJob) CreateGraph(ctx context.Context, parent *model.BatchParent, children []model.BatchJob) error {
	db := GetTx(ctx, r.db)

	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(parent).Error; err != nil {
			var mysqlErr *mysql.MySQLError
			if errors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
				return ErrJobDuplicate
			}
			return err
		}

		if err := tx.Create(&children).Error; err != nil {
			var mysqlErr *mysql.MySQLError
			if errors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
				return ErrJobDuplicate
			}
			return err
		}

		return nil
	})
}

func (r *BatchJob) GetByID(ctx context.Context, jobID string) (*model.BatchJob, error) {
	var job model.BatchJob

	err := r.db.WithContext(ctx).Where("id = ?", jobID).First(&job).Error
	if err == nil {
		return &job, nil
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrJobNotFound
	}

	return nil, err
}

func (r *BatchJob) MarkRunning(ctx context.Context, jobID string, attempt int, staleBefore time.Time) error {
	result := r.db.WithContext(ctx).Model(&model.BatchJob{}).
		Where("id = ? AND (status IN (?, ?, ?) OR (status = ? AND updated_at < ?))",
			jobID, model.BatchJobStatusPending, model.BatchJobStatusQueued, model.BatchJobStatusFailedTemp,
			model.BatchJobStatusRunning, staleBefore).
		Updates(map[string]interface{}{
			"status":        model.BatchJobStatusRunning,
			"attempt_count": attempt,
			"updated_at":    time.Now(),
		})

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrNoRowsAffected
	}

	return nil
}

func (r *BatchJob) MarkCompleted(ctx context.Context, jobID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var job model.BatchJob
		if err := tx.Where("id = ?", jobID).First(&job).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}

		if err := tx.Delete(&model.BatchJob{}, "id = ?", jobID).Error; err != nil {
			return err
		}

		var remaining int64
		if err := tx.Model(&model.BatchJob{}).
			Where("parent_id = ?", job.ParentID).
			Count(&remaining).Error; err != nil {
			return err
		}

		if remaining == 0 {
			return tx.Delete(&model.BatchParent{}, "id = ?", job.ParentID).Error
		}

		return nil
	})
}

func (r *BatchJob) MarkFailedTemp(ctx context.Context, jobID string, nextAttemptAt time.Time, lastError string) error {
	return r.db.WithContext(ctx).Model(&model.BatchJob{}).
		Where("id = ?", jobID).
		Updates(map[string]interface{}{
			"status":          model.BatchJobStatusFailedTemp,
			"next_attempt_at": nextAttemptAt,
			"last_error":      lastError,
			"updated_at":      time.Now(),
		}).Error
}

func (r *BatchJob) MarkFailedPerm(ctx context.Context, jobID string, lastError string) error {
	return r.db.WithContext(ctx).Model(&model.BatchJob{}).
		Where("id = ?", jobID).
		Updates(map[string]interface{}{
			"status":     model.BatchJobStatusFailedPerm,
			"last_error": lastError,
			"updated_at": time.Now(),
		}).Error
}

// FindDue selects jobs that belong on the wire: never published, due for
// their next attempt, or stuck RUNNING past the stale threshold because
// their worker died mid-attempt.
func (r *BatchJob) FindDue(ctx context.Context, now time.Time, staleBefore time.Time, limit int) ([]model.BatchJob, error) {
	var jobs []model.BatchJob

	err := r.db.WithContext(ctx).
		Where("status = ? OR (status = ? AND next_attempt_at <= ?) OR (status = ? AND updated_at < ?)",
			model.BatchJobStatusPending, model.BatchJobStatusFailedTemp, now,
			model.BatchJobStatusRunning, staleBefore).
		Order("created_at ASC").
		Limit(limit).
		Find(&jobs).Error
	if err != nil {
		return nil, err
	}

	return jobs, nil
}

func (r *BatchJob) MarkQueued(ctx context.Context, jobID string) error {
	return r.db.WithContext(ctx).Model(&model.BatchJob{}).
		Where("id = ?", jobID).
		Updates(map[string]interface{}{
			"status":     model.BatchJobStatusQueued,
			"updated_at": time.Now(),
		}).Error
}

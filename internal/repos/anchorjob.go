package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/opencampus-io/registrar-backend/internal/logger"
	"github.com/opencampus-io/registrar-backend/internal/types"
)

type AnchorJobRepo interface {
	Create(ctx context.Context, tx *gorm.DB, job *types.AnchorJob) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.AnchorJob, error)
	GetLatestByEntity(ctx context.Context, tx *gorm.DB, entityType types.AnchorEntity, entityID uuid.UUID) (*types.AnchorJob, error)
	// ClaimNext picks the oldest runnable job and flips it to running. The
	// claim is optimistic (conditional update on the observed status) so a
	// lost race simply yields no job; the worker polls again.
	ClaimNext(ctx context.Context, tx *gorm.DB, maxAttempts int, retryDelay time.Duration) (*types.AnchorJob, error)
	MarkSucceeded(ctx context.Context, tx *gorm.DB, id uuid.UUID) error
	MarkFailed(ctx context.Context, tx *gorm.DB, id uuid.UUID, cause error) error
}

type anchorJobRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAnchorJobRepo(db *gorm.DB, baseLog *logger.Logger) AnchorJobRepo {
	return &anchorJobRepo{db: db, log: baseLog.With("repo", "AnchorJobRepo")}
}

func (r *anchorJobRepo) resolve(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *anchorJobRepo) Create(ctx context.Context, tx *gorm.DB, job *types.AnchorJob) error {
	return r.resolve(tx).WithContext(ctx).Create(job).Error
}

func (r *anchorJobRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.AnchorJob, error) {
	var job types.AnchorJob
	err := r.resolve(tx).WithContext(ctx).Where("id = ?", id).First(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *anchorJobRepo) GetLatestByEntity(ctx context.Context, tx *gorm.DB, entityType types.AnchorEntity, entityID uuid.UUID) (*types.AnchorJob, error) {
	var job types.AnchorJob
	err := r.resolve(tx).WithContext(ctx).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order("created_at DESC").
		First(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *anchorJobRepo) ClaimNext(ctx context.Context, tx *gorm.DB, maxAttempts int, retryDelay time.Duration) (*types.AnchorJob, error) {
	transaction := r.resolve(tx)
	retryCutoff := time.Now().Add(-retryDelay)

	var job types.AnchorJob
	err := transaction.WithContext(ctx).
		Where(`status = ? OR (status = ? AND attempts < ? AND (last_error_at IS NULL OR last_error_at < ?))`,
			types.AnchorQueued, types.AnchorFailed, maxAttempts, retryCutoff).
		Order("created_at ASC").
		First(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	res := transaction.WithContext(ctx).
		Model(&types.AnchorJob{}).
		Where("id = ? AND status = ?", job.ID, job.Status).
		Updates(map[string]interface{}{
			"status":     types.AnchorRunning,
			"attempts":   gorm.Expr("attempts + 1"),
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, nil
	}
	job.Status = types.AnchorRunning
	job.Attempts++
	return &job, nil
}

func (r *anchorJobRepo) MarkSucceeded(ctx context.Context, tx *gorm.DB, id uuid.UUID) error {
	return r.resolve(tx).WithContext(ctx).
		Model(&types.AnchorJob{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     types.AnchorSucceeded,
			"updated_at": time.Now(),
		}).Error
}

func (r *anchorJobRepo) MarkFailed(ctx context.Context, tx *gorm.DB, id uuid.UUID, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	now := time.Now()
	return r.resolve(tx).WithContext(ctx).
		Model(&types.AnchorJob{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":        types.AnchorFailed,
			"last_error":    msg,
			"last_error_at": now,
			"updated_at":    now,
		}).Error
}

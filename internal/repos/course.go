package repos

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/opencampus-io/registrar-backend/internal/logger"
	"github.com/opencampus-io/registrar-backend/internal/types"
)

type CourseFilter struct {
	Term       string
	Year       int
	Department string
	Status     types.CourseStatus
}

type CourseRepo interface {
	Create(ctx context.Context, tx *gorm.DB, course *types.Course) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Course, error)
	// GetByIDForUpdate locks the course row for the duration of the enclosing
	// transaction. The capacity check and the enrollment insert must observe a
	// consistent enrolled count.
	GetByIDForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Course, error)
	CodeExists(ctx context.Context, tx *gorm.DB, code string) (bool, error)
	List(ctx context.Context, tx *gorm.DB, filter CourseFilter) ([]*types.Course, error)
	ListByInstructor(ctx context.Context, tx *gorm.DB, instructorID uuid.UUID, filter CourseFilter) ([]*types.Course, error)
	UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error
	Count(ctx context.Context, tx *gorm.DB) (int64, error)
	// SetContractAddress anchors the course. The write is guarded so an
	// already-anchored course is never overwritten.
	SetContractAddress(ctx context.Context, tx *gorm.DB, id uuid.UUID, assetID string) (bool, error)
}

type courseRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCourseRepo(db *gorm.DB, baseLog *logger.Logger) CourseRepo {
	return &courseRepo{db: db, log: baseLog.With("repo", "CourseRepo")}
}

func (r *courseRepo) resolve(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *courseRepo) Create(ctx context.Context, tx *gorm.DB, course *types.Course) error {
	return r.resolve(tx).WithContext(ctx).Create(course).Error
}

func (r *courseRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Course, error) {
	var course types.Course
	err := r.resolve(tx).WithContext(ctx).
		Preload("Instructor").
		Where("id = ?", id).
		First(&course).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &course, nil
}

func (r *courseRepo) GetByIDForUpdate(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Course, error) {
	q := r.resolve(tx).WithContext(ctx)
	// sqlite has no row locks; its single-writer transactions already
	// serialize the capacity check.
	if q.Dialector.Name() != "sqlite" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var course types.Course
	err := q.Where("id = ?", id).First(&course).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &course, nil
}

func (r *courseRepo) CodeExists(ctx context.Context, tx *gorm.DB, code string) (bool, error) {
	var count int64
	if err := r.resolve(tx).WithContext(ctx).
		Model(&types.Course{}).
		Where("code = ?", code).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *courseRepo) List(ctx context.Context, tx *gorm.DB, filter CourseFilter) ([]*types.Course, error) {
	q := r.applyFilter(r.resolve(tx).WithContext(ctx).Preload("Instructor"), filter)
	var out []*types.Course
	if err := q.Order("code ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *courseRepo) ListByInstructor(ctx context.Context, tx *gorm.DB, instructorID uuid.UUID, filter CourseFilter) ([]*types.Course, error) {
	q := r.applyFilter(r.resolve(tx).WithContext(ctx), filter).
		Where("instructor_id = ?", instructorID)
	var out []*types.Course
	if err := q.Order("code ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *courseRepo) applyFilter(q *gorm.DB, filter CourseFilter) *gorm.DB {
	if filter.Term != "" {
		q = q.Where("term = ?", filter.Term)
	}
	if filter.Year != 0 {
		q = q.Where("year = ?", filter.Year)
	}
	if filter.Department != "" {
		q = q.Where("department = ?", filter.Department)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	return q
}

func (r *courseRepo) UpdateFields(ctx context.Context, tx *gorm.DB, id uuid.UUID, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	return r.resolve(tx).WithContext(ctx).
		Model(&types.Course{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *courseRepo) Count(ctx context.Context, tx *gorm.DB) (int64, error) {
	var count int64
	if err := r.resolve(tx).WithContext(ctx).
		Model(&types.Course{}).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *courseRepo) SetContractAddress(ctx context.Context, tx *gorm.DB, id uuid.UUID, assetID string) (bool, error) {
	res := r.resolve(tx).WithContext(ctx).
		Model(&types.Course{}).
		Where("id = ? AND contract_address IS NULL", id).
		Updates(map[string]interface{}{
			"contract_address": assetID,
			"updated_at":       time.Now(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

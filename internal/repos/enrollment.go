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

type EnrollmentRepo interface {
	Create(ctx context.Context, tx *gorm.DB, enrollment *types.Enrollment) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Enrollment, error)
	GetByStudentAndCourse(ctx context.Context, tx *gorm.DB, studentID, courseID uuid.UUID) (*types.Enrollment, error)
	ListByStudent(ctx context.Context, tx *gorm.DB, studentID uuid.UUID, status types.EnrollmentStatus) ([]*types.Enrollment, error)
	ListByCourse(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) ([]*types.Enrollment, error)
	// CountActive counts enrollments occupying a seat, i.e. every status but
	// dropped.
	CountActive(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) (int64, error)
	CountAll(ctx context.Context, tx *gorm.DB) (int64, error)
	UpdateStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, status types.EnrollmentStatus) error
	SetFinalGrade(ctx context.Context, tx *gorm.DB, id uuid.UUID, grade string) error
	// SetTransactionID anchors the enrollment. Guarded: a non-null
	// transaction_id is never overwritten, so the Unanchored -> Anchored
	// transition is one-way.
	SetTransactionID(ctx context.Context, tx *gorm.DB, id uuid.UUID, txID string) (bool, error)
}

type enrollmentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEnrollmentRepo(db *gorm.DB, baseLog *logger.Logger) EnrollmentRepo {
	return &enrollmentRepo{db: db, log: baseLog.With("repo", "EnrollmentRepo")}
}

func (r *enrollmentRepo) resolve(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *enrollmentRepo) Create(ctx context.Context, tx *gorm.DB, enrollment *types.Enrollment) error {
	return r.resolve(tx).WithContext(ctx).Create(enrollment).Error
}

func (r *enrollmentRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Enrollment, error) {
	var e types.Enrollment
	err := r.resolve(tx).WithContext(ctx).Where("id = ?", id).First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *enrollmentRepo) GetByStudentAndCourse(ctx context.Context, tx *gorm.DB, studentID, courseID uuid.UUID) (*types.Enrollment, error) {
	var e types.Enrollment
	err := r.resolve(tx).WithContext(ctx).
		Where("student_id = ? AND course_id = ?", studentID, courseID).
		First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *enrollmentRepo) ListByStudent(ctx context.Context, tx *gorm.DB, studentID uuid.UUID, status types.EnrollmentStatus) ([]*types.Enrollment, error) {
	q := r.resolve(tx).WithContext(ctx).Where("student_id = ?", studentID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var out []*types.Enrollment
	if err := q.Order("created_at ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *enrollmentRepo) ListByCourse(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) ([]*types.Enrollment, error) {
	var out []*types.Enrollment
	if err := r.resolve(tx).WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *enrollmentRepo) CountActive(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) (int64, error) {
	var count int64
	if err := r.resolve(tx).WithContext(ctx).
		Model(&types.Enrollment{}).
		Where("course_id = ? AND status <> ?", courseID, types.EnrollmentDropped).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *enrollmentRepo) CountAll(ctx context.Context, tx *gorm.DB) (int64, error) {
	var count int64
	if err := r.resolve(tx).WithContext(ctx).
		Model(&types.Enrollment{}).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *enrollmentRepo) UpdateStatus(ctx context.Context, tx *gorm.DB, id uuid.UUID, status types.EnrollmentStatus) error {
	return r.resolve(tx).WithContext(ctx).
		Model(&types.Enrollment{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now(),
		}).Error
}

func (r *enrollmentRepo) SetFinalGrade(ctx context.Context, tx *gorm.DB, id uuid.UUID, grade string) error {
	return r.resolve(tx).WithContext(ctx).
		Model(&types.Enrollment{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"grade":      grade,
			"updated_at": time.Now(),
		}).Error
}

func (r *enrollmentRepo) SetTransactionID(ctx context.Context, tx *gorm.DB, id uuid.UUID, txID string) (bool, error) {
	res := r.resolve(tx).WithContext(ctx).
		Model(&types.Enrollment{}).
		Where("id = ? AND transaction_id IS NULL", id).
		Updates(map[string]interface{}{
			"transaction_id": txID,
			"updated_at":     time.Now(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

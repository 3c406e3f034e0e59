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

type GradeRepo interface {
	Create(ctx context.Context, tx *gorm.DB, grade *types.Grade) error
	GetByAssignmentAndStudent(ctx context.Context, tx *gorm.DB, assignmentID, studentID uuid.UUID) (*types.Grade, error)
	UpdateScore(ctx context.Context, tx *gorm.DB, id uuid.UUID, score float64, feedback string) error
	ListByStudentAndAssignments(ctx context.Context, tx *gorm.DB, studentID uuid.UUID, assignmentIDs []uuid.UUID) ([]*types.Grade, error)
}

type gradeRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewGradeRepo(db *gorm.DB, baseLog *logger.Logger) GradeRepo {
	return &gradeRepo{db: db, log: baseLog.With("repo", "GradeRepo")}
}

func (r *gradeRepo) resolve(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *gradeRepo) Create(ctx context.Context, tx *gorm.DB, grade *types.Grade) error {
	return r.resolve(tx).WithContext(ctx).Create(grade).Error
}

func (r *gradeRepo) GetByAssignmentAndStudent(ctx context.Context, tx *gorm.DB, assignmentID, studentID uuid.UUID) (*types.Grade, error) {
	var g types.Grade
	err := r.resolve(tx).WithContext(ctx).
		Where("assignment_id = ? AND student_id = ?", assignmentID, studentID).
		First(&g).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &g, nil
}

func (r *gradeRepo) UpdateScore(ctx context.Context, tx *gorm.DB, id uuid.UUID, score float64, feedback string) error {
	return r.resolve(tx).WithContext(ctx).
		Model(&types.Grade{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"score":     score,
			"feedback":  feedback,
			"graded_at": time.Now(),
		}).Error
}

func (r *gradeRepo) ListByStudentAndAssignments(ctx context.Context, tx *gorm.DB, studentID uuid.UUID, assignmentIDs []uuid.UUID) ([]*types.Grade, error) {
	var out []*types.Grade
	if len(assignmentIDs) == 0 {
		return out, nil
	}
	if err := r.resolve(tx).WithContext(ctx).
		Where("student_id = ? AND assignment_id IN ?", studentID, assignmentIDs).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

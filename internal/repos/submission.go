package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/opencampus-io/registrar-backend/internal/logger"
	"github.com/opencampus-io/registrar-backend/internal/types"
)

type SubmissionRepo interface {
	Create(ctx context.Context, tx *gorm.DB, submission *types.Submission) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Submission, error)
	GetByAssignmentAndStudent(ctx context.Context, tx *gorm.DB, assignmentID, studentID uuid.UUID) (*types.Submission, error)
	ListByStudentAndAssignments(ctx context.Context, tx *gorm.DB, studentID uuid.UUID, assignmentIDs []uuid.UUID) ([]*types.Submission, error)
}

type submissionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSubmissionRepo(db *gorm.DB, baseLog *logger.Logger) SubmissionRepo {
	return &submissionRepo{db: db, log: baseLog.With("repo", "SubmissionRepo")}
}

func (r *submissionRepo) resolve(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *submissionRepo) Create(ctx context.Context, tx *gorm.DB, submission *types.Submission) error {
	return r.resolve(tx).WithContext(ctx).Create(submission).Error
}

func (r *submissionRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Submission, error) {
	var s types.Submission
	err := r.resolve(tx).WithContext(ctx).Where("id = ?", id).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *submissionRepo) GetByAssignmentAndStudent(ctx context.Context, tx *gorm.DB, assignmentID, studentID uuid.UUID) (*types.Submission, error) {
	var s types.Submission
	err := r.resolve(tx).WithContext(ctx).
		Where("assignment_id = ? AND student_id = ?", assignmentID, studentID).
		Order("submitted_at DESC").
		First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *submissionRepo) ListByStudentAndAssignments(ctx context.Context, tx *gorm.DB, studentID uuid.UUID, assignmentIDs []uuid.UUID) ([]*types.Submission, error) {
	var out []*types.Submission
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

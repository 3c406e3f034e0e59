package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/opencampus-io/registrar-backend/internal/logger"
	"github.com/opencampus-io/registrar-backend/internal/types"
)

type AssignmentRepo interface {
	Create(ctx context.Context, tx *gorm.DB, assignment *types.Assignment) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Assignment, error)
	ListByCourse(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) ([]*types.Assignment, error)
	ListByCourses(ctx context.Context, tx *gorm.DB, courseIDs []uuid.UUID) ([]*types.Assignment, error)
}

type assignmentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAssignmentRepo(db *gorm.DB, baseLog *logger.Logger) AssignmentRepo {
	return &assignmentRepo{db: db, log: baseLog.With("repo", "AssignmentRepo")}
}

func (r *assignmentRepo) resolve(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *assignmentRepo) Create(ctx context.Context, tx *gorm.DB, assignment *types.Assignment) error {
	return r.resolve(tx).WithContext(ctx).Create(assignment).Error
}

func (r *assignmentRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Assignment, error) {
	var a types.Assignment
	err := r.resolve(tx).WithContext(ctx).Where("id = ?", id).First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *assignmentRepo) ListByCourse(ctx context.Context, tx *gorm.DB, courseID uuid.UUID) ([]*types.Assignment, error) {
	var out []*types.Assignment
	if err := r.resolve(tx).WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("due_date ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *assignmentRepo) ListByCourses(ctx context.Context, tx *gorm.DB, courseIDs []uuid.UUID) ([]*types.Assignment, error) {
	var out []*types.Assignment
	if len(courseIDs) == 0 {
		return out, nil
	}
	if err := r.resolve(tx).WithContext(ctx).
		Where("course_id IN ?", courseIDs).
		Order("due_date ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

package repos

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/opencampus-io/registrar-backend/internal/logger"
	"github.com/opencampus-io/registrar-backend/internal/types"
)

type StudentFilter struct {
	Major string
	Year  int
}

type UserRepo interface {
	Create(ctx context.Context, tx *gorm.DB, user *types.User) error
	GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.User, error)
	GetByEmail(ctx context.Context, tx *gorm.DB, email string) (*types.User, error)
	GetByIDAndRole(ctx context.Context, tx *gorm.DB, id uuid.UUID, role types.Role) (*types.User, error)
	EmailExists(ctx context.Context, tx *gorm.DB, email string) (bool, error)
	CountByRole(ctx context.Context, tx *gorm.DB, role types.Role) (int64, error)
	UpdatePasswordHash(ctx context.Context, tx *gorm.DB, id uuid.UUID, hash string) error
	ListStudents(ctx context.Context, tx *gorm.DB, filter StudentFilter) ([]*types.User, error)
	ListProfessors(ctx context.Context, tx *gorm.DB, department string) ([]*types.User, error)
}

type userRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewUserRepo(db *gorm.DB, baseLog *logger.Logger) UserRepo {
	return &userRepo{db: db, log: baseLog.With("repo", "UserRepo")}
}

func (r *userRepo) resolve(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}

func (r *userRepo) Create(ctx context.Context, tx *gorm.DB, user *types.User) error {
	return r.resolve(tx).WithContext(ctx).Create(user).Error
}

func (r *userRepo) GetByID(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.User, error) {
	var user types.User
	err := r.resolve(tx).WithContext(ctx).
		Preload("StudentProfile").
		Preload("ProfessorProfile").
		Where("id = ?", id).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) GetByEmail(ctx context.Context, tx *gorm.DB, email string) (*types.User, error) {
	var user types.User
	err := r.resolve(tx).WithContext(ctx).
		Preload("StudentProfile").
		Preload("ProfessorProfile").
		Where("email = ?", email).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) GetByIDAndRole(ctx context.Context, tx *gorm.DB, id uuid.UUID, role types.Role) (*types.User, error) {
	var user types.User
	err := r.resolve(tx).WithContext(ctx).
		Preload("StudentProfile").
		Preload("ProfessorProfile").
		Where("id = ? AND role = ?", id, role).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepo) EmailExists(ctx context.Context, tx *gorm.DB, email string) (bool, error) {
	var count int64
	if err := r.resolve(tx).WithContext(ctx).
		Model(&types.User{}).
		Where("email = ?", email).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *userRepo) CountByRole(ctx context.Context, tx *gorm.DB, role types.Role) (int64, error) {
	var count int64
	if err := r.resolve(tx).WithContext(ctx).
		Model(&types.User{}).
		Where("role = ?", role).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (r *userRepo) UpdatePasswordHash(ctx context.Context, tx *gorm.DB, id uuid.UUID, hash string) error {
	return r.resolve(tx).WithContext(ctx).
		Model(&types.User{}).
		Where("id = ?", id).
		Update("password_hash", hash).Error
}

func (r *userRepo) ListStudents(ctx context.Context, tx *gorm.DB, filter StudentFilter) ([]*types.User, error) {
	q := r.resolve(tx).WithContext(ctx).
		Preload("StudentProfile").
		Where("role = ?", types.RoleStudent)
	if filter.Major != "" || filter.Year != 0 {
		sub := r.resolve(tx).Model(&types.StudentProfile{}).Select("user_id")
		if filter.Major != "" {
			sub = sub.Where("major = ?", filter.Major)
		}
		if filter.Year != 0 {
			sub = sub.Where("year = ?", filter.Year)
		}
		q = q.Where("id IN (?)", sub)
	}
	var out []*types.User
	if err := q.Order("name ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *userRepo) ListProfessors(ctx context.Context, tx *gorm.DB, department string) ([]*types.User, error) {
	q := r.resolve(tx).WithContext(ctx).
		Preload("ProfessorProfile").
		Where("role = ?", types.RoleProfessor)
	if department != "" {
		sub := r.resolve(tx).Model(&types.ProfessorProfile{}).
			Select("user_id").
			Where("department = ?", department)
		q = q.Where("id IN (?)", sub)
	}
	var out []*types.User
	if err := q.Order("name ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

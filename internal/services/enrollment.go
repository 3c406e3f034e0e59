package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/opencampus-io/registrar-backend/internal/apierr"
	"github.com/opencampus-io/registrar-backend/internal/logger"
	"github.com/opencampus-io/registrar-backend/internal/repos"
	"github.com/opencampus-io/registrar-backend/internal/types"
)

type EnrollmentService interface {
	Enroll(ctx context.Context, caller Caller, courseID uuid.UUID) (*types.Enrollment, error)
	Drop(ctx context.Context, caller Caller, courseID uuid.UUID) (*types.Enrollment, error)
	ListForStudent(ctx context.Context, caller Caller, studentID uuid.UUID, status types.EnrollmentStatus) ([]*types.Enrollment, error)
}

type enrollmentService struct {
	db               *gorm.DB
	log              *logger.Logger
	courseRepo       repos.CourseRepo
	enrollmentRepo   repos.EnrollmentRepo
	anchorJobRepo    repos.AnchorJobRepo
	anchoringEnabled bool
}

func NewEnrollmentService(
	db *gorm.DB,
	baseLog *logger.Logger,
	courseRepo repos.CourseRepo,
	enrollmentRepo repos.EnrollmentRepo,
	anchorJobRepo repos.AnchorJobRepo,
	anchoringEnabled bool,
) EnrollmentService {
	return &enrollmentService{
		db:               db,
		log:              baseLog.With("service", "EnrollmentService"),
		courseRepo:       courseRepo,
		enrollmentRepo:   enrollmentRepo,
		anchorJobRepo:    anchorJobRepo,
		anchoringEnabled: anchoringEnabled,
	}
}

// Enroll admits the calling student into the course. The capacity check and
// the enrollment insert run in one transaction with the course row locked so
// concurrent enrollments cannot oversubscribe the course.
func (es *enrollmentService) Enroll(ctx context.Context, caller Caller, courseID uuid.UUID) (*types.Enrollment, error) {
	if !caller.IsStudent() {
		return nil, apierr.Forbidden("student_required", fmt.Errorf("only students can enroll"))
	}

	var enrollment *types.Enrollment
	err := es.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		course, err := es.courseRepo.GetByIDForUpdate(ctx, tx, courseID)
		if err != nil {
			return fmt.Errorf("load course: %w", err)
		}
		if course == nil {
			return apierr.NotFound("course_not_found", fmt.Errorf("course not found"))
		}
		if course.Status != types.CourseActive {
			return apierr.Validation("course_not_active", fmt.Errorf("course %s is not open for enrollment", course.Code))
		}

		existing, err := es.enrollmentRepo.GetByStudentAndCourse(ctx, tx, caller.ID, courseID)
		if err != nil {
			return fmt.Errorf("check existing enrollment: %w", err)
		}
		if existing != nil && existing.Status != types.EnrollmentDropped {
			return apierr.Conflict("already_enrolled", fmt.Errorf("student already enrolled in course"))
		}

		active, err := es.enrollmentRepo.CountActive(ctx, tx, courseID)
		if err != nil {
			return fmt.Errorf("count enrollments: %w", err)
		}
		if active >= int64(course.Capacity) {
			return apierr.Conflict("capacity_exceeded", fmt.Errorf("course %s is full", course.Code))
		}

		if existing != nil {
			// Re-enrolling after a drop reactivates the old record.
			if err := es.enrollmentRepo.UpdateStatus(ctx, tx, existing.ID, types.EnrollmentEnrolled); err != nil {
				return fmt.Errorf("reactivate enrollment: %w", err)
			}
			existing.Status = types.EnrollmentEnrolled
			enrollment = existing
		} else {
			enrollment = &types.Enrollment{
				ID:        uuid.New(),
				StudentID: caller.ID,
				CourseID:  courseID,
				Status:    types.EnrollmentEnrolled,
			}
			if err := es.enrollmentRepo.Create(ctx, tx, enrollment); err != nil {
				return fmt.Errorf("create enrollment: %w", err)
			}
		}

		if es.anchoringEnabled {
			return enqueueAnchorJob(ctx, tx, es.anchorJobRepo, types.AnchorEnrollment, enrollment.ID)
		}
		return nil
	})
	if err != nil {
		return nil, apierr.FromDB(err, "already_enrolled")
	}
	es.log.Info("student enrolled", "student_id", caller.ID, "course_id", courseID)
	return enrollment, nil
}

func (es *enrollmentService) Drop(ctx context.Context, caller Caller, courseID uuid.UUID) (*types.Enrollment, error) {
	if !caller.IsStudent() {
		return nil, apierr.Forbidden("student_required", fmt.Errorf("only students can drop courses"))
	}
	enrollment, err := es.enrollmentRepo.GetByStudentAndCourse(ctx, nil, caller.ID, courseID)
	if err != nil {
		return nil, fmt.Errorf("load enrollment: %w", err)
	}
	if enrollment == nil || enrollment.Status == types.EnrollmentDropped {
		return nil, apierr.NotFound("enrollment_not_found", fmt.Errorf("no active enrollment for course"))
	}
	if enrollment.Status == types.EnrollmentComplete {
		return nil, apierr.Validation("enrollment_complete", fmt.Errorf("completed enrollments cannot be dropped"))
	}
	if err := es.enrollmentRepo.UpdateStatus(ctx, nil, enrollment.ID, types.EnrollmentDropped); err != nil {
		return nil, fmt.Errorf("drop enrollment: %w", err)
	}
	enrollment.Status = types.EnrollmentDropped
	es.log.Info("student dropped course", "student_id", caller.ID, "course_id", courseID)
	return enrollment, nil
}

func (es *enrollmentService) ListForStudent(ctx context.Context, caller Caller, studentID uuid.UUID, status types.EnrollmentStatus) ([]*types.Enrollment, error) {
	if caller.IsStudent() && caller.ID != studentID {
		return nil, apierr.Forbidden("not_own_enrollments", fmt.Errorf("students may only view their own enrollments"))
	}
	return es.enrollmentRepo.ListByStudent(ctx, nil, studentID, status)
}

package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/opencampus-io/registrar-backend/internal/apierr"
	"github.com/opencampus-io/registrar-backend/internal/ledger"
	"github.com/opencampus-io/registrar-backend/internal/logger"
	"github.com/opencampus-io/registrar-backend/internal/repos"
	"github.com/opencampus-io/registrar-backend/internal/types"
)

// Certificate is the ledger-issued completion record for one student.
type Certificate struct {
	CourseID      uuid.UUID `json:"course_id"`
	StudentID     uuid.UUID `json:"student_id"`
	Grade         string    `json:"grade"`
	AssetID       string    `json:"asset_id"`
	TransactionID string    `json:"transaction_id"`
}

type CertificateService interface {
	Issue(ctx context.Context, caller Caller, courseID, studentID uuid.UUID) (*Certificate, error)
}

type certificateService struct {
	db             *gorm.DB
	log            *logger.Logger
	courseRepo     repos.CourseRepo
	enrollmentRepo repos.EnrollmentRepo
	userRepo       repos.UserRepo
	ledgerClient   ledger.Client
}

func NewCertificateService(
	db *gorm.DB,
	baseLog *logger.Logger,
	courseRepo repos.CourseRepo,
	enrollmentRepo repos.EnrollmentRepo,
	userRepo repos.UserRepo,
	ledgerClient ledger.Client,
) CertificateService {
	return &certificateService{
		db:             db,
		log:            baseLog.With("service", "CertificateService"),
		courseRepo:     courseRepo,
		enrollmentRepo: enrollmentRepo,
		userRepo:       userRepo,
		ledgerClient:   ledgerClient,
	}
}

// Issue mints a certificate token for a completed, graded enrollment. A
// certificate has no local-only existence, so a ledger failure here fails
// the whole request.
func (cs *certificateService) Issue(ctx context.Context, caller Caller, courseID, studentID uuid.UUID) (*Certificate, error) {
	if cs.ledgerClient == nil {
		return nil, apierr.LedgerUnavailable(fmt.Errorf("ledger anchoring is not configured"))
	}

	course, err := cs.courseRepo.GetByID(ctx, nil, courseID)
	if err != nil {
		return nil, fmt.Errorf("load course: %w", err)
	}
	if course == nil {
		return nil, apierr.NotFound("course_not_found", fmt.Errorf("course not found"))
	}
	if !caller.IsAdmin() {
		if !caller.IsProfessor() || course.InstructorID == nil || *course.InstructorID != caller.ID {
			return nil, apierr.Forbidden("not_course_instructor", fmt.Errorf("only the course instructor or an admin can issue certificates"))
		}
	}

	enrollment, err := cs.enrollmentRepo.GetByStudentAndCourse(ctx, nil, studentID, courseID)
	if err != nil {
		return nil, fmt.Errorf("load enrollment: %w", err)
	}
	if enrollment == nil || enrollment.Status == types.EnrollmentDropped {
		return nil, apierr.NotFound("enrollment_not_found", fmt.Errorf("student is not enrolled in this course"))
	}
	if enrollment.Status != types.EnrollmentComplete || enrollment.Grade == nil {
		return nil, apierr.Validation("course_not_completed", fmt.Errorf("certificate requires a completed enrollment with a final grade"))
	}

	student, err := cs.userRepo.GetByIDAndRole(ctx, nil, studentID, types.RoleStudent)
	if err != nil {
		return nil, fmt.Errorf("load student: %w", err)
	}
	if student == nil {
		return nil, apierr.NotFound("student_not_found", fmt.Errorf("student not found"))
	}

	result, err := cs.ledgerClient.IssueCertificate(ctx, ledger.CertificateSpec{
		CourseID:    course.ID,
		CourseCode:  course.Code,
		CourseTitle: course.Title,
		Credits:     course.Credits,
		StudentID:   student.ID,
		StudentName: student.Name,
		Grade:       *enrollment.Grade,
	})
	if err != nil {
		if errors.Is(err, ledger.ErrTimeout) {
			return nil, apierr.LedgerTimeout(err)
		}
		return nil, apierr.LedgerUnavailable(err)
	}

	cs.log.Info("certificate issued",
		"course_id", course.ID,
		"student_id", student.ID,
		"asset_id", result.AssetID,
		"tx_id", result.TransactionID,
	)
	return &Certificate{
		CourseID:      course.ID,
		StudentID:     student.ID,
		Grade:         *enrollment.Grade,
		AssetID:       result.AssetID,
		TransactionID: result.TransactionID,
	}, nil
}

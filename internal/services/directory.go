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

// StudentCourse pairs an enrollment with its course for transcript views.
type StudentCourse struct {
	Enrollment *types.Enrollment `json:"enrollment"`
	Course     *types.Course     `json:"course"`
}

// CourseStudent pairs an enrollment with the enrolled student for rosters.
type CourseStudent struct {
	Enrollment *types.Enrollment `json:"enrollment"`
	Student    *types.User       `json:"student"`
}

type DirectoryService interface {
	ListStudents(ctx context.Context, caller Caller, filter repos.StudentFilter) ([]*types.User, error)
	GetStudent(ctx context.Context, caller Caller, studentID uuid.UUID) (*types.User, error)
	ListProfessors(ctx context.Context, department string) ([]*types.User, error)
	GetProfessor(ctx context.Context, professorID uuid.UUID) (*types.User, error)
	StudentCourses(ctx context.Context, caller Caller, studentID uuid.UUID, status types.EnrollmentStatus) ([]StudentCourse, error)
	ProfessorCourses(ctx context.Context, professorID uuid.UUID, filter repos.CourseFilter) ([]*types.Course, error)
	CourseStudents(ctx context.Context, caller Caller, courseID uuid.UUID) ([]CourseStudent, error)
}

type directoryService struct {
	db             *gorm.DB
	log            *logger.Logger
	userRepo       repos.UserRepo
	courseRepo     repos.CourseRepo
	enrollmentRepo repos.EnrollmentRepo
}

func NewDirectoryService(
	db *gorm.DB,
	baseLog *logger.Logger,
	userRepo repos.UserRepo,
	courseRepo repos.CourseRepo,
	enrollmentRepo repos.EnrollmentRepo,
) DirectoryService {
	return &directoryService{
		db:             db,
		log:            baseLog.With("service", "DirectoryService"),
		userRepo:       userRepo,
		courseRepo:     courseRepo,
		enrollmentRepo: enrollmentRepo,
	}
}

func (ds *directoryService) ListStudents(ctx context.Context, caller Caller, filter repos.StudentFilter) ([]*types.User, error) {
	if !caller.IsStaff() {
		return nil, apierr.Forbidden("professor_or_admin_required", fmt.Errorf("only staff can list students"))
	}
	return ds.userRepo.ListStudents(ctx, nil, filter)
}

func (ds *directoryService) GetStudent(ctx context.Context, caller Caller, studentID uuid.UUID) (*types.User, error) {
	if caller.IsStudent() && caller.ID != studentID {
		return nil, apierr.Forbidden("not_own_profile", fmt.Errorf("students may only view their own profile"))
	}
	student, err := ds.userRepo.GetByIDAndRole(ctx, nil, studentID, types.RoleStudent)
	if err != nil {
		return nil, fmt.Errorf("load student: %w", err)
	}
	if student == nil {
		return nil, apierr.NotFound("student_not_found", fmt.Errorf("student not found"))
	}
	return student, nil
}

func (ds *directoryService) ListProfessors(ctx context.Context, department string) ([]*types.User, error) {
	return ds.userRepo.ListProfessors(ctx, nil, department)
}

func (ds *directoryService) GetProfessor(ctx context.Context, professorID uuid.UUID) (*types.User, error) {
	professor, err := ds.userRepo.GetByIDAndRole(ctx, nil, professorID, types.RoleProfessor)
	if err != nil {
		return nil, fmt.Errorf("load professor: %w", err)
	}
	if professor == nil {
		return nil, apierr.NotFound("professor_not_found", fmt.Errorf("professor not found"))
	}
	return professor, nil
}

func (ds *directoryService) StudentCourses(ctx context.Context, caller Caller, studentID uuid.UUID, status types.EnrollmentStatus) ([]StudentCourse, error) {
	if caller.IsStudent() && caller.ID != studentID {
		return nil, apierr.Forbidden("not_own_courses", fmt.Errorf("students may only view their own courses"))
	}
	enrollments, err := ds.enrollmentRepo.ListByStudent(ctx, nil, studentID, status)
	if err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}
	out := make([]StudentCourse, 0, len(enrollments))
	for _, enrollment := range enrollments {
		course, err := ds.courseRepo.GetByID(ctx, nil, enrollment.CourseID)
		if err != nil {
			return nil, fmt.Errorf("load course: %w", err)
		}
		if course == nil {
			continue
		}
		out = append(out, StudentCourse{Enrollment: enrollment, Course: course})
	}
	return out, nil
}

func (ds *directoryService) ProfessorCourses(ctx context.Context, professorID uuid.UUID, filter repos.CourseFilter) ([]*types.Course, error) {
	professor, err := ds.userRepo.GetByIDAndRole(ctx, nil, professorID, types.RoleProfessor)
	if err != nil {
		return nil, fmt.Errorf("load professor: %w", err)
	}
	if professor == nil {
		return nil, apierr.NotFound("professor_not_found", fmt.Errorf("professor not found"))
	}
	return ds.courseRepo.ListByInstructor(ctx, nil, professorID, filter)
}

func (ds *directoryService) CourseStudents(ctx context.Context, caller Caller, courseID uuid.UUID) ([]CourseStudent, error) {
	course, err := ds.courseRepo.GetByID(ctx, nil, courseID)
	if err != nil {
		return nil, fmt.Errorf("load course: %w", err)
	}
	if course == nil {
		return nil, apierr.NotFound("course_not_found", fmt.Errorf("course not found"))
	}
	if !caller.IsAdmin() {
		if !caller.IsProfessor() || course.InstructorID == nil || *course.InstructorID != caller.ID {
			return nil, apierr.Forbidden("not_course_instructor", fmt.Errorf("only the instructor or an admin can view the roster"))
		}
	}

	enrollments, err := ds.enrollmentRepo.ListByCourse(ctx, nil, courseID)
	if err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}
	out := make([]CourseStudent, 0, len(enrollments))
	for _, enrollment := range enrollments {
		if enrollment.Status == types.EnrollmentDropped {
			continue
		}
		student, err := ds.userRepo.GetByID(ctx, nil, enrollment.StudentID)
		if err != nil {
			return nil, fmt.Errorf("load student: %w", err)
		}
		if student == nil {
			continue
		}
		out = append(out, CourseStudent{Enrollment: enrollment, Student: student})
	}
	return out, nil
}

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

// StudentDashboardCourse is one enrolled course with grading progress, the
// share of the course's assignments that have been graded for this student.
type StudentDashboardCourse struct {
	ID         uuid.UUID `json:"id"`
	Code       string    `json:"code"`
	Title      string    `json:"title"`
	Instructor string    `json:"instructor,omitempty"`
	Credits    int       `json:"credits"`
	Progress   float64   `json:"progress"`
}

type StudentDashboard struct {
	Courses          []StudentDashboardCourse `json:"courses"`
	EnrollmentsCount int                      `json:"enrollments_count"`
	TotalCredits     int                      `json:"total_credits"`
}

// ProfessorDashboardCourse is one taught course with its active headcount.
type ProfessorDashboardCourse struct {
	ID            uuid.UUID `json:"id"`
	Code          string    `json:"code"`
	Title         string    `json:"title"`
	Credits       int       `json:"credits"`
	StudentsCount int64     `json:"students_count"`
}

type ProfessorDashboard struct {
	Courses       []ProfessorDashboardCourse `json:"courses"`
	CoursesCount  int                        `json:"courses_count"`
	TotalStudents int64                      `json:"total_students"`
}

// SystemStats are the admin-wide row counts.
type SystemStats struct {
	CoursesCount     int64 `json:"courses_count"`
	StudentsCount    int64 `json:"students_count"`
	ProfessorsCount  int64 `json:"professors_count"`
	EnrollmentsCount int64 `json:"enrollments_count"`
}

type DashboardUser struct {
	Name string     `json:"name"`
	Role types.Role `json:"role"`
}

// Dashboard carries exactly one role section, matching the caller's role.
type Dashboard struct {
	User      DashboardUser       `json:"user"`
	Student   *StudentDashboard   `json:"student,omitempty"`
	Professor *ProfessorDashboard `json:"professor,omitempty"`
	Stats     *SystemStats        `json:"stats,omitempty"`
}

type DashboardService interface {
	Profile(ctx context.Context, caller Caller) (*types.User, error)
	Dashboard(ctx context.Context, caller Caller) (*Dashboard, error)
}

type dashboardService struct {
	db             *gorm.DB
	log            *logger.Logger
	userRepo       repos.UserRepo
	courseRepo     repos.CourseRepo
	enrollmentRepo repos.EnrollmentRepo
	assignmentRepo repos.AssignmentRepo
	gradeRepo      repos.GradeRepo
}

func NewDashboardService(
	db *gorm.DB,
	baseLog *logger.Logger,
	userRepo repos.UserRepo,
	courseRepo repos.CourseRepo,
	enrollmentRepo repos.EnrollmentRepo,
	assignmentRepo repos.AssignmentRepo,
	gradeRepo repos.GradeRepo,
) DashboardService {
	return &dashboardService{
		db:             db,
		log:            baseLog.With("service", "DashboardService"),
		userRepo:       userRepo,
		courseRepo:     courseRepo,
		enrollmentRepo: enrollmentRepo,
		assignmentRepo: assignmentRepo,
		gradeRepo:      gradeRepo,
	}
}

func (ds *dashboardService) Profile(ctx context.Context, caller Caller) (*types.User, error) {
	user, err := ds.userRepo.GetByID(ctx, nil, caller.ID)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if user == nil {
		return nil, apierr.NotFound("user_not_found", fmt.Errorf("user not found"))
	}
	return user, nil
}

func (ds *dashboardService) Dashboard(ctx context.Context, caller Caller) (*Dashboard, error) {
	user, err := ds.Profile(ctx, caller)
	if err != nil {
		return nil, err
	}
	out := &Dashboard{User: DashboardUser{Name: user.Name, Role: user.Role}}

	switch {
	case caller.IsStudent():
		out.Student, err = ds.studentDashboard(ctx, caller.ID)
	case caller.IsProfessor():
		out.Professor, err = ds.professorDashboard(ctx, caller.ID)
	default:
		out.Stats, err = ds.systemStats(ctx)
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (ds *dashboardService) studentDashboard(ctx context.Context, studentID uuid.UUID) (*StudentDashboard, error) {
	enrollments, err := ds.enrollmentRepo.ListByStudent(ctx, nil, studentID, "")
	if err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}

	dashboard := &StudentDashboard{Courses: []StudentDashboardCourse{}}
	for _, enrollment := range enrollments {
		if enrollment.Status == types.EnrollmentDropped {
			continue
		}
		course, err := ds.courseRepo.GetByID(ctx, nil, enrollment.CourseID)
		if err != nil {
			return nil, fmt.Errorf("load course: %w", err)
		}
		if course == nil {
			continue
		}
		progress, err := ds.courseProgress(ctx, course.ID, studentID)
		if err != nil {
			return nil, err
		}
		entry := StudentDashboardCourse{
			ID:       course.ID,
			Code:     course.Code,
			Title:    course.Title,
			Credits:  course.Credits,
			Progress: progress,
		}
		if course.InstructorID != nil {
			instructor, err := ds.userRepo.GetByID(ctx, nil, *course.InstructorID)
			if err != nil {
				return nil, fmt.Errorf("load instructor: %w", err)
			}
			if instructor != nil {
				entry.Instructor = instructor.Name
			}
		}
		dashboard.Courses = append(dashboard.Courses, entry)
		dashboard.EnrollmentsCount++
		dashboard.TotalCredits += course.Credits
	}
	return dashboard, nil
}

func (ds *dashboardService) courseProgress(ctx context.Context, courseID, studentID uuid.UUID) (float64, error) {
	assignments, err := ds.assignmentRepo.ListByCourse(ctx, nil, courseID)
	if err != nil {
		return 0, fmt.Errorf("list assignments: %w", err)
	}
	if len(assignments) == 0 {
		return 0, nil
	}
	ids := make([]uuid.UUID, 0, len(assignments))
	for _, a := range assignments {
		ids = append(ids, a.ID)
	}
	grades, err := ds.gradeRepo.ListByStudentAndAssignments(ctx, nil, studentID, ids)
	if err != nil {
		return 0, fmt.Errorf("list grades: %w", err)
	}
	return float64(len(grades)) / float64(len(assignments)) * 100, nil
}

func (ds *dashboardService) professorDashboard(ctx context.Context, professorID uuid.UUID) (*ProfessorDashboard, error) {
	courses, err := ds.courseRepo.ListByInstructor(ctx, nil, professorID, repos.CourseFilter{})
	if err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}

	dashboard := &ProfessorDashboard{Courses: []ProfessorDashboardCourse{}}
	for _, course := range courses {
		count, err := ds.enrollmentRepo.CountActive(ctx, nil, course.ID)
		if err != nil {
			return nil, fmt.Errorf("count enrollments: %w", err)
		}
		dashboard.Courses = append(dashboard.Courses, ProfessorDashboardCourse{
			ID:            course.ID,
			Code:          course.Code,
			Title:         course.Title,
			Credits:       course.Credits,
			StudentsCount: count,
		})
		dashboard.TotalStudents += count
	}
	dashboard.CoursesCount = len(courses)
	return dashboard, nil
}

func (ds *dashboardService) systemStats(ctx context.Context) (*SystemStats, error) {
	stats := &SystemStats{}
	var err error
	if stats.CoursesCount, err = ds.courseRepo.Count(ctx, nil); err != nil {
		return nil, fmt.Errorf("count courses: %w", err)
	}
	if stats.StudentsCount, err = ds.userRepo.CountByRole(ctx, nil, types.RoleStudent); err != nil {
		return nil, fmt.Errorf("count students: %w", err)
	}
	if stats.ProfessorsCount, err = ds.userRepo.CountByRole(ctx, nil, types.RoleProfessor); err != nil {
		return nil, fmt.Errorf("count professors: %w", err)
	}
	if stats.EnrollmentsCount, err = ds.enrollmentRepo.CountAll(ctx, nil); err != nil {
		return nil, fmt.Errorf("count enrollments: %w", err)
	}
	return stats, nil
}

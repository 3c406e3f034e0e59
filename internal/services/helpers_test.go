package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/opencampus-io/registrar-backend/internal/ledger/ledgertest"
	"github.com/opencampus-io/registrar-backend/internal/repos"
	"github.com/opencampus-io/registrar-backend/internal/repos/testutil"
	"github.com/opencampus-io/registrar-backend/internal/types"
)

type testEnv struct {
	db   *gorm.DB
	fake *ledgertest.Fake

	userRepo       repos.UserRepo
	courseRepo     repos.CourseRepo
	enrollmentRepo repos.EnrollmentRepo
	assignmentRepo repos.AssignmentRepo
	submissionRepo repos.SubmissionRepo
	gradeRepo      repos.GradeRepo
	anchorJobRepo  repos.AnchorJobRepo

	auth         AuthService
	courses      CourseService
	enrollments  EnrollmentService
	grading      GradingService
	directory    DirectoryService
	dashboard    DashboardService
	verification VerificationService
	certificates CertificateService
}

func newTestEnv(tb testing.TB) *testEnv {
	tb.Helper()
	gdb := testutil.DB(tb)
	log := testutil.Logger(tb)
	fake := ledgertest.NewFake()

	env := &testEnv{
		db:             gdb,
		fake:           fake,
		userRepo:       repos.NewUserRepo(gdb, log),
		courseRepo:     repos.NewCourseRepo(gdb, log),
		enrollmentRepo: repos.NewEnrollmentRepo(gdb, log),
		assignmentRepo: repos.NewAssignmentRepo(gdb, log),
		submissionRepo: repos.NewSubmissionRepo(gdb, log),
		gradeRepo:      repos.NewGradeRepo(gdb, log),
		anchorJobRepo:  repos.NewAnchorJobRepo(gdb, log),
	}
	env.auth = NewAuthService(gdb, log, env.userRepo, "test-secret", time.Hour)
	env.courses = NewCourseService(gdb, log, env.courseRepo, env.enrollmentRepo, env.assignmentRepo, env.userRepo, env.anchorJobRepo, true)
	env.enrollments = NewEnrollmentService(gdb, log, env.courseRepo, env.enrollmentRepo, env.anchorJobRepo, true)
	env.grading = NewGradingService(gdb, log, env.courseRepo, env.enrollmentRepo, env.assignmentRepo, env.submissionRepo, env.gradeRepo)
	env.directory = NewDirectoryService(gdb, log, env.userRepo, env.courseRepo, env.enrollmentRepo)
	env.dashboard = NewDashboardService(gdb, log, env.userRepo, env.courseRepo, env.enrollmentRepo, env.assignmentRepo, env.gradeRepo)
	env.verification = NewVerificationService(gdb, log, env.enrollmentRepo, env.courseRepo, fake, nil)
	env.certificates = NewCertificateService(gdb, log, env.courseRepo, env.enrollmentRepo, env.userRepo, fake)
	return env
}

func (e *testEnv) createStudent(tb testing.TB) Caller {
	tb.Helper()
	suffix := uuid.New().String()[:8]
	user, _, err := e.auth.Register(context.Background(), RegisterInput{
		Email:         fmt.Sprintf("student-%s@test.edu", suffix),
		Password:      "password123",
		Name:          "Student " + suffix,
		Role:          types.RoleStudent,
		StudentNumber: "S" + suffix,
		Major:         "Computer Science",
		Year:          2,
	})
	if err != nil {
		tb.Fatalf("create student: %v", err)
	}
	return Caller{ID: user.ID, Role: types.RoleStudent}
}

func (e *testEnv) createProfessor(tb testing.TB) Caller {
	tb.Helper()
	suffix := uuid.New().String()[:8]
	user, _, err := e.auth.Register(context.Background(), RegisterInput{
		Email:           fmt.Sprintf("prof-%s@test.edu", suffix),
		Password:        "password123",
		Name:            "Professor " + suffix,
		Role:            types.RoleProfessor,
		ProfessorNumber: "P" + suffix,
		Department:      "Computer Science",
		Title:           "Associate Professor",
	})
	if err != nil {
		tb.Fatalf("create professor: %v", err)
	}
	return Caller{ID: user.ID, Role: types.RoleProfessor}
}

func (e *testEnv) createAdmin(tb testing.TB) Caller {
	tb.Helper()
	suffix := uuid.New().String()[:8]
	user, _, err := e.auth.Register(context.Background(), RegisterInput{
		Email:    fmt.Sprintf("admin-%s@test.edu", suffix),
		Password: "password123",
		Name:     "Admin " + suffix,
		Role:     types.RoleAdmin,
	})
	if err != nil {
		tb.Fatalf("create admin: %v", err)
	}
	return Caller{ID: user.ID, Role: types.RoleAdmin}
}

func (e *testEnv) createCourse(tb testing.TB, instructor Caller, capacity int) *types.Course {
	tb.Helper()
	suffix := uuid.New().String()[:8]
	course, err := e.courses.Create(context.Background(), instructor, CreateCourseInput{
		Code:       "CS-" + suffix,
		Title:      "Distributed Systems " + suffix,
		Credits:    3,
		Capacity:   capacity,
		Term:       "Fall",
		Year:       2026,
		Department: "Computer Science",
		Fee:        500,
	})
	if err != nil {
		tb.Fatalf("create course: %v", err)
	}
	return course
}

func (e *testEnv) createAssignment(tb testing.TB, instructor Caller, courseID uuid.UUID, points int, weight float64) *types.Assignment {
	tb.Helper()
	assignment, err := e.courses.CreateAssignment(context.Background(), instructor, courseID, CreateAssignmentInput{
		Title:   "Assignment " + uuid.New().String()[:8],
		DueDate: time.Now().Add(7 * 24 * time.Hour),
		Points:  points,
		Weight:  weight,
	})
	if err != nil {
		tb.Fatalf("create assignment: %v", err)
	}
	return assignment
}

func (e *testEnv) enroll(tb testing.TB, student Caller, courseID uuid.UUID) *types.Enrollment {
	tb.Helper()
	enrollment, err := e.enrollments.Enroll(context.Background(), student, courseID)
	if err != nil {
		tb.Fatalf("enroll: %v", err)
	}
	return enrollment
}

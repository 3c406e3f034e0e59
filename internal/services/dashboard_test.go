package services

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/opencampus-io/registrar-backend/internal/apierr"
	"github.com/opencampus-io/registrar-backend/internal/types"
)

func TestProfileReturnsCurrentUser(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	student := env.createStudent(t)

	user, err := env.dashboard.Profile(ctx, student)
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if user.ID != student.ID {
		t.Errorf("user id = %s, want %s", user.ID, student.ID)
	}
	if user.StudentProfile == nil {
		t.Error("student profile should be loaded")
	}

	_, err = env.dashboard.Profile(ctx, Caller{ID: uuid.New(), Role: types.RoleStudent})
	if apierr.StatusOf(err) != 404 {
		t.Fatalf("expected 404 for unknown user, got %v", err)
	}
}

func TestStudentDashboardProgressAndCredits(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	prof := env.createProfessor(t)
	student := env.createStudent(t)
	course := env.createCourse(t, prof, 10)
	env.enroll(t, student, course.ID)
	a1 := env.createAssignment(t, prof, course.ID, 100, 1)
	env.createAssignment(t, prof, course.ID, 100, 1)

	// One of two assignments graded: progress 50%.
	if _, err := env.grading.UpsertAssignmentGrade(ctx, prof, a1.ID, student.ID, GradeInput{Score: 90}); err != nil {
		t.Fatalf("grade: %v", err)
	}

	dashboard, err := env.dashboard.Dashboard(ctx, student)
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if dashboard.Student == nil || dashboard.Professor != nil || dashboard.Stats != nil {
		t.Fatalf("student caller should get only the student section: %+v", dashboard)
	}
	if dashboard.User.Role != types.RoleStudent {
		t.Errorf("user role = %q, want student", dashboard.User.Role)
	}
	sd := dashboard.Student
	if sd.EnrollmentsCount != 1 || len(sd.Courses) != 1 {
		t.Fatalf("courses = %d enrollments = %d, want 1/1", len(sd.Courses), sd.EnrollmentsCount)
	}
	if sd.TotalCredits != course.Credits {
		t.Errorf("total credits = %d, want %d", sd.TotalCredits, course.Credits)
	}
	entry := sd.Courses[0]
	if entry.ID != course.ID {
		t.Errorf("course id = %s, want %s", entry.ID, course.ID)
	}
	if entry.Progress != 50 {
		t.Errorf("progress = %v, want 50", entry.Progress)
	}
	if entry.Instructor == "" {
		t.Error("instructor name missing from dashboard entry")
	}
}

func TestStudentDashboardExcludesDropped(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	prof := env.createProfessor(t)
	student := env.createStudent(t)
	kept := env.createCourse(t, prof, 10)
	dropped := env.createCourse(t, prof, 10)
	env.enroll(t, student, kept.ID)
	env.enroll(t, student, dropped.ID)
	if _, err := env.enrollments.Drop(ctx, student, dropped.ID); err != nil {
		t.Fatalf("drop: %v", err)
	}

	dashboard, err := env.dashboard.Dashboard(ctx, student)
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	sd := dashboard.Student
	if sd.EnrollmentsCount != 1 || len(sd.Courses) != 1 {
		t.Fatalf("dropped course should not count: %+v", sd)
	}
	if sd.Courses[0].ID != kept.ID {
		t.Errorf("course = %s, want %s", sd.Courses[0].ID, kept.ID)
	}
}

func TestProfessorDashboardCounts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	prof := env.createProfessor(t)
	c1 := env.createCourse(t, prof, 10)
	c2 := env.createCourse(t, prof, 10)
	env.enroll(t, env.createStudent(t), c1.ID)
	env.enroll(t, env.createStudent(t), c1.ID)
	env.enroll(t, env.createStudent(t), c2.ID)

	dashboard, err := env.dashboard.Dashboard(ctx, prof)
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if dashboard.Professor == nil || dashboard.Student != nil || dashboard.Stats != nil {
		t.Fatalf("professor caller should get only the professor section: %+v", dashboard)
	}
	pd := dashboard.Professor
	if pd.CoursesCount != 2 || len(pd.Courses) != 2 {
		t.Fatalf("courses count = %d, want 2", pd.CoursesCount)
	}
	if pd.TotalStudents != 3 {
		t.Errorf("total students = %d, want 3", pd.TotalStudents)
	}
	counts := map[uuid.UUID]int64{}
	for _, entry := range pd.Courses {
		counts[entry.ID] = entry.StudentsCount
	}
	if counts[c1.ID] != 2 || counts[c2.ID] != 1 {
		t.Errorf("per-course counts = %v, want {%s:2 %s:1}", counts, c1.ID, c2.ID)
	}
}

func TestAdminDashboardSystemStats(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.createAdmin(t)

	before, err := env.dashboard.Dashboard(ctx, admin)
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	if before.Stats == nil || before.Student != nil || before.Professor != nil {
		t.Fatalf("admin caller should get only system stats: %+v", before)
	}

	prof := env.createProfessor(t)
	course := env.createCourse(t, prof, 10)
	env.enroll(t, env.createStudent(t), course.ID)

	after, err := env.dashboard.Dashboard(ctx, admin)
	if err != nil {
		t.Fatalf("dashboard: %v", err)
	}
	// The store is shared across tests, so assert deltas instead of totals.
	if got := after.Stats.CoursesCount - before.Stats.CoursesCount; got != 1 {
		t.Errorf("courses delta = %d, want 1", got)
	}
	if got := after.Stats.StudentsCount - before.Stats.StudentsCount; got != 1 {
		t.Errorf("students delta = %d, want 1", got)
	}
	if got := after.Stats.ProfessorsCount - before.Stats.ProfessorsCount; got != 1 {
		t.Errorf("professors delta = %d, want 1", got)
	}
	if got := after.Stats.EnrollmentsCount - before.Stats.EnrollmentsCount; got != 1 {
		t.Errorf("enrollments delta = %d, want 1", got)
	}
}

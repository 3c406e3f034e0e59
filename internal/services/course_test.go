package services

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/opencampus-io/registrar-backend/internal/apierr"
	"github.com/opencampus-io/registrar-backend/internal/types"
)

func TestCreateCourseDuplicateCode(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	prof := env.createProfessor(t)
	course := env.createCourse(t, prof, 10)

	_, err := env.courses.Create(ctx, prof, CreateCourseInput{
		Code:       course.Code,
		Title:      "Duplicate",
		Credits:    3,
		Capacity:   10,
		Term:       "Fall",
		Year:       2026,
		Department: "Computer Science",
	})
	if apierr.StatusOf(err) != 409 {
		t.Fatalf("duplicate code err = %v, want 409", err)
	}
}

func TestCreateCourseInstructorDefaultsToProfessor(t *testing.T) {
	env := newTestEnv(t)
	prof := env.createProfessor(t)
	course := env.createCourse(t, prof, 10)
	if course.InstructorID == nil || *course.InstructorID != prof.ID {
		t.Fatalf("instructor = %v, want creating professor %s", course.InstructorID, prof.ID)
	}
}

func TestAdminAssignsInstructor(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.createAdmin(t)
	prof := env.createProfessor(t)

	course, err := env.courses.Create(ctx, admin, CreateCourseInput{
		Code:         "HIST-" + uuid.New().String()[:8],
		Title:        "World History",
		Credits:      3,
		Capacity:     30,
		Term:         "Spring",
		Year:         2027,
		Department:   "History",
		InstructorID: &prof.ID,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if course.InstructorID == nil || *course.InstructorID != prof.ID {
		t.Fatalf("instructor = %v, want %s", course.InstructorID, prof.ID)
	}
}

func TestAssignInstructorRequiresProfessorRole(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.createAdmin(t)
	student := env.createStudent(t)

	_, err := env.courses.Create(ctx, admin, CreateCourseInput{
		Code:         "HIST-" + uuid.New().String()[:8],
		Title:        "World History",
		Credits:      3,
		Capacity:     30,
		Term:         "Spring",
		Year:         2027,
		Department:   "History",
		InstructorID: &student.ID,
	})
	if apierr.StatusOf(err) != 400 {
		t.Fatalf("student as instructor err = %v, want 400", err)
	}
}

func TestProfessorCannotNameAnotherInstructor(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p1 := env.createProfessor(t)
	p2 := env.createProfessor(t)

	_, err := env.courses.Create(ctx, p1, CreateCourseInput{
		Code:         "PHYS-" + uuid.New().String()[:8],
		Title:        "Mechanics",
		Credits:      4,
		Capacity:     20,
		Term:         "Fall",
		Year:         2026,
		Department:   "Physics",
		InstructorID: &p2.ID,
	})
	if apierr.StatusOf(err) != 403 {
		t.Fatalf("professor naming instructor err = %v, want 403", err)
	}
}

func TestAdminReassignsInstructor(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	admin := env.createAdmin(t)
	p1 := env.createProfessor(t)
	p2 := env.createProfessor(t)
	course := env.createCourse(t, p1, 10)

	updated, err := env.courses.Update(ctx, admin, course.ID, UpdateCourseInput{InstructorID: &p2.ID})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.InstructorID == nil || *updated.InstructorID != p2.ID {
		t.Fatalf("instructor = %v, want %s", updated.InstructorID, p2.ID)
	}

	if _, err := env.courses.Update(ctx, p2, course.ID, UpdateCourseInput{InstructorID: &p1.ID}); apierr.StatusOf(err) != 403 {
		t.Fatalf("professor reassign err = %v, want 403", err)
	}
}

func TestUpdateCourseStatus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	prof := env.createProfessor(t)
	course := env.createCourse(t, prof, 10)

	cancelled := types.CourseCancelled
	updated, err := env.courses.Update(ctx, prof, course.ID, UpdateCourseInput{Status: &cancelled})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Status != types.CourseCancelled {
		t.Fatalf("status = %q, want cancelled", updated.Status)
	}

	bogus := types.CourseStatus("archived")
	if _, err := env.courses.Update(ctx, prof, course.ID, UpdateCourseInput{Status: &bogus}); apierr.StatusOf(err) != 400 {
		t.Fatalf("invalid status err = %v, want 400", err)
	}
}

func TestOtherProfessorCannotUpdateCourse(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p1 := env.createProfessor(t)
	p2 := env.createProfessor(t)
	course := env.createCourse(t, p1, 10)

	title := "Hijacked"
	if _, err := env.courses.Update(ctx, p2, course.ID, UpdateCourseInput{Title: &title}); apierr.StatusOf(err) != 403 {
		t.Fatalf("other professor update err = %v, want 403", err)
	}
}

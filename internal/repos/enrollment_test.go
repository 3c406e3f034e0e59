package repos

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/opencampus-io/registrar-backend/internal/repos/testutil"
	"github.com/opencampus-io/registrar-backend/internal/types"
)

func TestSetTransactionIDOnce(t *testing.T) {
	gdb := testutil.DB(t)
	log := testutil.Logger(t)
	courseRepo := NewCourseRepo(gdb, log)
	repo := NewEnrollmentRepo(gdb, log)
	ctx := context.Background()

	course := seedCourse(t, courseRepo)
	enrollment := &types.Enrollment{
		ID:        uuid.New(),
		StudentID: uuid.New(),
		CourseID:  course.ID,
		Status:    types.EnrollmentEnrolled,
	}
	if err := repo.Create(ctx, nil, enrollment); err != nil {
		t.Fatalf("create: %v", err)
	}

	set, err := repo.SetTransactionID(ctx, nil, enrollment.ID, "TX1")
	if err != nil || !set {
		t.Fatalf("first set: set=%v err=%v", set, err)
	}
	set, err = repo.SetTransactionID(ctx, nil, enrollment.ID, "TX2")
	if err != nil {
		t.Fatalf("second set: %v", err)
	}
	if set {
		t.Fatal("anchor reference must be write-once")
	}

	stored, err := repo.GetByID(ctx, nil, enrollment.ID)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if stored.TransactionID == nil || *stored.TransactionID != "TX1" {
		t.Errorf("transaction id = %v, want TX1", stored.TransactionID)
	}
}

func TestCountActiveExcludesDropped(t *testing.T) {
	gdb := testutil.DB(t)
	log := testutil.Logger(t)
	courseRepo := NewCourseRepo(gdb, log)
	repo := NewEnrollmentRepo(gdb, log)
	ctx := context.Background()

	course := seedCourse(t, courseRepo)
	for i := 0; i < 3; i++ {
		e := &types.Enrollment{
			ID:        uuid.New(),
			StudentID: uuid.New(),
			CourseID:  course.ID,
			Status:    types.EnrollmentEnrolled,
		}
		if err := repo.Create(ctx, nil, e); err != nil {
			t.Fatalf("create: %v", err)
		}
		if i == 0 {
			if err := repo.UpdateStatus(ctx, nil, e.ID, types.EnrollmentDropped); err != nil {
				t.Fatalf("drop: %v", err)
			}
		}
	}

	count, err := repo.CountActive(ctx, nil, course.ID)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2 (dropped rows excluded)", count)
	}
}

func TestEnrollmentUniquePerStudentCourse(t *testing.T) {
	gdb := testutil.DB(t)
	log := testutil.Logger(t)
	courseRepo := NewCourseRepo(gdb, log)
	repo := NewEnrollmentRepo(gdb, log)
	ctx := context.Background()

	course := seedCourse(t, courseRepo)
	studentID := uuid.New()
	first := &types.Enrollment{ID: uuid.New(), StudentID: studentID, CourseID: course.ID, Status: types.EnrollmentEnrolled}
	if err := repo.Create(ctx, nil, first); err != nil {
		t.Fatalf("create: %v", err)
	}
	dup := &types.Enrollment{ID: uuid.New(), StudentID: studentID, CourseID: course.ID, Status: types.EnrollmentEnrolled}
	if err := repo.Create(ctx, nil, dup); err == nil {
		t.Fatal("duplicate (student, course) should violate the unique index")
	}
}

package services

import (
	"context"
	"sync"
	"testing"

	"github.com/opencampus-io/registrar-backend/internal/apierr"
	"github.com/opencampus-io/registrar-backend/internal/types"
)

func TestEnrollFillsToCapacity(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	prof := env.createProfessor(t)
	course := env.createCourse(t, prof, 2)

	s1 := env.createStudent(t)
	s2 := env.createStudent(t)
	s3 := env.createStudent(t)

	env.enroll(t, s1, course.ID)
	env.enroll(t, s2, course.ID)

	_, err := env.enrollments.Enroll(ctx, s3, course.ID)
	if apierr.StatusOf(err) != 409 {
		t.Fatalf("expected conflict when course is full, got %v", err)
	}

	count, err := env.enrollmentRepo.CountActive(ctx, nil, course.ID)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 2 {
		t.Errorf("active enrollments = %d, want 2", count)
	}
}

func TestEnrollConcurrentNeverOversubscribes(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	prof := env.createProfessor(t)
	course := env.createCourse(t, prof, 3)

	const contenders = 8
	students := make([]Caller, contenders)
	for i := range students {
		students[i] = env.createStudent(t)
	}

	var wg sync.WaitGroup
	errs := make([]error, contenders)
	for i := range students {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = env.enrollments.Enroll(ctx, students[i], course.ID)
		}(i)
	}
	wg.Wait()

	var admitted, rejected int
	for _, err := range errs {
		if err == nil {
			admitted++
		} else if apierr.StatusOf(err) == 409 {
			rejected++
		} else {
			t.Errorf("unexpected enroll error: %v", err)
		}
	}
	if admitted != 3 {
		t.Errorf("admitted = %d, want 3", admitted)
	}
	if rejected != contenders-3 {
		t.Errorf("rejected = %d, want %d", rejected, contenders-3)
	}

	count, err := env.enrollmentRepo.CountActive(ctx, nil, course.ID)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 3 {
		t.Errorf("active enrollments = %d, capacity is 3", count)
	}
}

func TestEnrollDuplicateConflict(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	prof := env.createProfessor(t)
	course := env.createCourse(t, prof, 5)
	student := env.createStudent(t)

	env.enroll(t, student, course.ID)
	_, err := env.enrollments.Enroll(ctx, student, course.ID)
	if apierr.StatusOf(err) != 409 {
		t.Fatalf("expected conflict on duplicate enrollment, got %v", err)
	}
}

func TestEnrollInactiveCourse(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	prof := env.createProfessor(t)
	course := env.createCourse(t, prof, 5)
	cancelled := types.CourseCancelled
	if _, err := env.courses.Update(ctx, prof, course.ID, UpdateCourseInput{Status: &cancelled}); err != nil {
		t.Fatalf("cancel course: %v", err)
	}

	student := env.createStudent(t)
	_, err := env.enrollments.Enroll(ctx, student, course.ID)
	if apierr.StatusOf(err) != 400 {
		t.Fatalf("expected validation error for cancelled course, got %v", err)
	}
}

func TestEnrollRequiresStudentRole(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	prof := env.createProfessor(t)
	course := env.createCourse(t, prof, 5)

	_, err := env.enrollments.Enroll(ctx, prof, course.ID)
	if apierr.StatusOf(err) != 403 {
		t.Fatalf("expected 403 for professor enrolling, got %v", err)
	}
}

func TestDropFreesCapacity(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	prof := env.createProfessor(t)
	course := env.createCourse(t, prof, 1)
	s1 := env.createStudent(t)
	s2 := env.createStudent(t)

	env.enroll(t, s1, course.ID)
	if _, err := env.enrollments.Enroll(ctx, s2, course.ID); apierr.StatusOf(err) != 409 {
		t.Fatalf("course should be full, got %v", err)
	}

	dropped, err := env.enrollments.Drop(ctx, s1, course.ID)
	if err != nil {
		t.Fatalf("drop: %v", err)
	}
	if dropped.Status != types.EnrollmentDropped {
		t.Errorf("status = %q, want dropped", dropped.Status)
	}

	// The freed seat is immediately available.
	env.enroll(t, s2, course.ID)
}

func TestReenrollAfterDropReactivates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	prof := env.createProfessor(t)
	course := env.createCourse(t, prof, 5)
	student := env.createStudent(t)

	first := env.enroll(t, student, course.ID)
	if _, err := env.enrollments.Drop(ctx, student, course.ID); err != nil {
		t.Fatalf("drop: %v", err)
	}
	second := env.enroll(t, student, course.ID)
	if second.ID != first.ID {
		t.Errorf("re-enroll created a new row: %s vs %s", first.ID, second.ID)
	}
	if second.Status != types.EnrollmentEnrolled {
		t.Errorf("status = %q, want enrolled", second.Status)
	}
}

func TestEnrollEnqueuesAnchorJob(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	prof := env.createProfessor(t)
	course := env.createCourse(t, prof, 5)
	student := env.createStudent(t)

	enrollment := env.enroll(t, student, course.ID)
	job, err := env.anchorJobRepo.GetLatestByEntity(ctx, nil, types.AnchorEnrollment, enrollment.ID)
	if err != nil {
		t.Fatalf("load job: %v", err)
	}
	if job == nil {
		t.Fatal("no anchor job enqueued for enrollment")
	}
	if job.Status != types.AnchorQueued {
		t.Errorf("job status = %q, want queued", job.Status)
	}
	// The enrollment itself commits unanchored; the worker fills this later.
	if enrollment.TransactionID != nil {
		t.Errorf("transaction id should be null before the worker runs")
	}
}

func TestCapacityUpdateCannotUndercutEnrollment(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	prof := env.createProfessor(t)
	course := env.createCourse(t, prof, 3)
	env.enroll(t, env.createStudent(t), course.ID)
	env.enroll(t, env.createStudent(t), course.ID)

	smaller := 1
	_, err := env.courses.Update(ctx, prof, course.ID, UpdateCourseInput{Capacity: &smaller})
	if apierr.StatusOf(err) != 400 {
		t.Fatalf("expected validation error shrinking below enrollment, got %v", err)
	}
}

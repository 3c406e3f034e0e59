package jobs

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/opencampus-io/registrar-backend/internal/ledger"
	"github.com/opencampus-io/registrar-backend/internal/ledger/ledgertest"
	"github.com/opencampus-io/registrar-backend/internal/repos"
	"github.com/opencampus-io/registrar-backend/internal/repos/testutil"
	"github.com/opencampus-io/registrar-backend/internal/types"
)

type workerEnv struct {
	fake           *ledgertest.Fake
	worker         *AnchorWorker
	courseRepo     repos.CourseRepo
	enrollmentRepo repos.EnrollmentRepo
	jobRepo        repos.AnchorJobRepo
}

func newWorkerEnv(tb testing.TB) *workerEnv {
	tb.Helper()
	gdb := testutil.DB(tb)
	log := testutil.Logger(tb)
	fake := ledgertest.NewFake()
	courseRepo := repos.NewCourseRepo(gdb, log)
	enrollmentRepo := repos.NewEnrollmentRepo(gdb, log)
	jobRepo := repos.NewAnchorJobRepo(gdb, log)
	return &workerEnv{
		fake:           fake,
		worker:         NewAnchorWorker(gdb, log, jobRepo, courseRepo, enrollmentRepo, fake),
		courseRepo:     courseRepo,
		enrollmentRepo: enrollmentRepo,
		jobRepo:        jobRepo,
	}
}

func (e *workerEnv) seedCourse(tb testing.TB) *types.Course {
	tb.Helper()
	course := &types.Course{
		ID:       uuid.New(),
		Code:     "WK-" + uuid.New().String()[:8],
		Title:    "Worker Test Course",
		Credits:  3,
		Capacity: 10,
		Term:     "Fall",
		Year:     2026,
		Status:   types.CourseActive,
	}
	if err := e.courseRepo.Create(context.Background(), nil, course); err != nil {
		tb.Fatalf("seed course: %v", err)
	}
	return course
}

func (e *workerEnv) seedEnrollment(tb testing.TB, courseID uuid.UUID) *types.Enrollment {
	tb.Helper()
	enrollment := &types.Enrollment{
		ID:        uuid.New(),
		StudentID: uuid.New(),
		CourseID:  courseID,
		Status:    types.EnrollmentEnrolled,
	}
	if err := e.enrollmentRepo.Create(context.Background(), nil, enrollment); err != nil {
		tb.Fatalf("seed enrollment: %v", err)
	}
	return enrollment
}

func (e *workerEnv) enqueue(tb testing.TB, entityType types.AnchorEntity, entityID uuid.UUID) *types.AnchorJob {
	tb.Helper()
	job := &types.AnchorJob{
		ID:         uuid.New(),
		EntityType: entityType,
		EntityID:   entityID,
		Status:     types.AnchorQueued,
	}
	if err := e.jobRepo.Create(context.Background(), nil, job); err != nil {
		tb.Fatalf("enqueue: %v", err)
	}
	return job
}

func TestWorkerAnchorsCourse(t *testing.T) {
	env := newWorkerEnv(t)
	ctx := context.Background()
	course := env.seedCourse(t)
	job := env.enqueue(t, types.AnchorCourse, course.ID)

	env.worker.Tick(ctx)

	stored, err := env.courseRepo.GetByID(ctx, nil, course.ID)
	if err != nil {
		t.Fatalf("load course: %v", err)
	}
	if stored.ContractAddress == nil {
		t.Fatal("course not anchored after tick")
	}
	done, err := env.jobRepo.GetByID(ctx, nil, job.ID)
	if err != nil {
		t.Fatalf("load job: %v", err)
	}
	if done.Status != types.AnchorSucceeded {
		t.Errorf("job status = %q, want succeeded", done.Status)
	}
}

func TestWorkerAnchorsEnrollmentWithMatchingNote(t *testing.T) {
	env := newWorkerEnv(t)
	ctx := context.Background()
	course := env.seedCourse(t)
	env.enqueue(t, types.AnchorCourse, course.ID)
	env.worker.Tick(ctx)

	enrollment := env.seedEnrollment(t, course.ID)
	env.enqueue(t, types.AnchorEnrollment, enrollment.ID)
	env.worker.Tick(ctx)

	stored, err := env.enrollmentRepo.GetByID(ctx, nil, enrollment.ID)
	if err != nil {
		t.Fatalf("load enrollment: %v", err)
	}
	if stored.TransactionID == nil {
		t.Fatal("enrollment not anchored after tick")
	}

	record, err := env.fake.LookupTransaction(ctx, *stored.TransactionID)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	note, err := ledger.DecodeEnrollmentNote(record.Note)
	if err != nil {
		t.Fatalf("decode note: %v", err)
	}
	if !note.Matches(enrollment.StudentID, enrollment.CourseID) {
		t.Errorf("note %+v does not reference the enrollment", note)
	}
}

func TestWorkerFailureLeavesRowUnanchored(t *testing.T) {
	env := newWorkerEnv(t)
	ctx := context.Background()
	course := env.seedCourse(t)
	job := env.enqueue(t, types.AnchorCourse, course.ID)

	env.fake.FailWith = ledger.ErrUnavailable
	env.worker.Tick(ctx)

	stored, err := env.courseRepo.GetByID(ctx, nil, course.ID)
	if err != nil {
		t.Fatalf("load course: %v", err)
	}
	if stored.ContractAddress != nil {
		t.Error("failed anchoring must leave the anchor field null")
	}
	failed, err := env.jobRepo.GetByID(ctx, nil, job.ID)
	if err != nil {
		t.Fatalf("load job: %v", err)
	}
	if failed.Status != types.AnchorFailed {
		t.Errorf("job status = %q, want failed", failed.Status)
	}
	if failed.Attempts != 1 {
		t.Errorf("attempts = %d, want 1", failed.Attempts)
	}
	if failed.LastError == "" {
		t.Error("failed job should record its cause")
	}
}

func TestWorkerEnrollmentWaitsForCourseAnchor(t *testing.T) {
	env := newWorkerEnv(t)
	ctx := context.Background()
	course := env.seedCourse(t)
	enrollment := env.seedEnrollment(t, course.ID)
	job := env.enqueue(t, types.AnchorEnrollment, enrollment.ID)

	// Course has no ledger asset yet; the enrollment job must fail and
	// stay retryable instead of inventing an asset id.
	env.worker.Tick(ctx)

	stored, err := env.enrollmentRepo.GetByID(ctx, nil, enrollment.ID)
	if err != nil {
		t.Fatalf("load enrollment: %v", err)
	}
	if stored.TransactionID != nil {
		t.Error("enrollment anchored before its course")
	}
	failed, err := env.jobRepo.GetByID(ctx, nil, job.ID)
	if err != nil {
		t.Fatalf("load job: %v", err)
	}
	if failed.Status != types.AnchorFailed {
		t.Errorf("job status = %q, want failed (retryable)", failed.Status)
	}
}

func TestWorkerAnchorIsOneWay(t *testing.T) {
	env := newWorkerEnv(t)
	ctx := context.Background()
	course := env.seedCourse(t)
	env.enqueue(t, types.AnchorCourse, course.ID)
	env.worker.Tick(ctx)

	first, err := env.courseRepo.GetByID(ctx, nil, course.ID)
	if err != nil {
		t.Fatalf("load course: %v", err)
	}

	// A duplicate job for an already-anchored course is a no-op.
	env.enqueue(t, types.AnchorCourse, course.ID)
	env.worker.Tick(ctx)

	second, err := env.courseRepo.GetByID(ctx, nil, course.ID)
	if err != nil {
		t.Fatalf("reload course: %v", err)
	}
	if *second.ContractAddress != *first.ContractAddress {
		t.Errorf("anchor changed from %q to %q", *first.ContractAddress, *second.ContractAddress)
	}
}

func TestWorkerSkipsDroppedEnrollment(t *testing.T) {
	env := newWorkerEnv(t)
	ctx := context.Background()
	course := env.seedCourse(t)
	env.enqueue(t, types.AnchorCourse, course.ID)
	env.worker.Tick(ctx)

	enrollment := env.seedEnrollment(t, course.ID)
	if err := env.enrollmentRepo.UpdateStatus(ctx, nil, enrollment.ID, types.EnrollmentDropped); err != nil {
		t.Fatalf("drop: %v", err)
	}
	job := env.enqueue(t, types.AnchorEnrollment, enrollment.ID)
	recordsBefore := env.fake.RecordCalls
	env.worker.Tick(ctx)

	if env.fake.RecordCalls != recordsBefore {
		t.Error("dropped enrollment should not reach the ledger")
	}
	done, err := env.jobRepo.GetByID(ctx, nil, job.ID)
	if err != nil {
		t.Fatalf("load job: %v", err)
	}
	if done.Status != types.AnchorSucceeded {
		t.Errorf("job status = %q, want succeeded (no-op)", done.Status)
	}
}

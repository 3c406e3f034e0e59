package jobs

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/opencampus-io/registrar-backend/internal/ledger"
	"github.com/opencampus-io/registrar-backend/internal/logger"
	"github.com/opencampus-io/registrar-backend/internal/repos"
	"github.com/opencampus-io/registrar-backend/internal/types"
)

const (
	maxAttempts = 5
	retryDelay  = 30 * time.Second
)

// AnchorWorker drains queued anchor jobs and writes them to the ledger.
// Anchoring is strictly best-effort: the local row already committed before
// the job existed, and a job that exhausts its attempts leaves the row
// unanchored rather than touching local state.
type AnchorWorker struct {
	db             *gorm.DB
	log            *logger.Logger
	jobRepo        repos.AnchorJobRepo
	courseRepo     repos.CourseRepo
	enrollmentRepo repos.EnrollmentRepo
	ledgerClient   ledger.Client
	pollInterval   time.Duration
}

func NewAnchorWorker(
	db *gorm.DB,
	baseLog *logger.Logger,
	jobRepo repos.AnchorJobRepo,
	courseRepo repos.CourseRepo,
	enrollmentRepo repos.EnrollmentRepo,
	ledgerClient ledger.Client,
) *AnchorWorker {
	return &AnchorWorker{
		db:             db,
		log:            baseLog.With("component", "AnchorWorker"),
		jobRepo:        jobRepo,
		courseRepo:     courseRepo,
		enrollmentRepo: enrollmentRepo,
		ledgerClient:   ledgerClient,
		pollInterval:   time.Second,
	}
}

func (w *AnchorWorker) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(w.pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				w.Tick(ctx)
			}
		}
	}()
}

// Tick claims and processes at most one job. Exposed so tests can drive the
// worker without the ticker.
func (w *AnchorWorker) Tick(ctx context.Context) {
	job, err := w.jobRepo.ClaimNext(ctx, nil, maxAttempts, retryDelay)
	if err != nil {
		w.log.Warn("claim anchor job failed", "error", err)
		return
	}
	if job == nil {
		return
	}

	if err := w.process(ctx, job); err != nil {
		w.log.Warn("anchor job failed",
			"job_id", job.ID,
			"entity_type", job.EntityType,
			"entity_id", job.EntityID,
			"attempt", job.Attempts,
			"error", err,
		)
		if markErr := w.jobRepo.MarkFailed(ctx, nil, job.ID, err); markErr != nil {
			w.log.Error("mark anchor job failed", "job_id", job.ID, "error", markErr)
		}
		return
	}
	if err := w.jobRepo.MarkSucceeded(ctx, nil, job.ID); err != nil {
		w.log.Error("mark anchor job succeeded", "job_id", job.ID, "error", err)
	}
}

func (w *AnchorWorker) process(ctx context.Context, job *types.AnchorJob) error {
	switch job.EntityType {
	case types.AnchorCourse:
		return w.anchorCourse(ctx, job)
	case types.AnchorEnrollment:
		return w.anchorEnrollment(ctx, job)
	default:
		return fmt.Errorf("unknown anchor entity type %q", job.EntityType)
	}
}

func (w *AnchorWorker) anchorCourse(ctx context.Context, job *types.AnchorJob) error {
	course, err := w.courseRepo.GetByID(ctx, nil, job.EntityID)
	if err != nil {
		return fmt.Errorf("load course: %w", err)
	}
	if course == nil {
		return fmt.Errorf("course %s not found", job.EntityID)
	}
	if course.ContractAddress != nil {
		// Already anchored by an earlier attempt.
		return nil
	}

	assetID, err := w.ledgerClient.CreateCourseToken(ctx, ledger.CourseTokenSpec{
		CourseID: course.ID,
		Code:     course.Code,
		Title:    course.Title,
		Credits:  course.Credits,
		Capacity: course.Capacity,
		Fee:      course.Fee,
	})
	if err != nil {
		return fmt.Errorf("create course token: %w", err)
	}

	set, err := w.courseRepo.SetContractAddress(ctx, nil, course.ID, assetID)
	if err != nil {
		return fmt.Errorf("store contract address: %w", err)
	}
	if !set {
		w.log.Warn("course anchored concurrently, keeping first anchor", "course_id", course.ID)
		return nil
	}
	w.log.Info("course anchored", "course_id", course.ID, "asset_id", assetID)
	return nil
}

func (w *AnchorWorker) anchorEnrollment(ctx context.Context, job *types.AnchorJob) error {
	enrollment, err := w.enrollmentRepo.GetByID(ctx, nil, job.EntityID)
	if err != nil {
		return fmt.Errorf("load enrollment: %w", err)
	}
	if enrollment == nil {
		return fmt.Errorf("enrollment %s not found", job.EntityID)
	}
	if enrollment.Anchored() {
		return nil
	}
	if enrollment.Status == types.EnrollmentDropped {
		// Dropped before anchoring completed; nothing to record.
		return nil
	}

	course, err := w.courseRepo.GetByID(ctx, nil, enrollment.CourseID)
	if err != nil {
		return fmt.Errorf("load course: %w", err)
	}
	if course == nil {
		return fmt.Errorf("course %s not found", enrollment.CourseID)
	}
	if course.ContractAddress == nil {
		// The course token has not landed yet; retry after its job runs.
		return fmt.Errorf("course %s not yet anchored", course.Code)
	}
	txID, err := w.ledgerClient.RecordEnrollment(ctx, *course.ContractAddress, enrollment.StudentID, enrollment.CourseID)
	if err != nil {
		return fmt.Errorf("record enrollment: %w", err)
	}

	set, err := w.enrollmentRepo.SetTransactionID(ctx, nil, enrollment.ID, txID)
	if err != nil {
		return fmt.Errorf("store transaction id: %w", err)
	}
	if !set {
		w.log.Warn("enrollment anchored concurrently, keeping first anchor", "enrollment_id", enrollment.ID)
		return nil
	}
	w.log.Info("enrollment anchored", "enrollment_id", enrollment.ID, "tx_id", txID)
	return nil
}

package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"

	"github.com/opencampus-io/registrar-backend/internal/apierr"
	redisclient "github.com/opencampus-io/registrar-backend/internal/clients/redis"
	"github.com/opencampus-io/registrar-backend/internal/ledger"
	"github.com/opencampus-io/registrar-backend/internal/logger"
	"github.com/opencampus-io/registrar-backend/internal/repos"
	"github.com/opencampus-io/registrar-backend/internal/types"
)

const proofCacheTTL = time.Hour

// VerificationProof is the ledger evidence returned for a verified enrollment.
type VerificationProof struct {
	TransactionID  string    `json:"transaction_id"`
	ConfirmedRound uint64    `json:"confirmed_round"`
	Timestamp      time.Time `json:"timestamp"`
	Fee            uint64    `json:"fee"`
}

type VerificationResult struct {
	EnrollmentID uuid.UUID          `json:"enrollment_id"`
	Verified     bool               `json:"verified"`
	Reason       string             `json:"reason,omitempty"`
	Proof        *VerificationProof `json:"proof,omitempty"`
}

type VerificationService interface {
	VerifyEnrollment(ctx context.Context, caller Caller, enrollmentID uuid.UUID) (*VerificationResult, error)
}

type verificationService struct {
	db             *gorm.DB
	log            *logger.Logger
	enrollmentRepo repos.EnrollmentRepo
	courseRepo     repos.CourseRepo
	ledgerClient   ledger.Client
	cache          redisclient.Cache
	group          singleflight.Group
}

func NewVerificationService(
	db *gorm.DB,
	baseLog *logger.Logger,
	enrollmentRepo repos.EnrollmentRepo,
	courseRepo repos.CourseRepo,
	ledgerClient ledger.Client,
	cache redisclient.Cache,
) VerificationService {
	return &verificationService{
		db:             db,
		log:            baseLog.With("service", "VerificationService"),
		enrollmentRepo: enrollmentRepo,
		courseRepo:     courseRepo,
		ledgerClient:   ledgerClient,
		cache:          cache,
	}
}

// VerifyEnrollment reconciles the stored anchor reference against the ledger.
// It is a pure read: no enrollment state changes regardless of outcome. A
// transaction counts as proof only when it references the course's asset AND
// carries the enrollment's own student and course in its note.
func (vs *verificationService) VerifyEnrollment(ctx context.Context, caller Caller, enrollmentID uuid.UUID) (*VerificationResult, error) {
	enrollment, err := vs.enrollmentRepo.GetByID(ctx, nil, enrollmentID)
	if err != nil {
		return nil, fmt.Errorf("load enrollment: %w", err)
	}
	if enrollment == nil {
		return nil, apierr.NotFound("enrollment_not_found", fmt.Errorf("enrollment not found"))
	}

	course, err := vs.courseRepo.GetByID(ctx, nil, enrollment.CourseID)
	if err != nil {
		return nil, fmt.Errorf("load course: %w", err)
	}
	if course == nil {
		return nil, apierr.NotFound("course_not_found", fmt.Errorf("course not found"))
	}
	if err := vs.authorize(caller, enrollment, course); err != nil {
		return nil, err
	}

	result := &VerificationResult{EnrollmentID: enrollment.ID}
	if !enrollment.Anchored() {
		result.Reason = "not anchored"
		return result, nil
	}
	txID := *enrollment.TransactionID

	if vs.cache != nil {
		var cached VerificationResult
		hit, err := vs.cache.Get(ctx, proofCacheKey(enrollment.ID, txID), &cached)
		if err != nil {
			vs.log.Warn("proof cache read failed", "enrollment_id", enrollment.ID, "error", err)
		} else if hit {
			return &cached, nil
		}
	}

	// Concurrent verifications of the same enrollment share one ledger call.
	v, err, _ := vs.group.Do(proofCacheKey(enrollment.ID, txID), func() (interface{}, error) {
		return vs.verifyAgainstLedger(ctx, enrollment, course, txID)
	})
	if err != nil {
		return nil, err
	}
	return v.(*VerificationResult), nil
}

func (vs *verificationService) verifyAgainstLedger(ctx context.Context, enrollment *types.Enrollment, course *types.Course, txID string) (*VerificationResult, error) {
	result := &VerificationResult{EnrollmentID: enrollment.ID}

	if vs.ledgerClient == nil {
		return nil, apierr.LedgerUnavailable(errors.New("ledger anchoring is not configured"))
	}
	record, err := vs.ledgerClient.LookupTransaction(ctx, txID)
	if errors.Is(err, ledger.ErrNotFound) {
		result.Reason = "transaction not found on ledger"
		return result, nil
	}
	if errors.Is(err, ledger.ErrTimeout) {
		return nil, apierr.LedgerTimeout(err)
	}
	if err != nil {
		return nil, apierr.LedgerUnavailable(err)
	}

	if course.ContractAddress == nil || record.AssetID != *course.ContractAddress {
		result.Reason = "transaction does not reference the course asset"
		return result, nil
	}
	note, err := ledger.DecodeEnrollmentNote(record.Note)
	if err != nil {
		result.Reason = "transaction note is not an enrollment record"
		return result, nil
	}
	if !note.Matches(enrollment.StudentID, enrollment.CourseID) {
		result.Reason = "transaction metadata does not match this enrollment"
		return result, nil
	}

	result.Verified = true
	result.Proof = &VerificationProof{
		TransactionID:  record.ID,
		ConfirmedRound: record.ConfirmedRound,
		Timestamp:      record.Timestamp,
		Fee:            record.Fee,
	}
	if vs.cache != nil {
		if err := vs.cache.Set(ctx, proofCacheKey(enrollment.ID, txID), result, proofCacheTTL); err != nil {
			vs.log.Warn("proof cache write failed", "enrollment_id", enrollment.ID, "error", err)
		}
	}
	return result, nil
}

// authorize scopes verification reads: students to their own enrollments,
// professors to enrollments in courses they teach.
func (vs *verificationService) authorize(caller Caller, enrollment *types.Enrollment, course *types.Course) error {
	switch {
	case caller.IsAdmin():
		return nil
	case caller.IsStudent():
		if enrollment.StudentID != caller.ID {
			return apierr.Forbidden("not_own_enrollment", fmt.Errorf("students may only verify their own enrollments"))
		}
		return nil
	case caller.IsProfessor():
		if course.InstructorID == nil || *course.InstructorID != caller.ID {
			return apierr.Forbidden("not_course_instructor", fmt.Errorf("professors may only verify enrollments in their own courses"))
		}
		return nil
	}
	return apierr.Forbidden("invalid_role", fmt.Errorf("unknown caller role"))
}

func proofCacheKey(enrollmentID uuid.UUID, txID string) string {
	return fmt.Sprintf("verify:enrollment:%s:%s", enrollmentID, txID)
}

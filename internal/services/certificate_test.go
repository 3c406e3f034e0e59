package services

import (
	"context"
	"testing"

	"github.com/opencampus-io/registrar-backend/internal/apierr"
	"github.com/opencampus-io/registrar-backend/internal/ledger"
)

func TestIssueCertificate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	prof := env.createProfessor(t)
	course := env.createCourse(t, prof, 5)
	student := env.createStudent(t)
	env.enroll(t, student, course.ID)

	if _, err := env.grading.SubmitFinalGrades(ctx, prof, course.ID, []FinalGradeEntry{{StudentID: student.ID, Grade: "A"}}); err != nil {
		t.Fatalf("final grades: %v", err)
	}

	cert, err := env.certificates.Issue(ctx, prof, course.ID, student.ID)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if cert.AssetID == "" || cert.TransactionID == "" {
		t.Errorf("certificate missing ledger references: %+v", cert)
	}
	if cert.Grade != "A" {
		t.Errorf("grade = %q, want A", cert.Grade)
	}
}

func TestIssueCertificateRequiresCompletion(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	prof := env.createProfessor(t)
	course := env.createCourse(t, prof, 5)
	student := env.createStudent(t)
	env.enroll(t, student, course.ID)

	_, err := env.certificates.Issue(ctx, prof, course.ID, student.ID)
	if apierr.StatusOf(err) != 400 {
		t.Fatalf("expected validation error for ungraded enrollment, got %v", err)
	}
}

// Certificate issuance is the one operation where a ledger failure fails the
// request; there is no local fallback.
func TestIssueCertificateLedgerFailureIsFatal(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	prof := env.createProfessor(t)
	course := env.createCourse(t, prof, 5)
	student := env.createStudent(t)
	env.enroll(t, student, course.ID)
	if _, err := env.grading.SubmitFinalGrades(ctx, prof, course.ID, []FinalGradeEntry{{StudentID: student.ID, Grade: "B"}}); err != nil {
		t.Fatalf("final grades: %v", err)
	}

	env.fake.FailWith = ledger.ErrUnavailable
	_, err := env.certificates.Issue(ctx, prof, course.ID, student.ID)
	if apierr.StatusOf(err) != 502 {
		t.Fatalf("expected 502 when ledger down, got %v", err)
	}

	env.fake.FailWith = ledger.ErrTimeout
	_, err = env.certificates.Issue(ctx, prof, course.ID, student.ID)
	if apierr.StatusOf(err) != 504 {
		t.Fatalf("expected 504 on ledger timeout, got %v", err)
	}
}

func TestIssueCertificateForbiddenForOtherProfessor(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	prof := env.createProfessor(t)
	other := env.createProfessor(t)
	course := env.createCourse(t, prof, 5)
	student := env.createStudent(t)
	env.enroll(t, student, course.ID)
	if _, err := env.grading.SubmitFinalGrades(ctx, prof, course.ID, []FinalGradeEntry{{StudentID: student.ID, Grade: "A"}}); err != nil {
		t.Fatalf("final grades: %v", err)
	}

	_, err := env.certificates.Issue(ctx, other, course.ID, student.ID)
	if apierr.StatusOf(err) != 403 {
		t.Fatalf("expected 403 for non-instructor, got %v", err)
	}
}

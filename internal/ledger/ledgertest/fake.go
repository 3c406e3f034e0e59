// Package ledgertest provides an in-memory ledger.Client for service and
// worker tests.
package ledgertest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/opencampus-io/registrar-backend/internal/ledger"
)

type Fake struct {
	mu sync.Mutex

	// FailWith, when set, makes every call fail with the given error.
	FailWith error

	nextAsset uint64
	nextTx    uint64
	txns      map[string]*ledger.TransactionRecord

	CreateTokenCalls int
	RecordCalls      int
	CertificateCalls int
	LookupCalls      int
}

func NewFake() *Fake {
	return &Fake{nextAsset: 1000, txns: map[string]*ledger.TransactionRecord{}}
}

func (f *Fake) CreateCourseToken(ctx context.Context, spec ledger.CourseTokenSpec) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.CreateTokenCalls++
	if f.FailWith != nil {
		return "", f.FailWith
	}
	f.nextAsset++
	return fmt.Sprintf("%d", f.nextAsset), nil
}

func (f *Fake) RecordEnrollment(ctx context.Context, assetID string, studentID, courseID uuid.UUID) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.RecordCalls++
	if f.FailWith != nil {
		return "", f.FailWith
	}
	note, err := ledger.NewEnrollmentNote(studentID, courseID, time.Now()).Encode()
	if err != nil {
		return "", err
	}
	f.nextTx++
	txID := fmt.Sprintf("TX%06d", f.nextTx)
	f.txns[txID] = &ledger.TransactionRecord{
		ID:             txID,
		AssetID:        assetID,
		Note:           note,
		ConfirmedRound: 10_000 + f.nextTx,
		Timestamp:      time.Now().UTC(),
		Fee:            1000,
	}
	return txID, nil
}

func (f *Fake) IssueCertificate(ctx context.Context, spec ledger.CertificateSpec) (*ledger.CertificateResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.CertificateCalls++
	if f.FailWith != nil {
		return nil, f.FailWith
	}
	f.nextAsset++
	f.nextTx++
	return &ledger.CertificateResult{
		AssetID:       fmt.Sprintf("%d", f.nextAsset),
		TransactionID: fmt.Sprintf("TX%06d", f.nextTx),
		IssuedAt:      time.Now().UTC(),
	}, nil
}

func (f *Fake) LookupTransaction(ctx context.Context, txID string) (*ledger.TransactionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.LookupCalls++
	if f.FailWith != nil {
		return nil, f.FailWith
	}
	rec, ok := f.txns[txID]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	return rec, nil
}

// PutTransaction seeds an arbitrary transaction record, e.g. one whose note
// names a different student.
func (f *Fake) PutTransaction(rec *ledger.TransactionRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.txns[rec.ID] = rec
}

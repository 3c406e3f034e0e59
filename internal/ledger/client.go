package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotFound means the ledger has no record of the requested transaction.
	ErrNotFound = errors.New("ledger: transaction not found")
	// ErrUnavailable covers network and configuration failures reaching the
	// ledger.
	ErrUnavailable = errors.New("ledger: unavailable")
	// ErrTimeout means the transaction was not confirmed within the bounded
	// wait.
	ErrTimeout = errors.New("ledger: confirmation timeout")
)

// Client is the anchoring side-channel. Asset and transaction ids are opaque
// strings from the ledger's id space; callers store and compare them without
// parsing.
type Client interface {
	// CreateCourseToken issues a fungible token whose total supply equals the
	// course capacity, so the seat limit is readable off-ledger.
	CreateCourseToken(ctx context.Context, spec CourseTokenSpec) (string, error)
	// RecordEnrollment transfers one unit of the course token, tagging the
	// transaction with the enrollment metadata.
	RecordEnrollment(ctx context.Context, assetID string, studentID, courseID uuid.UUID) (string, error)
	// IssueCertificate mints a one-off certificate token. Unlike the other
	// writes this has no local fallback; failures propagate.
	IssueCertificate(ctx context.Context, spec CertificateSpec) (*CertificateResult, error)
	// LookupTransaction fetches the authoritative record for a previously
	// stored transaction id.
	LookupTransaction(ctx context.Context, txID string) (*TransactionRecord, error)
}

type CourseTokenSpec struct {
	CourseID uuid.UUID
	Code     string
	Title    string
	Credits  int
	Capacity int
	Fee      float64
}

type CertificateSpec struct {
	CourseID    uuid.UUID
	CourseCode  string
	CourseTitle string
	Credits     int
	StudentID   uuid.UUID
	StudentName string
	Grade       string
}

type CertificateResult struct {
	AssetID       string    `json:"asset_id"`
	TransactionID string    `json:"transaction_id"`
	IssuedAt      time.Time `json:"issued_at"`
}

// TransactionRecord is the ledger's view of one anchoring transaction.
type TransactionRecord struct {
	ID             string
	AssetID        string
	Note           []byte
	ConfirmedRound uint64
	Timestamp      time.Time
	Fee            uint64
}

const enrollAction = "enroll"

// EnrollmentNote is the metadata embedded in an enrollment transfer. Ids are
// serialized as strings so the note stays readable by generic ledger
// explorers.
type EnrollmentNote struct {
	Action    string `json:"action"`
	StudentID string `json:"student_id"`
	CourseID  string `json:"course_id"`
	Timestamp int64  `json:"timestamp"`
}

func NewEnrollmentNote(studentID, courseID uuid.UUID, at time.Time) EnrollmentNote {
	return EnrollmentNote{
		Action:    enrollAction,
		StudentID: studentID.String(),
		CourseID:  courseID.String(),
		Timestamp: at.Unix(),
	}
}

func (n EnrollmentNote) Encode() ([]byte, error) {
	return json.Marshal(n)
}

func DecodeEnrollmentNote(raw []byte) (EnrollmentNote, error) {
	var n EnrollmentNote
	if err := json.Unmarshal(raw, &n); err != nil {
		return EnrollmentNote{}, err
	}
	if n.Action != enrollAction {
		return EnrollmentNote{}, fmt.Errorf("note action %q is not an enrollment", n.Action)
	}
	return n, nil
}

// Matches reports whether the note attests the given enrollment. The action
// tag and both ids have to line up; an otherwise valid transfer naming a
// different student or course is not proof.
func (n EnrollmentNote) Matches(studentID, courseID uuid.UUID) bool {
	return n.Action == enrollAction &&
		n.StudentID == studentID.String() &&
		n.CourseID == courseID.String()
}

type courseTokenNote struct {
	CourseID string  `json:"course_id"`
	Title    string  `json:"title"`
	Code     string  `json:"code"`
	Credits  int     `json:"credits"`
	Capacity int     `json:"capacity"`
	Fee      float64 `json:"fee"`
}

type certificateNote struct {
	Type        string `json:"type"`
	StudentID   string `json:"student_id"`
	StudentName string `json:"student_name"`
	CourseID    string `json:"course_id"`
	CourseCode  string `json:"course_code"`
	CourseTitle string `json:"course_title"`
	Grade       string `json:"grade"`
	Credits     int    `json:"credits"`
	DateIssued  string `json:"date_issued"`
}

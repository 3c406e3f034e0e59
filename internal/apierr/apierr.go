package apierr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

func Validation(code string, err error) *Error {
	return New(http.StatusBadRequest, code, err)
}

func Unauthorized(code string, err error) *Error {
	return New(http.StatusUnauthorized, code, err)
}

func Forbidden(code string, err error) *Error {
	return New(http.StatusForbidden, code, err)
}

func NotFound(code string, err error) *Error {
	return New(http.StatusNotFound, code, err)
}

func Conflict(code string, err error) *Error {
	return New(http.StatusConflict, code, err)
}

func Internal(err error) *Error {
	return New(http.StatusInternalServerError, "internal", err)
}

// LedgerUnavailable and LedgerTimeout classify failures reaching the external
// ledger. They surface only on operations where the ledger result is the
// outcome (certificate issuance, on-demand verification); everywhere else the
// failure is contained and the affected row stays unanchored.
func LedgerUnavailable(err error) *Error {
	return New(http.StatusBadGateway, "ledger_unavailable", err)
}

func LedgerTimeout(err error) *Error {
	return New(http.StatusGatewayTimeout, "ledger_timeout", err)
}

// FromDB translates driver-level uniqueness violations into Conflict so
// handlers never leak raw constraint errors.
func FromDB(err error, conflictCode string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return Conflict(conflictCode, err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return Conflict(conflictCode, err)
	}
	return err
}

func StatusOf(err error) int {
	var ae *Error
	if errors.As(err, &ae) && ae.Status != 0 {
		return ae.Status
	}
	return http.StatusInternalServerError
}

func CodeOf(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code
	}
	return "internal"
}

package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/opencampus-io/registrar-backend/internal/apierr"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    code,
		},
	})
}

// RespondServiceError maps service-layer errors onto the wire. Anything that
// is not a tagged apierr is reported as a generic 500 without leaking the
// underlying cause.
func RespondServiceError(c *gin.Context, err error) {
	var apiErr *apierr.Error
	if errors.As(err, &apiErr) {
		RespondError(c, apiErr.Status, apiErr.Code, apiErr.Err)
		return
	}
	RespondError(c, http.StatusInternalServerError, "internal_error", errors.New("internal server error"))
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

func RespondCreated(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, payload)
}

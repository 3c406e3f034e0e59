package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/opencampus-io/registrar-backend/internal/services"
)

type BlockchainHandler struct {
	verificationService services.VerificationService
	certificateService  services.CertificateService
}

func NewBlockchainHandler(verificationService services.VerificationService, certificateService services.CertificateService) *BlockchainHandler {
	return &BlockchainHandler{
		verificationService: verificationService,
		certificateService:  certificateService,
	}
}

func (bh *BlockchainHandler) VerifyEnrollment(c *gin.Context) {
	enrollmentID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	result, err := bh.verificationService.VerifyEnrollment(c.Request.Context(), callerFrom(c), enrollmentID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, result)
}

func (bh *BlockchainHandler) IssueCertificate(c *gin.Context) {
	courseID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req struct {
		StudentID string `json:"student_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	studentID, err := uuid.Parse(req.StudentID)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_student_id", err)
		return
	}
	certificate, err := bh.certificateService.Issue(c.Request.Context(), callerFrom(c), courseID, studentID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondCreated(c, certificate)
}

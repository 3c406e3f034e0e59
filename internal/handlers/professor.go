package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/opencampus-io/registrar-backend/internal/repos"
	"github.com/opencampus-io/registrar-backend/internal/services"
	"github.com/opencampus-io/registrar-backend/internal/types"
)

type ProfessorHandler struct {
	directoryService services.DirectoryService
	gradingService   services.GradingService
}

func NewProfessorHandler(directoryService services.DirectoryService, gradingService services.GradingService) *ProfessorHandler {
	return &ProfessorHandler{
		directoryService: directoryService,
		gradingService:   gradingService,
	}
}

func (ph *ProfessorHandler) List(c *gin.Context) {
	professors, err := ph.directoryService.ListProfessors(c.Request.Context(), c.Query("department"))
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	out := make([]userView, 0, len(professors))
	for _, p := range professors {
		out = append(out, toUserView(p))
	}
	RespondOK(c, gin.H{"professors": out})
}

func (ph *ProfessorHandler) Get(c *gin.Context) {
	professorID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	professor, err := ph.directoryService.GetProfessor(c.Request.Context(), professorID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, toUserView(professor))
}

func (ph *ProfessorHandler) Courses(c *gin.Context) {
	professorID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	filter := repos.CourseFilter{
		Term:   c.Query("term"),
		Status: types.CourseStatus(c.Query("status")),
	}
	if yearStr := c.Query("year"); yearStr != "" {
		year, err := strconv.Atoi(yearStr)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "invalid_year", err)
			return
		}
		filter.Year = year
	}
	courses, err := ph.directoryService.ProfessorCourses(c.Request.Context(), professorID, filter)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"courses": courses})
}

func (ph *ProfessorHandler) CourseStudents(c *gin.Context) {
	courseID, ok := parseIDParam(c, "cid")
	if !ok {
		return
	}
	roster, err := ph.directoryService.CourseStudents(c.Request.Context(), callerFrom(c), courseID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"students": roster})
}

func (ph *ProfessorHandler) GradeAssignment(c *gin.Context) {
	var req struct {
		AssignmentID string  `json:"assignment_id"`
		StudentID    string  `json:"student_id"`
		SubmissionID string  `json:"submission_id"`
		Score        float64 `json:"score"`
		Feedback     string  `json:"feedback"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	input := services.GradeInput{Score: req.Score, Feedback: req.Feedback}

	if req.SubmissionID != "" {
		submissionID, err := uuid.Parse(req.SubmissionID)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "invalid_submission_id", err)
			return
		}
		grade, err := ph.gradingService.GradeSubmission(c.Request.Context(), callerFrom(c), submissionID, input)
		if err != nil {
			RespondServiceError(c, err)
			return
		}
		RespondOK(c, grade)
		return
	}

	assignmentID, err := uuid.Parse(req.AssignmentID)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_assignment_id", err)
		return
	}
	studentID, err := uuid.Parse(req.StudentID)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_student_id", err)
		return
	}
	grade, err := ph.gradingService.UpsertAssignmentGrade(c.Request.Context(), callerFrom(c), assignmentID, studentID, input)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, grade)
}

func (ph *ProfessorHandler) SubmitFinalGrades(c *gin.Context) {
	courseID, ok := parseIDParam(c, "cid")
	if !ok {
		return
	}
	var req struct {
		Grades []struct {
			StudentID string `json:"student_id"`
			Grade     string `json:"grade"`
		} `json:"grades"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	entries := make([]services.FinalGradeEntry, 0, len(req.Grades))
	for _, g := range req.Grades {
		studentID, err := uuid.Parse(g.StudentID)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "invalid_student_id", err)
			return
		}
		entries = append(entries, services.FinalGradeEntry{StudentID: studentID, Grade: g.Grade})
	}
	results, err := ph.gradingService.SubmitFinalGrades(c.Request.Context(), callerFrom(c), courseID, entries)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"results": results})
}

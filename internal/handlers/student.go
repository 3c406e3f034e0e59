package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/opencampus-io/registrar-backend/internal/apierr"
	"github.com/opencampus-io/registrar-backend/internal/repos"
	"github.com/opencampus-io/registrar-backend/internal/services"
	"github.com/opencampus-io/registrar-backend/internal/types"
)

type StudentHandler struct {
	directoryService  services.DirectoryService
	enrollmentService services.EnrollmentService
	gradingService    services.GradingService
}

func NewStudentHandler(
	directoryService services.DirectoryService,
	enrollmentService services.EnrollmentService,
	gradingService services.GradingService,
) *StudentHandler {
	return &StudentHandler{
		directoryService:  directoryService,
		enrollmentService: enrollmentService,
		gradingService:    gradingService,
	}
}

func (sh *StudentHandler) List(c *gin.Context) {
	filter := repos.StudentFilter{Major: c.Query("major")}
	if yearStr := c.Query("year"); yearStr != "" {
		year, err := strconv.Atoi(yearStr)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "invalid_year", err)
			return
		}
		filter.Year = year
	}
	students, err := sh.directoryService.ListStudents(c.Request.Context(), callerFrom(c), filter)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	out := make([]userView, 0, len(students))
	for _, s := range students {
		out = append(out, toUserView(s))
	}
	RespondOK(c, gin.H{"students": out})
}

func (sh *StudentHandler) Get(c *gin.Context) {
	studentID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	student, err := sh.directoryService.GetStudent(c.Request.Context(), callerFrom(c), studentID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, toUserView(student))
}

func (sh *StudentHandler) Courses(c *gin.Context) {
	studentID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	status := types.EnrollmentStatus(c.Query("status"))
	courses, err := sh.directoryService.StudentCourses(c.Request.Context(), callerFrom(c), studentID, status)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"courses": courses})
}

func (sh *StudentHandler) Assignments(c *gin.Context) {
	studentID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	caller := callerFrom(c)
	if caller.ID != studentID {
		RespondServiceError(c, apierr.Forbidden("not_own_assignments", fmt.Errorf("students may only view their own assignments")))
		return
	}
	courseID, err := uuid.Parse(c.Query("course_id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_course_id", err)
		return
	}
	statuses, err := sh.gradingService.StudentAssignments(c.Request.Context(), caller, courseID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"assignments": statuses})
}

func (sh *StudentHandler) Grades(c *gin.Context) {
	studentID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	report, err := sh.gradingService.StudentGradeReport(c.Request.Context(), callerFrom(c), studentID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"grades": report})
}

func (sh *StudentHandler) Submit(c *gin.Context) {
	studentID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	caller := callerFrom(c)
	if caller.ID != studentID {
		RespondServiceError(c, apierr.Forbidden("not_own_submission", fmt.Errorf("students may only submit their own work")))
		return
	}
	var req struct {
		AssignmentID string `json:"assignment_id"`
		Content      string `json:"content"`
		FilePath     string `json:"file_path"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	assignmentID, err := uuid.Parse(req.AssignmentID)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_assignment_id", err)
		return
	}
	submission, err := sh.gradingService.SubmitAssignment(c.Request.Context(), caller, assignmentID, services.SubmitAssignmentInput{
		Content:  req.Content,
		FilePath: req.FilePath,
	})
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondCreated(c, submission)
}

package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/opencampus-io/registrar-backend/internal/repos"
	"github.com/opencampus-io/registrar-backend/internal/services"
	"github.com/opencampus-io/registrar-backend/internal/types"
)

type CourseHandler struct {
	courseService     services.CourseService
	enrollmentService services.EnrollmentService
	gradingService    services.GradingService
}

func NewCourseHandler(
	courseService services.CourseService,
	enrollmentService services.EnrollmentService,
	gradingService services.GradingService,
) *CourseHandler {
	return &CourseHandler{
		courseService:     courseService,
		enrollmentService: enrollmentService,
		gradingService:    gradingService,
	}
}

type courseView struct {
	*types.Course
	EnrolledCount int64 `json:"enrolled_count"`
	IsFull        bool  `json:"is_full"`
}

func toCourseView(detail *services.CourseDetail) courseView {
	return courseView{
		Course:        detail.Course,
		EnrolledCount: detail.EnrolledCount,
		IsFull:        detail.EnrolledCount >= int64(detail.Course.Capacity),
	}
}

func (ch *CourseHandler) List(c *gin.Context) {
	filter := repos.CourseFilter{
		Term:       c.Query("term"),
		Department: c.Query("department"),
		Status:     types.CourseStatus(c.Query("status")),
	}
	if yearStr := c.Query("year"); yearStr != "" {
		year, err := strconv.Atoi(yearStr)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "invalid_year", err)
			return
		}
		filter.Year = year
	}
	details, err := ch.courseService.List(c.Request.Context(), filter)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	out := make([]courseView, 0, len(details))
	for _, d := range details {
		out = append(out, toCourseView(d))
	}
	RespondOK(c, gin.H{"courses": out})
}

func (ch *CourseHandler) Get(c *gin.Context) {
	courseID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	detail, err := ch.courseService.Get(c.Request.Context(), courseID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, toCourseView(detail))
}

func (ch *CourseHandler) Create(c *gin.Context) {
	var req struct {
		Code         string                 `json:"code"`
		Title        string                 `json:"title"`
		Description  string                 `json:"description"`
		Credits      int                    `json:"credits"`
		Capacity     int                    `json:"capacity"`
		Term         string                 `json:"term"`
		Year         int                    `json:"year"`
		Department   string                 `json:"department"`
		Fee          float64                `json:"fee"`
		InstructorID *uuid.UUID             `json:"instructor_id"`
		Metadata     map[string]interface{} `json:"metadata"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	course, err := ch.courseService.Create(c.Request.Context(), callerFrom(c), services.CreateCourseInput{
		Code:         req.Code,
		Title:        req.Title,
		Description:  req.Description,
		Credits:      req.Credits,
		Capacity:     req.Capacity,
		Term:         req.Term,
		Year:         req.Year,
		Department:   req.Department,
		Fee:          req.Fee,
		InstructorID: req.InstructorID,
		Metadata:     req.Metadata,
	})
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondCreated(c, course)
}

func (ch *CourseHandler) Update(c *gin.Context) {
	courseID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req struct {
		Title        *string             `json:"title"`
		Description  *string             `json:"description"`
		Capacity     *int                `json:"capacity"`
		Fee          *float64            `json:"fee"`
		Status       *types.CourseStatus `json:"status"`
		InstructorID *uuid.UUID          `json:"instructor_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	course, err := ch.courseService.Update(c.Request.Context(), callerFrom(c), courseID, services.UpdateCourseInput{
		Title:        req.Title,
		Description:  req.Description,
		Capacity:     req.Capacity,
		Fee:          req.Fee,
		Status:       req.Status,
		InstructorID: req.InstructorID,
	})
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, course)
}

func (ch *CourseHandler) Enroll(c *gin.Context) {
	courseID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	enrollment, err := ch.enrollmentService.Enroll(c.Request.Context(), callerFrom(c), courseID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondCreated(c, enrollment)
}

func (ch *CourseHandler) Drop(c *gin.Context) {
	courseID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	enrollment, err := ch.enrollmentService.Drop(c.Request.Context(), callerFrom(c), courseID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, enrollment)
}

func (ch *CourseHandler) CreateAssignment(c *gin.Context) {
	courseID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	var req struct {
		Title       string    `json:"title"`
		Description string    `json:"description"`
		DueDate     time.Time `json:"due_date"`
		Points      int       `json:"points"`
		Weight      float64   `json:"weight"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", err)
		return
	}
	assignment, err := ch.courseService.CreateAssignment(c.Request.Context(), callerFrom(c), courseID, services.CreateAssignmentInput{
		Title:       req.Title,
		Description: req.Description,
		DueDate:     req.DueDate,
		Points:      req.Points,
		Weight:      req.Weight,
	})
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondCreated(c, assignment)
}

func (ch *CourseHandler) ListAssignments(c *gin.Context) {
	courseID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	assignments, err := ch.courseService.ListAssignments(c.Request.Context(), courseID)
	if err != nil {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, gin.H{"assignments": assignments})
}

package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/opencampus-io/registrar-backend/internal/apierr"
	"github.com/opencampus-io/registrar-backend/internal/logger"
	"github.com/opencampus-io/registrar-backend/internal/repos"
	"github.com/opencampus-io/registrar-backend/internal/types"
)

type CreateCourseInput struct {
	Code        string
	Title       string
	Description string
	Credits     int
	Capacity    int
	Term        string
	Year        int
	Department  string
	Fee         float64
	// InstructorID may only be set by admins; professors always instruct
	// their own courses.
	InstructorID *uuid.UUID
	Metadata     map[string]interface{}
}

type UpdateCourseInput struct {
	Title        *string
	Description  *string
	Capacity     *int
	Fee          *float64
	Status       *types.CourseStatus
	InstructorID *uuid.UUID
}

type CreateAssignmentInput struct {
	Title       string
	Description string
	DueDate     time.Time
	Points      int
	Weight      float64
}

// CourseDetail is a course with its live enrollment count.
type CourseDetail struct {
	Course        *types.Course
	EnrolledCount int64
}

type CourseService interface {
	Create(ctx context.Context, caller Caller, input CreateCourseInput) (*types.Course, error)
	Update(ctx context.Context, caller Caller, courseID uuid.UUID, input UpdateCourseInput) (*types.Course, error)
	Get(ctx context.Context, courseID uuid.UUID) (*CourseDetail, error)
	List(ctx context.Context, filter repos.CourseFilter) ([]*CourseDetail, error)
	CreateAssignment(ctx context.Context, caller Caller, courseID uuid.UUID, input CreateAssignmentInput) (*types.Assignment, error)
	ListAssignments(ctx context.Context, courseID uuid.UUID) ([]*types.Assignment, error)
}

type courseService struct {
	db               *gorm.DB
	log              *logger.Logger
	courseRepo       repos.CourseRepo
	enrollmentRepo   repos.EnrollmentRepo
	assignmentRepo   repos.AssignmentRepo
	userRepo         repos.UserRepo
	anchorJobRepo    repos.AnchorJobRepo
	anchoringEnabled bool
}

func NewCourseService(
	db *gorm.DB,
	baseLog *logger.Logger,
	courseRepo repos.CourseRepo,
	enrollmentRepo repos.EnrollmentRepo,
	assignmentRepo repos.AssignmentRepo,
	userRepo repos.UserRepo,
	anchorJobRepo repos.AnchorJobRepo,
	anchoringEnabled bool,
) CourseService {
	return &courseService{
		db:               db,
		log:              baseLog.With("service", "CourseService"),
		courseRepo:       courseRepo,
		enrollmentRepo:   enrollmentRepo,
		assignmentRepo:   assignmentRepo,
		userRepo:         userRepo,
		anchorJobRepo:    anchorJobRepo,
		anchoringEnabled: anchoringEnabled,
	}
}

func (cs *courseService) Create(ctx context.Context, caller Caller, input CreateCourseInput) (*types.Course, error) {
	if !caller.IsStaff() {
		return nil, apierr.Forbidden("professor_or_admin_required", fmt.Errorf("only professors and admins can create courses"))
	}
	input.Code = strings.ToUpper(strings.TrimSpace(input.Code))
	input.Title = strings.TrimSpace(input.Title)
	if input.Code == "" {
		return nil, apierr.Validation("code_required", fmt.Errorf("course code is required"))
	}
	if input.Title == "" {
		return nil, apierr.Validation("title_required", fmt.Errorf("course title is required"))
	}
	if input.Capacity <= 0 {
		return nil, apierr.Validation("invalid_capacity", fmt.Errorf("capacity must be positive"))
	}
	if input.Credits <= 0 {
		return nil, apierr.Validation("invalid_credits", fmt.Errorf("credits must be positive"))
	}

	exists, err := cs.courseRepo.CodeExists(ctx, nil, input.Code)
	if err != nil {
		return nil, fmt.Errorf("check course code: %w", err)
	}
	if exists {
		return nil, apierr.Conflict("course_code_taken", fmt.Errorf("course code %s already exists", input.Code))
	}

	course := &types.Course{
		ID:          uuid.New(),
		Code:        input.Code,
		Title:       input.Title,
		Description: input.Description,
		Credits:     input.Credits,
		Capacity:    input.Capacity,
		Term:        input.Term,
		Year:        input.Year,
		Department:  input.Department,
		Fee:         input.Fee,
		Status:      types.CourseActive,
	}
	switch {
	case input.InstructorID != nil:
		if !caller.IsAdmin() {
			return nil, apierr.Forbidden("admin_required", fmt.Errorf("only admins can assign another instructor"))
		}
		if err := cs.requireProfessor(ctx, *input.InstructorID); err != nil {
			return nil, err
		}
		course.InstructorID = input.InstructorID
	case caller.IsProfessor():
		id := caller.ID
		course.InstructorID = &id
	}
	if input.Metadata != nil {
		raw, err := json.Marshal(input.Metadata)
		if err != nil {
			return nil, apierr.Validation("invalid_metadata", fmt.Errorf("marshal metadata: %w", err))
		}
		course.Metadata = datatypes.JSON(raw)
	}

	err = cs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := cs.courseRepo.Create(ctx, tx, course); err != nil {
			return err
		}
		if cs.anchoringEnabled {
			return enqueueAnchorJob(ctx, tx, cs.anchorJobRepo, types.AnchorCourse, course.ID)
		}
		return nil
	})
	if err != nil {
		return nil, apierr.FromDB(err, "course_code_taken")
	}
	cs.log.Info("course created", "course_id", course.ID, "code", course.Code)
	return course, nil
}

func (cs *courseService) Update(ctx context.Context, caller Caller, courseID uuid.UUID, input UpdateCourseInput) (*types.Course, error) {
	course, err := cs.courseRepo.GetByID(ctx, nil, courseID)
	if err != nil {
		return nil, fmt.Errorf("load course: %w", err)
	}
	if course == nil {
		return nil, apierr.NotFound("course_not_found", fmt.Errorf("course not found"))
	}
	if !cs.canManage(caller, course) {
		return nil, apierr.Forbidden("not_course_instructor", fmt.Errorf("only the instructor or an admin can update this course"))
	}

	fields := map[string]interface{}{}
	if input.Title != nil {
		if strings.TrimSpace(*input.Title) == "" {
			return nil, apierr.Validation("title_required", fmt.Errorf("course title cannot be empty"))
		}
		fields["title"] = strings.TrimSpace(*input.Title)
	}
	if input.Description != nil {
		fields["description"] = *input.Description
	}
	if input.Capacity != nil {
		if *input.Capacity <= 0 {
			return nil, apierr.Validation("invalid_capacity", fmt.Errorf("capacity must be positive"))
		}
		active, err := cs.enrollmentRepo.CountActive(ctx, nil, courseID)
		if err != nil {
			return nil, fmt.Errorf("count enrollments: %w", err)
		}
		if int64(*input.Capacity) < active {
			return nil, apierr.Validation("capacity_below_enrollment", fmt.Errorf("capacity %d is below current enrollment %d", *input.Capacity, active))
		}
		fields["capacity"] = *input.Capacity
	}
	if input.Fee != nil {
		fields["fee"] = *input.Fee
	}
	if input.Status != nil {
		if !input.Status.Valid() {
			return nil, apierr.Validation("invalid_status", fmt.Errorf("invalid course status"))
		}
		fields["status"] = *input.Status
	}
	if input.InstructorID != nil {
		if !caller.IsAdmin() {
			return nil, apierr.Forbidden("admin_required", fmt.Errorf("only admins can reassign the instructor"))
		}
		if err := cs.requireProfessor(ctx, *input.InstructorID); err != nil {
			return nil, err
		}
		fields["instructor_id"] = *input.InstructorID
	}
	if len(fields) == 0 {
		return course, nil
	}

	if err := cs.courseRepo.UpdateFields(ctx, nil, courseID, fields); err != nil {
		return nil, fmt.Errorf("update course: %w", err)
	}
	return cs.courseRepo.GetByID(ctx, nil, courseID)
}

func (cs *courseService) Get(ctx context.Context, courseID uuid.UUID) (*CourseDetail, error) {
	course, err := cs.courseRepo.GetByID(ctx, nil, courseID)
	if err != nil {
		return nil, fmt.Errorf("load course: %w", err)
	}
	if course == nil {
		return nil, apierr.NotFound("course_not_found", fmt.Errorf("course not found"))
	}
	count, err := cs.enrollmentRepo.CountActive(ctx, nil, courseID)
	if err != nil {
		return nil, fmt.Errorf("count enrollments: %w", err)
	}
	return &CourseDetail{Course: course, EnrolledCount: count}, nil
}

func (cs *courseService) List(ctx context.Context, filter repos.CourseFilter) ([]*CourseDetail, error) {
	courses, err := cs.courseRepo.List(ctx, nil, filter)
	if err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	out := make([]*CourseDetail, 0, len(courses))
	for _, course := range courses {
		count, err := cs.enrollmentRepo.CountActive(ctx, nil, course.ID)
		if err != nil {
			return nil, fmt.Errorf("count enrollments: %w", err)
		}
		out = append(out, &CourseDetail{Course: course, EnrolledCount: count})
	}
	return out, nil
}

func (cs *courseService) CreateAssignment(ctx context.Context, caller Caller, courseID uuid.UUID, input CreateAssignmentInput) (*types.Assignment, error) {
	course, err := cs.courseRepo.GetByID(ctx, nil, courseID)
	if err != nil {
		return nil, fmt.Errorf("load course: %w", err)
	}
	if course == nil {
		return nil, apierr.NotFound("course_not_found", fmt.Errorf("course not found"))
	}
	if !cs.canManage(caller, course) {
		return nil, apierr.Forbidden("not_course_instructor", fmt.Errorf("only the instructor or an admin can add assignments"))
	}
	input.Title = strings.TrimSpace(input.Title)
	if input.Title == "" {
		return nil, apierr.Validation("title_required", fmt.Errorf("assignment title is required"))
	}
	if input.Points <= 0 {
		return nil, apierr.Validation("invalid_points", fmt.Errorf("points must be positive"))
	}
	if input.Weight < 0 {
		return nil, apierr.Validation("invalid_weight", fmt.Errorf("weight cannot be negative"))
	}
	if input.DueDate.IsZero() {
		return nil, apierr.Validation("due_date_required", fmt.Errorf("assignment due date is required"))
	}

	assignment := &types.Assignment{
		ID:          uuid.New(),
		CourseID:    courseID,
		Title:       input.Title,
		Description: input.Description,
		DueDate:     input.DueDate,
		Points:      input.Points,
		Weight:      input.Weight,
	}
	if err := cs.assignmentRepo.Create(ctx, nil, assignment); err != nil {
		return nil, fmt.Errorf("create assignment: %w", err)
	}
	return assignment, nil
}

func (cs *courseService) ListAssignments(ctx context.Context, courseID uuid.UUID) ([]*types.Assignment, error) {
	course, err := cs.courseRepo.GetByID(ctx, nil, courseID)
	if err != nil {
		return nil, fmt.Errorf("load course: %w", err)
	}
	if course == nil {
		return nil, apierr.NotFound("course_not_found", fmt.Errorf("course not found"))
	}
	return cs.assignmentRepo.ListByCourse(ctx, nil, courseID)
}

func (cs *courseService) canManage(caller Caller, course *types.Course) bool {
	if caller.IsAdmin() {
		return true
	}
	return caller.IsProfessor() && course.InstructorID != nil && *course.InstructorID == caller.ID
}

func (cs *courseService) requireProfessor(ctx context.Context, id uuid.UUID) error {
	prof, err := cs.userRepo.GetByIDAndRole(ctx, nil, id, types.RoleProfessor)
	if err != nil {
		return fmt.Errorf("load instructor: %w", err)
	}
	if prof == nil {
		return apierr.Validation("instructor_not_professor", fmt.Errorf("instructor must be an existing professor"))
	}
	return nil
}

package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/opencampus-io/registrar-backend/internal/apierr"
	"github.com/opencampus-io/registrar-backend/internal/logger"
	"github.com/opencampus-io/registrar-backend/internal/repos"
	"github.com/opencampus-io/registrar-backend/internal/types"
)

type SubmitAssignmentInput struct {
	Content  string
	FilePath string
}

type GradeInput struct {
	Score    float64
	Feedback string
}

// CourseGrade is the weighted aggregate for one student in one course.
// Ungraded assignments earn zero but their weighted points stay in the
// denominator, so missing work always lowers the percentage. Letter is
// empty when the course has no weighted points to grade against.
type CourseGrade struct {
	CourseID       uuid.UUID `json:"course_id"`
	StudentID      uuid.UUID `json:"student_id"`
	Percentage     float64   `json:"percentage"`
	Letter         string    `json:"letter,omitempty"`
	GradedCount    int       `json:"graded_count"`
	EarnedPoints   float64   `json:"earned_points"`
	PossiblePoints float64   `json:"possible_points"`
}

// FinalGradeEntry is one row of a final-grade batch.
type FinalGradeEntry struct {
	StudentID uuid.UUID `json:"student_id"`
	Grade     string    `json:"grade"`
}

// FinalGradeResult reports per-entry outcomes of a final-grade batch. Entries
// fail independently; one bad row never rolls back the others.
type FinalGradeResult struct {
	StudentID uuid.UUID `json:"student_id"`
	Grade     string    `json:"grade,omitempty"`
	Error     string    `json:"error,omitempty"`
}

// AssignmentStatus pairs an assignment with the student's submission and
// grade, either of which may be absent.
type AssignmentStatus struct {
	Assignment *types.Assignment `json:"assignment"`
	Submission *types.Submission `json:"submission,omitempty"`
	Grade      *types.Grade      `json:"grade,omitempty"`
}

// GradeReportEntry is one course in a student's grade report. FinalGrade is
// the recorded enrollment grade when one exists, otherwise the computed
// letter.
type GradeReportEntry struct {
	Course      *types.Course     `json:"course"`
	Enrollment  *types.Enrollment `json:"enrollment"`
	CourseGrade *CourseGrade      `json:"course_grade,omitempty"`
	FinalGrade  string            `json:"final_grade,omitempty"`
}

type GradingService interface {
	SubmitAssignment(ctx context.Context, caller Caller, assignmentID uuid.UUID, input SubmitAssignmentInput) (*types.Submission, error)
	GradeSubmission(ctx context.Context, caller Caller, submissionID uuid.UUID, input GradeInput) (*types.Grade, error)
	UpsertAssignmentGrade(ctx context.Context, caller Caller, assignmentID, studentID uuid.UUID, input GradeInput) (*types.Grade, error)
	ComputeCourseGrade(ctx context.Context, courseID, studentID uuid.UUID) (*CourseGrade, error)
	SubmitFinalGrades(ctx context.Context, caller Caller, courseID uuid.UUID, entries []FinalGradeEntry) ([]FinalGradeResult, error)
	StudentAssignments(ctx context.Context, caller Caller, courseID uuid.UUID) ([]AssignmentStatus, error)
	StudentGradeReport(ctx context.Context, caller Caller, studentID uuid.UUID) ([]GradeReportEntry, error)
}

type gradingService struct {
	db             *gorm.DB
	log            *logger.Logger
	courseRepo     repos.CourseRepo
	enrollmentRepo repos.EnrollmentRepo
	assignmentRepo repos.AssignmentRepo
	submissionRepo repos.SubmissionRepo
	gradeRepo      repos.GradeRepo
}

func NewGradingService(
	db *gorm.DB,
	baseLog *logger.Logger,
	courseRepo repos.CourseRepo,
	enrollmentRepo repos.EnrollmentRepo,
	assignmentRepo repos.AssignmentRepo,
	submissionRepo repos.SubmissionRepo,
	gradeRepo repos.GradeRepo,
) GradingService {
	return &gradingService{
		db:             db,
		log:            baseLog.With("service", "GradingService"),
		courseRepo:     courseRepo,
		enrollmentRepo: enrollmentRepo,
		assignmentRepo: assignmentRepo,
		submissionRepo: submissionRepo,
		gradeRepo:      gradeRepo,
	}
}

// LetterGrade maps a percentage to the letter scale used on transcripts.
func LetterGrade(percentage float64) string {
	switch {
	case percentage >= 90:
		return "A"
	case percentage >= 80:
		return "B"
	case percentage >= 70:
		return "C"
	case percentage >= 60:
		return "D"
	default:
		return "F"
	}
}

func ValidLetterGrade(grade string) bool {
	switch grade {
	case "A", "B", "C", "D", "F":
		return true
	}
	return false
}

func (gs *gradingService) SubmitAssignment(ctx context.Context, caller Caller, assignmentID uuid.UUID, input SubmitAssignmentInput) (*types.Submission, error) {
	if !caller.IsStudent() {
		return nil, apierr.Forbidden("student_required", fmt.Errorf("only students can submit assignments"))
	}
	assignment, err := gs.assignmentRepo.GetByID(ctx, nil, assignmentID)
	if err != nil {
		return nil, fmt.Errorf("load assignment: %w", err)
	}
	if assignment == nil {
		return nil, apierr.NotFound("assignment_not_found", fmt.Errorf("assignment not found"))
	}
	enrollment, err := gs.enrollmentRepo.GetByStudentAndCourse(ctx, nil, caller.ID, assignment.CourseID)
	if err != nil {
		return nil, fmt.Errorf("load enrollment: %w", err)
	}
	if enrollment == nil || enrollment.Status == types.EnrollmentDropped {
		return nil, apierr.Forbidden("not_enrolled", fmt.Errorf("student is not enrolled in this course"))
	}
	if input.Content == "" && input.FilePath == "" {
		return nil, apierr.Validation("content_required", fmt.Errorf("submission content is required"))
	}

	existing, err := gs.submissionRepo.GetByAssignmentAndStudent(ctx, nil, assignmentID, caller.ID)
	if err != nil {
		return nil, fmt.Errorf("check existing submission: %w", err)
	}
	if existing != nil {
		return nil, apierr.Conflict("already_submitted", fmt.Errorf("assignment already submitted"))
	}

	submission := &types.Submission{
		ID:           uuid.New(),
		AssignmentID: assignmentID,
		StudentID:    caller.ID,
		Content:      input.Content,
		FilePath:     input.FilePath,
		SubmittedAt:  time.Now().UTC(),
	}
	if err := gs.submissionRepo.Create(ctx, nil, submission); err != nil {
		return nil, apierr.FromDB(err, "already_submitted")
	}
	return submission, nil
}

func (gs *gradingService) GradeSubmission(ctx context.Context, caller Caller, submissionID uuid.UUID, input GradeInput) (*types.Grade, error) {
	submission, err := gs.submissionRepo.GetByID(ctx, nil, submissionID)
	if err != nil {
		return nil, fmt.Errorf("load submission: %w", err)
	}
	if submission == nil {
		return nil, apierr.NotFound("submission_not_found", fmt.Errorf("submission not found"))
	}
	grade, err := gs.upsertGrade(ctx, caller, submission.AssignmentID, submission.StudentID, &submission.ID, input)
	if err != nil {
		return nil, err
	}
	return grade, nil
}

func (gs *gradingService) UpsertAssignmentGrade(ctx context.Context, caller Caller, assignmentID, studentID uuid.UUID, input GradeInput) (*types.Grade, error) {
	return gs.upsertGrade(ctx, caller, assignmentID, studentID, nil, input)
}

func (gs *gradingService) upsertGrade(ctx context.Context, caller Caller, assignmentID, studentID uuid.UUID, submissionID *uuid.UUID, input GradeInput) (*types.Grade, error) {
	assignment, err := gs.assignmentRepo.GetByID(ctx, nil, assignmentID)
	if err != nil {
		return nil, fmt.Errorf("load assignment: %w", err)
	}
	if assignment == nil {
		return nil, apierr.NotFound("assignment_not_found", fmt.Errorf("assignment not found"))
	}
	if err := gs.requireInstructor(ctx, caller, assignment.CourseID); err != nil {
		return nil, err
	}
	if input.Score < 0 {
		return nil, apierr.Validation("invalid_score", fmt.Errorf("score cannot be negative"))
	}

	enrollment, err := gs.enrollmentRepo.GetByStudentAndCourse(ctx, nil, studentID, assignment.CourseID)
	if err != nil {
		return nil, fmt.Errorf("load enrollment: %w", err)
	}
	if enrollment == nil || enrollment.Status == types.EnrollmentDropped {
		return nil, apierr.Validation("not_enrolled", fmt.Errorf("student is not enrolled in this course"))
	}

	existing, err := gs.gradeRepo.GetByAssignmentAndStudent(ctx, nil, assignmentID, studentID)
	if err != nil {
		return nil, fmt.Errorf("load grade: %w", err)
	}
	if existing != nil {
		if err := gs.gradeRepo.UpdateScore(ctx, nil, existing.ID, input.Score, input.Feedback); err != nil {
			return nil, fmt.Errorf("update grade: %w", err)
		}
		existing.Score = input.Score
		existing.Feedback = input.Feedback
		existing.GradedAt = time.Now().UTC()
		return existing, nil
	}

	if submissionID == nil {
		submission, err := gs.submissionRepo.GetByAssignmentAndStudent(ctx, nil, assignmentID, studentID)
		if err != nil {
			return nil, fmt.Errorf("load submission: %w", err)
		}
		if submission != nil {
			submissionID = &submission.ID
		}
	}

	grade := &types.Grade{
		ID:           uuid.New(),
		AssignmentID: assignmentID,
		StudentID:    studentID,
		SubmissionID: submissionID,
		Score:        input.Score,
		Feedback:     input.Feedback,
		GradedAt:     time.Now().UTC(),
	}
	if err := gs.gradeRepo.Create(ctx, nil, grade); err != nil {
		return nil, apierr.FromDB(err, "grade_exists")
	}
	return grade, nil
}

// ComputeCourseGrade derives the weighted percentage for one student across
// every assignment in the course. Ungraded assignments contribute zero earned
// points against their full weighted value.
func (gs *gradingService) ComputeCourseGrade(ctx context.Context, courseID, studentID uuid.UUID) (*CourseGrade, error) {
	assignments, err := gs.assignmentRepo.ListByCourse(ctx, nil, courseID)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	result := &CourseGrade{CourseID: courseID, StudentID: studentID}
	if len(assignments) == 0 {
		return result, nil
	}

	assignmentIDs := make([]uuid.UUID, 0, len(assignments))
	byID := make(map[uuid.UUID]*types.Assignment, len(assignments))
	for _, a := range assignments {
		assignmentIDs = append(assignmentIDs, a.ID)
		byID[a.ID] = a
		result.PossiblePoints += float64(a.Points) * a.Weight
	}

	grades, err := gs.gradeRepo.ListByStudentAndAssignments(ctx, nil, studentID, assignmentIDs)
	if err != nil {
		return nil, fmt.Errorf("list grades: %w", err)
	}

	for _, g := range grades {
		a, ok := byID[g.AssignmentID]
		if !ok {
			continue
		}
		result.EarnedPoints += g.Score * a.Weight
		result.GradedCount++
	}
	if result.PossiblePoints <= 0 {
		return result, nil
	}
	result.Percentage = result.EarnedPoints / result.PossiblePoints * 100
	result.Letter = LetterGrade(result.Percentage)
	return result, nil
}

func (gs *gradingService) SubmitFinalGrades(ctx context.Context, caller Caller, courseID uuid.UUID, entries []FinalGradeEntry) ([]FinalGradeResult, error) {
	if err := gs.requireInstructor(ctx, caller, courseID); err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, apierr.Validation("grades_required", fmt.Errorf("at least one grade entry is required"))
	}

	results := make([]FinalGradeResult, 0, len(entries))
	for _, entry := range entries {
		result := FinalGradeResult{StudentID: entry.StudentID}
		if !ValidLetterGrade(entry.Grade) {
			result.Error = fmt.Sprintf("invalid grade %q", entry.Grade)
			results = append(results, result)
			continue
		}
		enrollment, err := gs.enrollmentRepo.GetByStudentAndCourse(ctx, nil, entry.StudentID, courseID)
		if err != nil {
			result.Error = "failed to load enrollment"
			results = append(results, result)
			continue
		}
		if enrollment == nil || enrollment.Status == types.EnrollmentDropped {
			result.Error = "student is not enrolled in this course"
			results = append(results, result)
			continue
		}
		err = gs.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := gs.enrollmentRepo.SetFinalGrade(ctx, tx, enrollment.ID, entry.Grade); err != nil {
				return err
			}
			return gs.enrollmentRepo.UpdateStatus(ctx, tx, enrollment.ID, types.EnrollmentComplete)
		})
		if err != nil {
			gs.log.Error("final grade write failed", "enrollment_id", enrollment.ID, "error", err)
			result.Error = "failed to record final grade"
			results = append(results, result)
			continue
		}
		result.Grade = entry.Grade
		results = append(results, result)
	}
	return results, nil
}

func (gs *gradingService) StudentAssignments(ctx context.Context, caller Caller, courseID uuid.UUID) ([]AssignmentStatus, error) {
	if !caller.IsStudent() {
		return nil, apierr.Forbidden("student_required", fmt.Errorf("only students have assignment views"))
	}
	enrollment, err := gs.enrollmentRepo.GetByStudentAndCourse(ctx, nil, caller.ID, courseID)
	if err != nil {
		return nil, fmt.Errorf("load enrollment: %w", err)
	}
	if enrollment == nil || enrollment.Status == types.EnrollmentDropped {
		return nil, apierr.Forbidden("not_enrolled", fmt.Errorf("student is not enrolled in this course"))
	}

	assignments, err := gs.assignmentRepo.ListByCourse(ctx, nil, courseID)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	ids := make([]uuid.UUID, 0, len(assignments))
	for _, a := range assignments {
		ids = append(ids, a.ID)
	}
	submissions, err := gs.submissionRepo.ListByStudentAndAssignments(ctx, nil, caller.ID, ids)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	grades, err := gs.gradeRepo.ListByStudentAndAssignments(ctx, nil, caller.ID, ids)
	if err != nil {
		return nil, fmt.Errorf("list grades: %w", err)
	}
	subByAssignment := make(map[uuid.UUID]*types.Submission, len(submissions))
	for _, s := range submissions {
		subByAssignment[s.AssignmentID] = s
	}
	gradeByAssignment := make(map[uuid.UUID]*types.Grade, len(grades))
	for _, g := range grades {
		gradeByAssignment[g.AssignmentID] = g
	}

	out := make([]AssignmentStatus, 0, len(assignments))
	for _, a := range assignments {
		out = append(out, AssignmentStatus{
			Assignment: a,
			Submission: subByAssignment[a.ID],
			Grade:      gradeByAssignment[a.ID],
		})
	}
	return out, nil
}

func (gs *gradingService) StudentGradeReport(ctx context.Context, caller Caller, studentID uuid.UUID) ([]GradeReportEntry, error) {
	if caller.IsStudent() && caller.ID != studentID {
		return nil, apierr.Forbidden("not_own_grades", fmt.Errorf("students may only view their own grades"))
	}
	enrollments, err := gs.enrollmentRepo.ListByStudent(ctx, nil, studentID, "")
	if err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}

	out := make([]GradeReportEntry, 0, len(enrollments))
	for _, enrollment := range enrollments {
		if enrollment.Status == types.EnrollmentDropped {
			continue
		}
		course, err := gs.courseRepo.GetByID(ctx, nil, enrollment.CourseID)
		if err != nil {
			return nil, fmt.Errorf("load course: %w", err)
		}
		if course == nil {
			continue
		}
		courseGrade, err := gs.ComputeCourseGrade(ctx, course.ID, studentID)
		if err != nil {
			return nil, err
		}
		entry := GradeReportEntry{
			Course:      course,
			Enrollment:  enrollment,
			CourseGrade: courseGrade,
			FinalGrade:  courseGrade.Letter,
		}
		if enrollment.Grade != nil && *enrollment.Grade != "" {
			entry.FinalGrade = *enrollment.Grade
		}
		out = append(out, entry)
	}
	return out, nil
}

func (gs *gradingService) requireInstructor(ctx context.Context, caller Caller, courseID uuid.UUID) error {
	course, err := gs.courseRepo.GetByID(ctx, nil, courseID)
	if err != nil {
		return fmt.Errorf("load course: %w", err)
	}
	if course == nil {
		return apierr.NotFound("course_not_found", fmt.Errorf("course not found"))
	}
	if caller.IsAdmin() {
		return nil
	}
	if caller.IsProfessor() && course.InstructorID != nil && *course.InstructorID == caller.ID {
		return nil
	}
	return apierr.Forbidden("not_course_instructor", fmt.Errorf("only the course instructor or an admin can grade"))
}

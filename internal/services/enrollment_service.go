package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/course-service/internal/events"
	"github.com/SAP-F-2025/course-service/internal/models"
	"github.com/SAP-F-2025/course-service/internal/repositories"
	"github.com/SAP-F-2025/course-service/internal/validator"
)

type enrollmentService struct {
	repo           repositories.Repository
	db             *gorm.DB
	logger         *slog.Logger
	validator      *validator.Validator
	access         *accessChecker
	eventPublisher events.EventPublisher
}

func NewEnrollmentService(
	repo repositories.Repository,
	db *gorm.DB,
	logger *slog.Logger,
	validator *validator.Validator,
	eventPublisher events.EventPublisher,
) EnrollmentService {
	return &enrollmentService{
		repo:           repo,
		db:             db,
		logger:         logger,
		validator:      validator,
		access:         newAccessChecker(repo, db, logger),
		eventPublisher: eventPublisher,
	}
}

// Enroll redeems an enrollment code for the calling student. Codes are
// stored uppercase, so input is normalized before lookup. Redeeming the
// code of a course the student already belongs to succeeds and reports
// the existing membership.
func (s *enrollmentService) Enroll(ctx context.Context, actor Actor, code string) (*EnrollmentResponse, error) {
	// Memberships are a student-only concept; teachers reach courses
	// through ownership, never through a code.
	if actor.Role != models.RoleStudent {
		return nil, NewPermissionError(actor.ID, code, "enrollment", "enroll", "only students can redeem enrollment codes")
	}

	req := &validator.EnrollRequest{Code: strings.ToUpper(strings.TrimSpace(code))}
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	course, err := s.repo.Course().GetByCode(ctx, s.db, req.Code)
	if err != nil {
		if isNotFound(err) {
			// Retired and never-issued codes are indistinguishable.
			return nil, ErrCodeNotFound
		}
		return nil, fmt.Errorf("failed to look up code: %w", err)
	}

	enrollment := &models.Enrollment{
		CourseID:  course.ID,
		StudentID: actor.ID,
		Status:    models.EnrollmentStatusActive,
		JoinedAt:  time.Now(),
	}

	created, err := s.repo.Enrollment().Enroll(ctx, s.db, enrollment)
	if err != nil {
		return nil, fmt.Errorf("failed to enroll: %w", err)
	}

	if created {
		s.logger.Info("Student enrolled", "course_id", course.ID, "student_id", actor.ID)
		s.publishEvent(ctx, events.NewEvent(events.EventStudentEnrolled, map[string]interface{}{
			"course_id":  course.ID,
			"student_id": actor.ID,
		}))
	}

	return &EnrollmentResponse{
		Course:          course,
		Status:          string(enrollment.Status),
		JoinedAt:        enrollment.JoinedAt,
		AlreadyEnrolled: !created,
	}, nil
}

// RemoveStudent drops a student from the roster. Owner only; students
// do not remove themselves or each other. Removing a membership that
// does not exist is a no-op success, so re-issued deletes are safe.
func (s *enrollmentService) RemoveStudent(ctx context.Context, actor Actor, courseID, studentID string) error {
	if _, err := s.access.RequireAccess(ctx, courseID, actor, true); err != nil {
		return err
	}

	if err := s.repo.Enrollment().Remove(ctx, s.db, courseID, studentID); err != nil {
		if isNotFound(err) {
			return nil
		}
		return fmt.Errorf("failed to remove student: %w", err)
	}

	s.logger.Info("Student removed from course", "course_id", courseID, "student_id", studentID, "removed_by", actor.ID)
	s.publishEvent(ctx, events.NewEvent(events.EventStudentRemoved, map[string]interface{}{
		"course_id":  courseID,
		"student_id": studentID,
	}))

	return nil
}

// GetRoster lists the enrolled students. Owner only.
func (s *enrollmentService) GetRoster(ctx context.Context, actor Actor, courseID string, filters repositories.EnrollmentFilters) (*RosterResponse, error) {
	if _, err := s.access.RequireAccess(ctx, courseID, actor, true); err != nil {
		return nil, err
	}

	filters.Limit, filters.Offset = clampPage(filters.Limit, filters.Offset)

	entries, total, err := s.repo.Enrollment().GetRoster(ctx, s.db, courseID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to load roster: %w", err)
	}

	return &RosterResponse{
		CourseID: courseID,
		Students: entries,
		Total:    total,
		Page:     pageOf(filters.Limit, filters.Offset),
		Size:     filters.Limit,
	}, nil
}

// ExportRoster renders the full roster as an xlsx workbook.
func (s *enrollmentService) ExportRoster(ctx context.Context, actor Actor, courseID string) (*RosterExport, error) {
	course, err := s.access.RequireAccess(ctx, courseID, actor, true)
	if err != nil {
		return nil, err
	}

	entries, _, err := s.repo.Enrollment().GetRoster(ctx, s.db, courseID, repositories.EnrollmentFilters{
		SortBy:    "joined_at",
		SortOrder: "asc",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load roster: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Roster"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"First Name", "Last Name", "Email", "Status", "Joined At"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, header)
	}

	for row, entry := range entries {
		values := []interface{}{
			entry.Student.FirstName,
			entry.Student.LastName,
			entry.Student.Email,
			entry.Status,
			entry.JoinedAt.Format(time.RFC3339),
		}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(sheet, cell, value)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to render roster workbook: %w", err)
	}

	filename := fmt.Sprintf("%s-%s-%d-roster.xlsx", course.CourseNumber, course.Term, course.Year)

	return &RosterExport{
		Filename:    filename,
		ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		Content:     buf.Bytes(),
	}, nil
}

func (s *enrollmentService) publishEvent(ctx context.Context, event events.Event) {
	if s.eventPublisher == nil {
		return
	}
	if err := s.eventPublisher.Publish(ctx, event); err != nil {
		s.logger.Error("Failed to publish event", "type", event.Type, "error", err)
	}
}

package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/course-service/internal/events"
	"github.com/SAP-F-2025/course-service/internal/models"
	"github.com/SAP-F-2025/course-service/internal/repositories"
	"github.com/SAP-F-2025/course-service/internal/storage"
	"github.com/SAP-F-2025/course-service/internal/validator"
)

// codeGenerationAttempts bounds the collision-retry loop. With 36^6
// codes the second attempt is already vanishingly rare.
const codeGenerationAttempts = 5

type courseService struct {
	repo           repositories.Repository
	db             *gorm.DB
	logger         *slog.Logger
	validator      *validator.Validator
	access         *accessChecker
	blobStore      storage.BlobStore
	eventPublisher events.EventPublisher
}

func NewCourseService(
	repo repositories.Repository,
	db *gorm.DB,
	logger *slog.Logger,
	validator *validator.Validator,
	blobStore storage.BlobStore,
	eventPublisher events.EventPublisher,
) CourseService {
	return &courseService{
		repo:           repo,
		db:             db,
		logger:         logger,
		validator:      validator,
		access:         newAccessChecker(repo, db, logger),
		blobStore:      blobStore,
		eventPublisher: eventPublisher,
	}
}

// ===== CORE CRUD OPERATIONS =====

func (s *courseService) Create(ctx context.Context, actor Actor, req *CreateCourseRequest) (*CourseResponse, error) {
	s.logger.Info("Creating course", "teacher_id", actor.ID, "course_name", req.CourseName)

	if errs := s.validator.GetBusinessValidator().ValidateCourseCreate(req); len(errs) > 0 {
		return nil, errs
	}

	if !actor.IsTeacher() {
		return nil, NewPermissionError(actor.ID, "", "course", "create", "only teachers create courses")
	}

	course := &models.Course{
		ID:           uuid.New().String(),
		CourseName:   req.CourseName,
		Department:   req.Department,
		CourseNumber: req.CourseNumber,
		Term:         req.Term,
		Year:         req.Year,
		Institution:  req.Institution,
		TeacherID:    actor.ID,
	}

	if err := s.repo.Course().Create(ctx, s.db, course); err != nil {
		return nil, fmt.Errorf("failed to create course: %w", err)
	}

	s.publishEvent(ctx, events.NewEvent(events.EventCourseCreated, map[string]interface{}{
		"course_id":  course.ID,
		"teacher_id": course.TeacherID,
	}))

	return s.toResponse(ctx, course, actor)
}

func (s *courseService) GetByID(ctx context.Context, actor Actor, id string) (*CourseResponse, error) {
	course, err := s.access.RequireAccess(ctx, id, actor, false)
	if err != nil {
		return nil, err
	}
	return s.toResponse(ctx, course, actor)
}

// ListForActor lists what the actor can see: teachers their own
// courses, students the courses they are enrolled in.
func (s *courseService) ListForActor(ctx context.Context, actor Actor, filters repositories.CourseFilters) (*CourseListResponse, error) {
	filters.Limit, filters.Offset = clampPage(filters.Limit, filters.Offset)

	var (
		courses []*models.Course
		total   int64
		err     error
	)
	if actor.IsTeacher() {
		courses, total, err = s.repo.Course().GetByTeacher(ctx, s.db, actor.ID, filters)
	} else {
		courses, total, err = s.repo.Course().GetByStudent(ctx, s.db, actor.ID, filters)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list courses: %w", err)
	}

	responses := make([]*CourseResponse, 0, len(courses))
	for _, course := range courses {
		resp, err := s.toResponse(ctx, course, actor)
		if err != nil {
			return nil, err
		}
		responses = append(responses, resp)
	}

	return &CourseListResponse{
		Courses: responses,
		Total:   total,
		Page:    pageOf(filters.Limit, filters.Offset),
		Size:    filters.Limit,
	}, nil
}

func (s *courseService) Update(ctx context.Context, actor Actor, id string, req *UpdateCourseRequest) (*CourseResponse, error) {
	if errs := s.validator.GetBusinessValidator().ValidateCourseUpdate(req); len(errs) > 0 {
		return nil, errs
	}

	course, err := s.access.RequireAccess(ctx, id, actor, true)
	if err != nil {
		return nil, err
	}

	if req.CourseName != nil {
		course.CourseName = *req.CourseName
	}
	if req.Department != nil {
		course.Department = *req.Department
	}
	if req.CourseNumber != nil {
		course.CourseNumber = *req.CourseNumber
	}
	if req.Term != nil {
		course.Term = *req.Term
	}
	if req.Year != nil {
		course.Year = *req.Year
	}
	if req.Institution != nil {
		course.Institution = *req.Institution
	}

	if err := s.repo.Course().Update(ctx, s.db, course); err != nil {
		return nil, fmt.Errorf("failed to update course: %w", err)
	}

	s.logger.Info("Course updated", "course_id", course.ID, "teacher_id", actor.ID)
	s.publishEvent(ctx, events.NewEvent(events.EventCourseUpdated, map[string]interface{}{
		"course_id": course.ID,
	}))

	return s.toResponse(ctx, course, actor)
}

// Delete removes the course and everything hanging off it: enrollments,
// material rows, and the course itself go in one transaction. Blob
// bytes are removed after commit; a blob that refuses to die is
// reported as orphaned, never as a failed delete.
func (s *courseService) Delete(ctx context.Context, actor Actor, id string) error {
	course, err := s.access.RequireAccess(ctx, id, actor, true)
	if err != nil {
		return err
	}

	var orphanCandidates []*models.Material
	err = s.repo.WithTransaction(ctx, func(r repositories.Repository) error {
		materials, _, err := r.Material().ListByCourse(ctx, nil, id, repositories.MaterialFilters{})
		if err != nil {
			return fmt.Errorf("failed to list materials: %w", err)
		}
		orphanCandidates = materials

		if err := r.Material().DeleteByCourse(ctx, nil, id); err != nil {
			return err
		}
		if err := r.Enrollment().RemoveByCourse(ctx, nil, id); err != nil {
			return err
		}
		return r.Course().Delete(ctx, nil, id)
	})
	if err != nil {
		return fmt.Errorf("failed to delete course: %w", err)
	}

	s.cleanupBlobs(ctx, orphanCandidates)

	s.logger.Info("Course deleted", "course_id", id, "teacher_id", actor.ID, "materials", len(orphanCandidates))
	s.publishEvent(ctx, events.NewEvent(events.EventCourseDeleted, map[string]interface{}{
		"course_id":  id,
		"teacher_id": course.TeacherID,
	}))

	return nil
}

// ===== ENROLLMENT CODE OPERATIONS =====

// RegenerateCode issues a fresh code for the course. The old code stops
// working the instant the new one is stored. Collisions with codes held
// by other courses are detected by the unique index and retried.
func (s *courseService) RegenerateCode(ctx context.Context, actor Actor, id string) (*CodeResponse, error) {
	course, err := s.access.RequireAccess(ctx, id, actor, true)
	if err != nil {
		return nil, err
	}

	var code string
	for attempt := 0; attempt < codeGenerationAttempts; attempt++ {
		code, err = generateEnrollmentCode()
		if err != nil {
			return nil, fmt.Errorf("failed to generate code: %w", err)
		}

		err = s.repo.Course().SetEnrollmentCode(ctx, s.db, id, code)
		if err == nil {
			break
		}
		if !isDuplicateKey(err) {
			return nil, fmt.Errorf("failed to store code: %w", err)
		}
		s.logger.Warn("Enrollment code collision, retrying", "course_id", id, "attempt", attempt+1)
	}
	if err != nil {
		return nil, NewTransientError("code generation", err)
	}

	s.logger.Info("Enrollment code regenerated", "course_id", id, "teacher_id", actor.ID)
	s.publishEvent(ctx, events.NewEvent(events.EventCodeRegenerated, map[string]interface{}{
		"course_id": course.ID,
	}))

	now := time.Now()
	return &CodeResponse{CourseID: id, Code: code, GeneratedAt: &now}, nil
}

// GetCode returns the active code. Owner only: students learn codes
// out of band, not from the API.
func (s *courseService) GetCode(ctx context.Context, actor Actor, id string) (*CodeResponse, error) {
	course, err := s.access.RequireAccess(ctx, id, actor, true)
	if err != nil {
		return nil, err
	}

	if course.EnrollmentCode == nil {
		return nil, ErrCodeNotFound
	}

	return &CodeResponse{
		CourseID:    id,
		Code:        *course.EnrollmentCode,
		GeneratedAt: course.CodeGeneratedAt,
	}, nil
}

// ===== HELPERS =====

func (s *courseService) toResponse(ctx context.Context, course *models.Course, actor Actor) (*CourseResponse, error) {
	resp := &CourseResponse{
		Course:  course,
		CanEdit: course.TeacherID == actor.ID,
	}

	// The code is owner-only; scrub it from everyone else's view.
	if !resp.CanEdit {
		scrubbed := *course
		scrubbed.EnrollmentCode = nil
		scrubbed.CodeGeneratedAt = nil
		resp.Course = &scrubbed

		enrolled, err := s.repo.Enrollment().IsEnrolled(ctx, s.db, course.ID, actor.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to check enrollment: %w", err)
		}
		resp.IsEnrolled = enrolled
	}

	count, err := s.repo.Enrollment().CountByCourse(ctx, s.db, course.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count students: %w", err)
	}
	resp.StudentCount = count

	return resp, nil
}

// cleanupBlobs removes material bytes after their rows are gone.
// Failures leave orphaned blobs, which are announced for a sweeper to
// collect.
func (s *courseService) cleanupBlobs(ctx context.Context, materials []*models.Material) {
	if s.blobStore == nil {
		return
	}
	for _, material := range materials {
		if err := s.blobStore.Remove(ctx, material.BlobBucket, material.BlobKey); err != nil {
			s.logger.Error("Failed to remove material blob", "blob_key", material.BlobKey, "error", err)
			s.publishEvent(ctx, events.NewEvent(events.EventMaterialBlobOrphaned, map[string]interface{}{
				"bucket": material.BlobBucket,
				"key":    material.BlobKey,
			}))
		}
	}
}

func (s *courseService) publishEvent(ctx context.Context, event events.Event) {
	if s.eventPublisher == nil {
		return
	}
	if err := s.eventPublisher.Publish(ctx, event); err != nil {
		s.logger.Error("Failed to publish event", "type", event.Type, "error", err)
	}
}

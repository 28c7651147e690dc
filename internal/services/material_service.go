package services

import (
	"context"
	"fmt"
	"log/slog"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/course-service/internal/events"
	"github.com/SAP-F-2025/course-service/internal/models"
	"github.com/SAP-F-2025/course-service/internal/repositories"
	"github.com/SAP-F-2025/course-service/internal/storage"
	"github.com/SAP-F-2025/course-service/internal/validator"
)

// downloadURLExpiry bounds how long a presigned material link stays
// usable once handed to a client.
const downloadURLExpiry = 15 * time.Minute

// MaterialServiceConfig carries the storage settings materials need.
type MaterialServiceConfig struct {
	Bucket string

	// AllowedContentTypes is the upload allow-list. Defaults to PDF
	// only when empty.
	AllowedContentTypes []string
}

type materialService struct {
	repo           repositories.Repository
	db             *gorm.DB
	logger         *slog.Logger
	validator      *validator.Validator
	access         *accessChecker
	blobStore      storage.BlobStore
	eventPublisher events.EventPublisher
	config         MaterialServiceConfig
}

func NewMaterialService(
	repo repositories.Repository,
	db *gorm.DB,
	logger *slog.Logger,
	validator *validator.Validator,
	blobStore storage.BlobStore,
	eventPublisher events.EventPublisher,
	config MaterialServiceConfig,
) MaterialService {
	if len(config.AllowedContentTypes) == 0 {
		config.AllowedContentTypes = []string{"application/pdf"}
	}
	return &materialService{
		repo:           repo,
		db:             db,
		logger:         logger,
		validator:      validator,
		access:         newAccessChecker(repo, db, logger),
		blobStore:      blobStore,
		eventPublisher: eventPublisher,
		config:         config,
	}
}

// Upload stores the file bytes first, then the metadata row. A failed
// row insert rolls the blob back so neither side leaks.
func (s *materialService) Upload(ctx context.Context, actor Actor, courseID string, req *MaterialUploadRequest, file *MaterialUpload) (*MaterialResponse, error) {
	if _, err := s.access.RequireAccess(ctx, courseID, actor, true); err != nil {
		return nil, err
	}

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	contentType := normalizeContentType(file.ContentType)
	if !s.contentTypeAllowed(contentType) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedMediaType, contentType)
	}
	if file.Size <= 0 {
		return nil, validator.ValidationErrors{{
			Field:   "file",
			Message: "file is empty",
			Rule:    "required",
		}}
	}

	blobKey := buildBlobKey(courseID, file.Filename)
	if err := s.blobStore.Put(ctx, storage.PutInput{
		Bucket:      s.config.Bucket,
		Key:         blobKey,
		Body:        file.Body,
		Size:        file.Size,
		ContentType: contentType,
	}); err != nil {
		return nil, NewTransientError("blob upload", err)
	}

	material := &models.Material{
		Key:         materialKeyFromBlobKey(blobKey),
		CourseID:    courseID,
		Title:       req.Title,
		Description: req.Description,
		BlobBucket:  s.config.Bucket,
		BlobKey:     blobKey,
		ContentType: contentType,
		SizeBytes:   file.Size,
		UploadedAt:  time.Now(),
	}

	if err := s.repo.Material().Create(ctx, s.db, material); err != nil {
		if removeErr := s.blobStore.Remove(ctx, s.config.Bucket, blobKey); removeErr != nil {
			s.logger.Error("Failed to roll back blob after insert failure", "blob_key", blobKey, "error", removeErr)
		}
		return nil, fmt.Errorf("failed to create material: %w", err)
	}

	s.logger.Info("Material uploaded", "course_id", courseID, "material_id", material.ID, "size", file.Size)
	s.publishEvent(ctx, events.NewEvent(events.EventMaterialUploaded, map[string]interface{}{
		"course_id":   courseID,
		"material_id": material.ID,
	}))

	return s.toResponse(ctx, material, actor, false)
}

// List returns course materials to the owner and enrolled students, in
// stable newest-first order.
func (s *materialService) List(ctx context.Context, actor Actor, courseID string, filters repositories.MaterialFilters) (*MaterialListResponse, error) {
	course, err := s.access.RequireAccess(ctx, courseID, actor, false)
	if err != nil {
		return nil, err
	}

	filters.Limit, filters.Offset = clampPage(filters.Limit, filters.Offset)

	materials, total, err := s.repo.Material().ListByCourse(ctx, s.db, courseID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list materials: %w", err)
	}

	readOnly := course.TeacherID != actor.ID
	responses := make([]*MaterialResponse, 0, len(materials))
	for _, material := range materials {
		resp, err := s.toResponse(ctx, material, actor, readOnly)
		if err != nil {
			return nil, err
		}
		responses = append(responses, resp)
	}

	return &MaterialListResponse{
		Materials: responses,
		Total:     total,
		Page:      pageOf(filters.Limit, filters.Offset),
		Size:      filters.Limit,
	}, nil
}

// Get returns one material with a fresh presigned download URL.
// Materials are addressed by their per-course key, not the row id.
func (s *materialService) Get(ctx context.Context, actor Actor, courseID, key string) (*MaterialResponse, error) {
	course, err := s.access.RequireAccess(ctx, courseID, actor, false)
	if err != nil {
		return nil, err
	}

	material, err := s.loadMaterial(ctx, courseID, key)
	if err != nil {
		return nil, err
	}

	return s.toResponse(ctx, material, actor, course.TeacherID != actor.ID)
}

// UpdateMetadata edits title and description. Owner only.
func (s *materialService) UpdateMetadata(ctx context.Context, actor Actor, courseID, key string, req *MaterialUpdateRequest) (*MaterialResponse, error) {
	if _, err := s.access.RequireAccess(ctx, courseID, actor, true); err != nil {
		return nil, err
	}

	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	if req.Title == nil && req.Description == nil {
		return nil, validator.ValidationErrors{{
			Field:   "request",
			Message: "at least one field must be provided",
			Rule:    "required",
		}}
	}

	material, err := s.loadMaterial(ctx, courseID, key)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		material.Title = *req.Title
	}
	if req.Description != nil {
		material.Description = req.Description
	}

	if err := s.repo.Material().Update(ctx, s.db, material); err != nil {
		return nil, fmt.Errorf("failed to update material: %w", err)
	}

	return s.toResponse(ctx, material, actor, false)
}

// Delete removes a material by its per-course key. Owner only, and
// idempotent: deleting a key that is already gone succeeds. The
// metadata row is the source of truth; a blob the store cannot remove
// is reported as orphaned but never fails the delete.
func (s *materialService) Delete(ctx context.Context, actor Actor, courseID, key string) error {
	if _, err := s.access.RequireAccess(ctx, courseID, actor, true); err != nil {
		return err
	}

	material, err := s.repo.Material().GetByKey(ctx, s.db, courseID, key)
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return fmt.Errorf("failed to load material: %w", err)
	}

	if err := s.repo.Material().Delete(ctx, s.db, material.ID); err != nil {
		if isNotFound(err) {
			return nil
		}
		return fmt.Errorf("failed to delete material: %w", err)
	}

	if err := s.blobStore.Remove(ctx, material.BlobBucket, material.BlobKey); err != nil {
		s.logger.Error("Failed to remove material blob", "blob_key", material.BlobKey, "error", err)
		s.publishEvent(ctx, events.NewEvent(events.EventMaterialBlobOrphaned, map[string]interface{}{
			"bucket": material.BlobBucket,
			"key":    material.BlobKey,
		}))
	}

	s.logger.Info("Material deleted", "course_id", courseID, "material_key", key)
	s.publishEvent(ctx, events.NewEvent(events.EventMaterialDeleted, map[string]interface{}{
		"course_id":    courseID,
		"material_key": key,
	}))

	return nil
}

// ===== HELPERS =====

func (s *materialService) loadMaterial(ctx context.Context, courseID, key string) (*models.Material, error) {
	material, err := s.repo.Material().GetByKey(ctx, s.db, courseID, key)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrMaterialNotFound
		}
		return nil, fmt.Errorf("failed to load material: %w", err)
	}
	return material, nil
}

func (s *materialService) toResponse(ctx context.Context, material *models.Material, actor Actor, readOnly bool) (*MaterialResponse, error) {
	resp := &MaterialResponse{
		Material: material,
		CanEdit:  !readOnly,
	}

	url, err := s.blobStore.PresignedGetURL(ctx, material.BlobBucket, material.BlobKey, downloadURLExpiry)
	if err != nil {
		// A missing blob should not hide the metadata; the row still
		// lists, just without a link.
		s.logger.Warn("Failed to presign material URL", "material_id", material.ID, "error", err)
	} else {
		resp.DownloadURL = url
	}

	return resp, nil
}

func (s *materialService) contentTypeAllowed(contentType string) bool {
	for _, allowed := range s.config.AllowedContentTypes {
		if strings.EqualFold(allowed, contentType) {
			return true
		}
	}
	return false
}

func normalizeContentType(contentType string) string {
	parsed, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return parsed
}

// buildBlobKey shapes object keys as courses/{course_id}/{timestamp}_{uuid}{ext}
// so one course's blobs share a prefix and uploads never collide.
func buildBlobKey(courseID, filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	return fmt.Sprintf("courses/%s/%d_%s%s", courseID, time.Now().Unix(), uuid.New().String(), ext)
}

// materialKeyFromBlobKey derives the stable per-course key from the
// blob key's final segment.
func materialKeyFromBlobKey(blobKey string) string {
	return filepath.Base(blobKey)
}

func (s *materialService) publishEvent(ctx context.Context, event events.Event) {
	if s.eventPublisher == nil {
		return
	}
	if err := s.eventPublisher.Publish(ctx, event); err != nil {
		s.logger.Error("Failed to publish event", "type", event.Type, "error", err)
	}
}

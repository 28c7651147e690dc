package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/SAP-F-2025/course-service/internal/events"
	"github.com/SAP-F-2025/course-service/internal/models"
	"github.com/SAP-F-2025/course-service/internal/repositories"
	"github.com/SAP-F-2025/course-service/internal/storage"
	"github.com/SAP-F-2025/course-service/internal/validator"
)

const testBucket = "course-materials"

func newMaterialFixture(t *testing.T) (*fakeRepository, *storage.MemoryBlobStore, *events.MockEventPublisher, MaterialService) {
	t.Helper()
	repo := newFakeRepository()
	blobStore := storage.NewMemoryBlobStore()
	publisher := events.NewMockEventPublisher(testLogger())
	svc := NewMaterialService(repo, nil, testLogger(), testValidator(), blobStore, publisher, MaterialServiceConfig{
		Bucket: testBucket,
	})
	return repo, blobStore, publisher, svc
}

func pdfUpload(name, content string) *MaterialUpload {
	return &MaterialUpload{
		Filename:    name,
		ContentType: "application/pdf",
		Size:        int64(len(content)),
		Body:        strings.NewReader(content),
	}
}

func TestUploadMaterial(t *testing.T) {
	ctx := context.Background()

	repo, blobStore, publisher, svc := newMaterialFixture(t)
	seedTeacher(repo, "t1")
	seedCourse(repo, "c1", "t1", nil)

	resp, err := svc.Upload(ctx, Actor{ID: "t1", Role: models.RoleTeacher}, "c1",
		&MaterialUploadRequest{Title: "Syllabus"}, pdfUpload("syllabus.pdf", "%PDF-1.7"))
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if resp.ID == 0 {
		t.Error("uploaded material has no id")
	}
	if resp.ContentType != "application/pdf" {
		t.Errorf("ContentType = %s", resp.ContentType)
	}
	if !strings.HasPrefix(resp.BlobKey, "courses/c1/") {
		t.Errorf("BlobKey = %s, want courses/c1/ prefix", resp.BlobKey)
	}
	if !blobStore.Has(testBucket, resp.BlobKey) {
		t.Error("blob bytes not stored")
	}
	if resp.DownloadURL == "" {
		t.Error("response missing download URL")
	}

	found := false
	for _, event := range publisher.GetPublishedEvents() {
		if event.Type == events.EventMaterialUploaded {
			found = true
		}
	}
	if !found {
		t.Error("material.uploaded event not published")
	}
}

func TestUploadMaterialOwnerOnly(t *testing.T) {
	ctx := context.Background()

	repo, blobStore, _, svc := newMaterialFixture(t)
	seedTeacher(repo, "t1")
	seedStudent(repo, "s1")
	seedCourse(repo, "c1", "t1", nil)
	repo.addEnrollment("c1", "s1")

	_, err := svc.Upload(ctx, Actor{ID: "s1", Role: models.RoleStudent}, "c1",
		&MaterialUploadRequest{Title: "Notes"}, pdfUpload("notes.pdf", "%PDF"))
	var permissionErr *PermissionError
	if !errors.As(err, &permissionErr) {
		t.Fatalf("Upload() by member error = %v, want PermissionError", err)
	}
	if blobStore.Len() != 0 {
		t.Error("blob stored despite permission error")
	}
}

func TestUploadMaterialRejectsContentTypes(t *testing.T) {
	ctx := context.Background()

	repo, _, _, svc := newMaterialFixture(t)
	seedTeacher(repo, "t1")
	seedCourse(repo, "c1", "t1", nil)

	owner := Actor{ID: "t1", Role: models.RoleTeacher}

	tests := []struct {
		name        string
		contentType string
		wantOK      bool
	}{
		{name: "pdf", contentType: "application/pdf", wantOK: true},
		{name: "pdf with charset parameter", contentType: "application/pdf; charset=binary", wantOK: true},
		{name: "docx", contentType: "application/vnd.openxmlformats-officedocument.wordprocessingml.document"},
		{name: "png", contentType: "image/png"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			upload := &MaterialUpload{
				Filename:    "file.bin",
				ContentType: tt.contentType,
				Size:        4,
				Body:        strings.NewReader("data"),
			}
			_, err := svc.Upload(ctx, owner, "c1", &MaterialUploadRequest{Title: "File"}, upload)
			if tt.wantOK {
				if err != nil {
					t.Fatalf("Upload(%s) error = %v", tt.contentType, err)
				}
				return
			}
			if !errors.Is(err, ErrUnsupportedMediaType) {
				t.Fatalf("Upload(%s) error = %v, want ErrUnsupportedMediaType", tt.contentType, err)
			}
		})
	}
}

func TestUploadMaterialEmptyFile(t *testing.T) {
	ctx := context.Background()

	repo, _, _, svc := newMaterialFixture(t)
	seedTeacher(repo, "t1")
	seedCourse(repo, "c1", "t1", nil)

	_, err := svc.Upload(ctx, Actor{ID: "t1", Role: models.RoleTeacher}, "c1",
		&MaterialUploadRequest{Title: "Empty"}, pdfUpload("empty.pdf", ""))
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		t.Fatalf("Upload() of empty file error = %v, want ValidationErrors", err)
	}
}

func TestUploadMaterialBlobFailure(t *testing.T) {
	ctx := context.Background()

	repo, blobStore, _, svc := newMaterialFixture(t)
	seedTeacher(repo, "t1")
	seedCourse(repo, "c1", "t1", nil)
	blobStore.PutErr = errors.New("store down")

	_, err := svc.Upload(ctx, Actor{ID: "t1", Role: models.RoleTeacher}, "c1",
		&MaterialUploadRequest{Title: "Syllabus"}, pdfUpload("syllabus.pdf", "%PDF"))
	var transientErr *TransientError
	if !errors.As(err, &transientErr) {
		t.Fatalf("Upload() with failing store error = %v, want TransientError", err)
	}

	if _, total, _ := repo.Material().ListByCourse(ctx, nil, "c1", repositories.MaterialFilters{}); total != 0 {
		t.Error("metadata row created despite blob failure")
	}
}

func TestListMaterialsOrderAndAccess(t *testing.T) {
	ctx := context.Background()

	repo, _, _, svc := newMaterialFixture(t)
	seedTeacher(repo, "t1")
	seedStudent(repo, "s1")
	seedStudent(repo, "outsider")
	seedCourse(repo, "c1", "t1", nil)
	repo.addEnrollment("c1", "s1")

	base := time.Now()
	for i, title := range []string{"Week 1", "Week 2", "Week 3"} {
		repo.Material().Create(ctx, nil, &models.Material{
			Key: title, CourseID: "c1", Title: title,
			BlobBucket: testBucket, BlobKey: "courses/c1/" + title,
			ContentType: "application/pdf", SizeBytes: 1,
			UploadedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}

	list, err := svc.List(ctx, Actor{ID: "s1", Role: models.RoleStudent}, "c1", repositories.MaterialFilters{})
	if err != nil {
		t.Fatalf("List() as member error = %v", err)
	}
	if list.Total != 3 {
		t.Fatalf("Total = %d, want 3", list.Total)
	}
	// newest first
	if list.Materials[0].Title != "Week 3" || list.Materials[2].Title != "Week 1" {
		t.Errorf("order = %s..%s, want Week 3..Week 1", list.Materials[0].Title, list.Materials[2].Title)
	}
	for _, m := range list.Materials {
		if m.CanEdit {
			t.Error("member sees CanEdit = true")
		}
	}

	_, err = svc.List(ctx, Actor{ID: "outsider", Role: models.RoleStudent}, "c1", repositories.MaterialFilters{})
	var permissionErr *PermissionError
	if !errors.As(err, &permissionErr) {
		t.Errorf("List() by outsider error = %v, want PermissionError", err)
	}
}

func TestGetMaterialByKey(t *testing.T) {
	ctx := context.Background()

	repo, _, _, svc := newMaterialFixture(t)
	seedTeacher(repo, "t1")
	seedStudent(repo, "s1")
	seedCourse(repo, "c1", "t1", nil)
	repo.addEnrollment("c1", "s1")

	owner := Actor{ID: "t1", Role: models.RoleTeacher}
	uploaded, err := svc.Upload(ctx, owner, "c1", &MaterialUploadRequest{Title: "Syllabus"}, pdfUpload("s.pdf", "%PDF"))
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	resp, err := svc.Get(ctx, Actor{ID: "s1", Role: models.RoleStudent}, "c1", uploaded.Key)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if resp.Title != "Syllabus" {
		t.Errorf("Title = %s", resp.Title)
	}
	if resp.DownloadURL == "" {
		t.Error("response missing download URL")
	}
	if resp.CanEdit {
		t.Error("member sees CanEdit = true")
	}

	if _, err := svc.Get(ctx, owner, "c1", "missing.pdf"); !errors.Is(err, ErrMaterialNotFound) {
		t.Errorf("Get() of unknown key error = %v, want ErrMaterialNotFound", err)
	}
}

func TestUpdateMaterialMetadata(t *testing.T) {
	ctx := context.Background()

	repo, _, _, svc := newMaterialFixture(t)
	seedTeacher(repo, "t1")
	seedCourse(repo, "c1", "t1", nil)
	material := &models.Material{
		Key: "a.pdf", CourseID: "c1", Title: "Draft",
		BlobBucket: testBucket, BlobKey: "courses/c1/a.pdf",
		ContentType: "application/pdf", SizeBytes: 1, UploadedAt: time.Now(),
	}
	repo.Material().Create(ctx, nil, material)

	owner := Actor{ID: "t1", Role: models.RoleTeacher}

	resp, err := svc.UpdateMetadata(ctx, owner, "c1", material.Key, &MaterialUpdateRequest{
		Title: stringPtr("Final"),
	})
	if err != nil {
		t.Fatalf("UpdateMetadata() error = %v", err)
	}
	if resp.Title != "Final" {
		t.Errorf("Title = %s after update", resp.Title)
	}

	_, err = svc.UpdateMetadata(ctx, owner, "c1", material.Key, &MaterialUpdateRequest{})
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		t.Errorf("UpdateMetadata() with no fields error = %v, want ValidationErrors", err)
	}

	_, err = svc.UpdateMetadata(ctx, owner, "c1", "missing.pdf", &MaterialUpdateRequest{Title: stringPtr("X")})
	if !errors.Is(err, ErrMaterialNotFound) {
		t.Errorf("UpdateMetadata() on missing material error = %v, want ErrMaterialNotFound", err)
	}
}

func TestDeleteMaterial(t *testing.T) {
	ctx := context.Background()

	repo, blobStore, _, svc := newMaterialFixture(t)
	seedTeacher(repo, "t1")
	seedCourse(repo, "c1", "t1", nil)

	owner := Actor{ID: "t1", Role: models.RoleTeacher}
	resp, err := svc.Upload(ctx, owner, "c1", &MaterialUploadRequest{Title: "Syllabus"}, pdfUpload("s.pdf", "%PDF"))
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	if err := svc.Delete(ctx, owner, "c1", resp.Key); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if blobStore.Has(testBucket, resp.BlobKey) {
		t.Error("blob bytes survived delete")
	}

	// Deleting again is a no-op, not an error.
	if err := svc.Delete(ctx, owner, "c1", resp.Key); err != nil {
		t.Errorf("second Delete() error = %v, want nil", err)
	}
}

func TestDeleteMaterialScopedToCourse(t *testing.T) {
	ctx := context.Background()

	repo, _, _, svc := newMaterialFixture(t)
	seedTeacher(repo, "t1")
	seedCourse(repo, "c1", "t1", nil)
	seedCourse(repo, "c2", "t1", nil)
	material := &models.Material{
		Key: "a.pdf", CourseID: "c2", Title: "Other course",
		BlobBucket: testBucket, BlobKey: "courses/c2/a.pdf",
		ContentType: "application/pdf", SizeBytes: 1, UploadedAt: time.Now(),
	}
	repo.Material().Create(ctx, nil, material)

	// A key under a different course is absent from this one; the
	// delete succeeds without touching the row.
	if err := svc.Delete(ctx, Actor{ID: "t1", Role: models.RoleTeacher}, "c1", material.Key); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := repo.Material().GetByID(ctx, nil, material.ID); err != nil {
		t.Error("material under c2 was deleted through c1")
	}
}

func TestDeleteMaterialBlobFailureDoesNotBlock(t *testing.T) {
	ctx := context.Background()

	repo, blobStore, publisher, svc := newMaterialFixture(t)
	seedTeacher(repo, "t1")
	seedCourse(repo, "c1", "t1", nil)

	owner := Actor{ID: "t1", Role: models.RoleTeacher}
	resp, err := svc.Upload(ctx, owner, "c1", &MaterialUploadRequest{Title: "Syllabus"}, pdfUpload("s.pdf", "%PDF"))
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	blobStore.RemoveErr = errors.New("store down")
	publisher.ClearEvents()

	if err := svc.Delete(ctx, owner, "c1", resp.Key); err != nil {
		t.Fatalf("Delete() with failing blob store error = %v, want success", err)
	}

	if _, err := repo.Material().GetByID(ctx, nil, resp.ID); err == nil {
		t.Error("metadata row survived delete")
	}

	orphaned, deleted := false, false
	for _, event := range publisher.GetPublishedEvents() {
		switch event.Type {
		case events.EventMaterialBlobOrphaned:
			orphaned = true
		case events.EventMaterialDeleted:
			deleted = true
		}
	}
	if !orphaned {
		t.Error("blob_orphaned event not published")
	}
	if !deleted {
		t.Error("material.deleted event not published")
	}
}

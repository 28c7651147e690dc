package services

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/SAP-F-2025/course-service/internal/models"
	"github.com/SAP-F-2025/course-service/internal/repositories"
	"github.com/SAP-F-2025/course-service/internal/validator"
)

// fakeRepository is an in-memory repositories.Repository. It honors the
// contracts the services rely on: record-not-found and duplicated-key
// sentinels, idempotent enrollment inserts, and exactly-one active
// enrollment code per course. The tx parameter is ignored throughout.
type fakeRepository struct {
	mu sync.Mutex

	users       map[string]*models.User
	courses     map[string]*models.Course
	enrollments map[uint]*models.Enrollment
	materials   map[uint]*models.Material

	nextEnrollmentID uint
	nextMaterialID   uint

	// codeCollisions makes SetEnrollmentCode fail with a duplicated-key
	// error that many times before succeeding.
	codeCollisions int
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		users:       make(map[string]*models.User),
		courses:     make(map[string]*models.Course),
		enrollments: make(map[uint]*models.Enrollment),
		materials:   make(map[uint]*models.Material),
	}
}

func (r *fakeRepository) Course() repositories.CourseRepository         { return &fakeCourses{r} }
func (r *fakeRepository) Enrollment() repositories.EnrollmentRepository { return &fakeEnrollments{r} }
func (r *fakeRepository) Material() repositories.MaterialRepository     { return &fakeMaterials{r} }
func (r *fakeRepository) User() repositories.UserRepository             { return &fakeUsers{r} }

func (r *fakeRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return fn(r)
}

func (r *fakeRepository) Ping(ctx context.Context) error { return nil }
func (r *fakeRepository) Close() error                   { return nil }

// seed helpers

func (r *fakeRepository) addUser(user *models.User) *models.User {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *user
	r.users[user.ID] = &copied
	return user
}

func (r *fakeRepository) addCourse(course *models.Course) *models.Course {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := *course
	r.courses[course.ID] = &copied
	return course
}

func (r *fakeRepository) addEnrollment(courseID, studentID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextEnrollmentID++
	r.enrollments[r.nextEnrollmentID] = &models.Enrollment{
		ID:        r.nextEnrollmentID,
		CourseID:  courseID,
		StudentID: studentID,
		Status:    models.EnrollmentStatusActive,
		JoinedAt:  time.Now(),
	}
}

// ===== courses =====

type fakeCourses struct{ r *fakeRepository }

func (f *fakeCourses) Create(ctx context.Context, tx *gorm.DB, course *models.Course) error {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	if course.CreatedAt.IsZero() {
		course.CreatedAt = time.Now()
	}
	copied := *course
	f.r.courses[course.ID] = &copied
	return nil
}

func (f *fakeCourses) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.Course, error) {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	course, ok := f.r.courses[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *course
	return &copied, nil
}

func (f *fakeCourses) GetByIDWithTeacher(ctx context.Context, tx *gorm.DB, id string) (*models.Course, error) {
	course, err := f.GetByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	if teacher, ok := f.r.users[course.TeacherID]; ok {
		course.Teacher = *teacher
	}
	return course, nil
}

func (f *fakeCourses) Update(ctx context.Context, tx *gorm.DB, course *models.Course) error {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	if _, ok := f.r.courses[course.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	course.UpdatedAt = time.Now()
	copied := *course
	f.r.courses[course.ID] = &copied
	return nil
}

func (f *fakeCourses) Delete(ctx context.Context, tx *gorm.DB, id string) error {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	if _, ok := f.r.courses[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(f.r.courses, id)
	return nil
}

func (f *fakeCourses) List(ctx context.Context, tx *gorm.DB, filters repositories.CourseFilters) ([]*models.Course, int64, error) {
	return f.collect(func(c *models.Course) bool { return true })
}

func (f *fakeCourses) GetByTeacher(ctx context.Context, tx *gorm.DB, teacherID string, filters repositories.CourseFilters) ([]*models.Course, int64, error) {
	return f.collect(func(c *models.Course) bool { return c.TeacherID == teacherID })
}

func (f *fakeCourses) GetByStudent(ctx context.Context, tx *gorm.DB, studentID string, filters repositories.CourseFilters) ([]*models.Course, int64, error) {
	f.r.mu.Lock()
	member := make(map[string]bool)
	for _, e := range f.r.enrollments {
		if e.StudentID == studentID && e.Status == models.EnrollmentStatusActive {
			member[e.CourseID] = true
		}
	}
	f.r.mu.Unlock()
	return f.collect(func(c *models.Course) bool { return member[c.ID] })
}

func (f *fakeCourses) collect(match func(*models.Course) bool) ([]*models.Course, int64, error) {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	var out []*models.Course
	for _, c := range f.r.courses {
		if match(c) {
			copied := *c
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

func (f *fakeCourses) GetByCode(ctx context.Context, tx *gorm.DB, code string) (*models.Course, error) {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	for _, c := range f.r.courses {
		if c.EnrollmentCode != nil && *c.EnrollmentCode == code {
			copied := *c
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeCourses) SetEnrollmentCode(ctx context.Context, tx *gorm.DB, id string, code string) error {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	if f.r.codeCollisions > 0 {
		f.r.codeCollisions--
		return gorm.ErrDuplicatedKey
	}
	course, ok := f.r.courses[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for _, other := range f.r.courses {
		if other.ID != id && other.EnrollmentCode != nil && *other.EnrollmentCode == code {
			return gorm.ErrDuplicatedKey
		}
	}
	now := time.Now()
	course.EnrollmentCode = &code
	course.CodeGeneratedAt = &now
	return nil
}

func (f *fakeCourses) CodeExists(ctx context.Context, tx *gorm.DB, code string) (bool, error) {
	_, err := f.GetByCode(ctx, tx, code)
	if err != nil {
		return false, nil
	}
	return true, nil
}

func (f *fakeCourses) ExistsByID(ctx context.Context, tx *gorm.DB, id string) (bool, error) {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	_, ok := f.r.courses[id]
	return ok, nil
}

func (f *fakeCourses) IsOwnedBy(ctx context.Context, tx *gorm.DB, id string, teacherID string) (bool, error) {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	course, ok := f.r.courses[id]
	return ok && course.TeacherID == teacherID, nil
}

// ===== enrollments =====

type fakeEnrollments struct{ r *fakeRepository }

func (f *fakeEnrollments) Enroll(ctx context.Context, tx *gorm.DB, enrollment *models.Enrollment) (bool, error) {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	for _, e := range f.r.enrollments {
		if e.CourseID == enrollment.CourseID && e.StudentID == enrollment.StudentID {
			*enrollment = *e
			return false, nil
		}
	}
	f.r.nextEnrollmentID++
	enrollment.ID = f.r.nextEnrollmentID
	if enrollment.JoinedAt.IsZero() {
		enrollment.JoinedAt = time.Now()
	}
	copied := *enrollment
	f.r.enrollments[enrollment.ID] = &copied
	return true, nil
}

func (f *fakeEnrollments) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Enrollment, error) {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	e, ok := f.r.enrollments[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *e
	return &copied, nil
}

func (f *fakeEnrollments) GetByCourseAndStudent(ctx context.Context, tx *gorm.DB, courseID, studentID string) (*models.Enrollment, error) {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	for _, e := range f.r.enrollments {
		if e.CourseID == courseID && e.StudentID == studentID {
			copied := *e
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeEnrollments) Remove(ctx context.Context, tx *gorm.DB, courseID, studentID string) error {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	for id, e := range f.r.enrollments {
		if e.CourseID == courseID && e.StudentID == studentID {
			delete(f.r.enrollments, id)
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (f *fakeEnrollments) RemoveByCourse(ctx context.Context, tx *gorm.DB, courseID string) error {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	for id, e := range f.r.enrollments {
		if e.CourseID == courseID {
			delete(f.r.enrollments, id)
		}
	}
	return nil
}

func (f *fakeEnrollments) GetRoster(ctx context.Context, tx *gorm.DB, courseID string, filters repositories.EnrollmentFilters) ([]*repositories.RosterEntry, int64, error) {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	var entries []*repositories.RosterEntry
	for _, e := range f.r.enrollments {
		if e.CourseID != courseID {
			continue
		}
		student, ok := f.r.users[e.StudentID]
		if !ok {
			continue
		}
		entries = append(entries, &repositories.RosterEntry{
			Student:  student.Summary(),
			Status:   string(e.Status),
			JoinedAt: e.JoinedAt,
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].JoinedAt.Before(entries[j].JoinedAt) })
	return entries, int64(len(entries)), nil
}

func (f *fakeEnrollments) CountByCourse(ctx context.Context, tx *gorm.DB, courseID string) (int64, error) {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	var count int64
	for _, e := range f.r.enrollments {
		if e.CourseID == courseID {
			count++
		}
	}
	return count, nil
}

func (f *fakeEnrollments) IsEnrolled(ctx context.Context, tx *gorm.DB, courseID, studentID string) (bool, error) {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	for _, e := range f.r.enrollments {
		if e.CourseID == courseID && e.StudentID == studentID && e.Status == models.EnrollmentStatusActive {
			return true, nil
		}
	}
	return false, nil
}

// ===== materials =====

type fakeMaterials struct{ r *fakeRepository }

func (f *fakeMaterials) Create(ctx context.Context, tx *gorm.DB, material *models.Material) error {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	f.r.nextMaterialID++
	material.ID = f.r.nextMaterialID
	copied := *material
	f.r.materials[material.ID] = &copied
	return nil
}

func (f *fakeMaterials) GetByID(ctx context.Context, tx *gorm.DB, id uint) (*models.Material, error) {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	m, ok := f.r.materials[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *m
	return &copied, nil
}

func (f *fakeMaterials) GetByKey(ctx context.Context, tx *gorm.DB, courseID, key string) (*models.Material, error) {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	for _, m := range f.r.materials {
		if m.CourseID == courseID && m.Key == key {
			copied := *m
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeMaterials) Update(ctx context.Context, tx *gorm.DB, material *models.Material) error {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	if _, ok := f.r.materials[material.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	copied := *material
	f.r.materials[material.ID] = &copied
	return nil
}

func (f *fakeMaterials) Delete(ctx context.Context, tx *gorm.DB, id uint) error {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	if _, ok := f.r.materials[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(f.r.materials, id)
	return nil
}

func (f *fakeMaterials) DeleteByCourse(ctx context.Context, tx *gorm.DB, courseID string) error {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	for id, m := range f.r.materials {
		if m.CourseID == courseID {
			delete(f.r.materials, id)
		}
	}
	return nil
}

func (f *fakeMaterials) ListByCourse(ctx context.Context, tx *gorm.DB, courseID string, filters repositories.MaterialFilters) ([]*models.Material, int64, error) {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	var out []*models.Material
	for _, m := range f.r.materials {
		if m.CourseID != courseID {
			continue
		}
		if filters.Query != "" && !strings.Contains(strings.ToLower(m.Title), strings.ToLower(filters.Query)) {
			continue
		}
		copied := *m
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UploadedAt.Equal(out[j].UploadedAt) {
			return out[i].UploadedAt.After(out[j].UploadedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, int64(len(out)), nil
}

func (f *fakeMaterials) ExistsByKey(ctx context.Context, tx *gorm.DB, courseID, key string) (bool, error) {
	_, err := f.GetByKey(ctx, tx, courseID, key)
	if err != nil {
		return false, nil
	}
	return true, nil
}

// ===== users =====

type fakeUsers struct{ r *fakeRepository }

func (f *fakeUsers) Create(ctx context.Context, tx *gorm.DB, user *models.User) error {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	for _, u := range f.r.users {
		if u.Email == user.Email || u.Username == user.Username {
			return gorm.ErrDuplicatedKey
		}
	}
	copied := *user
	f.r.users[user.ID] = &copied
	return nil
}

func (f *fakeUsers) Update(ctx context.Context, tx *gorm.DB, user *models.User) error {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	if _, ok := f.r.users[user.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	for _, u := range f.r.users {
		if u.ID != user.ID && u.Email == user.Email {
			return gorm.ErrDuplicatedKey
		}
	}
	copied := *user
	f.r.users[user.ID] = &copied
	return nil
}

func (f *fakeUsers) GetByID(ctx context.Context, tx *gorm.DB, id string) (*models.User, error) {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	u, ok := f.r.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUsers) GetByEmail(ctx context.Context, tx *gorm.DB, email string) (*models.User, error) {
	return f.find(func(u *models.User) bool { return u.Email == email })
}

func (f *fakeUsers) GetByUsername(ctx context.Context, tx *gorm.DB, username string) (*models.User, error) {
	return f.find(func(u *models.User) bool { return u.Username == username })
}

func (f *fakeUsers) find(match func(*models.User) bool) (*models.User, error) {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	for _, u := range f.r.users {
		if match(u) {
			copied := *u
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeUsers) GetByIDs(ctx context.Context, tx *gorm.DB, ids []string) ([]*models.User, error) {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	var out []*models.User
	for _, id := range ids {
		if u, ok := f.r.users[id]; ok {
			copied := *u
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (f *fakeUsers) ExistsByID(ctx context.Context, tx *gorm.DB, id string) (bool, error) {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	_, ok := f.r.users[id]
	return ok, nil
}

func (f *fakeUsers) ExistsByEmail(ctx context.Context, tx *gorm.DB, email string) (bool, error) {
	_, err := f.GetByEmail(ctx, tx, email)
	return err == nil, nil
}

func (f *fakeUsers) ExistsByUsername(ctx context.Context, tx *gorm.DB, username string) (bool, error) {
	_, err := f.GetByUsername(ctx, tx, username)
	return err == nil, nil
}

func (f *fakeUsers) HasRole(ctx context.Context, tx *gorm.DB, id string, role models.UserRole) (bool, error) {
	f.r.mu.Lock()
	defer f.r.mu.Unlock()
	u, ok := f.r.users[id]
	return ok && u.Role == role, nil
}

// ===== shared fixtures =====

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testValidator() *validator.Validator {
	return validator.New()
}

func seedTeacher(repo *fakeRepository, id string) *models.User {
	return repo.addUser(&models.User{
		ID:        id,
		FirstName: "Grace",
		LastName:  "Hopper",
		Email:     id + "@example.edu",
		Username:  "teacher-" + id,
		Role:      models.RoleTeacher,
	})
}

func seedStudent(repo *fakeRepository, id string) *models.User {
	return repo.addUser(&models.User{
		ID:        id,
		FirstName: "Alan",
		LastName:  "Turing",
		Email:     id + "@example.edu",
		Username:  "student-" + id,
		Role:      models.RoleStudent,
	})
}

func seedCourse(repo *fakeRepository, id, teacherID string, code *string) *models.Course {
	course := &models.Course{
		ID:             id,
		CourseName:     "Distributed Systems",
		Department:     "CS",
		CourseNumber:   "CS425",
		Term:           models.TermFall,
		Year:           time.Now().Year(),
		Institution:    "Example University",
		TeacherID:      teacherID,
		EnrollmentCode: code,
	}
	if code != nil {
		now := time.Now()
		course.CodeGeneratedAt = &now
	}
	return repo.addCourse(course)
}

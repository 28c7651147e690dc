package validator

import (
	"errors"
	"testing"
	"time"

	"github.com/SAP-F-2025/course-service/internal/models"
)

func TestEnrollCodeRule(t *testing.T) {
	v := New()

	tests := []struct {
		code   string
		wantOK bool
	}{
		{code: "ABC123", wantOK: true},
		{code: "abc123", wantOK: true},
		{code: "000000", wantOK: true},
		{code: "ABC12"},
		{code: "ABC1234"},
		{code: "ABC-12"},
		{code: "ABC 12"},
		{code: ""},
	}
	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := v.Validate(&EnrollRequest{Code: tt.code})
			if tt.wantOK && err != nil {
				t.Errorf("Validate(%q) error = %v, want nil", tt.code, err)
			}
			if !tt.wantOK && err == nil {
				t.Errorf("Validate(%q) = nil, want error", tt.code)
			}
		})
	}
}

func TestPasswordStrengthRule(t *testing.T) {
	v := New()

	tests := []struct {
		name     string
		password string
		wantOK   bool
	}{
		{name: "letters and digit", password: "secret1", wantOK: true},
		{name: "letters and punctuation", password: "secret!", wantOK: true},
		{name: "too short", password: "abc1"},
		{name: "letters only", password: "onlyletters"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := &RegisterRequest{
				FirstName:   "Grace",
				LastName:    "Hopper",
				Email:       "grace@example.edu",
				Username:    "ghopper",
				Password:    tt.password,
				Role:        models.RoleTeacher,
				Institution: "Example University",
			}
			err := v.Validate(req)
			if tt.wantOK && err != nil {
				t.Errorf("Validate() error = %v, want nil", err)
			}
			if !tt.wantOK && err == nil {
				t.Error("Validate() = nil, want error")
			}
		})
	}
}

func TestValidateCourseCreate(t *testing.T) {
	bv := New().GetBusinessValidator()
	year := time.Now().Year()

	valid := &CourseCreateRequest{
		CourseName:   "Databases",
		Department:   "CS",
		CourseNumber: "CS348",
		Term:         models.TermSpring,
		Year:         year,
		Institution:  "Example University",
	}
	if errs := bv.ValidateCourseCreate(valid); len(errs) > 0 {
		t.Fatalf("ValidateCourseCreate(valid) = %v", errs)
	}

	tests := []struct {
		name   string
		mutate func(*CourseCreateRequest)
	}{
		{name: "missing name", mutate: func(r *CourseCreateRequest) { r.CourseName = "" }},
		{name: "bad term", mutate: func(r *CourseCreateRequest) { r.Term = "Winter" }},
		{name: "year too old", mutate: func(r *CourseCreateRequest) { r.Year = year - 50 }},
		{name: "year too far out", mutate: func(r *CourseCreateRequest) { r.Year = year + 10 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := *valid
			tt.mutate(&req)
			if errs := bv.ValidateCourseCreate(&req); len(errs) == 0 {
				t.Error("ValidateCourseCreate() accepted invalid request")
			}
		})
	}
}

func TestValidateCourseUpdateRequiresAField(t *testing.T) {
	bv := New().GetBusinessValidator()

	if errs := bv.ValidateCourseUpdate(&CourseUpdateRequest{}); len(errs) == 0 {
		t.Error("empty update accepted")
	}

	name := "Networks"
	if errs := bv.ValidateCourseUpdate(&CourseUpdateRequest{CourseName: &name}); len(errs) > 0 {
		t.Errorf("single-field update rejected: %v", errs)
	}
}

func TestValidateProfileUpdateRequiresAField(t *testing.T) {
	bv := New().GetBusinessValidator()

	if errs := bv.ValidateProfileUpdate(&ProfileUpdateRequest{}); len(errs) == 0 {
		t.Error("empty update accepted")
	}

	bad := "not-an-email"
	if errs := bv.ValidateProfileUpdate(&ProfileUpdateRequest{Email: &bad}); len(errs) == 0 {
		t.Error("malformed email accepted")
	}
}

func TestValidationErrorsUnwrap(t *testing.T) {
	v := New()

	err := v.Validate(&EnrollRequest{Code: "nope"})
	if err == nil {
		t.Fatal("Validate() = nil, want error")
	}

	var validationErrs ValidationErrors
	if !errors.As(err, &validationErrs) {
		t.Fatalf("error %T does not unwrap to ValidationErrors", err)
	}
	if len(validationErrs) == 0 {
		t.Error("ValidationErrors is empty")
	}
	if validationErrs[0].Field == "" || validationErrs[0].Rule == "" {
		t.Errorf("entry missing field/rule: %+v", validationErrs[0])
	}
}

package validator

import (
	"regexp"
	"time"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/SAP-F-2025/course-service/internal/models"
)

var enrollCodePattern = regexp.MustCompile(`^[A-Za-z0-9]{6}$`)

// BusinessValidator handles business rule validation
type BusinessValidator struct {
	engine *validator.Validate
}

// NewBusinessValidator creates a new business validator
func NewBusinessValidator() *BusinessValidator {
	engine := validator.New(validator.WithRequiredStructEnabled())

	bv := &BusinessValidator{engine: engine}
	bv.registerBusinessRules()

	return bv
}

// Validate validates business rules for any struct
func (bv *BusinessValidator) Validate(s interface{}) ValidationErrors {
	if err := bv.engine.Struct(s); err != nil {
		return ToValidationErrors(err)
	}
	return nil
}

// ValidateCourseCreate validates course creation business rules
func (bv *BusinessValidator) ValidateCourseCreate(req *CourseCreateRequest) ValidationErrors {
	return bv.Validate(req)
}

// ValidateCourseUpdate validates course update business rules
func (bv *BusinessValidator) ValidateCourseUpdate(req *CourseUpdateRequest) ValidationErrors {
	errors := bv.Validate(req)

	if req.CourseName == nil && req.Department == nil && req.CourseNumber == nil &&
		req.Term == nil && req.Year == nil && req.Institution == nil {
		errors = append(errors, ValidationError{
			Field:   "request",
			Message: "at least one field must be provided",
			Rule:    "required",
		})
	}

	return errors
}

// ValidateProfileUpdate validates profile update business rules
func (bv *BusinessValidator) ValidateProfileUpdate(req *ProfileUpdateRequest) ValidationErrors {
	errors := bv.Validate(req)

	if req.FirstName == nil && req.LastName == nil && req.Email == nil && req.Institution == nil {
		errors = append(errors, ValidationError{
			Field:   "request",
			Message: "at least one field must be provided",
			Rule:    "required",
		})
	}

	return errors
}

func (bv *BusinessValidator) registerBusinessRules() {
	registrations := map[string]validator.Func{
		"course_term":       validateCourseTerm,
		"academic_year":     validateAcademicYear,
		"enroll_code":       validateEnrollCode,
		"password_strength": validatePasswordStrength,
		"user_role":         validateUserRole,
	}
	for tag, fn := range registrations {
		_ = bv.engine.RegisterValidation(tag, fn)
	}
}

func validateCourseTerm(fl validator.FieldLevel) bool {
	return models.CourseTerm(fl.Field().String()).Valid()
}

// validateAcademicYear bounds the year to a window around the current
// year rather than the model's wide storage range.
func validateAcademicYear(fl validator.FieldLevel) bool {
	year := int(fl.Field().Int())
	now := time.Now().Year()
	return year >= now-10 && year <= now+2
}

func validateEnrollCode(fl validator.FieldLevel) bool {
	return enrollCodePattern.MatchString(fl.Field().String())
}

func validatePasswordStrength(fl validator.FieldLevel) bool {
	password := fl.Field().String()
	if len(password) < 6 {
		return false
	}
	for _, r := range password {
		if unicode.IsDigit(r) || unicode.IsPunct(r) || unicode.IsSymbol(r) {
			return true
		}
	}
	return false
}

func validateUserRole(fl validator.FieldLevel) bool {
	return models.UserRole(fl.Field().String()).Valid()
}

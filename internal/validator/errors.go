package validator

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ValidationError describes one failed rule on one field.
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
	Rule    string      `json:"rule"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors aggregates all failures for one request.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "validation failed"
	}
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// ToValidationErrors converts go-playground validator errors into the
// service-level representation.
func ToValidationErrors(err error) ValidationErrors {
	if err == nil {
		return nil
	}

	var out ValidationErrors
	if fieldErrors, ok := err.(validator.ValidationErrors); ok {
		for _, fe := range fieldErrors {
			out = append(out, ValidationError{
				Field:   fieldName(fe),
				Message: messageFor(fe),
				Value:   fe.Value(),
				Rule:    fe.Tag(),
			})
		}
		return out
	}

	return ValidationErrors{{
		Field:   "request",
		Message: err.Error(),
		Rule:    "invalid",
	}}
}

func fieldName(fe validator.FieldError) string {
	// StructNamespace is Type.Field; drop the type prefix and
	// snake-case the rest so it matches the JSON payload.
	name := fe.Field()
	return toSnakeCase(name)
}

func toSnakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r + ('a' - 'A'))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func messageFor(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "course_term":
		return "must be one of: Fall Spring Summer"
	case "academic_year":
		return "must be a plausible academic year"
	case "enroll_code":
		return "must be a 6-character alphanumeric code"
	case "password_strength":
		return "must be at least 6 characters and contain a digit or special character"
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}

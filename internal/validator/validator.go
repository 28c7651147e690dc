package validator

import (
	"github.com/go-playground/validator/v10"
)

// Validator wraps the business validator for service-layer checks.
type Validator struct {
	business *BusinessValidator
}

func New() *Validator {
	return &Validator{business: NewBusinessValidator()}
}

// Validate runs tag validation on a request struct and returns
// service-level validation errors, or nil when the struct is valid.
func (v *Validator) Validate(s interface{}) error {
	if err := v.business.engine.Struct(s); err != nil {
		return ToValidationErrors(err)
	}
	return nil
}

// GetBusinessValidator exposes the underlying validator for checks that
// need more than struct tags.
func (v *Validator) GetBusinessValidator() *BusinessValidator {
	return v.business
}

// Engine returns the raw go-playground validator, for handlers that
// validate individual variables.
func (v *Validator) Engine() *validator.Validate {
	return v.business.engine
}

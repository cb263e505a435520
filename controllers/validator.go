package controllers

import "github.com/HSouheill/barrim_onboarding/services/wizard"

// CustomValidator validates request bodies for echo.
type CustomValidator struct {
	validator *wizard.Validator
}

func NewCustomValidator(v *wizard.Validator) *CustomValidator {
	return &CustomValidator{validator: v}
}

// Validate validates the request body
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

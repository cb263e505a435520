// Package wizard owns the five-step onboarding form of a session.
package wizard

import "errors"

var (
	ErrStepInvalid          = errors.New("step has validation errors")
	ErrConsentRequired      = errors.New("terms must be accepted and details confirmed")
	ErrSessionNotFound      = errors.New("onboarding session not found")
	ErrUnknownStep          = errors.New("unknown step")
	ErrFieldNotOwned        = errors.New("field belongs to another step")
	ErrUnknownField         = errors.New("unknown form field")
	ErrPhotoNotFound        = errors.New("business photo not found")
	ErrSubmissionInProgress = errors.New("submission already in progress")
)

// models/wizard.go
package models

import "time"

// Wizard step bounds.
const (
	FirstStep = 1
	LastStep  = 5
)

// FieldErrors maps a form field to a validation message.
type FieldErrors map[string]string

// WizardState is the externally visible state of an onboarding session.
type WizardState struct {
	SessionID     string              `json:"sessionId"`
	CurrentStep   int                 `json:"currentStep"`
	Aggregate     FormAggregate       `json:"aggregate"`
	PerStepErrors map[int]FieldErrors `json:"perStepErrors,omitempty"`
	Verification  VerificationSession `json:"verification"`
	Submission    string              `json:"submission,omitempty"`
	CreatedAt     time.Time           `json:"createdAt"`
	UpdatedAt     time.Time           `json:"updatedAt"`
}

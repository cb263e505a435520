// models/verification.go
package models

import "time"

// VerificationStatus is the status of one OTP session.
type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending"
	VerificationVerified VerificationStatus = "verified"
	VerificationFailed   VerificationStatus = "failed"
)

// VerificationState is the state of the phone verification machine.
type VerificationState string

const (
	VerificationIdle VerificationState = "idle"
	VerificationSent VerificationState = "sent"
	// VerificationDone means the phone number has been confirmed.
	VerificationDone VerificationState = "verified"
)

// VerificationSession describes the outstanding OTP challenge of a wizard session.
type VerificationSession struct {
	State               VerificationState  `json:"state"`
	PhoneNumber         string             `json:"phoneNumber,omitempty"`
	SentAt              *time.Time         `json:"sentAt,omitempty"`
	CooldownRemaining   int                `json:"cooldownRemaining"` // seconds
	Status              VerificationStatus `json:"status,omitempty"`
	AttemptsOutstanding int                `json:"attemptsOutstanding"`
	FailedAttempts      int                `json:"failedAttempts"`
}

// PhoneOTP is the provider-side record of a sent code, keyed by session handle.
type PhoneOTP struct {
	Handle    string    `json:"handle"`
	Phone     string    `json:"phone"`
	OTP       string    `json:"otp"`
	ExpiresAt time.Time `json:"expiresAt"`
}

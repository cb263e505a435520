// Package verification runs the phone OTP flow of an onboarding session.
package verification

import "errors"

var (
	ErrInvalidPhone      = errors.New("phone number must be 10 digits")
	ErrNoSession         = errors.New("no verification code has been sent")
	ErrInvalidCodeLength = errors.New("verification code must be 6 digits")
	ErrInvalidOTP        = errors.New("invalid verification code")
	ErrCooldownActive    = errors.New("please wait before requesting a new code")
	ErrQuotaExceeded     = errors.New("too many codes requested for this number")
	ErrChallengeInvalid  = errors.New("verification challenge is missing or expired")
)

package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/HSouheill/barrim_onboarding/models"
	"github.com/HSouheill/barrim_onboarding/services/verification"
	"github.com/HSouheill/barrim_onboarding/services/wizard"
	"github.com/HSouheill/barrim_onboarding/utils"
	"github.com/HSouheill/barrim_onboarding/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type sendOTPRequest struct {
	Phone          string `json:"phone"`
	ChallengeToken string `json:"challengeToken" validate:"required"`
}

type resendOTPRequest struct {
	ChallengeToken string `json:"challengeToken" validate:"required"`
}

type verifyOTPRequest struct {
	Code string `json:"code" validate:"required"`
}

// IssueChallenge issues the anti-abuse token the next send needs.
func (oc *OnboardingController) IssueChallenge(c echo.Context) error {
	ctrl, err := oc.session(c)
	if err != nil {
		return sessionError(c, err)
	}

	challenge, err := ctrl.Verification().NewChallenge(c.Request().Context())
	if err != nil {
		oc.logger.Error("failed to issue challenge", zap.String("sessionId", ctrl.ID()), zap.Error(err))
		return respond(c, http.StatusServiceUnavailable, "Verification is unavailable, please retry", nil)
	}
	return respond(c, http.StatusOK, "Challenge issued", challenge)
}

// SendOTP sends a code to the phone of the form, or to the phone in the
// body which then replaces it.
func (oc *OnboardingController) SendOTP(c echo.Context) error {
	ctrl, err := oc.session(c)
	if err != nil {
		return sessionError(c, err)
	}

	var req sendOTPRequest
	if err := c.Bind(&req); err != nil {
		return respond(c, http.StatusBadRequest, "Invalid request body", nil)
	}
	if err := c.Validate(&req); err != nil {
		return respond(c, http.StatusBadRequest, "Challenge token is required", nil)
	}

	if strings.TrimSpace(req.Phone) != "" {
		if err := ctrl.Merge(2, models.FormPatch{Phone: &req.Phone}); err != nil {
			return formError(c, err)
		}
	}
	phone := utils.NormalizePhone(ctrl.Form().Phone, oc.cfg.CountryCode)

	err = ctrl.Verification().SendOTP(c.Request().Context(), phone, &verification.Challenge{Token: req.ChallengeToken})
	if err != nil {
		oc.logger.Info("otp send rejected", zap.String("sessionId", ctrl.ID()), zap.String("phone", utils.MaskPhone(phone)), zap.Error(err))
		return otpError(c, err, ctrl)
	}

	snapshot := ctrl.Verification().Snapshot()
	oc.publish(ctrl.ID(), websocket.EventVerification, snapshot)
	return respond(c, http.StatusOK, "Code sent", snapshot)
}

// ResendOTP sends a new code once the cooldown ran out.
func (oc *OnboardingController) ResendOTP(c echo.Context) error {
	ctrl, err := oc.session(c)
	if err != nil {
		return sessionError(c, err)
	}

	var req resendOTPRequest
	if err := c.Bind(&req); err != nil {
		return respond(c, http.StatusBadRequest, "Invalid request body", nil)
	}
	if err := c.Validate(&req); err != nil {
		return respond(c, http.StatusBadRequest, "Challenge token is required", nil)
	}

	if err := ctrl.Verification().ResendOTP(c.Request().Context(), &verification.Challenge{Token: req.ChallengeToken}); err != nil {
		return otpError(c, err, ctrl)
	}

	snapshot := ctrl.Verification().Snapshot()
	oc.publish(ctrl.ID(), websocket.EventVerification, snapshot)
	return respond(c, http.StatusOK, "Code sent", snapshot)
}

// VerifyOTP checks a code.
func (oc *OnboardingController) VerifyOTP(c echo.Context) error {
	ctrl, err := oc.session(c)
	if err != nil {
		return sessionError(c, err)
	}

	var req verifyOTPRequest
	if err := c.Bind(&req); err != nil {
		return respond(c, http.StatusBadRequest, "Invalid request body", nil)
	}

	err = ctrl.Verification().VerifyOTP(c.Request().Context(), strings.TrimSpace(req.Code))
	snapshot := ctrl.Verification().Snapshot()
	oc.publish(ctrl.ID(), websocket.EventVerification, snapshot)
	if err != nil {
		return otpError(c, err, ctrl)
	}
	return respond(c, http.StatusOK, "Phone number verified", snapshot)
}

func otpError(c echo.Context, err error, ctrl *wizard.Controller) error {
	snapshot := ctrl.Verification().Snapshot()
	switch {
	case errors.Is(err, verification.ErrInvalidPhone):
		return respond(c, http.StatusBadRequest, "Enter a valid 10-digit phone number", snapshot)
	case errors.Is(err, verification.ErrChallengeInvalid):
		return respond(c, http.StatusBadRequest, "Verification challenge expired, please retry", snapshot)
	case errors.Is(err, verification.ErrCooldownActive):
		return respond(c, http.StatusTooManyRequests, "Please wait before requesting a new code", snapshot)
	case errors.Is(err, verification.ErrQuotaExceeded):
		return respond(c, http.StatusTooManyRequests, "Too many codes requested, please try again later", snapshot)
	case errors.Is(err, verification.ErrNoSession):
		return respond(c, http.StatusConflict, "Request a code first", snapshot)
	case errors.Is(err, verification.ErrInvalidCodeLength):
		return respond(c, http.StatusBadRequest, "The code has 6 digits", snapshot)
	case errors.Is(err, verification.ErrInvalidOTP):
		return respond(c, http.StatusBadRequest, "Invalid code", snapshot)
	}
	return respond(c, http.StatusBadGateway, "Failed to send code, please retry", snapshot)
}

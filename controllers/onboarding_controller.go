package controllers

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/HSouheill/barrim_onboarding/middleware"
	"github.com/HSouheill/barrim_onboarding/models"
	"github.com/HSouheill/barrim_onboarding/services/geo"
	"github.com/HSouheill/barrim_onboarding/services/submission"
	"github.com/HSouheill/barrim_onboarding/services/upload"
	"github.com/HSouheill/barrim_onboarding/services/wizard"
	"github.com/HSouheill/barrim_onboarding/websocket"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type OnboardingConfig struct {
	JWTSecret     string
	SessionTTL    time.Duration
	Country       string
	CountryCode   string
	MaxAssetBytes int64
}

// OnboardingController serves the onboarding wizard API.
type OnboardingController struct {
	registry  *wizard.Registry
	reference geo.ReferenceData
	hub       *websocket.Hub
	cfg       OnboardingConfig
	logger    *zap.Logger
	now       func() time.Time
}

func NewOnboardingController(registry *wizard.Registry, reference geo.ReferenceData, hub *websocket.Hub, cfg OnboardingConfig, logger *zap.Logger) *OnboardingController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OnboardingController{
		registry:  registry,
		reference: reference,
		hub:       hub,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

type sessionCreated struct {
	SessionID string             `json:"sessionId"`
	Token     string             `json:"token"`
	State     models.WizardState `json:"state"`
}

type stepResult struct {
	State  models.WizardState `json:"state"`
	Errors models.FieldErrors `json:"errors,omitempty"`
}

type submitted struct {
	BusinessID string           `json:"businessId"`
	Business   *models.Business `json:"business"`
	Warnings   []string         `json:"warnings,omitempty"`
}

// CreateSession starts a wizard session and returns its token.
func (oc *OnboardingController) CreateSession(c echo.Context) error {
	ctrl := oc.registry.Create()

	token, err := middleware.IssueSessionToken(oc.cfg.JWTSecret, ctrl.ID(), oc.cfg.SessionTTL, oc.now())
	if err != nil {
		oc.registry.Discard(ctrl.ID())
		oc.logger.Error("failed to issue session token", zap.Error(err))
		return respond(c, http.StatusInternalServerError, "Failed to create session", nil)
	}

	return respond(c, http.StatusCreated, "Session created", sessionCreated{
		SessionID: ctrl.ID(),
		Token:     token,
		State:     ctrl.State(),
	})
}

// GetState returns the state of the current session.
func (oc *OnboardingController) GetState(c echo.Context) error {
	ctrl, err := oc.session(c)
	if err != nil {
		return sessionError(c, err)
	}
	return respond(c, http.StatusOK, "Session state", ctrl.State())
}

// SaveStep merges step data and reports its validation errors without
// moving to another step.
func (oc *OnboardingController) SaveStep(c echo.Context) error {
	ctrl, err := oc.session(c)
	if err != nil {
		return sessionError(c, err)
	}

	step, err := strconv.Atoi(c.Param("step"))
	if err != nil {
		return respond(c, http.StatusBadRequest, "Invalid step", nil)
	}

	var patch models.FormPatch
	if err := c.Bind(&patch); err != nil {
		return respond(c, http.StatusBadRequest, "Invalid request body", nil)
	}

	errs, err := ctrl.SubmitStep(step, patch)
	if err != nil && !errors.Is(err, wizard.ErrStepInvalid) {
		return formError(c, err)
	}
	return respond(c, http.StatusOK, "Step saved", stepResult{State: ctrl.State(), Errors: errs})
}

// Advance validates the current step and moves to the next one.
func (oc *OnboardingController) Advance(c echo.Context) error {
	ctrl, err := oc.session(c)
	if err != nil {
		return sessionError(c, err)
	}

	if errs, err := ctrl.Advance(); err != nil {
		return respond(c, http.StatusUnprocessableEntity, "Please fix the highlighted fields", stepResult{State: ctrl.State(), Errors: errs})
	}
	return respond(c, http.StatusOK, "Moved to next step", ctrl.State())
}

// Retreat moves to the previous step.
func (oc *OnboardingController) Retreat(c echo.Context) error {
	ctrl, err := oc.session(c)
	if err != nil {
		return sessionError(c, err)
	}

	ctrl.Retreat()
	return respond(c, http.StatusOK, "Moved to previous step", ctrl.State())
}

// UploadAsset stores a multipart file in the form as a pending asset. It
// is uploaded to storage on submission.
func (oc *OnboardingController) UploadAsset(c echo.Context) error {
	ctrl, err := oc.session(c)
	if err != nil {
		return sessionError(c, err)
	}

	field := c.Param("field")
	if _, ok := wizard.FieldStep(field); !ok || !isMediaField(field) {
		return respond(c, http.StatusBadRequest, "Unknown asset field", nil)
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return respond(c, http.StatusBadRequest, "File is required", nil)
	}
	if oc.cfg.MaxAssetBytes > 0 && fh.Size > oc.cfg.MaxAssetBytes {
		return respond(c, http.StatusRequestEntityTooLarge, "File is too large", nil)
	}

	src, err := fh.Open()
	if err != nil {
		return respond(c, http.StatusBadRequest, "Failed to read file", nil)
	}
	defer src.Close()

	limit := oc.cfg.MaxAssetBytes
	if limit <= 0 {
		limit = fh.Size
	}
	data, err := io.ReadAll(io.LimitReader(src, limit+1))
	if err != nil {
		return respond(c, http.StatusBadRequest, "Failed to read file", nil)
	}
	if int64(len(data)) > limit {
		return respond(c, http.StatusRequestEntityTooLarge, "File is too large", nil)
	}

	asset := models.MediaAsset{
		ID:          uuid.NewString(),
		Name:        fh.Filename,
		ContentType: mimetype.Detect(data).String(),
		Size:        len(data),
		Data:        data,
	}

	if field == "businessPhotos" {
		err = ctrl.AddPhoto(asset)
	} else {
		err = ctrl.Attach(field, asset)
	}
	if err != nil {
		return formError(c, err)
	}

	asset.Data = nil
	return respond(c, http.StatusCreated, "File attached", asset)
}

// RemovePhoto drops a pending business photo.
func (oc *OnboardingController) RemovePhoto(c echo.Context) error {
	ctrl, err := oc.session(c)
	if err != nil {
		return sessionError(c, err)
	}

	if err := ctrl.RemovePhoto(c.Param("id")); err != nil {
		return formError(c, err)
	}
	return respond(c, http.StatusOK, "Photo removed", ctrl.State())
}

// Submit uploads every asset and creates the business. The session ends
// when the business was saved.
func (oc *OnboardingController) Submit(c echo.Context) error {
	ctrl, err := oc.session(c)
	if err != nil {
		return sessionError(c, err)
	}

	res, err := ctrl.Submit(c.Request().Context())
	switch {
	case err == nil:
	case errors.Is(err, wizard.ErrStepInvalid):
		st := ctrl.State()
		return respond(c, http.StatusUnprocessableEntity, "Please complete every step", stepResult{
			State:  st,
			Errors: st.PerStepErrors[st.CurrentStep],
		})
	case errors.Is(err, wizard.ErrConsentRequired):
		st := ctrl.State()
		return respond(c, http.StatusUnprocessableEntity, "Please accept the terms and confirm your details", stepResult{
			State:  st,
			Errors: st.PerStepErrors[models.LastStep],
		})
	case errors.Is(err, wizard.ErrSubmissionInProgress):
		return respond(c, http.StatusConflict, "Submission already in progress", nil)
	case errors.Is(err, upload.ErrUploadFailed):
		return respond(c, http.StatusBadGateway, submission.UploadFailedMessage, nil)
	default:
		oc.logger.Error("submission failed", zap.String("sessionId", ctrl.ID()), zap.Error(err))
		return respond(c, http.StatusInternalServerError, "Failed to save business, please retry", nil)
	}

	oc.registry.Discard(ctrl.ID())

	out := submitted{BusinessID: res.BusinessID, Business: res.Business}
	for _, f := range res.SecondaryFailures {
		out.Warnings = append(out.Warnings, f.Step)
	}
	return respond(c, http.StatusCreated, "Business created", out)
}

// Leave ends the current session.
func (oc *OnboardingController) Leave(c echo.Context) error {
	id := middleware.SessionID(c)
	if _, err := oc.registry.Get(id); err != nil {
		return sessionError(c, err)
	}
	oc.registry.Discard(id)
	return respond(c, http.StatusOK, "Session closed", nil)
}

// Events streams the session events over a websocket.
func (oc *OnboardingController) Events(c echo.Context) error {
	ctrl, err := oc.session(c)
	if err != nil {
		return sessionError(c, err)
	}
	return websocket.HandleWebSocket(c, oc.hub, ctrl.ID())
}

func (oc *OnboardingController) session(c echo.Context) (*wizard.Controller, error) {
	return oc.registry.Get(middleware.SessionID(c))
}

func (oc *OnboardingController) publish(sessionID, event string, data interface{}) {
	if oc.hub != nil {
		oc.hub.Publish(sessionID, event, data)
	}
}

func isMediaField(field string) bool {
	switch field {
	case models.AssetLogo, models.AssetCover, models.AssetGovernmentID,
		models.AssetVerificationDocument, models.AssetIntroVideo, "businessPhotos":
		return true
	}
	return false
}

func respond(c echo.Context, status int, message string, data interface{}) error {
	return c.JSON(status, models.Response{Status: status, Message: message, Data: data})
}

func sessionError(c echo.Context, err error) error {
	if errors.Is(err, wizard.ErrSessionNotFound) {
		return respond(c, http.StatusNotFound, "Session expired, please start again", nil)
	}
	return respond(c, http.StatusInternalServerError, "Failed to load session", nil)
}

func formError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, wizard.ErrUnknownStep), errors.Is(err, wizard.ErrUnknownField):
		return respond(c, http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, wizard.ErrFieldNotOwned):
		return respond(c, http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, wizard.ErrPhotoNotFound):
		return respond(c, http.StatusNotFound, "Photo not found", nil)
	case errors.Is(err, wizard.ErrSubmissionInProgress):
		return respond(c, http.StatusConflict, "Submission in progress", nil)
	}
	return respond(c, http.StatusInternalServerError, "Failed to update form", nil)
}

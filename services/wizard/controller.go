package wizard

import (
	"context"
	"sync"
	"time"

	"github.com/HSouheill/barrim_onboarding/models"
	"github.com/HSouheill/barrim_onboarding/services/submission"
	"github.com/HSouheill/barrim_onboarding/services/verification"
	"github.com/HSouheill/barrim_onboarding/utils"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

type (
	// Verification is the phone verification state of the session.
	Verification interface {
		PhoneVerifier
		NewChallenge(ctx context.Context) (*verification.Challenge, error)
		SendOTP(ctx context.Context, phone string, challenge *verification.Challenge) error
		ResendOTP(ctx context.Context, challenge *verification.Challenge) error
		VerifyOTP(ctx context.Context, code string) error
		Snapshot() models.VerificationSession
		Teardown()
	}
	// Locator resolves addresses and tracks the state selection of the session.
	Locator interface {
		SelectState(code string)
		ResolveFromAddress(ctx context.Context, text string) (models.GeoResolution, error)
		ResolveFromCoordinates(ctx context.Context, lat, lng float64) (models.GeoResolution, error)
		Close()
	}
	// Submitter runs the final submission of a form.
	Submitter interface {
		SubmitWithObserver(ctx context.Context, form models.FormAggregate, onState func(submission.State)) submission.Result
	}
)

// Session are the per-session collaborators of a Controller. Locator and
// OnSubmission may be nil.
type Session struct {
	Verification Verification
	Locator      Locator
	Submitter    Submitter
	Validator    *Validator
	CountryCode  string
	OnSubmission func(submission.State)
	Now          func() time.Time
	Logger       *zap.Logger
}

// Controller owns the form of one onboarding session. All operations are
// serialized; the aggregate is only replaced field by field, never shared.
type Controller struct {
	mu sync.Mutex

	id        string
	step      int
	form      models.FormAggregate
	errs      map[int]models.FieldErrors
	status    submission.State
	createdAt time.Time
	updatedAt time.Time

	session Session
	logger  *zap.Logger
}

func NewController(id string, s Session) *Controller {
	if s.Now == nil {
		s.Now = time.Now
	}
	if s.Validator == nil {
		s.Validator = NewValidator(s.Now)
	}
	if s.Logger == nil {
		s.Logger = zap.NewNop()
	}
	now := s.Now()
	return &Controller{
		id:        id,
		step:      models.FirstStep,
		form:      models.FormAggregate{BusinessPhotos: []models.MediaAsset{}},
		errs:      make(map[int]models.FieldErrors),
		status:    submission.StateIdle,
		createdAt: now,
		updatedAt: now,
		session:   s,
		logger:    s.Logger.With(zap.String("sessionId", id)),
	}
}

func (c *Controller) ID() string { return c.id }

// Verification returns the phone verification of the session.
func (c *Controller) Verification() Verification { return c.session.Verification }

// Locator returns the location resolver of the session, or nil.
func (c *Controller) Locator() Locator { return c.session.Locator }

// Merge applies the fields of patch owned by step.
func (c *Controller) Merge(step int, patch models.FormPatch) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mergeLocked(step, patch)
}

func (c *Controller) mergeLocked(step int, patch models.FormPatch) error {
	if c.status == submission.StateUploading || c.status == submission.StatePersisting {
		return ErrSubmissionInProgress
	}
	if patch.Phone != nil {
		phone := utils.NormalizePhone(*patch.Phone, c.session.CountryCode)
		patch.Phone = &phone
	}

	prevState := c.form.StateCode
	if err := Merge(&c.form, step, patch); err != nil {
		return err
	}
	if c.form.StateCode != prevState && c.session.Locator != nil {
		c.session.Locator.SelectState(c.form.StateCode)
	}
	c.updatedAt = c.session.Now()
	return nil
}

// SubmitStep merges patch and validates step. The returned errors are
// also kept in the session state.
func (c *Controller) SubmitStep(step int, patch models.FormPatch) (models.FieldErrors, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.mergeLocked(step, patch); err != nil {
		return nil, err
	}
	return c.checkLocked(step)
}

// Advance moves to the next step if the current one is valid. The last
// step never advances further.
func (c *Controller) Advance() (models.FieldErrors, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if errs, err := c.checkLocked(c.step); err != nil {
		return errs, err
	}
	if c.step < models.LastStep {
		c.step++
	}
	c.updatedAt = c.session.Now()
	return nil, nil
}

// Retreat moves to the previous step without validation.
func (c *Controller) Retreat() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.step > models.FirstStep {
		c.step--
	}
	c.updatedAt = c.session.Now()
}

func (c *Controller) checkLocked(step int) (models.FieldErrors, error) {
	errs := c.session.Validator.Step(step, c.form, c.session.Verification)
	if len(errs) > 0 {
		c.errs[step] = errs
		return errs, eris.Wrapf(ErrStepInvalid, "step %d", step)
	}
	delete(c.errs, step)
	return nil, nil
}

// State returns a copy of the session state.
func (c *Controller) State() models.WizardState {
	c.mu.Lock()
	defer c.mu.Unlock()

	errs := make(map[int]models.FieldErrors, len(c.errs))
	for step, fe := range c.errs {
		cp := make(models.FieldErrors, len(fe))
		for k, v := range fe {
			cp[k] = v
		}
		errs[step] = cp
	}

	st := models.WizardState{
		SessionID:     c.id,
		CurrentStep:   c.step,
		Aggregate:     c.form.Clone(),
		PerStepErrors: errs,
		Submission:    string(c.status),
		CreatedAt:     c.createdAt,
		UpdatedAt:     c.updatedAt,
	}
	if c.session.Verification != nil {
		st.Verification = c.session.Verification.Snapshot()
	}
	return st
}

// Form returns a copy of the aggregate.
func (c *Controller) Form() models.FormAggregate {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.form.Clone()
}

// AddPhoto appends a pending business photo.
func (c *Controller) AddPhoto(photo models.MediaAsset) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	photos := make([]models.MediaAsset, 0, len(c.form.BusinessPhotos)+1)
	photos = append(photos, c.form.BusinessPhotos...)
	photos = append(photos, photo)
	return c.mergeLocked(3, models.FormPatch{BusinessPhotos: &photos})
}

// RemovePhoto drops the business photo with id.
func (c *Controller) RemovePhoto(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	photos := make([]models.MediaAsset, 0, len(c.form.BusinessPhotos))
	for _, p := range c.form.BusinessPhotos {
		if p.ID != id {
			photos = append(photos, p)
		}
	}
	if len(photos) == len(c.form.BusinessPhotos) {
		return eris.Wrapf(ErrPhotoNotFound, "photo %s", id)
	}
	return c.mergeLocked(3, models.FormPatch{BusinessPhotos: &photos})
}

// Attach sets the single media field named field.
func (c *Controller) Attach(field string, asset models.MediaAsset) error {
	var patch models.FormPatch
	switch field {
	case models.AssetLogo:
		patch.Logo = &asset
	case models.AssetCover:
		patch.Cover = &asset
	case models.AssetGovernmentID:
		patch.GovernmentID = &asset
	case models.AssetVerificationDocument:
		patch.VerificationDocument = &asset
	case models.AssetIntroVideo:
		patch.IntroVideo = &asset
	default:
		return eris.Wrapf(ErrUnknownField, "%s", field)
	}
	step, _ := FieldStep(field)
	return c.Merge(step, patch)
}

// ApplyGeo merges a location resolution into step 2.
func (c *Controller) ApplyGeo(res models.GeoResolution) error {
	return c.Merge(2, res.Patch())
}

// Submit validates every step and the consents, then runs the submission.
// The session stays usable while it runs except for form changes.
func (c *Controller) Submit(ctx context.Context) (submission.Result, error) {
	c.mu.Lock()
	if c.status == submission.StateUploading || c.status == submission.StatePersisting {
		c.mu.Unlock()
		return submission.Result{}, ErrSubmissionInProgress
	}
	for step := models.FirstStep; step < models.LastStep; step++ {
		if _, err := c.checkLocked(step); err != nil {
			c.step = step
			c.mu.Unlock()
			return submission.Result{}, err
		}
	}
	if errs := ConsentErrors(c.form); len(errs) > 0 {
		c.errs[models.LastStep] = errs
		c.mu.Unlock()
		return submission.Result{}, ErrConsentRequired
	}
	delete(c.errs, models.LastStep)
	form := c.form.Clone()
	c.status = submission.StateUploading
	c.mu.Unlock()

	c.logger.Info("submitting onboarding form")
	res := c.session.Submitter.SubmitWithObserver(ctx, form, func(s submission.State) {
		c.setStatus(s)
		if c.session.OnSubmission != nil {
			c.session.OnSubmission(s)
		}
	})

	c.mu.Lock()
	c.status = res.State
	c.updatedAt = c.session.Now()
	c.mu.Unlock()

	return res, res.Err()
}

func (c *Controller) setStatus(s submission.State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status = s
}

// Teardown stops the timers of the session.
func (c *Controller) Teardown() {
	if c.session.Verification != nil {
		c.session.Verification.Teardown()
	}
	if c.session.Locator != nil {
		c.session.Locator.Close()
	}
}

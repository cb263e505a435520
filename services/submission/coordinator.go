// Package submission runs the final step of onboarding: upload every
// asset, persist the business and set up its account.
package submission

import (
	"context"
	"path/filepath"
	"time"

	"github.com/HSouheill/barrim_onboarding/models"
	"github.com/HSouheill/barrim_onboarding/services/upload"
	"github.com/HSouheill/barrim_onboarding/utils"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// UploadFailedMessage is the one user-facing message for any upload failure.
const UploadFailedMessage = "upload failed, please retry"

const submitTimeout = 5 * time.Minute

// State is the progress of one submission.
type State string

const (
	StateIdle       State = "idle"
	StateUploading  State = "uploading"
	StatePersisting State = "persisting"
	StateDone       State = "done"
	StateFailed     State = "failed"
)

// Secondary steps whose failure does not fail the submission.
const (
	StepThumbnail    = "thumbnail"
	StepIdentity     = "identity"
	StepBusinessUser = "businessUser"
	StepWelcomeEmail = "welcomeEmail"
)

// SecondaryFailure is a non-fatal failure of one secondary step.
type SecondaryFailure struct {
	Step string
	Err  error
}

// Result is the outcome of Submit. PrimaryFailure is set only when the
// business record was not persisted.
type Result struct {
	State             State
	BusinessID        string
	Business          *models.Business
	PrimaryFailure    error
	SecondaryFailures []SecondaryFailure
}

// Err returns the primary failure.
func (r Result) Err() error { return r.PrimaryFailure }

type (
	// UploadPipeline uploads a batch of assets.
	UploadPipeline interface {
		UploadAll(ctx context.Context, businessID string, assets []upload.NamedAsset) upload.Outcome
	}
	// BusinessStore persists business records.
	BusinessStore interface {
		Upsert(ctx context.Context, b models.Business) error
	}
	// BusinessUserStore persists business user records.
	BusinessUserStore interface {
		Upsert(ctx context.Context, u models.BusinessUser) error
	}
)

// Deps are the collaborators of a Coordinator. Identity, Users, Mailer,
// Uploader and Thumbnail are optional.
type Deps struct {
	Pipeline    UploadPipeline
	Uploader    upload.AssetUploader
	Businesses  BusinessStore
	Users       BusinessUserStore
	Identity    Identity
	Mailer      Mailer
	Thumbnail   func(video []byte, extension string) ([]byte, error)
	CountryCode string
	Now         func() time.Time
	Logger      *zap.Logger
}

// Coordinator sequences uploads, persistence and account setup.
type Coordinator struct {
	deps    Deps
	onState func(State)
}

func NewCoordinator(deps Deps) *Coordinator {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Coordinator{deps: deps}
}

// WithObserver returns a copy of c that reports every state transition.
func (c *Coordinator) WithObserver(onState func(State)) *Coordinator {
	cp := *c
	cp.onState = onState
	return &cp
}

// SubmitWithObserver is Submit with onState called after the observer set
// by WithObserver.
func (c *Coordinator) SubmitWithObserver(ctx context.Context, form models.FormAggregate, onState func(State)) Result {
	prev := c.onState
	return c.WithObserver(func(s State) {
		if prev != nil {
			prev(s)
		}
		if onState != nil {
			onState(s)
		}
	}).Submit(ctx, form)
}

// Submit uploads every asset of form and persists the business. Any
// upload failure fails the submission before anything is written. The
// submission runs to completion even if ctx is cancelled.
func (c *Coordinator) Submit(ctx context.Context, form models.FormAggregate) Result {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), submitTimeout)
	defer cancel()

	log := c.deps.Logger
	now := c.deps.Now()
	res := Result{State: StateIdle, BusinessID: upload.BusinessID(form.BusinessName, now)}
	log = log.With(zap.String("businessId", res.BusinessID))

	c.transition(&res, StateUploading)
	outcome := c.deps.Pipeline.UploadAll(ctx, res.BusinessID, Assets(form))
	if err := outcome.Err(); err != nil {
		log.Error("submission uploads failed", zap.Strings("failures", outcome.Failures))
		return c.fail(res, err)
	}

	if ref, err := c.thumbnail(ctx, res.BusinessID, form.IntroVideo); err != nil {
		log.Warn("intro video thumbnail failed", zap.Error(err))
		res.SecondaryFailures = append(res.SecondaryFailures, SecondaryFailure{Step: StepThumbnail, Err: err})
	} else if ref != nil {
		if outcome.Results == nil {
			outcome.Results = make(map[string]models.AssetReference)
		}
		outcome.Results[models.AssetIntroVideoThumbnail] = *ref
	}

	business, err := BuildBusiness(form, res.BusinessID, outcome, now)
	if err != nil {
		log.Error("failed to build business record", zap.Error(err))
		return c.fail(res, err)
	}

	c.transition(&res, StatePersisting)
	if err := c.deps.Businesses.Upsert(ctx, business); err != nil {
		log.Error("failed to persist business", zap.Error(err))
		return c.fail(res, err)
	}
	res.Business = &business

	c.secondary(ctx, &res, business, now)

	c.transition(&res, StateDone)
	log.Info("business onboarded", zap.Int("secondaryFailures", len(res.SecondaryFailures)))
	return res
}

func (c *Coordinator) secondary(ctx context.Context, res *Result, b models.Business, now time.Time) {
	log := c.deps.Logger.With(zap.String("businessId", b.BusinessID))
	record := func(step string, err error) {
		log.Warn("secondary submission step failed", zap.String("step", step), zap.Error(err))
		res.SecondaryFailures = append(res.SecondaryFailures, SecondaryFailure{Step: step, Err: err})
	}

	var uid string
	if c.deps.Identity != nil {
		var err error
		uid, err = c.deps.Identity.EnsureUser(ctx, IdentityUser{
			Email:       b.Email,
			PhoneNumber: utils.ToE164(b.Phone, c.deps.CountryCode),
			DisplayName: b.BusinessName,
		})
		if err != nil {
			record(StepIdentity, err)
		}
	}

	if c.deps.Users != nil {
		if err := c.deps.Users.Upsert(ctx, BuildBusinessUser(b, uid, now)); err != nil {
			record(StepBusinessUser, err)
		}
	}

	if c.deps.Mailer != nil {
		if err := c.deps.Mailer.SendWelcome(ctx, b.Email, b.BusinessName); err != nil {
			record(StepWelcomeEmail, err)
		}
	}
}

// thumbnail renders and uploads a frame of a local intro video. It
// returns nil when there is nothing to do.
func (c *Coordinator) thumbnail(ctx context.Context, businessID string, video *models.MediaAsset) (*models.AssetReference, error) {
	if c.deps.Thumbnail == nil || c.deps.Uploader == nil || !video.IsLocal() {
		return nil, nil
	}

	data := video.Data
	if len(data) == 0 {
		decoded, _, err := utils.DecodeDataURI(video.LocalPreview)
		if err != nil {
			return nil, err
		}
		data = decoded
	}

	jpeg, err := c.deps.Thumbnail(data, filepath.Ext(video.Name))
	if err != nil {
		return nil, err
	}

	ref, err := c.deps.Uploader.Upload(ctx, businessID, models.CategoryVerification, models.AssetIntroVideoThumbnail,
		models.AssetSource{Data: jpeg, Filename: models.AssetIntroVideoThumbnail + ".jpg"})
	if err != nil {
		return nil, eris.Wrap(err, "failed to upload thumbnail")
	}
	return &ref, nil
}

func (c *Coordinator) transition(res *Result, s State) {
	res.State = s
	if c.onState != nil {
		c.onState(s)
	}
}

func (c *Coordinator) fail(res Result, err error) Result {
	res.PrimaryFailure = err
	c.transition(&res, StateFailed)
	return res
}

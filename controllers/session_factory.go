package controllers

import (
	"time"

	"github.com/HSouheill/barrim_onboarding/services/geo"
	"github.com/HSouheill/barrim_onboarding/services/submission"
	"github.com/HSouheill/barrim_onboarding/services/verification"
	"github.com/HSouheill/barrim_onboarding/services/wizard"
	"github.com/HSouheill/barrim_onboarding/websocket"
	"go.uber.org/zap"
)

// SessionDeps are the shared services every wizard session is built on.
// Geocoder and Hub may be nil. Without Reference sessions have no location
// resolver.
type SessionDeps struct {
	Provider    verification.OTPProvider
	Issuer      verification.ChallengeIssuer
	Cooldown    time.Duration
	Clock       verification.Clock
	Geocoder    geo.Geocoder
	Reference   geo.ReferenceData
	Country     string
	Debounce    time.Duration
	Submitter   wizard.Submitter
	Validator   *wizard.Validator
	CountryCode string
	Hub         *websocket.Hub
	Logger      *zap.Logger
}

// NewSessionFactory returns a factory giving each session its own
// verification machine and location resolver. Their events are pushed to
// the session's websocket.
func NewSessionFactory(d SessionDeps) wizard.Factory {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	publish := func(id, event string, data interface{}) {
		if d.Hub != nil {
			d.Hub.Publish(id, event, data)
		}
	}

	return func(id string) *wizard.Controller {
		log := d.Logger.With(zap.String("sessionId", id))

		machine := verification.NewMachine(d.Provider, d.Issuer, verification.Options{
			Cooldown:  d.Cooldown,
			Clock:     d.Clock,
			SessionID: id,
			OnTick: func(remaining int) {
				publish(id, websocket.EventCountdown, map[string]int{"remaining": remaining})
			},
		}, log)

		var locator wizard.Locator
		if d.Reference != nil {
			locator = geo.NewResolver(d.Geocoder, d.Reference, d.Country, d.Debounce, log)
		}

		return wizard.NewController(id, wizard.Session{
			Verification: machine,
			Locator:      locator,
			Submitter:    d.Submitter,
			Validator:    d.Validator,
			CountryCode:  d.CountryCode,
			OnSubmission: func(s submission.State) {
				publish(id, websocket.EventSubmission, map[string]submission.State{"state": s})
			},
			Logger: log,
		})
	}
}

// Package geo reconciles a free-text address, map coordinates and the
// state and city selection of the contact step.
package geo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/HSouheill/barrim_onboarding/models"
	"go.uber.org/zap"
)

var (
	// ErrSuperseded is returned to a debounced call replaced by a newer one.
	ErrSuperseded = errors.New("superseded by a newer request")

	// ErrGeocodingDisabled is reported by the geocoder used when none is configured.
	ErrGeocodingDisabled = errors.New("geocoding is not configured")
)

// DefaultDebounce is the input quiet period before an address is resolved.
const DefaultDebounce = time.Second

// Geocoder maps addresses to points and back.
type Geocoder interface {
	Forward(ctx context.Context, address string) (*models.GeocodeResult, error)
	Reverse(ctx context.Context, lat, lng float64) (*models.GeocodeResult, error)
}

type disabledGeocoder struct{}

func (disabledGeocoder) Forward(context.Context, string) (*models.GeocodeResult, error) {
	return nil, ErrGeocodingDisabled
}

func (disabledGeocoder) Reverse(context.Context, float64, float64) (*models.GeocodeResult, error) {
	return nil, ErrGeocodingDisabled
}

// Resolver is the geo state of one wizard session.
type Resolver struct {
	geocoder  Geocoder
	ref       ReferenceData
	country   string
	debouncer *Debouncer
	catalog   *CityCatalog
	logger    *zap.Logger
}

// NewResolver builds a session resolver. A nil geocoder leaves address
// lookups disabled; every resolution then only carries a warning.
func NewResolver(geocoder Geocoder, ref ReferenceData, country string, debounce time.Duration, logger *zap.Logger) *Resolver {
	if geocoder == nil {
		geocoder = disabledGeocoder{}
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		geocoder:  geocoder,
		ref:       ref,
		country:   country,
		debouncer: NewDebouncer(debounce),
		catalog:   NewCityCatalog(ref, country),
		logger:    logger,
	}
}

// SelectState follows a manual state selection. An empty code clears it.
func (r *Resolver) SelectState(code string) {
	if strings.TrimSpace(code) == "" {
		r.catalog.Invalidate()
		return
	}
	r.catalog.Select(code)
}

// Close drops a pending debounced call and the loaded city list.
func (r *Resolver) Close() {
	r.debouncer.Cancel()
	r.catalog.Invalidate()
}

// ResolveFromAddress geocodes text once input has been quiet for the
// debounce interval, then reverse geocodes the point for its state and
// city. Only the latest of overlapping calls runs.
func (r *Resolver) ResolveFromAddress(ctx context.Context, text string) (models.GeoResolution, error) {
	if err := r.debouncer.Wait(ctx); err != nil {
		return models.GeoResolution{}, err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return models.GeoResolution{}, nil
	}

	var out models.GeoResolution
	fwd, err := r.geocoder.Forward(ctx, text)
	if err != nil {
		r.logger.Warn("forward geocode failed", zap.Error(err))
		out.Warnings = append(out.Warnings, "address lookup unavailable")
		return out, nil
	}
	if !fwd.Matched {
		out.Warnings = append(out.Warnings, "address not found")
		return out, nil
	}

	coords := fwd.Coordinates
	out.Coordinates = &coords
	out.FormattedAddress = fwd.FormattedAddress

	admin := fwd
	rev, err := r.geocoder.Reverse(ctx, coords.Lat, coords.Lng)
	switch {
	case err != nil:
		r.logger.Warn("reverse geocode failed", zap.Error(err))
		out.Warnings = append(out.Warnings, "region lookup unavailable")
	case rev.Matched:
		admin = rev
	}

	r.match(ctx, admin, &out)
	return out, nil
}

// ResolveFromCoordinates reverse geocodes a map click. It is not debounced.
func (r *Resolver) ResolveFromCoordinates(ctx context.Context, lat, lng float64) (models.GeoResolution, error) {
	out := models.GeoResolution{Coordinates: &models.Coordinates{Lat: lat, Lng: lng}}

	rev, err := r.geocoder.Reverse(ctx, lat, lng)
	if err != nil {
		r.logger.Warn("reverse geocode failed", zap.Error(err))
		out.Warnings = append(out.Warnings, "address lookup unavailable")
		return out, nil
	}
	if !rev.Matched {
		out.Warnings = append(out.Warnings, "address not found")
		return out, nil
	}

	out.FormattedAddress = rev.FormattedAddress
	r.match(ctx, rev, &out)
	return out, nil
}

// match selects the state and city named by res, comparing names
// case-insensitively. Unmatched parts stay empty.
func (r *Resolver) match(ctx context.Context, res *models.GeocodeResult, out *models.GeoResolution) {
	if res.State == "" {
		return
	}

	states, err := r.ref.States(ctx, r.country)
	if err != nil {
		r.logger.Warn("state list unavailable", zap.Error(err))
		out.Warnings = append(out.Warnings, "state list unavailable")
		return
	}

	state, ok := findState(states, res.State)
	if !ok {
		return
	}
	out.StateCode = state.Code
	out.StateName = state.Name

	r.catalog.Select(state.Code)
	if res.City == "" {
		return
	}
	cities, err := r.catalog.Await(ctx)
	if err != nil {
		r.logger.Warn("city list unavailable",
			zap.String("state", state.Code),
			zap.Error(err))
		out.Warnings = append(out.Warnings, "city list unavailable")
		return
	}
	if city, ok := findCity(cities, res.City); ok {
		out.CityID = city.ID
		out.CityName = city.Name
	}
}

func findState(states []models.State, name string) (models.State, bool) {
	name = strings.TrimSpace(name)
	for _, s := range states {
		if strings.EqualFold(s.Name, name) {
			return s, true
		}
	}
	return models.State{}, false
}

func findCity(cities []models.City, name string) (models.City, bool) {
	name = strings.TrimSpace(name)
	for _, c := range cities {
		if strings.EqualFold(c.Name, name) {
			return c, true
		}
	}
	return models.City{}, false
}

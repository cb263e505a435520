package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/HSouheill/barrim_onboarding/models"
	"github.com/HSouheill/barrim_onboarding/services/geo"
	"github.com/HSouheill/barrim_onboarding/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type addressRequest struct {
	Address string `json:"address" validate:"required"`
}

type coordinatesRequest struct {
	Lat *float64 `json:"lat" validate:"required,min=-90,max=90"`
	Lng *float64 `json:"lng" validate:"required,min=-180,max=180"`
}

type geoResult struct {
	Resolution models.GeoResolution `json:"resolution"`
	State      models.WizardState   `json:"state"`
}

// ResolveAddress geocodes typed address text once typing paused. A call
// replaced by a newer one answers 409.
func (oc *OnboardingController) ResolveAddress(c echo.Context) error {
	ctrl, err := oc.session(c)
	if err != nil {
		return sessionError(c, err)
	}
	if ctrl.Locator() == nil {
		return respond(c, http.StatusServiceUnavailable, "Address lookup is unavailable", nil)
	}

	var req addressRequest
	if err := c.Bind(&req); err != nil {
		return respond(c, http.StatusBadRequest, "Invalid request body", nil)
	}
	req.Address = strings.TrimSpace(req.Address)
	if err := c.Validate(&req); err != nil {
		return respond(c, http.StatusBadRequest, "Address is required", nil)
	}

	res, err := ctrl.Locator().ResolveFromAddress(c.Request().Context(), req.Address)
	if errors.Is(err, geo.ErrSuperseded) {
		return respond(c, http.StatusConflict, "Superseded by a newer lookup", nil)
	}
	if err != nil {
		return respond(c, http.StatusRequestTimeout, "Lookup cancelled", nil)
	}
	return oc.applyGeo(c, res)
}

// ResolveCoordinates reverse geocodes a point picked on the map.
func (oc *OnboardingController) ResolveCoordinates(c echo.Context) error {
	ctrl, err := oc.session(c)
	if err != nil {
		return sessionError(c, err)
	}
	if ctrl.Locator() == nil {
		return respond(c, http.StatusServiceUnavailable, "Address lookup is unavailable", nil)
	}

	var req coordinatesRequest
	if err := c.Bind(&req); err != nil {
		return respond(c, http.StatusBadRequest, "Invalid request body", nil)
	}
	if err := c.Validate(&req); err != nil {
		return respond(c, http.StatusBadRequest, "Invalid coordinates", nil)
	}

	res, err := ctrl.Locator().ResolveFromCoordinates(c.Request().Context(), *req.Lat, *req.Lng)
	if err != nil {
		return respond(c, http.StatusRequestTimeout, "Lookup cancelled", nil)
	}
	return oc.applyGeo(c, res)
}

func (oc *OnboardingController) applyGeo(c echo.Context, res models.GeoResolution) error {
	ctrl, err := oc.session(c)
	if err != nil {
		return sessionError(c, err)
	}
	if err := ctrl.ApplyGeo(res); err != nil {
		return formError(c, err)
	}
	if len(res.Warnings) > 0 {
		oc.logger.Info("location resolved with warnings", zap.String("sessionId", ctrl.ID()), zap.Strings("warnings", res.Warnings))
	}

	oc.publish(ctrl.ID(), websocket.EventGeo, res)
	return respond(c, http.StatusOK, "Location resolved", geoResult{Resolution: res, State: ctrl.State()})
}

// ListStates returns the states of the configured country.
func (oc *OnboardingController) ListStates(c echo.Context) error {
	states, err := oc.reference.States(c.Request().Context(), oc.cfg.Country)
	if err != nil {
		oc.logger.Warn("failed to fetch states", zap.Error(err))
		return respond(c, http.StatusBadGateway, "Failed to load states", nil)
	}
	return respond(c, http.StatusOK, "States", states)
}

// ListCities returns the cities of a state.
func (oc *OnboardingController) ListCities(c echo.Context) error {
	code := strings.ToUpper(strings.TrimSpace(c.Param("code")))
	if code == "" {
		return respond(c, http.StatusBadRequest, "State code is required", nil)
	}

	cities, err := oc.reference.Cities(c.Request().Context(), oc.cfg.Country, code)
	if err != nil {
		oc.logger.Warn("failed to fetch cities", zap.String("state", code), zap.Error(err))
		return respond(c, http.StatusBadGateway, "Failed to load cities", nil)
	}
	return respond(c, http.StatusOK, "Cities", cities)
}

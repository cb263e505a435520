package routes

import (
	"github.com/HSouheill/barrim_onboarding/controllers"
	"github.com/HSouheill/barrim_onboarding/middleware"
	"github.com/labstack/echo/v4"
)

const basePath = "/api/onboarding"

// OTPPaths are the routes throttled with middleware.OTPLimit.
var OTPPaths = []string{
	basePath + "/sessions/current/otp/challenge",
	basePath + "/sessions/current/otp/send",
	basePath + "/sessions/current/otp/resend",
	basePath + "/sessions/current/otp/verify",
}

// RegisterOnboardingRoutes registers the onboarding API. Everything under
// /sessions/current needs the session token.
func RegisterOnboardingRoutes(e *echo.Echo, oc *controllers.OnboardingController, jwtSecret string, limiter *middleware.RateLimiter) {
	if limiter != nil {
		for _, p := range OTPPaths {
			limiter.Limit(p, middleware.OTPLimit)
		}
	}

	g := e.Group(basePath)
	g.POST("/sessions", oc.CreateSession)
	g.GET("/reference/states", oc.ListStates)
	g.GET("/reference/states/:code/cities", oc.ListCities)

	s := g.Group("/sessions/current", middleware.WizardSessionAuth(jwtSecret))
	s.GET("", oc.GetState)
	s.DELETE("", oc.Leave)
	s.PATCH("/steps/:step", oc.SaveStep)
	s.POST("/advance", oc.Advance)
	s.POST("/retreat", oc.Retreat)

	s.POST("/assets/:field", oc.UploadAsset)
	s.DELETE("/assets/businessPhotos/:id", oc.RemovePhoto)

	s.POST("/otp/challenge", oc.IssueChallenge)
	s.POST("/otp/send", oc.SendOTP)
	s.POST("/otp/resend", oc.ResendOTP)
	s.POST("/otp/verify", oc.VerifyOTP)

	s.POST("/geo/address", oc.ResolveAddress)
	s.POST("/geo/coordinates", oc.ResolveCoordinates)

	s.POST("/submit", oc.Submit)
	s.GET("/events", oc.Events)
}

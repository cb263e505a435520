package controllers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/HSouheill/barrim_onboarding/controllers"
	"github.com/HSouheill/barrim_onboarding/models"
	"github.com/HSouheill/barrim_onboarding/repositories"
	"github.com/HSouheill/barrim_onboarding/routes"
	"github.com/HSouheill/barrim_onboarding/services/geo"
	"github.com/HSouheill/barrim_onboarding/services/submission"
	"github.com/HSouheill/barrim_onboarding/services/upload"
	"github.com/HSouheill/barrim_onboarding/services/verification"
	"github.com/HSouheill/barrim_onboarding/services/wizard"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const jwtSecret = "test-secret"

type capturingSender struct {
	mu    sync.Mutex
	codes map[string]string
}

func (s *capturingSender) SendOTP(_ context.Context, phone, otp string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes[phone] = otp
	return nil
}

func (s *capturingSender) code(phone string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.codes[phone]
}

type memObjects struct {
	mu    sync.Mutex
	paths []string
	fail  bool
}

func (m *memObjects) Put(_ context.Context, path, _ string, _ []byte) (upload.StoredObject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return upload.StoredObject{}, assert.AnError
	}
	m.paths = append(m.paths, path)
	return upload.StoredObject{URL: "https://storage.googleapis.com/bucket/" + path, ObjectID: path}, nil
}

type memBusinesses struct {
	mu    sync.Mutex
	saved []models.Business
}

func (m *memBusinesses) Upsert(_ context.Context, b models.Business) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, b)
	return nil
}

type fakeGeocoder struct{}

func (fakeGeocoder) Forward(context.Context, string) (*models.GeocodeResult, error) {
	return &models.GeocodeResult{
		Matched:          true,
		FormattedAddress: "12 MG Road, Pune, Maharashtra",
		Coordinates:      models.Coordinates{Lat: 18.52, Lng: 73.85},
		State:            "Maharashtra",
		City:             "Pune",
	}, nil
}

func (g fakeGeocoder) Reverse(ctx context.Context, _, _ float64) (*models.GeocodeResult, error) {
	return g.Forward(ctx, "")
}

type fakeReference struct{}

func (fakeReference) States(context.Context, string) ([]models.State, error) {
	return []models.State{{Code: "MH", Name: "Maharashtra"}, {Code: "KA", Name: "Karnataka"}}, nil
}

func (fakeReference) Cities(_ context.Context, _, state string) ([]models.City, error) {
	if state == "MH" {
		return []models.City{{ID: 133024, Name: "Pune"}, {ID: 133025, Name: "Mumbai"}}, nil
	}
	return nil, nil
}

type app struct {
	e          *echo.Echo
	sender     *capturingSender
	objects    *memObjects
	businesses *memBusinesses
}

func newApp(t *testing.T) *app {
	return newAppWithGeocoder(t, fakeGeocoder{})
}

func newAppWithGeocoder(t *testing.T, geocoder geo.Geocoder) *app {
	logger := zaptest.NewLogger(t)
	mr := miniredis.RunT(t)
	store := repositories.NewOTPStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}))

	a := &app{
		sender:     &capturingSender{codes: map[string]string{}},
		objects:    &memObjects{},
		businesses: &memBusinesses{},
	}

	uploader := upload.NewUploader(a.objects, upload.Options{BaseFolder: "businesses"}, logger)
	coordinator := submission.NewCoordinator(submission.Deps{
		Pipeline:    upload.NewPipeline(uploader, 0, logger),
		Uploader:    uploader,
		Businesses:  a.businesses,
		CountryCode: "+91",
		Logger:      logger,
	})

	validator := wizard.NewValidator(nil)
	factory := controllers.NewSessionFactory(controllers.SessionDeps{
		Provider: verification.NewSMSProvider(store, a.sender, verification.SMSProviderConfig{
			CodeTTL:     10 * time.Minute,
			CountryCode: "+91",
		}, nil, logger),
		Issuer:      verification.NewStoreIssuer(store, 5*time.Minute, nil),
		Cooldown:    time.Minute,
		Geocoder:    geocoder,
		Reference:   fakeReference{},
		Country:     "IN",
		Debounce:    10 * time.Millisecond,
		Submitter:   coordinator,
		Validator:   validator,
		CountryCode: "+91",
		Logger:      logger,
	})
	registry := wizard.NewRegistry(factory, time.Hour, logger)

	oc := controllers.NewOnboardingController(registry, fakeReference{}, nil, controllers.OnboardingConfig{
		JWTSecret:     jwtSecret,
		SessionTTL:    time.Hour,
		Country:       "IN",
		CountryCode:   "+91",
		MaxAssetBytes: 1 << 20,
	}, logger)

	a.e = echo.New()
	a.e.Validator = controllers.NewCustomValidator(validator)
	routes.RegisterOnboardingRoutes(a.e, oc, jwtSecret, nil)
	return a
}

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (a *app) call(t *testing.T, method, path, token string, body interface{}) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, "/api/onboarding"+path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return a.serve(t, req, token)
}

func (a *app) attach(t *testing.T, token, field, filename string, data []byte) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/onboarding/sessions/current/assets/"+field, &buf)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	return a.serve(t, req, token)
}

func (a *app) serve(t *testing.T, req *http.Request, token string) (int, envelope) {
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec.Code, env
}

func (a *app) start(t *testing.T) string {
	code, env := a.call(t, http.MethodPost, "/sessions", "", nil)
	require.Equal(t, http.StatusCreated, code)

	var created struct {
		SessionID string             `json:"sessionId"`
		Token     string             `json:"token"`
		State     models.WizardState `json:"state"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &created))
	require.NotEmpty(t, created.Token)
	assert.Equal(t, created.SessionID, created.State.SessionID)
	assert.Equal(t, 1, created.State.CurrentStep)
	return created.Token
}

func pngBytes(t *testing.T) []byte {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func decode(t *testing.T, env envelope, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(env.Data, v))
}

func stepOne() map[string]interface{} {
	return map[string]interface{}{
		"businessName": "Joe's Cafe",
		"businessType": models.BusinessTypeRestaurant,
		"description":  "Freshly roasted coffee and breakfast all day.",
		"categories":   []string{"cafe"},
	}
}

func stepTwo() map[string]interface{} {
	return map[string]interface{}{
		"ownerName": "Joe",
		"phone":     "9876543210",
		"email":     "joe@cafe.in",
		"address":   "12 MG Road",
		"stateCode": "MH",
		"stateName": "Maharashtra",
		"cityId":    133024,
		"cityName":  "Pune",
	}
}

func (a *app) verifyPhone(t *testing.T, token string) {
	code, env := a.call(t, http.MethodPost, "/sessions/current/otp/challenge", token, nil)
	require.Equal(t, http.StatusOK, code, env.Message)
	var challenge verification.Challenge
	decode(t, env, &challenge)

	code, env = a.call(t, http.MethodPost, "/sessions/current/otp/send", token, map[string]string{"challengeToken": challenge.Token})
	require.Equal(t, http.StatusOK, code, env.Message)
	otp := a.sender.code("+919876543210")
	require.Len(t, otp, 6)

	code, env = a.call(t, http.MethodPost, "/sessions/current/otp/verify", token, map[string]string{"code": otp})
	require.Equal(t, http.StatusOK, code, env.Message)
	var session models.VerificationSession
	decode(t, env, &session)
	assert.Equal(t, models.VerificationDone, session.State)
}

func (a *app) advance(t *testing.T, token string, want int) {
	t.Helper()
	code, env := a.call(t, http.MethodPost, "/sessions/current/advance", token, nil)
	require.Equal(t, http.StatusOK, code, string(env.Data))
	var st models.WizardState
	decode(t, env, &st)
	require.Equal(t, want, st.CurrentStep)
}

func (a *app) completeSteps(t *testing.T, token string) {
	img := pngBytes(t)

	code, _ := a.call(t, http.MethodPatch, "/sessions/current/steps/1", token, stepOne())
	require.Equal(t, http.StatusOK, code)
	code, _ = a.attach(t, token, "logo", "logo.png", img)
	require.Equal(t, http.StatusCreated, code)
	a.advance(t, token, 2)

	code, _ = a.call(t, http.MethodPatch, "/sessions/current/steps/2", token, stepTwo())
	require.Equal(t, http.StatusOK, code)
	a.verifyPhone(t, token)
	a.advance(t, token, 3)

	for _, field := range []string{"governmentId", "verificationDocument", "businessPhotos", "businessPhotos", "businessPhotos"} {
		code, env := a.attach(t, token, field, field+".png", img)
		require.Equal(t, http.StatusCreated, code, env.Message)
	}
	a.advance(t, token, 4)

	code, _ = a.call(t, http.MethodPatch, "/sessions/current/steps/4", token, map[string]interface{}{
		"paymentMethods": []string{models.PaymentCash},
	})
	require.Equal(t, http.StatusOK, code)
	a.advance(t, token, 5)
}

func TestOnboarding_FullFlow(t *testing.T) {
	a := newApp(t)
	token := a.start(t)
	a.completeSteps(t, token)

	code, _ := a.call(t, http.MethodPatch, "/sessions/current/steps/5", token, map[string]bool{
		"termsAccepted":    true,
		"detailsConfirmed": true,
	})
	require.Equal(t, http.StatusOK, code)

	code, env := a.call(t, http.MethodPost, "/sessions/current/submit", token, nil)
	require.Equal(t, http.StatusCreated, code, env.Message)

	var out struct {
		BusinessID string          `json:"businessId"`
		Business   models.Business `json:"business"`
	}
	decode(t, env, &out)
	assert.Equal(t, "Joe_s_Cafe", out.BusinessID)
	assert.Equal(t, "joe@cafe.in", out.Business.Email)
	require.Len(t, out.Business.BusinessPhotos, 3)
	assert.Equal(t, "businesses/Joe_s_Cafe/Verification/businessPhoto_1.png", out.Business.BusinessPhotos[0].PublicID)
	require.NotNil(t, out.Business.Logo)
	assert.Equal(t, "businesses/Joe_s_Cafe/Profile/logo.png", out.Business.Logo.PublicID)

	require.Len(t, a.businesses.saved, 1)
	assert.Len(t, a.objects.paths, 6)

	code, _ = a.call(t, http.MethodGet, "/sessions/current", token, nil)
	assert.Equal(t, http.StatusNotFound, code, "the session ends after submission")
}

func TestOnboarding_SubmitUploadFailure(t *testing.T) {
	a := newApp(t)
	token := a.start(t)
	a.completeSteps(t, token)
	a.call(t, http.MethodPatch, "/sessions/current/steps/5", token, map[string]bool{"termsAccepted": true, "detailsConfirmed": true})
	a.objects.fail = true

	code, env := a.call(t, http.MethodPost, "/sessions/current/submit", token, nil)
	assert.Equal(t, http.StatusBadGateway, code)
	assert.Equal(t, submission.UploadFailedMessage, env.Message)
	assert.Empty(t, a.businesses.saved)

	code, _ = a.call(t, http.MethodGet, "/sessions/current", token, nil)
	assert.Equal(t, http.StatusOK, code, "the session survives a failed submission")
}

func TestOnboarding_SubmitNeedsConsent(t *testing.T) {
	a := newApp(t)
	token := a.start(t)
	a.completeSteps(t, token)

	code, env := a.call(t, http.MethodPost, "/sessions/current/submit", token, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, code)

	var res struct {
		Errors models.FieldErrors `json:"errors"`
	}
	decode(t, env, &res)
	assert.Contains(t, res.Errors, "termsAccepted")
	assert.Contains(t, res.Errors, "detailsConfirmed")
	assert.Empty(t, a.businesses.saved)
}

func TestOnboarding_RequiresToken(t *testing.T) {
	a := newApp(t)

	code, _ := a.call(t, http.MethodGet, "/sessions/current", "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestOnboarding_SaveStepReportsErrors(t *testing.T) {
	a := newApp(t)
	token := a.start(t)

	patch := stepOne()
	patch["description"] = strings.Repeat("x", 19)
	code, env := a.call(t, http.MethodPatch, "/sessions/current/steps/1", token, patch)
	require.Equal(t, http.StatusOK, code)

	var res struct {
		State  models.WizardState `json:"state"`
		Errors models.FieldErrors `json:"errors"`
	}
	decode(t, env, &res)
	assert.Equal(t, "must be at least 20 characters", res.Errors["description"])
	assert.Equal(t, "logo is required", res.Errors["logo"])
	assert.Equal(t, "Joe's Cafe", res.State.Aggregate.BusinessName)

	code, env = a.call(t, http.MethodPost, "/sessions/current/advance", token, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	decode(t, env, &res)
	assert.Equal(t, 1, res.State.CurrentStep)
}

func TestOnboarding_ForeignFieldRejected(t *testing.T) {
	a := newApp(t)
	token := a.start(t)

	code, _ := a.call(t, http.MethodPatch, "/sessions/current/steps/1", token, map[string]string{"email": "joe@cafe.in"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = a.call(t, http.MethodPatch, "/sessions/current/steps/9", token, map[string]string{})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestOnboarding_PhoneMustBeVerified(t *testing.T) {
	a := newApp(t)
	token := a.start(t)

	code, env := a.call(t, http.MethodPatch, "/sessions/current/steps/2", token, stepTwo())
	require.Equal(t, http.StatusOK, code)
	var res struct {
		Errors models.FieldErrors `json:"errors"`
	}
	decode(t, env, &res)
	assert.Equal(t, models.FieldErrors{"phone": "phone number must be verified"}, res.Errors)
}

func TestOnboarding_ChallengeOfAnotherSession(t *testing.T) {
	a := newApp(t)
	owner := a.start(t)
	other := a.start(t)

	_, env := a.call(t, http.MethodPost, "/sessions/current/otp/challenge", owner, nil)
	var challenge verification.Challenge
	decode(t, env, &challenge)

	code, _ := a.call(t, http.MethodPost, "/sessions/current/otp/send", other, map[string]string{"phone": "9123456780", "challengeToken": challenge.Token})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Empty(t, a.sender.code("+919123456780"))

	code, env = a.call(t, http.MethodPost, "/sessions/current/otp/send", owner, map[string]string{"phone": "9876543210", "challengeToken": challenge.Token})
	require.Equal(t, http.StatusOK, code, env.Message)
}

func TestOnboarding_OTPErrors(t *testing.T) {
	a := newApp(t)
	token := a.start(t)

	code, _ := a.call(t, http.MethodPost, "/sessions/current/otp/verify", token, map[string]string{"code": "123456"})
	assert.Equal(t, http.StatusConflict, code, "no code requested yet")

	code, _ = a.call(t, http.MethodPost, "/sessions/current/otp/send", token, map[string]string{"phone": "12345", "challengeToken": "x"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = a.call(t, http.MethodPost, "/sessions/current/otp/send", token, map[string]string{"phone": "9876543210", "challengeToken": "forged"})
	assert.Equal(t, http.StatusBadRequest, code, "unknown challenge")

	_, env := a.call(t, http.MethodPost, "/sessions/current/otp/challenge", token, nil)
	var challenge verification.Challenge
	decode(t, env, &challenge)
	code, _ = a.call(t, http.MethodPost, "/sessions/current/otp/send", token, map[string]string{"challengeToken": challenge.Token})
	require.Equal(t, http.StatusOK, code)

	code, _ = a.call(t, http.MethodPost, "/sessions/current/otp/verify", token, map[string]string{"code": "12"})
	assert.Equal(t, http.StatusBadRequest, code)

	wrong := "000000"
	if a.sender.code("+919876543210") == wrong {
		wrong = "111111"
	}
	code, env = a.call(t, http.MethodPost, "/sessions/current/otp/verify", token, map[string]string{"code": wrong})
	assert.Equal(t, http.StatusBadRequest, code)
	var session models.VerificationSession
	decode(t, env, &session)
	assert.Equal(t, models.VerificationFailed, session.Status)
	assert.Equal(t, 1, session.FailedAttempts)

	code, _ = a.call(t, http.MethodPost, "/sessions/current/otp/resend", token, map[string]string{"challengeToken": "whatever"})
	assert.Equal(t, http.StatusTooManyRequests, code, "cooldown is running")
}

func TestOnboarding_ResolveAddress(t *testing.T) {
	a := newApp(t)
	token := a.start(t)

	code, env := a.call(t, http.MethodPost, "/sessions/current/geo/address", token, map[string]string{"address": "12 MG Road Pune"})
	require.Equal(t, http.StatusOK, code, env.Message)

	var res struct {
		Resolution models.GeoResolution `json:"resolution"`
		State      models.WizardState   `json:"state"`
	}
	decode(t, env, &res)
	assert.Equal(t, "MH", res.Resolution.StateCode)
	assert.Equal(t, 133024, res.Resolution.CityID)
	assert.Equal(t, "MH", res.State.Aggregate.StateCode)
	assert.Equal(t, "Pune", res.State.Aggregate.CityName)
	require.NotNil(t, res.State.Aggregate.Coordinates)
	assert.InDelta(t, 18.52, res.State.Aggregate.Coordinates.Lat, 1e-9)
}

func TestOnboarding_ResolveCoordinatesValidates(t *testing.T) {
	a := newApp(t)
	token := a.start(t)

	code, _ := a.call(t, http.MethodPost, "/sessions/current/geo/coordinates", token, map[string]float64{"lat": 123, "lng": 0})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = a.call(t, http.MethodPost, "/sessions/current/geo/coordinates", token, map[string]float64{"lat": 18.52, "lng": 73.85})
	assert.Equal(t, http.StatusOK, code)
}

func TestOnboarding_GeoWithoutGeocoder(t *testing.T) {
	a := newAppWithGeocoder(t, nil)
	token := a.start(t)

	code, env := a.call(t, http.MethodPost, "/sessions/current/geo/coordinates", token, map[string]float64{"lat": 18.52, "lng": 73.85})
	require.Equal(t, http.StatusOK, code, env.Message)

	var res struct {
		Resolution models.GeoResolution `json:"resolution"`
	}
	decode(t, env, &res)
	assert.Equal(t, []string{"address lookup unavailable"}, res.Resolution.Warnings)
	require.NotNil(t, res.Resolution.Coordinates)
	assert.InDelta(t, 18.52, res.Resolution.Coordinates.Lat, 1e-9)
}

func TestOnboarding_Reference(t *testing.T) {
	a := newApp(t)

	code, env := a.call(t, http.MethodGet, "/reference/states", "", nil)
	require.Equal(t, http.StatusOK, code)
	var states []models.State
	decode(t, env, &states)
	assert.Len(t, states, 2)

	code, env = a.call(t, http.MethodGet, "/reference/states/mh/cities", "", nil)
	require.Equal(t, http.StatusOK, code)
	var cities []models.City
	decode(t, env, &cities)
	assert.Len(t, cities, 2)
}

func TestOnboarding_Photos(t *testing.T) {
	a := newApp(t)
	token := a.start(t)

	code, env := a.attach(t, token, "businessPhotos", "p.png", pngBytes(t))
	require.Equal(t, http.StatusCreated, code)
	var asset models.MediaAsset
	decode(t, env, &asset)
	assert.Equal(t, "image/png", asset.ContentType)
	require.NotEmpty(t, asset.ID)

	code, _ = a.call(t, http.MethodDelete, "/sessions/current/assets/businessPhotos/nope", token, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, env = a.call(t, http.MethodDelete, "/sessions/current/assets/businessPhotos/"+asset.ID, token, nil)
	require.Equal(t, http.StatusOK, code)
	var st models.WizardState
	decode(t, env, &st)
	assert.Empty(t, st.Aggregate.BusinessPhotos)

	code, _ = a.attach(t, token, "ownerName", "x.png", pngBytes(t))
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestOnboarding_Leave(t *testing.T) {
	a := newApp(t)
	token := a.start(t)

	code, _ := a.call(t, http.MethodDelete, "/sessions/current", token, nil)
	assert.Equal(t, http.StatusOK, code)

	code, _ = a.call(t, http.MethodGet, "/sessions/current", token, nil)
	assert.Equal(t, http.StatusNotFound, code)
}

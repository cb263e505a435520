package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/HSouheill/barrim_onboarding/config"
	"github.com/HSouheill/barrim_onboarding/controllers"
	"github.com/HSouheill/barrim_onboarding/middleware"
	"github.com/HSouheill/barrim_onboarding/models"
	"github.com/HSouheill/barrim_onboarding/repositories"
	"github.com/HSouheill/barrim_onboarding/routes"
	"github.com/HSouheill/barrim_onboarding/services/geo"
	"github.com/HSouheill/barrim_onboarding/services/submission"
	"github.com/HSouheill/barrim_onboarding/services/upload"
	"github.com/HSouheill/barrim_onboarding/services/verification"
	"github.com/HSouheill/barrim_onboarding/services/wizard"
	"github.com/HSouheill/barrim_onboarding/utils"
	"github.com/HSouheill/barrim_onboarding/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("failed to load config", zap.Error(err))
	}

	logger := config.NewLogger(cfg.Log.Level, cfg.Log.Format)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	mongoClient, err := config.ConnectDB(ctx, cfg.Mongo, logger)
	if err != nil {
		return err
	}
	defer mongoClient.Disconnect(context.Background())
	db := mongoClient.Database(cfg.Mongo.Database)

	redisClient, err := config.ConnectRedis(ctx, cfg.Redis, logger)
	if err != nil {
		return err
	}
	defer redisClient.Close()

	app, err := config.InitFirebase(ctx, cfg.Firebase, logger)
	if err != nil {
		return err
	}
	authClient, err := app.Auth(ctx)
	if err != nil {
		return err
	}
	objects, err := upload.NewFirebaseStore(ctx, app, cfg.Firebase.StorageBucket, logger)
	if err != nil {
		return err
	}

	// Repositories
	otpStore := repositories.NewOTPStore(redisClient)
	businesses := repositories.NewBusinessRepository(db.Collection(models.BusinessesCollection))
	businessUsers := repositories.NewBusinessUserRepository(db.Collection(models.BusinessUsersCollection))

	// Verification
	sms := utils.NewSMSService(cfg.OTP.SMSUsername, cfg.OTP.SMSPassword, cfg.OTP.SMSSenderID, cfg.OTP.SMSAPIURL, logger)
	provider := verification.NewSMSProvider(otpStore, sms, verification.SMSProviderConfig{
		CodeTTL:     cfg.OTP.CodeTTL,
		HourlyQuota: cfg.OTP.HourlyQuota,
		CountryCode: cfg.OTP.CountryCode,
	}, nil, logger)
	issuer := verification.NewStoreIssuer(otpStore, cfg.OTP.ChallengeTTL, nil)

	// Location
	var geocoder geo.Geocoder
	if cfg.Geo.GoogleAPIKey != "" {
		geocoder = geo.NewGoogleGeocoder(cfg.Geo.GoogleAPIKey,
			geo.WithRateLimit(cfg.Geo.RequestsPerSecond),
			geo.WithRegion(cfg.Geo.Country))
	} else {
		logger.Warn("geo.google_api_key not set, address lookup disabled")
	}
	reference := geo.NewCSCClient(cfg.Geo.ReferenceBaseURL, cfg.Geo.ReferenceAPIKey, nil)

	// Submission
	uploader := upload.NewUploader(objects, upload.Options{
		BaseFolder:        cfg.Upload.BaseFolder,
		MaxBytes:          cfg.Upload.MaxBytes,
		MaxImageDimension: cfg.Upload.MaxImageDimension,
	}, logger)
	deps := submission.Deps{
		Pipeline:    upload.NewPipeline(uploader, cfg.Upload.Concurrency, logger),
		Uploader:    uploader,
		Businesses:  businesses,
		Users:       businessUsers,
		Identity:    submission.NewFirebaseIdentity(authClient),
		CountryCode: cfg.OTP.CountryCode,
		Logger:      logger,
	}
	if cfg.Upload.Thumbnails {
		deps.Thumbnail = utils.GenerateVideoThumbnail
	}
	if cfg.Mail.Host != "" {
		deps.Mailer = submission.NewSMTPMailer(cfg.Mail.Host, cfg.Mail.Port, cfg.Mail.Username, cfg.Mail.Password, cfg.Mail.From)
	}
	coordinator := submission.NewCoordinator(deps)

	// Sessions
	hub := websocket.NewHub(logger)
	go hub.Run(ctx)

	validator := wizard.NewValidator(nil)
	registry := wizard.NewRegistry(controllers.NewSessionFactory(controllers.SessionDeps{
		Provider:    provider,
		Issuer:      issuer,
		Cooldown:    cfg.OTP.Cooldown,
		Geocoder:    geocoder,
		Reference:   reference,
		Country:     cfg.Geo.Country,
		Debounce:    cfg.Geo.Debounce,
		Submitter:   coordinator,
		Validator:   validator,
		CountryCode: cfg.OTP.CountryCode,
		Hub:         hub,
		Logger:      logger,
	}), cfg.Server.SessionTTL, logger)
	go registry.Run(ctx, time.Minute)

	onboarding := controllers.NewOnboardingController(registry, reference, hub, controllers.OnboardingConfig{
		JWTSecret:     cfg.Server.JWTSecret,
		SessionTTL:    cfg.Server.SessionTTL,
		Country:       cfg.Geo.Country,
		CountryCode:   cfg.OTP.CountryCode,
		MaxAssetBytes: int64(cfg.Upload.MaxBytes),
	}, logger)

	// Echo
	e := echo.New()
	e.HideBanner = true
	e.Validator = controllers.NewCustomValidator(validator)

	rateLimiter := middleware.NewRateLimiter()
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				rateLimiter.Cleanup()
			}
		}
	}()

	e.Use(echoMiddleware.Logger())
	e.Use(echoMiddleware.Recover())
	e.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	e.Use(rateLimiter.RateLimit())
	e.Use(middleware.SecurityHeaders(middleware.SecurityConfig{
		ImageSources: upload.DefaultRemotePrefixes,
	}))

	e.Match([]string{http.MethodGet, http.MethodHead}, "/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":   "healthy",
			"sessions": "active",
		})
	})

	routes.RegisterOnboardingRoutes(e, onboarding, cfg.Server.JWTSecret, rateLimiter)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", zap.String("port", cfg.Server.Port))
		if err := e.Start(":" + cfg.Server.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

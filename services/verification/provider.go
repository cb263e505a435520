package verification

import (
	"context"
	"crypto/subtle"
	"errors"
	"time"

	"github.com/HSouheill/barrim_onboarding/models"
	"github.com/HSouheill/barrim_onboarding/repositories"
	"github.com/HSouheill/barrim_onboarding/utils"
	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// OTPProvider sends and confirms one-time codes. Send consumes the
// challenge token issued to sessionID and returns an opaque session handle.
type OTPProvider interface {
	Send(ctx context.Context, sessionID, phone, challengeToken string) (string, error)
	Confirm(ctx context.Context, handle, code string) error
}

// SessionStore is the provider-side state an SMSProvider needs.
type SessionStore interface {
	SaveSession(ctx context.Context, otp models.PhoneOTP, ttl time.Duration) error
	Session(ctx context.Context, handle string) (*models.PhoneOTP, error)
	DeleteSession(ctx context.Context, handle string) error
	ConsumeChallenge(ctx context.Context, token, sessionID string) (bool, error)
	IncrementQuota(ctx context.Context, phone string, window time.Duration) (int64, error)
}

// Sender delivers a code to an E.164 number.
type Sender interface {
	SendOTP(ctx context.Context, phoneNumber, otp string) error
}

// SMSProviderConfig configures an SMSProvider.
type SMSProviderConfig struct {
	CodeTTL     time.Duration
	HourlyQuota int // 0 = unlimited
	CountryCode string
}

// SMSProvider generates codes, keeps them in the session store and sends
// them through an SMS gateway.
type SMSProvider struct {
	store    SessionStore
	sender   Sender
	cfg      SMSProviderConfig
	clock    Clock
	generate func() (string, error)
	logger   *zap.Logger
}

func NewSMSProvider(store SessionStore, sender Sender, cfg SMSProviderConfig, clock Clock, logger *zap.Logger) *SMSProvider {
	if clock == nil {
		clock = SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SMSProvider{
		store:    store,
		sender:   sender,
		cfg:      cfg,
		clock:    clock,
		generate: utils.GenerateSecureOTP,
		logger:   logger,
	}
}

func (p *SMSProvider) Send(ctx context.Context, sessionID, phone, challengeToken string) (string, error) {
	ok, err := p.store.ConsumeChallenge(ctx, challengeToken, sessionID)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrChallengeInvalid
	}

	if p.cfg.HourlyQuota > 0 {
		n, err := p.store.IncrementQuota(ctx, phone, time.Hour)
		if err != nil {
			return "", err
		}
		if n > int64(p.cfg.HourlyQuota) {
			p.logger.Warn("otp quota exceeded", zap.String("phone", utils.MaskPhone(phone)))
			return "", ErrQuotaExceeded
		}
	}

	code, err := p.generate()
	if err != nil {
		return "", eris.Wrap(err, "failed to generate otp")
	}

	otp := models.PhoneOTP{
		Handle:    uuid.NewString(),
		Phone:     phone,
		OTP:       code,
		ExpiresAt: p.clock.Now().Add(p.cfg.CodeTTL),
	}
	if err := p.store.SaveSession(ctx, otp, p.cfg.CodeTTL); err != nil {
		return "", err
	}

	if err := p.sender.SendOTP(ctx, utils.ToE164(phone, p.cfg.CountryCode), code); err != nil {
		_ = p.store.DeleteSession(ctx, otp.Handle)
		return "", eris.Wrap(err, "failed to deliver otp")
	}

	p.logger.Info("otp sent", zap.String("phone", utils.MaskPhone(phone)))
	return otp.Handle, nil
}

func (p *SMSProvider) Confirm(ctx context.Context, handle, code string) error {
	otp, err := p.store.Session(ctx, handle)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrInvalidOTP
		}
		return err
	}
	if p.clock.Now().After(otp.ExpiresAt) {
		_ = p.store.DeleteSession(ctx, handle)
		return ErrInvalidOTP
	}
	if subtle.ConstantTimeCompare([]byte(otp.OTP), []byte(code)) != 1 {
		return ErrInvalidOTP
	}
	return p.store.DeleteSession(ctx, handle)
}

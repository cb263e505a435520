package verification

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/HSouheill/barrim_onboarding/models"
	"github.com/HSouheill/barrim_onboarding/utils"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// DefaultCooldown is the wait between two sends.
const DefaultCooldown = 60 * time.Second

// Options configures a Machine.
type Options struct {
	Cooldown     time.Duration
	TickInterval time.Duration
	Clock        Clock
	// SessionID is the wizard session challenges are issued to.
	SessionID string
	// OnTick receives the remaining cooldown seconds while it runs.
	OnTick func(remaining int)
}

// Machine is the phone verification state of one onboarding session:
// idle, sent or verified. At most one session handle is live at a time.
type Machine struct {
	mu        sync.Mutex
	provider  OTPProvider
	issuer    ChallengeIssuer
	countdown *Countdown
	clock     Clock
	onTick    func(int)
	sessionID string
	logger    *zap.Logger

	state     models.VerificationState
	status    models.VerificationStatus
	phone     string
	handle    string
	sentAt    *time.Time
	lastToken string
	challenge *Challenge
	verified  string
	failed    int
}

func NewMachine(provider OTPProvider, issuer ChallengeIssuer, opts Options, logger *zap.Logger) *Machine {
	if opts.Cooldown <= 0 {
		opts.Cooldown = DefaultCooldown
	}
	if opts.Clock == nil {
		opts.Clock = SystemClock{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Machine{
		provider:  provider,
		issuer:    issuer,
		countdown: NewCountdown(opts.Cooldown, opts.TickInterval, opts.Clock),
		clock:     opts.Clock,
		onTick:    opts.OnTick,
		sessionID: opts.SessionID,
		logger:    logger,
		state:     models.VerificationIdle,
	}
}

// NewChallenge clears the previously issued challenge and issues a fresh one.
func (m *Machine) NewChallenge(ctx context.Context) (*Challenge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.challenge != nil {
		if err := m.issuer.Clear(ctx, m.challenge); err != nil {
			m.logger.Warn("failed to clear challenge", zap.Error(err))
		}
		m.challenge = nil
	}

	c, err := m.issuer.Issue(ctx, m.sessionID)
	if err != nil {
		return nil, err
	}
	m.challenge = c
	return c, nil
}

// SendOTP sends a code to phone. Sending to a different number drops the
// previous session and any verification of the old number.
func (m *Machine) SendOTP(ctx context.Context, phone string, challenge *Challenge) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !utils.IsValidPhone10(phone) {
		return ErrInvalidPhone
	}
	if m.state == models.VerificationDone && phone == m.verified {
		return nil
	}
	if phone != m.phone {
		m.resetLocked()
	}
	return m.sendLocked(ctx, phone, challenge)
}

// ResendOTP sends a new code to the current number once the cooldown ran
// out. It needs a challenge issued after the previous send.
func (m *Machine) ResendOTP(ctx context.Context, challenge *Challenge) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != models.VerificationSent {
		return ErrNoSession
	}
	if m.countdown.Remaining() > 0 {
		return ErrCooldownActive
	}
	return m.sendLocked(ctx, m.phone, challenge)
}

func (m *Machine) sendLocked(ctx context.Context, phone string, challenge *Challenge) error {
	if challenge == nil || challenge.Token == "" || challenge.Token == m.lastToken {
		return ErrChallengeInvalid
	}

	handle, err := m.provider.Send(ctx, m.sessionID, phone, challenge.Token)
	m.lastToken = challenge.Token
	if m.challenge != nil && m.challenge.Token == challenge.Token {
		m.challenge = nil
	}
	if err != nil {
		m.logger.Warn("otp send failed",
			zap.String("phone", utils.MaskPhone(phone)),
			zap.Error(err))
		return err
	}

	now := m.clock.Now()
	m.state = models.VerificationSent
	m.status = models.VerificationPending
	m.phone = phone
	m.handle = handle
	m.sentAt = &now
	m.failed = 0
	m.countdown.Start(m.onTick)
	return nil
}

// VerifyOTP confirms code against the live session.
func (m *Machine) VerifyOTP(ctx context.Context, code string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.handle == "" {
		return ErrNoSession
	}
	if !utils.IsValidOTPCode(code) {
		return ErrInvalidCodeLength
	}

	if err := m.provider.Confirm(ctx, m.handle, code); err != nil {
		if errors.Is(err, ErrInvalidOTP) {
			m.failed++
			m.status = models.VerificationFailed
			return ErrInvalidOTP
		}
		return eris.Wrap(err, "failed to confirm otp")
	}

	m.state = models.VerificationDone
	m.status = models.VerificationVerified
	m.verified = m.phone
	m.handle = ""
	m.countdown.Stop()

	m.logger.Info("phone verified", zap.String("phone", utils.MaskPhone(m.phone)))
	return nil
}

// IsVerified reports whether phone is the number that was confirmed.
func (m *Machine) IsVerified(phone string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state == models.VerificationDone && phone != "" && phone == m.verified
}

// Snapshot returns the externally visible session.
func (m *Machine) Snapshot() models.VerificationSession {
	m.mu.Lock()
	defer m.mu.Unlock()

	outstanding := 0
	if m.handle != "" {
		outstanding = 1
	}
	return models.VerificationSession{
		State:               m.state,
		PhoneNumber:         m.phone,
		SentAt:              m.sentAt,
		CooldownRemaining:   m.countdown.Remaining(),
		Status:              m.status,
		AttemptsOutstanding: outstanding,
		FailedAttempts:      m.failed,
	}
}

// Teardown stops the countdown and forgets, without revoking, the live
// session. A confirmed number stays confirmed.
func (m *Machine) Teardown() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.countdown.Stop()
	if m.state == models.VerificationSent {
		m.state = models.VerificationIdle
		m.status = ""
		m.handle = ""
	}
}

func (m *Machine) resetLocked() {
	m.countdown.Stop()
	m.state = models.VerificationIdle
	m.status = ""
	m.phone = ""
	m.handle = ""
	m.sentAt = nil
	m.verified = ""
	m.failed = 0
}

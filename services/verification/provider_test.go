package verification

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/HSouheill/barrim_onboarding/repositories"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type recordingSender struct {
	mu   sync.Mutex
	to   []string
	code []string
	err  error
}

func (s *recordingSender) SendOTP(_ context.Context, phoneNumber, otp string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.to = append(s.to, phoneNumber)
	s.code = append(s.code, otp)
	return nil
}

func newRedisProvider(t *testing.T, quota int) (*SMSProvider, *StoreIssuer, *recordingSender, *fakeClock) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	store := repositories.NewOTPStore(client)
	clock := newFakeClock()
	sender := &recordingSender{}
	provider := NewSMSProvider(store, sender, SMSProviderConfig{
		CodeTTL:     10 * time.Minute,
		HourlyQuota: quota,
		CountryCode: "+91",
	}, clock, zaptest.NewLogger(t))
	provider.generate = func() (string, error) { return "654321", nil }

	return provider, NewStoreIssuer(store, 5*time.Minute, clock), sender, clock
}

func TestSMSProvider_SendAndConfirm(t *testing.T) {
	provider, issuer, sender, _ := newRedisProvider(t, 5)
	ctx := context.Background()

	c, err := issuer.Issue(ctx, "s1")
	require.NoError(t, err)

	handle, err := provider.Send(ctx, "s1", "9876543210", c.Token)
	require.NoError(t, err)
	assert.NotEmpty(t, handle)
	assert.Equal(t, []string{"+919876543210"}, sender.to)
	assert.Equal(t, []string{"654321"}, sender.code)

	assert.ErrorIs(t, provider.Confirm(ctx, handle, "111111"), ErrInvalidOTP)
	require.NoError(t, provider.Confirm(ctx, handle, "654321"))

	// The session is gone once confirmed.
	assert.ErrorIs(t, provider.Confirm(ctx, handle, "654321"), ErrInvalidOTP)
}

func TestSMSProvider_RejectsStaleChallenge(t *testing.T) {
	provider, issuer, sender, _ := newRedisProvider(t, 5)
	ctx := context.Background()

	c, err := issuer.Issue(ctx, "s1")
	require.NoError(t, err)
	_, err = provider.Send(ctx, "s1", "9876543210", c.Token)
	require.NoError(t, err)

	_, err = provider.Send(ctx, "s1", "9876543210", c.Token)
	assert.ErrorIs(t, err, ErrChallengeInvalid)

	_, err = provider.Send(ctx, "s1", "9876543210", "never-issued")
	assert.ErrorIs(t, err, ErrChallengeInvalid)

	cleared, err := issuer.Issue(ctx, "s1")
	require.NoError(t, err)
	require.NoError(t, issuer.Clear(ctx, cleared))
	_, err = provider.Send(ctx, "s1", "9876543210", cleared.Token)
	assert.ErrorIs(t, err, ErrChallengeInvalid)

	assert.Len(t, sender.to, 1)
}

func TestSMSProvider_ChallengeBoundToSession(t *testing.T) {
	provider, issuer, sender, _ := newRedisProvider(t, 5)
	ctx := context.Background()

	c, err := issuer.Issue(ctx, "s1")
	require.NoError(t, err)

	_, err = provider.Send(ctx, "s2", "9123456780", c.Token)
	assert.ErrorIs(t, err, ErrChallengeInvalid)
	assert.Empty(t, sender.to)

	_, err = provider.Send(ctx, "s1", "9876543210", c.Token)
	require.NoError(t, err)
	assert.Equal(t, []string{"+919876543210"}, sender.to)
}

func TestSMSProvider_Quota(t *testing.T) {
	provider, issuer, _, _ := newRedisProvider(t, 2)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		c, err := issuer.Issue(ctx, "s1")
		require.NoError(t, err)
		_, err = provider.Send(ctx, "s1", "9876543210", c.Token)
		require.NoError(t, err)
	}

	c, err := issuer.Issue(ctx, "s1")
	require.NoError(t, err)
	_, err = provider.Send(ctx, "s1", "9876543210", c.Token)
	assert.ErrorIs(t, err, ErrQuotaExceeded)

	// Other numbers have their own quota.
	c, err = issuer.Issue(ctx, "s1")
	require.NoError(t, err)
	_, err = provider.Send(ctx, "s1", "9123456780", c.Token)
	assert.NoError(t, err)
}

func TestSMSProvider_ExpiredCode(t *testing.T) {
	provider, issuer, _, clock := newRedisProvider(t, 0)
	ctx := context.Background()

	c, err := issuer.Issue(ctx, "s1")
	require.NoError(t, err)
	handle, err := provider.Send(ctx, "s1", "9876543210", c.Token)
	require.NoError(t, err)

	clock.Advance(11 * time.Minute)
	assert.ErrorIs(t, provider.Confirm(ctx, handle, "654321"), ErrInvalidOTP)
}

func TestSMSProvider_DeliveryFailureDropsSession(t *testing.T) {
	provider, issuer, sender, _ := newRedisProvider(t, 0)
	sender.err = errors.New("gateway down")
	ctx := context.Background()

	c, err := issuer.Issue(ctx, "s1")
	require.NoError(t, err)
	_, err = provider.Send(ctx, "s1", "9876543210", c.Token)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gateway down")
}

func TestMachine_WithSMSProvider(t *testing.T) {
	provider, issuer, _, clock := newRedisProvider(t, 5)
	m := NewMachine(provider, issuer, Options{Clock: clock}, zaptest.NewLogger(t))
	ctx := context.Background()

	c, err := m.NewChallenge(ctx)
	require.NoError(t, err)
	require.NoError(t, m.SendOTP(ctx, "9876543210", c))
	require.NoError(t, m.VerifyOTP(ctx, "654321"))
	assert.True(t, m.IsVerified("9876543210"))
}

package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/HSouheill/barrim_onboarding/models"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOTPStore(t *testing.T) (*OTPStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewOTPStore(client), mr
}

func TestOTPStore_SessionRoundTrip(t *testing.T) {
	store, mr := newTestOTPStore(t)
	ctx := context.Background()

	otp := models.PhoneOTP{
		Handle:    "h-1",
		Phone:     "9876543210",
		OTP:       "123456",
		ExpiresAt: time.Now().Add(10 * time.Minute).UTC().Truncate(time.Second),
	}
	require.NoError(t, store.SaveSession(ctx, otp, 10*time.Minute))

	got, err := store.Session(ctx, "h-1")
	require.NoError(t, err)
	assert.Equal(t, otp.Phone, got.Phone)
	assert.Equal(t, otp.OTP, got.OTP)
	assert.True(t, otp.ExpiresAt.Equal(got.ExpiresAt))

	mr.FastForward(11 * time.Minute)
	_, err = store.Session(ctx, "h-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOTPStore_DeleteSession(t *testing.T) {
	store, _ := newTestOTPStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveSession(ctx, models.PhoneOTP{Handle: "h-2", OTP: "111111"}, time.Minute))
	require.NoError(t, store.DeleteSession(ctx, "h-2"))

	_, err := store.Session(ctx, "h-2")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOTPStore_ChallengeSingleUse(t *testing.T) {
	store, mr := newTestOTPStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveChallenge(ctx, "tok", "s1", time.Minute))

	ok, err := store.ConsumeChallenge(ctx, "tok", "s1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.ConsumeChallenge(ctx, "tok", "s1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.SaveChallenge(ctx, "late", "s1", time.Minute))
	mr.FastForward(2 * time.Minute)
	ok, err = store.ConsumeChallenge(ctx, "late", "s1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOTPStore_ChallengeOwnedBySession(t *testing.T) {
	store, _ := newTestOTPStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveChallenge(ctx, "tok", "s1", time.Minute))

	ok, err := store.ConsumeChallenge(ctx, "tok", "s2")
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = store.ConsumeChallenge(ctx, "tok", "s1")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, store.SaveChallenge(ctx, "gone", "s1", time.Minute))
	require.NoError(t, store.DeleteChallenge(ctx, "gone"))
	ok, err = store.ConsumeChallenge(ctx, "gone", "s1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOTPStore_IncrementQuota(t *testing.T) {
	store, mr := newTestOTPStore(t)
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		n, err := store.IncrementQuota(ctx, "9876543210", time.Hour)
		require.NoError(t, err)
		assert.Equal(t, want, n)
	}

	mr.FastForward(time.Hour + time.Second)
	n, err := store.IncrementQuota(ctx, "9876543210", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

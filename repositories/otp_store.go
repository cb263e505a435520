package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/HSouheill/barrim_onboarding/models"
	"github.com/go-redis/redis/v8"
	"github.com/rotisserie/eris"
)

const (
	otpSessionPrefix   = "otp_session:%s"
	otpChallengePrefix = "otp_challenge:%s"
	otpQuotaPrefix     = "otp_quota:%s"
)

// OTPStore keeps OTP sessions, anti-abuse challenges and send quotas in Redis.
type OTPStore struct {
	client *redis.Client
}

func NewOTPStore(client *redis.Client) *OTPStore {
	return &OTPStore{client: client}
}

// SaveSession stores a sent code under its handle.
func (s *OTPStore) SaveSession(ctx context.Context, otp models.PhoneOTP, ttl time.Duration) error {
	data, err := json.Marshal(otp)
	if err != nil {
		return eris.Wrap(err, "failed to encode otp session")
	}
	key := fmt.Sprintf(otpSessionPrefix, otp.Handle)
	if err := s.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return eris.Wrap(err, "failed to store otp session")
	}
	return nil
}

// Session loads the session for handle.
func (s *OTPStore) Session(ctx context.Context, handle string) (*models.PhoneOTP, error) {
	key := fmt.Sprintf(otpSessionPrefix, handle)
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrNotFound
		}
		return nil, eris.Wrap(err, "failed to load otp session")
	}

	var otp models.PhoneOTP
	if err := json.Unmarshal(data, &otp); err != nil {
		return nil, eris.Wrap(err, "failed to decode otp session")
	}
	return &otp, nil
}

// DeleteSession removes the session for handle.
func (s *OTPStore) DeleteSession(ctx context.Context, handle string) error {
	key := fmt.Sprintf(otpSessionPrefix, handle)
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return eris.Wrap(err, "failed to delete otp session")
	}
	return nil
}

// consumeChallenge deletes the token only when it belongs to the session.
var consumeChallenge = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// SaveChallenge registers a challenge token for sessionID until ttl passes.
func (s *OTPStore) SaveChallenge(ctx context.Context, token, sessionID string, ttl time.Duration) error {
	key := fmt.Sprintf(otpChallengePrefix, token)
	if err := s.client.Set(ctx, key, sessionID, ttl).Err(); err != nil {
		return eris.Wrap(err, "failed to store challenge")
	}
	return nil
}

// ConsumeChallenge deletes token and reports whether it was still live and
// issued to sessionID. A token can be consumed at most once, and a token of
// another session is left in place.
func (s *OTPStore) ConsumeChallenge(ctx context.Context, token, sessionID string) (bool, error) {
	key := fmt.Sprintf(otpChallengePrefix, token)
	n, err := consumeChallenge.Run(ctx, s.client, []string{key}, sessionID).Int()
	if err != nil {
		return false, eris.Wrap(err, "failed to consume challenge")
	}
	return n == 1, nil
}

// DeleteChallenge drops token whether or not it was used.
func (s *OTPStore) DeleteChallenge(ctx context.Context, token string) error {
	key := fmt.Sprintf(otpChallengePrefix, token)
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return eris.Wrap(err, "failed to delete challenge")
	}
	return nil
}

// IncrementQuota counts one send for phone in the current window and
// returns the count so far. The window starts with the first send.
func (s *OTPStore) IncrementQuota(ctx context.Context, phone string, window time.Duration) (int64, error) {
	key := fmt.Sprintf(otpQuotaPrefix, phone)
	n, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, eris.Wrap(err, "failed to increment otp quota")
	}
	if n == 1 {
		if err := s.client.Expire(ctx, key, window).Err(); err != nil {
			return 0, eris.Wrap(err, "failed to set otp quota window")
		}
	}
	return n, nil
}

package verification

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
)

// Challenge is an anti-abuse token that authorises exactly one send from
// the session it was issued to.
type Challenge struct {
	Token     string    `json:"token"`
	IssuedAt  time.Time `json:"issuedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ChallengeIssuer creates and clears challenges.
type ChallengeIssuer interface {
	Issue(ctx context.Context, sessionID string) (*Challenge, error)
	Clear(ctx context.Context, c *Challenge) error
}

// ChallengeStore persists live challenge tokens.
type ChallengeStore interface {
	SaveChallenge(ctx context.Context, token, sessionID string, ttl time.Duration) error
	ConsumeChallenge(ctx context.Context, token, sessionID string) (bool, error)
	DeleteChallenge(ctx context.Context, token string) error
}

// StoreIssuer issues challenges backed by a ChallengeStore.
type StoreIssuer struct {
	store ChallengeStore
	ttl   time.Duration
	clock Clock
}

func NewStoreIssuer(store ChallengeStore, ttl time.Duration, clock Clock) *StoreIssuer {
	if clock == nil {
		clock = SystemClock{}
	}
	return &StoreIssuer{store: store, ttl: ttl, clock: clock}
}

func (i *StoreIssuer) Issue(ctx context.Context, sessionID string) (*Challenge, error) {
	now := i.clock.Now()
	c := &Challenge{
		Token:     uuid.NewString(),
		IssuedAt:  now,
		ExpiresAt: now.Add(i.ttl),
	}
	if err := i.store.SaveChallenge(ctx, c.Token, sessionID, i.ttl); err != nil {
		return nil, eris.Wrap(err, "failed to issue challenge")
	}
	return c, nil
}

func (i *StoreIssuer) Clear(ctx context.Context, c *Challenge) error {
	if c == nil || c.Token == "" {
		return nil
	}
	return i.store.DeleteChallenge(ctx, c.Token)
}

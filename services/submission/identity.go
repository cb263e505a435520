package submission

import (
	"context"
	"errors"

	"firebase.google.com/go/v4/auth"
	"github.com/rotisserie/eris"
)

var (
	ErrEmailInUse         = errors.New("email is already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// IdentityUser is the identity provider account of a business.
type IdentityUser struct {
	Email       string
	PhoneNumber string // E.164
	DisplayName string
}

// Identity creates or updates the sign-in account of a business.
type Identity interface {
	EnsureUser(ctx context.Context, u IdentityUser) (string, error)
}

type authClient interface {
	GetUserByEmail(ctx context.Context, email string) (*auth.UserRecord, error)
	CreateUser(ctx context.Context, user *auth.UserToCreate) (*auth.UserRecord, error)
	UpdateUser(ctx context.Context, uid string, user *auth.UserToUpdate) (*auth.UserRecord, error)
}

// FirebaseIdentity keeps the business account in Firebase Authentication,
// keyed by email.
type FirebaseIdentity struct {
	client authClient
}

func NewFirebaseIdentity(client *auth.Client) *FirebaseIdentity {
	return &FirebaseIdentity{client: client}
}

// EnsureUser returns the uid of the account for u.Email, creating it when
// missing and refreshing its profile otherwise.
func (f *FirebaseIdentity) EnsureUser(ctx context.Context, u IdentityUser) (string, error) {
	existing, err := f.client.GetUserByEmail(ctx, u.Email)
	switch {
	case err == nil:
		update := (&auth.UserToUpdate{}).DisplayName(u.DisplayName)
		if u.PhoneNumber != "" && existing.PhoneNumber != u.PhoneNumber {
			update = update.PhoneNumber(u.PhoneNumber)
		}
		rec, err := f.client.UpdateUser(ctx, existing.UID, update)
		if err != nil {
			return "", mapAuthError(err, "failed to update identity user")
		}
		return rec.UID, nil
	case auth.IsUserNotFound(err):
	default:
		return "", mapAuthError(err, "failed to look up identity user")
	}

	create := (&auth.UserToCreate{}).
		Email(u.Email).
		DisplayName(u.DisplayName).
		EmailVerified(false)
	if u.PhoneNumber != "" {
		create = create.PhoneNumber(u.PhoneNumber)
	}
	rec, err := f.client.CreateUser(ctx, create)
	if err != nil {
		return "", mapAuthError(err, "failed to create identity user")
	}
	return rec.UID, nil
}

func mapAuthError(err error, msg string) error {
	switch {
	case auth.IsEmailAlreadyExists(err), auth.IsPhoneNumberAlreadyExists(err):
		return eris.Wrap(ErrEmailInUse, msg)
	case auth.IsUserDisabled(err):
		return eris.Wrap(ErrInvalidCredentials, msg)
	default:
		return eris.Wrap(err, msg)
	}
}

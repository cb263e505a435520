package repositories

import (
	"context"
	"errors"

	"github.com/HSouheill/barrim_onboarding/models"
	"github.com/rotisserie/eris"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// BusinessRepository stores business records keyed by email.
type BusinessRepository struct {
	collection *mongo.Collection
}

func NewBusinessRepository(collection *mongo.Collection) *BusinessRepository {
	return &BusinessRepository{collection: collection}
}

// Upsert writes the record for b.Email, replacing any previous one.
func (r *BusinessRepository) Upsert(ctx context.Context, b models.Business) error {
	_, err := r.collection.ReplaceOne(ctx, bson.M{"email": b.Email}, b, options.Replace().SetUpsert(true))
	return mapWriteError(err, "failed to save business")
}

// FindByEmail returns the business registered under email.
func (r *BusinessRepository) FindByEmail(ctx context.Context, email string) (*models.Business, error) {
	var b models.Business
	if err := r.collection.FindOne(ctx, bson.M{"email": email}).Decode(&b); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, eris.Wrap(err, "failed to load business")
	}
	return &b, nil
}

// FindByBusinessID returns every record sharing businessID.
func (r *BusinessRepository) FindByBusinessID(ctx context.Context, businessID string) ([]models.Business, error) {
	cursor, err := r.collection.Find(ctx, bson.M{"businessId": businessID})
	if err != nil {
		return nil, eris.Wrap(err, "failed to query businesses")
	}
	defer cursor.Close(ctx)

	var out []models.Business
	if err := cursor.All(ctx, &out); err != nil {
		return nil, eris.Wrap(err, "failed to decode businesses")
	}
	return out, nil
}

// BusinessUserRepository stores the authentication-facing business records.
type BusinessUserRepository struct {
	collection *mongo.Collection
}

func NewBusinessUserRepository(collection *mongo.Collection) *BusinessUserRepository {
	return &BusinessUserRepository{collection: collection}
}

// Upsert writes the record for u.Email, replacing any previous one.
func (r *BusinessUserRepository) Upsert(ctx context.Context, u models.BusinessUser) error {
	_, err := r.collection.ReplaceOne(ctx, bson.M{"email": u.Email}, u, options.Replace().SetUpsert(true))
	return mapWriteError(err, "failed to save business user")
}

// FindByEmail returns the business user registered under email.
func (r *BusinessUserRepository) FindByEmail(ctx context.Context, email string) (*models.BusinessUser, error) {
	var u models.BusinessUser
	if err := r.collection.FindOne(ctx, bson.M{"email": email}).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, eris.Wrap(err, "failed to load business user")
	}
	return &u, nil
}

func mapWriteError(err error, msg string) error {
	if err == nil {
		return nil
	}
	if mongo.IsDuplicateKeyError(err) {
		return eris.Wrap(ErrWriteConflict, msg)
	}
	return eris.Wrap(err, msg)
}

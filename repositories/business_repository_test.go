package repositories

import (
	"context"
	"testing"

	"github.com/HSouheill/barrim_onboarding/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func namespace(mt *mtest.T) string {
	return mt.Coll.Database().Name() + "." + mt.Coll.Name()
}

func TestBusinessRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("upsert", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 1},
			bson.E{Key: "nModified", Value: 0},
			bson.E{Key: "upserted", Value: bson.A{bson.D{{Key: "index", Value: 0}, {Key: "_id", Value: "x"}}}},
		))
		repo := NewBusinessRepository(mt.Coll)

		err := repo.Upsert(context.Background(), models.Business{Email: "owner@acme.in", BusinessID: "Acme"})
		require.NoError(t, err)
	})

	mt.Run("upsert duplicate key", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "E11000 duplicate key error",
		}))
		repo := NewBusinessRepository(mt.Coll)

		err := repo.Upsert(context.Background(), models.Business{Email: "owner@acme.in"})
		assert.ErrorIs(t, err, ErrWriteConflict)
	})

	mt.Run("find by email", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(1, namespace(mt), mtest.FirstBatch, bson.D{
			{Key: "businessId", Value: "Acme"},
			{Key: "businessName", Value: "Acme"},
			{Key: "email", Value: "owner@acme.in"},
			{Key: "status", Value: models.BusinessStatusActive},
			{Key: "businessPhotos", Value: bson.A{
				bson.D{{Key: "url", Value: "https://storage.googleapis.com/b/p1.jpg"}, {Key: "publicId", Value: "p1"}},
			}},
		}))
		repo := NewBusinessRepository(mt.Coll)

		b, err := repo.FindByEmail(context.Background(), "owner@acme.in")
		require.NoError(t, err)
		assert.Equal(t, "Acme", b.BusinessID)
		assert.Equal(t, models.BusinessStatusActive, b.Status)
		require.Len(t, b.BusinessPhotos, 1)
		assert.Equal(t, "p1", b.BusinessPhotos[0].PublicID)
	})

	mt.Run("find by email not found", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, namespace(mt), mtest.FirstBatch))
		repo := NewBusinessRepository(mt.Coll)

		_, err := repo.FindByEmail(context.Background(), "nobody@acme.in")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	mt.Run("find by business id", func(mt *mtest.T) {
		ns := namespace(mt)
		mt.AddMockResponses(
			mtest.CreateCursorResponse(1, ns, mtest.FirstBatch, bson.D{{Key: "businessId", Value: "Acme"}, {Key: "email", Value: "a@acme.in"}}),
			mtest.CreateCursorResponse(1, ns, mtest.NextBatch, bson.D{{Key: "businessId", Value: "Acme"}, {Key: "email", Value: "b@acme.in"}}),
			mtest.CreateCursorResponse(0, ns, mtest.NextBatch),
		)
		repo := NewBusinessRepository(mt.Coll)

		list, err := repo.FindByBusinessID(context.Background(), "Acme")
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "b@acme.in", list[1].Email)
	})
}

func TestBusinessUserRepository(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("upsert", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 1}, bson.E{Key: "nModified", Value: 1}))
		repo := NewBusinessUserRepository(mt.Coll)

		err := repo.Upsert(context.Background(), models.BusinessUser{Email: "owner@acme.in", AccountType: models.AccountTypeBusiness})
		assert.NoError(t, err)
	})

	mt.Run("upsert failure", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCommandErrorResponse(mtest.CommandError{Code: 2, Message: "bad value", Name: "BadValue"}))
		repo := NewBusinessUserRepository(mt.Coll)

		err := repo.Upsert(context.Background(), models.BusinessUser{Email: "owner@acme.in"})
		require.Error(t, err)
		assert.NotErrorIs(t, err, ErrWriteConflict)
	})

	mt.Run("find by email", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(1, namespace(mt), mtest.FirstBatch, bson.D{
			{Key: "email", Value: "owner@acme.in"},
			{Key: "accountType", Value: models.AccountTypeBusiness},
			{Key: "phoneVerified", Value: true},
		}))
		repo := NewBusinessUserRepository(mt.Coll)

		u, err := repo.FindByEmail(context.Background(), "owner@acme.in")
		require.NoError(t, err)
		assert.Equal(t, models.AccountTypeBusiness, u.AccountType)
		assert.True(t, u.PhoneVerified)
	})
}

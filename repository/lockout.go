package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/AzielCF/chatbot-platform/domain"
	"github.com/AzielCF/chatbot-platform/mongostore"
)

// LockoutRepository persists the account-lockout counters; the gateway
// keeps a short-TTL Valkey cache in front of this (gateway.Cache), with
// this collection as authoritative.
type LockoutRepository struct {
	coll *mongo.Collection
}

func NewLockoutRepository(store *mongostore.Store) *LockoutRepository {
	return &LockoutRepository{coll: store.DB.Collection(mongostore.CollAccountLockouts)}
}

func (r *LockoutRepository) Get(ctx context.Context, userID string) (*domain.AccountLockout, error) {
	var l domain.AccountLockout
	err := r.coll.FindOne(ctx, bson.M{"user_id": userID}).Decode(&l)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (r *LockoutRepository) Upsert(ctx context.Context, l domain.AccountLockout) error {
	_, err := r.coll.ReplaceOne(ctx, bson.M{"user_id": l.UserID}, l, options.Replace().SetUpsert(true))
	return err
}

func (r *LockoutRepository) Clear(ctx context.Context, userID string) error {
	_, err := r.coll.DeleteOne(ctx, bson.M{"user_id": userID})
	return err
}

// PurgeExpired removes lockouts whose locked_until has passed, the
// hourly cleanup (the TTL index also does this, but the
// service-level sweep keeps behaviour correct even with TTL disabled).
func (r *LockoutRepository) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.coll.DeleteMany(ctx, bson.M{"locked_until": bson.M{"$lte": now}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

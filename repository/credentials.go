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

// CredentialsRepository persists owner accounts, ownership lists, and
// LLM quota state.
type CredentialsRepository struct {
	coll *mongo.Collection
}

func NewCredentialsRepository(store *mongostore.Store) *CredentialsRepository {
	return &CredentialsRepository{coll: store.DB.Collection(mongostore.CollUserAuthCredentials)}
}

func (r *CredentialsRepository) Create(ctx context.Context, cred domain.Credentials) error {
	_, err := r.coll.InsertOne(ctx, cred)
	return err
}

func (r *CredentialsRepository) GetByUserID(ctx context.Context, userID string) (*domain.Credentials, error) {
	var cred domain.Credentials
	err := r.coll.FindOne(ctx, bson.M{"user_id": userID}).Decode(&cred)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cred, nil
}

// AddOwnedBot performs the atomic ownership claim used by the gateway
// proxy on a successful non-admin PUT.
func (r *CredentialsRepository) AddOwnedBot(ctx context.Context, userID, botID string) error {
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"user_id": userID},
		bson.M{"$addToSet": bson.M{"owned_bots": botID}},
	)
	return err
}

func (r *CredentialsRepository) RemoveOwnedBot(ctx context.Context, userID, botID string) error {
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"user_id": userID},
		bson.M{"$pull": bson.M{"owned_bots": botID}},
	)
	return err
}

// IncrementUsage atomically adds cost to the owner's dollars_used.
func (r *CredentialsRepository) IncrementUsage(ctx context.Context, userID string, cost float64) error {
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"user_id": userID},
		bson.M{"$inc": bson.M{"llm_quota.dollars_used": cost}},
	)
	return err
}

func (r *CredentialsRepository) DisableQuota(ctx context.Context, userID string) error {
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"user_id": userID},
		bson.M{"$set": bson.M{"llm_quota.enabled": false}},
	)
	return err
}

// ResetQuota is used by the daily quota-reset sweep.
func (r *CredentialsRepository) ResetQuota(ctx context.Context, userID string, resetAt time.Time) error {
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"user_id": userID},
		bson.M{"$set": bson.M{
			"llm_quota.dollars_used": 0,
			"llm_quota.last_reset":   resetAt,
			"llm_quota.enabled":      true,
		}},
	)
	return err
}

// ListQuotaEnabled returns every owner whose quota is currently enabled,
// for the startup autostart sweep.
func (r *CredentialsRepository) ListQuotaEnabled(ctx context.Context) ([]domain.Credentials, error) {
	cur, err := r.coll.Find(ctx, bson.M{"llm_quota.enabled": true})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var creds []domain.Credentials
	if err := cur.All(ctx, &creds); err != nil {
		return nil, err
	}
	return creds, nil
}

// ListAll returns every owner credential.
func (r *CredentialsRepository) ListAll(ctx context.Context) ([]domain.Credentials, error) {
	cur, err := r.coll.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var creds []domain.Credentials
	if err := cur.All(ctx, &creds); err != nil {
		return nil, err
	}
	return creds, nil
}

// ListDueForReset returns every owner credential, for the caller (the
// llmtoken reset sweep) to filter by last_reset+reset_days — that
// comparison needs per-document arithmetic on a per-owner reset_days,
// which isn't expressible as a single flat Mongo filter here.
func (r *CredentialsRepository) ListDueForReset(ctx context.Context) ([]domain.Credentials, error) {
	cur, err := r.coll.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var creds []domain.Credentials
	if err := cur.All(ctx, &creds); err != nil {
		return nil, err
	}
	return creds, nil
}

func (r *CredentialsRepository) Update(ctx context.Context, cred domain.Credentials) error {
	_, err := r.coll.ReplaceOne(ctx, bson.M{"user_id": cred.UserID}, cred, options.Replace().SetUpsert(true))
	return err
}

func (r *CredentialsRepository) Delete(ctx context.Context, userID string) error {
	_, err := r.coll.DeleteOne(ctx, bson.M{"user_id": userID})
	return err
}

func (r *CredentialsRepository) CountAdmins(ctx context.Context) (int64, error) {
	return r.coll.CountDocuments(ctx, bson.M{"role": domain.RoleAdmin})
}

package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/AzielCF/chatbot-platform/domain"
	"github.com/AzielCF/chatbot-platform/mongostore"
)

// TokenConsumptionRepository records one event per LLM call.
type TokenConsumptionRepository struct {
	coll *mongo.Collection
}

func NewTokenConsumptionRepository(store *mongostore.Store) *TokenConsumptionRepository {
	return &TokenConsumptionRepository{coll: store.DB.Collection(mongostore.CollTokenConsumption)}
}

func (r *TokenConsumptionRepository) Record(ctx context.Context, event domain.TokenEvent) error {
	_, err := r.coll.InsertOne(ctx, event)
	return err
}

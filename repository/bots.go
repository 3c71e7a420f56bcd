// Package repository wraps each Mongo collection behind a narrow Go
// type so the services above it never touch bson filters directly.
package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/AzielCF/chatbot-platform/domain"
	"github.com/AzielCF/chatbot-platform/mongostore"
)

// BotRepository persists Bot configuration documents.
type BotRepository struct {
	coll *mongo.Collection
}

func NewBotRepository(store *mongostore.Store) *BotRepository {
	return &BotRepository{coll: store.DB.Collection(mongostore.CollBotConfigurations)}
}

func (r *BotRepository) Upsert(ctx context.Context, bot domain.Bot) error {
	_, err := r.coll.ReplaceOne(ctx,
		bson.M{"bot_id": bot.BotID},
		bot,
		options.Replace().SetUpsert(true),
	)
	return err
}

func (r *BotRepository) GetByID(ctx context.Context, botID string) (*domain.Bot, error) {
	var bot domain.Bot
	err := r.coll.FindOne(ctx, bson.M{"bot_id": botID}).Decode(&bot)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &bot, nil
}

func (r *BotRepository) ListByOwner(ctx context.Context, ownerUserID string) ([]domain.Bot, error) {
	cur, err := r.coll.Find(ctx, bson.M{"owner_user_id": ownerUserID})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var bots []domain.Bot
	if err := cur.All(ctx, &bots); err != nil {
		return nil, err
	}
	return bots, nil
}

func (r *BotRepository) ListAll(ctx context.Context) ([]domain.Bot, error) {
	cur, err := r.coll.Find(ctx, bson.M{})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var bots []domain.Bot
	if err := cur.All(ctx, &bots); err != nil {
		return nil, err
	}
	return bots, nil
}

func (r *BotRepository) Delete(ctx context.Context, botID string) error {
	_, err := r.coll.DeleteOne(ctx, bson.M{"bot_id": botID})
	return err
}

package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/AzielCF/chatbot-platform/domain"
	"github.com/AzielCF/chatbot-platform/mongostore"
)

const tokenMenuDocID = "token_menu"

// GlobalConfigRepository reads the global_configurations collection,
// currently just the token pricing table.
type GlobalConfigRepository struct {
	coll *mongo.Collection
}

func NewGlobalConfigRepository(store *mongostore.Store) *GlobalConfigRepository {
	return &GlobalConfigRepository{coll: store.DB.Collection(mongostore.CollGlobalConfigurations)}
}

type tokenMenuDoc struct {
	ID   string           `bson:"_id"`
	Menu domain.TokenMenu `bson:",inline"`
}

func (r *GlobalConfigRepository) LoadTokenMenu(ctx context.Context) (*domain.TokenMenu, error) {
	var doc tokenMenuDoc
	err := r.coll.FindOne(ctx, bson.M{"_id": tokenMenuDocID}).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &doc.Menu, nil
}

func (r *GlobalConfigRepository) SaveTokenMenu(ctx context.Context, menu domain.TokenMenu) error {
	doc := tokenMenuDoc{ID: tokenMenuDocID, Menu: menu}
	_, err := r.coll.ReplaceOne(ctx, bson.M{"_id": tokenMenuDocID}, doc, options.Replace().SetUpsert(true))
	return err
}

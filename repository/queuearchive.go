package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/AzielCF/chatbot-platform/domain"
	"github.com/AzielCF/chatbot-platform/mongostore"
)

// QueueArchiveRepository persists drained correspondent-queue messages,
// the durable store the ingestion drainer writes into.
type QueueArchiveRepository struct {
	coll *mongo.Collection
}

func NewQueueArchiveRepository(store *mongostore.Store) *QueueArchiveRepository {
	return &QueueArchiveRepository{coll: store.DB.Collection(mongostore.CollQueues)}
}

// ArchivedMessage is one drained message plus its routing annotations.
type ArchivedMessage struct {
	domain.Message  `bson:",inline" json:",inline"`
	BotID           string `bson:"bot_id" json:"bot_id"`
	ProviderName    string `bson:"provider_name" json:"provider_name"`
	CorrespondentID string `bson:"correspondent_id" json:"correspondent_id"`
}

func (r *QueueArchiveRepository) Archive(ctx context.Context, botID, providerName, correspondentID string, msg domain.Message) error {
	doc := ArchivedMessage{Message: msg, BotID: botID, ProviderName: providerName, CorrespondentID: correspondentID}
	_, err := r.coll.InsertOne(ctx, doc)
	return err
}

// ListMessages returns archived messages for a bot in id order; an empty
// correspondentID returns every correspondent's messages.
func (r *QueueArchiveRepository) ListMessages(ctx context.Context, botID, correspondentID string) ([]ArchivedMessage, error) {
	filter := bson.M{"bot_id": botID}
	if correspondentID != "" {
		filter["correspondent_id"] = correspondentID
	}
	opts := options.Find().SetSort(bson.D{{Key: "correspondent_id", Value: 1}, {Key: "id", Value: 1}})
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []ArchivedMessage
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteMessages drops archived messages for a bot, optionally scoped to
// one correspondent.
func (r *QueueArchiveRepository) DeleteMessages(ctx context.Context, botID, correspondentID string) (int64, error) {
	filter := bson.M{"bot_id": botID}
	if correspondentID != "" {
		filter["correspondent_id"] = correspondentID
	}
	res, err := r.coll.DeleteMany(ctx, filter)
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// MaxID returns the highest archived message id for a correspondent, used
// to seed a freshly spawned in-memory queue's id counter.
func (r *QueueArchiveRepository) MaxID(ctx context.Context, botID, correspondentID string) (int64, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "id", Value: -1}})
	var doc ArchivedMessage
	err := r.coll.FindOne(ctx, bson.M{"bot_id": botID, "correspondent_id": correspondentID}, opts).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return -1, nil
	}
	if err != nil {
		return 0, err
	}
	return doc.ID, nil
}

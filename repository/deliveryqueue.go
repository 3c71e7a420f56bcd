package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/AzielCF/chatbot-platform/domain"
	"github.com/AzielCF/chatbot-platform/mongostore"
)

// DeliveryQueueRepository wraps the three delivery collections:
// active, holding, failed.
type DeliveryQueueRepository struct {
	active  *mongo.Collection
	holding *mongo.Collection
	failed  *mongo.Collection
}

func NewDeliveryQueueRepository(store *mongostore.Store) *DeliveryQueueRepository {
	return &DeliveryQueueRepository{
		active:  store.DB.Collection(mongostore.CollDeliveryActive),
		holding: store.DB.Collection(mongostore.CollDeliveryHolding),
		failed:  store.DB.Collection(mongostore.CollDeliveryFailed),
	}
}

func (r *DeliveryQueueRepository) collFor(q domain.DeliveryQueueName) *mongo.Collection {
	switch q {
	case domain.QueueActive:
		return r.active
	case domain.QueueHolding:
		return r.holding
	case domain.QueueFailed:
		return r.failed
	}
	return nil
}

func (r *DeliveryQueueRepository) AddItem(ctx context.Context, job domain.DeliveryJob) error {
	_, err := r.active.InsertOne(ctx, job)
	return err
}

// moveAll bulk-moves every matching document between two collections:
// find-all, insert-many into dst, delete-many from src.
func moveAll(ctx context.Context, src, dst *mongo.Collection, filter bson.M) error {
	cur, err := src.Find(ctx, filter)
	if err != nil {
		return err
	}
	defer cur.Close(ctx)

	var jobs []domain.DeliveryJob
	if err := cur.All(ctx, &jobs); err != nil {
		return err
	}
	if len(jobs) == 0 {
		return nil
	}

	docs := make([]any, len(jobs))
	for i, j := range jobs {
		docs[i] = j
	}
	if _, err := dst.InsertMany(ctx, docs); err != nil {
		return err
	}
	_, err = src.DeleteMany(ctx, filter)
	return err
}

// MoveAllToHolding moves every active item to holding, used at startup;
// a bot disconnect moves only its owner's items (MoveUserToHolding).
func (r *DeliveryQueueRepository) MoveAllToHolding(ctx context.Context) error {
	return moveAll(ctx, r.active, r.holding, bson.M{})
}

func (r *DeliveryQueueRepository) MoveUserToHolding(ctx context.Context, userID string) error {
	return moveAll(ctx, r.active, r.holding, bson.M{"destination.user_id": userID})
}

func (r *DeliveryQueueRepository) MoveUserToActive(ctx context.Context, userID string) error {
	return moveAll(ctx, r.holding, r.active, bson.M{"destination.user_id": userID})
}

// SampleActive returns one pseudo-randomly chosen active item, modelling
// Mongo's `$sample: {size: 1}` aggregation stage.
func (r *DeliveryQueueRepository) SampleActive(ctx context.Context) (*domain.DeliveryJob, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$sample", Value: bson.M{"size": 1}}},
	}
	cur, err := r.active.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var jobs []domain.DeliveryJob
	if err := cur.All(ctx, &jobs); err != nil {
		return nil, err
	}
	if len(jobs) == 0 {
		return nil, nil
	}
	return &jobs[0], nil
}

// IncrementAttemptsAndFetch atomically bumps send_attempts and returns
// the updated document, so the consumer acts on the post-increment count.
func (r *DeliveryQueueRepository) IncrementAttemptsAndFetch(ctx context.Context, messageID string) (*domain.DeliveryJob, error) {
	var job domain.DeliveryJob
	err := r.active.FindOneAndUpdate(ctx,
		bson.M{"message_id": messageID},
		bson.M{"$inc": bson.M{"send_attempts": 1}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&job)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *DeliveryQueueRepository) DeleteFromActive(ctx context.Context, messageID string) error {
	_, err := r.active.DeleteOne(ctx, bson.M{"message_id": messageID})
	return err
}

// MoveToFailed dead-letters an item whose attempts are exhausted.
func (r *DeliveryQueueRepository) MoveToFailed(ctx context.Context, job domain.DeliveryJob) error {
	if _, err := r.failed.InsertOne(ctx, job); err != nil {
		return err
	}
	_, err := r.active.DeleteOne(ctx, bson.M{"message_id": job.MessageID})
	return err
}

func (r *DeliveryQueueRepository) ListItems(ctx context.Context, queue domain.DeliveryQueueName, userID string) ([]domain.DeliveryJob, error) {
	coll := r.collFor(queue)
	filter := bson.M{}
	if userID != "" {
		filter["destination.user_id"] = userID
	}
	cur, err := coll.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var jobs []domain.DeliveryJob
	if err := cur.All(ctx, &jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

func (r *DeliveryQueueRepository) DeleteItem(ctx context.Context, queue domain.DeliveryQueueName, messageID string) error {
	coll := r.collFor(queue)
	_, err := coll.DeleteOne(ctx, bson.M{"message_id": messageID})
	return err
}

package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/AzielCF/chatbot-platform/domain"
	"github.com/AzielCF/chatbot-platform/mongostore"
)

// SessionRepository persists gateway login sessions and their stale
// archive.
type SessionRepository struct {
	sessions *mongo.Collection
	stale    *mongo.Collection
}

func NewSessionRepository(store *mongostore.Store) *SessionRepository {
	return &SessionRepository{
		sessions: store.DB.Collection(mongostore.CollAuthenticatedSessions),
		stale:    store.DB.Collection(mongostore.CollStaleAuthenticatedSessions),
	}
}

func (r *SessionRepository) Create(ctx context.Context, s domain.Session) error {
	_, err := r.sessions.InsertOne(ctx, s)
	return err
}

func (r *SessionRepository) GetByID(ctx context.Context, sessionID string) (*domain.Session, error) {
	var s domain.Session
	err := r.sessions.FindOne(ctx, bson.M{"session_id": sessionID}).Decode(&s)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// UpdateLastAccessed writes last_accessed without touching expires_at —
// expiry is absolute, not sliding.
func (r *SessionRepository) UpdateLastAccessed(ctx context.Context, sessionID string, at time.Time) error {
	_, err := r.sessions.UpdateOne(ctx,
		bson.M{"session_id": sessionID},
		bson.M{"$set": bson.M{"last_accessed": at}},
	)
	return err
}

func (r *SessionRepository) AddOwnedBot(ctx context.Context, sessionID, botID string) error {
	_, err := r.sessions.UpdateOne(ctx,
		bson.M{"session_id": sessionID},
		bson.M{"$addToSet": bson.M{"owned_bots": botID}},
	)
	return err
}

func (r *SessionRepository) ListByUser(ctx context.Context, userID string) ([]domain.Session, error) {
	cur, err := r.sessions.Find(ctx, bson.M{"user_id": userID})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []domain.Session
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Invalidate archives the session as stale with a reason, then deletes
// it from the active collection.
func (r *SessionRepository) Invalidate(ctx context.Context, s domain.Session, reason string) error {
	stale := domain.StaleSession{Session: s, InvalidatedAt: time.Now().UTC(), Reason: reason}
	if _, err := r.stale.InsertOne(ctx, stale); err != nil {
		return err
	}
	_, err := r.sessions.DeleteOne(ctx, bson.M{"session_id": s.SessionID})
	return err
}

func (r *SessionRepository) InvalidateAllForUser(ctx context.Context, userID, reason string) error {
	sessions, err := r.ListByUser(ctx, userID)
	if err != nil {
		return err
	}
	for _, s := range sessions {
		if err := r.Invalidate(ctx, s, reason); err != nil {
			return err
		}
	}
	return nil
}

// PurgeStaleOlderThan removes stale sessions archived before the cutoff,
// the 24h background cleanup.
func (r *SessionRepository) PurgeStaleOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := r.stale.DeleteMany(ctx, bson.M{"invalidated_at": bson.M{"$lt": cutoff}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

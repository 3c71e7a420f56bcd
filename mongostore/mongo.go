// Package mongostore opens the MongoDB connection and creates the
// unique and TTL indices every collection relies on.
package mongostore

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const serverSelectionTimeout = 5 * time.Second

// Collection names.
const (
	CollBotConfigurations          = "bot_configurations"
	CollQueues                     = "queues"
	CollUserAuthCredentials        = "user_auth_credentials"
	CollAuthenticatedSessions      = "authenticated_sessions"
	CollStaleAuthenticatedSessions = "stale_authenticated_sessions"
	CollAuditLogs                  = "audit_logs"
	CollAccountLockouts            = "account_lockouts"
	CollTrackedGroups              = "tracked_groups"
	CollTrackedGroupPeriods        = "tracked_group_periods"
	CollGroupTrackingState         = "group_tracking_state"
	CollDeliveryActive             = "async_message_delivery_queue_active"
	CollDeliveryFailed             = "async_message_delivery_queue_failed"
	CollDeliveryHolding            = "async_message_delivery_queue_holding"
	CollTokenConsumption           = "token_consumption"
	CollGlobalConfigurations       = "global_configurations"
)

// Store bundles the Mongo database handle every repository depends on.
type Store struct {
	Client *mongo.Client
	DB     *mongo.Database
}

// Connect dials MongoDB with a bounded server-selection timeout.
func Connect(ctx context.Context, uri, dbName string) (*Store, error) {
	ctx, cancel := context.WithTimeout(ctx, serverSelectionTimeout)
	defer cancel()

	opts := options.Client().ApplyURI(uri).SetServerSelectionTimeout(serverSelectionTimeout)
	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}

	return &Store{Client: client, DB: client.Database(dbName)}, nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.Client.Disconnect(ctx)
}

// EnsureIndices creates every unique and TTL index the collections
// depend on; all are idempotent to re-create.
func (s *Store) EnsureIndices(ctx context.Context) error {
	type indexSpec struct {
		coll  string
		model mongo.IndexModel
	}

	specs := []indexSpec{
		{CollBotConfigurations, mongo.IndexModel{
			Keys:    bson.D{{Key: "bot_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		}},
		{CollQueues, mongo.IndexModel{
			Keys: bson.D{{Key: "bot_id", Value: 1}, {Key: "correspondent_id", Value: 1}, {Key: "id", Value: 1}},
		}},
		{CollUserAuthCredentials, mongo.IndexModel{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		}},
		{CollAuthenticatedSessions, mongo.IndexModel{
			Keys:    bson.D{{Key: "session_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		}},
		{CollAuthenticatedSessions, mongo.IndexModel{
			Keys: bson.D{{Key: "user_id", Value: 1}},
		}},
		{CollAuthenticatedSessions, mongo.IndexModel{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0),
		}},
		{CollAuditLogs, mongo.IndexModel{
			Keys:    bson.D{{Key: "timestamp", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(30 * 24 * 60 * 60),
		}},
		{CollAuditLogs, mongo.IndexModel{
			Keys: bson.D{{Key: "user_id", Value: 1}},
		}},
		{CollAuditLogs, mongo.IndexModel{
			Keys: bson.D{{Key: "event_type", Value: 1}},
		}},
		{CollAccountLockouts, mongo.IndexModel{
			Keys:    bson.D{{Key: "user_id", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		}},
		{CollAccountLockouts, mongo.IndexModel{
			Keys:    bson.D{{Key: "locked_until", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(0).SetSparse(true),
		}},
		{CollTrackedGroups, mongo.IndexModel{
			Keys:    bson.D{{Key: "bot_id", Value: 1}, {Key: "group_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		}},
		{CollTrackedGroupPeriods, mongo.IndexModel{
			Keys: bson.D{{Key: "bot_id", Value: 1}, {Key: "group_id", Value: 1}, {Key: "period_end_ms", Value: -1}},
		}},
		{CollGroupTrackingState, mongo.IndexModel{
			Keys:    bson.D{{Key: "bot_id", Value: 1}, {Key: "group_id", Value: 1}},
			Options: options.Index().SetUnique(true),
		}},
		{CollDeliveryActive, mongo.IndexModel{
			Keys: bson.D{{Key: "destination.user_id", Value: 1}},
		}},
		{CollDeliveryFailed, mongo.IndexModel{
			Keys: bson.D{{Key: "destination.user_id", Value: 1}},
		}},
		{CollDeliveryHolding, mongo.IndexModel{
			Keys: bson.D{{Key: "destination.user_id", Value: 1}},
		}},
		{CollTokenConsumption, mongo.IndexModel{
			Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "timestamp", Value: 1}},
		}},
		{CollTokenConsumption, mongo.IndexModel{
			Keys: bson.D{{Key: "bot_id", Value: 1}, {Key: "timestamp", Value: 1}},
		}},
	}

	for _, spec := range specs {
		if _, err := s.DB.Collection(spec.coll).Indexes().CreateOne(ctx, spec.model); err != nil {
			return err
		}
	}
	return nil
}

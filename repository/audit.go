package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/AzielCF/chatbot-platform/domain"
	"github.com/AzielCF/chatbot-platform/mongostore"
)

// AuditRepository appends audit events. The 30-day TTL is
// enforced by the index created in mongostore.EnsureIndices, not here.
type AuditRepository struct {
	coll *mongo.Collection
}

func NewAuditRepository(store *mongostore.Store) *AuditRepository {
	return &AuditRepository{coll: store.DB.Collection(mongostore.CollAuditLogs)}
}

func (r *AuditRepository) Record(ctx context.Context, entry domain.AuditLog) error {
	_, err := r.coll.InsertOne(ctx, entry)
	return err
}

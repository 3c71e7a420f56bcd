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

// GroupTrackingRepository wraps the three tracking collections:
// group metadata, saved periods, and per-group run state.
type GroupTrackingRepository struct {
	groups  *mongo.Collection
	periods *mongo.Collection
	state   *mongo.Collection
}

func NewGroupTrackingRepository(store *mongostore.Store) *GroupTrackingRepository {
	return &GroupTrackingRepository{
		groups:  store.DB.Collection(mongostore.CollTrackedGroups),
		periods: store.DB.Collection(mongostore.CollTrackedGroupPeriods),
		state:   store.DB.Collection(mongostore.CollGroupTrackingState),
	}
}

// SaveTrackingResult upserts group metadata, inserts the period, and
// updates tracking state — three writes, logically one operation.
func (r *GroupTrackingRepository) SaveTrackingResult(ctx context.Context, botID, groupID, displayName, cronSchedule string, messages []domain.Message, startMs, endMs int64, alternateIdentifiers map[string]struct{}) error {
	alts := make([]string, 0, len(alternateIdentifiers)+2)
	alternateIdentifiers[groupID] = struct{}{}
	alternateIdentifiers[displayName] = struct{}{}
	for alt := range alternateIdentifiers {
		alts = append(alts, alt)
	}

	_, err := r.groups.UpdateOne(ctx,
		bson.M{"bot_id": botID, "group_id": groupID},
		bson.M{"$set": bson.M{
			"bot_id":                botID,
			"group_id":              groupID,
			"display_name":          displayName,
			"alternate_identifiers": alts,
			"cron_schedule":         cronSchedule,
		}},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		return err
	}

	period := domain.TrackedPeriod{
		BotID:        botID,
		GroupID:      groupID,
		PeriodStart:  startMs,
		PeriodEnd:    endMs,
		MessageCount: len(messages),
		Messages:     messages,
		CreatedAt:    time.Now().UTC(),
		DisplayName:  displayName,
	}
	if _, err := r.periods.InsertOne(ctx, period); err != nil {
		return err
	}

	_, err = r.state.UpdateOne(ctx,
		bson.M{"bot_id": botID, "group_id": groupID},
		bson.M{"$set": bson.M{"last_run_ms": endMs}},
		options.UpdateOne().SetUpsert(true),
	)
	return err
}

func (r *GroupTrackingRepository) GetLastRun(ctx context.Context, botID, groupID string) (int64, bool, error) {
	var st domain.TrackingState
	err := r.state.FindOne(ctx, bson.M{"bot_id": botID, "group_id": groupID}).Decode(&st)
	if err == mongo.ErrNoDocuments {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return st.LastRunMs, true, nil
}

// RecentMessageIDs loads the dedup set: provider_message_ids from the 5
// most recent persisted periods.
func (r *GroupTrackingRepository) RecentMessageIDs(ctx context.Context, botID, groupID string) (map[string]struct{}, error) {
	const lookbackPeriods = 5

	opts := options.Find().
		SetSort(bson.D{{Key: "period_end_ms", Value: -1}}).
		SetLimit(lookbackPeriods).
		SetProjection(bson.M{"messages.provider_message_id": 1})

	cur, err := r.periods.Find(ctx, bson.M{"bot_id": botID, "group_id": groupID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	ids := make(map[string]struct{})
	var periods []domain.TrackedPeriod
	if err := cur.All(ctx, &periods); err != nil {
		return nil, err
	}
	for _, p := range periods {
		for _, m := range p.Messages {
			if m.ProviderMessageID != "" {
				ids[m.ProviderMessageID] = struct{}{}
			}
		}
	}
	return ids, nil
}

func (r *GroupTrackingRepository) GetGroupMessages(ctx context.Context, botID, groupID string, lastPeriods int64) (*domain.TrackedGroup, []domain.TrackedPeriod, error) {
	var group domain.TrackedGroup
	err := r.groups.FindOne(ctx, bson.M{"bot_id": botID, "group_id": groupID}).Decode(&group)
	if err == mongo.ErrNoDocuments {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}

	opts := options.Find().SetSort(bson.D{{Key: "period_end_ms", Value: -1}})
	if lastPeriods > 0 {
		opts = opts.SetLimit(lastPeriods)
	}
	cur, err := r.periods.Find(ctx, bson.M{"bot_id": botID, "group_id": groupID}, opts)
	if err != nil {
		return nil, nil, err
	}
	defer cur.Close(ctx)

	var periods []domain.TrackedPeriod
	if err := cur.All(ctx, &periods); err != nil {
		return nil, nil, err
	}
	return &group, periods, nil
}

func (r *GroupTrackingRepository) GetAllUserGroups(ctx context.Context, botID string) ([]domain.TrackedGroup, error) {
	cur, err := r.groups.Find(ctx, bson.M{"bot_id": botID})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var groups []domain.TrackedGroup
	if err := cur.All(ctx, &groups); err != nil {
		return nil, err
	}
	return groups, nil
}

func (r *GroupTrackingRepository) DeleteGroupMessages(ctx context.Context, botID, groupID string) (int64, error) {
	res, err := r.periods.DeleteMany(ctx, bson.M{"bot_id": botID, "group_id": groupID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (r *GroupTrackingRepository) DeleteAllUserMessages(ctx context.Context, botID string) (int64, error) {
	res, err := r.periods.DeleteMany(ctx, bson.M{"bot_id": botID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

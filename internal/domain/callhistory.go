package domain

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/rjsadow/aurora/internal/apperr"
	"github.com/rjsadow/aurora/internal/store"
)

// CallHistory is a point-in-time snapshot of an active or ended call,
// per spec.md §3: written on create, updated every 30s while live,
// finalized on end.
type CallHistory struct {
	ID            string     `bson:"id"`
	ChannelID     string     `bson:"channelId"`
	SpaceID       string     `bson:"spaceId"`
	Name          string     `bson:"name,omitempty"`
	JoinedMembers []string   `bson:"joinedMembers"`
	EndedAt       *time.Time `bson:"endedAt,omitempty"`
}

// CallHistories is the call_history collection's repository.
type CallHistories struct {
	col *mongo.Collection
}

// NewCallHistories builds a CallHistories repository over m.
func NewCallHistories(m *store.Mongo) *CallHistories {
	return &CallHistories{col: m.Collection(store.CollectionCalls)}
}

// Create inserts the initial snapshot for a newly started call.
func (h *CallHistories) Create(ctx context.Context, callID, spaceID, channelID, name string, joinedMembers []string) error {
	record := CallHistory{
		ID:            callID,
		SpaceID:       spaceID,
		ChannelID:     channelID,
		Name:          name,
		JoinedMembers: joinedMembers,
	}
	if _, err := h.col.InsertOne(ctx, record); err != nil {
		return apperr.Wrap(apperr.Storage, err)
	}
	return nil
}

// UpdateMembers rewrites the snapshot's joined-members list, called by
// the coordinator's 30s periodic task while the call is live.
func (h *CallHistories) UpdateMembers(ctx context.Context, callID string, joinedMembers []string) error {
	_, err := h.col.UpdateOne(ctx,
		bson.M{"id": callID},
		bson.M{"$set": bson.M{"joinedMembers": joinedMembers}},
	)
	if err != nil {
		return apperr.Wrap(apperr.Storage, err)
	}
	return nil
}

// Finalize stamps the snapshot's endedAt, leaving the most recent
// member list as the final record.
func (h *CallHistories) Finalize(ctx context.Context, callID string) error {
	now := time.Now()
	_, err := h.col.UpdateOne(ctx,
		bson.M{"id": callID},
		bson.M{"$set": bson.M{"endedAt": now}},
	)
	if err != nil {
		return apperr.Wrap(apperr.Storage, err)
	}
	return nil
}

// Get returns the call-history snapshot for callID.
func (h *CallHistories) Get(ctx context.Context, callID string) (*CallHistory, error) {
	var record CallHistory
	err := h.col.FindOne(ctx, bson.M{"id": callID},
		options.FindOne()).Decode(&record)
	if err == mongo.ErrNoDocuments {
		return nil, apperr.New(apperr.NotFound)
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Storage, err)
	}
	return &record, nil
}

package domain

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/rjsadow/aurora/internal/apperr"
	"github.com/rjsadow/aurora/internal/idgen"
	"github.com/rjsadow/aurora/internal/store"
)

// MessagePageSize bounds a single getMessages call, matching the
// channel_timeline index's intended access pattern (most-recent-first,
// paged by createdAt).
const MessagePageSize = 50

// Message is one chat message posted to a channel.
type Message struct {
	ID        string    `bson:"id"`
	ChannelID string    `bson:"channelId"`
	AuthorID  string    `bson:"authorId"`
	Content   string    `bson:"content"`
	CreatedAt time.Time `bson:"createdAt"`
}

// Messages is the messages collection's repository.
type Messages struct {
	col *mongo.Collection
}

// NewMessages builds a Messages repository over m.
func NewMessages(m *store.Mongo) *Messages {
	return &Messages{col: m.Collection(store.CollectionMessages)}
}

// Send inserts a new message authored by authorID in channelID.
func (ms *Messages) Send(ctx context.Context, channelID, authorID, content string) (*Message, error) {
	message := &Message{
		ID:        idgen.NewULID(),
		ChannelID: channelID,
		AuthorID:  authorID,
		Content:   content,
		CreatedAt: time.Now(),
	}
	if _, err := ms.col.InsertOne(ctx, message); err != nil {
		return nil, apperr.Wrap(apperr.Storage, err)
	}
	return message, nil
}

// GetForChannel returns up to MessagePageSize messages in channelID,
// most recent first, optionally paging strictly before the message
// identified by beforeID.
func (ms *Messages) GetForChannel(ctx context.Context, channelID string, beforeID string) ([]Message, error) {
	filter := bson.M{"channelId": channelID}
	if beforeID != "" {
		before, err := ms.get(ctx, beforeID)
		if err != nil {
			return nil, err
		}
		filter["createdAt"] = bson.M{"$lt": before.CreatedAt}
	}

	cursor, err := ms.col.Find(ctx, filter,
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}).SetLimit(MessagePageSize))
	if err != nil {
		return nil, apperr.Wrap(apperr.Storage, err)
	}
	defer cursor.Close(ctx)

	messages := []Message{}
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, apperr.Wrap(apperr.Storage, err)
	}
	return messages, nil
}

func (ms *Messages) get(ctx context.Context, id string) (*Message, error) {
	var message Message
	err := ms.col.FindOne(ctx, bson.M{"id": id}).Decode(&message)
	if err == mongo.ErrNoDocuments {
		return nil, apperr.New(apperr.NotFound)
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Storage, err)
	}
	return &message, nil
}

package domain

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/rjsadow/aurora/internal/apperr"
	"github.com/rjsadow/aurora/internal/idgen"
	"github.com/rjsadow/aurora/internal/store"
)

// ChannelVariant tags which of the five channel shapes a record is. No
// surviving original source models this union directly (it is
// reconstructed from the match arms inlined in the original's
// User::in_channel); represented here as a tagged variant over a single
// collection rather than five Go types, so storage and lookup stay
// uniform while membership dispatch still switches on the tag.
type ChannelVariant string

const (
	// ChannelVariantPrivate is a one-to-one DM channel between two users.
	ChannelVariantPrivate ChannelVariant = "private"
	// ChannelVariantGroup is a multi-user DM channel with an explicit
	// member list, not scoped to any space.
	ChannelVariantGroup ChannelVariant = "group"
	// ChannelVariantInformation is a space-bound read-mostly channel.
	ChannelVariantInformation ChannelVariant = "information"
	// ChannelVariantAnnouncement is a space-bound broadcast channel.
	ChannelVariantAnnouncement ChannelVariant = "announcement"
	// ChannelVariantStandard is an ordinary space-bound chat channel.
	ChannelVariantStandard ChannelVariant = "standard"
)

// Channel is the five-shape tagged union named in SPEC_FULL.md §3. Only
// the fields relevant to a channel's variant are populated; the rest are
// left at their zero value.
type Channel struct {
	ID      string         `bson:"id"`
	Variant ChannelVariant `bson:"variant"`
	Name    string         `bson:"name,omitempty"`

	// Private
	InitiatorID string `bson:"initiatorId,omitempty"`
	TargetID    string `bson:"targetId,omitempty"`

	// Group
	MemberIDs []string `bson:"memberIds,omitempty"`

	// Information / Announcement / Standard
	SpaceID string `bson:"spaceId,omitempty"`
}

// HasMember dispatches the membership predicate on the channel's variant,
// per SPEC_FULL.md §3: private channels check the two fixed parties,
// group channels check the explicit member list, and the three
// space-bound variants defer to space membership.
func (c *Channel) HasMember(ctx context.Context, spaces *Spaces, userID string) (bool, error) {
	switch c.Variant {
	case ChannelVariantPrivate:
		return userID == c.InitiatorID || userID == c.TargetID, nil
	case ChannelVariantGroup:
		for _, id := range c.MemberIDs {
			if id == userID {
				return true, nil
			}
		}
		return false, nil
	case ChannelVariantInformation, ChannelVariantAnnouncement, ChannelVariantStandard:
		return spaces.IsMember(ctx, c.SpaceID, userID)
	default:
		return false, apperr.New(apperr.Internal)
	}
}

// Recipients resolves the full set of user ids that should receive an
// event published to this channel: the fixed pair for Private, the
// explicit list for Group, or the owning space's member list for the
// three space-bound variants.
func (c *Channel) Recipients(ctx context.Context, spaces *Spaces) ([]string, error) {
	switch c.Variant {
	case ChannelVariantPrivate:
		return []string{c.InitiatorID, c.TargetID}, nil
	case ChannelVariantGroup:
		return c.MemberIDs, nil
	case ChannelVariantInformation, ChannelVariantAnnouncement, ChannelVariantStandard:
		space, err := spaces.Get(ctx, c.SpaceID)
		if err != nil {
			return nil, err
		}
		return space.MemberIDs, nil
	default:
		return nil, apperr.New(apperr.Internal)
	}
}

// Channels is the channels collection's repository.
type Channels struct {
	col *mongo.Collection
}

// NewChannels builds a Channels repository over m.
func NewChannels(m *store.Mongo) *Channels {
	return &Channels{col: m.Collection(store.CollectionChannels)}
}

// Get returns the channel record for id.
func (c *Channels) Get(ctx context.Context, id string) (*Channel, error) {
	var ch Channel
	err := c.col.FindOne(ctx, bson.M{"id": id}).Decode(&ch)
	if err == mongo.ErrNoDocuments {
		return nil, apperr.New(apperr.NotFound)
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Storage, err)
	}
	return &ch, nil
}

// GetForSpace returns every channel belonging to spaceID.
func (c *Channels) GetForSpace(ctx context.Context, spaceID string) ([]Channel, error) {
	cursor, err := c.col.Find(ctx, bson.M{"spaceId": spaceID})
	if err != nil {
		return nil, apperr.Wrap(apperr.Storage, err)
	}
	defer cursor.Close(ctx)

	channels := []Channel{}
	if err := cursor.All(ctx, &channels); err != nil {
		return nil, apperr.Wrap(apperr.Storage, err)
	}
	return channels, nil
}

// CreateSpaceChannel inserts a new space-bound channel of variant (one of
// Information, Announcement, Standard) and appends it to the owning
// space's channel list.
func (c *Channels) CreateSpaceChannel(ctx context.Context, spaces *Spaces, spaceID, name string, variant ChannelVariant) (*Channel, error) {
	switch variant {
	case ChannelVariantInformation, ChannelVariantAnnouncement, ChannelVariantStandard:
	default:
		return nil, apperr.New(apperr.BadRequest)
	}

	channel := &Channel{
		ID:      idgen.NewULID(),
		Variant: variant,
		Name:    name,
		SpaceID: spaceID,
	}
	if _, err := c.col.InsertOne(ctx, channel); err != nil {
		return nil, apperr.Wrap(apperr.Storage, err)
	}
	_, err := spaces.col.UpdateOne(ctx,
		bson.M{"id": spaceID},
		bson.M{"$push": bson.M{"channelIds": channel.ID}},
	)
	if err != nil {
		return nil, apperr.Wrap(apperr.Storage, err)
	}
	return channel, nil
}

// Delete removes the channel record. Callers own cascading it out of the
// owning space's channelIds list where applicable.
func (c *Channels) Delete(ctx context.Context, id string) error {
	if _, err := c.col.DeleteOne(ctx, bson.M{"id": id}); err != nil {
		return apperr.Wrap(apperr.Storage, err)
	}
	return nil
}

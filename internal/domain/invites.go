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

// Invite grants entry to a space. Its ID doubles as the invite code (the
// original indexes the invites collection on "id" directly rather than a
// separate code field).
type Invite struct {
	ID        string     `bson:"id"`
	SpaceID   string     `bson:"spaceId"`
	ExpiresAt *time.Time `bson:"expiresAt,omitempty"`
	MaxUses   *int       `bson:"maxUses,omitempty"`
	Uses      []string   `bson:"uses"`
}

// Invites is the invites collection's repository.
type Invites struct {
	col *mongo.Collection
}

// NewInvites builds an Invites repository over m.
func NewInvites(m *store.Mongo) *Invites {
	return &Invites{col: m.Collection(store.CollectionInvites)}
}

// Create mints a new invite code for spaceID. A nil expiresAt/maxUses
// leaves that limit unset.
func (i *Invites) Create(ctx context.Context, spaceID string, expiresAt *time.Time, maxUses *int) (*Invite, error) {
	invite := &Invite{
		ID:        idgen.NewULID(),
		SpaceID:   spaceID,
		ExpiresAt: expiresAt,
		MaxUses:   maxUses,
		Uses:      []string{},
	}
	if _, err := i.col.InsertOne(ctx, invite); err != nil {
		return nil, apperr.Wrap(apperr.Storage, err)
	}
	return invite, nil
}

// Get returns the invite record for code.
func (i *Invites) Get(ctx context.Context, code string) (*Invite, error) {
	var invite Invite
	err := i.col.FindOne(ctx, bson.M{"id": code}).Decode(&invite)
	if err == mongo.ErrNoDocuments {
		return nil, apperr.New(apperr.NotFound)
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Storage, err)
	}
	return &invite, nil
}

// GetForSpace returns every invite code minted for spaceID.
func (i *Invites) GetForSpace(ctx context.Context, spaceID string) ([]Invite, error) {
	cursor, err := i.col.Find(ctx, bson.M{"spaceId": spaceID})
	if err != nil {
		return nil, apperr.Wrap(apperr.Storage, err)
	}
	defer cursor.Close(ctx)

	invites := []Invite{}
	if err := cursor.All(ctx, &invites); err != nil {
		return nil, apperr.Wrap(apperr.Storage, err)
	}
	return invites, nil
}

// Delete revokes the invite code.
func (i *Invites) Delete(ctx context.Context, code string) error {
	if _, err := i.col.DeleteOne(ctx, bson.M{"id": code}); err != nil {
		return apperr.Wrap(apperr.Storage, err)
	}
	return nil
}

// Accept records callerID's use of code and admits them to the invite's
// space, grounded on the original's User::accept_invite: a
// find_one_and_update pushes the caller into the invite's uses array in
// the same round trip that proves the invite still exists, then the
// owning space record is fetched and the caller joined to it.
//
// The invite's expiry and use-count limits are checked against a fresh
// read before the use is recorded: consuming the use first and checking
// limits after would permanently inflate the stored use count on every
// rejected retry against an already-expired or already-exhausted invite.
func (i *Invites) Accept(ctx context.Context, spaces *Spaces, callerID, code string) (*Space, error) {
	invite, err := i.Get(ctx, code)
	if err != nil {
		return nil, err
	}
	if invite.ExpiresAt != nil && time.Now().After(*invite.ExpiresAt) {
		return nil, apperr.New(apperr.NotFound)
	}
	if invite.MaxUses != nil && len(invite.Uses) >= *invite.MaxUses {
		return nil, apperr.New(apperr.NotFound)
	}

	invite, err = i.consumeUse(ctx, callerID, code)
	if err != nil {
		return nil, err
	}

	space, err := spaces.Get(ctx, invite.SpaceID)
	if err != nil {
		return nil, err
	}
	if err := spaces.AddMember(ctx, space.ID, callerID); err != nil {
		return nil, err
	}
	return space, nil
}

func (i *Invites) consumeUse(ctx context.Context, callerID, code string) (*Invite, error) {
	var invite Invite
	err := i.col.FindOneAndUpdate(ctx,
		bson.M{"id": code},
		bson.M{"$push": bson.M{"uses": callerID}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&invite)
	if err == mongo.ErrNoDocuments {
		return nil, apperr.New(apperr.NotFound)
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Storage, err)
	}
	return &invite, nil
}

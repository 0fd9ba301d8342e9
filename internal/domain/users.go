// Package domain implements the schema-less document records the core
// reads and writes to enforce authorization and serve the method surface
// named in SPEC_FULL.md §6: users, spaces, channels, members, roles,
// invites, and messages, all backed by MongoDB.
package domain

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/rjsadow/aurora/internal/apperr"
	"github.com/rjsadow/aurora/internal/store"
)

// Relationship is the state of a directed user-user affinity edge.
type Relationship string

const (
	RelationshipFriend    Relationship = "friend"
	RelationshipBlocked   Relationship = "blocked"
	RelationshipRequested Relationship = "requested"
	RelationshipPending   Relationship = "pending"
)

// Affinity is one directed edge in the user-user relationship graph.
type Affinity struct {
	ID           string       `bson:"id"`
	Relationship Relationship `bson:"relationship"`
}

// User is the subset of a platform user the core reads and writes.
type User struct {
	ID                 string     `bson:"id"`
	ProfileBanner      string     `bson:"profileBanner,omitempty"`
	ProfileDescription string     `bson:"profileDescription"`
	Affinities         []Affinity `bson:"affinities"`
	Online             bool       `bson:"online,omitempty"`
}

// Users is the users collection's repository.
type Users struct {
	col *mongo.Collection
}

// NewUsers builds a Users repository over m.
func NewUsers(m *store.Mongo) *Users {
	return &Users{col: m.Collection(store.CollectionUsers)}
}

func (u *Users) get(ctx context.Context, id string) (*User, error) {
	var user User
	err := u.col.FindOne(ctx, bson.M{"id": id}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, apperr.New(apperr.NotFound)
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Storage, err)
	}
	return &user, nil
}

// Get returns the user record for id.
func (u *Users) Get(ctx context.Context, id string) (*User, error) {
	return u.get(ctx, id)
}

// GetByUsername is a placeholder lookup kept username-addressable for
// addFriendByUsername; usernames live on a profile field the core does
// not otherwise touch.
func (u *Users) GetByUsername(ctx context.Context, username string) (*User, error) {
	var user User
	err := u.col.FindOne(ctx, bson.M{"username": username}).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, apperr.New(apperr.NotFound)
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Storage, err)
	}
	return &user, nil
}

func (u *Users) affinityWith(user *User, otherID string) *Affinity {
	for i := range user.Affinities {
		if user.Affinities[i].ID == otherID {
			return &user.Affinities[i]
		}
	}
	return nil
}

// AddFriend runs the affinity state machine (grounded on the original's
// User::add_friend): no existing affinity starts a request (Requested on
// the caller, Pending on the target); a Pending affinity on the caller
// accepts the target's earlier request and both sides become Friend; an
// existing Friend/Blocked/Requested affinity is rejected.
func (u *Users) AddFriend(ctx context.Context, callerID, friendID string) error {
	if callerID == friendID {
		return apperr.New(apperr.BadRequest)
	}
	caller, err := u.get(ctx, callerID)
	if err != nil {
		return err
	}
	if _, err := u.get(ctx, friendID); err != nil {
		return err
	}

	existing := u.affinityWith(caller, friendID)
	if existing == nil {
		if err := u.pushAffinity(ctx, callerID, friendID, RelationshipRequested); err != nil {
			return err
		}
		return u.pushAffinity(ctx, friendID, callerID, RelationshipPending)
	}

	switch existing.Relationship {
	case RelationshipFriend:
		return apperr.New(apperr.AlreadyFriends)
	case RelationshipBlocked:
		return apperr.New(apperr.Blocked)
	case RelationshipRequested:
		return apperr.New(apperr.AlreadyRequested)
	case RelationshipPending:
		if err := u.setRelationship(ctx, callerID, friendID, RelationshipFriend); err != nil {
			return err
		}
		return u.setRelationship(ctx, friendID, callerID, RelationshipFriend)
	default:
		return apperr.New(apperr.Internal)
	}
}

// RemoveFriend removes the affinity edge in both directions, whatever its
// current state (Friend: unfriend; Requested: revoke; Pending: deny).
// Blocked affinities cannot be removed this way.
func (u *Users) RemoveFriend(ctx context.Context, callerID, friendID string) error {
	caller, err := u.get(ctx, callerID)
	if err != nil {
		return err
	}
	if _, err := u.get(ctx, friendID); err != nil {
		return err
	}

	existing := u.affinityWith(caller, friendID)
	if existing == nil {
		return apperr.New(apperr.NotFound)
	}
	if existing.Relationship == RelationshipBlocked {
		return apperr.New(apperr.Blocked)
	}

	if err := u.pullAffinity(ctx, callerID, friendID); err != nil {
		return err
	}
	return u.pullAffinity(ctx, friendID, callerID)
}

// GetFriends returns the full User record for every affinity in the
// Friend state.
func (u *Users) GetFriends(ctx context.Context, callerID string) ([]User, error) {
	caller, err := u.get(ctx, callerID)
	if err != nil {
		return nil, err
	}

	var friendIDs []string
	for _, a := range caller.Affinities {
		if a.Relationship == RelationshipFriend {
			friendIDs = append(friendIDs, a.ID)
		}
	}
	if len(friendIDs) == 0 {
		return []User{}, nil
	}

	cursor, err := u.col.Find(ctx, bson.M{"id": bson.M{"$in": friendIDs}})
	if err != nil {
		return nil, apperr.Wrap(apperr.Storage, err)
	}
	defer cursor.Close(ctx)

	var friends []User
	if err := cursor.All(ctx, &friends); err != nil {
		return nil, apperr.Wrap(apperr.Storage, err)
	}
	return friends, nil
}

func (u *Users) pushAffinity(ctx context.Context, ownerID, otherID string, rel Relationship) error {
	_, err := u.col.UpdateOne(ctx,
		bson.M{"id": ownerID},
		bson.M{"$push": bson.M{"affinities": Affinity{ID: otherID, Relationship: rel}}},
	)
	if err != nil {
		return apperr.Wrap(apperr.Storage, err)
	}
	return nil
}

func (u *Users) pullAffinity(ctx context.Context, ownerID, otherID string) error {
	_, err := u.col.UpdateOne(ctx,
		bson.M{"id": ownerID},
		bson.M{"$pull": bson.M{"affinities": bson.M{"id": otherID}}},
	)
	if err != nil {
		return apperr.Wrap(apperr.Storage, err)
	}
	return nil
}

func (u *Users) setRelationship(ctx context.Context, ownerID, otherID string, rel Relationship) error {
	_, err := u.col.UpdateOne(ctx,
		bson.M{"id": ownerID},
		bson.M{"$set": bson.M{"affinities.$[affinity].relationship": rel}},
		options.UpdateOne().SetArrayFilters(options.ArrayFilters{
			Filters: []any{bson.M{"affinity.id": otherID}},
		}),
	)
	if err != nil {
		return apperr.Wrap(apperr.Storage, err)
	}
	return nil
}

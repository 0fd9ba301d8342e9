package domain

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/rjsadow/aurora/internal/apperr"
	"github.com/rjsadow/aurora/internal/store"
)

// Member scopes a user to a space and the roles they hold there.
type Member struct {
	UserID  string   `bson:"userId"`
	SpaceID string   `bson:"spaceId"`
	RoleIDs []string `bson:"roleIds"`
}

// Members is the members collection's repository.
type Members struct {
	col *mongo.Collection
}

// NewMembers builds a Members repository over m.
func NewMembers(m *store.Mongo) *Members {
	return &Members{col: m.Collection(store.CollectionMembers)}
}

// Upsert creates the membership record for (userID, spaceID) if absent,
// leaving an existing record's roles untouched.
func (m *Members) Upsert(ctx context.Context, userID, spaceID string) error {
	_, err := m.col.UpdateOne(ctx,
		bson.M{"userId": userID, "spaceId": spaceID},
		bson.M{
			"$setOnInsert": bson.M{"userId": userID, "spaceId": spaceID, "roleIds": []string{}},
		},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		return apperr.Wrap(apperr.Storage, err)
	}
	return nil
}

// Get returns the membership record for (userID, spaceID).
func (m *Members) Get(ctx context.Context, userID, spaceID string) (*Member, error) {
	var member Member
	err := m.col.FindOne(ctx, bson.M{"userId": userID, "spaceId": spaceID}).Decode(&member)
	if err == mongo.ErrNoDocuments {
		return nil, apperr.New(apperr.NotFound)
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Storage, err)
	}
	return &member, nil
}

// AddRole grants roleID to the member's role list.
func (m *Members) AddRole(ctx context.Context, userID, spaceID, roleID string) error {
	_, err := m.col.UpdateOne(ctx,
		bson.M{"userId": userID, "spaceId": spaceID},
		bson.M{"$addToSet": bson.M{"roleIds": roleID}},
	)
	if err != nil {
		return apperr.Wrap(apperr.Storage, err)
	}
	return nil
}

// RemoveRole revokes roleID from every member holding it, used when a
// role is deleted out from under a space.
func (m *Members) RemoveRole(ctx context.Context, spaceID, roleID string) error {
	_, err := m.col.UpdateMany(ctx,
		bson.M{"spaceId": spaceID},
		bson.M{"$pull": bson.M{"roleIds": roleID}},
	)
	if err != nil {
		return apperr.Wrap(apperr.Storage, err)
	}
	return nil
}

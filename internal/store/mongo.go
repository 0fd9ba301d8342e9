// Package store wraps the two external stores the core depends on but
// does not own: a MongoDB document store for domain records, and a
// Redis server used both as the active-call key-value store and the
// media-node pub/sub bus.
package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Mongo wraps a connected client and the application database.
type Mongo struct {
	Client   *mongo.Client
	Database *mongo.Database
}

// ConnectMongo dials uri and selects database, verifying connectivity
// with a ping before returning.
func ConnectMongo(ctx context.Context, uri, database string) (*Mongo, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("store: connect mongo: %w", err)
	}

	pingCtx, cancel2 := context.WithTimeout(ctx, 10*time.Second)
	defer cancel2()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("store: ping mongo: %w", err)
	}

	return &Mongo{Client: client, Database: client.Database(database)}, nil
}

// Collection is a convenience accessor over m.Database.Collection.
func (m *Mongo) Collection(name string) *mongo.Collection {
	return m.Database.Collection(name)
}

// Close disconnects the underlying client.
func (m *Mongo) Close(ctx context.Context) error {
	return m.Client.Disconnect(ctx)
}

// Collection names for the domain records named in SPEC_FULL.md §3.
const (
	CollectionUsers    = "users"
	CollectionSpaces   = "spaces"
	CollectionChannels = "channels"
	CollectionMembers  = "members"
	CollectionRoles    = "roles"
	CollectionInvites  = "invites"
	CollectionMessages = "messages"
	CollectionCalls    = "call_history"
)

package store

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// NodesChannel is the pub/sub channel the media-node fleet and the core
// exchange Description/Ping/Disconnect/Query/UserConnect/UserCreate
// events on.
const NodesChannel = "nodes"

// Redis wraps a go-redis client used both as the active-call key-value
// store and as the "nodes" pub/sub bus.
type Redis struct {
	Client *redis.Client
}

// ConnectRedis dials uri (a redis:// URL) and verifies connectivity.
func ConnectRedis(ctx context.Context, uri string) (*Redis, error) {
	opts, err := redis.ParseURL(uri)
	if err != nil {
		return nil, fmt.Errorf("store: parse redis uri: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("store: ping redis: %w", err)
	}
	return &Redis{Client: client}, nil
}

// Close closes the underlying client.
func (r *Redis) Close() error {
	return r.Client.Close()
}

// CallKey is the canonical key for an active call's record.
func CallKey(callID string) string {
	return fmt.Sprintf("call:%s", callID)
}

// CallWitnessKey is the uniqueness witness key for the (space, channel)
// pair hosting an active call.
func CallWitnessKey(spaceID, channelID string) string {
	return fmt.Sprintf("call:%s:%s", spaceID, channelID)
}

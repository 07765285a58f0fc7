// internal/presence/presence.go
package presence

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Registry tracks which backend instance each live player occupies, plus
// the set of online usernames for command autocompletion. Only the gateway
// writes it; the routing layer calls Set/Clear as players connect, move
// and disconnect.
type Registry struct {
	rdb *redis.Client
}

const (
	playerKeyPrefix = "friend:presence:"
	onlineSetKey    = "friend:online"
)

// Connect initializes the Redis client and verifies it with a ping.
func Connect(addr string, db int) (*Registry, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	return &Registry{rdb: rdb}, nil
}

// NewWithClient wraps an existing client; used by tests.
func NewWithClient(rdb *redis.Client) *Registry {
	return &Registry{rdb: rdb}
}

// Set records that player (named username) is currently hosted by server.
func (r *Registry) Set(ctx context.Context, player uuid.UUID, username, server string) error {
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, playerKeyPrefix+player.String(), server, 0)
		pipe.SAdd(ctx, onlineSetKey, username)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to set presence for %s: %w", player, err)
	}
	return nil
}

// Clear removes the player's presence entry on disconnect.
func (r *Registry) Clear(ctx context.Context, player uuid.UUID, username string) error {
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, playerKeyPrefix+player.String())
		pipe.SRem(ctx, onlineSetKey, username)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to clear presence for %s: %w", player, err)
	}
	return nil
}

// Lookup returns the backend instance currently hosting player. ok is
// false when the player has no live presence entry. This is a snapshot
// read; the player may move the instant it returns.
func (r *Registry) Lookup(ctx context.Context, player uuid.UUID) (server string, ok bool, err error) {
	server, err = r.rdb.Get(ctx, playerKeyPrefix+player.String()).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to look up presence for %s: %w", player, err)
	}
	return server, true, nil
}

// OnlineUsernames lists every connected player's name, for autocompletion
// of the friend/unfriend name argument.
func (r *Registry) OnlineUsernames(ctx context.Context) ([]string, error) {
	names, err := r.rdb.SMembers(ctx, onlineSetKey).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list online usernames: %w", err)
	}
	return names, nil
}

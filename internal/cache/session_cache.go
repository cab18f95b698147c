package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"plantdoc/internal/session"

	"github.com/redis/go-redis/v9"
)

// ErrNotFound is returned when no snapshot is cached for a user
var ErrNotFound = errors.New("cache: not found")

// SessionCache keeps the durable part of each user's wizard so it can be
// resumed after a restart
type SessionCache interface {
	Set(ctx context.Context, userID string, snap session.Snapshot) error
	Get(ctx context.Context, userID string) (*session.Snapshot, error)
	Delete(ctx context.Context, userID string) error
}

type sessionCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewSessionCache creates a Redis-backed session cache. A zero ttl keeps
// entries until deleted.
func NewSessionCache(client redis.UniversalClient, ttl time.Duration) SessionCache {
	return &sessionCache{
		client: client,
		ttl:    ttl,
	}
}

func sessionKey(userID string) string {
	return "plantdoc:session:" + userID
}

func (c *sessionCache) Set(ctx context.Context, userID string, snap session.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, sessionKey(userID), data, c.ttl).Err()
}

func (c *sessionCache) Get(ctx context.Context, userID string) (*session.Snapshot, error) {
	data, err := c.client.Get(ctx, sessionKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var snap session.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

func (c *sessionCache) Delete(ctx context.Context, userID string) error {
	return c.client.Del(ctx, sessionKey(userID)).Err()
}

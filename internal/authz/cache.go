package authz

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const snapshotKeyPrefix = "authz:snapshot:"

type snapshotPayload struct {
	Role  string `json:"role"`
	Pairs []Pair `json:"pairs"`
}

// CachedSource is a read-through Redis cache in front of a SnapshotSource.
// Snapshots are immutable, so a cached copy can never be stale; concurrent
// loads for the same session collapse into one storage round trip.
type CachedSource struct {
	inner  SnapshotSource
	client *redis.Client
	ttl    time.Duration
	group  singleflight.Group
}

// NewCachedSource wraps inner with a Redis cache. ttl should match the
// session lifetime so cache entries disappear with their session.
func NewCachedSource(inner SnapshotSource, client *redis.Client, ttl time.Duration) *CachedSource {
	return &CachedSource{inner: inner, client: client, ttl: ttl}
}

// LoadSnapshot returns the cached snapshot or falls through to the inner
// source. Unknown sessions are not cached.
func (c *CachedSource) LoadSnapshot(ctx context.Context, sessionID string) (*Snapshot, error) {
	key := snapshotKeyPrefix + sessionID

	data, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var stored snapshotPayload
		if err := json.Unmarshal(data, &stored); err == nil {
			return NewSnapshot(sessionID, stored.Role, stored.Pairs), nil
		}
		// Unreadable entry: drop it and reload from the source.
		_ = c.client.Del(ctx, key).Err()
	} else if !errors.Is(err, redis.Nil) {
		return nil, err
	}

	ch := c.group.DoChan(key, func() (any, error) {
		snapshot, err := c.inner.LoadSnapshot(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		if snapshot != nil {
			payload, err := json.Marshal(snapshotPayload{Role: snapshot.Role, Pairs: snapshot.Pairs()})
			if err == nil {
				_ = c.client.Set(ctx, key, payload, c.ttl).Err()
			}
		}
		return snapshot, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		snapshot, _ := res.Val.(*Snapshot)
		return snapshot, nil
	}
}

// Invalidate drops the cached snapshot for a session (logout).
func (c *CachedSource) Invalidate(ctx context.Context, sessionID string) error {
	err := c.client.Del(ctx, snapshotKeyPrefix+sessionID).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	return nil
}

var _ SnapshotSource = (*CachedSource)(nil)

package authz

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/atlas-mdm/atlas-mdm/testing"
)

type countingSource struct {
	inner *stubSource
	loads int
}

func (c *countingSource) LoadSnapshot(ctx context.Context, sessionID string) (*Snapshot, error) {
	c.loads++
	return c.inner.LoadSnapshot(ctx, sessionID)
}

func newCacheFixture(t *testing.T, snapshots map[string]*Snapshot) (*CachedSource, *countingSource) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	source := &countingSource{inner: &stubSource{snapshots: snapshots}}
	return NewCachedSource(source, client, time.Minute), source
}

func TestCachedSourceReadThrough(t *testing.T) {
	snapshot := NewSnapshot("sess-1", "viewer", []Pair{{}})
	cache, source := newCacheFixture(t, map[string]*Snapshot{"sess-1": snapshot})

	first, err := cache.LoadSnapshot(t.Context(), "sess-1")
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, "viewer", first.Role)
	assert.Equal(t, 1, source.loads)

	second, err := cache.LoadSnapshot(t.Context(), "sess-1")
	require.NoError(t, err)
	require.NotNil(t, second)
	assert.Equal(t, "viewer", second.Role)
	assert.Equal(t, 1, source.loads, "second read should hit the cache")
}

func TestCachedSourceUnknownSessionNotCached(t *testing.T) {
	cache, source := newCacheFixture(t, nil)

	snapshot, err := cache.LoadSnapshot(t.Context(), "sess-missing")
	require.NoError(t, err)
	assert.Nil(t, snapshot)

	snapshot, err = cache.LoadSnapshot(t.Context(), "sess-missing")
	require.NoError(t, err)
	assert.Nil(t, snapshot)
	assert.Equal(t, 2, source.loads, "unknown sessions must not be cached")
}

func TestCachedSourceInvalidate(t *testing.T) {
	snapshot := NewSnapshot("sess-1", "viewer", nil)
	cache, source := newCacheFixture(t, map[string]*Snapshot{"sess-1": snapshot})

	_, err := cache.LoadSnapshot(t.Context(), "sess-1")
	require.NoError(t, err)
	require.NoError(t, cache.Invalidate(t.Context(), "sess-1"))

	_, err = cache.LoadSnapshot(t.Context(), "sess-1")
	require.NoError(t, err)
	assert.Equal(t, 2, source.loads)
}

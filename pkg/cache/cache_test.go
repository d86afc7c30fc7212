package cache

import (
	"context"
	"fmt"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-kit/log"
	"github.com/grafana/gomemcache/memcache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		backend     string
		expectNil   bool
		expectError bool
	}{
		{backend: "", expectNil: true},
		{backend: BackendLocal},
		{backend: BackendRedis},
		{backend: "blerg", expectNil: true, expectError: true},
	}

	for _, tc := range tests {
		t.Run("backend "+tc.backend, func(t *testing.T) {
			cfg := &Config{Backend: tc.backend}
			cfg.Local.MaxItems = 10

			c, err := New(cfg, prometheus.NewRegistry(), log.NewNopLogger())
			if tc.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			if tc.expectNil {
				assert.Nil(t, c)
			} else {
				assert.NotNil(t, c)
				c.Stop()
			}
		})
	}
}

func TestLocalEvicts(t *testing.T) {
	c, err := NewLocal(LocalConfig{MaxItems: 2})
	require.NoError(t, err)
	defer c.Stop()

	ctx := context.Background()
	c.Store(ctx, "a", []byte("1"))
	c.Store(ctx, "b", []byte("2"))
	c.Store(ctx, "c", []byte("3"))

	_, ok := c.FetchKey(ctx, "a")
	assert.False(t, ok)

	buf, ok := c.FetchKey(ctx, "c")
	assert.True(t, ok)
	assert.Equal(t, []byte("3"), buf)
}

func TestRedisStoreFetch(t *testing.T) {
	mr := miniredis.RunT(t)

	c := NewRedis(RedisConfig{Endpoint: mr.Addr()}, "test", prometheus.NewRegistry(), log.NewNopLogger())
	defer c.Stop()

	ctx := context.Background()

	_, ok := c.FetchKey(ctx, "missing")
	assert.False(t, ok)

	c.Store(ctx, "key", []byte("value"))
	buf, ok := c.FetchKey(ctx, "key")
	assert.True(t, ok)
	assert.Equal(t, []byte("value"), buf)
}

type mockMemcachedClient struct {
	items map[string]*memcache.Item
	err   error
}

func (m *mockMemcachedClient) Get(key string) (*memcache.Item, error) {
	if m.err != nil {
		return nil, m.err
	}
	item, ok := m.items[key]
	if !ok {
		return nil, memcache.ErrCacheMiss
	}
	return item, nil
}

func (m *mockMemcachedClient) Set(item *memcache.Item) error {
	if m.err != nil {
		return m.err
	}
	m.items[item.Key] = item
	return nil
}

func (m *mockMemcachedClient) Close() {}

func TestMemcachedStoreFetch(t *testing.T) {
	client := &mockMemcachedClient{items: map[string]*memcache.Item{}}
	c := NewMemcached(MemcachedConfig{}, client, "test", prometheus.NewRegistry(), log.NewNopLogger())
	defer c.Stop()

	ctx := context.Background()

	_, ok := c.FetchKey(ctx, "missing")
	assert.False(t, ok)

	c.Store(ctx, "key", []byte("value"))
	buf, ok := c.FetchKey(ctx, "key")
	assert.True(t, ok)
	assert.Equal(t, []byte("value"), buf)
}

func TestMemcachedErrorsAreMisses(t *testing.T) {
	client := &mockMemcachedClient{items: map[string]*memcache.Item{}, err: fmt.Errorf("blerg")}
	c := NewMemcached(MemcachedConfig{}, client, "test", prometheus.NewRegistry(), log.NewNopLogger())
	defer c.Stop()

	ctx := context.Background()
	c.Store(ctx, "key", []byte("value"))

	_, ok := c.FetchKey(ctx, "key")
	assert.False(t, ok)
}

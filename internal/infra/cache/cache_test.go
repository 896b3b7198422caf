package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	sharedCache "github.com/davicafu/hexacrud/shared/platform/cache"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type entry struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func exerciseCache(t *testing.T, c sharedCache.Cache) {
	t.Helper()
	ctx := context.Background()

	var got entry
	hit, err := c.Get(ctx, "blog:id:1", &got)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, c.Set(ctx, "blog:id:1", entry{Name: "uno", Count: 1}, 60))
	hit, err = c.Get(ctx, "blog:id:1", &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, entry{Name: "uno", Count: 1}, got)

	require.NoError(t, c.Delete(ctx, "blog:id:1"))
	hit, err = c.Get(ctx, "blog:id:1", &got)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestRedisCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	c := NewRedisCache(client, time.Minute)
	exerciseCache(t, c)

	// TTL por defecto y expiración
	require.NoError(t, c.Set(context.Background(), "k", entry{Name: "x"}, 0))
	assert.Equal(t, time.Minute, mr.TTL("k"))
	mr.FastForward(2 * time.Minute)

	var got entry
	hit, err := c.Get(context.Background(), "k", &got)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestInMemoryCache(t *testing.T) {
	c := NewInMemoryCache(time.Minute, time.Hour)
	defer c.Stop()
	exerciseCache(t, c)

	require.NoError(t, c.Set(context.Background(), "k", entry{Name: "x"}, 0))
	c.mu.Lock()
	item := c.store["k"]
	item.expiresAt = time.Now().UTC().Add(-time.Second)
	c.store["k"] = item
	c.mu.Unlock()

	var got entry
	hit, err := c.Get(context.Background(), "k", &got)
	require.NoError(t, err)
	assert.False(t, hit)

	c.Stop()
	c.Stop()
}

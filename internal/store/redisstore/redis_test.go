package redisstore

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dkeye/dicetable/internal/store"
	"github.com/dkeye/dicetable/internal/store/storetest"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, ttl time.Duration) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	s := New(redis.NewClient(&redis.Options{Addr: mr.Addr()}), ttl)
	t.Cleanup(func() { _ = s.Close() })
	return s, mr
}

func TestRedisStore(t *testing.T) {
	s, _ := newTestStore(t, 0)
	storetest.Run(t, s)
}

func TestRedisKeysAndExpiry(t *testing.T) {
	s, mr := newTestStore(t, time.Hour)
	ctx := context.Background()

	rec := store.Record{ID: "m1", Kind: store.KindMonsters, RoomID: "R", Data: json.RawMessage(`{"hp":7}`)}
	require.NoError(t, s.Put(ctx, rec))
	assert.True(t, mr.Exists("record:monsters:m1"))
	members, err := mr.Members("room:R:monsters")
	require.NoError(t, err)
	assert.Equal(t, []string{"m1"}, members)

	mr.FastForward(2 * time.Hour)
	_, err = s.Get(ctx, store.KindMonsters, "m1")
	assert.ErrorIs(t, err, store.ErrNotFound)

	list, err := s.ListByRoom(ctx, store.KindMonsters, "R")
	require.NoError(t, err)
	assert.Empty(t, list)
	assert.False(t, mr.Exists("room:R:monsters"), "stale index entries are pruned")
}

func TestOpenFailsWithoutServer(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := Open(ctx, "redis://"+addr, 0)
	assert.Error(t, err)
}

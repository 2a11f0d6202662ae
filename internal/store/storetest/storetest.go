// Package storetest holds the behaviour every store.RecordStore must share.
package storetest

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/dkeye/dicetable/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func record(kind store.Kind, id, room, data string) store.Record {
	return store.Record{
		ID:        id,
		Kind:      kind,
		RoomID:    room,
		Data:      json.RawMessage(data),
		UpdatedAt: time.Date(2026, 2, 3, 4, 5, 6, 7_000_000, time.UTC),
	}
}

// Run exercises s against the RecordStore contract. s must start empty.
func Run(t *testing.T, s store.RecordStore) {
	ctx := context.Background()

	t.Run("ping", func(t *testing.T) {
		require.NoError(t, s.Ping(ctx))
	})

	t.Run("missing", func(t *testing.T) {
		_, err := s.Get(ctx, store.KindSheets, "nope")
		assert.ErrorIs(t, err, store.ErrNotFound)
		assert.ErrorIs(t, s.Delete(ctx, store.KindSheets, "nope"), store.ErrNotFound)
	})

	t.Run("put get roundtrip keeps data", func(t *testing.T) {
		want := record(store.KindSheets, "s1", "room-1", `{"name":"Lyra","hp":[9,12]}`)
		require.NoError(t, s.Put(ctx, want))

		got, err := s.Get(ctx, store.KindSheets, "s1")
		require.NoError(t, err)
		assert.Equal(t, want.ID, got.ID)
		assert.Equal(t, want.Kind, got.Kind)
		assert.Equal(t, want.RoomID, got.RoomID)
		assert.JSONEq(t, string(want.Data), string(got.Data))
		assert.True(t, want.UpdatedAt.Equal(got.UpdatedAt), "updatedAt %v != %v", got.UpdatedAt, want.UpdatedAt)
	})

	t.Run("kinds are separate namespaces", func(t *testing.T) {
		require.NoError(t, s.Put(ctx, record(store.KindMonsters, "s1", "room-1", `{"cr":2}`)))
		sheet, err := s.Get(ctx, store.KindSheets, "s1")
		require.NoError(t, err)
		assert.JSONEq(t, `{"name":"Lyra","hp":[9,12]}`, string(sheet.Data))
	})

	t.Run("put replaces and reindexes", func(t *testing.T) {
		require.NoError(t, s.Put(ctx, record(store.KindSheets, "s2", "room-1", `{"v":1}`)))
		require.NoError(t, s.Put(ctx, record(store.KindSheets, "s2", "room-2", `{"v":2}`)))

		got, err := s.Get(ctx, store.KindSheets, "s2")
		require.NoError(t, err)
		assert.JSONEq(t, `{"v":2}`, string(got.Data))

		room1, err := s.ListByRoom(ctx, store.KindSheets, "room-1")
		require.NoError(t, err)
		assert.Equal(t, []string{"s1"}, ids(room1))

		room2, err := s.ListByRoom(ctx, store.KindSheets, "room-2")
		require.NoError(t, err)
		assert.Equal(t, []string{"s2"}, ids(room2))
	})

	t.Run("list is sorted and empty rooms are empty", func(t *testing.T) {
		require.NoError(t, s.Put(ctx, record(store.KindSheets, "s0", "room-1", `[]`)))
		list, err := s.ListByRoom(ctx, store.KindSheets, "room-1")
		require.NoError(t, err)
		assert.Equal(t, []string{"s0", "s1"}, ids(list))

		empty, err := s.ListByRoom(ctx, store.KindRooms, "room-1")
		require.NoError(t, err)
		assert.NotNil(t, empty)
		assert.Empty(t, empty)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, s.Delete(ctx, store.KindSheets, "s0"))
		_, err := s.Get(ctx, store.KindSheets, "s0")
		assert.ErrorIs(t, err, store.ErrNotFound)

		list, err := s.ListByRoom(ctx, store.KindSheets, "room-1")
		require.NoError(t, err)
		assert.Equal(t, []string{"s1"}, ids(list))
	})

	t.Run("invalid records are rejected", func(t *testing.T) {
		assert.ErrorIs(t, s.Put(ctx, record("spells", "x", "", `{}`)), store.ErrInvalidKind)
		assert.ErrorIs(t, s.Put(ctx, record(store.KindSheets, "", "", `{}`)), store.ErrInvalidRecord)
		assert.ErrorIs(t, s.Put(ctx, record(store.KindSheets, "x", "", `{nope`)), store.ErrInvalidRecord)
	})
}

func ids(recs []store.Record) []string {
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.ID)
	}
	return out
}

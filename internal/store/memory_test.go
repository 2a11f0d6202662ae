package store_test

import (
	"context"
	"testing"

	"github.com/dkeye/dicetable/internal/store"
	"github.com/dkeye/dicetable/internal/store/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	storetest.Run(t, store.NewMemory())
}

func TestMemoryStoreCopiesData(t *testing.T) {
	m := store.NewMemory()
	data := []byte(`{"a":1}`)
	require.NoError(t, m.Put(context.Background(), store.Record{ID: "x", Kind: store.KindRooms, Data: data}))
	data[1] = 'X'

	got, err := m.Get(context.Background(), store.KindRooms, "x")
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(got.Data))
}

func TestParseKind(t *testing.T) {
	k, err := store.ParseKind(" Sheets ")
	require.NoError(t, err)
	assert.Equal(t, store.KindSheets, k)

	_, err = store.ParseKind("spells")
	assert.ErrorIs(t, err, store.ErrInvalidKind)
}

package kvstore

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryGetMissing(t *testing.T) {
	store := NewMemory()
	value, found, err := store.Get(context.Background(), "rooms")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, value)
}

func TestMemorySetCopiesValue(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()
	payload := json.RawMessage(`[1,2]`)
	require.NoError(t, store.Set(ctx, "rooms", payload))
	payload[1] = '9'

	value, found, err := store.Get(ctx, "rooms")
	require.NoError(t, err)
	assert.True(t, found)
	assert.JSONEq(t, `[1,2]`, string(value))
}

func TestMemoryOwnWritesDoNotNotify(t *testing.T) {
	store := NewMemory()
	var seen []string
	store.Subscribe(func(key string) { seen = append(seen, key) })

	require.NoError(t, store.Set(context.Background(), "rooms", json.RawMessage(`[]`)))
	assert.Empty(t, seen)

	require.NoError(t, store.SetExternal(context.Background(), "students", json.RawMessage(`[]`)))
	assert.Equal(t, []string{"students"}, seen)
}

func TestUnsubscribe(t *testing.T) {
	store := NewMemory()
	calls := 0
	unsubscribe := store.Subscribe(func(string) { calls++ })
	unsubscribe()
	unsubscribe()

	require.NoError(t, store.SetExternal(context.Background(), "rooms", json.RawMessage(`[]`)))
	assert.Zero(t, calls)
}

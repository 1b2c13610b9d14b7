package kvstore

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisHandleMessageFiltersOwnOrigin(t *testing.T) {
	store := NewRedis(nil, "changes", nil)
	var seen []string
	store.Subscribe(func(key string) { seen = append(seen, key) })

	own, err := json.Marshal(changeMessage{Key: "rooms", Origin: store.origin})
	require.NoError(t, err)
	store.handleMessage(string(own))

	other, err := json.Marshal(changeMessage{Key: "students", Origin: "replica-2"})
	require.NoError(t, err)
	store.handleMessage(string(other))

	store.handleMessage("not json")

	assert.Equal(t, []string{"students"}, seen)
}

package kvstore

import (
	"context"
	"encoding/json"
	"sync"
)

// Memory keeps values in process memory. Used by tests and by
// single-process development runs.
type Memory struct {
	mu     sync.RWMutex
	values map[string]json.RawMessage
	subs   listeners
}

// NewMemory constructs an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{values: make(map[string]json.RawMessage)}
}

func (m *Memory) Get(_ context.Context, key string) (json.RawMessage, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	if !ok {
		return nil, false, nil
	}
	out := make(json.RawMessage, len(v))
	copy(out, v)
	return out, true, nil
}

func (m *Memory) Set(_ context.Context, key string, value json.RawMessage) error {
	stored := make(json.RawMessage, len(value))
	copy(stored, value)
	m.mu.Lock()
	m.values[key] = stored
	m.mu.Unlock()
	return nil
}

func (m *Memory) Subscribe(fn func(key string)) func() {
	return m.subs.add(fn)
}

// SetExternal writes a value as if another process had done it, notifying
// subscribers.
func (m *Memory) SetExternal(ctx context.Context, key string, value json.RawMessage) error {
	if err := m.Set(ctx, key, value); err != nil {
		return err
	}
	m.subs.notify(key)
	return nil
}

func (m *Memory) Close() error { return nil }

// Package kvstore persists whole JSON collections under string keys.
//
// It deliberately offers no partial updates or transactions: callers read
// a full value, compute a new one and write it back. Subscribe reports
// writes that happened somewhere else (another replica or process) so
// derived data can be recomputed.
package kvstore

import (
	"context"
	"encoding/json"
	"sync"
)

// Store is the key-value contract every driver implements.
type Store interface {
	Get(ctx context.Context, key string) (json.RawMessage, bool, error)
	Set(ctx context.Context, key string, value json.RawMessage) error
	Subscribe(fn func(key string)) (unsubscribe func())
	Close() error
}

// listeners is the subscriber registry shared by the drivers.
type listeners struct {
	mu     sync.RWMutex
	nextID int
	fns    map[int]func(string)
}

func (l *listeners) add(fn func(string)) func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fns == nil {
		l.fns = make(map[int]func(string))
	}
	id := l.nextID
	l.nextID++
	l.fns[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.fns, id)
			l.mu.Unlock()
		})
	}
}

func (l *listeners) notify(key string) {
	l.mu.RLock()
	fns := make([]func(string), 0, len(l.fns))
	for _, fn := range l.fns {
		fns = append(fns, fn)
	}
	l.mu.RUnlock()
	for _, fn := range fns {
		fn(key)
	}
}

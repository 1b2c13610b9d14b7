// Package events carries "something changed" notifications between the
// parts of the process that mutate collections and the parts that derive
// data from them.
package events

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Collection names a persisted collection.
type Collection string

const (
	CollectionRooms         Collection = "rooms"
	CollectionStudents      Collection = "students"
	CollectionKasra         Collection = "kasra"
	CollectionPayments      Collection = "payments"
	CollectionViolations    Collection = "violations"
	CollectionComplaints    Collection = "complaints"
	CollectionAnnouncements Collection = "announcements"
	CollectionActivities    Collection = "activities"
)

// Source tells subscribers where a change came from.
type Source string

const (
	SourceLocal      Source = "local"
	SourceExternal   Source = "external"
	SourceReconciler Source = "reconciler"
)

// Change is the notification payload. It carries no diff.
type Change struct {
	Collection Collection `json:"collection"`
	Source     Source     `json:"source"`
	At         time.Time  `json:"at"`
}

// Handler receives changes.
type Handler func(Change)

// Bus is a synchronous broadcast channel. Handlers run in subscription
// order on the publishing goroutine.
type Bus struct {
	mu       sync.RWMutex
	nextID   int
	order    []int
	handlers map[int]Handler
	logger   *zap.Logger
}

// NewBus constructs an empty bus.
func NewBus(logger *zap.Logger) *Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Bus{handlers: make(map[int]Handler), logger: logger}
}

// Subscribe registers h and returns a function removing it.
func (b *Bus) Subscribe(h Handler) func() {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.handlers[id] = h
	b.order = append(b.order, id)
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.handlers, id)
			for i, v := range b.order {
				if v == id {
					b.order = append(b.order[:i], b.order[i+1:]...)
					break
				}
			}
		})
	}
}

// Publish delivers change to every handler. A panicking handler is logged
// and does not stop delivery to the rest.
func (b *Bus) Publish(change Change) {
	if b == nil {
		return
	}
	if change.At.IsZero() {
		change.At = time.Now().UTC()
	}
	if change.Source == "" {
		change.Source = SourceLocal
	}

	b.mu.RLock()
	handlers := make([]Handler, 0, len(b.order))
	for _, id := range b.order {
		handlers = append(handlers, b.handlers[id])
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		b.deliver(h, change)
	}
}

func (b *Bus) deliver(h Handler, change Change) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("change handler panicked", zap.String("collection", string(change.Collection)), zap.Any("panic", r))
		}
	}()
	h(change)
}

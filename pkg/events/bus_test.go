package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPublishDeliversInOrder(t *testing.T) {
	bus := NewBus(nil)
	var got []string
	bus.Subscribe(func(c Change) { got = append(got, "a:"+string(c.Collection)) })
	bus.Subscribe(func(c Change) { got = append(got, "b:"+string(c.Collection)) })

	bus.Publish(Change{Collection: CollectionStudents})

	assert.Equal(t, []string{"a:students", "b:students"}, got)
}

func TestPublishDefaults(t *testing.T) {
	bus := NewBus(nil)
	var got Change
	bus.Subscribe(func(c Change) { got = c })

	bus.Publish(Change{Collection: CollectionRooms})

	assert.Equal(t, SourceLocal, got.Source)
	assert.False(t, got.At.IsZero())
}

func TestPanickingHandlerDoesNotStopDelivery(t *testing.T) {
	bus := NewBus(nil)
	delivered := false
	bus.Subscribe(func(Change) { panic("boom") })
	bus.Subscribe(func(Change) { delivered = true })

	assert.NotPanics(t, func() { bus.Publish(Change{Collection: CollectionKasra}) })
	assert.True(t, delivered)
}

func TestUnsubscribe(t *testing.T) {
	bus := NewBus(nil)
	calls := 0
	unsubscribe := bus.Subscribe(func(Change) { calls++ })
	bus.Publish(Change{Collection: CollectionRooms})
	unsubscribe()
	bus.Publish(Change{Collection: CollectionRooms})

	assert.Equal(t, 1, calls)
}

func TestNilBusPublishIsNoop(t *testing.T) {
	var bus *Bus
	assert.NotPanics(t, func() { bus.Publish(Change{Collection: CollectionRooms}) })
}

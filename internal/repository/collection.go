package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/asrama-api/internal/models"
	"github.com/noah-isme/asrama-api/pkg/events"
	"github.com/noah-isme/asrama-api/pkg/kvstore"
)

// Store keys, one per collection.
const (
	KeyRooms         = string(events.CollectionRooms)
	KeyStudents      = string(events.CollectionStudents)
	KeyKasra         = string(events.CollectionKasra)
	KeyPayments      = string(events.CollectionPayments)
	KeyViolations    = string(events.CollectionViolations)
	KeyComplaints    = string(events.CollectionComplaints)
	KeyAnnouncements = string(events.CollectionAnnouncements)
	KeyActivities    = string(events.CollectionActivities)
)

// Collection persists a whole slice of T under one key. There are no
// partial writes: LoadAll returns everything, ReplaceAll overwrites it.
type Collection[T any] struct {
	store  kvstore.Store
	key    string
	logger *zap.Logger
}

// NewCollection binds a collection to a store key.
func NewCollection[T any](store kvstore.Store, key string, logger *zap.Logger) *Collection[T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Collection[T]{store: store, key: key, logger: logger}
}

// Key returns the store key backing the collection.
func (c *Collection[T]) Key() string { return c.key }

// LoadAll reads the collection. A missing or unreadable value is an empty
// collection, and elements that fail to decode are skipped, so one dirty
// record never hides the rest.
func (c *Collection[T]) LoadAll(ctx context.Context) ([]T, error) {
	raw, found, err := c.store.Get(ctx, c.key)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", c.key, err)
	}
	if !found || len(raw) == 0 {
		return []T{}, nil
	}

	var elements []json.RawMessage
	if err := json.Unmarshal(raw, &elements); err != nil {
		c.logger.Warn("stored collection is not a JSON array, treating as empty", zap.String("key", c.key), zap.Error(err))
		return []T{}, nil
	}

	items := make([]T, 0, len(elements))
	for i, element := range elements {
		var item T
		if err := json.Unmarshal(element, &item); err != nil {
			c.logger.Warn("skipping undecodable record", zap.String("key", c.key), zap.Int("index", i), zap.Error(err))
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

// ReplaceAll overwrites the collection with items.
func (c *Collection[T]) ReplaceAll(ctx context.Context, items []T) error {
	if items == nil {
		items = []T{}
	}
	payload, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode %s: %w", c.key, err)
	}
	if err := c.store.Set(ctx, c.key, payload); err != nil {
		return fmt.Errorf("replace %s: %w", c.key, err)
	}
	return nil
}

// NewRoomRepository returns the room directory collection.
func NewRoomRepository(store kvstore.Store, logger *zap.Logger) *Collection[models.Room] {
	return NewCollection[models.Room](store, KeyRooms, logger)
}

// NewPaymentRepository returns the payment collection.
func NewPaymentRepository(store kvstore.Store, logger *zap.Logger) *Collection[models.Payment] {
	return NewCollection[models.Payment](store, KeyPayments, logger)
}

// NewViolationRepository returns the violation collection.
func NewViolationRepository(store kvstore.Store, logger *zap.Logger) *Collection[models.Violation] {
	return NewCollection[models.Violation](store, KeyViolations, logger)
}

// NewComplaintRepository returns the complaint collection.
func NewComplaintRepository(store kvstore.Store, logger *zap.Logger) *Collection[models.Complaint] {
	return NewCollection[models.Complaint](store, KeyComplaints, logger)
}

// NewAnnouncementRepository returns the announcement collection.
func NewAnnouncementRepository(store kvstore.Store, logger *zap.Logger) *Collection[models.Announcement] {
	return NewCollection[models.Announcement](store, KeyAnnouncements, logger)
}

// NewActivityRepository returns the activity collection.
func NewActivityRepository(store kvstore.Store, logger *zap.Logger) *Collection[models.Activity] {
	return NewCollection[models.Activity](store, KeyActivities, logger)
}

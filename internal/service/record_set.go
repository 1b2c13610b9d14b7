package service

import (
	"context"
	"sync"

	"github.com/noah-isme/asrama-api/internal/models"
	appErrors "github.com/noah-isme/asrama-api/pkg/errors"
	"github.com/noah-isme/asrama-api/pkg/events"
)

type collectionRepository[T any] interface {
	LoadAll(ctx context.Context) ([]T, error)
	ReplaceAll(ctx context.Context, items []T) error
}

type residentLookup interface {
	Lookup(ctx context.Context, nim string) (*models.Resident, models.ResidentKind, error)
}

// recordSet serializes read-modify-write cycles on one collection and
// announces each successful write on the bus.
type recordSet[T any] struct {
	repo       collectionRepository[T]
	bus        changePublisher
	collection events.Collection
	mu         sync.Mutex
}

func newRecordSet[T any](repo collectionRepository[T], bus changePublisher, collection events.Collection) *recordSet[T] {
	return &recordSet[T]{repo: repo, bus: bus, collection: collection}
}

func (r *recordSet[T]) load(ctx context.Context) ([]T, error) {
	items, err := r.repo.LoadAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load "+string(r.collection))
	}
	return items, nil
}

// update hands fn a copy of the stored items and writes back what it
// returns. An error from fn leaves the collection untouched.
func (r *recordSet[T]) update(ctx context.Context, fn func([]T) ([]T, error)) error {
	r.mu.Lock()
	items, err := r.load(ctx)
	if err != nil {
		r.mu.Unlock()
		return err
	}
	next, err := fn(append([]T(nil), items...))
	if err != nil {
		r.mu.Unlock()
		return err
	}
	if err := r.repo.ReplaceAll(ctx, next); err != nil {
		r.mu.Unlock()
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save "+string(r.collection))
	}
	r.mu.Unlock()

	if r.bus != nil {
		r.bus.Publish(events.Change{Collection: r.collection, Source: events.SourceLocal})
	}
	return nil
}

// paginate slices items for page and size after clamping both.
func paginate[T any](items []T, page, size int) ([]T, *models.Pagination) {
	page, size = models.NormalizePage(page, size)
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: len(items)}
	start := (page - 1) * size
	if start >= len(items) {
		return []T{}, pagination
	}
	end := start + size
	if end > len(items) {
		end = len(items)
	}
	return items[start:end], pagination
}

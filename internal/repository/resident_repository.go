package repository

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/asrama-api/internal/models"
	"github.com/noah-isme/asrama-api/pkg/kvstore"
)

// ResidentRepository manages the student and kasra collections.
type ResidentRepository struct {
	students *Collection[models.Resident]
	kasra    *Collection[models.Resident]
}

// NewResidentRepository constructs a ResidentRepository.
func NewResidentRepository(store kvstore.Store, logger *zap.Logger) *ResidentRepository {
	return &ResidentRepository{
		students: NewCollection[models.Resident](store, KeyStudents, logger),
		kasra:    NewCollection[models.Resident](store, KeyKasra, logger),
	}
}

func (r *ResidentRepository) collection(kind models.ResidentKind) (*Collection[models.Resident], error) {
	switch kind {
	case models.KindStudent:
		return r.students, nil
	case models.KindKasra:
		return r.kasra, nil
	default:
		return nil, fmt.Errorf("unknown resident kind %q", kind)
	}
}

// LoadAll returns every resident of kind.
func (r *ResidentRepository) LoadAll(ctx context.Context, kind models.ResidentKind) ([]models.Resident, error) {
	coll, err := r.collection(kind)
	if err != nil {
		return nil, err
	}
	return coll.LoadAll(ctx)
}

// ReplaceAll overwrites the collection of kind.
func (r *ResidentRepository) ReplaceAll(ctx context.Context, kind models.ResidentKind, residents []models.Resident) error {
	coll, err := r.collection(kind)
	if err != nil {
		return err
	}
	return coll.ReplaceAll(ctx, residents)
}

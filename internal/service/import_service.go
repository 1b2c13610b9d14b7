package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/asrama-api/internal/models"
	appErrors "github.com/noah-isme/asrama-api/pkg/errors"
	"github.com/noah-isme/asrama-api/pkg/events"
)

// MaxImportRows bounds one import batch.
const MaxImportRows = 2000

// Import row outcomes.
const (
	ImportStatusImported = "imported"
	ImportStatusRejected = "rejected"
)

// ImportOutcome reports what happened to one row. Row is 1-based.
type ImportOutcome struct {
	Row        int    `json:"row"`
	NIM        string `json:"nim"`
	Status     string `json:"status"`
	Building   string `json:"building,omitempty"`
	RoomNumber string `json:"room_number,omitempty"`
	Code       string `json:"code,omitempty"`
	Message    string `json:"message,omitempty"`
}

// ImportReport summarises a batch.
type ImportReport struct {
	Kind     models.ResidentKind `json:"kind"`
	Imported int                 `json:"imported"`
	Rejected int                 `json:"rejected"`
	Rows     []ImportOutcome     `json:"rows"`
	Warnings []string            `json:"warnings,omitempty"`
}

// ImportService registers many residents in one pass.
type ImportService struct {
	occupancy *OccupancyService
	residents residentRepository
	resolver  *RoomResolver
	bus       changePublisher
	validator *validator.Validate
	lock      *sync.Mutex
	logger    *zap.Logger
	now       func() time.Time
}

// NewImportService constructs the import service. lock must be the one
// shared with the occupancy service.
func NewImportService(occupancy *OccupancyService, residents residentRepository, resolver *RoomResolver, bus changePublisher, validate *validator.Validate, lock *sync.Mutex, logger *zap.Logger) *ImportService {
	if resolver == nil {
		resolver = NewRoomResolver(nil)
	}
	if validate == nil {
		validate = validator.New()
	}
	if lock == nil {
		lock = &sync.Mutex{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImportService{
		occupancy: occupancy,
		residents: residents,
		resolver:  resolver,
		bus:       bus,
		validator: validate,
		lock:      lock,
		logger:    logger,
		now:       time.Now,
	}
}

// Import validates and assigns every row against a working copy of the
// rooms, so rows accepted earlier in the batch take beds from later ones.
// Accepted rows are written in one collection write followed by one
// reconciliation. Rejected rows never abort the batch.
func (s *ImportService) Import(ctx context.Context, kind models.ResidentKind, rows []CreateResidentRequest) (*ImportReport, error) {
	if len(rows) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "import contains no rows")
	}
	if len(rows) > MaxImportRows {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("import is limited to %d rows", MaxImportRows))
	}

	report := &ImportReport{Kind: kind, Rows: make([]ImportOutcome, 0, len(rows))}
	wrote := false

	s.lock.Lock()
	state, err := s.occupancy.load(ctx)
	if err != nil {
		s.lock.Unlock()
		return nil, err
	}

	working := state.freshRooms()
	seen := make(map[string]int, len(rows))
	accepted := make([]models.Resident, 0, len(rows))
	now := s.now().UTC()

	for i, row := range rows {
		outcome := ImportOutcome{Row: i + 1, NIM: strings.TrimSpace(row.NIM)}
		resident, err := s.admit(state, working, seen, row, now)
		if err != nil {
			appErr := appErrors.FromError(err)
			outcome.Status = ImportStatusRejected
			outcome.Code = appErr.Code
			outcome.Message = appErr.Message
			report.Rejected++
		} else {
			outcome.Status = ImportStatusImported
			outcome.Building = resident.Building
			outcome.RoomNumber = resident.RoomNumber
			seen[resident.NIM] = i + 1
			accepted = append(accepted, *resident)
			report.Imported++
		}
		report.Rows = append(report.Rows, outcome)
	}

	if len(accepted) > 0 {
		state.setResidents(kind, append(append([]models.Resident(nil), state.residents(kind)...), accepted...))
		if err := s.residents.ReplaceAll(ctx, kind, state.residents(kind)); err != nil {
			s.lock.Unlock()
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save imported residents")
		}
		result, roomsWritten, err := s.occupancy.apply(ctx, state, false)
		if err != nil {
			s.lock.Unlock()
			return nil, err
		}
		wrote = roomsWritten
		report.Warnings = result.Warnings()
	}
	s.lock.Unlock()

	if len(accepted) > 0 && s.bus != nil {
		s.bus.Publish(events.Change{Collection: collectionFor(kind), Source: events.SourceLocal})
		if wrote {
			s.bus.Publish(events.Change{Collection: events.CollectionRooms, Source: events.SourceReconciler})
		}
	}
	s.logger.Info("resident import finished",
		zap.String("kind", string(kind)),
		zap.Int("imported", report.Imported),
		zap.Int("rejected", report.Rejected),
	)
	return report, nil
}

// admit checks one row and, when it passes, takes a bed in working.
func (s *ImportService) admit(state *occupancyState, working []models.Room, seen map[string]int, row CreateResidentRequest, now time.Time) (*models.Resident, error) {
	if err := s.validator.Struct(row); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, validationMessage(err))
	}
	nim := strings.TrimSpace(row.NIM)
	if _, _, exists := state.findNIM(nim); exists {
		return nil, duplicateNIM(nim)
	}
	if earlier, ok := seen[nim]; ok {
		return nil, appErrors.Clone(appErrors.ErrDuplicateNIM, fmt.Sprintf("nim %s repeats row %d", nim, earlier))
	}

	requested := models.RoomRef{Building: strings.TrimSpace(row.Building), RoomNumber: strings.TrimSpace(row.RoomNumber)}
	room, err := s.resolver.Assign(working, requested, row.Gender, nil)
	if err != nil {
		return nil, err
	}

	idx, _ := FindRoom(working, room.Ref())
	working[idx].Occupied++
	working[idx].Status = deriveStatus(working[idx].Status, working[idx].Occupied, working[idx].Capacity)

	resident := newResident(row, room.Ref(), now)
	return &resident, nil
}

// validationMessage flattens validator errors into "field: rule" pairs.
func validationMessage(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return "invalid row"
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, strings.ToLower(fe.Field())+": "+fe.Tag())
	}
	return "invalid row: " + strings.Join(parts, ", ")
}

package service

import (
	"context"
	"sort"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/asrama-api/internal/models"
	appErrors "github.com/noah-isme/asrama-api/pkg/errors"
	"github.com/noah-isme/asrama-api/pkg/events"
)

// OccupancyCacheKey stores the cached dashboard payload.
const OccupancyCacheKey = "dashboard:occupancy"

// DashboardServiceConfig tunes dashboard behaviour.
type DashboardServiceConfig struct {
	CacheTTL time.Duration
}

// DashboardServiceParams groups constructor dependencies.
type DashboardServiceParams struct {
	Rooms     roomRepository
	Residents residentRepository
	Cache     *CacheService
	Logger    *zap.Logger
	Config    DashboardServiceConfig
}

// DashboardService composes the occupancy overview.
type DashboardService struct {
	rooms     roomRepository
	residents residentRepository
	cache     *CacheService
	logger    *zap.Logger
	now       func() time.Time
	cfg       DashboardServiceConfig

	// generation is bumped on every invalidation; a summary computed under
	// an older generation is returned but never cached.
	generation atomic.Uint64
}

// NewDashboardService constructs a DashboardService with sane defaults.
func NewDashboardService(params DashboardServiceParams) *DashboardService {
	cfg := params.Config
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = time.Minute
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DashboardService{
		rooms:     params.Rooms,
		residents: params.Residents,
		cache:     params.Cache,
		logger:    logger,
		now:       time.Now,
		cfg:       cfg,
	}
}

// Occupancy returns the per-building summary and whether it came from cache.
func (s *DashboardService) Occupancy(ctx context.Context) (*models.OccupancySummary, bool, error) {
	var cached models.OccupancySummary
	if hit, err := s.cache.Get(ctx, OccupancyCacheKey, &cached); err == nil && hit {
		return &cached, true, nil
	}
	generation := s.generation.Load()

	rooms, err := s.rooms.LoadAll(ctx)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load rooms")
	}
	students, err := s.residents.LoadAll(ctx, models.KindStudent)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load students")
	}
	kasra, err := s.residents.LoadAll(ctx, models.KindKasra)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load kasra")
	}

	summary := summarizeOccupancy(rooms, students, kasra)
	summary.GeneratedAt = s.now().UTC()

	if s.generation.Load() != generation {
		s.logger.Debug("occupancy changed while summarising, not caching")
		return summary, false, nil
	}
	if err := s.cache.Set(ctx, OccupancyCacheKey, summary, s.cfg.CacheTTL); err != nil {
		s.logger.Debug("dashboard cache write skipped", zap.Error(err))
	}
	return summary, false, nil
}

// Invalidate drops the cached summary.
func (s *DashboardService) Invalidate(ctx context.Context) {
	s.generation.Add(1)
	if err := s.cache.Invalidate(ctx, OccupancyCacheKey); err != nil {
		s.logger.Debug("dashboard cache invalidate failed", zap.Error(err))
	}
}

// OnChange returns a bus handler that drops the cache whenever rooms or
// residents change.
func (s *DashboardService) OnChange() events.Handler {
	return func(change events.Change) {
		switch change.Collection {
		case events.CollectionRooms, events.CollectionStudents, events.CollectionKasra:
			s.Invalidate(context.Background())
		}
	}
}

func summarizeOccupancy(rooms []models.Room, students, kasra []models.Resident) *models.OccupancySummary {
	byBuilding := make(map[string]*models.BuildingOccupancy)
	order := make([]string, 0)
	summary := &models.OccupancySummary{}

	for _, room := range rooms {
		b, ok := byBuilding[room.Building]
		if !ok {
			b = &models.BuildingOccupancy{Building: room.Building}
			byBuilding[room.Building] = b
			order = append(order, room.Building)
		}
		b.Rooms++
		b.Capacity += room.Capacity
		b.Occupied += room.Occupied
		switch room.Status {
		case models.RoomStatusFull:
			b.FullRooms++
		case models.RoomStatusUnderRepair:
			b.UnderRepair++
		}
		if room.Occupied > room.Capacity {
			b.OverCapacity++
		}
		summary.TotalRooms++
		summary.TotalCapacity += room.Capacity
		summary.TotalOccupied += room.Occupied
	}

	sort.Strings(order)
	summary.Buildings = make([]models.BuildingOccupancy, 0, len(order))
	for _, name := range order {
		summary.Buildings = append(summary.Buildings, *byBuilding[name])
	}

	for _, r := range students {
		if r.Living() {
			summary.StudentsLiving++
		}
	}
	for _, r := range kasra {
		if r.Living() {
			summary.KasraLiving++
		}
	}
	return summary
}

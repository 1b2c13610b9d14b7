package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/asrama-api/internal/handler"
	"github.com/noah-isme/asrama-api/internal/models"
	"github.com/noah-isme/asrama-api/internal/repository"
	"github.com/noah-isme/asrama-api/internal/service"
	"github.com/noah-isme/asrama-api/pkg/config"
	"github.com/noah-isme/asrama-api/pkg/events"
	"github.com/noah-isme/asrama-api/pkg/jobs"
	"github.com/noah-isme/asrama-api/pkg/logger"
	"github.com/noah-isme/asrama-api/pkg/realtime"
)

// @title Asrama API
// @version 1.0.0
// @description Dormitory administration: rooms, residents, occupancy and resident services.
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}

func run(ctx context.Context, cfg *config.Config, logr *zap.Logger) error {
	be, err := openBackend(ctx, cfg, logr)
	if err != nil {
		return err
	}
	defer be.close()

	metrics := service.NewMetricsService()
	bus := events.NewBus(logr.Named("bus"))
	validate := validator.New()
	lock := &sync.Mutex{}

	roomRepo := repository.NewRoomRepository(be.store, logr)
	residentRepo := repository.NewResidentRepository(be.store, logr)

	occupancy := service.NewOccupancyService(roomRepo, residentRepo, bus, metrics, lock, logr.Named("occupancy"))
	resolver := service.NewRoomResolver(service.NewEligibility(cfg.Dormitory.MaleBuildings, cfg.Dormitory.FemaleBuildings))
	roomSvc := service.NewRoomService(roomRepo, occupancy, bus, validate, lock, service.RoomServiceConfig{
		Buildings: cfg.Dormitory.Buildings,
		Layout: service.RoomLayout{
			Floors:          cfg.Dormitory.Floors,
			RoomsPerFloor:   cfg.Dormitory.RoomsPerFloor,
			DefaultCapacity: cfg.Dormitory.DefaultCapacity,
		},
	}, logr)
	residentSvc := service.NewResidentService(occupancy, residentRepo, resolver, bus, validate, lock, logr)
	importSvc := service.NewImportService(occupancy, residentRepo, resolver, bus, validate, lock, logr.Named("import"))

	paymentSvc := service.NewPaymentService(repository.NewPaymentRepository(be.store, logr), residentSvc, bus, validate, logr)
	violationSvc := service.NewViolationService(repository.NewViolationRepository(be.store, logr), residentSvc, bus, validate, logr)
	complaintSvc := service.NewComplaintService(repository.NewComplaintRepository(be.store, logr), residentSvc, bus, validate, logr)
	announcementSvc := service.NewAnnouncementService(repository.NewAnnouncementRepository(be.store, logr), bus, validate, logr)
	activitySvc := service.NewActivityService(repository.NewActivityRepository(be.store, logr), bus, validate, logr)

	var cacheRepo service.CacheRepository
	if be.redis != nil {
		cacheRepo = repository.NewCacheRepository(be.redis, cfg.Dashboard.CacheNamespace, logr)
	}
	cacheSvc := service.NewCacheService(cacheRepo, metrics, cfg.Dashboard.CacheTTL, logr, cfg.Dashboard.Enabled)
	dashboardSvc := service.NewDashboardService(service.DashboardServiceParams{
		Rooms:     roomRepo,
		Residents: residentRepo,
		Cache:     cacheSvc,
		Logger:    logr,
		Config:    service.DashboardServiceConfig{CacheTTL: cfg.Dashboard.CacheTTL},
	})

	tokens := service.NewTokenService(service.TokenConfig{Secret: cfg.JWT.Secret, Issuer: cfg.JWT.Issuer})

	queue := jobs.NewQueue("reconcile", occupancy.HandleJob, jobs.QueueConfig{
		Workers:    1,
		MaxRetries: cfg.Reconcile.Retries,
		RetryDelay: cfg.Reconcile.RetryDelay,
		Logger:     logr,
	})
	queue.Start(ctx)
	defer queue.Stop()

	bus.Subscribe(occupancy.OnChange(queue))
	bus.Subscribe(dashboardSvc.OnChange())
	unsubscribe := be.store.Subscribe(func(key string) {
		bus.Publish(events.Change{Collection: events.Collection(key), Source: events.SourceExternal})
	})
	defer unsubscribe()

	var hub *realtime.Hub
	if cfg.Realtime.Enabled {
		hub = realtime.NewHub(logr.Named("realtime"), originChecker(cfg.CORS.AllowedOrigins))
		go hub.Run(ctx)
		bus.Subscribe(func(change events.Change) { hub.Broadcast(change) })
	}

	created, err := roomSvc.Bootstrap(ctx)
	if err != nil {
		return fmt.Errorf("bootstrap rooms: %w", err)
	}
	logr.Info("room directory ready", zap.Bool("initialized", created), zap.Strings("buildings", cfg.Dormitory.Buildings))

	be.startWatchers(ctx)

	handlers := routeHandlers{
		rooms:         handler.NewRoomHandler(roomSvc),
		students:      handler.NewResidentHandler(models.KindStudent, residentSvc),
		kasra:         handler.NewResidentHandler(models.KindKasra, residentSvc),
		imports:       handler.NewImportHandler(importSvc),
		payments:      handler.NewPaymentHandler(paymentSvc),
		violations:    handler.NewViolationHandler(violationSvc),
		complaints:    handler.NewComplaintHandler(complaintSvc),
		announcements: handler.NewAnnouncementHandler(announcementSvc),
		activities:    handler.NewActivityHandler(activitySvc),
		dashboard:     handler.NewDashboardHandler(dashboardSvc),
		metrics:       handler.NewMetricsHandler(metrics, be.checks),
	}
	if hub != nil {
		handlers.changes = handler.NewChangesHandler(hub)
	}

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}
	router := newRouter(cfg, logr, tokens, metrics, handlers)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env, "store", cfg.Store.Driver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(allowed))
	for _, origin := range allowed {
		set[origin] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/asrama-api/internal/middleware"
	"github.com/noah-isme/asrama-api/internal/models"
	"github.com/noah-isme/asrama-api/internal/service"
)

type fakeDashboardSrv struct {
	summary     *models.OccupancySummary
	hit         bool
	err         error
	invalidated int
}

func (f *fakeDashboardSrv) Occupancy(context.Context) (*models.OccupancySummary, bool, error) {
	if f.invalidated > 0 {
		return f.summary, false, f.err
	}
	return f.summary, f.hit, f.err
}

func (f *fakeDashboardSrv) Invalidate(context.Context) {
	f.invalidated++
}

func TestDashboardHandlerOccupancyCacheMeta(t *testing.T) {
	h := NewDashboardHandler(&fakeDashboardSrv{
		summary: &models.OccupancySummary{TotalRooms: 500, TotalOccupied: 12},
		hit:     true,
	})

	c, rec := newTestContext(http.MethodGet, "/dashboard/occupancy", "", admin())
	middleware.WithResponseMeta()(c)
	h.Occupancy(c)

	require.Equal(t, http.StatusOK, rec.Code)
	envelope := decodeEnvelope(t, rec)
	assert.Equal(t, true, envelope.Meta["cache_hit"])
	assert.Contains(t, envelope.Meta, "processing_time_ms")

	var summary models.OccupancySummary
	require.NoError(t, json.Unmarshal(envelope.Data, &summary))
	assert.Equal(t, 12, summary.TotalOccupied)
}

func TestDashboardHandlerRefreshIsAdminOnly(t *testing.T) {
	fake := &fakeDashboardSrv{summary: &models.OccupancySummary{}, hit: true}
	h := NewDashboardHandler(fake)

	kasraClaims := &models.JWTClaims{UserID: "k-1", Role: models.RoleKasra, NIM: "K001"}
	c, rec := newTestContext(http.MethodGet, "/dashboard/occupancy?refresh=true", "", kasraClaims)
	h.Occupancy(c)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 0, fake.invalidated)

	c, rec = newTestContext(http.MethodGet, "/dashboard/occupancy?refresh=true", "", admin())
	middleware.WithResponseMeta()(c)
	h.Occupancy(c)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, fake.invalidated)
	assert.Equal(t, false, decodeEnvelope(t, rec).Meta["cache_hit"])
}

func TestDashboardHandlerNilService(t *testing.T) {
	h := NewDashboardHandler(nil)

	c, rec := newTestContext(http.MethodGet, "/dashboard/occupancy", "", admin())
	h.Occupancy(c)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestMetricsHandlerReadyReportsFailingCheck(t *testing.T) {
	h := NewMetricsHandler(service.NewMetricsService(), map[string]ReadinessCheck{
		"store": func(context.Context) error { return nil },
		"redis": func(context.Context) error { return errors.New("connection refused") },
	})

	c, rec := newTestContext(http.MethodGet, "/ready", "", nil)
	h.Ready(c)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "degraded", body["status"])
}

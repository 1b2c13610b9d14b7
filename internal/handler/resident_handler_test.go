package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/asrama-api/internal/models"
	"github.com/noah-isme/asrama-api/internal/service"
	appErrors "github.com/noah-isme/asrama-api/pkg/errors"
)

type fakeResidentService struct {
	kinds      []models.ResidentKind
	lastFilter models.ResidentFilter
	lastCreate service.CreateResidentRequest
	lastNIM    string
	resident   *models.Resident
	warnings   []string
	err        error
}

func (f *fakeResidentService) List(_ context.Context, kind models.ResidentKind, filter models.ResidentFilter) ([]models.Resident, *models.Pagination, error) {
	f.kinds = append(f.kinds, kind)
	f.lastFilter = filter
	if f.err != nil {
		return nil, nil, f.err
	}
	return []models.Resident{*f.resident}, &models.Pagination{Page: filter.Page, PageSize: filter.PageSize, TotalCount: 1}, nil
}

func (f *fakeResidentService) Roster(_ context.Context, kind models.ResidentKind, filter models.ResidentFilter) ([]models.Resident, error) {
	f.kinds = append(f.kinds, kind)
	f.lastFilter = filter
	if f.err != nil {
		return nil, f.err
	}
	return []models.Resident{*f.resident}, nil
}

func (f *fakeResidentService) Get(_ context.Context, kind models.ResidentKind, nim string) (*models.Resident, error) {
	f.kinds = append(f.kinds, kind)
	f.lastNIM = nim
	return f.resident, f.err
}

func (f *fakeResidentService) Create(_ context.Context, kind models.ResidentKind, req service.CreateResidentRequest) (*models.Resident, []string, error) {
	f.kinds = append(f.kinds, kind)
	f.lastCreate = req
	return f.resident, f.warnings, f.err
}

func (f *fakeResidentService) Update(_ context.Context, kind models.ResidentKind, nim string, _ service.UpdateResidentRequest) (*models.Resident, []string, error) {
	f.kinds = append(f.kinds, kind)
	f.lastNIM = nim
	return f.resident, f.warnings, f.err
}

func (f *fakeResidentService) CheckOut(_ context.Context, kind models.ResidentKind, nim string) (*models.Resident, error) {
	f.kinds = append(f.kinds, kind)
	f.lastNIM = nim
	return f.resident, f.err
}

func (f *fakeResidentService) Delete(_ context.Context, kind models.ResidentKind, nim string) error {
	f.kinds = append(f.kinds, kind)
	f.lastNIM = nim
	return f.err
}

func TestResidentHandlerListUsesKindAndPaging(t *testing.T) {
	fake := &fakeResidentService{resident: &models.Resident{NIM: "K001", Building: "B2", RoomNumber: "2101"}}
	h := NewResidentHandler(models.KindKasra, fake)

	c, rec := newTestContext(http.MethodGet, "/kasra?building=b2&page=2&limit=5&search=ali", "", admin())
	h.List(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []models.ResidentKind{models.KindKasra}, fake.kinds)
	assert.Equal(t, "B2", fake.lastFilter.Building)
	assert.Equal(t, "ali", fake.lastFilter.Search)
	assert.Equal(t, 2, fake.lastFilter.Page)
	assert.Equal(t, 5, fake.lastFilter.PageSize)
	assert.EqualValues(t, 1, decodeEnvelope(t, rec).Pagination["total_count"])
}

func TestResidentHandlerCreateReturnsAssignedRoom(t *testing.T) {
	fake := &fakeResidentService{
		resident: &models.Resident{NIM: "2024001", Building: "B3", RoomNumber: "3101"},
		warnings: []string{"room B2-2101 is over capacity"},
	}
	h := NewResidentHandler(models.KindStudent, fake)

	body := `{"nim":"2024001","name":"Budi","gender":"Laki-laki","building":"B3"}`
	c, rec := newTestContext(http.MethodPost, "/students", body, admin())
	h.Create(c)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "B3", fake.lastCreate.Building)
	assert.Equal(t, models.GenderMale, fake.lastCreate.Gender)

	envelope := decodeEnvelope(t, rec)
	var created models.Resident
	require.NoError(t, json.Unmarshal(envelope.Data, &created))
	assert.Equal(t, "3101", created.RoomNumber)
	assert.Equal(t, fake.warnings, envelope.Warnings)
}

func TestResidentHandlerCreateMapsAssignmentErrors(t *testing.T) {
	cases := map[string]struct {
		err    error
		status int
	}{
		"full":     {appErrors.ErrCapacityExceeded, http.StatusConflict},
		"mismatch": {appErrors.ErrGenderBuildingMismatch, http.StatusUnprocessableEntity},
		"none":     {appErrors.ErrNoRoomAvailable, http.StatusConflict},
		"unknown":  {appErrors.ErrRoomNotFound, http.StatusNotFound},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			h := NewResidentHandler(models.KindStudent, &fakeResidentService{err: tc.err})
			c, rec := newTestContext(http.MethodPost, "/students", `{"nim":"1","name":"A","gender":"Perempuan"}`, admin())
			h.Create(c)
			assert.Equal(t, tc.status, rec.Code)
		})
	}
}

func TestResidentHandlerGetPassesNIM(t *testing.T) {
	fake := &fakeResidentService{err: appErrors.ErrResidentNotFound}
	h := NewResidentHandler(models.KindStudent, fake)

	c, rec := newTestContext(http.MethodGet, "/students/2024009", "", student("2024009"), gin.Param{Key: "nim", Value: "2024009"})
	h.Get(c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "2024009", fake.lastNIM)
}

func TestResidentHandlerCheckOutAndDelete(t *testing.T) {
	fake := &fakeResidentService{resident: &models.Resident{NIM: "2024001", Status: models.ResidencyCheckedOut}}
	h := NewResidentHandler(models.KindStudent, fake)

	c, rec := newTestContext(http.MethodPost, "/students/2024001/checkout", "", admin(), gin.Param{Key: "nim", Value: "2024001"})
	h.CheckOut(c)
	assert.Equal(t, http.StatusOK, rec.Code)

	c, rec = newTestContext(http.MethodDelete, "/students/2024001", "", admin(), gin.Param{Key: "nim", Value: "2024001"})
	h.Delete(c)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "2024001", fake.lastNIM)
}

func TestResidentHandlerExportWritesCSV(t *testing.T) {
	fake := &fakeResidentService{resident: &models.Resident{
		NIM: "2024001", Name: "Siti", Gender: models.GenderFemale, Building: "B1", RoomNumber: "1101", Status: models.ResidencyLiving,
	}}
	h := NewResidentHandler(models.KindStudent, fake)

	c, rec := newTestContext(http.MethodGet, "/students/export?building=b1", "", admin())
	h.Export(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "B1", fake.lastFilter.Building)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "student-")
	assert.Equal(t, "nim,name,gender,building,room_number,status,program,faculty,phone\n2024001,Siti,Perempuan,B1,1101,LIVING,,,\n", rec.Body.String())
}

package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/asrama-api/internal/models"
	appErrors "github.com/noah-isme/asrama-api/pkg/errors"
	"github.com/noah-isme/asrama-api/pkg/events"
)

func TestImportNeverOverfillsWithinBatch(t *testing.T) {
	env := newTestEnv(t)
	env.addStudent(t, "existing", models.GenderMale, "B2", "2101")

	rows := make([]CreateResidentRequest, 0, 5)
	for _, nim := range []string{"i1", "i2", "i3", "i4", "i5"} {
		rows = append(rows, CreateResidentRequest{NIM: nim, Name: "Row " + nim, Gender: models.GenderMale, Building: "B2", RoomNumber: "2101"})
	}

	report, err := env.importSvc.Import(env.ctx, models.KindStudent, rows)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Imported)
	assert.Equal(t, 2, report.Rejected)
	assert.Equal(t, ImportStatusImported, report.Rows[2].Status)
	assert.Equal(t, ImportStatusRejected, report.Rows[3].Status)
	assert.Equal(t, appErrors.ErrCapacityExceeded.Code, report.Rows[3].Code)
	assert.Equal(t, 5, report.Rows[4].Row)

	room := env.room(t, "B2", "2101")
	assert.Equal(t, 4, room.Occupied)
	assert.Equal(t, models.RoomStatusFull, room.Status)
}

func TestImportAutomaticRowsSpreadAcrossRooms(t *testing.T) {
	env := newTestEnv(t)

	rows := []CreateResidentRequest{
		{NIM: "a1", Name: "A1", Gender: models.GenderFemale},
		{NIM: "a2", Name: "A2", Gender: models.GenderFemale},
		{NIM: "a3", Name: "A3", Gender: models.GenderFemale},
	}
	report, err := env.importSvc.Import(env.ctx, models.KindStudent, rows)
	require.NoError(t, err)
	require.Equal(t, 3, report.Imported)

	// Each pick sees the beds taken by earlier rows.
	assert.Equal(t, "1101", report.Rows[0].RoomNumber)
	assert.Equal(t, "1102", report.Rows[1].RoomNumber)
	assert.Equal(t, "B4", report.Rows[2].Building)
}

func TestImportRejectsDuplicatesAndInvalidRows(t *testing.T) {
	env := newTestEnv(t)
	env.addStudent(t, "taken", models.GenderFemale, "B1", "1101")

	rows := []CreateResidentRequest{
		{NIM: "taken", Name: "Dup stored", Gender: models.GenderFemale},
		{NIM: "n1", Name: "New", Gender: models.GenderFemale},
		{NIM: "n1", Name: "Dup batch", Gender: models.GenderFemale},
		{NIM: "n2", Name: "", Gender: models.GenderFemale},
		{NIM: "n3", Name: "Wrong", Gender: models.GenderMale, Building: "B1", RoomNumber: "1102"},
		{NIM: "n4", Name: "Nowhere", Gender: models.GenderMale, Building: "B2", RoomNumber: "2999"},
	}
	report, err := env.importSvc.Import(env.ctx, models.KindStudent, rows)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Imported)
	assert.Equal(t, 5, report.Rejected)

	codes := make([]string, 0, len(report.Rows))
	for _, row := range report.Rows {
		codes = append(codes, row.Code)
	}
	assert.Equal(t, []string{
		appErrors.ErrDuplicateNIM.Code,
		"",
		appErrors.ErrDuplicateNIM.Code,
		appErrors.ErrValidation.Code,
		appErrors.ErrGenderBuildingMismatch.Code,
		appErrors.ErrRoomNotFound.Code,
	}, codes)
	assert.Contains(t, report.Rows[3].Message, "name: required")
	assert.Contains(t, report.Rows[2].Message, "row 2")
}

func TestImportWritesOnceAndPublishesOnce(t *testing.T) {
	env := newTestEnv(t)

	rows := []CreateResidentRequest{
		{NIM: "k1", Name: "K1", Gender: models.GenderMale},
		{NIM: "k2", Name: "K2", Gender: models.GenderMale},
	}
	_, err := env.importSvc.Import(env.ctx, models.KindKasra, rows)
	require.NoError(t, err)

	changes := env.recorded()
	require.Len(t, changes, 2)
	assert.Equal(t, events.CollectionKasra, changes[0].Collection)
	assert.Equal(t, events.CollectionRooms, changes[1].Collection)

	kasra, _, err := env.resSvc.List(env.ctx, models.KindKasra, models.ResidentFilter{})
	require.NoError(t, err)
	assert.Len(t, kasra, 2)
}

func TestImportAllRejectedWritesNothing(t *testing.T) {
	env := newTestEnv(t)

	report, err := env.importSvc.Import(env.ctx, models.KindStudent, []CreateResidentRequest{{NIM: "", Name: "x", Gender: models.GenderMale}})
	require.NoError(t, err)
	assert.Equal(t, 0, report.Imported)
	assert.Empty(t, env.recorded())
}

func TestImportRejectsEmptyBatch(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.importSvc.Import(env.ctx, models.KindStudent, nil)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.CodeOf(err))
}

package handlers

import (
	"net/http"
	"strconv"
	"testing"

	"timesheet_app_go/middleware"
	"timesheet_app_go/models"
	"timesheet_app_go/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimesheetCellRoundTrip(t *testing.T) {
	database := setupTestDB(t)
	entity := createEntity(t, database, "Acme")
	ana := createUser(t, database, "Ana", models.RoleConsultant)
	project := createProject(t, database, entity, "A-1", "Alpha", ana)
	createEntry(t, database, ana, project, "2024-03-04", models.PhaseEjecucion, 4)

	pid := strconv.Itoa(int(project.ID))

	t.Run("Prefill", func(t *testing.T) {
		_, c, rec := setupEcho(http.MethodGet, "/api/timesheet/cell?project_id="+pid+"&date=2024-03-04", nil)
		c.Set(middleware.ContextKeyUser, ana)

		require.NoError(t, GetTimesheetCell(c))
		var form services.CellForm
		decode(t, rec, &form)
		assert.Equal(t, 4.0, form.Hours[models.PhaseEjecucion])
		assert.Len(t, form.Hours, len(models.Phases))
	})

	t.Run("Submit replaces the cell", func(t *testing.T) {
		body := jsonBody(t, CellRequest{
			ProjectID: project.ID,
			Date:      "2024-03-04",
			CellSubmission: services.CellSubmission{
				Hours:       map[string]float64{models.PhaseInicio: 2, models.PhaseEjecucion: 0, models.PhaseControl: 3},
				Description: "Revisión",
			},
		})
		_, c, rec := setupEcho(http.MethodPut, "/api/timesheet/cell", body)
		c.Set(middleware.ContextKeyUser, ana)

		require.NoError(t, SaveTimesheetCell(c))
		assert.Equal(t, http.StatusOK, rec.Code)

		var entries []models.TimeEntry
		require.NoError(t, database.Where("user_id = ? AND project_id = ?", ana.ID, project.ID).Order("id").Find(&entries).Error)
		require.Len(t, entries, 2)
		assert.Equal(t, models.PhaseInicio, entries[0].Phase)
		assert.Equal(t, models.PhaseControl, entries[1].Phase)
	})

	t.Run("Invalid phase hours", func(t *testing.T) {
		body := jsonBody(t, CellRequest{
			ProjectID:      project.ID,
			Date:           "2024-03-04",
			CellSubmission: services.CellSubmission{Hours: map[string]float64{models.PhaseInicio: 30}},
		})
		_, c, rec := setupEcho(http.MethodPut, "/api/timesheet/cell", body)
		c.Set(middleware.ContextKeyUser, ana)

		require.NoError(t, SaveTimesheetCell(c))
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("Consultant cannot edit another user", func(t *testing.T) {
		other := createUser(t, database, "Luis", models.RoleConsultant)
		_, c, _ := setupEcho(http.MethodGet, "/api/timesheet/cell?project_id="+pid+"&date=2024-03-04&user_id="+strconv.Itoa(int(other.ID)), nil)
		c.Set(middleware.ContextKeyUser, ana)

		assert.Equal(t, http.StatusForbidden, httpCode(t, GetTimesheetCell(c)))
	})
}

func TestGetTimesheet(t *testing.T) {
	database := setupTestDB(t)
	entity := createEntity(t, database, "Acme")
	ana := createUser(t, database, "Ana", models.RoleConsultant)
	project := createProject(t, database, entity, "A-1", "Alpha", ana)
	createEntry(t, database, ana, project, "2024-02-10", models.PhaseInicio, 5)

	_, c, rec := setupEcho(http.MethodGet, "/api/timesheet?month=2024-02", nil)
	c.Set(middleware.ContextKeyUser, ana)
	require.NoError(t, GetTimesheet(c))

	var month services.TimesheetMonth
	decode(t, rec, &month)
	require.NotNil(t, month.Matrix)
	assert.Len(t, month.Matrix.Columns, 29)
	require.Len(t, month.Matrix.Rows, 1)
	assert.Equal(t, 5.0, month.Matrix.GrandTotal)

	_, c, _ = setupEcho(http.MethodGet, "/api/timesheet?month=febrero", nil)
	c.Set(middleware.ContextKeyUser, ana)
	assert.Equal(t, http.StatusBadRequest, httpCode(t, GetTimesheet(c)))
}

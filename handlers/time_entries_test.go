package handlers

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"timesheet_app_go/middleware"
	"timesheet_app_go/models"
	"timesheet_app_go/services"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateTimeEntryHandler(t *testing.T) {
	database := setupTestDB(t)
	entity := createEntity(t, database, "Acme")
	ana := createUser(t, database, "Ana", models.RoleConsultant)
	luis := createUser(t, database, "Luis", models.RoleConsultant)
	project := createProject(t, database, entity, "A-1", "Alpha", ana)

	t.Run("Defaults to current user", func(t *testing.T) {
		body := jsonBody(t, services.TimeEntryInput{ProjectID: project.ID, Date: "2024-03-04", Phase: models.PhaseInicio, Hours: 2.5})
		_, c, rec := setupEcho(http.MethodPost, "/api/time-entries", body)
		c.Set(middleware.ContextKeyUser, ana)

		require.NoError(t, CreateTimeEntry(c))
		assert.Equal(t, http.StatusCreated, rec.Code)

		var entry models.TimeEntry
		decode(t, rec, &entry)
		assert.Equal(t, ana.ID, entry.UserID)
		assert.Equal(t, 2.5, entry.Hours)
	})

	t.Run("Consultant cannot book for others", func(t *testing.T) {
		body := jsonBody(t, services.TimeEntryInput{UserID: luis.ID, ProjectID: project.ID, Date: "2024-03-04", Phase: models.PhaseInicio, Hours: 1})
		_, c, _ := setupEcho(http.MethodPost, "/api/time-entries", body)
		c.Set(middleware.ContextKeyUser, ana)

		assert.Equal(t, http.StatusForbidden, httpCode(t, CreateTimeEntry(c)))
	})

	t.Run("Hours out of bounds", func(t *testing.T) {
		body := jsonBody(t, services.TimeEntryInput{ProjectID: project.ID, Date: "2024-03-04", Phase: models.PhaseInicio, Hours: 25})
		_, c, rec := setupEcho(http.MethodPost, "/api/time-entries", body)
		c.Set(middleware.ContextKeyUser, ana)

		require.NoError(t, CreateTimeEntry(c))
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assertValidationField(t, rec, "hours")
	})
}

func TestGetTimeEntriesHandler(t *testing.T) {
	database := setupTestDB(t)
	entity := createEntity(t, database, "Acme")
	ana := createUser(t, database, "Ana", models.RoleConsultant)
	project := createProject(t, database, entity, "A-1", "Alpha", ana)
	createEntry(t, database, ana, project, "2024-03-04", models.PhaseInicio, 2)
	createEntry(t, database, ana, project, "2024-03-05", models.PhaseControl, 3)
	createEntry(t, database, ana, project, "2024-04-01", models.PhaseCierre, 1)

	_, c, rec := setupEcho(http.MethodGet, "/api/time-entries?start_date=2024-03-01&end_date=2024-03-31", nil)
	require.NoError(t, GetTimeEntries(c))

	var resp struct {
		Data []models.TimeEntry `json:"data"`
		Meta services.PageMeta  `json:"meta"`
	}
	decode(t, rec, &resp)
	require.Len(t, resp.Data, 2)
	assert.Equal(t, "2024-03-05", services.FormatDate(resp.Data[0].Date), "newest first")
	assert.Equal(t, int64(2), resp.Meta.Total)
}

func TestDeleteTimeEntryHandler(t *testing.T) {
	database := setupTestDB(t)
	entity := createEntity(t, database, "Acme")
	ana := createUser(t, database, "Ana", models.RoleConsultant)
	manager := createUser(t, database, "Marta", models.RoleManager)
	project := createProject(t, database, entity, "A-1", "Alpha", ana)
	entry := createEntry(t, database, ana, project, "2024-03-04", models.PhaseInicio, 2)
	id := strconv.Itoa(int(entry.ID))

	_, c, rec := setupEcho(http.MethodDelete, "/api/time-entries/"+id, nil)
	c.SetParamNames("id")
	c.SetParamValues(id)
	c.Set(middleware.ContextKeyUser, manager)

	require.NoError(t, DeleteTimeEntry(c))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func newImportContext(t *testing.T, filename, content string) (echo.Context, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	e, _, _ := setupEcho(http.MethodPost, "/api/time-entries/import", nil)
	req := httptest.NewRequest(http.MethodPost, "/api/time-entries/import", &body)
	req.Header.Set(echo.HeaderContentType, writer.FormDataContentType())
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	return c, rec
}

func TestImportTimeEntriesHandler(t *testing.T) {
	database := setupTestDB(t)
	entity := createEntity(t, database, "Acme")
	ana := createUser(t, database, "Ana", models.RoleConsultant)
	project := createProject(t, database, entity, "A-1", "Alpha", ana)

	t.Run("Partial success", func(t *testing.T) {
		csvContent := "\xef\xbb\xbfProject_ID;USER_ID;Date;Hours;Phase;Description\n" +
			strconv.Itoa(int(project.ID)) + ";" + strconv.Itoa(int(ana.ID)) + ";04/03/2024;8;inicio;Kickoff\n" +
			strconv.Itoa(int(project.ID)) + ";" + strconv.Itoa(int(ana.ID)) + ";05/03/2024;30;inicio;Too long\n"
		c, rec := newImportContext(t, "entries.csv", csvContent)
		c.Set(middleware.ContextKeyUser, ana)

		require.NoError(t, ImportTimeEntriesHandler(c))
		assert.Equal(t, http.StatusOK, rec.Code)

		var resp ImportResponse
		decode(t, rec, &resp)
		assert.Equal(t, 2, resp.TotalRows)
		assert.Equal(t, 1, resp.SuccessRows)
		assert.Equal(t, 1, resp.ErrorRows)
		require.Len(t, resp.Errors, 1)
		assert.True(t, strings.HasPrefix(resp.Errors[0], "Row 3"))
	})

	t.Run("Missing headers", func(t *testing.T) {
		c, rec := newImportContext(t, "entries.csv", "project_id,user_id\n1,1\n")
		require.NoError(t, ImportTimeEntriesHandler(c))
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assertValidationField(t, rec, "file")
	})

	t.Run("Wrong extension", func(t *testing.T) {
		c, rec := newImportContext(t, "entries.xlsx", "project_id")
		require.NoError(t, ImportTimeEntriesHandler(c))
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("Database failure reports the reason", func(t *testing.T) {
		require.NoError(t, database.Exec(`CREATE TRIGGER reject_locked_entry BEFORE INSERT ON time_entries
			WHEN NEW.description = 'locked'
			BEGIN SELECT RAISE(ABORT, 'entry is locked'); END`).Error)

		csvContent := "project_id,user_id,date,hours,phase,description\n" +
			strconv.Itoa(int(project.ID)) + "," + strconv.Itoa(int(ana.ID)) + ",10/03/2024,8,inicio,ok\n" +
			strconv.Itoa(int(project.ID)) + "," + strconv.Itoa(int(ana.ID)) + ",11/03/2024,4,cierre,locked\n"
		c, _ := newImportContext(t, "entries.csv", csvContent)
		c.Set(middleware.ContextKeyUser, ana)

		err := ImportTimeEntriesHandler(c)
		require.Equal(t, http.StatusInternalServerError, httpCode(t, err))
		msg := err.(*echo.HTTPError).Message.(string)
		assert.Contains(t, msg, "Import aborted: row 3")
		assert.Contains(t, msg, "entry is locked")

		var count int64
		require.NoError(t, database.Model(&models.TimeEntry{}).Where("description IN ?", []string{"ok", "locked"}).Count(&count).Error)
		assert.Zero(t, count)
	})
}

func TestImportTemplateHandler(t *testing.T) {
	_, c, rec := setupEcho(http.MethodGet, "/time-entries/template", nil)
	require.NoError(t, ImportTemplateHandler(c))

	assert.Contains(t, rec.Header().Get("Content-Disposition"), services.TemplateFilename)
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	assert.Len(t, lines, 6)
	assert.Equal(t, strings.Join(services.ImportHeaders, ";"), lines[0])
}

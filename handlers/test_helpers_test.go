package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"timesheet_app_go/config"
	"timesheet_app_go/db"
	"timesheet_app_go/models"
	"timesheet_app_go/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const testSecret = "handler-test-secret-with-enough-length"

func setupTestDB(t *testing.T) *gorm.DB {
	// Use unique shared memory name to isolate tests while allowing shared cache for async tasks
	dbName := "mem_" + uuid.New().String()
	testDB, err := gorm.Open(sqlite.Open("file:"+dbName+"?mode=memory&cache=shared&_busy_timeout=5000"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	services.Archives = services.NewLocalArchive(t.TempDir())

	require.NoError(t, testDB.AutoMigrate(models.All()...))

	// Set global DB
	db.DB = testDB

	return testDB
}

func setupEcho(method, path string, body io.Reader) (*echo.Echo, echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	// Add config to context
	c.Set("config", &config.Config{
		Environment:   "test",
		SessionSecret: testSecret,
		TokenTTLHours: 1,
	})

	return e, c, rec
}

// jsonBody encodes v as a request body
func jsonBody(t *testing.T, v interface{}) io.Reader {
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(b)
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

// httpCode extracts the status of an error returned by a handler
func httpCode(t *testing.T, err error) int {
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok, "expected *echo.HTTPError, got %T", err)
	return he.Code
}

func createUser(t *testing.T, database *gorm.DB, name, role string) *models.User {
	hash, err := services.HashPassword("secret123")
	require.NoError(t, err)
	user := &models.User{
		Name:     name,
		Email:    uuid.New().String()[:8] + "@example.com",
		Password: hash,
		Role:     role,
		IsActive: true,
	}
	require.NoError(t, database.Create(user).Error)
	return user
}

func createEntity(t *testing.T, database *gorm.DB, name string) *models.Entity {
	entity := &models.Entity{BusinessName: name, EntityType: "Privada"}
	require.NoError(t, database.Create(entity).Error)
	return entity
}

func createProject(t *testing.T, database *gorm.DB, entity *models.Entity, code, name string, users ...*models.User) *models.Project {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)
	project := &models.Project{
		Name:      name,
		Code:      code,
		EntityID:  entity.ID,
		State:     models.ProjectStateActive,
		StartDate: &start,
		EndDate:   &end,
	}
	require.NoError(t, database.Create(project).Error)
	for _, u := range users {
		require.NoError(t, database.Model(project).Association("Users").Append(u))
	}
	return project
}

func createEntry(t *testing.T, database *gorm.DB, user *models.User, project *models.Project, date, phase string, hours float64) *models.TimeEntry {
	d, err := services.ParseDate(date)
	require.NoError(t, err)
	entry := &models.TimeEntry{UserID: user.ID, ProjectID: project.ID, Date: d, Phase: phase, Hours: hours}
	require.NoError(t, database.Create(entry).Error)
	return entry
}

func assertValidationField(t *testing.T, rec *httptest.ResponseRecorder, field string) {
	var body struct {
		Errors map[string][]string `json:"errors"`
	}
	decode(t, rec, &body)
	assert.Contains(t, body.Errors, field)
}

package services

import (
	"testing"
	"time"

	"timesheet_app_go/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	// A single connection keeps every query on the same in-memory database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

func createTestUser(t *testing.T, db *gorm.DB, name string) *models.User {
	u := &models.User{Name: name, Email: name + "@example.com", Password: "x", Role: models.RoleConsultant, IsActive: true}
	require.NoError(t, db.Create(u).Error)
	return u
}

func createTestEntity(t *testing.T, db *gorm.DB, name string) *models.Entity {
	e := &models.Entity{BusinessName: name, EntityType: "Privada", BusinessGroup: "Grupo A", TaxID: "20" + name}
	require.NoError(t, db.Create(e).Error)
	return e
}

func createTestBusinessLine(t *testing.T, db *gorm.DB, name string) *models.BusinessLine {
	bl := &models.BusinessLine{Name: name}
	require.NoError(t, db.Create(bl).Error)
	return bl
}

func createTestProject(t *testing.T, db *gorm.DB, name, code string, entityID uint, bl *models.BusinessLine) *models.Project {
	p := &models.Project{Name: name, Code: code, EntityID: entityID, State: models.ProjectStateActive}
	if bl != nil {
		p.BusinessLineID = &bl.ID
	}
	require.NoError(t, db.Create(p).Error)
	return p
}

func createTestEntry(t *testing.T, db *gorm.DB, userID, projectID uint, date time.Time, phase string, hours float64) *models.TimeEntry {
	e := &models.TimeEntry{UserID: userID, ProjectID: projectID, Date: date, Phase: phase, Hours: hours}
	require.NoError(t, db.Create(e).Error)
	return e
}

func countEntries(t *testing.T, db *gorm.DB, where string, args ...interface{}) int64 {
	var n int64
	q := db.Model(&models.TimeEntry{})
	if where != "" {
		q = q.Where(where, args...)
	}
	require.NoError(t, q.Count(&n).Error)
	return n
}

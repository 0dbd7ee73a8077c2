package services

import (
	"testing"
	"time"

	"timesheet_app_go/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListUsers(t *testing.T) {
	db := setupTestDB(t)
	createTestUser(t, db, "Zoe")
	ana := createTestUser(t, db, "Ana")
	luis := createTestUser(t, db, "Luis")
	require.NoError(t, db.Model(luis).Updates(map[string]interface{}{"role": models.RoleAdmin, "is_active": false}).Error)

	users, total, err := ListUsers(db, UserFilters{}, NewPagination(1, 2, DefaultPerPage))
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, users, 2)
	assert.Equal(t, "Ana", users[0].Name)
	assert.Equal(t, "Luis", users[1].Name)

	users, _, err = ListUsers(db, UserFilters{SortField: "password", SortDirection: "desc"}, NewPagination(1, 0, DefaultPerPage))
	require.NoError(t, err)
	assert.Equal(t, "Zoe", users[0].Name, "unknown sort field falls back to name")

	users, total, err = ListUsers(db, UserFilters{Search: "ana@"}, NewPagination(1, 0, DefaultPerPage))
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, ana.ID, users[0].ID)

	_, total, err = ListUsers(db, UserFilters{Role: models.RoleAdmin}, NewPagination(1, 0, DefaultPerPage))
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	active := true
	_, total, err = ListUsers(db, UserFilters{Active: &active}, NewPagination(1, 0, DefaultPerPage))
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
}

func TestGetUserByID(t *testing.T) {
	db, user, project := setupImportFixture(t)
	require.NoError(t, db.Model(project).Association("Users").Append(user))

	got, err := GetUserByID(db, user.ID)
	require.NoError(t, err)
	require.Len(t, got.Projects, 1)
	assert.Equal(t, "Alpha", got.Projects[0].Name)

	_, err = GetUserByID(db, 999)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestGetUserStatistics(t *testing.T) {
	db, user, project := setupImportFixture(t)
	idle := createTestUser(t, db, "Luis")
	require.NoError(t, db.Model(idle).Update("role", models.RoleManager).Error)
	require.NoError(t, db.Model(project).Association("Users").Append(user, idle))
	createTestEntry(t, db, user.ID, project.ID, day(2024, 3, 1), models.PhaseInicio, 1)
	createTestEntry(t, db, user.ID, project.ID, day(2024, 3, 2), models.PhaseInicio, 1)

	stats, err := GetUserStatistics(db)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalUsers)
	assert.Equal(t, int64(2), stats.ActiveUsers)
	assert.Equal(t, int64(2), stats.UsersWithProjects)
	assert.Equal(t, int64(1), stats.UsersWithTimeEntries)
	assert.Equal(t, map[string]int64{models.RoleConsultant: 1, models.RoleManager: 1}, stats.UsersByRole)
}

func TestListUsersWithHours(t *testing.T) {
	db, ana, alpha := setupImportFixture(t)
	luis := createTestUser(t, db, "Luis")
	beta := createTestProject(t, db, "Beta", "P-002", alpha.EntityID, nil)
	createTestEntry(t, db, ana.ID, alpha.ID, day(2024, 3, 1), models.PhaseInicio, 2)
	createTestEntry(t, db, ana.ID, beta.ID, day(2024, 3, 2), models.PhaseInicio, 3)
	last := createTestEntry(t, db, ana.ID, alpha.ID, day(2024, 4, 2), models.PhaseInicio, 4)
	createTestEntry(t, db, luis.ID, beta.ID, day(2024, 3, 5), models.PhaseInicio, 1)

	all, err := ListUsersWithHours(db, UserHoursFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Ana", all[0].Name)
	assert.Equal(t, 9.0, all[0].TotalHours)
	assert.Nil(t, all[0].TotalHoursInRange)
	require.NotNil(t, all[0].LastTimeEntry)
	assert.WithinDuration(t, last.CreatedAt, *all[0].LastTimeEntry, time.Second)

	march := DateRange{From: day(2024, 3, 1), Until: day(2024, 3, 31)}
	onAlpha, err := ListUsersWithHours(db, UserHoursFilter{ProjectID: alpha.ID, Range: &march})
	require.NoError(t, err)
	require.Len(t, onAlpha, 1, "only users with hours on the project")
	assert.Equal(t, 2.0, onAlpha[0].TotalHours)
	require.NotNil(t, onAlpha[0].TotalHoursInRange)
	assert.Equal(t, 5.0, *onAlpha[0].TotalHoursInRange)
}

func TestGetUserHoursStatistics(t *testing.T) {
	db, ana, alpha := setupImportFixture(t)
	luis := createTestUser(t, db, "Luis")
	beta := createTestProject(t, db, "Beta", "P-002", alpha.EntityID, nil)
	createTestEntry(t, db, ana.ID, alpha.ID, day(2024, 3, 1), models.PhaseInicio, 2)
	createTestEntry(t, db, luis.ID, alpha.ID, day(2024, 3, 2), models.PhaseInicio, 3)
	createTestEntry(t, db, luis.ID, beta.ID, day(2024, 4, 2), models.PhaseInicio, 4)

	stats, err := GetUserHoursStatistics(db, nil)
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, "Luis", stats[0].UserName)
	assert.Equal(t, 7.0, stats[0].TotalHours)
	assert.Equal(t, int64(2), stats[0].ProjectsCount)

	march := DateRange{From: day(2024, 3, 1), Until: day(2024, 3, 31)}
	stats, err = GetUserHoursStatistics(db, &march)
	require.NoError(t, err)
	assert.Equal(t, 3.0, stats[0].TotalHours)
	assert.Equal(t, int64(1), stats[0].ProjectsCount)
}

package services

import (
	"testing"

	"timesheet_app_go/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateProjectMilestone_AppendsOrder(t *testing.T) {
	db, _, project := setupImportFixture(t)

	first, err := CreateProjectMilestone(db, project, MilestoneInput{Name: "Diseño", StartDate: "2024-03-01", EndDate: "2024-03-10"})
	require.NoError(t, err)
	second, err := CreateProjectMilestone(db, project, MilestoneInput{Name: "Entrega", StartDate: "2024-03-11", EndDate: "2024-03-31"})
	require.NoError(t, err)

	assert.Equal(t, 1, first.SortOrder)
	assert.Equal(t, 2, second.SortOrder)
	assert.Equal(t, models.MilestoneStatusPending, first.Status)
}

func TestCreateProjectMilestone_Validation(t *testing.T) {
	db, _, project := setupImportFixture(t)
	project.StartDate = datePtr(day(2024, 3, 1))
	project.EndDate = datePtr(day(2024, 3, 31))

	tests := []struct {
		name  string
		input MilestoneInput
		field string
	}{
		{"missing name", MilestoneInput{StartDate: "2024-03-01", EndDate: "2024-03-02"}, "name"},
		{"end before start", MilestoneInput{Name: "M", StartDate: "2024-03-05", EndDate: "2024-03-02"}, "end_date"},
		{"starts before project", MilestoneInput{Name: "M", StartDate: "2024-02-20", EndDate: "2024-03-02"}, "start_date"},
		{"ends after project", MilestoneInput{Name: "M", StartDate: "2024-03-20", EndDate: "2024-04-02"}, "end_date"},
		{"billing over 100", MilestoneInput{Name: "M", StartDate: "2024-03-01", EndDate: "2024-03-02", BillingPercentage: floatPtr(120)}, "billing_percentage"},
		{"unknown status", MilestoneInput{Name: "M", StartDate: "2024-03-01", EndDate: "2024-03-02", Status: "Cerrado"}, "status"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := CreateProjectMilestone(db, project, tt.input)
			var verrs ValidationErrors
			require.ErrorAs(t, err, &verrs)
			assert.True(t, verrs.Has(tt.field), "expected error on %s, got %v", tt.field, verrs)
		})
	}
}

func TestMilestoneTotalHours(t *testing.T) {
	db, user, project := setupImportFixture(t)
	m, err := CreateProjectMilestone(db, project, MilestoneInput{Name: "M", StartDate: "2024-03-01", EndDate: "2024-03-10"})
	require.NoError(t, err)

	createTestEntry(t, db, user.ID, project.ID, day(2024, 3, 1), models.PhaseInicio, 2)
	createTestEntry(t, db, user.ID, project.ID, day(2024, 3, 10), models.PhaseInicio, 3)
	createTestEntry(t, db, user.ID, project.ID, day(2024, 3, 11), models.PhaseInicio, 4)
	tagged := createTestEntry(t, db, user.ID, project.ID, day(2024, 4, 1), models.PhaseCierre, 1)
	require.NoError(t, db.Model(tagged).Update("milestone_id", m.ID).Error)

	got, err := GetProjectMilestoneByID(db, project.ID, m.ID)
	require.NoError(t, err)
	assert.Equal(t, 6.0, got.TotalHours)

	list, err := GetProjectMilestones(db, project.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 6.0, list[0].TotalHours)
}

func TestGetProjectMilestoneByID_OtherProject(t *testing.T) {
	db, _, project := setupImportFixture(t)
	m, err := CreateProjectMilestone(db, project, MilestoneInput{Name: "M", StartDate: "2024-03-01", EndDate: "2024-03-10"})
	require.NoError(t, err)

	_, err = GetProjectMilestoneByID(db, project.ID+1, m.ID)
	assert.ErrorIs(t, err, ErrMilestoneNotFound)
}

func TestFindMilestoneForDate(t *testing.T) {
	db, _, project := setupImportFixture(t)
	m, err := CreateProjectMilestone(db, project, MilestoneInput{Name: "M", StartDate: "2024-03-01", EndDate: "2024-03-10"})
	require.NoError(t, err)

	id, err := FindMilestoneForDate(db, project.ID, day(2024, 3, 10))
	require.NoError(t, err)
	require.NotNil(t, id)
	assert.Equal(t, m.ID, *id)

	id, err = FindMilestoneForDate(db, project.ID, day(2024, 3, 11))
	require.NoError(t, err)
	assert.Nil(t, id)
}

func TestUpdateAndDeleteProjectMilestone(t *testing.T) {
	db, user, project := setupImportFixture(t)
	m, err := CreateProjectMilestone(db, project, MilestoneInput{Name: "M", StartDate: "2024-03-01", EndDate: "2024-03-10"})
	require.NoError(t, err)

	err = UpdateProjectMilestone(db, project, m, MilestoneInput{
		Name: "M2", StartDate: "2024-03-02", EndDate: "2024-03-12",
		Status: models.MilestoneStatusCompleted, Progress: floatPtr(100), IsPaid: true,
	})
	require.NoError(t, err)
	reloaded, err := GetProjectMilestoneByID(db, project.ID, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "M2", reloaded.Name)
	assert.Equal(t, models.MilestoneStatusCompleted, reloaded.Status)
	assert.True(t, reloaded.IsPaid)
	assert.Equal(t, 1, reloaded.SortOrder)

	entry := createTestEntry(t, db, user.ID, project.ID, day(2024, 3, 5), models.PhaseInicio, 1)
	require.NoError(t, db.Model(entry).Update("milestone_id", m.ID).Error)

	require.NoError(t, DeleteProjectMilestone(db, m))
	_, err = GetProjectMilestoneByID(db, project.ID, m.ID)
	assert.ErrorIs(t, err, ErrMilestoneNotFound)

	var stored models.TimeEntry
	require.NoError(t, db.First(&stored, entry.ID).Error)
	assert.Nil(t, stored.MilestoneID)
}

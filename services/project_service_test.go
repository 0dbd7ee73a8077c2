package services

import (
	"testing"

	"timesheet_app_go/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validProjectInput(entityID uint) ProjectInput {
	return ProjectInput{
		Name:      "Implantación ERP",
		Code:      "ERP-01",
		EntityID:  entityID,
		Category:  models.ProjectCategory1,
		State:     models.ProjectStateActive,
		StartDate: "2024-03-01",
		EndDate:   "2024-03-29",
		Billing:   floatPtr(40),
	}
}

func TestCreateProject(t *testing.T) {
	db := setupTestDB(t)
	entity := createTestEntity(t, db, "Acme")
	ana := createTestUser(t, db, "Ana")
	luis := createTestUser(t, db, "Luis")

	in := validProjectInput(entity.ID)
	in.UserIDs = []uint{ana.ID, luis.ID}
	project, err := CreateProject(db, in, ana.ID)
	require.NoError(t, err)
	assert.NotZero(t, project.ID)
	require.NotNil(t, project.CreatedBy)
	assert.Equal(t, ana.ID, *project.CreatedBy)
	assert.Equal(t, int64(2), db.Model(project).Association("Users").Count())

	_, err = CreateProject(db, in, 0)
	var verrs ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.True(t, verrs.Has("code"), "duplicate code")
}

func TestCreateProject_Validation(t *testing.T) {
	db := setupTestDB(t)
	entity := createTestEntity(t, db, "Acme")

	tests := []struct {
		name   string
		mutate func(*ProjectInput)
		field  string
	}{
		{"missing name", func(in *ProjectInput) { in.Name = " " }, "name"},
		{"missing entity", func(in *ProjectInput) { in.EntityID = 0 }, "entity_id"},
		{"unknown entity", func(in *ProjectInput) { in.EntityID = 999 }, "entity_id"},
		{"unknown business line", func(in *ProjectInput) { id := uint(42); in.BusinessLineID = &id }, "business_line_id"},
		{"bad category", func(in *ProjectInput) { in.Category = "Otra" }, "category"},
		{"end before start", func(in *ProjectInput) { in.EndDate = "2024-02-01" }, "end_date"},
		{"progress over 100", func(in *ProjectInput) { in.RealProgress = floatPtr(150) }, "real_progress"},
		{"unknown user", func(in *ProjectInput) { in.UserIDs = []uint{77} }, "user_ids"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validProjectInput(entity.ID)
			tt.mutate(&in)
			_, err := CreateProject(db, in, 0)
			var verrs ValidationErrors
			require.ErrorAs(t, err, &verrs)
			assert.True(t, verrs.Has(tt.field), "expected error on %s, got %v", tt.field, verrs)
		})
	}
}

func TestUpdateProject_KeepsOwnCode(t *testing.T) {
	db := setupTestDB(t)
	entity := createTestEntity(t, db, "Acme")
	ana := createTestUser(t, db, "Ana")
	in := validProjectInput(entity.ID)
	in.UserIDs = []uint{ana.ID}
	project, err := CreateProject(db, in, 0)
	require.NoError(t, err)

	in.Name = "ERP fase 2"
	in.UserIDs = nil
	require.NoError(t, UpdateProject(db, project, in, ana.ID))

	reloaded, err := GetProjectByID(db, project.ID)
	require.NoError(t, err)
	assert.Equal(t, "ERP fase 2", reloaded.Name)
	assert.Equal(t, int64(1), db.Model(reloaded).Association("Users").Count(), "nil user ids keep assignments")

	in.UserIDs = []uint{}
	require.NoError(t, UpdateProject(db, reloaded, in, ana.ID))
	assert.Equal(t, int64(0), db.Model(reloaded).Association("Users").Count())
}

func TestListProjects(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, "Ana")
	acme := createTestEntity(t, db, "Acme")
	globex := createTestEntity(t, db, "Globex")
	bl := createTestBusinessLine(t, db, "Consultoría")
	alpha := createTestProject(t, db, "Alpha", "A-1", acme.ID, bl)
	beta := createTestProject(t, db, "Beta", "B-1", globex.ID, nil)
	createTestProject(t, db, "Gamma", "G-1", acme.ID, nil)

	createTestEntry(t, db, user.ID, alpha.ID, day(2024, 3, 1), models.PhaseInicio, 2)
	createTestEntry(t, db, user.ID, alpha.ID, day(2024, 4, 1), models.PhaseInicio, 3)
	createTestEntry(t, db, user.ID, beta.ID, day(2024, 3, 2), models.PhaseInicio, 1)

	items, total, err := ListProjects(db, ProjectFilters{SortField: "name"}, NewPagination(1, 2, DefaultPerPage), day(2024, 3, 15))
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, items, 2)
	assert.Equal(t, "Alpha", items[0].Name)
	assert.Equal(t, 5.0, items[0].TotalHours)
	assert.Nil(t, items[0].TotalHoursInRange)
	require.NotNil(t, items[0].Entity)
	assert.Equal(t, "Acme", items[0].Entity.BusinessName)
	assert.Equal(t, 100.0, items[0].PendingBilling)

	march := DateRange{From: day(2024, 3, 1), Until: day(2024, 3, 31)}
	items, total, err = ListProjects(db, ProjectFilters{EntityID: acme.ID, SortField: "name", SortDirection: "desc", HoursRange: &march},
		NewPagination(1, 0, DefaultPerPage), day(2024, 3, 15))
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Equal(t, "Gamma", items[0].Name)
	require.NotNil(t, items[1].TotalHoursInRange)
	assert.Equal(t, 2.0, *items[1].TotalHoursInRange)

	_, total, err = ListProjects(db, ProjectFilters{Search: "bet"}, NewPagination(1, 0, DefaultPerPage), day(2024, 3, 15))
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)

	_, total, err = ListProjects(db, ProjectFilters{BusinessLineID: bl.ID, SortField: "unknown"}, NewPagination(1, 0, DefaultPerPage), day(2024, 3, 15))
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
}

func TestGetProjectDetail(t *testing.T) {
	db := setupTestDB(t)
	entity := createTestEntity(t, db, "Acme")
	ana := createTestUser(t, db, "Ana")
	luis := createTestUser(t, db, "Luis")
	in := validProjectInput(entity.ID)
	in.UserIDs = []uint{luis.ID, ana.ID}
	project, err := CreateProject(db, in, 0)
	require.NoError(t, err)

	_, err = CreateProjectMilestone(db, project, MilestoneInput{Name: "M", StartDate: "2024-03-01", EndDate: "2024-03-10"})
	require.NoError(t, err)
	createTestEntry(t, db, ana.ID, project.ID, day(2024, 3, 4), models.PhaseInicio, 3)
	createTestEntry(t, db, luis.ID, project.ID, day(2024, 3, 20), models.PhaseInicio, 1)

	detail, err := GetProjectDetail(db, project.ID, day(2024, 3, 15))
	require.NoError(t, err)
	assert.Equal(t, 4.0, detail.TotalHours)
	assert.Equal(t, 60.0, detail.PendingBilling)
	assert.Equal(t, 50.0, detail.PlannedProgress)
	require.Len(t, detail.Members, 2)
	assert.Equal(t, "Ana", detail.Members[0].Name)
	assert.Equal(t, 3.0, detail.Members[0].TotalHours)
	require.Len(t, detail.Milestones, 1)
	assert.Equal(t, 3.0, detail.Milestones[0].TotalHours)

	_, err = GetProjectDetail(db, 999, day(2024, 3, 15))
	assert.ErrorIs(t, err, ErrProjectNotFound)
}

func TestDeleteProject_Cascades(t *testing.T) {
	db, user, project := setupImportFixture(t)
	require.NoError(t, db.Model(project).Association("Users").Append(user))
	_, err := CreateProjectMilestone(db, project, MilestoneInput{Name: "M", StartDate: "2024-03-01", EndDate: "2024-03-10"})
	require.NoError(t, err)
	_, err = CreateBillingMilestone(db, project.ID, BillingMilestoneInput{Description: "Anticipo"})
	require.NoError(t, err)
	createTestEntry(t, db, user.ID, project.ID, day(2024, 3, 4), models.PhaseInicio, 3)

	require.NoError(t, DeleteProject(db, project))

	_, err = GetProjectByID(db, project.ID)
	assert.ErrorIs(t, err, ErrProjectNotFound)
	assert.Equal(t, int64(0), countEntries(t, db, ""))

	var n int64
	require.NoError(t, db.Model(&models.ProjectMilestone{}).Count(&n).Error)
	assert.Zero(t, n)
	require.NoError(t, db.Model(&models.BillingMilestone{}).Count(&n).Error)
	assert.Zero(t, n)
	require.NoError(t, db.Table("project_user").Count(&n).Error)
	assert.Zero(t, n)
}

func TestGetProjectStatistics(t *testing.T) {
	db := setupTestDB(t)
	entity := createTestEntity(t, db, "Acme")
	user := createTestUser(t, db, "Ana")
	p := createTestProject(t, db, "Alpha", "A-1", entity.ID, nil)
	createTestProject(t, db, "Beta", "B-1", entity.ID, nil)
	q := createTestProject(t, db, "Gamma", "G-1", entity.ID, nil)
	require.NoError(t, db.Model(q).Updates(map[string]interface{}{"state": models.ProjectStateCompleted, "category": models.ProjectCategory2}).Error)
	createTestEntry(t, db, user.ID, p.ID, day(2024, 3, 4), models.PhaseInicio, 2.5)

	stats, err := GetProjectStatistics(db)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Total)
	assert.Equal(t, int64(2), stats.ByState[models.ProjectStateActive])
	assert.Equal(t, int64(1), stats.ByState[models.ProjectStateCompleted])
	assert.Equal(t, map[string]int64{models.ProjectCategory2: 1}, stats.ByCategory)
	assert.Empty(t, stats.ByPhase)
	assert.Equal(t, 2.5, stats.TotalHours)
}

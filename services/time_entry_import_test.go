package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"timesheet_app_go/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupImportFixture(t *testing.T) (*gorm.DB, *models.User, *models.Project) {
	db := setupTestDB(t)
	user := createTestUser(t, db, "Ana")
	entity := createTestEntity(t, db, "Acme")
	project := createTestProject(t, db, "Alpha", "P-001", entity.ID, nil)
	return db, user, project
}

func runImport(t *testing.T, db *gorm.DB, content string) (*ImportResult, error) {
	return ImportTimeEntries(context.Background(), db, strings.NewReader(content))
}

func TestImportTimeEntries_CommaFile(t *testing.T) {
	db, user, project := setupImportFixture(t)

	content := "project_id,user_id,date,hours,phase,description\n" +
		fmt.Sprintf("%d,%d,15/03/2024,8,inicio,Kickoff\n", project.ID, user.ID) +
		fmt.Sprintf("%d,%d,2024-03-16,2.5,ejecucion,\n", project.ID, user.ID)

	result, err := runImport(t, db, content)
	require.NoError(t, err)
	assert.Equal(t, 2, result.TotalRows)
	assert.Equal(t, 2, result.SuccessRows)
	assert.Equal(t, 0, result.ErrorRows)
	assert.Empty(t, result.Messages())

	var entries []models.TimeEntry
	require.NoError(t, db.Order("date ASC").Find(&entries).Error)
	require.Len(t, entries, 2)
	assert.True(t, day(2024, 3, 15).Equal(entries[0].Date))
	assert.Equal(t, 8.0, entries[0].Hours)
	assert.Equal(t, "Kickoff", entries[0].Description)
	assert.Equal(t, models.PhaseEjecucion, entries[1].Phase)
}

func TestImportTimeEntries_SemicolonBOMAndQuotedHeaders(t *testing.T) {
	db, user, project := setupImportFixture(t)

	content := "\xef\xbb\xbf\"Project_ID\"; “User_Id” ;DATE;Hours;'phase';Description\r\n" +
		fmt.Sprintf("%d;%d;01/03/2024;7,5;Control;Revisión; con punto y coma\r\n", project.ID, user.ID)

	result, err := runImport(t, db, content)
	require.NoError(t, err)
	assert.Equal(t, 1, result.SuccessRows, result.Errors)

	var entry models.TimeEntry
	require.NoError(t, db.First(&entry).Error)
	assert.Equal(t, 7.5, entry.Hours)
	assert.Equal(t, models.PhaseControl, entry.Phase)
	assert.Equal(t, "Revisión", entry.Description)
}

func TestImportTimeEntries_HoursBoundaries(t *testing.T) {
	db, user, project := setupImportFixture(t)

	var b strings.Builder
	b.WriteString("project_id,user_id,date,hours,phase,description\n")
	for _, h := range []string{"0.4", "0.5", "24", "24.1", "NaN", "0x1p-1", "1e1", "Inf"} {
		fmt.Fprintf(&b, "%d,%d,01/03/2024,%s,inicio,h=%s\n", project.ID, user.ID, h, h)
	}

	result, err := runImport(t, db, b.String())
	require.NoError(t, err)
	assert.Equal(t, 8, result.TotalRows)
	assert.Equal(t, 2, result.SuccessRows)
	assert.Equal(t, 6, result.ErrorRows)
	require.Len(t, result.Errors, 6)
	assert.Contains(t, result.Errors[0], "Row 2:")
	assert.Contains(t, result.Errors[1], "Row 5:")
	assert.Contains(t, result.Errors[2], "Row 6:")
	assert.Contains(t, result.Errors[3], "Row 7:")

	var hours []float64
	require.NoError(t, db.Model(&models.TimeEntry{}).Order("hours ASC").Pluck("hours", &hours).Error)
	assert.Equal(t, []float64{0.5, 24}, hours)
}

func TestParseImportHours(t *testing.T) {
	valid := map[string]float64{"8": 8, "7,5": 7.5, "0.5": 0.5, "+2.": 2, ".5": 0.5}
	for in, want := range valid {
		got, ok := parseImportHours(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, got, in)
	}
	for _, in := range []string{"NaN", "nan", "Inf", "-Inf", "0x1p-1", "1e1", "1.2.3", "1,5,0", "ocho", ""} {
		_, ok := parseImportHours(in)
		assert.False(t, ok, in)
	}
}

func TestImportTimeEntries_DatabaseErrorRollsBackFile(t *testing.T) {
	db, user, project := setupImportFixture(t)
	require.NoError(t, db.Exec(`CREATE TRIGGER reject_locked_entry BEFORE INSERT ON time_entries
		WHEN NEW.description = 'locked'
		BEGIN SELECT RAISE(ABORT, 'entry is locked'); END`).Error)

	content := "project_id,user_id,date,hours,phase,description\n" +
		fmt.Sprintf("%d,%d,01/03/2024,8,inicio,ok\n", project.ID, user.ID) +
		fmt.Sprintf("%d,%d,02/03/2024,4,control,ok\n", project.ID, user.ID) +
		fmt.Sprintf("%d,%d,03/03/2024,2,cierre,locked\n", project.ID, user.ID)

	result, err := runImport(t, db, content)
	require.Error(t, err)
	assert.Nil(t, result)
	assert.Contains(t, err.Error(), "import aborted: row 4")
	assert.Contains(t, err.Error(), "entry is locked")

	var count int64
	require.NoError(t, db.Model(&models.TimeEntry{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestImportTimeEntries_ReportsEveryViolation(t *testing.T) {
	db, _, _ := setupImportFixture(t)

	content := "project_id,user_id,date,hours,phase,description\n" +
		"999,888,31/02/2024,abc,diseño,x\n" +
		",,,,,\n"

	result, err := runImport(t, db, content)
	require.NoError(t, err)
	assert.Equal(t, 1, result.TotalRows, "blank lines are not rows")
	assert.Equal(t, 1, result.ErrorRows)
	require.Len(t, result.Errors, 1)

	msg := result.Errors[0]
	assert.Contains(t, msg, "project 999 does not exist")
	assert.Contains(t, msg, "user 888 does not exist")
	assert.Contains(t, msg, "invalid date")
	assert.Contains(t, msg, "hours must be a number")
	assert.Contains(t, msg, "invalid phase")
	assert.Equal(t, int64(0), countEntries(t, db, ""))
}

func TestImportTimeEntries_RequiredFields(t *testing.T) {
	db, user, project := setupImportFixture(t)

	content := "project_id,user_id,date,hours,phase,description\n" +
		fmt.Sprintf("%d,%d,,8,,\n", project.ID, user.ID)

	result, err := runImport(t, db, content)
	require.NoError(t, err)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "date is required")
	assert.Contains(t, result.Errors[0], "phase is required")
}

func TestImportTimeEntries_MissingHeader(t *testing.T) {
	db, user, project := setupImportFixture(t)

	content := "project_id,user_id,date,hours,description\n" +
		fmt.Sprintf("%d,%d,01/03/2024,8,fine\n", project.ID, user.ID)

	result, err := runImport(t, db, content)
	assert.Nil(t, result)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingHeaders))

	var headerErr *HeaderError
	require.True(t, errors.As(err, &headerErr))
	assert.Equal(t, []string{"phase"}, headerErr.Missing)
	assert.Equal(t, int64(0), countEntries(t, db, ""))
}

func TestImportTimeEntries_EmptyFile(t *testing.T) {
	db, _, _ := setupImportFixture(t)
	_, err := runImport(t, db, "\xef\xbb\xbf  \n")
	assert.ErrorIs(t, err, ErrEmptyImport)
}

func TestImportTimeEntries_TagsMilestone(t *testing.T) {
	db, user, project := setupImportFixture(t)
	milestone := &models.ProjectMilestone{ProjectID: project.ID, Name: "Fase 1", StartDate: day(2024, 3, 1), EndDate: day(2024, 3, 10)}
	require.NoError(t, db.Create(milestone).Error)

	content := "project_id,user_id,date,hours,phase,description\n" +
		fmt.Sprintf("%d,%d,05/03/2024,4,inicio,in window\n", project.ID, user.ID) +
		fmt.Sprintf("%d,%d,20/03/2024,4,inicio,outside\n", project.ID, user.ID)

	result, err := runImport(t, db, content)
	require.NoError(t, err)
	require.Equal(t, 2, result.SuccessRows)

	var entries []models.TimeEntry
	require.NoError(t, db.Order("date ASC").Find(&entries).Error)
	require.NotNil(t, entries[0].MilestoneID)
	assert.Equal(t, milestone.ID, *entries[0].MilestoneID)
	assert.Nil(t, entries[1].MilestoneID)
}

func TestImportResult_Messages(t *testing.T) {
	r := &ImportResult{}
	for i := 0; i < 13; i++ {
		r.Errors = append(r.Errors, fmt.Sprintf("Row %d: bad", i+2))
	}
	msgs := r.Messages()
	require.Len(t, msgs, 11)
	assert.Equal(t, "Row 2: bad", msgs[0])
	assert.Equal(t, "+3 more", msgs[10])

	r.Errors = r.Errors[:10]
	assert.Len(t, r.Messages(), 10)
}

func TestDetectDelimiterAndNormalizeHeader(t *testing.T) {
	assert.Equal(t, ';', DetectDelimiter([]byte("a;b\n1,2")))
	assert.Equal(t, ',', DetectDelimiter([]byte("a,b\n1;2")))
	assert.Equal(t, "project_id", NormalizeHeader(" \"Project_ID\" "))
	assert.Equal(t, "phase", NormalizeHeader("‘Phase’"))
	assert.Equal(t, "user_id", NormalizeHeader("\ufeffuser_id"))
}

func TestImportTemplate_RoundTrip(t *testing.T) {
	db, user, project := setupImportFixture(t)

	var buf bytes.Buffer
	require.NoError(t, ImportTemplate(&buf))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 6)
	assert.Equal(t, "project_id;user_id;date;hours;phase;description", lines[0])

	// point the example ids at real rows
	content := strings.ReplaceAll(buf.String(), "\n1;1;", fmt.Sprintf("\n%d;%d;", project.ID, user.ID))

	result, err := runImport(t, db, content)
	require.NoError(t, err)
	assert.Equal(t, 5, result.TotalRows)
	assert.Equal(t, 5, result.SuccessRows)
	assert.Equal(t, 0, result.ErrorRows, result.Errors)
}

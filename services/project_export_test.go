package services

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportProjectsCSV(t *testing.T) {
	db := setupTestDB(t)
	entity := createTestEntity(t, db, "Acme")
	bl := createTestBusinessLine(t, db, "Consultoría")
	ana := createTestUser(t, db, "Ana")
	luis := createTestUser(t, db, "Luis")

	in := validProjectInput(entity.ID)
	in.BusinessLineID = &bl.ID
	in.RealProgress = floatPtr(12.5)
	in.UserIDs = []uint{luis.ID, ana.ID}
	alpha, err := CreateProject(db, in, 0)
	require.NoError(t, err)
	beta := createTestProject(t, db, "Beta, Inc", "B-1", entity.ID, nil)

	var buf bytes.Buffer
	n, err := ExportProjectsCSV(db, &buf, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, ProjectExportHeaders, records[0])
	assert.Equal(t, []string{
		"1", "Implantación ERP", "ERP-01", "Acme", "Consultoría",
		"Categoria1", "Activo", "", "2024-03-01", "2024-03-29",
		"12.5", "40", "Ana, Luis",
	}, records[1])
	assert.Equal(t, "Beta, Inc", records[2][1])
	assert.Equal(t, "", records[2][4])

	buf.Reset()
	n, err = ExportProjectsCSV(db, &buf, []uint{beta.ID})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.NotContains(t, buf.String(), alpha.Code)
}

func TestParseIDList(t *testing.T) {
	ids, err := ParseIDList("1, 2,,3")
	require.NoError(t, err)
	assert.Equal(t, []uint{1, 2, 3}, ids)

	ids, err = ParseIDList("")
	require.NoError(t, err)
	assert.Empty(t, ids)

	_, err = ParseIDList("1,x")
	assert.Error(t, err)
}

func TestProjectExportFilename(t *testing.T) {
	assert.Equal(t, "proyectos-2024-03-05.csv", ProjectExportFilename(day(2024, 3, 5)))
}

package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildUserDayMatrix(t *testing.T) {
	r, err := NewDateRange(day(2024, 3, 1), day(2024, 3, 4))
	require.NoError(t, err)

	users := []UserRef{{ID: 2, Name: "Ana"}, {ID: 1, Name: "Luis"}, {ID: 3, Name: "Zoe"}}
	facts := []DayFact{
		{UserID: 1, Date: day(2024, 3, 1), ProjectName: "Alpha", Hours: 4},
		{UserID: 1, Date: day(2024, 3, 1), ProjectName: "Beta", Hours: 2.5},
		{UserID: 1, Date: day(2024, 3, 2), ProjectName: "Alpha", Hours: 1},
		{UserID: 2, Date: day(2024, 3, 4), ProjectName: "Beta", Hours: 8},
		{UserID: 2, Date: day(2024, 3, 4), ProjectName: "Beta", Hours: 0.5},
		{UserID: 9, Date: day(2024, 3, 1), ProjectName: "Alpha", Hours: 3}, // unknown user
		{UserID: 1, Date: day(2024, 3, 9), ProjectName: "Alpha", Hours: 3}, // outside range
	}

	m := BuildUserDayMatrix(r, users, facts)

	t.Run("every calendar day is a column", func(t *testing.T) {
		assert.Equal(t, []string{"2024-03-01", "2024-03-02", "2024-03-03", "2024-03-04"}, m.DayKeys)
		for _, row := range m.Rows {
			assert.Len(t, row.Cells, 4)
		}
	})

	t.Run("rows keep user order", func(t *testing.T) {
		require.Len(t, m.Rows, 3)
		assert.Equal(t, "Ana", m.Rows[0].User.Name)
		assert.Equal(t, "Zoe", m.Rows[2].User.Name)
		assert.Equal(t, 0.0, m.Rows[2].Total)
	})

	t.Run("cells carry project breakdown", func(t *testing.T) {
		byUser := m.ByUser()

		cell, ok := byUser[1].Days["2024-03-01"]
		require.True(t, ok)
		assert.Equal(t, 6.5, cell.Total)
		assert.Equal(t, map[string]float64{"Alpha": 4, "Beta": 2.5}, cell.Entries)

		cell, ok = byUser[2].Days["2024-03-04"]
		require.True(t, ok)
		assert.Equal(t, 8.5, cell.Total)
		assert.Equal(t, map[string]float64{"Beta": 8.5}, cell.Entries)

		_, ok = byUser[9]
		assert.False(t, ok)
	})

	t.Run("day totals add up to grand total", func(t *testing.T) {
		assert.Equal(t, []float64{6.5, 1, 0, 8.5}, m.DayTotals)

		for i := range m.Days {
			var sum float64
			for _, row := range m.Rows {
				sum += row.Cells[i].Total
			}
			assert.Equal(t, m.DayTotals[i], sum)
		}

		var grand float64
		for _, v := range m.DayTotals {
			grand += v
		}
		assert.Equal(t, grand, m.GrandTotal)
		assert.Equal(t, 16.0, m.GrandTotal)
	})

	t.Run("keyed by user id and date", func(t *testing.T) {
		byUser := m.ByUser()
		assert.Len(t, byUser, 3)
		assert.Equal(t, "Luis", byUser[1].User.Name)
		assert.Equal(t, 7.5, byUser[1].Total)
		assert.Len(t, byUser[3].Days, 4)
		assert.Zero(t, byUser[3].Days["2024-03-02"].Total)
	})
}

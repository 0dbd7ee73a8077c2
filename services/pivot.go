package services

import (
	"time"
)

// PivotColumn is one dynamic column of a pivot report
type PivotColumn struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// PivotRow is one grouped row of a pivot report. Values is aligned with the
// matrix columns; missing cells are 0.
type PivotRow struct {
	ID     uint      `json:"id"`
	Label  string    `json:"label"`
	Group  string    `json:"group,omitempty"`
	Values []float64 `json:"values"`
	Total  float64   `json:"total"`
}

// PivotMatrix is a rows x dynamic-columns table of summed hours
type PivotMatrix struct {
	Columns      []PivotColumn `json:"columns"`
	Rows         []PivotRow    `json:"rows"`
	ColumnTotals []float64     `json:"column_totals"`
	GrandTotal   float64       `json:"grand_total"`
}

// newPivotMatrix returns an empty matrix with zeroed totals for the given columns
func newPivotMatrix(columns []PivotColumn) *PivotMatrix {
	return &PivotMatrix{
		Columns:      columns,
		Rows:         []PivotRow{},
		ColumnTotals: make([]float64, len(columns)),
	}
}

// addRow appends a row and folds it into the column totals
func (m *PivotMatrix) addRow(row PivotRow) {
	for i, v := range row.Values {
		m.ColumnTotals[i] += v
	}
	m.GrandTotal += row.Total
	m.Rows = append(m.Rows, row)
}

// UserRef identifies a user in report output
type UserRef struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

// DayFact is hours booked by a user on one project for one day
type DayFact struct {
	UserID      uint
	Date        time.Time
	ProjectName string
	Hours       float64
}

// DayCell holds a user's hours for one day, with the per-project breakdown
type DayCell struct {
	Date    string             `json:"date"`
	Total   float64            `json:"total"`
	Entries map[string]float64 `json:"entries"`
}

// UserDayRow is one user's row of the day matrix; Cells is aligned with the matrix days
type UserDayRow struct {
	User  UserRef   `json:"user"`
	Cells []DayCell `json:"days"`
	Total float64   `json:"total"`
}

// UserDayMatrix is the user x calendar-day report. Every day of the range is a
// column, weekends included.
type UserDayMatrix struct {
	Range      DateRange    `json:"-"`
	Days       []time.Time  `json:"-"`
	DayKeys    []string     `json:"days"`
	Rows       []UserDayRow `json:"rows"`
	DayTotals  []float64    `json:"day_totals"`
	GrandTotal float64      `json:"grand_total"`
}

// BuildUserDayMatrix pivots day facts into a user x day matrix in one pass.
// Users keep the given order; facts for unknown users or days outside the
// range are ignored.
func BuildUserDayMatrix(r DateRange, users []UserRef, facts []DayFact) *UserDayMatrix {
	days := r.Days()
	dayKeys := make([]string, len(days))
	dayIndex := make(map[string]int, len(days))
	for i, d := range days {
		dayKeys[i] = FormatDate(d)
		dayIndex[dayKeys[i]] = i
	}

	m := &UserDayMatrix{
		Range:     r,
		Days:      days,
		DayKeys:   dayKeys,
		Rows:      make([]UserDayRow, len(users)),
		DayTotals: make([]float64, len(days)),
	}

	userIndex := make(map[uint]int, len(users))
	for i, u := range users {
		userIndex[u.ID] = i
		cells := make([]DayCell, len(days))
		for j := range days {
			cells[j] = DayCell{Date: dayKeys[j], Entries: map[string]float64{}}
		}
		m.Rows[i] = UserDayRow{User: u, Cells: cells}
	}

	for _, f := range facts {
		ui, ok := userIndex[f.UserID]
		if !ok {
			continue
		}
		di, ok := dayIndex[FormatDate(f.Date)]
		if !ok {
			continue
		}

		row := &m.Rows[ui]
		cell := &row.Cells[di]
		cell.Total += f.Hours
		cell.Entries[f.ProjectName] += f.Hours
		row.Total += f.Hours
		m.DayTotals[di] += f.Hours
		m.GrandTotal += f.Hours
	}

	return m
}

// UserDays is one user's row keyed by date
type UserDays struct {
	User  UserRef            `json:"user"`
	Days  map[string]DayCell `json:"days"`
	Total float64            `json:"total"`
}

// ByUser keys the matrix by user id, and each user's cells by YYYY-MM-DD
func (m *UserDayMatrix) ByUser() map[uint]UserDays {
	out := make(map[uint]UserDays, len(m.Rows))
	for _, row := range m.Rows {
		days := make(map[string]DayCell, len(row.Cells))
		for _, c := range row.Cells {
			days[c.Date] = c
		}
		out[row.User.ID] = UserDays{User: row.User, Days: days, Total: row.Total}
	}
	return out
}

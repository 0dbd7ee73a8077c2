package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"timesheet_app_go/models"

	"gorm.io/gorm"
)

// Maximum hours a single phase can carry in one timesheet cell
const MaxCellPhaseHours = 24.0

// Timesheet errors
var (
	ErrNoCellSelected = errors.New("no timesheet cell selected")
)

// TimesheetCell identifies the (user, project, day) a timesheet edit applies to
type TimesheetCell struct {
	UserID    uint
	ProjectID uint
	Date      time.Time
}

// CellForm is the editor content of a cell: hours for every phase plus the description
type CellForm struct {
	ProjectID   uint               `json:"project_id"`
	ProjectName string             `json:"project_name"`
	Date        string             `json:"date"`
	Hours       map[string]float64 `json:"hours"`
	Description string             `json:"description"`
}

// CellSubmission is the edited content of a cell. Phases missing from Hours count as 0.
type CellSubmission struct {
	Hours       map[string]float64 `json:"hours"`
	Description string             `json:"description"`
}

func (s CellSubmission) validate() error {
	v := ValidationErrors{}
	for phase, hours := range s.Hours {
		field := "hours." + phase
		if !models.IsValidPhase(phase) {
			v.Add(field, "The phase %s is invalid.", phase)
			continue
		}
		if hours < 0 || hours > MaxCellPhaseHours {
			v.Add(field, "The %s field must be between 0 and %.0f.", field, MaxCellPhaseHours)
		}
	}
	return v.Err()
}

// LoadCell prefills the editor from the user's existing entries for the cell.
// Hours are summed per phase; the description is the first non-empty one.
func LoadCell(db *gorm.DB, cell TimesheetCell) (*CellForm, error) {
	project, err := GetProjectByID(db, cell.ProjectID)
	if err != nil {
		return nil, err
	}

	var entries []models.TimeEntry
	err = db.Where("user_id = ? AND project_id = ? AND date = ?", cell.UserID, cell.ProjectID, StartOfDay(cell.Date)).
		Order("id ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}

	form := &CellForm{
		ProjectID:   project.ID,
		ProjectName: project.Name,
		Date:        FormatDate(cell.Date),
		Hours:       make(map[string]float64, len(models.Phases)),
	}
	for _, phase := range models.Phases {
		form.Hours[phase] = 0
	}
	for _, e := range entries {
		form.Hours[e.Phase] += e.Hours
		if form.Description == "" && e.Description != "" {
			form.Description = e.Description
		}
	}
	return form, nil
}

// SaveCell replaces the user's entries for the cell: existing entries are deleted,
// then one entry is created per phase with hours > 0, tagged with the milestone
// whose window contains the date when there is one.
func SaveCell(db *gorm.DB, cell TimesheetCell, sub CellSubmission) ([]models.TimeEntry, error) {
	if err := sub.validate(); err != nil {
		return nil, err
	}
	if _, err := GetProjectByID(db, cell.ProjectID); err != nil {
		return nil, err
	}

	date := StartOfDay(cell.Date)
	description := SanitizeText(sub.Description)
	var created []models.TimeEntry

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ? AND project_id = ? AND date = ?", cell.UserID, cell.ProjectID, date).
			Delete(&models.TimeEntry{}).Error; err != nil {
			return err
		}

		milestoneID, err := FindMilestoneForDate(tx, cell.ProjectID, date)
		if err != nil {
			return err
		}

		for _, phase := range models.Phases {
			hours := sub.Hours[phase]
			if hours <= 0 {
				continue
			}
			entry := models.TimeEntry{
				UserID:      cell.UserID,
				ProjectID:   cell.ProjectID,
				MilestoneID: milestoneID,
				Date:        date,
				Phase:       phase,
				Hours:       hours,
				Description: description,
			}
			if err := tx.Create(&entry).Error; err != nil {
				return err
			}
			created = append(created, entry)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save timesheet cell: %w", err)
	}
	return created, nil
}

// EditorState is the state of a timesheet editor
type EditorState string

const (
	EditorIdle         EditorState = "idle"
	EditorCellSelected EditorState = "cell_selected"
)

// Editor drives the select, prefill and submit cycle of one user's timesheet.
// It is not safe for concurrent use.
type Editor struct {
	db     *gorm.DB
	userID uint
	state  EditorState
	cell   TimesheetCell
	form   *CellForm
}

// NewEditor returns an idle editor for the user
func NewEditor(db *gorm.DB, userID uint) *Editor {
	return &Editor{db: db, userID: userID, state: EditorIdle}
}

// State returns the current editor state
func (e *Editor) State() EditorState { return e.state }

// Form returns the prefilled form of the selected cell, nil when idle
func (e *Editor) Form() *CellForm { return e.form }

// Select picks a (project, day) cell and prefills the form from stored entries.
// Selecting while a cell is already selected switches to the new cell.
func (e *Editor) Select(projectID uint, date time.Time) (*CellForm, error) {
	cell := TimesheetCell{UserID: e.userID, ProjectID: projectID, Date: StartOfDay(date)}
	form, err := LoadCell(e.db, cell)
	if err != nil {
		return nil, err
	}
	e.cell, e.form, e.state = cell, form, EditorCellSelected
	return form, nil
}

// Submit replaces the selected cell's entries and returns the editor to idle.
// On error the cell stays selected.
func (e *Editor) Submit(sub CellSubmission) ([]models.TimeEntry, error) {
	if e.state != EditorCellSelected {
		return nil, ErrNoCellSelected
	}
	entries, err := SaveCell(e.db, e.cell, sub)
	if err != nil {
		return nil, err
	}
	e.Cancel()
	return entries, nil
}

// Cancel drops the selection
func (e *Editor) Cancel() {
	e.cell, e.form, e.state = TimesheetCell{}, nil, EditorIdle
}

// TimesheetMonth is a user's month grid: one row per project, one column per day
type TimesheetMonth struct {
	Month  string       `json:"month"`
	Matrix *PivotMatrix `json:"grid"`
}

// ParseMonth parses YYYY-MM into the first day of that month
func ParseMonth(s string) (time.Time, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid month format: expected YYYY-MM")
	}
	return t, nil
}

// GetTimesheetMonth builds the month grid of a user. Rows are the user's assigned
// projects plus any project with hours in the month, ordered by name.
func GetTimesheetMonth(ctx context.Context, db *gorm.DB, userID uint, month time.Time) (*TimesheetMonth, error) {
	db = db.WithContext(ctx)
	first := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, time.UTC)
	r := DateRange{From: first, Until: first.AddDate(0, 1, -1)}

	var entries []models.TimeEntry
	if err := db.Where("user_id = ? AND date BETWEEN ? AND ?", userID, r.From, r.Until).
		Find(&entries).Error; err != nil {
		return nil, err
	}

	projectIDs := map[uint]bool{}
	for _, e := range entries {
		projectIDs[e.ProjectID] = true
	}
	var assigned []uint
	if err := db.Table("project_user").Where("user_id = ?", userID).Pluck("project_id", &assigned).Error; err != nil {
		return nil, err
	}
	for _, id := range assigned {
		projectIDs[id] = true
	}

	ids := make([]uint, 0, len(projectIDs))
	for id := range projectIDs {
		ids = append(ids, id)
	}
	var projects []models.Project
	if len(ids) > 0 {
		if err := db.Where("id IN ?", ids).Find(&projects).Error; err != nil {
			return nil, err
		}
	}
	sort.SliceStable(projects, func(i, j int) bool {
		if projects[i].Name == projects[j].Name {
			return projects[i].ID < projects[j].ID
		}
		return projects[i].Name < projects[j].Name
	})

	days := r.Days()
	cols := make([]PivotColumn, len(days))
	dayIndex := make(map[string]int, len(days))
	for i, d := range days {
		key := FormatDate(d)
		cols[i] = PivotColumn{Key: key, Label: strconv.Itoa(d.Day())}
		dayIndex[key] = i
	}

	byProject := make(map[uint][]float64, len(projects))
	for _, e := range entries {
		values, ok := byProject[e.ProjectID]
		if !ok {
			values = make([]float64, len(days))
			byProject[e.ProjectID] = values
		}
		if i, ok := dayIndex[FormatDate(e.Date)]; ok {
			values[i] += e.Hours
		}
	}

	m := newPivotMatrix(cols)
	for _, p := range projects {
		values := byProject[p.ID]
		if values == nil {
			values = make([]float64, len(days))
		}
		var total float64
		for _, v := range values {
			total += v
		}
		m.addRow(PivotRow{ID: p.ID, Label: p.Name, Group: p.Code, Values: values, Total: total})
	}

	return &TimesheetMonth{Month: first.Format("2006-01"), Matrix: m}, nil
}

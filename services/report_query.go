package services

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"timesheet_app_go/metrics"
	"timesheet_app_go/models"

	"gorm.io/gorm"
)

// ReportFilter narrows the rows of the aggregation reports. Zero values mean no filter.
type ReportFilter struct {
	EntityID       uint
	BusinessLineID uint
	ProjectID      uint
	UserID         uint
}

// BusinessLineReportPageSize is the page size of the business-line report table
const BusinessLineReportPageSize = 5

// conditionalSums builds one SUM(CASE ...) column per dimension value. Values are
// bound as parameters, aliases are positional.
func conditionalSums(column string, values []interface{}) string {
	parts := make([]string, len(values))
	for i := range values {
		parts[i] = fmt.Sprintf("COALESCE(SUM(CASE WHEN %s = ? THEN time_entries.hours ELSE 0 END), 0) AS pivot_%d", column, i)
	}
	return strings.Join(parts, ", ")
}

// scanPivotRows reads rows shaped as (id, label, group, pivot_0..pivot_n-1, total)
func scanPivotRows(rows *sql.Rows, m *PivotMatrix) error {
	defer rows.Close()

	n := len(m.Columns)
	for rows.Next() {
		var (
			id    uint
			label string
			group sql.NullString
			total float64
		)
		values := make([]float64, n)
		dest := make([]interface{}, 0, n+4)
		dest = append(dest, &id, &label, &group)
		for i := range values {
			dest = append(dest, &values[i])
		}
		dest = append(dest, &total)

		if err := rows.Scan(dest...); err != nil {
			return fmt.Errorf("failed to scan report row: %w", err)
		}
		m.addRow(PivotRow{ID: id, Label: label, Group: group.String, Values: values, Total: total})
	}
	return rows.Err()
}

// PhaseColumns returns the fixed phase columns in report order
func PhaseColumns() []PivotColumn {
	cols := make([]PivotColumn, len(models.Phases))
	for i, phase := range models.Phases {
		cols[i] = PivotColumn{Key: phase, Label: models.PhaseLabel(phase)}
	}
	return cols
}

// PhaseReport sums hours per project and phase over the range. Rows are ordered
// by business line name then project name; every phase is a column even when
// no hours were booked against it.
func PhaseReport(db *gorm.DB, r DateRange, filter ReportFilter) (*PivotMatrix, error) {
	defer recordQueryDuration("phases", time.Now())

	m := newPivotMatrix(PhaseColumns())

	values := make([]interface{}, len(models.Phases))
	for i, phase := range models.Phases {
		values[i] = phase
	}

	query := db.Table("time_entries").
		Select("projects.id, projects.name, business_lines.name, "+
			conditionalSums("time_entries.phase", values)+
			", COALESCE(SUM(time_entries.hours), 0) AS total", values...).
		Joins("JOIN projects ON projects.id = time_entries.project_id").
		Joins("LEFT JOIN business_lines ON business_lines.id = projects.business_line_id").
		Where("time_entries.date BETWEEN ? AND ?", r.From, r.Until)

	if filter.EntityID != 0 {
		query = query.Where("projects.entity_id = ?", filter.EntityID)
	}
	if filter.BusinessLineID != 0 {
		query = query.Where("projects.business_line_id = ?", filter.BusinessLineID)
	}
	if filter.ProjectID != 0 {
		query = query.Where("projects.id = ?", filter.ProjectID)
	}
	if filter.UserID != 0 {
		query = query.Where("time_entries.user_id = ?", filter.UserID)
	}

	rows, err := query.
		Group("projects.id, projects.name, business_lines.name").
		Order("business_lines.name, projects.name").
		Rows()
	if err != nil {
		return nil, fmt.Errorf("failed to run phase report: %w", err)
	}
	if err := scanPivotRows(rows, m); err != nil {
		return nil, err
	}
	return m, nil
}

// BusinessLineColumns returns one column per business line, ordered by name
func BusinessLineColumns(db *gorm.DB) ([]models.BusinessLine, []PivotColumn, error) {
	var lines []models.BusinessLine
	if err := db.Order("name ASC").Find(&lines).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to load business lines: %w", err)
	}

	cols := make([]PivotColumn, len(lines))
	for i, bl := range lines {
		cols[i] = PivotColumn{Key: strconv.FormatUint(uint64(bl.ID), 10), Label: bl.Name}
	}
	return lines, cols, nil
}

// BusinessLineReport sums each user's hours per business line over the range.
// Every user appears, ordered by name, with zero rows for users without hours.
// A zero PerPage returns every user; pages past the end clamp to the last page.
func BusinessLineReport(db *gorm.DB, r DateRange, filter ReportFilter, page Pagination) (*PivotMatrix, int64, error) {
	defer recordQueryDuration("business_lines", time.Now())

	lines, cols, err := BusinessLineColumns(db)
	if err != nil {
		return nil, 0, err
	}
	m := newPivotMatrix(cols)

	users := db.Model(&models.User{})
	if filter.UserID != 0 {
		users = users.Where("users.id = ?", filter.UserID)
	}
	var totalUsers int64
	if err := users.Count(&totalUsers).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	values := make([]interface{}, len(lines))
	for i, bl := range lines {
		values[i] = bl.ID
	}

	selectSQL := "users.id, users.name, NULL"
	if len(values) > 0 {
		selectSQL += ", " + conditionalSums("projects.business_line_id", values)
	}
	selectSQL += ", COALESCE(SUM(time_entries.hours), 0) AS total"

	query := db.Table("users").
		Select(selectSQL, values...).
		Joins("LEFT JOIN time_entries ON time_entries.user_id = users.id AND time_entries.date BETWEEN ? AND ?", r.From, r.Until).
		Joins("LEFT JOIN projects ON projects.id = time_entries.project_id")
	if filter.UserID != 0 {
		query = query.Where("users.id = ?", filter.UserID)
	}
	query = query.Group("users.id, users.name").Order("users.name, users.id")
	if page.PerPage > 0 {
		query = query.Offset(pageOffset(page.Page, page.PerPage, totalUsers)).Limit(page.PerPage)
	}

	rows, err := query.Rows()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to run business line report: %w", err)
	}
	if err := scanPivotRows(rows, m); err != nil {
		return nil, 0, err
	}
	return m, totalUsers, nil
}

// pageOffset clamps a 1-based page to the last available page
func pageOffset(page, perPage int, total int64) int {
	if page < 1 {
		page = 1
	}
	lastPage := int((total + int64(perPage) - 1) / int64(perPage))
	if lastPage < 1 {
		lastPage = 1
	}
	if page > lastPage {
		page = lastPage
	}
	return (page - 1) * perPage
}

// UserProjectReport sums each user's hours per project over the range. Columns
// are the projects with hours in the range, ordered by name; rows are the users
// with hours, ordered by name.
func UserProjectReport(db *gorm.DB, r DateRange, filter ReportFilter) (*PivotMatrix, error) {
	defer recordQueryDuration("user_projects", time.Now())

	var projects []models.Project
	pq := db.Model(&models.Project{}).
		Where("id IN (?)", db.Model(&models.TimeEntry{}).
			Select("project_id").
			Where("date BETWEEN ? AND ?", r.From, r.Until))
	if filter.EntityID != 0 {
		pq = pq.Where("entity_id = ?", filter.EntityID)
	}
	if filter.BusinessLineID != 0 {
		pq = pq.Where("business_line_id = ?", filter.BusinessLineID)
	}
	if filter.ProjectID != 0 {
		pq = pq.Where("id = ?", filter.ProjectID)
	}
	if err := pq.Order("name ASC").Find(&projects).Error; err != nil {
		return nil, fmt.Errorf("failed to load projects: %w", err)
	}

	cols := make([]PivotColumn, len(projects))
	values := make([]interface{}, len(projects))
	for i, p := range projects {
		cols[i] = PivotColumn{Key: strconv.FormatUint(uint64(p.ID), 10), Label: p.Name}
		values[i] = p.ID
	}
	m := newPivotMatrix(cols)
	if len(projects) == 0 {
		return m, nil
	}

	query := db.Table("time_entries").
		Select("users.id, users.name, NULL, "+
			conditionalSums("time_entries.project_id", values)+
			", COALESCE(SUM(time_entries.hours), 0) AS total", values...).
		Joins("JOIN users ON users.id = time_entries.user_id").
		Where("time_entries.date BETWEEN ? AND ?", r.From, r.Until).
		Where("time_entries.project_id IN ?", values)
	if filter.UserID != 0 {
		query = query.Where("time_entries.user_id = ?", filter.UserID)
	}

	rows, err := query.Group("users.id, users.name").Order("users.name, users.id").Rows()
	if err != nil {
		return nil, fmt.Errorf("failed to run user project report: %w", err)
	}
	if err := scanPivotRows(rows, m); err != nil {
		return nil, err
	}
	return m, nil
}

// DayReport builds the user x day matrix for the range from a single grouped
// pass over (user, date, project). Every user is listed, ordered by name.
func DayReport(db *gorm.DB, r DateRange, filter ReportFilter) (*UserDayMatrix, error) {
	defer recordQueryDuration("days", time.Now())

	var users []UserRef
	uq := db.Model(&models.User{}).Select("id, name")
	if filter.UserID != 0 {
		uq = uq.Where("id = ?", filter.UserID)
	}
	if err := uq.Order("name ASC, id ASC").Scan(&users).Error; err != nil {
		return nil, fmt.Errorf("failed to load users: %w", err)
	}

	facts, err := loadDayFacts(db, r, filter)
	if err != nil {
		return nil, err
	}

	return BuildUserDayMatrix(r, users, facts), nil
}

func loadDayFacts(db *gorm.DB, r DateRange, filter ReportFilter) ([]DayFact, error) {
	query := db.Table("time_entries").
		Select("time_entries.user_id, time_entries.date, projects.name AS project_name, SUM(time_entries.hours) AS hours").
		Joins("JOIN projects ON projects.id = time_entries.project_id").
		Where("time_entries.date BETWEEN ? AND ?", r.From, r.Until)
	if filter.UserID != 0 {
		query = query.Where("time_entries.user_id = ?", filter.UserID)
	}
	if filter.ProjectID != 0 {
		query = query.Where("time_entries.project_id = ?", filter.ProjectID)
	}
	if filter.EntityID != 0 {
		query = query.Where("projects.entity_id = ?", filter.EntityID)
	}
	if filter.BusinessLineID != 0 {
		query = query.Where("projects.business_line_id = ?", filter.BusinessLineID)
	}

	var facts []DayFact
	err := query.
		Group("time_entries.user_id, time_entries.date, time_entries.project_id, projects.name").
		Scan(&facts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load day facts: %w", err)
	}
	return facts, nil
}

// DayDetailEntry is one time entry of a user's day drill-down
type DayDetailEntry struct {
	ID          uint    `json:"id"`
	ProjectID   uint    `json:"project_id"`
	ProjectName string  `json:"project_name"`
	Phase       string  `json:"phase"`
	PhaseLabel  string  `json:"phase_label"`
	Hours       float64 `json:"hours"`
	Description string  `json:"description"`
}

// DayDetail lists a user's entries for one day, ordered by project name
func DayDetail(db *gorm.DB, userID uint, date time.Time) ([]DayDetailEntry, error) {
	var entries []models.TimeEntry
	err := db.Preload("Project").
		Joins("JOIN projects ON projects.id = time_entries.project_id").
		Where("time_entries.user_id = ? AND time_entries.date = ?", userID, StartOfDay(date)).
		Order("projects.name ASC, time_entries.id ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}

	out := make([]DayDetailEntry, 0, len(entries))
	for _, e := range entries {
		d := DayDetailEntry{
			ID:          e.ID,
			ProjectID:   e.ProjectID,
			Phase:       e.Phase,
			PhaseLabel:  models.PhaseLabel(e.Phase),
			Hours:       e.Hours,
			Description: e.Description,
		}
		if e.Project != nil {
			d.ProjectName = e.Project.Name
		}
		out = append(out, d)
	}
	return out, nil
}

// Report range presets
const (
	PresetCurrentMonth  = "current_month"
	PresetPreviousMonth = "previous_month"
	PresetCurrentWeek   = "current_week"
	PresetLast30Days    = "last_30_days"
)

// PresetRange resolves a named range preset relative to now. Weeks start on Monday.
func PresetRange(preset string, now time.Time) (DateRange, bool) {
	today := StartOfDay(now)
	firstOfMonth := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)

	switch preset {
	case PresetCurrentMonth:
		return DateRange{From: firstOfMonth, Until: firstOfMonth.AddDate(0, 1, -1)}, true
	case PresetPreviousMonth:
		from := firstOfMonth.AddDate(0, -1, 0)
		return DateRange{From: from, Until: firstOfMonth.AddDate(0, 0, -1)}, true
	case PresetCurrentWeek:
		offset := (int(today.Weekday()) + 6) % 7
		from := today.AddDate(0, 0, -offset)
		return DateRange{From: from, Until: from.AddDate(0, 0, 6)}, true
	case PresetLast30Days:
		return DateRange{From: today.AddDate(0, 0, -30), Until: today}, true
	}
	return DateRange{}, false
}

func recordQueryDuration(report string, start time.Time) {
	metrics.RecordReportQuery(report, time.Since(start))
}

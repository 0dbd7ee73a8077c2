package services

import (
	"errors"
	"strings"
	"time"

	"timesheet_app_go/models"

	"gorm.io/gorm"
)

// User-related errors
var (
	ErrUserNotFound = errors.New("user not found")
)

var userSortFields = map[string]string{
	"id":         "users.id",
	"name":       "users.name",
	"email":      "users.email",
	"created_at": "users.created_at",
	"updated_at": "users.updated_at",
}

// UserFilters contains filter options for user listings
type UserFilters struct {
	Search        string
	Role          string
	Active        *bool
	SortField     string
	SortDirection string
}

// sortClause resolves a whitelisted sort column. Unknown fields fall back to
// fallback and any direction other than desc sorts ascending.
func sortClause(fields map[string]string, field, direction, fallback string) string {
	column, ok := fields[field]
	if !ok {
		column = fields[fallback]
	}
	if strings.ToLower(direction) == "desc" {
		return column + " DESC"
	}
	return column + " ASC"
}

// ListUsers retrieves a filtered, sorted page of users
func ListUsers(db *gorm.DB, filters UserFilters, page Pagination) ([]models.User, int64, error) {
	query := db.Model(&models.User{})
	if filters.Search != "" {
		pattern := "%" + filters.Search + "%"
		query = query.Where("users.name LIKE ? OR users.email LIKE ?", pattern, pattern)
	}
	if filters.Role != "" {
		query = query.Where("users.role = ?", filters.Role)
	}
	if filters.Active != nil {
		query = query.Where("users.is_active = ?", *filters.Active)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var users []models.User
	err := query.
		Order(sortClause(userSortFields, filters.SortField, filters.SortDirection, "name")).
		Offset(page.Offset()).
		Limit(page.PerPage).
		Find(&users).Error
	return users, total, err
}

// GetUserByID retrieves a user with the projects they are assigned to
func GetUserByID(db *gorm.DB, id uint) (*models.User, error) {
	var user models.User
	err := db.Preload("Projects", func(db *gorm.DB) *gorm.DB { return db.Order("projects.name ASC") }).
		First(&user, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// UserStatistics summarizes the user base
type UserStatistics struct {
	TotalUsers           int64            `json:"total_users"`
	ActiveUsers          int64            `json:"active_users"`
	UsersWithProjects    int64            `json:"users_with_projects"`
	UsersWithTimeEntries int64            `json:"users_with_time_entries"`
	UsersByRole          map[string]int64 `json:"users_by_role"`
}

// GetUserStatistics counts users overall, by role, and by participation
func GetUserStatistics(db *gorm.DB) (*UserStatistics, error) {
	stats := &UserStatistics{}
	if err := db.Model(&models.User{}).Count(&stats.TotalUsers).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.User{}).Where("is_active = ?", true).Count(&stats.ActiveUsers).Error; err != nil {
		return nil, err
	}
	if err := db.Table("project_user").Distinct("user_id").Count(&stats.UsersWithProjects).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.TimeEntry{}).Distinct("user_id").Count(&stats.UsersWithTimeEntries).Error; err != nil {
		return nil, err
	}

	var err error
	if stats.UsersByRole, err = countBy(db, &models.User{}, "role"); err != nil {
		return nil, err
	}
	return stats, nil
}

// UserHoursFilter restricts the hours summed per user. With a ProjectID only
// users who booked time on that project are listed.
type UserHoursFilter struct {
	ProjectID uint
	Range     *DateRange
}

// UserWithHours is a user with the hours they booked and their latest entry
type UserWithHours struct {
	models.User
	TotalHours        float64    `json:"total_hours"`
	TotalHoursInRange *float64   `json:"total_hours_in_range,omitempty"`
	LastTimeEntry     *time.Time `json:"last_time_entry"`
}

// ListUsersWithHours lists users by name with their booked hours. TotalHours
// honours the project filter and the range; TotalHoursInRange covers all
// projects inside the range.
func ListUsersWithHours(db *gorm.DB, filter UserHoursFilter) ([]UserWithHours, error) {
	query := db.Model(&models.User{}).
		Preload("Projects", func(db *gorm.DB) *gorm.DB { return db.Order("projects.name ASC") }).
		Order("users.name ASC")
	if filter.ProjectID != 0 {
		query = query.Where("EXISTS (SELECT 1 FROM time_entries te WHERE te.user_id = users.id AND te.project_id = ?)", filter.ProjectID)
	}

	var users []models.User
	if err := query.Find(&users).Error; err != nil {
		return nil, err
	}

	hours, err := userHours(db, filter.ProjectID, filter.Range)
	if err != nil {
		return nil, err
	}
	var inRange map[uint]float64
	if filter.Range != nil {
		if inRange, err = userHours(db, 0, filter.Range); err != nil {
			return nil, err
		}
	}

	lastByUser, err := lastTimeEntries(db)
	if err != nil {
		return nil, err
	}

	out := make([]UserWithHours, len(users))
	for i, u := range users {
		out[i] = UserWithHours{User: u, TotalHours: hours[u.ID]}
		if inRange != nil {
			h := inRange[u.ID]
			out[i].TotalHoursInRange = &h
		}
		if last, ok := lastByUser[u.ID]; ok {
			out[i].LastTimeEntry = &last
		}
	}
	return out, nil
}

// lastTimeEntries returns when each user last recorded time
func lastTimeEntries(db *gorm.DB) (map[uint]time.Time, error) {
	var latestIDs []uint
	if err := db.Model(&models.TimeEntry{}).
		Select("MAX(id)").
		Group("user_id").
		Pluck("MAX(id)", &latestIDs).Error; err != nil {
		return nil, err
	}
	out := make(map[uint]time.Time, len(latestIDs))
	if len(latestIDs) == 0 {
		return out, nil
	}

	var entries []models.TimeEntry
	if err := db.Select("id, user_id, created_at").Where("id IN ?", latestIDs).Find(&entries).Error; err != nil {
		return nil, err
	}
	for _, e := range entries {
		out[e.UserID] = e.CreatedAt
	}
	return out, nil
}

func userHours(db *gorm.DB, projectID uint, r *DateRange) (map[uint]float64, error) {
	var rows []struct {
		UserID uint
		Hours  float64
	}
	q := db.Model(&models.TimeEntry{}).Select("user_id, COALESCE(SUM(hours), 0) AS hours")
	if projectID != 0 {
		q = q.Where("project_id = ?", projectID)
	}
	if r != nil {
		q = q.Where("date BETWEEN ? AND ?", r.From, r.Until)
	}
	if err := q.Group("user_id").Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[uint]float64, len(rows))
	for _, row := range rows {
		out[row.UserID] = row.Hours
	}
	return out, nil
}

// UserHoursStatistic is one user's hours and project count
type UserHoursStatistic struct {
	UserID        uint    `json:"user_id"`
	UserName      string  `json:"user_name"`
	TotalHours    float64 `json:"total_hours"`
	ProjectsCount int64   `json:"projects_count"`
}

// GetUserHoursStatistics ranks users by booked hours, optionally inside a range
func GetUserHoursStatistics(db *gorm.DB, r *DateRange) ([]UserHoursStatistic, error) {
	q := db.Table("time_entries").
		Select("users.id AS user_id, users.name AS user_name, SUM(time_entries.hours) AS total_hours, COUNT(DISTINCT time_entries.project_id) AS projects_count").
		Joins("JOIN users ON users.id = time_entries.user_id").
		Joins("JOIN projects ON projects.id = time_entries.project_id")
	if r != nil {
		q = q.Where("time_entries.date BETWEEN ? AND ?", r.From, r.Until)
	}

	var stats []UserHoursStatistic
	err := q.Group("users.id, users.name").Order("total_hours DESC").Scan(&stats).Error
	return stats, err
}

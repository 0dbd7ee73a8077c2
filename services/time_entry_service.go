package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"timesheet_app_go/models"

	"gorm.io/gorm"
)

// Hours bounds of a single time entry saved through the API (inclusive)
const (
	MinEntryHours = 0.1
	MaxEntryHours = 24.0
)

// Time entry errors
var (
	ErrTimeEntryNotFound = errors.New("time entry not found")
)

// TimeEntryFilters contains filter options for time entry listings
type TimeEntryFilters struct {
	UserID    uint
	ProjectID uint
	Date      *time.Time
	Range     *DateRange
}

// TimeEntryInput is the payload to create or update a time entry
type TimeEntryInput struct {
	UserID      uint    `json:"user_id"`
	ProjectID   uint    `json:"project_id"`
	MilestoneID *uint   `json:"milestone_id"`
	Date        string  `json:"date"`
	Phase       string  `json:"phase"`
	Hours       float64 `json:"hours"`
	Description string  `json:"description"`
}

func (in TimeEntryInput) apply(db *gorm.DB, e *models.TimeEntry) error {
	v := ValidationErrors{}

	if in.UserID == 0 {
		v.Add("user_id", "The user_id field is required.")
	} else if ok, err := recordExists(db, &models.User{}, in.UserID); err != nil {
		return err
	} else if !ok {
		v.Add("user_id", "The selected user_id is invalid.")
	}

	if in.ProjectID == 0 {
		v.Add("project_id", "The project_id field is required.")
	} else if ok, err := recordExists(db, &models.Project{}, in.ProjectID); err != nil {
		return err
	} else if !ok {
		v.Add("project_id", "The selected project_id is invalid.")
	}

	if in.MilestoneID != nil {
		var n int64
		if err := db.Model(&models.ProjectMilestone{}).
			Where("id = ? AND project_id = ?", *in.MilestoneID, in.ProjectID).
			Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			v.Add("milestone_id", "The selected milestone_id is invalid.")
		}
	}

	date := v.requiredDate("date", in.Date)

	phase := strings.ToLower(strings.TrimSpace(in.Phase))
	if phase == "" {
		v.Add("phase", "The phase field is required.")
	} else if !models.IsValidPhase(phase) {
		v.Add("phase", "The selected phase is invalid.")
	}

	if in.Hours < MinEntryHours || in.Hours > MaxEntryHours {
		v.Add("hours", "The hours field must be between %.1f and %.0f.", MinEntryHours, MaxEntryHours)
	}

	if err := v.Err(); err != nil {
		return err
	}

	e.UserID = in.UserID
	e.ProjectID = in.ProjectID
	e.Date = *date
	e.Phase = phase
	e.Hours = in.Hours
	e.Description = SanitizeText(in.Description)
	e.MilestoneID = in.MilestoneID
	if e.MilestoneID == nil {
		id, err := FindMilestoneForDate(db, e.ProjectID, e.Date)
		if err != nil {
			return err
		}
		e.MilestoneID = id
	}
	return nil
}

// ListTimeEntries retrieves a filtered page of time entries, newest first
func ListTimeEntries(db *gorm.DB, filters TimeEntryFilters, page Pagination) ([]models.TimeEntry, int64, error) {
	query := db.Model(&models.TimeEntry{})
	if filters.UserID != 0 {
		query = query.Where("user_id = ?", filters.UserID)
	}
	if filters.ProjectID != 0 {
		query = query.Where("project_id = ?", filters.ProjectID)
	}
	if filters.Date != nil {
		query = query.Where("date = ?", StartOfDay(*filters.Date))
	}
	if filters.Range != nil {
		query = query.Where("date BETWEEN ? AND ?", filters.Range.From, filters.Range.Until)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var entries []models.TimeEntry
	err := query.
		Preload("User").
		Preload("Project").
		Preload("Milestone").
		Order("date DESC, id DESC").
		Offset(page.Offset()).
		Limit(page.PerPage).
		Find(&entries).Error
	return entries, total, err
}

// GetTimeEntryByID retrieves a time entry with its user, project and milestone
func GetTimeEntryByID(db *gorm.DB, id uint) (*models.TimeEntry, error) {
	var entry models.TimeEntry
	err := db.Preload("User").Preload("Project").Preload("Milestone").First(&entry, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTimeEntryNotFound
		}
		return nil, err
	}
	return &entry, nil
}

// CreateTimeEntry validates and stores a time entry. Without an explicit
// milestone the entry is tagged with the milestone containing its date.
func CreateTimeEntry(db *gorm.DB, in TimeEntryInput) (*models.TimeEntry, error) {
	entry := &models.TimeEntry{}
	if err := in.apply(db, entry); err != nil {
		return nil, err
	}
	if err := db.Create(entry).Error; err != nil {
		return nil, fmt.Errorf("failed to create time entry: %w", err)
	}
	return entry, nil
}

// UpdateTimeEntry validates and saves new values for a time entry
func UpdateTimeEntry(db *gorm.DB, entry *models.TimeEntry, in TimeEntryInput) error {
	if err := in.apply(db, entry); err != nil {
		return err
	}
	entry.User, entry.Project, entry.Milestone = nil, nil, nil
	if err := db.Save(entry).Error; err != nil {
		return fmt.Errorf("failed to update time entry: %w", err)
	}
	return nil
}

// DeleteTimeEntry removes a time entry
func DeleteTimeEntry(db *gorm.DB, entry *models.TimeEntry) error {
	return db.Delete(entry).Error
}

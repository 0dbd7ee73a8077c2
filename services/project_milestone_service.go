package services

import (
	"errors"
	"fmt"
	"time"

	"timesheet_app_go/models"

	"gorm.io/gorm"
)

// Milestone-related errors
var (
	ErrMilestoneNotFound = errors.New("milestone not found")
)

// MilestoneInput is the payload to create or update a project milestone
type MilestoneInput struct {
	Name              string   `json:"name"`
	StartDate         string   `json:"start_date"`
	EndDate           string   `json:"end_date"`
	BillingPercentage *float64 `json:"billing_percentage"`
	Status            string   `json:"status"`
	Progress          *float64 `json:"progress"`
	IsPaid            bool     `json:"is_paid"`
	Description       string   `json:"description"`
}

// validate checks the input against the owning project and returns the parsed window
func (in MilestoneInput) validate(project *models.Project) (time.Time, time.Time, error) {
	v := ValidationErrors{}
	v.requireString("name", in.Name, 255)
	start := v.requiredDate("start_date", in.StartDate)
	end := v.requiredDate("end_date", in.EndDate)
	v.notBefore("end_date", end, start, "start_date")
	v.percent("billing_percentage", in.BillingPercentage)
	v.percent("progress", in.Progress)
	v.oneOf("status", in.Status, models.IsValidMilestoneStatus)

	if start != nil && project.StartDate != nil && start.Before(StartOfDay(*project.StartDate)) {
		v.Add("start_date", "The start_date must be within the project dates.")
	}
	if end != nil && project.EndDate != nil && end.After(StartOfDay(*project.EndDate)) {
		v.Add("end_date", "The end_date must be within the project dates.")
	}

	if err := v.Err(); err != nil {
		return time.Time{}, time.Time{}, err
	}
	return *start, *end, nil
}

func (in MilestoneInput) apply(m *models.ProjectMilestone, start, end time.Time) {
	m.Name = SanitizeText(in.Name)
	m.StartDate = start
	m.EndDate = end
	m.IsPaid = in.IsPaid
	m.Description = SanitizeText(in.Description)
	m.BillingPercentage = 0
	if in.BillingPercentage != nil {
		m.BillingPercentage = *in.BillingPercentage
	}
	m.Progress = 0
	if in.Progress != nil {
		m.Progress = *in.Progress
	}
	m.Status = in.Status
	if m.Status == "" {
		m.Status = models.MilestoneStatusPending
	}
}

// listMilestones returns a project's milestones in display order
func listMilestones(db *gorm.DB, projectID uint) ([]models.ProjectMilestone, error) {
	var milestones []models.ProjectMilestone
	err := db.Where("project_id = ?", projectID).
		Order("sort_order ASC, id ASC").
		Find(&milestones).Error
	return milestones, err
}

// milestoneForDate returns the id of the first milestone whose window contains date
func milestoneForDate(milestones []models.ProjectMilestone, date time.Time) *uint {
	for i := range milestones {
		if milestones[i].Contains(date) {
			id := milestones[i].ID
			return &id
		}
	}
	return nil
}

// FindMilestoneForDate returns the milestone of a project whose window contains
// the date, or nil when none does.
func FindMilestoneForDate(db *gorm.DB, projectID uint, date time.Time) (*uint, error) {
	milestones, err := listMilestones(db, projectID)
	if err != nil {
		return nil, err
	}
	return milestoneForDate(milestones, StartOfDay(date)), nil
}

// MilestoneTotalHours sums the project's hours inside the milestone window or
// explicitly tagged with the milestone.
func MilestoneTotalHours(db *gorm.DB, m *models.ProjectMilestone) (float64, error) {
	var total float64
	err := db.Model(&models.TimeEntry{}).
		Select("COALESCE(SUM(hours), 0)").
		Where("project_id = ?", m.ProjectID).
		Where("(date BETWEEN ? AND ?) OR milestone_id = ?", StartOfDay(m.StartDate), StartOfDay(m.EndDate), m.ID).
		Scan(&total).Error
	return total, err
}

// GetProjectMilestones retrieves a project's milestones with their total hours
func GetProjectMilestones(db *gorm.DB, projectID uint) ([]models.ProjectMilestone, error) {
	milestones, err := listMilestones(db, projectID)
	if err != nil {
		return nil, err
	}
	for i := range milestones {
		if milestones[i].TotalHours, err = MilestoneTotalHours(db, &milestones[i]); err != nil {
			return nil, err
		}
	}
	return milestones, nil
}

// GetProjectMilestoneByID retrieves a milestone of a project
func GetProjectMilestoneByID(db *gorm.DB, projectID, milestoneID uint) (*models.ProjectMilestone, error) {
	var milestone models.ProjectMilestone
	err := db.Where("project_id = ?", projectID).First(&milestone, milestoneID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMilestoneNotFound
		}
		return nil, err
	}
	if milestone.TotalHours, err = MilestoneTotalHours(db, &milestone); err != nil {
		return nil, err
	}
	return &milestone, nil
}

// CreateProjectMilestone validates and appends a milestone at the end of the project's order
func CreateProjectMilestone(db *gorm.DB, project *models.Project, in MilestoneInput) (*models.ProjectMilestone, error) {
	start, end, err := in.validate(project)
	if err != nil {
		return nil, err
	}

	milestone := &models.ProjectMilestone{ProjectID: project.ID}
	in.apply(milestone, start, end)

	err = db.Transaction(func(tx *gorm.DB) error {
		var maxOrder int
		if err := tx.Model(&models.ProjectMilestone{}).
			Where("project_id = ?", project.ID).
			Select("COALESCE(MAX(sort_order), 0)").
			Scan(&maxOrder).Error; err != nil {
			return err
		}
		milestone.SortOrder = maxOrder + 1
		return tx.Create(milestone).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create milestone: %w", err)
	}
	return milestone, nil
}

// UpdateProjectMilestone validates and saves new values for a milestone
func UpdateProjectMilestone(db *gorm.DB, project *models.Project, milestone *models.ProjectMilestone, in MilestoneInput) error {
	start, end, err := in.validate(project)
	if err != nil {
		return err
	}
	in.apply(milestone, start, end)
	if err := db.Save(milestone).Error; err != nil {
		return fmt.Errorf("failed to update milestone: %w", err)
	}
	milestone.TotalHours, err = MilestoneTotalHours(db, milestone)
	return err
}

// DeleteProjectMilestone removes a milestone and untags its time entries
func DeleteProjectMilestone(db *gorm.DB, milestone *models.ProjectMilestone) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.TimeEntry{}).
			Where("milestone_id = ?", milestone.ID).
			Update("milestone_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(milestone).Error
	})
}

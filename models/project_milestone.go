package models

import (
	"time"
)

// Milestone statuses
const (
	MilestoneStatusPending    = "Pendiente"
	MilestoneStatusInProgress = "En Progreso"
	MilestoneStatusCompleted  = "Completado"
	MilestoneStatusDelayed    = "Retrasado"
)

var MilestoneStatuses = []string{
	MilestoneStatusPending,
	MilestoneStatusInProgress,
	MilestoneStatusCompleted,
	MilestoneStatusDelayed,
}

// ProjectMilestone is a dated window of a project. Time entries whose date
// falls inside the window are attributed to it.
type ProjectMilestone struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ProjectID uint   `gorm:"not null;index:idx_milestone_project" json:"project_id"`
	Name      string `gorm:"not null" json:"name"`

	StartDate         time.Time `gorm:"type:date;not null" json:"start_date"`
	EndDate           time.Time `gorm:"type:date;not null" json:"end_date"`
	BillingPercentage float64   `gorm:"not null;default:0" json:"billing_percentage"`
	IsPaid            bool      `gorm:"not null;default:false" json:"is_paid"`
	Progress          float64   `gorm:"not null;default:0" json:"progress"`
	Status            string    `gorm:"not null;default:Pendiente" json:"status"`
	Description       string    `gorm:"type:text" json:"description,omitempty"`
	SortOrder         int       `gorm:"not null;default:0;index:idx_milestone_project" json:"order"`

	// Computed on read, never stored
	TotalHours float64 `gorm:"-" json:"total_hours"`

	Project *Project `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
}

// TableName specifies the table name for ProjectMilestone model
func (ProjectMilestone) TableName() string {
	return "project_milestones"
}

// Contains reports whether the date falls inside the milestone window (inclusive)
func (m *ProjectMilestone) Contains(date time.Time) bool {
	return !date.Before(m.StartDate) && !date.After(m.EndDate)
}

// IsValidMilestoneStatus checks the milestone status enum
func IsValidMilestoneStatus(v string) bool { return contains(MilestoneStatuses, v) }

package models

import (
	"time"
)

// Time entry phases, in report column order
const (
	PhaseInicio        = "inicio"
	PhasePlanificacion = "planificacion"
	PhaseEjecucion     = "ejecucion"
	PhaseControl       = "control"
	PhaseCierre        = "cierre"
)

// Phases is the ordered phase enumeration used for report columns and the
// timesheet editor.
var Phases = []string{PhaseInicio, PhasePlanificacion, PhaseEjecucion, PhaseControl, PhaseCierre}

var phaseLabels = map[string]string{
	PhaseInicio:        "Inicio",
	PhasePlanificacion: "Planificación",
	PhaseEjecucion:     "Ejecución",
	PhaseControl:       "Control",
	PhaseCierre:        "Cierre",
}

// TimeEntry is one booking of hours by a user on a project for a day and phase.
// Date is normalized to midnight UTC.
type TimeEntry struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	UserID      uint      `gorm:"not null;index:idx_time_entry_cell" json:"user_id"`
	ProjectID   uint      `gorm:"not null;index:idx_time_entry_cell" json:"project_id"`
	MilestoneID *uint     `gorm:"index" json:"milestone_id,omitempty"`
	Date        time.Time `gorm:"type:date;not null;index:idx_time_entry_cell;index:idx_time_entry_date" json:"date"`
	Phase       string    `gorm:"not null;size:20" json:"phase"`
	Hours       float64   `gorm:"type:decimal(5,2);not null" json:"hours"`
	Description string    `gorm:"type:text" json:"description"`

	// Relationships
	User      *User             `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Project   *Project          `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	Milestone *ProjectMilestone `gorm:"foreignKey:MilestoneID" json:"milestone,omitempty"`
}

// TableName specifies the table name for TimeEntry model
func (TimeEntry) TableName() string {
	return "time_entries"
}

// IsValidPhase checks the time entry phase enum
func IsValidPhase(phase string) bool {
	_, ok := phaseLabels[phase]
	return ok
}

// PhaseLabel returns the display label of a phase, or the phase itself when unknown
func PhaseLabel(phase string) string {
	if label, ok := phaseLabels[phase]; ok {
		return label
	}
	return phase
}

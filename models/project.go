package models

import (
	"time"
)

// Project categories
const (
	ProjectCategory1 = "Categoria1"
	ProjectCategory2 = "Categoria2"
	ProjectCategory3 = "Categoria3"
	ProjectCategory4 = "Categoria4"
)

// Project states
const (
	ProjectStateActive    = "Activo"
	ProjectStateInactive  = "Inactivo"
	ProjectStateCompleted = "Completado"
	ProjectStateSuspended = "Suspendido"
)

// Project lifecycle phases (display form, distinct from time entry phases)
const (
	ProjectPhaseInicio        = "Inicio"
	ProjectPhasePlanificacion = "Planificación"
	ProjectPhaseEjecucion     = "Ejecución"
	ProjectPhaseControl       = "Control"
	ProjectPhaseCierre        = "Cierre"
)

// Incidence reasons
const (
	ReasonWeather        = "Clima"
	ReasonMaterials      = "Falta de materiales"
	ReasonTechnical      = "Problemas técnicos"
	ReasonAdministrative = "Problemas administrativos"
	ReasonOther          = "Otros"
)

// Risk states
const (
	RiskHigh       = "Alto"
	RiskMedium     = "Medio"
	RiskLow        = "Bajo"
	RiskControlled = "Controlado"
)

var (
	ProjectCategories = []string{ProjectCategory1, ProjectCategory2, ProjectCategory3, ProjectCategory4}
	ProjectStates     = []string{ProjectStateActive, ProjectStateInactive, ProjectStateCompleted, ProjectStateSuspended}
	ProjectPhases     = []string{ProjectPhaseInicio, ProjectPhasePlanificacion, ProjectPhaseEjecucion, ProjectPhaseControl, ProjectPhaseCierre}
	IncidenceReasons  = []string{ReasonWeather, ReasonMaterials, ReasonTechnical, ReasonAdministrative, ReasonOther}
	RiskStates        = []string{RiskHigh, RiskMedium, RiskLow, RiskControlled}
)

// Project is the unit time is booked against. Percentages (RealProgress,
// Billing) are stored on a 0-100 scale.
type Project struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name           string `gorm:"not null;index" json:"name"`
	Code           string `gorm:"uniqueIndex;not null" json:"code"`
	EntityID       uint   `gorm:"not null;index" json:"entity_id"`
	BusinessLineID *uint  `gorm:"index" json:"business_line_id,omitempty"`

	Category string `gorm:"index" json:"category,omitempty"`
	State    string `gorm:"index" json:"state,omitempty"`
	Phase    string `gorm:"index" json:"phase,omitempty"`
	Validity string `json:"validity,omitempty"`

	StartDate        *time.Time `gorm:"type:date" json:"start_date,omitempty"`
	EndDate          *time.Time `gorm:"type:date" json:"end_date,omitempty"`
	EndDateProjected *time.Time `gorm:"type:date" json:"end_date_projected,omitempty"`
	EndDateReal      *time.Time `gorm:"type:date" json:"end_date_real,omitempty"`

	RealProgress *float64 `json:"real_progress,omitempty"`
	Billing      *float64 `json:"billing,omitempty"`

	Description      string `gorm:"type:text" json:"description,omitempty"`
	Comments         string `gorm:"type:text" json:"comments,omitempty"`
	ReasonIncidence  string `json:"reason_incidence,omitempty"`
	StateRisk        string `json:"state_risk,omitempty"`
	DescriptionRisk  string `gorm:"type:text" json:"description_risk,omitempty"`
	TypeRisk         string `json:"type_risk,omitempty"`
	Action           string `gorm:"type:text" json:"action,omitempty"`
	ProjectManager   string `json:"project_manager,omitempty"`
	BusinessManager  string `json:"business_manager,omitempty"`
	ContractReceived bool   `gorm:"not null;default:false" json:"contract_received"`

	CreatedBy *uint `json:"created_by,omitempty"`
	UpdatedBy *uint `json:"updated_by,omitempty"`

	// Relationships
	Entity            *Entity            `gorm:"foreignKey:EntityID" json:"entity,omitempty"`
	BusinessLine      *BusinessLine      `gorm:"foreignKey:BusinessLineID" json:"business_line,omitempty"`
	Users             []User             `gorm:"many2many:project_user;" json:"users,omitempty"`
	Milestones        []ProjectMilestone `gorm:"foreignKey:ProjectID" json:"milestones,omitempty"`
	BillingMilestones []BillingMilestone `gorm:"foreignKey:ProjectID" json:"billing_milestones,omitempty"`
	TimeEntries       []TimeEntry        `gorm:"foreignKey:ProjectID" json:"-"`
}

// TableName specifies the table name for Project model
func (Project) TableName() string {
	return "projects"
}

// IsValidProjectCategory checks the category enum
func IsValidProjectCategory(v string) bool { return contains(ProjectCategories, v) }

// IsValidProjectState checks the state enum
func IsValidProjectState(v string) bool { return contains(ProjectStates, v) }

// IsValidProjectPhase checks the project phase enum
func IsValidProjectPhase(v string) bool { return contains(ProjectPhases, v) }

// IsValidIncidenceReason checks the incidence reason enum
func IsValidIncidenceReason(v string) bool { return contains(IncidenceReasons, v) }

// IsValidRiskState checks the risk state enum
func IsValidRiskState(v string) bool { return contains(RiskStates, v) }

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

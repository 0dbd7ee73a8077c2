package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Billing milestone statuses
const (
	BillingStatusPending  = "Pendiente"
	BillingStatusInvoiced = "Facturado"
	BillingStatusPaid     = "Cobrado"
)

var BillingStatuses = []string{BillingStatusPending, BillingStatusInvoiced, BillingStatusPaid}

// BillingMilestone is an invoicing checkpoint of a project
type BillingMilestone struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	ProjectID   uint   `gorm:"not null;index" json:"project_id"`
	Description string `gorm:"type:text;not null" json:"description"`

	PlannedDate *time.Time      `gorm:"type:date" json:"planned_date,omitempty"`
	RealDate    *time.Time      `gorm:"type:date" json:"real_date,omitempty"`
	Progress    float64         `gorm:"not null;default:0" json:"progress"`
	Amount      decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"amount"`
	Status      string          `gorm:"not null;default:Pendiente" json:"status"`
	Comments    string          `gorm:"type:text" json:"comments,omitempty"`
	SortOrder   int             `gorm:"not null;default:0" json:"order"`

	Project *Project `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
}

// TableName specifies the table name for BillingMilestone model
func (BillingMilestone) TableName() string {
	return "billing_milestones"
}

// IsInvoiced reports whether the milestone has been invoiced (or already collected)
func (b *BillingMilestone) IsInvoiced() bool {
	return b.Status == BillingStatusInvoiced || b.Status == BillingStatusPaid
}

// IsValidBillingStatus checks the billing status enum
func IsValidBillingStatus(v string) bool { return contains(BillingStatuses, v) }

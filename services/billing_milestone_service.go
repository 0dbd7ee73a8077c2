package services

import (
	"errors"
	"fmt"

	"timesheet_app_go/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Billing milestone errors
var (
	ErrBillingMilestoneNotFound = errors.New("billing milestone not found")
)

// BillingMilestoneInput is the payload to create or update a billing milestone
type BillingMilestoneInput struct {
	Description string          `json:"description"`
	PlannedDate string          `json:"planned_date"`
	RealDate    string          `json:"real_date"`
	Progress    *float64        `json:"progress"`
	Amount      decimal.Decimal `json:"amount"`
	Status      string          `json:"status"`
	Comments    string          `json:"comments"`
}

func (in BillingMilestoneInput) apply(b *models.BillingMilestone) error {
	v := ValidationErrors{}
	v.requireString("description", in.Description, 0)
	planned := v.optionalDate("planned_date", in.PlannedDate)
	realDate := v.optionalDate("real_date", in.RealDate)
	v.percent("progress", in.Progress)
	v.oneOf("status", in.Status, models.IsValidBillingStatus)
	if in.Amount.IsNegative() {
		v.Add("amount", "The amount field must be at least 0.")
	}
	if err := v.Err(); err != nil {
		return err
	}

	b.Description = SanitizeText(in.Description)
	b.PlannedDate = planned
	b.RealDate = realDate
	b.Progress = 0
	if in.Progress != nil {
		b.Progress = *in.Progress
	}
	b.Amount = in.Amount.Round(2)
	b.Status = in.Status
	if b.Status == "" {
		b.Status = models.BillingStatusPending
	}
	b.Comments = SanitizeText(in.Comments)
	return nil
}

// GetBillingMilestones retrieves a project's billing milestones in order
func GetBillingMilestones(db *gorm.DB, projectID uint) ([]models.BillingMilestone, error) {
	var milestones []models.BillingMilestone
	err := db.Where("project_id = ?", projectID).
		Order("sort_order ASC, id ASC").
		Find(&milestones).Error
	return milestones, err
}

// GetBillingMilestoneByID retrieves a billing milestone of a project
func GetBillingMilestoneByID(db *gorm.DB, projectID, id uint) (*models.BillingMilestone, error) {
	var milestone models.BillingMilestone
	if err := db.Where("project_id = ?", projectID).First(&milestone, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBillingMilestoneNotFound
		}
		return nil, err
	}
	return &milestone, nil
}

// CreateBillingMilestone validates and appends a billing milestone to a project
func CreateBillingMilestone(db *gorm.DB, projectID uint, in BillingMilestoneInput) (*models.BillingMilestone, error) {
	milestone := &models.BillingMilestone{ProjectID: projectID}
	if err := in.apply(milestone); err != nil {
		return nil, err
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		var maxOrder int
		if err := tx.Model(&models.BillingMilestone{}).
			Where("project_id = ?", projectID).
			Select("COALESCE(MAX(sort_order), 0)").
			Scan(&maxOrder).Error; err != nil {
			return err
		}
		milestone.SortOrder = maxOrder + 1
		return tx.Create(milestone).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create billing milestone: %w", err)
	}
	return milestone, nil
}

// UpdateBillingMilestone validates and saves new values for a billing milestone
func UpdateBillingMilestone(db *gorm.DB, milestone *models.BillingMilestone, in BillingMilestoneInput) error {
	if err := in.apply(milestone); err != nil {
		return err
	}
	return db.Save(milestone).Error
}

// DeleteBillingMilestone removes a billing milestone
func DeleteBillingMilestone(db *gorm.DB, milestone *models.BillingMilestone) error {
	return db.Delete(milestone).Error
}

// BillingSummary totals a project's billing milestone amounts
type BillingSummary struct {
	Count    int             `json:"count"`
	Total    decimal.Decimal `json:"total"`
	Invoiced decimal.Decimal `json:"invoiced"`
	Pending  decimal.Decimal `json:"pending"`
}

// GetBillingSummary sums the amounts of a project's billing milestones. Invoiced
// covers invoiced and collected milestones; pending is the remainder.
func GetBillingSummary(db *gorm.DB, projectID uint) (*BillingSummary, error) {
	milestones, err := GetBillingMilestones(db, projectID)
	if err != nil {
		return nil, err
	}

	summary := &BillingSummary{Count: len(milestones), Total: decimal.Zero, Invoiced: decimal.Zero}
	for i := range milestones {
		summary.Total = summary.Total.Add(milestones[i].Amount)
		if milestones[i].IsInvoiced() {
			summary.Invoiced = summary.Invoiced.Add(milestones[i].Amount)
		}
	}
	summary.Pending = summary.Total.Sub(summary.Invoiced)
	return summary, nil
}

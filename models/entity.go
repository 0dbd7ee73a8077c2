package models

import (
	"time"
)

// Entity is a client organisation that owns projects
type Entity struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	EntityType    string `gorm:"index" json:"entity_type"`
	BusinessName  string `gorm:"not null;index" json:"business_name"`
	TradeName     string `json:"trade_name"`
	TaxID         string `gorm:"index" json:"tax_id"`
	BusinessGroup string `json:"business_group"`

	BillingEmail            string `json:"billing_email"`
	CopyEmail               string `json:"copy_email"`
	CreditDays              int    `gorm:"not null;default:0" json:"credit_days"`
	ReferenceRecommendation string `gorm:"type:text" json:"reference_recommendation"`

	AccountNumber           string `json:"account_number"`
	InterbankAccountNumber  string `json:"interbank_account_number"`
	DetraccionAccountNumber string `json:"detraccion_account_number"`

	CreatedBy *uint `json:"created_by,omitempty"`
	UpdatedBy *uint `json:"updated_by,omitempty"`

	Projects []Project `gorm:"foreignKey:EntityID" json:"projects,omitempty"`
}

func (Entity) TableName() string {
	return "entities"
}

package models

import "time"

// BusinessLine groups projects for the business-line hour report
type BusinessLine struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Name        string `gorm:"uniqueIndex;not null" json:"name"`
	Description string `gorm:"type:text" json:"description,omitempty"`
}

func (BusinessLine) TableName() string {
	return "business_lines"
}

package services

import (
	"encoding/json"
	"time"

	"timesheet_app_go/logger"
	"timesheet_app_go/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AuditContext contains contextual information for audit logging
type AuditContext struct {
	UserID    uint
	UserName  string
	UserRole  string
	IPAddress string
	UserAgent string
}

// AuditEvent describes one audited operation on a resource
type AuditEvent struct {
	Action       models.AuditAction
	ResourceType string
	ResourceID   string
	ResourceName string
	Description  string
	OldValues    interface{}
	NewValues    interface{}
}

// LogAuditEvent creates a new audit log entry asynchronously
func LogAuditEvent(db *gorm.DB, ctx AuditContext, event AuditEvent) {
	// Run in goroutine to avoid blocking the request
	go func() {
		if err := RecordAuditEvent(db, ctx, event); err != nil {
			logger.Log.Error("Failed to create audit log",
				zap.String("resource_type", event.ResourceType),
				zap.String("resource_id", event.ResourceID),
				zap.Error(err),
			)
		}
	}()
}

// RecordAuditEvent writes an audit log entry and waits for the insert
func RecordAuditEvent(db *gorm.DB, ctx AuditContext, event AuditEvent) error {
	auditLog := models.AuditLog{
		UserID:       uintPtrIfNotZero(ctx.UserID),
		UserName:     ctx.UserName,
		UserRole:     ctx.UserRole,
		ResourceType: event.ResourceType,
		ResourceID:   event.ResourceID,
		ResourceName: event.ResourceName,
		Action:       event.Action,
		Description:  event.Description,
		OldValues:    marshalAuditValues(event.OldValues),
		NewValues:    marshalAuditValues(event.NewValues),
		IPAddress:    ctx.IPAddress,
		UserAgent:    ctx.UserAgent,
	}
	return db.Create(&auditLog).Error
}

func marshalAuditValues(v interface{}) string {
	if v == nil {
		return ""
	}
	bytes, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(bytes)
}

// uintPtrIfNotZero returns a pointer to the id if not zero, nil otherwise
func uintPtrIfNotZero(id uint) *uint {
	if id == 0 {
		return nil
	}
	return &id
}

// GetResourceAuditHistory retrieves the audit history for a specific resource
func GetResourceAuditHistory(db *gorm.DB, resourceType, resourceID string) ([]models.AuditLog, error) {
	var logs []models.AuditLog
	err := db.Where("resource_type = ? AND resource_id = ?", resourceType, resourceID).
		Order("created_at DESC").
		Find(&logs).Error
	return logs, err
}

// AuditLogFilters contains filter options for audit log queries
type AuditLogFilters struct {
	UserID       uint
	ResourceType string
	Action       string
	DateFrom     time.Time
	DateTo       time.Time
	SearchQuery  string
}

// GetAuditLogs retrieves a filtered page of audit logs, newest first
func GetAuditLogs(db *gorm.DB, filters AuditLogFilters, page Pagination) ([]models.AuditLog, int64, error) {
	query := db.Model(&models.AuditLog{})

	if filters.UserID != 0 {
		query = query.Where("user_id = ?", filters.UserID)
	}
	if filters.ResourceType != "" {
		query = query.Where("resource_type = ?", filters.ResourceType)
	}
	if filters.Action != "" {
		query = query.Where("action = ?", filters.Action)
	}
	if !filters.DateFrom.IsZero() {
		query = query.Where("created_at >= ?", filters.DateFrom)
	}
	if !filters.DateTo.IsZero() {
		query = query.Where("created_at <= ?", filters.DateTo)
	}
	if filters.SearchQuery != "" {
		searchPattern := "%" + filters.SearchQuery + "%"
		query = query.Where(
			"resource_name LIKE ? OR description LIKE ? OR user_name LIKE ?",
			searchPattern, searchPattern, searchPattern,
		)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var logs []models.AuditLog
	err := query.Order("created_at DESC").
		Offset(page.Offset()).
		Limit(page.PerPage).
		Find(&logs).Error

	return logs, total, err
}

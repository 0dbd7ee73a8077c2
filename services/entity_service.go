package services

import (
	"errors"

	"timesheet_app_go/models"

	"gorm.io/gorm"
)

// Entity-related errors
var (
	ErrEntityNotFound = errors.New("entity not found")
)

var entitySortFields = map[string]string{
	"id":             "entities.id",
	"entity_type":    "entities.entity_type",
	"business_name":  "entities.business_name",
	"trade_name":     "entities.trade_name",
	"tax_id":         "entities.tax_id",
	"business_group": "entities.business_group",
	"created_at":     "entities.created_at",
	"updated_at":     "entities.updated_at",
}

// EntityFilters contains filter options for entity listings
type EntityFilters struct {
	Search        string
	EntityType    string
	BusinessGroup string
	TaxID         string
	SortField     string
	SortDirection string
}

// ListEntities retrieves a filtered, sorted page of entities
func ListEntities(db *gorm.DB, filters EntityFilters, page Pagination) ([]models.Entity, int64, error) {
	query := db.Model(&models.Entity{})
	if filters.EntityType != "" {
		query = query.Where("entity_type = ?", filters.EntityType)
	}
	if filters.BusinessGroup != "" {
		query = query.Where("business_group LIKE ?", "%"+filters.BusinessGroup+"%")
	}
	if filters.TaxID != "" {
		query = query.Where("tax_id LIKE ?", "%"+filters.TaxID+"%")
	}
	if filters.Search != "" {
		pattern := "%" + filters.Search + "%"
		query = query.Where("business_name LIKE ? OR trade_name LIKE ? OR tax_id LIKE ? OR business_group LIKE ?",
			pattern, pattern, pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var entities []models.Entity
	err := query.
		Order(sortClause(entitySortFields, filters.SortField, filters.SortDirection, "business_name")).
		Offset(page.Offset()).
		Limit(page.PerPage).
		Find(&entities).Error
	return entities, total, err
}

// GetEntityByID retrieves an entity with its projects
func GetEntityByID(db *gorm.DB, id uint) (*models.Entity, error) {
	var entity models.Entity
	err := db.Preload("Projects", func(db *gorm.DB) *gorm.DB { return db.Order("projects.name ASC") }).
		First(&entity, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEntityNotFound
		}
		return nil, err
	}
	return &entity, nil
}

// EntityStatistics summarizes entities by type and business group
type EntityStatistics struct {
	TotalEntities           int64            `json:"total_entities"`
	EntitiesWithProjects    int64            `json:"entities_with_projects"`
	EntitiesByType          map[string]int64 `json:"entities_by_type"`
	EntitiesByBusinessGroup map[string]int64 `json:"entities_by_business_group"`
}

// topBusinessGroups caps the business groups reported in the statistics
const topBusinessGroups = 10

// GetEntityStatistics counts entities overall, per type and for the largest business groups
func GetEntityStatistics(db *gorm.DB) (*EntityStatistics, error) {
	stats := &EntityStatistics{}
	if err := db.Model(&models.Entity{}).Count(&stats.TotalEntities).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&models.Project{}).Distinct("entity_id").Count(&stats.EntitiesWithProjects).Error; err != nil {
		return nil, err
	}

	var err error
	if stats.EntitiesByType, err = countBy(db, &models.Entity{}, "entity_type"); err != nil {
		return nil, err
	}

	var groups []struct {
		Value string
		Count int64
	}
	if err := db.Model(&models.Entity{}).
		Select("business_group AS value, COUNT(*) AS count").
		Where("business_group IS NOT NULL AND business_group <> ''").
		Group("business_group").
		Order("count DESC, business_group ASC").
		Limit(topBusinessGroups).
		Scan(&groups).Error; err != nil {
		return nil, err
	}
	stats.EntitiesByBusinessGroup = make(map[string]int64, len(groups))
	for _, g := range groups {
		stats.EntitiesByBusinessGroup[g.Value] = g.Count
	}
	return stats, nil
}

// GetEntityTypes lists the distinct entity types in use, sorted
func GetEntityTypes(db *gorm.DB) ([]string, error) {
	return distinctValues(db, "entity_type")
}

// GetBusinessGroups lists the distinct business groups in use, sorted
func GetBusinessGroups(db *gorm.DB) ([]string, error) {
	return distinctValues(db, "business_group")
}

func distinctValues(db *gorm.DB, column string) ([]string, error) {
	values := []string{}
	err := db.Model(&models.Entity{}).
		Where(column+" IS NOT NULL AND "+column+" <> ''").
		Distinct(column).
		Order(column+" ASC").
		Pluck(column, &values).Error
	return values, err
}

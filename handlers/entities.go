package handlers

import (
	"net/http"

	"timesheet_app_go/db"
	"timesheet_app_go/services"

	"github.com/labstack/echo/v4"
)

// GetEntities returns a filtered, paginated list of client entities
func GetEntities(c echo.Context) error {
	filters := services.EntityFilters{
		Search:        c.QueryParam("search"),
		EntityType:    c.QueryParam("entity_type"),
		BusinessGroup: c.QueryParam("business_group"),
		TaxID:         c.QueryParam("tax_id"),
		SortField:     c.QueryParam("sort_field"),
		SortDirection: c.QueryParam("sort_direction"),
	}

	page := queryPagination(c, services.DefaultPerPage)
	entities, total, err := services.ListEntities(db.DB, filters, page)
	if err != nil {
		return handleServiceError(c, err, "fetch entities")
	}
	return c.JSON(http.StatusOK, ListResponse{Data: entities, Meta: page.Meta(total)})
}

// GetEntity returns an entity with its projects
func GetEntity(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	entity, err := services.GetEntityByID(db.DB, id)
	if err != nil {
		return handleServiceError(c, err, "fetch entity")
	}
	return c.JSON(http.StatusOK, entity)
}

// GetEntityStatistics returns entity counts by type and business group
func GetEntityStatistics(c echo.Context) error {
	stats, err := services.GetEntityStatistics(db.DB)
	if err != nil {
		return handleServiceError(c, err, "fetch entity statistics")
	}
	return c.JSON(http.StatusOK, stats)
}

// GetEntityTypes lists the entity types in use
func GetEntityTypes(c echo.Context) error {
	types, err := services.GetEntityTypes(db.DB)
	if err != nil {
		return handleServiceError(c, err, "fetch entity types")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"data": types})
}

// GetBusinessGroups lists the business groups in use
func GetBusinessGroups(c echo.Context) error {
	groups, err := services.GetBusinessGroups(db.DB)
	if err != nil {
		return handleServiceError(c, err, "fetch business groups")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"data": groups})
}

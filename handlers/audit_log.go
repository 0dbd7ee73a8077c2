package handlers

import (
	"net/http"
	"time"

	"timesheet_app_go/db"
	"timesheet_app_go/services"

	"github.com/labstack/echo/v4"
)

// GetAuditLogsHandler returns filtered and paginated audit logs, newest first
func GetAuditLogsHandler(c echo.Context) error {
	page := queryPagination(c, 20)

	filters := services.AuditLogFilters{
		UserID:       queryUint(c, "user_id"),
		ResourceType: c.QueryParam("resource_type"),
		Action:       c.QueryParam("action"),
		SearchQuery:  c.QueryParam("search"),
	}

	if dateFrom := c.QueryParam("date_from"); dateFrom != "" {
		if t, err := time.Parse("2006-01-02", dateFrom); err == nil {
			filters.DateFrom = t
		}
	}
	if dateTo := c.QueryParam("date_to"); dateTo != "" {
		if t, err := time.Parse("2006-01-02", dateTo); err == nil {
			filters.DateTo = t.Add(24*time.Hour - time.Second) // End of day
		}
	}

	logs, total, err := services.GetAuditLogs(db.DB, filters, page)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to fetch audit logs")
	}
	return c.JSON(http.StatusOK, ListResponse{Data: logs, Meta: page.Meta(total)})
}

// GetResourceHistoryHandler returns the audit history of one resource
func GetResourceHistoryHandler(c echo.Context) error {
	logs, err := services.GetResourceAuditHistory(db.DB, c.Param("type"), c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to fetch resource history")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"data": logs})
}

package handlers

import (
	"net/http"
	"strconv"

	"timesheet_app_go/db"
	"timesheet_app_go/services"

	"github.com/labstack/echo/v4"
)

// GetUsers returns a filtered, paginated list of users
func GetUsers(c echo.Context) error {
	filters := services.UserFilters{
		Search:        c.QueryParam("search"),
		Role:          c.QueryParam("role"),
		SortField:     c.QueryParam("sort_field"),
		SortDirection: c.QueryParam("sort_direction"),
	}
	if raw := c.QueryParam("active"); raw != "" {
		active, err := strconv.ParseBool(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid active parameter")
		}
		filters.Active = &active
	}

	page := queryPagination(c, services.DefaultPerPage)
	users, total, err := services.ListUsers(db.DB, filters, page)
	if err != nil {
		return handleServiceError(c, err, "fetch users")
	}
	return c.JSON(http.StatusOK, ListResponse{Data: users, Meta: page.Meta(total)})
}

// GetUser returns a user with their assigned projects
func GetUser(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}
	user, err := services.GetUserByID(db.DB, id)
	if err != nil {
		return handleServiceError(c, err, "fetch user")
	}
	return c.JSON(http.StatusOK, user)
}

// GetUserStatistics returns user counts by role and participation
func GetUserStatistics(c echo.Context) error {
	stats, err := services.GetUserStatistics(db.DB)
	if err != nil {
		return handleServiceError(c, err, "fetch user statistics")
	}
	return c.JSON(http.StatusOK, stats)
}

// GetUsersWithTimeEntries lists users with their booked hours, optionally
// restricted to ?project_id= and ?start_date=&end_date=
func GetUsersWithTimeEntries(c echo.Context) error {
	filter := services.UserHoursFilter{ProjectID: queryUint(c, "project_id")}
	r, ok, err := queryRange(c, "start_date", "end_date")
	if err != nil {
		return err
	}
	if ok {
		filter.Range = &r
	}

	users, err := services.ListUsersWithHours(db.DB, filter)
	if err != nil {
		return handleServiceError(c, err, "fetch users with hours")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"data": users})
}

// GetUserHoursStatistics ranks users by booked hours
func GetUserHoursStatistics(c echo.Context) error {
	r, ok, err := queryRange(c, "start_date", "end_date")
	if err != nil {
		return err
	}
	var rp *services.DateRange
	if ok {
		rp = &r
	}

	stats, err := services.GetUserHoursStatistics(db.DB, rp)
	if err != nil {
		return handleServiceError(c, err, "fetch user hours statistics")
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"data": stats})
}

package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"timesheet_app_go/db"
	"timesheet_app_go/middleware"
	"timesheet_app_go/models"
	"timesheet_app_go/services"

	"github.com/labstack/echo/v4"
)

// CellRequest is the body of PUT /api/timesheet/cell
type CellRequest struct {
	ProjectID uint   `json:"project_id"`
	Date      string `json:"date"`
	UserID    uint   `json:"user_id"`
	services.CellSubmission
}

// timesheetUser resolves whose timesheet is edited. Managers and admins may
// pass another user's id.
func timesheetUser(c echo.Context, requested uint) (uint, error) {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		return 0, middleware.ErrUnauthenticated
	}
	if requested == 0 || requested == user.ID {
		return user.ID, nil
	}
	if !middleware.CanManageOthers(c) {
		return 0, errForbiddenEntry
	}
	return requested, nil
}

// GetTimesheet returns the month grid of the current user, ?month=YYYY-MM
func GetTimesheet(c echo.Context) error {
	userID, err := timesheetUser(c, queryUint(c, "user_id"))
	if err != nil {
		return err
	}

	month := time.Now().UTC()
	if raw := c.QueryParam("month"); raw != "" {
		if month, err = services.ParseMonth(raw); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, capitalize(err.Error()))
		}
	}

	grid, err := services.GetTimesheetMonth(c.Request().Context(), db.DB, userID, month)
	if err != nil {
		return handleServiceError(c, err, "fetch timesheet")
	}
	return c.JSON(http.StatusOK, grid)
}

// GetTimesheetCell selects a cell and returns its prefilled form
func GetTimesheetCell(c echo.Context) error {
	userID, err := timesheetUser(c, queryUint(c, "user_id"))
	if err != nil {
		return err
	}
	projectID := queryUint(c, "project_id")
	date, err := queryDate(c, "date")
	if err != nil {
		return err
	}
	if projectID == 0 || date == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "project_id and date are required")
	}

	form, err := services.NewEditor(db.DB, userID).Select(projectID, *date)
	if err != nil {
		return handleServiceError(c, err, "load timesheet cell")
	}
	return c.JSON(http.StatusOK, form)
}

// SaveTimesheetCell replaces the entries of a cell with the submitted phase hours
func SaveTimesheetCell(c echo.Context) error {
	var req CellRequest
	if err := bindJSON(c, &req); err != nil {
		return err
	}
	userID, err := timesheetUser(c, req.UserID)
	if err != nil {
		return err
	}

	v := services.ValidationErrors{}
	if req.ProjectID == 0 {
		v.Add("project_id", "The project_id field is required.")
	}
	date, err := services.ParseDate(req.Date)
	if err != nil {
		v.Add("date", "The date field must be a valid date (YYYY-MM-DD).")
	}
	if len(v) > 0 {
		return validationFailed(c, v)
	}

	editor := services.NewEditor(db.DB, userID)
	if _, err := editor.Select(req.ProjectID, date); err != nil {
		return handleServiceError(c, err, "load timesheet cell")
	}
	entries, err := editor.Submit(req.CellSubmission)
	if err != nil {
		return handleServiceError(c, err, "save timesheet cell")
	}

	var total float64
	for _, e := range entries {
		total += e.Hours
	}
	services.LogAuditEvent(db.DB, middleware.GetAuditContext(c), services.AuditEvent{
		Action:       models.AuditActionSubmit,
		ResourceType: "Timesheet",
		ResourceID:   fmt.Sprintf("%d/%d/%s", userID, req.ProjectID, services.FormatDate(date)),
		ResourceName: "user " + strconv.FormatUint(uint64(userID), 10),
		Description:  fmt.Sprintf("Cell replaced with %d entries, %.2f hours", len(entries), total),
		NewValues:    req.CellSubmission,
	})

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "Timesheet saved.",
		"data":    entries,
	})
}

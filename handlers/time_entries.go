package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"

	"timesheet_app_go/db"
	"timesheet_app_go/logger"
	"timesheet_app_go/metrics"
	"timesheet_app_go/middleware"
	"timesheet_app_go/models"
	"timesheet_app_go/services"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ImportResponse summarizes an import run
type ImportResponse struct {
	Message     string   `json:"message"`
	TotalRows   int      `json:"total_rows"`
	SuccessRows int      `json:"success_rows"`
	ErrorRows   int      `json:"error_rows"`
	Errors      []string `json:"errors"`
}

var errForbiddenEntry = echo.NewHTTPError(http.StatusForbidden, "You can only manage your own time entries")

func timeEntryResourceID(e *models.TimeEntry) string {
	return strconv.FormatUint(uint64(e.ID), 10)
}

// ownsOrManages reports whether the current user may write time for userID
func ownsOrManages(c echo.Context, userID uint) bool {
	user := middleware.GetCurrentUser(c)
	if user == nil {
		return false
	}
	return user.ID == userID || middleware.CanManageOthers(c)
}

func loadTimeEntry(c echo.Context) (*models.TimeEntry, error) {
	id, err := paramID(c, "id")
	if err != nil {
		return nil, err
	}
	entry, err := services.GetTimeEntryByID(db.DB, id)
	if err != nil {
		return nil, handleServiceError(c, err, "fetch time entry")
	}
	return entry, nil
}

// GetTimeEntries returns time entries filtered by date, user, project or range, newest first
func GetTimeEntries(c echo.Context) error {
	filters := services.TimeEntryFilters{
		UserID:    queryUint(c, "user_id"),
		ProjectID: queryUint(c, "project_id"),
	}

	var err error
	if filters.Date, err = queryDate(c, "date"); err != nil {
		return err
	}
	r, ok, err := queryRange(c, "start_date", "end_date")
	if err != nil {
		return err
	}
	if ok {
		filters.Range = &r
	}

	page := queryPagination(c, services.DefaultPerPage)
	entries, total, err := services.ListTimeEntries(db.DB, filters, page)
	if err != nil {
		return handleServiceError(c, err, "fetch time entries")
	}
	return c.JSON(http.StatusOK, ListResponse{Data: entries, Meta: page.Meta(total)})
}

// GetTimeEntry returns one time entry
func GetTimeEntry(c echo.Context) error {
	entry, err := loadTimeEntry(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, entry)
}

// CreateTimeEntry books hours. The user defaults to the caller; booking for
// someone else requires a manager or admin.
func CreateTimeEntry(c echo.Context) error {
	var in services.TimeEntryInput
	if err := bindJSON(c, &in); err != nil {
		return err
	}
	if in.UserID == 0 {
		if user := middleware.GetCurrentUser(c); user != nil {
			in.UserID = user.ID
		}
	}
	if !ownsOrManages(c, in.UserID) {
		return errForbiddenEntry
	}

	entry, err := services.CreateTimeEntry(db.DB, in)
	if err != nil {
		return handleServiceError(c, err, "create time entry")
	}

	services.LogAuditEvent(db.DB, middleware.GetAuditContext(c), services.AuditEvent{
		Action:       models.AuditActionCreate,
		ResourceType: "TimeEntry",
		ResourceID:   timeEntryResourceID(entry),
		Description:  fmt.Sprintf("%.2f hours on %s", entry.Hours, services.FormatDate(entry.Date)),
		NewValues:    entry,
	})
	return c.JSON(http.StatusCreated, entry)
}

// UpdateTimeEntry saves changes to a time entry
func UpdateTimeEntry(c echo.Context) error {
	entry, err := loadTimeEntry(c)
	if err != nil {
		return err
	}
	if !ownsOrManages(c, entry.UserID) {
		return errForbiddenEntry
	}
	old := *entry

	var in services.TimeEntryInput
	if err := bindJSON(c, &in); err != nil {
		return err
	}
	if in.UserID == 0 {
		in.UserID = entry.UserID
	}
	if !ownsOrManages(c, in.UserID) {
		return errForbiddenEntry
	}

	if err := services.UpdateTimeEntry(db.DB, entry, in); err != nil {
		return handleServiceError(c, err, "update time entry")
	}

	services.LogAuditEvent(db.DB, middleware.GetAuditContext(c), services.AuditEvent{
		Action:       models.AuditActionUpdate,
		ResourceType: "TimeEntry",
		ResourceID:   timeEntryResourceID(entry),
		Description:  "Time entry updated",
		OldValues:    old,
		NewValues:    entry,
	})
	return c.JSON(http.StatusOK, entry)
}

// DeleteTimeEntry removes a time entry
func DeleteTimeEntry(c echo.Context) error {
	entry, err := loadTimeEntry(c)
	if err != nil {
		return err
	}
	if !ownsOrManages(c, entry.UserID) {
		return errForbiddenEntry
	}
	if err := services.DeleteTimeEntry(db.DB, entry); err != nil {
		return handleServiceError(c, err, "delete time entry")
	}

	services.LogAuditEvent(db.DB, middleware.GetAuditContext(c), services.AuditEvent{
		Action:       models.AuditActionDelete,
		ResourceType: "TimeEntry",
		ResourceID:   timeEntryResourceID(entry),
		Description:  "Time entry deleted",
		OldValues:    entry,
	})
	return c.NoContent(http.StatusNoContent)
}

// ImportTimeEntriesHandler loads time entries from an uploaded CSV file. Valid
// rows are inserted in one transaction; invalid rows are reported.
func ImportTimeEntriesHandler(c echo.Context) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return validationFailed(c, services.ValidationErrors{"file": {"The file field is required."}})
	}
	if err := services.ValidateImportUpload(fileHeader); err != nil {
		return validationFailed(c, services.ValidationErrors{"file": {capitalize(err.Error()) + "."}})
	}

	file, err := fileHeader.Open()
	if err != nil {
		return handleServiceError(c, err, "open import file")
	}
	defer file.Close()

	ctx := c.Request().Context()
	result, err := services.ImportTimeEntries(ctx, db.DB, file)
	if err != nil {
		var headerErr *services.HeaderError
		switch {
		case errors.As(err, &headerErr):
			return validationFailed(c, services.ValidationErrors{"file": {capitalize(headerErr.Error()) + "."}})
		case errors.Is(err, services.ErrEmptyImport):
			return validationFailed(c, services.ValidationErrors{"file": {"The import file is empty."}})
		case errors.Is(err, services.ErrImportAborted):
			logger.Log.Error("Import rolled back", zap.String("file", fileHeader.Filename), zap.Error(err))
			return echo.NewHTTPError(http.StatusInternalServerError, capitalize(err.Error())+". No time entries were imported.")
		}
		return handleServiceError(c, err, "import time entries")
	}

	metrics.RecordImport(result.SuccessRows, result.ErrorRows)

	auditCtx := middleware.GetAuditContext(c)
	event := services.AuditEvent{
		Action:       models.AuditActionImport,
		ResourceType: "TimeEntry",
		ResourceID:   "import",
		ResourceName: fileHeader.Filename,
		Description:  fmt.Sprintf("Imported %d of %d rows (%d with errors)", result.SuccessRows, result.TotalRows, result.ErrorRows),
	}
	if key := archiveImportFile(c, auditCtx.UserID, fileHeader); key != "" {
		event.NewValues = map[string]string{"archive_key": key}
	}
	services.LogAuditEvent(db.DB, auditCtx, event)

	message := fmt.Sprintf("%d time entries imported.", result.SuccessRows)
	if result.ErrorRows > 0 {
		message = fmt.Sprintf("%d time entries imported, %d rows with errors.", result.SuccessRows, result.ErrorRows)
	}
	return c.JSON(http.StatusOK, ImportResponse{
		Message:     message,
		TotalRows:   result.TotalRows,
		SuccessRows: result.SuccessRows,
		ErrorRows:   result.ErrorRows,
		Errors:      result.Messages(),
	})
}

// archiveImportFile keeps a copy of the uploaded file and returns its archive key.
// Failures are logged and do not affect the import.
func archiveImportFile(c echo.Context, userID uint, fileHeader *multipart.FileHeader) string {
	archived, err := services.ArchiveImport(c.Request().Context(), services.Archives, userID, fileHeader)
	if err != nil {
		logger.Log.Warn("Failed to archive import file", zap.String("file", fileHeader.Filename), zap.Error(err))
		return ""
	}
	return archived.Key
}

// ImportTemplateHandler downloads the import template with example rows
func ImportTemplateHandler(c echo.Context) error {
	var buf bytes.Buffer
	if err := services.ImportTemplate(&buf); err != nil {
		return handleServiceError(c, err, "build import template")
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%s", services.TemplateFilename))
	return c.Blob(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}
